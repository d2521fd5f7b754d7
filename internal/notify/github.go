package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/go-github/v68/github"
	"golang.org/x/oauth2"
)

// issueCreator abstracts the GitHub Issues API method we use, enabling
// test mocks.
type issueCreator interface {
	Create(ctx context.Context, owner, repo string, issue *github.IssueRequest) (*github.Issue, *github.Response, error)
}

// GitHubNotifier files each event as an issue in a tracking repository.
type GitHubNotifier struct {
	issues issueCreator
	owner  string
	repo   string
	labels []string
}

// GitHubOpts holds parameters for creating a GitHubNotifier.
type GitHubOpts struct {
	Token  string // personal access token with repo scope
	Owner  string
	Repo   string
	Labels []string // applied to every created issue
	// For testing: inject a mock instead of the real GitHub API.
	Issues issueCreator
}

// NewGitHubNotifier creates a GitHub issue notifier.
func NewGitHubNotifier(opts GitHubOpts) (*GitHubNotifier, error) {
	if opts.Issues == nil && opts.Token == "" {
		return nil, fmt.Errorf("github: token is required")
	}
	if opts.Owner == "" || opts.Repo == "" {
		return nil, fmt.Errorf("github: owner and repo are required")
	}

	n := &GitHubNotifier{
		issues: opts.Issues,
		owner:  opts.Owner,
		repo:   opts.Repo,
		labels: opts.Labels,
	}
	if n.issues == nil {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token})
		n.issues = github.NewClient(oauth2.NewClient(context.Background(), ts)).Issues
	}
	return n, nil
}

// Name implements Notifier.
func (n *GitHubNotifier) Name() string { return "github" }

// Send files the event as an issue.
func (n *GitHubNotifier) Send(ctx context.Context, ev Event) error {
	req := &github.IssueRequest{
		Title: github.String(ev.Title),
		Body:  github.String(issueBody(ev)),
	}
	if len(n.labels) > 0 {
		labels := append([]string(nil), n.labels...)
		req.Labels = &labels
	}

	_, _, err := n.issues.Create(ctx, n.owner, n.repo, req)
	if err != nil {
		return fmt.Errorf("github: create issue: %w", err)
	}
	return nil
}

// issueBody renders the event as issue markdown.
func issueBody(ev Event) string {
	var b strings.Builder
	if ev.Body != "" {
		b.WriteString("```\n")
		b.WriteString(ev.Body)
		b.WriteString("\n```\n\n")
	}
	for _, f := range ev.Fields {
		fmt.Fprintf(&b, "**%s:** %s\n", f.Name, f.Value)
	}
	return b.String()
}
