// Package ingest orchestrates the report and trial flows: authenticate,
// analyze, persist, notify.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"github.com/errsight/errsight/internal/analysis"
	"github.com/errsight/errsight/internal/models"
	"github.com/errsight/errsight/internal/notify"
	"github.com/errsight/errsight/internal/store"
)

// sampleErrors is the canned pool the trial flow analyzes. One is
// picked at random per request so repeat trials show varied output.
var sampleErrors = []string{
	"TypeError: Cannot read properties of undefined (reading 'map')\n    at ProductList (app/products/page.tsx:24:31)",
	"Error: connect ECONNREFUSED 127.0.0.1:5432\n    at TCPConnectWrap.afterConnect [as oncomplete] (node:net:1300:16)",
	"ReferenceError: userId is not defined\n    at handler (app/api/orders/route.ts:18:11)",
	"Error: P2002 Unique constraint failed on the fields: (`email`)\n    at PrismaClient._request (node_modules/@prisma/client/runtime:36:1064)",
	"RangeError: Maximum call stack size exceeded\n    at serialize (lib/cache.ts:52:9)",
}

// Service wires the stores, the analysis engine and the notification
// dispatcher into the ingestion flows.
type Service struct {
	projects *store.Projects
	logs     *store.Logs
	engine   *analysis.Engine
	notifier *notify.Dispatcher
}

// NewService creates the orchestrator.
func NewService(projects *store.Projects, logs *store.Logs, engine *analysis.Engine, notifier *notify.Dispatcher) *Service {
	return &Service{projects: projects, logs: logs, engine: engine, notifier: notifier}
}

// ReportRequest is one error report from a client application.
type ReportRequest struct {
	APIKeyID string
	APIKey   string
	Error    string
	Location string
	Stack    string
}

// ReportResult is returned to the reporting client.
type ReportResult struct {
	LogID    string
	Analysis *analysis.Result
}

// Report runs the full ingestion flow. Analysis failures degrade to a
// fallback result and notification failures are swallowed; only
// authentication, validation and the log write can fail the request.
func (s *Service) Report(ctx context.Context, req ReportRequest) (*ReportResult, error) {
	if req.APIKeyID == "" || req.APIKey == "" {
		return nil, ErrUnauthorized
	}
	if strings.TrimSpace(req.Error) == "" {
		return nil, ErrMissingErrorText
	}

	p, err := s.projects.FindByAPICredentials(ctx, req.APIKeyID, req.APIKey)
	if err != nil {
		return nil, err
	}
	if !p.HasLLMConfig() {
		return nil, ErrMissingLLMConfig
	}

	fullContext := errorContext(req.Error, req.Location, req.Stack)

	result, err := s.engine.Analyze(ctx, p.LLMProvider, p.LLMAPIKey, p.LLMModel, fullContext)
	if err != nil {
		log.Printf("ingest: analysis failed for project %s: %v", p.ID, err)
		result = analysis.Fallback(req.Location, err)
	}

	entry, err := s.persist(ctx, p, fullContext, result, false)
	if err != nil {
		return nil, err
	}

	s.notifier.ReportAnalyzed(ctx, notify.Report{
		ProjectName: p.Name,
		LogID:       entry.ID,
		RawError:    req.Error,
		Location:    req.Location,
		Stack:       req.Stack,
		Provider:    p.LLMProvider,
		Model:       p.LLMModel,
		Analysis:    *result,
		Timestamp:   time.Now(),
	}, mailConfig(p))

	return &ReportResult{LogID: entry.ID, Analysis: result}, nil
}

// TrialLLMRequest carries either project credentials or an inline LLM
// configuration.
type TrialLLMRequest struct {
	APIKeyID string
	APIKey   string

	Provider  string
	LLMAPIKey string
	Model     string
}

// TrialResult is returned by TrialLLM.
type TrialResult struct {
	SampleError string
	Analysis    *analysis.Result
	LogID       string // empty when run with inline credentials
}

// TrialLLM analyzes a canned error with the caller's LLM configuration.
// Unlike Report, engine failures surface so the caller learns their
// configuration is broken. The run is persisted as a trial entry only
// when a project is known.
func (s *Service) TrialLLM(ctx context.Context, req TrialLLMRequest) (*TrialResult, error) {
	var p *models.Project
	provider, apiKey, model := req.Provider, req.LLMAPIKey, req.Model

	if req.APIKeyID != "" || req.APIKey != "" {
		var err error
		p, err = s.projects.FindByAPICredentials(ctx, req.APIKeyID, req.APIKey)
		if err != nil {
			return nil, err
		}
		if !p.HasLLMConfig() {
			return nil, ErrMissingLLMConfig
		}
		provider, apiKey, model = p.LLMProvider, p.LLMAPIKey, p.LLMModel
	}
	if provider == "" || apiKey == "" || model == "" {
		return nil, ErrMissingLLMConfig
	}

	sample := sampleErrors[rand.Intn(len(sampleErrors))]
	result, err := s.engine.Analyze(ctx, provider, apiKey, model, sample)
	if err != nil {
		return nil, err
	}

	res := &TrialResult{SampleError: sample, Analysis: result}
	if p != nil {
		entry, err := s.persist(ctx, p, sample, result, true)
		if err != nil {
			return nil, err
		}
		res.LogID = entry.ID
	}
	return res, nil
}

// TrialMailRequest carries either project credentials or an inline
// SMTP configuration.
type TrialMailRequest struct {
	APIKeyID string
	APIKey   string

	SMTPUser string
	SMTPPass string
	EmailTo  string
}

// TrialMail verifies the caller's SMTP configuration and sends a test
// message. Failures surface.
func (s *Service) TrialMail(ctx context.Context, req TrialMailRequest) error {
	cfg := notify.MailConfig{Username: req.SMTPUser, Password: req.SMTPPass, To: req.EmailTo}

	if req.APIKeyID != "" || req.APIKey != "" {
		p, err := s.projects.FindByAPICredentials(ctx, req.APIKeyID, req.APIKey)
		if err != nil {
			return err
		}
		if !p.HasMailConfig() {
			return ErrMissingMailConfig
		}
		cfg = notify.MailConfig{Username: p.SMTPUser, Password: p.SMTPPass, To: p.EmailTo}
	}
	if cfg.Username == "" || cfg.Password == "" || cfg.To == "" {
		return ErrMissingMailConfig
	}

	return s.notifier.SendTestMail(ctx, cfg)
}

// errorContext appends the caller-supplied location and stack to the
// raw error so both the analysis prompt and the stored entry carry
// the full picture.
func errorContext(errText, location, stack string) string {
	if location == "" {
		location = "Unknown"
	}
	if stack == "" {
		stack = "No Stack"
	}
	return fmt.Sprintf("%s\nLocation: %s\nStack: %s", errText, location, stack)
}

// persist writes the log entry. The store truncates oversized error text.
func (s *Service) persist(ctx context.Context, p *models.Project, errorText string, result *analysis.Result, trial bool) (*models.ErrorLog, error) {
	resolution, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("ingest: marshal analysis: %w", err)
	}

	entry := &models.ErrorLog{
		ProjectID:   p.ID,
		Error:       errorText,
		LLMProvider: p.LLMProvider,
		LLMModel:    p.LLMModel,
		Resolution:  string(resolution),
		IsTrial:     trial,
	}
	if err := s.logs.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("ingest: store log: %w", err)
	}
	return entry, nil
}

// mailConfig resolves the project's mail settings, nil when incomplete.
func mailConfig(p *models.Project) *notify.MailConfig {
	if !p.HasMailConfig() {
		return nil
	}
	return &notify.MailConfig{Username: p.SMTPUser, Password: p.SMTPPass, To: p.EmailTo}
}
