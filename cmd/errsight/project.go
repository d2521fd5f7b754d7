package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gorm.io/gorm"

	"github.com/errsight/errsight/internal/apikey"
	"github.com/errsight/errsight/internal/config"
	"github.com/errsight/errsight/internal/db"
	"github.com/errsight/errsight/internal/models"
	"github.com/errsight/errsight/internal/secrets"
	"github.com/errsight/errsight/internal/store"
)

func newProjectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage projects and their credentials",
	}

	cmd.AddCommand(newProjectCreateCmd())
	cmd.AddCommand(newProjectListCmd())
	cmd.AddCommand(newProjectShowCmd())
	cmd.AddCommand(newProjectDeleteCmd())
	cmd.AddCommand(newProjectRotateKeyCmd())
	return cmd
}

// openStores connects to the database and builds the project store.
func openStores(configPath string) (*store.Projects, *store.Logs, *gorm.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}
	codec, err := secrets.NewCodec(cfg.EncryptionKey)
	if err != nil {
		return nil, nil, nil, err
	}
	gormDB, err := db.Connect(cfg.DB)
	if err != nil {
		return nil, nil, nil, err
	}
	return store.NewProjects(gormDB, codec), store.NewLogs(gormDB), gormDB, nil
}

// promptSecret reads a value without echo when stdin is a terminal.
func promptSecret(cmd *cobra.Command, label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("%s: stdin is not a terminal, pass the flag instead", label)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: ", label)
	value, err := term.ReadPassword(fd)
	fmt.Fprintln(cmd.OutOrStdout())
	if err != nil {
		return "", fmt.Errorf("read %s: %w", label, err)
	}
	return strings.TrimSpace(string(value)), nil
}

func newProjectCreateCmd() *cobra.Command {
	var (
		configPath string
		ownerID    string
		provider   string
		llmKey     string
		model      string
		smtpUser   string
		smtpPass   string
		emailTo    string
	)

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a project and print its API credentials",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projects, _, _, err := openStores(configPath)
			if err != nil {
				return err
			}

			// Secrets not passed as flags are prompted without echo.
			if provider != "" && llmKey == "" {
				if llmKey, err = promptSecret(cmd, "LLM API key"); err != nil {
					return err
				}
			}
			if smtpUser != "" && smtpPass == "" {
				if smtpPass, err = promptSecret(cmd, "SMTP password"); err != nil {
					return err
				}
			}

			p := &models.Project{
				OwnerID:     ownerID,
				Name:        args[0],
				LLMProvider: provider,
				LLMAPIKey:   llmKey,
				LLMModel:    model,
				SMTPUser:    smtpUser,
				SMTPPass:    smtpPass,
				EmailTo:     emailTo,
			}
			if err := projects.Create(context.Background(), p); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Project %s created (%s)\n\n", p.Name, p.ID)
			fmt.Fprintf(out, "  api_key_id: %s\n", p.APIKeyID)
			fmt.Fprintf(out, "  api_key:    %s\n\n", p.APIKey)
			fmt.Fprintln(out, "Store the api_key now; it is shown only once.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "errsight.yaml", "path to Errsight config file")
	cmd.Flags().StringVar(&ownerID, "owner", "", "owner identifier")
	cmd.Flags().StringVar(&provider, "provider", "", "llm provider (openai, anthropic, gemini)")
	cmd.Flags().StringVar(&llmKey, "llm-key", "", "llm api key (prompted if omitted)")
	cmd.Flags().StringVar(&model, "model", "", "llm model name")
	cmd.Flags().StringVar(&smtpUser, "smtp-user", "", "smtp sender address")
	cmd.Flags().StringVar(&smtpPass, "smtp-pass", "", "smtp password (prompted if omitted)")
	cmd.Flags().StringVar(&emailTo, "email-to", "", "notification recipient")
	return cmd
}

func newProjectListCmd() *cobra.Command {
	var (
		configPath string
		ownerID    string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			projects, _, _, err := openStores(configPath)
			if err != nil {
				return err
			}
			list, err := projects.List(context.Background(), ownerID)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tPROVIDER\tAPI KEY ID\tAPI KEY")
			for i := range list {
				p := &list[i]
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					p.ID, p.Name, p.LLMProvider, p.APIKeyID, apikey.Mask(p.APIKey))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "errsight.yaml", "path to Errsight config file")
	cmd.Flags().StringVar(&ownerID, "owner", "", "filter by owner")
	return cmd
}

func newProjectShowCmd() *cobra.Command {
	var (
		configPath string
		logLimit   int
	)

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a project and its recent error logs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projects, logs, _, err := openStores(configPath)
			if err != nil {
				return err
			}
			p, err := projects.Get(context.Background(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Project %s (%s)\n", p.Name, p.ID)
			fmt.Fprintf(out, "  owner:      %s\n", p.OwnerID)
			fmt.Fprintf(out, "  provider:   %s / %s\n", p.LLMProvider, p.LLMModel)
			fmt.Fprintf(out, "  llm key:    %s\n", apikey.Mask(p.LLMAPIKey))
			fmt.Fprintf(out, "  mail:       %s -> %s\n", p.SMTPUser, p.EmailTo)
			fmt.Fprintf(out, "  api_key_id: %s\n", p.APIKeyID)
			fmt.Fprintf(out, "  api_key:    %s\n", apikey.Mask(p.APIKey))

			entries, err := logs.ListByProject(context.Background(), p.ID, logLimit, 0)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(out, "\nNo error logs.")
				return nil
			}
			fmt.Fprintf(out, "\nRecent errors (%d):\n", len(entries))
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tWHEN\tTRIAL\tERROR")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%t\t%s\n",
					e.ID, e.CreatedAt.Format("2006-01-02 15:04"), e.IsTrial, store.Truncate(e.Error, 60))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "errsight.yaml", "path to Errsight config file")
	cmd.Flags().IntVar(&logLimit, "logs", 10, "number of recent logs to show")
	return cmd
}

func newProjectDeleteCmd() *cobra.Command {
	var (
		configPath string
		yes        bool
	)

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a project and all its error logs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to delete without --yes")
			}
			projects, _, _, err := openStores(configPath)
			if err != nil {
				return err
			}
			if err := projects.Delete(context.Background(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Project %s deleted\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "errsight.yaml", "path to Errsight config file")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm deletion")
	return cmd
}

func newProjectRotateKeyCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "rotate-key <id>",
		Short: "Issue a fresh API key for a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projects, _, _, err := openStores(configPath)
			if err != nil {
				return err
			}
			key, err := projects.RotateKey(context.Background(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "New api_key: %s\n", key)
			fmt.Fprintln(out, "The previous key no longer authenticates.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "errsight.yaml", "path to Errsight config file")
	return cmd
}
