package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/errsight/errsight/internal/analysis"
	"github.com/errsight/errsight/internal/config"
	"github.com/errsight/errsight/internal/db"
	"github.com/errsight/errsight/internal/ingest"
	"github.com/errsight/errsight/internal/notify"
	"github.com/errsight/errsight/internal/secrets"
	"github.com/errsight/errsight/internal/server"
	"github.com/errsight/errsight/internal/store"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Errsight API server",
		Long:  "Serves the ingestion, trial and admin APIs, and the daily digest scheduler.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "errsight.yaml", "path to Errsight config file")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	codec, err := secrets.NewCodec(cfg.EncryptionKey)
	if err != nil {
		return err
	}

	gormDB, err := db.Connect(cfg.DB)
	if err != nil {
		return err
	}

	projects := store.NewProjects(gormDB, codec)
	logs := store.NewLogs(gormDB)

	channels, err := buildChannels(cfg)
	if err != nil {
		return err
	}
	dispatcher := notify.NewDispatcher(notify.NewSMTPMailer(cfg.SMTP.Host, cfg.SMTP.Port), channels...)

	svc := ingest.NewService(projects, logs, analysis.NewEngine(), dispatcher)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(cmd.OutOrStdout(), "\nReceived %s, shutting down...\n", sig)
		cancel()
	}()

	if cfg.Digest.Enabled {
		go dispatcher.RunDigestLoop(ctx, logs, cfg.Digest.Cron)
	}

	return server.Start(ctx, server.StartOpts{
		Service:    svc,
		Projects:   projects,
		Logs:       logs,
		AdminToken: cfg.AdminToken,
		Addr:       fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Out:        cmd.OutOrStdout(),
	})
}

// buildChannels instantiates the deployment-level notification channels
// that are configured. All are optional.
func buildChannels(cfg *config.Config) ([]notify.Notifier, error) {
	var channels []notify.Notifier

	if cfg.Notify.Slack.BotToken != "" {
		n, err := notify.NewSlackNotifier(notify.SlackOpts{
			BotToken:  cfg.Notify.Slack.BotToken,
			ChannelID: cfg.Notify.Slack.ChannelID,
		})
		if err != nil {
			return nil, err
		}
		channels = append(channels, n)
	}
	if cfg.Notify.Discord.BotToken != "" {
		n, err := notify.NewDiscordNotifier(notify.DiscordOpts{
			BotToken:  cfg.Notify.Discord.BotToken,
			ChannelID: cfg.Notify.Discord.ChannelID,
		})
		if err != nil {
			return nil, err
		}
		channels = append(channels, n)
	}
	if cfg.Notify.GitHub.Token != "" {
		n, err := notify.NewGitHubNotifier(notify.GitHubOpts{
			Token:  cfg.Notify.GitHub.Token,
			Owner:  cfg.Notify.GitHub.Owner,
			Repo:   cfg.Notify.GitHub.Repo,
			Labels: cfg.Notify.GitHub.Labels,
		})
		if err != nil {
			return nil, err
		}
		channels = append(channels, n)
	}
	return channels, nil
}
