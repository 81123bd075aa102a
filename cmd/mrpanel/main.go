package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	gitlabadapter "github.com/ericfisherdev/mrpanel/internal/adapter/driven/gitlab"
	"github.com/ericfisherdev/mrpanel/internal/adapter/driven/gitremote"
	sqliteadapter "github.com/ericfisherdev/mrpanel/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/mrpanel/internal/adapter/driving/cli"
	"github.com/ericfisherdev/mrpanel/internal/application"
	"github.com/ericfisherdev/mrpanel/internal/config"
	"github.com/ericfisherdev/mrpanel/internal/domain/port/driven"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	// Signal-based context (SIGINT, SIGTERM) shared by every command.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return cli.Execute(ctx, wire)
}

// wire builds the application once configuration is loaded.
func wire(ctx context.Context, cfg *config.Config) (*cli.App, error) {
	slog.Debug("config loaded",
		"instance", cfg.InstanceURL,
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"remote", cfg.RemoteName,
		"pipeline_remote", cfg.PipelineRemoteName,
		"token_store", cfg.HasSecretKey(),
	)

	// 1. Open database and run migrations.
	db, err := sqliteadapter.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	slog.Debug("database opened", "path", cfg.DBPath)

	// 2. Wire adapters.
	tokenStore := sqliteadapter.NewTokenRepo(db, cfg.SecretKey)
	resolver := gitremote.NewResolver(cfg.InstanceURL)

	newClient := func(token string) driven.GitLabClient {
		c, err := gitlabadapter.NewClient(cfg.InstanceURL, token, gitlabadapter.Options{
			RequestsPerSecond: cfg.RequestsPerSecond,
		})
		if err != nil {
			slog.Error("failed to create GitLab client", "instance", cfg.InstanceURL, "error", err)
			return nil
		}
		return c
	}

	// 3. Client provider for hot-swap. Stored token takes priority over the env token.
	provider := application.NewGitLabClientProvider(nil)
	projects := application.NewProjectCache()
	tokens := application.NewTokenService(tokenStore, provider, projects, cfg.InstanceURL, newClient)
	tokens.Bootstrap(ctx, cfg.Token)

	// 4. Services.
	sessions := application.NewSessionManager(provider, cfg.DiscussionPageSize)
	workspace := application.NewWorkspaceService(provider, resolver,
		gitremote.NewPatchApplier(),
		projects,
		application.WorkspaceOptions{
			RemoteName:         cfg.RemoteName,
			PipelineRemoteName: cfg.PipelineRemoteName,
		})

	return &cli.App{
		Config:    cfg,
		Tokens:    tokens,
		Sessions:  sessions,
		Workspace: workspace,
		Close: func() error {
			sessions.CloseAll()
			return db.Close()
		},
	}, nil
}
