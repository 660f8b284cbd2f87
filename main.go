package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/andrewsamuelsen/bowen/pkg/auth"
	"github.com/andrewsamuelsen/bowen/pkg/config"
	"github.com/andrewsamuelsen/bowen/pkg/event"
	"github.com/andrewsamuelsen/bowen/pkg/llm"
	"github.com/andrewsamuelsen/bowen/pkg/ratelimit"
	"github.com/andrewsamuelsen/bowen/pkg/service"
	"github.com/andrewsamuelsen/bowen/pkg/store"
	"github.com/andrewsamuelsen/bowen/pkg/utils"
)

func main() {
	// Initialize logging system
	utils.InitLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	serveCmd := newServeCmd()
	root := &cobra.Command{
		Use:           "bowen",
		Short:         "Relationship mapping and reflection backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serveCmd.RunE,
	}
	root.AddCommand(serveCmd, newConfigCmd(), newTokenCmd())
	root.AddCommand(newClientCmds()...)
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
}

func serve(ctx context.Context) error {
	logger := utils.GetLogger()

	cfg, path, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateServer(); err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}

	opts, err := cfg.StoreOptions()
	if err != nil {
		return err
	}
	docs, err := store.Open(ctx, opts)
	if err != nil {
		return fmt.Errorf("open %s store: %w", opts.Driver, err)
	}
	defer docs.Close()

	llmService, err := llm.NewService(cfg.ProviderConfig())
	if err != nil {
		return err
	}

	verifier, err := newVerifier(ctx, cfg)
	if err != nil {
		return err
	}

	limiter, closeLimiter := newLimiter(cfg)
	defer closeLimiter()

	emitter := event.Global()
	documentService := service.NewDocumentService(docs, emitter)
	chatService := service.NewChatService(llmService, documentService, limiter)

	server := NewServer(cfg, Deps{
		Documents: documentService,
		Chat:      chatService,
		Provider:  llmService,
		Verifier:  verifier,
		Emitter:   emitter,
	})
	if err := server.Start(ctx); err != nil {
		logger.Error("Failed to start server", "error", err)
		return err
	}
	logger.Info("Server started",
		"port", server.Port(),
		"provider", llmService.Provider(),
		"api_key", utils.MaskSensitiveString(cfg.LLM.APIKey),
		"store", opts.Driver,
		"auth", cfg.AuthMode())

	<-server.Done()
	return nil
}

func newVerifier(ctx context.Context, cfg *config.AppConfig) (auth.Verifier, error) {
	switch cfg.AuthMode() {
	case auth.ModeOIDC:
		return auth.NewOIDC(ctx, cfg.Auth.OIDCIssuer, cfg.Auth.OIDCClientID)
	case auth.ModeJWT:
		return auth.NewHS256(cfg.Auth.Secret, cfg.Auth.Issuer)
	}
	return nil, fmt.Errorf("unsupported auth mode %q", cfg.AuthMode())
}

// newLimiter uses redis when an address is configured and a per-process
// counter otherwise.
func newLimiter(cfg *config.AppConfig) (*ratelimit.Limiter, func()) {
	if cfg.Redis.Addr == "" {
		return ratelimit.New(ratelimit.NewMemoryCounter(), cfg.RateLimit(), time.Minute, "chat"), func() {}
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	return ratelimit.New(ratelimit.NewRedisCounter(rdb), cfg.RateLimit(), time.Minute, "chat"), func() {
		_ = rdb.Close()
	}
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "config", Short: "Manage the configuration file"}
	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write the default configuration if none exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := config.EnsureDefaultConfig()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	})
	return cmd
}

func newTokenCmd() *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Sign an HS256 token for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.AuthMode() != auth.ModeJWT {
				return errors.New("token signing needs auth mode jwt")
			}
			signer, err := auth.NewHS256(cfg.Auth.Secret, cfg.Auth.Issuer)
			if err != nil {
				return err
			}
			tok, err := signer.Sign(args[0], ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 30*24*time.Hour, "token lifetime")
	return cmd
}
