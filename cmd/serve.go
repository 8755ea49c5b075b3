package cmd

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"

	"slotwise/internal/agent"
	"slotwise/internal/calendar"
	"slotwise/internal/config"
	"slotwise/internal/schedule"
	"slotwise/internal/server"
	"slotwise/internal/tools"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		listenAddr string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the chat server",
		Long: `Start the HTTP chat server.

The server exposes:
  - POST /chat for request/response chat turns
  - /ws for websocket chat
  - /oauth/login/ to connect a Google account (when configured)
  - /healthz and /metrics

The LLM API key is read from the OPENAI_API_KEY environment variable
(a .env file in the working directory is loaded if present). Calendar
access uses Google Calendar by default, or the read-only ICS feeds
listed in the config.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Missing .env is fine, the environment may be set directly.
			_ = godotenv.Load()

			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if listenAddr != "" {
				cfg.Listen = listenAddr
			}

			return runServe(cfg)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "slotwise.yaml", "Path to the YAML config file. Created with defaults on first run.")
	cmd.Flags().StringVar(&listenAddr, "listen", "", "HTTP listen address. Overrides the config file.")

	return cmd
}

func runServe(cfg *config.Config) error {
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var repo calendar.Repository
	if len(cfg.ICS) > 0 {
		repo = calendar.NewICSRepository(cfg.ICS, nil)
		log.Printf("Using %d read-only ICS feeds", len(cfg.ICS))
	} else {
		repo = calendar.NewGoogleRepository(cfg.Google.CredentialsFile)
	}

	engine, err := schedule.NewEngine(repo, cfg.Timezone,
		schedule.WithWorkDay(cfg.WorkDayStart, cfg.WorkDayEnd))
	if err != nil {
		return fmt.Errorf("creating scheduling engine: %w", err)
	}

	llm, err := openai.New(
		openai.WithBaseURL(cfg.LLM.BaseURL),
		openai.WithModel(cfg.LLM.Model),
	)
	if err != nil {
		return fmt.Errorf("initializing LLM: %w", err)
	}

	toolSet := tools.All(engine)

	// Each session gets its own executor so conversation histories
	// never leak across sessions.
	factory := func() (server.Runner, error) {
		executor := agent.New(llm, toolSet, engine.Location())
		return server.RunnerFunc(func(ctx context.Context, input string) (string, error) {
			out, err := executor.Call(ctx, map[string]any{"input": input})
			if err != nil {
				return "", err
			}
			reply, ok := out["output"].(string)
			if !ok {
				return "", fmt.Errorf("unexpected agent output: %+v", out)
			}
			return reply, nil
		}), nil
	}

	sessions := server.NewManager(factory, cfg.Session.Secret,
		time.Duration(cfg.Session.TTLMinutes)*time.Minute)
	defer sessions.Stop()

	httpSrv := &http.Server{
		Addr:    cfg.Listen,
		Handler: server.New(sessions, oauthConfig(cfg)),
	}

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		log.Printf("Server starting on %s (timezone %s)", cfg.Listen, cfg.Timezone)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverDone <- err
		}
	}()

	select {
	case <-shutdownCtx.Done():
		log.Println("Shutdown signal received, stopping HTTP server...")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutting down HTTP server: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("HTTP server stopped with error: %w", err)
		}
	}

	return nil
}

// oauthConfig builds the Google OAuth config for the login flow, or nil
// when no client credentials are configured.
func oauthConfig(cfg *config.Config) *oauth2.Config {
	if cfg.Google.ClientID == "" || cfg.Google.ClientSecret == "" {
		return nil
	}
	return &oauth2.Config{
		ClientID:     cfg.Google.ClientID,
		ClientSecret: cfg.Google.ClientSecret,
		RedirectURL:  cfg.Google.RedirectURL,
		Scopes:       []string{gcal.CalendarScope},
		Endpoint:     googleoauth.Endpoint,
	}
}
