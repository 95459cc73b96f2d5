package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/collabtools/webex-ai-bot/internal/command"
	"github.com/collabtools/webex-ai-bot/internal/conf"
	"github.com/collabtools/webex-ai-bot/internal/memory"
	"github.com/collabtools/webex-ai-bot/internal/personality"
	"github.com/collabtools/webex-ai-bot/internal/provider"
	"github.com/collabtools/webex-ai-bot/internal/queue"
	"github.com/collabtools/webex-ai-bot/internal/server"
	"github.com/collabtools/webex-ai-bot/internal/users"
	"github.com/collabtools/webex-ai-bot/internal/webex"
	"github.com/collabtools/webex-ai-bot/internal/webhook"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found, using environment variables")
	}

	cfg := conf.LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if err := cfg.SetupLogging(); err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}

	if err := run(cfg); err != nil {
		log.Fatalf("Bot error: %v", err)
	}
}

func run(cfg *conf.Config) error {
	webexClient := webex.NewClient(cfg.Webex.BotToken)

	// The bot's own person ID is needed to ignore its own messages.
	// Discover it from the API unless it was configured explicitly.
	botID := cfg.Webex.BotID
	if botID == "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		me, err := webexClient.GetMe(ctx)
		cancel()
		if err != nil {
			return fmt.Errorf("failed to look up bot identity: %w", err)
		}
		botID = me.ID
		log.WithField("bot", me.DisplayName).Info("Discovered bot identity")
	}

	prov, err := provider.New(provider.Config{
		Name:      cfg.LLM.Provider,
		Model:     cfg.LLM.Model,
		APIKey:    cfg.LLM.APIKey,
		OllamaURL: cfg.LLM.OllamaURL,
	})
	if err != nil {
		return fmt.Errorf("failed to create LLM provider: %w", err)
	}

	personalities, err := personality.NewService(cfg.Bot.ConfigDir)
	if err != nil {
		return fmt.Errorf("failed to load personalities: %w", err)
	}

	userManager, err := users.NewManager(cfg.Bot.ConfigDir, cfg.Bot.AdminEmails)
	if err != nil {
		return fmt.Errorf("failed to load approved users: %w", err)
	}

	mem := memory.NewStore(cfg.Bot.MemoryMaxMessages)

	q := queue.New(webexClient, prov, personalities, mem)
	q.Start()
	defer q.Stop()

	commands := command.NewRouter(webexClient, userManager, personalities, prov)
	events := webhook.NewHandler(webexClient, botID, userManager, commands, q)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: server.New(events, prov).Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(log.Fields{
			"port":     cfg.Server.Port,
			"provider": cfg.LLM.Provider,
			"model":    cfg.LLM.Model,
		}).Info("Webex AI bot listening")
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.WithField("signal", sig.String()).Info("Shutting down")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	}

	// Stop accepting webhooks first, then let the queue drain in-flight
	// messages via the deferred Stop.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Warn("HTTP server shutdown did not complete cleanly")
	}
	return nil
}
