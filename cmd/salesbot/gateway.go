package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"salesbot/internal/agent"
	"salesbot/internal/api"
	"salesbot/internal/bus"
	"salesbot/internal/catalog"
	"salesbot/internal/channel"
	"salesbot/internal/kb"
	"salesbot/internal/metrics"

	"github.com/spf13/cobra"
)

func gatewayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gateway",
		Short: "Start the bot (transports, worker, admin API)",
		Long:  "Starts all enabled transports (WhatsApp webhook, Telegram), the pipeline worker and the admin API. Press Ctrl+C to stop.",
		RunE:  runGateway,
	}
}

func runGateway(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	setLogLevel(cfg.General.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, completer, p, err := buildCore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := completer.Healthy(ctx); err != nil {
		logger.Warn("openai unhealthy at startup", "err", err)
	} else {
		logger.Info("openai healthy")
	}

	messageBus := bus.New(100, logger)
	defer messageBus.Close()

	collector := metrics.NewCollector()

	worker := agent.NewWorker(agent.WorkerConfig{
		Pipeline:      p,
		Conversations: st,
		Bus:           messageBus,
		Logger:        logger,
		Concurrency:   cfg.General.MaxConcurrentMessages,
		RunTimeout:    time.Duration(cfg.General.RunTimeoutSeconds) * time.Second,
		Recorder:      collector,
	})
	go worker.Run(ctx)

	var whatsappCh *channel.WhatsApp
	if cfg.Twilio.Enabled {
		whatsappCh = channel.NewWhatsApp(channel.WhatsAppConfig{
			Config: cfg.Twilio,
			Logger: logger,
		})
		if err := whatsappCh.Start(ctx, messageBus); err != nil {
			return fmt.Errorf("whatsapp channel: %w", err)
		}
	} else {
		logger.Info("whatsapp channel disabled")
	}

	var telegramCh *channel.Telegram
	if cfg.Telegram.Enabled && cfg.Telegram.Token != "" {
		telegramCh = channel.NewTelegram(channel.TelegramConfig{
			Token:  cfg.Telegram.Token,
			Logger: logger,
		})
		go func() {
			if err := telegramCh.Start(ctx, messageBus); err != nil {
				logger.Error("telegram channel error", "err", err)
			}
		}()
	} else {
		logger.Info("telegram channel disabled")
	}

	proc := kb.NewProcessor(kb.ProcessorConfig{
		FetchTimeout: time.Duration(cfg.Knowledge.FetchTimeoutSeconds) * time.Second,
		Completer:    completer,
		LLMCleanup:   cfg.Knowledge.LLMCleanup,
		Model:        cfg.Pipeline.ClassificationModel,
		Logger:       logger,
	})

	checks := map[string]api.HealthCheck{
		"openai": completer.Healthy,
	}
	if whatsappCh != nil {
		checks["twilio"] = whatsappCh.Healthy
	}

	server := api.NewServer(api.ServerConfig{
		Config:        cfg.API,
		Conversations: st,
		Catalog:       st,
		Knowledge:     st,
		Importer:      catalog.NewImporter(st, logger),
		Processor:     proc,
		Checks:        checks,
		Logger:        logger,
	})

	// The webhook and metrics share the admin server's listener.
	if whatsappCh != nil {
		server.Mount("POST "+cfg.Twilio.WebhookPath, whatsappCh.Handler())
	}
	if cfg.Metrics.Enabled {
		server.Mount("GET "+cfg.Metrics.Endpoint, collector.Handler())
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(ctx)
	}()

	logger.Info("gateway started. Press Ctrl+C to stop.", "version", version)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("admin API: %w", err)
		}
	}

	logger.Info("shutting down gateway...")
	if telegramCh != nil {
		telegramCh.Stop()
	}
	if whatsappCh != nil {
		whatsappCh.Stop()
	}
	server.Stop()
	logger.Info("shutdown complete")
	return nil
}
