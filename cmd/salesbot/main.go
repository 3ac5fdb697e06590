package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"salesbot/internal/agent"
	"salesbot/internal/catalog"
	"salesbot/internal/config"
	"salesbot/internal/domain"
	"salesbot/internal/kb"
	"salesbot/internal/pipeline"
	"salesbot/internal/provider"
	"salesbot/internal/store"

	"github.com/spf13/cobra"
)

var (
	version    = "1.0.0"
	logger     *slog.Logger
	configPath string // overridable via --config flag
)

func main() {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	root := &cobra.Command{
		Use:   "salesbot",
		Short: "Conversational car sales agent for WhatsApp and Telegram",
		Long:  "Salesbot answers customer messages about the used-car catalog, financing and company policy over WhatsApp and Telegram.",
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.json (default: ~/.salesbot/config.json)")

	root.AddCommand(initCmd())
	root.AddCommand(gatewayCmd())
	root.AddCommand(chatCmd())
	root.AddCommand(importCmd())
	root.AddCommand(seedCmd())
	root.AddCommand(doctorCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveConfigPath returns the config path from --config flag or default.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

func loadConfig() (*config.Config, error) {
	return config.Load(resolveConfigPath())
}

// setLogLevel rebuilds the global logger at the configured level.
func setLogLevel(level string) {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create a default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			if _, err := os.Stat(cfgPath); err == nil {
				return fmt.Errorf("config already exists at %s", cfgPath)
			}
			if err := config.Save(cfgPath, config.Defaults()); err != nil {
				return err
			}
			logger.Info("initialized", "config", cfgPath)
			fmt.Println("Edit the config and set openai.apiKey (or export OPENAI_API_KEY), then run 'salesbot gateway'.")
			return nil
		},
	}
}

// buildCore wires store, completer and pipeline; shared by gateway and chat.
func buildCore(cfg *config.Config) (*store.SQLiteStore, *provider.OpenAI, *pipeline.Pipeline, error) {
	st, err := store.NewSQLiteStore(cfg.Store.DBPath, logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open store: %w", err)
	}

	completer := provider.NewOpenAI(provider.OpenAIConfig{
		APIKey:  cfg.OpenAI.APIKey,
		APIBase: cfg.OpenAI.APIBase,
		Timeout: time.Duration(cfg.OpenAI.TimeoutSeconds) * time.Second,
		Logger:  logger,
	})

	p := pipeline.New(pipeline.Deps{
		Conversations: st,
		Catalog:       st,
		Knowledge:     st,
		Completer:     completer,
		Config:        cfg.Pipeline,
		Logger:        logger,
	})
	return st, completer, p, nil
}

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Talk to the sales agent from the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			setLogLevel(cfg.General.LogLevel)

			st, _, p, err := buildCore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			worker := agent.NewWorker(agent.WorkerConfig{
				Pipeline:      p,
				Conversations: st,
				Logger:        logger,
				Concurrency:   1,
				RunTimeout:    time.Duration(cfg.General.RunTimeoutSeconds) * time.Second,
			})

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Println("salesbot chat. Empty line or Ctrl+C to exit.")
			scanner := bufio.NewScanner(os.Stdin)
			for {
				fmt.Print("> ")
				if !scanner.Scan() {
					return scanner.Err()
				}
				text := strings.TrimSpace(scanner.Text())
				if text == "" {
					return nil
				}

				reply, err := worker.Handle(ctx, domain.InboundMessage{
					Transport:  "cli",
					SenderID:   "cli",
					SenderName: "Usuario",
					Text:       text,
					Timestamp:  time.Now(),
				})
				if err != nil {
					logger.Error("run failed", "err", err)
					continue
				}
				fmt.Println(reply.Text)
			}
		},
	}
}

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import [file.csv]",
		Short: "Import the vehicle catalog from a CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			st, err := store.NewSQLiteStore(cfg.Store.DBPath, logger)
			if err != nil {
				return err
			}
			defer st.Close()

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			result, err := catalog.NewImporter(st, logger).Import(cmd.Context(), f)
			if err != nil {
				return err
			}
			fmt.Printf("Imported %d vehicles (%d rows skipped).\n", result.Imported, result.Skipped)
			return nil
		},
	}
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed [articles.yaml]",
		Short: "Load knowledge articles from a YAML seed file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			st, err := store.NewSQLiteStore(cfg.Store.DBPath, logger)
			if err != nil {
				return err
			}
			defer st.Close()

			var completer domain.Completer
			if cfg.Knowledge.LLMCleanup {
				completer = provider.NewOpenAI(provider.OpenAIConfig{
					APIKey:  cfg.OpenAI.APIKey,
					APIBase: cfg.OpenAI.APIBase,
					Timeout: time.Duration(cfg.OpenAI.TimeoutSeconds) * time.Second,
					Logger:  logger,
				})
			}
			proc := kb.NewProcessor(kb.ProcessorConfig{
				FetchTimeout: time.Duration(cfg.Knowledge.FetchTimeoutSeconds) * time.Second,
				Completer:    completer,
				LLMCleanup:   cfg.Knowledge.LLMCleanup,
				Model:        cfg.Pipeline.ClassificationModel,
				Logger:       logger,
			})

			n, err := kb.LoadSeed(cmd.Context(), args[0], st, proc)
			if err != nil {
				return err
			}
			fmt.Printf("Loaded %d knowledge articles.\n", n)
			return nil
		},
		Args: cobra.ExactArgs(1),
	}
}
