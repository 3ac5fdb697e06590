package main

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"salesbot/internal/config"
	"salesbot/internal/provider"

	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostic checks on your salesbot installation",
		Long: `Verifies that salesbot's configuration, OpenAI credentials, database and
ports are correctly set up. Reports pass/fail for each check.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			fmt.Printf("salesbot doctor v%s\n", version)
			fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

			passed := 0
			failed := 0
			warned := 0

			// 1. Config file exists
			if _, err := os.Stat(cfgPath); err != nil {
				printFail("Config file", fmt.Sprintf("not found at %s", cfgPath))
				fmt.Printf("\nRun 'salesbot init' to create a default configuration.\n")
				return fmt.Errorf("1 check(s) failed")
			}
			printPass("Config file", cfgPath)
			passed++

			// 2. Config loads and validates
			cfg, err := config.Load(cfgPath)
			if err != nil {
				printFail("Config validation", err.Error())
				fmt.Printf("\nResults: %d passed, %d failed\n", passed, 1)
				return fmt.Errorf("1 check(s) failed")
			}
			printPass("Config validation", "valid")
			passed++

			// 3. Database writable
			if err := checkDatabase(cfg.Store.DBPath); err != nil {
				printFail("Database", err.Error())
				failed++
			} else {
				printPass("Database", cfg.Store.DBPath)
				passed++
			}

			// 4. OpenAI credentials
			if cfg.OpenAI.APIKey == "" {
				printFail("OpenAI", "apiKey not set (export OPENAI_API_KEY)")
				failed++
			} else {
				completer := provider.NewOpenAI(provider.OpenAIConfig{
					APIKey:  cfg.OpenAI.APIKey,
					APIBase: cfg.OpenAI.APIBase,
					Timeout: 10 * time.Second,
					Logger:  logger,
				})
				ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
				err := completer.Healthy(ctx)
				cancel()
				if err != nil {
					printFail("OpenAI", err.Error())
					failed++
				} else {
					printPass("OpenAI", "credentials accepted")
					passed++
				}
			}

			// 5. Transports configured
			if !cfg.Twilio.Enabled && !cfg.Telegram.Enabled {
				printWarn("Transports", "neither twilio nor telegram enabled; only 'salesbot chat' will work")
				warned++
			} else {
				if cfg.Twilio.Enabled {
					printPass("Twilio", "configured, webhook at "+cfg.Twilio.WebhookPath)
					passed++
				}
				if cfg.Telegram.Enabled {
					printPass("Telegram", "configured")
					passed++
				}
			}

			// 6. API port available
			if cfg.API.Enabled {
				if err := checkPort(cfg.API.Port); err != nil {
					printWarn("API port", fmt.Sprintf("port %d may be in use: %v", cfg.API.Port, err))
					warned++
				} else {
					printPass("API port", fmt.Sprintf(":%d available", cfg.API.Port))
					passed++
				}
			}

			fmt.Printf("\n━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
			fmt.Printf("Results: %d passed, %d warnings, %d failed\n", passed, warned, failed)
			if failed > 0 {
				fmt.Printf("\nPlease fix the failed checks before running salesbot.\n")
				return fmt.Errorf("%d check(s) failed", failed)
			}
			if warned > 0 {
				fmt.Printf("\nsalesbot should work but consider fixing the warnings.\n")
			} else {
				fmt.Printf("\nAll checks passed! salesbot is ready to run.\n")
			}
			return nil
		},
	}
}

func checkDatabase(dbPath string) error {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("cannot create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return fmt.Errorf("cannot open: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("cannot ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS _doctor_test (id INTEGER PRIMARY KEY)"); err != nil {
		return fmt.Errorf("not writable: %w", err)
	}
	db.ExecContext(ctx, "DROP TABLE IF EXISTS _doctor_test")

	return nil
}

func checkPort(port int) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return err
	}
	ln.Close()
	return nil
}

func printPass(check, detail string) {
	fmt.Printf("  [PASS] %-20s %s\n", check, detail)
}

func printFail(check, detail string) {
	fmt.Printf("  [FAIL] %-20s %s\n", check, detail)
}

func printWarn(check, detail string) {
	fmt.Printf("  [WARN] %-20s %s\n", check, detail)
}
