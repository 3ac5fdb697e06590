package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// Config is the root configuration for salesbot.
type Config struct {
	General   GeneralConfig   `json:"general"`
	OpenAI    OpenAIConfig    `json:"openai"`
	Pipeline  PipelineConfig  `json:"pipeline"`
	Store     StoreConfig     `json:"store"`
	Twilio    TwilioConfig    `json:"twilio"`
	Telegram  TelegramConfig  `json:"telegram"`
	API       APIConfig       `json:"api"`
	Metrics   MetricsConfig   `json:"metrics"`
	Knowledge KnowledgeConfig `json:"knowledge"`
}

type GeneralConfig struct {
	LogLevel              string `json:"logLevel"`
	MaxConcurrentMessages int    `json:"maxConcurrentMessages"`
	RunTimeoutSeconds     int    `json:"runTimeoutSeconds"` // deadline for one pipeline run
}

type OpenAIConfig struct {
	APIKey         string `json:"apiKey"`
	APIBase        string `json:"apiBase,omitempty"`
	TimeoutSeconds int    `json:"timeoutSeconds,omitempty"` // per completion call
}

// PipelineConfig is the pipeline tuning surface. Fixed at construction,
// never re-read mid-run.
type PipelineConfig struct {
	GenerationModel           string  `json:"generationModel"`
	ClassificationModel       string  `json:"classificationModel"`
	GenerationTemperature     float64 `json:"generationTemperature"`
	ClassificationTemperature float64 `json:"classificationTemperature"`
	HistorySize               int     `json:"historySize"`
	SessionTimeoutMinutes     int     `json:"sessionTimeoutMinutes"`
}

// SessionTimeout returns the session expiry window as a duration.
func (p PipelineConfig) SessionTimeout() time.Duration {
	return time.Duration(p.SessionTimeoutMinutes) * time.Minute
}

type StoreConfig struct {
	DBPath string `json:"dbPath"`
}

type TwilioConfig struct {
	Enabled      bool   `json:"enabled"`
	AccountSID   string `json:"accountSid,omitempty"`
	AuthToken    string `json:"authToken,omitempty"`
	WhatsAppFrom string `json:"whatsappFrom,omitempty"` // sender number, no whatsapp: prefix
	WebhookPath  string `json:"webhookPath,omitempty"`
}

type TelegramConfig struct {
	Enabled bool   `json:"enabled"`
	Token   string `json:"token,omitempty"`
}

type APIConfig struct {
	Enabled bool   `json:"enabled"`
	Host    string `json:"host"`
	Port    int    `json:"port"`
	Token   string `json:"token,omitempty"` // bearer token for admin endpoints
}

type MetricsConfig struct {
	Enabled  bool   `json:"enabled"`
	Endpoint string `json:"endpoint"`
}

type KnowledgeConfig struct {
	FetchTimeoutSeconds int  `json:"fetchTimeoutSeconds"`
	LLMCleanup          bool `json:"llmCleanup"` // second cleanup pass through the model
}

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel:              "info",
			MaxConcurrentMessages: 5,
			RunTimeoutSeconds:     120,
		},
		OpenAI: OpenAIConfig{
			APIKey:         "${OPENAI_API_KEY}",
			TimeoutSeconds: 60,
		},
		Pipeline: PipelineConfig{
			GenerationModel:           "gpt-4-turbo",
			ClassificationModel:       "gpt-3.5-turbo",
			GenerationTemperature:     0.5,
			ClassificationTemperature: 0,
			HistorySize:               10,
			SessionTimeoutMinutes:     15,
		},
		Store: StoreConfig{
			DBPath: "~/.salesbot/salesbot.db",
		},
		Twilio: TwilioConfig{
			Enabled:     false,
			WebhookPath: "/webhook/twilio",
		},
		Telegram: TelegramConfig{
			Enabled: false,
		},
		API: APIConfig{
			Enabled: true,
			Host:    "127.0.0.1",
			Port:    8080,
		},
		Metrics: MetricsConfig{
			Enabled:  true,
			Endpoint: "/metrics",
		},
		Knowledge: KnowledgeConfig{
			FetchTimeoutSeconds: 10,
			LLMCleanup:          false,
		},
	}
}

// DefaultConfigDir returns the default config directory (~/.salesbot).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".salesbot"
	}
	return filepath.Join(home, ".salesbot")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

func Load(path string) (*Config, error) {
	path = expandPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	// Substitute environment variables: ${VAR} and ${VAR:-default}
	data = []byte(ExpandEnvVars(string(data)))

	cfg := Defaults()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	cfg.Store.DBPath = expandPath(cfg.Store.DBPath)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// Supports default values: ${VAR:-default} uses "default" when VAR is unset
// or empty. Unset variables without a default resolve to the empty string so
// a missing key fails validation instead of leaking the placeholder.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		val, exists := os.LookupEnv(groups[1])
		if !exists || val == "" {
			if len(groups) >= 3 {
				return groups[2]
			}
			return ""
		}
		return val
	})
}

func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks that the config has valid values.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.General.MaxConcurrentMessages < 1 || cfg.General.MaxConcurrentMessages > 100 {
		errs = append(errs, "general.maxConcurrentMessages must be between 1 and 100")
	}
	if cfg.General.RunTimeoutSeconds < 1 {
		errs = append(errs, "general.runTimeoutSeconds must be positive")
	}
	if cfg.Pipeline.HistorySize < 1 {
		errs = append(errs, "pipeline.historySize must be positive")
	}
	if cfg.Pipeline.SessionTimeoutMinutes < 1 {
		errs = append(errs, "pipeline.sessionTimeoutMinutes must be positive")
	}
	if cfg.Pipeline.GenerationModel == "" {
		errs = append(errs, "pipeline.generationModel must be set")
	}
	if cfg.Pipeline.ClassificationModel == "" {
		errs = append(errs, "pipeline.classificationModel must be set")
	}
	if t := cfg.Pipeline.GenerationTemperature; t < 0 || t > 2 {
		errs = append(errs, "pipeline.generationTemperature must be between 0 and 2")
	}
	if t := cfg.Pipeline.ClassificationTemperature; t < 0 || t > 2 {
		errs = append(errs, "pipeline.classificationTemperature must be between 0 and 2")
	}
	if cfg.Twilio.Enabled {
		if cfg.Twilio.AccountSID == "" || cfg.Twilio.AuthToken == "" {
			errs = append(errs, "twilio enabled but accountSid/authToken missing")
		}
		if cfg.Twilio.WhatsAppFrom == "" {
			errs = append(errs, "twilio enabled but whatsappFrom missing")
		}
	}
	if cfg.Telegram.Enabled && cfg.Telegram.Token == "" {
		errs = append(errs, "telegram enabled but token missing")
	}
	if cfg.API.Enabled && (cfg.API.Port < 1 || cfg.API.Port > 65535) {
		errs = append(errs, "api.port must be a valid port")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// expandPath resolves a leading ~/ against the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
