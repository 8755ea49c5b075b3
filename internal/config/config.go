package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LLMConfig selects the OpenAI-compatible endpoint the agent talks to.
// The API key itself comes from the environment (OPENAI_API_KEY).
type LLMConfig struct {
	BaseURL string `yaml:"base_url" json:"base_url"`
	Model   string `yaml:"model" json:"model"`
}

// GoogleConfig configures the Google Calendar backend and its OAuth flow.
type GoogleConfig struct {
	// CredentialsFile is a service credentials path used when no OAuth
	// token has been obtained through the login flow.
	CredentialsFile string `yaml:"credentials_file" json:"credentials_file"`
	ClientID        string `yaml:"client_id" json:"client_id"`
	ClientSecret    string `yaml:"client_secret" json:"client_secret"`
	RedirectURL     string `yaml:"redirect_url" json:"redirect_url"`
}

// SessionConfig controls chat session tokens and lifetime.
type SessionConfig struct {
	// Secret signs session tokens. Empty means a random per-process
	// secret, which invalidates tokens across restarts.
	Secret     string `yaml:"secret" json:"secret"`
	TTLMinutes int    `yaml:"ttl_minutes" json:"ttl_minutes"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the chat service.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA business timezone used for slot search,
	// display, and default working hours.
	Timezone string `yaml:"timezone" json:"timezone"`

	// WorkDayStart/WorkDayEnd bound the default availability window (HH:MM).
	WorkDayStart string `yaml:"work_day_start" json:"work_day_start"`
	WorkDayEnd   string `yaml:"work_day_end" json:"work_day_end"`

	LLM     LLMConfig    `yaml:"llm" json:"llm"`
	Google  GoogleConfig `yaml:"google" json:"google"`
	Session SessionConfig `yaml:"session" json:"session"`

	// ICS lists read-only calendar subscription URLs used instead of
	// Google Calendar when set. Mutating tools report the source as
	// read-only.
	ICS []string `yaml:"ics" json:"ics"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:       ":8080",
		Timezone:     "Asia/Kolkata",
		WorkDayStart: "09:00",
		WorkDayEnd:   "17:00",
		LLM: LLMConfig{
			BaseURL: "https://api.groq.com/openai/v1",
			Model:   "openai/gpt-oss-20b",
		},
		Session: SessionConfig{
			TTLMinutes: 60,
		},
		ICS: []string{},
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	if c.WorkDayStart == "" {
		c.WorkDayStart = def.WorkDayStart
	}
	if c.WorkDayEnd == "" {
		c.WorkDayEnd = def.WorkDayEnd
	}
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = def.LLM.BaseURL
	}
	if c.LLM.Model == "" {
		c.LLM.Model = def.LLM.Model
	}
	if c.Session.TTLMinutes <= 0 {
		c.Session.TTLMinutes = def.Session.TTLMinutes
	}
	if c.ICS == nil {
		c.ICS = []string{}
	}
}

// Load loads configuration from the given YAML path. A missing file gets
// created with defaults and 0600 permissions on first run.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the configuration atomically via a temp file + rename,
// keeping 0600 permissions since the file can hold credentials.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".slotwise-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}
