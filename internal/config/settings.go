package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

const (
	RemoteREST        = "rest"
	RemoteGoogleTasks = "googletasks"
)

// Settings are read from config.yml, then overridden by the environment.
type Settings struct {
	Env      string `yaml:"env" env:"ENV" env-default:"local" env-description:"Environment: local, dev or prod"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info" env-description:"Log level for serve and sync"`
	DBPath   string `yaml:"db_path" env:"DB_PATH" env-description:"SQLite database path (default <config dir>/todosync.db)"`

	Remote RemoteSettings `yaml:"remote"`
	Sync   SyncSettings   `yaml:"sync"`
	Retry  RetrySettings  `yaml:"retry"`
	HTTP   HTTPSettings   `yaml:"http"`
}

type RemoteSettings struct {
	Kind         string        `yaml:"kind" env:"REMOTE_KIND" env-default:"rest" env-description:"Remote backend: rest or googletasks"`
	BaseURL      string        `yaml:"base_url" env:"REMOTE_BASE_URL" env-description:"Base URL of the REST todo API"`
	Timeout      time.Duration `yaml:"timeout" env:"REMOTE_TIMEOUT" env-default:"10s" env-description:"Timeout of a single remote call"`
	ClientID     string        `yaml:"client_id" env:"REMOTE_CLIENT_ID" env-description:"OAuth2 client id for the REST API"`
	ClientSecret string        `yaml:"client_secret" env:"REMOTE_CLIENT_SECRET" env-description:"OAuth2 client secret for the REST API"`
	TokenURL     string        `yaml:"token_url" env:"REMOTE_TOKEN_URL" env-description:"OAuth2 token endpoint for the REST API"`
}

type SyncSettings struct {
	Interval   string `yaml:"interval" env:"SYNC_INTERVAL" env-default:"5m" env-description:"Pass schedule: a duration (5m) or a cron spec (@every 30s)"`
	RunOnStart bool   `yaml:"run_on_start" env:"SYNC_RUN_ON_START" env-default:"true" env-description:"Run a pass as soon as serve starts"`
}

type RetrySettings struct {
	Attempts  uint          `yaml:"attempts" env:"RETRY_ATTEMPTS" env-default:"3" env-description:"Attempts per remote call, first one included"`
	BaseDelay time.Duration `yaml:"base_delay" env:"RETRY_BASE_DELAY" env-default:"1s" env-description:"Delay before the first retry; doubles after each"`
}

type HTTPSettings struct {
	Addr                 string        `yaml:"addr" env:"HTTP_ADDR" env-default:"127.0.0.1:8080" env-description:"Listen address of serve"`
	ShutdownTimeout      time.Duration `yaml:"shutdown_timeout" env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"5s" env-description:"Graceful shutdown timeout"`
	CompleteAllStepDelay time.Duration `yaml:"complete_all_step_delay" env:"COMPLETE_ALL_STEP_DELAY" env-default:"1s" env-description:"Pause between items of complete-all"`
}

// LoadSettings loads .env files (config dir first, then the working
// directory), then config.yml if present, then the environment.
// Variables already set in the environment are never overridden by .env.
func (c *Config) LoadSettings() error {
	for _, path := range []string{filepath.Join(c.Dir, EnvFile), EnvFile} {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}

	var s Settings
	var err error
	if fileExists(c.SettingsPath()) {
		err = cleanenv.ReadConfig(c.SettingsPath(), &s)
	} else {
		err = cleanenv.ReadEnv(&s)
	}
	if err != nil {
		return fmt.Errorf("failed to read settings: %w", err)
	}

	if err := s.Validate(); err != nil {
		return err
	}
	c.Settings = s
	return nil
}

// Validate checks values cleanenv cannot.
func (s *Settings) Validate() error {
	switch s.Env {
	case EnvLocal, EnvDev, EnvProd:
	default:
		return fmt.Errorf("unknown env %q (want local, dev or prod)", s.Env)
	}
	switch s.Remote.Kind {
	case RemoteREST, RemoteGoogleTasks:
	default:
		return fmt.Errorf("unknown remote kind %q (want rest or googletasks)", s.Remote.Kind)
	}
	if s.Retry.Attempts == 0 {
		return errors.New("retry attempts must be at least 1")
	}
	return nil
}

// Describe returns the list of supported environment variables.
func Describe() (string, error) {
	return cleanenv.GetDescription(&Settings{}, nil)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
