package app

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"picoauth/internal/protocol/continuous"
	"picoauth/internal/services/prover"
	"picoauth/internal/services/verifier"
	"picoauth/internal/store"
	"picoauth/internal/util/logging"
)

// Environment variables read by LoadConfig.
const (
	EnvHome       = "PICOAUTH_HOME"
	EnvListen     = "PICOAUTH_LISTEN"
	EnvLogEnv     = "PICOAUTH_ENV"
	EnvLogPath    = "PICOAUTH_LOG_PATH"
	EnvPassphrase = "PICOAUTH_PASSPHRASE"
)

const (
	configFile = "config.toml"
	envFile    = ".env"
	dbDir      = "pairings.db"

	// DefaultListen is where the verifier listens unless configured.
	DefaultListen = "127.0.0.1:7400"
)

// Duration is a time.Duration written as a string ("10s") in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText parses a duration such as "1m30s".
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText writes the duration in time.Duration's String form.
func (d Duration) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// VerifierConfig is the [verifier] section.
type VerifierConfig struct {
	Listen           string   `toml:"listen"`
	AllowContinuous  bool     `toml:"allow_continuous"`
	ActiveTimeout    Duration `toml:"active_timeout"`
	PausedTimeout    Duration `toml:"paused_timeout"`
	Leeway           Duration `toml:"leeway"`
	HandshakeTimeout Duration `toml:"handshake_timeout"`
}

// IdentityConfig is the [identity] section.
type IdentityConfig struct {
	// KDF stretches the passphrase for new identity files: "scrypt" or
	// "argon2id".
	KDF string `toml:"kdf"`
}

// ProverConfig is the [prover] section.
type ProverConfig struct {
	DialTimeout Duration `toml:"dial_timeout"`
}

// Config holds runtime wiring options for building the app.
type Config struct {
	// Home is the state directory, e.g. $HOME/.picoauth. It is not stored
	// in the file.
	Home string `toml:"-"`
	// Passphrase comes from the environment only.
	Passphrase string `toml:"-"`

	Logger   logging.LoggerConfig `toml:"logger"`
	Identity IdentityConfig       `toml:"identity"`
	Verifier VerifierConfig       `toml:"verifier"`
	Prover   ProverConfig         `toml:"prover"`
}

// DefaultConfig returns the settings used when home has no config file.
func DefaultConfig(home string) Config {
	return Config{
		Home:     home,
		Logger:   logging.DefaultLoggerConfig(),
		Identity: IdentityConfig{KDF: store.KDFScrypt},
		Verifier: VerifierConfig{
			Listen:           DefaultListen,
			AllowContinuous:  true,
			ActiveTimeout:    Duration{continuous.ActiveTimeout},
			PausedTimeout:    Duration{continuous.PausedTimeout},
			Leeway:           Duration{continuous.VerifierLeeway},
			HandshakeTimeout: Duration{verifier.DefaultHandshakeTimeout},
		},
		Prover: ProverConfig{
			DialTimeout: Duration{prover.DefaultDialTimeout},
		},
	}
}

// DefaultHome returns $PICOAUTH_HOME, or ~/.picoauth.
func DefaultHome() (string, error) {
	if h := os.Getenv(EnvHome); h != "" {
		return h, nil
	}
	dir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ".picoauth"), nil
}

// ConfigPath returns the config file location inside home.
func ConfigPath(home string) string { return filepath.Join(home, configFile) }

// LoadConfig reads the configuration for home, or DefaultHome if home is
// empty. A missing config file yields the defaults. Variables from
// <home>/.env are loaded without overriding the real environment, then the
// PICOAUTH_* overrides are applied.
func LoadConfig(home string) (Config, error) {
	if home == "" {
		h, err := DefaultHome()
		if err != nil {
			return Config{}, err
		}
		home = h
	}
	if err := godotenv.Load(filepath.Join(home, envFile)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", envFile, err)
	}

	conf := DefaultConfig(home)
	if _, err := toml.DecodeFile(ConfigPath(home), &conf); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	conf.Home = home

	conf.Verifier.Listen = envOrDefault(EnvListen, conf.Verifier.Listen)
	conf.Logger.Environment = envOrDefault(EnvLogEnv, conf.Logger.Environment)
	conf.Logger.Path = envOrDefault(EnvLogPath, conf.Logger.Path)
	conf.Passphrase = os.Getenv(EnvPassphrase)
	return conf, nil
}

// SaveConfig writes conf to <home>/config.toml.
func SaveConfig(conf Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(conf); err != nil {
		return err
	}
	if err := os.MkdirAll(conf.Home, 0o700); err != nil {
		return err
	}
	return os.WriteFile(ConfigPath(conf.Home), buf.Bytes(), 0o600)
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
