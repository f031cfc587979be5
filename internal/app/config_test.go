package app_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-test/deep"
	"github.com/stretchr/testify/require"

	"picoauth/internal/app"
)

func TestLoadConfig_Defaults(t *testing.T) {
	home := t.TempDir()
	for _, k := range []string{app.EnvListen, app.EnvLogEnv, app.EnvLogPath, app.EnvPassphrase} {
		t.Setenv(k, "")
	}

	conf, err := app.LoadConfig(home)
	require.NoError(t, err)
	if diff := deep.Equal(conf, app.DefaultConfig(home)); diff != nil {
		t.Fatalf("defaults differ: %v", diff)
	}
}

func TestConfig_SaveLoad(t *testing.T) {
	home := t.TempDir()
	for _, k := range []string{app.EnvListen, app.EnvLogEnv, app.EnvLogPath} {
		t.Setenv(k, "")
	}

	conf := app.DefaultConfig(home)
	conf.Verifier.Listen = "0.0.0.0:9000"
	conf.Verifier.AllowContinuous = false
	conf.Verifier.ActiveTimeout = app.Duration{Duration: 3 * time.Second}
	conf.Logger.Environment = "development"
	conf.Identity.KDF = "argon2id"
	conf.Passphrase = "not written"
	require.NoError(t, app.SaveConfig(conf))

	raw, err := os.ReadFile(app.ConfigPath(home))
	require.NoError(t, err)
	require.Contains(t, string(raw), `active_timeout = "3s"`)
	require.Contains(t, string(raw), `kdf = "argon2id"`)
	require.NotContains(t, string(raw), "not written")

	got, err := app.LoadConfig(home)
	require.NoError(t, err)
	conf.Passphrase = got.Passphrase
	if diff := deep.Equal(got, conf); diff != nil {
		t.Fatalf("round trip differs: %v", diff)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	home := t.TempDir()
	t.Setenv(app.EnvListen, "127.0.0.1:1234")
	// .env never overrides variables that are already set, even to "".
	for _, k := range []string{app.EnvPassphrase, app.EnvLogEnv} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}

	dotenv := app.EnvPassphrase + "=from-dotenv\n" + app.EnvLogEnv + "=development\n"
	require.NoError(t, os.WriteFile(filepath.Join(home, ".env"), []byte(dotenv), 0o600))

	conf, err := app.LoadConfig(home)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:1234", conf.Verifier.Listen)
	require.Equal(t, "from-dotenv", conf.Passphrase)
	require.Equal(t, "development", conf.Logger.Environment)
}

func TestLoadConfig_BadFile(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, os.WriteFile(app.ConfigPath(home), []byte("[verifier\n"), 0o600))

	_, err := app.LoadConfig(home)
	require.Error(t, err)
}
