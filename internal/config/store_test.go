package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempYAML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaults(t *testing.T) {
	c := Defaults()
	assert.Equal(t, ":14392", c.ListenAddr)
	assert.Equal(t, "file", c.Storage.Driver)
	assert.Equal(t, "bcrypt", c.Auth.PasswordScheme)
	assert.Equal(t, "yes", c.Auth.AcceptedAffiliation)
	assert.Equal(t, 6, c.Auth.MinPasswordLength)
	assert.Equal(t, 2*time.Second, c.Auth.RedirectDelay)
	assert.Equal(t, 5*time.Second, c.Auth.MessageTimeout)
	assert.NoError(t, c.Validate())
}

func TestLoadMissingFileKeepsDefaults(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	c, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), c)
}

func TestLoadYAMLOverlay(t *testing.T) {
	path := writeTempYAML(t, `
listen_addr: "127.0.0.1:9000"
data_dir: /tmp/dg
storage:
  driver: sqlite
session:
  secret: s3cret
  cookie_secure: true
auth:
  redirect_delay: 3s
  min_password_length: 8
`)
	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", c.ListenAddr)
	assert.Equal(t, "sqlite", c.Storage.Driver)
	assert.Equal(t, "/tmp/dg/dharmagate.db", c.SQLitePath())
	assert.Equal(t, "s3cret", c.Session.Secret)
	assert.True(t, c.Session.CookieSecure)
	assert.Equal(t, 3*time.Second, c.Auth.RedirectDelay)
	assert.Equal(t, 8, c.Auth.MinPasswordLength)
	// untouched keys keep their defaults
	assert.Equal(t, "yes", c.Auth.AcceptedAffiliation)
	assert.Equal(t, 5*time.Second, c.Auth.MessageTimeout)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeTempYAML(t, "listen_addr: \":1\"\nstorage:\n  driver: memory\n")
	t.Setenv("DHARMAGATE_LISTEN", ":2")
	t.Setenv("DHARMAGATE_STORAGE_DRIVER", "redis")
	t.Setenv("DHARMAGATE_STORAGE_REDIS_ADDR", "localhost:6379")
	t.Setenv("DHARMAGATE_AUTH_MESSAGE_TIMEOUT", "7s")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":2", c.ListenAddr)
	assert.Equal(t, "redis", c.Storage.Driver)
	assert.Equal(t, "localhost:6379", c.Storage.RedisAddr)
	assert.Equal(t, 7*time.Second, c.Auth.MessageTimeout)
}

func TestLoadFromEnvPath(t *testing.T) {
	path := writeTempYAML(t, "log_level: debug\n")
	t.Setenv(EnvConfigPath, path)

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "debug", c.LogLevel)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(writeTempYAML(t, "listen_addr: [unclosed"))
	assert.Error(t, err)

	_, err = Load(writeTempYAML(t, "storage:\n  driver: etcd\n"))
	assert.Error(t, err)

	_, err = Load(writeTempYAML(t, "storage:\n  driver: redis\n"))
	assert.Error(t, err)

	t.Setenv("DHARMAGATE_AUTH_BCRYPT_COST", "lots")
	_, err = Load(writeTempYAML(t, ""))
	assert.Error(t, err)
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "etc", "config.yaml")
	require.NoError(t, WriteDefault(path))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Defaults(), c)

	require.NoError(t, os.WriteFile(path, []byte("log_level: warn\n"), 0o600))
	require.NoError(t, WriteDefault(path))
	c, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", c.LogLevel)
}
