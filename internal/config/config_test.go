package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/totegamma/officechat/internal/domain"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  redisAddr: localhost:6379
users:
  - id: u_admin
    displayName: Admin
    role: admin
  - id: u_bob
`)

	conf, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":3000", conf.Server.Listen)
	assert.Equal(t, "data/db.json", conf.Server.DataPath)
	assert.Equal(t, "officechat:events", conf.Server.RedisChannel)
	assert.Equal(t, domain.RequesterIdHeader, conf.Server.IdentityHeader)
	assert.Equal(t, time.Minute, conf.Directory.CacheTTL)
	require.Len(t, conf.Users, 2)
	assert.Equal(t, domain.RoleAdmin, conf.Users[0].Role)
}

func TestLoadRequiresIdentitySource(t *testing.T) {
	_, err := Load(writeConfig(t, "server:\n  listen: \":8080\"\n"))
	assert.Error(t, err)

	conf, err := Load(writeConfig(t, "directory:\n  url: http://users.internal\n"))
	require.NoError(t, err)
	assert.Equal(t, "http://users.internal", conf.Directory.URL)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
