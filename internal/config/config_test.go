package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	d, err := ParseClock("09:00")
	require.NoError(t, err)
	assert.Equal(t, 9*time.Hour, d)

	d, err = ParseClock(" 07:45 ")
	require.NoError(t, err)
	assert.Equal(t, 7*time.Hour+45*time.Minute, d)

	_, err = ParseClock("9am")
	assert.Error(t, err)
}

func setRequired(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("APP_PORT", "8080")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("ACCESS_TOKEN_TTL_MIN", "15")
	t.Setenv("REFRESH_TOKEN_TTL_DAYS", "7")
	t.Setenv("BCRYPT_COST", "4")
}

func TestLoadSQLiteDefaults(t *testing.T) {
	setRequired(t)
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PATH", "/tmp/x.db")

	c := Load()
	assert.Equal(t, "sqlite", c.DB.Driver)
	assert.Equal(t, "/tmp/x.db", c.DB.Path)
	assert.Equal(t, 9*time.Hour, c.WorkdayStart)
	assert.Equal(t, int64(25<<20), c.UploadMaxBytes)
	assert.Equal(t, 15*time.Minute, c.UploadHandleTTL)
	assert.Equal(t, "uploads", c.StorageDir)
	assert.True(t, c.EventsEnabled)
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("WORKDAY_START", "08:30")
	t.Setenv("UPLOAD_MAX_MB", "2")
	t.Setenv("EVENTS_ENABLED", "off")

	c := Load()
	assert.Equal(t, 8*time.Hour+30*time.Minute, c.WorkdayStart)
	assert.Equal(t, int64(2<<20), c.UploadMaxBytes)
	assert.False(t, c.EventsEnabled)
}

func TestRateLimitConfigClamps(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	c := LoadRateLimitConfig()
	assert.Equal(t, 1, c.Capacity)
	assert.Equal(t, 10*time.Second, c.TTL)
}

func TestCacheConfigPaths(t *testing.T) {
	t.Setenv("CACHE_PATHS", "/a, /b ,")
	t.Setenv("CACHE_METHODS", "get,head")

	c := LoadCacheConfig()
	assert.Equal(t, []string{"/a", "/b"}, c.Paths)
	assert.True(t, c.Methods["GET"])
	assert.True(t, c.Methods["HEAD"])
}
