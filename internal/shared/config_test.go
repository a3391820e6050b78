package shared

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "none", cfg.CloudBackend)
	assert.Equal(t, 15*time.Minute, cfg.CacheTTL)
	assert.Equal(t, "historico_reviews.csv", cfg.LocalReviewsPath)
	assert.True(t, cfg.ChromeHeadless)
	assert.Empty(t, cfg.ScrapeCron)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("CLOUD_BACKEND", "postgres")
	t.Setenv("CACHE_TTL", "90s")
	t.Setenv("SCRAPE_CRON", "0 6 * * *")
	t.Setenv("CHROME_HEADLESS", "false")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.CloudBackend)
	assert.Equal(t, 90*time.Second, cfg.CacheTTL)
	assert.Equal(t, "0 6 * * *", cfg.ScrapeCron)
	assert.False(t, cfg.ChromeHeadless)
}

func TestLoad_RejectsUnknownBackend(t *testing.T) {
	t.Setenv("CLOUD_BACKEND", "excel")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_RejectsBadDuration(t *testing.T) {
	t.Setenv("CACHE_TTL", "soon")
	_, err := Load()
	assert.Error(t, err)
}
