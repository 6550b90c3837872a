package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/pohoda-xml/internal/config"
	"github.com/rezonia/pohoda-xml/internal/model"
)

func TestFromMap(t *testing.T) {
	s, err := config.FromMap(map[string]string{
		config.KeyBankID:      " 2 ",
		config.KeyAccountNo:   "123456789",
		config.KeyBankCode:    "0100",
		config.KeyConstSymbol: "0308",
		config.KeyStoreID:     "SKLAD",
		config.KeyFeedURL:     "https://shop.example.com/export/products.xml",
		config.KeyHash:        "abc",
		config.KeyEURRate:     "25.20",
	})
	require.NoError(t, err)

	assert.Equal(t, "2", s.BankID)
	assert.Equal(t, "0100", s.BankCode)
	assert.True(t, s.EURRate.Equal(decimal.RequireFromString("25.2")))
	assert.True(t, s.HasBank())
	assert.True(t, s.HasStore())
	assert.True(t, s.HasEURRate())
}

func TestFromMap_Empty(t *testing.T) {
	s, err := config.FromMap(map[string]string{})
	require.NoError(t, err)

	assert.False(t, s.HasBank())
	assert.False(t, s.HasStore())
	assert.False(t, s.HasEURRate())
	assert.Len(t, s.ToMap(), len(config.Keys))
}

func TestFromMap_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]string
		field  string
		rule   string
	}{
		{"rate not a number", map[string]string{config.KeyEURRate: "abc"}, config.KeyEURRate, "decimal"},
		{"rate zero", map[string]string{config.KeyEURRate: "0"}, config.KeyEURRate, "positive"},
		{"rate negative", map[string]string{config.KeyEURRate: "-25"}, config.KeyEURRate, "positive"},
		{"feed ftp", map[string]string{config.KeyFeedURL: "ftp://example.com/feed"}, config.KeyFeedURL, "http_url"},
		{"feed relative", map[string]string{config.KeyFeedURL: "/feed.xml"}, config.KeyFeedURL, "http_url"},
		{"unknown code", map[string]string{"vat_id": "CZ1"}, "settings", "known_keys"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.FromMap(tt.values)
			var vErr *model.ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Equal(t, tt.field, vErr.Field)
			assert.Equal(t, tt.rule, vErr.Rule)
		})
	}
}

func TestToMap(t *testing.T) {
	s, err := config.FromMap(map[string]string{
		config.KeyStoreID: "MAIN",
		config.KeyEURRate: "24.5",
	})
	require.NoError(t, err)

	m := s.ToMap()
	assert.Equal(t, "MAIN", m[config.KeyStoreID])
	assert.Equal(t, "24.5", m[config.KeyEURRate])
	assert.Equal(t, "", m[config.KeyBankID])
}

func TestLoadSettingsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	content := `bank_id: "2"
account_no: "2900000000"
bank_code: "2010"
store_id: SKLAD
eur_rate: 25.1
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	s, err := config.LoadSettingsFile(path)
	require.NoError(t, err)
	assert.Equal(t, "2", s.BankID)
	assert.Equal(t, "2010", s.BankCode)
	assert.Equal(t, "SKLAD", s.StoreID)
	assert.True(t, s.EURRate.Equal(decimal.RequireFromString("25.1")))
}

func TestLoadSettingsFile_Errors(t *testing.T) {
	_, err := config.LoadSettingsFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- just\n- a list\n"), 0o600))
	_, err = config.LoadSettingsFile(path)
	require.Error(t, err)
}

func TestLoad(t *testing.T) {
	t.Setenv("ADDRESS", ":9090")
	t.Setenv("DATABASE_PATH", "/tmp/settings.db")
	t.Setenv("FEED_TIMEOUT", "5s")
	t.Setenv("MAX_UPLOAD_SIZE_BYTES", "1024")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("RATE_LIMIT_BURST", "3")
	t.Setenv("DEBUG", "true")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Address)
	assert.Equal(t, "/tmp/settings.db", cfg.DatabasePath)
	assert.Equal(t, 5*time.Second, cfg.FeedTimeout)
	assert.Equal(t, int64(1024), cfg.MaxUploadSizeBytes)
	assert.Equal(t, 2.5, cfg.RateLimitRPS)
	assert.Equal(t, 3, cfg.RateLimitBurst)
	assert.True(t, cfg.Debug)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"FEED_TIMEOUT", "soon"},
		{"FEED_TIMEOUT", "-1s"},
		{"MAX_UPLOAD_SIZE_BYTES", "ten"},
		{"RATE_LIMIT_RPS", "fast"},
		{"RATE_LIMIT_BURST", "1.5"},
		{"DEBUG", "maybe"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := config.Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid "+tt.key)
		})
	}
}
