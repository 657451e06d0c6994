package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultEnablement(t *testing.T) {
	cfg := DefaultEnablement()

	assert.True(t, cfg.Enabled("ruby"))
	assert.True(t, cfg.Enabled("RUBY"))
	assert.True(t, cfg.Enabled("java_script"))
	assert.False(t, cfg.Enabled("python"))
	assert.False(t, cfg.Enabled("fortran"))
}

func TestParseEnablementMergesOverrides(t *testing.T) {
	data := []byte(`
ruby:
  enabled: false
java_script:
  enabled: true
  ignore_file: .jshintignore
coffee_script: false
python:
  max_line_length: 100
elixir:
go:
`)

	cfg, err := ParseEnablement(data, DefaultEnablement())
	require.NoError(t, err)

	assert.False(t, cfg.Enabled("ruby"))
	assert.True(t, cfg.Enabled("javascript"))
	assert.Equal(t, ".jshintignore", cfg.Options("javascript")["ignore_file"])
	assert.False(t, cfg.Enabled("coffeescript"))
	assert.False(t, cfg.Enabled("python"), "options alone keep the default")
	assert.Equal(t, 100, cfg.Options("python")["max_line_length"])
	assert.True(t, cfg.Enabled("elixir"), "unknown sections enable the language")
	assert.True(t, cfg.Enabled("go"))
}

func TestParseEnablementLeavesBaseUntouched(t *testing.T) {
	base := DefaultEnablement()

	_, err := ParseEnablement([]byte("ruby: false\n"), base)
	require.NoError(t, err)

	assert.True(t, base.Enabled("ruby"))
}

func TestParseEnablementEmptyDocument(t *testing.T) {
	cfg, err := ParseEnablement(nil, DefaultEnablement())
	require.NoError(t, err)
	assert.Equal(t, DefaultEnablement(), cfg)
}

func TestParseEnablementErrors(t *testing.T) {
	cases := map[string]string{
		"invalid yaml":        "ruby: [",
		"non boolean scalar":  "ruby: sometimes\n",
		"non boolean enabled": "ruby:\n  enabled: maybe\n",
		"sequence value":      "ruby:\n  - a\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseEnablement([]byte(doc), DefaultEnablement())
			assert.Error(t, err)
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("DB_DSN", "")
	t.Setenv("REVIEW_WORKERS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 8, cfg.Review.Workers)
	assert.Equal(t, 30*time.Second, cfg.Review.CheckTimeout)
	assert.Equal(t, 10*time.Minute, cfg.Review.RunTimeout)
	assert.Equal(t, ".hound.yml", cfg.Review.StyleFile)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("REVIEW_WORKERS", "3")
	t.Setenv("FETCH_TIMEOUT", "2s")
	t.Setenv("REVIEW_TIMEOUT", "90s")
	t.Setenv("DB_DRIVER", "sqlite3")
	t.Setenv("DB_DSN", "file:reviews.db")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 3, cfg.Review.Workers)
	assert.Equal(t, 2*time.Second, cfg.Review.FetchTimeout)
	assert.Equal(t, 90*time.Second, cfg.Review.RunTimeout)
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("PORT", "70000")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("PORT", "8080")
	t.Setenv("DB_DRIVER", "mysql")
	t.Setenv("DB_DSN", "user@/db")
	_, err = Load()
	assert.Error(t, err)
}
