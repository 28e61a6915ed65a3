package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"feed_aggregator/internal/config"

	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	err := os.WriteFile(path, []byte(content), 0o644)
	require.NoError(t, err)
	return path
}

func intPtr(v int) *int { return &v }

func TestLoadConfig_JSON(t *testing.T) {
	json := `{
		"sources": [
			{"url": "https://example.com/rss", "name": "Example"},
			{"url": "http://foo.bar/feed"}
		],
		"poll_interval": 10,
		"fetch_timeout": 3,
		"max_retries": 0
	}`
	path := writeTempConfig(t, "config.json", json)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, []config.Source{
		{URL: "https://example.com/rss", Name: "Example"},
		{URL: "http://foo.bar/feed"},
	}, cfg.Sources)
	require.Equal(t, 10*time.Second, cfg.PollIntervalDuration())
	require.Equal(t, 3*time.Second, cfg.FetchTimeoutDuration())
	require.Equal(t, 0, cfg.Retries())
	require.Equal(t, config.DefaultListenAddr, cfg.ListenAddr)
}

func TestLoadConfig_YAMLWithEnv(t *testing.T) {
	t.Setenv("FEED_HOST", "news.example.org")
	yaml := `
sources:
  - url: https://${FEED_HOST}/feed
    name: News
dedupe: true
insights:
  - title: Leveraged Buyout of ABC Corp
    keywords: [buyout, lbo]
    entities: [ABC Corp, Blackstone]
`
	path := writeTempConfig(t, "config.yaml", yaml)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "https://news.example.org/feed", cfg.Sources[0].URL)
	require.True(t, cfg.Dedupe)
	require.Len(t, cfg.Insights, 1)
	require.Equal(t, []string{"buyout", "lbo"}, cfg.Insights[0].Keywords)
	require.Equal(t, config.DefaultFetchTimeout, cfg.FetchTimeout)
	require.Equal(t, config.DefaultMaxRetries, cfg.Retries())
}

func TestLoadConfig_TOML(t *testing.T) {
	toml := `
poll_interval = 60
listen_addr = ":9090"

[[sources]]
url = "https://example.com/atom.xml"
name = "Atom"
`
	path := writeTempConfig(t, "config.toml", toml)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.ListenAddr)
	require.Equal(t, 60, cfg.PollInterval)
	require.Equal(t, "Atom", cfg.Sources[0].Name)
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	_, err := config.LoadConfig("/nonexistent/config.json")
	require.Error(t, err)
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	_, err := config.LoadConfig("")
	require.Error(t, err)
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	path := writeTempConfig(t, "config.json", `{ invalid json }`)
	_, err := config.LoadConfig(path)
	require.Error(t, err)
}

func TestValidate_Success(t *testing.T) {
	cfg := &config.Config{
		Sources:      []config.Source{{URL: "https://example.com/rss"}, {URL: "http://foo.bar/feed"}},
		PollInterval: 5,
		FetchTimeout: 1,
	}
	require.NoError(t, cfg.Validate())
}

func TestValidate_DatabaseOnly(t *testing.T) {
	cfg := &config.Config{
		DatabaseURL:  "postgres://localhost/feeds",
		PollInterval: 5,
		FetchTimeout: 1,
	}
	require.NoError(t, cfg.Validate())
}

func TestValidate_InvalidInterval(t *testing.T) {
	cfg := &config.Config{
		Sources:      []config.Source{{URL: "https://example.com/rss"}},
		PollInterval: 1,
		FetchTimeout: 1,
	}
	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "poll interval must be ≥ 5")
}

func TestValidate_InvalidURL(t *testing.T) {
	cfg := &config.Config{
		Sources:      []config.Source{{URL: "not-a-url"}, {URL: "http://foo.bar/feed"}},
		PollInterval: 5,
		FetchTimeout: 1,
	}
	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid RSS URL")
}

func TestValidate_NegativeRetries(t *testing.T) {
	cfg := &config.Config{
		Sources:      []config.Source{{URL: "https://example.com/rss"}},
		PollInterval: 5,
		FetchTimeout: 1,
		MaxRetries:   intPtr(-1),
	}
	require.Error(t, cfg.Validate())
}

func TestValidate_NoSources(t *testing.T) {
	cfg := &config.Config{PollInterval: 5, FetchTimeout: 1}
	require.Error(t, cfg.Validate())
}

func TestLoadConfig_KeepsBareDollar(t *testing.T) {
	t.Setenv("FEED_TOKEN", "secret")
	t.Setenv("top", "replaced")
	json := `{"sources": [{"url": "https://example.com/search?q=$top&key=${FEED_TOKEN}&p=$"}]}`
	path := writeTempConfig(t, "config.json", json)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "https://example.com/search?q=$top&key=secret&p=$", cfg.Sources[0].URL)
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("HOST_NAME", "news.example.org")
	require.Equal(t, "https://news.example.org/$x/${}", string(config.ExpandEnv([]byte("https://${HOST_NAME}/$x/${}"))))
	require.Equal(t, "a--b", string(config.ExpandEnv([]byte("a-${UNSET_VARIABLE_FOR_TEST}-b"))))
}
