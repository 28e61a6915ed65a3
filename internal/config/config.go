package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const (
	DefaultFetchTimeout = 10
	DefaultMaxRetries   = 2
	DefaultPollInterval = 300
	DefaultListenAddr   = ":8080"
)

// Source — одна лента в конфигурации.
type Source struct {
	URL  string `json:"url" yaml:"url" toml:"url"`
	Name string `json:"name" yaml:"name" toml:"name"`
}

// Insight описывает карточку «связанной аналитики» и ключевые слова, по которым она подбирается.
type Insight struct {
	Title    string   `json:"title" yaml:"title" toml:"title"`
	Label    string   `json:"label" yaml:"label" toml:"label"`
	Keywords []string `json:"keywords" yaml:"keywords" toml:"keywords"`
	Entities []string `json:"entities" yaml:"entities" toml:"entities"`
}

// Config хранит список лент, бюджеты загрузки и настройки HTTP-сервера.
// Все интервалы задаются в секундах.
type Config struct {
	Sources      []Source  `json:"sources" yaml:"sources" toml:"sources"`
	FetchTimeout int       `json:"fetch_timeout" yaml:"fetch_timeout" toml:"fetch_timeout"`
	MaxRetries   *int      `json:"max_retries" yaml:"max_retries" toml:"max_retries"`
	PollInterval int       `json:"poll_interval" yaml:"poll_interval" toml:"poll_interval"`
	ListenAddr   string    `json:"listen_addr" yaml:"listen_addr" toml:"listen_addr"`
	DatabaseURL  string    `json:"database_url" yaml:"database_url" toml:"database_url"`
	LogLevel     string    `json:"log_level" yaml:"log_level" toml:"log_level"`
	Dedupe       bool      `json:"dedupe" yaml:"dedupe" toml:"dedupe"`
	Insights     []Insight `json:"insights" yaml:"insights" toml:"insights"`
}

// Validate проверяет, что PollInterval не меньше 5 секунд, все URL источников валидны
// и источники вообще откуда-то берутся: из списка или из базы.
func (cfg *Config) Validate() error {
	if cfg.PollInterval < 5 {
		return errors.New("poll interval must be ≥ 5 seconds")
	}
	if cfg.FetchTimeout <= 0 {
		return errors.New("fetch timeout must be positive")
	}
	if cfg.MaxRetries != nil && *cfg.MaxRetries < 0 {
		return errors.New("max retries must not be negative")
	}
	if len(cfg.Sources) == 0 && cfg.DatabaseURL == "" {
		return errors.New("no sources configured and no database_url to load them from")
	}
	for _, s := range cfg.Sources {
		if err := ValidateURL(s.URL); err != nil {
			return err
		}
	}
	return nil
}

// ValidateURL допускает только абсолютные http(s) URL.
func ValidateURL(raw string) error {
	u, err := url.ParseRequestURI(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("invalid RSS URL: %s", raw)
	}
	return nil
}

func (cfg *Config) FetchTimeoutDuration() time.Duration {
	return time.Duration(cfg.FetchTimeout) * time.Second
}

func (cfg *Config) PollIntervalDuration() time.Duration {
	return time.Duration(cfg.PollInterval) * time.Second
}

// Retries возвращает число повторов загрузки с учётом значения по умолчанию.
func (cfg *Config) Retries() int {
	if cfg.MaxRetries == nil {
		return DefaultMaxRetries
	}
	return *cfg.MaxRetries
}

func (cfg *Config) applyDefaults() {
	if cfg.FetchTimeout == 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = DefaultListenAddr
	}
}

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// ExpandEnv подставляет только ссылки вида ${VAR}. Одиночный $ остаётся как есть,
// чтобы не портить URL вроде ?q=$top.
func ExpandEnv(raw []byte) []byte {
	return envRef.ReplaceAllFunc(raw, func(ref []byte) []byte {
		return []byte(os.Getenv(string(ref[2 : len(ref)-1])))
	})
}

// LoadConfig читает файл по пути path, подставляет переменные окружения
// вида ${VAR} и декодирует его в Config. Формат выбирается по расширению: .yaml/.yml, .toml, иначе JSON.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	expanded := ExpandEnv(raw)

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(expanded, &cfg)
	case ".toml":
		err = toml.Unmarshal(expanded, &cfg)
	default:
		err = json.Unmarshal(expanded, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}
