package config

import (
    "errors"
    "fmt"
    "net"
    "os"
    "strings"
    "time"

    "gopkg.in/yaml.v3"
)

type Server struct {
    Host string `yaml:"host"`
    Port string `yaml:"port"`
}

// Addr is the listener address, e.g. 127.0.0.1:5050.
func (s Server) Addr() string { return net.JoinHostPort(s.Host, s.Port) }

type Upstream struct {
    Name           string `yaml:"name"`
    BaseURL        string `yaml:"base_url"`
    TimeoutSec     int    `yaml:"timeout_sec"`
    DefaultConvert string `yaml:"default_convert"`
}

func (u Upstream) Timeout() time.Duration { return time.Duration(u.TimeoutSec) * time.Second }

type Credentials struct {
    // File is the INI fallback read when CMC_API_KEY is not set.
    File string `yaml:"file"`
}

type Log struct {
    Level  string `yaml:"level"`
    Format string `yaml:"format"`
}

type Metrics struct {
    // Addr of the admin listener serving /metrics and /healthz. Empty disables it.
    Addr string `yaml:"addr"`
}

type Breaker struct {
    Enabled        bool `yaml:"enabled"`
    Failures       int  `yaml:"failures"`
    OpenTimeoutSec int  `yaml:"open_timeout_sec"`
}

func (b Breaker) OpenTimeout() time.Duration { return time.Duration(b.OpenTimeoutSec) * time.Second }

type Config struct {
    Server      Server      `yaml:"server"`
    Upstream    Upstream    `yaml:"upstream"`
    Credentials Credentials `yaml:"credentials"`
    Log         Log         `yaml:"log"`
    Metrics     Metrics     `yaml:"metrics"`
    Breaker     Breaker     `yaml:"breaker"`
}

func Default() Config {
    return Config{
        Server: Server{Host: "127.0.0.1", Port: "5050"},
        Upstream: Upstream{
            Name:           "CoinMarketCap",
            BaseURL:        "https://pro-api.coinmarketcap.com",
            TimeoutSec:     10,
            DefaultConvert: "USD",
        },
        Credentials: Credentials{File: "coinmarket.ini"},
        Log:         Log{Level: "info", Format: "json"},
        Breaker:     Breaker{Enabled: false, Failures: 5, OpenTimeoutSec: 30},
    }
}

// Load reads a YAML (or JSON) config from path. If path is empty it falls back
// to config.yaml in the working directory, and to defaults when that is absent.
// Environment variables override select fields afterwards.
func Load(path string) (Config, error) {
    cfg := Default()
    explicit := path != ""
    if !explicit {
        if _, err := os.Stat("config.yaml"); err == nil {
            path = "config.yaml"
        }
    }
    if path != "" {
        b, err := os.ReadFile(path)
        if err != nil && (explicit || !errors.Is(err, os.ErrNotExist)) {
            return cfg, fmt.Errorf("read config: %w", err)
        }
        if err == nil {
            if err := yaml.Unmarshal(b, &cfg); err != nil {
                return cfg, fmt.Errorf("parse config: %w", err)
            }
        }
    }
    applyEnv(&cfg)
    cfg.Upstream.DefaultConvert = strings.ToUpper(strings.TrimSpace(cfg.Upstream.DefaultConvert))
    if err := cfg.Validate(); err != nil {
        return cfg, err
    }
    return cfg, nil
}

// Validate reports the first field that cannot work.
func (c Config) Validate() error {
    switch {
    case strings.TrimSpace(c.Server.Host) == "":
        return errors.New("config: server.host is empty")
    case strings.TrimSpace(c.Server.Port) == "":
        return errors.New("config: server.port is empty")
    case c.Upstream.BaseURL == "":
        return errors.New("config: upstream.base_url is empty")
    case c.Upstream.TimeoutSec <= 0:
        return fmt.Errorf("config: upstream.timeout_sec must be positive, got %d", c.Upstream.TimeoutSec)
    case c.Upstream.DefaultConvert == "":
        return errors.New("config: upstream.default_convert is empty")
    }
    return nil
}

func applyEnv(cfg *Config) {
    if v := os.Getenv("HOST"); v != "" { cfg.Server.Host = v }
    if v := os.Getenv("PORT"); v != "" { cfg.Server.Port = v }
    if v := os.Getenv("UPSTREAM_URL"); v != "" { cfg.Upstream.BaseURL = v }
    if v := os.Getenv("UPSTREAM_TIMEOUT_SEC"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x > 0 { cfg.Upstream.TimeoutSec = x }
    }
    if v := os.Getenv("DEFAULT_CONVERT"); v != "" { cfg.Upstream.DefaultConvert = v }
    if v := os.Getenv("CMC_CONFIG_FILE"); v != "" { cfg.Credentials.File = v }
    if v := os.Getenv("LOG_LEVEL"); v != "" { cfg.Log.Level = v }
    if v := os.Getenv("LOG_FORMAT"); v != "" { cfg.Log.Format = v }
    if v := os.Getenv("METRICS_ADDR"); v != "" { cfg.Metrics.Addr = v }
    if v := os.Getenv("BREAKER_ENABLED"); v != "" {
        switch strings.ToLower(v) {
        case "1","true","yes","y": cfg.Breaker.Enabled = true
        case "0","false","no","n": cfg.Breaker.Enabled = false
        }
    }
    if v := os.Getenv("BREAKER_FAILURES"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x > 0 { cfg.Breaker.Failures = x }
    }
    if v := os.Getenv("BREAKER_OPEN_TIMEOUT_SEC"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x > 0 { cfg.Breaker.OpenTimeoutSec = x }
    }
}
