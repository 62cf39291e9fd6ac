package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/titanous/json5"
	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP struct {
		Timeout    float64 `yaml:"timeout" json:"timeout"`
		MaxRetries int     `yaml:"max_retries" json:"max_retries"`
		UserAgent  string  `yaml:"user_agent" json:"user_agent"`
	} `yaml:"http" json:"http"`

	Crawler struct {
		BaseURL           string  `yaml:"dealroom_base_url" json:"dealroom_base_url"`
		SleepBetween      float64 `yaml:"sleep_between_requests" json:"sleep_between_requests"`
		Concurrency       int     `yaml:"concurrency" json:"concurrency"`
		RequestsPerSecond float64 `yaml:"requests_per_second" json:"requests_per_second"`
	} `yaml:"crawler" json:"crawler"`

	Paths struct {
		InputDomains string `yaml:"input_domains" json:"input_domains"`
		OutputFile   string `yaml:"output_file" json:"output_file"`
		Database     string `yaml:"database" json:"database"`
	} `yaml:"paths" json:"paths"`

	Cache struct {
		RedisAddr     string `yaml:"redis_addr" json:"redis_addr"`
		RedisPassword string `yaml:"redis_password" json:"redis_password"`
		RedisDB       int    `yaml:"redis_db" json:"redis_db"`
		TTL           int    `yaml:"ttl" json:"ttl"`
	} `yaml:"cache" json:"cache"`

	Telemetry struct {
		OTLPEndpoint string `yaml:"otlp_endpoint" json:"otlp_endpoint"`
		ServiceName  string `yaml:"service_name" json:"service_name"`
	} `yaml:"telemetry" json:"telemetry"`

	Server struct {
		Addr string `yaml:"addr" json:"addr"`
	} `yaml:"server" json:"server"`
}

// Defaults returns the settings used when a key is missing from every file.
func Defaults() Config {
	var c Config
	c.HTTP.Timeout = 10
	c.HTTP.MaxRetries = 2
	c.HTTP.UserAgent = "dealroom-scraper/1.0"
	c.Crawler.BaseURL = "https://app.dealroom.co/companies"
	c.Crawler.SleepBetween = 0.5
	c.Crawler.Concurrency = 4
	c.Paths.InputDomains = "data/input_domains.txt"
	c.Paths.OutputFile = "data/output.json"
	c.Cache.TTL = 86400
	c.Telemetry.ServiceName = "dealroom-scraper"
	c.Server.Addr = "127.0.0.1:8080"
	return c
}

func (c Config) Timeout() time.Duration {
	return seconds(c.HTTP.Timeout)
}

func (c Config) SleepBetweenRequests() time.Duration {
	return seconds(c.Crawler.SleepBetween)
}

func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTL) * time.Second
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// Load reads path on top of Defaults, then `<name>.local.<ext>` next to it.
// Keys absent from a file keep their previous value. Relative entries under
// paths are resolved against the directory of path.
func Load(path string) (Config, error) {
	cfg := Defaults()
	found := false

	for _, p := range []string{path, localPath(path)} {
		b, err := os.ReadFile(p)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return cfg, err
		}
		if err := decode(p, b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", p, err)
		}
		found = true
	}
	if !found {
		return cfg, fmt.Errorf("config %s: %w", path, os.ErrNotExist)
	}

	cfg.resolvePaths(filepath.Dir(path))
	return cfg, nil
}

func decode(path string, b []byte, cfg *Config) error {
	if len(bytes.TrimSpace(b)) == 0 {
		return nil
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".json5":
		return json5.Unmarshal(b, cfg)
	default:
		return yaml.Unmarshal(b, cfg)
	}
}

func localPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".local" + ext
}

func (c *Config) resolvePaths(dir string) {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}
	c.Paths.InputDomains = abs(c.Paths.InputDomains)
	c.Paths.OutputFile = abs(c.Paths.OutputFile)
	c.Paths.Database = abs(c.Paths.Database)
}
