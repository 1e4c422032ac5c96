package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/Netflix/go-env"
	"github.com/hengadev/errsx"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/rezonia/afipws/internal/credential"
)

// Ticket cache backends
const (
	CacheMemory = "memory"
	CacheFile   = "file"
	CacheRedis  = "redis"
)

// Config is loaded from an optional YAML file, then overridden by the
// environment (and a .env file when present)
type Config struct {
	Environment string        `yaml:"environment" env:"AFIPWS_ENV"`
	LogLevel    string        `yaml:"log_level" env:"AFIPWS_LOG_LEVEL"`
	Production  bool          `yaml:"production" env:"AFIPWS_PRODUCTION"`
	CUIT        string        `yaml:"cuit" env:"AFIPWS_CUIT"`
	Trace       bool          `yaml:"trace" env:"AFIPWS_TRACE"`
	Timeout     time.Duration `yaml:"timeout" env:"AFIPWS_TIMEOUT"`
	Proxy       string        `yaml:"proxy" env:"AFIPWS_PROXY"`

	Cert      CertConfig      `yaml:"cert"`
	Cache     CacheConfig     `yaml:"cache"`
	Endpoints EndpointsConfig `yaml:"endpoints"`
	ARBA      ARBAConfig      `yaml:"arba"`
	Traza     TrazaConfig     `yaml:"traza"`
	Padron    PadronConfig    `yaml:"padron"`
	Server    ServerConfig    `yaml:"server"`
}

// CertConfig locates the taxpayer certificate. PEM text in CERT/PKEY wins
// over the file paths.
type CertConfig struct {
	CertFile     string `yaml:"cert_file" env:"AFIPWS_CERT_FILE"`
	KeyFile      string `yaml:"key_file" env:"AFIPWS_KEY_FILE"`
	CertPEM      string `yaml:"-" env:"CERT"`
	KeyPEM       string `yaml:"-" env:"PKEY"`
	CAFile       string `yaml:"ca_file" env:"AFIPWS_CA_FILE"`
	SoftFailOCSP bool   `yaml:"soft_fail_ocsp" env:"AFIPWS_SOFT_FAIL_OCSP"`
}

// CacheConfig selects where access tickets are kept
type CacheConfig struct {
	Backend     string        `yaml:"backend" env:"AFIPWS_CACHE_BACKEND"`
	Dir         string        `yaml:"dir" env:"AFIPWS_CACHE_DIR"`
	RedisURL    string        `yaml:"redis_url" env:"AFIPWS_REDIS_URL"`
	TTL         time.Duration `yaml:"ttl" env:"AFIPWS_TICKET_TTL"`
	RenewMargin time.Duration `yaml:"renew_margin" env:"AFIPWS_TICKET_RENEW_MARGIN"`
}

// ARBAConfig holds the provincial credentials (CUIT + CIT)
type ARBAConfig struct {
	User     string `yaml:"user" env:"AFIPWS_ARBA_USER"`
	Password string `yaml:"password" env:"AFIPWS_ARBA_PASSWORD"`
	CAFile   string `yaml:"ca_file" env:"AFIPWS_ARBA_CA_FILE"`
}

// TrazaConfig holds the traceability credentials: the WS-Security
// username token and the per-call agent user
type TrazaConfig struct {
	WSUsername string `yaml:"ws_username" env:"AFIPWS_TRAZA_WS_USERNAME"`
	WSPassword string `yaml:"ws_password" env:"AFIPWS_TRAZA_WS_PASSWORD"`
	User       string `yaml:"user" env:"AFIPWS_TRAZA_USER"`
	Password   string `yaml:"password" env:"AFIPWS_TRAZA_PASSWORD"`
}

// PadronConfig configures the local registry and the REST lookups
type PadronConfig struct {
	DBPath      string  `yaml:"db_path" env:"AFIPWS_PADRON_DB"`
	RateLimit   float64 `yaml:"rate_limit" env:"AFIPWS_PADRON_RATE_LIMIT"`
	Burst       int     `yaml:"burst" env:"AFIPWS_PADRON_BURST"`
	Concurrency int     `yaml:"concurrency" env:"AFIPWS_PADRON_CONCURRENCY"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Address string `yaml:"address" env:"AFIPWS_SERVER_ADDRESS"`
	Debug   bool   `yaml:"debug" env:"AFIPWS_SERVER_DEBUG"`
}

// Default returns the homologation configuration
func Default() *Config {
	return &Config{
		Environment: "dev",
		LogLevel:    "info",
		Timeout:     60 * time.Second,
		Cache: CacheConfig{
			Backend:     CacheFile,
			Dir:         "cache",
			TTL:         2400 * time.Second,
			RenewMargin: 60 * time.Second,
		},
		Padron: PadronConfig{
			DBPath:      "padron.db",
			RateLimit:   5,
			Burst:       1,
			Concurrency: 4,
		},
		Server: ServerConfig{
			Address: ":8080",
		},
	}
}

// Load reads path (optional), .env and the environment, then validates
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	if _, err := env.UnmarshalFromEnviron(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid field at once
func (c *Config) Validate() error {
	var errs errsx.Map

	if c.CUIT != "" && len(c.CUIT) != 11 {
		errs.Set("cuit", fmt.Errorf("must have 11 digits, got %q", c.CUIT))
	}
	if c.Timeout <= 0 {
		errs.Set("timeout", fmt.Errorf("must be positive"))
	}
	switch c.Cache.Backend {
	case CacheMemory:
	case CacheFile:
		if c.Cache.Dir == "" {
			errs.Set("cache.dir", fmt.Errorf("required for the file backend"))
		}
	case CacheRedis:
		if c.Cache.RedisURL == "" {
			errs.Set("cache.redis_url", fmt.Errorf("required for the redis backend"))
		}
	default:
		errs.Set("cache.backend", fmt.Errorf("unknown backend %q", c.Cache.Backend))
	}
	if c.Cache.RenewMargin < 0 || c.Cache.RenewMargin >= c.Cache.TTL {
		errs.Set("cache.renew_margin", fmt.Errorf("must be between 0 and the ticket ttl"))
	}
	if (c.Cert.CertFile == "") != (c.Cert.KeyFile == "") {
		errs.Set("cert", fmt.Errorf("cert_file and key_file must be set together"))
	}
	if c.Padron.RateLimit <= 0 || c.Padron.Burst < 1 || c.Padron.Concurrency < 1 {
		errs.Set("padron", fmt.Errorf("rate_limit, burst and concurrency must be positive"))
	}

	return errs.AsError()
}

// HasCredential reports whether a certificate source is configured
func (c *Config) HasCredential() bool {
	return (c.Cert.CertPEM != "" && c.Cert.KeyPEM != "") || (c.Cert.CertFile != "" && c.Cert.KeyFile != "")
}

// LoadCredential loads the taxpayer certificate from the environment or disk
func (c *Config) LoadCredential() (*credential.Credential, error) {
	if c.Cert.CertPEM != "" && c.Cert.KeyPEM != "" {
		return credential.Load(credential.DecodeEnvPEM(c.Cert.CertPEM), credential.DecodeEnvPEM(c.Cert.KeyPEM))
	}
	if c.Cert.CertFile == "" || c.Cert.KeyFile == "" {
		return nil, fmt.Errorf("no certificate configured: set cert.cert_file/key_file or CERT/PKEY")
	}
	return credential.LoadFiles(c.Cert.CertFile, c.Cert.KeyFile)
}
