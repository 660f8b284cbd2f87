package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/andrewsamuelsen/bowen/pkg/models"
	"github.com/andrewsamuelsen/bowen/pkg/store"
	"github.com/andrewsamuelsen/bowen/pkg/utils"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// AppConfig is read from a YAML file under the user's home directory.
// All fields are optional; defaults are applied by the accessors.
//
// Example (~/.bowen/config.yaml):
//
//	server:
//	  host: 127.0.0.1
//	  port: 8088
//	llm:
//	  provider: gemini
//	  api_key: ...
//	store:
//	  driver: sqlite
//	auth:
//	  mode: jwt
//	  secret: ...
//
// Notes:
// - If the config file does not exist, Load returns defaults without error.
// - If the config file exists but cannot be parsed, Load returns an error.
// - Environment variables (and a .env file) override the file.
type AppConfig struct {
	Server ServerConfig `yaml:"server"`
	LLM    LLMConfig    `yaml:"llm"`
	Store  StoreConfig  `yaml:"store"`
	Auth   AuthConfig   `yaml:"auth"`
	Redis  RedisConfig  `yaml:"redis"`
	Client ClientConfig `yaml:"client"`
}

type ServerConfig struct {
	Host        *string  `yaml:"host"`
	Port        *int     `yaml:"port" validate:"omitempty,min=1,max=65535"`
	CORSOrigins []string `yaml:"cors_origins,omitempty"`
}

type LLMConfig struct {
	Provider  *string        `yaml:"provider" validate:"omitempty,oneof=gemini claude openai deepseek ollama ark qwen qianfan"`
	Model     string         `yaml:"model,omitempty"`
	BaseURL   string         `yaml:"base_url,omitempty" validate:"omitempty,url"`
	APIKey    string         `yaml:"api_key,omitempty"`
	MaxTokens int            `yaml:"max_tokens,omitempty" validate:"min=0"`
	Extra     map[string]any `yaml:"extra,omitempty"`
}

type StoreConfig struct {
	Driver   *string `yaml:"driver" validate:"omitempty,oneof=sqlite mysql postgres mongo"`
	DSN      string  `yaml:"dsn,omitempty"`
	Database string  `yaml:"database,omitempty"`
}

type AuthConfig struct {
	Mode         *string `yaml:"mode" validate:"omitempty,oneof=jwt oidc"`
	Secret       string  `yaml:"secret,omitempty"`
	Issuer       string  `yaml:"issuer,omitempty"`
	OIDCIssuer   string  `yaml:"oidc_issuer,omitempty" validate:"omitempty,url"`
	OIDCClientID string  `yaml:"oidc_client_id,omitempty"`
}

type RedisConfig struct {
	Addr      string `yaml:"addr,omitempty"`
	Password  string `yaml:"password,omitempty"`
	DB        int    `yaml:"db,omitempty" validate:"min=0"`
	RateLimit *int   `yaml:"rate_limit" validate:"omitempty,min=0"`
}

// ClientConfig configures the command line client.
type ClientConfig struct {
	BaseURL     string `yaml:"base_url,omitempty" validate:"omitempty,url"`
	Token       string `yaml:"token,omitempty"`
	SaveDelayMs *int   `yaml:"save_delay_ms" validate:"omitempty,min=0"`
}

const (
	DefaultHost        = "127.0.0.1"
	DefaultPort        = 8088
	DefaultProvider    = models.ProviderGemini
	DefaultStoreDriver = store.DriverSQLite
	DefaultAuthMode    = "jwt"
	DefaultRateLimit   = 30
	DefaultSaveDelayMs = 2000
)

// DefaultPaths returns the config dir and config file path.
func DefaultPaths() (configDir string, configFile string, err error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", "", fmt.Errorf("get user home dir: %w", err)
	}
	configDir = filepath.Join(home, ".bowen")
	configFile = filepath.Join(configDir, "config.yaml")
	return configDir, configFile, nil
}

// Load reads ~/.bowen/config.yaml, then applies .env files and environment
// overrides. If the file doesn't exist, it starts from defaults.
func Load() (*AppConfig, string, error) {
	configDir, configFile, err := DefaultPaths()
	if err != nil {
		return nil, "", err
	}

	cfg := &AppConfig{}
	b, err := os.ReadFile(configFile)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, "", fmt.Errorf("parse yaml config %s: %w", configFile, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, "", fmt.Errorf("read config file %s: %w", configFile, err)
	}

	if err := loadDotEnv(".env", filepath.Join(configDir, ".env")); err != nil {
		return nil, "", err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, "", fmt.Errorf("environment overrides: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", fmt.Errorf("invalid config %s: %w", configFile, err)
	}
	return cfg, configFile, nil
}

func loadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

func (c *AppConfig) applyEnv() error {
	setString := func(key string, dst **string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = ptr(v)
		}
	}
	setString("BOWEN_PROVIDER", &c.LLM.Provider)
	setString("BOWEN_STORE_DRIVER", &c.Store.Driver)

	if v := os.Getenv("BOWEN_PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("BOWEN_PORT %q: %w", v, err)
		}
		c.Server.Port = ptr(p)
	}

	override := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	override("BOWEN_STORE_DSN", &c.Store.DSN)
	override("BOWEN_AUTH_SECRET", &c.Auth.Secret)
	override("BOWEN_OIDC_ISSUER", &c.Auth.OIDCIssuer)
	override("BOWEN_OIDC_CLIENT_ID", &c.Auth.OIDCClientID)
	override("BOWEN_REDIS_ADDR", &c.Redis.Addr)
	override("BOWEN_API_URL", &c.Client.BaseURL)
	override("BOWEN_TOKEN", &c.Client.Token)
	if c.Auth.OIDCIssuer != "" && c.Auth.Mode == nil {
		c.Auth.Mode = ptr("oidc")
	}

	keyEnv := map[string]string{
		models.ProviderGemini: "GEMINI_API_KEY",
		models.ProviderClaude: "CLAUDE_API_KEY",
		models.ProviderOpenAI: "OPENAI_API_KEY",
	}
	if k, ok := keyEnv[c.Provider()]; ok && c.LLM.APIKey == "" {
		c.LLM.APIKey = os.Getenv(k)
	}
	return nil
}

// Validate checks field ranges.
func (c *AppConfig) Validate() error {
	if err := utils.ValidateStruct(c); err != nil {
		return err
	}
	if strings.TrimSpace(c.Host()) == "" {
		return errors.New("invalid server.host (empty)")
	}
	return nil
}

// ValidateServer checks the settings the selected auth and store modes
// require before serving.
func (c *AppConfig) ValidateServer() error {
	switch c.AuthMode() {
	case "jwt":
		if c.Auth.Secret == "" {
			return errors.New("auth.secret is required in jwt mode")
		}
	case "oidc":
		if c.Auth.OIDCIssuer == "" || c.Auth.OIDCClientID == "" {
			return errors.New("auth.oidc_issuer and auth.oidc_client_id are required in oidc mode")
		}
	}
	if c.StoreDriver() == store.DriverMongo && c.Store.DSN == "" {
		return errors.New("store.dsn is required for mongo")
	}
	return nil
}

// EnsureDefaultConfig writes a default config file if it doesn't already exist.
// It is safe to call on startup.
func EnsureDefaultConfig() (string, error) {
	configDir, configFile, err := DefaultPaths()
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(configFile); err == nil {
		return configFile, nil
	}

	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return "", fmt.Errorf("create config dir %s: %w", configDir, err)
	}

	secret, err := randomSecret()
	if err != nil {
		return "", err
	}
	defaultCfg := AppConfig{
		Server: ServerConfig{Host: ptr(DefaultHost), Port: ptr(DefaultPort)},
		LLM:    LLMConfig{Provider: ptr(DefaultProvider)},
		Store:  StoreConfig{Driver: ptr(DefaultStoreDriver)},
		Auth:   AuthConfig{Mode: ptr(DefaultAuthMode), Secret: secret, Issuer: "bowen"},
		Redis:  RedisConfig{RateLimit: ptr(DefaultRateLimit)},
		Client: ClientConfig{SaveDelayMs: ptr(DefaultSaveDelayMs)},
	}
	b, err := yaml.Marshal(&defaultCfg)
	if err != nil {
		return "", fmt.Errorf("marshal default config: %w", err)
	}

	// Write with restrictive permissions.
	if err := os.WriteFile(configFile, b, 0o600); err != nil {
		return "", fmt.Errorf("write default config file %s: %w", configFile, err)
	}

	return configFile, nil
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate auth secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func (c *AppConfig) Host() string {
	if c == nil || c.Server.Host == nil {
		return DefaultHost
	}
	v := strings.TrimSpace(*c.Server.Host)
	if v == "" {
		return DefaultHost
	}
	return v
}

func (c *AppConfig) Port() int {
	if c == nil || c.Server.Port == nil {
		return DefaultPort
	}
	return *c.Server.Port
}

func (c *AppConfig) Provider() string {
	if c == nil || c.LLM.Provider == nil || *c.LLM.Provider == "" {
		return DefaultProvider
	}
	return *c.LLM.Provider
}

func (c *AppConfig) StoreDriver() string {
	if c == nil || c.Store.Driver == nil || *c.Store.Driver == "" {
		return DefaultStoreDriver
	}
	return *c.Store.Driver
}

func (c *AppConfig) AuthMode() string {
	if c == nil || c.Auth.Mode == nil || *c.Auth.Mode == "" {
		return DefaultAuthMode
	}
	return *c.Auth.Mode
}

func (c *AppConfig) RateLimit() int {
	if c == nil || c.Redis.RateLimit == nil {
		return DefaultRateLimit
	}
	return *c.Redis.RateLimit
}

func (c *AppConfig) SaveDelay() time.Duration {
	if c == nil || c.Client.SaveDelayMs == nil {
		return DefaultSaveDelayMs * time.Millisecond
	}
	return time.Duration(*c.Client.SaveDelayMs) * time.Millisecond
}

// ClientBaseURL is the API address the command line client talks to.
func (c *AppConfig) ClientBaseURL() string {
	if c != nil && c.Client.BaseURL != "" {
		return c.Client.BaseURL
	}
	return fmt.Sprintf("http://%s:%d", c.Host(), c.Port())
}

// ProviderConfig resolves the chat model settings.
func (c *AppConfig) ProviderConfig() models.ProviderConfig {
	return models.ProviderConfig{
		Provider:  c.Provider(),
		Model:     c.LLM.Model,
		BaseURL:   c.LLM.BaseURL,
		APIKey:    c.LLM.APIKey,
		MaxTokens: c.LLM.MaxTokens,
		Extra:     c.LLM.Extra,
	}
}

// StoreOptions resolves the persistence settings. SQLite defaults to a
// file next to the config.
func (c *AppConfig) StoreOptions() (store.Options, error) {
	opts := store.Options{Driver: c.StoreDriver(), DSN: c.Store.DSN, Database: c.Store.Database}
	if opts.Driver == store.DriverSQLite && opts.DSN == "" {
		configDir, _, err := DefaultPaths()
		if err != nil {
			return opts, err
		}
		if err := os.MkdirAll(configDir, 0o700); err != nil {
			return opts, fmt.Errorf("create config dir %s: %w", configDir, err)
		}
		opts.DSN = filepath.Join(configDir, "bowen.db")
	}
	return opts, nil
}

func ptr[T any](v T) *T { return &v }
