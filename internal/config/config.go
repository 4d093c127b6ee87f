package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Transport kinds a downstream service may declare.
const (
	TransportDDP  = "ddp"
	TransportHTTP = "http"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Provider ProviderConfig `mapstructure:"provider"`
	DDP      DDPConfig      `mapstructure:"ddp"`
	Dispatch DispatchConfig `mapstructure:"dispatch"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Services []Service      `mapstructure:"services"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	WebhookPath  string        `mapstructure:"webhook_path"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`

	// StrictStatus makes the webhook endpoint answer 500 when every matched
	// delivery for a request failed. Off by default: the provider retries
	// non-200 responses, which amplifies traffic to already-failing services.
	StrictStatus bool `mapstructure:"strict_status"`
}

type ProviderConfig struct {
	AppID         string `mapstructure:"app_id"`
	AppSecret     string `mapstructure:"app_secret"`
	GraphURL      string `mapstructure:"graph_url"`
	CallbackURL   string `mapstructure:"callback_url"`
	AutoSubscribe bool   `mapstructure:"auto_subscribe"`
}

type DDPConfig struct {
	Host      string        `mapstructure:"host"`
	Port      int           `mapstructure:"port"`
	Path      string        `mapstructure:"path"`
	Reconnect time.Duration `mapstructure:"reconnect"`
}

func (c DDPConfig) URL() string {
	return fmt.Sprintf("ws://%s:%d%s", c.Host, c.Port, c.Path)
}

type DispatchConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Service is one downstream destination. The set is loaded once at startup
// and never mutated afterwards; all concurrent dispatches share it read-only.
type Service struct {
	Name      string   `mapstructure:"name"`
	Transport string   `mapstructure:"transport"`
	Fields    []string `mapstructure:"fields"`
	Test      bool     `mapstructure:"test"`
	Token     string   `mapstructure:"token"`

	// http transport
	URL string `mapstructure:"url"`

	// ddp transport
	Method string `mapstructure:"method"`
}

func Load(path string) (*Config, error) {
	if path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.SetConfigName("hookfan")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/hookfan")
	}

	setDefaults()

	viper.AutomaticEnv()
	viper.SetEnvPrefix("HOOKFAN")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Services))
	for _, svc := range c.Services {
		if svc.Name == "" {
			return fmt.Errorf("service without a name")
		}
		if seen[svc.Name] {
			return fmt.Errorf("duplicate service name: %s", svc.Name)
		}
		seen[svc.Name] = true

		switch svc.Transport {
		case TransportDDP:
			if svc.Method == "" {
				return fmt.Errorf("service %s: ddp transport requires a method", svc.Name)
			}
		case TransportHTTP:
			if svc.URL == "" {
				return fmt.Errorf("service %s: http transport requires a url", svc.Name)
			}
		default:
			return fmt.Errorf("service %s: unknown transport kind: %s", svc.Name, svc.Transport)
		}
	}
	return nil
}

// HasTransport reports whether any configured service uses the given
// transport kind. serve uses it to decide whether the DDP connection
// needs to be opened at all.
func (c *Config) HasTransport(kind string) bool {
	for _, svc := range c.Services {
		if svc.Transport == kind {
			return true
		}
	}
	return false
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8000)
	viper.SetDefault("server.webhook_path", "/subscriptions")
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)
	viper.SetDefault("server.strict_status", false)

	viper.SetDefault("provider.graph_url", "https://graph.facebook.com")

	viper.SetDefault("ddp.host", "localhost")
	viper.SetDefault("ddp.port", 3000)
	viper.SetDefault("ddp.path", "/websocket")
	viper.SetDefault("ddp.reconnect", 500*time.Millisecond)

	viper.SetDefault("dispatch.timeout", 15*time.Second)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
}
