package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Load reads config.yaml (if any), then APP_* variables and the plain
// deployment variables bound below.
func Load() (*Config, error) {
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/talkinator")

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Allow common env vars without APP_ prefix for Docker/VM deploys
	v.BindEnv("http.port", "HTTP_PORT", "APP_HTTP_PORT")
	v.BindEnv("event_socket.max_calls", "MAX_CALLS", "APP_EVENT_SOCKET_MAX_CALLS")
	v.BindEnv("redis.url", "REDIS_URL", "APP_REDIS_URL")
	v.BindEnv("database.url", "DATABASE_URL", "APP_DATABASE_URL")
	v.BindEnv("events.url", "NATS_URL", "APP_EVENTS_URL")
	v.BindEnv("logging.level", "LOG_LEVEL", "APP_LOGGING_LEVEL")
	v.BindEnv("app.environment", "APP_ENVIRONMENT")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "talkinator")
	v.SetDefault("app.version", "v1.0.0")
	v.SetDefault("app.environment", "development")

	v.SetDefault("http.enabled", true)
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.read_timeout", 10*time.Second)
	v.SetDefault("http.write_timeout", 10*time.Second)
	v.SetDefault("http.idle_timeout", 60*time.Second)

	v.SetDefault("event_socket.host", "0.0.0.0")
	v.SetDefault("event_socket.port", 8888)
	v.SetDefault("event_socket.max_calls", 10)

	v.SetDefault("guess.host_template", "http://%s.akinator.com")
	v.SetDefault("guess.language", "en")
	v.SetDefault("guess.timeout", 15*time.Second)

	v.SetDefault("speech.voice", "Susan")
	v.SetDefault("speech.engine", "pocketsphinx")
	v.SetDefault("speech.grammars", map[string]string{
		"gender": "akinator_gender",
		"yesno":  "akinator_yesno",
	})
	v.SetDefault("speech.min_confidence", 50)
	v.SetDefault("speech.silence_params", "200 15 10 5000")
	v.SetDefault("speech.prompt_timeout", 60*time.Second)
	v.SetDefault("speech.recognition_timeout", 20*time.Second)

	v.SetDefault("events.driver", "nats")
	v.SetDefault("history.ttl", 24*time.Hour)
	v.SetDefault("history.cleanup_interval", time.Minute)

	v.SetDefault("opentelemetry.enabled", false)
	v.SetDefault("opentelemetry.service_name", "talkinator")
	v.SetDefault("opentelemetry.jaeger.endpoint", "http://localhost:14268/api/traces")
	v.SetDefault("opentelemetry.jaeger.sampler_param", 1.0)

	v.SetDefault("logging.level", "info")

	v.SetDefault("circuit_breaker.max_requests", 3)
	v.SetDefault("circuit_breaker.interval", 60*time.Second)
	v.SetDefault("circuit_breaker.timeout", 30*time.Second)
	v.SetDefault("circuit_breaker.failure_threshold", 0.6)
	v.SetDefault("circuit_breaker.min_requests", 3)

	v.SetDefault("cors.allowed_origins", []string{"*"})
}

// Validate rejects settings the server cannot run with
func (c *Config) Validate() error {
	if c.EventSocket.MaxCalls < 1 {
		return fmt.Errorf("event_socket.max_calls must be at least 1, got %d", c.EventSocket.MaxCalls)
	}
	if c.EventSocket.Port <= 0 || c.EventSocket.Port > 65535 {
		return fmt.Errorf("event_socket.port out of range: %d", c.EventSocket.Port)
	}
	if c.Speech.MinConfidence < 0 || c.Speech.MinConfidence > 100 {
		return fmt.Errorf("speech.min_confidence must be within 0..100, got %d", c.Speech.MinConfidence)
	}
	for _, name := range []string{"gender", "yesno"} {
		if c.Speech.Grammars[name] == "" {
			return fmt.Errorf("speech.grammars.%s is required", name)
		}
	}
	if n := c.Speech.NameGrammar; n != "" && c.Speech.Grammars[n] == "" {
		return fmt.Errorf("speech.name_grammar %q has no entry in speech.grammars", n)
	}
	switch c.Events.Driver {
	case "", "none", "nats", "rabbitmq":
	default:
		return fmt.Errorf("unknown events.driver %q", c.Events.Driver)
	}
	return nil
}
