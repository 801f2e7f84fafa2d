package config

import "time"

type Config struct {
	App            AppConfig            `mapstructure:"app"`
	HTTP           HTTPConfig           `mapstructure:"http"`
	EventSocket    EventSocketConfig    `mapstructure:"event_socket"`
	Guess          GuessConfig          `mapstructure:"guess"`
	Speech         SpeechConfig         `mapstructure:"speech"`
	Redis          RedisConfig          `mapstructure:"redis"`
	Database       DatabaseConfig       `mapstructure:"database"`
	Events         EventsConfig         `mapstructure:"events"`
	History        HistoryConfig        `mapstructure:"history"`
	OpenTelemetry  OpenTelemetryConfig  `mapstructure:"opentelemetry"`
	Logging        LoggingConfig        `mapstructure:"logging"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
	CORS           CORSConfig           `mapstructure:"cors"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type HTTPConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// EventSocketConfig is the listener FreeSWITCH connects to with outbound sockets
type EventSocketConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	MaxCalls int    `mapstructure:"max_calls"`
}

type GuessConfig struct {
	// BaseURL overrides the per-language host, mostly for tests
	BaseURL      string        `mapstructure:"base_url"`
	HostTemplate string        `mapstructure:"host_template"`
	Language     string        `mapstructure:"language"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

type SpeechConfig struct {
	Voice              string            `mapstructure:"voice"`
	Engine             string            `mapstructure:"engine"`
	Grammars           map[string]string `mapstructure:"grammars"`
	NameGrammar        string            `mapstructure:"name_grammar"`
	MinConfidence      int               `mapstructure:"min_confidence"`
	SilenceParams      string            `mapstructure:"silence_params"`
	PromptTimeout      time.Duration     `mapstructure:"prompt_timeout"`
	RecognitionTimeout time.Duration     `mapstructure:"recognition_timeout"`
}

type RedisConfig struct {
	URL string `mapstructure:"url"`
}

// DatabaseConfig enables the PostgreSQL call archive when URL is set
type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

type EventsConfig struct {
	// Driver is nats, rabbitmq or none
	Driver string `mapstructure:"driver"`
	URL    string `mapstructure:"url"`
}

type HistoryConfig struct {
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

type OpenTelemetryConfig struct {
	Enabled     bool         `mapstructure:"enabled"`
	Jaeger      JaegerConfig `mapstructure:"jaeger"`
	ServiceName string       `mapstructure:"service_name"`
}

type JaegerConfig struct {
	Endpoint     string  `mapstructure:"endpoint"`
	SamplerParam float64 `mapstructure:"sampler_param"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

type CircuitBreakerConfig struct {
	MaxRequests      uint32        `mapstructure:"max_requests"`
	Interval         time.Duration `mapstructure:"interval"`
	Timeout          time.Duration `mapstructure:"timeout"`
	FailureThreshold float64       `mapstructure:"failure_threshold"`
	MinRequests      uint32        `mapstructure:"min_requests"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}
