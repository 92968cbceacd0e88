package config

import "time"

// Config holds server configuration values.
type Config struct {
	HTTPAddr          string        `mapstructure:"http_addr" yaml:"http_addr"`
	GRPCAddr          string        `mapstructure:"grpc_addr" yaml:"grpc_addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`

	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`

	// DatabasePath is the sqlite file. Empty disables persistence.
	DatabasePath string `mapstructure:"database_path" yaml:"database_path"`

	JWTSecret   string `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer   string `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience string `mapstructure:"jwt_audience" yaml:"jwt_audience"`
	JWTRequired bool   `mapstructure:"jwt_required" yaml:"jwt_required"`

	MaxMessageRunes   int           `mapstructure:"max_message_runes" yaml:"max_message_runes"`
	MaxMessageBytes   int           `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
	SessionBuffer     int           `mapstructure:"session_buffer" yaml:"session_buffer"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval" yaml:"heartbeat_interval"`

	// RedisAddr selects the shared rate limiter; empty keeps it in process.
	RedisAddr         string        `mapstructure:"redis_addr" yaml:"redis_addr"`
	RateLimitMessages int           `mapstructure:"rate_limit_messages" yaml:"rate_limit_messages"`
	RateLimitTyping   int           `mapstructure:"rate_limit_typing" yaml:"rate_limit_typing"`
	RateLimitWindow   time.Duration `mapstructure:"rate_limit_window" yaml:"rate_limit_window"`

	NATSURL           string `mapstructure:"nats_url" yaml:"nats_url"`
	NATSSubjectPrefix string `mapstructure:"nats_subject_prefix" yaml:"nats_subject_prefix"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		HTTPAddr:          ":8080",
		GRPCAddr:          ":50051",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		LogLevel:          "info",
		LogFormat:         "console",
		DatabasePath:      "chatrelay.db",
		JWTIssuer:         "chatrelay",
		JWTAudience:       "chatrelay",
		MaxMessageRunes:   2000,
		MaxMessageBytes:   4096,
		SessionBuffer:     64,
		HeartbeatInterval: 30 * time.Second,
		RateLimitMessages: 20,
		RateLimitTyping:   30,
		RateLimitWindow:   10 * time.Second,
		NATSSubjectPrefix: "chat",
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.HTTPAddr != "" {
		c.HTTPAddr = other.HTTPAddr
	}
	if other.GRPCAddr != "" {
		c.GRPCAddr = other.GRPCAddr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.LogFormat != "" {
		c.LogFormat = other.LogFormat
	}
	if other.DatabasePath != "" {
		c.DatabasePath = other.DatabasePath
	}
	if other.JWTSecret != "" {
		c.JWTSecret = other.JWTSecret
	}
	if other.JWTIssuer != "" {
		c.JWTIssuer = other.JWTIssuer
	}
	if other.JWTAudience != "" {
		c.JWTAudience = other.JWTAudience
	}
	if other.JWTRequired {
		c.JWTRequired = true
	}
	if other.MaxMessageRunes != 0 {
		c.MaxMessageRunes = other.MaxMessageRunes
	}
	if other.MaxMessageBytes != 0 {
		c.MaxMessageBytes = other.MaxMessageBytes
	}
	if other.SessionBuffer != 0 {
		c.SessionBuffer = other.SessionBuffer
	}
	if other.HeartbeatInterval != 0 {
		c.HeartbeatInterval = other.HeartbeatInterval
	}
	if other.RedisAddr != "" {
		c.RedisAddr = other.RedisAddr
	}
	if other.RateLimitMessages != 0 {
		c.RateLimitMessages = other.RateLimitMessages
	}
	if other.RateLimitTyping != 0 {
		c.RateLimitTyping = other.RateLimitTyping
	}
	if other.RateLimitWindow != 0 {
		c.RateLimitWindow = other.RateLimitWindow
	}
	if other.NATSURL != "" {
		c.NATSURL = other.NATSURL
	}
	if other.NATSSubjectPrefix != "" {
		c.NATSSubjectPrefix = other.NATSSubjectPrefix
	}
}
