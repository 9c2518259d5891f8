package config

import (
	"strings"
	"time"
)

// Config holds lobby client and development server configuration values.
type Config struct {
	BaseURL     string `mapstructure:"base_url" yaml:"base_url"`
	WSPath      string `mapstructure:"ws_path" yaml:"ws_path"`
	CatalogPath string `mapstructure:"catalog_path" yaml:"catalog_path"`
	ChatPath    string `mapstructure:"chat_path" yaml:"chat_path"`

	HandoffPath string        `mapstructure:"handoff_path" yaml:"handoff_path"`
	SessionID   string        `mapstructure:"session_id" yaml:"session_id"`
	HandoffTTL  time.Duration `mapstructure:"handoff_ttl" yaml:"handoff_ttl"`

	// AckTimeout bounds the wait for a server acknowledgment. Zero waits forever.
	AckTimeout      time.Duration `mapstructure:"ack_timeout" yaml:"ack_timeout"`
	CatalogTimeout  time.Duration `mapstructure:"catalog_timeout" yaml:"catalog_timeout"`
	DefaultMaxUsers string        `mapstructure:"default_max_users" yaml:"default_max_users"`
	LogLevel        string        `mapstructure:"log_level" yaml:"log_level"`

	DevAddr              string        `mapstructure:"dev_addr" yaml:"dev_addr"`
	ReadHeaderTimeout    time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout      time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	RoomCleanupDelay     time.Duration `mapstructure:"room_cleanup_delay" yaml:"room_cleanup_delay"`
	MaxMessagesPerMinute int           `mapstructure:"max_messages_per_minute" yaml:"max_messages_per_minute"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		BaseURL:     "http://localhost:5000",
		WSPath:      "/ws",
		CatalogPath: "/api/rooms",
		ChatPath:    "/chat/",

		HandoffPath: "globalchat-handoff.db",
		SessionID:   "default",
		HandoffTTL:  12 * time.Hour,

		AckTimeout:      0,
		CatalogTimeout:  10 * time.Second,
		DefaultMaxUsers: "50",
		LogLevel:        "info",

		DevAddr:              ":5000",
		ReadHeaderTimeout:    5 * time.Second,
		ShutdownTimeout:      5 * time.Second,
		RoomCleanupDelay:     6 * time.Second,
		MaxMessagesPerMinute: 120,
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.BaseURL != "" {
		c.BaseURL = other.BaseURL
	}
	if other.WSPath != "" {
		c.WSPath = other.WSPath
	}
	if other.CatalogPath != "" {
		c.CatalogPath = other.CatalogPath
	}
	if other.ChatPath != "" {
		c.ChatPath = other.ChatPath
	}
	if other.HandoffPath != "" {
		c.HandoffPath = other.HandoffPath
	}
	if other.SessionID != "" {
		c.SessionID = other.SessionID
	}
	if other.HandoffTTL != 0 {
		c.HandoffTTL = other.HandoffTTL
	}
	if other.AckTimeout != 0 {
		c.AckTimeout = other.AckTimeout
	}
	if other.CatalogTimeout != 0 {
		c.CatalogTimeout = other.CatalogTimeout
	}
	if other.DefaultMaxUsers != "" {
		c.DefaultMaxUsers = other.DefaultMaxUsers
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.DevAddr != "" {
		c.DevAddr = other.DevAddr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.RoomCleanupDelay != 0 {
		c.RoomCleanupDelay = other.RoomCleanupDelay
	}
	if other.MaxMessagesPerMinute != 0 {
		c.MaxMessagesPerMinute = other.MaxMessagesPerMinute
	}
}

// WSURL returns the websocket endpoint derived from BaseURL.
func (c Config) WSURL() string {
	base := strings.TrimRight(c.BaseURL, "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + c.WSPath
}

// CatalogURL returns the room list endpoint derived from BaseURL.
func (c Config) CatalogURL() string {
	return strings.TrimRight(c.BaseURL, "/") + c.CatalogPath
}
