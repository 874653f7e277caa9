package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/qaix/qaixbot/internal/irc"
)

// Config holds all bot configuration
type Config struct {
	Server           string `yaml:"server" toml:"server" env:"QAIX_SERVER" validate:"required_unless=Transport unix"`
	Port             int    `yaml:"port" toml:"port" env:"QAIX_PORT" validate:"gte=0,lte=65535"`
	Transport        string `yaml:"transport" toml:"transport" env:"QAIX_TRANSPORT" validate:"oneof=plain tls unix"`
	SocketPath       string `yaml:"socket_path" toml:"socket_path" env:"QAIX_SOCKET_PATH" validate:"required_if=Transport unix"`
	Family           int    `yaml:"family" toml:"family" env:"QAIX_FAMILY" validate:"oneof=0 4 6"`
	LocalAddress     string `yaml:"local_address" toml:"local_address" env:"QAIX_LOCAL_ADDRESS" validate:"omitempty,ip"`
	ShuffleAddresses bool   `yaml:"shuffle_addresses" toml:"shuffle_addresses" env:"QAIX_SHUFFLE_ADDRESSES"`

	TLS struct {
		SelfSigned  bool `yaml:"self_signed" toml:"self_signed" env:"QAIX_TLS_SELF_SIGNED"`
		CertExpired bool `yaml:"cert_expired" toml:"cert_expired" env:"QAIX_TLS_CERT_EXPIRED"`
	} `yaml:"tls" toml:"tls"`

	Nick     string `yaml:"nick" toml:"nick" env:"QAIX_NICK" validate:"required"`
	Username string `yaml:"username" toml:"username" env:"QAIX_USERNAME"`
	RealName string `yaml:"realname" toml:"realname" env:"QAIX_REALNAME"`
	Password string `yaml:"password" toml:"password" env:"QAIX_PASSWORD"`
	SASL     bool   `yaml:"sasl" toml:"sasl" env:"QAIX_SASL"`

	WebIRC struct {
		Pass string `yaml:"pass" toml:"pass" env:"QAIX_WEBIRC_PASS"`
		IP   string `yaml:"ip" toml:"ip" env:"QAIX_WEBIRC_IP" validate:"omitempty,ip"`
		Host string `yaml:"host" toml:"host" env:"QAIX_WEBIRC_HOST"`
	} `yaml:"webirc" toml:"webirc"`

	Channels   []string `yaml:"channels" toml:"channels" env:"QAIX_CHANNELS"`
	AutoRejoin bool     `yaml:"auto_rejoin" toml:"auto_rejoin" env:"QAIX_AUTO_REJOIN"`

	// RetryCount is nil when unset, which means retry forever.
	RetryCount *int     `yaml:"retry_count" toml:"retry_count" env:"QAIX_RETRY_COUNT" validate:"omitempty,gte=0"`
	RetryDelay Duration `yaml:"retry_delay" toml:"retry_delay" env:"QAIX_RETRY_DELAY" validate:"gte=0"`

	FloodProtection      bool     `yaml:"flood_protection" toml:"flood_protection" env:"QAIX_FLOOD_PROTECTION"`
	FloodProtectionDelay Duration `yaml:"flood_protection_delay" toml:"flood_protection_delay" env:"QAIX_FLOOD_PROTECTION_DELAY" validate:"gte=0"`

	StripColors     bool   `yaml:"strip_colors" toml:"strip_colors" env:"QAIX_STRIP_COLORS"`
	ChannelPrefixes string `yaml:"channel_prefixes" toml:"channel_prefixes" env:"QAIX_CHANNEL_PREFIXES"`
	MessageSplit    int    `yaml:"message_split" toml:"message_split" env:"QAIX_MESSAGE_SPLIT" validate:"gte=0"`

	PingSilence Duration `yaml:"ping_silence" toml:"ping_silence" env:"QAIX_PING_SILENCE" validate:"gte=0"`
	PingTimeout Duration `yaml:"ping_timeout" toml:"ping_timeout" env:"QAIX_PING_TIMEOUT" validate:"gte=0"`

	Debug      bool `yaml:"debug" toml:"debug" env:"QAIX_DEBUG"`
	ShowErrors bool `yaml:"show_errors" toml:"show_errors" env:"QAIX_SHOW_ERRORS"`

	DataDir       string   `yaml:"data_dir" toml:"data_dir" env:"QAIX_DATA_DIR"`
	PointsDB      string   `yaml:"points_db" toml:"points_db" env:"QAIX_POINTS_DB"`
	CommandPrefix string   `yaml:"command_prefix" toml:"command_prefix" env:"QAIX_COMMAND_PREFIX"`
	Admins        []string `yaml:"admins" toml:"admins" env:"QAIX_ADMINS"`
	MetricsAddr   string   `yaml:"metrics_addr" toml:"metrics_addr" env:"QAIX_METRICS_ADDR" validate:"omitempty,hostname_port"`
}

var validate = validator.New()

// Load reads a YAML or TOML configuration file, picked by extension, then
// applies QAIX_* environment overrides and defaults. A .env file next to
// the configuration is loaded into the environment first.
func Load(path string) (*Config, error) {
	envFile := filepath.Join(filepath.Dir(path), ".env")
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load env file: %w", err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, &cfg)
	default:
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}
	cfg.setDefaults()

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Port == 0 {
		c.Port = 6667
	}
	if c.Transport == "" {
		c.Transport = string(irc.TransportPlain)
	}
	if c.Username == "" {
		c.Username = "qaixbot"
	}
	if c.RealName == "" {
		c.RealName = "qaixbot IRC client"
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = Duration(2 * time.Second)
	}
	if c.FloodProtectionDelay == 0 {
		c.FloodProtectionDelay = Duration(time.Second)
	}
	if c.ChannelPrefixes == "" {
		c.ChannelPrefixes = "&#"
	}
	if c.MessageSplit == 0 {
		c.MessageSplit = 512
	}
	if c.PingSilence == 0 {
		c.PingSilence = Duration(15 * time.Second)
	}
	if c.PingTimeout == 0 {
		c.PingTimeout = Duration(8 * time.Second)
	}
	if c.DataDir == "" {
		c.DataDir = "./data"
	}
	if c.PointsDB == "" {
		c.PointsDB = filepath.Join(c.DataDir, "points.db")
	}
	if c.CommandPrefix == "" {
		c.CommandPrefix = "!"
	}
}

// EngineOptions converts the configuration into session engine options.
func (c *Config) EngineOptions(logger *log.Logger) irc.Options {
	retries := -1
	if c.RetryCount != nil {
		retries = *c.RetryCount
	}
	return irc.Options{
		Server:               c.Server,
		Port:                 c.Port,
		Transport:            irc.Transport(c.Transport),
		SocketPath:           c.SocketPath,
		Family:               c.Family,
		LocalAddress:         c.LocalAddress,
		ShuffleAddresses:     c.ShuffleAddresses,
		SelfSigned:           c.TLS.SelfSigned,
		CertExpired:          c.TLS.CertExpired,
		Nick:                 c.Nick,
		UserName:             c.Username,
		RealName:             c.RealName,
		Password:             c.Password,
		SASL:                 c.SASL,
		WebIRC:               irc.WebIRC{Pass: c.WebIRC.Pass, IP: c.WebIRC.IP, Host: c.WebIRC.Host},
		Channels:             append([]string(nil), c.Channels...),
		AutoRejoin:           c.AutoRejoin,
		RetryCount:           retries,
		RetryDelay:           c.RetryDelay.Std(),
		FloodProtection:      c.FloodProtection,
		FloodProtectionDelay: c.FloodProtectionDelay.Std(),
		StripColors:          c.StripColors,
		ChannelPrefixes:      c.ChannelPrefixes,
		MessageSplit:         c.MessageSplit,
		PingSilence:          c.PingSilence.Std(),
		PingTimeout:          c.PingTimeout.Std(),
		Debug:                c.Debug,
		ShowErrors:           c.ShowErrors,
		Logger:               logger,
	}
}

// applyEnvOverrides sets every field whose env tag names a variable that
// is present in the environment. List values are comma separated.
func applyEnvOverrides(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("failed to apply environment: %w", err)
	}
	cfg.Channels = cleanList(cfg.Channels)
	cfg.Admins = cleanList(cfg.Admins)
	return nil
}

// cleanList trims entries and drops empty ones.
func cleanList(items []string) []string {
	if items == nil {
		return nil
	}
	out := items[:0]
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
