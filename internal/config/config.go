package config

import (
	"bytes"
	_ "embed"
	"time"

	"github.com/spf13/viper"
)

//go:embed defaults.yaml
var defaults []byte

// ---- Root ----

type Config struct {
	Log        LogConfig       `mapstructure:"log"`
	HTTP       HTTPConfig      `mapstructure:"http"`
	MySQL      DatabaseConfig  `mapstructure:"mysql"`
	ClickHouse DatabaseConfig  `mapstructure:"clickhouse"`
	Redis      RedisConfig     `mapstructure:"redis"`
	Kafka      KafkaConfig     `mapstructure:"kafka"`
	Transport  TransportConfig `mapstructure:"transport"`
	Pricing    PricingConfig   `mapstructure:"pricing"`
	Content    ContentConfig   `mapstructure:"content"`
	Drip       DripConfig      `mapstructure:"drip"`
	Reply      ReplyConfig     `mapstructure:"reply"`
	RateLimit  RateLimitConfig `mapstructure:"rate_limit"`
	Webhook    WebhookConfig   `mapstructure:"webhook"`
}

// ---- Leaf structs ----

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idletime"`
	PingTimeout     time.Duration `mapstructure:"ping_timeout"`
}

type RedisConfig struct {
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

type KafkaConfig struct {
	Brokers        []string `mapstructure:"brokers"`
	InboundTopic   string   `mapstructure:"inbound_topic"`
	GroupID        string   `mapstructure:"group_id"`
	MinBytes       int      `mapstructure:"min_bytes"`
	MaxBytes       int      `mapstructure:"max_bytes"`
	CommitInterval int      `mapstructure:"commit_interval_ms"`
}

type BreakerConfig struct {
	FailThreshold int `mapstructure:"fail_threshold"`
	OpenForMs     int `mapstructure:"open_for_ms"`
}

// TransportConfig describes the SMS provider's send/status HTTP API.
type TransportConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	SendPath   string        `mapstructure:"send_path"`
	StatusPath string        `mapstructure:"status_path"` // provider ref appended
	TimeoutMs  int           `mapstructure:"timeout_ms"`
	PollDelay  time.Duration `mapstructure:"poll_delay"`
	Breaker    BreakerConfig `mapstructure:"breaker"`
}

type PricingConfig struct {
	PerMessage int64 `mapstructure:"per_message"` // minor units per outbound send
}

type ContentConfig struct {
	OptOutSuffix string `mapstructure:"opt_out_suffix"`
	MaxLen       int    `mapstructure:"max_len"`
}

type DripConfig struct {
	TickInterval time.Duration `mapstructure:"tick_interval"`
}

type ReplyConfig struct {
	Timezone    string `mapstructure:"timezone"`
	OfficeOpen  int    `mapstructure:"office_open_hour"`
	OfficeClose int    `mapstructure:"office_close_hour"`
	SlotHours   []int  `mapstructure:"slot_hours"`
	BookingLink string `mapstructure:"booking_link"`
}

type RateLimitConfig struct {
	RPS int `mapstructure:"rps"`
}

type WebhookConfig struct {
	Token string `mapstructure:"token"`
}

// Load reads embedded defaults, merges user YAML (if provided), and applies env overrides (LEADWIRE_*).
func Load(path string) (Config, error) {
	v := viper.New()

	// embedded defaults
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return Config{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		_ = v.MergeInConfig()
	}

	// env override (LEADWIRE_*)
	v.SetEnvPrefix("LEADWIRE")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
