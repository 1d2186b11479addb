package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Config struct to hold the configuration settings
type Config struct {
	Postgres      PostgresConfig      `yaml:"postgres"`
	NATS          NATSConfig          `yaml:"nats"`
	HTTP          HTTPConfig          `yaml:"http"`
	JWT           JWTConfig           `yaml:"jwt"`
	Observability ObservabilityConfig `yaml:"observability"`
	Raffle        RaffleConfig        `yaml:"raffle"`
	Oracle        OracleConfig        `yaml:"oracle"`
}

// PostgresConfig holds Postgres configuration.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// NATSConfig holds NATS configuration. An empty URL selects the in-process bus.
type NATSConfig struct {
	URL string `yaml:"url"`
}

// HTTPConfig holds the API listener and its per-IP rate limit.
type HTTPConfig struct {
	Address   string  `yaml:"address"`
	RateLimit float64 `yaml:"rate_limit"`
	RateBurst int     `yaml:"rate_burst"`
}

// JWTConfig holds JWT configuration.
type JWTConfig struct {
	Secret     string        `yaml:"secret"`
	DefaultTTL time.Duration `yaml:"default_ttl"`
}

// ObservabilityConfig holds configuration for observability components
type ObservabilityConfig struct {
	Environment     string  `yaml:"environment"`
	LogLevel        string  `yaml:"log_level"`
	MetricsAddress  string  `yaml:"metrics_address"`
	OTLPEndpoint    string  `yaml:"otlp_endpoint"`
	OTLPInsecure    bool    `yaml:"otlp_insecure"`
	TraceSampleRate float64 `yaml:"trace_sample_rate"`
}

// RaffleConfig holds the construction-time parameters of the raffle. Amounts
// are in gwei.
type RaffleConfig struct {
	ID               string        `yaml:"id"`
	Address          string        `yaml:"address"`
	EntranceFee      int64         `yaml:"entrance_fee"`
	Interval         time.Duration `yaml:"interval"`
	KeyHash          string        `yaml:"key_hash"`
	SubscriptionID   int64         `yaml:"subscription_id"`
	CallbackGasLimit uint32        `yaml:"callback_gas_limit"`
	KeeperEnabled    bool          `yaml:"keeper_enabled"`
	KeeperInterval   time.Duration `yaml:"keeper_interval"`
}

// OracleConfig holds the in-process randomness coordinator. Its address is the
// public key of Seed; an empty seed generates a new key on every start. Amounts
// are in nano-LINK.
type OracleConfig struct {
	Seed             string        `yaml:"seed"`
	BaseFee          int64         `yaml:"base_fee"`
	GasPrice         int64         `yaml:"gas_price"`
	FulfillmentGas   int64         `yaml:"fulfillment_gas"`
	BlockTime        time.Duration `yaml:"block_time"`
	AutoProvision    bool          `yaml:"auto_provision"`
	Owner            string        `yaml:"owner"`
	FundAmount       int64         `yaml:"fund_amount"`
	BreakerFailures  uint32        `yaml:"breaker_failures"`
	BreakerOpenDelay time.Duration `yaml:"breaker_open_delay"`
}

// Defaults mirror the local development network.
const (
	DefaultEntranceFee      int64  = 5_000_000_000
	DefaultInterval                = 30 * time.Second
	DefaultCallbackGasLimit uint32 = 500_000
	DefaultKeyHash                 = "0x474e34a077df58807dbe9c96d3c009b23b3c6d0cce433e59bbf5b34f823bc56c"
	DefaultKeeperInterval          = 10 * time.Second

	DefaultBaseFee        int64 = 250_000_000
	DefaultGasPrice       int64 = 10_000
	DefaultFulfillmentGas int64 = 50_000
	DefaultBlockTime            = time.Second
	MinBlockTime                = 100 * time.Millisecond
	DefaultFundAmount     int64 = 10_000_000_000
)

// DefaultRaffleID is used when no raffle id is configured so restarts keep the
// same round.
var DefaultRaffleID = uuid.MustParse("6a1f2d4e-0c3b-4b8a-9d7e-5f2a1c3b4d5e")

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{
		Raffle: RaffleConfig{KeeperEnabled: true},
		Oracle: OracleConfig{AutoProvision: true},
	}
	cfg.applyDefaults()
	return cfg
}

// LoadConfig loads the configuration from a YAML file. A missing file falls back
// to defaults; environment variables override both.
func LoadConfig(filename string) (*Config, error) {
	cfg := &Config{
		Raffle: RaffleConfig{KeeperEnabled: true},
		Oracle: OracleConfig{AutoProvision: true},
	}

	data, err := os.ReadFile(filename)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":8080"
	}
	if c.HTTP.RateLimit <= 0 {
		c.HTTP.RateLimit = 10
	}
	if c.HTTP.RateBurst <= 0 {
		c.HTTP.RateBurst = 20
	}
	if c.JWT.DefaultTTL <= 0 {
		c.JWT.DefaultTTL = 24 * time.Hour
	}
	if c.Observability.Environment == "" {
		c.Observability.Environment = "development"
	}
	if c.Observability.TraceSampleRate <= 0 {
		c.Observability.TraceSampleRate = 0.1
	}

	r := &c.Raffle
	if r.ID == "" {
		r.ID = DefaultRaffleID.String()
	}
	if r.Address == "" {
		r.Address = "raffle-main"
	}
	if r.EntranceFee == 0 {
		r.EntranceFee = DefaultEntranceFee
	}
	if r.Interval == 0 {
		r.Interval = DefaultInterval
	}
	if r.KeyHash == "" {
		r.KeyHash = DefaultKeyHash
	}
	if r.CallbackGasLimit == 0 {
		r.CallbackGasLimit = DefaultCallbackGasLimit
	}
	if r.KeeperInterval == 0 {
		r.KeeperInterval = DefaultKeeperInterval
	}

	o := &c.Oracle
	if o.BaseFee == 0 {
		o.BaseFee = DefaultBaseFee
	}
	if o.GasPrice == 0 {
		o.GasPrice = DefaultGasPrice
	}
	if o.FulfillmentGas == 0 {
		o.FulfillmentGas = DefaultFulfillmentGas
	}
	if o.BlockTime == 0 {
		o.BlockTime = DefaultBlockTime
	}
	if o.Owner == "" {
		o.Owner = "deployer"
	}
	if o.FundAmount == 0 {
		o.FundAmount = DefaultFundAmount
	}
	if o.BreakerFailures == 0 {
		o.BreakerFailures = 5
	}
	if o.BreakerOpenDelay == 0 {
		o.BreakerOpenDelay = 30 * time.Second
	}
}

// Validate reports settings the service cannot start with.
func (c *Config) Validate() error {
	if c.Postgres.DSN == "" {
		return fmt.Errorf("postgres dsn is required (DATABASE_URL)")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt secret is required (JWT_SECRET)")
	}
	if _, err := uuid.Parse(c.Raffle.ID); err != nil {
		return fmt.Errorf("invalid raffle id %q: %w", c.Raffle.ID, err)
	}
	if c.Raffle.EntranceFee < 0 {
		return fmt.Errorf("entrance fee must not be negative, got %d", c.Raffle.EntranceFee)
	}
	if c.Raffle.Interval < 0 {
		return fmt.Errorf("interval must not be negative, got %s", c.Raffle.Interval)
	}
	if c.Oracle.BlockTime < MinBlockTime {
		return fmt.Errorf("oracle block_time must be at least %s, got %s", MinBlockTime, c.Oracle.BlockTime)
	}
	if !c.Oracle.AutoProvision && c.Raffle.SubscriptionID == 0 {
		return fmt.Errorf("raffle subscription_id is required when auto provisioning is disabled")
	}
	return nil
}

func (c *Config) applyEnv() error {
	str := map[string]*string{
		"DATABASE_URL":    &c.Postgres.DSN,
		"NATS_URL":        &c.NATS.URL,
		"HTTP_ADDRESS":    &c.HTTP.Address,
		"JWT_SECRET":      &c.JWT.Secret,
		"ENV":             &c.Observability.Environment,
		"LOG_LEVEL":       &c.Observability.LogLevel,
		"METRICS_ADDRESS": &c.Observability.MetricsAddress,
		"OTLP_ENDPOINT":   &c.Observability.OTLPEndpoint,
		"RAFFLE_ID":       &c.Raffle.ID,
		"RAFFLE_ADDRESS":  &c.Raffle.Address,
		"RAFFLE_KEY_HASH": &c.Raffle.KeyHash,
		"ORACLE_SEED":     &c.Oracle.Seed,
		"ORACLE_OWNER":    &c.Oracle.Owner,
	}
	for key, dst := range str {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"JWT_DEFAULT_TTL":      &c.JWT.DefaultTTL,
		"RAFFLE_INTERVAL":      &c.Raffle.Interval,
		"KEEPER_POLL_INTERVAL": &c.Raffle.KeeperInterval,
		"ORACLE_BLOCK_TIME":    &c.Oracle.BlockTime,
	}
	for key, dst := range durations {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid %s value: %w", key, err)
			}
			*dst = d
		}
	}

	ints := map[string]*int64{
		"RAFFLE_ENTRANCE_FEE":    &c.Raffle.EntranceFee,
		"RAFFLE_SUBSCRIPTION_ID": &c.Raffle.SubscriptionID,
		"ORACLE_FUND_AMOUNT":     &c.Oracle.FundAmount,
	}
	for key, dst := range ints {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid %s value: %w", key, err)
			}
			*dst = n
		}
	}

	bools := map[string]*bool{
		"OTLP_INSECURE":         &c.Observability.OTLPInsecure,
		"KEEPER_ENABLED":        &c.Raffle.KeeperEnabled,
		"ORACLE_AUTO_PROVISION": &c.Oracle.AutoProvision,
	}
	for key, dst := range bools {
		if v := os.Getenv(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid %s value: %w", key, err)
			}
			*dst = b
		}
	}

	if v := os.Getenv("TRACE_SAMPLE_RATE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid TRACE_SAMPLE_RATE value: %w", err)
		}
		c.Observability.TraceSampleRate = f
	}
	return nil
}
