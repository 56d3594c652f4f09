package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `json:"server"`
	App       AppConfig       `json:"app"`
	Chains    ChainsConfig    `json:"chains"`
	Cache     CacheConfig     `json:"cache"`
	RateLimit RateLimitConfig `json:"rate_limit"`
	Auth      AuthConfig      `json:"auth"`
	MongoDB   MongoDBConfig   `json:"mongodb"`
	Logging   LoggingConfig   `json:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         string        `json:"port"`
	Host         string        `json:"host"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
	MaxBodyBytes int64         `json:"max_body_bytes"`
}

// AppConfig holds process-wide settings reported by the health endpoint
type AppConfig struct {
	Environment string `json:"environment"`
}

// ChainsConfig holds the per-network client settings
type ChainsConfig struct {
	ETH  EVMConfig  `json:"eth"`
	BSC  EVMConfig  `json:"bsc"`
	Tron TronConfig `json:"tron"`
	BTC  BTCConfig  `json:"btc"`
	TON  TONConfig  `json:"ton"`

	// CallTimeout bounds every individual chain client call.
	CallTimeout time.Duration `json:"call_timeout"`
}

// EVMConfig holds the settings of one EVM-compatible network
type EVMConfig struct {
	RPCURL         string        `json:"rpc_url"`
	ChainID        int64         `json:"chain_id"`
	WaitForReceipt bool          `json:"wait_for_receipt"`
	ReceiptTimeout time.Duration `json:"receipt_timeout"`
	PollInterval   time.Duration `json:"poll_interval"`
}

// TronConfig holds TronGrid HTTP API settings
type TronConfig struct {
	APIURL string `json:"api_url"`
	APIKey string `json:"api_key"`

	// RequestsPerSecond paces calls to the node; zero means unpaced
	RequestsPerSecond float64 `json:"requests_per_second"`
}

// BTCConfig holds Bitcoin wallet generation settings
type BTCConfig struct {
	Network     string `json:"network"`
	AddressType string `json:"address_type"`
}

// TONConfig holds Toncenter HTTP API settings
type TONConfig struct {
	APIURL            string  `json:"api_url"`
	APIKey            string  `json:"api_key"`
	Testnet           bool    `json:"testnet"`
	RequestsPerSecond float64 `json:"requests_per_second"`
}

// CacheConfig holds balance cache configuration
type CacheConfig struct {
	TTL             time.Duration `json:"ttl"`
	CleanupInterval time.Duration `json:"cleanup_interval"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Requests        int           `json:"requests"`
	Window          time.Duration `json:"window"`
	CleanupInterval time.Duration `json:"cleanup_interval"`
}

// AuthConfig toggles API key authentication on the gateway routes
type AuthConfig struct {
	Enabled bool `json:"enabled"`
}

// MongoDBConfig holds MongoDB connection configuration
type MongoDBConfig struct {
	URI              string        `json:"uri"`
	Database         string        `json:"database"`
	APIKeyCollection string        `json:"api_key_collection"`
	ConnectTimeout   time.Duration `json:"connect_timeout"`
	MaxPoolSize      uint64        `json:"max_pool_size"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level       string   `json:"level"`
	Environment string   `json:"environment"`
	OutputPaths []string `json:"output_paths"`
	File        string   `json:"file"`
	MaxSizeMB   int      `json:"max_size_mb"`
	MaxBackups  int      `json:"max_backups"`
	MaxAgeDays  int      `json:"max_age_days"`
}

// supported values for BTC_NETWORK
var btcNetworks = map[string]bool{
	"mainnet":  true,
	"testnet3": true,
	"testnet":  true,
	"regtest":  true,
	"signet":   true,
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_READ_TIMEOUT", 10*time.Second)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 90*time.Second)
	v.SetDefault("SERVER_IDLE_TIMEOUT", 60*time.Second)
	v.SetDefault("SERVER_MAX_BODY_BYTES", 64<<10)

	v.SetDefault("APP_ENV", "development")

	v.SetDefault("ETH_RPC_URL", "https://ethereum-rpc.publicnode.com")
	v.SetDefault("ETH_CHAIN_ID", 1)
	v.SetDefault("BSC_RPC_URL", "https://bsc-dataseed1.binance.org/")
	v.SetDefault("BSC_CHAIN_ID", 56)
	v.SetDefault("EVM_WAIT_FOR_RECEIPT", false)
	v.SetDefault("EVM_RECEIPT_TIMEOUT", 60*time.Second)
	v.SetDefault("EVM_RECEIPT_POLL_INTERVAL", 2*time.Second)
	v.SetDefault("TRON_API_URL", "https://api.trongrid.io")
	v.SetDefault("TRON_API_KEY", "")
	v.SetDefault("TRON_REQUESTS_PER_SECOND", 0)
	v.SetDefault("BTC_NETWORK", "mainnet")
	v.SetDefault("BTC_ADDRESS_TYPE", "p2pkh")
	v.SetDefault("TON_API_URL", "https://toncenter.com/api/v2")
	v.SetDefault("TON_API_KEY", "")
	v.SetDefault("TON_TESTNET", false)
	// toncenter answers one request per second without an API key
	v.SetDefault("TON_REQUESTS_PER_SECOND", 1)
	v.SetDefault("CHAIN_CALL_TIMEOUT", 30*time.Second)

	v.SetDefault("BALANCE_CACHE_TTL", 10*time.Second)
	v.SetDefault("BALANCE_CACHE_CLEANUP_INTERVAL", time.Minute)

	v.SetDefault("RATE_LIMIT_REQUESTS", 100)
	v.SetDefault("RATE_LIMIT_WINDOW", 15*time.Minute)
	v.SetDefault("RATE_LIMIT_CLEANUP_INTERVAL", 5*time.Minute)

	v.SetDefault("AUTH_ENABLED", false)
	v.SetDefault("MONGODB_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGODB_DATABASE", "chain_gateway")
	v.SetDefault("MONGODB_APIKEY_COLLECTION", "api_keys")
	v.SetDefault("MONGODB_CONNECT_TIMEOUT", 10*time.Second)
	v.SetDefault("MONGODB_MAX_POOL_SIZE", 100)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_ENVIRONMENT", "development")
	v.SetDefault("LOG_OUTPUT_PATHS", "stdout")
	v.SetDefault("LOG_FILE", "")
	v.SetDefault("LOG_MAX_SIZE_MB", 100)
	v.SetDefault("LOG_MAX_BACKUPS", 7)
	v.SetDefault("LOG_MAX_AGE_DAYS", 7)
}

// LoadConfig loads configuration from an optional .env file and the environment
func LoadConfig() *Config {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	return fromViper(v)
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Server: ServerConfig{
			Port:         v.GetString("SERVER_PORT"),
			Host:         v.GetString("SERVER_HOST"),
			ReadTimeout:  v.GetDuration("SERVER_READ_TIMEOUT"),
			WriteTimeout: v.GetDuration("SERVER_WRITE_TIMEOUT"),
			IdleTimeout:  v.GetDuration("SERVER_IDLE_TIMEOUT"),
			MaxBodyBytes: v.GetInt64("SERVER_MAX_BODY_BYTES"),
		},
		App: AppConfig{
			Environment: v.GetString("APP_ENV"),
		},
		Chains: ChainsConfig{
			ETH: EVMConfig{
				RPCURL:         v.GetString("ETH_RPC_URL"),
				ChainID:        v.GetInt64("ETH_CHAIN_ID"),
				WaitForReceipt: v.GetBool("EVM_WAIT_FOR_RECEIPT"),
				ReceiptTimeout: v.GetDuration("EVM_RECEIPT_TIMEOUT"),
				PollInterval:   v.GetDuration("EVM_RECEIPT_POLL_INTERVAL"),
			},
			BSC: EVMConfig{
				RPCURL:         v.GetString("BSC_RPC_URL"),
				ChainID:        v.GetInt64("BSC_CHAIN_ID"),
				WaitForReceipt: v.GetBool("EVM_WAIT_FOR_RECEIPT"),
				ReceiptTimeout: v.GetDuration("EVM_RECEIPT_TIMEOUT"),
				PollInterval:   v.GetDuration("EVM_RECEIPT_POLL_INTERVAL"),
			},
			Tron: TronConfig{
				APIURL:            v.GetString("TRON_API_URL"),
				APIKey:            v.GetString("TRON_API_KEY"),
				RequestsPerSecond: v.GetFloat64("TRON_REQUESTS_PER_SECOND"),
			},
			BTC: BTCConfig{
				Network:     strings.ToLower(v.GetString("BTC_NETWORK")),
				AddressType: strings.ToLower(v.GetString("BTC_ADDRESS_TYPE")),
			},
			TON: TONConfig{
				APIURL:            v.GetString("TON_API_URL"),
				APIKey:            v.GetString("TON_API_KEY"),
				Testnet:           v.GetBool("TON_TESTNET"),
				RequestsPerSecond: v.GetFloat64("TON_REQUESTS_PER_SECOND"),
			},
			CallTimeout: v.GetDuration("CHAIN_CALL_TIMEOUT"),
		},
		Cache: CacheConfig{
			TTL:             v.GetDuration("BALANCE_CACHE_TTL"),
			CleanupInterval: v.GetDuration("BALANCE_CACHE_CLEANUP_INTERVAL"),
		},
		RateLimit: RateLimitConfig{
			Requests:        v.GetInt("RATE_LIMIT_REQUESTS"),
			Window:          v.GetDuration("RATE_LIMIT_WINDOW"),
			CleanupInterval: v.GetDuration("RATE_LIMIT_CLEANUP_INTERVAL"),
		},
		Auth: AuthConfig{
			Enabled: v.GetBool("AUTH_ENABLED"),
		},
		MongoDB: MongoDBConfig{
			URI:              v.GetString("MONGODB_URI"),
			Database:         v.GetString("MONGODB_DATABASE"),
			APIKeyCollection: v.GetString("MONGODB_APIKEY_COLLECTION"),
			ConnectTimeout:   v.GetDuration("MONGODB_CONNECT_TIMEOUT"),
			MaxPoolSize:      v.GetUint64("MONGODB_MAX_POOL_SIZE"),
		},
		Logging: LoggingConfig{
			Level:       v.GetString("LOG_LEVEL"),
			Environment: v.GetString("LOG_ENVIRONMENT"),
			OutputPaths: splitList(v.GetString("LOG_OUTPUT_PATHS")),
			File:        v.GetString("LOG_FILE"),
			MaxSizeMB:   v.GetInt("LOG_MAX_SIZE_MB"),
			MaxBackups:  v.GetInt("LOG_MAX_BACKUPS"),
			MaxAgeDays:  v.GetInt("LOG_MAX_AGE_DAYS"),
		},
	}
}

// Validate reports the first setting that would make the server misbehave
func (c *Config) Validate() error {
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("SERVER_MAX_BODY_BYTES must be positive, got %d", c.Server.MaxBodyBytes)
	}
	if c.RateLimit.Requests <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be positive, got %d", c.RateLimit.Requests)
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive, got %s", c.RateLimit.Window)
	}
	if c.Chains.CallTimeout <= 0 {
		return fmt.Errorf("CHAIN_CALL_TIMEOUT must be positive, got %s", c.Chains.CallTimeout)
	}
	if !btcNetworks[c.Chains.BTC.Network] {
		return fmt.Errorf("unknown BTC_NETWORK %q", c.Chains.BTC.Network)
	}
	switch c.Chains.BTC.AddressType {
	case "p2pkh", "p2wpkh":
	default:
		return fmt.Errorf("unknown BTC_ADDRESS_TYPE %q (want p2pkh or p2wpkh)", c.Chains.BTC.AddressType)
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("BALANCE_CACHE_TTL cannot be negative")
	}
	if c.Chains.Tron.RequestsPerSecond < 0 || c.Chains.TON.RequestsPerSecond < 0 {
		return fmt.Errorf("TRON_REQUESTS_PER_SECOND and TON_REQUESTS_PER_SECOND cannot be negative")
	}
	return nil
}

// splitList parses a comma separated list, dropping empty items
func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
