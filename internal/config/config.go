package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config application configuration structure
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	NATS       NATSConfig       `yaml:"nats"`
	Blockchain BlockchainConfig `yaml:"blockchain"`
	Paymaster  PaymasterConfig  `yaml:"paymaster"`
	Admin      AdminConfig      `yaml:"admin"` // Admin API access control configuration
	CORS       CORSConfig       `yaml:"cors"`  // CORS configuration
}

// ServerConfig server configuration
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig database configuration
type DatabaseConfig struct {
	DSN    string `yaml:"dsn"`
	Driver string `yaml:"driver"`
}

// NATSConfig NATS message server configuration
type NATSConfig struct {
	URL             string             `yaml:"url"`
	Timeout         int                `yaml:"timeout"`
	ReconnectWait   int                `yaml:"reconnect_wait"`
	MaxReconnects   int                `yaml:"max_reconnects"`
	EnableJetStream bool               `yaml:"enable_jetstream"`
	Subjects        NATSSubjectsConfig `yaml:"subjects"`
}

// NATSSubjectsConfig subjects this service consumes and publishes
type NATSSubjectsConfig struct {
	RootUpdates  string `yaml:"root_updates"` // consumed: pool tree root announcements
	Sponsorships string `yaml:"sponsorships"` // published: settled sponsorship records
}

// BlockchainConfig chain access configuration
type BlockchainConfig struct {
	RPCEndpoint        string `yaml:"rpcEndpoint"`
	ChainID            int64  `yaml:"chainId"`
	PoolContract       string `yaml:"poolContract"`        // privacy pool entrypoint
	ASPRegistryAddress string `yaml:"aspRegistryContract"` // association-set provider registry
	RootHistorySize    int    `yaml:"rootHistorySize"`
}

// PaymasterConfig sponsorship engine configuration
type PaymasterConfig struct {
	SponsorAddress          string `yaml:"sponsorAddress"` // fee recipient every withdrawal must name
	VerifyingKeyPath        string `yaml:"verifyingKeyPath"`
	PostSettlementAllowance uint64 `yaml:"postSettlementAllowance"` // gas units charged on top of actual cost
	RefundPrivateKey        string `yaml:"-"`                       // env only, never from file
}

// AdminConfig admin API access control
type AdminConfig struct {
	JWTSecret    string   `yaml:"jwtSecret"`
	TOTPSecret   string   `yaml:"totpSecret"`
	PasswordHash string   `yaml:"passwordHash"` // bcrypt hash of the admin password
	AllowedIPs   []string `yaml:"allowedIPs"`   // extra IPs/CIDRs beside localhost
}

// CORSConfig CORS configuration
type CORSConfig struct {
	AllowedOrigins   []string `yaml:"allowedOrigins"`
	AllowCredentials bool     `yaml:"allowCredentials"`
	MaxAge           int      `yaml:"maxAge"`
}

// AppConfig global application configuration
var AppConfig *Config

// LoadConfig loads configuration from yaml with environment overrides
func LoadConfig(configPath string) error {
	if configPath == "" {
		configPath = "config.yaml"
		if _, err := os.Stat("config.local.yaml"); err == nil {
			configPath = "config.local.yaml"
			log.Printf("🔧 Using local configuration file: config.local.yaml")
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	overrideFromEnv(&config)
	applyDefaults(&config)

	if config.Paymaster.SponsorAddress == "" {
		return fmt.Errorf("paymaster.sponsorAddress is required")
	}
	if config.Blockchain.PoolContract == "" {
		return fmt.Errorf("blockchain.poolContract is required")
	}

	log.Printf("✅ Configuration loaded from %s (pool=%s, sponsor=%s)",
		configPath, config.Blockchain.PoolContract, config.Paymaster.SponsorAddress)
	if len(config.Admin.AllowedIPs) > 0 {
		log.Printf("📋 Admin IP whitelist: %d IPs/CIDRs configured", len(config.Admin.AllowedIPs))
	} else {
		log.Printf("📋 Admin IP whitelist: not configured (localhost-only mode)")
	}

	AppConfig = &config
	return nil
}

// overrideFromEnv applies environment variable overrides
func overrideFromEnv(config *Config) {
	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		config.Database.DSN = dsn
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if url := os.Getenv("NATS_URL"); url != "" {
		config.NATS.URL = url
	}
	if rpc := os.Getenv("RPC_ENDPOINT"); rpc != "" {
		config.Blockchain.RPCEndpoint = rpc
	}
	if pool := os.Getenv("POOL_CONTRACT"); pool != "" {
		config.Blockchain.PoolContract = pool
	}
	if asp := os.Getenv("ASP_REGISTRY_CONTRACT"); asp != "" {
		config.Blockchain.ASPRegistryAddress = asp
	}
	if sponsor := os.Getenv("SPONSOR_ADDRESS"); sponsor != "" {
		config.Paymaster.SponsorAddress = sponsor
	}
	if vk := os.Getenv("VERIFYING_KEY_PATH"); vk != "" {
		config.Paymaster.VerifyingKeyPath = vk
	}
	if key := os.Getenv("REFUND_PRIVATE_KEY"); key != "" {
		config.Paymaster.RefundPrivateKey = key
	}
	if secret := os.Getenv("ADMIN_JWT_SECRET"); secret != "" {
		config.Admin.JWTSecret = secret
	}
	if secret := os.Getenv("ADMIN_TOTP_SECRET"); secret != "" {
		config.Admin.TOTPSecret = secret
	}
	if hash := os.Getenv("ADMIN_PASSWORD_HASH"); hash != "" {
		config.Admin.PasswordHash = hash
	}
}

func applyDefaults(config *Config) {
	if config.Server.Host == "" {
		config.Server.Host = "0.0.0.0"
	}
	if config.Server.Port == 0 {
		config.Server.Port = 8080
	}
	if config.Database.Driver == "" {
		config.Database.Driver = "postgres"
	}
	if config.Blockchain.RootHistorySize == 0 {
		config.Blockchain.RootHistorySize = 64
	}
	if config.Paymaster.PostSettlementAllowance == 0 {
		config.Paymaster.PostSettlementAllowance = 42_000
	}
	if config.NATS.Subjects.RootUpdates == "" {
		config.NATS.Subjects.RootUpdates = "pool.roots.updated"
	}
	if config.NATS.Subjects.Sponsorships == "" {
		config.NATS.Subjects.Sponsorships = "sponsor.records.settled"
	}
}
