package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"market-flipper/src/helpers"
	"market-flipper/src/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment overrides, applied after the YAML file.
const (
	EnvDBDSN     = "FLIPPER_DB_DSN"
	EnvRedisAddr = "FLIPPER_REDIS_ADDR"
	EnvUserAgent = "FLIPPER_USER_AGENT"
	EnvLogLevel  = "FLIPPER_LOG_LEVEL"
	EnvPort      = "FLIPPER_PORT"
)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// Defaults returns the configuration used for any key the YAML file omits.
func Defaults() *models.MConfig {
	return &models.MConfig{
		Name:           "market-flipper",
		Host:           "127.0.0.1",
		Port:           8000,
		LogLevel:       "INFO",
		GrpcHost:       "127.0.0.1",
		GrpcPort:       50051,
		TickIntervalMs: 5000,
		Filters: models.MFilterConfig{
			MembersOnly: false,
			MinVolume:   5000,
			MinBuyLimit: 50,
		},
		Risk: models.MRiskConfig{
			MaxPricePerUnit:            5_000_000,
			MaxCapitalPerItem:          10_000_000,
			BuyLimitUtilizationPercent: 80,
			FeeSlippagePercent:         1.2,
		},
		Strategies: models.MStrategiesConfig{
			Spread: models.MSpreadConfig{
				Enable:              true,
				MinSpreadPercent:    2.0,
				MinNetSpreadPercent: 1.2,
				MinNetProfitGp:      1500,
				MinNetRoiPercent:    2.5,
				MaxOpenPositions:    4,
			},
			MeanReversion: models.MMeanReversionConfig{
				Enable:                false,
				LookbackTicks:         240,
				EntryDeviationPercent: 2.0,
				ExitDeviationPercent:  0.8,
				UseBollinger:          true,
				BollingerLookback:     120,
				BollingerStdDevs:      2.0,
				MinNetProfitGp:        2000,
				MaxPositions:          3,
			},
			PairsTrading: models.MPairsTradingConfig{
				Enable:                     false,
				CorrelationWindow:          240,
				MinCorrelation:             0.90,
				EntryZScore:                2.0,
				MaxActivePairs:             2,
				RequireBothLegsPassFilters: true,
				MinNetEdgePercent:          1.0,
				MinNetProfitGp:             1500,
			},
			Discovery: models.MDiscoveryConfig{
				Enable:         false,
				TopNByVolume:   300,
				ScanEveryTicks: 30,
				MinSamples:     30,
				MaxOutput:      100,
			},
		},
		Storage: models.MStorageConfig{
			DBType:        "none",
			DBPath:        "flipper.db",
			RetentionDays: 30,
		},
		Network: models.MNetworkConfig{
			RequestTimeout: 30,
			MaxRetries:     3,
		},
		Redis: models.MRedisConfig{
			KeyPrefix: "flipper",
		},
	}
}

// -----------------------------------------------------------------------------

// NewConfig creates a new Config from a YAML file layered over Defaults.
// A .env file next to the working directory is loaded if present.
func NewConfig(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, helpers.NewConfigurationError(fmt.Sprintf("failed to read config file '%s'", configPath), err)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, helpers.NewConfigurationError("failed to load .env", err)
	}

	return Parse(data)
}

// -----------------------------------------------------------------------------

// Parse builds a validated Config from YAML bytes and the process environment.
func Parse(data []byte) (*Config, error) {
	modelConfig := Defaults()
	if err := yaml.Unmarshal(data, modelConfig); err != nil {
		return nil, helpers.NewConfigurationError("failed to parse config from YAML", err)
	}

	config := &Config{MConfig: modelConfig}
	if err := config.ApplyEnv(); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, helpers.NewConfigurationError("config validation failed", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

// ApplyEnv overrides connection settings from the environment.
func (c *Config) ApplyEnv() error {
	if dsn := os.Getenv(EnvDBDSN); dsn != "" {
		c.Storage.DBConnectionString = dsn
	}
	if addr := os.Getenv(EnvRedisAddr); addr != "" {
		c.Redis.Addr = addr
		c.Redis.Enabled = true
	}
	if ua := os.Getenv(EnvUserAgent); ua != "" {
		c.Network.UserAgent = ua
	}
	if lvl := os.Getenv(EnvLogLevel); lvl != "" {
		c.LogLevel = strings.ToUpper(lvl)
	}
	if port := os.Getenv(EnvPort); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return helpers.NewConfigurationError(fmt.Sprintf("invalid %s", EnvPort), err)
		}
		c.Port = p
	}
	return nil
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	// App
	if c.Name == "" {
		return helpers.NewValidationError("application name cannot be empty")
	}
	if c.Host == "" {
		return helpers.NewValidationError("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return helpers.NewValidationError(fmt.Sprintf("invalid server port number: %d (must be between 1025 and 65535)", c.Port))
	}
	if c.GrpcPort < 0 || c.GrpcPort > 65535 {
		return helpers.NewValidationError(fmt.Sprintf("invalid grpc port number: %d", c.GrpcPort))
	}
	if c.TickIntervalMs < 100 {
		return helpers.NewValidationError("tick interval must be at least 100ms")
	}

	// Risk
	if c.Risk.FeeSlippagePercent < 0 || c.Risk.FeeSlippagePercent >= 100 {
		return helpers.NewValidationError(fmt.Sprintf("fee/slippage percent out of range: %v", c.Risk.FeeSlippagePercent))
	}
	if c.Risk.BuyLimitUtilizationPercent < 0 || c.Risk.BuyLimitUtilizationPercent > 100 {
		return helpers.NewValidationError(fmt.Sprintf("buy limit utilization percent out of range: %v", c.Risk.BuyLimitUtilizationPercent))
	}

	// Strategies
	mr := c.Strategies.MeanReversion
	if mr.Enable && (mr.LookbackTicks <= 0 || (mr.UseBollinger && mr.BollingerLookback <= 0)) {
		return helpers.NewValidationError("mean reversion lookbacks must be greater than 0")
	}
	pt := c.Strategies.PairsTrading
	if pt.Enable && pt.CorrelationWindow <= 0 {
		return helpers.NewValidationError("pairs correlation window must be greater than 0")
	}
	if c.Strategies.Discovery.ScanEveryTicks < 0 {
		return helpers.NewValidationError("discovery scan interval cannot be negative")
	}

	// Storage
	switch c.Storage.DBType {
	case "", "none":
	case "sqlite":
		if c.Storage.DBPath == "" {
			return helpers.NewValidationError("database path cannot be empty for sqlite")
		}
	case "postgres":
		if c.Storage.DBConnectionString == "" {
			return helpers.NewValidationError(fmt.Sprintf("postgres requires db_connection_string or %s", EnvDBDSN))
		}
	default:
		return helpers.NewValidationError(fmt.Sprintf("unsupported database type: %s", c.Storage.DBType))
	}

	// Network
	if c.Network.RequestTimeout <= 0 {
		return helpers.NewValidationError("request timeout must be greater than 0")
	}
	if c.Network.MaxRetries < 0 {
		return helpers.NewValidationError("max retries cannot be negative")
	}

	// Redis
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return helpers.NewValidationError(fmt.Sprintf("redis enabled without addr (set redis.addr or %s)", EnvRedisAddr))
	}

	return nil
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}
