// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Documented floors for financial-risk parameters. The adaptive policy
// may tighten these, never relax them, and configuration below a floor
// is rejected at startup.
const (
	FloorMinProfitThreshold = 0.005  // 0.5%
	FloorMinLiquidityUSD    = 100000 // $100k
)

// Config holds all application configuration.
type Config struct {
	App        AppConfig              `mapstructure:"app"`
	Chains     map[string]ChainConfig `mapstructure:"chains"`
	Market     MarketConfig           `mapstructure:"market"`
	Detection  DetectionConfig        `mapstructure:"detection"`
	Simulation SimulationConfig       `mapstructure:"simulation"`
	Execution  ExecutionConfig        `mapstructure:"execution"`
	Policy     PolicyConfig           `mapstructure:"policy"`
	Storage    StorageConfig          `mapstructure:"storage"`
	Telemetry  TelemetryConfig        `mapstructure:"telemetry"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
}

// ChainConfig holds per-chain connectivity and scan settings.
type ChainConfig struct {
	Name            string        `mapstructure:"name"`
	ChainID         uint64        `mapstructure:"chain_id"`
	RPCURL          string        `mapstructure:"rpc_url"`
	WSURL           string        `mapstructure:"ws_url"`
	Enabled         bool          `mapstructure:"enabled"`
	ScanInterval    time.Duration `mapstructure:"scan_interval"`
	MaxGasPriceGwei int64         `mapstructure:"max_gas_price_gwei"`
	RPCRateLimit    int           `mapstructure:"rpc_rate_limit"` // requests per minute
}

// PoolConfig identifies a monitored liquidity pool.
type PoolConfig struct {
	ChainID uint64 `mapstructure:"chain_id"`
	DEXID   string `mapstructure:"dex_id"`
	Address string `mapstructure:"address"`
	TokenA  string `mapstructure:"token_a"`
	TokenB  string `mapstructure:"token_b"`
	FeeBps  int64  `mapstructure:"fee_bps"`
}

// AddressHex returns the pool address as common.Address.
func (p *PoolConfig) AddressHex() common.Address {
	return common.HexToAddress(p.Address)
}

// MarketConfig holds market data ingestion settings.
type MarketConfig struct {
	Pools        []PoolConfig  `mapstructure:"pools"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	FeedURL      string        `mapstructure:"feed_url"` // optional push feed
	StaleTimeout time.Duration `mapstructure:"stale_timeout"`
}

// DetectionConfig holds opportunity detection settings.
type DetectionConfig struct {
	MinProfitThreshold float64       `mapstructure:"min_profit_threshold"` // fraction, e.g. 0.005
	MinLiquidityUSD    float64       `mapstructure:"min_liquidity_usd"`
	FreshnessBound     time.Duration `mapstructure:"freshness_bound"`
	MaxHops            int           `mapstructure:"max_hops"`
	MaxCandidates      int           `mapstructure:"max_candidates"`
	MaxRiskScore       float64       `mapstructure:"max_risk_score"`
	BaseAssets         []string      `mapstructure:"base_assets"`
	Concurrency        int           `mapstructure:"concurrency"`
}

// MinProfitThresholdDecimal returns the threshold as decimal.Decimal.
func (c *DetectionConfig) MinProfitThresholdDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.MinProfitThreshold)
}

// MinLiquidityUSDDecimal returns the liquidity floor as decimal.Decimal.
func (c *DetectionConfig) MinLiquidityUSDDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.MinLiquidityUSD)
}

// SimulationConfig holds trade simulation settings.
type SimulationConfig struct {
	SlippageCeilingBps int64   `mapstructure:"slippage_ceiling_bps"`
	GasPriceMultiplier float64 `mapstructure:"gas_price_multiplier"`
	SearchIterations   int     `mapstructure:"search_iterations"`
	LadderSteps        int     `mapstructure:"ladder_steps"`
}

// ProviderConfig describes a flashloan provider entry in the static catalog.
type ProviderConfig struct {
	ID              string   `mapstructure:"id"`
	Name            string   `mapstructure:"name"`
	FeeBps          int64    `mapstructure:"fee_bps"`
	Chains          []uint64 `mapstructure:"chains"`
	MaxLiquidityUSD float64  `mapstructure:"max_liquidity_usd"`
	Enabled         bool     `mapstructure:"enabled"`
}

// ExecutionConfig holds flashloan execution settings.
type ExecutionConfig struct {
	Enabled          bool             `mapstructure:"enabled"`
	WalletPrivateKey string           `mapstructure:"wallet_private_key"`
	MaxRetries       int              `mapstructure:"max_retries"`
	InitialBackoff   time.Duration    `mapstructure:"initial_backoff"`
	MaxBackoff       time.Duration    `mapstructure:"max_backoff"`
	ConfirmTimeout   time.Duration    `mapstructure:"confirm_timeout"`
	Providers        []ProviderConfig `mapstructure:"providers"`
	CatalogURL       string           `mapstructure:"catalog_url"` // optional HTTP catalog refresh
	CatalogInterval  time.Duration    `mapstructure:"catalog_interval"`
	// ExecutorContracts maps a decimal chain ID to the deployed
	// arbitrage executor contract on that chain.
	ExecutorContracts map[string]string `mapstructure:"executor_contracts"`
}

// ExecutorContract returns the executor contract address for a chain.
func (c *ExecutionConfig) ExecutorContract(chainID uint64) (common.Address, bool) {
	raw, ok := c.ExecutorContracts[strconv.FormatUint(chainID, 10)]
	if !ok || !common.IsHexAddress(raw) {
		return common.Address{}, false
	}
	return common.HexToAddress(raw), true
}

// PolicyConfig holds policy training settings.
type PolicyConfig struct {
	TrainInterval time.Duration `mapstructure:"train_interval"`
	MinAttempts   int           `mapstructure:"min_attempts"`
	HistoryWindow int           `mapstructure:"history_window"` // attempts per training batch
}

// StorageConfig holds persistence endpoints. Both are optional; absent
// endpoints degrade to in-memory implementations.
type StorageConfig struct {
	PostgresURL string `mapstructure:"postgres_url"`
	RedisURL    string `mapstructure:"redis_url"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables
	v.SetEnvPrefix("FLASHARB")
	v.AutomaticEnv()

	// Bind env vars to config keys
	bindEnvVars(v)

	// Set defaults
	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.name", "FLASHARB_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "FLASHARB_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "FLASHARB_LOG_LEVEL", "LOG_LEVEL")

	// Chains
	v.BindEnv("chains.polygon.rpc_url", "FLASHARB_POLYGON_RPC_URL", "POLYGON_RPC_URL")
	v.BindEnv("chains.base.rpc_url", "FLASHARB_BASE_RPC_URL", "BASE_RPC_URL")
	v.BindEnv("chains.optimism.rpc_url", "FLASHARB_OPTIMISM_RPC_URL", "OPTIMISM_RPC_URL")
	v.BindEnv("chains.arbitrum.rpc_url", "FLASHARB_ARBITRUM_RPC_URL", "ARBITRUM_RPC_URL")
	v.BindEnv("chains.bsc.rpc_url", "FLASHARB_BSC_RPC_URL", "BSC_RPC_URL")

	// Detection
	v.BindEnv("detection.min_profit_threshold", "FLASHARB_MIN_PROFIT_THRESHOLD", "MIN_PROFIT_THRESHOLD")
	v.BindEnv("detection.min_liquidity_usd", "FLASHARB_MIN_LIQUIDITY_USD", "MIN_LIQUIDITY_THRESHOLD")
	v.BindEnv("detection.freshness_bound", "FLASHARB_FRESHNESS_BOUND")
	v.BindEnv("detection.max_hops", "FLASHARB_MAX_HOPS")

	// Execution
	v.BindEnv("execution.enabled", "FLASHARB_EXECUTION_ENABLED", "AUTO_EXECUTE")
	v.BindEnv("execution.wallet_private_key", "FLASHARB_WALLET_PRIVATE_KEY", "WALLET_PRIVATE_KEY")

	// Storage
	v.BindEnv("storage.postgres_url", "FLASHARB_POSTGRES_URL", "DATABASE_URL")
	v.BindEnv("storage.redis_url", "FLASHARB_REDIS_URL", "REDIS_URL")

	// Telemetry
	v.BindEnv("telemetry.enabled", "FLASHARB_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "FLASHARB_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "FLASHARB_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "flasharb")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	// Chain defaults
	v.SetDefault("chains.polygon.name", "Polygon")
	v.SetDefault("chains.polygon.chain_id", 137)
	v.SetDefault("chains.polygon.enabled", true)
	v.SetDefault("chains.polygon.scan_interval", "30s")
	v.SetDefault("chains.polygon.max_gas_price_gwei", 100)
	v.SetDefault("chains.polygon.rpc_rate_limit", 120)
	v.SetDefault("chains.base.name", "Base")
	v.SetDefault("chains.base.chain_id", 8453)
	v.SetDefault("chains.base.enabled", true)
	v.SetDefault("chains.base.scan_interval", "30s")
	v.SetDefault("chains.base.max_gas_price_gwei", 5)
	v.SetDefault("chains.base.rpc_rate_limit", 120)
	v.SetDefault("chains.optimism.name", "Optimism")
	v.SetDefault("chains.optimism.chain_id", 10)
	v.SetDefault("chains.optimism.enabled", true)
	v.SetDefault("chains.optimism.scan_interval", "30s")
	v.SetDefault("chains.optimism.max_gas_price_gwei", 5)
	v.SetDefault("chains.optimism.rpc_rate_limit", 120)
	v.SetDefault("chains.arbitrum.name", "Arbitrum")
	v.SetDefault("chains.arbitrum.chain_id", 42161)
	v.SetDefault("chains.arbitrum.enabled", true)
	v.SetDefault("chains.arbitrum.scan_interval", "30s")
	v.SetDefault("chains.arbitrum.max_gas_price_gwei", 1)
	v.SetDefault("chains.arbitrum.rpc_rate_limit", 120)
	v.SetDefault("chains.bsc.name", "BSC")
	v.SetDefault("chains.bsc.chain_id", 56)
	v.SetDefault("chains.bsc.enabled", false)
	v.SetDefault("chains.bsc.scan_interval", "30s")
	v.SetDefault("chains.bsc.max_gas_price_gwei", 5)
	v.SetDefault("chains.bsc.rpc_rate_limit", 120)

	// Market defaults
	v.SetDefault("market.poll_interval", "10s")
	v.SetDefault("market.stale_timeout", "30s")

	// Detection defaults
	v.SetDefault("detection.min_profit_threshold", FloorMinProfitThreshold)
	v.SetDefault("detection.min_liquidity_usd", FloorMinLiquidityUSD)
	v.SetDefault("detection.freshness_bound", "10s")
	v.SetDefault("detection.max_hops", 4)
	v.SetDefault("detection.max_candidates", 10)
	v.SetDefault("detection.max_risk_score", 70)
	v.SetDefault("detection.base_assets", []string{"USDC", "WETH"})
	v.SetDefault("detection.concurrency", 4)

	// Simulation defaults
	v.SetDefault("simulation.slippage_ceiling_bps", 100)
	v.SetDefault("simulation.gas_price_multiplier", 1.2)
	v.SetDefault("simulation.search_iterations", 48)
	v.SetDefault("simulation.ladder_steps", 8)

	// Execution defaults
	v.SetDefault("execution.enabled", false)
	v.SetDefault("execution.max_retries", 3)
	v.SetDefault("execution.initial_backoff", "1s")
	v.SetDefault("execution.max_backoff", "30s")
	v.SetDefault("execution.confirm_timeout", "90s")
	v.SetDefault("execution.catalog_interval", "5m")
	v.SetDefault("execution.providers", []map[string]any{
		{"id": "aave", "name": "Aave", "fee_bps": 9, "chains": []uint64{137, 10, 42161}, "max_liquidity_usd": 50_000_000, "enabled": true},
		{"id": "balancer", "name": "Balancer", "fee_bps": 6, "chains": []uint64{137, 42161, 8453, 10}, "max_liquidity_usd": 20_000_000, "enabled": true},
		{"id": "dydx", "name": "dYdX", "fee_bps": 0, "chains": []uint64{42161}, "max_liquidity_usd": 10_000_000, "enabled": true},
	})

	// Policy defaults
	v.SetDefault("policy.train_interval", "10m")
	v.SetDefault("policy.min_attempts", 25)
	v.SetDefault("policy.history_window", 1000)

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "flasharb")
	v.SetDefault("telemetry.prometheus_port", 9090)
}

// Validate validates the configuration. Financial-risk parameters are
// checked strictly; a bad value here halts startup rather than being
// silently defaulted.
func (c *Config) Validate() error {
	if c.Detection.MinProfitThreshold < FloorMinProfitThreshold {
		return fmt.Errorf("detection.min_profit_threshold %.4f below documented floor %.4f",
			c.Detection.MinProfitThreshold, FloorMinProfitThreshold)
	}
	if c.Detection.MinLiquidityUSD < FloorMinLiquidityUSD {
		return fmt.Errorf("detection.min_liquidity_usd %.0f below documented floor %d",
			c.Detection.MinLiquidityUSD, FloorMinLiquidityUSD)
	}
	if c.Detection.FreshnessBound <= 0 {
		return fmt.Errorf("detection.freshness_bound must be positive")
	}
	if c.Detection.MaxHops < 2 {
		return fmt.Errorf("detection.max_hops must be at least 2")
	}
	if c.Simulation.SlippageCeilingBps <= 0 {
		return fmt.Errorf("simulation.slippage_ceiling_bps must be positive")
	}

	anyEnabled := false
	for name, chain := range c.Chains {
		if !chain.Enabled {
			continue
		}
		anyEnabled = true
		if chain.RPCURL == "" {
			return fmt.Errorf("chains.%s.rpc_url is required for enabled chain", name)
		}
		if chain.ChainID == 0 {
			return fmt.Errorf("chains.%s.chain_id is required", name)
		}
		if chain.MaxGasPriceGwei <= 0 {
			return fmt.Errorf("chains.%s.max_gas_price_gwei must be positive", name)
		}
	}
	if !anyEnabled {
		return fmt.Errorf("at least one chain must be enabled")
	}

	for i, pool := range c.Market.Pools {
		if !common.IsHexAddress(pool.Address) {
			return fmt.Errorf("market.pools[%d].address is not a hex address: %s", i, pool.Address)
		}
	}

	if c.Execution.Enabled && c.Execution.WalletPrivateKey == "" {
		return fmt.Errorf("execution.wallet_private_key is required when execution is enabled")
	}
	if c.Execution.MaxRetries < 0 {
		return fmt.Errorf("execution.max_retries must not be negative")
	}
	for key, addr := range c.Execution.ExecutorContracts {
		if !common.IsHexAddress(addr) {
			return fmt.Errorf("execution.executor_contracts[%s] is not a hex address: %s", key, addr)
		}
	}

	return nil
}

// EnabledChains returns the enabled chain configs keyed by chain ID.
func (c *Config) EnabledChains() map[uint64]ChainConfig {
	out := make(map[uint64]ChainConfig)
	for _, chain := range c.Chains {
		if chain.Enabled {
			out[chain.ChainID] = chain
		}
	}
	return out
}
