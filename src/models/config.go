package models

// MConfig Structure
type MConfig struct {
	Name           string            `yaml:"name"`
	Host           string            `yaml:"host"`
	Port           int               `yaml:"port"`
	LogLevel       string            `yaml:"log_level"`
	GrpcHost       string            `yaml:"grpc_host"`
	GrpcPort       int               `yaml:"grpc_port"`
	TickIntervalMs int               `yaml:"tick_interval_ms"`
	Filters        MFilterConfig     `yaml:"filters"`
	Risk           MRiskConfig       `yaml:"risk"`
	Strategies     MStrategiesConfig `yaml:"strategies"`
	Storage        MStorageConfig    `yaml:"storage"`
	Network        MNetworkConfig    `yaml:"network"`
	Redis          MRedisConfig      `yaml:"redis"`
}

// GetLogLevel lets the logger read the level without importing config.
func (c *MConfig) GetLogLevel() string {
	return c.LogLevel
}

// Item-universe pre-screens.
type MFilterConfig struct {
	MembersOnly bool `yaml:"members_only"`
	MinVolume   int  `yaml:"min_volume"`
	MinBuyLimit int  `yaml:"min_buy_limit"`
}

type MRiskConfig struct {
	MaxPricePerUnit            int     `yaml:"max_price_per_unit"`
	MaxCapitalPerItem          int     `yaml:"max_capital_per_item"`
	BuyLimitUtilizationPercent float64 `yaml:"buy_limit_utilization_pct"`
	FeeSlippagePercent         float64 `yaml:"fee_slippage_pct"`
}

type MStrategiesConfig struct {
	Spread        MSpreadConfig        `yaml:"spread"`
	MeanReversion MMeanReversionConfig `yaml:"mean_reversion"`
	PairsTrading  MPairsTradingConfig  `yaml:"pairs_trading"`
	Discovery     MDiscoveryConfig     `yaml:"discovery"`
}

type MSpreadConfig struct {
	Enable              bool    `yaml:"enable"`
	MinSpreadPercent    float64 `yaml:"min_spread_pct"`
	MinNetSpreadPercent float64 `yaml:"min_net_spread_pct"`
	MinNetProfitGp      int     `yaml:"min_net_profit_gp"`
	MinNetRoiPercent    float64 `yaml:"min_net_roi_pct"`
	MaxOpenPositions    int     `yaml:"max_open_positions"`
}

type MMeanReversionConfig struct {
	Enable                bool    `yaml:"enable"`
	LookbackTicks         int     `yaml:"lookback_ticks"`
	EntryDeviationPercent float64 `yaml:"entry_deviation_pct"`
	ExitDeviationPercent  float64 `yaml:"exit_deviation_pct"`
	UseBollinger          bool    `yaml:"use_bollinger"`
	BollingerLookback     int     `yaml:"bb_lookback_ticks"`
	BollingerStdDevs      float64 `yaml:"bb_std_devs"`
	MinNetProfitGp        int     `yaml:"min_net_profit_gp"`
	MaxPositions          int     `yaml:"max_positions"`
}

type MPairsTradingConfig struct {
	Enable                     bool     `yaml:"enable"`
	CorrelationWindow          int      `yaml:"correlation_window"`
	MinCorrelation             float64  `yaml:"min_correlation"`
	EntryZScore                float64  `yaml:"entry_z"`
	MaxActivePairs             int      `yaml:"max_active_pairs"`
	RequireBothLegsPassFilters bool     `yaml:"require_both_legs_pass_filters"`
	MinNetEdgePercent          float64  `yaml:"min_edge_pct"`
	MinNetProfitGp             int      `yaml:"min_net_profit_gp"`
	Pairs                      [][2]int `yaml:"pairs"`
}

type MDiscoveryConfig struct {
	Enable         bool `yaml:"enable"`
	TopNByVolume   int  `yaml:"top_n_by_volume"`
	ScanEveryTicks int  `yaml:"scan_every_ticks"`
	MinSamples     int  `yaml:"min_samples"`
	MaxOutput      int  `yaml:"max_output"`
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type"` // sqlite, postgres or none
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
	RetentionDays      int    `yaml:"retention_days"`
}

type MNetworkConfig struct {
	BaseURL        string `yaml:"base_url"`
	RequestTimeout int    `yaml:"timeout"`
	MaxRetries     int    `yaml:"retries"`
	UserAgent      string `yaml:"user_agent"`
}

type MRedisConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}
