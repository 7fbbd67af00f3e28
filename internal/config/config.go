package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	Quotes     QuotesConfig     `mapstructure:"quotes"`
	Polymarket PolymarketConfig `mapstructure:"polymarket"`
	Arbitrage  ArbitrageConfig  `mapstructure:"arbitrage"`
	Accuracy   AccuracyConfig   `mapstructure:"accuracy"`
	Tickers    []TickerRule     `mapstructure:"tickers"`
	Overrides  map[string]string `mapstructure:"overrides"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Snapshot   SnapshotConfig   `mapstructure:"snapshot"`
	Telegram   TelegramConfig   `mapstructure:"telegram"`
	Run        RunConfig        `mapstructure:"run"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// QuotesConfig holds market-data provider configuration
type QuotesConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	Symbols        []string      `mapstructure:"symbols"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// PolymarketConfig holds prediction-market venue configuration
type PolymarketConfig struct {
	GammaAPIURL string        `mapstructure:"gamma_api_url"`
	CLOBAPIURL  string        `mapstructure:"clob_api_url"`
	Limit       int           `mapstructure:"limit"`
	Timeout     time.Duration `mapstructure:"timeout"`
	BookTimeout time.Duration `mapstructure:"book_timeout"`
	Concurrency int           `mapstructure:"concurrency"`
}

// ArbitrageConfig holds evaluator thresholds
type ArbitrageConfig struct {
	MaxEdgePct          float64 `mapstructure:"max_edge_pct"`
	HotDeviation        float64 `mapstructure:"hot_deviation"`
	HotDeviationRelaxed float64 `mapstructure:"hot_deviation_relaxed"`
	HotRelaxBelow       int     `mapstructure:"hot_relax_below"`
	HotMaxBundle        float64 `mapstructure:"hot_max_bundle"`
	HotTopK             int     `mapstructure:"hot_top_k"`
}

// AccuracyConfig holds prediction-scoring and settlement configuration.
// The window hour boundaries are local-time constants inherited from the
// dashboard's original tuning; they are configurable but deliberately not
// holiday-aware.
type AccuracyConfig struct {
	Timezone            string        `mapstructure:"timezone"`
	ValidityStartHour   int           `mapstructure:"validity_start_hour"`
	ValidityEndHour     int           `mapstructure:"validity_end_hour"`
	SettlementStartHour int           `mapstructure:"settlement_start_hour"`
	SettlementEndHour   int           `mapstructure:"settlement_end_hour"`
	NoiseFloor          float64       `mapstructure:"noise_floor"`
	MaxRecords          int           `mapstructure:"max_records"`
	Concurrency         int           `mapstructure:"concurrency"`
	LookupTimeout       time.Duration `mapstructure:"lookup_timeout"`
	HistoryPath         string        `mapstructure:"history_path"`
}

// TickerRule maps one tracked equity to its related secondary-market names
// and the thresholds that classify its daily move. BearBelow is nil for
// equities that never map to a bearish call (bullish-or-neutral only).
type TickerRule struct {
	Symbol     string   `mapstructure:"symbol"`
	Related    string   `mapstructure:"related"`
	BullAbove  float64  `mapstructure:"bull_above"`
	BearBelow  *float64 `mapstructure:"bear_below"`
	BullImpact string   `mapstructure:"bull_impact"`
	BaseImpact string   `mapstructure:"base_impact"`
}

// StorageConfig holds SQLite persistence configuration
type StorageConfig struct {
	DBPath string `mapstructure:"db_path"`
}

// SnapshotConfig holds the renderer-handoff artifact configuration
type SnapshotConfig struct {
	Path string `mapstructure:"path"`
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	Enabled        bool          `mapstructure:"enabled"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// RunConfig holds run-loop configuration. Interval 0 means run one cycle
// and exit (external scheduler).
type RunConfig struct {
	Interval        time.Duration `mapstructure:"interval"`
	MarketHoursOnly bool          `mapstructure:"market_hours_only"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)
	setDefaults(v)

	v.SetEnvPrefix("OPENCLAW")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// List- and map-valued sections fall back to the built-in table when the
	// file leaves them out; viper defaults are awkward for those shapes.
	if len(cfg.Tickers) == 0 {
		cfg.Tickers = DefaultTickerRules()
	}
	if len(cfg.Overrides) == 0 {
		cfg.Overrides = DefaultOverrides()
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// Quotes defaults
	v.SetDefault("quotes.base_url", "https://query1.finance.yahoo.com")
	v.SetDefault("quotes.symbols", []string{
		"TSLA", "NVDA", "AAPL", "MSFT", "AMZN", "GOOGL", "META", "AVGO", "TSM", "ASML", "ARM",
	})
	v.SetDefault("quotes.timeout", "10s")
	v.SetDefault("quotes.max_retries", 3)
	v.SetDefault("quotes.retry_delay_base", "1s")

	// Polymarket defaults
	v.SetDefault("polymarket.gamma_api_url", "https://gamma-api.polymarket.com")
	v.SetDefault("polymarket.clob_api_url", "https://clob.polymarket.com")
	v.SetDefault("polymarket.limit", 40)
	v.SetDefault("polymarket.timeout", "10s")
	v.SetDefault("polymarket.book_timeout", "5s")
	v.SetDefault("polymarket.concurrency", 10)

	// Arbitrage defaults
	v.SetDefault("arbitrage.max_edge_pct", 50.0)
	v.SetDefault("arbitrage.hot_deviation", 0.005)
	v.SetDefault("arbitrage.hot_deviation_relaxed", 0.002)
	v.SetDefault("arbitrage.hot_relax_below", 5)
	v.SetDefault("arbitrage.hot_max_bundle", 1.05)
	v.SetDefault("arbitrage.hot_top_k", 10)

	// Accuracy defaults
	v.SetDefault("accuracy.timezone", "Asia/Taipei")
	v.SetDefault("accuracy.validity_start_hour", 9)
	v.SetDefault("accuracy.validity_end_hour", 20)
	v.SetDefault("accuracy.settlement_start_hour", 14)
	v.SetDefault("accuracy.settlement_end_hour", 22)
	v.SetDefault("accuracy.noise_floor", 0.001)
	v.SetDefault("accuracy.max_records", 60)
	v.SetDefault("accuracy.concurrency", 5)
	v.SetDefault("accuracy.lookup_timeout", "10s")
	v.SetDefault("accuracy.history_path", "./data/accuracy_log.json")

	// Storage defaults
	v.SetDefault("storage.db_path", "./data/openclaw.db")

	// Snapshot defaults
	v.SetDefault("snapshot.path", "./data/dashboard.json")

	// Telegram defaults
	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "1s")

	// Run defaults
	v.SetDefault("run.interval", "0s")
	v.SetDefault("run.market_hours_only", true)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// DefaultTickerRules returns the built-in equity correlation table.
func DefaultTickerRules() []TickerRule {
	one := 1.0
	negOne := -1.0
	return []TickerRule{
		{
			Symbol:     "TSLA",
			Related:    "台積電、鴻海、貿聯-KY",
			BullAbove:  one,
			BearBelow:  &negOne,
			BullImpact: "電動車供應鏈受惠",
			BaseImpact: "需求擔憂影響",
		},
		{Symbol: "NVDA", Related: "台積電、廣達、技嘉、世芯-KY", BullAbove: one, BearBelow: &negOne, BullImpact: "AI 半導體需求強勁", BaseImpact: "半導體族群回檔"},
		{Symbol: "AVGO", Related: "台積電、廣達、技嘉、世芯-KY", BullAbove: one, BearBelow: &negOne, BullImpact: "AI 半導體需求強勁", BaseImpact: "半導體族群回檔"},
		{Symbol: "TSM", Related: "台積電、廣達、技嘉、世芯-KY", BullAbove: one, BearBelow: &negOne, BullImpact: "AI 半導體需求強勁", BaseImpact: "半導體族群回檔"},
		{Symbol: "ASML", Related: "台積電、廣達、技嘉、世芯-KY", BullAbove: one, BearBelow: &negOne, BullImpact: "AI 半導體需求強勁", BaseImpact: "半導體族群回檔"},
		{Symbol: "ARM", Related: "台積電、廣達、技嘉、世芯-KY", BullAbove: one, BearBelow: &negOne, BullImpact: "AI 半導體需求強勁", BaseImpact: "半導體族群回檔"},
		// Mega-cap group never maps to a bearish call from a single day's
		// move: bullish above +0.5%, otherwise neutral.
		{Symbol: "AAPL", Related: "台積電、鴻海、大立光、廣達", BullAbove: 0.5, BullImpact: "大型科技股資本支出", BaseImpact: "科技股高檔震盪"},
		{Symbol: "MSFT", Related: "台積電、鴻海、大立光、廣達", BullAbove: 0.5, BullImpact: "大型科技股資本支出", BaseImpact: "科技股高檔震盪"},
		{Symbol: "GOOGL", Related: "台積電、鴻海、大立光、廣達", BullAbove: 0.5, BullImpact: "大型科技股資本支出", BaseImpact: "科技股高檔震盪"},
		{Symbol: "META", Related: "台積電、鴻海、大立光、廣達", BullAbove: 0.5, BullImpact: "大型科技股資本支出", BaseImpact: "科技股高檔震盪"},
		{Symbol: "AMZN", Related: "台積電、鴻海、大立光、廣達", BullAbove: 0.5, BullImpact: "大型科技股資本支出", BaseImpact: "科技股高檔震盪"},
	}
}

// DefaultOverrides returns the built-in secondary-name to exchange-symbol
// override table, checked before any search lookup.
func DefaultOverrides() map[string]string {
	return map[string]string{
		"台積電":   "2330.TW",
		"鴻海":    "2317.TW",
		"廣達":    "2382.TW",
		"技嘉":    "2376.TW",
		"世芯-KY": "3661.TW",
		"大立光":   "3008.TW",
		"貿聯-KY": "3665.TW",
	}
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if c.Quotes.BaseURL == "" {
		return fmt.Errorf("quotes.base_url is required")
	}
	if len(c.Quotes.Symbols) == 0 {
		return fmt.Errorf("quotes.symbols must contain at least one symbol")
	}
	if c.Quotes.Timeout <= 0 {
		return fmt.Errorf("quotes.timeout must be positive")
	}

	if c.Polymarket.GammaAPIURL == "" {
		return fmt.Errorf("polymarket.gamma_api_url is required")
	}
	if c.Polymarket.CLOBAPIURL == "" {
		return fmt.Errorf("polymarket.clob_api_url is required")
	}
	if c.Polymarket.Limit < 1 || c.Polymarket.Limit > 500 {
		return fmt.Errorf("polymarket.limit must be between 1 and 500")
	}
	if c.Polymarket.Concurrency < 1 || c.Polymarket.Concurrency > 64 {
		return fmt.Errorf("polymarket.concurrency must be between 1 and 64")
	}
	if c.Polymarket.BookTimeout <= 0 {
		return fmt.Errorf("polymarket.book_timeout must be positive")
	}

	if c.Arbitrage.MaxEdgePct <= 0 {
		return fmt.Errorf("arbitrage.max_edge_pct must be positive")
	}
	if c.Arbitrage.HotDeviation <= 0 || c.Arbitrage.HotDeviationRelaxed <= 0 {
		return fmt.Errorf("arbitrage hot deviations must be positive")
	}
	if c.Arbitrage.HotDeviationRelaxed > c.Arbitrage.HotDeviation {
		return fmt.Errorf("arbitrage.hot_deviation_relaxed must not exceed arbitrage.hot_deviation")
	}
	if c.Arbitrage.HotTopK < 1 {
		return fmt.Errorf("arbitrage.hot_top_k must be at least 1")
	}

	if err := validateHourWindow("accuracy validity", c.Accuracy.ValidityStartHour, c.Accuracy.ValidityEndHour); err != nil {
		return err
	}
	if err := validateHourWindow("accuracy settlement", c.Accuracy.SettlementStartHour, c.Accuracy.SettlementEndHour); err != nil {
		return err
	}
	if c.Accuracy.Timezone == "" {
		return fmt.Errorf("accuracy.timezone is required")
	}
	if c.Accuracy.NoiseFloor < 0 {
		return fmt.Errorf("accuracy.noise_floor must not be negative")
	}
	if c.Accuracy.MaxRecords < 1 {
		return fmt.Errorf("accuracy.max_records must be at least 1")
	}
	if c.Accuracy.Concurrency < 1 || c.Accuracy.Concurrency > 64 {
		return fmt.Errorf("accuracy.concurrency must be between 1 and 64")
	}
	if c.Accuracy.HistoryPath == "" {
		return fmt.Errorf("accuracy.history_path is required")
	}

	for i, rule := range c.Tickers {
		if rule.Symbol == "" {
			return fmt.Errorf("tickers[%d].symbol is required", i)
		}
		if rule.Related == "" {
			return fmt.Errorf("tickers[%d].related is required", i)
		}
		if rule.BearBelow != nil && *rule.BearBelow >= rule.BullAbove {
			return fmt.Errorf("tickers[%d]: bear_below must be less than bull_above", i)
		}
	}

	if c.Storage.DBPath == "" {
		return fmt.Errorf("storage.db_path is required")
	}
	if c.Snapshot.Path == "" {
		return fmt.Errorf("snapshot.path is required")
	}

	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}

	if c.Run.Interval != 0 && c.Run.Interval < time.Minute {
		return fmt.Errorf("run.interval must be 0 (single run) or at least 1 minute")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}

func validateHourWindow(name string, start, end int) error {
	if start < 0 || start > 23 || end < 0 || end > 23 {
		return fmt.Errorf("%s hours must be between 0 and 23", name)
	}
	if start > end {
		return fmt.Errorf("%s start hour must not be after end hour", name)
	}
	return nil
}
