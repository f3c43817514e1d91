// Package config defines the top-level configuration for the arbitrage bot
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by ARBBOT_* environment variables.
type Config struct {
	Kalshi     KalshiConfig     `toml:"kalshi"`
	Polymarket PolymarketConfig `toml:"polymarket"`
	Reference  ReferenceConfig  `toml:"reference"`
	Wallet     WalletConfig     `toml:"wallet"`
	Risk       RiskConfig       `toml:"risk"`
	Fees       FeesConfig       `toml:"fees"`
	Breaker    BreakerConfig    `toml:"breaker"`
	KillSwitch KillSwitchConfig `toml:"kill_switch"`
	Database   DatabaseConfig   `toml:"database"`
	Redis      RedisConfig      `toml:"redis"`
	Server     ServerConfig     `toml:"server"`

	DryRun            bool    `toml:"dry_run"`
	PollingIntervalSec float64 `toml:"polling_interval_sec"`
	LogLevel          string  `toml:"log_level"`
	LogFormat         string  `toml:"log_format"` // "text" or "json"
	Environment       string  `toml:"environment"`
}

// KalshiConfig holds Kalshi exchange connection parameters.
//
// EventTicker is the bound hourly event ticker (e.g. "KXBTCD-25JUL2914")
// whose markets are polled every tick; constructing it from the current
// hour is left to the deployer rather than invented here (spec.md §9).
type KalshiConfig struct {
	BaseURL           string `toml:"base_url"`
	WsURL             string `toml:"ws_url"`
	ApiKeyID          string `toml:"api_key_id"`
	RsaPrivateKeyPath string `toml:"rsa_private_key_path"`
	EventTicker       string `toml:"event_ticker"`
}

// PolymarketConfig holds Polymarket CLOB connection parameters.
//
// TokenUp/TokenDown are the CLOB token ids for the bound hourly market's
// Up/Down outcomes. The (event, strike) -> token id mapping is left as an
// open question by the source this spec was distilled from (spec.md §9);
// this deployment supplies the two ids it needs directly as configuration.
type PolymarketConfig struct {
	ClobHost  string `toml:"clob_host"`
	GammaHost string `toml:"gamma_host"`
	WsURL     string `toml:"ws_url"`
	ChainID   int    `toml:"chain_id"`
	TokenUp   string `toml:"token_up"`
	TokenDown string `toml:"token_down"`
}

// ReferenceConfig holds the reference-price feed connection parameters.
// RestURL and CandlesURL are deliberately distinct venue URLs: RestURL backs
// the live-price REST fallback (used when the WS push feed is down),
// CandlesURL backs the once-per-hour open-price (K*) fetch.
type ReferenceConfig struct {
	WsURL      string `toml:"ws_url"`
	RestURL    string `toml:"rest_url"`    // live-price fallback endpoint
	CandlesURL string `toml:"candles_url"` // 1h-candle/open-price endpoint
	Symbol     string `toml:"symbol"`
}

// WalletConfig holds the Ethereum wallet credentials used to sign Polymarket
// orders. The key can be supplied directly (PrivateKey) or at rest as an
// EncryptedKeyPath produced by crypto.EncryptKey, decrypted with KeyPassword
// at wire time — see crypto.LoadKey's resolution order.
type WalletConfig struct {
	PrivateKey       string `toml:"private_key"`
	ChainID          int    `toml:"chain_id"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
}

// RiskConfig holds the risk-manager gate thresholds (spec.md §4.6, §6).
type RiskConfig struct {
	MaxSingleTradeUSD  float64 `toml:"max_single_trade_usd"`
	MaxTotalExposureUSD float64 `toml:"max_total_exposure_usd"`
	MaxDailyLossUSD    float64 `toml:"max_daily_loss_usd"`
	MaxTradesPerHour   int     `toml:"max_trades_per_hour"`
	MinNetMargin       float64 `toml:"min_net_margin"`
}

// FeesConfig holds the fee-engine parameters (spec.md §4.1).
type FeesConfig struct {
	KalshiFeePerContract float64 `toml:"kalshi_fee_per_contract"`
	PolymarketGasCost    float64 `toml:"polymarket_gas_cost"`
	SlippageBuffer       float64 `toml:"slippage_buffer"`
}

// BreakerConfig holds the circuit-breaker thresholds (spec.md §4.7).
type BreakerConfig struct {
	MaxConsecutiveFailures int     `toml:"max_consecutive_failures"`
	ErrorRateThreshold     float64 `toml:"error_rate_threshold"`
	ErrorRateWindowSec     int     `toml:"error_rate_window_sec"`
	ErrorRateMinSamples    int     `toml:"error_rate_min_samples"`
	StalenessThresholdSec  float64 `toml:"staleness_threshold_sec"`
	CooldownSec            int     `toml:"cooldown_sec"`
}

// KillSwitchConfig holds kill-switch parameters (spec.md §4.8).
type KillSwitchConfig struct {
	Token        string `toml:"token"`
	SentinelPath string `toml:"sentinel_path"`
}

// DatabaseConfig holds PostgreSQL connection parameters backing the
// append-only persistence layer (spec.md §4.12). The "DB_PATH" option named
// in spec.md §6 maps onto DSN/Host — see DESIGN.md for the SQLite->Postgres
// adaptation rationale.
type DatabaseConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters, used for the single-flight
// execution lock and the operator HTTP API's per-client rate limit
// (SPEC_FULL.md §3).
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// ServerConfig holds the operator HTTP surface parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`

	// RateLimitRequests/RateLimitWindowSec bound the operator API's
	// per-client request rate (spec.md §5's REST rate budget, applied
	// here to this service's own surface).
	RateLimitRequests  int     `toml:"rate_limit_requests"`
	RateLimitWindowSec float64 `toml:"rate_limit_window_sec"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding.
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with the default values named in spec.md §6.
func Defaults() Config {
	return Config{
		Kalshi: KalshiConfig{
			BaseURL: "https://api.elections.kalshi.com/trade-api/v2",
			WsURL:   "wss://api.elections.kalshi.com/trade-api/ws/v2",
		},
		Polymarket: PolymarketConfig{
			ClobHost:  "https://clob.polymarket.com",
			GammaHost: "https://gamma-api.polymarket.com",
			WsURL:     "wss://ws-subscriptions-clob.polymarket.com/ws/market",
			ChainID:   137,
		},
		Reference: ReferenceConfig{
			WsURL:      "wss://stream.binance.com:9443/ws/btcusdt@trade",
			RestURL:    "https://api.binance.com/api/v3/ticker/price",
			CandlesURL: "https://api.binance.com/api/v3/klines",
			Symbol:     "BTCUSDT",
		},
		Wallet: WalletConfig{
			ChainID: 137,
		},
		Risk: RiskConfig{
			MaxSingleTradeUSD:   50,
			MaxTotalExposureUSD: 500,
			MaxDailyLossUSD:     100,
			MaxTradesPerHour:    20,
			MinNetMargin:        0.02,
		},
		Fees: FeesConfig{
			KalshiFeePerContract: 0.03,
			PolymarketGasCost:    0.002,
			SlippageBuffer:       0.005,
		},
		Breaker: BreakerConfig{
			MaxConsecutiveFailures: 3,
			ErrorRateThreshold:     0.5,
			ErrorRateWindowSec:     300,
			ErrorRateMinSamples:    5,
			StalenessThresholdSec:  30,
			CooldownSec:            300,
		},
		KillSwitch: KillSwitchConfig{
			Token:        "",
			SentinelPath: "kill_switch.flag",
		},
		Database: DatabaseConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "arbbot",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
		},
		Server: ServerConfig{
			Port:               8000,
			CORSOrigins:        []string{"*"},
			RateLimitRequests:  60,
			RateLimitWindowSec: 60,
		},
		DryRun:             true,
		PollingIntervalSec: 1.0,
		LogLevel:           "info",
		LogFormat:          "json",
		Environment:        "development",
	}
}

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
var validLogFormats = map[string]bool{"text": true, "json": true}

// Validate checks Config for invalid or missing values and returns a combined
// error describing every problem found, in the teacher's aggregate style.
func (c *Config) Validate() error {
	var errs []string

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}
	if !validLogFormats[strings.ToLower(c.LogFormat)] {
		errs = append(errs, fmt.Sprintf("unknown log_format %q (valid: text, json)", c.LogFormat))
	}

	if c.Kalshi.BaseURL == "" {
		errs = append(errs, "kalshi: base_url must not be empty")
	}
	if c.Polymarket.ClobHost == "" {
		errs = append(errs, "polymarket: clob_host must not be empty")
	}
	if c.Polymarket.ChainID <= 0 {
		errs = append(errs, "polymarket: chain_id must be positive")
	}
	if c.Reference.WsURL == "" {
		errs = append(errs, "reference: ws_url must not be empty")
	}

	if !c.DryRun && c.Wallet.PrivateKey == "" && c.Wallet.EncryptedKeyPath == "" {
		errs = append(errs, "wallet: private_key or encrypted_key_path is required when dry_run is false")
	}
	if c.Wallet.EncryptedKeyPath != "" && c.Wallet.KeyPassword == "" {
		errs = append(errs, "wallet: key_password is required when encrypted_key_path is set")
	}

	if c.Risk.MaxSingleTradeUSD <= 0 {
		errs = append(errs, "risk: max_single_trade_usd must be > 0")
	}
	if c.Risk.MaxTotalExposureUSD <= 0 {
		errs = append(errs, "risk: max_total_exposure_usd must be > 0")
	}
	if c.Risk.MaxDailyLossUSD <= 0 {
		errs = append(errs, "risk: max_daily_loss_usd must be > 0")
	}
	if c.Risk.MaxTradesPerHour < 1 {
		errs = append(errs, "risk: max_trades_per_hour must be >= 1")
	}
	if c.Risk.MinNetMargin < 0 {
		errs = append(errs, "risk: min_net_margin must be >= 0")
	}

	if c.Breaker.MaxConsecutiveFailures < 1 {
		errs = append(errs, "breaker: max_consecutive_failures must be >= 1")
	}
	if c.Breaker.CooldownSec < 1 {
		errs = append(errs, "breaker: cooldown_sec must be >= 1")
	}

	if strings.TrimSpace(c.Database.DSN) == "" {
		if c.Database.Host == "" {
			errs = append(errs, "database: host must not be empty (or set database.dsn)")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, fmt.Sprintf("database: port must be 1-65535, got %d", c.Database.Port))
		}
		if c.Database.Database == "" {
			errs = append(errs, "database: database name must not be empty")
		}
	}
	if c.Database.PoolMaxConns < 1 {
		errs = append(errs, "database: pool_max_conns must be >= 1")
	}
	if c.Database.PoolMinConns > c.Database.PoolMaxConns {
		errs = append(errs, "database: pool_min_conns must not exceed pool_max_conns")
	}

	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
	}

	if c.PollingIntervalSec <= 0 {
		errs = append(errs, "polling_interval_sec must be > 0")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
