package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies ARBBOT_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known ARBBOT_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Kalshi ──
	setStr(&cfg.Kalshi.BaseURL, "ARBBOT_KALSHI_BASE_URL")
	setStr(&cfg.Kalshi.WsURL, "ARBBOT_KALSHI_WS_URL")
	setStr(&cfg.Kalshi.ApiKeyID, "ARBBOT_KALSHI_API_KEY_ID")
	setStr(&cfg.Kalshi.RsaPrivateKeyPath, "ARBBOT_KALSHI_RSA_PRIVATE_KEY_PATH")
	setStr(&cfg.Kalshi.EventTicker, "ARBBOT_KALSHI_EVENT_TICKER")

	// ── Polymarket ──
	setStr(&cfg.Polymarket.ClobHost, "ARBBOT_POLYMARKET_CLOB_HOST")
	setStr(&cfg.Polymarket.GammaHost, "ARBBOT_POLYMARKET_GAMMA_HOST")
	setStr(&cfg.Polymarket.WsURL, "ARBBOT_POLYMARKET_WS_URL")
	setInt(&cfg.Polymarket.ChainID, "ARBBOT_POLYMARKET_CHAIN_ID")
	setStr(&cfg.Polymarket.TokenUp, "ARBBOT_POLYMARKET_TOKEN_UP")
	setStr(&cfg.Polymarket.TokenDown, "ARBBOT_POLYMARKET_TOKEN_DOWN")

	// ── Reference price ──
	setStr(&cfg.Reference.WsURL, "ARBBOT_REFERENCE_WS_URL")
	setStr(&cfg.Reference.RestURL, "ARBBOT_REFERENCE_REST_URL")
	setStr(&cfg.Reference.CandlesURL, "ARBBOT_REFERENCE_CANDLES_URL")
	setStr(&cfg.Reference.Symbol, "ARBBOT_REFERENCE_SYMBOL")

	// ── Wallet ──
	setStr(&cfg.Wallet.PrivateKey, "ARBBOT_WALLET_PRIVATE_KEY")
	setInt(&cfg.Wallet.ChainID, "ARBBOT_WALLET_CHAIN_ID")
	setStr(&cfg.Wallet.EncryptedKeyPath, "ARBBOT_WALLET_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Wallet.KeyPassword, "ARBBOT_WALLET_KEY_PASSWORD")

	// ── Risk ──
	setFloat64(&cfg.Risk.MaxSingleTradeUSD, "ARBBOT_RISK_MAX_SINGLE_TRADE_USD")
	setFloat64(&cfg.Risk.MaxTotalExposureUSD, "ARBBOT_RISK_MAX_TOTAL_EXPOSURE_USD")
	setFloat64(&cfg.Risk.MaxDailyLossUSD, "ARBBOT_RISK_MAX_DAILY_LOSS_USD")
	setInt(&cfg.Risk.MaxTradesPerHour, "ARBBOT_RISK_MAX_TRADES_PER_HOUR")
	setFloat64(&cfg.Risk.MinNetMargin, "ARBBOT_RISK_MIN_NET_MARGIN")

	// ── Fees ──
	setFloat64(&cfg.Fees.KalshiFeePerContract, "ARBBOT_FEES_KALSHI_FEE_PER_CONTRACT")
	setFloat64(&cfg.Fees.PolymarketGasCost, "ARBBOT_FEES_POLYMARKET_GAS_COST")
	setFloat64(&cfg.Fees.SlippageBuffer, "ARBBOT_FEES_SLIPPAGE_BUFFER")

	// ── Breaker ──
	setInt(&cfg.Breaker.MaxConsecutiveFailures, "ARBBOT_BREAKER_MAX_CONSECUTIVE_FAILURES")
	setFloat64(&cfg.Breaker.ErrorRateThreshold, "ARBBOT_BREAKER_ERROR_RATE_THRESHOLD")
	setInt(&cfg.Breaker.ErrorRateWindowSec, "ARBBOT_BREAKER_ERROR_RATE_WINDOW_SEC")
	setInt(&cfg.Breaker.ErrorRateMinSamples, "ARBBOT_BREAKER_ERROR_RATE_MIN_SAMPLES")
	setFloat64(&cfg.Breaker.StalenessThresholdSec, "ARBBOT_BREAKER_STALENESS_THRESHOLD_SEC")
	setInt(&cfg.Breaker.CooldownSec, "ARBBOT_BREAKER_COOLDOWN_SEC")

	// ── Kill switch ──
	setStr(&cfg.KillSwitch.Token, "ARBBOT_KILL_SWITCH_TOKEN")
	setStr(&cfg.KillSwitch.SentinelPath, "ARBBOT_KILL_SWITCH_SENTINEL_PATH")

	// ── Database ──
	setStr(&cfg.Database.DSN, "ARBBOT_DATABASE_DSN")
	setStr(&cfg.Database.Host, "ARBBOT_DATABASE_HOST")
	setInt(&cfg.Database.Port, "ARBBOT_DATABASE_PORT")
	setStr(&cfg.Database.Database, "ARBBOT_DATABASE_NAME")
	setStr(&cfg.Database.User, "ARBBOT_DATABASE_USER")
	setStr(&cfg.Database.Password, "ARBBOT_DATABASE_PASSWORD")
	setStr(&cfg.Database.SSLMode, "ARBBOT_DATABASE_SSL_MODE")
	setInt(&cfg.Database.PoolMaxConns, "ARBBOT_DATABASE_POOL_MAX_CONNS")
	setInt(&cfg.Database.PoolMinConns, "ARBBOT_DATABASE_POOL_MIN_CONNS")
	setBool(&cfg.Database.RunMigrations, "ARBBOT_DATABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "ARBBOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "ARBBOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "ARBBOT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "ARBBOT_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "ARBBOT_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "ARBBOT_REDIS_TLS_ENABLED")

	// ── Server ──
	setInt(&cfg.Server.Port, "ARBBOT_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "ARBBOT_SERVER_CORS_ORIGINS")
	setInt(&cfg.Server.RateLimitRequests, "ARBBOT_SERVER_RATE_LIMIT_REQUESTS")
	setFloat64(&cfg.Server.RateLimitWindowSec, "ARBBOT_SERVER_RATE_LIMIT_WINDOW_SEC")

	// ── Top-level ──
	setBool(&cfg.DryRun, "ARBBOT_DRY_RUN")
	setFloat64(&cfg.PollingIntervalSec, "ARBBOT_POLLING_INTERVAL_SEC")
	setStr(&cfg.LogLevel, "ARBBOT_LOG_LEVEL")
	setStr(&cfg.LogFormat, "ARBBOT_LOG_FORMAT")
	setStr(&cfg.Environment, "ARBBOT_ENVIRONMENT")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
