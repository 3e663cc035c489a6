package config

import "drippy/core/types"

// Weight units accepted by Hook.WeightUnit.
const (
	WeightUnitPercent = "percent"
	WeightUnitBps     = "bps"
)

// Pool identifiers in allocation order. The last pool absorbs rounding.
const (
	PoolNFT      = "nft"
	PoolHold     = "hold"
	PoolTreasury = "trea"
	PoolAMM      = "amm"
)

// PoolOrder lists the fixed pools in the order shares are computed.
var PoolOrder = []string{PoolNFT, PoolHold, PoolTreasury, PoolAMM}

// Hook mirrors the installation parameters of the settlement hook.
type Hook struct {
	Admin    types.AccountID `toml:"admin"`
	Currency string          `toml:"currency"`
	Issuer   types.AccountID `toml:"issuer"`

	MaxPerClaim     uint64 `toml:"max_per_claim"`
	CooldownSeconds uint64 `toml:"cooldown_seconds"`
	DailyMax        uint64 `toml:"daily_max"`
	MinClaim        uint64 `toml:"min_claim"`
	BoostMax        uint32 `toml:"boost_max"`

	MinAmount        uint64            `toml:"min_amount"`
	AntiSnipeEnd     uint64            `toml:"anti_snipe_end"`
	FeeBps           uint32            `toml:"fee_bps"`
	PenaltyBps       uint32            `toml:"penalty_bps"`
	PenaltyCollector types.AccountID   `toml:"penalty_collector"`
	Whitelist        []types.AccountID `toml:"whitelist"`

	WeightUnit string `toml:"weight_unit"`
	NFTAlloc   uint32 `toml:"nft_alloc"`
	HoldAlloc  uint32 `toml:"hold_alloc"`
	TreaAlloc  uint32 `toml:"trea_alloc"`
	AMMAlloc   uint32 `toml:"amm_alloc"`

	// HolderPools names the pools whose share fans out to registered holders.
	HolderPools []string `toml:"holder_pools"`
	Accounts    Accounts `toml:"accounts"`

	HolderCurrency        string          `toml:"holder_currency"`
	HolderIssuer          types.AccountID `toml:"holder_issuer"`
	ConversionNumerator   uint64          `toml:"conversion_numerator"`
	ConversionDenominator uint64          `toml:"conversion_denominator"`
}

// Accounts holds the destination account of each fixed pool.
type Accounts struct {
	NFT      types.AccountID `toml:"nft"`
	Hold     types.AccountID `toml:"hold"`
	Treasury types.AccountID `toml:"trea"`
	AMM      types.AccountID `toml:"amm"`
}

// Wallet configures the downstream signing wallet.
type Wallet struct {
	Endpoint string `toml:"endpoint" env:"SETTLED_WALLET_ENDPOINT"`
	Token    string `toml:"token" env:"SETTLED_WALLET_TOKEN"`
	// TimeoutSeconds bounds a single submit round trip.
	TimeoutSeconds int `toml:"timeout_seconds" env:"SETTLED_WALLET_TIMEOUT"`
}

// API controls the operator HTTP surface.
type API struct {
	JWTSecret string `toml:"jwt_secret" env:"SETTLED_JWT_SECRET"`
	JWTIssuer string `toml:"jwt_issuer" env:"SETTLED_JWT_ISSUER"`
	// RateLimitPerSecond of zero disables throttling.
	RateLimitPerSecond float64 `toml:"rate_limit_per_second" env:"SETTLED_RATE_LIMIT"`
	RateLimitBurst     int     `toml:"rate_limit_burst" env:"SETTLED_RATE_BURST"`
}

// Log selects the log level and optional rotated file output.
type Log struct {
	Level      string `toml:"level" env:"SETTLED_LOG_LEVEL"`
	File       string `toml:"file" env:"SETTLED_LOG_FILE"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
}

// Telemetry configures OTLP export.
type Telemetry struct {
	Endpoint string `toml:"endpoint" env:"SETTLED_OTEL_ENDPOINT"`
	// Headers uses the key=value,key=value form of OTEL_EXPORTER_OTLP_HEADERS.
	Headers  string `toml:"headers" env:"SETTLED_OTEL_HEADERS"`
	Insecure bool   `toml:"insecure" env:"SETTLED_OTEL_INSECURE"`
	Metrics  bool   `toml:"metrics" env:"SETTLED_OTEL_METRICS"`
	Traces   bool   `toml:"traces" env:"SETTLED_OTEL_TRACES"`
}
