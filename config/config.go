package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/alejandrodnm/parlaybot/internal/domain"
)

// Config es la configuración completa del engine.
type Config struct {
	Engine  EngineConfig  `yaml:"engine"`
	Venue   VenueConfig   `yaml:"venue"`
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
}

// EngineConfig controla los parámetros de proceso del engine. Los importes y
// fracciones son decimales en texto para no pasar por float64.
type EngineConfig struct {
	SettleIntervalSeconds int    `yaml:"settle_interval_seconds"`
	Operator              string `yaml:"operator"`
	SafeBox               string `yaml:"safe_box"`

	ProtocolFee   string `yaml:"protocol_fee"`
	SafeBoxFee    string `yaml:"safe_box_fee"`
	ReferralShare string `yaml:"referral_share"`

	MinStake string `yaml:"min_stake"`
	MaxStake string `yaml:"max_stake"`
	MinLegs  int    `yaml:"min_legs"`
	MaxLegs  int    `yaml:"max_legs"`

	FloorPrice         string `yaml:"floor_price"`
	MaxSupportedAmount string `yaml:"max_supported_amount"`
	MaxComboExposure   string `yaml:"max_combo_exposure"`

	SettlementWindowHours int `yaml:"settlement_window_hours"`

	// SGPFeesPath es la ruta al YAML de calibración de la escalera SGP.
	SGPFeesPath string `yaml:"sgp_fees_path"`
}

// VenueConfig contiene el base URL del venue.
type VenueConfig struct {
	Base string `yaml:"base"`
}

// StorageConfig controla dónde se persisten los datos.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Los valores del .env sobreescriben los del YAML para las keys que correspondan.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	return &cfg, nil
}

// SettleInterval devuelve el intervalo del daemon de settlement.
func (c *Config) SettleInterval() time.Duration {
	return time.Duration(c.Engine.SettleIntervalSeconds) * time.Second
}

// Params construye los parámetros de dominio a partir de la configuración.
func (c *Config) Params() (domain.Params, error) {
	params := domain.Params{
		MinLegs:          c.Engine.MinLegs,
		MaxLegs:          c.Engine.MaxLegs,
		SettlementWindow: time.Duration(c.Engine.SettlementWindowHours) * time.Hour,
		SafeBox:          c.Engine.SafeBox,
	}

	var err error
	if params.ProtocolFee, err = domain.ParseFix(c.Engine.ProtocolFee); err != nil {
		return params, fmt.Errorf("config.Params: protocol_fee: %w", err)
	}
	if params.SafeBoxFee, err = domain.ParseFix(c.Engine.SafeBoxFee); err != nil {
		return params, fmt.Errorf("config.Params: safe_box_fee: %w", err)
	}
	if params.ReferralShare, err = domain.ParseFix(c.Engine.ReferralShare); err != nil {
		return params, fmt.Errorf("config.Params: referral_share: %w", err)
	}
	if params.MinStake, err = domain.ParseFix(c.Engine.MinStake); err != nil {
		return params, fmt.Errorf("config.Params: min_stake: %w", err)
	}
	if params.MaxStake, err = domain.ParseFix(c.Engine.MaxStake); err != nil {
		return params, fmt.Errorf("config.Params: max_stake: %w", err)
	}
	if params.FloorPrice, err = domain.ParseFix(c.Engine.FloorPrice); err != nil {
		return params, fmt.Errorf("config.Params: floor_price: %w", err)
	}
	if params.MaxSupportedAmount, err = domain.ParseFix(c.Engine.MaxSupportedAmount); err != nil {
		return params, fmt.Errorf("config.Params: max_supported_amount: %w", err)
	}
	if params.MaxComboExposure, err = domain.ParseFix(c.Engine.MaxComboExposure); err != nil {
		return params, fmt.Errorf("config.Params: max_combo_exposure: %w", err)
	}
	return params, nil
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("VENUE_BASE"); v != "" {
		cfg.Venue.Base = v
	}
	if v := os.Getenv("OPERATOR"); v != "" {
		cfg.Engine.Operator = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	def := domain.DefaultParams()

	if cfg.Engine.SettleIntervalSeconds <= 0 {
		cfg.Engine.SettleIntervalSeconds = 30
	}
	if cfg.Engine.Operator == "" {
		cfg.Engine.Operator = "operator"
	}
	if cfg.Engine.SafeBox == "" {
		cfg.Engine.SafeBox = def.SafeBox
	}
	if cfg.Engine.ProtocolFee == "" {
		cfg.Engine.ProtocolFee = domain.FormatFix(def.ProtocolFee)
	}
	if cfg.Engine.SafeBoxFee == "" {
		cfg.Engine.SafeBoxFee = domain.FormatFix(def.SafeBoxFee)
	}
	if cfg.Engine.ReferralShare == "" {
		cfg.Engine.ReferralShare = domain.FormatFix(def.ReferralShare)
	}
	if cfg.Engine.MinStake == "" {
		cfg.Engine.MinStake = domain.FormatFix(def.MinStake)
	}
	if cfg.Engine.MaxStake == "" {
		cfg.Engine.MaxStake = domain.FormatFix(def.MaxStake)
	}
	if cfg.Engine.MinLegs <= 0 {
		cfg.Engine.MinLegs = def.MinLegs
	}
	if cfg.Engine.MaxLegs <= 0 {
		cfg.Engine.MaxLegs = def.MaxLegs
	}
	if cfg.Engine.FloorPrice == "" {
		cfg.Engine.FloorPrice = domain.FormatFix(def.FloorPrice)
	}
	if cfg.Engine.MaxSupportedAmount == "" {
		cfg.Engine.MaxSupportedAmount = domain.FormatFix(def.MaxSupportedAmount)
	}
	if cfg.Engine.MaxComboExposure == "" {
		cfg.Engine.MaxComboExposure = domain.FormatFix(def.MaxComboExposure)
	}
	if cfg.Engine.SettlementWindowHours <= 0 {
		cfg.Engine.SettlementWindowHours = int(def.SettlementWindow.Hours())
	}
	if cfg.Engine.SGPFeesPath == "" {
		cfg.Engine.SGPFeesPath = "config/sgp_fees.yaml"
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "parlaybot.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
