package sawt

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/aziztlili/sawt/pkg/backend"
	"github.com/aziztlili/sawt/pkg/banking"
	"github.com/aziztlili/sawt/pkg/dispatcher"
	"github.com/aziztlili/sawt/pkg/lang"
	"github.com/aziztlili/sawt/pkg/shopping"
	"github.com/aziztlili/sawt/pkg/speech"
	"github.com/aziztlili/sawt/pkg/turn"
)

type Config struct {
	Environment   string              `mapstructure:"environment"`
	LogLevel      string              `mapstructure:"log_level"`
	LogFormat     string              `mapstructure:"log_format"`
	Language      LanguageConfig      `mapstructure:"language"`
	Vendors       VendorsConfig       `mapstructure:"vendors"`
	Backend       BackendConfig       `mapstructure:"backend"`
	Payment       PaymentConfig       `mapstructure:"payment"`
	Turn          TurnConfig          `mapstructure:"turn"`
	Speech        SpeechConfig        `mapstructure:"speech"`
	Banking       BankingConfig       `mapstructure:"banking"`
	Shopping      ShoppingConfig      `mapstructure:"shopping"`
	Dispatcher    DispatcherConfig    `mapstructure:"dispatcher"`
	Gateway       GatewayConfig       `mapstructure:"gateway"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Privacy       PrivacyConfig       `mapstructure:"privacy"`
}

type VendorConfig struct {
	Provider string         `mapstructure:"provider"`
	Settings map[string]any `mapstructure:"settings"`
}

type VendorsConfig struct {
	STT VendorConfig `mapstructure:"stt"`
	TTS VendorConfig `mapstructure:"tts"`
}

type LanguageConfig struct {
	Default string `mapstructure:"default"`
}

type BackendConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	TimeoutMS      int    `mapstructure:"timeout_ms"`
	Retries        int    `mapstructure:"retries"`
	RetryBackoffMS int    `mapstructure:"retry_backoff_ms"`
}

type PaymentConfig struct {
	Provider string `mapstructure:"provider"`
	APIKey   string `mapstructure:"api_key"`
	Currency string `mapstructure:"currency"`
}

type TurnConfig struct {
	CooldownMS         int `mapstructure:"cooldown_ms"`
	RecognizedHoldMS   int `mapstructure:"recognized_hold_ms"`
	UnrecognizedHoldMS int `mapstructure:"unrecognized_hold_ms"`
	RestartDelayMS     int `mapstructure:"restart_delay_ms"`
}

type SpeechConfig struct {
	ChunkSize int     `mapstructure:"chunk_size"`
	GapMS     int     `mapstructure:"gap_ms"`
	Rate      float64 `mapstructure:"rate"`
	SlowRate  float64 `mapstructure:"slow_rate"`
}

type BankingConfig struct {
	User            string `mapstructure:"user"`
	BalanceRevertMS int    `mapstructure:"balance_revert_ms"`
	EffectTimeoutMS int    `mapstructure:"effect_timeout_ms"`
}

type ShoppingConfig struct {
	DefaultPrice    float64 `mapstructure:"default_price"`
	BudgetLimit     float64 `mapstructure:"budget_limit"`
	ResyncEpsilon   float64 `mapstructure:"resync_epsilon"`
	EffectTimeoutMS int     `mapstructure:"effect_timeout_ms"`
}

type DispatcherConfig struct {
	NoiseThreshold  int `mapstructure:"noise_threshold"`
	MaxSilentMisses int `mapstructure:"max_silent_misses"`
}

type GatewayConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

type ObservabilityConfig struct {
	MetricsPath string `mapstructure:"metrics_path"`
	AsyncBuffer int    `mapstructure:"async_buffer"`
}

type PrivacyConfig struct {
	RedactPII bool `mapstructure:"redact_pii"`
}

func LoadConfig(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("language.default", "fr")
	v.SetDefault("backend.base_url", "http://localhost:8000")
	v.SetDefault("backend.timeout_ms", 10000)
	v.SetDefault("backend.retries", 2)
	v.SetDefault("backend.retry_backoff_ms", 200)
	v.SetDefault("payment.currency", "usd")
	v.SetDefault("turn.cooldown_ms", 1000)
	v.SetDefault("turn.recognized_hold_ms", 3000)
	v.SetDefault("turn.unrecognized_hold_ms", 1500)
	v.SetDefault("turn.restart_delay_ms", 800)
	v.SetDefault("speech.chunk_size", 150)
	v.SetDefault("speech.gap_ms", 300)
	v.SetDefault("speech.rate", 0.9)
	v.SetDefault("speech.slow_rate", 0.75)
	v.SetDefault("banking.user", "amira")
	v.SetDefault("banking.balance_revert_ms", 3000)
	v.SetDefault("banking.effect_timeout_ms", 10000)
	v.SetDefault("shopping.default_price", 2.5)
	v.SetDefault("shopping.budget_limit", 50)
	v.SetDefault("shopping.resync_epsilon", 0.01)
	v.SetDefault("shopping.effect_timeout_ms", 10000)
	v.SetDefault("dispatcher.noise_threshold", 2)
	v.SetDefault("dispatcher.max_silent_misses", 1)
	v.SetDefault("gateway.enabled", false)
	v.SetDefault("gateway.addr", ":8765")
	v.SetDefault("observability.metrics_path", "")
	v.SetDefault("observability.async_buffer", 256)
	v.SetDefault("privacy.redact_pii", true)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}

	expandEnvStrings(&cfg)
	cfg.Vendors.STT.Settings = expandSettings(cfg.Vendors.STT.Settings)
	cfg.Vendors.TTS.Settings = expandSettings(cfg.Vendors.TTS.Settings)

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if !lang.Language(c.Language.Default).Valid() {
		return fmt.Errorf("language.default must be one of fr, ar, en")
	}
	if strings.TrimSpace(c.Backend.BaseURL) == "" {
		return fmt.Errorf("backend.base_url is required")
	}
	if c.Speech.ChunkSize <= 0 {
		return fmt.Errorf("speech.chunk_size must be positive")
	}
	return nil
}

// TurnConfig converts the millisecond knobs into the controller config.
func (c *Config) TurnConfig() turn.Config {
	return turn.Config{
		Cooldown:         time.Duration(c.Turn.CooldownMS) * time.Millisecond,
		RecognizedHold:   time.Duration(c.Turn.RecognizedHoldMS) * time.Millisecond,
		UnrecognizedHold: time.Duration(c.Turn.UnrecognizedHoldMS) * time.Millisecond,
		RestartDelay:     time.Duration(c.Turn.RestartDelayMS) * time.Millisecond,
	}
}

func (c *Config) SpeechConfig() speech.Config {
	return speech.Config{
		ChunkSize: c.Speech.ChunkSize,
		Gap:       time.Duration(c.Speech.GapMS) * time.Millisecond,
		Rate:      c.Speech.Rate,
		SlowRate:  c.Speech.SlowRate,
	}
}

func (c *Config) BackendConfig() backend.Config {
	return backend.Config{
		BaseURL: c.Backend.BaseURL,
		Timeout: time.Duration(c.Backend.TimeoutMS) * time.Millisecond,
		Retries: c.Backend.Retries,
		Backoff: time.Duration(c.Backend.RetryBackoffMS) * time.Millisecond,
	}
}

func (c *Config) BankingConfig() banking.Config {
	return banking.Config{
		User:          c.Banking.User,
		BalanceRevert: time.Duration(c.Banking.BalanceRevertMS) * time.Millisecond,
		EffectTimeout: time.Duration(c.Banking.EffectTimeoutMS) * time.Millisecond,
	}
}

func (c *Config) ShoppingConfig() shopping.Config {
	return shopping.Config{
		User:          c.Banking.User,
		DefaultPrice:  c.Shopping.DefaultPrice,
		BudgetLimit:   c.Shopping.BudgetLimit,
		ResyncEpsilon: c.Shopping.ResyncEpsilon,
		EffectTimeout: time.Duration(c.Shopping.EffectTimeoutMS) * time.Millisecond,
	}
}

func (c *Config) DispatcherConfig() dispatcher.Config {
	return dispatcher.Config{
		NoiseThreshold:  c.Dispatcher.NoiseThreshold,
		MaxSilentMisses: c.Dispatcher.MaxSilentMisses,
	}
}

func expandEnvStrings(cfg *Config) {
	expandValue(reflect.ValueOf(cfg))
}

func expandSettings(settings map[string]any) map[string]any {
	if settings == nil {
		return nil
	}
	for k, v := range settings {
		settings[k] = expandAny(v)
	}
	return settings
}

func expandAny(v any) any {
	switch val := v.(type) {
	case string:
		return os.ExpandEnv(val)
	case []any:
		for i := range val {
			val[i] = expandAny(val[i])
		}
		return val
	case map[string]any:
		for k, v := range val {
			val[k] = expandAny(v)
		}
		return val
	default:
		return v
	}
}

func expandValue(v reflect.Value) {
	if !v.IsValid() {
		return
	}
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return
		}
		expandValue(v.Elem())
		return
	}
	switch v.Kind() {
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			expandValue(v.Field(i))
		}
	case reflect.String:
		if v.CanSet() {
			v.SetString(os.ExpandEnv(v.String()))
		}
	}
}
