package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Gateway environments recognized by the settings file.
const (
	EnvironmentLive    = "live"
	EnvironmentSandbox = "sandbox"
)

// Payment actions supported by the provider.
const (
	PaymentActionSale          = "sale"
	PaymentActionAuthorization = "authorization"
)

// Behaviors when the item subtotal sent to the provider mismatches the order total.
const (
	SubtotalMismatchAdd  = "add"
	SubtotalMismatchDrop = "drop"
)

// CredentialSettings is one environment's API credential block. Either
// Signature or Certificate (plus Subject) is set, never both.
type CredentialSettings struct {
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	Signature   string `mapstructure:"signature"`
	Certificate string `mapstructure:"certificate"`
	Subject     string `mapstructure:"subject"`
}

// Settings is the typed gateway configuration. Every recognized option is an
// explicit field; unknown keys in the settings file are ignored.
type Settings struct {
	Environment              string             `mapstructure:"environment"`
	PaymentAction            string             `mapstructure:"paymentAction"`
	InvoicePrefix            string             `mapstructure:"invoicePrefix"`
	BrandName                string             `mapstructure:"brandName"`
	RequireBillingAgreement  bool               `mapstructure:"requireBillingAgreement"`
	InstantPayments          bool               `mapstructure:"instantPayments"`
	SubtotalMismatchBehavior string             `mapstructure:"subtotalMismatchBehavior"`
	SessionTTLMinutes        int                `mapstructure:"sessionTtlMinutes"`
	Live                     CredentialSettings `mapstructure:"live"`
	Sandbox                  CredentialSettings `mapstructure:"sandbox"`
}

func DefaultSettings() Settings {
	return Settings{
		Environment:              EnvironmentSandbox,
		PaymentAction:            PaymentActionSale,
		BrandName:                "payflow",
		SubtotalMismatchBehavior: SubtotalMismatchAdd,
		SessionTTLMinutes:        60,
	}
}

// SessionTTL returns the checkout session lifetime.
func (s Settings) SessionTTL() time.Duration {
	return time.Duration(s.SessionTTLMinutes) * time.Minute
}

// IsSandbox reports whether the gateway talks to the provider's sandbox.
func (s Settings) IsSandbox() bool {
	return s.Environment == EnvironmentSandbox
}

// ActiveCredentials returns the credential block for the active environment.
func (s Settings) ActiveCredentials() CredentialSettings {
	if s.IsSandbox() {
		return s.Sandbox
	}
	return s.Live
}

func validateSettings(s Settings) error {
	switch s.Environment {
	case EnvironmentLive, EnvironmentSandbox:
	default:
		return fmt.Errorf("unknown environment %q", s.Environment)
	}
	switch s.PaymentAction {
	case PaymentActionSale, PaymentActionAuthorization:
	default:
		return fmt.Errorf("unknown payment action %q", s.PaymentAction)
	}
	switch s.SubtotalMismatchBehavior {
	case SubtotalMismatchAdd, SubtotalMismatchDrop:
	default:
		return fmt.Errorf("unknown subtotal mismatch behavior %q", s.SubtotalMismatchBehavior)
	}
	if s.SessionTTLMinutes <= 0 {
		return errors.New("session TTL must be positive")
	}
	return nil
}

// SettingsHolder hands out the current settings snapshot. Reloads swap the
// snapshot atomically; a loaded snapshot is immutable for the request using it.
type SettingsHolder struct {
	current atomic.Value // holds Settings
}

func NewSettingsHolder(cfg Config, log *zap.Logger) (*SettingsHolder, error) {
	v := viper.New()

	v.SetConfigName("settings")
	v.SetConfigType("yml")
	if cfg.SettingsPath != "" {
		v.AddConfigPath(cfg.SettingsPath)
	}
	v.AddConfigPath("/etc/payflow")
	v.AddConfigPath(".")

	v.SetEnvPrefix("PAYFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultSettings()
	v.SetDefault("gateway.environment", defaults.Environment)
	v.SetDefault("gateway.paymentAction", defaults.PaymentAction)
	v.SetDefault("gateway.brandName", defaults.BrandName)
	v.SetDefault("gateway.subtotalMismatchBehavior", defaults.SubtotalMismatchBehavior)
	v.SetDefault("gateway.sessionTtlMinutes", defaults.SessionTTLMinutes)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	settings, err := unmarshalSettings(v)
	if err != nil {
		return nil, err
	}

	holder := &SettingsHolder{}
	holder.current.Store(settings)

	reloadLog := log.Named("config.settings")
	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		reloaded, err := unmarshalSettings(v)
		if err != nil {
			reloadLog.Warn("settings reload rejected, keeping last good snapshot",
				zap.String("file", e.Name),
				zap.Error(err),
			)
			return
		}
		holder.current.Store(reloaded)
		reloadLog.Info("settings reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

// NewStaticSettingsHolder wraps fixed settings, used by tests.
func NewStaticSettingsHolder(s Settings) *SettingsHolder {
	holder := &SettingsHolder{}
	holder.current.Store(s)
	return holder
}

// Current returns the active settings snapshot.
func (h *SettingsHolder) Current() Settings {
	return h.current.Load().(Settings)
}

func unmarshalSettings(v *viper.Viper) (Settings, error) {
	var s Settings
	if err := v.UnmarshalKey("gateway", &s); err != nil {
		return Settings{}, err
	}
	if err := validateSettings(s); err != nil {
		return Settings{}, err
	}
	return s, nil
}
