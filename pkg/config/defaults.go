// Package config defines the settings shared by every command, their
// defaults and their validation.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/DrSkyle/cloudsweep/pkg/engine"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Defaults.
const (
	DefaultRegion         = "us-east-1"
	DefaultRetentionDays  = 30
	DefaultCoreThreshold  = 5
	DefaultLogLevel       = "info"
	DefaultConfigFileName = ".cloudsweep.yaml"
	EnvPrefix             = "CLOUDSWEEP"
)

// Settings is the merged result of flags, environment and config file.
type Settings struct {
	Region   string `mapstructure:"region" validate:"required"`
	Profile  string `mapstructure:"profile"`
	Endpoint string `mapstructure:"endpoint" validate:"omitempty,url"`

	DryRun bool   `mapstructure:"dry_run"`
	Strict bool   `mapstructure:"strict"`
	Yes    bool   `mapstructure:"yes"`
	Where  string `mapstructure:"where"`

	JSONLogs bool   `mapstructure:"json_logs"`
	LogLevel string `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	Verbose  bool   `mapstructure:"verbose"`

	Report       string `mapstructure:"report"`
	ReportFormat string `mapstructure:"report_format" validate:"omitempty,oneof=json csv yaml yml"`
	Tombstones   string `mapstructure:"tombstones"`
	AuditLog     string `mapstructure:"audit_log"`
	SlackWebhook string `mapstructure:"slack_webhook" validate:"omitempty,url"`
	SlackChannel string `mapstructure:"slack_channel"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint" validate:"omitempty,url"`

	RetentionDays int `mapstructure:"retention_days" validate:"gte=0"`
	CoreThreshold int `mapstructure:"core_threshold" validate:"gte=1"`
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("region", DefaultRegion)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("retention_days", DefaultRetentionDays)
	v.SetDefault("core_threshold", DefaultCoreThreshold)
}

// Load unmarshals and validates the settings held by v.
func Load(v *viper.Viper) (Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, &engine.ConfigError{Msg: "cannot decode settings", Err: err}
	}
	s.LogLevel = strings.ToLower(s.LogLevel)
	if err := Validate(s); err != nil {
		return Settings{}, err
	}
	return s, nil
}

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate
)

func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New()
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
			return strings.ReplaceAll(name, "_", "-")
		})
		validateInst = v
	})
	return validateInst
}

// Validate reports the first invalid field as a ConfigError named after its
// flag.
func Validate(s Settings) error {
	err := validatorInstance().Struct(s)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if errors.As(err, &ves) && len(ves) > 0 {
		ve := ves[0]
		return &engine.ConfigError{
			Field: ve.Field(),
			Msg:   fmt.Sprintf("%q failed validation for tag '%s'", fmt.Sprint(ve.Value()), ve.Tag()),
		}
	}
	return &engine.ConfigError{Msg: err.Error(), Err: err}
}
