package config

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"carepay/internal/domain/payroll"
)

// LoadPayrollSettings reads payroll settings from a YAML, JSON or TOML file.
// Keys missing from the file keep their default; PAYROLL_* environment
// variables override both, e.g. PAYROLL_OVERTIME_THRESHOLD=44.
func LoadPayrollSettings(path string) (payroll.PayrollSettings, error) {
	defaults := payroll.DefaultSettings()

	v := viper.New()
	v.SetDefault("default_hourly_rate", defaults.DefaultHourlyRate.String())
	v.SetDefault("overtime_threshold", defaults.OvertimeThreshold.String())
	v.SetDefault("overtime_rate", defaults.OvertimeRate.String())
	v.SetDefault("daily_overtime_enabled", defaults.DailyOvertimeEnabled)
	v.SetDefault("daily_overtime_threshold", defaults.DailyOvertimeThreshold.String())
	v.SetDefault("weekend_differential", defaults.WeekendDifferential.String())
	v.SetDefault("night_differential", defaults.NightDifferential.String())
	v.SetDefault("mileage_rate", defaults.MileageRate.String())
	v.SetDefault("federal_tax_rate", defaults.FederalTaxRate.String())
	v.SetDefault("state_tax_rate", defaults.StateTaxRate.String())
	v.SetDefault("social_security_rate", defaults.SocialSecurityRate.String())
	v.SetDefault("medicare_rate", defaults.MedicareRate.String())

	v.SetEnvPrefix("PAYROLL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return payroll.PayrollSettings{}, fmt.Errorf("read payroll settings file: %w", err)
		}
	}

	var settings payroll.PayrollSettings
	if err := v.Unmarshal(&settings, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(decimalHook))); err != nil {
		return payroll.PayrollSettings{}, fmt.Errorf("decode payroll settings: %w", err)
	}
	if err := settings.Validate(); err != nil {
		return payroll.PayrollSettings{}, err
	}
	return settings, nil
}

var decimalType = reflect.TypeOf(decimal.Decimal{})

func decimalHook(from, to reflect.Type, data any) (any, error) {
	if to != decimalType {
		return data, nil
	}
	switch value := data.(type) {
	case string:
		return decimal.NewFromString(strings.TrimSpace(value))
	case int:
		return decimal.NewFromInt(int64(value)), nil
	case int64:
		return decimal.NewFromInt(value), nil
	case float64:
		return decimal.NewFromFloat(value), nil
	case decimal.Decimal:
		return value, nil
	default:
		return nil, fmt.Errorf("cannot decode %T into a decimal", data)
	}
}
