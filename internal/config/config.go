package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	DBTypePostgres = "postgres"
	DBTypeSQLite   = "sqlite"
)

type Config struct {
	AppEnv string `mapstructure:"app_env"`
	Port   string `mapstructure:"port"`

	DBType        string `mapstructure:"db_type"`
	DBHost        string `mapstructure:"db_host"`
	DBPort        string `mapstructure:"db_port"`
	DBUser        string `mapstructure:"db_user"`
	DBPassword    string `mapstructure:"db_password"`
	DBName        string `mapstructure:"db_name"`
	DBSSLMode     string `mapstructure:"db_sslmode"`
	DBSQLitePath  string `mapstructure:"db_sqlite_path"`
	DBAutoMigrate bool   `mapstructure:"db_auto_migrate"`
	DBMaxRetries  int    `mapstructure:"db_max_retries"`

	RedisAddr    string `mapstructure:"redis_addr"`
	KafkaBroker  string `mapstructure:"kafka_broker"`
	KafkaGroupID string `mapstructure:"kafka_group_id"`

	JWTSecret string `mapstructure:"jwt_secret"`

	PayslipStorageDir    string `mapstructure:"payslip_storage_dir"`
	PayslipPublicBaseURL string `mapstructure:"payslip_public_base_url"`
	CompanyName          string `mapstructure:"company_name"`
	SnowflakeNode        int64  `mapstructure:"snowflake_node"`

	RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

var defaults = map[string]any{
	"app_env":                 "development",
	"port":                    "3000",
	"db_type":                 DBTypePostgres,
	"db_host":                 "localhost",
	"db_port":                 "5432",
	"db_user":                 "postgres",
	"db_password":             "",
	"db_name":                 "payroll",
	"db_sslmode":              "disable",
	"db_sqlite_path":          "payroll.db",
	"db_auto_migrate":         true,
	"db_max_retries":          5,
	"redis_addr":              "",
	"kafka_broker":            "",
	"kafka_group_id":          "go-payroll",
	"jwt_secret":              "",
	"payslip_storage_dir":     "storage/payslips",
	"payslip_public_base_url": "/files/payslips",
	"company_name":            "",
	"snowflake_node":          1,
	"rate_limit_rps":          5.0,
	"rate_limit_burst":        10,
}

// Load reads config.yaml from the working directory when present and lets
// environment variables (DB_HOST, REDIS_ADDR, ...) override every key.
func Load() (Config, error) {
	return LoadFrom("")
}

func LoadFrom(path string) (Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if path == "" {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	} else {
		v.SetConfigFile(path)
	}

	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.DBType {
	case DBTypePostgres, DBTypeSQLite:
	default:
		return fmt.Errorf("unsupported db_type %q", c.DBType)
	}
	if c.IsProduction() && c.JWTSecret == "" {
		return errors.New("jwt_secret is required in production")
	}
	if c.SnowflakeNode < 0 || c.SnowflakeNode > 1023 {
		return fmt.Errorf("snowflake_node must be between 0 and 1023, got %d", c.SnowflakeNode)
	}
	return nil
}
