package app

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the application specific section of the config, passed to
// App.Init. Decode it with mapstructure.
type Config map[string]interface{}

// BaseConfig configures the process hosting an App.
type BaseConfig struct {
	LogLevel string `mapstructure:"log_level"`
	AppName  string `mapstructure:"app_name"`

	ListenAddress       string `mapstructure:"listen_address"`
	HealthListenAddress string `mapstructure:"health_listen_address"`
	DebugListenAddress  string `mapstructure:"debug_listen_address"`

	// Optional URLs, loaded with LoadFile. A bare path is a local file.
	TLSCertificate string `mapstructure:"tls_certificate"`
	TLSKey         string `mapstructure:"tls_private_key"`

	HTTPReadTimeout     time.Duration `mapstructure:"http_read_timeout"`
	HTTPWriteTimeout    time.Duration `mapstructure:"http_write_timeout"`
	ShutdownGracePeriod time.Duration `mapstructure:"shutdown_grace_period"`

	EnablePprof  bool `mapstructure:"enable_pprof"`
	EnableExpvar bool `mapstructure:"enable_expvar"`

	// Capacity is a fraction of total memory, capped at 0.5.
	EnableBallast   bool    `mapstructure:"enable_ballast"`
	BallastCapacity float32 `mapstructure:"ballast_capacity"`

	EnableMemoryLeakCron   bool   `mapstructure:"enable_memory_leak_cron"`
	MemoryLeakCronSchedule string `mapstructure:"memory_leak_cron_schedule"`

	NewRelicLicenseKey string `mapstructure:"new_relic_license_key"`

	AppConfig Config `mapstructure:"app"`
}

var defaultConfig = BaseConfig{
	LogLevel: "info",
	AppName:  "collateral-server",

	ListenAddress:       ":8085",
	HealthListenAddress: "localhost:8086",
	DebugListenAddress:  ":8123",

	// Multisig withdrawals confirm two transactions in sequence.
	HTTPReadTimeout:     10 * time.Second,
	HTTPWriteTimeout:    2 * time.Minute,
	ShutdownGracePeriod: 30 * time.Second,

	EnablePprof:  true,
	EnableExpvar: true,

	EnableBallast:   true,
	BallastCapacity: 0.333,

	MemoryLeakCronSchedule: "0 5 * * *",
}

// Each key is bound to the upper cased environment variable of the same name.
var envBoundKeys = []string{
	"log_level",
	"app_name",
	"listen_address",
	"health_listen_address",
	"debug_listen_address",
	"tls_certificate",
	"tls_private_key",
	"http_read_timeout",
	"http_write_timeout",
	"shutdown_grace_period",
	"enable_pprof",
	"enable_expvar",
	"enable_ballast",
	"ballast_capacity",
	"enable_memory_leak_cron",
	"memory_leak_cron_schedule",
	"new_relic_license_key",
}

func init() {
	for _, key := range envBoundKeys {
		_ = viper.BindEnv(key, strings.ToUpper(key))
	}
}

// LoadConfig layers the environment over the config file at path, when one
// exists, and the defaults.
func LoadConfig(path string) (BaseConfig, error) {
	config := defaultConfig

	// An explicitly set file that is missing is not reported as
	// ConfigFileNotFoundError, so only set it when it exists.
	if path != "" {
		exists, err := fileExists(path)
		if err != nil {
			return config, err
		}
		if exists {
			viper.SetConfigFile(path)
			if err := viper.ReadInConfig(); err != nil {
				return config, err
			}
		}
	}

	err := viper.Unmarshal(&config)
	return config, err
}
