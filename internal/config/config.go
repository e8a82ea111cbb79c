// Package config loads starload settings from defaults, an optional .env
// file and the process environment, in increasing precedence. Every key is
// listed in SetDefaults.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Config struct {
	App      App      `mapstructure:",squash"`
	Database Database `mapstructure:",squash"`
	ETL      ETL      `mapstructure:",squash"`
	Schedule Schedule `mapstructure:",squash"`
	Metrics  Metrics  `mapstructure:",squash"`
	Notify   Notify   `mapstructure:",squash"`
}

type App struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// ETL holds the run-level switches of the job chain.
type ETL struct {
	Catalog           string        `mapstructure:"etl_catalog"`
	DataDir           string        `mapstructure:"etl_data_dir"`
	Manifest          string        `mapstructure:"etl_manifest"`
	BatchSize         int           `mapstructure:"etl_batch_size"`
	ReferentialChecks bool          `mapstructure:"etl_referential_checks"`
	AutoCreate        bool          `mapstructure:"etl_auto_create"`
	Verify            bool          `mapstructure:"etl_verify"`
	HTTPTimeout       time.Duration `mapstructure:"etl_http_timeout"`
	HTTPRetries       int           `mapstructure:"etl_http_retries"`
}

// Schedule configures the daily trigger.
type Schedule struct {
	Enabled  bool   `mapstructure:"schedule_enabled"`
	At       string `mapstructure:"schedule_at"`
	Timezone string `mapstructure:"schedule_timezone"`
}

// Location resolves Timezone; "Local" and "" mean time.Local.
func (s Schedule) Location() (*time.Location, error) {
	if s.Timezone == "" || strings.EqualFold(s.Timezone, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(s.Timezone)
}

type Metrics struct {
	Backend        string   `mapstructure:"metrics_backend"`
	PushgatewayURL string   `mapstructure:"metrics_pushgateway_url"`
	DatadogAddr    string   `mapstructure:"metrics_datadog_addr"`
	Namespace      string   `mapstructure:"metrics_namespace"`
	Tags           []string `mapstructure:"metrics_tags"`
}

// Notify configures the run-report publisher. An empty AMQPURL disables it.
type Notify struct {
	AMQPURL        string `mapstructure:"notify_amqp_url"`
	AMQPExchange   string `mapstructure:"notify_amqp_exchange"`
	AMQPRoutingKey string `mapstructure:"notify_amqp_routing_key"`
}

// SetDefaults registers every key with its default value.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")

	v.SetDefault("DB_DRIVER", "sqlite")
	v.SetDefault("DB_DSN", "") // overrides every other DB_* key when set
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 0) // 0 = driver default
	v.SetDefault("DB_NAME", "starload")
	v.SetDefault("DB_USER", "")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DB_PATH", "starload.db")
	v.SetDefault("DB_TRUSTED_CONNECTION", false)
	v.SetDefault("DB_ENCRYPT", true)
	v.SetDefault("DB_TRUST_SERVER_CERTIFICATE", false)
	v.SetDefault("DB_CONNECT_TIMEOUT", "30s")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_CONNS", 4)

	v.SetDefault("ETL_CATALOG", "retail")
	v.SetDefault("ETL_DATA_DIR", "data")
	v.SetDefault("ETL_MANIFEST", "")
	v.SetDefault("ETL_BATCH_SIZE", 1000)
	v.SetDefault("ETL_REFERENTIAL_CHECKS", true)
	v.SetDefault("ETL_AUTO_CREATE", true)
	v.SetDefault("ETL_VERIFY", true)
	v.SetDefault("ETL_HTTP_TIMEOUT", "30s")
	v.SetDefault("ETL_HTTP_RETRIES", 3)

	v.SetDefault("SCHEDULE_ENABLED", false)
	v.SetDefault("SCHEDULE_AT", "01:00")
	v.SetDefault("SCHEDULE_TIMEZONE", "Local")

	v.SetDefault("METRICS_BACKEND", "none") // none | prometheus | datadog
	v.SetDefault("METRICS_PUSHGATEWAY_URL", "")
	v.SetDefault("METRICS_DATADOG_ADDR", "127.0.0.1:8125")
	v.SetDefault("METRICS_NAMESPACE", "starload.")
	v.SetDefault("METRICS_TAGS", "")

	v.SetDefault("NOTIFY_AMQP_URL", "")
	v.SetDefault("NOTIFY_AMQP_EXCHANGE", "starload")
	v.SetDefault("NOTIFY_AMQP_ROUTING_KEY", "") // "" = run.<catalog>.<status>
}

// Load builds a Config. envFiles are tried in order and the first readable
// one is used; with none given, .env in the working directory and its
// parent are tried. A missing .env is not an error.
func Load(envFiles ...string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	if err := loadEnvFile(v, envFiles); err != nil {
		return nil, err
	}
	v.AutomaticEnv()

	cfg := &Config{}
	err := v.Unmarshal(cfg, viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	))
	if err != nil {
		return nil, err
	}
	cfg.Database.Driver = NormalizeDriver(cfg.Database.Driver)
	return cfg, nil
}

// loadEnvFile merges the first readable .env into v without touching the
// process environment, so real environment variables keep precedence.
func loadEnvFile(v *viper.Viper, files []string) error {
	if len(files) == 0 {
		cwd, err := os.Getwd()
		if err != nil {
			logrus.WithError(err).Warn("config: cannot resolve working directory")
			return nil
		}
		files = []string{
			filepath.Join(cwd, ".env"),
			filepath.Join(filepath.Dir(cwd), ".env"),
		}
	}

	for _, f := range files {
		values, err := godotenv.Read(f)
		if err != nil {
			logrus.WithField("file", f).Debug("config: .env not loaded")
			continue
		}
		m := make(map[string]any, len(values))
		for k, val := range values {
			m[strings.ToLower(k)] = val
		}
		if err := v.MergeConfigMap(m); err != nil {
			return err
		}
		logrus.WithField("file", f).Info("config: .env loaded")
		return nil
	}
	logrus.Debug("config: no .env file found, using environment only")
	return nil
}
