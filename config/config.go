package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cast"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	mongolinkhttp "github.com/sagarc03/mongolink/http"
	"github.com/sagarc03/mongolink/settings"
)

// configKey is the context key for storing the loaded configuration.
type configKey struct{}

// WithContext returns a new context with the config stored.
func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext retrieves the config from context.
// Returns an error if config is not found.
func FromContext(ctx context.Context) (*Config, error) {
	cfg, ok := ctx.Value(configKey{}).(*Config)
	if !ok || cfg == nil {
		return nil, errors.New("config not found in context")
	}
	return cfg, nil
}

// Config is the root configuration struct for mongolink.
type Config struct {
	Env             string                   `mapstructure:"env" validate:"required,oneof=development production"`
	Server          ServerConfig             `mapstructure:"server"`
	Manager         ManagerConfig            `mapstructure:"manager"`
	TempDB          TempDBConfig             `mapstructure:"tempdb"`
	CORS            mongolinkhttp.CORSConfig `mapstructure:"cors"`
	Log             LogConfig                `mapstructure:"log"`
	ConnectionsFile string                   `mapstructure:"connections_file"`

	// App is the application configuration handed to the connection
	// manager: connection settings plus the test-mode flags.
	App map[string]any `mapstructure:"-"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port  int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Alias string `mapstructure:"alias" validate:"required"`
}

// ManagerConfig tunes the connection manager.
type ManagerConfig struct {
	ShareTransports bool          `mapstructure:"share_transports"`
	ReadyAttempts   int           `mapstructure:"ready_attempts" validate:"min=1"`
	ReadyDelay      time.Duration `mapstructure:"ready_delay" validate:"min=0"`
}

// TempDBConfig holds launcher settings for temporary databases.
type TempDBConfig struct {
	Binary    string   `mapstructure:"binary" validate:"required"`
	Image     string   `mapstructure:"image" validate:"required"`
	SocketDir string   `mapstructure:"socket_dir"`
	ExtraArgs []string `mapstructure:"extra_args"`
	ServerLog bool     `mapstructure:"server_log"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
}

// appKeys are the application keys that may also come from unprefixed
// environment variables, as a host application would read them.
var appKeys = []string{
	"TESTING",
	"TEMP_DB",
	"PRESERVE_TEMP_DB",
	"TEMP_DB_LOC",
	"TEMP_DB_LAUNCHER",
	"MONGODB_ALIAS",
	"MONGODB_HOST",
	"MONGODB_PORT",
	"MONGODB_DB",
	"MONGODB_NAME",
	"MONGODB_USERNAME",
	"MONGODB_PASSWORD",
	"MONGODB_READ_PREFERENCE",
	"MONGODB_REPLICASET",
}

// boolKeys hold flags that env vars and files may spell as strings.
var boolKeys = []string{"testing", "temp_db", "preserve_temp_db"}

// flagToViperKey maps CLI flag names to viper configuration keys.
var flagToViperKey = map[string]string{
	"port":             "server.port",
	"alias":            "server.alias",
	"log-level":        "log.level",
	"connections":      "connections_file",
	"testing":          "app.testing",
	"temp-db":          "app.temp_db",
	"preserve-temp-db": "app.preserve_temp_db",
	"temp-db-loc":      "app.temp_db_loc",
	"launcher":         "app.temp_db_launcher",
	"mongod":           "tempdb.binary",
	"image":            "tempdb.image",
	"server-log":       "tempdb.server_log",
	"no-share":         "manager.no_share",
}

// bindFlags binds CLI flags to viper keys with custom name mapping.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		// Use custom mapping if it exists, otherwise use flag name as-is
		viperKey := f.Name
		if mapped, ok := flagToViperKey[viperKey]; ok {
			viperKey = mapped
		}

		// Only bind if the flag was explicitly set
		if f.Changed {
			_ = v.BindPFlag(viperKey, f)
		}
	})
}

// setDefaults configures default values on the viper instance.
func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "development")

	v.SetDefault("server.port", 5709)
	v.SetDefault("server.alias", settings.DefaultAlias)

	v.SetDefault("manager.share_transports", true)
	v.SetDefault("manager.ready_attempts", 3)
	v.SetDefault("manager.ready_delay", "100ms")

	v.SetDefault("tempdb.binary", "mongod")
	v.SetDefault("tempdb.image", "mongo:7")

	v.SetDefault("log.level", "info")
}

// Load reads configuration and returns a validated Config struct.
// Order of precedence (highest to lowest): flags > env > config files > defaults
//
// Parameters:
//   - configFiles: list of config file paths (later files override earlier ones)
//   - flags: cobra flag set for flag binding (can be nil)
func Load(configFiles []string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// 1. Set defaults
	setDefaults(v)

	// 2. Read config files
	if len(configFiles) > 0 {
		v.SetConfigFile(configFiles[0])
		if err := v.ReadInConfig(); err != nil {
			slog.Warn("error reading config file", "file", configFiles[0], "err", err)
		}

		for _, cf := range configFiles[1:] {
			v.SetConfigFile(cf)
			if err := v.MergeInConfig(); err != nil {
				slog.Warn("error merging config file", "file", cf, "err", err)
			}
		}
	} else {
		v.SetConfigName("mongolink")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		if err := v.ReadInConfig(); err != nil {
			var configNotFound viper.ConfigFileNotFoundError
			if !errors.As(err, &configNotFound) {
				slog.Warn("error reading config file", "err", err)
			}
		}
	}

	// 3. Bind environment variables
	v.SetEnvPrefix("MONGOLINK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range appKeys {
		_ = v.BindEnv("app."+strings.ToLower(key), "MONGOLINK_APP_"+key, key)
	}

	// 4. Bind flags (if provided)
	if flags != nil {
		bindFlags(v, flags)
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if v.GetBool("manager.no_share") {
		cfg.Manager.ShareTransports = false
	}

	// 6. Validate using go-playground/validator
	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	// 7. Assemble the application mapping
	cfg.App = appConfig(v)
	if cfg.ConnectionsFile == "" {
		cfg.ConnectionsFile = DefaultConnectionsPath()
	}
	if cfg.ConnectionsFile != "" {
		if err := mergeConnections(cfg.App, cfg.ConnectionsFile); err != nil {
			return nil, err
		}
	}

	return &cfg, nil
}

func appConfig(v *viper.Viper) map[string]any {
	app := make(map[string]any)
	for k, val := range v.GetStringMap("app") {
		app[k] = val
	}
	for _, key := range appKeys {
		k := strings.ToLower(key)
		if v.IsSet("app." + k) {
			app[k] = v.Get("app." + k)
		}
	}

	for _, k := range boolKeys {
		s, ok := app[k].(string)
		if !ok {
			continue
		}
		// Unparseable values stay strings so the manager rejects them.
		if b, err := cast.ToBoolE(s); err == nil {
			app[k] = b
		}
	}

	return app
}

// mergeConnections appends the connections stored in path to the
// mongodb_settings list of app. A missing file is not an error.
func mergeConnections(app map[string]any, path string) error {
	file, err := LoadConnectionsFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Debug("connections file not found", "file", path)
			return nil
		}
		return err
	}
	if len(file.Connections) == 0 {
		return nil
	}

	key := strings.ToLower(settings.SettingsKey)
	var items []any
	switch existing := app[key].(type) {
	case nil:
	case []any:
		items = append(items, existing...)
	default:
		items = append(items, existing)
	}
	items = append(items, file.Settings()...)
	app[key] = items

	return nil
}
