package config

import (
	"bytes"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/tcriess/lightspeed-collab/globals"
)

const (
	defaultPort                = 3001
	defaultAllowedOrigin       = "*"
	defaultLogLevel            = "INFO"
	defaultSweepSpec           = "@every 5m"
	defaultInactivityThreshold = 5 * time.Minute
	defaultSendBuffer          = 256
	defaultMaxMessageSize      = 64 * 1024
	defaultFilterCacheSize     = 128
)

// Config is the global configuration object which is filled via the configuration file, the command line flags
// and the environment.
type Config struct {
	Host              string            `mapstructure:"host"`
	Port              int               `mapstructure:"port"`
	AllowedOrigin     string            `mapstructure:"allowed_origin"`
	LogLevel          string            `mapstructure:"log_level"`
	RoomConfig        RoomConfig        `mapstructure:"room"`
	ClientConfig      ClientConfig      `mapstructure:"client"`
	FilterConfig      FilterConfig      `mapstructure:"filter"`
	PersistenceConfig PersistenceConfig `mapstructure:"persistence"`
}

// RoomConfig configures the room lifecycle. Empty rooms are removed as soon as the last participant leaves, the
// sweep running on SweepSpec (cron syntax) additionally removes empty rooms idle for longer than
// InactivityThreshold.
type RoomConfig struct {
	SweepSpec           string        `mapstructure:"sweep_spec"`
	InactivityThreshold time.Duration `mapstructure:"inactivity_threshold"`
}

// ClientConfig configures the per-connection limits.
type ClientConfig struct {
	SendBuffer     int   `mapstructure:"send_buffer"`
	MaxMessageSize int64 `mapstructure:"max_message_size"`
}

// FilterConfig configures the cache of compiled event filter expressions.
type FilterConfig struct {
	CacheSize int `mapstructure:"cache_size"`
}

// PersistenceConfig configures the optional event journal. Type is one of "buntdb", "sqlite" or "postgres", an
// empty Type disables the journal.
type PersistenceConfig struct {
	Type      string `mapstructure:"type"`
	DSN       string `mapstructure:"dsn"`
	FlockPath string `mapstructure:"flock_path"` // buntdb only
}

// ListenAddr returns host:port.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// AllowedOrigins splits AllowedOrigin at commas.
func (c *Config) AllowedOrigins() []string {
	origins := make([]string, 0)
	for _, o := range strings.Split(c.AllowedOrigin, ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		origins = append(origins, defaultAllowedOrigin)
	}
	return origins
}

func GetFlagSet() *pflag.FlagSet {
	flagSet := pflag.NewFlagSet("configuration", pflag.ContinueOnError)
	flagSet.String("host", "", "listen host")
	flagSet.IntP("port", "P", defaultPort, "listen port")
	flagSet.String("allowed-origin", defaultAllowedOrigin, "comma-separated list of allowed origins")
	flagSet.StringP("log-level", "l", defaultLogLevel, "log level (TRACE, DEBUG, INFO, WARN, ERROR, OFF)")
	return flagSet
}

// wordSepNormalizeFunc allows for normalization of the flag names (which use - as a separator)
func wordSepNormalizeFunc(f *pflag.FlagSet, name string) pflag.NormalizedName {
	from := "-"
	to := "_"
	name = strings.Replace(name, from, to, -1)
	return pflag.NormalizedName(name)
}

// ReadConfiguration reads and parses the configuration located at configPath, which can either point to a single TOML
// file or to a directory, in which case all *.toml files in this directory are concatenated in lexical order
// (top-level keys must come before the first table). Flags from flagSet (may be nil) and the environment (prefix
// LSCOLLAB_, plus the plain PORT and ALLOWED_ORIGIN) take precedence.
func ReadConfiguration(configPath string, flagSet *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetDefault("port", defaultPort)
	v.SetDefault("allowed_origin", defaultAllowedOrigin)
	v.SetDefault("log_level", defaultLogLevel)
	v.SetDefault("room.sweep_spec", defaultSweepSpec)
	v.SetDefault("room.inactivity_threshold", defaultInactivityThreshold)
	v.SetDefault("client.send_buffer", defaultSendBuffer)
	v.SetDefault("client.max_message_size", defaultMaxMessageSize)
	v.SetDefault("filter.cache_size", defaultFilterCacheSize)

	if flagSet != nil {
		flagSet.SetNormalizeFunc(wordSepNormalizeFunc)
		err := v.BindPFlags(flagSet)
		if err != nil {
			globals.AppLogger.Error("could not bind flags (ignored)", "error", err)
		}
	}
	v.SetEnvPrefix("LSCOLLAB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// the web application deployment passes these without prefix
	_ = v.BindEnv("port", "PORT")
	_ = v.BindEnv("allowed_origin", "ALLOWED_ORIGIN")

	if configPath != "" {
		fi, err := os.Stat(configPath)
		if err != nil {
			return nil, err
		}
		contents := make([]byte, 0)
		files := []string{configPath}
		if fi.IsDir() {
			files, err = filepath.Glob(filepath.Join(configPath, "*.toml"))
			if err != nil {
				return nil, err
			}
		}
		for _, configFile := range files {
			fileContents, err := ioutil.ReadFile(configFile)
			if err != nil {
				return nil, err
			}
			contents = append(contents, fileContents...)
			contents = append(contents, '\n')
		}
		v.SetConfigType("toml")
		err = v.ReadConfig(bytes.NewBuffer(contents))
		if err != nil {
			return nil, fmt.Errorf("could not read config: %w", err)
		}
	}

	cfg := Config{}
	err := v.Unmarshal(&cfg)
	if err != nil {
		return nil, fmt.Errorf("could not unmarshal config: %w", err)
	}
	if cfg.ClientConfig.SendBuffer <= 0 {
		cfg.ClientConfig.SendBuffer = defaultSendBuffer
	}
	if cfg.ClientConfig.MaxMessageSize <= 0 {
		cfg.ClientConfig.MaxMessageSize = defaultMaxMessageSize
	}
	if cfg.FilterConfig.CacheSize <= 0 {
		cfg.FilterConfig.CacheSize = defaultFilterCacheSize
	}
	if cfg.RoomConfig.SweepSpec == "" {
		cfg.RoomConfig.SweepSpec = defaultSweepSpec
	}

	globals.AppLogger.Debug("config", "cfg", cfg)
	return &cfg, nil
}

// Default returns the configuration used when nothing is configured.
func Default() *Config {
	return &Config{
		Port:          defaultPort,
		AllowedOrigin: defaultAllowedOrigin,
		LogLevel:      defaultLogLevel,
		RoomConfig: RoomConfig{
			SweepSpec:           defaultSweepSpec,
			InactivityThreshold: defaultInactivityThreshold,
		},
		ClientConfig: ClientConfig{
			SendBuffer:     defaultSendBuffer,
			MaxMessageSize: defaultMaxMessageSize,
		},
		FilterConfig: FilterConfig{
			CacheSize: defaultFilterCacheSize,
		},
	}
}
