package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"

	"github.com/Iamcalix/quickbooksupload/internal/statement"
)

// EnvPrefix prefixes environment overrides, e.g. QBU_SERVER_PORT
const EnvPrefix = "QBU"

type Config struct {
	Database   DatabaseConfig  `mapstructure:"database"`
	Server     ServerConfig    `mapstructure:"server"`
	Directory  DirectoryConfig `mapstructure:"directory"`
	Parser     ParserConfig    `mapstructure:"parser"`
	Dedup      DedupConfig     `mapstructure:"dedup"`
	Store      StoreConfig     `mapstructure:"store"`
	Export     ExportConfig    `mapstructure:"export"`
	Log        LogConfig       `mapstructure:"log"`
	ConfigPath string          `mapstructure:"-"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
}

// DirectoryConfig points at the customer directory spreadsheet. An empty
// path disables enrichment.
type DirectoryConfig struct {
	Path string        `mapstructure:"path"`
	TTL  time.Duration `mapstructure:"ttl"`
}

type ParserConfig struct {
	CRDBDateSeparator string `mapstructure:"crdb_date_separator"`
}

type DedupConfig struct {
	ChunkSize int    `mapstructure:"chunk_size"`
	NMBKey    string `mapstructure:"nmb_key"`
	CRDBKey   string `mapstructure:"crdb_key"`
}

type StoreConfig struct {
	WriteChunkSize int `mapstructure:"write_chunk_size"`
}

type ExportConfig struct {
	CountryCode  string `mapstructure:"country_code"`
	ExchangeRate string `mapstructure:"exchange_rate"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

func NewDefault() *Config {
	return &Config{
		Database:  DatabaseConfig{Path: filepath.Join("data", "statements.db")},
		Server:    ServerConfig{Port: "8080"},
		Directory: DirectoryConfig{TTL: 24 * time.Hour},
		Parser:    ParserConfig{CRDBDateSeparator: "/"},
		Dedup: DedupConfig{
			ChunkSize: 100,
			NMBKey:    string(statement.KeyReferenceID),
			CRDBKey:   string(statement.KeyReferenceID),
		},
		Store:  StoreConfig{WriteChunkSize: 100},
		Export: ExportConfig{CountryCode: "TZ", ExchangeRate: "1"},
		Log:    LogConfig{Level: "info"},
	}
}

// Load reads cfgFile (or config.yaml from the working directory when empty)
// over the defaults, then applies QBU_* environment overrides. A missing
// default config file is not an error.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v, NewDefault())

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if cfgFile != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("config file error: %w", err)
		}
	}

	cfg := NewDefault()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.ConfigPath = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override keys that are
// absent from the file.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("directory.path", d.Directory.Path)
	v.SetDefault("directory.ttl", d.Directory.TTL)
	v.SetDefault("parser.crdb_date_separator", d.Parser.CRDBDateSeparator)
	v.SetDefault("dedup.chunk_size", d.Dedup.ChunkSize)
	v.SetDefault("dedup.nmb_key", d.Dedup.NMBKey)
	v.SetDefault("dedup.crdb_key", d.Dedup.CRDBKey)
	v.SetDefault("store.write_chunk_size", d.Store.WriteChunkSize)
	v.SetDefault("export.country_code", d.Export.CountryCode)
	v.SetDefault("export.exchange_rate", d.Export.ExchangeRate)
	v.SetDefault("log.level", d.Log.Level)
}

// Validate rejects values the services cannot run with
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return errors.New("database.path must not be empty")
	}
	if sep := c.Parser.CRDBDateSeparator; sep != "/" && sep != "-" {
		return fmt.Errorf("parser.crdb_date_separator must be \"/\" or \"-\", got %q", sep)
	}
	if c.Dedup.ChunkSize <= 0 {
		return fmt.Errorf("dedup.chunk_size must be positive, got %d", c.Dedup.ChunkSize)
	}
	if c.Store.WriteChunkSize <= 0 {
		return fmt.Errorf("store.write_chunk_size must be positive, got %d", c.Store.WriteChunkSize)
	}
	if _, err := c.DedupKeys(); err != nil {
		return err
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// DedupKeys returns the configured duplicate key per bank format
func (c *Config) DedupKeys() (map[statement.BankFormat]statement.KeyField, error) {
	nmb, err := statement.ParseKeyField(c.Dedup.NMBKey)
	if err != nil {
		return nil, fmt.Errorf("dedup.nmb_key: %w", err)
	}
	crdb, err := statement.ParseKeyField(c.Dedup.CRDBKey)
	if err != nil {
		return nil, fmt.Errorf("dedup.crdb_key: %w", err)
	}
	return map[statement.BankFormat]statement.KeyField{
		statement.FormatNMB:  nmb,
		statement.FormatCRDB: crdb,
	}, nil
}

// NewLogger creates the process logger at the configured level
func (c *Config) NewLogger() *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "qbu",
	})
	if level, err := log.ParseLevel(c.Log.Level); err == nil {
		logger.SetLevel(level)
	}
	return logger
}
