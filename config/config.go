package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
)

type Config struct {
	ListenAddr    string `json:"listenAddr"`
	DBDriver      string `json:"dbDriver"`
	DBDSN         string `json:"dbDSN"`
	ItemsPerPage  int    `json:"itemsPerPage"`
	Locale        string `json:"locale"`
	UnitsFile     string `json:"unitsFile"`
	UnitsEncoding string `json:"unitsEncoding"`
	LogLevel      string `json:"logLevel"`
	LogFile       string `json:"logFile"`
	BrowserPath   string `json:"browserPath"`
}

const (
	DefaultListenAddr   = ":8080"
	DefaultDBDriver     = "sqlite3"
	DefaultDBDSN        = "./stockroom.db?_journal_mode=WAL&_busy_timeout=5000"
	DefaultItemsPerPage = 6
	DefaultLocale       = "en-US"
	DefaultLogLevel     = "info"
)

var (
	cfg            = Default()
	mu             sync.RWMutex
	configFilePath = "./stockroom_config.json"
)

// Default は設定ファイルがない場合の設定を返します。
func Default() Config {
	return Config{
		ListenAddr:   DefaultListenAddr,
		DBDriver:     DefaultDBDriver,
		DBDSN:        DefaultDBDSN,
		ItemsPerPage: DefaultItemsPerPage,
		Locale:       DefaultLocale,
		LogLevel:     DefaultLogLevel,
	}
}

// SetPath は設定ファイルのパスを変更します。空文字は無視します。
func SetPath(path string) {
	if path == "" {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	configFilePath = path
}

func Path() string {
	mu.RLock()
	defer mu.RUnlock()
	return configFilePath
}

// applyDefaults は未設定の項目に既定値を入れます。
func applyDefaults(c *Config) {
	d := Default()
	if c.ListenAddr == "" {
		c.ListenAddr = d.ListenAddr
	}
	if c.DBDriver == "" {
		c.DBDriver = d.DBDriver
	}
	if c.DBDSN == "" && c.DBDriver == DefaultDBDriver {
		c.DBDSN = d.DBDSN
	}
	if c.ItemsPerPage == 0 {
		c.ItemsPerPage = d.ItemsPerPage
	}
	if c.Locale == "" {
		c.Locale = d.Locale
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
}

// applyEnv は環境変数による上書きを反映します。
func applyEnv(c *Config) {
	if v := os.Getenv("STOCKROOM_DB_DRIVER"); v != "" {
		c.DBDriver = v
	}
	if v := os.Getenv("STOCKROOM_DB_DSN"); v != "" {
		c.DBDSN = v
	}
	if v := os.Getenv("STOCKROOM_LISTEN_ADDR"); v != "" {
		c.ListenAddr = v
	}
}

// LoadConfig は設定ファイルを読み込みます。ファイルがなければ既定値を使います。
func LoadConfig() (Config, error) {
	mu.Lock()
	defer mu.Unlock()

	var tempCfg Config
	file, err := os.ReadFile(configFilePath)
	if err != nil {
		if !os.IsNotExist(err) {
			return Config{}, err
		}
	} else if err := json.Unmarshal(file, &tempCfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", configFilePath, err)
	}

	applyEnv(&tempCfg)
	applyDefaults(&tempCfg)
	if err := tempCfg.Validate(); err != nil {
		return Config{}, err
	}
	cfg = tempCfg
	return cfg, nil
}

func SaveConfig(newCfg Config) error {
	applyDefaults(&newCfg)
	if err := newCfg.Validate(); err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()

	file, err := json.MarshalIndent(newCfg, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(configFilePath, file, 0644); err != nil {
		return err
	}
	cfg = newCfg
	return nil
}

func GetConfig() Config {
	mu.RLock()
	defer mu.RUnlock()
	return cfg
}

var (
	ErrUnknownDriver   = errors.New("unknown database driver")
	ErrInvalidPageSize = errors.New("itemsPerPage must be between 1 and 100")
	ErrUnknownLogLevel = errors.New("unknown log level")
)

func (c Config) Validate() error {
	switch c.DBDriver {
	case "sqlite3", "pgx":
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDriver, c.DBDriver)
	}
	if c.DBDSN == "" {
		return fmt.Errorf("dbDSN is required for driver %q", c.DBDriver)
	}
	if c.ItemsPerPage < 1 || c.ItemsPerPage > 100 {
		return fmt.Errorf("%w: %d", ErrInvalidPageSize, c.ItemsPerPage)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: %q", ErrUnknownLogLevel, c.LogLevel)
	}
	return nil
}
