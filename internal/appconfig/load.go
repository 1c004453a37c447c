package appconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Load reads configuration from the provided path. If path is empty, uses
// DefaultConfigPath. A missing file yields the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return Config{}, err
		}
		path = defaultPath
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault("data_dir", cfg.DataDir)
	v.SetDefault("api.base_url", cfg.API.BaseURL)
	v.SetDefault("api.user_agent", cfg.API.UserAgent)
	v.SetDefault("api.timeout_seconds", cfg.API.TimeoutSeconds)
	v.SetDefault("captcha.login_url", cfg.Captcha.LoginURL)
	v.SetDefault("captcha.binding", cfg.Captcha.Binding)
	v.SetDefault("captcha.width", cfg.Captcha.Width)
	v.SetDefault("captcha.height", cfg.Captcha.Height)
	v.SetDefault("captcha.chrome_path", cfg.Captcha.ChromePath)
	v.SetDefault("captcha.user_data_dir", cfg.Captcha.UserDataDir)
	v.SetDefault("store.file", cfg.Store.File)
	v.SetDefault("store.encrypt", cfg.Store.Encrypt)
	v.SetDefault("store.key_store", cfg.Store.KeyStore)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, err
		}
	} else {
		if !v.InConfig("config_version") {
			return Config{}, fmt.Errorf("config_version is required; expected %d", CurrentConfigVersion)
		}
		if v.GetInt("config_version") != CurrentConfigVersion {
			return Config{}, fmt.Errorf("unsupported config_version %d; expected %d", v.GetInt("config_version"), CurrentConfigVersion)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	expandConfigEnv(&cfg)
	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	if strings.TrimSpace(cfg.DataDir) == "" {
		return fmt.Errorf("data_dir is required")
	}
	if err := validateURL("api.base_url", cfg.API.BaseURL); err != nil {
		return err
	}
	if err := validateURL("captcha.login_url", cfg.Captcha.LoginURL); err != nil {
		return err
	}
	if cfg.API.TimeoutSeconds < 0 {
		return fmt.Errorf("api.timeout_seconds must not be negative")
	}
	if cfg.Captcha.Width <= 0 || cfg.Captcha.Height <= 0 {
		return fmt.Errorf("captcha.width and captcha.height must be positive")
	}
	if strings.TrimSpace(cfg.Store.File) == "" {
		return fmt.Errorf("store.file is required")
	}
	if cfg.Store.Encrypt && strings.TrimSpace(cfg.Store.KeyStore) == "" {
		return fmt.Errorf("store.key_store is required when store.encrypt is true")
	}
	return nil
}

func validateURL(key, value string) error {
	parsed, err := url.Parse(strings.TrimSpace(value))
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return fmt.Errorf("%s must include an http(s) scheme and host (e.g. https://example.com)", key)
	}
	return nil
}

func expandConfigEnv(cfg *Config) {
	if cfg == nil {
		return
	}
	cfg.DataDir = expandEnv(cfg.DataDir)
	cfg.Captcha.ChromePath = expandEnv(cfg.Captcha.ChromePath)
	cfg.Captcha.UserDataDir = expandEnv(cfg.Captcha.UserDataDir)
	cfg.Store.File = expandEnv(cfg.Store.File)
	cfg.Store.KeyStore = expandEnv(cfg.Store.KeyStore)
}

func expandEnv(value string) string {
	if value == "" {
		return value
	}
	if value == "~" || strings.HasPrefix(value, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			value = home + value[1:]
		}
	}
	return os.Expand(value, func(key string) string {
		if key == "" {
			return ""
		}
		if val, ok := lookupEnv(key); ok {
			return val
		}
		return "$" + key
	})
}

func lookupEnv(key string) (string, bool) {
	if val, ok := os.LookupEnv(key); ok {
		return val, true
	}
	switch key {
	case "UID":
		return fmt.Sprintf("%d", os.Getuid()), true
	case "GID":
		return fmt.Sprintf("%d", os.Getgid()), true
	}
	return "", false
}

// Marshal renders cfg as YAML.
func Marshal(cfg Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}

// WriteDefault writes the default config to the target path.
func WriteDefault(path string, overwrite bool) (string, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", err
		}
		path = defaultPath
	}

	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("config already exists at %s", path)
		}
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return "", err
	}

	data, err := Marshal(cfg)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
