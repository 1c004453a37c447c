package appconfig

import (
	"os"
	"path/filepath"
	"time"

	"pkt.systems/oxycord/internal/captcha"
	"pkt.systems/oxycord/internal/chatapi"
)

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion int           `mapstructure:"config_version" yaml:"config_version"`
	DataDir       string        `mapstructure:"data_dir" yaml:"data_dir"`
	API           APIConfig     `mapstructure:"api" yaml:"api"`
	Captcha       CaptchaConfig `mapstructure:"captcha" yaml:"captcha"`
	Store         StoreConfig   `mapstructure:"store" yaml:"store"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// APIConfig configures the login endpoint client.
type APIConfig struct {
	BaseURL        string `mapstructure:"base_url" yaml:"base_url"`
	UserAgent      string `mapstructure:"user_agent" yaml:"user_agent"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
}

// CaptchaConfig configures the browser used for interactive challenges.
type CaptchaConfig struct {
	LoginURL    string `mapstructure:"login_url" yaml:"login_url"`
	Binding     string `mapstructure:"binding" yaml:"binding"`
	Width       int    `mapstructure:"width" yaml:"width"`
	Height      int    `mapstructure:"height" yaml:"height"`
	ChromePath  string `mapstructure:"chrome_path" yaml:"chrome_path"`
	UserDataDir string `mapstructure:"user_data_dir" yaml:"user_data_dir"`
}

// StoreConfig controls where and how the session is kept.
// Relative paths resolve against DataDir.
type StoreConfig struct {
	File     string `mapstructure:"file" yaml:"file"`
	Encrypt  bool   `mapstructure:"encrypt" yaml:"encrypt"`
	KeyStore string `mapstructure:"key_store" yaml:"key_store"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() (Config, error) {
	dataDir, err := DefaultDataDir()
	if err != nil {
		return Config{}, err
	}
	return Config{
		ConfigVersion: CurrentConfigVersion,
		DataDir:       dataDir,
		API: APIConfig{
			BaseURL:        chatapi.DefaultBaseURL,
			UserAgent:      chatapi.DefaultUserAgent,
			TimeoutSeconds: 0,
		},
		Captcha: CaptchaConfig{
			LoginURL:    captcha.DefaultLoginURL,
			Binding:     captcha.DefaultBinding,
			Width:       captcha.DefaultWidth,
			Height:      captcha.DefaultHeight,
			ChromePath:  "",
			UserDataDir: "",
		},
		Store: StoreConfig{
			File:     "data",
			Encrypt:  true,
			KeyStore: "keys.bundle",
		},
	}, nil
}

// DefaultDataDir returns $XDG_DATA_HOME/oxycord, falling back to
// ~/.local/share/oxycord.
func DefaultDataDir() (string, error) {
	if dir := os.Getenv("XDG_DATA_HOME"); filepath.IsAbs(dir) {
		return filepath.Join(dir, "oxycord"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", "oxycord"), nil
}

// DefaultConfigPath returns the standard config path.
func DefaultConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "oxycord", "config.yaml"), nil
}

// SessionFile returns the resolved session file path.
func (c Config) SessionFile() string {
	return c.resolve(c.Store.File)
}

// KeyStorePath returns the resolved key bundle path.
func (c Config) KeyStorePath() string {
	return c.resolve(c.Store.KeyStore)
}

// APITimeout returns the request timeout; zero disables it.
func (c Config) APITimeout() time.Duration {
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

func (c Config) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.DataDir, path)
}
