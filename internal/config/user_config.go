package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/kelseyhightower/envconfig"
)

// UserConfig is the per-user settings file, analogous to turbo's
// TurborepoConfig but scoped to this orchestrator's own concerns: default
// concurrency, the remote cache session token, and the webhook URL
// override. envconfig tags let MOONRUN_-prefixed environment variables
// override whatever is on disk, the same precedence rule task env
// expansion already gives task.env over an env file.
type UserConfig struct {
	RemoteCacheToken string `json:"remoteCacheToken,omitempty" envconfig:"remote_cache_token"`
	Concurrency      int    `json:"concurrency,omitempty" envconfig:"concurrency"`
	WebhookURL       string `json:"webhookUrl,omitempty" envconfig:"webhook_url"`
}

func userConfigPath() (string, error) {
	return xdg.ConfigFile(filepath.Join("moonrun", "config.json"))
}

// WriteUserConfigFile persists cfg to the XDG config directory.
func WriteUserConfigFile(cfg *UserConfig) error {
	path, err := userConfigPath()
	if err != nil {
		return err
	}
	return WriteConfigFile(path, cfg)
}

// WriteConfigFile writes cfg as JSON to an explicit path.
func WriteConfigFile(path string, cfg *UserConfig) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ReadUserConfigFile reads the per-user config file, then lets any
// MOONRUN_-prefixed environment variable override a field, matching
// envconfig.Process's normal behavior.
func ReadUserConfigFile() (*UserConfig, error) {
	cfg := &UserConfig{}

	path, err := userConfigPath()
	if err != nil {
		return cfg, err
	}

	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return cfg, err
		}
	} else if !os.IsNotExist(err) {
		return cfg, err
	}

	if err := envconfig.Process("moonrun", cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// DeleteUserConfigFile removes any persisted per-user overrides, used by
// a `logout`-style reset the way turbo's DeleteUserConfigFile resets
// team/token state.
func DeleteUserConfigFile() error {
	return WriteUserConfigFile(&UserConfig{})
}
