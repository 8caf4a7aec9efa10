package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	SelectionPolicyStrict = "strict"
	SelectionPolicyLegacy = "legacy"
)

type Config struct {
	Client struct {
		BaseURL        string        `yaml:"base_url"`
		RequestTimeout time.Duration `yaml:"request_timeout"`
		RateLimit      float64       `yaml:"rate_limit"`
		MaxUploadBytes int64         `yaml:"max_upload_bytes"`
	} `yaml:"client"`

	Session struct {
		SelectionPolicy string `yaml:"selection_policy"`
	} `yaml:"session"`

	Log struct {
		File    string `yaml:"file"`
		Console bool   `yaml:"console"`
	} `yaml:"log"`

	UI struct {
		StatusClearDelay time.Duration `yaml:"status_clear_delay"`
		Spinner          bool          `yaml:"spinner"`
		NoColor          bool          `yaml:"no_color"`
	} `yaml:"ui"`
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"docchat.yaml",
			"docchat.yml",
			filepath.Join(os.Getenv("HOME"), ".config/docchat/config.yaml"),
			"/etc/docchat/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	config := &Config{}
	config.UI.Spinner = true
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	mergeWithEnv(config)
	applyDefaults(config)

	return config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	config.UI.Spinner = true
	applyDefaults(config)
	mergeWithEnv(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.Client.BaseURL == "" {
		config.Client.BaseURL = "http://localhost:5000"
	}
	if config.Client.RequestTimeout == 0 {
		config.Client.RequestTimeout = 60 * time.Second
	}
	if config.Client.RateLimit == 0 {
		config.Client.RateLimit = 5.0
	}
	if config.Client.MaxUploadBytes == 0 {
		config.Client.MaxUploadBytes = 16 * 1024 * 1024
	}

	if config.Session.SelectionPolicy == "" {
		config.Session.SelectionPolicy = SelectionPolicyStrict
	}

	if config.Log.File == "" {
		config.Log.File = filepath.Join(os.TempDir(), "docchat.log")
	}

	if config.UI.StatusClearDelay == 0 {
		config.UI.StatusClearDelay = 3 * time.Second
	}
}

func mergeWithEnv(config *Config) {
	if baseURL := os.Getenv("DOCCHAT_API_URL"); baseURL != "" {
		config.Client.BaseURL = baseURL
	}
	if logFile := os.Getenv("DOCCHAT_LOG_FILE"); logFile != "" {
		config.Log.File = logFile
	}
	if policy := os.Getenv("DOCCHAT_SELECTION_POLICY"); policy != "" {
		config.Session.SelectionPolicy = policy
	}
}
