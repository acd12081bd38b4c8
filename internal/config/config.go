// This file defines the configuration structure for the console.
package config

import (
	"log"
	"net/url"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds all configuration settings for the console.
// It maps directly to the structure of config.yml.
type Config struct {
	API struct {
		BaseURL   string  `mapstructure:"base_url"`
		Timeout   int     `mapstructure:"timeout"`
		RateLimit float64 `mapstructure:"rate_limit"`
	} `mapstructure:"api"`
	Media struct {
		BaseURL string `mapstructure:"base_url"`
	} `mapstructure:"media"`
	Console struct {
		PageSize     int `mapstructure:"page_size"`
		DebounceMS   int `mapstructure:"debounce_ms"`
		CloseDelayMS int `mapstructure:"close_delay_ms"`
	} `mapstructure:"console"`
	State struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"state"`
	Session struct {
		Backend string `mapstructure:"backend"`
	} `mapstructure:"session"`
	Thumbnail struct {
		FFmpeg string `mapstructure:"ffmpeg"`
	} `mapstructure:"thumbnail"`
	Jobs struct {
		SessionCheckMinutes  int `mapstructure:"session_check_minutes"`
		LookupRefreshMinutes int `mapstructure:"lookup_refresh_minutes"`
	} `mapstructure:"jobs"`
}

// Load reads configuration from a file named "config.yml" in the
// current directory and unmarshals it into a Config struct.
func Load() (*Config, error) {
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yml")    // or "yaml"
	viper.AddConfigPath(".")      // looking for config in the current directory

	// e.g., STORYDESK_API_BASE_URL will override the `api.base_url` key.
	viper.SetEnvPrefix("STORYDESK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; ignore error and use defaults
		} else {
			// Config file was found but another error was produced
			return nil, err
		}
	}

	return current()
}

func setDefaults() {
	viper.SetDefault("api.base_url", "http://localhost:5000/api/v1")
	viper.SetDefault("api.timeout", 20)
	viper.SetDefault("api.rate_limit", 0)
	viper.SetDefault("media.base_url", "")
	viper.SetDefault("console.page_size", 10)
	viper.SetDefault("console.debounce_ms", 500)
	viper.SetDefault("console.close_delay_ms", 200)
	viper.SetDefault("state.path", "./storydesk.db")
	viper.SetDefault("session.backend", "db")
	viper.SetDefault("thumbnail.ffmpeg", "ffmpeg")
	viper.SetDefault("jobs.session_check_minutes", 1)
	viper.SetDefault("jobs.lookup_refresh_minutes", 10)
}

func current() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}
	if config.Media.BaseURL == "" {
		config.Media.BaseURL = Origin(config.API.BaseURL)
	}
	return &config, nil
}

// BindFlags registers the global flags on fs and binds them to their viper keys,
// so a flag given on the command line wins over config.yml and the environment.
func BindFlags(fs *pflag.FlagSet) {
	fs.String("api", "", "backend API base URL (api.base_url)")
	fs.String("state", "", "path to the local state database (state.path)")
	fs.Int("page-size", 0, "default rows per page (console.page_size)")

	bind := map[string]string{
		"api.base_url":      "api",
		"state.path":        "state",
		"console.page_size": "page-size",
	}
	for key, name := range bind {
		if err := viper.BindPFlag(key, fs.Lookup(name)); err != nil {
			log.Printf("Warning: could not bind flag --%s: %v", name, err)
		}
	}
}

// Watch reloads the configuration whenever config.yml changes on disk and
// hands the new values to onChange. Invalid edits are logged and ignored.
func Watch(onChange func(*Config)) {
	viper.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := current()
		if err != nil {
			log.Printf("Warning: ignoring config change in %s: %v", e.Name, err)
			return
		}
		log.Printf("Configuration reloaded from %s", e.Name)
		onChange(cfg)
	})
	viper.WatchConfig()
}

// Origin returns scheme://host of a URL, which is where the backend serves
// uploaded media. Unparseable input falls back to everything before "/api".
func Origin(raw string) string {
	u, err := url.Parse(raw)
	if err == nil && u.Scheme != "" && u.Host != "" {
		return u.Scheme + "://" + u.Host
	}
	if i := strings.Index(raw, "/api"); i >= 0 {
		return raw[:i]
	}
	return raw
}
