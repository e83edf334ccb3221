package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Location  LocationConfig  `mapstructure:"location"`
	Geocoder  GeocoderConfig  `mapstructure:"geocoder"`
	Reminders RemindersConfig `mapstructure:"reminders"`
	Chat      ChatConfig      `mapstructure:"chat"`
}

type TelegramConfig struct {
	Token         string `mapstructure:"token"`
	UpdateTimeout int    `mapstructure:"update_timeout"`
	Debug         bool   `mapstructure:"debug"`
}

type LocationConfig struct {
	Timeout      time.Duration `mapstructure:"timeout"`
	HighAccuracy bool          `mapstructure:"high_accuracy"`
}

type GeocoderConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	UserAgent string        `mapstructure:"user_agent"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type RemindersConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	At       string `mapstructure:"at"`
	Timezone string `mapstructure:"timezone"`
}

type ChatConfig struct {
	TypingDelay time.Duration `mapstructure:"typing_delay"`
	HistorySize int           `mapstructure:"history_size"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("telegram.update_timeout", 60)
	v.SetDefault("telegram.debug", false)
	v.SetDefault("location.timeout", 10*time.Second)
	v.SetDefault("location.high_accuracy", true)
	v.SetDefault("geocoder.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocoder.user_agent", "HeyBro-Bot/1.0")
	v.SetDefault("geocoder.timeout", 10*time.Second)
	v.SetDefault("reminders.enabled", true)
	v.SetDefault("reminders.at", "20:00")
	v.SetDefault("reminders.timezone", "UTC")
	v.SetDefault("chat.typing_delay", 1500*time.Millisecond)
	v.SetDefault("chat.history_size", 10)
}

// LoadConfig reads path and applies environment overrides. A missing file is
// fine as long as the environment provides the token.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// Enable environment variable support
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	// Get other environment variables
	if token := v.GetString("TELEGRAM_TOKEN"); token != "" {
		config.Telegram.Token = token
	}
	if url := v.GetString("NOMINATIM_URL"); url != "" {
		config.Geocoder.BaseURL = url
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Telegram.Token) == "" {
		errs = append(errs, errors.New("telegram.token is required"))
	}
	if c.Location.Timeout <= 0 {
		errs = append(errs, errors.New("location.timeout must be positive"))
	}
	if c.Geocoder.Timeout <= 0 {
		errs = append(errs, errors.New("geocoder.timeout must be positive"))
	}
	if c.Reminders.Enabled {
		if _, _, err := c.Reminders.Clock(); err != nil {
			errs = append(errs, err)
		}
		if _, err := time.LoadLocation(c.Reminders.Timezone); err != nil {
			errs = append(errs, fmt.Errorf("reminders.timezone: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Clock parses the HH:MM reminder time.
func (r RemindersConfig) Clock() (hour, minute uint, err error) {
	t, err := time.Parse("15:04", r.At)
	if err != nil {
		return 0, 0, fmt.Errorf("reminders.at %q: want HH:MM", r.At)
	}
	return uint(t.Hour()), uint(t.Minute()), nil
}
