package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/maxlab/magnetpanel/internal/logging"
)

const envPrefix = "MAGNETPANEL"

// Profile is one named set of connection settings.
type Profile struct {
	Database       string        `mapstructure:"database"`
	PollingPeriod  time.Duration `mapstructure:"polling_period"`
	CommandTimeout time.Duration `mapstructure:"command_timeout"`
	Seed           bool          `mapstructure:"seed"`
	Confirm        bool          `mapstructure:"confirm"`
}

type Config struct {
	Profiles      map[string]Profile `mapstructure:"profiles"`
	ActiveProfile string             `mapstructure:"active_profile"`
	Log           logging.Config     `mapstructure:"log"`

	path string
}

var ErrNoProfile = errors.New("profile does not exist")

func DefaultProfile() Profile {
	return Profile{
		Database:       filepath.Join(dataDir(), "devices.db"),
		PollingPeriod:  500 * time.Millisecond,
		CommandTimeout: 3 * time.Second,
		Seed:           true,
		Confirm:        true,
	}
}

// Load reads the config file, if any, and applies MAGNETPANEL_ env
// overrides on top of the defaults.
func Load() (*Config, error) {
	v := viper.New()
	def := DefaultProfile()
	v.SetDefault("active_profile", "default")
	v.SetDefault("profiles.default.database", def.Database)
	v.SetDefault("profiles.default.polling_period", def.PollingPeriod)
	v.SetDefault("profiles.default.command_timeout", def.CommandTimeout)
	v.SetDefault("profiles.default.seed", def.Seed)
	v.SetDefault("profiles.default.confirm", def.Confirm)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.sink", "file")
	v.SetDefault("log.file", logging.DefaultFile())
	v.SetDefault("log.compress", true)

	v.SetConfigType("toml")
	path := Path()
	v.SetConfigFile(path)

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, statErr := os.Stat(path); statErr == nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	c.path = path
	if len(c.Profiles) == 0 {
		c.Profiles = map[string]Profile{"default": def}
	}
	for name, p := range c.Profiles {
		c.Profiles[name] = p.withDefaults(def)
	}
	if _, ok := c.Profiles[c.ActiveProfile]; !ok {
		c.ActiveProfile = c.ProfileNames()[0]
	}
	return &c, nil
}

func (p Profile) withDefaults(def Profile) Profile {
	if p.Database == "" {
		p.Database = def.Database
	}
	if p.PollingPeriod <= 0 {
		p.PollingPeriod = def.PollingPeriod
	}
	if p.CommandTimeout <= 0 {
		p.CommandTimeout = def.CommandTimeout
	}
	return p
}

// Current returns the active profile.
func (c *Config) Current() Profile {
	return c.Profiles[c.ActiveProfile]
}

func (c *Config) ProfileNames() []string {
	names := make([]string, 0, len(c.Profiles))
	for n := range c.Profiles {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Use makes name the active profile.
func (c *Config) Use(name string) error {
	if _, ok := c.Profiles[name]; !ok {
		return fmt.Errorf("%q: %w", name, ErrNoProfile)
	}
	c.ActiveProfile = name
	return nil
}

// Save writes the config back to the file it was loaded from.
func (c *Config) Save() error {
	path := c.path
	if path == "" {
		path = Path()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	v := viper.New()
	v.SetConfigType("toml")
	v.Set("active_profile", c.ActiveProfile)
	for name, p := range c.Profiles {
		key := "profiles." + name
		v.Set(key+".database", p.Database)
		v.Set(key+".polling_period", p.PollingPeriod.String())
		v.Set(key+".command_timeout", p.CommandTimeout.String())
		v.Set(key+".seed", p.Seed)
		v.Set(key+".confirm", p.Confirm)
	}
	v.Set("log.level", c.Log.Level)
	v.Set("log.format", c.Log.Format)
	v.Set("log.sink", c.Log.Sink)
	v.Set("log.file", c.Log.File)
	v.Set("log.compress", c.Log.Compress)
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Path is MAGNETPANEL_CONFIG or ~/.config/magnetpanel/config.toml.
func Path() string {
	if p := os.Getenv(envPrefix + "_CONFIG"); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(dir, "magnetpanel", "config.toml")
}

func dataDir() string {
	if d := os.Getenv("XDG_DATA_HOME"); d != "" {
		return filepath.Join(d, "magnetpanel")
	}
	return filepath.Join(os.Getenv("HOME"), ".local", "share", "magnetpanel")
}
