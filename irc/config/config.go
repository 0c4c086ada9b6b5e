// Package config loads server configuration from YAML, TOML or JSON files,
// applies environment variable overrides, and validates the result.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the server configuration.
type Config struct {
	Server struct {
		Name        string   `yaml:"name" toml:"name" json:"name" env:"IRCD_SERVER_NAME"`
		Network     string   `yaml:"network" toml:"network" json:"network" env:"IRCD_NETWORK"`
		Description string   `yaml:"description" toml:"description" json:"description" env:"IRCD_DESCRIPTION"`
		Host        string   `yaml:"host" toml:"host" json:"host" env:"IRCD_HOST"`
		Port        int      `yaml:"port" toml:"port" json:"port" env:"IRCD_PORT" validate:"min=1,max=65535"`
		Password    string   `yaml:"password" toml:"password" json:"password" env:"IRCD_PASSWORD"`
		MOTD        []string `yaml:"motd" toml:"motd" json:"motd"`
	} `yaml:"server" toml:"server" json:"server"`

	Log struct {
		Level string `yaml:"level" toml:"level" json:"level" env:"IRCD_LOG_LEVEL" validate:"oneof=debug info warn error"`
	} `yaml:"log" toml:"log" json:"log"`

	Admin struct {
		Enabled      bool   `yaml:"enabled" toml:"enabled" json:"enabled" env:"IRCD_ADMIN_ENABLED"`
		Host         string `yaml:"host" toml:"host" json:"host" env:"IRCD_ADMIN_HOST"`
		Port         int    `yaml:"port" toml:"port" json:"port" env:"IRCD_ADMIN_PORT" validate:"min=0,max=65535"`
		Username     string `yaml:"username" toml:"username" json:"username" env:"IRCD_ADMIN_USERNAME"`
		PasswordHash string `yaml:"password_hash" toml:"password_hash" json:"password_hash" env:"IRCD_ADMIN_PASSWORD_HASH"`
	} `yaml:"admin" toml:"admin" json:"admin"`

	Operators []Operator `yaml:"operators" toml:"operators" json:"operators" validate:"dive"`

	Limits struct {
		MaxChannels int `yaml:"max_channels" toml:"max_channels" json:"max_channels" validate:"min=1"`
		SendQueue   int `yaml:"send_queue" toml:"send_queue" json:"send_queue" validate:"min=1"`
	} `yaml:"limits" toml:"limits" json:"limits"`

	// Source the configuration was loaded from, empty for defaults.
	Source string `yaml:"-" toml:"-" json:"-"`
}

// Operator is a server operator credential. The password is stored as a
// bcrypt hash.
type Operator struct {
	Username     string `yaml:"username" toml:"username" json:"username" validate:"required"`
	PasswordHash string `yaml:"password_hash" toml:"password_hash" json:"password_hash" validate:"required"`
}

// Default returns a configuration with every field at its default.
func Default() *Config {
	cfg := &Config{}
	cfg.Server.Name = "irc.server"
	cfg.Server.Network = "IRCNet"
	cfg.Server.Description = "IRC relay server"
	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Port = 6667
	cfg.Server.MOTD = []string{"Welcome to the server", "Enjoy your stay!"}
	cfg.Log.Level = "info"
	cfg.Admin.Host = "127.0.0.1"
	cfg.Admin.Port = 8080
	cfg.Limits.MaxChannels = 10
	cfg.Limits.SendQueue = 4096
	return cfg
}

// Load reads a configuration file, chosen by extension, on top of the
// defaults, then applies environment overrides. An empty path yields the
// defaults plus overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	applyEnvOverrides(reflect.ValueOf(cfg).Elem())
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	switch {
	case strings.HasSuffix(path, ".toml"):
		err = toml.Unmarshal(data, c)
	case strings.HasSuffix(path, ".json"):
		err = json.Unmarshal(data, c)
	default:
		err = yaml.Unmarshal(data, c)
	}
	if err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	c.Source = path
	return nil
}

// Validate checks the configuration with the struct validation tags.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// ListenAddress returns the formatted listen address for the IRC listener.
func (c *Config) ListenAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// AdminListenAddress returns the formatted listen address for the admin
// endpoint.
func (c *Config) AdminListenAddress() string {
	return fmt.Sprintf("%s:%d", c.Admin.Host, c.Admin.Port)
}

// applyEnvOverrides walks the struct and overrides any field whose env tag
// names a set environment variable.
func applyEnvOverrides(v reflect.Value) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldValue := v.Field(i)

		if field.PkgPath != "" {
			continue
		}

		if envTag := field.Tag.Get("env"); envTag != "" {
			if envValue, exists := os.LookupEnv(envTag); exists {
				setFieldFromEnv(fieldValue, envValue)
			}
			continue
		}
		if field.Type.Kind() == reflect.Struct {
			applyEnvOverrides(fieldValue)
		}
	}
}

func setFieldFromEnv(field reflect.Value, envValue string) {
	switch field.Kind() {
	case reflect.String:
		field.SetString(envValue)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if v, err := strconv.ParseInt(envValue, 10, 64); err == nil {
			field.SetInt(v)
		}
	case reflect.Bool:
		s := strings.ToLower(envValue)
		field.SetBool(s == "true" || s == "1" || s == "yes" || s == "y")
	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			values := strings.Split(envValue, ",")
			slice := reflect.MakeSlice(field.Type(), len(values), len(values))
			for i, v := range values {
				slice.Index(i).SetString(strings.TrimSpace(v))
			}
			field.Set(slice)
		}
	}
}
