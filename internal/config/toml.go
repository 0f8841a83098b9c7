// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Play   PlayConfig   `toml:"play"`
	Server ServerConfig `toml:"server"`
	Log    LogConfig    `toml:"log"`
}

// PlayConfig maps terminal game settings.
type PlayConfig struct {
	Mode      *string `toml:"mode"`
	Words     *int    `toml:"words"`
	Server    *string `toml:"server"`
	Token     *string `toml:"token"`
	User      *string `toml:"user"`
	Username  *string `toml:"username"`
	WordsPath *string `toml:"words-path"`
	Lang      *string `toml:"lang"`
}

// ServerConfig maps HTTP API settings.
type ServerConfig struct {
	Addr           *string  `toml:"addr"`
	DB             *string  `toml:"db"`
	TokenSecret    *string  `toml:"token-secret"`
	AllowedOrigins []string `toml:"allowed-origins"`
	RateLimit      *int     `toml:"rate-limit"`
}

// LogConfig maps logging settings.
type LogConfig struct {
	Level  *string `toml:"level"`
	Format *string `toml:"format"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return FileConfig{}, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}
	return cfg, nil
}

// ApplyEnv overrides server settings from TYPERPG_* environment variables.
func (c *ServerConfig) ApplyEnv() error {
	if v, ok := lookupEnv("TYPERPG_ADDR"); ok {
		c.Addr = &v
	}
	if v, ok := lookupEnv("TYPERPG_DB"); ok {
		c.DB = &v
	}
	if v, ok := lookupEnv("TYPERPG_TOKEN_SECRET"); ok {
		c.TokenSecret = &v
	}
	if v, ok := lookupEnv("TYPERPG_ALLOWED_ORIGINS"); ok {
		c.AllowedOrigins = splitList(v)
	}
	if v, ok := lookupEnv("TYPERPG_RATE_LIMIT"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid TYPERPG_RATE_LIMIT %q: %w", v, err)
		}
		c.RateLimit = &n
	}
	return nil
}

func lookupEnv(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
