package config

import (
	"encoding/json"
	"net"
	"os"

	"github.com/sirupsen/logrus"
)

// DefaultPath is the well-known location of the IPC config file.
const DefaultPath = "/etc/neutral-ipc-cfg.json"

const (
	defaultHost = "127.0.0.1"
	defaultPort = "4273"
)

// Config is the immutable startup configuration. Both fields are
// optional in the file; anything missing keeps its default.
type Config struct {
	Host string `json:"host"`
	Port string `json:"port"`
}

func Default() Config {
	return Config{
		Host: defaultHost,
		Port: defaultPort,
	}
}

// Load reads the JSON config file at path. A missing or unreadable
// file, or one that is not valid JSON, falls back to the defaults
// with a diagnostic; it is never fatal.
func Load(path string) Config {
	cfg := Default()

	raw, err := os.ReadFile(path)
	if err != nil {
		logrus.WithError(err).Warnf("Impossible to read config %s, default is used", path)
		return cfg
	}

	var parsed Config
	if err := json.Unmarshal(raw, &parsed); err != nil {
		logrus.WithError(err).Warnf("Config %s is not a valid JSON, default is used", path)
		return cfg
	}

	if parsed.Host != "" {
		cfg.Host = parsed.Host
	}
	if parsed.Port != "" {
		cfg.Port = parsed.Port
	}
	return cfg
}

func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}
