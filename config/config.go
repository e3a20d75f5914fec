package config

import (
	"errors"
	"log/slog"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/goccy/go-yaml"
)

const (
	defaultListen        = ":8080"
	defaultSessionCookie = "bankweb_session"
	defaultSessionTTL    = 86400
)

var ErrNoAPIURL = errors.New("config is missing APIURL")

type RedisConfig struct {
	Addr     string `yaml:"Addr"`
	Password string `yaml:"Password"`
	DB       int    `yaml:"DB"`
}

type yamlConfig struct {
	Listen         string      `yaml:"Listen"`
	APIURL         string      `yaml:"APIURL"`
	ExternalOrigin string      `yaml:"ExternalOrigin"`
	SessionCookie  string      `yaml:"SessionCookie"`
	SessionTTL     uint64      `yaml:"SessionTTL"`
	Redis          RedisConfig `yaml:"Redis"`
	ReloadTime     uint64      `yaml:"ReloadTime"`
}

type Config struct {
	path string

	mu         sync.RWMutex
	yamlConfig yamlConfig
}

// ParseConfig parses the Yaml file at the given path to get server config.
//
// If the ReloadTime setting is non-zero, the config will be reloaded after
// waiting that many seconds.
//
// The following is the config structure:
//
//	{
//	    Listen         string
//	    APIURL         string
//	    ExternalOrigin string
//	    SessionCookie  string
//	    SessionTTL     uint64
//	    Redis struct {
//	        Addr, Password string
//	        DB             int
//	    }
//	    ReloadTime     uint64
//	}
//
// APIURL must be an absolute URL and is the only required setting; it is the
// base of the banking REST API that every outgoing request is sent to.
//
// ExternalOrigin is the scheme://host[:port] this server is reachable on
// from a browser; it is used to build the success and cancel return URLs
// given to the payment processor. If unset, return URLs are derived from the
// incoming request's Host header.
//
// SessionTTL is the browser session lifetime in seconds.
func ParseConfig(path string) (*Config, error) {
	c := &Config{path: path}

	if err := c.loadConfig(); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Config) loadConfig() error {
	defer c.scheduleReload()

	f, err := os.Open(c.path)
	if err != nil {
		return err
	}

	defer f.Close()

	c.mu.Lock()
	defer c.mu.Unlock()

	if err = yaml.NewDecoder(f).Decode(&c.yamlConfig); err != nil {
		return err
	}

	return c.validate()
}

func (c *Config) validate() error {
	if c.yamlConfig.APIURL == "" {
		return ErrNoAPIURL
	}

	u, err := url.Parse(c.yamlConfig.APIURL)
	if err != nil {
		return err
	} else if !u.IsAbs() {
		return ErrNoAPIURL
	}

	return nil
}

func (c *Config) scheduleReload() {
	if c.yamlConfig.ReloadTime == 0 {
		return
	}

	go c.reload()
}

func (c *Config) reload() {
	time.Sleep(time.Second * time.Duration(c.yamlConfig.ReloadTime)) //nolint:gosec

	if err := c.loadConfig(); err != nil {
		slog.Warn("error reloading config", "errs", err)
	}
}

// Listen returns the address for the server to listen on.
func (c *Config) Listen() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.yamlConfig.Listen == "" {
		return defaultListen
	}

	return c.yamlConfig.Listen
}

// APIURL returns the base URL of the banking REST API.
func (c *Config) APIURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.yamlConfig.APIURL
}

// ExternalOrigin returns the origin this server is reachable on from a
// browser, or an empty string if it should be derived per-request.
func (c *Config) ExternalOrigin() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.yamlConfig.ExternalOrigin
}

// SessionCookie returns the name of the browser session cookie.
func (c *Config) SessionCookie() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.yamlConfig.SessionCookie == "" {
		return defaultSessionCookie
	}

	return c.yamlConfig.SessionCookie
}

// SessionTTL returns the browser session lifetime.
func (c *Config) SessionTTL() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ttl := c.yamlConfig.SessionTTL
	if ttl == 0 {
		ttl = defaultSessionTTL
	}

	return time.Second * time.Duration(ttl) //nolint:gosec
}

// Redis returns the connection details for the session store; an empty Addr
// means sessions are held in memory.
func (c *Config) Redis() RedisConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.yamlConfig.Redis
}
