// Package config resolves xplore settings from defaults, an optional YAML
// file and XPLORE_* environment variables. Command-line flags are applied by
// the caller on top.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"xplore/internal/model"
)

const (
	EnvBaseURL   = "XPLORE_BASE_URL"
	EnvService   = "XPLORE_SERVICE"
	EnvToken     = "XPLORE_TOKEN"
	EnvPartition = "XPLORE_PARTITION"
	EnvDebug     = "XPLORE_DEBUG"
	EnvSpecFile  = "XPLORE_SPEC_FILE"
	EnvEditor    = "XPLORE_EDITOR"
)

// Service is one entry of the service catalogue.
type Service struct {
	Name  string `yaml:"name"`
	Title string `yaml:"title"`
	Mount string `yaml:"mount"`
}

type Auth struct {
	Token        string `yaml:"token"`
	Method       string `yaml:"method"`
	HeaderName   string `yaml:"header_name"`
	HeaderPrefix string `yaml:"header_prefix"`
	CookieName   string `yaml:"cookie_name"`
}

// Model converts the settings into the form the request builder takes.
func (a Auth) Model() model.AuthConfig {
	return model.AuthConfig{
		Token:        a.Token,
		Method:       model.ParseAuthMethod(a.Method),
		HeaderName:   a.HeaderName,
		HeaderPrefix: a.HeaderPrefix,
		CookieName:   a.CookieName,
	}
}

type Config struct {
	BaseURL    string    `yaml:"base_url"`
	BaseURLs   []string  `yaml:"base_urls"`
	Service    string    `yaml:"service"`
	Services   []Service `yaml:"services"`
	SpecFile   string    `yaml:"spec_file"`
	Partition  string    `yaml:"partition"`
	Partitions []string  `yaml:"partitions"`
	Auth       Auth      `yaml:"auth"`

	FetchTimeout   time.Duration `yaml:"fetch_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	CacheSize      int           `yaml:"cache_size"`

	Editor   string `yaml:"editor"`
	Debug    bool   `yaml:"debug"`
	LogFile  string `yaml:"log_file"`
	LogLevel string `yaml:"log_level"`
}

func Default() *Config {
	auth := model.DefaultAuthConfig()
	return &Config{
		BaseURL:  "http://127.0.0.1:5000",
		BaseURLs: []string{"http://127.0.0.1:5000", "http://127.0.0.1:8000"},
		Service:  "Service1",
		Services: []Service{
			{Name: "Service1", Title: "Service 1", Mount: "/service1"},
			{Name: "Service2", Title: "Service 2", Mount: "/service2"},
			{Name: "Service3", Title: "Service 3", Mount: "/service3"},
		},
		Partition:  "partition1",
		Partitions: []string{"partition1", "partition2"},
		Auth: Auth{
			Method:       string(auth.Method),
			HeaderName:   auth.HeaderName,
			HeaderPrefix: auth.HeaderPrefix,
			CookieName:   auth.CookieName,
		},
		FetchTimeout:   5 * time.Second,
		RequestTimeout: 30 * time.Second,
		CacheSize:      32,
		LogFile:        "xplore.log",
		LogLevel:       "debug",
	}
}

// Load starts from Default, overlays the YAML file at path (if any) and then
// the environment. An empty path skips the file.
func Load(path string) (*Config, error) {
	c := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}
	c.ApplyEnv(os.LookupEnv)
	return c, nil
}

// ApplyEnv overlays XPLORE_* variables. lookup is os.LookupEnv outside tests.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}
	if v, ok := get(EnvBaseURL); ok {
		c.BaseURL = v
	}
	if v, ok := get(EnvService); ok {
		c.Service = v
	}
	if v, ok := get(EnvToken); ok {
		c.Auth.Token = v
	}
	if v, ok := get(EnvPartition); ok {
		c.Partition = v
	}
	if v, ok := get(EnvSpecFile); ok {
		c.SpecFile = v
	}
	if v, ok := get(EnvEditor); ok {
		c.Editor = v
	}
	if v, ok := get(EnvDebug); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Debug = b
		}
	}
}

// Lookup finds a service by short name.
func (c *Config) Lookup(name string) (Service, bool) {
	for _, s := range c.Services {
		if s.Name == name {
			return s, true
		}
	}
	return Service{}, false
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var result *multierror.Error

	if c.BaseURL == "" {
		result = multierror.Append(result, errors.New("base_url is required"))
	} else if u, err := url.Parse(c.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		result = multierror.Append(result, fmt.Errorf("base_url %q is not an absolute URL", c.BaseURL))
	}

	if len(c.Services) == 0 && c.SpecFile == "" {
		result = multierror.Append(result, errors.New("at least one service is required"))
	}
	seen := map[string]bool{}
	for i, s := range c.Services {
		if s.Name == "" {
			result = multierror.Append(result, fmt.Errorf("services[%d]: name is required", i))
			continue
		}
		if seen[s.Name] {
			result = multierror.Append(result, fmt.Errorf("services[%d]: duplicate name %q", i, s.Name))
		}
		seen[s.Name] = true
	}
	if c.SpecFile == "" && len(c.Services) > 0 {
		if _, ok := c.Lookup(c.Service); !ok {
			result = multierror.Append(result, fmt.Errorf("service %q is not in the service list", c.Service))
		}
	}

	switch strings.ToLower(c.Auth.Method) {
	case "", string(model.AuthHeader), string(model.AuthCookie):
	default:
		result = multierror.Append(result, fmt.Errorf("auth.method must be header or cookie, got %q", c.Auth.Method))
	}
	if c.FetchTimeout < 0 {
		result = multierror.Append(result, errors.New("fetch_timeout must not be negative"))
	}
	if c.RequestTimeout < 0 {
		result = multierror.Append(result, errors.New("request_timeout must not be negative"))
	}
	if c.CacheSize < 0 {
		result = multierror.Append(result, errors.New("cache_size must not be negative"))
	}
	return result.ErrorOrNil()
}
