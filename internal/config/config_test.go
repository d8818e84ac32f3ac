package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/shoenig/test/must"

	"xplore/internal/model"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestDefault_IsValid(t *testing.T) {
	c := Default()
	must.NoError(t, c.Validate())
	s, ok := c.Lookup("Service1")
	must.True(t, ok)
	must.EqOp(t, "/service1", s.Mount)
	must.EqOp(t, 30*time.Second, c.RequestTimeout)
	must.EqOp(t, 5*time.Second, c.FetchTimeout)

	auth := c.Auth.Model()
	must.EqOp(t, model.AuthHeader, auth.Method)
	must.EqOp(t, "Authorization", auth.HeaderName)
	must.EqOp(t, "Bearer ", auth.HeaderPrefix)
	must.EqOp(t, "stoken", auth.CookieName)
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "xplore.yaml")
	must.NoError(t, os.WriteFile(path, []byte(`
base_url: http://file.local:9000
service: Orders
services:
  - name: Orders
    title: Order Service
    mount: /orders
partitions: [opendes]
auth:
  method: cookie
  cookie_name: session
request_timeout: 10s
`), 0o600))

	t.Setenv(EnvPartition, "opendes")
	t.Setenv(EnvToken, " secret ")
	t.Setenv(EnvDebug, "1")

	c, err := Load(path)
	must.NoError(t, err)
	must.EqOp(t, "http://file.local:9000", c.BaseURL)
	must.EqOp(t, "Orders", c.Service)
	must.SliceLen(t, 1, c.Services)
	must.EqOp(t, 10*time.Second, c.RequestTimeout)
	must.EqOp(t, 5*time.Second, c.FetchTimeout)
	must.EqOp(t, "opendes", c.Partition)
	must.EqOp(t, "secret", c.Auth.Token)
	must.True(t, c.Debug)

	auth := c.Auth.Model()
	must.EqOp(t, model.AuthCookie, auth.Method)
	must.EqOp(t, "session", auth.CookieName)
	must.EqOp(t, "Bearer ", auth.HeaderPrefix)
	must.NoError(t, c.Validate())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	must.Error(t, err)
}

func TestApplyEnv_IgnoresBlank(t *testing.T) {
	c := Default()
	c.ApplyEnv(envMap(map[string]string{
		EnvBaseURL: "  ",
		EnvService: "Service2",
		EnvDebug:   "not-a-bool",
	}))
	must.EqOp(t, "http://127.0.0.1:5000", c.BaseURL)
	must.EqOp(t, "Service2", c.Service)
	must.False(t, c.Debug)
}

func TestValidate_CollectsAll(t *testing.T) {
	c := Default()
	c.BaseURL = "not a url"
	c.Service = "Missing"
	c.Services = append(c.Services, Service{Name: "Service1"}, Service{})
	c.Auth.Method = "oauth"
	c.CacheSize = -1

	err := c.Validate()
	must.Error(t, err)
	merr, ok := err.(*multierror.Error)
	must.True(t, ok)
	must.SliceLen(t, 6, merr.Errors)
	must.StrContains(t, err.Error(), "duplicate name")
	must.StrContains(t, err.Error(), "auth.method")
}

func TestValidate_SpecFileNeedsNoService(t *testing.T) {
	c := Default()
	c.Services = nil
	c.SpecFile = "petstore.yaml"
	must.NoError(t, c.Validate())
}
