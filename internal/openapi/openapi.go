package openapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/getkin/kin-openapi/openapi2"
	"github.com/getkin/kin-openapi/openapi2conv"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-hclog"
	"gopkg.in/yaml.v3"
)

const DefaultFetchTimeout = 5 * time.Second

// Document is a parsed OpenAPI document. It is never mutated after Fetch.
type Document map[string]any

// Info is the best-effort metadata of a document.
type Info struct {
	Title     string
	Version   string
	ServerURL string
}

// Spec is one fetched document together with where it came from.
type Spec struct {
	Service   string
	URL       string
	Doc       Document
	Info      Info
	FetchedAt time.Time
}

// SpecFetchError reports a failed spec download: a transport error, a non-2xx
// status or an undecodable payload.
type SpecFetchError struct {
	URL        string
	StatusCode int
	Status     string
	Cause      error
}

func (e *SpecFetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch spec %s: %s", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch spec %s: %v", e.URL, e.Cause)
}

func (e *SpecFetchError) Unwrap() error { return e.Cause }

type Fetcher struct {
	client *http.Client
	cache  *Cache
	logger hclog.Logger
}

// NewFetcher builds a fetcher whose downloads are bounded by timeout. A nil
// cache disables caching.
func NewFetcher(timeout time.Duration, cache *Cache, logger hclog.Logger) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	client := cleanhttp.DefaultClient()
	client.Timeout = timeout
	return &Fetcher{client: client, cache: cache, logger: logger.Named("fetcher")}
}

// SpecURL is where a service publishes its document: {baseURL}{mount}/openapi.json.
func SpecURL(baseURL, mount string) string {
	mount = strings.TrimRight(strings.TrimSpace(mount), "/")
	if mount != "" && !strings.HasPrefix(mount, "/") {
		mount = "/" + mount
	}
	return strings.TrimRight(strings.TrimSpace(baseURL), "/") + mount + "/openapi.json"
}

// Fetch downloads and decodes the document of service and stores it in the
// cache, replacing any previous entry.
func (f *Fetcher) Fetch(ctx context.Context, service, baseURL, mount string) (*Spec, error) {
	u := SpecURL(baseURL, mount)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &SpecFetchError{URL: u, Cause: err}
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		f.logger.Debug("spec fetch failed", "url", u, "error", err)
		return nil, &SpecFetchError{URL: u, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		f.logger.Debug("spec fetch rejected", "url", u, "status", resp.StatusCode)
		return nil, &SpecFetchError{URL: u, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &SpecFetchError{URL: u, Cause: err}
	}
	spec, err := f.store(service, u, raw)
	if err != nil {
		return nil, err
	}
	f.logger.Debug("spec fetched", "service", service, "url", u, "elapsed", time.Since(start), "title", spec.Info.Title)
	return spec, nil
}

// LoadFile reads a document from disk instead of a service mount. It is
// cached under service like a fetched one.
func (f *Fetcher) LoadFile(ctx context.Context, service, path string) (*Spec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &SpecFetchError{URL: path, Cause: err}
	}
	return f.store(service, path, raw)
}

func (f *Fetcher) store(service, source string, raw []byte) (*Spec, error) {
	doc, err := Decode(raw)
	if err != nil {
		return nil, &SpecFetchError{URL: source, Cause: err}
	}

	info, err := Describe(doc)
	if err != nil {
		f.logger.Debug("document metadata unavailable", "source", source, "error", err)
	}

	spec := &Spec{Service: service, URL: source, Doc: doc, Info: info, FetchedAt: time.Now()}
	if f.cache != nil {
		f.cache.Put(spec)
	}
	return spec, nil
}

// Decode parses a JSON or YAML document. Swagger 2.0 input is converted to
// OpenAPI 3 so that request bodies and component schemas line up.
func Decode(raw []byte) (Document, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty document")
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		var y map[string]any
		if yerr := yaml.Unmarshal(raw, &y); yerr != nil || y == nil {
			return nil, fmt.Errorf("parse document: %w", err)
		}
		doc = Document(stringKeys(y).(map[string]any))
	}

	if v, ok := doc["swagger"].(string); ok && strings.HasPrefix(strings.TrimSpace(v), "2.") {
		converted, err := convertV2(doc)
		if err != nil {
			return nil, fmt.Errorf("convert swagger 2.0: %w", err)
		}
		return converted, nil
	}
	return doc, nil
}

func convertV2(doc Document) (Document, error) {
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var v2 openapi2.T
	if err := json.Unmarshal(b, &v2); err != nil {
		return nil, err
	}
	v3, err := openapi2conv.ToV3(&v2)
	if err != nil {
		return nil, err
	}
	b, err = json.Marshal(v3)
	if err != nil {
		return nil, err
	}
	var out Document
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// stringKeys turns the map[any]any nodes yaml produces for non-string keys
// (e.g. unquoted response codes) into map[string]any.
func stringKeys(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			t[k] = stringKeys(e)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[fmt.Sprint(k)] = stringKeys(e)
		}
		return out
	case []any:
		for i, e := range t {
			t[i] = stringKeys(e)
		}
		return t
	default:
		return v
	}
}

// Describe reads title, version and the first concrete server URL from the
// typed document. Documents that do not fit openapi3.T still yield whatever
// the raw info block holds.
func Describe(doc Document) (Info, error) {
	info := Info{}
	if m := asMap(doc["info"]); m != nil {
		info.Title = strings.TrimSpace(asString(m["title"]))
		info.Version = strings.TrimSpace(asString(m["version"]))
	}

	t, err := decodeTyped(doc)
	if err != nil {
		return info, err
	}
	if t.Info != nil {
		info.Title = strings.TrimSpace(t.Info.Title)
		info.Version = strings.TrimSpace(t.Info.Version)
	}
	info.ServerURL = serverURL(t)
	return info, nil
}

// Label is "Title vVersion", or whichever part is known.
func (i Info) Label() string {
	switch {
	case i.Title != "" && i.Version != "":
		return i.Title + " v" + i.Version
	case i.Version != "":
		return "v" + i.Version
	default:
		return i.Title
	}
}

func serverURL(doc *openapi3.T) string {
	if doc == nil || len(doc.Servers) == 0 || doc.Servers[0] == nil {
		return ""
	}
	u := strings.TrimSpace(doc.Servers[0].URL)
	// Templated servers ({vars}) are not usable as-is.
	if u == "" || strings.Contains(u, "{") {
		return ""
	}
	if p, err := url.Parse(u); err == nil {
		p.Fragment = ""
		p.RawQuery = ""
		return strings.TrimRight(p.String(), "/")
	}
	return ""
}
