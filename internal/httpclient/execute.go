package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-hclog"

	"xplore/internal/model"
)

const DefaultTimeout = 30 * time.Second

type Result struct {
	StatusCode int
	Status     string
	Elapsed    time.Duration
	Headers    http.Header
	Body       []byte
}

// Executor performs one HTTP call.
type Executor interface {
	Execute(ctx context.Context, spec RequestSpec) (Result, error)
}

type Client struct {
	http   *http.Client
	logger hclog.Logger
}

func NewClient(timeout time.Duration, logger hclog.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	c := cleanhttp.DefaultClient()
	c.Timeout = timeout
	return &Client{http: c, logger: logger.Named("executor")}
}

func (c *Client) Execute(ctx context.Context, spec RequestSpec) (Result, error) {
	method := strings.ToUpper(spec.Method)
	if !model.SupportedMethod(method) {
		return Result{}, &UnsupportedMethodError{Method: spec.Method}
	}

	var body io.Reader
	if spec.HasBody && model.MethodHasBody(method) {
		b, err := encodeBody(spec)
		if err != nil {
			return Result{}, &RequestError{Method: method, URL: spec.URL, Cause: err}
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, spec.URL, body)
	if err != nil {
		return Result{}, &RequestError{Method: method, URL: spec.URL, Cause: err}
	}
	// Headers with empty values are sent as-is.
	for k, v := range spec.Headers {
		req.Header.Set(k, v)
	}
	if body != nil {
		req.Header.Set("Content-Type", spec.ContentType)
	}
	for name, value := range spec.Cookies {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.logger.Debug("request failed", "method", method, "url", spec.URL, "error", err)
		return Result{}, &RequestError{Method: method, URL: spec.URL, Cause: err}
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, &RequestError{Method: method, URL: spec.URL, Cause: err}
	}
	c.logger.Debug("request done", "method", method, "url", spec.URL, "status", resp.StatusCode, "elapsed", elapsed)

	return Result{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Elapsed:    elapsed,
		Headers:    resp.Header.Clone(),
		Body:       b,
	}, nil
}

func encodeBody(spec RequestSpec) ([]byte, error) {
	if s, ok := spec.Body.(string); ok && !isJSON(spec.ContentType) {
		return []byte(s), nil
	}
	return json.Marshal(spec.Body)
}
