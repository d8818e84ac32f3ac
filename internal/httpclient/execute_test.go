package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/shoenig/test/must"

	"xplore/internal/model"
)

type captured struct {
	method      string
	path        string
	query       string
	body        []byte
	contentType string
	partition   string
	cookie      string
	hits        int
}

func newCaptureServer(t *testing.T, status int, respBody string) (*httptest.Server, *captured) {
	t.Helper()
	c := &captured{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.hits++
		c.method = r.Method
		c.path = r.URL.Path
		c.query = r.URL.RawQuery
		c.body, _ = io.ReadAll(r.Body)
		c.contentType = r.Header.Get("Content-Type")
		c.partition = r.Header.Get("data-partition-id")
		if ck, err := r.Cookie("stoken"); err == nil {
			c.cookie = ck.Value
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Request-Id", "abc")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, respBody)
	}))
	t.Cleanup(srv.Close)
	return srv, c
}

func newTestClient() *Client {
	return NewClient(2*time.Second, hclog.NewNullLogger())
}

func TestExecute_GetWithoutBody(t *testing.T) {
	srv, got := newCaptureServer(t, http.StatusOK, `{"id": 42}`)

	res, err := newTestClient().Execute(context.Background(), RequestSpec{
		Method:  "GET",
		URL:     srv.URL + "/items/42",
		Headers: map[string]string{"Accept": "application/json", "data-partition-id": "p1", "X-Empty": ""},
	})
	must.NoError(t, err)
	must.EqOp(t, http.StatusOK, res.StatusCode)
	must.EqOp(t, "GET", got.method)
	must.EqOp(t, "/items/42", got.path)
	must.SliceEmpty(t, got.body)
	must.EqOp(t, "p1", got.partition)
	must.EqOp(t, "abc", res.Headers.Get("X-Request-Id"))
	must.EqOp(t, `{"id": 42}`, string(res.Body))
}

func TestExecute_PostJSON(t *testing.T) {
	srv, got := newCaptureServer(t, http.StatusCreated, `{}`)

	_, err := newTestClient().Execute(context.Background(), RequestSpec{
		Method:      "post",
		URL:         srv.URL + "/people?dry=true",
		Cookies:     map[string]string{"stoken": "tok"},
		Body:        map[string]any{"name": "Alice", "age": int64(30)},
		HasBody:     true,
		ContentType: "application/json",
	})
	must.NoError(t, err)
	must.EqOp(t, "POST", got.method)
	must.EqOp(t, "dry=true", got.query)
	must.EqOp(t, "application/json", got.contentType)
	must.EqOp(t, "tok", got.cookie)

	var sent map[string]any
	must.NoError(t, json.Unmarshal(got.body, &sent))
	must.Eq(t, map[string]any{"name": "Alice", "age": 30.0}, sent)
}

func TestExecute_RawText(t *testing.T) {
	srv, got := newCaptureServer(t, http.StatusOK, ``)

	_, err := newTestClient().Execute(context.Background(), RequestSpec{
		Method:      "PUT",
		URL:         srv.URL + "/notes",
		Body:        "hello",
		HasBody:     true,
		ContentType: "text/plain",
	})
	must.NoError(t, err)
	must.EqOp(t, "hello", string(got.body))
	must.EqOp(t, "text/plain", got.contentType)
}

func TestExecute_DeleteIgnoresBody(t *testing.T) {
	srv, got := newCaptureServer(t, http.StatusNoContent, ``)

	res, err := newTestClient().Execute(context.Background(), RequestSpec{
		Method:  "DELETE",
		URL:     srv.URL + "/items/1",
		Body:    map[string]any{"x": 1},
		HasBody: true,
	})
	must.NoError(t, err)
	must.EqOp(t, http.StatusNoContent, res.StatusCode)
	must.SliceEmpty(t, got.body)
}

func TestExecute_UnsupportedMethod(t *testing.T) {
	srv, got := newCaptureServer(t, http.StatusOK, ``)

	_, err := newTestClient().Execute(context.Background(), RequestSpec{Method: "TRACE", URL: srv.URL})
	var ume *UnsupportedMethodError
	must.True(t, errors.As(err, &ume))
	must.EqOp(t, "TRACE", ume.Method)
	must.EqOp(t, 0, got.hits)
}

func TestExecute_TransportFailure(t *testing.T) {
	_, err := newTestClient().Execute(context.Background(), RequestSpec{Method: "GET", URL: "http://127.0.0.1:1/x"})
	var re *RequestError
	must.True(t, errors.As(err, &re))
	must.NotNil(t, errors.Unwrap(err))
}

func TestExecute_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewClient(20*time.Millisecond, nil)
	_, err := c.Execute(context.Background(), RequestSpec{Method: "GET", URL: srv.URL})
	var re *RequestError
	must.True(t, errors.As(err, &re))
}

func TestExecute_SendsEmptyHeaderValues(t *testing.T) {
	var seen http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Clone()
	}))
	defer srv.Close()

	headers, _ := BuildHeaders([]model.HeaderRow{{Key: "X-Flag", Value: "", Enabled: true}}, "", model.AuthConfig{})
	_, err := newTestClient().Execute(context.Background(), RequestSpec{Method: "GET", URL: srv.URL, Headers: headers})
	must.NoError(t, err)

	flag, ok := seen["X-Flag"]
	must.True(t, ok)
	must.Eq(t, []string{""}, flag)
	partition, ok := seen[http.CanonicalHeaderKey(model.PartitionHeader)]
	must.True(t, ok)
	must.Eq(t, []string{""}, partition)
}
