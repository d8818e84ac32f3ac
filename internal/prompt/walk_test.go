package prompt

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/hashicorp/go-hclog"
	"github.com/shoenig/test/must"

	"xplore/internal/config"
	"xplore/internal/httpclient"
	"xplore/internal/openapi"
	"xplore/internal/session"
)

type stubDriver struct {
	inputs    []string
	selectIdx []int
	confirm   []bool
	textAreas []string
	infos     []string

	inputPos   int
	selectPos  int
	confirmPos int
	textPos    int
}

func (s *stubDriver) Input(_ context.Context, _ InputConfig) (string, error) {
	if s.inputPos >= len(s.inputs) {
		return "", errors.New("no input scripted")
	}
	val := s.inputs[s.inputPos]
	s.inputPos++
	return val, nil
}

func (s *stubDriver) Password(ctx context.Context, cfg InputConfig) (string, error) {
	return s.Input(ctx, cfg)
}

func (s *stubDriver) Confirm(_ context.Context, _ ConfirmConfig) (bool, error) {
	if s.confirmPos >= len(s.confirm) {
		return false, errors.New("no confirm scripted")
	}
	val := s.confirm[s.confirmPos]
	s.confirmPos++
	return val, nil
}

func (s *stubDriver) Select(_ context.Context, _ SelectConfig) (int, error) {
	if s.selectPos >= len(s.selectIdx) {
		return -1, errors.New("no select scripted")
	}
	val := s.selectIdx[s.selectPos]
	s.selectPos++
	return val, nil
}

func (s *stubDriver) TextArea(_ context.Context, _ TextAreaConfig) (string, error) {
	if s.textPos >= len(s.textAreas) {
		return "", errors.New("no textarea scripted")
	}
	val := s.textAreas[s.textPos]
	s.textPos++
	return val, nil
}

func (s *stubDriver) Info(_ context.Context, msg string) error {
	s.infos = append(s.infos, msg)
	return nil
}

type stubExecutor struct {
	calls []httpclient.RequestSpec
}

func (s *stubExecutor) Execute(_ context.Context, spec httpclient.RequestSpec) (httpclient.Result, error) {
	s.calls = append(s.calls, spec)
	return httpclient.Result{
		StatusCode: 201,
		Status:     "201 Created",
		Headers:    http.Header{"Content-Type": {"application/json"}},
		Body:       []byte(`{"id": 7}`),
	}, nil
}

const doc = `{
  "openapi": "3.0.0",
  "info": {"title": "Items", "version": "1"},
  "paths": {
    "/items/{id}": {
      "get": {
        "tags": ["items"],
        "summary": "Get item",
        "parameters": [{"in": "path", "name": "id", "required": true, "schema": {"type": "integer"}}]
      }
    },
    "/people": {
      "post": {
        "tags": ["people"],
        "requestBody": {"content": {"application/json": {"schema": {"$ref": "#/components/schemas/Person"}}}}
      }
    }
  },
  "components": {"schemas": {"Person": {
    "type": "object",
    "required": ["name"],
    "properties": {"name": {"type": "string"}, "age": {"type": "integer"}}
  }}}
}`

func newLoadedController(t *testing.T, exec httpclient.Executor) (*session.Controller, string) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(doc))
	}))
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.BaseURL = srv.URL
	cache, err := openapi.NewCache(2)
	must.NoError(t, err)
	ctrl := session.NewController(session.New(cfg), session.Deps{
		Fetcher:  openapi.NewFetcher(2*time.Second, cache, hclog.NewNullLogger()),
		Cache:    cache,
		Executor: exec,
	})
	_, err = ctrl.LoadCatalogue(context.Background(), false)
	must.NoError(t, err)
	return ctrl, srv.URL
}

func TestWalk_PickAndSendGet(t *testing.T) {
	exec := &stubExecutor{}
	ctrl, base := newLoadedController(t, exec)
	d := &stubDriver{
		selectIdx: []int{0, 0},
		inputs:    []string{"42"},
		confirm:   []bool{false, true},
	}

	must.NoError(t, NewWalker(d, ctrl, false).Run(context.Background(), ""))
	must.SliceLen(t, 1, exec.calls)
	must.EqOp(t, base+"/items/42", exec.calls[0].URL)
	must.EqOp(t, "partition1", exec.calls[0].Headers["data-partition-id"])

	must.SliceLen(t, 2, d.infos)
	must.StrContains(t, d.infos[0], "GET "+base+"/items/42")
	must.StrContains(t, d.infos[1], "201 Created")
	must.StrContains(t, d.infos[1], "Content-Type")
	must.StrContains(t, d.infos[1], `"id": 7`)
}

func TestWalk_FormBody(t *testing.T) {
	exec := &stubExecutor{}
	ctrl, _ := newLoadedController(t, exec)
	d := &stubDriver{
		selectIdx: []int{1, 0},
		confirm:   []bool{true, false, true},
		inputs:    []string{"X-Trace", "t1", "30", "Alice"},
	}

	must.NoError(t, NewWalker(d, ctrl, false).Run(context.Background(), "post /people"))
	must.SliceLen(t, 1, exec.calls)
	call := exec.calls[0]
	if diff := cmp.Diff(map[string]any{"name": "Alice", "age": int64(30)}, call.Body); diff != "" {
		t.Fatalf("body mismatch (-want +got):\n%s", diff)
	}
	must.EqOp(t, "partition2", call.Headers["data-partition-id"])
	must.EqOp(t, "t1", call.Headers["X-Trace"])
}

func TestWalk_InvalidRawBody(t *testing.T) {
	exec := &stubExecutor{}
	ctrl, _ := newLoadedController(t, exec)
	d := &stubDriver{
		selectIdx: []int{0, 1},
		confirm:   []bool{false},
		textAreas: []string{"{invalid"},
	}

	must.NoError(t, NewWalker(d, ctrl, false).Run(context.Background(), "POST /people"))
	must.SliceEmpty(t, exec.calls)
	must.SliceLen(t, 1, d.infos)
	must.StrContains(t, d.infos[0], "Not sent")
}

func TestWalk_DeclineSend(t *testing.T) {
	exec := &stubExecutor{}
	ctrl, _ := newLoadedController(t, exec)
	d := &stubDriver{
		selectIdx: []int{0},
		inputs:    []string{""},
		confirm:   []bool{false, false},
	}

	must.NoError(t, NewWalker(d, ctrl, false).Run(context.Background(), "GET /items/{id}"))
	must.SliceEmpty(t, exec.calls)
	must.StrContains(t, d.infos[0], "/items/{id}")
}

func TestWalk_UnknownEndpoint(t *testing.T) {
	ctrl, _ := newLoadedController(t, &stubExecutor{})
	err := NewWalker(&stubDriver{}, ctrl, false).Run(context.Background(), "GET /nope")
	must.Error(t, err)
}

func TestFormatResponse(t *testing.T) {
	p := httpclient.Present(httpclient.Result{
		StatusCode: 404,
		Status:     "404 Not Found",
		Headers:    http.Header{"X-Long-Header-Name": {"a"}, "Date": {"today"}},
		Body:       []byte("gone"),
	})
	out := FormatResponse(p, true)
	lines := strings.Split(out, "\n")
	must.StrContains(t, lines[0], "Client Error")
	must.StrContains(t, lines[2], "Header")
	must.StrContains(t, out, "X-Long-Header-Name")
	must.StrContains(t, out, "today")
	must.True(t, strings.HasSuffix(out, "gone"))
}

func TestNumeric(t *testing.T) {
	must.NoError(t, numeric(""))
	must.NoError(t, numeric(" 3.5 "))
	must.Error(t, numeric("abc"))
}
