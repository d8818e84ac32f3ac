package httpclient

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/shoenig/test/must"
)

func TestClassify(t *testing.T) {
	cases := map[int]Category{
		100: ServerError,
		199: ServerError,
		200: Success,
		204: Success,
		299: Success,
		301: Redirect,
		399: Redirect,
		400: ClientError,
		404: ClientError,
		499: ClientError,
		500: ServerError,
		503: ServerError,
		0:   ServerError,
	}
	for status, want := range cases {
		must.EqOp(t, want, Classify(status))
	}
}

func TestPresent_JSON(t *testing.T) {
	p := Present(Result{
		StatusCode: 200,
		Status:     "200 OK",
		Headers:    http.Header{"X-B": {"2"}, "Content-Type": {"application/json"}, "X-A": {"1", "3"}},
		Body:       []byte(`{"b": [1, true, null], "a": "x\"y", "n": 12345678901234567890}`),
	})
	must.EqOp(t, Success, p.Category)
	must.True(t, p.IsJSON)
	must.Eq(t, []HeaderPair{
		{Name: "Content-Type", Value: "application/json"},
		{Name: "X-A", Value: "1, 3"},
		{Name: "X-B", Value: "2"},
	}, p.Headers)

	plain := p.Body(false)
	must.StrContains(t, plain, `"a": "x\"y"`)
	must.StrContains(t, plain, "12345678901234567890")
	must.True(t, strings.Index(plain, `"a"`) < strings.Index(plain, `"b"`))

	coloured := p.Body(true)
	must.StrContains(t, coloured, colorKey+`"a"`+colorReset)
	must.StrContains(t, coloured, colorNumber+"12345678901234567890"+colorReset)
	must.StrContains(t, coloured, colorNull+"null"+colorReset)
}

func TestPresent_NotJSON(t *testing.T) {
	p := Present(Result{StatusCode: 503, Body: []byte("<html>down</html>")})
	must.EqOp(t, ServerError, p.Category)
	must.False(t, p.IsJSON)
	must.EqOp(t, "<html>down</html>", p.Body(true))
	must.StrContains(t, p.Summary(), "503")
	must.StrContains(t, p.Summary(), "Server Error")

	empty := Present(Result{StatusCode: 204})
	must.False(t, empty.IsJSON)
	must.EqOp(t, "", empty.Body(false))
}

func TestDecodeJSONBody(t *testing.T) {
	_, err := DecodeJSONBody([]byte("nope"))
	var rpe *ResponseParseError
	must.True(t, errors.As(err, &rpe))

	v, err := DecodeJSONBody([]byte(`[1,2]`))
	must.NoError(t, err)
	must.SliceLen(t, 2, v.([]any))
}

func TestPreview(t *testing.T) {
	spec := RequestSpec{
		Method:      "POST",
		URL:         "http://h/x",
		Headers:     map[string]string{"b": "2", "a": "1"},
		Cookies:     map[string]string{"stoken": "t"},
		Body:        map[string]any{"k": "v"},
		HasBody:     true,
		ContentType: "application/json",
	}
	out := spec.Preview()
	must.StrContains(t, out, "POST http://h/x\na: 1\nb: 2\n")
	must.StrContains(t, out, "Cookies:\nstoken=t\n")
	must.StrContains(t, out, `"k": "v"`)
}
