package httpclient

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shoenig/test/must"

	"xplore/internal/model"
)

func TestSubstitutePath(t *testing.T) {
	got := SubstitutePath("/a/{id}/b/{id2}", map[string]model.Value{"id": model.TextValue("5")})
	must.EqOp(t, "/a/5/b/{id2}", got)

	got = SubstitutePath("/a/{id}/{id}", map[string]model.Value{
		"id":    model.NumberValue(7),
		"other": model.TextValue("x"),
	})
	must.EqOp(t, "/a/7/7", got)

	got = SubstitutePath("/a/{id}", map[string]model.Value{"id": model.TextValue("")})
	must.EqOp(t, "/a/{id}", got)

	// Values are inserted verbatim.
	got = SubstitutePath("/f/{name}", map[string]model.Value{"name": model.TextValue("a b/c")})
	must.EqOp(t, "/f/a b/c", got)
}

func TestBuildQuery(t *testing.T) {
	must.EqOp(t, "a=1", BuildQuery([]model.NamedValue{
		{Name: "a", Value: model.TextValue("1")},
		{Name: "b", Value: model.TextValue("")},
		{Name: "c"},
	}))

	must.EqOp(t, "z=true&n=0&a=x y", BuildQuery([]model.NamedValue{
		{Name: "z", Value: model.BoolValue(true)},
		{Name: "n", Value: model.NumberValue(0)},
		{Name: "a", Value: model.TextValue("x y")},
	}))

	must.EqOp(t, "", BuildQuery(nil))
}

func TestCoerce(t *testing.T) {
	cases := []struct {
		name string
		typ  model.ParamType
		in   model.Value
		want any
	}{
		{"integer ok", model.TypeInteger, model.TextValue("42"), int64(42)},
		{"integer padded", model.TypeInteger, model.TextValue(" 42 "), int64(42)},
		{"integer bad", model.TypeInteger, model.TextValue("abc"), "abc"},
		{"integer float text", model.TypeInteger, model.TextValue("3.5"), "3.5"},
		{"integer from number", model.TypeInteger, model.NumberValue(30), int64(30)},
		{"number ok", model.TypeNumber, model.TextValue("2.5"), 2.5},
		{"number bad", model.TypeNumber, model.TextValue("x"), "x"},
		{"number value", model.TypeNumber, model.NumberValue(1.25), 1.25},
		{"number from bool", model.TypeNumber, model.BoolValue(true), true},
		{"bool yes", model.TypeBoolean, model.TextValue("Yes"), true},
		{"bool Y", model.TypeBoolean, model.TextValue("Y"), true},
		{"bool TRUE", model.TypeBoolean, model.TextValue("TRUE"), true},
		{"bool 1", model.TypeBoolean, model.TextValue("1"), true},
		{"bool 0", model.TypeBoolean, model.TextValue("0"), false},
		{"bool maybe", model.TypeBoolean, model.TextValue("maybe"), false},
		{"bool native", model.TypeBoolean, model.BoolValue(false), false},
		{"bool from number", model.TypeBoolean, model.NumberValue(1), 1.0},
		{"array", model.TypeArray, model.TextValue("a, b ,c"), []any{"a", "b", "c"}},
		{"array empty segments", model.TypeArray, model.TextValue("a,,b"), []any{"a", "", "b"}},
		{"object bad", model.TypeObject, model.TextValue("{nope"), "{nope"},
		{"string", model.TypeString, model.TextValue(" keep "), " keep "},
		{"unknown", model.TypeUnknown, model.TextValue("42"), "42"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if diff := cmp.Diff(tc.want, Coerce(tc.typ, tc.in)); diff != "" {
				t.Fatalf("coerce mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCoerce_Object(t *testing.T) {
	got := Coerce(model.TypeObject, model.TextValue(`{"a": [1, "x"]}`))
	obj, ok := got.(map[string]any)
	must.True(t, ok)
	must.MapContainsKey(t, obj, "a")
	must.SliceLen(t, 2, obj["a"].([]any))
}

func TestCoerce_IntegerNaN(t *testing.T) {
	got := Coerce(model.TypeInteger, model.NumberValue(math.Inf(1)))
	f, ok := got.(float64)
	must.True(t, ok)
	must.True(t, math.IsInf(f, 1))
}

func TestBuildHeaders_Precedence(t *testing.T) {
	rows := []model.HeaderRow{
		{Key: "data-partition-id", Value: "custom1", Enabled: true},
		{Key: "X-Trace", Value: "one", Enabled: true},
		{Key: "X-Trace", Value: "two", Enabled: true},
		{Key: "X-Off", Value: "nope", Enabled: false},
		{Key: "", Value: "orphan", Enabled: true},
		{Key: "Authorization", Value: "Basic zzz", Enabled: true},
	}
	auth := model.DefaultAuthConfig()
	auth.Token = "tok"

	headers, cookies := BuildHeaders(rows, "partition2", auth)
	want := map[string]string{
		"Accept":            "application/json",
		"data-partition-id": "partition2",
		"X-Trace":           "two",
		"Authorization":     "Bearer tok",
	}
	if diff := cmp.Diff(want, headers); diff != "" {
		t.Fatalf("headers mismatch (-want +got):\n%s", diff)
	}
	must.MapEmpty(t, cookies)
}

func TestBuildHeaders_CookieAuth(t *testing.T) {
	auth := model.DefaultAuthConfig()
	auth.Method = model.AuthCookie
	auth.Token = "tok"

	headers, cookies := BuildHeaders(nil, "p1", auth)
	must.MapNotContainsKey(t, headers, "Authorization")
	must.Eq(t, map[string]string{"stoken": "tok"}, cookies)
}

func TestBuildHeaders_NoToken(t *testing.T) {
	headers, cookies := BuildHeaders(nil, "", model.DefaultAuthConfig())
	must.MapNotContainsKey(t, headers, "Authorization")
	must.MapEmpty(t, cookies)
	must.MapLen(t, 2, headers)
}

func TestBuildRequest_GetWithPath(t *testing.T) {
	ep := model.Endpoint{
		Method:     "GET",
		Path:       "/items/{id}",
		PathParams: []model.Param{{Name: "id", In: model.ParamInPath, Required: true, Type: model.TypeInteger}},
	}
	spec, err := BuildRequest(BuildInput{
		BaseURL:    "http://api.local/",
		Endpoint:   ep,
		PathValues: map[string]model.Value{"id": model.TextValue("42")},
		RawBody:    "{ignored",
		BodyMode:   model.BodyModeRawJSON,
	})
	must.NoError(t, err)
	must.EqOp(t, "GET", spec.Method)
	must.EqOp(t, "http://api.local/items/42", spec.URL)
	must.False(t, spec.HasBody)
	must.Nil(t, spec.Body)
}

func TestBuildRequest_FormBody(t *testing.T) {
	schema := model.BodySchema{
		Properties: []model.Property{
			{Name: "age", Type: model.TypeInteger},
			{Name: "name", Type: model.TypeString},
		},
		Required: map[string]bool{"name": true},
	}
	spec, err := BuildRequest(BuildInput{
		BaseURL:    "http://api.local",
		Endpoint:   model.Endpoint{Method: "POST", Path: "/people"},
		BodySchema: schema,
		BodyValues: map[string]model.Value{
			"name":  model.TextValue("Alice"),
			"age":   model.TextValue("30"),
			"extra": model.TextValue(""),
		},
		QueryValues: []model.NamedValue{{Name: "dry", Value: model.BoolValue(true)}},
		PartitionID: "opendes",
	})
	must.NoError(t, err)
	must.EqOp(t, "http://api.local/people?dry=true", spec.URL)
	must.True(t, spec.HasBody)
	must.EqOp(t, "application/json", spec.ContentType)
	want := map[string]any{"name": "Alice", "age": int64(30)}
	if diff := cmp.Diff(want, spec.Body); diff != "" {
		t.Fatalf("body mismatch (-want +got):\n%s", diff)
	}
	must.EqOp(t, "opendes", spec.Headers["data-partition-id"])
}

func TestBuildRequest_InvalidRawJSON(t *testing.T) {
	_, err := BuildRequest(BuildInput{
		Endpoint: model.Endpoint{Method: "PUT", Path: "/x"},
		BodyMode: model.BodyModeRawJSON,
		RawBody:  "{invalid",
	})
	must.Error(t, err)
	var ibe *InvalidBodyError
	must.True(t, errors.As(err, &ibe))

	_, err = BuildRequest(BuildInput{
		Endpoint: model.Endpoint{Method: "PUT", Path: "/x"},
		BodyMode: model.BodyModeRawJSON,
		RawBody:  `{"a":1} {"b":2}`,
	})
	must.True(t, errors.As(err, &ibe))
}

func TestBuildRequest_RawJSON(t *testing.T) {
	spec, err := BuildRequest(BuildInput{
		Endpoint: model.Endpoint{Method: "PATCH", Path: "/x"},
		BodyMode: model.BodyModeRawJSON,
		RawBody:  `{"n": 12345678901234567890}`,
	})
	must.NoError(t, err)
	body := spec.Body.(map[string]any)
	must.EqOp(t, "12345678901234567890", body["n"].(interface{ String() string }).String())

	spec, err = BuildRequest(BuildInput{
		Endpoint: model.Endpoint{Method: "POST", Path: "/x"},
		BodyMode: model.BodyModeRawJSON,
		RawBody:  "   ",
	})
	must.NoError(t, err)
	must.Eq(t, any(map[string]any{}), spec.Body)
}

func TestBuildRequest_RawText(t *testing.T) {
	spec, err := BuildRequest(BuildInput{
		Endpoint:    model.Endpoint{Method: "POST", Path: "/notes"},
		BodyMode:    model.BodyModeRawJSON,
		ContentType: "text/plain",
		RawBody:     "not {json",
	})
	must.NoError(t, err)
	must.EqOp(t, "text/plain", spec.ContentType)
	must.Eq(t, any("not {json"), spec.Body)
}

func TestSubstitutePath_SinglePass(t *testing.T) {
	values := map[string]model.Value{"x": model.TextValue("{y}"), "y": model.TextValue("Y")}
	for i := 0; i < 50; i++ {
		must.EqOp(t, "/a/{y}/Y", SubstitutePath("/a/{x}/{y}", values))
	}
}

func TestCoerce_IntegerOutOfRange(t *testing.T) {
	for _, f := range []float64{1e19, -1e19, math.NaN(), 9.223372036854775807e18} {
		got := Coerce(model.TypeInteger, model.NumberValue(f))
		_, isFloat := got.(float64)
		must.True(t, isFloat)
	}
	must.Eq[any](t, int64(math.MinInt64), Coerce(model.TypeInteger, model.NumberValue(math.MinInt64)))
	must.Eq[any](t, int64(-5), Coerce(model.TypeInteger, model.NumberValue(-5.9)))
}
