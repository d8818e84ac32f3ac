package form

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shoenig/test/must"

	"xplore/internal/model"
)

var petSchema = map[string]any{
	"type":     "object",
	"required": []any{"name"},
	"properties": map[string]any{
		"name":  map[string]any{"type": "string", "description": "<b>Pet</b> name"},
		"age":   map[string]any{"type": "integer"},
		"tags":  map[string]any{"type": "array"},
		"meta":  map[string]any{"type": "object"},
		"alive": map[string]any{"type": "boolean"},
		"blob":  map[string]any{"type": "binary-ish"},
	},
}

func TestKindFor(t *testing.T) {
	cases := []struct {
		typ  model.ParamType
		tab  Tab
		want Kind
	}{
		{model.TypeString, TabQuery, KindText},
		{model.TypeInteger, TabPath, KindNumeric},
		{model.TypeNumber, TabBody, KindNumeric},
		{model.TypeBoolean, TabQuery, KindCheckbox},
		{model.TypeBoolean, TabBody, KindCheckbox},
		{model.TypeBoolean, TabPath, KindText},
		{model.TypeArray, TabBody, KindList},
		{model.TypeArray, TabQuery, KindText},
		{model.TypeObject, TabBody, KindJSON},
		{model.TypeObject, TabPath, KindText},
		{model.TypeUnknown, TabBody, KindText},
	}
	for _, tc := range cases {
		t.Run(string(tc.typ)+"/"+tc.tab.String(), func(t *testing.T) {
			must.EqOp(t, tc.want, KindFor(tc.typ, tc.tab))
		})
	}
}

func TestDerive_Params(t *testing.T) {
	ep := model.Endpoint{
		Method: "GET",
		Path:   "/items/{id}",
		PathParams: []model.Param{
			{Name: "id", In: model.ParamInPath, Required: true, Type: model.TypeInteger},
		},
		QueryParams: []model.Param{
			{Name: "q", In: model.ParamInQuery, Type: model.TypeString, Description: "search <i>term</i>"},
			{Name: "all", In: model.ParamInQuery, Type: model.TypeBoolean},
		},
	}
	fs := Derive(ep, "")

	must.SliceLen(t, 1, fs.PathFields)
	id := fs.PathFields[0]
	must.EqOp(t, Key{EndpointID: "GET /items/{id}", Tab: TabPath, Name: "id"}, id.Key)
	must.EqOp(t, "id (required)", id.Label)
	must.EqOp(t, KindNumeric, id.Kind)

	must.SliceLen(t, 2, fs.QueryFields)
	must.EqOp(t, "q", fs.QueryFields[0].Label)
	must.EqOp(t, "search term", fs.QueryFields[0].Help)
	must.EqOp(t, KindCheckbox, fs.QueryFields[1].Kind)

	must.False(t, fs.Body.Offered())
	must.SliceEmpty(t, fs.BodyFields)
}

func TestDerive_JSONBody(t *testing.T) {
	ep := model.Endpoint{
		Method: "POST",
		Path:   "/pets",
		RequestBody: &model.RequestBody{Content: []model.MediaType{
			{ContentType: "application/json", Schema: petSchema},
			{ContentType: "text/plain", Schema: map[string]any{"type": "string"}},
		}},
	}
	fs := Derive(ep, "")
	must.EqOp(t, BodyJSON, fs.Body.Layout)
	must.EqOp(t, "application/json", fs.Body.ContentType)
	must.Eq(t, []string{"application/json", "text/plain"}, fs.Body.ContentTypes)

	var labels []string
	var kinds []Kind
	for _, f := range fs.BodyFields {
		labels = append(labels, f.Label)
		kinds = append(kinds, f.Kind)
	}
	wantLabels := []string{
		"age",
		"alive",
		"blob",
		"meta (JSON object)",
		"name (required)",
		"tags (comma separated for array)",
	}
	if diff := cmp.Diff(wantLabels, labels); diff != "" {
		t.Fatalf("labels mismatch (-want +got):\n%s", diff)
	}
	must.Eq(t, []Kind{KindNumeric, KindCheckbox, KindText, KindJSON, KindText, KindList}, kinds)
	must.EqOp(t, "Pet name", fs.BodyFields[4].Help)

	var raw map[string]any
	must.NoError(t, json.Unmarshal([]byte(fs.Body.DefaultRaw), &raw))
	want := map[string]any{
		"name":  "",
		"age":   0.0,
		"alive": false,
		"tags":  []any{},
		"meta":  map[string]any{},
		"blob":  nil,
	}
	if diff := cmp.Diff(want, raw); diff != "" {
		t.Fatalf("default raw mismatch (-want +got):\n%s", diff)
	}
	must.StrContains(t, fs.Body.DefaultRaw, "\n  \"age\": 0")
}

func TestDerive_NonJSONContentType(t *testing.T) {
	ep := model.Endpoint{
		Method: "PUT",
		Path:   "/notes",
		RequestBody: &model.RequestBody{Content: []model.MediaType{
			{ContentType: "application/json", Schema: petSchema},
			{ContentType: "text/plain"},
		}},
	}
	fs := Derive(ep, "text/plain")
	must.EqOp(t, BodyRawText, fs.Body.Layout)
	must.EqOp(t, "", fs.Body.DefaultRaw)
	must.SliceEmpty(t, fs.BodyFields)
	mode, forced := fs.Body.ForcedMode()
	must.True(t, forced)
	must.EqOp(t, model.BodyModeRawJSON, mode)

	// Undeclared selection falls back to the first type.
	must.EqOp(t, "application/json", Derive(ep, "image/png").Body.ContentType)
}

func TestDerive_RawFallback(t *testing.T) {
	for _, m := range []string{"POST", "PUT", "PATCH"} {
		fs := Derive(model.Endpoint{Method: m, Path: "/x"}, "")
		must.EqOp(t, BodyRawFallback, fs.Body.Layout)
		must.EqOp(t, "", fs.Body.DefaultRaw)
	}
	for _, m := range []string{"GET", "DELETE"} {
		must.False(t, Derive(model.Endpoint{Method: m, Path: "/x"}, "").Body.Offered())
	}
}

func TestDerive_BodyOnVerbWithoutBody(t *testing.T) {
	ep := model.Endpoint{
		Method:      "DELETE",
		Path:        "/x",
		RequestBody: &model.RequestBody{Content: []model.MediaType{{ContentType: "application/json", Schema: petSchema}}},
	}
	fs := Derive(ep, "")
	must.True(t, fs.Body.Offered())
	must.EqOp(t, BodyEmpty, fs.Body.Layout)
	must.SliceEmpty(t, fs.BodyFields)
}

func TestDefaultJSON_Empty(t *testing.T) {
	must.MapEmpty(t, DefaultJSON(nil))
	must.EqOp(t, "{}", DefaultJSONText(map[string]any{}))
}

func TestSchemaOf(t *testing.T) {
	s := SchemaOf(petSchema)
	must.SliceLen(t, 6, s.Properties)
	must.True(t, s.Required["name"])
	must.False(t, s.Required["age"])
	p, ok := s.Property("blob")
	must.True(t, ok)
	must.EqOp(t, model.TypeUnknown, p.Type)
	_, ok = s.Property("nope")
	must.False(t, ok)
}
