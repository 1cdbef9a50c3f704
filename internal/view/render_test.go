package view

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"layout.html": {Data: []byte(`{{ define "layout" }}<main>{{ template "content" . }}</main>{{ end }}`)},
		"page.html":   {Data: []byte(`{{ define "content" }}<a href="{{ url "/admin/visits/7" }}">{{ opt .City }}</a>{{ end }}{{ template "layout" . }}`)},
		"named.html":  {Data: []byte(`{{ define "card" }}{{ with dict "n" 3 }}{{ .n }}{{ end }}{{ end }}`)},
	}
}

func TestEngine_Render(t *testing.T) {
	e, err := New(testFS(), "/analytics")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	rr := httptest.NewRecorder()
	if err := e.Render(rr, http.StatusOK, "page", map[string]any{"City": (*string)(nil)}); err != nil {
		t.Fatalf("Render: %v", err)
	}
	body := rr.Body.String()
	if !strings.Contains(body, `href="/analytics/admin/visits/7"`) {
		t.Errorf("url helper ignored base path: %s", body)
	}
	if !strings.Contains(body, "<main><a") || !strings.Contains(body, ">-</a>") {
		t.Errorf("unexpected body: %s", body)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestEngine_RenderToStringDefinedName(t *testing.T) {
	e, err := New(testFS(), "")
	if err != nil {
		t.Fatal(err)
	}
	out, err := e.RenderToString("card", nil)
	if err != nil {
		t.Fatal(err)
	}
	if out != "3" {
		t.Fatalf("out = %q", out)
	}
}

func TestEngine_RenderErrorWritesNothing(t *testing.T) {
	e, err := New(testFS(), "")
	if err != nil {
		t.Fatal(err)
	}
	rr := httptest.NewRecorder()
	if err := e.Render(rr, http.StatusOK, "missing", nil); err == nil {
		t.Fatal("expected error for unknown template")
	}
	if rr.Body.Len() != 0 {
		t.Fatal("nothing should be written on error")
	}
}
