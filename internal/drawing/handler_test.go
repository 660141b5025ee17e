package drawing

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"

	"github.com/inamate/sketchpad/internal/document"
	"github.com/inamate/sketchpad/internal/typeid"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	r := mux.NewRouter()
	NewHandler(NewService(newTestFileStore(t))).Register(r.PathPrefix("/api").Subrouter())
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestHandlerLifecycle(t *testing.T) {
	srv := newTestServer(t)
	base := srv.URL + "/api/drawings"

	resp := do(t, "POST", base, "")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST status = %d", resp.StatusCode)
	}
	created := decode[Drawing](t, resp)

	resp = do(t, "PUT", base+"/"+created.ID, `[{"type":"line","x1":0,"y1":0,"x2":5,"y2":5},{"type":"bogus"}]`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("PUT status = %d", resp.StatusCode)
	}
	saved := decode[Drawing](t, resp)
	if saved.Version != 2 || len(saved.Shapes) != 1 {
		t.Errorf("saved = %+v", saved)
	}

	resp = do(t, "GET", base, "")
	list := decode[[]Summary](t, resp)
	if len(list) != 1 || list[0].ID != created.ID || list[0].ShapeCount != 1 {
		t.Errorf("list = %+v", list)
	}

	resp = do(t, "GET", base+"/"+created.ID+"/shapes", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET shapes status = %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	records, err := document.Unmarshal(body)
	if err != nil || len(records) != 1 || records[0].Type != "line" {
		t.Errorf("shapes = %s (%v)", body, err)
	}

	resp = do(t, "DELETE", base+"/"+created.ID, "")
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("DELETE status = %d", resp.StatusCode)
	}
	resp = do(t, "GET", base+"/"+created.ID, "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("GET after delete status = %d", resp.StatusCode)
	}
}

func TestHandlerErrors(t *testing.T) {
	srv := newTestServer(t)
	base := srv.URL + "/api/drawings"
	id := typeid.NewDrawingID()

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"create with object body", "POST", "", `{"type":"line"}`, http.StatusBadRequest},
		{"create with missing field", "POST", "", `[{"type":"circle","x":0}]`, http.StatusBadRequest},
		{"save empty", "PUT", "/" + id, `[]`, http.StatusUnprocessableEntity},
		{"save no body", "PUT", "/" + id, ``, http.StatusBadRequest},
		{"save bad id", "PUT", "/nope", `[{"type":"line","x1":0,"y1":0,"x2":1,"y2":1}]`, http.StatusBadRequest},
		{"get unknown", "GET", "/" + id, ``, http.StatusNotFound},
		{"delete unknown", "DELETE", "/" + id, ``, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, tt.method, base+tt.path, tt.body)
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
			if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q", ct)
			}
		})
	}
}
