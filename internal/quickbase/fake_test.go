package quickbase

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
)

const (
	testToken = "b7x9_secret_token"
	testRealm = "example.quickbase.com"
)

// fakeQuickBase records what it receives and answers like the QuickBase API
type fakeQuickBase struct {
	mu      sync.Mutex
	hits    map[string]int
	headers http.Header
	body    []byte
}

func (f *fakeQuickBase) record(r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.hits[r.Method+" "+r.URL.Path]++
	f.headers = r.Header.Clone()
	f.body = body
}

func (f *fakeQuickBase) Hits(method, path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[method+" "+path]
}

func (f *fakeQuickBase) LastHeaders() http.Header {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.headers
}

func (f *fakeQuickBase) LastBody() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.body
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func newFakeQuickBase(t *testing.T) (*httptest.Server, *fakeQuickBase) {
	t.Helper()

	fake := &fakeQuickBase{hits: make(map[string]int)}

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fake.record(r)
			next.ServeHTTP(w, r)
		})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Get("/apps/{appId}", func(w http.ResponseWriter, r *http.Request) {
			switch appID := chi.URLParam(r, "appId"); appID {
			case "missing":
				writeJSON(w, http.StatusNotFound, map[string]any{
					"message":     "Not Found",
					"description": "App not found",
				})
			case "garbled":
				w.WriteHeader(http.StatusOK)
				io.WriteString(w, "<html>not json</html>")
			case "empty":
				w.WriteHeader(http.StatusOK)
			default:
				writeJSON(w, http.StatusOK, map[string]any{
					"id":   appID,
					"name": "Inventory",
				})
			}
		})

		r.Get("/tables/{tableId}", func(w http.ResponseWriter, r *http.Request) {
			appID := r.URL.Query().Get("appId")
			if appID == "" {
				writeJSON(w, http.StatusBadRequest, map[string]any{"message": "Bad Request"})
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"id":    chi.URLParam(r, "tableId"),
				"appId": appID,
				"name":  "Parts",
			})
		})

		r.Post("/records", func(w http.ResponseWriter, r *http.Request) {
			var req UpsertRequest
			if err := json.Unmarshal(fake.LastBody(), &req); err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]any{"message": err.Error()})
				return
			}
			ids := make([]int, len(req.Data))
			for i := range ids {
				ids[i] = i + 1
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"metadata": map[string]any{
					"createdRecordIds":              ids,
					"totalNumberOfRecordsProcessed": len(req.Data),
				},
			})
		})

		r.Post("/records/query", func(w http.ResponseWriter, r *http.Request) {
			var req QueryRequest
			if err := json.Unmarshal(fake.LastBody(), &req); err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]any{"message": err.Error()})
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"data":   []any{map[string]any{"3": map[string]any{"value": 1}}},
				"fields": []any{},
				"metadata": map[string]any{
					"totalRecords": 1,
					"where":        req.Where,
				},
			})
		})
	})

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	return server, fake
}

func testConfig(server *httptest.Server) Config {
	return Config{
		Token:   testToken,
		Realm:   testRealm,
		BaseURL: server.URL + "/v1",
	}
}
