package copy

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cdpops/segment-copier/internal/models"
)

func parentSrcServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/audiences/src-ps", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":   "src-ps",
			"name": "Production Audience",
			"attributes": []interface{}{
				map[string]interface{}{"name": "email", "parentDatabaseName": "crm", "parentTableName": "users"},
			},
		})
	})
	return httptest.NewServer(mux)
}

type parentDstServer struct {
	*httptest.Server
	audiences  []map[string]interface{}
	puts       []string
	deletes    []string
	posted     []map[string]interface{}
	rejectPuts bool
}

func newParentDstServer(t *testing.T, audiences []map[string]interface{}) *parentDstServer {
	t.Helper()
	ds := &parentDstServer{audiences: audiences}
	mux := http.NewServeMux()
	mux.HandleFunc("/audiences", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode(ds.audiences)
		case http.MethodPost:
			var body map[string]interface{}
			json.NewDecoder(r.Body).Decode(&body)
			ds.posted = append(ds.posted, body)
			json.NewEncoder(w).Encode(map[string]interface{}{"id": "new-ps"})
		}
	})
	mux.HandleFunc("/audiences/", func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Path[len("/audiences/"):]
		switch r.Method {
		case http.MethodPut:
			if ds.rejectPuts {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(`{"errors":"definition locked"}`))
				return
			}
			ds.puts = append(ds.puts, id)
			w.Write([]byte(`{}`))
		case http.MethodDelete:
			ds.deletes = append(ds.deletes, id)
			w.WriteHeader(http.StatusNoContent)
		}
	})
	ds.Server = httptest.NewServer(mux)
	return ds
}

func upsert(t *testing.T, dst *parentDstServer) error {
	t.Helper()
	src := parentSrcServer(t)
	defer src.Close()
	copier := NewCopier(fastClient(t, src), fastClient(t, dst.Server), nil)
	return copier.UpsertParentSegment(context.Background(), "src-ps", "dst-ps", "Staging Audience", func(models.Event) {})
}

func TestUpsertParentSegment_UpdatesExistingByID(t *testing.T) {
	dst := newParentDstServer(t, []map[string]interface{}{
		{"id": "dst-ps", "name": "Old Name"},
	})
	defer dst.Close()

	if err := upsert(t, dst); err != nil {
		t.Fatalf("upsert returned error: %v", err)
	}
	if len(dst.puts) != 1 || dst.puts[0] != "dst-ps" {
		t.Errorf("puts = %v, want [dst-ps]", dst.puts)
	}
	if len(dst.posted) != 0 {
		t.Errorf("posted = %v, want none", dst.posted)
	}
}

func TestUpsertParentSegment_MatchesByName(t *testing.T) {
	dst := newParentDstServer(t, []map[string]interface{}{
		{"id": "other-id", "name": "Staging Audience"},
	})
	defer dst.Close()

	if err := upsert(t, dst); err != nil {
		t.Fatalf("upsert returned error: %v", err)
	}
	if len(dst.puts) != 1 || dst.puts[0] != "other-id" {
		t.Errorf("puts = %v, want [other-id]", dst.puts)
	}
}

func TestUpsertParentSegment_CreatesWhenAbsent(t *testing.T) {
	dst := newParentDstServer(t, nil)
	defer dst.Close()

	if err := upsert(t, dst); err != nil {
		t.Fatalf("upsert returned error: %v", err)
	}
	if len(dst.posted) != 1 {
		t.Fatalf("posted = %v, want one create", dst.posted)
	}
	if dst.posted[0]["name"] != "Staging Audience" {
		t.Errorf("created name = %v, want Staging Audience", dst.posted[0]["name"])
	}
	if _, hasID := dst.posted[0]["id"]; hasID {
		t.Error("create payload still carries an id")
	}
}

func TestUpsertParentSegment_RecreatesOnRejectedUpdate(t *testing.T) {
	dst := newParentDstServer(t, []map[string]interface{}{
		{"id": "dst-ps", "name": "Old Name"},
	})
	defer dst.Close()
	dst.rejectPuts = true

	if err := upsert(t, dst); err != nil {
		t.Fatalf("upsert returned error: %v", err)
	}
	if len(dst.deletes) != 1 || dst.deletes[0] != "dst-ps" {
		t.Errorf("deletes = %v, want [dst-ps]", dst.deletes)
	}
	if len(dst.posted) != 1 {
		t.Errorf("posted = %v, want one recreate", dst.posted)
	}
}
