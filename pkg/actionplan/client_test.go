package actionplan

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/healthvault/sdk/pkg/hverror"
	"github.com/healthvault/sdk/pkg/transport"
)

var testRecordID = uuid.MustParse("aaaaaaaa-1111-2222-3333-444444444444")

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	rest := transport.NewRESTClient(srv.URL, "test-token")
	return NewClient(rest, testRecordID), srv
}

func TestList(t *testing.T) {
	planID := uuid.New()
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/v3/actionplans" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("x-hv-record-id"); got != testRecordID.String() {
			t.Errorf("record header: %q", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("auth header: %q", got)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"plans": []Plan{{ID: planID, Name: "Sleep better", Category: "Sleep", Status: "Active"}},
		})
	})

	plans, err := c.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plans) != 1 || plans[0].ID != planID || plans[0].Name != "Sleep better" {
		t.Errorf("plans: %+v", plans)
	}
}

func TestCreate(t *testing.T) {
	assigned := uuid.New()
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method: %s", r.Method)
		}
		var in Plan
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if in.Name != "Walk more" || len(in.Objectives) != 1 {
			t.Errorf("request plan: %+v", in)
		}
		in.ID = assigned
		json.NewEncoder(w).Encode(in)
	})

	created, err := c.Create(context.Background(), &Plan{
		Name:       "Walk more",
		Objectives: []Objective{{Name: "10k steps"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.ID != assigned {
		t.Errorf("assigned id: %s", created.ID)
	}

	if _, err := c.Create(context.Background(), &Plan{}); !hverror.IsValidation(err) {
		t.Errorf("nameless plan: expected validation error, got %v", err)
	}
}

func TestUpdateAndDelete(t *testing.T) {
	planID := uuid.New()
	var gotPath, gotMethod string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotMethod = r.URL.Path, r.Method
		if r.Method == http.MethodPut {
			json.NewEncoder(w).Encode(Plan{ID: planID, Name: "Renamed"})
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	updated, err := c.Update(context.Background(), &Plan{ID: planID, Name: "Renamed"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if gotMethod != http.MethodPut || gotPath != "/v3/actionplans/"+planID.String() {
		t.Errorf("update request: %s %s", gotMethod, gotPath)
	}
	if updated.Name != "Renamed" {
		t.Errorf("updated: %+v", updated)
	}

	if err := c.Delete(context.Background(), planID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if gotMethod != http.MethodDelete || gotPath != "/v3/actionplans/"+planID.String() {
		t.Errorf("delete request: %s %s", gotMethod, gotPath)
	}

	if _, err := c.Update(context.Background(), &Plan{Name: "no id"}); !hverror.IsValidation(err) {
		t.Errorf("update without id: expected validation error, got %v", err)
	}
	if err := c.Delete(context.Background(), uuid.Nil); !hverror.IsValidation(err) {
		t.Errorf("delete nil id: expected validation error, got %v", err)
	}
}

func TestGet_ErrorBody(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]string{"code": "AccessDenied", "message": "record not shared"},
		})
	})

	_, err := c.Get(context.Background(), uuid.New())
	if !hverror.IsKind(err, hverror.KindServer) {
		t.Fatalf("expected server error, got %v", err)
	}
	var hvErr *hverror.Error
	if !errors.As(err, &hvErr) || hvErr.Message != "record not shared" {
		t.Errorf("error detail: %+v", hvErr)
	}
}
