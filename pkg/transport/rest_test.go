package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/google/uuid"

	"github.com/healthvault/sdk/pkg/hverror"
)

func TestRESTClient_DoJSON(t *testing.T) {
	recordID := uuid.MustParse("aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("missing bearer token, got %q", r.Header.Get("Authorization"))
		}
		if r.Header.Get("x-hv-record-id") != recordID.String() {
			t.Errorf("missing record header, got %q", r.Header.Get("x-hv-record-id"))
		}
		if r.URL.Path != "/v3/actionplans" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("maxPageSize") != "5" {
			t.Errorf("query not forwarded: %s", r.URL.RawQuery)
		}
		var in map[string]string
		json.NewDecoder(r.Body).Decode(&in)
		json.NewEncoder(w).Encode(map[string]string{"echo": in["name"]})
	}))
	defer srv.Close()

	c := NewRESTClient(srv.URL, "tok")
	var out map[string]string
	q := url.Values{"maxPageSize": []string{"5"}}
	err := c.DoJSON(context.Background(), http.MethodPost, "/v3/actionplans", q, map[string]string{"name": "walk"}, &out, &recordID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out["echo"] != "walk" {
		t.Errorf("response not decoded: %v", out)
	}
}

func TestRESTClient_ErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"code":"PlanNotFound","message":"no such plan"}}`))
	}))
	defer srv.Close()

	c := NewRESTClient(srv.URL, "tok")
	err := c.DoJSON(context.Background(), http.MethodGet, "/v3/actionplans/x", nil, nil, nil, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if !hverror.IsKind(err, hverror.KindServer) {
		t.Errorf("expected server kind, got %v", err)
	}
	var hv *hverror.Error
	if !errors.As(err, &hv) || hv.Message != "no such plan" {
		t.Errorf("server message not surfaced: %v", err)
	}
}
