package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"qboard/internal/core"
	"qboard/internal/tracker"
)

func TestListRecordsEnvelope(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": 200,
			"data": []map[string]any{
				{"id": 11, "entityId": 2, "period": "JAN2026", "target": 5, "achieved": 3},
				{"id": 12, "entityId": 9, "period": "garbage", "target": 1},
			},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, 77, time.Second)
	records, err := c.ListRecords(context.Background(), core.KindUser, tracker.ListFilter{
		Period: core.Period{Month: 1, Year: 2026},
		Group:  "QC",
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	if gotPath != "/user-targets/list" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotBody["loggedInUserId"] != float64(77) || gotBody["period"] != "JAN2026" || gotBody["groupId"] != "QC" {
		t.Fatalf("request body = %v", gotBody)
	}

	// Malformed period is skipped, not fatal.
	if len(records) != 1 {
		t.Fatalf("records = %+v", records)
	}
	r := records[0]
	if r.ID != 11 || r.EntityID != 2 || !r.Persisted || r.Metrics.Target != 5 {
		t.Fatalf("record = %+v", r)
	}
}

func TestAddRecordConflictFromEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"status": 409, "message": "duplicate"})
	}))
	defer srv.Close()

	c := New(srv.URL, 1, time.Second)
	_, err := c.AddRecord(context.Background(), core.Record{
		EntityID: 3, Kind: core.KindProject,
		Period: core.Period{Month: 2, Year: 2026}, Metrics: core.Metrics{Target: 4},
	})
	if !errors.Is(err, core.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestAddRecordConflictFromHTTPStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer srv.Close()

	c := New(srv.URL, 1, time.Second)
	_, err := c.AddRecord(context.Background(), core.Record{
		EntityID: 3, Kind: core.KindUser,
		Period: core.Period{Month: 2, Year: 2026}, Metrics: core.Metrics{Target: 4},
	})
	if !errors.Is(err, core.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestAddRecordReturnsAssignedID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": 201,
			"data":   map[string]any{"id": 501, "entityId": 3, "period": "FEB2026", "target": 4},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, 1, time.Second)
	id, err := c.AddRecord(context.Background(), core.Record{
		EntityID: 3, Kind: core.KindUser,
		Period: core.Period{Month: 2, Year: 2026}, Metrics: core.Metrics{Target: 4},
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if id != 501 {
		t.Fatalf("id = %d", id)
	}
}

func TestNonStructuredErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer srv.Close()

	c := New(srv.URL, 1, time.Second)
	_, err := c.ListRoster(context.Background(), core.KindUser)
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, core.ErrConflict) {
		t.Fatalf("plain 502 must not read as conflict: %v", err)
	}
}

func TestDeleteRecord(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]any{"status": 200, "message": "deleted"})
	}))
	defer srv.Close()

	c := New(srv.URL, 42, time.Second)
	if err := c.DeleteRecord(context.Background(), core.KindProject, 9); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if gotBody["recordId"] != float64(9) || gotBody["loggedInUserId"] != float64(42) {
		t.Fatalf("body = %v", gotBody)
	}
}

func TestUpdateRecordNotFoundFromEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"status": 404, "message": "no such record"})
	}))
	defer srv.Close()

	c := New(srv.URL, 1, time.Second)
	err := c.UpdateRecord(context.Background(), core.Record{
		ID: 99, EntityID: 3, Kind: core.KindUser,
		Period: core.Period{Month: 2, Year: 2026}, Metrics: core.Metrics{Target: 4},
	})
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteRecordNotFoundFromHTTPStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(srv.URL, 1, time.Second)
	if err := c.DeleteRecord(context.Background(), core.KindUser, 99); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
