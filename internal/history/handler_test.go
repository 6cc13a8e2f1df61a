package history

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
)

func TestListRunsHandler(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT id, session_id, kind, status, fallback_used, created_at").
		WithArgs(25).
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "session_id", "kind", "status", "fallback_used", "created_at"},
		).AddRow(uuid.New(), "sess-9", KindAnalysis, "completed", true, time.Now()))

	handler := NewHandler(NewStore(db), nil)
	req := httptest.NewRequest(http.MethodGet, "/api/analysis-runs?limit=25", nil)
	rec := httptest.NewRecorder()
	handler.ListRuns(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp ListRunsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 1 || resp.Runs[0].SessionID != "sess-9" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestListRunsHandlerEmptyStore(t *testing.T) {
	handler := NewHandler(nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/analysis-runs", nil)
	rec := httptest.NewRecorder()
	handler.ListRuns(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from nil store, got %d", rec.Code)
	}
	var resp ListRunsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 0 {
		t.Fatalf("expected empty runs, got %+v", resp)
	}
}
