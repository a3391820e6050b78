package sheets_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"review_monitor/internal/adapters/sheets"
	"review_monitor/internal/domain"
)

func TestClient_Read_RetriesThenSuccess(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("missing bearer token, got %q", got)
		}
		switch atomic.AddInt32(&hits, 1) {
		case 1, 2:
			w.WriteHeader(503)
		default:
			_ = json.NewEncoder(w).Encode(map[string]any{
				"range": "Reviews!A1:K3",
				"values": [][]any{
					{"Date", "Text", "Rating"},
					{"2024-01-01 00:00:00", "hola", 4.5},
					{"2024-01-02 00:00:00"},
				},
			})
		}
	}))
	defer ts.Close()

	cl, err := sheets.New(ts.URL, "sheet-id", "tok", 100)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	tbl, err := cl.Read(ctx, domain.ReviewsSheet)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(tbl.Header) != 3 || tbl.Header[2] != "Rating" {
		t.Fatalf("unexpected header: %+v", tbl.Header)
	}
	if len(tbl.Rows) != 2 || tbl.Rows[0][2] != "4.5" || len(tbl.Rows[1]) != 1 {
		t.Fatalf("unexpected rows: %+v", tbl.Rows)
	}
	if atomic.LoadInt32(&hits) < 3 {
		t.Fatalf("expected at least 3 calls due to retries, got %d", hits)
	}
}

func TestClient_Read_MissingWorksheetIsEmpty(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(400)
		_, _ = w.Write([]byte(`{"error":{"message":"Unable to parse range: Reviews"}}`))
	}))
	defer ts.Close()

	cl, _ := sheets.New(ts.URL, "sheet-id", "tok", 100)
	tbl, err := cl.Read(context.Background(), domain.ReviewsSheet)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !tbl.Empty() {
		t.Fatalf("expected empty table")
	}
}

func TestClient_Write_CreatesMissingWorksheet(t *testing.T) {
	var calls []string
	var uploaded map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		switch {
		case strings.HasSuffix(r.URL.Path, ":clear"):
			w.WriteHeader(400)
			_, _ = w.Write([]byte(`Unable to parse range`))
		case strings.HasSuffix(r.URL.Path, ":batchUpdate"):
			_, _ = w.Write([]byte(`{}`))
		case r.Method == http.MethodPut:
			if r.URL.Query().Get("valueInputOption") != "RAW" {
				t.Errorf("expected RAW input option")
			}
			_ = json.NewDecoder(r.Body).Decode(&uploaded)
			_, _ = w.Write([]byte(`{}`))
		default:
			w.WriteHeader(500)
		}
	}))
	defer ts.Close()

	cl, _ := sheets.New(ts.URL, "sheet-id", "tok", 100)
	err := cl.Write(context.Background(), domain.ReviewsSheet, domain.Table{
		Header: []string{"Date", "Text"},
		Rows:   [][]string{{"2024-01-01", "hola"}},
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(calls) != 3 {
		t.Fatalf("expected clear, addSheet, update; got %v", calls)
	}
	vals, _ := uploaded["values"].([]any)
	if len(vals) != 2 {
		t.Fatalf("expected header + 1 row, got %v", uploaded)
	}
}

func TestClient_Connect_Unauthorized(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(401)
	}))
	defer ts.Close()

	cl, _ := sheets.New(ts.URL, "sheet-id", "tok", 100)
	if err := cl.Connect(context.Background()); err == nil {
		t.Fatalf("expected error for 401")
	}
}

func TestNew_RequiresCredentials(t *testing.T) {
	if _, err := sheets.New("", "", "tok", 1); err == nil {
		t.Fatalf("expected error without spreadsheet id")
	}
	if _, err := sheets.New("", "id", "", 1); err == nil {
		t.Fatalf("expected error without token")
	}
}

func TestClient_Read_HonorsRetryAfter(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"values":[["Date"],["2024-01-01"]]}`))
	}))
	defer ts.Close()

	cl, _ := sheets.New(ts.URL, "sheet-id", "tok", 100)
	tbl, err := cl.Read(context.Background(), domain.ReviewsSheet)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(tbl.Rows) != 1 || atomic.LoadInt32(&hits) != 2 {
		t.Fatalf("expected one retry and one row, got hits=%d rows=%v", hits, tbl.Rows)
	}
}

func TestClient_Read_ForbiddenIsNotRetried(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer ts.Close()

	cl, _ := sheets.New(ts.URL, "sheet-id", "tok", 100)
	_, err := cl.Read(context.Background(), domain.ReviewsSheet)
	if !errors.Is(err, sheets.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Fatalf("expected a single call, got %d", n)
	}
}
