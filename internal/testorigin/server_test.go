package testorigin

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/savid/dash-abr/pkg/mpd"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestManifestEndpoint(t *testing.T) {
	server := NewServer([]int{500, 1500, 4000}, time.Second, 0, testLogger())

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/manifest.mpd", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	reps, err := mpd.Parse(rec.Body.Bytes())
	if err != nil {
		t.Fatalf("Generated manifest did not parse: %v", err)
	}
	if len(reps) != 3 {
		t.Fatalf("Expected 3 representations, got %d", len(reps))
	}
	if reps[0].ID != "rep-500k" || reps[2].ID != "rep-4000k" {
		t.Errorf("Unexpected representation order: %v", reps)
	}
}

func TestSegmentEndpoint(t *testing.T) {
	server := NewServer([]int{500}, time.Second, 0, testLogger())

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/seg/rep-500k/0.m4s", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	// 500 Kbps over one second is 62500 bytes
	if got := rec.Body.Len(); got != 62500 {
		t.Errorf("Expected 62500 segment bytes, got %d", got)
	}
}

func TestSegmentUnknownRepresentation(t *testing.T) {
	server := NewServer([]int{500}, time.Second, 0, testLogger())

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/seg/rep-9000k/0.m4s", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rec.Code)
	}
}

func TestSegmentBadPath(t *testing.T) {
	server := NewServer([]int{500}, time.Second, 0, testLogger())

	for _, path := range []string{"/seg/rep-500k", "/seg/rep-500k/abc.m4s", "/seg/a/b/c"} {
		rec := httptest.NewRecorder()
		server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("Path %s: expected status 400, got %d", path, rec.Code)
		}
	}
}
