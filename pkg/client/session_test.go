package client

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/savid/dash-abr/config"
	"github.com/savid/dash-abr/internal/testorigin"
	"github.com/savid/dash-abr/pkg/abr"
	"github.com/savid/dash-abr/pkg/pipeline"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testConfig(originURL string, segments int) *config.Config {
	return &config.Config{
		OriginURL:       originURL,
		WindowSize:      5,
		SegmentCount:    segments,
		SegmentDuration: 50 * time.Millisecond,
		Ladder:          "500,1500,4000",
		FetchRetries:    1,
		LogLevel:        "info",
	}
}

func TestSessionRun(t *testing.T) {
	origin := testorigin.NewServer([]int{500, 1500, 4000}, 50*time.Millisecond, 0, testLogger())
	ts := httptest.NewServer(origin.Handler())
	defer ts.Close()

	var decisions []abr.Decision
	observer := func(d abr.Decision) { decisions = append(decisions, d) }

	session := NewSession(testConfig(ts.URL, 6), testLogger(), pipeline.WithObserver(observer))
	summary, err := session.Run(context.Background())
	if err != nil {
		t.Fatalf("Session failed: %v", err)
	}

	if summary.Segments != 6 {
		t.Errorf("Expected 6 segments fetched, got %d", summary.Segments)
	}
	if summary.Bytes == 0 {
		t.Error("Expected non-zero bytes fetched")
	}
	if len(summary.Qualities) != 6 {
		t.Fatalf("Expected 6 chosen qualities, got %d", len(summary.Qualities))
	}

	valid := map[string]bool{"rep-500k": true, "rep-1500k": true, "rep-4000k": true}
	for i, q := range summary.Qualities {
		if !valid[q] {
			t.Errorf("Segment %d: unexpected quality ID %q", i, q)
		}
	}

	// One decision per segment request, each a valid ladder index.
	if len(decisions) != 6 {
		t.Fatalf("Expected 6 decisions, got %d", len(decisions))
	}
	for i, d := range decisions {
		if d.Index < 0 || d.Index > 2 {
			t.Errorf("Decision %d: index %d out of range", i, d.Index)
		}
		if d.Probability < 0 || d.Probability > 1 {
			t.Errorf("Decision %d: probability %v out of range", i, d.Probability)
		}
	}
}

func TestSessionOriginUnreachable(t *testing.T) {
	// A server that is immediately closed leaves a port nothing listens on.
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	cfg := testConfig(url, 3)
	cfg.FetchRetries = 0

	session := NewSession(cfg, testLogger())
	if _, err := session.Run(context.Background()); err == nil {
		t.Error("Expected error for unreachable origin")
	}
}

func TestSessionContextCancelled(t *testing.T) {
	origin := testorigin.NewServer([]int{500}, 50*time.Millisecond, 0, testLogger())
	ts := httptest.NewServer(origin.Handler())
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	session := NewSession(testConfig(ts.URL, 3), testLogger())
	if _, err := session.Run(ctx); err == nil {
		t.Error("Expected error for cancelled context")
	}
}
