// Package testorigin provides an embedded DASH origin for exercising
// the adaptation pipeline without real media.
package testorigin

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/savid/dash-abr/pkg/mpd"
)

const paceChunkSize = 16 * 1024

// Server serves a generated MPD manifest and dummy media segments
// whose sizes follow the configured bitrate ladder. Segment delivery
// can be paced to a link rate so clients measure realistic throughput.
type Server struct {
	ladder          []mpd.Representation
	segmentDuration time.Duration
	linkRateBps     int
	logger          *logrus.Logger
}

// NewServer creates an origin for the given bitrate ladder in Kbps,
// ascending. linkRateKbps of 0 disables pacing.
func NewServer(ladderKbps []int, segmentDuration time.Duration, linkRateKbps int, logger *logrus.Logger) *Server {
	ladder := make([]mpd.Representation, len(ladderKbps))
	for i, rate := range ladderKbps {
		ladder[i] = mpd.Representation{
			ID:        fmt.Sprintf("rep-%dk", rate),
			Bandwidth: rate * 1000,
		}
	}

	return &Server{
		ladder:          ladder,
		segmentDuration: segmentDuration,
		linkRateBps:     linkRateKbps * 1000,
		logger:          logger,
	}
}

// Handler returns the origin's HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/manifest.mpd", s.handleManifest)
	mux.HandleFunc("/seg/", s.handleSegment)
	return s.loggingMiddleware(mux)
}

// handleManifest serves the generated MPD for the bitrate ladder.
func (s *Server) handleManifest(w http.ResponseWriter, _ *http.Request) {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<MPD xmlns="urn:mpeg:dash:schema:mpd:2011" type="static">` + "\n")
	b.WriteString("  <Period>\n    <AdaptationSet mimeType=\"video/mp4\">\n")
	for _, rep := range s.ladder {
		fmt.Fprintf(&b, "      <Representation id=%q bandwidth=\"%d\"/>\n", rep.ID, rep.Bandwidth)
	}
	b.WriteString("    </AdaptationSet>\n  </Period>\n</MPD>\n")

	w.Header().Set("Content-Type", "application/dash+xml")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write([]byte(b.String()))
}

// handleSegment serves a dummy segment sized to the representation's
// bandwidth and the segment duration.
func (s *Server) handleSegment(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/seg/"), "/")
	if len(parts) != 2 {
		http.Error(w, "Invalid segment path", http.StatusBadRequest)
		return
	}

	repID := parts[0]
	var num int
	if _, err := fmt.Sscanf(parts[1], "%d.m4s", &num); err != nil {
		http.Error(w, "Invalid segment number", http.StatusBadRequest)
		return
	}

	rep, ok := s.lookupRepresentation(repID)
	if !ok {
		http.Error(w, "Representation not found", http.StatusNotFound)
		return
	}

	size := rep.Bandwidth / 8 * int(s.segmentDuration.Milliseconds()) / 1000
	if size < 1 {
		size = 1
	}

	w.Header().Set("Content-Type", "video/iso.segment")
	w.Header().Set("Cache-Control", "no-cache")
	s.writePaced(w, size)
}

// writePaced streams size filler bytes, sleeping between chunks so the
// effective transfer rate approximates the configured link rate.
func (s *Server) writePaced(w http.ResponseWriter, size int) {
	chunk := make([]byte, paceChunkSize)

	var chunkDelay time.Duration
	if s.linkRateBps > 0 {
		chunkDelay = time.Duration(float64(paceChunkSize*8) / float64(s.linkRateBps) * float64(time.Second))
	}

	flusher, _ := w.(http.Flusher)
	for written := 0; written < size; {
		n := size - written
		if n > len(chunk) {
			n = len(chunk)
		}
		if _, err := w.Write(chunk[:n]); err != nil {
			return
		}
		written += n

		if chunkDelay > 0 {
			if flusher != nil {
				flusher.Flush()
			}
			time.Sleep(chunkDelay)
		}
	}
}

func (s *Server) lookupRepresentation(id string) (mpd.Representation, bool) {
	for _, rep := range s.ladder {
		if rep.ID == id {
			return rep, true
		}
	}
	return mpd.Representation{}, false
}

// loggingMiddleware logs all incoming requests at debug level.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"duration": time.Since(start).String(),
		}).Debug("Origin request completed")
	})
}
