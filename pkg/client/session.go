package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/savid/dash-abr/config"
	"github.com/savid/dash-abr/pkg/mpd"
	"github.com/savid/dash-abr/pkg/pipeline"
)

var (
	// ErrUnexpectedStatus is returned when the HTTP response has an unexpected status code.
	ErrUnexpectedStatus = errors.New("unexpected status code")
	// ErrNoQualityLevels is returned when the manifest yields no selectable levels.
	ErrNoQualityLevels = errors.New("manifest yielded no quality levels")
)

// levelsParser adapts the MPD parser to the pipeline's ManifestParser interface.
type levelsParser struct{}

func (levelsParser) QualityLevels(payload []byte) ([]string, error) {
	reps, err := mpd.Parse(payload)
	if err != nil {
		return nil, err
	}
	return mpd.QualityIDs(reps), nil
}

// Summary describes a completed streaming session.
type Summary struct {
	Segments  int
	Bytes     int64
	Qualities []string
}

// Session fetches a manifest and a run of media segments from a DASH
// origin, routing every request and response through the adaptation
// controller. It acts as both ends of the controller's relay: messages
// sent down become HTTP requests, messages sent up land in the session
// summary.
type Session struct {
	config     *config.Config
	client     *http.Client
	controller *pipeline.Controller
	logger     *logrus.Logger

	ctx     context.Context
	summary Summary
	err     error
}

// NewSession creates a session against the origin named in cfg.
func NewSession(cfg *config.Config, logger *logrus.Logger, opts ...pipeline.Option) *Session {
	s := &Session{
		config: cfg,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}
	s.controller = pipeline.NewController(s, levelsParser{}, cfg.WindowSize, logger, opts...)
	return s
}

// Run executes one streaming session: manifest first, then the
// configured number of segments, one synchronous cycle at a time.
func (s *Session) Run(ctx context.Context) (*Summary, error) {
	s.ctx = ctx
	s.summary = Summary{}
	s.err = nil

	s.controller.Initialize()
	defer s.controller.Finalize()

	s.controller.HandleManifestRequest(&message{kind: manifestRequest})
	if s.err != nil {
		return nil, fmt.Errorf("failed to fetch manifest: %w", s.err)
	}
	if len(s.controller.QualityLevels()) == 0 {
		return nil, ErrNoQualityLevels
	}

	for seq := 0; seq < s.config.SegmentCount; seq++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		s.controller.HandleSegmentRequest(&message{kind: segmentRequest, seq: seq})
		if s.err != nil {
			return nil, fmt.Errorf("failed to fetch segment %d: %w", seq, s.err)
		}
	}

	summary := s.summary
	return &summary, nil
}

// SendDown is the transport side of the relay: it turns an outgoing
// request into an HTTP fetch and feeds the response back into the
// controller. A failed fetch records the error and produces no
// response event.
func (s *Session) SendDown(msg pipeline.Message) {
	req, ok := msg.(*message)
	if !ok {
		s.err = fmt.Errorf("unexpected message type %T", msg)
		return
	}

	switch req.kind {
	case manifestRequest:
		body, err := s.fetch(s.config.OriginURL + "/manifest.mpd")
		if err != nil {
			s.err = err
			return
		}
		s.controller.HandleManifestResponse(&message{kind: manifestResponse, payload: body})

	case segmentRequest:
		s.summary.Qualities = append(s.summary.Qualities, req.qualityID)

		url := fmt.Sprintf("%s/seg/%s/%d.m4s", s.config.OriginURL, req.qualityID, req.seq)
		body, err := s.fetch(url)
		if err != nil {
			s.err = err
			return
		}
		s.controller.HandleSegmentResponse(&message{kind: segmentResponse, seq: req.seq, payload: body})

	default:
		s.err = fmt.Errorf("unexpected downward message kind %d", req.kind)
	}
}

// SendUp is the player side of the relay: responses forwarded upward
// are accounted into the session summary.
func (s *Session) SendUp(msg pipeline.Message) {
	resp, ok := msg.(*message)
	if !ok {
		return
	}

	switch resp.kind {
	case manifestResponse:
		s.logger.WithField("bytes", len(resp.payload)).Debug("Manifest delivered to player")
	case segmentResponse:
		s.summary.Segments++
		s.summary.Bytes += int64(len(resp.payload))
		s.logger.WithFields(logrus.Fields{
			"segment": resp.seq,
			"bytes":   len(resp.payload),
		}).Debug("Segment delivered to player")
	}
}

func (s *Session) fetch(url string) ([]byte, error) {
	var body []byte

	op := func() error {
		req, err := http.NewRequestWithContext(s.ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}

		resp, err := s.client.Do(req)
		if err != nil {
			return err
		}
		defer func() {
			_ = resp.Body.Close()
		}()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
		}

		body, err = io.ReadAll(resp.Body)
		return err
	}

	ebo := backoff.NewExponentialBackOff()
	ebo.InitialInterval = 100 * time.Millisecond
	policy := backoff.WithMaxRetries(backoff.WithContext(ebo, s.ctx), uint64(s.config.FetchRetries))

	if err := backoff.Retry(op, policy); err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}

	return body, nil
}
