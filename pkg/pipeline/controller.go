package pipeline

import (
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/savid/dash-abr/pkg/abr"
)

// Controller drives quality adaptation across the four events of the
// streaming cycle: manifest request/response and segment
// request/response. It owns the throughput window and the current
// quality index; the host pipeline invokes its entry points one event
// at a time, never concurrently.
//
// Every event forwards exactly one message in the direction it was
// received. The controller never drops, duplicates or reorders
// messages.
type Controller struct {
	relay  Relay
	parser ManifestParser
	engine *abr.Engine
	window *abr.Window
	logger *logrus.Entry

	// recent mirrors the window's content; it is the rolling buffer
	// re-synced into the tracker before each decision.
	recent       []float64
	levels       []string
	currentIndex int
	requestStart time.Time

	now func() time.Time
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// WithObserver installs an observer on the decision engine.
func WithObserver(observer abr.Observer) Option {
	return func(c *Controller) {
		c.engine = abr.NewEngine(observer)
	}
}

// NewController creates a controller with a throughput window of the
// given capacity. A non-positive windowSize falls back to the default.
func NewController(relay Relay, parser ManifestParser, windowSize int, logger *logrus.Logger, opts ...Option) *Controller {
	c := &Controller{
		relay:  relay,
		parser: parser,
		engine: abr.NewEngine(nil),
		window: abr.NewWindow(windowSize),
		logger: logger.WithField("component", "adaptation"),
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Initialize prepares the controller for a new streaming session.
func (c *Controller) Initialize() {
	sessionID := uuid.New().String()
	c.logger = c.logger.WithField("session_id", sessionID)

	c.requestStart = time.Time{}
	c.recent = c.recent[:0]
	c.window.Reset()
	c.currentIndex = 0

	c.logger.Info("Adaptation session initialized")
}

// Finalize releases session state. The controller must be initialized
// again before reuse.
func (c *Controller) Finalize() {
	c.requestStart = time.Time{}
	c.recent = nil
	c.window.Reset()
	c.currentIndex = 0

	c.logger.Info("Adaptation session finalized")
}

// HandleManifestRequest timestamps the manifest request and forwards it
// toward the transport.
func (c *Controller) HandleManifestRequest(msg Message) {
	if msg == nil {
		return
	}

	c.requestStart = c.now()
	c.relay.SendDown(msg)
}

// HandleManifestResponse extracts the quality level set from the
// manifest payload, records a throughput sample for the round trip and
// forwards the response toward the player.
func (c *Controller) HandleManifestResponse(msg Message) {
	levels, err := c.parser.QualityLevels(msg.Payload())
	if err != nil {
		c.logger.WithError(err).Warn("Failed to parse manifest, keeping previous quality levels")
	} else {
		c.levels = levels
		c.logger.WithField("levels", len(levels)).Debug("Quality levels updated from manifest")
	}

	c.recordSample(msg)
	c.relay.SendUp(msg)
}

// HandleSegmentRequest decides the quality level for the next segment,
// attaches its identifier to the request and forwards it toward the
// transport.
func (c *Controller) HandleSegmentRequest(msg Message) {
	c.requestStart = c.now()

	c.window.Replace(c.recent)
	decision := c.engine.Decide(c.window.Snapshot(), c.currentIndex, len(c.levels))
	c.currentIndex = decision.Index

	c.logger.WithFields(logrus.Fields{
		"mean":        decision.Mean,
		"variance":    decision.Variance,
		"probability": decision.Probability,
		"tau":         decision.Tau,
		"theta":       decision.Theta,
		"index":       decision.Index,
	}).Debug("Quality decision")

	if c.currentIndex >= 0 && c.currentIndex < len(c.levels) {
		msg.SetQualityID(c.levels[c.currentIndex])
	}

	c.relay.SendDown(msg)
}

// HandleSegmentResponse records a throughput sample for the segment
// round trip and forwards the response toward the player.
func (c *Controller) HandleSegmentResponse(msg Message) {
	c.recordSample(msg)
	c.relay.SendUp(msg)
}

// CurrentIndex returns the quality index chosen by the last decision.
func (c *Controller) CurrentIndex() int {
	return c.currentIndex
}

// QualityLevels returns a copy of the quality level identifiers from
// the most recently parsed manifest.
func (c *Controller) QualityLevels() []string {
	out := make([]string, len(c.levels))
	copy(out, c.levels)
	return out
}

// WindowSnapshot exposes the current throughput window, oldest first.
func (c *Controller) WindowSnapshot() []float64 {
	return c.window.Snapshot()
}

// recordSample derives a throughput sample from the response size and
// the elapsed round-trip time. Zero or negative elapsed time yields no
// sample.
func (c *Controller) recordSample(msg Message) {
	elapsed := c.now().Sub(c.requestStart).Seconds()
	if elapsed <= 0 {
		c.logger.Debug("Skipping throughput sample, non-positive elapsed time")
		return
	}

	throughput := float64(msg.BitLength()) / elapsed
	c.window.Record(throughput)

	if len(c.recent) >= c.window.Capacity() {
		c.recent = c.recent[1:]
	}
	c.recent = append(c.recent, throughput)

	c.logger.WithFields(logrus.Fields{
		"throughput_bps": throughput,
		"elapsed_s":      elapsed,
	}).Debug("Recorded throughput sample")
}
