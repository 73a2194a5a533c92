// Package config provides configuration management for the ABR demo client.
package config

import (
	"errors"
	"flag"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrInvalidPort is returned when port number is invalid.
	ErrInvalidPort = errors.New("invalid port number")
	// ErrInvalidOriginURL is returned when the origin URL cannot be parsed.
	ErrInvalidOriginURL = errors.New("invalid origin URL")
	// ErrWindowSizePositive is returned when the throughput window size is not positive.
	ErrWindowSizePositive = errors.New("window size must be positive")
	// ErrSegmentCountPositive is returned when the segment count is not positive.
	ErrSegmentCountPositive = errors.New("segment count must be positive")
	// ErrSegmentDurationPositive is returned when the segment duration is not positive.
	ErrSegmentDurationPositive = errors.New("segment duration must be positive")
	// ErrLadderRequired is returned when no bitrate ladder is provided.
	ErrLadderRequired = errors.New("bitrate ladder is required")
	// ErrInvalidLadder is returned when the bitrate ladder cannot be parsed.
	ErrInvalidLadder = errors.New("invalid bitrate ladder")
	// ErrFetchRetriesNegative is returned when the fetch retry count is negative.
	ErrFetchRetriesNegative = errors.New("fetch retries must not be negative")
	// ErrInvalidLogLevel is returned when log level is invalid.
	ErrInvalidLogLevel = errors.New("invalid log level")
)

// Config holds the application configuration.
type Config struct {
	OriginURL       string
	Port            int
	WindowSize      int
	SegmentCount    int
	SegmentDuration time.Duration
	Ladder          string
	LinkRateKbps    int
	FetchRetries    int
	LogLevel        string
}

// New creates a new configuration instance by parsing command-line flags.
func New() (*Config, error) {
	cfg := &Config{}

	flag.StringVar(&cfg.OriginURL, "origin", "", "Base URL of a DASH origin; empty runs the embedded test origin")
	flag.IntVar(&cfg.Port, "port", 8080, "Port for the embedded test origin")
	flag.IntVar(&cfg.WindowSize, "window", 5, "Number of throughput samples kept for adaptation")
	flag.IntVar(&cfg.SegmentCount, "segments", 20, "Number of media segments to fetch")
	flag.DurationVar(&cfg.SegmentDuration, "segment-duration", time.Second, "Media duration per segment")
	flag.StringVar(&cfg.Ladder, "ladder", "500,1500,4000", "Comma-separated bitrate ladder in Kbps, ascending")
	flag.IntVar(&cfg.LinkRateKbps, "link-rate", 0, "Simulated link rate in Kbps for the embedded origin (0 = unpaced)")
	flag.IntVar(&cfg.FetchRetries, "fetch-retries", 3, "Retry attempts per segment fetch")
	flag.StringVar(&cfg.LogLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	flag.Parse()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.OriginURL != "" {
		if _, err := url.Parse(c.OriginURL); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidOriginURL, err)
		}
	} else if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, c.Port)
	}

	if c.WindowSize < 1 {
		return ErrWindowSizePositive
	}

	if c.SegmentCount < 1 {
		return ErrSegmentCountPositive
	}

	if c.SegmentDuration <= 0 {
		return ErrSegmentDurationPositive
	}

	if _, err := c.Bitrates(); err != nil {
		return err
	}

	if c.FetchRetries < 0 {
		return ErrFetchRetriesNegative
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("%w: %s (must be debug, info, warn, or error)", ErrInvalidLogLevel, c.LogLevel)
	}

	return nil
}

// Bitrates parses the configured ladder into Kbps values.
func (c *Config) Bitrates() ([]int, error) {
	if strings.TrimSpace(c.Ladder) == "" {
		return nil, ErrLadderRequired
	}

	parts := strings.Split(c.Ladder, ",")
	bitrates := make([]int, 0, len(parts))
	for _, part := range parts {
		rate, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || rate <= 0 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidLadder, part)
		}
		bitrates = append(bitrates, rate)
	}

	return bitrates, nil
}
