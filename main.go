// Package main implements the ABR demo client.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/savid/dash-abr/config"
	"github.com/savid/dash-abr/internal/testorigin"
	"github.com/savid/dash-abr/pkg/abr"
	"github.com/savid/dash-abr/pkg/client"
	"github.com/savid/dash-abr/pkg/pipeline"
)

func main() {
	// Configure logrus
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	cfg, err := config.New()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	// Set log level based on config
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to parse log level")
	}
	logrus.SetLevel(level)

	logger := logrus.StandardLogger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var originServer *http.Server
	if cfg.OriginURL == "" {
		originServer = startEmbeddedOrigin(cfg, logger)
		cfg.OriginURL = fmt.Sprintf("http://localhost:%d", cfg.Port)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutting down...")
		cancel()
	}()

	observer := func(d abr.Decision) {
		logger.WithFields(logrus.Fields{
			"mean":        d.Mean,
			"variance":    d.Variance,
			"probability": d.Probability,
			"tau":         d.Tau,
			"theta":       d.Theta,
			"index":       d.Index,
		}).Info("Quality decision")
	}

	logger.WithFields(logrus.Fields{
		"origin":   cfg.OriginURL,
		"segments": cfg.SegmentCount,
		"window":   cfg.WindowSize,
	}).Info("Starting streaming session")

	session := client.NewSession(cfg, logger, pipeline.WithObserver(observer))
	summary, err := session.Run(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info("Session cancelled")
		} else {
			logger.WithError(err).Fatal("Session failed")
		}
	} else {
		logger.WithFields(logrus.Fields{
			"segments":  summary.Segments,
			"bytes":     summary.Bytes,
			"qualities": summary.Qualities,
		}).Info("Session completed")
	}

	if originServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := originServer.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("Failed to gracefully shutdown origin")
		}
	}
}

func startEmbeddedOrigin(cfg *config.Config, logger *logrus.Logger) *http.Server {
	bitrates, err := cfg.Bitrates()
	if err != nil {
		logger.WithError(err).Fatal("Failed to parse bitrate ladder")
	}

	origin := testorigin.NewServer(bitrates, cfg.SegmentDuration, cfg.LinkRateKbps, logger)
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      origin.Handler(),
		ReadTimeout:  120 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.WithField("port", cfg.Port).Info("Starting embedded test origin")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Failed to start embedded origin")
		}
	}()

	return server
}
