package nats

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

type Config struct {
	URL           string
	Name          string
	ReconnectWait time.Duration
	Timeout       time.Duration
}

// Connect dials NATS with unlimited reconnects.
func Connect(cfg Config) (*nats.Conn, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("nats url is required")
	}
	if cfg.ReconnectWait <= 0 {
		cfg.ReconnectWait = 500 * time.Millisecond
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}

	nc, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.ReconnectJitter(100*time.Millisecond, 500*time.Millisecond),
		nats.Timeout(cfg.Timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return nc, nil
}

type StreamConfig struct {
	Name     string
	Subjects []string
	MaxAge   time.Duration
	// Duplicates is the window in which a repeated Nats-Msg-Id is dropped.
	Duplicates time.Duration
}

// JetStream returns a JetStream context and creates the stream on first use.
// An existing stream is left as it is.
func JetStream(nc *nats.Conn, cfg StreamConfig) (nats.JetStreamContext, error) {
	if nc == nil {
		return nil, errors.New("nats connection is nil")
	}
	if strings.TrimSpace(cfg.Name) == "" || len(cfg.Subjects) == 0 {
		return nil, errors.New("jetstream stream name and subjects are required")
	}
	js, err := nc.JetStream()
	if err != nil {
		return nil, fmt.Errorf("init jetstream: %w", err)
	}

	_, err = js.StreamInfo(cfg.Name)
	switch {
	case err == nil:
		return js, nil
	case !errors.Is(err, nats.ErrStreamNotFound):
		return nil, fmt.Errorf("stream info %s: %w", cfg.Name, err)
	}

	if cfg.Duplicates <= 0 {
		cfg.Duplicates = 2 * time.Minute
	}
	_, err = js.AddStream(&nats.StreamConfig{
		Name:       cfg.Name,
		Subjects:   cfg.Subjects,
		Storage:    nats.FileStorage,
		MaxAge:     cfg.MaxAge,
		Duplicates: cfg.Duplicates,
	})
	if err != nil && !errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
		return nil, fmt.Errorf("add stream %s: %w", cfg.Name, err)
	}
	return js, nil
}
