// Feedgen - Personalized Feed Ranking for Social-Media Field Experiments
// Copyright 2026 Feedgen Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bskylab/feedgen

// Package events publishes session-completed notifications so downstream
// consumers (survey schedulers, analytics refreshers) can react to fresh
// feeds without polling the feed store.
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	json "github.com/goccy/go-json"
	natsgo "github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/bskylab/feedgen/internal/config"
	"github.com/bskylab/feedgen/internal/feed"
)

// SessionPublisher publishes session-completed events over a Watermill
// publisher. The transport is NATS in production and gochannel in tests.
type SessionPublisher struct {
	publisher message.Publisher
	topic     string
	logger    zerolog.Logger
}

// NewSessionPublisher wraps an existing Watermill publisher.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewSessionPublisher(publisher message.Publisher, topic string, logger zerolog.Logger) *SessionPublisher {
	return &SessionPublisher{
		publisher: publisher,
		topic:     topic,
		logger:    logger.With().Str("component", "events").Logger(),
	}
}

// NewNATSPublisher connects to NATS and returns a session publisher on the
// configured topic.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewNATSPublisher(cfg *config.Config, logger zerolog.Logger) (*SessionPublisher, error) {
	wmLogger := newWatermillLogger(logger)

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2 * time.Second),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				wmLogger.Error("nats disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			wmLogger.Info("nats reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         cfg.Events.NATSURL,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled: true,
		},
	}, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("create nats publisher: %w", err)
	}

	return NewSessionPublisher(pub, cfg.Events.Topic, logger), nil
}

// PublishSessionCompleted encodes and publishes one event.
func (p *SessionPublisher) PublishSessionCompleted(_ context.Context, event feed.SessionCompletedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal session event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("publish session event: %w", err)
	}

	p.logger.Debug().
		Str("topic", p.topic).
		Str("run_id", event.RunID).
		Msg("published session completed event")
	return nil
}

// Close releases the underlying publisher.
func (p *SessionPublisher) Close() error {
	return p.publisher.Close()
}
