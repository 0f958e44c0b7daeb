// Copyright 2025 The Situ8 Authors
// SPDX-License-Identifier: Apache-2.0

// Package ingest consumes activity events from Kafka.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/situ8/situ/activity"
	"github.com/situ8/situ/observability"
)

// SourceHeader optionally names the producer of a message; it fills Activity.Source
// when the payload leaves it empty.
const SourceHeader = "source"

// Reader is the subset of *kafka.Reader used by the processor.
type Reader interface {
	FetchMessage(context.Context) (kafka.Message, error)
	CommitMessages(context.Context, ...kafka.Message) error
	Close() error
}

// Handler receives decoded activities.
type Handler interface {
	Handle(context.Context, *activity.Activity) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(context.Context, *activity.Activity) error

func (f HandlerFunc) Handle(ctx context.Context, a *activity.Activity) error {
	return f(ctx, a)
}

// Recorder counts processed messages by outcome.
type Recorder interface {
	RecordIngest(outcome string)
}

type nopRecorder struct{}

func (nopRecorder) RecordIngest(string) {}

// Option configures a Processor.
type Option func(*Processor)

// WithLogger sets the processor logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Processor) {
		p.logger = logger
	}
}

// WithRecorder reports message outcomes to r.
func WithRecorder(r Recorder) Option {
	return func(p *Processor) {
		p.recorder = r
	}
}

// WithRetryBackoff sets the first and the longest pause between handler retries.
func WithRetryBackoff(initial, longest time.Duration) Option {
	return func(p *Processor) {
		p.backoff = initial
		p.maxBackoff = max(initial, longest)
	}
}

// Processor pulls activity messages, decodes them and hands them over. Malformed
// and invalid messages are committed so they cannot block the partition. When the
// handler fails, the same message is retried with exponential backoff and nothing
// after it is fetched or committed until it goes through.
type Processor struct {
	reader     Reader
	handler    Handler
	logger     *zap.Logger
	recorder   Recorder
	backoff    time.Duration
	maxBackoff time.Duration
}

// NewProcessor returns a processor reading from reader.
func NewProcessor(reader Reader, handler Handler, opts ...Option) *Processor {
	p := &Processor{
		reader:     reader,
		handler:    handler,
		logger:     zap.NewNop(),
		recorder:   nopRecorder{},
		backoff:    time.Second,
		maxBackoff: 30 * time.Second,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Run blocks until ctx is done or the reader fails permanently.
func (p *Processor) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		msg, err := p.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}

			if errors.Is(err, kafka.ErrGroupClosed) {
				return fmt.Errorf("fetching message: %w", err)
			}

			p.logger.Warn("fetch error", zap.Error(err))

			continue
		}

		log := p.logger.With(
			zap.String("topic", msg.Topic),
			zap.Int("partition", msg.Partition),
			zap.Int64("offset", msg.Offset))

		a, err := Decode(msg)
		if err != nil {
			log.Warn("dropping malformed message", zap.Error(err))
			p.recorder.RecordIngest(observability.OutcomeMalformed)
			p.commit(ctx, log, msg)

			continue
		}

		outcome, err := p.deliver(ctx, log, a)
		if err != nil {
			return err
		}

		if p.commit(ctx, log, msg) {
			p.recorder.RecordIngest(outcome)
		}
	}
}

// deliver hands a to the handler until it is stored or rejected as invalid. It
// only gives up when ctx is done, leaving the message uncommitted.
func (p *Processor) deliver(ctx context.Context, log *zap.Logger, a *activity.Activity) (string, error) {
	backoff := p.backoff

	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		err := p.handler.Handle(ctx, a)
		if err == nil {
			return observability.OutcomeStored, nil
		}

		if activity.IsInvalid(err) {
			log.Warn("dropping invalid activity", zap.String("activity_id", a.ID), zap.Error(err))

			return observability.OutcomeRejected, nil
		}

		log.Error("handler error, retrying",
			zap.String("activity_id", a.ID),
			zap.Duration("backoff", backoff),
			zap.Error(err))
		p.recorder.RecordIngest(observability.OutcomeFailed)

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()

			return "", ctx.Err()
		case <-timer.C:
		}

		backoff = min(backoff*2, p.maxBackoff)
	}
}

func (p *Processor) commit(ctx context.Context, log *zap.Logger, msg kafka.Message) bool {
	if err := p.reader.CommitMessages(ctx, msg); err != nil {
		log.Error("commit error", zap.Error(err))

		return false
	}

	return true
}

// Decode parses a message value as a JSON activity. The message key is used as the
// ID when the payload has none.
func Decode(msg kafka.Message) (*activity.Activity, error) {
	if len(msg.Value) == 0 {
		return nil, errors.New("empty message value")
	}

	var a activity.Activity
	if err := json.Unmarshal(msg.Value, &a); err != nil {
		return nil, fmt.Errorf("decoding activity: %w", err)
	}

	if a.ID == "" {
		a.ID = strings.TrimSpace(string(msg.Key))
	}

	if a.Source == "" {
		if v, ok := headerValue(msg, SourceHeader); ok {
			a.Source = string(v)
		}
	}

	return &a, nil
}

func headerValue(msg kafka.Message, key string) ([]byte, bool) {
	for _, h := range msg.Headers {
		if h.Key == key {
			return h.Value, true
		}
	}

	return nil, false
}
