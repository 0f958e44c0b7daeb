// Copyright 2025 The Situ8 Authors
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"context"

	"github.com/segmentio/kafka-go"

	"github.com/situ8/situ/activity"
)

// Saver is the subset of activity.Repository used by StoreHandler.
type Saver interface {
	Save(ctx context.Context, a *activity.Activity) error
}

// StoreHandler validates activities and upserts them into the store, so redelivered
// messages are harmless.
type StoreHandler struct {
	store Saver
}

// NewStoreHandler returns a handler writing into store.
func NewStoreHandler(store Saver) *StoreHandler {
	return &StoreHandler{store: store}
}

// Handle implements Handler.
func (h *StoreHandler) Handle(ctx context.Context, a *activity.Activity) error {
	if err := activity.Validate(a); err != nil {
		return err
	}

	return h.store.Save(ctx, a)
}

// NewReader builds a consumer-group reader over brokers.
func NewReader(brokers []string, topic, group string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  group,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
}
