// Copyright 2025 The Situ8 Authors
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/situ8/situ/activity"
)

// Writer is the subset of *kafka.Writer used by Publish.
type Writer interface {
	WriteMessages(context.Context, ...kafka.Message) error
}

// NewWriter builds a writer that balances messages by key, keeping every update of
// one activity on one partition.
func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
}

// Encode turns an activity into a message keyed by its ID.
func Encode(a *activity.Activity) (kafka.Message, error) {
	value, err := json.Marshal(a)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encoding activity %s: %w", a.ID, err)
	}

	msg := kafka.Message{Key: []byte(a.ID), Value: value}
	if a.Source != "" {
		msg.Headers = []kafka.Header{{Key: SourceHeader, Value: []byte(a.Source)}}
	}

	return msg, nil
}

// Publish writes activities to w in one batch.
func Publish(ctx context.Context, w Writer, activities []*activity.Activity) error {
	msgs := make([]kafka.Message, 0, len(activities))

	for _, a := range activities {
		msg, err := Encode(a)
		if err != nil {
			return err
		}

		msgs = append(msgs, msg)
	}

	if err := w.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publishing %d activities: %w", len(msgs), err)
	}

	return nil
}
