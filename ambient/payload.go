// Copyright 2025 The Situ8 Authors
// SPDX-License-Identifier: Apache-2.0

// Package ambient receives Ambient.AI video analytics alerts and turns them into
// activities.
package ambient

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Payload is the webhook body sent by Ambient.AI.
type Payload struct {
	AlertID    string   `json:"alert_id" validate:"required,max=200"`
	Type       string   `json:"type" validate:"required,max=100"`
	Location   string   `json:"location" validate:"required,max=500"`
	Timestamp  string   `json:"timestamp" validate:"required,rfc3339"`
	Severity   string   `json:"severity" validate:"required,oneof=low medium high critical"`
	Confidence *float64 `json:"confidence,omitempty" validate:"omitempty,gte=0,lte=1"`
	PreviewURL string   `json:"preview_url,omitempty" validate:"omitempty,url"`
	Metadata   Metadata `json:"metadata"`
}

// Metadata carries the camera context of an alert.
type Metadata struct {
	CameraID string  `json:"camera_id,omitempty"`
	Zone     string  `json:"zone,omitempty"`
	Building string  `json:"building,omitempty"`
	Duration float64 `json:"duration,omitempty" validate:"gte=0"`
}

// ValidationError lists every problem found in a payload.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid ambient payload: " + strings.Join(e.Problems, "; ")
}

// IsValidationError reports whether err is, or wraps, a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError

	return errors.As(err, &ve)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}

		return name
	})

	if err := v.RegisterValidation("rfc3339", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(time.RFC3339, fl.Field().String())

		return err == nil
	}); err != nil {
		panic(err)
	}

	return v
}

// Validate checks the payload against the webhook contract.
func Validate(p *Payload) error {
	err := validate.Struct(p)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return err
	}

	ve := &ValidationError{}
	for _, fe := range fieldErrors {
		ve.Problems = append(ve.Problems, describeFieldError(fe))
	}

	return ve
}

func describeFieldError(fe validator.FieldError) string {
	field := fe.Field()
	if ns := fe.Namespace(); strings.Count(ns, ".") > 1 {
		_, field, _ = strings.Cut(ns, ".")
	}

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("missing required field: %s", field)
	case "oneof":
		return fmt.Sprintf("invalid %s %q, expected one of: %s", field, fe.Value(), fe.Param())
	case "rfc3339":
		return fmt.Sprintf("invalid %s format, use ISO 8601", field)
	case "gte", "lte":
		if field == "confidence" {
			return "confidence must be between 0.0 and 1.0"
		}

		return fmt.Sprintf("%s must not be negative", field)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// Decode parses and validates a webhook body.
func Decode(body []byte) (*Payload, error) {
	var p Payload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("decoding ambient payload: %w", err)
	}

	if err := Validate(&p); err != nil {
		return nil, err
	}

	return &p, nil
}
