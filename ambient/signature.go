// Copyright 2025 The Situ8 Authors
// SPDX-License-Identifier: Apache-2.0

package ambient

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// SignatureHeader carries the body HMAC.
const SignatureHeader = "X-Ambient-Signature"

const signaturePrefix = "sha256="

// ErrInvalidSignature is returned when the signature header does not match the body.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// Sign returns the header value for body under secret.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)

	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a "sha256=<hex>" header against body. An empty secret
// disables verification.
func VerifySignature(body []byte, header, secret string) error {
	if secret == "" {
		return nil
	}

	if !strings.HasPrefix(header, signaturePrefix) {
		return ErrInvalidSignature
	}

	if !hmac.Equal([]byte(Sign(body, secret)), []byte(strings.ToLower(header))) {
		return ErrInvalidSignature
	}

	return nil
}
