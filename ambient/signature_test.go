// Copyright 2025 The Situ8 Authors
// SPDX-License-Identifier: Apache-2.0

package ambient

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerifySignature(t *testing.T) {
	body := []byte(validBody)
	secret := "s3cr3t"
	good := Sign(body, secret)

	assert.True(t, strings.HasPrefix(good, "sha256="))
	assert.Len(t, good, len("sha256=")+64)

	tests := []struct {
		name    string
		body    []byte
		header  string
		secret  string
		wantErr bool
	}{
		{name: "matching signature", body: body, header: good, secret: secret},
		{name: "upper-case hex", body: body, header: "sha256=" + strings.ToUpper(strings.TrimPrefix(good, "sha256=")), secret: secret},
		{name: "no secret configured", body: body, header: "", secret: ""},
		{name: "missing header", body: body, header: "", secret: secret, wantErr: true},
		{name: "missing prefix", body: body, header: strings.TrimPrefix(good, "sha256="), secret: secret, wantErr: true},
		{name: "tampered body", body: append([]byte(validBody), ' '), header: good, secret: secret, wantErr: true},
		{name: "wrong secret", body: body, header: good, secret: "other", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := VerifySignature(tt.body, tt.header, tt.secret)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSignature)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
