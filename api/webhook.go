// Copyright 2025 The Situ8 Authors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/situ8/situ/ambient"
	"github.com/situ8/situ/observability"
)

func (s *Server) recordWebhook(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordWebhook(outcome)
	}
}

// ambientWebhook stores an Ambient.AI alert as an activity. When a secret is
// configured every request must carry a valid signature.
func (s *Server) ambientWebhook(ctx *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(ctx.Writer, ctx.Request.Body, maxWebhookBody))
	if err != nil {
		s.recordWebhook(observability.OutcomeMalformed)
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "unable to read body"})

		return
	}

	if err := ambient.VerifySignature(body, ctx.GetHeader(ambient.SignatureHeader), s.ambientSecret); err != nil {
		s.logger.Warn("rejected ambient webhook", zap.Error(err))
		s.recordWebhook(observability.OutcomeDenied)
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid signature"})

		return
	}

	payload, err := ambient.Decode(body)
	if err != nil {
		outcome, msg := observability.OutcomeMalformed, "Invalid JSON payload"

		var ve *ambient.ValidationError
		if errors.As(err, &ve) {
			outcome, msg = observability.OutcomeRejected, err.Error()
		}

		s.logger.Warn("invalid ambient payload", zap.Error(err))
		s.recordWebhook(outcome)
		ctx.JSON(http.StatusBadRequest, gin.H{"error": msg})

		return
	}

	a, err := ambient.ToActivity(payload)
	if err != nil {
		s.recordWebhook(observability.OutcomeRejected)
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	if err := s.repo.Save(ctx.Request.Context(), a); err != nil {
		s.logger.Error("storing ambient activity", zap.String("alert_id", payload.AlertID), zap.Error(err))
		s.recordWebhook(observability.OutcomeFailed)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store activity"})

		return
	}

	s.logger.Info("processed ambient webhook", zap.String("alert_id", payload.AlertID), zap.String("activity_id", a.ID))
	s.recordWebhook(observability.OutcomeStored)
	ctx.JSON(http.StatusOK, gin.H{
		"status":      "success",
		"activity_id": a.ID,
		"message":     "Webhook processed successfully",
	})
}
