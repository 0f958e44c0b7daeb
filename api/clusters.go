// Copyright 2025 The Situ8 Authors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/situ8/situ/activity"
	"github.com/situ8/situ/clustering"
)

// ClusterResponse is a clustering result plus its render list.
type ClusterResponse struct {
	*clustering.Result
	Entries []clustering.Entry `json:"entries"`
}

func (s *Server) clusterActivities(ctx *gin.Context) {
	var req clustering.Request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})

		return
	}

	s.execute(ctx, req)
}

func (s *Server) clusterStored(ctx *gin.Context) {
	filter, err := parseFilter(ctx, s.batchLimit)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	overrides, err := parseOverrides(ctx)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	activities, err := s.repo.List(ctx.Request.Context(), filter)
	if err != nil {
		s.logger.Error("listing activities", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list activities"})

		return
	}

	s.execute(ctx, clustering.Request{Activities: activities, Overrides: overrides})
}

func (s *Server) execute(ctx *gin.Context, req clustering.Request) {
	if len(req.Activities) > s.batchLimit {
		ctx.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error": fmt.Sprintf("at most %d activities can be clustered per request", s.batchLimit),
		})

		return
	}

	res, err := s.engine.Execute(ctx.Request.Context(), req)
	if err != nil {
		var ce *clustering.Error
		if errors.As(err, &ce) && ce.Op == "validate" {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

			return
		}

		s.logger.Error("clustering", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusOK, ClusterResponse{Result: res, Entries: res.Entries()})
}

func (s *Server) listActivities(ctx *gin.Context) {
	filter, err := parseFilter(ctx, s.batchLimit)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	activities, err := s.repo.List(ctx.Request.Context(), filter)
	if err != nil {
		s.logger.Error("listing activities", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list activities"})

		return
	}

	if activities == nil {
		activities = []*activity.Activity{}
	}

	ctx.JSON(http.StatusOK, activities)
}

func (s *Server) createActivity(ctx *gin.Context) {
	var a activity.Activity
	if err := ctx.ShouldBindJSON(&a); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})

		return
	}

	if err := s.repo.Save(ctx.Request.Context(), &a); err != nil {
		if activity.IsInvalid(err) {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

			return
		}

		s.logger.Error("saving activity", zap.String("activity_id", a.ID), zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store activity"})

		return
	}

	ctx.JSON(http.StatusCreated, &a)
}
