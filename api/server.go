// Copyright 2025 The Situ8 Authors
// SPDX-License-Identifier: Apache-2.0

// Package api exposes clustering, activity storage and the Ambient webhook over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/situ8/situ/activity"
	"github.com/situ8/situ/clustering"
	"github.com/situ8/situ/observability"
)

const (
	defaultBatchLimit = 500
	maxWebhookBody    = 1 << 20
)

// Server wires the HTTP handlers to the engine and the store.
type Server struct {
	engine        *clustering.Engine
	repo          activity.Repository
	metrics       *observability.Metrics
	logger        *zap.Logger
	ambientSecret string
	batchLimit    int
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request and error logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics records request metrics and serves them on /metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithAmbientSecret enables webhook signature verification.
func WithAmbientSecret(secret string) Option {
	return func(s *Server) {
		s.ambientSecret = secret
	}
}

// WithBatchLimit caps the activities clustered per request.
func WithBatchLimit(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.batchLimit = n
		}
	}
}

// NewServer returns a server over engine and repo.
func NewServer(engine *clustering.Engine, repo activity.Repository, opts ...Option) *Server {
	s := &Server{
		engine:     engine,
		repo:       repo,
		logger:     zap.NewNop(),
		batchLimit: defaultBatchLimit,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(s.observe(), gin.Recovery())

	r.GET("/healthz", s.health)
	r.POST("/api/clusters", s.clusterActivities)
	r.GET("/api/clusters", s.clusterStored)
	r.GET("/api/activities", s.listActivities)
	r.POST("/api/activities", s.createActivity)
	r.POST("/api/webhooks/ambient", s.ambientWebhook)

	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	return r
}

// Run serves on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)

	go func() {
		s.logger.Info("listening", zap.String("address", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}

		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	}
}

// observe logs each request and feeds the HTTP metrics.
func (s *Server) observe() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()

		ctx.Next()

		elapsed := time.Since(start)

		route := ctx.FullPath()
		if route == "" {
			route = "unmatched"
		}

		if s.metrics != nil {
			s.metrics.RecordHTTP(ctx.Request.Method, route, ctx.Writer.Status(), elapsed)
		}

		s.logger.Debug("request",
			zap.String("method", ctx.Request.Method),
			zap.String("path", ctx.Request.URL.Path),
			zap.Int("status", ctx.Writer.Status()),
			zap.Duration("elapsed", elapsed))
	}
}

func (s *Server) health(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}
