package api

import (
	"context"

	"github.com/SherClockHolmes/webpush-go"

	"ticket-queue-monitor/internal/board"
	"ticket-queue-monitor/internal/health"
	"ticket-queue-monitor/internal/store"
)

// HealthReporter exposes the latest health probe.
type HealthReporter interface {
	Report() health.Report
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	ctx     context.Context
	board   *board.Board
	health  HealthReporter
	store   store.Store
	webpush *webpush.Options
}

// NewHandler creates a new API handler. ctx bounds the auto-refresh loop
// started through the API. health, s and webpushOptions may be nil.
func NewHandler(ctx context.Context, b *board.Board, health HealthReporter, s store.Store, webpushOptions *webpush.Options) *Handler {
	return &Handler{
		ctx:     ctx,
		board:   b,
		health:  health,
		store:   s,
		webpush: webpushOptions,
	}
}
