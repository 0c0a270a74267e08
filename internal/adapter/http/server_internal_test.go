package http

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/facing-direction-service/internal/facing"
	"github.com/stretchr/testify/assert"
)

type readyStub struct{}

func (readyStub) CheckReadiness(context.Context) error { return nil }

type searcherStub struct{}

func (searcherStub) Infer(context.Context, string) (facing.Result, error) { return facing.Result{}, nil }

func TestNewServer_WriteTimeoutCoversSearchBudget(t *testing.T) {
	srv := NewServer(":0", 48*time.Second, readyStub{}, searcherStub{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Equal(t, 48*time.Second+writeMargin, srv.httpServer.WriteTimeout)
	assert.Greater(t, srv.httpServer.WriteTimeout, 48*time.Second)
}
