package handlers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestCompositeHealthChecker_NoChecks(t *testing.T) {
	status := NewCompositeHealthChecker("v1").Check(context.Background())
	assert.True(t, status.Healthy)
	assert.Equal(t, "v1", status.Version)
	assert.Equal(t, "No health checks registered", status.Message)
}

func TestCompositeHealthChecker_Aggregates(t *testing.T) {
	c := NewCompositeHealthChecker("v1")
	c.AddCheck("store", NewPingCheck(pingFunc(func(context.Context) error { return nil })))
	c.AddCheck("redis", NewPingCheck(pingFunc(func(context.Context) error { return errors.New("refused") })))
	c.AddCheck("discord", func(context.Context) error { return errors.New("open") })

	status := c.Check(context.Background())
	assert.False(t, status.Healthy)
	assert.Equal(t, "Some checks failed: discord, redis", status.Message)
	assert.Len(t, status.Checks, 3)
	assert.Equal(t, "OK", status.Checks["store"].Message)
}

func TestCompositeHealthChecker_Timeout(t *testing.T) {
	c := NewCompositeHealthChecker("v1")
	c.SetTimeout(20 * time.Millisecond)
	c.AddCheck("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	status := c.Check(context.Background())
	assert.False(t, status.Healthy)
	assert.Equal(t, context.DeadlineExceeded.Error(), status.Checks["slow"].Message)
}

func TestBreakerCheck(t *testing.T) {
	state := gobreaker.StateClosed
	check := NewBreakerCheck(func() gobreaker.State { return state })

	assert.NoError(t, check(context.Background()))

	state = gobreaker.StateHalfOpen
	assert.NoError(t, check(context.Background()))

	state = gobreaker.StateOpen
	assert.ErrorIs(t, check(context.Background()), ErrBreakerOpen)
}
