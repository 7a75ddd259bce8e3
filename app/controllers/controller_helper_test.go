package controllers

import (
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/valyala/fasthttp"
)

func TestGetClientIP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{
			name:    "cloudflare header wins",
			headers: map[string]string{"CF-Connecting-IP": "203.0.113.7", "X-Forwarded-For": "198.51.100.1"},
			want:    "203.0.113.7",
		},
		{
			name:    "first forwarded entry is used",
			headers: map[string]string{"X-Forwarded-For": "198.51.100.1, 10.0.0.1"},
			want:    "198.51.100.1",
		},
		{
			name:    "no proxy headers falls back to remote addr",
			headers: nil,
			want:    "0.0.0.0",
		},
	}

	app := fiber.New()
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			ctx := app.AcquireCtx(&fasthttp.RequestCtx{})
			defer app.ReleaseCtx(ctx)
			for k, v := range tt.headers {
				ctx.Request().Header.Set(k, v)
			}

			assert.Equal(t, tt.want, GetClientIP(ctx))
		})
	}
}

func TestExtractUsername(t *testing.T) {
	app := fiber.New()
	ctx := app.AcquireCtx(&fasthttp.RequestCtx{})
	defer app.ReleaseCtx(ctx)

	assert.Equal(t, "", ExtractUsername(ctx))

	ctx.Locals(USER_NAME, "acme-imports")
	assert.Equal(t, "acme-imports", ExtractUsername(ctx))
}

func TestIsLoggedIn(t *testing.T) {
	app := fiber.New()
	ctx := app.AcquireCtx(&fasthttp.RequestCtx{})
	defer app.ReleaseCtx(ctx)

	assert.False(t, isLoggedIn(ctx))

	ctx.Locals(FROM_PROTECTED, true)
	assert.True(t, isLoggedIn(ctx))
}

func TestFormatTimePtr(t *testing.T) {
	assert.Nil(t, formatTimePtr(nil))

	ts := time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC)
	assert.Equal(t, "2026-03-15T09:30:00Z", formatTimePtr(&ts))
}
