package middleware

import (
	"bytes"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func TestRequestIDEchoesOrGenerates(t *testing.T) {
	app := fiber.New()
	app.Use(RequestID())
	app.Get("/id", func(c *fiber.Ctx) error {
		return c.SendString(RequestIDOf(c))
	})

	req := httptest.NewRequest(fiber.MethodGet, "/id", nil)
	req.Header.Set(requestIDHeader, "caller-id")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if got := resp.Header.Get(requestIDHeader); got != "caller-id" {
		t.Fatalf("expected caller id echoed, got %q", got)
	}

	resp, err = app.Test(httptest.NewRequest(fiber.MethodGet, "/id", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if got := resp.Header.Get(requestIDHeader); len(got) != 36 {
		t.Fatalf("expected generated uuid, got %q", got)
	}
}

func TestAuditSkipsConfiguredPaths(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	app := fiber.New()
	app.Use(RequestID(), Audit(logger, "/healthz"))
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	app.Get("/state", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	if _, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/healthz", nil)); err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected health check to be skipped, got %s", buf.String())
	}
	if _, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/state", nil)); err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	line := buf.String()
	if !strings.Contains(line, `"path":"/state"`) || !strings.Contains(line, `"request_id"`) {
		t.Fatalf("unexpected audit line %s", line)
	}
}
