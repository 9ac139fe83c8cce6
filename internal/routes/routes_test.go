package routes

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/xrp_wallet/internal/account"
	"github.com/congo-pay/xrp_wallet/internal/config"
	"github.com/congo-pay/xrp_wallet/internal/ledger"
	"github.com/congo-pay/xrp_wallet/internal/live"
	"github.com/congo-pay/xrp_wallet/internal/logging"
	"github.com/congo-pay/xrp_wallet/internal/notification"
	"github.com/congo-pay/xrp_wallet/internal/payments"
	"github.com/congo-pay/xrp_wallet/internal/storage"
	"github.com/congo-pay/xrp_wallet/internal/wallet"
	"github.com/congo-pay/xrp_wallet/internal/xrpl/xrpltest"
)

const genesis = "rHb9CJAWyB4rj91VRWn96DkukG4bwdtyTh"

func testDeps(t *testing.T, cache *redis.Client) (Deps, *xrpltest.Dialer) {
	t.Helper()
	logger := logging.Discard()
	session := xrpltest.NewSession()
	broker := notification.NewBroker()
	controller := live.NewController(session, ledger.NewInMemory(), broker, logger, live.Options{})
	t.Cleanup(func() { _ = controller.Close(context.Background()) })

	svc := wallet.NewService(account.NewStore(storage.NewMemory(), logger), controller, logger)
	dialer := xrpltest.NewDialer(nil)
	submitter := payments.NewSubmitter(dialer, controller, controller, payments.LocalSigner{}, logger, 0)

	return Deps{
		Cfg:       config.Config{AppEnv: "test", PaymentRateLimit: 1, IdempotencyTTL: time.Minute},
		Cache:     cache,
		Logger:    logger,
		Session:   session,
		Wallet:    wallet.NewHandler(svc),
		Payments:  payments.NewHandler(submitter),
		Selection: controller,
		Broker:    broker,
	}, dialer
}

func newTestApp(t *testing.T, d Deps) *fiber.App {
	t.Helper()
	app := fiber.New()
	if err := Setup(app, d); err != nil {
		t.Fatalf("setup: %v", err)
	}
	return app
}

func request(t *testing.T, app *fiber.App, method, path, body string, headers map[string]string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func TestSetupRequiresRedisOutsideDev(t *testing.T) {
	d, _ := testDeps(t, nil)
	d.Cfg.AppEnv = "production"
	if err := Setup(fiber.New(), d); err == nil {
		t.Fatal("expected setup to fail without redis in production")
	}
}

func TestHealthReportsDisabledBackends(t *testing.T) {
	d, _ := testDeps(t, nil)
	app := newTestApp(t, d)

	resp := request(t, app, http.MethodGet, healthPath, "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body struct {
		Status map[string]string `json:"status"`
	}
	raw, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status["postgres"] != "disabled" || body.Status["redis"] != "disabled" || body.Status["ledger"] != "disconnected" {
		t.Fatalf("unexpected health %v", body.Status)
	}
}

func TestWalletRoutesAreMounted(t *testing.T) {
	d, _ := testDeps(t, nil)
	app := newTestApp(t, d)

	resp := request(t, app, http.MethodPost, "/api/v1/accounts", `{"address":"`+genesis+`","seed":"s1"}`, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	resp = request(t, app, http.MethodGet, "/api/v1/state", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatal("expected request id header")
	}
}

func TestPaymentWithoutSelectionDoesNotDial(t *testing.T) {
	d, dialer := testDeps(t, nil)
	app := newTestApp(t, d)

	resp := request(t, app, http.MethodPost, "/api/v1/payments", `{"amount":"1","destination":"`+genesis+`"}`, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
	if len(dialer.Sessions()) != 0 {
		t.Fatalf("expected no session, got %d", len(dialer.Sessions()))
	}
}

func TestPaymentsGuardedWhenRedisPresent(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cache.Close() })
	d, _ := testDeps(t, cache)
	app := newTestApp(t, d)

	body := `{"amount":"1","destination":"` + genesis + `"}`
	if resp := request(t, app, http.MethodPost, "/api/v1/payments", body, nil); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 without idempotency key, got %d", resp.StatusCode)
	}
	if resp := request(t, app, http.MethodPost, "/api/v1/payments", body, map[string]string{"Idempotency-Key": "k2"}); resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429 past the limit, got %d", resp.StatusCode)
	}
}

func TestNotificationsRequireUpgrade(t *testing.T) {
	d, _ := testDeps(t, nil)
	app := newTestApp(t, d)

	resp := request(t, app, http.MethodGet, notificationsPath, "", nil)
	if resp.StatusCode != fiber.StatusUpgradeRequired {
		t.Fatalf("expected 426, got %d", resp.StatusCode)
	}
}
