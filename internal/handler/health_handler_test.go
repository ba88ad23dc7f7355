package handler

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

func TestLivezHandler(t *testing.T) {
	t.Parallel()

	app := fiber.New()
	app.Get("/livez", LivezHandler())

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/livez", nil))
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, fiber.StatusOK)
	}
}

func TestReadyzHandler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		pingErr    error
		redisUp    bool
		brokerUp   bool
		wantStatus int
		wantBody   string
	}{
		{
			name:       "all dependencies up",
			redisUp:    true,
			brokerUp:   true,
			wantStatus: fiber.StatusOK,
			wantBody:   "ready",
		},
		{
			name:       "postgres down",
			pingErr:    errors.New("connection refused"),
			redisUp:    true,
			brokerUp:   true,
			wantStatus: fiber.StatusServiceUnavailable,
			wantBody:   "not_ready",
		},
		{
			name:       "redis down",
			redisUp:    false,
			brokerUp:   true,
			wantStatus: fiber.StatusServiceUnavailable,
			wantBody:   "not_ready",
		},
		{
			name:       "broker down",
			redisUp:    true,
			brokerUp:   false,
			wantStatus: fiber.StatusServiceUnavailable,
			wantBody:   "not_ready",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			sqlDB := sql.OpenDB(stubConnector{pingErr: tt.pingErr})
			defer sqlDB.Close()

			mr := miniredis.RunT(t)
			rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			defer rdb.Close()
			if !tt.redisUp {
				mr.Close()
			}

			app := fiber.New()
			RegisterHealthRoutes(app, sqlDB, rdb, stubBroker{connected: tt.brokerUp})

			// The handler's own readiness budget is 2s (readinessTimeout);
			// give the test harness a longer deadline so it cannot abort first.
			resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/readyz", nil), 3000)
			if err != nil {
				t.Fatalf("app.Test() error = %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}

			var body struct {
				Status string `json:"status"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body.Status != tt.wantBody {
				t.Errorf("body status = %q, want %q", body.Status, tt.wantBody)
			}
		})
	}
}

type stubBroker struct {
	connected bool
}

func (s stubBroker) Connected() bool { return s.connected }

// stubConnector backs a *sql.DB whose pings succeed or fail on demand.
type stubConnector struct {
	pingErr error
}

func (s stubConnector) Connect(context.Context) (driver.Conn, error) {
	return stubConn{pingErr: s.pingErr}, nil
}

func (s stubConnector) Driver() driver.Driver { return stubDriver{} }

type stubDriver struct{}

func (stubDriver) Open(string) (driver.Conn, error) {
	return stubConn{}, nil
}

type stubConn struct {
	pingErr error
}

func (c stubConn) Ping(context.Context) error { return c.pingErr }

func (stubConn) Prepare(string) (driver.Stmt, error) { return nil, driver.ErrSkip }

func (stubConn) Close() error { return nil }

func (stubConn) Begin() (driver.Tx, error) { return nil, driver.ErrSkip }
