package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/gin-gonic/gin"
	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"github.com/loykin/dolphin/internal/api"
	"github.com/loykin/dolphin/internal/common"
	"github.com/loykin/dolphin/internal/database"
	"github.com/loykin/dolphin/internal/migration"
	"github.com/loykin/dolphin/pkg/status"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type failingLister struct{}

func (failingLister) Applied(context.Context) ([]migration.Migration, error) {
	return nil, errors.New("connection refused")
}
func (failingLister) Pending(context.Context) ([]migration.Migration, error) { return nil, nil }

func newEngine(t *testing.T) *migration.GooseEngine {
	t.Helper()
	fsys := fstest.MapFS{
		"00001_users.sql":  {Data: []byte("-- +goose Up\nCREATE TABLE users (id INTEGER PRIMARY KEY);\n\n-- +goose Down\nDROP TABLE users;\n")},
		"00002_orders.sql": {Data: []byte("-- +goose Up\nCREATE TABLE orders (id INTEGER PRIMARY KEY);\n\n-- +goose Down\nDROP TABLE orders;\n")},
	}
	db, dialect, err := database.Open(database.Descriptor{Driver: "sqlite", Database: filepath.Join(t.TempDir(), "api.db")})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	eng, err := migration.NewGooseEngine(db, dialect.Goose, fsys, common.Discard())
	if err != nil {
		_ = db.Close()
		t.Fatalf("engine: %v", err)
	}
	t.Cleanup(func() { _ = eng.Close() })
	return eng
}

func newServer(t *testing.T, l status.Lister) *httptest.Server {
	t.Helper()
	s, err := api.New(api.DefaultConfig(), common.Discard(), api.WithController(NewMigrationsController(l)))
	if err != nil {
		t.Fatalf("api.New: %v", err)
	}
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func TestMigrationsController(t *testing.T) {
	eng := newEngine(t)
	if err := eng.ApplyTo(context.Background(), migration.Migration{Version: 1}); err != nil {
		t.Fatalf("ApplyTo: %v", err)
	}
	srv := newServer(t, eng)
	client := resty.New().SetBaseURL(srv.URL)

	resp, err := client.R().Get("/api/migrations")
	if err != nil {
		t.Fatalf("GET /api/migrations: %v", err)
	}
	if resp.StatusCode() != http.StatusOK {
		t.Fatalf("status = %d body=%s", resp.StatusCode(), resp.String())
	}
	body := resp.Body()
	if gjson.GetBytes(body, "version").Int() != 1 {
		t.Fatalf("version: %s", body)
	}
	if gjson.GetBytes(body, "applied.0.name").String() != "00001_users" || !gjson.GetBytes(body, "applied.0.applied").Bool() {
		t.Fatalf("applied: %s", body)
	}
	if gjson.GetBytes(body, "pending.#").Int() != 1 || gjson.GetBytes(body, "pending.0.version").Int() != 2 {
		t.Fatalf("pending: %s", body)
	}

	resp, err = client.R().Get("/api/migrations/2")
	if err != nil {
		t.Fatalf("GET /api/migrations/2: %v", err)
	}
	if resp.StatusCode() != http.StatusOK || gjson.GetBytes(resp.Body(), "name").String() != "00002_orders" {
		t.Fatalf("GET /api/migrations/2 = %d %s", resp.StatusCode(), resp.String())
	}

	resp, err = client.R().SetHeader("X-Request-ID", "r-404").Get("/api/migrations/00009_missing")
	if err != nil {
		t.Fatalf("GET missing: %v", err)
	}
	if resp.StatusCode() != http.StatusNotFound {
		t.Fatalf("status = %d", resp.StatusCode())
	}
	if gjson.GetBytes(resp.Body(), "error").String() != "Migration '00009_missing' not found" ||
		gjson.GetBytes(resp.Body(), "requestId").String() != "r-404" {
		t.Fatalf("body = %s", resp.String())
	}
}

func TestMigrationsController_EngineFailure(t *testing.T) {
	srv := newServer(t, failingLister{})
	resp, err := resty.New().R().Get(srv.URL + "/api/migrations")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	if resp.StatusCode() != http.StatusInternalServerError {
		t.Fatalf("status = %d", resp.StatusCode())
	}
	if gjson.GetBytes(resp.Body(), "error").String() != "An internal server error occurred." {
		t.Fatalf("body = %s", resp.String())
	}
}
