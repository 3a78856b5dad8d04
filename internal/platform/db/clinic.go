package db

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

type contextKey string

const (
	ClinicIDKey contextKey = "clinic_id"
	DBConnKey   contextKey = "db_conn"
	DBTxKey     contextKey = "db_tx"
)

// ClinicHeader selects the clinic when the token does not carry one.
const ClinicHeader = "X-Clinic-ID"

// Each clinic lives in its own schema; the identifier ends up in SQL text so
// it is restricted to a safe alphabet and to what fits in a Postgres name.
var clinicIDPattern = regexp.MustCompile(`^[a-z0-9_]{1,48}$`)

// SchemaName returns the schema holding the clinic's tables.
func SchemaName(clinicID string) string {
	return "clinic_" + clinicID
}

// ValidClinicID reports whether id is usable as a clinic identifier.
func ValidClinicID(id string) bool {
	return clinicIDPattern.MatchString(id)
}

// ClinicMiddleware resolves the clinic for the request, acquires a
// connection whose search_path points at the clinic schema and stores it in
// the request context for the repositories. Requests for which skip returns
// true (health, metrics) get no connection. Without a token the clinic may
// only be picked by header or query when selectable returns true; other
// anonymous requests are pinned to defaultClinic.
func ClinicMiddleware(pool *pgxpool.Pool, defaultClinic string, skip, selectable func(echo.Context) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if skip != nil && skip(c) {
				return next(c)
			}

			clinicID := extractClinicID(c, defaultClinic, selectable != nil && selectable(c))
			if !ValidClinicID(clinicID) {
				return echo.NewHTTPError(http.StatusBadRequest, "invalid clinic identifier")
			}

			ctx := c.Request().Context()
			conn, err := pool.Acquire(ctx)
			if err != nil {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "database unavailable")
			}
			defer conn.Release()

			if err := setSearchPath(ctx, conn, clinicID); err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "clinic resolution failed").SetInternal(err)
			}

			ctx = context.WithValue(ctx, ClinicIDKey, clinicID)
			ctx = context.WithValue(ctx, DBConnKey, conn)
			c.SetRequest(c.Request().WithContext(ctx))
			c.Set("clinic_id", clinicID)

			return next(c)
		}
	}
}

func extractClinicID(c echo.Context, defaultClinic string, selectable bool) string {
	// set by the auth middleware from the token claims
	if id, ok := c.Get("jwt_clinic_id").(string); ok && id != "" {
		return strings.ToLower(id)
	}
	if !selectable {
		return defaultClinic
	}
	if id := c.Request().Header.Get(ClinicHeader); id != "" {
		return strings.ToLower(id)
	}
	if id := c.QueryParam("clinic_id"); id != "" {
		return strings.ToLower(id)
	}
	return defaultClinic
}

func setSearchPath(ctx context.Context, conn *pgxpool.Conn, clinicID string) error {
	_, err := conn.Exec(ctx, fmt.Sprintf("SET search_path TO %s, public", SchemaName(clinicID)))
	return err
}

// WithClinicConn runs fn with a clinic-scoped connection in its context. It is
// the non-HTTP counterpart of ClinicMiddleware, used by the CLI commands.
func WithClinicConn(ctx context.Context, pool *pgxpool.Pool, clinicID string, fn func(ctx context.Context) error) error {
	if !ValidClinicID(clinicID) {
		return fmt.Errorf("invalid clinic identifier: %q", clinicID)
	}
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if err := setSearchPath(ctx, conn, clinicID); err != nil {
		return fmt.Errorf("set search_path: %w", err)
	}
	ctx = context.WithValue(ctx, ClinicIDKey, clinicID)
	ctx = context.WithValue(ctx, DBConnKey, conn)
	return fn(ctx)
}

// ConnFromContext retrieves the clinic-scoped database connection from context.
func ConnFromContext(ctx context.Context) *pgxpool.Conn {
	conn, _ := ctx.Value(DBConnKey).(*pgxpool.Conn)
	return conn
}

// ClinicFromContext retrieves the clinic ID from context.
func ClinicFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ClinicIDKey).(string)
	return id
}

// CreateClinicSchema creates the schema for a clinic and migrates it. An
// empty migrationsDir skips the migrations.
func CreateClinicSchema(ctx context.Context, pool *pgxpool.Pool, clinicID string, migrationsDir string) error {
	if !ValidClinicID(clinicID) {
		return fmt.Errorf("invalid clinic identifier: %s", clinicID)
	}

	schema := SchemaName(clinicID)
	if _, err := pool.Exec(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schema)); err != nil {
		return fmt.Errorf("create schema %s: %w", schema, err)
	}

	if migrationsDir != "" {
		migrator := NewMigrator(pool, migrationsDir)
		if _, err := migrator.Up(ctx, schema); err != nil {
			return fmt.Errorf("run migrations for %s: %w", schema, err)
		}
	}

	return nil
}
