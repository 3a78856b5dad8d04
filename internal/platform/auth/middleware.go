package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type contextKey string

const principalKey contextKey = "principal"

const (
	RoleAdmin  = "admin"
	RoleDoctor = "doctor"
	RoleStaff  = "staff"
)

// Claims are the JWT claims issued at login.
type Claims struct {
	jwt.RegisteredClaims
	ClinicID string `json:"clinic_id"`
	Role     string `json:"role"`
	DoctorID string `json:"doctor_id,omitempty"`
}

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID   string
	Role     string
	DoctorID *uuid.UUID
}

// HasRole reports whether the principal holds one of roles. Admins hold all.
func (p Principal) HasRole(roles ...string) bool {
	if p.Role == RoleAdmin {
		return true
	}
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}

// DoctorIDFromContext returns the doctor profile of the caller, if any.
func DoctorIDFromContext(ctx context.Context) *uuid.UUID {
	p, ok := PrincipalFromContext(ctx)
	if !ok {
		return nil
	}
	return p.DoctorID
}

type JWTConfig struct {
	Issuer     string
	SigningKey []byte
	// Skipper lets public lookups through without a token.
	Skipper func(c echo.Context) bool
}

func (cfg JWTConfig) parse(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (interface{}, error) {
		return cfg.SigningKey, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

func bearerToken(c echo.Context) (string, error) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
	}
	return strings.TrimSpace(parts[1]), nil
}

func principalFromClaims(claims *Claims) Principal {
	p := Principal{UserID: claims.Subject, Role: claims.Role}
	if claims.DoctorID != "" {
		if id, err := uuid.Parse(claims.DoctorID); err == nil {
			p.DoctorID = &id
		}
	}
	return p
}

func authenticate(cfg JWTConfig, c echo.Context, next echo.HandlerFunc) error {
	tokenStr, err := bearerToken(c)
	if err != nil {
		return err
	}
	claims, err := cfg.parse(tokenStr)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}

	// read by the clinic middleware
	c.Set("jwt_clinic_id", claims.ClinicID)
	c.SetRequest(c.Request().WithContext(WithPrincipal(c.Request().Context(), principalFromClaims(claims))))
	return next(c)
}

// JWTMiddleware requires a valid HS256 bearer token on every request that is
// not skipped.
func JWTMiddleware(cfg JWTConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper != nil && cfg.Skipper(c) {
				return next(c)
			}
			return authenticate(cfg, c, next)
		}
	}
}

// DevAuthMiddleware treats unauthenticated requests as coming from a local
// admin. A bearer token, when present, is still validated so that logged-in
// doctors keep their identity.
func DevAuthMiddleware(cfg JWTConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Header.Get("Authorization") != "" && len(cfg.SigningKey) > 0 {
				return authenticate(cfg, c, next)
			}
			ctx := WithPrincipal(c.Request().Context(), Principal{UserID: "dev-user", Role: RoleAdmin})
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}
