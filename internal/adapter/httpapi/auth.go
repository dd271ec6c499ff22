package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/carhive/listing-service/internal/listing/domain"
	"github.com/carhive/listing-service/internal/platform/logger"
)

// DemoToken is the reserved bearer literal that maps to the fixed demo owner
// without credential verification. It is the only privileged short-circuit.
const DemoToken = "demo-token"

// Identity is the resolved caller: a stable owner id plus the demo bit that
// selects the backend for the rest of the request.
type Identity struct {
	OwnerID string
	Demo    bool
}

type identityKeyType struct{}

var identityKey identityKeyType

// IdentityFrom extracts the identity placed in the context by Middleware.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

// Claims is the JWT claim set issued by the identity provider.
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// Authenticator resolves bearer tokens into identities. It holds no state
// between requests.
type Authenticator struct {
	secret []byte
	logger *logger.Logger
}

func NewAuthenticator(jwtSecret string, log *logger.Logger) *Authenticator {
	return &Authenticator{secret: []byte(jwtSecret), logger: log}
}

// Resolve maps a bearer token to an identity. The demo literal bypasses
// verification; everything else must be a valid HS256 JWT carrying user_id.
func (a *Authenticator) Resolve(token string) (Identity, error) {
	if token == DemoToken {
		return Identity{OwnerID: domain.DemoOwner, Demo: true}, nil
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}
	if !parsed.Valid {
		return Identity{}, fmt.Errorf("%w: token is not valid", domain.ErrUnauthenticated)
	}
	if claims.UserID == "" {
		return Identity{}, fmt.Errorf("%w: user_id missing from token claims", domain.ErrUnauthenticated)
	}
	return Identity{OwnerID: claims.UserID}, nil
}

// Middleware rejects requests without a resolvable identity before any
// store access and threads the identity through the request context.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			a.logger.Warn("auth: missing Authorization header", "method", r.Method, "path", r.URL.Path)
			writeError(w, fmt.Errorf("%w: no authorization header", domain.ErrUnauthenticated))
			return
		}

		parts := strings.Fields(authHeader)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			a.logger.Warn("auth: invalid Authorization header format", "method", r.Method, "path", r.URL.Path)
			writeError(w, fmt.Errorf("%w: expected 'Bearer <token>'", domain.ErrUnauthenticated))
			return
		}

		identity, err := a.Resolve(parts[1])
		if err != nil {
			a.logger.Warn("auth: token rejected", "method", r.Method, "path", r.URL.Path, "error", err.Error())
			writeError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), identityKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
