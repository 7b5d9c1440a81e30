package web

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"sproutcv/internal/domain"
	"sproutcv/internal/domain/ports/adapter"
)

// ===== Access-token verification =====

var _ adapter.TokenVerifier = (*JWTVerifier)(nil)

// JWTVerifier validates HS256 access tokens minted by the auth platform.
type JWTVerifier struct {
	secret []byte
	issuer string
}

func NewJWTVerifier(secret, issuer string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret), issuer: issuer}
}

type accessClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	jwt.RegisteredClaims
}

func (v *JWTVerifier) Verify(ctx context.Context, token string) (adapter.Identity, error) {
	claims := &accessClaims{}
	parsers := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256"}),
	}
	if v.issuer != "" {
		parsers = append(parsers, jwt.WithIssuer(v.issuer))
	}
	tkn, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, parsers...)
	if err != nil || !tkn.Valid || claims.Subject == "" {
		return adapter.Identity{}, domain.ErrUnauthorized
	}
	return adapter.Identity{
		UserID:        claims.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
	}, nil
}

// ===== Request identity plumbing =====

type ctxKeyIdentity struct{}

func identityFrom(ctx context.Context) (adapter.Identity, bool) {
	id, ok := ctx.Value(ctxKeyIdentity{}).(adapter.Identity)
	return id, ok
}

func bearerToken(r *http.Request) string {
	hdr := r.Header.Get("Authorization")
	if hdr == "" {
		return ""
	}
	parts := strings.SplitN(hdr, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// authMiddleware verifies the bearer token and stores the caller identity on
// the request context. Requests without a valid token get 401.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			respondError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		identity, err := s.verifier.Verify(r.Context(), token)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		ctx := context.WithValue(r.Context(), ctxKeyIdentity{}, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// adminMiddleware provides simple Bearer token authentication for the admin API.
func (s *Server) adminMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.adminAPIKey == "" {
			s.log.Error().Msg("Admin API key is not configured")
			respondError(w, http.StatusForbidden, "forbidden")
			return
		}
		if bearerToken(r) != s.adminAPIKey {
			respondError(w, http.StatusForbidden, "forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}
