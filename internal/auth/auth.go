package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/agoranet/agora/internal/logger"
	"github.com/agoranet/agora/internal/models"
	"github.com/agoranet/agora/internal/repository"
)

// TokenExpiry is the lifetime of tokens minted by this service
const TokenExpiry = 24 * time.Hour

type contextKey struct{}

// Identity is the authenticated caller extracted from a bearer token
type Identity struct {
	UserID   string
	Username string
	Name     string
}

// Claims is the JWT payload carried by bearer tokens. The subject is the
// stable user id; username and name ride along so the user row can be kept
// current without a directory lookup.
type Claims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
	Name     string `json:"name,omitempty"`
}

// Auth verifies bearer tokens and maintains the local user mirror
type Auth struct {
	secret []byte
	log    logger.Logger
	users  repository.UserRepository
}

// New creates a new Auth instance with the given HMAC signing secret
func New(secret string, log logger.Logger, users repository.UserRepository) *Auth {
	return &Auth{
		secret: []byte(secret),
		log:    log,
		users:  users,
	}
}

// MintToken issues a signed token for the given identity. Used by tests and
// the local token utility; production deployments verify tokens issued by the
// identity provider with the shared secret.
func (a *Auth) MintToken(userID, username, name string) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenExpiry)),
		},
		Username: username,
		Name:     name,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// VerifyToken parses and validates a bearer token
func (a *Auth) VerifyToken(token string) (*Identity, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return &Identity{
		UserID:   claims.Subject,
		Username: strings.ToLower(claims.Username),
		Name:     claims.Name,
	}, nil
}

// Middleware authenticates API requests. On success the identity is placed in
// the request context and the local user row is refreshed so usernames stay
// searchable for invitations.
func (a *Auth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			unauthorized(w, "missing bearer token")
			return
		}

		identity, err := a.VerifyToken(token)
		if err != nil {
			a.log.Debug("Token rejected", "error", err)
			unauthorized(w, "invalid or expired token")
			return
		}

		if err := a.users.UpsertUser(r.Context(), models.User{
			ID:       identity.UserID,
			Username: identity.Username,
			Name:     identity.Name,
		}); err != nil {
			a.log.Error("Failed to upsert user", "user_id", identity.UserID, "error", err)
			http.Error(w, `{"code":"INTERNAL","error":"internal server error"}`, http.StatusInternalServerError)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
	})
}

// WithIdentity returns a context carrying the identity
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext extracts the authenticated identity from the context
func FromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(*Identity)
	return id, ok
}

// bearerToken extracts the token from the Authorization header
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"code":"UNAUTHORIZED","error":"` + msg + `"}`))
}
