package security

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/pushkarkumarvats/DIG-7/internal/errors"
)

type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleManager Role = "MANAGER"
	RoleViewer  Role = "VIEWER"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleViewer:
		return true
	}
	return false
}

// Claims is the token payload. Subject carries the user id.
type Claims struct {
	jwt.RegisteredClaims
	Role Role `json:"role"`
}

const contextClaimsKey = "auth_claims"

var ErrInvalidToken = errors.New("invalid token")

// TokenIssuer signs and verifies HS256 bearer tokens.
type TokenIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret, issuer string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

func (ti *TokenIssuer) Issue(subject string, role Role) (string, time.Time, error) {
	if !role.Valid() {
		return "", time.Time{}, fmt.Errorf("unknown role %q", role)
	}

	now := ti.now()
	expires := now.Add(ti.ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    ti.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		Role: role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(ti.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expires, nil
}

func (ti *TokenIssuer) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return ti.secret, nil
	},
		jwt.WithIssuer(ti.issuer),
		jwt.WithTimeFunc(ti.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || !claims.Role.Valid() {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// AccessPolicy gates /api routes by role.
type AccessPolicy struct {
	Issuer   *TokenIssuer
	DemoMode bool
}

// Middleware authenticates /api requests and enforces the role rules.
// Vendor writes and scoring need ADMIN or MANAGER. Audit logs and /api/admin
// need ADMIN. /api/auth is public. In demo mode requests without a token
// pass, but a presented token is still checked.
func (p AccessPolicy) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if !strings.HasPrefix(path, "/api/") || strings.HasPrefix(path, "/api/auth") {
			c.Next()
			return
		}

		raw := bearerToken(c.GetHeader("Authorization"))
		if raw == "" {
			if p.DemoMode {
				c.Next()
				return
			}
			apperrors.Abort(c, apperrors.NewUnauthorizedError("Authentication required"))
			return
		}

		claims, err := p.Issuer.Parse(raw)
		if err != nil {
			apperrors.Abort(c, apperrors.NewUnauthorizedError("Invalid or expired token"))
			return
		}
		c.Set(contextClaimsKey, claims)

		if requiresAdmin(path) && claims.Role != RoleAdmin {
			apperrors.Abort(c, apperrors.NewForbiddenError("Admin access required"))
			return
		}
		if requiresManager(c.Request.Method, path) && claims.Role != RoleAdmin && claims.Role != RoleManager {
			apperrors.Abort(c, apperrors.NewForbiddenError("Insufficient permissions"))
			return
		}

		c.Next()
	}
}

func requiresAdmin(path string) bool {
	return strings.HasPrefix(path, "/api/audit-logs") || strings.HasPrefix(path, "/api/admin")
}

func requiresManager(method, path string) bool {
	if !strings.HasPrefix(path, "/api/vendors") {
		return false
	}
	return method != http.MethodGet || strings.HasPrefix(path, "/api/vendors/score")
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// ClaimsFromContext returns the authenticated claims, or nil for anonymous
// demo requests.
func ClaimsFromContext(c *gin.Context) *Claims {
	v, ok := c.Get(contextClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*Claims)
	return claims
}

// Subject returns the authenticated user id, or "" when anonymous.
func Subject(c *gin.Context) string {
	if claims := ClaimsFromContext(c); claims != nil {
		return claims.Subject
	}
	return ""
}
