package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/textmock/textmock-server/internal/domain/identity"
)

// IdentityKey is the gin context key holding the resolved caller identity
const IdentityKey = "identity"

// Claims carries the caller identity issued by the identity provider. The
// balance hint is a display value only and is never trusted for charging.
type Claims struct {
	DisplayName string `json:"name,omitempty"`
	BalanceHint int64  `json:"balance_hint,omitempty"`
	jwt.RegisteredClaims
}

// Auth middleware verifies the bearer token and stores the resolved identity
// in the gin context. Requests without a valid token are rejected; every
// balance or scenario operation needs an attributable account.
func Auth(logger *slog.Logger, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			unauthorized(c, "Authorization header missing")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			unauthorized(c, "Invalid Authorization header format")
			return
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(secret), nil
		})
		if err != nil {
			logger.Warn("Token validation failed", "error", err)
			switch {
			case errors.Is(err, jwt.ErrTokenExpired):
				unauthorized(c, "Token has expired")
			case errors.Is(err, jwt.ErrTokenMalformed):
				unauthorized(c, "Token is malformed")
			case errors.Is(err, jwt.ErrTokenSignatureInvalid):
				unauthorized(c, "Token signature is invalid")
			default:
				unauthorized(c, "Token validation failed")
			}
			return
		}
		if !token.Valid {
			unauthorized(c, "Token is invalid")
			return
		}

		accountID, err := uuid.Parse(claims.Subject)
		if err != nil || accountID == uuid.Nil {
			logger.Warn("Token subject is not a valid account ID", "subject", claims.Subject)
			unauthorized(c, "Invalid token: subject missing")
			return
		}

		c.Set(IdentityKey, identity.Identity{
			AccountID:   accountID,
			DisplayName: claims.DisplayName,
			BalanceHint: claims.BalanceHint,
		})

		c.Next()
	}
}

// GetIdentity retrieves the resolved identity from the gin context. The zero
// identity is anonymous.
func GetIdentity(c *gin.Context) identity.Identity {
	if v, exists := c.Get(IdentityKey); exists {
		if ident, ok := v.(identity.Identity); ok {
			return ident
		}
	}
	return identity.Identity{}
}

func unauthorized(c *gin.Context, message string) {
	response := gin.H{
		"error": gin.H{
			"code":    "UNAUTHORIZED",
			"message": message,
		},
	}
	if correlationID := GetCorrelationID(c); correlationID != "" {
		response["correlation_id"] = correlationID
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, response)
}

// SignTestToken issues a token for tests and local tooling
func SignTestToken(accountID uuid.UUID, displayName, secret string, validity time.Duration) (string, error) {
	claims := &Claims{
		DisplayName: displayName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validity)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
