package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/Patrickdoranlearning/hortitrack-sub016/internal/apierror"
	"github.com/Patrickdoranlearning/hortitrack-sub016/internal/dto"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	ClaimsKey = "claims"
)

// Roles understood by the allocation routes.
const (
	RolePicker  = "picker"
	RoleSales   = "sales"
	RoleManager = "manager"
	RoleAdmin   = "admin"
)

// JWTClaims are the claims the identity provider embeds in every access token.
type JWTClaims struct {
	OrgID  string `json:"org_id"`
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Session turns verified claims into the explicit caller identity passed to
// services. Malformed ids are rejected here, once, for every route.
func (c *JWTClaims) Session() (dto.Session, bool) {
	orgID, err := uuid.Parse(c.OrgID)
	if err != nil {
		return dto.Session{}, false
	}
	userID, err := uuid.Parse(c.UserID)
	if err != nil {
		return dto.Session{}, false
	}
	return dto.Session{OrgID: orgID, UserID: userID, Role: c.Role}, true
}

// SignToken issues an HS256 token. Used by cmd/devtoken and tests; production
// tokens come from the identity provider.
func SignToken(secret string, orgID, userID uuid.UUID, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := JWTClaims{
		OrgID:  orgID.String(),
		UserID: userID.String(),
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// JWTAuth validates the Bearer token on every protected route.
func JWTAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("Authentication required"))
			return
		}

		tokenStr := strings.TrimPrefix(header, "Bearer ")
		claims := &JWTClaims{}
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})

		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("Invalid or expired token"))
			return
		}
		if _, ok := claims.Session(); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("Token is missing organization or user"))
			return
		}

		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

// RequireRole rejects requests whose JWT role is not in the allowed list.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil || !allowed[claims.Role] {
			c.AbortWithStatusJSON(http.StatusForbidden, apierror.New("Insufficient permissions"))
			return
		}
		c.Next()
	}
}

// GetClaims is a helper to retrieve typed claims from the Gin context.
func GetClaims(c *gin.Context) *JWTClaims {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*JWTClaims)
	return claims
}

// SessionFromContext returns the caller session set by JWTAuth.
func SessionFromContext(c *gin.Context) (dto.Session, bool) {
	claims := GetClaims(c)
	if claims == nil {
		return dto.Session{}, false
	}
	return claims.Session()
}
