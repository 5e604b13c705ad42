package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// BearerAuth enforces bearer JWT tokens signed with HS256. When roles are
// given, the token's role must be one of them.
func BearerAuth(signingKey, issuer string, roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if authz == "" || !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "missing bearer token"})
			return
		}
		tokenStr := strings.TrimSpace(authz[len("bearer "):])
		claims, err := Parse(tokenStr, signingKey, issuer)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "invalid token"})
			return
		}
		if len(roles) > 0 {
			allowed := false
			for _, r := range roles {
				if claims.Role == r {
					allowed = true
					break
				}
			}
			if !allowed {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "insufficient role"})
				return
			}
		}
		c.Set("claims", claims)
		c.Next()
	}
}

// AdminCredentials is the capability checked by AdminAuth. Values come from
// config, never from request-handling code.
type AdminCredentials struct {
	ID       string
	Password string
}

// AdminAuth enforces the admin-id/admin-password header pair used by the
// management endpoints.
func AdminAuth(creds AdminCredentials) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("admin-id")
		password := c.GetHeader("admin-password")
		if id == "" || password == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Admin credentials required"})
			return
		}
		idOK := subtle.ConstantTimeCompare([]byte(id), []byte(creds.ID)) == 1
		pwOK := subtle.ConstantTimeCompare([]byte(password), []byte(creds.Password)) == 1
		if !idOK || !pwOK {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid admin credentials"})
			return
		}
		c.Next()
	}
}
