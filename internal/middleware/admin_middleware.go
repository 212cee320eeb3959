package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/keyprice_api/internal/utils"
)

// HeaderAdminKey carries the static admin key.
const HeaderAdminKey = "X-Admin-Key"

// AdminMiddleware admits requests with the static admin key or an admin JWT.
type AdminMiddleware struct {
	adminKey  string
	jwtSecret []byte
}

func NewAdminMiddleware(adminKey, jwtSecret string) *AdminMiddleware {
	return &AdminMiddleware{adminKey: adminKey, jwtSecret: []byte(jwtSecret)}
}

func (m *AdminMiddleware) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		if key := c.GetHeader(HeaderAdminKey); key != "" {
			if m.adminKey == "" || subtle.ConstantTimeCompare([]byte(key), []byte(m.adminKey)) != 1 {
				utils.Error(c, 403, "FORBIDDEN", "Access forbidden: Invalid Admin Key")
				c.Abort()
				return
			}
			c.Set("admin_auth", "key")
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.Error(c, 401, "UNAUTHORIZED", "Missing authorization header")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			utils.Error(c, 401, "UNAUTHORIZED", "Invalid authorization header")
			c.Abort()
			return
		}

		claims, err := utils.ValidateJWT(m.jwtSecret, parts[1])
		if err != nil {
			utils.Error(c, 401, "INVALID_TOKEN", "Invalid or expired token")
			c.Abort()
			return
		}

		c.Set("admin_auth", "jwt")
		c.Set("user_id", claims.UserID)
		c.Set("email", claims.Email)
		c.Next()
	}
}
