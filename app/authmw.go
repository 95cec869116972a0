package app

import (
	"net/http"
	"strings"

	"unilib/db"
	"unilib/models"
	"unilib/session"

	"github.com/gin-gonic/gin"
)

// Bearer token in the Authorization header; the token is an opaque id
// resolved against Redis, so sign-out and revoke-all are immediate.
func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

func AuthRequired(tokens *session.TokenStore, repo *db.Repo) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok := bearerToken(c)
		if tok == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"success": false, "code": "unauthorized", "message": "missing token"})
			return
		}
		sess, err := tokens.Get(c.Request.Context(), tok)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"success": false, "code": "unauthorized", "message": "invalid or expired token"})
			return
		}

		// 确认用户仍存在，角色只查一次放进 Context
		u, err := repo.FindUserByID(c.Request.Context(), sess.UserID)
		if err != nil {
			// user deleted: the session is stale, drop it (forced sign-out)
			_ = tokens.Delete(c.Request.Context(), tok)
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"success": false, "code": "unauthorized", "message": "invalid or expired token"})
			return
		}
		c.Set("userID", u.ID)
		c.Set("role", u.Role)
		c.Set("token", tok)
		c.Next()
	}
}

// StaffOnly admits librarians and admins.
func StaffOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, _ := c.Get("role")
		if role == models.RoleLibrarian || role == models.RoleAdmin {
			c.Next()
			return
		}
		c.AbortWithStatusJSON(http.StatusForbidden, H{"success": false, "code": "forbidden", "message": "staff only"})
	}
}

func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if role, _ := c.Get("role"); role == models.RoleAdmin {
			c.Next()
			return
		}
		c.AbortWithStatusJSON(http.StatusForbidden, H{"success": false, "code": "forbidden", "message": "admin only"})
	}
}
