package mw

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"gupio-parking-backend/internal/auth"
	"gupio-parking-backend/internal/model"
)

const (
	AuthorizationHeaderKey  = "Authorization"
	AuthorizationTypeBearer = "Bearer"
	EmployeeIDKey           = "employeeID"
	UserKey                 = "user"
)

// TokenParser validates a session token.
type TokenParser interface {
	Parse(token string) (*auth.Claims, error)
}

// SessionSource reports who is signed in.
type SessionSource interface {
	CurrentUser() (model.User, bool)
}

// Authenticate requires a valid bearer token whose subject is the signed-in
// user. Only one session is live at a time, so tokens of an earlier login
// stop working once someone else signs in or the user logs out.
func Authenticate(tokens TokenParser, sessions SessionSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(AuthorizationHeaderKey)
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "message": "Missing authorization header"})
			return
		}

		fields := strings.Fields(header)
		if len(fields) != 2 || !strings.EqualFold(fields[0], AuthorizationTypeBearer) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "message": "Invalid authorization header format"})
			return
		}

		claims, err := tokens.Parse(fields[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "message": "Token is invalid or expired"})
			return
		}

		user, ok := sessions.CurrentUser()
		if !ok || user.EmployeeID != claims.Subject {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "message": "Session has ended, please log in again"})
			return
		}

		c.Set(EmployeeIDKey, user.EmployeeID)
		c.Set(UserKey, user)
		c.Next()
	}
}

// EmployeeID returns the authenticated employee id.
func EmployeeID(c *gin.Context) string {
	return c.GetString(EmployeeIDKey)
}
