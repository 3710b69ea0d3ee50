package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/hqv2016/salonpulse/pkg/errors"
	"github.com/hqv2016/salonpulse/pkg/response"

	"github.com/hqv2016/salonpulse/internal/auth"
	"github.com/hqv2016/salonpulse/internal/realtime"
)

// Context keys set by the auth middleware.
const (
	ContextUserID  = "auth.user_id"
	ContextRole    = "auth.role"
	ContextStaffID = "auth.staff_id"
)

// ExtractToken pulls the bearer token from the Authorization header, falling
// back to the token query parameter for websocket handshakes where browsers
// cannot set headers.
func ExtractToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return strings.TrimSpace(c.Query("token"))
}

// RequireAuth validates the access token and stores the caller's identity in
// the request context.
func RequireAuth(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ExtractToken(c)
		if token == "" {
			response.Error(c, apperrors.ErrUnauthorized)
			c.Abort()
			return
		}

		claims, err := jwtService.ValidateAccessToken(token)
		if err != nil {
			response.Error(c, apperrors.ErrUnauthorized)
			c.Abort()
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextRole, claims.Role)
		c.Set(ContextStaffID, claims.StaffID)
		c.Next()
	}
}

// RequireRole rejects callers whose role is not in the allow list. Must run
// after RequireAuth.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := allowed[c.GetString(ContextRole)]; !ok {
			response.Error(c, apperrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireStaff rejects callers without a staff profile. Must run after
// RequireAuth.
func RequireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ContextStaffID) == "" {
			response.Error(c, apperrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

// IdentityFromContext rebuilds the realtime identity stored by RequireAuth.
func IdentityFromContext(c *gin.Context) realtime.Identity {
	return realtime.Identity{
		UserID:  c.GetString(ContextUserID),
		Role:    c.GetString(ContextRole),
		StaffID: c.GetString(ContextStaffID),
	}
}
