package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/gin-gonic/gin"
	"github.com/quizforge/quiz-service/internal/models"
	"github.com/quizforge/quiz-service/internal/repositories"
	"github.com/quizforge/quiz-service/internal/utils"
)

const (
	ctxUserID   = "user_id"
	ctxUserRole = "user_role"
)

// TokenParser abstracts the Casdoor client so tests can stub token parsing.
type TokenParser interface {
	ParseJwtToken(token string) (*casdoorsdk.Claims, error)
}

// AuthMiddleware validates the Bearer token against Casdoor and mirrors the
// authenticated user into the local users table.
func AuthMiddleware(parser TokenParser, repo repositories.Repository, logger utils.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: "Missing or malformed Authorization header",
			})
			return
		}

		claims, err := parser.ParseJwtToken(token)
		if err != nil {
			logger.Warn("Token validation failed", "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: "Invalid or expired token",
			})
			return
		}

		userID := claims.User.Id
		if userID == "" {
			userID = claims.User.Name
		}
		role := roleFromClaims(claims)

		now := time.Now()
		user := &models.User{
			ID:          userID,
			FullName:    claims.User.DisplayName,
			Email:       claims.User.Email,
			Role:        role,
			IsActive:    true,
			LastLoginAt: &now,
		}
		if err := repo.User().Upsert(c.Request.Context(), user); err != nil {
			// The mirror is best-effort; authentication already succeeded.
			logger.Warn("Failed to mirror user", "user_id", userID, "error", err)
		}

		c.Set(ctxUserID, userID)
		c.Set(ctxUserRole, role)
		c.Next()
	}
}

// RequireRole rejects requests whose authenticated role is not listed.
func RequireRole(roles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		value, exists := c.Get(ctxUserRole)
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: "User not authenticated",
			})
			return
		}

		role := value.(models.UserRole)
		for _, allowed := range roles {
			if role == allowed {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{
			Message: "Insufficient role permissions",
		})
	}
}

func roleFromClaims(claims *casdoorsdk.Claims) models.UserRole {
	if claims.User.IsAdmin {
		return models.RoleAdmin
	}
	if claims.User.Tag == string(models.RoleInstructor) {
		return models.RoleInstructor
	}
	return models.RoleStudent
}
