package http

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"forum-auth/internal/domain"
	"forum-auth/internal/metrics"
	"forum-auth/internal/service"
)

const currentUserKey = "current_user"

// AuthMiddleware exige un bearer token válido y guarda el usuario en el contexto.
func AuthMiddleware(logger *zap.Logger, guard *service.AccessGuard) gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		user, err := guard.Authenticate(c.Request.Context(), bearerToken(c))
		if err != nil {
			respondError(c, logger, "guard", started, err)
			return
		}
		metrics.RecordAuth("guard", metrics.OutcomeSuccess, time.Since(started))
		c.Set(currentUserKey, user)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// CurrentUser obtiene el usuario autenticado desde el contexto.
func CurrentUser(c *gin.Context) (domain.User, bool) {
	val, ok := c.Get(currentUserKey)
	if !ok {
		return domain.User{}, false
	}
	user, ok := val.(domain.User)
	return user, ok
}
