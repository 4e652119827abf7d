package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/oops"
	"go.uber.org/zap"

	"forum-auth/internal/domain"
	"forum-auth/internal/metrics"
	"forum-auth/internal/service"
)

// envelope es la forma común de todas las respuestas JSON.
type envelope struct {
	Status  string    `json:"status"`
	Token   string    `json:"token,omitempty"`
	Data    *userData `json:"data,omitempty"`
	Message string    `json:"message,omitempty"`
}

type userData struct {
	User domain.UserView `json:"user"`
}

var kindStatus = map[service.Kind]int{
	service.KindValidation:            http.StatusBadRequest,
	service.KindDuplicateEmail:        http.StatusBadRequest,
	service.KindMissingCredentials:    http.StatusBadRequest,
	service.KindInvalidCredentials:    http.StatusUnauthorized,
	service.KindUnauthenticated:       http.StatusUnauthorized,
	service.KindUserNotFound:          http.StatusNotFound,
	service.KindInvalidOrExpiredToken: http.StatusBadRequest,
	service.KindWrongCurrentPassword:  http.StatusUnauthorized,
	service.KindEmailDeliveryFailure:  http.StatusInternalServerError,
	service.KindInternal:              http.StatusInternalServerError,
}

func statusFor(err error) int {
	if status, ok := kindStatus[service.KindOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// respondError es el único punto que traduce errores del servicio a HTTP.
func respondError(c *gin.Context, logger *zap.Logger, operation string, started time.Time, err error) {
	status := statusFor(err)
	fields := []zap.Field{
		zap.String("operation", operation),
		zap.String("kind", service.KindOf(err).String()),
		zap.Int("status", status),
		zap.Error(err),
	}

	label := "fail"
	outcome := metrics.OutcomeRejected
	if status >= http.StatusInternalServerError {
		label = "error"
		outcome = metrics.OutcomeError
		if oopsErr, ok := oops.AsOops(err); ok {
			fields = append(fields, zap.Any("code", oopsErr.Code()), zap.Any("context", oopsErr.Context()))
		}
		logger.Error("auth request failed", fields...)
	} else {
		logger.Info("auth request rejected", fields...)
	}
	metrics.RecordAuth(operation, outcome, time.Since(started))

	c.AbortWithStatusJSON(status, envelope{Status: label, Message: service.PublicMessage(err)})
}

// respondSession fija la cookie y devuelve token y usuario.
func respondSession(c *gin.Context, operation string, status int, started time.Time, session service.Session) {
	setSessionCookie(c, session.Cookie)
	metrics.RecordAuth(operation, metrics.OutcomeSuccess, time.Since(started))
	c.JSON(status, envelope{
		Status: "success",
		Token:  session.Token,
		Data:   &userData{User: session.User},
	})
}

func setSessionCookie(c *gin.Context, cookie service.CookieDirective) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     cookie.Name,
		Value:    cookie.Value,
		Path:     "/",
		Expires:  cookie.Expires,
		HttpOnly: cookie.HTTPOnly,
		Secure:   cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
