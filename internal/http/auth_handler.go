package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"forum-auth/internal/service"
)

// AuthHandler mantiene dependencias para los endpoints de autenticación.
type AuthHandler struct {
	logger        *zap.Logger
	sessions      *service.SessionIssuer
	passwords     *service.PasswordService
	publicBaseURL string
}

// NewAuthHandler crea una instancia de AuthHandler. publicBaseURL vacío hace
// que los links de reseteo se armen con el host de la petición.
func NewAuthHandler(logger *zap.Logger, sessions *service.SessionIssuer, passwords *service.PasswordService, publicBaseURL string) *AuthHandler {
	return &AuthHandler{
		logger:        logger,
		sessions:      sessions,
		passwords:     passwords,
		publicBaseURL: strings.TrimRight(strings.TrimSpace(publicBaseURL), "/"),
	}
}

// Signup maneja POST /auth/signup.
func (h *AuthHandler) Signup(c *gin.Context) {
	started := time.Now()
	var req service.SignupInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, "signup", started, service.ErrMalformedBody)
		return
	}

	session, err := h.sessions.Signup(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, "signup", started, err)
		return
	}
	respondSession(c, "signup", http.StatusCreated, started, session)
}

// Login maneja POST /auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	started := time.Now()
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, "login", started, service.ErrMissingCredentials)
		return
	}

	session, err := h.sessions.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.logger, "login", started, err)
		return
	}
	respondSession(c, "login", http.StatusOK, started, session)
}

// ForgotPassword maneja POST /auth/forgotPassword.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	started := time.Now()
	var req struct {
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, "forgot", started, service.ErrMalformedBody)
		return
	}

	if err := h.passwords.Forgot(c.Request.Context(), req.Email, h.resetBaseURL(c)); err != nil {
		respondError(c, h.logger, "forgot", started, err)
		return
	}
	c.JSON(http.StatusOK, envelope{Status: "success", Message: "Token sent to email!"})
}

type newPasswordRequest struct {
	PasswordCurrent string `json:"passwordCurrent"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

// ResetPassword maneja PATCH /auth/resetPassword/:token.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	started := time.Now()
	var req newPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, "reset", started, service.ErrMalformedBody)
		return
	}

	session, err := h.passwords.Reset(c.Request.Context(), c.Param("token"), req.Password, req.PasswordConfirm)
	if err != nil {
		respondError(c, h.logger, "reset", started, err)
		return
	}
	respondSession(c, "reset", http.StatusOK, started, session)
}

// UpdatePassword maneja PATCH /auth/updatePassword. Requiere AuthMiddleware.
func (h *AuthHandler) UpdatePassword(c *gin.Context) {
	started := time.Now()
	user, ok := CurrentUser(c)
	if !ok {
		respondError(c, h.logger, "update", started, service.ErrNotLoggedIn)
		return
	}
	var req newPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, "update", started, service.ErrMalformedBody)
		return
	}

	session, err := h.passwords.Update(c.Request.Context(), user.ID, req.PasswordCurrent, req.Password, req.PasswordConfirm)
	if err != nil {
		respondError(c, h.logger, "update", started, err)
		return
	}
	respondSession(c, "update", http.StatusOK, started, session)
}

// Me maneja GET /auth/me.
func (h *AuthHandler) Me(c *gin.Context) {
	user, ok := CurrentUser(c)
	if !ok {
		respondError(c, h.logger, "me", time.Now(), service.ErrNotLoggedIn)
		return
	}
	c.JSON(http.StatusOK, envelope{Status: "success", Data: &userData{User: user.View()}})
}

func (h *AuthHandler) resetBaseURL(c *gin.Context) string {
	if h.publicBaseURL != "" {
		return h.publicBaseURL
	}
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if proto := strings.TrimSpace(strings.Split(c.GetHeader("X-Forwarded-Proto"), ",")[0]); proto != "" {
		scheme = strings.ToLower(proto)
	}
	return scheme + "://" + c.Request.Host
}
