package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mishannn/tinkoff"
	"github.com/mishannn/tinkoff/core"
	"github.com/mishannn/tinkoff/service"
)

// Defaults prefill the demo login form
type Defaults struct {
	Username string
	Password string
}

// LoginHandlers contains HTTP handlers for the login flow and session calls
type LoginHandlers struct {
	loginService *service.LoginService
	log          *zap.Logger
	defaults     Defaults
}

// NewLoginHandlers creates new login handlers
func NewLoginHandlers(loginService *service.LoginService, log *zap.Logger, defaults Defaults) *LoginHandlers {
	if log == nil {
		log = zap.NewNop()
	}
	return &LoginHandlers{
		loginService: loginService,
		log:          log,
		defaults:     defaults,
	}
}

type sessionResponse struct {
	WebUserID   string    `json:"wuid"`
	SessionID   string    `json:"sessionid"`
	AccessLevel string    `json:"access_level"`
	Established time.Time `json:"established_at"`
}

func newSessionResponse(s *core.Session) sessionResponse {
	return sessionResponse{
		WebUserID:   s.WebUserID,
		SessionID:   s.SessionID,
		AccessLevel: s.AccessLevel,
		Established: s.EstablishedAt,
	}
}

// Login handles the login request
func (h *LoginHandlers) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	result, err := h.loginService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}

	if result.NeedsConfirmation() {
		c.JSON(http.StatusAccepted, gin.H{
			"confirmation_token": result.ConfirmationToken,
			"expires_at":         result.ExpiresAt,
		})
		return
	}

	c.JSON(http.StatusOK, newSessionResponse(result.Session))
}

// Confirm handles the SMS confirmation of a pending login
func (h *LoginHandlers) Confirm(c *gin.Context) {
	var req struct {
		ConfirmationToken string `json:"confirmation_token" binding:"required"`
		Code              string `json:"code" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	session, err := h.loginService.Confirm(c.Request.Context(), req.ConfirmationToken, req.Code)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, newSessionResponse(session))
}

// Status returns the state of the caller's session
func (h *LoginHandlers) Status(c *gin.Context) {
	state, err := h.loginService.SessionStatus(c.Request.Context(), identityFrom(c))
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, state)
}

// Ping keeps the caller's session alive
func (h *LoginHandlers) Ping(c *gin.Context) {
	state, err := h.loginService.Ping(c.Request.Context(), identityFrom(c))
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, state)
}

// Accounts lists the caller's accounts
func (h *LoginHandlers) Accounts(c *gin.Context) {
	accounts, err := h.loginService.Accounts(c.Request.Context(), identityFrom(c))
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"accounts": accounts,
		"balances": tinkoff.Balances(accounts),
	})
}

// PersonalInfo returns the caller's profile
func (h *LoginHandlers) PersonalInfo(c *gin.Context) {
	info, err := h.loginService.PersonalInfo(c.Request.Context(), identityFrom(c))
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, info)
}

// Index renders the login form
func (h *LoginHandlers) Index(c *gin.Context) {
	c.HTML(http.StatusOK, "login.html", pageData{Username: h.defaults.Username})
}

// LoginPage handles the login form
func (h *LoginHandlers) LoginPage(c *gin.Context) {
	username := c.DefaultPostForm("username", h.defaults.Username)
	password := c.PostForm("password")
	if password == "" {
		password = h.defaults.Password
	}

	result, err := h.loginService.Login(c.Request.Context(), username, password)
	if err != nil {
		status, msg := errorStatus(err)
		h.logFailure(c, status, err)
		c.HTML(status, "login.html", pageData{Error: msg, Username: username})
		return
	}

	if result.NeedsConfirmation() {
		c.HTML(http.StatusOK, "confirm.html", pageData{Token: result.ConfirmationToken})
		return
	}

	h.renderSession(c, result.Session)
}

// ConfirmPage handles the SMS code form
func (h *LoginHandlers) ConfirmPage(c *gin.Context) {
	token := c.PostForm("token")

	session, err := h.loginService.Confirm(c.Request.Context(), token, c.PostForm("code"))
	if err != nil {
		status, msg := errorStatus(err)
		h.logFailure(c, status, err)

		// A rejected code keeps the token usable
		if errors.Is(err, tinkoff.ErrInvalidRequestData) {
			c.HTML(status, "confirm.html", pageData{Error: msg, Token: token})
			return
		}
		c.HTML(status, "login.html", pageData{Error: msg, Username: h.defaults.Username})
		return
	}

	h.renderSession(c, session)
}

func (h *LoginHandlers) renderSession(c *gin.Context, session *core.Session) {
	data := pageData{Session: session}

	id := tinkoff.Identity{WebUserID: session.WebUserID, SessionID: session.SessionID}
	accounts, err := h.loginService.Accounts(c.Request.Context(), id)
	if err != nil {
		h.log.Warn("failed to list accounts", zap.Error(err))
	} else {
		data.Accounts = accounts
	}

	c.HTML(http.StatusOK, "session.html", data)
}

func (h *LoginHandlers) fail(c *gin.Context, err error) {
	status, msg := errorStatus(err)
	h.logFailure(c, status, err)
	c.JSON(status, gin.H{"error": msg})
}

func (h *LoginHandlers) logFailure(c *gin.Context, status int, err error) {
	_ = c.Error(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("bank call failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
}

// errorStatus maps an error to a status code and a message safe to show
func errorStatus(err error) (int, string) {
	var invalid *tinkoff.InvalidRequestDataError

	switch {
	case errors.Is(err, core.ErrInvalidToken):
		return http.StatusBadRequest, "Invalid confirmation token"
	case errors.Is(err, core.ErrTokenExpired):
		return http.StatusBadRequest, "Confirmation token expired"
	case errors.Is(err, core.ErrConfirmationConsumed):
		return http.StatusConflict, "Confirmation has already been used"
	case errors.Is(err, core.ErrMissingIdentity):
		return http.StatusBadRequest, "Missing identity"
	case errors.As(err, &invalid):
		if invalid.Message != "" {
			return http.StatusBadRequest, invalid.Message
		}
		return http.StatusBadRequest, "Invalid request data"
	case errors.Is(err, tinkoff.ErrInsufficientPrivileges):
		return http.StatusForbidden, "Insufficient privileges"
	case errors.Is(err, tinkoff.ErrConfirmationRequired):
		return http.StatusConflict, "Confirmation required"
	case errors.Is(err, tinkoff.ErrUnrecognizedResult), errors.Is(err, tinkoff.ErrTransport):
		return http.StatusBadGateway, "Bank is unavailable"
	default:
		return http.StatusInternalServerError, "Internal error"
	}
}
