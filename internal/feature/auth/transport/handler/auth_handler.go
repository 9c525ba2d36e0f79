// Package handler provides the HTTP handlers of the auth feature.
package handler

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"

	"auth_backend/internal/feature/auth/domain"
	"auth_backend/internal/feature/auth/domain/entity"
	"auth_backend/internal/feature/auth/transport/http/dto"
	"auth_backend/internal/feature/auth/usecase"
	jwtmw "auth_backend/internal/platform/jwt"
)

const (
	stateCookieName = "oauth_state"
	stateCookieTTL  = 10 * time.Minute
	stateCookiePath = "/auth/google"

	dashboardPath = "/dashboard"
	loginPath     = "/login"
)

// AuthUsecase is the façade the handlers drive. Defined by the consumer.
type AuthUsecase interface {
	Register(ctx context.Context, email, password, name string) (*usecase.AuthResult, error)
	Login(ctx context.Context, email, password string) (*usecase.AuthResult, error)
	LoginWithProvider(ctx context.Context, assertion entity.ProviderAssertion) (*usecase.AuthResult, error)
	CurrentUser(ctx context.Context, bearer string) (*entity.Identity, error)
	Logout(ctx context.Context, bearer string, everywhere bool) error
	IssueToken(ctx context.Context, bearer string) (string, time.Time, error)
}

// GoogleProvider verifies Google sign-in results.
type GoogleProvider interface {
	Enabled() bool
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (entity.ProviderAssertion, error)
	VerifyIDToken(ctx context.Context, credential string) (entity.ProviderAssertion, error)
}

// CookieConfig controls the session cookie.
type CookieConfig struct {
	Name string
	// Secure is set outside development.
	Secure bool
}

// AuthHandler handles HTTP requests for authentication operations.
type AuthHandler struct {
	auth   AuthUsecase
	google GoogleProvider
	cookie CookieConfig
	now    func() time.Time
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(auth AuthUsecase, google GoogleProvider, cookie CookieConfig) *AuthHandler {
	if cookie.Name == "" {
		cookie.Name = jwtmw.DefaultCookieName
	}
	return &AuthHandler{auth: auth, google: google, cookie: cookie, now: time.Now}
}

// statusFor maps an error kind to its HTTP status.
func statusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindUnauthorized:
		return http.StatusUnauthorized
	case domain.KindConflict, domain.KindIdentityConflict:
		return http.StatusConflict
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *AuthHandler) writeError(c *gin.Context, op string, err error) {
	kind := domain.KindOf(err)
	status := statusFor(kind)
	msg := domain.MessageOf(err)
	if status >= http.StatusInternalServerError {
		slog.Error(op+" failed", "kind", kind.String(), "error", err, "remote_addr", c.ClientIP())
	} else {
		slog.Warn(op+" rejected", "kind", kind.String(), "error", err, "remote_addr", c.ClientIP())
	}
	c.JSON(status, dto.ErrorRes{Error: msg})
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, token string, expiresAt time.Time) {
	maxAge := int(expiresAt.Sub(h.now()).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, token, maxAge, "/", "", h.cookie.Secure, true)
}

func (h *AuthHandler) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, "", -1, "/", "", h.cookie.Secure, true)
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.SignupReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Warn("register validation failed", "error", err, "remote_addr", c.ClientIP())
		c.JSON(http.StatusBadRequest, dto.ErrorRes{Error: "email and password are required"})
		return
	}
	res, err := h.auth.Register(c.Request.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		h.writeError(c, "register", err)
		return
	}
	h.setSessionCookie(c, res.Token, res.ExpiresAt)
	slog.Info("user registered", "user_id", res.User.ID, "remote_addr", c.ClientIP())
	c.JSON(http.StatusCreated, dto.UserRes{User: res.User})
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Warn("login validation failed", "error", err, "remote_addr", c.ClientIP())
		c.JSON(http.StatusBadRequest, dto.ErrorRes{Error: "email and password are required"})
		return
	}
	res, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(c, "login", err)
		return
	}
	h.setSessionCookie(c, res.Token, res.ExpiresAt)
	slog.Info("user login successful", "user_id", res.User.ID, "remote_addr", c.ClientIP())
	c.JSON(http.StatusOK, dto.UserRes{User: res.User})
}

// GoogleCredential handles POST /auth/google with an ID token from the sign-in button.
func (h *AuthHandler) GoogleCredential(c *gin.Context) {
	var req dto.GoogleCredentialReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Warn("google credential validation failed", "error", err, "remote_addr", c.ClientIP())
		c.JSON(http.StatusBadRequest, dto.ErrorRes{Error: "google credential is required"})
		return
	}
	assertion, err := h.google.VerifyIDToken(c.Request.Context(), req.Credential)
	if err != nil {
		h.writeError(c, "google credential", err)
		return
	}
	res, err := h.auth.LoginWithProvider(c.Request.Context(), assertion)
	if err != nil {
		h.writeError(c, "google login", err)
		return
	}
	h.setSessionCookie(c, res.Token, res.ExpiresAt)
	slog.Info("user google login successful", "user_id", res.User.ID, "remote_addr", c.ClientIP())
	c.JSON(http.StatusOK, dto.UserRes{User: res.User})
}

func newState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// GoogleStart handles GET /auth/google by redirecting to the consent page.
func (h *AuthHandler) GoogleStart(c *gin.Context) {
	if !h.google.Enabled() {
		c.JSON(http.StatusNotFound, dto.ErrorRes{Error: "google sign-in is not enabled"})
		return
	}
	state, err := newState()
	if err != nil {
		slog.Error("failed to generate oauth state", "error", err)
		c.JSON(http.StatusInternalServerError, dto.ErrorRes{Error: "internal error"})
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(stateCookieName, state, int(stateCookieTTL.Seconds()), stateCookiePath, "", h.cookie.Secure, true)
	c.Redirect(http.StatusTemporaryRedirect, h.google.AuthCodeURL(state))
}

func redirectLoginError(c *gin.Context, code string) {
	c.Redirect(http.StatusSeeOther, loginPath+"?error="+url.QueryEscape(code))
}

// GoogleCallback handles GET /auth/google/callback.
func (h *AuthHandler) GoogleCallback(c *gin.Context) {
	want, _ := c.Cookie(stateCookieName)
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(stateCookieName, "", -1, stateCookiePath, "", h.cookie.Secure, true)

	if e := c.Query("error"); e != "" {
		slog.Warn("google oauth error", "error", e, "remote_addr", c.ClientIP())
		redirectLoginError(c, "google_auth_failed")
		return
	}
	code := c.Query("code")
	if code == "" {
		redirectLoginError(c, "no_code")
		return
	}
	if want == "" || c.Query("state") != want {
		slog.Warn("google oauth state mismatch", "remote_addr", c.ClientIP())
		redirectLoginError(c, "invalid_state")
		return
	}

	assertion, err := h.google.Exchange(c.Request.Context(), code)
	if err != nil {
		slog.Warn("google code exchange failed", "error", err, "remote_addr", c.ClientIP())
		if errors.Is(err, domain.ErrUnavailable) {
			redirectLoginError(c, "provider_unavailable")
			return
		}
		redirectLoginError(c, "token_exchange_failed")
		return
	}

	res, err := h.auth.LoginWithProvider(c.Request.Context(), assertion)
	if err != nil {
		slog.Warn("google login failed", "error", err, "remote_addr", c.ClientIP())
		switch domain.KindOf(err) {
		case domain.KindIdentityConflict:
			redirectLoginError(c, "identity_conflict")
		case domain.KindUnavailable:
			redirectLoginError(c, "service_unavailable")
		default:
			redirectLoginError(c, "callback_failed")
		}
		return
	}

	h.setSessionCookie(c, res.Token, res.ExpiresAt)
	slog.Info("user google login successful", "user_id", res.User.ID, "remote_addr", c.ClientIP())
	c.Redirect(http.StatusSeeOther, dashboardPath)
}

// Logout handles POST /auth/logout. All sessions of the user are ended unless
// scope=current is given. The cookie is cleared in every case.
func (h *AuthHandler) Logout(c *gin.Context) {
	everywhere := c.Query("scope") != "current"
	bearer := jwtmw.BearerFromRequest(c, h.cookie.Name)

	h.clearSessionCookie(c)
	if err := h.auth.Logout(c.Request.Context(), bearer, everywhere); err != nil {
		h.writeError(c, "logout", err)
		return
	}
	c.JSON(http.StatusOK, dto.MessageRes{Message: "ok"})
}

// Me handles GET /auth/me. It runs behind jwtmw.AuthRequired.
func (h *AuthHandler) Me(c *gin.Context) {
	identity, ok := jwtmw.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, dto.ErrorRes{Error: "not authenticated"})
		return
	}
	c.JSON(http.StatusOK, dto.IdentityRes{User: identity})
}

// Token handles POST /auth/token. It runs behind jwtmw.AuthRequired and returns a stateless
// token for the same user.
func (h *AuthHandler) Token(c *gin.Context) {
	bearer := jwtmw.BearerFromRequest(c, h.cookie.Name)
	token, exp, err := h.auth.IssueToken(c.Request.Context(), bearer)
	if err != nil {
		h.writeError(c, "issue token", err)
		return
	}
	c.JSON(http.StatusOK, dto.TokenRes{Token: token, ExpiresAt: exp})
}
