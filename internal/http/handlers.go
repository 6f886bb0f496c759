package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tazhibayda/event-service/internal/apperr"
	"github.com/tazhibayda/event-service/internal/auth"
	"github.com/tazhibayda/event-service/internal/domain"
	"github.com/tazhibayda/event-service/internal/event"
	"github.com/tazhibayda/event-service/internal/relay"
	"github.com/tazhibayda/event-service/internal/security"
)

type TokenVerifier interface {
	Verify(token string) (string, error)
}

type UserCache interface {
	GetUser(ctx context.Context, id string) (*domain.PublicUser, error)
	SetUser(ctx context.Context, u domain.PublicUser) error
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	Auth   *auth.Service
	Events *event.Service
	Tokens TokenVerifier
	Keys   *security.KeyManager
	Cache  UserCache // optional
	Store  Pinger
	Hub    *relay.Hub // optional

	UploadDir   string
	OTPLimiter  *RateLimiter
	TraceOn     bool
	ServiceName string
}

type registerReq struct {
	Name      string `json:"name"      binding:"required,min=3,max=50"`
	Email     string `json:"email"     binding:"required,email,min=5,max=50"`
	Password  string `json:"password"  binding:"required,min=8,max=50"`
	CPassword string `json:"cpassword" binding:"required"`
}

// Register godoc
// @Summary Register user
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body registerReq true "register"
// @Success 201 {object} Envelope
// @Failure 400 {object} Envelope
// @Router /api/auth/register [post]
func (h *Handler) Register(c *gin.Context) {
	var in registerReq
	if !bind(c, &in) {
		return
	}
	err := h.Auth.Register(c.Request.Context(), auth.RegisterRequest{
		Name: in.Name, Email: in.Email, Password: in.Password, ConfirmPassword: in.CPassword,
	})
	if err != nil {
		respondAuthErr(c, err)
		return
	}
	ok(c, http.StatusCreated, "User registered successfully", nil)
}

type verifyEmailReq struct {
	Email string  `json:"email" binding:"required,email"`
	OTP   OTPCode `json:"otp"   binding:"required"`
}

// VerifyEmail godoc
// @Summary Verify email with OTP
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body verifyEmailReq true "email and otp"
// @Success 200 {object} Envelope
// @Failure 400 {object} Envelope
// @Router /api/auth/verify-email [post]
func (h *Handler) VerifyEmail(c *gin.Context) {
	var in verifyEmailReq
	if !bind(c, &in) {
		return
	}
	if err := h.Auth.VerifyEmail(c.Request.Context(), in.Email, string(in.OTP)); err != nil {
		respondAuthErr(c, err)
		return
	}
	ok(c, http.StatusOK, "Email verified successfully", nil)
}

type emailReq struct {
	Email string `json:"email" binding:"required,email"`
}

// SendOTP godoc
// @Summary Send a fresh OTP
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body emailReq true "email"
// @Success 200 {object} Envelope
// @Failure 400 {object} Envelope
// @Router /api/auth/send-otp [post]
func (h *Handler) SendOTP(c *gin.Context) {
	var in emailReq
	if !bind(c, &in) {
		return
	}
	if err := h.Auth.ResendOTP(c.Request.Context(), in.Email); err != nil {
		respondAuthErr(c, err)
		return
	}
	ok(c, http.StatusOK, "OTP sent successfully", nil)
}

type loginReq struct {
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login godoc
// @Summary Login
// @Description Unverified accounts get a fresh OTP and a 400 carrying {email, name}.
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body loginReq true "login"
// @Success 200 {object} Envelope
// @Failure 400 {object} Envelope
// @Router /api/auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var in loginReq
	if !bind(c, &in) {
		return
	}
	res, err := h.Auth.Login(c.Request.Context(), in.Email, in.Password)
	if apperr.Is(err, apperr.Unverified) && res.Pending != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, Envelope{
			Success: false,
			Message: apperr.Message(err),
			Data:    res.Pending,
		})
		return
	}
	if err != nil {
		respondAuthErr(c, err)
		return
	}
	ok(c, http.StatusOK, "User logged in successfully", res.Session)
}

type resetPasswordReq struct {
	Email     string `json:"email"     binding:"required,email"`
	Password  string `json:"password"  binding:"required,min=8,max=50"`
	CPassword string `json:"cpassword" binding:"required,min=8,max=50"`
}

// ResetPassword godoc
// @Summary Reset password
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body resetPasswordReq true "email and new password"
// @Success 200 {object} Envelope
// @Failure 400 {object} Envelope
// @Router /api/auth/reset-password [post]
func (h *Handler) ResetPassword(c *gin.Context) {
	var in resetPasswordReq
	if !bind(c, &in) {
		return
	}
	err := h.Auth.ResetPassword(c.Request.Context(), auth.ResetPasswordRequest{
		Email: in.Email, Password: in.Password, ConfirmPassword: in.CPassword,
	})
	if err != nil {
		respondAuthErr(c, err)
		return
	}
	ok(c, http.StatusOK, "Password reset successfully", nil)
}

type guestLoginReq struct {
	BrowserID string `json:"browserId"`
}

// GuestLogin godoc
// @Summary Login as a guest bound to a browser id
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body guestLoginReq true "browserId"
// @Success 200 {object} Envelope
// @Failure 400 {object} Envelope
// @Router /api/auth/guest-login [post]
func (h *Handler) GuestLogin(c *gin.Context) {
	var in guestLoginReq
	if !bind(c, &in) {
		return
	}
	sess, err := h.Auth.GuestLogin(c.Request.Context(), in.BrowserID)
	if err != nil {
		respondAuthErr(c, err)
		return
	}
	ok(c, http.StatusOK, "Guest user logged in successfully", sess)
}

// ProfileDetails godoc
// @Summary Current user
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} Envelope
// @Failure 401 {object} Envelope
// @Router /api/auth/profile-details [get]
func (h *Handler) ProfileDetails(c *gin.Context) {
	u, err := h.Auth.Profile(c.Request.Context(), c.GetString(uidKey))
	if err != nil {
		respondAuthErr(c, err)
		return
	}
	ok(c, http.StatusOK, "User profile details fetched successfully", u)
}

func (h *Handler) Home(c *gin.Context) {
	c.String(http.StatusOK, "Hello World from Doux Event App")
}

func (h *Handler) Healthz(c *gin.Context) {
	if h.Store != nil {
		if err := h.Store.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) JWKS(c *gin.Context) {
	c.Header("Cache-Control", "public, max-age=300")
	c.JSON(http.StatusOK, h.Keys.JWKS())
}
