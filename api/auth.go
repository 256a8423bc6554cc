package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"financas/config"
	"financas/database"
	"financas/middleware"
	"financas/models"
	"financas/service"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AuthHandler handles registration, login and credential management.
type AuthHandler struct {
	cfg          *config.Config
	emailService *service.EmailService
}

// NewAuthHandler creates an auth handler.
func NewAuthHandler(cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		cfg:          cfg,
		emailService: service.NewEmailService(&cfg.Email),
	}
}

// RegisterRequest is the registration payload.
type RegisterRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=100" example:"Maria Silva"`
	Email    string `json:"email" binding:"required,email" example:"maria@example.com"`
	Password string `json:"password" binding:"required,min=6,max=72" example:"password123"`
}

// LoginRequest is the login payload.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email" example:"maria@example.com"`
	Password string `json:"password" binding:"required" example:"password123"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	User  models.User `json:"user"`
	Token string      `json:"token"`
}

// Register creates an account and returns the user with a session token.
// @Summary Register a new user
// @Description Creates an account keyed by email and returns the user plus a JWT.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "registration data"
// @Success 200 {object} Response{data=AuthResponse} "registered"
// @Failure 400 {object} Response "validation error"
// @Failure 409 {object} Response "email already registered"
// @Router /api/v1/auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request: "+err.Error())
		return
	}

	var existing models.User
	if err := database.DB.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		Error(c, http.StatusConflict, "email already registered")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		InternalError(c, "hashing password failed")
		return
	}

	user := models.User{
		Name:     req.Name,
		Email:    req.Email,
		Password: string(hashed),
	}

	// two registrations can race past the existence check; the unique
	// index on email decides, and its violation still answers 409
	if err := database.DB.Create(&user).Error; err != nil {
		if isDuplicateKeyError(err) {
			Error(c, http.StatusConflict, "email already registered")
			return
		}
		InternalError(c, SafeErrorMessage(err, "creating user failed"))
		return
	}

	token, err := middleware.GenerateToken(user.ID, user.Email, h.cfg.JWT.ExpireTime)
	if err != nil {
		InternalError(c, "issuing token failed")
		return
	}

	Success(c, AuthResponse{User: user, Token: token})
}

// isDuplicateKeyError recognizes unique-index violations from the
// configured drivers.
func isDuplicateKeyError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}

// Login verifies credentials and returns the user with a session token.
// @Summary Log in
// @Description Verifies email and password and returns the user plus a JWT.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "login data"
// @Success 200 {object} Response{data=AuthResponse} "logged in"
// @Failure 400 {object} Response "validation error"
// @Failure 401 {object} Response "invalid credentials"
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request: "+err.Error())
		return
	}

	// unknown email and wrong password answer identically
	var user models.User
	if err := database.DB.Where("email = ?", req.Email).First(&user).Error; err != nil {
		Unauthorized(c, "invalid credentials")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		Unauthorized(c, "invalid credentials")
		return
	}

	token, err := middleware.GenerateToken(user.ID, user.Email, h.cfg.JWT.ExpireTime)
	if err != nil {
		InternalError(c, "issuing token failed")
		return
	}

	Success(c, AuthResponse{User: user, Token: token})
}

// GetProfile returns the authenticated user.
// @Summary Current user profile
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=models.User} "profile"
// @Failure 401 {object} Response "unauthorized"
// @Router /api/v1/auth/profile [get]
func (h *AuthHandler) GetProfile(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var user models.User
	if err := database.DB.First(&user, userID).Error; err != nil {
		NotFound(c, "user not found")
		return
	}

	Success(c, user)
}

// ChangePasswordRequest is the password change payload.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required" example:"oldpassword123"`
	NewPassword string `json:"new_password" binding:"required,min=6,max=72" example:"newpassword123"`
}

// ChangePassword rotates the authenticated user's password.
// @Summary Change password
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ChangePasswordRequest true "password data"
// @Success 200 {object} Response "changed"
// @Failure 400 {object} Response "validation error"
// @Failure 401 {object} Response "wrong current password"
// @Router /api/v1/auth/password [put]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request: "+err.Error())
		return
	}

	var user models.User
	if err := database.DB.First(&user, userID).Error; err != nil {
		NotFound(c, "user not found")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.OldPassword)); err != nil {
		Unauthorized(c, "wrong current password")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		InternalError(c, "hashing password failed")
		return
	}

	if err := database.DB.Model(&user).Update("password", string(hashed)).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "updating password failed"))
		return
	}

	SuccessWithMessage(c, "password changed", nil)
}

// RequestPasswordResetRequest asks for a reset code by email.
type RequestPasswordResetRequest struct {
	Email string `json:"email" binding:"required,email" example:"maria@example.com"`
}

// RequestPasswordReset emails a 6-digit reset code.
// Always answers 200 so account existence is not leaked.
// @Summary Request password reset
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RequestPasswordResetRequest true "reset request"
// @Success 200 {object} Response "code sent if account exists"
// @Failure 400 {object} Response "validation error"
// @Failure 429 {object} Response "too many requests"
// @Router /api/v1/auth/password/request-reset [post]
func (h *AuthHandler) RequestPasswordReset(c *gin.Context) {
	var req RequestPasswordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid email address")
		return
	}

	var user models.User
	if err := database.DB.Where("email = ?", req.Email).First(&user).Error; err != nil {
		SuccessWithMessage(c, "if the email is registered, a reset code has been sent", nil)
		return
	}

	// throttle: one unexpired code per minute
	var existing models.PasswordReset
	if err := database.DB.Where("user_id = ? AND used = ? AND expires_at > ?",
		user.ID, false, time.Now()).First(&existing).Error; err == nil {
		if time.Since(existing.CreatedAt) < time.Minute {
			Error(c, http.StatusTooManyRequests, "too many requests, try again later")
			return
		}
		database.DB.Model(&existing).Update("used", true)
	}

	code, err := models.GenerateResetCode()
	if err != nil {
		InternalError(c, "generating reset code failed")
		return
	}

	reset := models.PasswordReset{
		UserID:    user.ID,
		Code:      code,
		Email:     req.Email,
		ExpiresAt: time.Now().Add(10 * time.Minute),
	}

	if err := database.DB.Create(&reset).Error; err != nil {
		InternalError(c, "saving reset code failed")
		return
	}

	if err := h.emailService.SendPasswordResetEmail(req.Email, user.Name, code); err != nil {
		database.DB.Delete(&reset)
		InternalError(c, SafeErrorMessage(err, "sending email failed"))
		return
	}

	SuccessWithMessage(c, "if the email is registered, a reset code has been sent", nil)
}

// VerifyResetCodeRequest checks a reset code.
type VerifyResetCodeRequest struct {
	Email string `json:"email" binding:"required,email" example:"maria@example.com"`
	Code  string `json:"code" binding:"required,len=6" example:"123456"`
}

// VerifyResetCode validates a reset code without consuming it.
// @Summary Verify reset code
// @Tags auth
// @Accept json
// @Produce json
// @Param request body VerifyResetCodeRequest true "verification data"
// @Success 200 {object} Response "valid"
// @Failure 400 {object} Response "wrong or expired code"
// @Router /api/v1/auth/password/verify-code [post]
func (h *AuthHandler) VerifyResetCode(c *gin.Context) {
	var req VerifyResetCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request")
		return
	}

	var reset models.PasswordReset
	if err := database.DB.Where("email = ? AND code = ?", req.Email, req.Code).First(&reset).Error; err != nil {
		BadRequest(c, "wrong code")
		return
	}

	if !reset.IsValid() {
		if reset.Used {
			BadRequest(c, "code already used")
		} else {
			BadRequest(c, "code expired, request a new one")
		}
		return
	}

	SuccessWithMessage(c, "code valid", nil)
}

// ResetPasswordRequest sets a new password with a reset code.
type ResetPasswordRequest struct {
	Email       string `json:"email" binding:"required,email" example:"maria@example.com"`
	Code        string `json:"code" binding:"required,len=6" example:"123456"`
	NewPassword string `json:"new_password" binding:"required,min=6,max=72" example:"newpassword123"`
}

// ResetPassword consumes a reset code and sets the new password.
// @Summary Reset password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body ResetPasswordRequest true "reset data"
// @Success 200 {object} Response "password reset"
// @Failure 400 {object} Response "wrong or expired code"
// @Router /api/v1/auth/password/reset [post]
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request")
		return
	}

	var reset models.PasswordReset
	if err := database.DB.Where("email = ? AND code = ?", req.Email, req.Code).First(&reset).Error; err != nil {
		BadRequest(c, "wrong code")
		return
	}

	if !reset.IsValid() {
		if reset.Used {
			BadRequest(c, "code already used")
		} else {
			BadRequest(c, "code expired, request a new one")
		}
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		InternalError(c, "hashing password failed")
		return
	}

	if err := database.DB.Model(&models.User{}).Where("id = ?", reset.UserID).
		Update("password", string(hashed)).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "updating password failed"))
		return
	}

	// invalidate this and any other outstanding codes
	database.DB.Model(&models.PasswordReset{}).
		Where("user_id = ? AND used = ?", reset.UserID, false).
		Update("used", true)

	SuccessWithMessage(c, "password reset, log in with the new password", nil)
}
