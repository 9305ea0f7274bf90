package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/apgoswamieww-droid/expense-tracker/internal/errors"
	"github.com/apgoswamieww-droid/expense-tracker/internal/middleware"
	"github.com/apgoswamieww-droid/expense-tracker/internal/models"
	"github.com/apgoswamieww-droid/expense-tracker/internal/services"
)

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	userService  services.UserServicer
	auditService services.AuditServicer
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(userService services.UserServicer, auditService services.AuditServicer) *AuthHandler {
	return &AuthHandler{userService: userService, auditService: auditService}
}

// CredentialsRequest is the sign-up and sign-in payload.
type CredentialsRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=6,max=128"`
}

// SignInRequest relaxes the password rules so old accounts can still sign in.
type SignInRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse carries the new session.
type AuthResponse struct {
	AccessToken string          `json:"access_token"`
	User        models.Identity `json:"user"`
}

// UserResponse wraps the signed-in identity.
type UserResponse struct {
	User models.Identity `json:"user"`
}

// SignUp handles user registration
// @Summary     Sign up
// @Description Register a new account and open a session for it
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request body CredentialsRequest true "Account credentials"
// @Success     201 {object} AuthResponse "Account created and signed in"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     409 {object} ErrorResponse "Email already registered"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /auth/signup [post]
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	user, err := h.userService.CreateUser(req.Email, req.Password)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(user.ID, services.AuditSignUp, "user", user.ID, c.ClientIP(), nil)
	h.respondWithSession(c, http.StatusCreated, user)
}

// SignIn handles password sign-in
// @Summary     Sign in
// @Description Exchange email and password for an access token
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request body SignInRequest true "Account credentials"
// @Success     200 {object} AuthResponse "Signed in"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Invalid credentials"
// @Failure     423 {object} ErrorResponse "Account locked"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /auth/signin [post]
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	user, err := h.userService.AttemptLogin(req.Email, req.Password)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(user.ID, services.AuditSignIn, "user", user.ID, c.ClientIP(), nil)
	h.respondWithSession(c, http.StatusOK, user)
}

// SignOut ends the session and revokes every token issued for it
// @Summary     Sign out
// @Description Revoke the current session
// @Tags        auth
// @Security    BearerAuth
// @Success     204 "Signed out"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /auth/signout [post]
func (h *AuthHandler) SignOut(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if _, err := h.userService.RotateSession(userID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditSignOut, "user", userID, c.ClientIP(), nil)
	c.Status(http.StatusNoContent)
}

// GetUser returns the identity behind the access token
// @Summary     Current user
// @Description Get the signed-in user's identity
// @Tags        auth
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} UserResponse "Signed-in user"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /auth/user [get]
func (h *AuthHandler) GetUser(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	user, err := h.userService.GetUserByID(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, UserResponse{User: user.Identity()})
}

func (h *AuthHandler) respondWithSession(c *gin.Context, status int, user *models.User) {
	token, err := middleware.GenerateAccessToken(user)
	if err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInternalServer, err))
		return
	}
	c.JSON(status, AuthResponse{AccessToken: token, User: user.Identity()})
}
