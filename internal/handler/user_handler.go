package handler

import (
	"errors"
	"net/http"
	"time"

	"tablesafe/backend/internal/models"
	"tablesafe/backend/internal/store"
	"tablesafe/backend/pkg/jwt"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// region --- DTOs ---

// RegisterInput defines the structure for user registration.
type RegisterInput struct {
	Username string `json:"username" binding:"required,username" example:"testuser"`
	Email    string `json:"email" binding:"required,email" example:"test@example.com"`
	Password string `json:"password" binding:"required,min=8,max=72" example:"password123"`
}

// LoginInput defines the structure for user login.
type LoginInput struct {
	Login    string `json:"login" binding:"required" example:"testuser"`
	Password string `json:"password" binding:"required" example:"password123"`
}

// TokenResponse carries a freshly issued JWT.
type TokenResponse struct {
	Token string `json:"token" example:"eyJhbGciOiJIUzI1NiIs..."`
}

// PrivateUserResponse defines the structure for the authenticated user's own profile.
type PrivateUserResponse struct {
	ID        uint      `json:"id" example:"1"`
	Username  string    `json:"username" example:"testuser"`
	Email     string    `json:"email" example:"test@example.com"`
	CreatedAt time.Time `json:"created_at"`
}

// PublicUserResponse is what other users may see of an account.
type PublicUserResponse struct {
	ID       uint   `json:"id" example:"1"`
	Username string `json:"username" example:"testuser"`
}

var registerMessages = bindMessages{
	"Username": {
		"required": "Username is required",
		"username": "Username must be 3-30 letters, digits, '_' or '-'",
	},
	"Email": {
		"required": "Email is required",
		"email":    "Email is invalid",
	},
	"Password": {
		"required": "Password is required",
		"min":      "Password must be at least 8 characters",
		"max":      "Password must be at most 72 characters",
	},
}

// endregion

// region --- Auth Handlers ---

// RegisterUser godoc
// @Summary      Register a new user
// @Description  Creates a new user and returns an authentication token.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        input body RegisterInput true "Registration Info"
// @Success      201  {object}  TokenResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /auth/register [post]
func RegisterUser(c *gin.Context) {
	var input RegisterInput
	if !bindJSON(c, &input, registerMessages, "Invalid registration data") {
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}

	user, err := dataStore().CreateUser(c.Request.Context(), input.Username, input.Email, string(hashedPassword))
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			c.JSON(http.StatusConflict, gin.H{"error": "Username or email already exists"})
			return
		}
		respondStoreError(c, err, "User not found")
		return
	}

	token, err := jwt.GenerateToken(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusCreated, TokenResponse{Token: token})
}

// LoginUser godoc
// @Summary      Log in a user
// @Description  Authenticates a user with username/email and password, and returns a new token.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        input body LoginInput true "Login Info"
// @Success      200  {object}  TokenResponse
// @Failure      400  {object}  ErrorResponse "Invalid input"
// @Failure      401  {object}  ErrorResponse "Invalid credentials"
// @Failure      500  {object}  ErrorResponse "Internal server error"
// @Router       /auth/login [post]
func LoginUser(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Login and password are required"})
		return
	}

	user, err := dataStore().FindUserByLogin(c.Request.Context(), input.Login)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		respondStoreError(c, err, "User not found")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, err := jwt.GenerateToken(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, TokenResponse{Token: token})
}

// endregion

// region --- User Handlers ---

// GetMe godoc
// @Summary      Get current user's info
// @Description  Retrieves the private profile for the currently authenticated user.
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  PrivateUserResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /users/me [get]
func GetMe(c *gin.Context) {
	user, err := dataStore().GetUser(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondStoreError(c, err, "User not found")
		return
	}

	c.JSON(http.StatusOK, buildPrivateUserResponse(*user))
}

// endregion

// region --- Helpers ---

func buildPrivateUserResponse(user models.User) PrivateUserResponse {
	return PrivateUserResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
	}
}

func buildPublicUserResponse(user models.User) PublicUserResponse {
	return PublicUserResponse{
		ID:       user.ID,
		Username: user.Username,
	}
}

// endregion
