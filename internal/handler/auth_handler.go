package handler

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/keyprice_api/internal/utils"
)

// AdminLoginer is implemented by service.AdminAuthService.
type AdminLoginer interface {
	Login(ctx context.Context, email, password string) (string, error)
}

type AuthHandler struct {
	authService AdminLoginer
}

func NewAuthHandler(authService AdminLoginer) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body")
		return
	}

	token, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, utils.ErrInactiveAdmin) {
			utils.Error(c, 403, "ACCOUNT_INACTIVE", "Account is inactive")
			return
		}
		utils.Error(c, 401, "INVALID_CREDENTIALS", "Invalid credentials")
		return
	}

	utils.Success(c, 200, "Login successful", gin.H{
		"token": token,
	})
}
