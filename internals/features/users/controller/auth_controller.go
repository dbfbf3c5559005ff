package controller

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	dto "sekolahku_backend/internals/features/users/dto"
	service "sekolahku_backend/internals/features/users/service"
	helper "sekolahku_backend/internals/helpers"
)

type AuthController struct {
	DB *gorm.DB
}

func NewAuthController(db *gorm.DB) *AuthController {
	return &AuthController{DB: db}
}

const sessionCookieName = "sekolahku_session"
const csrfCookieName = "sekolahku_csrf"

/* ======================= LOGIN ======================= */
// POST /api/login
func (h *AuthController) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Invalid payload")
	}
	if err := validator.New().Struct(req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, err.Error())
	}

	user, err := service.Authenticate(h.DB, req.Handle, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) || errors.Is(err, service.ErrUserInactive) {
			return helper.JsonErrorKind(c, fiber.StatusUnauthorized, helper.KindUnauthenticated, err.Error())
		}
		return helper.JsonError(c, fiber.StatusInternalServerError, "Login failed")
	}

	scope, err := service.ResolveScope(h.DB, user.ID)
	if err != nil {
		return helper.JsonErrorKind(c, fiber.StatusForbidden, helper.KindForbidden, "No role profile assigned")
	}

	token, err := service.IssueAccessToken(user.ID, scope.Role)
	if err != nil {
		return helper.JsonError(c, fiber.StatusInternalServerError, "Could not issue session token")
	}

	// Session cookie restricted to this host plus a double-submit CSRF
	// cookie readable by the frontend.
	c.Cookie(&fiber.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		HTTPOnly: true,
		Secure:   true,
		SameSite: fiber.CookieSameSiteStrictMode,
		Expires:  time.Now().Add(12 * time.Hour),
	})
	c.Cookie(&fiber.Cookie{
		Name:     csrfCookieName,
		Value:    helper.NewCSRFToken(),
		Secure:   true,
		SameSite: fiber.CookieSameSiteStrictMode,
		Expires:  time.Now().Add(12 * time.Hour),
	})

	return helper.JsonOK(c, "Login successful", dto.LoginResponse{
		AccessToken: token,
		UserID:      user.ID.String(),
		UserName:    user.UserName,
		FullName:    user.FullName,
		Role:        scope.Role,
	})
}

/* ======================= LOGOUT ======================= */
// POST /api/u/logout
func (h *AuthController) Logout(c *fiber.Ctx) error {
	c.ClearCookie(sessionCookieName, csrfCookieName)
	return helper.JsonOK(c, "Logged out", nil)
}

/* ======================= SCOPE ======================= */
// GET /api/u/scope
func (h *AuthController) Scope(c *fiber.Ctx) error {
	scope, err := helper.GetScope(c)
	if err != nil {
		return err
	}
	return helper.JsonOK(c, "OK", scope)
}
