// internals/middlewares/auth/auth_middleware.go
package auth

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"sekolahku_backend/internals/configs"
	userModel "sekolahku_backend/internals/features/users/model"
	userService "sekolahku_backend/internals/features/users/service"
	helper "sekolahku_backend/internals/helpers"
)

const (
	SessionCookieName = "sekolahku_session"
	csrfCookieName    = "sekolahku_csrf"
)

// AuthMiddleware verifies the session token (bearer header or cookie),
// checks the user is still active, resolves the request Scope once and
// stores it in Locals. Scope resolution happening here is what lets every
// data-access path take a ready-made Scope instead of re-checking roles.
func AuthMiddleware(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString, fromCookie, err := extractToken(c)
		if err != nil {
			return helper.JsonErrorKind(c, fiber.StatusUnauthorized, helper.KindUnauthenticated, err.Error())
		}

		// Cookie-based sessions need the double-submit CSRF token on writes.
		if fromCookie && c.Method() != fiber.MethodGet && c.Method() != fiber.MethodHead {
			if c.Get("X-CSRF-Token") == "" || c.Get("X-CSRF-Token") != c.Cookies(csrfCookieName) {
				return helper.JsonErrorKind(c, fiber.StatusForbidden, helper.KindForbidden, "Missing or invalid CSRF token")
			}
		}

		secretKey := configs.JWTSecret
		if secretKey == "" {
			log.Println("[ERROR] JWT_SECRET is empty")
			return helper.JsonError(c, fiber.StatusInternalServerError, "Missing JWT secret")
		}

		claims := jwt.MapClaims{}
		parser := jwt.Parser{SkipClaimsValidation: true}
		if _, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			return []byte(secretKey), nil
		}); err != nil {
			return helper.JsonErrorKind(c, fiber.StatusUnauthorized, helper.KindUnauthenticated, "Invalid session token")
		}

		if err := validateTokenExpiry(claims, 30*time.Second); err != nil {
			return helper.JsonErrorKind(c, fiber.StatusUnauthorized, helper.KindUnauthenticated, "Session expired")
		}

		userID, err := extractUserID(claims)
		if err != nil {
			return helper.JsonErrorKind(c, fiber.StatusUnauthorized, helper.KindUnauthenticated, "Invalid or missing user ID")
		}
		c.Locals("user_id", userID.String())

		if err := ensureUserActive(db, userID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return helper.JsonErrorKind(c, fiber.StatusUnauthorized, helper.KindUnauthenticated, "User not found")
			}
			return helper.JsonErrorKind(c, fiber.StatusForbidden, helper.KindForbidden, "Account is deactivated")
		}

		scope, err := userService.ResolveScope(db, userID)
		if err != nil {
			if errors.Is(err, userService.ErrNoRoleProfile) {
				return helper.JsonErrorKind(c, fiber.StatusForbidden, helper.KindForbidden, "No role profile assigned")
			}
			log.Printf("[ERROR] scope resolve: %v", err)
			return helper.JsonError(c, fiber.StatusInternalServerError, "Internal Server Error")
		}
		helper.SetScope(c, scope)
		c.Locals("userRole", scope.Role)

		return c.Next()
	}
}

func extractToken(c *fiber.Ctx) (token string, fromCookie bool, err error) {
	authHeader := c.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer "), false, nil
	}
	if cookie := c.Cookies(SessionCookieName); cookie != "" {
		return cookie, true, nil
	}
	return "", false, errors.New("missing session token")
}

func extractUserID(claims jwt.MapClaims) (uuid.UUID, error) {
	sub, ok := claims["sub"].(string)
	if !ok {
		return uuid.Nil, errors.New("missing sub claim")
	}
	return uuid.Parse(sub)
}

func ensureUserActive(db *gorm.DB, userID uuid.UUID) error {
	var user userModel.UserModel
	if err := db.Select("id", "is_active").First(&user, "id = ?", userID).Error; err != nil {
		return err
	}
	if !user.IsActive {
		return errors.New("inactive")
	}
	return nil
}

// validateTokenExpiry allows a small clock skew.
func validateTokenExpiry(claims jwt.MapClaims, leeway time.Duration) error {
	expAny, ok := claims["exp"]
	if !ok {
		return errors.New("missing exp claim")
	}
	expFloat, ok := expAny.(float64)
	if !ok {
		return errors.New("malformed exp claim")
	}
	if time.Unix(int64(expFloat), 0).Add(leeway).Before(time.Now()) {
		return errors.New("token expired")
	}
	return nil
}
