package auth

import (
	"context"

	authsvc "helpmate-backend/internal/application/auth"
	usersvc "helpmate-backend/internal/application/user"
	"helpmate-backend/internal/domain"
	"helpmate-backend/internal/middleware"
	"helpmate-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Handlers holds dependencies for auth endpoints.
type Handlers struct {
	Accounts   *usersvc.Service
	UserFinder authsvc.UserFinder
	Rdb        *redis.Client
	Config     middleware.SessionConfig
}

// LoginRequest body.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func safeUser(u *domain.User) fiber.Map {
	return fiber.Map{
		"user_id":  u.UserID.String(),
		"fullname": u.Fullname,
		"email":    u.Email,
		"role":     u.Role,
	}
}

// startSession rotates the session id, stores the user and sets the cookie.
func (h *Handlers) startSession(c *fiber.Ctx, u *domain.User) error {
	sessionID := middleware.RegenerateSessionID(c)
	middleware.SetSessionUser(c, middleware.SessionUser{
		UserID:   u.UserID.String(),
		Fullname: u.Fullname,
		Email:    u.Email,
		Role:     u.Role,
	})
	if h.Rdb != nil {
		if err := h.Rdb.SAdd(context.Background(), middleware.UserSessionsPrefix+u.UserID.String(), sessionID).Err(); err != nil {
			return err
		}
	}
	cookie := middleware.SessionCookieConfig(h.Config)
	cookie.Value = "s:" + sessionID
	c.Cookie(&cookie)
	return nil
}

// Register POST /api/v1/auth/register: create the account and log it in.
func (h *Handlers) Register(c *fiber.Ctx) error {
	if h.Accounts == nil {
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	var in usersvc.RegisterInput
	if err := c.BodyParser(&in); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	u, err := h.Accounts.Register(c.UserContext(), in)
	if err != nil {
		return response.FromError(c, err)
	}
	if err := h.startSession(c, u); err != nil {
		return response.FromError(c, err)
	}
	log.Info().Str("user_id", u.UserID.String()).Str("role", u.Role).Msg("account registered")
	return response.SuccessCreated(c, "User created successfully", fiber.Map{"user": safeUser(u)}, nil)
}

// Login POST /api/v1/auth/login: authenticate, create session, track it per user, set cookie.
func (h *Handlers) Login(c *fiber.Ctx) error {
	if h.UserFinder == nil {
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Email and password are required", fiber.StatusBadRequest, nil)
	}
	if req.Email == "" || req.Password == "" {
		return response.Error(c, "Email and password are required", fiber.StatusBadRequest, nil)
	}

	user, err := h.UserFinder.FindByEmailAndPassword(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return response.FromError(c, err)
	}
	if err := h.startSession(c, user); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Login successful", fiber.Map{"user": safeUser(user)}, nil)
}

// Me GET /api/v1/auth/me: return current session user in standard success format.
func (h *Handlers) Me(c *fiber.Ctx) error {
	sessionUser := middleware.GetUser(c)
	p, err := authsvc.VerifyUser(sessionUser)
	if err != nil {
		log.Debug().Str("path", "/auth/me").
			Bool("session_id_present", middleware.GetSessionID(c) != "").
			Bool("session_user_nil", sessionUser == nil).
			Msg("auth/me: not authenticated")
		return response.Error(c, "Not authenticated", fiber.StatusUnauthorized, nil)
	}
	return response.Success(c, "Authenticated", fiber.Map{"user": fiber.Map{
		"user_id":  p.ID.String(),
		"fullname": p.Fullname,
		"email":    p.Email,
		"role":     p.Role,
	}}, nil)
}

// Logout DELETE /api/v1/auth/logout: untrack and delete the session, clear cookie.
func (h *Handlers) Logout(c *fiber.Ctx) error {
	sessionID := middleware.GetSessionID(c)
	ctx := context.Background()

	if h.Rdb != nil && sessionID != "" {
		if p := middleware.CurrentPrincipal(c); p != nil {
			_ = h.Rdb.SRem(ctx, middleware.UserSessionsPrefix+p.ID.String(), sessionID).Err()
		}
		_ = h.Rdb.Del(ctx, middleware.SessionRedisPrefix+sessionID).Err()
	}
	middleware.DestroySession(c)

	cookie := middleware.SessionCookieConfig(h.Config)
	cookie.MaxAge = -1
	c.Cookie(&cookie)

	return response.Success(c, "Logged out successfully", nil, nil)
}

// LogoutAll DELETE /api/v1/auth/sessions: end every session of the caller, this one included.
func (h *Handlers) LogoutAll(c *fiber.Ctx) error {
	p := middleware.CurrentPrincipal(c)
	if p == nil {
		return response.Error(c, "Not authenticated", fiber.StatusUnauthorized, nil)
	}
	if h.Rdb != nil {
		if err := middleware.DestroyUserSessions(c.UserContext(), h.Rdb, p.ID.String()); err != nil {
			return response.FromError(c, err)
		}
	}
	middleware.DestroySession(c)

	cookie := middleware.SessionCookieConfig(h.Config)
	cookie.MaxAge = -1
	c.Cookie(&cookie)
	return response.Success(c, "All sessions ended", nil, nil)
}
