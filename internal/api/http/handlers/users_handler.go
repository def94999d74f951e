package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/collab-service/internal/api/dto"
	"github.com/spec-kit/collab-service/internal/auth"
	"github.com/spec-kit/collab-service/internal/domain"
	"github.com/spec-kit/collab-service/internal/service"
	"github.com/spec-kit/collab-service/pkg/util"
)

// UsersHandler exposes account endpoints.
type UsersHandler struct {
	auth  *service.AuthService
	users *service.UserService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(authService *service.AuthService, userService *service.UserService) *UsersHandler {
	return &UsersHandler{auth: authService, users: userService}
}

// Register handles POST /api/v1/users.
func (h *UsersHandler) Register(c *fiber.Ctx) error {
	var req dto.UserRegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	user, token, exp, err := h.auth.Register(c.UserContext(), service.RegisterInput{
		Email:             req.Email,
		FullName:          req.FullName,
		Username:          req.Username,
		Password:          req.Password,
		Role:              domain.Role(req.Role),
		Timezone:          req.Timezone,
		Language:          req.Language,
		GroupID:           req.GroupID,
		ProfilePictureURL: req.ProfilePictureURL,
	})
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": fiber.Map{
			"user": dto.NewUserResponse(user),
			"auth": dto.AuthResponse{Token: token, ExpiresAt: exp},
		},
	})
}

// Login handles POST /api/v1/users/login.
func (h *UsersHandler) Login(c *fiber.Ctx) error {
	var req dto.UserLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Email == "" || req.Password == "" {
		return fiber.NewError(http.StatusBadRequest, "email and password required")
	}

	user, token, exp, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"user": dto.NewUserResponse(user),
			"auth": dto.AuthResponse{Token: token, ExpiresAt: exp},
		},
	})
}

// Get handles GET /api/v1/users/:user_id. The authorizer already loaded the
// user, so no second lookup is made.
func (h *UsersHandler) Get(c *fiber.Ctx) error {
	authCtx, ok := auth.FromContext(c)
	if !ok || authCtx.User == nil {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(authCtx.User)})
}

// ChangePassword handles PUT /api/v1/users/:user_id/password.
func (h *UsersHandler) ChangePassword(c *fiber.Ctx) error {
	var req dto.ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.OldPassword == "" || req.NewPassword == "" {
		return fiber.NewError(http.StatusBadRequest, "old_password and new_password required")
	}

	if err := h.auth.ChangePassword(c.UserContext(), c.Params(auth.SubjectParam), req.OldPassword, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"message": "password updated"}})
}

// UpdateProfilePicture handles PUT /api/v1/users/:user_id/profile-picture.
func (h *UsersHandler) UpdateProfilePicture(c *fiber.Ctx) error {
	var req dto.ProfilePictureRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	user, err := h.users.UpdateProfilePicture(c.UserContext(), c.Params(auth.SubjectParam), req.ProfilePictureURL)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// RevokeSessions handles POST /api/v1/users/:user_id/sessions/revoke.
func (h *UsersHandler) RevokeSessions(c *fiber.Ctx) error {
	if err := h.auth.RevokeSessions(c.UserContext(), c.Params(auth.SubjectParam)); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Directory handles GET /api/v1/users/:user_id/directory?page=&limit=.
func (h *UsersHandler) Directory(c *fiber.Ctx) error {
	page := util.ParsePage(c.Query("page"), c.Query("limit"))
	users, meta, err := h.users.List(c.UserContext(), page)
	if err != nil {
		return err
	}

	resp := dto.UserDirectoryResponse{Users: make([]dto.UserResponse, 0, len(users)), Pagination: meta}
	for i := range users {
		resp.Users = append(resp.Users, dto.NewUserResponse(&users[i]))
	}
	return c.JSON(fiber.Map{"data": resp})
}
