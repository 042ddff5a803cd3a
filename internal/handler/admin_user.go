package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/alanwtom/carmodel/internal/middleware"
	"github.com/alanwtom/carmodel/internal/model"
)

// UserAdmin is the user repository as used by administrators.
type UserAdmin interface {
	GetByID(ctx context.Context, id uint64) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)
	Update(ctx context.Context, u *model.User) error
	SetActive(ctx context.Context, id uint64, active bool) error
	Delete(ctx context.Context, id uint64) error
}

// AdminUserHandler serves account management for administrators.
type AdminUserHandler struct {
	Users UserAdmin
}

func NewAdminUserHandler(u UserAdmin) *AdminUserHandler {
	if u == nil {
		panic("nil dependency passed to NewAdminUserHandler")
	}
	return &AdminUserHandler{Users: u}
}

type userResp struct {
	ID        uint64    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

type updateUserReq struct {
	Name  string `json:"name" validate:"required,max=100"`
	Email string `json:"email" validate:"required,email,max=120"`
	Phone string `json:"phone" validate:"required,min=10,max=20"`
	Role  string `json:"role" validate:"required,oneof=CUSTOMER ADMIN"`
}

func toUserResp(u model.User) userResp {
	return userResp{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Phone:     u.Phone,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}

// isSelf reports whether the administrator is acting on their own account.
func isSelf(c echo.Context, id uint64) bool {
	uid, ok := middleware.UserID(c)
	return ok && uid == id
}

// List GET /v1/admin/users
func (h *AdminUserHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	users, err := h.Users.List(ctx)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]userResp, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResp(u))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// ToggleActive POST /v1/admin/users/:id/toggle flips the active flag.
func (h *AdminUserHandler) ToggleActive(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	if isSelf(c, id) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot deactivate your own account"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	if err := h.Users.SetActive(ctx, id, !u.IsActive); err != nil {
		return writeError(c, err)
	}
	u.IsActive = !u.IsActive
	return c.JSON(http.StatusOK, toUserResp(*u))
}

// Update PUT /v1/admin/users/:id edits profile fields and the role.
func (h *AdminUserHandler) Update(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	var req updateUserReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Role = strings.ToUpper(strings.TrimSpace(req.Role))
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": errorMessage(err)})
	}
	if isSelf(c, id) && req.Role != model.RoleAdmin {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot remove your own admin role"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	u.Name, u.Email, u.Phone, u.Role = req.Name, req.Email, req.Phone, req.Role
	if err := h.Users.Update(ctx, u); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toUserResp(*u))
}

// Delete DELETE /v1/admin/users/:id removes an account.  Refused while the
// user holds active bookings.
func (h *AdminUserHandler) Delete(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	if isSelf(c, id) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot delete your own account"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Users.Delete(ctx, id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
