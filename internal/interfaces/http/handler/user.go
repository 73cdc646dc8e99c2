package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/infinity-9427/invoicing/internal/application/identity"
	"github.com/infinity-9427/invoicing/internal/interfaces/http/middleware"
)

// UserHandler serves user administration
type UserHandler struct {
	BaseHandler
	userService *identity.UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *identity.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// List godoc
// @ID           listUsers
// @Summary      List users
// @Description  Retrieve a paginated list of users, admin only
// @Tags         users
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        per_page query int false "Page size" default(20) maximum(100)
// @Param        sort_by query string false "Order by field" Enums(name, email, role, created_at)
// @Param        sort_order query string false "Order direction" Enums(asc, desc)
// @Param        search query string false "Search term (name, email)"
// @Param        role query string false "User role" Enums(admin, user)
// @Success      200 {object} dto.Response{data=[]identity.UserResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /users [get]
func (h *UserHandler) List(c *gin.Context) {
	var req identity.ListUsersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return
	}
	page, err := h.userService.List(c.Request.Context(), middleware.GetActor(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Paginated(c, page)
}

// ChangeRole godoc
// @ID           changeUserRole
// @Summary      Change user role
// @Description  Set a user's role, admin only
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        id path string true "User ID" format(uuid)
// @Param        request body identity.ChangeRoleRequest true "New role"
// @Success      200 {object} dto.Response{data=identity.UserResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /users/{id}/role [patch]
func (h *UserHandler) ChangeRole(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req identity.ChangeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	user, err := h.userService.ChangeRole(c.Request.Context(), middleware.GetActor(c), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, user)
}
