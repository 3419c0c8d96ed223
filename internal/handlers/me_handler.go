package handlers

import (
	"github.com/gin-gonic/gin"

	domain "github.com/BruksfildServices01/clinic-scheduler/internal/domain/booking"
	"github.com/BruksfildServices01/clinic-scheduler/internal/httperr"
	"github.com/BruksfildServices01/clinic-scheduler/internal/httpresp"
	"github.com/BruksfildServices01/clinic-scheduler/internal/middleware"
)

type MeHandler struct {
	repo domain.Repository
}

func NewMeHandler(repo domain.Repository) *MeHandler {
	return &MeHandler{repo: repo}
}

type meUser struct {
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
	BranchID uint   `json:"branch_id"`
}

type meBranch struct {
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	Timezone string `json:"timezone"`
	Today    string `json:"today"`
}

type MeResponse struct {
	User   meUser   `json:"user"`
	Branch meBranch `json:"branch"`
}

func (h *MeHandler) GetMe(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uint)
	branchID := c.MustGet(middleware.ContextBranchID).(uint)

	user, err := h.repo.GetUserByID(c.Request.Context(), userID)
	if err != nil || user.BranchID != branchID {
		httperr.NotFound(c, "user_not_found", "Usuário não encontrado.")
		return
	}

	branch, err := h.repo.GetBranchByID(c.Request.Context(), branchID)
	if err != nil {
		httperr.NotFound(c, "branch_not_found", "Filial não encontrada.")
		return
	}

	httpresp.OK(c, MeResponse{
		User: meUser{
			ID:       user.ID,
			Name:     user.Name,
			Email:    user.Email,
			Phone:    user.Phone,
			Role:     user.Role,
			BranchID: user.BranchID,
		},
		Branch: meBranch{
			ID:       branch.ID,
			Name:     branch.Name,
			Slug:     branch.Slug,
			Phone:    branch.Phone,
			Address:  branch.Address,
			Timezone: locationFromBranch(branch).String(),
			Today:    todayInBranch(branch),
		},
	})
}
