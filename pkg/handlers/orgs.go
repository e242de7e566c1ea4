package handlers

import (
	"net/http"
	"strconv"

	"taskboard-backend/pkg/config"
	"taskboard-backend/pkg/logs"
	"taskboard-backend/pkg/services"
	"taskboard-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
)

// OrgsHandler 组织处理器（只读）
type OrgsHandler struct {
	config  *config.Config
	service *services.OrgService
}

// NewOrgsHandler 创建组织处理器
func NewOrgsHandler(cfg *config.Config, service *services.OrgService) *OrgsHandler {
	return &OrgsHandler{config: cfg, service: service}
}

// List 组织列表
// GET /api/orgs          平铺列表
// GET /api/orgs?tree=true 两层树（根组织带直接下级）
func (h *OrgsHandler) List(w http.ResponseWriter, r *http.Request) {
	if utils.GetQueryParam(r, "tree", "false") == "true" {
		tree, err := h.service.Tree()
		if err != nil {
			logs.Logger.WithError(err).Error("list organization tree failed")
			utils.WriteInternalServerErrorResponse(w, "Internal server error")
			return
		}
		utils.WriteSuccessResponse(w, tree)
		return
	}

	orgs, err := h.service.List()
	if err != nil {
		logs.Logger.WithError(err).Error("list organizations failed")
		utils.WriteInternalServerErrorResponse(w, "Internal server error")
		return
	}
	utils.WriteSuccessResponse(w, orgs)
}

// Children 指定组织的直接下级
// GET /api/orgs/{id}/children
func (h *OrgsHandler) Children(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "id")
	orgID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || orgID <= 0 {
		utils.WriteBadRequestResponse(w, "Invalid organization id")
		return
	}

	children, err := h.service.ChildrenOf(orgID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			utils.WriteNotFoundResponse(w, "Organization not found")
			return
		}
		logs.Logger.WithError(err).Error("list child organizations failed")
		utils.WriteInternalServerErrorResponse(w, "Internal server error")
		return
	}
	utils.WriteSuccessResponse(w, children)
}
