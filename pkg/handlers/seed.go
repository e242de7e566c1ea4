package handlers

import (
	"net/http"

	"taskboard-backend/pkg/config"
	"taskboard-backend/pkg/database"
	"taskboard-backend/pkg/logs"
	"taskboard-backend/pkg/models"
	"taskboard-backend/pkg/utils"

	"golang.org/x/crypto/bcrypt"
)

// SeedHandler 开发/演示环境的种子数据
type SeedHandler struct {
	config *config.Config
	db     database.DatabaseInterface
}

// NewSeedHandler 创建种子数据处理器
func NewSeedHandler(cfg *config.Config, db database.DatabaseInterface) *SeedHandler {
	return &SeedHandler{config: cfg, db: db}
}

// seedPassword 所有演示账号的初始密码
const seedPassword = "password123"

// Seed 写入演示数据：总部+一个分支组织，四个覆盖全部角色组合的用户。
// 幂等：已有用户时直接跳过。
// POST /api/seed
func (h *SeedHandler) Seed(w http.ResponseWriter, r *http.Request) {
	count, err := h.db.CountUsers()
	if err != nil {
		logs.Logger.WithError(err).Error("seed precheck failed")
		utils.WriteInternalServerErrorResponse(w, "Seed failed")
		return
	}
	if count > 0 {
		utils.WriteSuccessResponse(w, map[string]interface{}{
			"seeded":  false,
			"message": "database already has users, skipping",
		})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(seedPassword), bcrypt.DefaultCost)
	if err != nil {
		logs.Logger.WithError(err).Error("seed password hashing failed")
		utils.WriteInternalServerErrorResponse(w, "Seed failed")
		return
	}

	// 总部组织（应与配置的 ROOT_ORG_ID 对应）
	hq := &models.Organization{Name: "Headquarters"}
	if err := h.db.CreateOrganization(hq); err != nil {
		logs.Logger.WithError(err).Error("seed hq organization failed")
		utils.WriteInternalServerErrorResponse(w, "Seed failed")
		return
	}
	if hq.ID != h.config.RootOrgID {
		logs.Logger.WithField("hq_id", hq.ID).
			WithField("root_org_id", h.config.RootOrgID).
			Warn("seeded HQ organization id does not match ROOT_ORG_ID")
	}

	branchParent := hq.ID
	branch := &models.Organization{Name: "Branch Office", ParentID: &branchParent}
	if err := h.db.CreateOrganization(branch); err != nil {
		logs.Logger.WithError(err).Error("seed branch organization failed")
		utils.WriteInternalServerErrorResponse(w, "Seed failed")
		return
	}

	users := []models.User{
		{Email: "hq_admin@test.com", Role: models.RoleAdmin, OrganizationID: hq.ID},
		{Email: "branch_owner@test.com", Role: models.RoleOwner, OrganizationID: branch.ID},
		{Email: "branch_admin@test.com", Role: models.RoleAdmin, OrganizationID: branch.ID},
		{Email: "branch_viewer@test.com", Role: models.RoleViewer, OrganizationID: branch.ID},
	}
	for i := range users {
		users[i].Password = string(hash)
		if err := h.db.CreateUser(&users[i]); err != nil {
			logs.Logger.WithError(err).WithField("email", users[i].Email).Error("seed user failed")
			utils.WriteInternalServerErrorResponse(w, "Seed failed")
			return
		}
	}

	logs.Logger.WithField("users", len(users)).Info("seed data created")

	utils.WriteCreatedResponse(w, map[string]interface{}{
		"seeded":        true,
		"organizations": []string{hq.Name, branch.Name},
		"users": []string{
			"hq_admin@test.com",
			"branch_owner@test.com",
			"branch_admin@test.com",
			"branch_viewer@test.com",
		},
	})
}
