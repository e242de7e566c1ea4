package services

import (
	"taskboard-backend/pkg/database"
	"taskboard-backend/pkg/models"

	"github.com/pkg/errors"
)

// OrgService 组织层级的只读查询。
// 层级最多两层：根组织（HQ）加一层分支组织。
type OrgService struct {
	db database.DatabaseInterface
}

// NewOrgService 创建组织服务
func NewOrgService(db database.DatabaseInterface) *OrgService {
	return &OrgService{db: db}
}

// List 返回全部组织（平铺，按 id 升序）
func (s *OrgService) List() ([]models.Organization, error) {
	orgs, err := s.db.ListOrganizations()
	if err != nil {
		return nil, errors.Wrap(err, "list organizations")
	}
	if orgs == nil {
		orgs = []models.Organization{}
	}
	return orgs, nil
}

// ChildrenOf 返回指定组织的直接下级
func (s *OrgService) ChildrenOf(parentID int64) ([]models.Organization, error) {
	if _, err := s.db.GetOrganization(parentID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, errors.Wrap(ErrNotFound, "organization")
		}
		return nil, errors.Wrap(err, "fetch organization")
	}

	children, err := s.db.ListChildOrganizations(parentID)
	if err != nil {
		return nil, errors.Wrap(err, "list child organizations")
	}
	if children == nil {
		children = []models.Organization{}
	}
	return children, nil
}

// Tree 把平铺的组织列表组装成两层树：顶层是没有上级的组织，
// 每个顶层节点带上它的直接下级。
func (s *OrgService) Tree() ([]models.OrganizationNode, error) {
	orgs, err := s.db.ListOrganizations()
	if err != nil {
		return nil, errors.Wrap(err, "list organizations")
	}

	childrenByParent := make(map[int64][]models.Organization)
	for _, o := range orgs {
		if o.ParentID != nil {
			childrenByParent[*o.ParentID] = append(childrenByParent[*o.ParentID], o)
		}
	}

	nodes := make([]models.OrganizationNode, 0, len(orgs))
	for _, o := range orgs {
		if o.ParentID != nil {
			continue
		}
		children := childrenByParent[o.ID]
		if children == nil {
			children = []models.Organization{}
		}
		nodes = append(nodes, models.OrganizationNode{
			Organization: o,
			Children:     children,
		})
	}
	return nodes, nil
}
