package service

import (
	"context"

	"go.uber.org/zap"

	"mediaklub/backend/internal/crew"
	"mediaklub/backend/internal/repository"
)

// RoleService 拍摄角色业务接口
type RoleService interface {
	// List academicYear 为空时返回全部启用角色
	List(ctx context.Context, academicYear string) ([]crew.Role, error)
}

type roleService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewRoleService 创建 RoleService 实例
func NewRoleService(repo *repository.Repository, logger *zap.Logger) RoleService {
	return &roleService{repo: repo, logger: logger}
}

func (s *roleService) List(ctx context.Context, academicYear string) ([]crew.Role, error) {
	roles, err := s.repo.CrewRole.List(ctx, academicYear)
	if err != nil {
		s.logger.Error("列出拍摄角色失败", zap.String("academic_year", academicYear), zap.Error(err))
		return nil, err
	}

	result := make([]crew.Role, 0, len(roles))
	for _, r := range roles {
		result = append(result, crew.Role{ID: r.RoleID, Name: r.Name, AcademicYear: r.AcademicYear})
	}
	return result, nil
}
