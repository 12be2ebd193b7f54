package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"mediaklub/backend/internal/crew"
	"mediaklub/backend/internal/dto"
	"mediaklub/backend/internal/model"
	"mediaklub/backend/internal/repository"
)

// UserService 用户业务接口。
// GetDetails 满足 crew.ProfileFetcher，供编辑器添加组员时加载资料
type UserService interface {
	ListDetailed(ctx context.Context) ([]crew.Profile, error)
	GetDetails(ctx context.Context, id string) (*crew.Profile, error)
	GetByID(ctx context.Context, id string) (*dto.UserResponse, error)
	GetRoleStatistics(ctx context.Context, id string) (*dto.UserRoleStatisticsResponse, error)
}

type userService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewUserService 创建 UserService 实例
func NewUserService(repo *repository.Repository, logger *zap.Logger) UserService {
	return &userService{repo: repo, logger: logger}
}

// ────────────────────── ListDetailed ──────────────────────

func (s *userService) ListDetailed(ctx context.Context) ([]crew.Profile, error) {
	users, err := s.repo.User.ListActive(ctx)
	if err != nil {
		s.logger.Error("列出用户失败", zap.Error(err))
		return nil, err
	}

	profiles := make([]crew.Profile, 0, len(users))
	for i := range users {
		profiles = append(profiles, toProfile(&users[i]))
	}
	return profiles, nil
}

// ────────────────────── GetDetails ──────────────────────

func (s *userService) GetDetails(ctx context.Context, id string) (*crew.Profile, error) {
	user, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}
	p := toProfile(user)
	return &p, nil
}

// ────────────────────── GetByID ──────────────────────

func (s *userService) GetByID(ctx context.Context, id string) (*dto.UserResponse, error) {
	user, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toUserResponse(user)
	return &resp, nil
}

// ────────────────────── GetRoleStatistics ──────────────────────

func (s *userService) GetRoleStatistics(ctx context.Context, id string) (*dto.UserRoleStatisticsResponse, error) {
	if _, err := s.getUser(ctx, id); err != nil {
		return nil, err
	}

	stats, err := s.repo.Assignment.RoleStatisticsByUser(ctx, id)
	if err != nil {
		s.logger.Error("查询角色统计失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	resp := &dto.UserRoleStatisticsResponse{
		UserID:         id,
		RoleStatistics: make([]dto.RoleStatisticResponse, 0, len(stats)),
	}
	var top int64
	for _, st := range stats {
		item := dto.RoleStatisticResponse{
			RoleID:         st.RoleID,
			RoleName:       st.RoleName,
			Count:          st.Count,
			FinalizedCount: st.FinalizedCount,
		}
		if st.LastDate != nil {
			item.LastDate = st.LastDate.Format(dateLayout)
		}
		resp.RoleStatistics = append(resp.RoleStatistics, item)

		resp.Summary.TotalAssignments += st.Count
		resp.Summary.TotalFinalized += st.FinalizedCount
		if st.Count > top {
			top = st.Count
			resp.Summary.MostFrequentRole = st.RoleName
		}
	}
	resp.Summary.DistinctRoles = len(stats)
	return resp, nil
}

// ── 内部辅助方法 ──

func (s *userService) getUser(ctx context.Context, id string) (*model.User, error) {
	user, err := s.repo.User.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return user, nil
}

// toProfile 将 model.User 转换为编辑器使用的学生资料
func toProfile(user *model.User) crew.Profile {
	p := crew.Profile{
		ID:        user.UserID,
		Username:  user.Username,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		FullName:  user.FullName,
		Email:     user.Email,
		Phone:     user.Phone,
		ClassName: user.ClassName,
	}
	if user.Stab != nil {
		p.StabName = user.Stab.Name
	}
	return p
}

// toUserResponse 将 model.User 转换为 dto.UserResponse
func toUserResponse(user *model.User) dto.UserResponse {
	var stab *dto.StabResponse
	if user.Stab != nil {
		stab = &dto.StabResponse{ID: user.Stab.StabID, Name: user.Stab.Name}
	}
	return dto.UserResponse{
		ID:        user.UserID,
		Username:  user.Username,
		FullName:  toProfile(user).DisplayName(),
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
		Phone:     user.Phone,
		ClassName: user.ClassName,
		Role:      user.Role,
		Stab:      stab,
	}
}
