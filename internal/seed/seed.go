// Package seed 从 YAML 文件导入初始的摄制组、拍摄角色与用户。
// 重复执行是安全的：已存在的记录按名称跳过。
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"mediaklub/backend/internal/model"
	"mediaklub/backend/internal/repository"
)

// ErrUnknownStab 用户引用了文件和数据库中都不存在的摄制组
var ErrUnknownStab = errors.New("引用的摄制组不存在")

// File 种子文件结构
type File struct {
	Stabs []StabSeed `yaml:"stabs" validate:"dive"`
	Roles []RoleSeed `yaml:"roles" validate:"dive"`
	Users []UserSeed `yaml:"users" validate:"dive"`
}

// StabSeed 摄制组
type StabSeed struct {
	Name        string `yaml:"name"        validate:"required,max=50"`
	Description string `yaml:"description"`
}

// RoleSeed 拍摄角色
type RoleSeed struct {
	Name         string `yaml:"name"          validate:"required,max=100"`
	Description  string `yaml:"description"`
	AcademicYear string `yaml:"academic_year" validate:"omitempty,len=9"`
}

// UserSeed 用户
type UserSeed struct {
	Username  string `yaml:"username"   validate:"required,max=50"`
	Password  string `yaml:"password"   validate:"required,min=8"`
	FirstName string `yaml:"first_name" validate:"required"`
	LastName  string `yaml:"last_name"  validate:"required"`
	Email     string `yaml:"email"      validate:"omitempty,email"`
	ClassName string `yaml:"class_name"`
	Role      string `yaml:"role"       validate:"required,oneof=admin editor student"`
	Stab      string `yaml:"stab"`
}

// Result 导入统计
type Result struct {
	Stabs   int `json:"stabs"`
	Roles   int `json:"roles"`
	Users   int `json:"users"`
	Skipped int `json:"skipped"`
}

var validate = validator.New()

// Load 解析并校验种子文件，未知字段视为错误
func Load(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return &f, nil
		}
		return nil, fmt.Errorf("解析种子文件失败: %w", err)
	}
	if err := validate.Struct(&f); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return nil, fmt.Errorf("种子文件校验失败: %s 不满足 %s 约束", fe.Namespace(), fe.Tag())
		}
		return nil, fmt.Errorf("种子文件校验失败: %w", err)
	}
	return &f, nil
}

// Seeder 执行导入
type Seeder struct {
	repo   *repository.Repository
	logger *zap.Logger
	cost   int
}

// NewSeeder 创建 Seeder
func NewSeeder(repo *repository.Repository, logger *zap.Logger) *Seeder {
	return &Seeder{repo: repo, logger: logger, cost: bcrypt.DefaultCost}
}

// Apply 按 摄制组 → 角色 → 用户 的顺序导入
func (s *Seeder) Apply(ctx context.Context, f *File) (*Result, error) {
	res := &Result{}

	// ── 摄制组 ──
	stabIDs := make(map[string]string, len(f.Stabs))
	for _, st := range f.Stabs {
		existing, err := s.repo.Stab.GetByName(ctx, st.Name)
		if err == nil {
			stabIDs[st.Name] = existing.StabID
			res.Skipped++
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("查询摄制组 %s 失败: %w", st.Name, err)
		}
		stab := &model.Stab{Name: st.Name, Description: st.Description, IsActive: true}
		if err := s.repo.Stab.Create(ctx, stab); err != nil {
			return nil, fmt.Errorf("创建摄制组 %s 失败: %w", st.Name, err)
		}
		stabIDs[st.Name] = stab.StabID
		res.Stabs++
	}

	// ── 拍摄角色 ──
	known, err := s.repo.CrewRole.List(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("查询拍摄角色失败: %w", err)
	}
	seen := make(map[string]bool, len(known))
	for _, r := range known {
		seen[roleKey(r.Name, r.AcademicYear)] = true
	}
	for _, rs := range f.Roles {
		var year *string
		if rs.AcademicYear != "" {
			y := rs.AcademicYear
			year = &y
		}
		key := roleKey(rs.Name, year)
		if seen[key] {
			res.Skipped++
			continue
		}
		role := &model.CrewRole{Name: rs.Name, Description: rs.Description, AcademicYear: year, IsActive: true}
		if err := s.repo.CrewRole.Create(ctx, role); err != nil {
			return nil, fmt.Errorf("创建拍摄角色 %s 失败: %w", rs.Name, err)
		}
		seen[key] = true
		res.Roles++
	}

	// ── 用户 ──
	for _, us := range f.Users {
		if _, err := s.repo.User.GetByUsername(ctx, us.Username); err == nil {
			res.Skipped++
			continue
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("查询用户 %s 失败: %w", us.Username, err)
		}

		user := &model.User{
			Username:  us.Username,
			FirstName: us.FirstName,
			LastName:  us.LastName,
			Email:     us.Email,
			ClassName: us.ClassName,
			Role:      us.Role,
			IsActive:  true,
		}
		if us.Stab != "" {
			id, err := s.resolveStab(ctx, stabIDs, us.Stab)
			if err != nil {
				return nil, fmt.Errorf("用户 %s: %w", us.Username, err)
			}
			user.StabID = &id
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(us.Password), s.cost)
		if err != nil {
			return nil, fmt.Errorf("生成密码哈希失败: %w", err)
		}
		user.PasswordHash = string(hash)

		if err := s.repo.User.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("创建用户 %s 失败: %w", us.Username, err)
		}
		res.Users++
	}

	s.logger.Info("种子数据导入完成",
		zap.Int("stabs", res.Stabs),
		zap.Int("roles", res.Roles),
		zap.Int("users", res.Users),
		zap.Int("skipped", res.Skipped),
	)
	return res, nil
}

func (s *Seeder) resolveStab(ctx context.Context, cache map[string]string, name string) (string, error) {
	if id, ok := cache[name]; ok {
		return id, nil
	}
	stab, err := s.repo.Stab.GetByName(ctx, name)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("%w: %s", ErrUnknownStab, name)
	}
	if err != nil {
		return "", err
	}
	cache[name] = stab.StabID
	return stab.StabID, nil
}

func roleKey(name string, year *string) string {
	if year == nil {
		return name + "|"
	}
	return name + "|" + *year
}
