package repo

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"go-gin-auth-profile/internal/domain"
	"go-gin-auth-profile/internal/feature/user"
)

type RoleRepo struct{ db *gorm.DB }

func NewRoleRepo(db *gorm.DB) *RoleRepo { return &RoleRepo{db: db} }

var _ domain.RoleRepository = (*RoleRepo)(nil)

func (r *RoleRepo) FindByName(ctx context.Context, name domain.Role) (*domain.RoleDef, error) {
	var m user.RoleModel
	err := r.db.WithContext(ctx).First(&m, "name = ?", string(name)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find role: %w", err)
	}
	return &domain.RoleDef{Name: domain.Role(m.Name), Description: m.Description}, nil
}

// EnsureDefaults 幂等写入固定角色
func (r *RoleRepo) EnsureDefaults(ctx context.Context) error {
	for _, name := range []domain.Role{domain.RoleUser, domain.RoleAdmin, domain.RoleSuperAdmin} {
		m := user.RoleModel{Name: string(name), Description: domain.DefaultRoles[name]}
		err := r.db.WithContext(ctx).Where(user.RoleModel{Name: m.Name}).FirstOrCreate(&m).Error
		if err != nil {
			return fmt.Errorf("seed role %s: %w", name, err)
		}
	}
	return nil
}
