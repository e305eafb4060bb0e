package domain

import (
	"context"
	"time"
)

type Role string

const (
	RoleUser       Role = "USER"
	RoleAdmin      Role = "ADMIN"
	RoleSuperAdmin Role = "SUPER_ADMIN"
)

// DefaultRoles 固定角色集合及描述（由 RoleRepository.EnsureDefaults 写入）
var DefaultRoles = map[Role]string{
	RoleUser:       "Default user role",
	RoleAdmin:      "Administrator role",
	RoleSuperAdmin: "Super Administrator role",
}

func (r Role) Valid() bool {
	_, ok := DefaultRoles[r]
	return ok
}

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	FullName     string    `json:"fullName"`
	Address      string    `json:"address"`
	PhoneNumber  string    `json:"phoneNumber"`
	ProfileImage string    `json:"profileImage,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// HasRole 判断用户角色是否在允许列表中；空列表表示不限角色
func (u *User) HasRole(allowed ...Role) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, r := range allowed {
		if u.Role == r {
			return true
		}
	}
	return false
}

type RoleDef struct {
	Name        Role
	Description string
}

type ListQuery struct {
	Offset      int
	Limit       int
	Q           string // email/fullName 模糊匹配
	WithDeleted bool
}

// UserRepository 凭据存储：查找不存在时返回 (nil, nil)
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	// ExistsByEmail 包含已软删的用户（邮箱唯一索引同样覆盖它们）
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	List(ctx context.Context, q ListQuery) ([]User, int64, error)
	Update(ctx context.Context, u *User) error
	SoftDelete(ctx context.Context, id string) (bool, error)
}

type RoleRepository interface {
	FindByName(ctx context.Context, name Role) (*RoleDef, error)
	EnsureDefaults(ctx context.Context) error
}

type ctxKey struct{}

// WithUser 把已解析的身份挂到请求 context
func WithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

func UserFromContext(ctx context.Context) (*User, bool) {
	u, ok := ctx.Value(ctxKey{}).(*User)
	return u, ok && u != nil
}
