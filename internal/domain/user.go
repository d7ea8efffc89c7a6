package domain

import (
	"context"
	"strings"
	"time"

	"gorm.io/datatypes"
)

type Role string

const (
	RoleSuperuser Role = "superuser"
	RoleAdmin     Role = "admin"
	RoleUser      Role = "user"
)

// 网关常用的两组权限范围
var (
	AnyRole  = []Role{RoleUser, RoleAdmin, RoleSuperuser}
	Elevated = []Role{RoleAdmin, RoleSuperuser}
)

func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	switch r {
	case RoleSuperuser, RoleAdmin, RoleUser:
		return r, nil
	}
	return "", Invalid("unknown role %q", s)
}

func (r Role) Elevated() bool { return r == RoleAdmin || r == RoleSuperuser }

// Principal 当前请求的认证主体
type Principal struct {
	Email string
	Role  Role
}

type User struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	Email          string         `gorm:"uniqueIndex;size:191;not null" json:"email"`
	Name           string         `gorm:"size:64;not null" json:"name"`
	Age            *int           `json:"age"`
	PasswordHash   string         `gorm:"size:100;not null" json:"-"`
	Status         Role           `gorm:"size:16;not null" json:"status"`
	IsActive       bool           `gorm:"not null" json:"is_active"`
	IsBorrower     bool           `gorm:"not null" json:"is_borrower"`
	IsMember       bool           `gorm:"not null" json:"is_member"`
	RegisteredDate datatypes.Date `json:"registered_date"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

func (User) TableName() string { return "users" }

// NewUser 注册默认值：普通用户、已激活、非借阅者/会员
func NewUser(email, name string, age *int, passwordHash string, today time.Time) *User {
	return &User{
		Email:          strings.TrimSpace(email),
		Name:           strings.TrimSpace(name),
		Age:            age,
		PasswordHash:   passwordHash,
		Status:         RoleUser,
		IsActive:       true,
		RegisteredDate: DateOf(today),
	}
}

type UserRepository interface {
	Create(ctx context.Context, u *User) error
	FindByID(ctx context.Context, id uint) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context, offset, limit int, q string) ([]User, int64, error)
	Update(ctx context.Context, id uint, cols map[string]any) (*User, error)
	Delete(ctx context.Context, id uint) error
}
