// Package user 用户接口的请求/响应结构
package user

import (
	"time"

	"github.com/dukeofgo/librarius/internal/domain"
	"github.com/dukeofgo/librarius/internal/feature/book"
)

// Profile 用户可自行维护的资料
type Profile struct {
	Name string `json:"name" binding:"required,min=1,max=64"`
	Age  *int   `json:"age" binding:"omitempty,min=0,max=150"`
}

// Flags 只有管理员能改
type Flags struct {
	IsActive   bool `json:"is_active"`
	IsBorrower bool `json:"is_borrower"`
	IsMember   bool `json:"is_member"`
}

type RegisterReq struct {
	Email string `json:"email" binding:"required,email,max=191"`
	Profile
	Password string `json:"password" binding:"required,min=6,max=72"`
}

type UpdateReq struct {
	Name       *string `json:"name" binding:"omitempty,min=1,max=64"`
	Age        *int    `json:"age" binding:"omitempty,min=0,max=150"`
	Password   *string `json:"password" binding:"omitempty,min=6,max=72"`
	Status     *string `json:"status" binding:"omitempty,oneof=superuser admin user"`
	IsActive   *bool   `json:"is_active"`
	IsBorrower *bool   `json:"is_borrower"`
	IsMember   *bool   `json:"is_member"`
}

func (r *UpdateReq) Patch() domain.UserPatch {
	p := domain.UserPatch{
		Name:       r.Name,
		Age:        r.Age,
		Password:   r.Password,
		IsActive:   r.IsActive,
		IsBorrower: r.IsBorrower,
		IsMember:   r.IsMember,
	}
	if r.Status != nil {
		role := domain.Role(*r.Status)
		p.Status = &role
	}
	return p
}

type Resp struct {
	ID    uint   `json:"id"`
	Email string `json:"email"`
	Profile
	Status domain.Role `json:"status"`
	Flags
	RegisteredDate string    `json:"registered_date"`
	CreatedAt      time.Time `json:"createdAt"`
}

func FromDomain(u *domain.User) Resp {
	return Resp{
		ID:             u.ID,
		Email:          u.Email,
		Profile:        Profile{Name: u.Name, Age: u.Age},
		Status:         u.Status,
		Flags:          Flags{IsActive: u.IsActive, IsBorrower: u.IsBorrower, IsMember: u.IsMember},
		RegisteredDate: time.Time(u.RegisteredDate).Format("2006-01-02"),
		CreatedAt:      u.CreatedAt,
	}
}

// BorrowedResp 用户当前借阅
type BorrowedResp struct {
	Email         string      `json:"email"`
	BorrowedBooks []book.Resp `json:"borrowed_books"`
}

type ListQuery struct {
	Offset int    `form:"offset" binding:"min=0"`
	Limit  int    `form:"limit" binding:"min=0,max=100"`
	Q      string `form:"q" binding:"max=64"`
}

type ListResp struct {
	Total int64  `json:"total"`
	Items []Resp `json:"items"`
}

// Metadata 令牌中的身份信息
type Metadata struct {
	Email  string      `json:"email"`
	Scope  domain.Role `json:"scope"`
	IsAuth bool        `json:"isAuth"`
}

// TokenReq OAuth2 password 表单：username 即邮箱
type TokenReq struct {
	Username string `form:"username" binding:"required"`
	Password string `form:"password" binding:"required"`
}

type RefreshReq struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}
