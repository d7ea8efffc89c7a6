package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dukeofgo/librarius/internal/domain"
	"github.com/dukeofgo/librarius/pkg/utils"
)

type IdentityService struct {
	store domain.Store
	now   func() time.Time
	log   *zap.Logger
}

func NewIdentityService(store domain.Store, now func() time.Time, log *zap.Logger) *IdentityService {
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &IdentityService{store: store, now: now, log: log}
}

type Registration struct {
	Email    string
	Name     string
	Age      *int
	Password string
}

func (s *IdentityService) Register(ctx context.Context, in Registration) (*domain.User, error) {
	return s.create(ctx, in, domain.RoleUser)
}

// CreateSuperuser 只给运维 CLI 用
func (s *IdentityService) CreateSuperuser(ctx context.Context, in Registration) (*domain.User, error) {
	return s.create(ctx, in, domain.RoleSuperuser)
}

func (s *IdentityService) create(ctx context.Context, in Registration, role domain.Role) (*domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, domain.Invalid("a valid email is required")
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, domain.Invalid("name is required")
	}
	if len(in.Password) < 6 {
		return nil, domain.Invalid("password must be at least 6 characters")
	}
	if in.Age != nil && (*in.Age < 0 || *in.Age > 150) {
		return nil, domain.Invalid("age out of range")
	}
	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, domain.Invalid("%s", err.Error())
	}
	u := domain.NewUser(email, in.Name, in.Age, hash, s.now())
	u.Status = role
	if err := s.store.Users().Create(ctx, u); err != nil {
		return nil, err
	}
	s.log.Info("user registered", zap.Uint("user_id", u.ID), zap.String("email", u.Email), zap.String("role", string(role)))
	return u, nil
}

// Authenticate 邮箱或密码错误统一返回 ErrInvalidCredentials
func (s *IdentityService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	u, err := s.store.Users().FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !utils.CheckPassword(password, u.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}
	if !u.IsActive {
		return nil, domain.ErrInactiveUser
	}
	return u, nil
}

func (s *IdentityService) Get(ctx context.Context, email string) (*domain.User, error) {
	return s.store.Users().FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
}

func (s *IdentityService) List(ctx context.Context, skip, limit int, q string) ([]domain.User, int64, error) {
	skip, limit = ClampPage(skip, limit)
	return s.store.Users().List(ctx, skip, limit, q)
}

// Update 普通用户只能改资料与密码；状态/标记位要求管理员，授予 superuser 要求 superuser
func (s *IdentityService) Update(ctx context.Context, actor domain.Principal, email string, p domain.UserPatch) (*domain.User, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if p.Privileged() && !actor.Role.Elevated() {
		return nil, domain.Forbidden("only admins may change status or flags")
	}
	if p.Status != nil && *p.Status == domain.RoleSuperuser && actor.Role != domain.RoleSuperuser {
		return nil, domain.Forbidden("only superusers may grant superuser")
	}
	var hash string
	if p.Password != nil {
		h, err := utils.HashPassword(*p.Password)
		if err != nil {
			return nil, domain.Invalid("%s", err.Error())
		}
		hash = h
	}
	u, err := s.Get(ctx, email)
	if err != nil {
		return nil, err
	}
	u, err = s.store.Users().Update(ctx, u.ID, p.Columns(hash))
	if err != nil {
		return nil, err
	}
	s.log.Info("user updated", zap.Uint("user_id", u.ID), zap.String("email", u.Email), zap.String("by", actor.Email))
	return u, nil
}

// SetRole 运维 CLI 用
func (s *IdentityService) SetRole(ctx context.Context, email string, role domain.Role) (*domain.User, error) {
	return s.Update(ctx, domain.Principal{Email: "cli", Role: domain.RoleSuperuser}, email, domain.UserPatch{Status: &role})
}

// Delete 仍有借阅的用户不能删
func (s *IdentityService) Delete(ctx context.Context, email string) error {
	err := s.store.Tx(ctx, func(tx domain.Store) error {
		u, err := tx.Users().FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
		if err != nil {
			return err
		}
		n, err := tx.Books().CountActiveLoans(ctx, u.ID)
		if err != nil {
			return err
		}
		if n > 0 {
			return domain.ErrActiveLoan
		}
		return tx.Users().Delete(ctx, u.ID)
	})
	if err != nil {
		return err
	}
	s.log.Info("user deleted", zap.String("email", email))
	return nil
}

// BorrowedBooks 反查当前借阅
func (s *IdentityService) BorrowedBooks(ctx context.Context, email string) ([]domain.Book, error) {
	u, err := s.Get(ctx, email)
	if err != nil {
		return nil, err
	}
	return s.store.Books().ListByBorrower(ctx, u.ID)
}
