package auth

import (
	"slices"
	"strings"

	"github.com/dukeofgo/librarius/internal/domain"
)

// Check 角色是否在允许范围内；scopes 为空表示只要求已登录
func Check(p *domain.Principal, scopes ...domain.Role) error {
	if p == nil || p.Email == "" {
		return domain.ErrUnauthorized
	}
	if len(scopes) == 0 || slices.Contains(scopes, p.Role) {
		return nil
	}
	return domain.Forbidden("not enough permissions")
}

// ConfirmOwnership 管理员或资源本人
func ConfirmOwnership(p *domain.Principal, ownerEmail string) error {
	if p == nil || p.Email == "" {
		return domain.ErrUnauthorized
	}
	if p.Role.Elevated() || strings.EqualFold(p.Email, strings.TrimSpace(ownerEmail)) {
		return nil
	}
	return domain.Forbidden("operation not permitted on another user's record")
}
