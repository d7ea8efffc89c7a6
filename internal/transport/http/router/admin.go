package router

import (
	"github.com/gin-gonic/gin"

	"github.com/dukeofgo/librarius/internal/domain"
	mdw "github.com/dukeofgo/librarius/internal/transport/http/middleware"
)

// mountAdmin 管理端接口统一要求 admin/superuser
func mountAdmin(r *gin.Engine, reg *Registry) {
	admin := r.Group("/admin")
	admin.Use(mdw.RequireRole(domain.Elevated...))
	reg.MountAdmin(admin)
}
