package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"mediaklub/backend/config"
	"mediaklub/backend/internal/api/handler"
	"mediaklub/backend/internal/api/middleware"
	"mediaklub/backend/internal/model"
	"mediaklub/backend/pkg/jwt"
	"mediaklub/backend/pkg/redis"
)

const (
	defaultBodyLimit = 1 << 20
	importBodyLimit  = 6 << 20
)

// Setup 初始化并返回 Gin 路由引擎。rdb 可为 nil
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()

	// nil *redis.Client 不能直接放入接口
	var (
		blacklist middleware.TokenBlacklist
		limiter   middleware.RateLimiter
	)
	if rdb != nil {
		blacklist, limiter = rdb, rdb
	}

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	if cfg.Tracing.Enabled {
		r.Use(otelgin.Middleware(cfg.Tracing.ServiceName))
	}
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	if cfg.Metrics.Enabled {
		r.Use(middleware.Metrics())
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	rateLimit := func(n int) gin.HandlerFunc {
		if !cfg.RateLimit.Enabled {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimit(limiter, n, cfg.RateLimit.Window)
	}
	editors := middleware.RoleAuth(model.UserRoleAdmin, model.UserRoleEditor)
	admins := middleware.RoleAuth(model.UserRoleAdmin)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth")
		auth.Use(middleware.BodyLimit(defaultBodyLimit), rateLimit(cfg.RateLimit.LoginRequests))
		{
			auth.POST("/login", h.Auth.Login)
			auth.POST("/refresh", h.Auth.Refresh)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.BodyLimit(defaultBodyLimit), middleware.JWTAuth(jwtMgr, blacklist), rateLimit(cfg.RateLimit.Requests))
		{
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.Me)

			// 用户模块
			users := authorized.Group("/users")
			{
				users.GET("", editors, h.User.ListDetailed)
				users.GET("/me/calendar.ics", h.Calendar.MyCalendar)
				users.GET("/:id", editors, h.User.GetUser)
				users.GET("/:id/details", editors, h.User.GetDetails)
				users.GET("/:id/role-statistics", editors, h.User.GetRoleStatistics)
				users.GET("/:id/calendar.ics", editors, h.Calendar.UserCalendar)
			}

			// 拍摄角色
			authorized.GET("/roles", h.Role.ListRoles)

			// 拍摄场次 + 分配 + 组员编辑
			sessions := authorized.Group("/filming-sessions")
			{
				sessions.POST("", editors, h.Filming.CreateSession)
				sessions.GET("/:id", h.Filming.GetSession)
				sessions.GET("/:id/assignment", h.Assignment.GetWithAvailability)
				sessions.POST("/:id/assignment", editors, h.Assignment.CreateAssignment)
				sessions.GET("/:id/events", h.Events.Subscribe)

				crew := sessions.Group("/:id/crew")
				{
					crew.GET("", h.Crew.View)
					crew.POST("/edit", editors, h.Crew.EnterEdit)
					crew.DELETE("/edit", editors, h.Crew.CancelEdit)
					crew.POST("/members", editors, h.Crew.AddMember)
					crew.DELETE("/members/:student_id", editors, h.Crew.RemoveMember)
					crew.PUT("/members/:student_id/role", editors, h.Crew.ChangeRole)
					crew.POST("/commit", editors, h.Crew.Commit)
					crew.POST("/reopen", admins, h.Crew.Reopen)
					crew.POST("/done", editors, h.Crew.MarkDone)
				}
			}

			// 分配（整体替换写入）
			assignments := authorized.Group("/assignments")
			{
				assignments.PUT("/:id", editors, h.Assignment.UpdateAssignment)
				assignments.POST("/:id/done", editors, h.Assignment.MarkDone)
				assignments.POST("/:id/draft", admins, h.Assignment.MarkDraft)
				assignments.GET("/:id/absences", h.Assignment.ListAbsences)
				assignments.GET("/:id/change-logs", editors, h.Assignment.ListChangeLogs)
			}

			// 导出模块
			export := authorized.Group("/export")
			{
				export.GET("/crew", editors, h.Export.ExportCrew)
			}
		}

		// 电台节目导入（ICS 文件，单独的请求体上限）
		radio := v1.Group("/radio-sessions")
		radio.Use(middleware.BodyLimit(importBodyLimit), middleware.JWTAuth(jwtMgr, blacklist), rateLimit(cfg.RateLimit.Requests))
		{
			radio.POST("/import", admins, h.Calendar.ImportRadioSessions)
		}
	}

	return r
}
