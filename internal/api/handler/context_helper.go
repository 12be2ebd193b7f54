package handler

import (
	"github.com/gin-gonic/gin"

	"mediaklub/backend/internal/service"
	"mediaklub/backend/pkg/jwt"
	"mediaklub/backend/pkg/response"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	return mustGetString(c, "user_id")
}

// MustGetRole 从 Gin 上下文中安全提取 role。
func MustGetRole(c *gin.Context) (string, bool) {
	return mustGetString(c, "role")
}

// MustGetOperator 组合 user_id 与 role 为 service.Operator
func MustGetOperator(c *gin.Context) (service.Operator, bool) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return service.Operator{}, false
	}
	role, ok := MustGetRole(c)
	if !ok {
		return service.Operator{}, false
	}
	return service.Operator{UserID: userID, Role: role}, true
}

// MustGetClaims 提取 JWT 中间件注入的完整声明（登出时需要 jti 与过期时间）
func MustGetClaims(c *gin.Context) (*jwt.Claims, bool) {
	v, exists := c.Get("claims")
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return nil, false
	}
	claims, ok := v.(*jwt.Claims)
	if !ok || claims == nil {
		response.Unauthorized(c, 10002, "未认证")
		return nil, false
	}
	return claims, true
}

func mustGetString(c *gin.Context, key string) (string, bool) {
	v, exists := c.Get(key)
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}
