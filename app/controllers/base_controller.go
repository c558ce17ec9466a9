package controllers

import (
	"errors"
	"net/http"

	"github.com/aihub/chat-go/internal/auth"
	"github.com/beego/beego/v2/server/web"
)

var jwtService *auth.JWTService

// InitAuth 注入凭证校验服务，必须在路由处理请求前调用
func InitAuth(service *auth.JWTService) {
	jwtService = service
}

// BaseController provides helpers for consistent JSON responses.
type BaseController struct {
	web.Controller
}

// JSON writes a JSON response with the supplied HTTP status code.
func (c *BaseController) JSON(status int, payload interface{}) {
	c.Ctx.Output.SetStatus(status)
	c.Data["json"] = payload
	c.ServeJSON()
}

// JSONSuccess writes a standard success envelope.
func (c *BaseController) JSONSuccess(data interface{}) {
	c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    data,
	})
}

// JSONError writes an error envelope with message.
func (c *BaseController) JSONError(status int, message string) {
	c.JSON(status, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

// authenticate 验证请求凭证并返回用户ID
// 验证失败时已写出401响应，调用方直接return即可
func (c *BaseController) authenticate() (uint, bool) {
	claims, err := jwtService.VerifyBearer(c.Ctx.Input.Header("Authorization"))
	if err != nil {
		if errors.Is(err, auth.ErrMissingToken) {
			c.JSONError(http.StatusUnauthorized, "authentication required")
		} else {
			c.JSONError(http.StatusUnauthorized, "invalid or expired token")
		}
		return 0, false
	}
	return claims.UserID, true
}
