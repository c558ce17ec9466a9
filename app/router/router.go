package router

import (
	"github.com/aihub/chat-go/app/controllers"
	"github.com/aihub/chat-go/app/middleware"
	"github.com/beego/beego/v2/server/web"
)

// Init registers all routes. Must be called after config is loaded.
func Init() {
	web.Router("/", &controllers.RootController{}, "get:Index")
	web.Router("/health", &controllers.HealthController{}, "get:Health")
	web.Router("/metrics", &controllers.MetricsController{}, "get:Metrics")

	web.InsertFilter("/*", web.BeforeRouter, middleware.CORSMiddleware)

	// 补全网关路由
	chatController := &controllers.ChatController{}
	web.Router("/api/chat/completions", chatController, "post:Complete")
	web.Router("/api/chat/models", chatController, "get:Models")

	// 对话路由
	// 注意：具体路由必须在参数路由之前注册
	conversationController := &controllers.ConversationController{}
	web.Router("/api/conversations", conversationController, "get:List;post:Create")
	web.Router("/api/conversations/:id", conversationController, "get:Get;delete:Delete")
	web.Router("/api/conversations/:id/messages", conversationController, "get:Messages")
	web.Router("/api/conversations/:id/title", conversationController, "put:SetTitle")

	// 用户偏好路由
	preferenceController := &controllers.PreferenceController{}
	web.Router("/api/preferences", preferenceController, "get:Get;put:Update")
}
