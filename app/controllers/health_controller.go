package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/aihub/chat-go/internal/database"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RootController 根控制器
type RootController struct {
	BaseController
}

func (c *RootController) Index() {
	c.JSONSuccess(map[string]string{"message": "Chat Service API"})
}

// HealthController 健康检查控制器
type HealthController struct {
	BaseController
}

// Health 探测数据库与Redis连通性
func (c *HealthController) Health() {
	ctx, cancel := context.WithTimeout(c.Ctx.Request.Context(), 3*time.Second)
	defer cancel()

	components := map[string]string{}
	healthy := true

	if db := database.DB; db != nil {
		if sqlDB, err := db.DB(); err == nil && sqlDB.PingContext(ctx) == nil {
			components["database"] = "healthy"
		} else {
			components["database"] = "unhealthy"
			healthy = false
		}
	} else {
		components["database"] = "not initialized"
		healthy = false
	}

	if rdb := database.RedisClient; rdb != nil {
		if err := rdb.Ping(ctx).Err(); err == nil {
			components["redis"] = "healthy"
		} else {
			components["redis"] = "unhealthy"
		}
	} else {
		components["redis"] = "not configured"
	}

	status := http.StatusOK
	state := "healthy"
	if !healthy {
		status = http.StatusServiceUnavailable
		state = "unhealthy"
	}
	c.JSON(status, map[string]interface{}{
		"status":     state,
		"components": components,
	})
}

// MetricsController 指标控制器
type MetricsController struct {
	BaseController
}

// Metrics 返回Prometheus格式的指标
func (c *MetricsController) Metrics() {
	promhttp.Handler().ServeHTTP(c.Ctx.ResponseWriter, c.Ctx.Request)
}
