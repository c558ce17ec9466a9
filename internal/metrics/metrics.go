package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ChatRequests 网关补全请求计数（按最终HTTP状态分类）
var ChatRequests = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "chat_gateway_requests_total",
		Help: "Total completion requests handled by the chat gateway",
	},
	[]string{"status"},
)

// NegotiationAttempts 上游请求形态协商尝试计数
var NegotiationAttempts = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "chat_negotiation_attempts_total",
		Help: "Upstream payload shape attempts by shape and outcome",
	},
	[]string{"shape", "outcome"},
)

// TurnsSent 客户端完成的对话轮次计数
var TurnsSent = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "chat_turns_total",
		Help: "Chat turns completed by outcome",
	},
	[]string{"outcome"},
)
