package prefs

import (
	"context"
	"fmt"
	"sync"

	"github.com/aihub/chat-go/internal/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// redis键格式：chat:prefs:<user_id>:model / chat:prefs:<user_id>:web_search
const (
	modelKeyFmt     = "chat:prefs:%d:model"
	webSearchKeyFmt = "chat:prefs:%d:web_search"
)

// Preferences 单个用户的会话偏好
type Preferences struct {
	Model     string `json:"model"`
	WebSearch bool   `json:"web_search"`
}

// Service 用户偏好存取
// 偏好在会话开始时整体加载，每次变更立即写回；redis不可用时退化为进程内存储
type Service struct {
	client *redis.Client
	logger *zap.Logger

	mu    sync.RWMutex
	local map[uint]Preferences
}

// NewService 创建偏好服务，client可为nil
func NewService(client *redis.Client) *Service {
	return &Service{
		client: client,
		logger: logger.GetLogger(),
		local:  make(map[uint]Preferences),
	}
}

// Load 加载用户偏好，键不存在时返回零值偏好
func (s *Service) Load(ctx context.Context, userID uint) (Preferences, error) {
	if s.client == nil {
		s.mu.RLock()
		defer s.mu.RUnlock()
		return s.local[userID], nil
	}

	var p Preferences

	model, err := s.client.Get(ctx, fmt.Sprintf(modelKeyFmt, userID)).Result()
	if err != nil && err != redis.Nil {
		return p, fmt.Errorf("failed to load model preference: %w", err)
	}
	p.Model = model

	web, err := s.client.Get(ctx, fmt.Sprintf(webSearchKeyFmt, userID)).Result()
	if err != nil && err != redis.Nil {
		return p, fmt.Errorf("failed to load web search preference: %w", err)
	}
	p.WebSearch = web == "1"

	return p, nil
}

// SetModel 持久化模型选择
func (s *Service) SetModel(ctx context.Context, userID uint, model string) error {
	if s.client == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		p := s.local[userID]
		p.Model = model
		s.local[userID] = p
		return nil
	}

	if err := s.client.Set(ctx, fmt.Sprintf(modelKeyFmt, userID), model, 0).Err(); err != nil {
		return fmt.Errorf("failed to save model preference: %w", err)
	}
	s.logger.Debug("Saved model preference",
		zap.Uint("user_id", userID),
		zap.String("model", model))
	return nil
}

// SetWebSearch 持久化联网搜索开关
func (s *Service) SetWebSearch(ctx context.Context, userID uint, enabled bool) error {
	if s.client == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		p := s.local[userID]
		p.WebSearch = enabled
		s.local[userID] = p
		return nil
	}

	value := "0"
	if enabled {
		value = "1"
	}
	if err := s.client.Set(ctx, fmt.Sprintf(webSearchKeyFmt, userID), value, 0).Err(); err != nil {
		return fmt.Errorf("failed to save web search preference: %w", err)
	}
	s.logger.Debug("Saved web search preference",
		zap.Uint("user_id", userID),
		zap.Bool("enabled", enabled))
	return nil
}
