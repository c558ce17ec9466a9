package chat

import (
	"errors"
	"sync"
)

// ErrSendInFlight 同一会话同一时刻只允许一轮发送
var ErrSendInFlight = errors.New("a send is already in progress")

// SessionState 会话状态机的可见阶段
type SessionState string

const (
	StateIdle             SessionState = "idle"
	StateSending          SessionState = "sending"
	StateReconciling      SessionState = "reconciling"
	StateConfirmingDelete SessionState = "confirming-delete"
)

// Session 单个用户会话的发送闸门
type Session struct {
	mu    sync.Mutex
	state SessionState
}

// NewSession 创建空闲状态的会话
func NewSession() *Session {
	return &Session{state: StateIdle}
}

// State 当前阶段
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// BeginSend 进入发送阶段，已有发送在途时拒绝
func (s *Session) BeginSend() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateSending || s.state == StateReconciling {
		return ErrSendInFlight
	}
	s.state = StateSending
	return nil
}

// BeginReconcile 发送阶段过渡到落库阶段
func (s *Session) BeginReconcile() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateSending {
		s.state = StateReconciling
	}
}

// EndSend 回到空闲，成功与失败都必须调用
func (s *Session) EndSend() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateIdle
}

// RequestDelete 进入删除确认阶段，发送在途时拒绝
func (s *Session) RequestDelete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle {
		return false
	}
	s.state = StateConfirmingDelete
	return true
}

// ResolveDelete 删除确认结束（无论确认还是取消）
func (s *Session) ResolveDelete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateConfirmingDelete {
		s.state = StateIdle
	}
}
