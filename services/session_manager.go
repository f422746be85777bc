package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

type job func(s *Session)

// actor 每个客户一个，串行执行该客户的所有任务
type actor struct {
	session *Session
	jobs    chan job
	pending int // 已提交未执行的任务数，由 SessionManager.mu 保护
	active  atomic.Bool
}

// SessionManager 按客户身份分派任务：同一客户 FIFO，不同客户并行。
// actor 空闲一段时间且没有进行中的购物车时退出，会话随之丢弃。
type SessionManager struct {
	mu     sync.Mutex
	actors map[string]*actor

	window time.Duration // 无操作过期时间
	idle   time.Duration // actor 空闲退出时间
	gen    atomic.Uint64
	now    func() time.Time
}

func NewSessionManager(window, idle time.Duration) *SessionManager {
	if idle <= 0 {
		idle = time.Minute
	}
	return &SessionManager{
		actors: make(map[string]*actor),
		window: window,
		idle:   idle,
		now:    time.Now,
	}
}

var errJobPanicked = errors.New("session job panicked")

type jobResult[T any] struct {
	v   T
	err error
}

// Submit 把 fn 排进客户队列后立即返回，返回的函数负责等待结果。
// 入队在调用方协程里同步完成，同一客户按调用顺序执行。
// 缓冲满时阻塞到有空位。
func Submit[T any](m *SessionManager, key string, fn func(s *Session) T) func(ctx context.Context) (T, error) {
	done := make(chan jobResult[T], 1)
	m.submit(key, func(s *Session) {
		defer func() {
			if r := recover(); r != nil {
				logrus.WithFields(logrus.Fields{"customer": key, "panic": fmt.Sprint(r)}).Error("❌ 会话任务崩溃")
				done <- jobResult[T]{err: errJobPanicked}
			}
		}()
		done <- jobResult[T]{v: fn(s)}
	})
	return func(ctx context.Context) (T, error) {
		select {
		case r := <-done:
			return r.v, r.err
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}

// Do 在客户自己的协程里执行 fn 并等待结果。
// ctx 取消只影响等待，已排队的任务仍会执行。
func Do[T any](ctx context.Context, m *SessionManager, key string, fn func(s *Session) T) (T, error) {
	return Submit(m, key, fn)(ctx)
}

func (m *SessionManager) submit(key string, j job) {
	m.mu.Lock()
	a, ok := m.actors[key]
	if !ok {
		a = &actor{session: NewSession(key), jobs: make(chan job, 32)}
		m.actors[key] = a
		go m.run(key, a)
	}
	a.pending++
	m.mu.Unlock()

	a.jobs <- j
}

func (m *SessionManager) run(key string, a *actor) {
	idle := time.NewTimer(m.idle)
	defer idle.Stop()

	for {
		select {
		case j := <-a.jobs:
			m.exec(key, a, j)
			m.mu.Lock()
			a.pending--
			m.mu.Unlock()

			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(m.idle)

		case <-idle.C:
			m.mu.Lock()
			if a.pending == 0 && !a.session.Active() {
				delete(m.actors, key)
				m.mu.Unlock()
				a.session.stopTimer()
				logrus.WithField("customer", key).Debug("💤 会话协程退出")
				return
			}
			m.mu.Unlock()
			idle.Reset(m.idle)
		}
	}
}

// exec 单个任务的 panic 不能拖垮这个客户的协程，更不能影响其他客户
func (m *SessionManager) exec(key string, a *actor, j job) {
	s := a.session
	before := s.version
	defer func() {
		if r := recover(); r != nil {
			logrus.WithFields(logrus.Fields{"customer": key, "panic": fmt.Sprint(r)}).Error("❌ 会话任务崩溃")
		}
		if s.version != before {
			if s.Active() {
				m.arm(key, s)
			} else {
				s.stopTimer()
			}
		}
		a.active.Store(s.Active())
	}()
	j(s)
}

// arm 每个会话只有一个计时器，重置时旧的作废
func (m *SessionManager) arm(key string, s *Session) {
	s.stopTimer()
	gen := m.gen.Add(1)
	s.generation = gen
	s.Deadline = m.now().Add(m.window)
	s.timer = time.AfterFunc(m.window, func() {
		m.submit(key, func(s *Session) {
			if s.Expire(gen) {
				logrus.WithField("customer", key).Info("⌛ 购物车超时已清空")
			}
		})
	})
}

// ActiveSessions 有购物车或待回应问题的客户数
func (m *SessionManager) ActiveSessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, a := range m.actors {
		if a.active.Load() {
			n++
		}
	}
	return n
}
