package services

import (
	"fmt"
	"strings"
	"time"

	"chatorder-backend/apperr"
	"chatorder-backend/models"
)

// State 会话状态机
type State int

const (
	StateIdle State = iota
	StateDisambiguating
	StatePendingItemConfirm
	StateCartOpen
	StateAwaitingDeliveryChoice
	StateClosed
	StateExpired
	StateCancelled
)

var stateNames = [...]string{"idle", "disambiguating", "pending_item_confirm", "cart_open", "awaiting_delivery_choice", "closed", "expired", "cancelled"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal 结束态只保留到下一条消息
func (s State) Terminal() bool {
	return s == StateClosed || s == StateExpired || s == StateCancelled
}

// CartLine 购物车的一行
type CartLine struct {
	Product  models.Product
	Quantity int
}

func (l CartLine) UnitPrice() int64 {
	p, _ := l.Product.UnitPrice()
	return p
}

func (l CartLine) Subtotal() int64 {
	return l.UnitPrice() * int64(l.Quantity)
}

// Session 一个客户的会话，只由它所属的 mailbox 协程访问
type Session struct {
	Identity string
	State    State
	Lines    []CartLine

	// 同一时间最多一种待处理状态生效，由 State 决定哪组字段有意义
	choices   []models.Product
	choiceQty int
	pending   []CartLine

	Deadline   time.Time
	generation uint64
	timer      *time.Timer
	version    uint64 // 每次状态变更加一，用来决定是否重置计时器
}

func NewSession(identity string) *Session {
	return &Session{Identity: identity, State: StateIdle}
}

// Begin 处理新消息前调用，结束态回到空闲
func (s *Session) Begin() {
	if s.State.Terminal() {
		s.State = StateIdle
	}
}

func (s *Session) Subtotal() int64 {
	var total int64
	for _, l := range s.Lines {
		total += l.Subtotal()
	}
	return total
}

func (s *Session) Choices() []models.Product { return s.choices }
func (s *Session) Pending() []CartLine       { return s.pending }

// HasPending 当前是否有待用户回应的问题
func (s *Session) HasPending() bool {
	switch s.State {
	case StateDisambiguating, StatePendingItemConfirm, StateAwaitingDeliveryChoice:
		return true
	}
	return false
}

func (s *Session) clearPending() {
	s.version++
	s.choices = nil
	s.choiceQty = 0
	s.pending = nil
}

// precursor 放弃待处理状态后回到的状态
func (s *Session) precursor() State {
	if len(s.Lines) > 0 {
		return StateCartOpen
	}
	return StateIdle
}

// StartDisambiguation 记下候选和数量，等用户选编号
func (s *Session) StartDisambiguation(choices []models.Product, qty int) {
	s.clearPending()
	s.choices = choices
	s.choiceQty = qty
	s.State = StateDisambiguating
}

// ProposeItems 等用户确认要不要加入购物车
func (s *Session) ProposeItems(items []CartLine) {
	s.clearPending()
	s.pending = items
	s.State = StatePendingItemConfirm
}

// Pick 按 1 开始的编号选候选，数量沿用
func (s *Session) Pick(n int) (CartLine, error) {
	if s.State != StateDisambiguating {
		return CartLine{}, apperr.Validation("session.Pick", s.Identity, "no choice pending")
	}
	if n < 1 || n > len(s.choices) {
		return CartLine{}, apperr.Validation("session.Pick", s.Identity, "choice %d out of range 1..%d", n, len(s.choices))
	}
	line := CartLine{Product: s.choices[n-1], Quantity: s.choiceQty}
	s.ProposeItems([]CartLine{line})
	return line, nil
}

// DropPending 丢弃候选，购物车不动
func (s *Session) DropPending() {
	s.clearPending()
	s.State = s.precursor()
}

// AcceptPending 任何一件缺货就整批拒绝，回到之前的状态
func (s *Session) AcceptPending() ([]CartLine, error) {
	if s.State != StatePendingItemConfirm {
		return nil, apperr.Validation("session.AcceptPending", s.Identity, "nothing to confirm")
	}
	var missing []string
	for _, l := range s.pending {
		if !l.Product.InStock {
			missing = append(missing, l.Product.Name)
		}
	}
	if len(missing) > 0 {
		s.DropPending()
		return nil, apperr.New("session.AcceptPending", apperr.ErrCapacity, strings.Join(missing, ", "), nil)
	}
	added := s.pending
	s.Lines = append(s.Lines, added...)
	s.clearPending()
	s.State = StateCartOpen
	return added, nil
}

// RemoveLine 按 1 开始的编号删除，删空后回到空闲
func (s *Session) RemoveLine(n int) (CartLine, error) {
	if n < 1 || n > len(s.Lines) {
		return CartLine{}, apperr.Validation("session.RemoveLine", s.Identity, "line %d out of range 1..%d", n, len(s.Lines))
	}
	removed := s.Lines[n-1]
	s.Lines = append(s.Lines[:n-1:n-1], s.Lines[n:]...)
	s.clearPending()
	s.State = s.precursor()
	return removed, nil
}

func (s *Session) RequestDelivery() {
	s.clearPending()
	s.State = StateAwaitingDeliveryChoice
}

// Cancel 清空购物车，不可恢复；返回之前是否有东西可取消
func (s *Session) Cancel() bool {
	had := len(s.Lines) > 0 || s.HasPending()
	s.Lines = nil
	s.clearPending()
	if had {
		s.State = StateCancelled
	} else {
		s.State = StateIdle
	}
	return had
}

// Close 订单已落库
func (s *Session) Close() {
	s.Lines = nil
	s.clearPending()
	s.State = StateClosed
}

// Expire 只认当前代的定时器
func (s *Session) Expire(generation uint64) bool {
	if generation != s.generation || s.State.Terminal() {
		return false
	}
	s.Lines = nil
	s.clearPending()
	s.State = StateExpired
	s.stopTimer()
	return true
}

// Active 有购物车或待处理问题时需要计时
func (s *Session) Active() bool {
	return len(s.Lines) > 0 || s.HasPending()
}

func (s *Session) stopTimer() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
