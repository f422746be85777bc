package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"chatorder-backend/apperr"
	"chatorder-backend/catalog"
	"chatorder-backend/config"
	"chatorder-backend/logic"
	"chatorder-backend/models"
	"chatorder-backend/repositories"
)

// turn 一条消息在分派过程中的上下文
type turn struct {
	ctx     context.Context
	msg     models.InboundMessage
	session *Session
	norm    string
	words   []string

	resolution *catalog.Resolution // 商品短语规则的匹配结果，判定时算好
	barcode    bool
}

// rule 有序规则表的一项，先命中者处理
type rule struct {
	intent models.Intent
	match  func(t *turn) bool
	handle func(t *turn) models.Reply
}

type EngineDeps struct {
	Index     *catalog.Index
	Sessions  *SessionManager
	Finalizer *Finalizer
	Customers repositories.CustomerRepository
	Orders    repositories.OrderRepository
	BotState  repositories.BotStateRepository
	Responder Responder // 可为 nil
	Messenger Messenger
	Business  config.BusinessConfig
	Delivery  config.DeliveryConfig
	AIRetry   time.Duration
}

// Engine 对话下单的入口
type Engine struct {
	EngineDeps
	rules []rule
}

func NewEngine(d EngineDeps) *Engine {
	if d.Messenger == nil {
		d.Messenger = LogMessenger{}
	}
	e := &Engine{EngineDeps: d}
	// 顺序即优先级：待处理状态必须先于通用规则截住 "1"、"si" 这类短回复。
	// 老板指令在 Enqueue 里最先处理，因为它绕过暂停和忽略名单。
	e.rules = []rule{
		{models.IntentDisambiguation, e.matchDisambiguation, e.handleDisambiguation},
		{models.IntentConfirmItem, e.matchItemConfirm, e.handleItemConfirm},
		{models.IntentCartView, e.matchCartView, e.handleCartView},
		{models.IntentCartConfirm, e.matchCartConfirm, e.handleCartConfirm},
		{models.IntentCartCancel, e.matchCartCancel, e.handleCartCancel},
		{models.IntentCartRemove, e.matchCartRemove, e.handleCartRemove},
		{models.IntentDeliveryChoice, e.matchDeliveryChoice, e.handleDeliveryChoice},
		{models.IntentPhoto, e.matchPhoto, e.handlePhoto},
		{models.IntentCatalog, e.matchCatalog, e.handleCatalog},
		{models.IntentCategory, e.matchCategory, e.handleCategory},
		{models.IntentGreeting, e.matchGreeting, e.handleGreeting},
		{models.IntentFAQ, e.matchFAQ, e.handleFAQ},
		{models.IntentProduct, e.matchProduct, e.handleProduct},
		{models.IntentFallback, func(*turn) bool { return true }, e.handleFallback},
	}
	return e
}

func (e *Engine) isOwner(id string) bool {
	return e.Business.OwnerID != "" && id == e.Business.OwnerID
}

// HandleMessage 处理一条消息并返回回复；Silent 的回复不需要发送
func (e *Engine) HandleMessage(ctx context.Context, msg models.InboundMessage) (models.Reply, error) {
	return e.Enqueue(ctx, msg)(ctx)
}

// Replier 等待某条已入队消息的回复
type Replier func(ctx context.Context) (models.Reply, error)

func ready(reply models.Reply) Replier {
	return func(context.Context) (models.Reply, error) { return reply, nil }
}

// Enqueue 同步完成过滤和入队，返回等待回复的函数。
// 同一客户的消息按 Enqueue 的调用顺序处理，与何时等待无关。
func (e *Engine) Enqueue(ctx context.Context, msg models.InboundMessage) Replier {
	text := strings.TrimSpace(msg.Text)
	if e.isOwner(msg.CustomerID) && strings.HasPrefix(text, "/") {
		return ready(e.ownerCommand(ctx, text))
	}

	if e.gated(ctx, msg.CustomerID) {
		return ready(models.Reply{Silent: true, Intent: models.IntentIgnored})
	}

	if err := e.Customers.Touch(msg.CustomerID, time.Now()); err != nil {
		logrus.WithError(err).WithField("customer", msg.CustomerID).Warn("⚠️ 更新客户互动时间失败")
	}

	return Replier(Submit(e.Sessions, msg.CustomerID, func(s *Session) models.Reply {
		return e.dispatch(ctx, msg, s)
	}))
}

// HandleAndDeliver 同步入队后等待回复并经 Messenger 发出
func (e *Engine) HandleAndDeliver(ctx context.Context, msg models.InboundMessage) {
	e.Deliver(ctx, msg.CustomerID, e.Enqueue(ctx, msg))
}

// Deliver 等待回复后发出，发送失败只记日志
func (e *Engine) Deliver(ctx context.Context, customerID string, wait Replier) {
	reply, err := wait(ctx)
	if err != nil {
		logrus.WithError(err).WithField("customer", customerID).Error("❌ 消息处理失败")
		reply = models.Reply{Text: replyFailure}
	}
	if reply.Silent {
		return
	}
	if reply.MediaURL != "" {
		err = e.Messenger.SendMedia(ctx, customerID, reply.MediaURL, reply.Caption)
	} else {
		err = e.Messenger.SendText(ctx, customerID, reply.Text)
	}
	if err != nil {
		logrus.WithError(err).WithField("customer", customerID).Warn("⚠️ 回复发送失败")
	}
}

// gated 自动回复暂停或客户被忽略时不回复；查询失败按未拦截处理
func (e *Engine) gated(ctx context.Context, id string) bool {
	paused, err := e.BotState.IsPaused(ctx)
	if err != nil {
		logrus.WithError(err).Warn("⚠️ 读取暂停状态失败")
	}
	if paused {
		return true
	}
	ignored, err := e.BotState.IsIgnored(ctx, id)
	if err != nil {
		logrus.WithError(err).Warn("⚠️ 读取忽略名单失败")
	}
	return ignored
}

// dispatch 在客户自己的协程里运行
func (e *Engine) dispatch(ctx context.Context, msg models.InboundMessage, s *Session) (reply models.Reply) {
	defer func() {
		if r := recover(); r != nil {
			logrus.WithFields(logrus.Fields{"customer": msg.CustomerID, "panic": fmt.Sprint(r)}).Error("❌ 处理消息时崩溃")
			reply = models.Reply{Text: replyFailure, Intent: models.IntentFailure}
		}
	}()

	s.Begin()
	t := &turn{
		ctx:     context.WithoutCancel(ctx),
		msg:     msg,
		session: s,
		norm:    logic.Normalize(msg.Text),
		words:   logic.Words(msg.Text),
	}
	for _, r := range e.rules {
		if !r.match(t) {
			continue
		}
		reply = r.handle(t)
		reply.Intent = r.intent
		logrus.WithFields(logrus.Fields{
			"customer": msg.CustomerID,
			"intent":   r.intent,
			"state":    s.State.String(),
		}).Debug("💬 消息已处理")
		return reply
	}
	return models.Reply{Text: replyNotUnderstood, Intent: models.IntentFallback}
}

// ---- 2. 编号选择 ----

func (e *Engine) matchDisambiguation(t *turn) bool {
	if t.session.State != StateDisambiguating {
		return false
	}
	_, isNum := logic.ParseChoice(t.norm)
	return isNum || dropChoice[t.norm]
}

func (e *Engine) handleDisambiguation(t *turn) models.Reply {
	s := t.session
	n, ok := logic.ParseChoice(t.norm)
	if !ok {
		s.DropPending()
		return models.Reply{Text: replyChoiceDropped}
	}
	line, err := s.Pick(n)
	if err != nil {
		return models.Reply{Text: fmt.Sprintf("Elegí un número entre 1 y %d, o escribí \"ninguno\".", len(s.Choices()))}
	}
	return models.Reply{Text: proposalText([]CartLine{line})}
}

// ---- 3. 单品确认 ----

func (e *Engine) matchItemConfirm(t *turn) bool {
	return t.session.State == StatePendingItemConfirm && (isAffirmative(t.norm, t.words) || isNegative(t.norm, t.words))
}

func (e *Engine) handleItemConfirm(t *turn) models.Reply {
	s := t.session
	if isNegative(t.norm, t.words) {
		s.DropPending()
		return models.Reply{Text: "Ok, no lo agrego. ¿Querés algo más?"}
	}
	added, err := s.AcceptPending()
	if apperr.IsCapacity(err) {
		var ae *apperr.Error
		names := ""
		if errors.As(err, &ae) {
			names = ae.ID
		}
		return models.Reply{Text: fmt.Sprintf("Lo siento, no hay stock de: %s. No agregué nada, volvé a pedir sin esos productos.", names)}
	}
	if err != nil {
		return models.Reply{Text: replyNotUnderstood}
	}
	return models.Reply{Text: fmt.Sprintf("✅ Agregado (%d). %s\n\nEscribí \"confirmar\" para cerrar el pedido o seguí agregando productos.", len(added), e.cartText(s))}
}

// ---- 4. 购物车指令 ----

func (e *Engine) matchCartView(t *turn) bool { return cartViews[t.norm] }

func (e *Engine) handleCartView(t *turn) models.Reply {
	if len(t.session.Lines) == 0 {
		return models.Reply{Text: replyEmptyCart}
	}
	return models.Reply{Text: e.cartText(t.session)}
}

func (e *Engine) matchCartConfirm(t *turn) bool { return isConfirm(t.words) }

func (e *Engine) handleCartConfirm(t *turn) models.Reply {
	s := t.session
	if len(s.Lines) == 0 {
		return models.Reply{Text: replyEmptyCart}
	}
	if e.Delivery.Enabled {
		s.RequestDelivery()
		return models.Reply{Text: e.deliveryQuestion()}
	}
	return e.finalize(t, models.DeliveryNone)
}

func (e *Engine) matchCartCancel(t *turn) bool { return cancelPhrases[t.norm] }

func (e *Engine) handleCartCancel(t *turn) models.Reply {
	if t.session.Cancel() {
		return models.Reply{Text: "🗑️ Pedido cancelado. Cuando quieras empezamos de nuevo."}
	}
	return models.Reply{Text: "No tenés ningún pedido en curso."}
}

func (e *Engine) matchCartRemove(t *turn) bool {
	_, ok := removeIndex(t.words)
	return ok
}

func (e *Engine) handleCartRemove(t *turn) models.Reply {
	s := t.session
	if len(s.Lines) == 0 {
		return models.Reply{Text: replyEmptyCart}
	}
	n, _ := removeIndex(t.words)
	removed, err := s.RemoveLine(n)
	if err != nil {
		return models.Reply{Text: fmt.Sprintf("No existe el ítem %d. Tu carrito tiene %d ítems.", n, len(s.Lines))}
	}
	if len(s.Lines) == 0 {
		return models.Reply{Text: fmt.Sprintf("Quité %s. Tu carrito quedó vacío.", removed.Product.Name)}
	}
	return models.Reply{Text: fmt.Sprintf("Quité %s.\n%s", removed.Product.Name, e.cartText(s))}
}

// ---- 5. 配送方式 ----

func (e *Engine) matchDeliveryChoice(t *turn) bool {
	if t.session.State != StateAwaitingDeliveryChoice {
		return false
	}
	_, ok := logic.ParseChoice(t.norm)
	return ok
}

func (e *Engine) handleDeliveryChoice(t *turn) models.Reply {
	n, _ := logic.ParseChoice(t.norm)
	switch n {
	case 1:
		return e.finalize(t, models.DeliveryPickup)
	case 2:
		return e.finalize(t, models.DeliveryShipped)
	}
	return models.Reply{Text: "Respondé 1 para retirar en el local o 2 para envío a domicilio."}
}

func (e *Engine) finalize(t *turn, deliveryType models.DeliveryType) models.Reply {
	s := t.session
	order, err := e.Finalizer.Finalize(t.ctx, s.Identity, s.Lines, deliveryType)
	if err != nil {
		logrus.WithError(err).WithField("customer", s.Identity).Error("❌ 订单落库失败")
		s.DropPending()
		return models.Reply{Text: "No pudimos registrar tu pedido en este momento. Escribí \"confirmar\" para intentar de nuevo."}
	}
	s.Close()
	return models.Reply{Text: orderText(order)}
}

// ---- 6. 商品图片 ----

func (e *Engine) matchPhoto(t *turn) bool {
	_, ok := photoQuery(t.words)
	return ok
}

func (e *Engine) handlePhoto(t *turn) models.Reply {
	q, _ := photoQuery(t.words)
	if q == "" {
		return models.Reply{Text: "¿De qué producto querés ver la foto?"}
	}
	matches := e.Index.Search(q)
	if len(matches) == 0 {
		return models.Reply{Text: replyNotFound}
	}
	p := matches[0].Product
	caption := fmt.Sprintf("%s - %s", p.Name, logic.PriceLabel(p))
	if len(p.Images) == 0 {
		return models.Reply{Text: fmt.Sprintf("No tengo foto de %s todavía. %s", p.Name, caption)}
	}
	return models.Reply{Text: caption, MediaURL: p.Images[0], Caption: caption}
}

// ---- 7. 目录 ----

func (e *Engine) matchCatalog(t *turn) bool { return isCatalogRequest(t.norm, t.words) }

func (e *Engine) handleCatalog(t *turn) models.Reply {
	products := e.Index.Products()
	if len(products) == 0 {
		return models.Reply{Text: "Todavía no cargamos el catálogo."}
	}
	return models.Reply{Text: catalogText(products, catalogListLimit)}
}

// ---- 8. 分类名 ----

func (e *Engine) matchCategory(t *turn) bool {
	if len(t.words) == 0 || len(t.words) > 4 {
		return false
	}
	_, _, ok := e.findCategory(t.norm)
	return ok
}

func (e *Engine) findCategory(norm string) (string, []models.Product, bool) {
	for _, key := range []string{norm, norm + "s", strings.TrimSuffix(norm, "s")} {
		if name, products, ok := e.Index.FindCategory(key); ok {
			return name, products, true
		}
	}
	return "", nil, false
}

func (e *Engine) handleCategory(t *turn) models.Reply {
	name, products, _ := e.findCategory(t.norm)
	return models.Reply{Text: categoryText(name, products)}
}

// ---- 9. 问候 ----

func (e *Engine) matchGreeting(t *turn) bool { return isGreeting(t.words) }

func (e *Engine) handleGreeting(t *turn) models.Reply {
	return models.Reply{Text: logic.GenerateGreeting(e.Business.Name)}
}

// ---- 10. 常见问题 ----

func (e *Engine) matchFAQ(t *turn) bool {
	return anyWord(t.words, faqHours) || anyWord(t.words, faqPlace) ||
		anyWord(t.words, faqPayment) || anyWord(t.words, faqContact)
}

func (e *Engine) handleFAQ(t *turn) models.Reply {
	b := e.Business
	var parts []string
	if anyWord(t.words, faqHours) && b.Hours != "" {
		parts = append(parts, "🕘 Horarios: "+b.Hours)
	}
	if anyWord(t.words, faqPlace) && b.Address != "" {
		parts = append(parts, "📍 Estamos en "+b.Address)
	}
	if anyWord(t.words, faqPayment) && b.Payment != "" {
		parts = append(parts, "💳 Medios de pago: "+b.Payment)
	}
	if anyWord(t.words, faqContact) && b.Contact != "" {
		parts = append(parts, "📞 "+b.Contact)
	}
	if len(parts) == 0 {
		return models.Reply{Text: replyNotUnderstood}
	}
	return models.Reply{Text: strings.Join(parts, "\n")}
}

// ---- 11. 商品短语 ----

func (e *Engine) matchProduct(t *turn) bool {
	if isBarcode(t.words) {
		t.barcode = true
		return true
	}
	res := catalog.Resolve(e.Index.Search(t.msg.Text))
	t.resolution = &res
	return !res.Empty()
}

func (e *Engine) handleProduct(t *turn) models.Reply {
	s := t.session
	if t.barcode {
		p, err := e.Index.LookupByBarcode(t.words[0])
		if err != nil {
			return models.Reply{Text: replyNotFound}
		}
		line := CartLine{Product: p, Quantity: 1}
		s.ProposeItems([]CartLine{line})
		return models.Reply{Text: proposalText([]CartLine{line})}
	}

	qty := logic.ExtractEntities(t.msg.Text).Quantity
	res := t.resolution
	if len(res.Choices) > 0 {
		choices := make([]models.Product, len(res.Choices))
		for i, m := range res.Choices {
			choices[i] = m.Product
		}
		s.StartDisambiguation(choices, qty)
		return models.Reply{Text: choicesText(choices, qty)}
	}

	lines := make([]CartLine, len(res.Items))
	for i, m := range res.Items {
		lines[i] = CartLine{Product: m.Product, Quantity: qty}
	}
	s.ProposeItems(lines)
	return models.Reply{Text: proposalText(lines)}
}

// ---- 12. AI 兜底 ----

func (e *Engine) handleFallback(t *turn) models.Reply {
	if e.Responder == nil {
		return models.Reply{Text: replyNotUnderstood}
	}
	enabled, err := e.BotState.AIEnabled(t.ctx)
	if err != nil || !enabled {
		return models.Reply{Text: replyNotUnderstood}
	}

	info := AIContext{
		Business: e.Business.Name,
		Catalog:  e.Index.Summary(aiCatalogLimit),
		Hours:    e.Business.Hours,
		Address:  e.Business.Address,
		Payment:  e.Business.Payment,
	}
	answer, err := AskWithRetry(t.ctx, e.Responder, t.msg.Text, info, e.AIRetry)
	if err != nil {
		logrus.WithError(err).WithField("customer", t.msg.CustomerID).Info("🤖 AI 未给出回答")
		return models.Reply{Text: replyNotUnderstood}
	}
	return models.Reply{Text: answer}
}

// cartText 购物车内容加上当前折扣预估
func (e *Engine) cartText(s *Session) string {
	quote, err := e.Finalizer.Quote(s.Identity, s.Lines, models.DeliveryNone)
	if err != nil {
		logrus.WithError(err).Warn("⚠️ 计算购物车折扣失败")
		quote = &models.Order{Subtotal: s.Subtotal(), Total: s.Subtotal()}
		for i, l := range s.Lines {
			quote.Items = append(quote.Items, models.OrderItem{Line: i + 1, Name: l.Product.Name, Quantity: l.Quantity, UnitPrice: l.UnitPrice(), Subtotal: l.Subtotal()})
		}
	}
	return cartSummary(quote)
}

func (e *Engine) deliveryQuestion() string {
	shipping := logic.FormatMoney(e.Delivery.Fee)
	if e.Delivery.FreeThreshold > 0 {
		shipping += ", gratis desde " + logic.FormatMoney(e.Delivery.FreeThreshold)
	}
	return "¿Cómo querés recibir tu pedido?\n1. Retiro en el local (sin costo)\n2. Envío a domicilio (" + shipping + ")"
}
