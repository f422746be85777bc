package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chatorder-backend/apperr"
	"chatorder-backend/catalog"
	"chatorder-backend/config"
	"chatorder-backend/models"
	"chatorder-backend/repositories"
)

const (
	ownerID  = "5491100000000"
	customer = "5491111111111"
)

func price(v int64) *int64 { return &v }

func testProducts() []models.Product {
	return []models.Product{
		{Category: "Útiles", Subcategory: "Cuadernos", Name: "Cuaderno A4", Price: price(1500), InStock: true, Barcode: "7790001112223", Images: []string{"https://cdn.example.com/a4.jpg"}},
		{Category: "Útiles", Subcategory: "Escritura", Name: "Lapicera Azul", Price: price(300), InStock: true},
		{Category: "Útiles", Subcategory: "Escritura", Name: "Lapicera Negra", Price: price(300), InStock: true},
		{Category: "Útiles", Subcategory: "Papel", Name: "Resma 500 hojas", Price: price(2200), InStock: true},
		{Category: "Arte", Subcategory: "Pinturas", Name: "Témpera 250 ml", PriceFrom: price(900), InStock: false},
	}
}

type sentMessage struct {
	To, Text, Media, Caption string
}

type fakeMessenger struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (f *fakeMessenger) SendText(ctx context.Context, to, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{To: to, Text: text})
	return f.err
}

func (f *fakeMessenger) SendMedia(ctx context.Context, to, mediaURL, caption string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{To: to, Media: mediaURL, Caption: caption})
	return f.err
}

func (f *fakeMessenger) messages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage{}, f.sent...)
}

// flakyOrders 可以让下单失败的订单仓库
type flakyOrders struct {
	repositories.OrderRepository
	failing atomic.Bool
}

func (f *flakyOrders) Place(o *models.Order) error {
	if f.failing.Load() {
		return apperr.External("orders.Place", errors.New("connection refused"))
	}
	return f.OrderRepository.Place(o)
}

type fakeResponder struct {
	calls   atomic.Int32
	answers []string
	errs    []error
	panics  bool
}

func (f *fakeResponder) Answer(ctx context.Context, question string, info AIContext) (string, error) {
	if f.panics {
		panic("responder exploded")
	}
	i := int(f.calls.Add(1)) - 1
	var ans string
	var err error
	if i < len(f.answers) {
		ans = f.answers[i]
	}
	if i < len(f.errs) {
		err = f.errs[i]
	}
	if ans == "" && err == nil {
		err = ErrNoAnswer
	}
	return ans, err
}

type testEnv struct {
	engine    *Engine
	store     *repositories.MemStore
	orders    *flakyOrders
	bot       *repositories.MemBotStateRepository
	messenger *fakeMessenger
	responder *fakeResponder
}

type envOption func(*EngineDeps)

func withDelivery(fee, threshold int64) envOption {
	return func(d *EngineDeps) { d.Delivery = config.DeliveryConfig{Enabled: true, Fee: fee, FreeThreshold: threshold} }
}

func withWindow(window time.Duration) envOption {
	return func(d *EngineDeps) { d.Sessions = NewSessionManager(window, time.Minute) }
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	store := repositories.NewMemStore()
	idx := catalog.NewIndex()
	require.Equal(t, 0, idx.Rebuild(testProducts()))

	env := &testEnv{
		store:     store,
		orders:    &flakyOrders{OrderRepository: store},
		bot:       repositories.NewMemBotStateRepository(true),
		messenger: &fakeMessenger{},
		responder: &fakeResponder{},
	}
	deps := EngineDeps{
		Index:     idx,
		Sessions:  NewSessionManager(time.Hour, time.Minute),
		Customers: store,
		Orders:    env.orders,
		BotState:  env.bot,
		Responder: env.responder,
		Messenger: env.messenger,
		Business: config.BusinessConfig{
			Name: "Librería Sol", Hours: "Lunes a sábado de 9 a 19", Address: "Av. Siempre Viva 742",
			Payment: "Efectivo y transferencia", Contact: "11 5555-0000", OwnerID: ownerID,
		},
		AIRetry: 10 * time.Millisecond,
	}
	for _, o := range opts {
		o(&deps)
	}
	deps.Finalizer = NewFinalizer(env.orders, store, NewNotifier(nil, env.messenger, ownerID), deps.Delivery)
	env.engine = NewEngine(deps)
	return env
}

func (env *testEnv) send(t *testing.T, from, text string) models.Reply {
	t.Helper()
	reply, err := env.engine.HandleMessage(context.Background(), models.InboundMessage{CustomerID: from, Text: text})
	require.NoError(t, err)
	return reply
}

type sessionView struct {
	State     State
	Lines     []CartLine
	Choices   []models.Product
	ChoiceQty int
	Pending   []CartLine
}

func (env *testEnv) inspect(t *testing.T, id string) sessionView {
	t.Helper()
	v, err := Do(context.Background(), env.engine.Sessions, id, func(s *Session) sessionView {
		return sessionView{
			State:     s.State,
			Lines:     append([]CartLine{}, s.Lines...),
			Choices:   append([]models.Product{}, s.choices...),
			ChoiceQty: s.choiceQty,
			Pending:   append([]CartLine{}, s.pending...),
		}
	})
	require.NoError(t, err)
	return v
}

func (v sessionView) activePending() int {
	n := 0
	if len(v.Choices) > 0 {
		n++
	}
	if len(v.Pending) > 0 {
		n++
	}
	if v.State == StateAwaitingDeliveryChoice {
		n++
	}
	return n
}
