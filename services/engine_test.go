package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatorder-backend/models"
)

func TestEngine_SingleMatchThenConfirm(t *testing.T) {
	env := newTestEnv(t)

	reply := env.send(t, customer, "quiero 2 cuadernos")
	assert.Equal(t, models.IntentProduct, reply.Intent)
	assert.Contains(t, reply.Text, "$3.000")

	v := env.inspect(t, customer)
	assert.Equal(t, StatePendingItemConfirm, v.State)
	require.Len(t, v.Pending, 1)
	assert.Equal(t, int64(3000), v.Pending[0].Subtotal())

	reply = env.send(t, customer, "si")
	assert.Equal(t, models.IntentConfirmItem, reply.Intent)

	v = env.inspect(t, customer)
	assert.Equal(t, StateCartOpen, v.State)
	require.Len(t, v.Lines, 1)
	assert.Equal(t, 2, v.Lines[0].Quantity)
	assert.Equal(t, int64(1500), v.Lines[0].UnitPrice())
	assert.Equal(t, int64(3000), v.Lines[0].Subtotal())
}

func TestEngine_DiscountThreshold(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.store.Save(models.DiscountConfig{Enabled: true, Rules: []models.DiscountRule{{MinSubtotal: 5000, Percentage: 10, Description: "10%"}}})
	require.NoError(t, err)

	env.send(t, customer, "quiero 2 cuadernos")
	reply := env.send(t, customer, "si")
	assert.NotContains(t, reply.Text, "Descuento")

	env.send(t, customer, "quiero una resma")
	reply = env.send(t, customer, "si")
	assert.Contains(t, reply.Text, "Descuento (10%): -$520")
	assert.Contains(t, reply.Text, "Total: $4.680")

	reply = env.send(t, customer, "confirmar")
	assert.Equal(t, models.IntentCartConfirm, reply.Intent)
	assert.Contains(t, reply.Text, "PED-00001")

	orders, err := env.store.ListByCustomer(customer)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	o := orders[0]
	assert.Equal(t, int64(5200), o.Subtotal)
	assert.Equal(t, int64(520), o.Discount)
	assert.Equal(t, int64(4680), o.Total)
	assert.Equal(t, models.DeliveryNone, o.DeliveryType)
	assert.Equal(t, StateClosed, env.inspect(t, customer).State)
}

func TestEngine_DisambiguationCarriesQuantity(t *testing.T) {
	env := newTestEnv(t)

	reply := env.send(t, customer, "quiero 3 lapiceras")
	assert.Contains(t, reply.Text, "1. Lapicera Azul")
	assert.Contains(t, reply.Text, "2. Lapicera Negra")

	v := env.inspect(t, customer)
	assert.Equal(t, StateDisambiguating, v.State)
	assert.Len(t, v.Choices, 2)
	assert.Equal(t, 3, v.ChoiceQty)

	reply = env.send(t, customer, "7")
	assert.Equal(t, models.IntentDisambiguation, reply.Intent)
	assert.Equal(t, StateDisambiguating, env.inspect(t, customer).State)

	reply = env.send(t, customer, "2")
	assert.Equal(t, models.IntentDisambiguation, reply.Intent)
	v = env.inspect(t, customer)
	assert.Equal(t, StatePendingItemConfirm, v.State)
	require.Len(t, v.Pending, 1)
	assert.Equal(t, "Lapicera Negra", v.Pending[0].Product.Name)
	assert.Equal(t, 3, v.Pending[0].Quantity)
}

func TestEngine_DisambiguationCancelKeepsCart(t *testing.T) {
	env := newTestEnv(t)
	env.send(t, customer, "quiero 2 cuadernos")
	env.send(t, customer, "si")
	env.send(t, customer, "quiero lapiceras")

	reply := env.send(t, customer, "ninguno")
	assert.Equal(t, models.IntentDisambiguation, reply.Intent)
	v := env.inspect(t, customer)
	assert.Equal(t, StateCartOpen, v.State)
	assert.Len(t, v.Lines, 1)
	assert.Empty(t, v.Choices)
}

func TestEngine_InactivityExpiry(t *testing.T) {
	env := newTestEnv(t, withWindow(100*time.Millisecond))

	env.send(t, customer, "quiero 2 cuadernos")
	env.send(t, customer, "si")
	env.send(t, customer, "quiero una resma")
	env.send(t, customer, "si")
	require.Len(t, env.inspect(t, customer).Lines, 2)

	assert.Eventually(t, func() bool {
		return env.inspect(t, customer).State == StateExpired
	}, 2*time.Second, 10*time.Millisecond)
	assert.Empty(t, env.inspect(t, customer).Lines)

	reply := env.send(t, customer, "ver carrito")
	assert.Equal(t, models.IntentCartView, reply.Intent)
	assert.Equal(t, replyEmptyCart, reply.Text)
	// 过期不发任何通知
	assert.Empty(t, env.messenger.messages())
}

func TestEngine_BarcodeLookup(t *testing.T) {
	env := newTestEnv(t)

	reply := env.send(t, customer, "0000000000000")
	assert.Equal(t, models.IntentProduct, reply.Intent)
	assert.Equal(t, replyNotFound, reply.Text)
	assert.Equal(t, StateIdle, env.inspect(t, customer).State)

	env.send(t, customer, "7790001112223")
	v := env.inspect(t, customer)
	assert.Equal(t, StatePendingItemConfirm, v.State)
	require.Len(t, v.Pending, 1)
	assert.Equal(t, "Cuaderno A4", v.Pending[0].Product.Name)
	assert.Equal(t, 1, v.Pending[0].Quantity)
}

func TestEngine_OutOfStockRejectsWholeBatch(t *testing.T) {
	env := newTestEnv(t)
	env.send(t, customer, "quiero una resma")
	env.send(t, customer, "si")

	env.send(t, customer, "quiero un cuaderno y una tempera")
	v := env.inspect(t, customer)
	require.Len(t, v.Pending, 2)

	reply := env.send(t, customer, "si")
	assert.Contains(t, reply.Text, "Témpera 250 ml")
	v = env.inspect(t, customer)
	assert.Equal(t, StateCartOpen, v.State)
	require.Len(t, v.Lines, 1)
	assert.Equal(t, "Resma 500 hojas", v.Lines[0].Product.Name)
	assert.Empty(t, v.Pending)
}

func TestEngine_NoDiscardsCandidate(t *testing.T) {
	env := newTestEnv(t)
	env.send(t, customer, "quiero 2 cuadernos")
	reply := env.send(t, customer, "no")
	assert.Equal(t, models.IntentConfirmItem, reply.Intent)
	v := env.inspect(t, customer)
	assert.Equal(t, StateIdle, v.State)
	assert.Empty(t, v.Lines)
	assert.Empty(t, v.Pending)
}

func TestEngine_CancelIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < 2; i++ {
		reply := env.send(t, customer, "cancelar")
		assert.Equal(t, models.IntentCartCancel, reply.Intent)
		assert.Equal(t, "No tenés ningún pedido en curso.", reply.Text)
		assert.Equal(t, StateIdle, env.inspect(t, customer).State)
	}

	env.send(t, customer, "quiero 2 cuadernos")
	env.send(t, customer, "si")
	reply := env.send(t, customer, "cancelar")
	assert.Contains(t, reply.Text, "cancelado")
	assert.Equal(t, StateCancelled, env.inspect(t, customer).State)
	assert.Equal(t, replyEmptyCart, env.send(t, customer, "ver carrito").Text)
}

func TestEngine_RemoveItem(t *testing.T) {
	env := newTestEnv(t)
	env.send(t, customer, "quiero 2 cuadernos")
	env.send(t, customer, "si")
	env.send(t, customer, "quiero una resma")
	env.send(t, customer, "si")

	reply := env.send(t, customer, "quitar 5")
	assert.Equal(t, models.IntentCartRemove, reply.Intent)
	assert.Len(t, env.inspect(t, customer).Lines, 2)

	env.send(t, customer, "quitar 1")
	v := env.inspect(t, customer)
	require.Len(t, v.Lines, 1)
	assert.Equal(t, "Resma 500 hojas", v.Lines[0].Product.Name)

	reply = env.send(t, customer, "sacar el 1")
	assert.Contains(t, reply.Text, "vacío")
	assert.Equal(t, StateIdle, env.inspect(t, customer).State)
}

func TestEngine_DeliveryFlow(t *testing.T) {
	env := newTestEnv(t, withDelivery(800, 10000))
	_, err := env.store.Save(models.DiscountConfig{Enabled: true, Rules: []models.DiscountRule{{MinSubtotal: 5000, Percentage: 10}}})
	require.NoError(t, err)

	// 折后 2700，低于免运费门槛
	env.send(t, customer, "quiero 2 cuadernos")
	env.send(t, customer, "si")
	reply := env.send(t, customer, "confirmar")
	assert.Contains(t, reply.Text, "2. Envío a domicilio ($800, gratis desde $10.000)")
	assert.Equal(t, StateAwaitingDeliveryChoice, env.inspect(t, customer).State)

	reply = env.send(t, customer, "5")
	assert.Equal(t, models.IntentDeliveryChoice, reply.Intent)
	assert.Equal(t, StateAwaitingDeliveryChoice, env.inspect(t, customer).State)

	env.send(t, customer, "2")
	// 折后 10800，免运费
	env.send(t, "549222", "quiero 8 cuadernos")
	env.send(t, "549222", "si")
	env.send(t, "549222", "confirmar")
	env.send(t, "549222", "dos")

	orders, err := env.store.List(0)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	for _, o := range orders {
		assert.Equal(t, o.Subtotal-o.Discount+o.DeliveryFee, o.Total)
		assert.Equal(t, models.DeliveryShipped, o.DeliveryType)
	}
	byIdentity := map[string]models.Order{}
	for _, o := range orders {
		byIdentity[o.Identity] = o
	}
	assert.Equal(t, int64(800), byIdentity[customer].DeliveryFee)
	assert.Equal(t, int64(3800), byIdentity[customer].Total)
	assert.Equal(t, int64(0), byIdentity["549222"].DeliveryFee)
	assert.Equal(t, int64(10800), byIdentity["549222"].Total)
}

func TestEngine_PickupIsFree(t *testing.T) {
	env := newTestEnv(t, withDelivery(800, 10000))
	env.send(t, customer, "quiero 2 cuadernos")
	env.send(t, customer, "si")
	env.send(t, customer, "confirmar")
	reply := env.send(t, customer, "1")
	assert.Contains(t, reply.Text, "retirarlo")

	orders, _ := env.store.List(0)
	require.Len(t, orders, 1)
	assert.Equal(t, models.DeliveryPickup, orders[0].DeliveryType)
	assert.Equal(t, int64(0), orders[0].DeliveryFee)
	assert.Equal(t, int64(3000), orders[0].Total)
}

func TestEngine_PersistenceFailureKeepsCart(t *testing.T) {
	env := newTestEnv(t)
	env.send(t, customer, "quiero 2 cuadernos")
	env.send(t, customer, "si")

	env.orders.failing.Store(true)
	reply := env.send(t, customer, "confirmar")
	assert.Contains(t, reply.Text, "No pudimos registrar")
	v := env.inspect(t, customer)
	assert.Equal(t, StateCartOpen, v.State)
	assert.Len(t, v.Lines, 1)

	env.orders.failing.Store(false)
	reply = env.send(t, customer, "confirmar")
	assert.Contains(t, reply.Text, "PED-00001")
	assert.Equal(t, StateClosed, env.inspect(t, customer).State)
}

func TestEngine_NotificationFailureDoesNotRollBack(t *testing.T) {
	env := newTestEnv(t)
	env.messenger.err = errors.New("gateway down")

	env.send(t, customer, "quiero 2 cuadernos")
	env.send(t, customer, "si")
	reply := env.send(t, customer, "confirmar")
	assert.Contains(t, reply.Text, "PED-00001")

	orders, _ := env.store.List(0)
	assert.Len(t, orders, 1)
	msgs := env.messenger.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, ownerID, msgs[0].To)

	c, err := env.store.FindByIdentity(customer)
	require.NoError(t, err)
	assert.Equal(t, 1, c.OrderCount)
	assert.Equal(t, int64(3000), c.TotalSpent)
}

func TestEngine_SinglePendingState(t *testing.T) {
	env := newTestEnv(t, withDelivery(800, 10000))
	script := []string{
		"quiero 3 lapiceras", "quiero 2 cuadernos", "quiero lapiceras", "1", "si",
		"quiero tempera", "confirmar", "quiero una resma", "2", "cancelar", "quiero lapiceras", "no",
	}
	for _, msg := range script {
		env.send(t, customer, msg)
		v := env.inspect(t, customer)
		assert.LessOrEqual(t, v.activePending(), 1, "after %q", msg)
	}
}

func TestEngine_PhotoRequest(t *testing.T) {
	env := newTestEnv(t)
	reply := env.send(t, customer, "mandame foto del cuaderno a4")
	assert.Equal(t, models.IntentPhoto, reply.Intent)
	assert.Equal(t, "https://cdn.example.com/a4.jpg", reply.MediaURL)
	assert.Contains(t, reply.Caption, "$1.500")

	reply = env.send(t, customer, "foto de la lapicera azul")
	assert.Empty(t, reply.MediaURL)
	assert.Contains(t, reply.Text, "No tengo foto")
}

func TestEngine_CatalogCategoryGreetingFAQ(t *testing.T) {
	env := newTestEnv(t)

	reply := env.send(t, customer, "catálogo")
	assert.Equal(t, models.IntentCatalog, reply.Intent)
	assert.Contains(t, reply.Text, "Témpera 250 ml: desde $900 (sin stock)")

	reply = env.send(t, customer, "escritura")
	assert.Equal(t, models.IntentCategory, reply.Intent)
	assert.Contains(t, reply.Text, "Lapicera Negra")

	reply = env.send(t, customer, "cuaderno")
	assert.Equal(t, models.IntentCategory, reply.Intent)

	reply = env.send(t, customer, "hola!")
	assert.Equal(t, models.IntentGreeting, reply.Intent)
	assert.Contains(t, reply.Text, "Librería Sol")

	reply = env.send(t, customer, "qué horario tienen?")
	assert.Equal(t, models.IntentFAQ, reply.Intent)
	assert.Contains(t, reply.Text, "Lunes a sábado")

	reply = env.send(t, customer, "aceptan tarjeta o transferencia")
	assert.Contains(t, reply.Text, "Efectivo y transferencia")
}

func TestEngine_PendingStateCapturesShortReplies(t *testing.T) {
	env := newTestEnv(t)
	// 没有待处理状态时 "1" 不会被当成选择
	reply := env.send(t, customer, "1")
	assert.Equal(t, models.IntentFallback, reply.Intent)

	env.send(t, customer, "quiero lapiceras")
	reply = env.send(t, customer, "1")
	assert.Equal(t, models.IntentDisambiguation, reply.Intent)
	reply = env.send(t, customer, "si")
	assert.Equal(t, models.IntentConfirmItem, reply.Intent)
}

func TestEngine_AIFallback(t *testing.T) {
	env := newTestEnv(t)
	env.responder.errs = []error{ErrRateLimited, nil}
	env.responder.answers = []string{"", "Sí, hacemos envíos a todo el barrio."}

	reply := env.send(t, customer, "hacen envios al barrio norte?")
	assert.Equal(t, models.IntentFallback, reply.Intent)
	assert.Equal(t, "Sí, hacemos envíos a todo el barrio.", reply.Text)
	assert.Equal(t, int32(2), env.responder.calls.Load())

	env.responder.calls.Store(0)
	env.responder.errs = []error{ErrNoAnswer}
	env.responder.answers = nil
	reply = env.send(t, customer, "cuál es el sentido de la vida")
	assert.Equal(t, replyNotUnderstood, reply.Text)

	require.NoError(t, env.bot.SetAIEnabled(context.Background(), false))
	env.responder.calls.Store(0)
	reply = env.send(t, customer, "cuál es el sentido de la vida")
	assert.Equal(t, replyNotUnderstood, reply.Text)
	assert.Equal(t, int32(0), env.responder.calls.Load())
}

func TestEngine_PanicIsContained(t *testing.T) {
	env := newTestEnv(t)
	env.send(t, "549222", "quiero 2 cuadernos")

	env.responder.panics = true
	reply := env.send(t, customer, "algo que nadie entiende")
	assert.Equal(t, models.IntentFailure, reply.Intent)
	assert.Equal(t, replyFailure, reply.Text)

	// 其他客户不受影响，本客户也能继续
	assert.Equal(t, models.IntentConfirmItem, env.send(t, "549222", "si").Intent)
	assert.Equal(t, models.IntentProduct, env.send(t, customer, "quiero una resma").Intent)
}

func TestEngine_OwnerCommandsAndGates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// 非老板发的指令按普通消息处理
	assert.NotEqual(t, models.IntentOwnerCommand, env.send(t, customer, "/pausar").Intent)

	reply := env.send(t, ownerID, "/pausar")
	assert.Equal(t, models.IntentOwnerCommand, reply.Intent)
	paused, _ := env.bot.IsPaused(ctx)
	assert.True(t, paused)

	reply = env.send(t, customer, "quiero 2 cuadernos")
	assert.True(t, reply.Silent)

	// 暂停时老板指令照样生效
	reply = env.send(t, ownerID, "/estado")
	assert.Contains(t, reply.Text, "Respuestas: pausadas")
	assert.Contains(t, reply.Text, "Productos: 5")

	env.send(t, ownerID, "/reanudar")
	assert.False(t, env.send(t, customer, "hola").Silent)

	env.send(t, ownerID, "/ignorar 549222")
	assert.True(t, env.send(t, "549222", "hola").Silent)
	env.send(t, ownerID, "/atender 549222")
	assert.False(t, env.send(t, "549222", "hola").Silent)

	reply = env.send(t, ownerID, "/ia off")
	assert.Contains(t, reply.Text, "IA off")
	assert.Contains(t, env.send(t, ownerID, "/nada").Text, "/pausar")
}

func TestEngine_CustomersAreIndependent(t *testing.T) {
	env := newTestEnv(t)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for _, msg := range []string{"quiero 2 cuadernos", "si", "quiero una resma", "si", "confirmar"} {
				_, err := env.engine.HandleMessage(context.Background(), models.InboundMessage{CustomerID: id, Text: msg})
				assert.NoError(t, err)
			}
		}(fmt.Sprintf("54911%04d", i))
	}
	wg.Wait()

	orders, err := env.store.List(0)
	require.NoError(t, err)
	require.Len(t, orders, 10)
	seen := map[int64]bool{}
	for _, o := range orders {
		assert.Equal(t, int64(5200), o.Subtotal)
		assert.False(t, seen[o.Sequence])
		seen[o.Sequence] = true
	}
}

func TestEngine_HandleAndDeliver(t *testing.T) {
	env := newTestEnv(t)
	env.engine.HandleAndDeliver(context.Background(), models.InboundMessage{CustomerID: customer, Text: "foto del cuaderno a4"})
	env.engine.HandleAndDeliver(context.Background(), models.InboundMessage{CustomerID: customer, Text: "ver carrito"})

	msgs := env.messenger.messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "https://cdn.example.com/a4.jpg", msgs[0].Media)
	assert.Equal(t, replyEmptyCart, msgs[1].Text)
}

func TestEngine_EnqueueKeepsCustomerOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	texts := []string{"quiero 2 cuadernos", "si", "quiero una resma", "si", "ver carrito"}
	waits := make([]Replier, len(texts))
	for i, text := range texts {
		waits[i] = env.engine.Enqueue(ctx, models.InboundMessage{CustomerID: customer, Text: text})
	}

	var wg sync.WaitGroup
	replies := make([]models.Reply, len(texts))
	for i := len(waits) - 1; i >= 0; i-- {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := waits[i](ctx)
			assert.NoError(t, err)
			replies[i] = r
		}(i)
	}
	wg.Wait()

	assert.Equal(t, models.IntentProduct, replies[0].Intent)
	assert.Equal(t, models.IntentConfirmItem, replies[1].Intent)
	assert.Equal(t, models.IntentProduct, replies[2].Intent)
	assert.Equal(t, models.IntentConfirmItem, replies[3].Intent)
	assert.Contains(t, replies[4].Text, "Resma 500 hojas")
	assert.Contains(t, replies[4].Text, "Total: $5.200")
}
