package deliblade_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/flarexio/deliblade"
	"github.com/flarexio/deliblade/persistence/chromem"
	"github.com/flarexio/deliblade/persistence/inmem"
	"github.com/flarexio/deliblade/provider/fake"
)

var errProviderOutage = errors.New("provider outage")

func newOrderTestService(t *testing.T, payments *fake.Payments, items ...*deliblade.Item) deliblade.Service {
	t.Helper()

	cfg := testConfig()

	vectorDB, err := chromem.NewChromemVectorDB(cfg.Vector)
	if err != nil {
		t.Fatal(err)
	}

	svc, err := deliblade.NewService(context.Background(), cfg, deliblade.Dependencies{
		Catalog:  inmem.NewCatalog(items...),
		Orders:   inmem.NewOrderStore(),
		Vector:   vectorDB,
		Embedder: fake.NewEmbedder(64),
		Payments: payments,
	})

	if err != nil {
		t.Fatal(err)
	}

	t.Cleanup(func() { svc.Close() })
	return svc
}

func clubItem(qty int) *deliblade.Item {
	return &deliblade.Item{
		ID: "itm_club", Name: "Turkey Club", Category: "sandwich",
		Price: 8.5, Quantity: qty, Active: true, Public: true,
	}
}

func TestOrderLifecycle(t *testing.T) {
	assert := assert.New(t)

	ctx := context.Background()
	payments := fake.NewPayments()
	svc := newOrderTestService(t, payments, clubItem(5))

	order, err := svc.CreateOrder(ctx, []deliblade.OrderLineInput{
		{ItemID: "itm_club", Qty: 2},
	})
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(deliblade.OrderDraft, order.Status)
	assert.Equal(17.0, order.Subtotal)
	assert.Equal(1.7, order.Tax)
	assert.Equal(18.7, order.Total)
	assert.Equal("USD", order.Currency)
	assert.Len(order.ID, 24)

	// Drafting does not reserve stock.
	inv, err := svc.LookupInventory(ctx, "turkey club")
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(5, inv.Item.Qty)

	intent, err := svc.IssuePayment(ctx, order.ID)
	if err != nil {
		t.Fatal(err)
	}
	assert.NotEmpty(intent.Handle)

	pending, err := svc.Order(ctx, order.ID)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(deliblade.OrderPaymentPending, pending.Status)
	assert.Equal(intent.Handle, pending.PaymentRef)

	// Issuing twice is rejected.
	_, err = svc.IssuePayment(ctx, order.ID)
	assert.ErrorIs(err, deliblade.ErrOrderNotPayable)

	paid, err := svc.FinalizeOrder(ctx, order.ID, intent.Handle)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(deliblade.OrderPaid, paid.Status)

	inv, err = svc.LookupInventory(ctx, "turkey club")
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(3, inv.Item.Qty)

	// Finalize is idempotent: no second decrement.
	again, err := svc.FinalizeOrder(ctx, order.ID, "")
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(deliblade.OrderPaid, again.Status)

	inv, err = svc.LookupInventory(ctx, "turkey club")
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(3, inv.Item.Qty)
}

func TestCreateOrderValidation(t *testing.T) {
	assert := assert.New(t)

	ctx := context.Background()
	svc := newOrderTestService(t, fake.NewPayments(), clubItem(2))

	_, err := svc.CreateOrder(ctx, nil)
	assert.ErrorIs(err, deliblade.ErrValidation)

	_, err = svc.CreateOrder(ctx, []deliblade.OrderLineInput{{ItemID: "itm_club", Qty: 0}})
	assert.ErrorIs(err, deliblade.ErrValidation)

	_, err = svc.CreateOrder(ctx, []deliblade.OrderLineInput{{ItemID: "missing", Qty: 1}})
	assert.ErrorIs(err, deliblade.ErrItemNotFound)

	_, err = svc.CreateOrder(ctx, []deliblade.OrderLineInput{{ItemID: "itm_club", Qty: 3}})
	assert.ErrorIs(err, deliblade.ErrInsufficientStock)
}

func TestFinalizeOrderStockConflict(t *testing.T) {
	assert := assert.New(t)

	ctx := context.Background()
	payments := fake.NewPayments()
	svc := newOrderTestService(t, payments, clubItem(3))

	lines := []deliblade.OrderLineInput{{ItemID: "itm_club", Qty: 2}}

	first, err := svc.CreateOrder(ctx, lines)
	if err != nil {
		t.Fatal(err)
	}

	second, err := svc.CreateOrder(ctx, lines)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.IssuePayment(ctx, first.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.IssuePayment(ctx, second.ID); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.FinalizeOrder(ctx, first.ID, ""); err != nil {
		t.Fatal(err)
	}

	failed, err := svc.FinalizeOrder(ctx, second.ID, "")
	assert.ErrorIs(err, deliblade.ErrInsufficientStock)
	assert.NotNil(failed)
	assert.Equal(deliblade.OrderFailed, failed.Status)

	// The losing order decremented nothing.
	inv, err := svc.LookupInventory(ctx, "turkey club")
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(1, inv.Item.Qty)
}

func TestFinalizeOrderProviderFailure(t *testing.T) {
	assert := assert.New(t)

	ctx := context.Background()
	payments := fake.NewPayments()
	svc := newOrderTestService(t, payments, clubItem(5))

	order, err := svc.CreateOrder(ctx, []deliblade.OrderLineInput{{ItemID: "itm_club", Qty: 1}})
	if err != nil {
		t.Fatal(err)
	}

	intent, err := svc.IssuePayment(ctx, order.ID)
	if err != nil {
		t.Fatal(err)
	}

	// A provider outage must not guess the payment outcome.
	payments.ErrConfirm = errProviderOutage

	_, err = svc.FinalizeOrder(ctx, order.ID, "")
	assert.ErrorIs(err, errProviderOutage)

	pending, err := svc.Order(ctx, order.ID)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(deliblade.OrderPaymentPending, pending.Status)

	// Once the provider recovers, the same order finalizes.
	payments.ErrConfirm = nil

	paid, err := svc.FinalizeOrder(ctx, order.ID, intent.Handle)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(deliblade.OrderPaid, paid.Status)
}

func TestFinalizeOrderNotConfirmed(t *testing.T) {
	assert := assert.New(t)

	ctx := context.Background()
	payments := fake.NewPayments()
	payments.FailConfirm = true
	svc := newOrderTestService(t, payments, clubItem(5))

	order, err := svc.CreateOrder(ctx, []deliblade.OrderLineInput{{ItemID: "itm_club", Qty: 1}})
	if err != nil {
		t.Fatal(err)
	}

	intent, err := svc.IssuePayment(ctx, order.ID)
	if err != nil {
		t.Fatal(err)
	}

	_, err = svc.FinalizeOrder(ctx, order.ID, "")
	assert.ErrorIs(err, deliblade.ErrPaymentNotConfirmed)

	pending, err := svc.Order(ctx, order.ID)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(deliblade.OrderPaymentPending, pending.Status)

	// The customer completes payment; finalize now succeeds.
	payments.SetConfirmable(intent.Handle, true)

	paid, err := svc.FinalizeOrder(ctx, order.ID, "")
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(deliblade.OrderPaid, paid.Status)
}

func TestFinalizeOrderConfirmationMismatch(t *testing.T) {
	assert := assert.New(t)

	ctx := context.Background()
	svc := newOrderTestService(t, fake.NewPayments(), clubItem(5))

	order, err := svc.CreateOrder(ctx, []deliblade.OrderLineInput{{ItemID: "itm_club", Qty: 1}})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.IssuePayment(ctx, order.ID); err != nil {
		t.Fatal(err)
	}

	_, err = svc.FinalizeOrder(ctx, order.ID, "pi_bogus")
	assert.ErrorIs(err, deliblade.ErrValidation)
}

func TestCancelOrder(t *testing.T) {
	assert := assert.New(t)

	ctx := context.Background()
	svc := newOrderTestService(t, fake.NewPayments(), clubItem(5))

	order, err := svc.CreateOrder(ctx, []deliblade.OrderLineInput{{ItemID: "itm_club", Qty: 1}})
	if err != nil {
		t.Fatal(err)
	}

	cancelled, err := svc.CancelOrder(ctx, order.ID)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(deliblade.OrderCancelled, cancelled.Status)

	_, err = svc.CancelOrder(ctx, order.ID)
	assert.ErrorIs(err, deliblade.ErrOrderNotCancellable)

	_, err = svc.IssuePayment(ctx, order.ID)
	assert.ErrorIs(err, deliblade.ErrOrderNotPayable)
}

func TestFinalizeOrderNoOversell(t *testing.T) {
	assert := assert.New(t)

	ctx := context.Background()
	payments := fake.NewPayments()
	svc := newOrderTestService(t, payments, clubItem(5))

	const orders = 10

	ids := make([]string, orders)
	for i := range ids {
		order, err := svc.CreateOrder(ctx, []deliblade.OrderLineInput{{ItemID: "itm_club", Qty: 1}})
		if err != nil {
			t.Fatal(err)
		}

		if _, err := svc.IssuePayment(ctx, order.ID); err != nil {
			t.Fatal(err)
		}

		ids[i] = order.ID
	}

	var wg sync.WaitGroup
	results := make([]error, orders)

	for i, id := range ids {
		wg.Add(1)

		go func(i int, id string) {
			defer wg.Done()
			_, results[i] = svc.FinalizeOrder(ctx, id, "")
		}(i, id)
	}
	wg.Wait()

	var paid, conflicts int
	for _, err := range results {
		switch {
		case err == nil:
			paid++
		default:
			assert.ErrorIs(err, deliblade.ErrInsufficientStock)
			conflicts++
		}
	}

	assert.Equal(5, paid)
	assert.Equal(5, conflicts)

	inv, err := svc.LookupInventory(ctx, "turkey club")
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(0, inv.Item.Qty)
}
