package deliblade

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/flarexio/deliblade/provider"
)

// CreateOrder prices the requested lines against the catalog and
// persists a draft order. The stock check here is advisory only;
// the authoritative check happens at finalization under item locks.
func (svc *service) CreateOrder(ctx context.Context, lines []OrderLineInput) (*Order, error) {
	if svc.orders == nil {
		return nil, ErrOrderStoreNotSet
	}

	if len(lines) == 0 {
		return nil, ErrValidation
	}

	priced := make([]OrderLine, 0, len(lines))
	subtotal := 0.0

	for _, line := range lines {
		if line.ItemID == "" || line.Qty <= 0 {
			return nil, ErrValidation
		}

		it, err := svc.catalog.Item(ctx, line.ItemID)
		if err != nil {
			return nil, err
		}

		if !it.Active {
			return nil, fmt.Errorf("%w: %s is unavailable", ErrValidation, it.Name)
		}

		if it.Price <= 0 {
			return nil, fmt.Errorf("%w: %s has no price", ErrValidation, it.Name)
		}

		if it.Quantity < line.Qty {
			return nil, fmt.Errorf("%w: %s", ErrInsufficientStock, it.Name)
		}

		lineTotal := Round2(it.Price * float64(line.Qty))
		priced = append(priced, OrderLine{
			ItemID:    it.ID,
			Name:      it.Name,
			Qty:       line.Qty,
			UnitPrice: it.Price,
			LineTotal: lineTotal,
		})

		subtotal += lineTotal
	}

	subtotal = Round2(subtotal)
	tax := Round2(subtotal * svc.cfg.Store.TaxRate)

	now := time.Now()

	order := &Order{
		ID:        strings.ReplaceAll(uuid.NewString(), "-", "")[:24],
		Status:    OrderDraft,
		Lines:     priced,
		Subtotal:  subtotal,
		Tax:       tax,
		Total:     Round2(subtotal + tax),
		Currency:  svc.cfg.Store.Currency,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := svc.orders.SaveOrder(ctx, order); err != nil {
		return nil, err
	}

	return order, nil
}

// IssuePayment obtains a payment intent from the provider and moves
// the order from draft to payment_pending. A provider failure leaves
// the order unchanged.
func (svc *service) IssuePayment(ctx context.Context, orderID string) (*provider.PaymentIntent, error) {
	if svc.payments == nil {
		return nil, provider.Errorf("payments", "not configured")
	}

	order, err := svc.orders.Order(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.Status != OrderDraft {
		return nil, ErrOrderNotPayable
	}

	intent, err := svc.payments.CreateIntent(ctx, Cents(order.Total), order.Currency, order.ID)
	if err != nil {
		return nil, err
	}

	_, err = svc.orders.UpdateOrder(ctx, orderID, func(o *Order) error {
		if o.Status != OrderDraft {
			return ErrOrderNotPayable
		}

		o.Status = OrderPaymentPending
		o.PaymentRef = intent.Handle
		o.UpdatedAt = time.Now()
		return nil
	})

	if err != nil {
		return nil, err
	}

	return intent, nil
}

// FinalizeOrder is the critical section: it re-verifies the payment
// with the provider, locks every line's item in ascending ID order,
// re-checks stock for all lines under those locks, and decrements
// all-or-nothing. A stock conflict marks the order failed and returns
// ErrInsufficientStock; a provider failure aborts with the order left
// payment_pending, safe to retry. Finalizing an already-paid order is
// a no-op.
func (svc *service) FinalizeOrder(ctx context.Context, orderID string, confirmation string) (*Order, error) {
	if svc.payments == nil {
		return nil, provider.Errorf("payments", "not configured")
	}

	order, err := svc.orders.Order(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.Status == OrderPaid {
		return order, nil
	}

	if order.Status != OrderPaymentPending {
		return nil, ErrOrderNotPayable
	}

	if confirmation != "" && confirmation != order.PaymentRef {
		return nil, fmt.Errorf("%w: confirmation does not match order", ErrValidation)
	}

	ok, err := svc.payments.Confirm(ctx, order.PaymentRef)
	if err != nil {
		// Never guess payment success; stays payment_pending.
		return nil, err
	}

	if !ok {
		return nil, ErrPaymentNotConfirmed
	}

	ids := make([]string, 0, len(order.Lines))
	for _, line := range order.Lines {
		ids = append(ids, line.ItemID)
	}
	sort.Strings(ids)

	release := svc.catalog.LockItems(ids)
	defer release()

	// Re-read the order under the item locks so two racing finalize
	// calls cannot both decrement.
	order, err = svc.orders.Order(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.Status == OrderPaid {
		return order, nil
	}

	for _, line := range order.Lines {
		qty, err := svc.catalog.Stock(ctx, line.ItemID)
		if err != nil {
			return nil, err
		}

		if qty < line.Qty {
			failed, uerr := svc.markOrderFailed(ctx, orderID)
			if uerr != nil {
				return nil, uerr
			}

			return failed, fmt.Errorf("%w: %s", ErrInsufficientStock, line.Name)
		}
	}

	for _, line := range order.Lines {
		if err := svc.catalog.DecrementStock(ctx, line.ItemID, line.Qty); err != nil {
			return nil, err
		}
	}

	return svc.orders.UpdateOrder(ctx, orderID, func(o *Order) error {
		o.Status = OrderPaid
		o.UpdatedAt = time.Now()
		return nil
	})
}

func (svc *service) markOrderFailed(ctx context.Context, orderID string) (*Order, error) {
	return svc.orders.UpdateOrder(ctx, orderID, func(o *Order) error {
		o.Status = OrderFailed
		o.UpdatedAt = time.Now()
		return nil
	})
}

// CancelOrder cancels a draft or payment_pending order.
func (svc *service) CancelOrder(ctx context.Context, orderID string) (*Order, error) {
	return svc.orders.UpdateOrder(ctx, orderID, func(o *Order) error {
		if o.Status != OrderDraft && o.Status != OrderPaymentPending {
			return ErrOrderNotCancellable
		}

		o.Status = OrderCancelled
		o.UpdatedAt = time.Now()
		return nil
	})
}

func (svc *service) Order(ctx context.Context, orderID string) (*Order, error) {
	return svc.orders.Order(ctx, orderID)
}

func (svc *service) Orders(ctx context.Context) ([]*Order, error) {
	return svc.orders.Orders(ctx)
}
