package deliblade

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProxyFinalizeOrderConflict(t *testing.T) {
	assert := assert.New(t)

	endpoints := &EndpointSet{
		FinalizeOrder: func(ctx context.Context, request any) (any, error) {
			failed := &Order{ID: "ord_1", Status: OrderFailed}
			return failed, fmt.Errorf("%w: Turkey Club", ErrInsufficientStock)
		},
	}

	svc := ProxyMiddleware(endpoints)(nil)

	order, err := svc.FinalizeOrder(context.Background(), "ord_1", "")
	assert.ErrorIs(err, ErrInsufficientStock)

	// The failed order travels alongside the conflict error.
	assert.NotNil(order)
	assert.Equal(OrderFailed, order.Status)
}

func TestProxyFinalizeOrderSuccess(t *testing.T) {
	assert := assert.New(t)

	endpoints := &EndpointSet{
		FinalizeOrder: func(ctx context.Context, request any) (any, error) {
			return &Order{ID: "ord_1", Status: OrderPaid}, nil
		},
	}

	svc := ProxyMiddleware(endpoints)(nil)

	order, err := svc.FinalizeOrder(context.Background(), "ord_1", "")
	assert.NoError(err)
	assert.Equal(OrderPaid, order.Status)
}
