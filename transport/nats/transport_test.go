package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/nats-io/nats.go/micro"
	"github.com/stretchr/testify/assert"

	"github.com/flarexio/deliblade"
)

type recordedRequest struct {
	data []byte

	responded []byte
	errCode   string
	errDesc   string
	errData   []byte
}

func (r *recordedRequest) Respond(data []byte, _ ...micro.RespondOpt) error {
	r.responded = data
	return nil
}

func (r *recordedRequest) RespondJSON(v any, _ ...micro.RespondOpt) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	r.responded = data
	return nil
}

func (r *recordedRequest) Error(code string, description string, data []byte, _ ...micro.RespondOpt) error {
	r.errCode = code
	r.errDesc = description
	r.errData = data
	return nil
}

func (r *recordedRequest) Data() []byte           { return r.data }
func (r *recordedRequest) Headers() micro.Headers { return nil }
func (r *recordedRequest) Subject() string        { return "" }
func (r *recordedRequest) Reply() string          { return "" }

func finalizeRequest(t *testing.T, orderID string) *recordedRequest {
	t.Helper()

	data, err := json.Marshal(deliblade.FinalizeOrderRequest{OrderID: orderID})
	if err != nil {
		t.Fatal(err)
	}

	return &recordedRequest{data: data}
}

func TestFinalizeOrderHandlerSuccess(t *testing.T) {
	assert := assert.New(t)

	handler := FinalizeOrderHandler(func(ctx context.Context, request any) (any, error) {
		return &deliblade.Order{ID: "ord_1", Status: deliblade.OrderPaid}, nil
	})

	r := finalizeRequest(t, "ord_1")
	handler(r)

	assert.Empty(r.errCode)

	var order deliblade.Order
	if err := json.Unmarshal(r.responded, &order); err != nil {
		t.Fatal(err)
	}

	assert.Equal(deliblade.OrderPaid, order.Status)
}

func TestFinalizeOrderHandlerStockConflict(t *testing.T) {
	assert := assert.New(t)

	handler := FinalizeOrderHandler(func(ctx context.Context, request any) (any, error) {
		failed := &deliblade.Order{ID: "ord_1", Status: deliblade.OrderFailed}
		return failed, fmt.Errorf("%w: Turkey Club", deliblade.ErrInsufficientStock)
	})

	r := finalizeRequest(t, "ord_1")
	handler(r)

	// The conflict is an error response that still carries the failed
	// order, matching the HTTP transport.
	assert.Equal("409", r.errCode)
	assert.Contains(r.errDesc, "insufficient stock")

	var order deliblade.Order
	if err := json.Unmarshal(r.errData, &order); err != nil {
		t.Fatal(err)
	}

	assert.Equal(deliblade.OrderFailed, order.Status)
}

func TestFinalizeOrderHandlerOtherError(t *testing.T) {
	assert := assert.New(t)

	handler := FinalizeOrderHandler(func(ctx context.Context, request any) (any, error) {
		return nil, deliblade.ErrOrderNotFound
	})

	r := finalizeRequest(t, "missing")
	handler(r)

	assert.Equal("404", r.errCode)
	assert.Empty(r.errData)
}
