package nats

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/go-kit/kit/endpoint"
	"github.com/nats-io/nats.go/micro"

	"github.com/flarexio/deliblade"
)

func errorCode(err error) string {
	switch {
	case errors.Is(err, deliblade.ErrValidation):
		return "400"
	case errors.Is(err, deliblade.ErrItemNotFound),
		errors.Is(err, deliblade.ErrOrderNotFound):
		return "404"
	case errors.Is(err, deliblade.ErrOrderNotPayable),
		errors.Is(err, deliblade.ErrOrderNotCancellable),
		errors.Is(err, deliblade.ErrInsufficientStock):
		return "409"
	case errors.Is(err, deliblade.ErrPaymentNotConfirmed):
		return "402"
	default:
		return "417"
	}
}

func RouteMessageHandler(endpoint endpoint.Endpoint) micro.HandlerFunc {
	return func(r micro.Request) {
		var req deliblade.RouteMessageRequest
		if err := json.Unmarshal(r.Data(), &req); err != nil {
			r.Error("400", err.Error(), nil)
			return
		}

		ctx := context.Background()
		resp, err := endpoint(ctx, req)
		if err != nil {
			r.Error(errorCode(err), err.Error(), nil)
			return
		}

		r.RespondJSON(&resp)
	}
}

func SearchHandler(endpoint endpoint.Endpoint) micro.HandlerFunc {
	return func(r micro.Request) {
		var req deliblade.SearchRequest
		if err := json.Unmarshal(r.Data(), &req); err != nil {
			r.Error("400", err.Error(), nil)
			return
		}

		ctx := context.Background()
		resp, err := endpoint(ctx, req)
		if err != nil {
			r.Error(errorCode(err), err.Error(), nil)
			return
		}

		r.RespondJSON(&resp)
	}
}

func LookupInventoryHandler(endpoint endpoint.Endpoint) micro.HandlerFunc {
	return func(r micro.Request) {
		query := string(r.Data())
		if query == "" {
			r.Error("400", "item name is required", nil)
			return
		}

		ctx := context.Background()
		resp, err := endpoint(ctx, query)
		if err != nil {
			r.Error(errorCode(err), err.Error(), nil)
			return
		}

		r.RespondJSON(&resp)
	}
}

func RebuildIndexHandler(endpoint endpoint.Endpoint) micro.HandlerFunc {
	return func(r micro.Request) {
		ctx := context.Background()
		resp, err := endpoint(ctx, nil)
		if err != nil {
			r.Error(errorCode(err), err.Error(), nil)
			return
		}

		r.RespondJSON(&resp)
	}
}

func CreateOrderHandler(endpoint endpoint.Endpoint) micro.HandlerFunc {
	return func(r micro.Request) {
		var req deliblade.CreateOrderRequest
		if err := json.Unmarshal(r.Data(), &req); err != nil {
			r.Error("400", err.Error(), nil)
			return
		}

		ctx := context.Background()
		resp, err := endpoint(ctx, req)
		if err != nil {
			r.Error(errorCode(err), err.Error(), nil)
			return
		}

		r.RespondJSON(&resp)
	}
}

func IssuePaymentHandler(endpoint endpoint.Endpoint) micro.HandlerFunc {
	return func(r micro.Request) {
		orderID := string(r.Data())
		if orderID == "" {
			r.Error("400", "order id is required", nil)
			return
		}

		ctx := context.Background()
		resp, err := endpoint(ctx, orderID)
		if err != nil {
			r.Error(errorCode(err), err.Error(), nil)
			return
		}

		r.RespondJSON(&resp)
	}
}

func FinalizeOrderHandler(endpoint endpoint.Endpoint) micro.HandlerFunc {
	return func(r micro.Request) {
		var req deliblade.FinalizeOrderRequest
		if err := json.Unmarshal(r.Data(), &req); err != nil {
			r.Error("400", err.Error(), nil)
			return
		}

		ctx := context.Background()
		resp, err := endpoint(ctx, req)
		if err != nil {
			// A stock conflict still carries the failed order.
			if errors.Is(err, deliblade.ErrInsufficientStock) && resp != nil {
				if data, merr := json.Marshal(&resp); merr == nil {
					r.Error(errorCode(err), err.Error(), data)
					return
				}
			}

			r.Error(errorCode(err), err.Error(), nil)
			return
		}

		r.RespondJSON(&resp)
	}
}

func CancelOrderHandler(endpoint endpoint.Endpoint) micro.HandlerFunc {
	return func(r micro.Request) {
		orderID := string(r.Data())
		if orderID == "" {
			r.Error("400", "order id is required", nil)
			return
		}

		ctx := context.Background()
		resp, err := endpoint(ctx, orderID)
		if err != nil {
			r.Error(errorCode(err), err.Error(), nil)
			return
		}

		r.RespondJSON(&resp)
	}
}

func GetOrderHandler(endpoint endpoint.Endpoint) micro.HandlerFunc {
	return func(r micro.Request) {
		orderID := string(r.Data())
		if orderID == "" {
			r.Error("400", "order id is required", nil)
			return
		}

		ctx := context.Background()
		resp, err := endpoint(ctx, orderID)
		if err != nil {
			r.Error(errorCode(err), err.Error(), nil)
			return
		}

		r.RespondJSON(&resp)
	}
}

func ListOrdersHandler(endpoint endpoint.Endpoint) micro.HandlerFunc {
	return func(r micro.Request) {
		ctx := context.Background()
		resp, err := endpoint(ctx, nil)
		if err != nil {
			r.Error(errorCode(err), err.Error(), nil)
			return
		}

		r.RespondJSON(&resp)
	}
}
