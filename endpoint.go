package deliblade

import (
	"context"
	"errors"

	"github.com/go-kit/kit/endpoint"
)

type EndpointSet struct {
	RouteMessage    endpoint.Endpoint
	Search          endpoint.Endpoint
	LookupInventory endpoint.Endpoint
	RebuildIndex    endpoint.Endpoint
	CreateOrder     endpoint.Endpoint
	IssuePayment    endpoint.Endpoint
	FinalizeOrder   endpoint.Endpoint
	CancelOrder     endpoint.Endpoint
	GetOrder        endpoint.Endpoint
	ListOrders      endpoint.Endpoint
}

type RouteMessageRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

func RouteMessageEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(RouteMessageRequest)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		return svc.RouteMessage(ctx, req.Message, req.SessionID)
	}
}

type SearchRequest struct {
	Query     string  `json:"query" form:"query"`
	TopK      int     `json:"top_k,omitempty" form:"top_k"`
	Threshold float64 `json:"threshold,omitempty" form:"threshold"`
}

func SearchEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(SearchRequest)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		return svc.Search(ctx, req.Query, req.TopK, req.Threshold)
	}
}

func LookupInventoryEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		query, ok := request.(string)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		return svc.LookupInventory(ctx, query)
	}
}

type RebuildIndexResponse struct {
	OK    bool `json:"ok"`
	Count int  `json:"count"`
}

func RebuildIndexEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		count, err := svc.RebuildIndex(ctx)
		if err != nil {
			return nil, err
		}

		return &RebuildIndexResponse{OK: true, Count: count}, nil
	}
}

type CreateOrderRequest struct {
	Lines []OrderLineInput `json:"lines"`
}

func CreateOrderEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(CreateOrderRequest)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		return svc.CreateOrder(ctx, req.Lines)
	}
}

func IssuePaymentEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		orderID, ok := request.(string)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		return svc.IssuePayment(ctx, orderID)
	}
}

type FinalizeOrderRequest struct {
	OrderID      string `json:"order_id"`
	Confirmation string `json:"confirmation,omitempty"`
}

func FinalizeOrderEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(FinalizeOrderRequest)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		order, err := svc.FinalizeOrder(ctx, req.OrderID, req.Confirmation)
		if err != nil && !errors.Is(err, ErrInsufficientStock) {
			return nil, err
		}

		return order, err
	}
}

func CancelOrderEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		orderID, ok := request.(string)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		return svc.CancelOrder(ctx, orderID)
	}
}

func GetOrderEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		orderID, ok := request.(string)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		return svc.Order(ctx, orderID)
	}
}

func ListOrdersEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		return svc.Orders(ctx)
	}
}
