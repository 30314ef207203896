package nats

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/go-kit/kit/endpoint"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/micro"

	"github.com/flarexio/deliblade"
	"github.com/flarexio/deliblade/provider"
)

// MakeEndpoints builds a client-side EndpointSet that forwards each
// call over NATS request/reply. Responses are decoded into the same
// types the service endpoints return, so the set satisfies
// deliblade.ProxyMiddleware.
func MakeEndpoints(nc *nats.Conn, prefix string) *deliblade.EndpointSet {
	return &deliblade.EndpointSet{
		RouteMessage:    RouteMessageEndpoint(nc, prefix+".route_message"),
		Search:          SearchEndpoint(nc, prefix+".search"),
		LookupInventory: LookupInventoryEndpoint(nc, prefix+".lookup_inventory"),
		RebuildIndex:    RebuildIndexEndpoint(nc, prefix+".rebuild_index"),
		CreateOrder:     CreateOrderEndpoint(nc, prefix+".create_order"),
		IssuePayment:    IssuePaymentEndpoint(nc, prefix+".issue_payment"),
		FinalizeOrder:   FinalizeOrderEndpoint(nc, prefix+".finalize_order"),
		CancelOrder:     CancelOrderEndpoint(nc, prefix+".cancel_order"),
		GetOrder:        GetOrderEndpoint(nc, prefix+".get_order"),
		ListOrders:      ListOrdersEndpoint(nc, prefix+".list_orders"),
	}
}

func RouteMessageEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(deliblade.RouteMessageRequest)
		if !ok {
			return nil, errors.New("invalid request")
		}

		data, err := json.Marshal(&req)
		if err != nil {
			return nil, err
		}

		resp, err := nc.Request(topic, data, nats.DefaultTimeout)
		if err != nil {
			return nil, err
		}

		if err := Error(resp); err != nil {
			return nil, err
		}

		var reply deliblade.Reply
		if err := json.Unmarshal(resp.Data, &reply); err != nil {
			return nil, err
		}

		return &reply, nil
	}
}

func SearchEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(deliblade.SearchRequest)
		if !ok {
			return nil, errors.New("invalid request")
		}

		data, err := json.Marshal(&req)
		if err != nil {
			return nil, err
		}

		resp, err := nc.Request(topic, data, nats.DefaultTimeout)
		if err != nil {
			return nil, err
		}

		if err := Error(resp); err != nil {
			return nil, err
		}

		var results []deliblade.SearchResult
		if err := json.Unmarshal(resp.Data, &results); err != nil {
			return nil, err
		}

		return results, nil
	}
}

func LookupInventoryEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		query, ok := request.(string)
		if !ok {
			return nil, errors.New("invalid request")
		}

		resp, err := nc.Request(topic, []byte(query), nats.DefaultTimeout)
		if err != nil {
			return nil, err
		}

		if err := Error(resp); err != nil {
			return nil, err
		}

		var result deliblade.InventoryResult
		if err := json.Unmarshal(resp.Data, &result); err != nil {
			return nil, err
		}

		return &result, nil
	}
}

func RebuildIndexEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		resp, err := nc.Request(topic, nil, nats.DefaultTimeout)
		if err != nil {
			return nil, err
		}

		if err := Error(resp); err != nil {
			return nil, err
		}

		var result deliblade.RebuildIndexResponse
		if err := json.Unmarshal(resp.Data, &result); err != nil {
			return nil, err
		}

		return &result, nil
	}
}

func CreateOrderEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(deliblade.CreateOrderRequest)
		if !ok {
			return nil, errors.New("invalid request")
		}

		data, err := json.Marshal(&req)
		if err != nil {
			return nil, err
		}

		resp, err := nc.Request(topic, data, nats.DefaultTimeout)
		if err != nil {
			return nil, err
		}

		if err := Error(resp); err != nil {
			return nil, err
		}

		var order deliblade.Order
		if err := json.Unmarshal(resp.Data, &order); err != nil {
			return nil, err
		}

		return &order, nil
	}
}

func IssuePaymentEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		orderID, ok := request.(string)
		if !ok {
			return nil, errors.New("invalid request")
		}

		resp, err := nc.Request(topic, []byte(orderID), nats.DefaultTimeout)
		if err != nil {
			return nil, err
		}

		if err := Error(resp); err != nil {
			return nil, err
		}

		var intent provider.PaymentIntent
		if err := json.Unmarshal(resp.Data, &intent); err != nil {
			return nil, err
		}

		return &intent, nil
	}
}

func FinalizeOrderEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(deliblade.FinalizeOrderRequest)
		if !ok {
			return nil, errors.New("invalid request")
		}

		data, err := json.Marshal(&req)
		if err != nil {
			return nil, err
		}

		resp, err := nc.Request(topic, data, nats.DefaultTimeout)
		if err != nil {
			return nil, err
		}

		if err := Error(resp); err != nil {
			// A conflict response still carries the failed order.
			var order deliblade.Order
			if len(resp.Data) > 0 && json.Unmarshal(resp.Data, &order) == nil {
				return &order, err
			}

			return nil, err
		}

		var order deliblade.Order
		if err := json.Unmarshal(resp.Data, &order); err != nil {
			return nil, err
		}

		return &order, nil
	}
}

func CancelOrderEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		orderID, ok := request.(string)
		if !ok {
			return nil, errors.New("invalid request")
		}

		resp, err := nc.Request(topic, []byte(orderID), nats.DefaultTimeout)
		if err != nil {
			return nil, err
		}

		if err := Error(resp); err != nil {
			return nil, err
		}

		var order deliblade.Order
		if err := json.Unmarshal(resp.Data, &order); err != nil {
			return nil, err
		}

		return &order, nil
	}
}

func GetOrderEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		orderID, ok := request.(string)
		if !ok {
			return nil, errors.New("invalid request")
		}

		resp, err := nc.Request(topic, []byte(orderID), nats.DefaultTimeout)
		if err != nil {
			return nil, err
		}

		if err := Error(resp); err != nil {
			return nil, err
		}

		var order deliblade.Order
		if err := json.Unmarshal(resp.Data, &order); err != nil {
			return nil, err
		}

		return &order, nil
	}
}

func ListOrdersEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		resp, err := nc.Request(topic, nil, nats.DefaultTimeout)
		if err != nil {
			return nil, err
		}

		if err := Error(resp); err != nil {
			return nil, err
		}

		var orders []*deliblade.Order
		if err := json.Unmarshal(resp.Data, &orders); err != nil {
			return nil, err
		}

		return orders, nil
	}
}

func Error(msg *nats.Msg) error {
	if msg == nil {
		return errors.New("nil message")
	}

	code := msg.Header.Get(micro.ErrorCodeHeader)
	if code == "" {
		return nil
	}

	description := msg.Header.Get(micro.ErrorHeader)
	if description == "" {
		description = "unknown error"
	}

	return errors.New(code + ":" + description)
}
