package deliblade

import (
	"context"
	"errors"

	"github.com/flarexio/deliblade/provider"
)

// ProxyMiddleware implements Service over an EndpointSet, so a remote
// instance can be driven through any transport that can populate the
// set.
func ProxyMiddleware(endpoints *EndpointSet) ServiceMiddleware {
	return func(next Service) Service {
		return &proxyMiddleware{
			endpoints: endpoints,
		}
	}
}

type proxyMiddleware struct {
	endpoints *EndpointSet
}

func (mw *proxyMiddleware) Close() error {
	return errors.New("method not implemented")
}

func (mw *proxyMiddleware) RouteMessage(ctx context.Context, message string, sessionID string) (*Reply, error) {
	req := RouteMessageRequest{
		Message:   message,
		SessionID: sessionID,
	}

	resp, err := mw.endpoints.RouteMessage(ctx, req)
	if err != nil {
		return nil, err
	}

	reply, ok := resp.(*Reply)
	if !ok {
		return nil, errors.New("invalid response type")
	}

	return reply, nil
}

func (mw *proxyMiddleware) Search(ctx context.Context, query string, topK int, threshold float64) ([]SearchResult, error) {
	req := SearchRequest{
		Query:     query,
		TopK:      topK,
		Threshold: threshold,
	}

	resp, err := mw.endpoints.Search(ctx, req)
	if err != nil {
		return nil, err
	}

	results, ok := resp.([]SearchResult)
	if !ok {
		return nil, errors.New("invalid response type")
	}

	return results, nil
}

func (mw *proxyMiddleware) LookupInventory(ctx context.Context, query string) (*InventoryResult, error) {
	resp, err := mw.endpoints.LookupInventory(ctx, query)
	if err != nil {
		return nil, err
	}

	result, ok := resp.(*InventoryResult)
	if !ok {
		return nil, errors.New("invalid response type")
	}

	return result, nil
}

func (mw *proxyMiddleware) RebuildIndex(ctx context.Context) (int, error) {
	resp, err := mw.endpoints.RebuildIndex(ctx, nil)
	if err != nil {
		return 0, err
	}

	result, ok := resp.(*RebuildIndexResponse)
	if !ok {
		return 0, errors.New("invalid response type")
	}

	return result.Count, nil
}

func (mw *proxyMiddleware) CreateOrder(ctx context.Context, lines []OrderLineInput) (*Order, error) {
	req := CreateOrderRequest{
		Lines: lines,
	}

	resp, err := mw.endpoints.CreateOrder(ctx, req)
	if err != nil {
		return nil, err
	}

	order, ok := resp.(*Order)
	if !ok {
		return nil, errors.New("invalid response type")
	}

	return order, nil
}

func (mw *proxyMiddleware) IssuePayment(ctx context.Context, orderID string) (*provider.PaymentIntent, error) {
	resp, err := mw.endpoints.IssuePayment(ctx, orderID)
	if err != nil {
		return nil, err
	}

	intent, ok := resp.(*provider.PaymentIntent)
	if !ok {
		return nil, errors.New("invalid response type")
	}

	return intent, nil
}

func (mw *proxyMiddleware) FinalizeOrder(ctx context.Context, orderID string, confirmation string) (*Order, error) {
	req := FinalizeOrderRequest{
		OrderID:      orderID,
		Confirmation: confirmation,
	}

	resp, err := mw.endpoints.FinalizeOrder(ctx, req)
	if err != nil {
		// A stock conflict still carries the failed order.
		if order, ok := resp.(*Order); ok {
			return order, err
		}

		return nil, err
	}

	order, ok := resp.(*Order)
	if !ok {
		return nil, errors.New("invalid response type")
	}

	return order, nil
}

func (mw *proxyMiddleware) CancelOrder(ctx context.Context, orderID string) (*Order, error) {
	resp, err := mw.endpoints.CancelOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	order, ok := resp.(*Order)
	if !ok {
		return nil, errors.New("invalid response type")
	}

	return order, nil
}

func (mw *proxyMiddleware) Order(ctx context.Context, orderID string) (*Order, error) {
	resp, err := mw.endpoints.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	order, ok := resp.(*Order)
	if !ok {
		return nil, errors.New("invalid response type")
	}

	return order, nil
}

func (mw *proxyMiddleware) Orders(ctx context.Context) ([]*Order, error) {
	resp, err := mw.endpoints.ListOrders(ctx, nil)
	if err != nil {
		return nil, err
	}

	orders, ok := resp.([]*Order)
	if !ok {
		return nil, errors.New("invalid response type")
	}

	return orders, nil
}
