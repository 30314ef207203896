package deliblade

import (
	"context"

	"go.uber.org/zap"

	"github.com/flarexio/deliblade/provider"
)

func LoggingMiddleware(log *zap.Logger) ServiceMiddleware {
	return func(next Service) Service {
		log = log.With(
			zap.String("service", "deliblade"),
		)

		return &loggingMiddleware{log, next}
	}
}

type loggingMiddleware struct {
	log  *zap.Logger
	next Service
}

func (mw *loggingMiddleware) Close() error {
	log := mw.log.With(
		zap.String("action", "close"),
	)

	if err := mw.next.Close(); err != nil {
		log.Error(err.Error())
		return err
	}

	log.Info("service closed")
	return nil
}

func (mw *loggingMiddleware) RouteMessage(ctx context.Context, message string, sessionID string) (*Reply, error) {
	log := mw.log.With(
		zap.String("action", "route_message"),
		zap.String("session_id", sessionID),
	)

	reply, err := mw.next.RouteMessage(ctx, message, sessionID)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Info("message routed",
		zap.String("path", string(reply.Path)),
		zap.Strings("used_tools", reply.UsedTools),
	)

	return reply, nil
}

func (mw *loggingMiddleware) Search(ctx context.Context, query string, topK int, threshold float64) ([]SearchResult, error) {
	log := mw.log.With(
		zap.String("action", "search"),
		zap.String("query", query),
	)

	results, err := mw.next.Search(ctx, query, topK, threshold)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Info("search completed",
		zap.Int("results", len(results)),
	)

	return results, nil
}

func (mw *loggingMiddleware) LookupInventory(ctx context.Context, query string) (*InventoryResult, error) {
	log := mw.log.With(
		zap.String("action", "lookup_inventory"),
		zap.String("query", query),
	)

	result, err := mw.next.LookupInventory(ctx, query)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Info("inventory looked up",
		zap.Bool("found", result.Found),
	)

	return result, nil
}

func (mw *loggingMiddleware) RebuildIndex(ctx context.Context) (int, error) {
	log := mw.log.With(
		zap.String("action", "rebuild_index"),
	)

	count, err := mw.next.RebuildIndex(ctx)
	if err != nil {
		log.Error(err.Error())
		return 0, err
	}

	log.Info("index rebuilt",
		zap.Int("count", count),
	)

	return count, nil
}

func (mw *loggingMiddleware) CreateOrder(ctx context.Context, lines []OrderLineInput) (*Order, error) {
	log := mw.log.With(
		zap.String("action", "create_order"),
		zap.Int("lines", len(lines)),
	)

	order, err := mw.next.CreateOrder(ctx, lines)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Info("order created",
		zap.String("order_id", order.ID),
		zap.Float64("total", order.Total),
	)

	return order, nil
}

func (mw *loggingMiddleware) IssuePayment(ctx context.Context, orderID string) (*provider.PaymentIntent, error) {
	log := mw.log.With(
		zap.String("action", "issue_payment"),
		zap.String("order_id", orderID),
	)

	intent, err := mw.next.IssuePayment(ctx, orderID)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Info("payment issued",
		zap.String("payment_ref", intent.Handle),
	)

	return intent, nil
}

func (mw *loggingMiddleware) FinalizeOrder(ctx context.Context, orderID string, confirmation string) (*Order, error) {
	log := mw.log.With(
		zap.String("action", "finalize_order"),
		zap.String("order_id", orderID),
	)

	order, err := mw.next.FinalizeOrder(ctx, orderID, confirmation)
	if err != nil {
		log.Error(err.Error())
		return order, err
	}

	log.Info("order finalized",
		zap.String("status", string(order.Status)),
	)

	return order, nil
}

func (mw *loggingMiddleware) CancelOrder(ctx context.Context, orderID string) (*Order, error) {
	log := mw.log.With(
		zap.String("action", "cancel_order"),
		zap.String("order_id", orderID),
	)

	order, err := mw.next.CancelOrder(ctx, orderID)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Info("order cancelled")
	return order, nil
}

func (mw *loggingMiddleware) Order(ctx context.Context, orderID string) (*Order, error) {
	log := mw.log.With(
		zap.String("action", "get_order"),
		zap.String("order_id", orderID),
	)

	order, err := mw.next.Order(ctx, orderID)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	return order, nil
}

func (mw *loggingMiddleware) Orders(ctx context.Context) ([]*Order, error) {
	log := mw.log.With(
		zap.String("action", "list_orders"),
	)

	orders, err := mw.next.Orders(ctx)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	return orders, nil
}
