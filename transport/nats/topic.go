package nats

import (
	"github.com/nats-io/nats.go/micro"

	"github.com/flarexio/deliblade"
)

func AddEndpoints(group micro.Group, endpoints deliblade.EndpointSet) {
	group.AddEndpoint("route_message", RouteMessageHandler(endpoints.RouteMessage))
	group.AddEndpoint("search", SearchHandler(endpoints.Search))
	group.AddEndpoint("lookup_inventory", LookupInventoryHandler(endpoints.LookupInventory))
	group.AddEndpoint("rebuild_index", RebuildIndexHandler(endpoints.RebuildIndex))
	group.AddEndpoint("create_order", CreateOrderHandler(endpoints.CreateOrder))
	group.AddEndpoint("issue_payment", IssuePaymentHandler(endpoints.IssuePayment))
	group.AddEndpoint("finalize_order", FinalizeOrderHandler(endpoints.FinalizeOrder))
	group.AddEndpoint("cancel_order", CancelOrderHandler(endpoints.CancelOrder))
	group.AddEndpoint("get_order", GetOrderHandler(endpoints.GetOrder))
	group.AddEndpoint("list_orders", ListOrdersHandler(endpoints.ListOrders))
}
