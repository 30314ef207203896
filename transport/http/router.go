package http

import (
	"github.com/gin-gonic/gin"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/flarexio/deliblade"

	mcpE "github.com/flarexio/deliblade/mcp"
)

func AddRouters(r *gin.Engine, endpoints deliblade.EndpointSet) {
	// RESTful API routes
	api := r.Group("/api")
	{
		api.POST("/agent/chat", RouteMessageHandler(endpoints.RouteMessage))
		api.GET("/agent/search", SearchHandler(endpoints.Search))
		api.GET("/agent/inventory/:name", LookupInventoryHandler(endpoints.LookupInventory))
		api.POST("/admin/reindex", RebuildIndexHandler(endpoints.RebuildIndex))

		api.POST("/orders", CreateOrderHandler(endpoints.CreateOrder))
		api.GET("/orders", ListOrdersHandler(endpoints.ListOrders))
		api.GET("/orders/:order_id", GetOrderHandler(endpoints.GetOrder))
		api.POST("/orders/:order_id/payment", IssuePaymentHandler(endpoints.IssuePayment))
		api.POST("/orders/:order_id/finalize", FinalizeOrderHandler(endpoints.FinalizeOrder))
		api.POST("/orders/:order_id/cancel", CancelOrderHandler(endpoints.CancelOrder))
	}
}

func AddStreamableRouters(r *gin.Engine, endpoints map[mcp.MCPMethod]mcpE.MCPEndpoint) {
	mcp := r.Group("/mcp")
	{
		mcp.POST("/", MCPStreamableHandler(endpoints))
	}
}
