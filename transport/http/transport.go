package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-kit/kit/endpoint"

	"github.com/flarexio/deliblade"
	"github.com/flarexio/deliblade/provider"
)

func statusOf(err error) int {
	switch {
	case errors.Is(err, deliblade.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, deliblade.ErrItemNotFound),
		errors.Is(err, deliblade.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, deliblade.ErrOrderNotPayable),
		errors.Is(err, deliblade.ErrOrderNotCancellable),
		errors.Is(err, deliblade.ErrInsufficientStock):
		return http.StatusConflict
	case errors.Is(err, deliblade.ErrPaymentNotConfirmed):
		return http.StatusPaymentRequired
	case provider.IsProviderError(err):
		return http.StatusBadGateway
	default:
		return http.StatusExpectationFailed
	}
}

func abortWithError(c *gin.Context, err error) {
	c.String(statusOf(err), err.Error())
	c.Error(err)
	c.Abort()
}

func RouteMessageHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req deliblade.RouteMessageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.String(http.StatusBadRequest, err.Error())
			c.Error(err)
			c.Abort()
			return
		}

		ctx := c.Request.Context()
		resp, err := endpoint(ctx, req)
		if err != nil {
			abortWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, &resp)
	}
}

func SearchHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req deliblade.SearchRequest
		if err := c.ShouldBindQuery(&req); err != nil {
			c.String(http.StatusBadRequest, err.Error())
			c.Error(err)
			c.Abort()
			return
		}

		ctx := c.Request.Context()
		resp, err := endpoint(ctx, req)
		if err != nil {
			abortWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, &resp)
	}
}

func LookupInventoryHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("name")
		if name == "" {
			err := errors.New("item name is required")
			c.String(http.StatusBadRequest, err.Error())
			c.Error(err)
			c.Abort()
			return
		}

		ctx := c.Request.Context()
		resp, err := endpoint(ctx, name)
		if err != nil {
			abortWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, &resp)
	}
}

func RebuildIndexHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		resp, err := endpoint(ctx, nil)
		if err != nil {
			abortWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, &resp)
	}
}

func CreateOrderHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req deliblade.CreateOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.String(http.StatusBadRequest, err.Error())
			c.Error(err)
			c.Abort()
			return
		}

		ctx := c.Request.Context()
		resp, err := endpoint(ctx, req)
		if err != nil {
			abortWithError(c, err)
			return
		}

		c.JSON(http.StatusCreated, &resp)
	}
}

func ListOrdersHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		resp, err := endpoint(ctx, nil)
		if err != nil {
			abortWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, &resp)
	}
}

func GetOrderHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID := c.Param("order_id")
		if orderID == "" {
			err := errors.New("order id is required")
			c.String(http.StatusBadRequest, err.Error())
			c.Error(err)
			c.Abort()
			return
		}

		ctx := c.Request.Context()
		resp, err := endpoint(ctx, orderID)
		if err != nil {
			abortWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, &resp)
	}
}

func IssuePaymentHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID := c.Param("order_id")
		if orderID == "" {
			err := errors.New("order id is required")
			c.String(http.StatusBadRequest, err.Error())
			c.Error(err)
			c.Abort()
			return
		}

		ctx := c.Request.Context()
		resp, err := endpoint(ctx, orderID)
		if err != nil {
			abortWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, &resp)
	}
}

func FinalizeOrderHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID := c.Param("order_id")
		if orderID == "" {
			err := errors.New("order id is required")
			c.String(http.StatusBadRequest, err.Error())
			c.Error(err)
			c.Abort()
			return
		}

		var body struct {
			Confirmation string `json:"confirmation"`
		}
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&body); err != nil {
				c.String(http.StatusBadRequest, err.Error())
				c.Error(err)
				c.Abort()
				return
			}
		}

		req := deliblade.FinalizeOrderRequest{
			OrderID:      orderID,
			Confirmation: body.Confirmation,
		}

		ctx := c.Request.Context()
		resp, err := endpoint(ctx, req)
		if err != nil {
			// A stock conflict still carries the failed order.
			if errors.Is(err, deliblade.ErrInsufficientStock) && resp != nil {
				c.JSON(http.StatusConflict, &resp)
				return
			}

			abortWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, &resp)
	}
}

func CancelOrderHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID := c.Param("order_id")
		if orderID == "" {
			err := errors.New("order id is required")
			c.String(http.StatusBadRequest, err.Error())
			c.Error(err)
			c.Abort()
			return
		}

		ctx := c.Request.Context()
		resp, err := endpoint(ctx, orderID)
		if err != nil {
			abortWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, &resp)
	}
}
