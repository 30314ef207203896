package deliblade_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/flarexio/deliblade"
	"github.com/flarexio/deliblade/persistence/chromem"
	"github.com/flarexio/deliblade/persistence/inmem"
	"github.com/flarexio/deliblade/provider"
	"github.com/flarexio/deliblade/provider/fake"
	"github.com/flarexio/deliblade/vector"
)

func testConfig() deliblade.Config {
	return deliblade.Config{
		Store: deliblade.StoreConfig{
			Name:     "Lou's Deli",
			Currency: "USD",
			TaxRate:  0.1,
		},
		Vector: vector.Config{
			Enabled:    true,
			Persistent: false,
			Collection: "items",
		},
	}
}

func testCatalog() *inmem.Catalog {
	return inmem.NewCatalog(
		&deliblade.Item{
			ID: "itm_club", Name: "Turkey Club", Category: "sandwich",
			Price: 8.5, Quantity: 2, Active: true, Public: true,
		},
		&deliblade.Item{
			ID: "itm_turkey", Name: "Turkey", Category: "sandwich",
			Price: 6.5, Quantity: 4, Active: true, Public: true,
		},
		&deliblade.Item{
			ID: "itm_pastrami", Name: "Pastrami", Category: "sandwich",
			Price: 9.25, Quantity: 0, Active: true, Public: true,
		},
		&deliblade.Item{
			ID: "itm_cola", Name: "Cola", Category: "drink",
			Price: 2.0, Quantity: 10, Active: true, Public: true,
		},
	)
}

type delibladeTestSuite struct {
	suite.Suite
	ctx       context.Context
	svc       deliblade.Service
	catalog   *inmem.Catalog
	completer *fake.Completer
	payments  *fake.Payments
}

func (suite *delibladeTestSuite) SetupTest() {
	ctx := context.Background()

	cfg := testConfig()

	vectorDB, err := chromem.NewChromemVectorDB(cfg.Vector)
	if err != nil {
		suite.FailNow(err.Error())
		return
	}

	catalog := testCatalog()
	completer := &fake.Completer{Reply: "We have great sandwiches."}
	payments := fake.NewPayments()

	svc, err := deliblade.NewService(ctx, cfg, deliblade.Dependencies{
		Catalog:    catalog,
		Orders:     inmem.NewOrderStore(),
		Vector:     vectorDB,
		Embedder:   fake.NewEmbedder(64),
		Completer:  completer,
		Classifier: provider.NewKeywordClassifier(),
		Payments:   payments,
	})

	if err != nil {
		suite.FailNow(err.Error())
		return
	}

	suite.ctx = ctx
	suite.svc = svc
	suite.catalog = catalog
	suite.completer = completer
	suite.payments = payments
}

func (suite *delibladeTestSuite) TearDownTest() {
	suite.svc.Close()
}

func (suite *delibladeTestSuite) TestSearch() {
	results, err := suite.svc.Search(suite.ctx, "turkey sandwich", 4, 0)
	if err != nil {
		suite.FailNow(err.Error())
		return
	}

	suite.NotEmpty(results)
	suite.Contains([]string{"itm_club", "itm_turkey"}, results[0].ItemID)

	for i, result := range results {
		// The index only serves in-stock items.
		suite.True(result.InStock, result.Name)
		suite.NotEqual("itm_pastrami", result.ItemID)
		suite.GreaterOrEqual(result.Score, 0.35)
		suite.LessOrEqual(result.Score, 1.0)

		if i > 0 {
			suite.LessOrEqual(result.Score, results[i-1].Score)
		}
	}
}

func (suite *delibladeTestSuite) TestSearchJoinsLiveStock() {
	// Sell out the club between rebuild and query; the result must
	// carry the live quantity, not the indexed snapshot.
	suite.catalog.UpsertItem(&deliblade.Item{
		ID: "itm_club", Name: "Turkey Club", Category: "sandwich",
		Price: 9.0, Quantity: 0, Active: true, Public: true,
	})

	results, err := suite.svc.Search(suite.ctx, "turkey club sandwich", 4, 0)
	if err != nil {
		suite.FailNow(err.Error())
		return
	}

	for _, result := range results {
		if result.ItemID != "itm_club" {
			continue
		}

		suite.False(result.InStock)
		suite.Equal(9.0, result.Price)
	}
}

func (suite *delibladeTestSuite) TestSearchSkipsVanishedItems() {
	// Remove an indexed item without rebuilding; the stale index entry
	// must be dropped, not served with zero price and stock.
	suite.catalog.RemoveItem("itm_turkey")

	results, err := suite.svc.Search(suite.ctx, "turkey sandwich", 4, 0)
	if err != nil {
		suite.FailNow(err.Error())
		return
	}

	suite.NotEmpty(results)

	for _, result := range results {
		suite.NotEqual("itm_turkey", result.ItemID)
		suite.Greater(result.Price, 0.0, result.Name)
	}
}

func (suite *delibladeTestSuite) TestSearchValidation() {
	_, err := suite.svc.Search(suite.ctx, "", 4, 0)
	suite.ErrorIs(err, deliblade.ErrValidation)
}

func (suite *delibladeTestSuite) TestLookupInventory() {
	inv, err := suite.svc.LookupInventory(suite.ctx, "do you have a turkey club?")
	if err != nil {
		suite.FailNow(err.Error())
		return
	}

	suite.True(inv.Found)
	suite.Equal("itm_club", inv.Item.ID)
	suite.Equal(2, inv.Item.Qty)

	inv, err = suite.svc.LookupInventory(suite.ctx, "do you have sushi?")
	if err != nil {
		suite.FailNow(err.Error())
		return
	}

	suite.False(inv.Found)
	suite.Nil(inv.Item)
}

func (suite *delibladeTestSuite) TestRouteMessageFastPath() {
	reply, err := suite.svc.RouteMessage(suite.ctx, "Do you have turkey?", "")
	if err != nil {
		suite.FailNow(err.Error())
		return
	}

	suite.Equal(deliblade.PathFast, reply.Path)
	suite.Equal([]string{deliblade.ToolLookupInventory}, reply.UsedTools)
	suite.Contains(reply.Reply, "Yes, we have Turkey!")
	suite.Contains(reply.Reply, "4 in stock")

	// The fast path never calls the completer.
	suite.Empty(suite.completer.Calls())
}

func (suite *delibladeTestSuite) TestRouteMessageSoldOut() {
	reply, err := suite.svc.RouteMessage(suite.ctx, "do you have pastrami?", "")
	if err != nil {
		suite.FailNow(err.Error())
		return
	}

	suite.Equal(deliblade.PathFast, reply.Path)
	suite.Contains(reply.Reply, "sold out")
}

func (suite *delibladeTestSuite) TestRouteMessageNormalPath() {
	reply, err := suite.svc.RouteMessage(suite.ctx, "tell me about your sandwiches", "")
	if err != nil {
		suite.FailNow(err.Error())
		return
	}

	suite.Equal(deliblade.PathNormal, reply.Path)
	suite.Equal([]string{deliblade.ToolRetrieveKnowledge, deliblade.ToolChatCompletion}, reply.UsedTools)
	suite.Equal("We have great sandwiches.", reply.Reply)

	calls := suite.completer.Calls()
	suite.Len(calls, 1)

	// The completion prompt inlines the retrieved context.
	last := calls[0][len(calls[0])-1]
	suite.Contains(last.Content, "CONTEXT:")
	suite.Contains(last.Content, "USER QUESTION:")
}

func (suite *delibladeTestSuite) TestRouteMessageFastPatternFallsThrough() {
	// A fast-pattern match with no resolvable name falls open to the
	// normal path instead of answering "not found".
	reply, err := suite.svc.RouteMessage(suite.ctx, "do you have anything good for a picnic?", "")
	if err != nil {
		suite.FailNow(err.Error())
		return
	}

	suite.Equal(deliblade.PathNormal, reply.Path)
	suite.Contains(reply.UsedTools, deliblade.ToolLookupInventory)
	suite.Contains(reply.UsedTools, deliblade.ToolRetrieveKnowledge)
}

func (suite *delibladeTestSuite) TestRouteMessageRules() {
	reply, err := suite.svc.RouteMessage(suite.ctx, "what are your hours?", "")
	if err != nil {
		suite.FailNow(err.Error())
		return
	}

	suite.Equal(deliblade.PathFast, reply.Path)
	suite.Empty(reply.UsedTools)
	suite.Contains(reply.Reply, "6:00 AM")
	suite.Contains(reply.Reply, "11:00 PM")

	reply, err = suite.svc.RouteMessage(suite.ctx, "do you take credit card?", "")
	if err != nil {
		suite.FailNow(err.Error())
		return
	}

	suite.Equal(deliblade.PathFast, reply.Path)
	suite.Contains(reply.Reply, "Visa")
}

func (suite *delibladeTestSuite) TestRouteMessageOrderRequest() {
	suite.completer.Fn = func(messages []provider.Message) (string, error) {
		last := messages[len(messages)-1]
		if strings.Contains(last.Content, "MENU ITEMS:") {
			lines := map[string]any{
				"lines": []map[string]any{
					{"name": "turkey club", "qty": 2},
				},
			}

			out, _ := json.Marshal(lines)
			return string(out), nil
		}

		return "We have great sandwiches.", nil
	}

	reply, err := suite.svc.RouteMessage(suite.ctx, "can you place my order: two turkey clubs", "")
	if err != nil {
		suite.FailNow(err.Error())
		return
	}

	suite.Equal(deliblade.PathFast, reply.Path)
	suite.Contains(reply.UsedTools, deliblade.ToolChatCompletion)
	suite.Contains(reply.UsedTools, deliblade.ToolCreateOrder)
	suite.Contains(reply.Reply, "2 x Turkey Club")
	suite.Contains(reply.Reply, "$18.70")

	orders, err := suite.svc.Orders(suite.ctx)
	if err != nil {
		suite.FailNow(err.Error())
		return
	}

	suite.Len(orders, 1)
	suite.Equal(deliblade.OrderDraft, orders[0].Status)
}

func (suite *delibladeTestSuite) TestRouteMessageValidation() {
	_, err := suite.svc.RouteMessage(suite.ctx, "   ", "s1")
	suite.ErrorIs(err, deliblade.ErrValidation)
}

func (suite *delibladeTestSuite) TestRouteMessageKeepsHistory() {
	_, err := suite.svc.RouteMessage(suite.ctx, "tell me about your sandwiches", "s1")
	if err != nil {
		suite.FailNow(err.Error())
		return
	}

	_, err = suite.svc.RouteMessage(suite.ctx, "tell me more about the first one", "s1")
	if err != nil {
		suite.FailNow(err.Error())
		return
	}

	calls := suite.completer.Calls()
	suite.Len(calls, 2)

	// The second completion carries the first exchange as history.
	second := calls[1]
	var sawEarlierTurn bool
	for _, msg := range second {
		if msg.Content == "tell me about your sandwiches" {
			sawEarlierTurn = true
		}
	}
	suite.True(sawEarlierTurn)
}

func (suite *delibladeTestSuite) TestRebuildIndexReconciles() {
	suite.catalog.RemoveItem("itm_cola")
	suite.catalog.UpsertItem(&deliblade.Item{
		ID: "itm_reuben", Name: "Reuben", Category: "sandwich",
		Price: 9.75, Quantity: 6, Active: true, Public: true,
	})

	count, err := suite.svc.RebuildIndex(suite.ctx)
	if err != nil {
		suite.FailNow(err.Error())
		return
	}

	suite.Equal(4, count)

	inv, err := suite.svc.LookupInventory(suite.ctx, "reuben")
	if err != nil {
		suite.FailNow(err.Error())
		return
	}
	suite.True(inv.Found)

	inv, err = suite.svc.LookupInventory(suite.ctx, "cola")
	if err != nil {
		suite.FailNow(err.Error())
		return
	}
	suite.False(inv.Found)

	results, err := suite.svc.Search(suite.ctx, "cola drink", 4, 0.01)
	if err != nil {
		suite.FailNow(err.Error())
		return
	}

	for _, result := range results {
		suite.NotEqual("itm_cola", result.ItemID)
	}
}

func TestDelibladeTestSuite(t *testing.T) {
	suite.Run(t, new(delibladeTestSuite))
}
