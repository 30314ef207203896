package deliblade

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/flarexio/deliblade/provider"
)

const (
	ToolLookupInventory   = "lookup_inventory"
	ToolRetrieveKnowledge = "retrieve_knowledge"
	ToolChatCompletion    = "chat_completion"
	ToolCreateOrder       = "create_order"
)

// Fast-path patterns: simple availability, stock, and price questions
// answered without any provider call. First match wins.
var fastPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:do you (?:have|carry|sell|stock))\b`),
	regexp.MustCompile(`(?i)\b(?:is there|are there|got any)\b`),
	regexp.MustCompile(`(?i)\b(?:how much (?:is|does|for))\b`),
	regexp.MustCompile(`(?i)\b(?:what(?:'s| is) the price)\b`),
	regexp.MustCompile(`(?i)\b(?:in stock|available)\b`),
	regexp.MustCompile(`(?i)\b(?:price of|cost of)\b`),
}

func matchesFastPattern(message string) bool {
	for _, p := range fastPatterns {
		if p.MatchString(message) {
			return true
		}
	}
	return false
}

const fallbackReply = "I'm sorry, I couldn't find that right now. Could you ask in a different way?"

// RouteMessage is the per-message state machine: rules and fast-path
// lookup first, retrieval plus completion otherwise. The fast path
// fails open to the normal path, never to "not found".
func (svc *service) RouteMessage(ctx context.Context, message string, sessionID string) (*Reply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrValidation
	}

	log := svc.log.With(
		zap.String("action", "route_message"),
	)

	var history []provider.Message
	if sessionID != "" {
		history = svc.sessions.GetOrCreate(sessionID)
		svc.sessions.Append(sessionID, provider.Message{
			Role:    provider.RoleUser,
			Content: message,
		})
	}

	finish := func(reply string, used []string, path Path) (*Reply, error) {
		if sessionID != "" {
			svc.sessions.Append(sessionID, provider.Message{
				Role:    provider.RoleAssistant,
				Content: reply,
			})
		}

		return &Reply{
			Reply:     reply,
			UsedTools: used,
			Path:      path,
		}, nil
	}

	used := make([]string, 0, 3)

	if svc.classifier != nil {
		cls, err := svc.classifier.Classify(ctx, message, history)
		if err != nil {
			// A broken classifier must not break the conversation.
			log.Warn(err.Error())
			cls = nil
		}

		if cls != nil {
			if reply, ok := svc.ruleReply(cls.Intent); ok {
				return finish(reply, used, PathFast)
			}

			if cls.Intent == provider.IntentOrderRequest {
				reply, tools, ok := svc.orderFromMessage(ctx, message, history, cls.Lines)
				used = append(used, tools...)
				if ok {
					return finish(reply, used, PathFast)
				}
			}
		}
	}

	if matchesFastPattern(message) {
		inv, err := svc.LookupInventory(ctx, message)
		used = append(used, ToolLookupInventory)

		switch {
		case err != nil:
			log.Warn(err.Error())

		case inv.Found:
			return finish(formatInventoryReply(inv.Item), used, PathFast)
		}
		// no name resolved: fall through to retrieval
	}

	results, err := svc.Search(ctx, message, 0, 0)
	used = append(used, ToolRetrieveKnowledge)
	if err != nil {
		log.Warn(err.Error())
		return finish(fallbackReply, used, PathNormal)
	}

	if svc.completer == nil {
		return finish(draftFromResults(results), used, PathNormal)
	}

	messages := svc.promptMessages(message, history, results)

	out, err := svc.completer.Complete(ctx, messages)
	if err != nil {
		log.Warn(err.Error())
		return finish(fallbackReply, used, PathNormal)
	}

	used = append(used, ToolChatCompletion)
	return finish(out, used, PathNormal)
}

// ruleReply answers small talk and store-rule questions from
// configuration alone.
func (svc *service) ruleReply(intent provider.Intent) (string, bool) {
	rules := svc.cfg.Store

	switch intent {
	case provider.IntentGreeting:
		return "Hi there! How can I help you today? I can check availability, prices, or late-night deals.", true

	case provider.IntentThanks:
		return "You are very welcome. If you need anything else, I am right here.", true

	case provider.IntentGoodbye:
		return "Thanks for stopping by. Have a great day.", true

	case provider.IntentHours:
		return fmt.Sprintf(
			"We are open from %s to %s. Hot sandwiches are served until %s. After that, only cold sandwiches are available.",
			rules.OpenTime, rules.CloseTime, rules.HotCutoff,
		), true

	case provider.IntentHotCold:
		return fmt.Sprintf(
			"Hot sandwiches are served until %s. After that time we offer cold sandwiches.",
			rules.HotCutoff,
		), true

	case provider.IntentDeals:
		return fmt.Sprintf(
			"Late-night deals start at %s. Some items go on sale after that.",
			rules.LateDealsStart,
		), true

	case provider.IntentPayments:
		return "We accept cash and all major credit/debit cards including Visa, Mastercard, and American Express.", true

	default:
		return "", false
	}
}

// orderFromMessage turns an order-request intent into a draft order.
// Lines come from the classifier when it extracts them, otherwise
// from the completer. Returns ok=false to fail open to the normal
// path.
func (svc *service) orderFromMessage(ctx context.Context, message string, history []provider.Message, lines []provider.ExtractedLine) (string, []string, bool) {
	tools := make([]string, 0, 2)

	if len(lines) == 0 && svc.completer != nil {
		extracted, err := svc.extractOrderLines(ctx, message, history)
		tools = append(tools, ToolChatCompletion)
		if err != nil {
			svc.log.Warn(err.Error(), zap.String("action", "extract_order_lines"))
			return "", tools, false
		}

		lines = extracted
	}

	if len(lines) == 0 {
		return "", tools, false
	}

	_, names := svc.index()

	inputs := make([]OrderLineInput, 0, len(lines))
	for _, line := range lines {
		if line.Qty <= 0 {
			continue
		}

		id, ok := names.Resolve(line.Name)
		if !ok {
			continue
		}

		inputs = append(inputs, OrderLineInput{ItemID: id, Qty: line.Qty})
	}

	if len(inputs) == 0 {
		return "", tools, false
	}

	order, err := svc.CreateOrder(ctx, inputs)
	if err != nil {
		svc.log.Warn(err.Error(), zap.String("action", "order_from_message"))
		return "", tools, false
	}

	tools = append(tools, ToolCreateOrder)

	var parts []string
	for _, line := range order.Lines {
		parts = append(parts, fmt.Sprintf("%d x %s", line.Qty, line.Name))
	}

	reply := fmt.Sprintf(
		"I've started your order: %s. Your total is $%.2f including tax. Your order ID is %s.",
		strings.Join(parts, ", "), order.Total, order.ID,
	)

	return reply, tools, true
}

// extractOrderLines asks the completer to turn messy free text into
// structured (name, qty) lines, constrained to the known menu.
func (svc *service) extractOrderLines(ctx context.Context, message string, history []provider.Message) ([]provider.ExtractedLine, error) {
	_, names := svc.index()
	if names == nil {
		return nil, nil
	}

	menu := make([]string, 0, len(names.entries))
	for _, entry := range names.entries {
		menu = append(menu, entry.name)
	}

	system := "You are an ordering assistant for a small store.\n" +
		"User text may be messy (typos, extra words).\n" +
		"Your job is ONLY to extract what they are trying to order.\n" +
		"Use the MENU list to match item names. If nothing is being ordered, return an empty list.\n" +
		"Use the CONVERSATION HISTORY to understand context.\n" +
		`Always respond with pure JSON: {"lines":[{"name":...,"qty":...}, ...]}.`

	var sb strings.Builder
	sb.WriteString("MENU ITEMS: ")
	sb.WriteString(strings.Join(menu, ", "))
	sb.WriteString("\n\n")

	if len(history) > 0 {
		sb.WriteString("CONVERSATION HISTORY:\n")
		for _, turn := range limitHistory(history, svc.cfg.Agent.HistoryLimit) {
			sb.WriteString(turn.Role)
			sb.WriteString(": ")
			sb.WriteString(turn.Content)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	sb.WriteString("CURRENT USER MESSAGE: ")
	sb.WriteString(message)
	sb.WriteString("\n\nReturn JSON only.")

	out, err := svc.completer.Complete(ctx, []provider.Message{
		{Role: provider.RoleSystem, Content: system},
		{Role: provider.RoleUser, Content: sb.String()},
	})

	if err != nil {
		return nil, err
	}

	var parsed struct {
		Lines []provider.ExtractedLine `json:"lines"`
	}

	if err := json.Unmarshal([]byte(stripCodeFence(out)), &parsed); err != nil {
		return nil, nil
	}

	lines := make([]provider.ExtractedLine, 0, len(parsed.Lines))
	for _, line := range parsed.Lines {
		name := strings.TrimSpace(line.Name)
		if name == "" || line.Qty <= 0 {
			continue
		}

		lines = append(lines, provider.ExtractedLine{Name: name, Qty: line.Qty})
	}

	return lines, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// promptMessages builds the completion request for the normal path:
// system prompt, bounded history, then the user question with the
// retrieved context inlined.
func (svc *service) promptMessages(message string, history []provider.Message, results []SearchResult) []provider.Message {
	rules := svc.cfg.Store

	name := rules.Name
	if name == "" {
		name = "the store"
	}

	system := fmt.Sprintf(
		"You are a friendly assistant for %s.\n"+
			"Use only facts from CONTEXT. Never invent items, prices, or hours.\n"+
			"Store hours: %s to %s. Hot sandwiches until %s.\n"+
			"Late-night deals start at %s.\n"+
			"Keep answers short (1-3 sentences), clear, and polite.\n"+
			"If you cannot find the answer in CONTEXT, say so honestly.",
		name, rules.OpenTime, rules.CloseTime, rules.HotCutoff, rules.LateDealsStart,
	)

	messages := make([]provider.Message, 0, len(history)+2)
	messages = append(messages, provider.Message{
		Role:    provider.RoleSystem,
		Content: system,
	})

	messages = append(messages, limitHistory(history, svc.cfg.Agent.HistoryLimit)...)

	messages = append(messages, provider.Message{
		Role:    provider.RoleUser,
		Content: fmt.Sprintf("CONTEXT:\n%s\n\nUSER QUESTION:\n%s", contextBlock(results), message),
	})

	return messages
}

func contextBlock(results []SearchResult) string {
	if len(results) == 0 {
		return "No matching items found."
	}

	lines := make([]string, len(results))
	for i, r := range results {
		line := r.Name
		if r.InStock {
			line += " | In stock"
		} else {
			line += " | Sold out"
		}
		line += fmt.Sprintf(" | Price: $%.2f", r.Price)
		lines[i] = line
	}

	return strings.Join(lines, "\n")
}

func limitHistory(history []provider.Message, limit int) []provider.Message {
	if limit <= 0 || len(history) <= limit {
		return history
	}
	return history[len(history)-limit:]
}

func formatInventoryReply(item *InventoryItem) string {
	var parts []string

	if item.Qty > 0 {
		parts = append(parts, fmt.Sprintf("Yes, we have %s! We have %d in stock.", item.Name, item.Qty))
	} else {
		parts = append(parts, fmt.Sprintf("We carry %s, but it's currently sold out.", item.Name))
	}

	if item.Price > 0 {
		parts = append(parts, fmt.Sprintf("It costs $%.2f plus tax.", item.Price))
	}

	return strings.Join(parts, " ")
}

// draftFromResults is the no-completer fallback: a deterministic
// sentence about the best match.
func draftFromResults(results []SearchResult) string {
	if len(results) == 0 {
		return fallbackReply
	}

	top := results[0]
	if top.InStock {
		return fmt.Sprintf("%s is available. It costs $%.2f plus tax.", top.Name, top.Price)
	}

	return fmt.Sprintf("%s is currently sold out.", top.Name)
}
