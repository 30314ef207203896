// Package provider defines the external capabilities the assistant
// consumes. Every capability is a narrow interface with a
// deterministic fake in provider/fake, so the core is testable
// without live network calls.
package provider

import (
	"context"
	"errors"
	"fmt"
)

// Error wraps any failure of an external capability: network,
// timeout, auth, or rate limit. Callers classify with errors.As.
type Error struct {
	Provider string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider %s: %s", e.Provider, e.Err.Error())
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Errorf(provider string, format string, args ...any) error {
	return &Error{Provider: provider, Err: fmt.Errorf(format, args...)}
}

func Wrap(provider string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Provider: provider, Err: err}
}

// IsProviderError reports whether err originated from an external
// capability.
func IsProviderError(err error) bool {
	var pe *Error
	return errors.As(err, &pe)
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Embedder converts text into fixed-length vectors. The dimension is
// a deployment-time constant; vectors of different dimensions are
// never mixed within one index.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one vector per input text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Completer produces a chat completion for an ordered message list.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

type Intent string

const (
	IntentGreeting     Intent = "greeting"
	IntentThanks       Intent = "thanks"
	IntentGoodbye      Intent = "goodbye"
	IntentHours        Intent = "hours"
	IntentHotCold      Intent = "hot_cold"
	IntentDeals        Intent = "deals"
	IntentPayments     Intent = "payments"
	IntentQuestion     Intent = "question"
	IntentOrderRequest Intent = "order_request"
)

type ExtractedLine struct {
	Name string `json:"name"`
	Qty  int    `json:"qty"`
}

type Classification struct {
	Intent Intent          `json:"intent"`
	Lines  []ExtractedLine `json:"lines,omitempty"`
}

// Classifier maps free text to a coarse intent and, for order
// requests, a structured line list.
type Classifier interface {
	Classify(ctx context.Context, text string, history []Message) (*Classification, error)
}

type PaymentIntent struct {
	Handle       string `json:"handle"`
	ClientSecret string `json:"client_secret"`
}

// Payments issues and confirms payment intents.
type Payments interface {
	CreateIntent(ctx context.Context, amountCents int64, currency string, orderID string) (*PaymentIntent, error)
	Confirm(ctx context.Context, handle string) (bool, error)
}
