package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeywordClassifier(t *testing.T) {
	assert := assert.New(t)

	cases := []struct {
		text string
		want Intent
	}{
		{"hi there", IntentGreeting},
		{"Good morning!", IntentGreeting},
		{"thanks a lot", IntentThanks},
		{"ok bye", IntentGoodbye},
		{"what are your hours?", IntentHours},
		{"when do you close", IntentHours},
		{"do you have hot sandwiches now?", IntentHotCold},
		{"any late night deals?", IntentDeals},
		{"do you take credit card?", IntentPayments},
		{"can you place my order", IntentOrderRequest},
		{"i want to order two turkey clubs", IntentOrderRequest},
		{"do you have turkey?", IntentQuestion},
		{"tell me about your sandwiches", IntentQuestion},
	}

	classifier := NewKeywordClassifier()

	for _, tc := range cases {
		cls, err := classifier.Classify(context.Background(), tc.text, nil)
		assert.NoError(err)
		assert.Equal(tc.want, cls.Intent, tc.text)
	}
}

func TestKeywordClassifierWordBoundaries(t *testing.T) {
	assert := assert.New(t)

	classifier := NewKeywordClassifier()

	// "hi" inside another word is not a greeting.
	cls, err := classifier.Classify(context.Background(), "which sandwich is best", nil)
	assert.NoError(err)
	assert.Equal(IntentQuestion, cls.Intent)
}
