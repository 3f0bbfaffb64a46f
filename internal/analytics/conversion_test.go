package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var testConversion = ConversionEvents{
	Success: []string{"payment_success"},
	Attempt: []string{"payment_initiate", "PaymentPage_payment initiated"},
	Failure: []string{"payment_failed", "paymentFailed_backpressed", "paymentFailed_pending_vbv"},
	Push:    []string{"Push Click", "Push Impression"},
}

func TestConversion(t *testing.T) {
	d := mustDataset(t,
		ev("u1", "payment_initiate", 0),
		ev("u1", "payment_success", time.Second),
		ev("u1", "Push Click", 2*time.Second),
		ev("u2", "PaymentPage_payment initiated", 0),
		ev("u2", "payment_failed", time.Second),
		ev("u3", "Push Impression", 0),
	)

	got := Conversion(d, testConversion)

	assert.Equal(t, ConversionResult{
		Total:         3,
		Converters:    1,
		ConvPct:       33.33,
		Attempted:     2,
		Failed:        1,
		PaySuccessPct: 50,
		PushUsers:     2,
		PushConv:      1,
		PushPct:       50,
	}, got)
}

func TestConversionZeroDenominators(t *testing.T) {
	d := mustDataset(t, ev("u1", "app_start", 0))

	got := Conversion(d, testConversion)

	assert.Equal(t, 0.0, got.PaySuccessPct)
	assert.Equal(t, 0.0, got.PushPct)
}
