package checkout

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joao-fontenele/storefront-sync/internal/domain"
)

var fixedNow = time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC)

func validForm() domain.CheckoutForm {
	return domain.CheckoutForm{
		ShippingAddress: domain.Address{
			Street:  "1 Main St",
			City:    "Springfield",
			State:   "IL",
			ZipCode: "62701",
			Country: "US",
		},
		PaymentMethod: domain.PaymentMethodCreditCard,
		CardNumber:    "4111 1111 1111 1111",
		CardExpiry:    "03/26",
		CardCVV:       "123",
	}
}

func TestValidator(t *testing.T) {
	v := NewValidator()
	v.now = func() time.Time { return fixedNow }

	tests := []struct {
		name   string
		mutate func(*domain.CheckoutForm)
		fields []string
	}{
		{name: "valid card form", mutate: func(*domain.CheckoutForm) {}},
		{
			name: "paypal skips card fields",
			mutate: func(f *domain.CheckoutForm) {
				f.PaymentMethod = domain.PaymentMethodPayPal
				f.CardNumber, f.CardExpiry, f.CardCVV = "", "", ""
			},
		},
		{
			name:   "blank street",
			mutate: func(f *domain.CheckoutForm) { f.ShippingAddress.Street = "   " },
			fields: []string{"shippingAddress.street"},
		},
		{
			name:   "zip plus four",
			mutate: func(f *domain.CheckoutForm) { f.ShippingAddress.ZipCode = "62701-1234" },
		},
		{
			name:   "bad zip",
			mutate: func(f *domain.CheckoutForm) { f.ShippingAddress.ZipCode = "6270" },
			fields: []string{"shippingAddress.zipCode"},
		},
		{
			name:   "unknown payment method",
			mutate: func(f *domain.CheckoutForm) { f.PaymentMethod = "Barter" },
			fields: []string{"paymentMethod"},
		},
		{
			name: "bad card details",
			mutate: func(f *domain.CheckoutForm) {
				f.CardNumber = "4111"
				f.CardExpiry = "02/26"
				f.CardCVV = "12a"
			},
			fields: []string{"cardNumber", "cardExpiry", "cardCVV"},
		},
		{
			name:   "everything missing",
			mutate: func(f *domain.CheckoutForm) { *f = domain.CheckoutForm{PaymentMethod: domain.PaymentMethodDebitCard} },
			fields: []string{
				"shippingAddress.street", "shippingAddress.city", "shippingAddress.state",
				"shippingAddress.zipCode", "cardNumber", "cardExpiry", "cardCVV",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := validForm()
			tt.mutate(&form)

			err := v.Validate(form)
			if len(tt.fields) == 0 {
				assert.NoError(t, err)
				return
			}

			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "expected *ValidationError, got %v", err)
			assert.Len(t, verr.Fields, len(tt.fields))
			for _, field := range tt.fields {
				assert.Contains(t, verr.Fields, field)
			}
		})
	}
}

func TestValidationError_Messages(t *testing.T) {
	v := NewValidator()
	form := validForm()
	form.ShippingAddress.ZipCode = "abc"
	form.CardCVV = ""
	v.now = func() time.Time { return fixedNow }

	err := v.Validate(form)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Invalid zip code", verr.Fields["shippingAddress.zipCode"])
	assert.Equal(t, "Invalid CVV", verr.Fields["cardCVV"])
	assert.Equal(t, "invalid checkout form: Invalid CVV; Invalid zip code", err.Error())
}

func TestValidCardExpiry(t *testing.T) {
	tests := []struct {
		expiry string
		want   bool
	}{
		{"03/26", true},
		{"12/26", true},
		{"01/27", true},
		{"02/26", false},
		{"12/25", false},
		{"13/26", false},
		{"3/26", false},
		{"03-26", false},
	}
	for _, tt := range tests {
		t.Run(tt.expiry, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidCardExpiry(tt.expiry, fixedNow))
		})
	}
}

func TestValidCardNumber(t *testing.T) {
	assert.True(t, ValidCardNumber("4111111111111"))
	assert.True(t, ValidCardNumber("4111 1111 1111 1111"))
	assert.True(t, ValidCardNumber("4111111111111111111"))
	assert.False(t, ValidCardNumber("41111111111111111111"))
	assert.False(t, ValidCardNumber("4111-1111-1111-1111"))
}
