// Package checkout validates the checkout form and places orders.
package checkout

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/joao-fontenele/storefront-sync/internal/domain"
)

var (
	zipRe    = regexp.MustCompile(`^\d{5}(-\d{4})?$`)
	cardRe   = regexp.MustCompile(`^\d{13,19}$`)
	expiryRe = regexp.MustCompile(`^(0[1-9]|1[0-2])/\d{2}$`)
	cvvRe    = regexp.MustCompile(`^\d{3,4}$`)
)

// Field messages keyed by the form field path.
var messages = map[string]string{
	"shippingAddress.street":  "Street address is required",
	"shippingAddress.city":    "City is required",
	"shippingAddress.state":   "State is required",
	"shippingAddress.zipCode": "Invalid zip code",
	"paymentMethod":           "Select a payment method",
	"cardNumber":              "Invalid card number",
	"cardExpiry":              "Invalid expiry date (MM/YY)",
	"cardCVV":                 "Invalid CVV",
}

// ValidationError maps form field paths to messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, e.Fields[k])
	}
	return "invalid checkout form: " + strings.Join(parts, "; ")
}

type Validator struct {
	v   *validator.Validate
	now func() time.Time
}

func NewValidator() *Validator {
	cv := &Validator{
		v:   validator.New(validator.WithRequiredStructEnabled()),
		now: time.Now,
	}

	cv.v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	// Registration only fails on an empty tag or nil func.
	_ = cv.v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = cv.v.RegisterValidation("zipcode", func(fl validator.FieldLevel) bool {
		return ValidZipCode(fl.Field().String())
	})
	cv.v.RegisterStructValidation(cv.validateForm, domain.CheckoutForm{})

	return cv
}

// Validate returns a *ValidationError listing every invalid field.
func (cv *Validator) Validate(form domain.CheckoutForm) error {
	err := cv.v.Struct(form)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate checkout form: %w", err)
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		_, path, _ := strings.Cut(fe.Namespace(), ".")
		msg, ok := messages[path]
		if !ok {
			msg = fmt.Sprintf("%s is invalid", path)
		}
		fields[path] = msg
	}
	return &ValidationError{Fields: fields}
}

func (cv *Validator) validateForm(sl validator.StructLevel) {
	form := sl.Current().Interface().(domain.CheckoutForm)

	if !slices.Contains(domain.PaymentMethods, form.PaymentMethod) {
		sl.ReportError(form.PaymentMethod, "paymentMethod", "PaymentMethod", "paymentmethod", "")
	}
	if !form.RequiresCard() {
		return
	}
	if !ValidCardNumber(form.CardNumber) {
		sl.ReportError(form.CardNumber, "cardNumber", "CardNumber", "cardnumber", "")
	}
	if !ValidCardExpiry(form.CardExpiry, cv.now()) {
		sl.ReportError(form.CardExpiry, "cardExpiry", "CardExpiry", "cardexpiry", "")
	}
	if !ValidCVV(form.CardCVV) {
		sl.ReportError(form.CardCVV, "cardCVV", "CardCVV", "cvv", "")
	}
}

func ValidZipCode(zip string) bool {
	return zipRe.MatchString(zip)
}

// ValidCardNumber accepts 13 to 19 digits, ignoring whitespace.
func ValidCardNumber(number string) bool {
	cleaned := strings.Join(strings.Fields(number), "")
	return cardRe.MatchString(cleaned)
}

// ValidCardExpiry accepts MM/YY no earlier than the current month.
func ValidCardExpiry(expiry string, now time.Time) bool {
	if !expiryRe.MatchString(expiry) {
		return false
	}
	month, _ := strconv.Atoi(expiry[:2])
	year, _ := strconv.Atoi(expiry[3:])

	currentYear := now.Year() % 100
	currentMonth := int(now.Month())
	if year < currentYear {
		return false
	}
	return year != currentYear || month >= currentMonth
}

func ValidCVV(cvv string) bool {
	return cvvRe.MatchString(cvv)
}
