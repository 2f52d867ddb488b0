package domain

import "time"

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// statusRank orders the forward lifecycle. Cancelled sits outside it.
var statusRank = map[OrderStatus]int{
	OrderStatusPending:    0,
	OrderStatusProcessing: 1,
	OrderStatusShipped:    2,
	OrderStatusDelivered:  3,
}

func (s OrderStatus) Valid() bool {
	_, ok := statusRank[s]
	return ok || s == OrderStatusCancelled
}

// Cancellable reports whether an order in this status may still be cancelled.
func (s OrderStatus) Cancellable() bool {
	return s == OrderStatusPending || s == OrderStatusProcessing
}

// CanTransition reports whether an order may move from one status to another.
// The lifecycle only moves forward; cancellation is reachable from pending
// and processing only.
func CanTransition(from, to OrderStatus) bool {
	if to == OrderStatusCancelled {
		return from.Cancellable()
	}
	fromRank, ok := statusRank[from]
	if !ok {
		return false
	}
	toRank, ok := statusRank[to]
	if !ok {
		return false
	}
	return toRank > fromRank
}

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)

// OrderItem has the same shape as a cart item but is frozen at purchase time.
type OrderItem struct {
	ID        string  `json:"id"`
	ProductID string  `json:"productId"`
	Product   Product `json:"product"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

type Order struct {
	ID              string        `json:"id"`
	UserID          string        `json:"userId"`
	Items           []OrderItem   `json:"items"`
	Total           float64       `json:"total"`
	Status          OrderStatus   `json:"status"`
	ShippingAddress Address       `json:"shippingAddress"`
	PaymentMethod   string        `json:"paymentMethod"`
	PaymentStatus   PaymentStatus `json:"paymentStatus"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
}

type OrderHistory struct {
	Orders []Order `json:"orders"`
	Total  int     `json:"total"`
}

type Address struct {
	Street  string `json:"street" validate:"notblank"`
	City    string `json:"city" validate:"notblank"`
	State   string `json:"state" validate:"notblank"`
	ZipCode string `json:"zipCode" validate:"zipcode"`
	Country string `json:"country"`
}

const (
	PaymentMethodCreditCard     = "Credit Card"
	PaymentMethodDebitCard      = "Debit Card"
	PaymentMethodPayPal         = "PayPal"
	PaymentMethodCashOnDelivery = "Cash on Delivery"
)

var PaymentMethods = []string{
	PaymentMethodCreditCard,
	PaymentMethodDebitCard,
	PaymentMethodPayPal,
	PaymentMethodCashOnDelivery,
}

// CheckoutForm is the payload of POST /orders.
type CheckoutForm struct {
	ShippingAddress Address `json:"shippingAddress"`
	PaymentMethod   string  `json:"paymentMethod"`
	CardNumber      string  `json:"cardNumber,omitempty"`
	CardExpiry      string  `json:"cardExpiry,omitempty"`
	CardCVV         string  `json:"cardCVV,omitempty"`
}

// RequiresCard reports whether the payment method needs card details.
func (f CheckoutForm) RequiresCard() bool {
	return f.PaymentMethod == PaymentMethodCreditCard || f.PaymentMethod == PaymentMethodDebitCard
}
