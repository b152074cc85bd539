package kiwify

import "time"

// Action is what a payment event does to an account plan.
type Action int

const (
	ActionIgnore Action = iota
	ActionActivate
	ActionDowngrade
)

func (a Action) String() string {
	switch a {
	case ActionActivate:
		return "activate"
	case ActionDowngrade:
		return "downgrade"
	}
	return "ignore"
}

// Customer is the buyer attached to an order or sale.
type Customer struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Name     string `json:"name"`
}

// DisplayName prefers the full name when both are set.
func (c Customer) DisplayName() string {
	if c.FullName != "" {
		return c.FullName
	}
	return c.Name
}

type Subscription struct {
	Status      string `json:"status"`
	NextPayment string `json:"next_payment"`
}

// Order is the webhook payload posted by Kiwify.
type Order struct {
	OrderID          string        `json:"order_id"`
	OrderStatus      string        `json:"order_status"`
	WebhookEventType string        `json:"webhook_event_type"`
	Customer         Customer      `json:"Customer"`
	Subscription     *Subscription `json:"Subscription,omitempty"`
}

// Action maps the event type, falling back to the order status.
func (o Order) Action() Action {
	switch o.WebhookEventType {
	case "order_approved":
		return ActionActivate
	case "order_refunded", "chargeback", "subscription_canceled":
		return ActionDowngrade
	}
	return statusAction(o.OrderStatus)
}

// PaidUntil is the next payment date of a subscription order, if any.
func (o Order) PaidUntil() (time.Time, bool) {
	if o.Subscription == nil {
		return time.Time{}, false
	}
	return parseDate(o.Subscription.NextPayment)
}

// Sale is one row of the sales listing API.
type Sale struct {
	ID        string   `json:"id"`
	Status    string   `json:"status"`
	CreatedAt string   `json:"created_at"`
	Customer  Customer `json:"customer"`
}

func (s Sale) Action() Action { return statusAction(s.Status) }

// Created parses the sale timestamp. Unparseable values sort first.
func (s Sale) Created() time.Time {
	t, _ := parseDate(s.CreatedAt)
	return t
}

func statusAction(status string) Action {
	switch status {
	case "paid", "approved":
		return ActionActivate
	case "refunded", "chargedback", "chargeback":
		return ActionDowngrade
	}
	return ActionIgnore
}

var dateLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"}

func parseDate(v string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
