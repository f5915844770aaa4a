// Package billing reconciles Stripe invoice events against local billing
// records: resolving provider customers to clients, locating or creating the
// matching invoice, and applying the payment outcome.
package billing

import (
	"encoding/json"
	"time"
)

// StripeRef is a Stripe object reference that arrives either as a bare ID
// string or as an expanded object with an "id" field, depending on the
// event's expansion settings.
type StripeRef string

// UnmarshalJSON accepts null, a string ID, or an expanded object.
func (r *StripeRef) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		*r = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = StripeRef(s)
		return nil
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*r = StripeRef(obj.ID)
	return nil
}

// String returns the referenced object's ID.
func (r StripeRef) String() string {
	return string(r)
}

// StripeCustomerRef is a customer reference that additionally keeps the
// expanded object's email. Invoice events delivered with an expanded
// customer may omit the top-level customer_email, so the nested email is
// the only resolution signal.
type StripeCustomerRef struct {
	ID    string
	Email string
}

// UnmarshalJSON accepts null, a string ID, or an expanded customer object.
func (r *StripeCustomerRef) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		*r = StripeCustomerRef{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = StripeCustomerRef{ID: s}
		return nil
	}
	var obj struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*r = StripeCustomerRef{ID: obj.ID, Email: obj.Email}
	return nil
}

// String returns the referenced customer's ID.
func (r StripeCustomerRef) String() string {
	return r.ID
}

// StripeInvoice is the minimal invoice object parsed from a Stripe invoice
// event's data. Only the fields the reconciler needs are decoded.
type StripeInvoice struct {
	ID               string            `json:"id"`
	Number           string            `json:"number"`
	Customer         StripeCustomerRef `json:"customer"`
	CustomerEmail    string            `json:"customer_email"`
	Subscription     StripeRef         `json:"subscription"`
	AmountDue        int64             `json:"amount_due"`
	AmountPaid       int64             `json:"amount_paid"`
	Currency         string            `json:"currency"`
	Created          int64             `json:"created"`
	DueDate          int64             `json:"due_date"`
	CollectionMethod string            `json:"collection_method"`
	HostedInvoiceURL string            `json:"hosted_invoice_url"`
}

// AmountMajor returns the invoice amount in major currency units, preferring
// amount_due and falling back to amount_paid.
func (i *StripeInvoice) AmountMajor() float64 {
	cents := i.AmountDue
	if cents == 0 {
		cents = i.AmountPaid
	}
	return float64(cents) / 100
}

// EffectiveCustomerEmail returns the email usable for client matching: the
// top-level customer_email, or the expanded customer object's email when the
// event arrived with customer expansion instead.
func (i *StripeInvoice) EffectiveCustomerEmail() string {
	if i.CustomerEmail != "" {
		return i.CustomerEmail
	}
	return i.Customer.Email
}

// IssueDateUTC returns the invoice issue date derived from the provider's
// creation timestamp, truncated to the day.
func (i *StripeInvoice) IssueDateUTC() time.Time {
	if i.Created == 0 {
		return time.Now().UTC().Truncate(24 * time.Hour)
	}
	return time.Unix(i.Created, 0).UTC().Truncate(24 * time.Hour)
}

// DueDateUTC returns the invoice due date, falling back to the creation time
// when Stripe supplies none, truncated to the day.
func (i *StripeInvoice) DueDateUTC() time.Time {
	ts := i.DueDate
	if ts == 0 {
		ts = i.Created
	}
	if ts == 0 {
		return time.Now().UTC().Truncate(24 * time.Hour)
	}
	return time.Unix(ts, 0).UTC().Truncate(24 * time.Hour)
}

// LocalInvoiceNumber returns the provider's invoice number, or a synthetic
// one derived from the Stripe invoice ID for invoices without a number.
func (i *StripeInvoice) LocalInvoiceNumber() string {
	if i.Number != "" {
		return i.Number
	}
	return "STRIPE-" + i.ID
}
