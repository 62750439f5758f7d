package model

import "time"

// Plan is an immutable catalog entry for a hosting tier.
// Prices are whole rupees (no minor units).
type Plan struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    int    `json:"price"`
	Category string `json:"category"`
	CPU      string `json:"cpu"`
	RAM      string `json:"ram"`
	Storage  string `json:"storage"`
	Capacity string `json:"capacity"`
}

// DiscountKind distinguishes percentage discounts from fixed reductions.
type DiscountKind string

const (
	DiscountPercent DiscountKind = "percent"
	DiscountFixed   DiscountKind = "fixed"
)

// Discount describes a price reduction attached to a redeem code.
type Discount struct {
	Amount int          `json:"amount"`
	Kind   DiscountKind `json:"kind"`
}

// Email validation statuses. "unknown" covers both untouched fields and
// fields whose remote check is still outstanding (see EmailChecking).
const (
	EmailUnknown = "unknown"
	EmailValid   = "valid"
	EmailInvalid = "invalid"
)

// Redeem code outcomes.
const (
	RedeemUnknown = "unknown"
	RedeemValid   = "valid"
	RedeemInvalid = "invalid"
)

// CheckoutSession is the server-side draft order: the mutable form state of
// one checkout attempt plus its email and redeem-code validation state.
type CheckoutSession struct {
	ID                string    `json:"id"`
	ServerName        string    `json:"server_name"`
	CustomerName      string    `json:"customer_name"`
	Email             string    `json:"email"`
	Password          string    `json:"-"` // Not exposed in API
	Phone             string    `json:"phone,omitempty"`
	Discord           string    `json:"discord,omitempty"`
	PlanID            string    `json:"plan_id"`
	AdditionalBackups int       `json:"additional_backups"`
	AdditionalPorts   int       `json:"additional_ports"`
	RedeemCode        string    `json:"redeem_code"`
	BillingCycle      string    `json:"billing_cycle"`
	EmailStatus       string    `json:"email_status"`
	EmailMessage      string    `json:"email_message,omitempty"`
	EmailSuggestion   string    `json:"email_suggestion,omitempty"`
	EmailChecking     bool      `json:"email_checking"`
	EmailGeneration   int64     `json:"-"` // Request counter, internal
	RedeemStatus      string    `json:"redeem_status"`
	AppliedCode       string    `json:"applied_code,omitempty"`
	DiscountAmount    int       `json:"discount_amount,omitempty"`
	DiscountKind      string    `json:"discount_kind,omitempty"`
	Finalized         bool      `json:"finalized"`
	CreatedAt         time.Time `json:"-"`
	UpdatedAt         time.Time `json:"-"`
}

// AppliedDiscount returns the discount currently applied to the session, or
// nil when no code has been successfully validated.
func (s *CheckoutSession) AppliedDiscount() *Discount {
	if s.RedeemStatus != RedeemValid {
		return nil
	}
	return &Discount{Amount: s.DiscountAmount, Kind: DiscountKind(s.DiscountKind)}
}

// RedeemCheck is one definitive answer from the redeem authority, memoized
// per session so a known-bad code is never silently re-sent.
type RedeemCheck struct {
	SessionID      string
	Code           string
	Valid          bool
	DiscountAmount int
	DiscountKind   string
	Message        string
	CreatedAt      time.Time
}

// FinalizedOrder is the immutable snapshot taken at submit time. It is the
// handoff payload between the checkout flow and the order dispatcher.
type FinalizedOrder struct {
	ID             string    `json:"id"`
	SessionID      string    `json:"session_id"`
	IdempotencyKey string    `json:"-"`
	ServerName     string    `json:"server_name"`
	CustomerName   string    `json:"customer_name"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone,omitempty"`
	Discord        string    `json:"discord,omitempty"`
	PlanID         string    `json:"plan_id"`
	PlanName       string    `json:"plan_name"`
	Backups        int       `json:"additional_backups"`
	Ports          int       `json:"additional_ports"`
	Total          int       `json:"total"`
	Discount       *Discount `json:"discount,omitempty"`
	BillingCycle   string    `json:"billing_cycle"`
	CreatedAt      time.Time `json:"created_at"`
}

// CreateSessionRequest is the DTO for opening a new checkout session.
// All fields are optional; the draft starts empty and is filled in by edits.
type CreateSessionRequest struct {
	PlanID string `json:"plan_id" validate:"omitempty,max=64"`
}

// UpdateSessionRequest is the DTO for PATCH updates to a draft session.
// Pointer fields distinguish "not sent" from "set to empty".
type UpdateSessionRequest struct {
	ServerName        *string `json:"server_name" validate:"omitempty,max=255"`
	CustomerName      *string `json:"customer_name" validate:"omitempty,max=255"`
	Email             *string `json:"email" validate:"omitempty,max=255"`
	Password          *string `json:"password" validate:"omitempty,max=255"`
	Phone             *string `json:"phone" validate:"omitempty,max=32"`
	Discord           *string `json:"discord" validate:"omitempty,max=255"`
	PlanID            *string `json:"plan_id" validate:"omitempty,max=64"`
	AdditionalBackups *int    `json:"additional_backups" validate:"omitempty,gte=0,lte=5"`
	AdditionalPorts   *int    `json:"additional_ports" validate:"omitempty,gte=0,lte=5"`
	RedeemCode        *string `json:"redeem_code" validate:"omitempty,max=64"`
	BillingCycle      *string `json:"billing_cycle" validate:"omitempty,oneof=monthly quarterly yearly"`
}

// RedeemRequest is the DTO for applying a redeem code.
type RedeemRequest struct {
	Code string `json:"code" validate:"required,notblank,max=64"`
}

// EmailValidationResponse is the API view of the email pipeline state.
type EmailValidationResponse struct {
	Status     string `json:"status"`
	Message    string `json:"message,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
	Checking   bool   `json:"checking"`
}

// RedeemResponse is the API view of a redeem attempt.
type RedeemResponse struct {
	Applied  bool      `json:"applied"`
	Discount *Discount `json:"discount,omitempty"`
	Message  string    `json:"message,omitempty"`
}

// QuoteResponse carries the live total for display.
type QuoteResponse struct {
	Total     int       `json:"total"`
	Secondary string    `json:"secondary"`
	Discount  *Discount `json:"discount,omitempty"`
}

// Dispatch statuses surfaced on the confirmation step.
const (
	DispatchDelivered = "delivered"
	DispatchFailed    = "failed"
)

// DispatchResponse reports the outcome of an order-notification attempt.
type DispatchResponse struct {
	Status          string `json:"status"`
	AlreadyNotified bool   `json:"already_notified"`
	Retryable       bool   `json:"retryable,omitempty"`
	Message         string `json:"message,omitempty"`
}
