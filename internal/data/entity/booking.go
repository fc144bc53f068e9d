package entity

import (
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingStatusPending    BookingStatus = "pending"
	BookingStatusConfirmed  BookingStatus = "confirmed"
	BookingStatusAssigned   BookingStatus = "assigned"
	BookingStatusInProgress BookingStatus = "in-progress"
	BookingStatusCompleted  BookingStatus = "completed"
	BookingStatusCancelled  BookingStatus = "cancelled"
	BookingStatusRejected   BookingStatus = "rejected"
)

// bookingTransitions is the only legal edge set for booking status.
// completed, cancelled and rejected are terminal.
var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:    {BookingStatusConfirmed, BookingStatusRejected, BookingStatusCancelled},
	BookingStatusConfirmed:  {BookingStatusAssigned, BookingStatusInProgress, BookingStatusCancelled},
	BookingStatusAssigned:   {BookingStatusInProgress, BookingStatusCancelled},
	BookingStatusInProgress: {BookingStatusCompleted, BookingStatusCancelled},
}

// CanTransitionTo reports whether target is a legal edge from s.
func (s BookingStatus) CanTransitionTo(target BookingStatus) bool {
	for _, next := range bookingTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

func (s BookingStatus) IsTerminal() bool {
	return len(bookingTransitions[s]) == 0
}

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusAssigned,
		BookingStatusInProgress, BookingStatusCompleted, BookingStatusCancelled,
		BookingStatusRejected:
		return true
	}
	return false
}

type PaymentMode string

const (
	PaymentModeGateway PaymentMode = "gateway"
	PaymentModeCOD     PaymentMode = "cod"
)

// BookingPaymentStatus is the settlement axis of a booking. It is
// independent of the workflow status above.
type BookingPaymentStatus string

const (
	BookingPaymentUnpaid     BookingPaymentStatus = "unpaid"
	BookingPaymentPendingCOD BookingPaymentStatus = "pending_cod"
	BookingPaymentPaid       BookingPaymentStatus = "paid"
	BookingPaymentRefunded   BookingPaymentStatus = "refunded"
)

// ServiceSnapshot freezes title/price/duration at booking time so later
// catalog edits never change what the customer agreed to pay.
type ServiceSnapshot struct {
	ServiceID uuid.UUID `json:"service_id"`
	Title     string    `json:"title"`
	Price     int64     `json:"price"`
	Duration  int       `json:"duration"`
}

type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// TrackingUpdate is one entry of the append-only status log.
type TrackingUpdate struct {
	Status    BookingStatus `json:"status"`
	Message   string        `json:"message"`
	UpdatedBy uuid.UUID     `json:"updated_by"`
	Location  *GeoPoint     `json:"location,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// Rating is settable exactly once, by the customer, after completion.
type Rating struct {
	Score     int       `json:"score"`
	Review    string    `json:"review,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Booking struct {
	Base
	CustomerID      uuid.UUID            `db:"customer_id"`
	ProfessionalID  *uuid.UUID           `db:"professional_id"`
	Services        []ServiceSnapshot    `db:"services"`
	Price           int64                `db:"price"`
	TotalAmount     int64                `db:"total_amount"`
	PaymentMethod   PaymentMode          `db:"payment_method"`
	PaymentStatus   BookingPaymentStatus `db:"payment_status"`
	Status          BookingStatus        `db:"status"`
	ScheduledDate   *time.Time           `db:"scheduled_date"`
	ScheduledTime   *string              `db:"scheduled_time"`
	TrackingUpdates []TrackingUpdate     `db:"tracking_updates"`
	Rating          *Rating              `db:"rating"`
	Version         int64                `db:"version"`
}

// Reschedule carries a requested date/time change alongside a status update.
type Reschedule struct {
	Date time.Time
	Time string
}
