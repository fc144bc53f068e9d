package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"service-booking/internal/data/entity"
	"service-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type BookingRepository interface {
	Create(ctx context.Context, booking *entity.Booking) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error)
	FindByCustomerID(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]*entity.Booking, error)
	CountByCustomerID(ctx context.Context, customerID uuid.UUID) (int64, error)

	// Business queries
	UpdateStatusTracking(ctx context.Context, id uuid.UUID, expectedVersion int64, status entity.BookingStatus, update entity.TrackingUpdate, resched *entity.Reschedule) (bool, error)
	SetRating(ctx context.Context, id uuid.UUID, rating entity.Rating) (bool, error)
	UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status entity.BookingPaymentStatus) error
	ProfessionalRatingAverage(ctx context.Context, professionalID uuid.UUID) (float64, int64, error)
}

type bookingRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewBookingRepository(db database.PgxIface, log *zap.Logger) BookingRepository {
	return &bookingRepository{
		db:  db,
		log: log.With(zap.String("repository", "booking")),
	}
}

const bookingColumns = `id, customer_id, professional_id, services, price, total_amount,
	payment_method, payment_status, status, scheduled_date, scheduled_time,
	tracking_updates, rating, version, created_at, updated_at`

func (r *bookingRepository) Create(ctx context.Context, booking *entity.Booking) error {
	services, err := json.Marshal(booking.Services)
	if err != nil {
		return fmt.Errorf("marshal service snapshots: %w", err)
	}

	tracking, err := json.Marshal(booking.TrackingUpdates)
	if err != nil {
		return fmt.Errorf("marshal tracking updates: %w", err)
	}

	query := `
		INSERT INTO bookings (id, customer_id, professional_id, services, price, total_amount,
			payment_method, payment_status, status, scheduled_date, scheduled_time,
			tracking_updates, rating, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NULL, $13, $14, $15)
	`

	_, err = r.db.Exec(ctx, query,
		booking.ID,
		booking.CustomerID,
		booking.ProfessionalID,
		services,
		booking.Price,
		booking.TotalAmount,
		booking.PaymentMethod,
		booking.PaymentStatus,
		booking.Status,
		booking.ScheduledDate,
		booking.ScheduledTime,
		tracking,
		booking.Version,
		booking.CreatedAt,
		booking.UpdatedAt,
	)

	if err != nil {
		r.log.Error("Failed to create booking",
			zap.Error(err),
			zap.String("booking_id", booking.ID.String()),
			zap.String("customer_id", booking.CustomerID.String()),
		)
		return fmt.Errorf("create booking %s: %w", booking.ID.String(), err)
	}

	return nil
}

func (r *bookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	booking, err := scanBooking(r.db.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find booking by ID",
			zap.Error(err),
			zap.String("booking_id", id.String()),
		)
		return nil, fmt.Errorf("find booking by ID %s: %w", id.String(), err)
	}

	return booking, nil
}

func (r *bookingRepository) FindByCustomerID(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings
		WHERE customer_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, customerID, limit, offset)
	if err != nil {
		r.log.Error("Failed to find bookings by customer ID",
			zap.Error(err),
			zap.String("customer_id", customerID.String()),
			zap.Int("limit", limit),
			zap.Int("offset", offset),
		)
		return nil, fmt.Errorf("find bookings by customer ID %s: %w", customerID.String(), err)
	}
	defer rows.Close()

	var bookings []*entity.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			r.log.Error("Failed to scan booking row", zap.Error(err))
			return nil, fmt.Errorf("scan booking row: %w", err)
		}
		bookings = append(bookings, booking)
	}

	return bookings, nil
}

func (r *bookingRepository) CountByCustomerID(ctx context.Context, customerID uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM bookings WHERE customer_id = $1`

	var count int64
	err := r.db.QueryRow(ctx, query, customerID).Scan(&count)
	if err != nil {
		r.log.Error("Failed to count bookings by customer ID",
			zap.Error(err),
			zap.String("customer_id", customerID.String()),
		)
		return 0, fmt.Errorf("count bookings by customer ID %s: %w", customerID.String(), err)
	}

	return count, nil
}

// UpdateStatusTracking writes the new status, the tracking append and the
// version bump as one conditional statement keyed on the expected version.
// Returns false when another writer got there first (caller maps to Conflict).
func (r *bookingRepository) UpdateStatusTracking(ctx context.Context, id uuid.UUID, expectedVersion int64, status entity.BookingStatus, update entity.TrackingUpdate, resched *entity.Reschedule) (bool, error) {
	entry, err := json.Marshal([]entity.TrackingUpdate{update})
	if err != nil {
		return false, fmt.Errorf("marshal tracking update: %w", err)
	}

	var schedDate *time.Time
	var schedTime *string
	if resched != nil {
		schedDate = &resched.Date
		if resched.Time != "" {
			schedTime = &resched.Time
		}
	}

	query := `
		UPDATE bookings
		SET status = $2,
		    tracking_updates = tracking_updates || $3::jsonb,
		    scheduled_date = COALESCE($4, scheduled_date),
		    scheduled_time = COALESCE($5, scheduled_time),
		    version = version + 1,
		    updated_at = NOW()
		WHERE id = $1 AND version = $6
	`

	result, err := r.db.Exec(ctx, query, id, status, entry, schedDate, schedTime, expectedVersion)
	if err != nil {
		r.log.Error("Failed to update booking status",
			zap.Error(err),
			zap.String("booking_id", id.String()),
			zap.String("status", string(status)),
			zap.Int64("expected_version", expectedVersion),
		)
		return false, fmt.Errorf("update booking %s status to %s: %w", id.String(), string(status), err)
	}

	return result.RowsAffected() > 0, nil
}

// SetRating writes the rating only when none exists yet and the booking is
// completed. Returns false when the conditions no longer hold.
func (r *bookingRepository) SetRating(ctx context.Context, id uuid.UUID, rating entity.Rating) (bool, error) {
	payload, err := json.Marshal(rating)
	if err != nil {
		return false, fmt.Errorf("marshal rating: %w", err)
	}

	query := `
		UPDATE bookings
		SET rating = $2::jsonb, updated_at = NOW()
		WHERE id = $1 AND status = 'completed' AND rating IS NULL
	`

	result, err := r.db.Exec(ctx, query, id, payload)
	if err != nil {
		r.log.Error("Failed to set booking rating",
			zap.Error(err),
			zap.String("booking_id", id.String()),
		)
		return false, fmt.Errorf("set rating for booking %s: %w", id.String(), err)
	}

	return result.RowsAffected() > 0, nil
}

func (r *bookingRepository) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status entity.BookingPaymentStatus) error {
	query := `UPDATE bookings SET payment_status = $2, updated_at = NOW() WHERE id = $1`

	result, err := r.db.Exec(ctx, query, id, status)
	if err != nil {
		r.log.Error("Failed to update booking payment status",
			zap.Error(err),
			zap.String("booking_id", id.String()),
			zap.String("payment_status", string(status)),
		)
		return fmt.Errorf("update booking %s payment status to %s: %w", id.String(), string(status), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("booking %s not found", id.String())
	}

	return nil
}

// ProfessionalRatingAverage recomputes the professional's average score over
// all completed, rated bookings.
func (r *bookingRepository) ProfessionalRatingAverage(ctx context.Context, professionalID uuid.UUID) (float64, int64, error) {
	query := `
		SELECT COALESCE(AVG((rating->>'score')::numeric), 0), COUNT(*)
		FROM bookings
		WHERE professional_id = $1 AND status = 'completed' AND rating IS NOT NULL
	`

	var avg float64
	var count int64
	err := r.db.QueryRow(ctx, query, professionalID).Scan(&avg, &count)
	if err != nil {
		r.log.Error("Failed to compute professional rating average",
			zap.Error(err),
			zap.String("professional_id", professionalID.String()),
		)
		return 0, 0, fmt.Errorf("rating average for professional %s: %w", professionalID.String(), err)
	}

	return avg, count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*entity.Booking, error) {
	var booking entity.Booking
	var services, tracking []byte
	var rating []byte

	err := row.Scan(
		&booking.ID,
		&booking.CustomerID,
		&booking.ProfessionalID,
		&services,
		&booking.Price,
		&booking.TotalAmount,
		&booking.PaymentMethod,
		&booking.PaymentStatus,
		&booking.Status,
		&booking.ScheduledDate,
		&booking.ScheduledTime,
		&tracking,
		&rating,
		&booking.Version,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(services, &booking.Services); err != nil {
		return nil, fmt.Errorf("unmarshal service snapshots: %w", err)
	}
	if err := json.Unmarshal(tracking, &booking.TrackingUpdates); err != nil {
		return nil, fmt.Errorf("unmarshal tracking updates: %w", err)
	}
	if len(rating) > 0 {
		var parsed entity.Rating
		if err := json.Unmarshal(rating, &parsed); err != nil {
			return nil, fmt.Errorf("unmarshal rating: %w", err)
		}
		booking.Rating = &parsed
	}

	return &booking, nil
}
