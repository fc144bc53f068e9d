package response

import (
	"time"

	"service-booking/internal/data/entity"
)

type ServiceSnapshotResponse struct {
	ServiceID string `json:"service_id"`
	Title     string `json:"title"`
	Price     int64  `json:"price"`
	Duration  int    `json:"duration"`
}

type TrackingUpdateResponse struct {
	Status    entity.BookingStatus `json:"status"`
	Message   string               `json:"message"`
	UpdatedBy string               `json:"updated_by"`
	Location  *entity.GeoPoint     `json:"location,omitempty"`
	Timestamp time.Time            `json:"timestamp"`
}

type RatingResponse struct {
	Score     int       `json:"score"`
	Review    string    `json:"review,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type BookingResponse struct {
	ID              string                      `json:"id"`
	CustomerID      string                      `json:"customer_id"`
	ProfessionalID  *string                     `json:"professional_id,omitempty"`
	Services        []ServiceSnapshotResponse   `json:"services"`
	Price           int64                       `json:"price"`
	TotalAmount     int64                       `json:"total_amount"`
	PaymentMethod   entity.PaymentMode          `json:"payment_method"`
	PaymentStatus   entity.BookingPaymentStatus `json:"payment_status"`
	Status          entity.BookingStatus        `json:"status"`
	ScheduledDate   *time.Time                  `json:"scheduled_date,omitempty"`
	ScheduledTime   *string                     `json:"scheduled_time,omitempty"`
	TrackingUpdates []TrackingUpdateResponse    `json:"tracking_updates"`
	Rating          *RatingResponse             `json:"rating,omitempty"`
	Version         int64                       `json:"version"`
	CreatedAt       time.Time                   `json:"created_at"`
}

// Helper converters
func BookingToResponse(booking *entity.Booking) BookingResponse {
	services := make([]ServiceSnapshotResponse, 0, len(booking.Services))
	for _, s := range booking.Services {
		services = append(services, ServiceSnapshotResponse{
			ServiceID: s.ServiceID.String(),
			Title:     s.Title,
			Price:     s.Price,
			Duration:  s.Duration,
		})
	}

	tracking := make([]TrackingUpdateResponse, 0, len(booking.TrackingUpdates))
	for _, t := range booking.TrackingUpdates {
		tracking = append(tracking, TrackingUpdateResponse{
			Status:    t.Status,
			Message:   t.Message,
			UpdatedBy: t.UpdatedBy.String(),
			Location:  t.Location,
			Timestamp: t.Timestamp,
		})
	}

	var professionalID *string
	if booking.ProfessionalID != nil {
		id := booking.ProfessionalID.String()
		professionalID = &id
	}

	var rating *RatingResponse
	if booking.Rating != nil {
		rating = &RatingResponse{
			Score:     booking.Rating.Score,
			Review:    booking.Rating.Review,
			CreatedAt: booking.Rating.CreatedAt,
		}
	}

	return BookingResponse{
		ID:              booking.ID.String(),
		CustomerID:      booking.CustomerID.String(),
		ProfessionalID:  professionalID,
		Services:        services,
		Price:           booking.Price,
		TotalAmount:     booking.TotalAmount,
		PaymentMethod:   booking.PaymentMethod,
		PaymentStatus:   booking.PaymentStatus,
		Status:          booking.Status,
		ScheduledDate:   booking.ScheduledDate,
		ScheduledTime:   booking.ScheduledTime,
		TrackingUpdates: tracking,
		Rating:          rating,
		Version:         booking.Version,
		CreatedAt:       booking.CreatedAt,
	}
}

func BookingsToResponse(bookings []*entity.Booking) []BookingResponse {
	result := make([]BookingResponse, 0, len(bookings))
	for _, b := range bookings {
		result = append(result, BookingToResponse(b))
	}
	return result
}
