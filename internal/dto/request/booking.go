package request

type CreateBookingRequest struct {
	ServiceIDs     []string `json:"service_ids" validate:"required,min=1,dive,uuid4"`
	ProfessionalID *string  `json:"professional_id,omitempty" validate:"omitempty,uuid4"`
	PaymentMethod  string   `json:"payment_method" validate:"required,oneof=gateway cod"`
	ScheduledDate  string   `json:"scheduled_date" validate:"required,datetime=2006-01-02"`
	ScheduledTime  string   `json:"scheduled_time" validate:"required"`
}

type UpdateBookingStatusRequest struct {
	Status        string    `json:"status" validate:"required"`
	Message       string    `json:"message,omitempty" validate:"max=500"`
	Location      *Location `json:"location,omitempty"`
	ScheduledDate *string   `json:"scheduled_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	ScheduledTime *string   `json:"scheduled_time,omitempty"`
}

type TrackingUpdateRequest struct {
	Status   string    `json:"status" validate:"required"`
	Message  string    `json:"message" validate:"required,max=500"`
	Location *Location `json:"location,omitempty"`
}

type Location struct {
	Lat float64 `json:"lat" validate:"min=-90,max=90"`
	Lng float64 `json:"lng" validate:"min=-180,max=180"`
}

type RateBookingRequest struct {
	Score  int    `json:"score" validate:"required,min=1,max=5"`
	Review string `json:"review,omitempty" validate:"max=1000"`
}
