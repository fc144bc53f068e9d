package usecase

import (
	"context"
	"fmt"
	"time"

	"service-booking/internal/data/entity"
	"service-booking/internal/data/repository"
	"service-booking/internal/dto/request"
	"service-booking/internal/dto/response"
	"service-booking/internal/notify"
	"service-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BookingCache is the read-through cache the service consults before the
// database. Implementations must treat errors as misses.
type BookingCache interface {
	Get(ctx context.Context, id uuid.UUID) (*entity.Booking, error)
	Set(ctx context.Context, booking *entity.Booking)
	Invalidate(ctx context.Context, id uuid.UUID)
}

type BookingService interface {
	// Public endpoints (butuh auth)
	CreateBooking(ctx context.Context, userID string, req *request.CreateBookingRequest) (*response.BookingResponse, error)
	GetBooking(ctx context.Context, userID, role, bookingID string) (*response.BookingResponse, error)
	GetUserBookings(ctx context.Context, userID string, req *request.PaginatedRequest) (*response.PaginatedResponse[response.BookingResponse], error)

	// Lifecycle
	UpdateStatus(ctx context.Context, userID, role, bookingID string, req *request.UpdateBookingStatusRequest) (*response.BookingResponse, error)
	AddTracking(ctx context.Context, userID, role, bookingID string, req *request.TrackingUpdateRequest) (*response.BookingResponse, error)
	Rate(ctx context.Context, userID, role, bookingID string, req *request.RateBookingRequest) (*response.BookingResponse, error)
}

type bookingService struct {
	repo     *repository.Repository
	cache    BookingCache
	notifier notify.Notifier
	log      *zap.Logger
}

func NewBookingService(repo *repository.Repository, cache BookingCache, notifier notify.Notifier, log *zap.Logger) BookingService {
	return &bookingService{
		repo:     repo,
		cache:    cache,
		notifier: notifier,
		log:      log.With(zap.String("service", "booking")),
	}
}

func (s *bookingService) CreateBooking(ctx context.Context, userID string, req *request.CreateBookingRequest) (*response.BookingResponse, error) {
	// Validate request
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Create booking validation failed", zap.Any("errors", errs))
		return nil, fmt.Errorf("%w: %s", ErrValidation, utils.FormatValidationErrors(errs))
	}

	// Parse IDs
	customerID, err := uuid.Parse(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid user ID format %s", ErrValidation, userID)
	}

	serviceIDs := make([]uuid.UUID, len(req.ServiceIDs))
	for i, idStr := range req.ServiceIDs {
		id, err := uuid.Parse(idStr)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid service ID format %s", ErrValidation, idStr)
		}
		serviceIDs[i] = id
	}

	var professionalID *uuid.UUID
	if req.ProfessionalID != nil {
		id, err := uuid.Parse(*req.ProfessionalID)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid professional ID format %s", ErrValidation, *req.ProfessionalID)
		}

		professional, err := s.repo.User.FindByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("load professional: %w", err)
		}
		if professional == nil || professional.Role != entity.RoleProfessional || !professional.IsActive {
			return nil, fmt.Errorf("%w: professional %s", ErrNotFound, id.String())
		}
		professionalID = &id
	}

	scheduledDate, err := time.Parse("2006-01-02", req.ScheduledDate)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid scheduled date %s", ErrValidation, req.ScheduledDate)
	}
	if scheduledDate.Before(time.Now().Truncate(24 * time.Hour)) {
		return nil, fmt.Errorf("%w: cannot book for a past date", ErrValidation)
	}

	// Load catalog entries and snapshot them. Later catalog edits must not
	// change what this customer agreed to pay.
	services, err := s.repo.Service.FindByIDs(ctx, serviceIDs)
	if err != nil {
		s.log.Error("Failed to load services for booking", zap.Error(err))
		return nil, fmt.Errorf("load services: %w", err)
	}

	found := make(map[uuid.UUID]*entity.ServiceOffering, len(services))
	for _, svc := range services {
		found[svc.ID] = svc
	}

	snapshots := make([]entity.ServiceSnapshot, 0, len(serviceIDs))
	var price int64
	for _, id := range serviceIDs {
		svc, ok := found[id]
		if !ok || !svc.IsActive {
			return nil, fmt.Errorf("%w: service %s", ErrNotFound, id.String())
		}
		snapshots = append(snapshots, entity.ServiceSnapshot{
			ServiceID: svc.ID,
			Title:     svc.Title,
			Price:     svc.Price,
			Duration:  svc.Duration,
		})
		price += svc.Price
	}

	paymentMethod := entity.PaymentMode(req.PaymentMethod)
	paymentStatus := entity.BookingPaymentUnpaid
	if paymentMethod == entity.PaymentModeCOD {
		paymentStatus = entity.BookingPaymentPendingCOD
	}

	now := time.Now()
	booking := &entity.Booking{
		Base: entity.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		CustomerID:     customerID,
		ProfessionalID: professionalID,
		Services:       snapshots,
		Price:          price,
		TotalAmount:    price,
		PaymentMethod:  paymentMethod,
		PaymentStatus:  paymentStatus,
		Status:         entity.BookingStatusPending,
		ScheduledDate:  &scheduledDate,
		ScheduledTime:  &req.ScheduledTime,
		TrackingUpdates: []entity.TrackingUpdate{{
			Status:    entity.BookingStatusPending,
			Message:   "Booking created",
			UpdatedBy: customerID,
			Timestamp: now,
		}},
		Version: 1,
	}

	if err := s.repo.Booking.Create(ctx, booking); err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}

	s.log.Info("Booking created",
		zap.String("booking_id", booking.ID.String()),
		zap.String("customer_id", customerID.String()),
		zap.Int64("total_amount", booking.TotalAmount),
		zap.String("payment_method", string(paymentMethod)),
	)

	s.notifier.Notify(ctx, notify.Event{
		Type:      "booking.created",
		BookingID: booking.ID,
		UserID:    customerID,
		Status:    string(booking.Status),
	})

	resp := response.BookingToResponse(booking)
	return &resp, nil
}

func (s *bookingService) GetBooking(ctx context.Context, userID, role, bookingID string) (*response.BookingResponse, error) {
	id, err := uuid.Parse(bookingID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid booking ID format %s", ErrValidation, bookingID)
	}

	requesterID, err := uuid.Parse(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid user ID format %s", ErrValidation, userID)
	}

	booking, err := s.cache.Get(ctx, id)
	if err != nil || booking == nil {
		booking, err = s.repo.Booking.FindByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("load booking: %w", err)
		}
		if booking == nil {
			return nil, fmt.Errorf("%w: booking %s", ErrNotFound, bookingID)
		}
		s.cache.Set(ctx, booking)
	}

	if err := authorizeView(booking, requesterID, entity.UserRole(role)); err != nil {
		return nil, err
	}

	resp := response.BookingToResponse(booking)
	return &resp, nil
}

func (s *bookingService) GetUserBookings(ctx context.Context, userID string, req *request.PaginatedRequest) (*response.PaginatedResponse[response.BookingResponse], error) {
	customerID, err := uuid.Parse(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid user ID format %s", ErrValidation, userID)
	}

	bookings, err := s.repo.Booking.FindByCustomerID(ctx, customerID, req.Limit(), req.Offset())
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}

	total, err := s.repo.Booking.CountByCustomerID(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("count bookings: %w", err)
	}

	page := req.Page
	if page < 1 {
		page = 1
	}
	return response.NewPaginatedResponse(response.BookingsToResponse(bookings), page, req.Limit(), total), nil
}

func (s *bookingService) UpdateStatus(ctx context.Context, userID, role, bookingID string, req *request.UpdateBookingStatusRequest) (*response.BookingResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrValidation, utils.FormatValidationErrors(errs))
	}

	id, err := uuid.Parse(bookingID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid booking ID format %s", ErrValidation, bookingID)
	}

	actorID, err := uuid.Parse(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid user ID format %s", ErrValidation, userID)
	}

	target := entity.BookingStatus(req.Status)
	if !target.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, req.Status)
	}

	// Always read the current row, never the cache: the version here keys
	// the conditional update below.
	booking, err := s.repo.Booking.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load booking: %w", err)
	}
	if booking == nil {
		return nil, fmt.Errorf("%w: booking %s", ErrNotFound, bookingID)
	}

	// Role check runs before edge validation: an unauthorized actor gets
	// Forbidden regardless of the current status.
	if err := authorizeTransition(booking, actorID, entity.UserRole(role), target); err != nil {
		return nil, err
	}

	if !booking.Status.CanTransitionTo(target) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, booking.Status, target)
	}

	message := req.Message
	var resched *entity.Reschedule
	if req.ScheduledDate != nil {
		date, err := time.Parse("2006-01-02", *req.ScheduledDate)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid scheduled date %s", ErrValidation, *req.ScheduledDate)
		}
		resched = &entity.Reschedule{Date: date}
		if req.ScheduledTime != nil {
			resched.Time = *req.ScheduledTime
		}
		// The tracking log must say what changed even when the caller
		// sent no message.
		if message == "" {
			message = "Rescheduled to " + date.Format("2006-01-02")
			if resched.Time != "" {
				message += " " + resched.Time
			}
		}
	}

	update := entity.TrackingUpdate{
		Status:    target,
		Message:   message,
		UpdatedBy: actorID,
		Timestamp: time.Now(),
	}
	if req.Location != nil {
		update.Location = &entity.GeoPoint{Lat: req.Location.Lat, Lng: req.Location.Lng}
	}

	ok, err := s.repo.Booking.UpdateStatusTracking(ctx, id, booking.Version, target, update, resched)
	if err != nil {
		return nil, fmt.Errorf("update booking status: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: booking %s was modified concurrently", ErrConflict, bookingID)
	}

	s.cache.Invalidate(ctx, id)

	// COD settles on completion.
	if target == entity.BookingStatusCompleted && booking.PaymentMethod == entity.PaymentModeCOD {
		if err := s.repo.Booking.UpdatePaymentStatus(ctx, id, entity.BookingPaymentPaid); err != nil {
			s.log.Error("Failed to settle COD booking",
				zap.Error(err),
				zap.String("booking_id", bookingID),
			)
		}
	}

	s.log.Info("Booking status updated",
		zap.String("booking_id", bookingID),
		zap.String("from", string(booking.Status)),
		zap.String("to", string(target)),
		zap.String("actor_id", actorID.String()),
	)

	s.notifier.Notify(ctx, notify.Event{
		Type:      "booking.status_changed",
		BookingID: id,
		UserID:    booking.CustomerID,
		Status:    string(target),
		Message:   message,
	})

	updated, err := s.repo.Booking.FindByID(ctx, id)
	if err != nil || updated == nil {
		return nil, fmt.Errorf("reload booking: %w", err)
	}

	resp := response.BookingToResponse(updated)
	return &resp, nil
}

func (s *bookingService) AddTracking(ctx context.Context, userID, role, bookingID string, req *request.TrackingUpdateRequest) (*response.BookingResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrValidation, utils.FormatValidationErrors(errs))
	}

	id, err := uuid.Parse(bookingID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid booking ID format %s", ErrValidation, bookingID)
	}

	actorID, err := uuid.Parse(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid user ID format %s", ErrValidation, userID)
	}

	target := entity.BookingStatus(req.Status)
	if !target.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, req.Status)
	}

	booking, err := s.repo.Booking.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load booking: %w", err)
	}
	if booking == nil {
		return nil, fmt.Errorf("%w: booking %s", ErrNotFound, bookingID)
	}

	actorRole := entity.UserRole(role)
	if actorRole != entity.RoleAdmin && actorRole != entity.RoleProfessional {
		return nil, fmt.Errorf("%w: only professionals and admins can add tracking", ErrForbidden)
	}
	if err := authorizeTransition(booking, actorID, actorRole, target); err != nil {
		return nil, err
	}

	if booking.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: booking %s is %s", ErrInvalidTransition, bookingID, booking.Status)
	}
	// Re-posting the current status appends a progress note without moving
	// the workflow; anything else must be a legal edge.
	if target != booking.Status && !booking.Status.CanTransitionTo(target) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, booking.Status, target)
	}

	update := entity.TrackingUpdate{
		Status:    target,
		Message:   req.Message,
		UpdatedBy: actorID,
		Timestamp: time.Now(),
	}
	if req.Location != nil {
		update.Location = &entity.GeoPoint{Lat: req.Location.Lat, Lng: req.Location.Lng}
	}

	// A same-status append still bumps the version.
	ok, err := s.repo.Booking.UpdateStatusTracking(ctx, id, booking.Version, target, update, nil)
	if err != nil {
		return nil, fmt.Errorf("append tracking update: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: booking %s was modified concurrently", ErrConflict, bookingID)
	}

	s.cache.Invalidate(ctx, id)

	if target == entity.BookingStatusCompleted && booking.PaymentMethod == entity.PaymentModeCOD {
		if err := s.repo.Booking.UpdatePaymentStatus(ctx, id, entity.BookingPaymentPaid); err != nil {
			s.log.Error("Failed to settle COD booking",
				zap.Error(err),
				zap.String("booking_id", bookingID),
			)
		}
	}

	if target != booking.Status {
		s.notifier.Notify(ctx, notify.Event{
			Type:      "booking.status_changed",
			BookingID: id,
			UserID:    booking.CustomerID,
			Status:    string(target),
			Message:   req.Message,
		})
	}

	updated, err := s.repo.Booking.FindByID(ctx, id)
	if err != nil || updated == nil {
		return nil, fmt.Errorf("reload booking: %w", err)
	}

	resp := response.BookingToResponse(updated)
	return &resp, nil
}

func (s *bookingService) Rate(ctx context.Context, userID, role, bookingID string, req *request.RateBookingRequest) (*response.BookingResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrValidation, utils.FormatValidationErrors(errs))
	}

	id, err := uuid.Parse(bookingID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid booking ID format %s", ErrValidation, bookingID)
	}

	customerID, err := uuid.Parse(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid user ID format %s", ErrValidation, userID)
	}

	booking, err := s.repo.Booking.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load booking: %w", err)
	}
	if booking == nil {
		return nil, fmt.Errorf("%w: booking %s", ErrNotFound, bookingID)
	}

	if entity.UserRole(role) != entity.RoleCustomer || booking.CustomerID != customerID {
		return nil, fmt.Errorf("%w: only the booking customer can rate", ErrForbidden)
	}

	rating := entity.Rating{
		Score:     req.Score,
		Review:    req.Review,
		CreatedAt: time.Now(),
	}

	ok, err := s.repo.Booking.SetRating(ctx, id, rating)
	if err != nil {
		return nil, fmt.Errorf("set rating: %w", err)
	}
	if !ok {
		// Conditional write matched nothing: either not completed yet or
		// already rated. Re-read to tell the caller which.
		if booking.Rating != nil {
			return nil, fmt.Errorf("%w: booking %s already rated", ErrConflict, bookingID)
		}
		if booking.Status != entity.BookingStatusCompleted {
			return nil, fmt.Errorf("%w: booking %s is not completed", ErrInvalidTransition, bookingID)
		}
		return nil, fmt.Errorf("%w: booking %s already rated", ErrConflict, bookingID)
	}

	s.cache.Invalidate(ctx, id)

	if booking.ProfessionalID != nil {
		s.recomputeProfessionalRating(*booking.ProfessionalID)
	}

	s.notifier.Notify(ctx, notify.Event{
		Type:      "booking.rated",
		BookingID: id,
		UserID:    booking.CustomerID,
		Status:    string(booking.Status),
	})

	updated, err := s.repo.Booking.FindByID(ctx, id)
	if err != nil || updated == nil {
		return nil, fmt.Errorf("reload booking: %w", err)
	}

	resp := response.BookingToResponse(updated)
	return &resp, nil
}

// recomputeProfessionalRating refreshes the professional's aggregate score
// in the background. A failed recompute self-heals on the next rating.
func (s *bookingService) recomputeProfessionalRating(professionalID uuid.UUID) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		avg, count, err := s.repo.Booking.ProfessionalRatingAverage(ctx, professionalID)
		if err != nil {
			s.log.Error("Failed to recompute professional rating",
				zap.Error(err),
				zap.String("professional_id", professionalID.String()),
			)
			return
		}
		if count == 0 {
			return
		}

		if err := s.repo.User.UpdateRating(ctx, professionalID, avg); err != nil {
			s.log.Error("Failed to store professional rating",
				zap.Error(err),
				zap.String("professional_id", professionalID.String()),
			)
		}
	}()
}

func authorizeView(booking *entity.Booking, requesterID uuid.UUID, role entity.UserRole) error {
	switch role {
	case entity.RoleAdmin:
		return nil
	case entity.RoleProfessional:
		if booking.ProfessionalID != nil && *booking.ProfessionalID == requesterID {
			return nil
		}
	case entity.RoleCustomer:
		if booking.CustomerID == requesterID {
			return nil
		}
	}
	return fmt.Errorf("%w: booking belongs to someone else", ErrForbidden)
}

// authorizeTransition enforces who may move a booking where: admins move
// anything, the assigned professional runs the service workflow, the
// customer can only cancel before completion.
func authorizeTransition(booking *entity.Booking, actorID uuid.UUID, role entity.UserRole, target entity.BookingStatus) error {
	switch role {
	case entity.RoleAdmin:
		return nil

	case entity.RoleProfessional:
		if booking.ProfessionalID == nil || *booking.ProfessionalID != actorID {
			return fmt.Errorf("%w: booking is not assigned to this professional", ErrForbidden)
		}
		switch target {
		case entity.BookingStatusConfirmed, entity.BookingStatusAssigned,
			entity.BookingStatusInProgress, entity.BookingStatusCompleted:
			return nil
		}
		return fmt.Errorf("%w: professionals cannot set status %s", ErrForbidden, target)

	case entity.RoleCustomer:
		if booking.CustomerID != actorID {
			return fmt.Errorf("%w: booking belongs to someone else", ErrForbidden)
		}
		if target == entity.BookingStatusCancelled {
			return nil
		}
		return fmt.Errorf("%w: customers can only cancel", ErrForbidden)
	}

	return fmt.Errorf("%w: unknown role %s", ErrForbidden, role)
}
