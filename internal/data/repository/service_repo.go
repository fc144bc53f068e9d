package repository

import (
	"context"
	"fmt"

	"service-booking/internal/data/entity"
	"service-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// ServiceRepository is read-only: the catalog is owned by another part of
// the system, bookings only snapshot from it.
type ServiceRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.ServiceOffering, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*entity.ServiceOffering, error)
}

type serviceRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewServiceRepository(db database.PgxIface, log *zap.Logger) ServiceRepository {
	return &serviceRepository{
		db:  db,
		log: log.With(zap.String("repository", "service")),
	}
}

func (r *serviceRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.ServiceOffering, error) {
	query := `
		SELECT id, title, price, duration, is_active, created_at, updated_at
		FROM services
		WHERE id = $1
	`

	var service entity.ServiceOffering
	err := r.db.QueryRow(ctx, query, id).Scan(
		&service.ID,
		&service.Title,
		&service.Price,
		&service.Duration,
		&service.IsActive,
		&service.CreatedAt,
		&service.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find service by ID",
			zap.Error(err),
			zap.String("service_id", id.String()),
		)
		return nil, fmt.Errorf("find service by ID %s: %w", id.String(), err)
	}

	return &service, nil
}

func (r *serviceRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*entity.ServiceOffering, error) {
	query := `
		SELECT id, title, price, duration, is_active, created_at, updated_at
		FROM services
		WHERE id = ANY($1)
	`

	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		r.log.Error("Failed to find services by IDs", zap.Error(err), zap.Int("count", len(ids)))
		return nil, fmt.Errorf("find services by IDs: %w", err)
	}
	defer rows.Close()

	var services []*entity.ServiceOffering
	for rows.Next() {
		var service entity.ServiceOffering
		err := rows.Scan(
			&service.ID,
			&service.Title,
			&service.Price,
			&service.Duration,
			&service.IsActive,
			&service.CreatedAt,
			&service.UpdatedAt,
		)
		if err != nil {
			r.log.Error("Failed to scan service row", zap.Error(err))
			return nil, fmt.Errorf("scan service row: %w", err)
		}
		services = append(services, &service)
	}

	return services, nil
}
