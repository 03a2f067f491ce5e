package db

import (
	"context"

	"gateway-emulator/internal/apperr"
	"gateway-emulator/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

const deliveryColumns = `id, gateway, event_type, subject, url, payload, attempts,
	created_at, updated_at, scheduled_at, delivered_at, error`

// DeliveryRepository journals webhook deliveries to the webhook_delivery table.
type DeliveryRepository struct {
	pool *pgxpool.Pool
}

func NewDeliveryRepository(pool *pgxpool.Pool) *DeliveryRepository {
	return &DeliveryRepository{pool: pool}
}

func (r *DeliveryRepository) Create(ctx context.Context, delivery *model.Delivery) error {
	e := fromDelivery(delivery)
	query := `INSERT INTO webhook_delivery (` + deliveryColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.pool.Exec(ctx, query, e.ID, e.Gateway, e.EventType, e.Subject, e.Url, e.Payload, e.Attempts,
		e.CreatedAt, e.UpdatedAt, e.ScheduledAt, e.DeliveredAt, e.Error)
	if err != nil {
		return errors.Wrap(err, "inserting webhook delivery")
	}
	return nil
}

func (r *DeliveryRepository) Update(ctx context.Context, delivery *model.Delivery) error {
	e := fromDelivery(delivery)
	query := `UPDATE webhook_delivery
	          SET attempts = $2, updated_at = $3, scheduled_at = $4, delivered_at = $5, error = $6
	          WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, e.ID, e.Attempts, e.UpdatedAt, e.ScheduledAt, e.DeliveredAt, e.Error)
	if err != nil {
		return errors.Wrap(err, "updating webhook delivery")
	}
	return nil
}

func (r *DeliveryRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Delivery, error) {
	query := `SELECT ` + deliveryColumns + ` FROM webhook_delivery WHERE id = $1`
	e, err := scanDelivery(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("delivery %s not found", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "selecting webhook delivery")
	}
	d := e.toDelivery()
	return &d, nil
}

// ListRecent returns up to limit deliveries, newest first.
func (r *DeliveryRepository) ListRecent(ctx context.Context, limit int) ([]model.Delivery, error) {
	query := `SELECT ` + deliveryColumns + ` FROM webhook_delivery ORDER BY created_at DESC LIMIT $1`
	var lim any = limit
	if limit <= 0 {
		// LIMIT NULL returns every row
		lim = nil
	}
	rows, err := r.pool.Query(ctx, query, lim)
	if err != nil {
		return nil, errors.Wrap(err, "listing webhook deliveries")
	}
	defer rows.Close()

	var deliveries []model.Delivery
	for rows.Next() {
		e, err := scanDelivery(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scanning webhook delivery")
		}
		deliveries = append(deliveries, e.toDelivery())
	}
	return deliveries, errors.Wrap(rows.Err(), "iterating webhook deliveries")
}

func scanDelivery(row pgx.Row) (*DeliveryEntity, error) {
	var e DeliveryEntity
	err := row.Scan(&e.ID, &e.Gateway, &e.EventType, &e.Subject, &e.Url, &e.Payload, &e.Attempts,
		&e.CreatedAt, &e.UpdatedAt, &e.ScheduledAt, &e.DeliveredAt, &e.Error)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
