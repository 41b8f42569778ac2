package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/streaky/streakd/internal/domain"
)

type pgDeliveryLogRepository struct {
	pool *pgxpool.Pool
}

// NewPgDeliveryLogRepository returns a DeliveryLogRepository backed by PostgreSQL.
func NewPgDeliveryLogRepository(pool *pgxpool.Pool) DeliveryLogRepository {
	return &pgDeliveryLogRepository{pool: pool}
}

func (r *pgDeliveryLogRepository) Insert(ctx context.Context, log *domain.DeliveryLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO delivery_log (id, user_id, channel, status, error_message, sent_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		log.ID, log.UserID, log.Channel, log.Status, log.ErrorMessage, log.SentAt,
	)
	if err != nil {
		return fmt.Errorf("insert delivery log: %w", err)
	}
	return nil
}

func (r *pgDeliveryLogRepository) RecentByUser(ctx context.Context, userID string, limit int) ([]*domain.DeliveryLog, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, channel, status, error_message, sent_at
		FROM delivery_log
		WHERE user_id = $1
		ORDER BY sent_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent deliveries: %w", err)
	}
	defer rows.Close()

	var logs []*domain.DeliveryLog
	for rows.Next() {
		var l domain.DeliveryLog
		err := rows.Scan(&l.ID, &l.UserID, &l.Channel, &l.Status, &l.ErrorMessage, &l.SentAt)
		if err != nil {
			return nil, fmt.Errorf("scan delivery log: %w", err)
		}
		logs = append(logs, &l)
	}
	return logs, rows.Err()
}
