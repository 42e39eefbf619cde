package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/creavibe/creavibe/internal/db/models"
)

// AuditRepository handles audit log database operations
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository creates a new AuditRepository
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// AuditFilters contains filters for querying a user's audit trail
type AuditFilters struct {
	Action    *string
	StartDate *time.Time
	EndDate   *time.Time
}

// CreateAuditLog appends an audit log entry
func (r *AuditRepository) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	log.ID = uuid.New().String()
	log.CreatedAt = time.Now().UTC()

	var metadataJSON []byte
	if log.Metadata != nil {
		var err error
		if metadataJSON, err = json.Marshal(log.Metadata); err != nil {
			return fmt.Errorf("marshal audit metadata: %w", err)
		}
	}

	query := `
		INSERT INTO audit_logs (id, user_id, action, ip_address, user_agent, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		log.ID,
		log.UserID,
		log.Action,
		log.IPAddress,
		log.UserAgent,
		metadataJSON,
		log.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

// ListAuditLogs returns a user's audit entries, newest first, with the total match count
func (r *AuditRepository) ListAuditLogs(ctx context.Context, userID string, filters AuditFilters, limit, offset uint64) ([]*models.AuditLog, int, error) {
	where := sq.And{sq.Eq{"user_id": userID}}
	if filters.Action != nil {
		where = append(where, sq.Eq{"action": *filters.Action})
	}
	if filters.StartDate != nil {
		where = append(where, sq.GtOrEq{"created_at": *filters.StartDate})
	}
	if filters.EndDate != nil {
		where = append(where, sq.LtOrEq{"created_at": *filters.EndDate})
	}

	countQuery, countArgs, err := psql.Select("COUNT(*)").From("audit_logs").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build audit count: %w", err)
	}

	var total int
	if err := r.db.QueryRowxContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		if isMissingTable(err) {
			return []*models.AuditLog{}, 0, nil
		}
		return nil, 0, fmt.Errorf("count audit logs: %w", err)
	}

	query, args, err := psql.
		Select("id", "user_id", "action", "ip_address", "user_agent", "metadata", "created_at").
		From("audit_logs").
		Where(where).
		OrderBy("created_at DESC").
		Limit(limit).
		Offset(offset).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build audit query: %w", err)
	}

	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list audit logs: %w", err)
	}
	defer rows.Close()

	logs := make([]*models.AuditLog, 0)
	for rows.Next() {
		log := &models.AuditLog{}
		var metadataJSON []byte
		if err := rows.Scan(
			&log.ID,
			&log.UserID,
			&log.Action,
			&log.IPAddress,
			&log.UserAgent,
			&metadataJSON,
			&log.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan audit log: %w", err)
		}
		if metadataJSON != nil {
			if err := json.Unmarshal(metadataJSON, &log.Metadata); err != nil {
				return nil, 0, fmt.Errorf("decode audit metadata: %w", err)
			}
		}
		logs = append(logs, log)
	}

	return logs, total, rows.Err()
}
