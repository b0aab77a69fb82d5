package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	pgx "github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/AlibekovAA/recordkeeper/internal/common/db"
	"github.com/AlibekovAA/recordkeeper/internal/recording/domain"
)

type Repository interface {
	Insert(ctx context.Context, rec domain.Recording) (domain.Recording, error)
	List(ctx context.Context, filter domain.Filter, skip, limit int) ([]domain.Recording, error)
	Count(ctx context.Context, filter domain.Filter) (int64, error)
	All(ctx context.Context) ([]domain.Recording, error)
}

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const selectColumns = `SELECT seq, id, owner, date, type, description, extra, created_at FROM recordings`

func (r *PgRepository) Insert(ctx context.Context, rec domain.Recording) (domain.Recording, error) {
	extra := rec.Extra
	if extra == nil {
		extra = map[string]any{}
	}
	extraJSON, err := json.Marshal(extra)
	if err != nil {
		return domain.Recording{}, fmt.Errorf("failed to encode extra fields: %w", err)
	}

	start := time.Now()
	err = r.pool.QueryRow(
		ctx,
		`INSERT INTO recordings (id, owner, date, type, description, extra, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7)
		 RETURNING seq`,
		rec.ID,
		rec.Owner,
		rec.Date,
		rec.Type,
		rec.Description,
		string(extraJSON),
		rec.CreatedAt,
	).Scan(&rec.Seq)
	if err := db.HandleExecError(err, "insert recording", start); err != nil {
		return domain.Recording{}, err
	}

	rec.Extra = extra
	return rec, nil
}

// List returns a page of recordings in insertion order.
func (r *PgRepository) List(ctx context.Context, filter domain.Filter, skip, limit int) ([]domain.Recording, error) {
	query, args := listQuery(filter, skip, limit)

	start := time.Now()
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, db.HandleQueryError(err, nil, "list recordings", start)
	}
	defer rows.Close()

	recs, err := scanRecordings(rows)
	if err := db.HandleQueryError(err, nil, "list recordings", start); err != nil {
		return nil, err
	}
	return recs, nil
}

func (r *PgRepository) Count(ctx context.Context, filter domain.Filter) (int64, error) {
	query, args := countQuery(filter)

	start := time.Now()
	var total int64
	err := r.pool.QueryRow(ctx, query, args...).Scan(&total)
	if err := db.HandleQueryError(err, nil, "count recordings", start); err != nil {
		return 0, err
	}
	return total, nil
}

// All loads every recording. Reports rely on it; it is unbounded.
func (r *PgRepository) All(ctx context.Context) ([]domain.Recording, error) {
	start := time.Now()
	rows, err := r.pool.Query(ctx, selectColumns+` ORDER BY seq ASC`)
	if err != nil {
		return nil, db.HandleQueryError(err, nil, "scan all recordings", start)
	}
	defer rows.Close()

	recs, err := scanRecordings(rows)
	if err := db.HandleQueryError(err, nil, "scan all recordings", start); err != nil {
		return nil, err
	}
	return recs, nil
}

func listQuery(filter domain.Filter, skip, limit int) (string, []any) {
	where, args := whereClause(filter)
	args = append(args, limit, skip)
	return fmt.Sprintf(`%s%s ORDER BY seq ASC LIMIT $%d OFFSET $%d`, selectColumns, where, len(args)-1, len(args)), args
}

func countQuery(filter domain.Filter) (string, []any) {
	where, args := whereClause(filter)
	return `SELECT COUNT(*) FROM recordings` + where, args
}

// whereClause bounds date on both ends, inclusive.
func whereClause(filter domain.Filter) (string, []any) {
	if !filter.Active() {
		return "", nil
	}
	return ` WHERE date >= $1 AND date <= $2`, []any{*filter.From, *filter.To}
}

func scanRecordings(rows pgx.Rows) ([]domain.Recording, error) {
	recs := make([]domain.Recording, 0)
	for rows.Next() {
		var (
			rec       domain.Recording
			date      *time.Time
			extraJSON []byte
		)
		if err := rows.Scan(&rec.Seq, &rec.ID, &rec.Owner, &date, &rec.Type, &rec.Description, &extraJSON, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan recording: %w", err)
		}
		rec.Date = date
		if len(extraJSON) > 0 {
			if err := json.Unmarshal(extraJSON, &rec.Extra); err != nil {
				return nil, fmt.Errorf("decode extra for recording %s: %w", rec.ID, err)
			}
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return recs, nil
}
