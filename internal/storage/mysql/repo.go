package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"vacation_deals/internal/domain"
)

// Helpers to pass NULLs safely.
func valStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
func valF64(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}
func valDate(p *time.Time) any {
	if p == nil {
		return nil
	}
	return p.UTC().Format(time.DateOnly)
}
func valJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) Ping(ctx context.Context) error { return r.db.PingContext(ctx) }

func (r *Repo) UpsertSnapshot(ctx context.Context, s domain.DealSnapshot) error {
	_, err := r.db.ExecContext(ctx, upsertSnapshotSQL,
		s.DealID,
		s.Title,
		s.Label,
		s.CardLabel,
		valStr(s.LeadEntryID),
		valF64(s.LeadPrice),
		valDate(s.LeadStart),
		valStr(s.LeadAirportID),
		s.PriceCount,
		s.EnabledCount,
		valJSON(s.CalendarJSON),
		valJSON(s.RawJSON),
	)
	if err != nil {
		return fmt.Errorf("upsert snapshot %s: %w", s.DealID, err)
	}
	return nil
}

func (r *Repo) DeleteSnapshot(ctx context.Context, dealID string) error {
	_, err := r.db.ExecContext(ctx, deleteSnapshotSQL, dealID)
	return err
}

func (r *Repo) LogMiss(ctx context.Context, dealID string, status int, reason string) error {
	_, err := r.db.ExecContext(ctx, insertMissSQL, dealID, status, reason)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row scanner) (domain.DealSnapshot, error) {
	var s domain.DealSnapshot
	var entryID, airportID sql.NullString
	var price sql.NullFloat64
	var start sql.NullTime
	var calendar, raw []byte

	if err := row.Scan(
		&s.DealID,
		&s.Title,
		&s.Label,
		&s.CardLabel,
		&entryID,
		&price,
		&start,
		&airportID,
		&s.PriceCount,
		&s.EnabledCount,
		&calendar,
		&raw,
	); err != nil {
		return domain.DealSnapshot{}, err
	}

	if entryID.Valid {
		v := entryID.String
		s.LeadEntryID = &v
	}
	if price.Valid {
		v := price.Float64
		s.LeadPrice = &v
	}
	if start.Valid {
		v := time.Date(start.Time.Year(), start.Time.Month(), start.Time.Day(), 0, 0, 0, 0, time.UTC)
		s.LeadStart = &v
	}
	if airportID.Valid {
		v := airportID.String
		s.LeadAirportID = &v
	}
	s.CalendarJSON = calendar
	s.RawJSON = raw
	return s, nil
}

func (r *Repo) GetSnapshot(ctx context.Context, dealID string) (domain.DealSnapshot, error) {
	s, err := scanSnapshot(r.db.QueryRowContext(ctx, getSnapshotSQL, dealID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.DealSnapshot{}, fmt.Errorf("snapshot %s: %w", dealID, domain.ErrNotFound)
		}
		return domain.DealSnapshot{}, err
	}
	return s, nil
}

func (r *Repo) ListSnapshots(ctx context.Context, q domain.SnapshotQuery) (domain.SnapshotPage, error) {
	if q.Limit <= 0 {
		q.Limit = 20
	}
	maxPrice := valF64(q.MaxPrice)
	rows, err := r.db.QueryContext(ctx, listSnapshotsSQL, maxPrice, maxPrice, q.Limit)
	if err != nil {
		return domain.SnapshotPage{}, err
	}
	defer rows.Close()

	var out []domain.DealSnapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return domain.SnapshotPage{}, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return domain.SnapshotPage{}, err
	}
	return domain.SnapshotPage{Items: out}, nil
}
