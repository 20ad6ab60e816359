package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"routeplan/internal/model"
)

//go:embed migrations/*.sql
var migrations embed.FS

type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Postgres{db: db}, nil
}

// Migrate applies the embedded migrations in file name order. Each file is idempotent.
func (p *Postgres) Migrate(ctx context.Context) error {
	names, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		return err
	}
	sort.Strings(names)
	for _, name := range names {
		body, err := migrations.ReadFile(name)
		if err != nil {
			return err
		}
		if _, err := p.db.ExecContext(ctx, string(body)); err != nil {
			return fmt.Errorf("migration %s: %w", name, err)
		}
	}
	return nil
}

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

func (p *Postgres) Close() error { return p.db.Close() }

func (p *Postgres) CreatePlan(ctx context.Context, rec model.PlanRecord) (model.PlanRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.Status == "" {
		rec.Status = model.PlanPending
	}
	planJSON, err := planValue(rec.Plan)
	if err != nil {
		return model.PlanRecord{}, err
	}
	err = p.db.QueryRowContext(ctx, `INSERT INTO plans (id, status, source, locations, plan, error)
        VALUES ($1,$2,$3,$4,$5,$6) RETURNING created_at, updated_at`,
		rec.ID, string(rec.Status), rec.Source, rec.Locations, planJSON, nullIfEmpty(rec.Error)).Scan(&rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return model.PlanRecord{}, err
	}
	return rec, nil
}

func (p *Postgres) UpdatePlan(ctx context.Context, rec model.PlanRecord) error {
	planJSON, err := planValue(rec.Plan)
	if err != nil {
		return err
	}
	res, err := p.db.ExecContext(ctx, `UPDATE plans SET status=$2, source=$3, locations=$4, plan=$5, error=$6, updated_at=now() WHERE id=$1`,
		rec.ID, string(rec.Status), rec.Source, rec.Locations, planJSON, nullIfEmpty(rec.Error))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) GetPlan(ctx context.Context, id string) (model.PlanRecord, error) {
	row := p.db.QueryRowContext(ctx, `SELECT id, status, source, locations, plan, COALESCE(error,''), created_at, updated_at FROM plans WHERE id=$1`, id)
	rec, err := scanPlan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.PlanRecord{}, ErrNotFound
	}
	return rec, err
}

func (p *Postgres) ListPlans(ctx context.Context, cursor string, limit int) ([]model.PlanRecord, string, error) {
	limit = clampLimit(limit)
	q := `SELECT id, status, source, locations, plan, COALESCE(error,''), created_at, updated_at FROM plans`
	var rows *sql.Rows
	var err error
	if cursor != "" {
		q += ` WHERE (created_at, id) > (SELECT created_at, id FROM plans WHERE id=$1) ORDER BY created_at, id LIMIT $2`
		rows, err = p.db.QueryContext(ctx, q, cursor, limit+1)
	} else {
		q += ` ORDER BY created_at, id LIMIT $1`
		rows, err = p.db.QueryContext(ctx, q, limit+1)
	}
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	out := []model.PlanRecord{}
	for rows.Next() {
		rec, err := scanPlan(rows)
		if err != nil {
			return nil, "", err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}
	next := ""
	if len(out) > limit {
		out = out[:limit]
		next = out[limit-1].ID
	}
	return out, next, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlan(r rowScanner) (model.PlanRecord, error) {
	var rec model.PlanRecord
	var status string
	var planJSON []byte
	if err := r.Scan(&rec.ID, &status, &rec.Source, &rec.Locations, &planJSON, &rec.Error, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return model.PlanRecord{}, err
	}
	rec.Status = model.PlanStatus(status)
	if len(planJSON) > 0 {
		var pl model.Plan
		if err := json.Unmarshal(planJSON, &pl); err != nil {
			return model.PlanRecord{}, fmt.Errorf("plan %s: %w", rec.ID, err)
		}
		rec.Plan = &pl
	}
	return rec, nil
}

func planValue(pl *model.Plan) (any, error) {
	if pl == nil {
		return nil, nil
	}
	b, err := json.Marshal(pl)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (p *Postgres) EnqueueWebhook(ctx context.Context, eventType, url, secret string, payload []byte) (string, error) {
	id := uuid.New().String()
	dk := computeDedupKey(payload)
	_, err := p.db.ExecContext(ctx, `INSERT INTO webhook_deliveries (id, event_type, url, secret, payload, status, attempts, next_attempt_at, dedup_key)
        VALUES ($1,$2,$3,$4,$5,'pending',0,now(),$6)
        ON CONFLICT (event_type, url, dedup_key) DO NOTHING`, id, eventType, url, nullIfEmpty(secret), payload, dk)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (p *Postgres) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id, event_type, url, COALESCE(secret,''), payload, status, attempts, next_attempt_at
        FROM webhook_deliveries WHERE status IN ('pending','retry') AND next_attempt_at <= now() ORDER BY next_attempt_at ASC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []WebhookDelivery{}
	for rows.Next() {
		var d WebhookDelivery
		if err := rows.Scan(&d.ID, &d.EventType, &d.URL, &d.Secret, &d.Payload, &d.Status, &d.Attempts, &d.NextAttemptAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (p *Postgres) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error {
	if !success {
		if nextAttemptAt == nil {
			t := time.Now().Add(1 * time.Minute)
			nextAttemptAt = &t
		}
		_, err := p.db.ExecContext(ctx, `UPDATE webhook_deliveries SET attempts=attempts+1, status='retry', last_error=$1, next_attempt_at=$2, updated_at=now(), response_code=$4, latency_ms=$5 WHERE id=$3`,
			nullIfEmpty(lastError), *nextAttemptAt, id, responseCode, latencyMs)
		return err
	}
	_, err := p.db.ExecContext(ctx, `UPDATE webhook_deliveries SET attempts=attempts+1, status='delivered', delivered_at=now(), updated_at=now(), response_code=$2, latency_ms=$3 WHERE id=$1`, id, responseCode, latencyMs)
	return err
}

func (p *Postgres) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error {
	_, err := p.db.ExecContext(ctx, `UPDATE webhook_deliveries SET attempts=attempts+1, status='failed', last_error=$2, updated_at=now(), response_code=$3, latency_ms=$4 WHERE id=$1`,
		id, nullIfEmpty(lastError), responseCode, latencyMs)
	return err
}

func (p *Postgres) ListWebhookDeliveries(ctx context.Context, status string, limit int) ([]WebhookDelivery, error) {
	limit = clampLimit(limit)
	q := `SELECT id, event_type, url, status, attempts, next_attempt_at, COALESCE(last_error,''), COALESCE(response_code,0), COALESCE(latency_ms,0), delivered_at FROM webhook_deliveries`
	var rows *sql.Rows
	var err error
	if status != "" {
		q += ` WHERE status=$1 ORDER BY created_at LIMIT $2`
		rows, err = p.db.QueryContext(ctx, q, status, limit)
	} else {
		q += ` ORDER BY created_at LIMIT $1`
		rows, err = p.db.QueryContext(ctx, q, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []WebhookDelivery{}
	for rows.Next() {
		var d WebhookDelivery
		var delivered sql.NullTime
		if err := rows.Scan(&d.ID, &d.EventType, &d.URL, &d.Status, &d.Attempts, &d.NextAttemptAt, &d.LastError, &d.ResponseCode, &d.LatencyMs, &delivered); err != nil {
			return nil, err
		}
		if delivered.Valid {
			t := delivered.Time
			d.DeliveredAt = &t
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
