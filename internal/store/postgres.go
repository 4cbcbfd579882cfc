package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/exchange/internal/exchange"
	"github.com/JonMunkholm/exchange/internal/logging"
)

// Schema creates the record table. Each committed import is one batch; rows
// keep their position within the batch so listings preserve file order.
const Schema = `
CREATE TABLE IF NOT EXISTS exchange_records (
	id         uuid        PRIMARY KEY,
	entity     text        NOT NULL,
	batch_id   uuid        NOT NULL,
	position   integer     NOT NULL,
	payload    jsonb       NOT NULL,
	created_at timestamptz NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS exchange_records_entity_idx
	ON exchange_records (entity, created_at, batch_id, position);
`

var copyColumns = []string{"id", "entity", "batch_id", "position", "payload"}

// Postgres stores records as jsonb rows in a single table.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps an open pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// EnsureSchema creates the record table if it does not exist.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("create exchange_records: %w", err)
	}
	return nil
}

// Insert copies records into the table inside one transaction.
func (p *Postgres) Insert(ctx context.Context, entity string, records []exchange.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	batchID := uuid.New()
	rows := make([][]any, len(records))
	for i, rec := range records {
		payload, err := encodePayload(rec)
		if err != nil {
			return 0, fmt.Errorf("encode record %d: %w", i+1, err)
		}
		rows[i] = []any{
			pgtype.UUID{Bytes: uuid.New(), Valid: true},
			entity,
			pgtype.UUID{Bytes: batchID, Valid: true},
			int32(i),
			payload,
		}
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // No-op if already committed

	n, err := tx.CopyFrom(ctx, pgx.Identifier{"exchange_records"}, copyColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, fmt.Errorf("copy records: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	logging.WithFields(ctx, "entity", entity, "batch_id", batchID).Debug("records copied", "rows", n)
	return int(n), nil
}

// List returns every record of entity, oldest batch first.
func (p *Postgres) List(ctx context.Context, entity string) ([]exchange.Record, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT payload FROM exchange_records
		WHERE entity = $1
		ORDER BY created_at, batch_id, position`, entity)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", entity, err)
	}

	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (exchange.Record, error) {
		var raw []byte
		if err := row.Scan(&raw); err != nil {
			return nil, err
		}
		return decodePayload(raw)
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", entity, err)
	}
	return records, nil
}

// encodePayload converts record values to their pgtype forms and marshals
// them as JSON. Dates without a clock become pgtype.Date so they serialize
// as YYYY-MM-DD.
func encodePayload(rec exchange.Record) ([]byte, error) {
	out := make(map[string]any, len(rec))
	for k, v := range rec {
		pv, err := toPgValue(v)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", k, err)
		}
		out[k] = pv
	}
	return json.Marshal(out)
}

func toPgValue(v any) (any, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		return pgtype.Text{String: val, Valid: true}, nil
	case bool:
		return pgtype.Bool{Bool: val, Valid: true}, nil
	case float64:
		var n pgtype.Numeric
		if err := n.Scan(strconv.FormatFloat(val, 'f', -1, 64)); err != nil {
			return nil, err
		}
		return n, nil
	case int:
		return pgtype.Int8{Int64: int64(val), Valid: true}, nil
	case int64:
		return pgtype.Int8{Int64: val, Valid: true}, nil
	case time.Time:
		if val.IsZero() {
			return nil, nil
		}
		h, m, s := val.Clock()
		if h == 0 && m == 0 && s == 0 && val.Nanosecond() == 0 && val.Location() == time.UTC {
			return pgtype.Date{Time: val, Valid: true}, nil
		}
		return pgtype.Timestamptz{Time: val, Valid: true}, nil
	default:
		return exchange.FormatValue(val), nil
	}
}

// decodePayload reads a stored payload back into a record. Numbers come back
// as float64 and dates as their text form, which exports render unchanged.
func decodePayload(raw []byte) (exchange.Record, error) {
	var rec exchange.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	return rec, nil
}
