package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver

	"truckbrick/api/internal/pipeline"
)

var ErrNotFound = sql.ErrNoRows

// Open connects to Postgres through the pgx stdlib driver and pings it.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}
	pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

// GuideRepo archives finished guides per chat. It is a history for /last, never a
// lookup in front of the generation services.
type GuideRepo struct{ DB *sql.DB }

func NewGuideRepo(db *sql.DB) *GuideRepo { return &GuideRepo{DB: db} }

const schema = `
create table if not exists truck_guides (
  id          uuid primary key,
  chat_id     bigint not null,
  created_at  timestamptz not null default now(),
  engine      text not null,
  model       text not null,
  style       text not null,
  scale_label text not null,
  pieces      integer not null,
  render_url  text,
  result_json jsonb not null
);
create index if not exists truck_guides_chat_created on truck_guides (chat_id, created_at desc)`

func (r *GuideRepo) EnsureSchema(ctx context.Context) error {
	_, err := r.DB.ExecContext(ctx, schema)
	return err
}

// Save stores one result. Inline render bytes are dropped; only a URL is kept.
func (r *GuideRepo) Save(ctx context.Context, chatID int64, res *pipeline.Result) error {
	if res == nil {
		return errors.New("nil result")
	}
	stored := *res
	var renderURL sql.NullString
	if res.Render.Ref != nil {
		ref := *res.Render.Ref
		ref.Data = nil
		stored.Render.Ref = &ref
		renderURL = sql.NullString{String: ref.URL, Valid: ref.URL != ""}
	}
	js, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	const q = `
insert into truck_guides (id, chat_id, created_at, engine, model, style, scale_label, pieces, render_url, result_json)
values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
on conflict (id) do nothing`
	_, err = r.DB.ExecContext(ctx, q,
		res.ID, chatID, res.CreatedAt, res.Engine, res.Model,
		res.Params.Style.String(), res.Params.ScaleLabel, res.Params.TargetPieces,
		renderURL, js,
	)
	return err
}

// Last returns the chat's most recent guide, or ErrNotFound.
func (r *GuideRepo) Last(ctx context.Context, chatID int64) (*pipeline.Result, error) {
	const q = `
select result_json
from truck_guides
where chat_id = $1
order by created_at desc
limit 1`
	var js []byte
	if err := r.DB.QueryRowContext(ctx, q, chatID).Scan(&js); err != nil {
		return nil, err
	}
	var res pipeline.Result
	if err := json.Unmarshal(js, &res); err != nil {
		// a corrupt row counts as missing
		return nil, ErrNotFound
	}
	return &res, nil
}

// PurgeOlderThan deletes archived guides older than the given age.
func (r *GuideRepo) PurgeOlderThan(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, errors.New("olderThan must be > 0")
	}
	cutoff := time.Now().Add(-olderThan)
	res, err := r.DB.ExecContext(ctx, `delete from truck_guides where created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	aff, _ := res.RowsAffected()
	return aff, nil
}
