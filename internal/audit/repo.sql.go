package audit

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGRepository reads audit_logs.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewPGRepository constructs PGRepository.
func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// AuditTimeline implements Repository.
func (r *PGRepository) AuditTimeline(ctx context.Context, window Window) ([]TimelineRow, error) {
	query, args := timelineQuery(window)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TimelineRow
	for rows.Next() {
		var (
			row   TimelineRow
			actor pgtype.Text
			meta  []byte
		)
		if err := rows.Scan(&row.At, &actor, &row.Action, &row.Entity, &row.EntityID, &meta); err != nil {
			return nil, err
		}
		row.Actor = actor.String
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &row.Meta); err != nil {
				return nil, err
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func timelineQuery(window Window) (string, []any) {
	var clauses []string
	args := pgx.NamedArgs{}
	add := func(clause, name string, value any) {
		clauses = append(clauses, clause)
		args[name] = value
	}
	if !window.From.IsZero() {
		add("occurred_at >= @from_at", "from_at", window.From)
	}
	if !window.To.IsZero() {
		add("occurred_at <= @to_at", "to_at", window.To)
	}
	if window.Actor != "" {
		add("actor_id = @actor", "actor", window.Actor)
	}
	if window.Entity != "" {
		add("entity = @entity", "entity", window.Entity)
	}
	if window.Action != "" {
		add("action = @action", "action", window.Action)
	}

	var b strings.Builder
	b.WriteString(`SELECT occurred_at, actor_id, action, entity, entity_id, meta FROM audit_logs`)
	if len(clauses) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(clauses, " AND "))
	}
	b.WriteString(" ORDER BY occurred_at DESC, id DESC")
	if window.Limit > 0 {
		b.WriteString(" LIMIT " + strconv.Itoa(window.Limit))
	}
	if window.Offset > 0 {
		b.WriteString(" OFFSET " + strconv.Itoa(window.Offset))
	}
	return b.String(), []any{args}
}
