package store

import (
	"context"
	"fmt"
	"strings"
)

// CommandFilter narrows a command log query. Zero fields match everything.
type CommandFilter struct {
	Type    string
	FormKey string // matched against the payload's formKey
	Outcome string
	FromSeq int64 // inclusive
	ToSeq   int64 // inclusive, 0 means no upper bound
}

// predicate is one WHERE fragment with its parameters. Values are always
// bound, never interpolated.
type predicate interface {
	compile() (string, []any, error)
}

// commandColumns are the columns a predicate may name.
var commandColumns = map[string]bool{
	"id": true, "session_id": true, "seq": true, "type": true, "outcome": true,
}

type equals struct {
	column string
	value  any
}

func (p equals) compile() (string, []any, error) {
	if !commandColumns[p.column] {
		return "", nil, fmt.Errorf("unknown column %q", p.column)
	}
	return p.column + " = ?", []any{p.value}, nil
}

// payloadKeys are the payload keys a predicate may name. Each has an
// expression index, which SQLite only uses for a literal JSON path.
var payloadKeys = map[string]bool{"formKey": true}

type payloadEquals struct {
	key   string
	value any
}

func (p payloadEquals) compile() (string, []any, error) {
	if !payloadKeys[p.key] {
		return "", nil, fmt.Errorf("unknown payload key %q", p.key)
	}
	return "json_extract(payload, '$." + p.key + "') = ?", []any{p.value}, nil
}

type seqRange struct {
	from, to int64
}

func (p seqRange) compile() (string, []any, error) {
	switch {
	case p.from > 0 && p.to > 0:
		return "seq BETWEEN ? AND ?", []any{p.from, p.to}, nil
	case p.from > 0:
		return "seq >= ?", []any{p.from}, nil
	case p.to > 0:
		return "seq <= ?", []any{p.to}, nil
	}
	return "1 = 1", nil, nil
}

type and []predicate

func (p and) compile() (string, []any, error) {
	if len(p) == 0 {
		return "1 = 1", nil, nil
	}
	parts := make([]string, 0, len(p))
	var params []any
	for _, pred := range p {
		sql, args, err := pred.compile()
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, sql)
		params = append(params, args...)
	}
	return strings.Join(parts, " AND "), params, nil
}

func (f CommandFilter) predicate(session string) predicate {
	preds := and{equals{"session_id", session}}
	if f.Type != "" {
		preds = append(preds, equals{"type", f.Type})
	}
	if f.Outcome != "" {
		preds = append(preds, equals{"outcome", f.Outcome})
	}
	if f.FormKey != "" {
		preds = append(preds, payloadEquals{"formKey", f.FormKey})
	}
	if f.FromSeq > 0 || f.ToSeq > 0 {
		preds = append(preds, seqRange{f.FromSeq, f.ToSeq})
	}
	return preds
}

// compileCommandQuery builds the SELECT for a session's commands. Every
// query orders by seq with id as tiebreaker.
func compileCommandQuery(session string, f CommandFilter) (string, []any, error) {
	where, params, err := f.predicate(session).compile()
	if err != nil {
		return "", nil, err
	}
	sql := "SELECT id, session_id, seq, type, payload, outcome FROM commands WHERE " +
		where + " ORDER BY seq ASC, id COLLATE BINARY ASC"
	return sql, params, nil
}

// QueryCommands returns the commands of a session matching f, in seq order.
//
// Returns an empty slice (not nil) when nothing matches.
func (s *Store) QueryCommands(ctx context.Context, session string, f CommandFilter) ([]CommandRecord, error) {
	query, params, err := compileCommandQuery(session, f)
	if err != nil {
		return nil, fmt.Errorf("compile command query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query commands: %w", err)
	}
	defer rows.Close()

	records := []CommandRecord{}
	for rows.Next() {
		var (
			rec          CommandRecord
			typ, payload string
		)
		if err := rows.Scan(&rec.ID, &rec.Session, &rec.Seq, &typ, &payload, &rec.Outcome); err != nil {
			return nil, fmt.Errorf("scan command: %w", err)
		}
		rec.Command, err = unmarshalCommand(typ, payload)
		if err != nil {
			return nil, fmt.Errorf("command %s seq %d: %w", rec.Session, rec.Seq, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate commands: %w", err)
	}
	return records, nil
}
