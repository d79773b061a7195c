package store

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/roach88/formsync/internal/command"
)

func TestCompileCommandQuery(t *testing.T) {
	tests := []struct {
		name       string
		filter     CommandFilter
		wantWhere  string
		wantParams []any
	}{
		{
			name:       "session only",
			wantWhere:  "WHERE session_id = ? ORDER BY",
			wantParams: []any{"s1"},
		},
		{
			name:       "type and outcome",
			filter:     CommandFilter{Type: "INPUT_CHANGE", Outcome: "OK"},
			wantWhere:  "WHERE session_id = ? AND type = ? AND outcome = ? ORDER BY",
			wantParams: []any{"s1", "INPUT_CHANGE", "OK"},
		},
		{
			name:       "form key reads the payload",
			filter:     CommandFilter{FormKey: "movieForm"},
			wantWhere:  "WHERE session_id = ? AND json_extract(payload, '$.formKey') = ? ORDER BY",
			wantParams: []any{"s1", "movieForm"},
		},
		{
			name:       "seq range",
			filter:     CommandFilter{FromSeq: 2, ToSeq: 5},
			wantWhere:  "WHERE session_id = ? AND seq BETWEEN ? AND ? ORDER BY",
			wantParams: []any{"s1", int64(2), int64(5)},
		},
		{
			name:       "open ended range",
			filter:     CommandFilter{ToSeq: 3},
			wantWhere:  "WHERE session_id = ? AND seq <= ? ORDER BY",
			wantParams: []any{"s1", int64(3)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, params, err := compileCommandQuery("s1", tt.filter)
			if err != nil {
				t.Fatalf("compileCommandQuery() failed: %v", err)
			}
			if !strings.Contains(sql, tt.wantWhere) {
				t.Errorf("sql = %q, want it to contain %q", sql, tt.wantWhere)
			}
			if !strings.HasSuffix(sql, "ORDER BY seq ASC, id COLLATE BINARY ASC") {
				t.Errorf("sql = %q, want deterministic ordering", sql)
			}
			if !reflect.DeepEqual(params, tt.wantParams) {
				t.Errorf("params = %v, want %v", params, tt.wantParams)
			}
		})
	}
}

func TestPredicatesRejectUnknownNames(t *testing.T) {
	for _, p := range []predicate{
		and{equals{"payload; DROP TABLE commands", "x"}},
		payloadEquals{"x') OR 1=1 --", "x"},
	} {
		if _, _, err := p.compile(); err == nil {
			t.Errorf("%#v compiled, want error", p)
		}
	}
}

func TestQueryCommands(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	recordCommands(t, s, "s1", nil, 0,
		movieForm(),
		command.ToggleFormEditing{FormKey: "movieForm", Editing: true},
		command.InputChange{FieldRef: titleRef()},
		command.DestroyForm{FormKey: "ghost"},
		command.SetFormToSaving{FormKey: "movieForm"},
	)

	t.Run("by form key", func(t *testing.T) {
		records, err := s.QueryCommands(ctx, "s1", CommandFilter{FormKey: "movieForm"})
		if err != nil {
			t.Fatalf("QueryCommands() failed: %v", err)
		}
		var seqs []int64
		for _, rec := range records {
			seqs = append(seqs, rec.Seq)
		}
		if want := []int64{1, 2, 3, 5}; !reflect.DeepEqual(seqs, want) {
			t.Errorf("seqs = %v, want %v", seqs, want)
		}
	})

	t.Run("by outcome", func(t *testing.T) {
		records, err := s.QueryCommands(ctx, "s1", CommandFilter{Outcome: "FORM_NOT_FOUND"})
		if err != nil {
			t.Fatalf("QueryCommands() failed: %v", err)
		}
		if len(records) != 1 || records[0].Seq != 4 {
			t.Fatalf("records = %+v, want seq 4 only", records)
		}
		if _, ok := records[0].Command.(command.DestroyForm); !ok {
			t.Errorf("command = %T, want DestroyForm", records[0].Command)
		}
	})

	t.Run("by seq range and type", func(t *testing.T) {
		records, err := s.QueryCommands(ctx, "s1", CommandFilter{Type: "SET_FORM_TO_SAVING", FromSeq: 2, ToSeq: 4})
		if err != nil {
			t.Fatalf("QueryCommands() failed: %v", err)
		}
		if records == nil || len(records) != 0 {
			t.Errorf("records = %+v, want empty slice", records)
		}
	})
}
