package sync

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"partsync/internal/logger"
)

// Record is one canonical external record: a stable primary key plus the
// parsed scalar fields and the add-only many-to-many links.
type Record struct {
	PK     string
	Fields map[string]interface{}
	M2M    map[string][]string
}

// Source produces canonical records for one entity type. Implementations
// own the per-parent sub-fetches, loop-key annotation, flattening and
// duplicate suppression, so the engine always sees a flat deduplicated
// record list.
type Source interface {
	// Label is the entity display name used in messages.
	Label() string
	// Fetch returns the full parsed record set for a pass.
	Fetch(ctx context.Context) ([]Record, error)
	// FetchPKs returns the authoritative primary key universe for the
	// unauthorize phase. It must cover the same universe as Fetch.
	FetchPKs(ctx context.Context) ([]string, error)
}

// Row is one local entity under reconciliation.
type Row interface {
	PK() string
	Display() string
	Authorized() bool
	// Apply writes only the fields that differ, re-authorizes the row, and
	// persists when anything changed. It returns the per-field deltas.
	Apply(rec Record) ([]Delta, error)
	// Unauthorize flips the authorization flag off. Idempotent.
	Unauthorize() ([]Delta, error)
}

// Store is the local repository for one entity type.
type Store interface {
	// Get resolves a record to its local row. Join entities without a
	// natural external id resolve by their natural key instead of rec.PK.
	Get(rec Record) (Row, bool, error)
	Create(rec Record) (Row, error)
	All() ([]Row, error)
}

// Engine runs the generic reconciliation passes. Per-record failures are
// converted into messages and never abort a batch; a fetch failure aborts
// only the current entity type's pass.
type Engine struct {
	logger *logger.Logger
}

func NewEngine(logger *logger.Logger) *Engine {
	return &Engine{logger: logger}
}

// ImportNew creates entities first seen in the fetch and skips existing
// ones without touching them.
func (e *Engine) ImportNew(ctx context.Context, src Source, store Store) []string {
	recs, err := src.Fetch(ctx)
	if err != nil {
		return []string{ErrorMsg(src.Label(), err)}
	}

	var msgs []string
	for _, rec := range recs {
		_, ok, err := store.Get(rec)
		if err != nil {
			msgs = append(msgs, RecordErrorMsg(src.Label(), rec.PK, err))
			continue
		}
		if ok {
			continue
		}
		row, err := store.Create(rec)
		if err != nil {
			msgs = append(msgs, RecordErrorMsg(src.Label(), rec.PK, err))
			continue
		}
		msgs = append(msgs, CreatedMsg(src.Label(), row.Display()))
	}

	if len(msgs) == 0 {
		msgs = append(msgs, AllUpToDateMsg(src.Label()))
	}
	return msgs
}

// ImportAndUpdate creates new entities and updates existing ones in place,
// writing only changed fields.
func (e *Engine) ImportAndUpdate(ctx context.Context, src Source, store Store) []string {
	recs, err := src.Fetch(ctx)
	if err != nil {
		return []string{ErrorMsg(src.Label(), err)}
	}

	var msgs []string
	for _, rec := range recs {
		row, ok, err := store.Get(rec)
		if err != nil {
			msgs = append(msgs, RecordErrorMsg(src.Label(), rec.PK, err))
			continue
		}

		if !ok {
			row, err = store.Create(rec)
			if err != nil {
				msgs = append(msgs, RecordErrorMsg(src.Label(), rec.PK, err))
				continue
			}
			msgs = append(msgs, CreatedMsg(src.Label(), row.Display()))
			continue
		}

		deltas, err := row.Apply(rec)
		if err != nil {
			msgs = append(msgs, RecordErrorMsg(src.Label(), row.Display(), err))
			continue
		}
		if len(deltas) == 0 {
			msgs = append(msgs, UpToDateMsg(src.Label(), row.Display()))
		} else {
			msgs = append(msgs, UpdatedMsg(src.Label(), row.Display(), deltas))
		}
	}
	return msgs
}

// Unauthorize soft-deactivates every local entity whose primary key is
// absent from the authoritative id universe of this pass.
func (e *Engine) Unauthorize(ctx context.Context, src Source, store Store) []string {
	pks, err := src.FetchPKs(ctx)
	if err != nil {
		return []string{ErrorMsg(src.Label(), err)}
	}

	keep := make(map[string]bool, len(pks))
	for _, pk := range pks {
		keep[pk] = true
	}

	rows, err := store.All()
	if err != nil {
		return []string{ErrorMsg(src.Label(), err)}
	}

	var msgs []string
	for _, row := range rows {
		if keep[row.PK()] {
			continue
		}
		deltas, err := row.Unauthorize()
		if err != nil {
			msgs = append(msgs, RecordErrorMsg(src.Label(), row.Display(), err))
			continue
		}
		if len(deltas) == 0 {
			msgs = append(msgs, UpToDateMsg(src.Label(), row.Display()))
		} else {
			msgs = append(msgs, UpdatedMsg(src.Label(), row.Display(), deltas))
		}
	}

	if len(msgs) == 0 {
		msgs = append(msgs, AllUpToDateMsg(src.Label()))
	}
	return msgs
}

// Sync runs ImportAndUpdate followed by Unauthorize against the same
// fetch pass.
func (e *Engine) Sync(ctx context.Context, src Source, store Store) []string {
	msgs := e.ImportAndUpdate(ctx, src, store)
	msgs = append(msgs, e.Unauthorize(ctx, src, store)...)
	return msgs
}

// dedupeRecords removes records equal on every field and link, keeping the
// first occurrence. Parent-scoped sub-fetches can legitimately return the
// same child more than once.
func dedupeRecords(recs []Record) []Record {
	seen := make(map[string]Record)
	var order []string
	for _, rec := range recs {
		key := recordKey(rec)
		if _, ok := seen[key]; !ok {
			seen[key] = rec
			order = append(order, key)
		}
	}
	out := make([]Record, 0, len(order))
	for _, key := range order {
		out = append(out, seen[key])
	}
	return out
}

// recordKey renders a record into a canonical string for full-tuple
// equality comparison.
func recordKey(rec Record) string {
	fields := make([]string, 0, len(rec.Fields))
	for name, value := range rec.Fields {
		fields = append(fields, fmt.Sprintf("%s=%v", name, value))
	}
	sort.Strings(fields)

	links := make([]string, 0, len(rec.M2M))
	for name, pks := range rec.M2M {
		sorted := append([]string(nil), pks...)
		sort.Strings(sorted)
		links = append(links, fmt.Sprintf("%s=%s", name, strings.Join(sorted, "|")))
	}
	sort.Strings(links)

	return rec.PK + ";" + strings.Join(fields, ";") + ";" + strings.Join(links, ";")
}
