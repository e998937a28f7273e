package sync

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"partsync/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRow struct {
	pk         string
	display    string
	authorized bool
	fields     map[string]interface{}
	applyErr   error
}

func (r *fakeRow) PK() string       { return r.pk }
func (r *fakeRow) Display() string  { return r.display }
func (r *fakeRow) Authorized() bool { return r.authorized }

func (r *fakeRow) Apply(rec Record) ([]Delta, error) {
	if r.applyErr != nil {
		return nil, r.applyErr
	}
	var deltas []Delta
	for name, value := range rec.Fields {
		next := fmt.Sprintf("%v", value)
		old := fmt.Sprintf("%v", r.fields[name])
		if old != next {
			deltas = append(deltas, Delta{Field: name, Old: old, New: next})
			r.fields[name] = value
		}
	}
	if !r.authorized {
		deltas = append(deltas, Delta{Field: "is_authorized", Old: "false", New: "true"})
		r.authorized = true
	}
	return deltas, nil
}

func (r *fakeRow) Unauthorize() ([]Delta, error) {
	if !r.authorized {
		return nil, nil
	}
	r.authorized = false
	return []Delta{{Field: "is_authorized", Old: "true", New: "false"}}, nil
}

type fakeStore struct {
	rows      map[string]*fakeRow
	createErr map[string]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: map[string]*fakeRow{}, createErr: map[string]error{}}
}

func (s *fakeStore) Get(rec Record) (Row, bool, error) {
	row, ok := s.rows[rec.PK]
	if !ok {
		return nil, false, nil
	}
	return row, true, nil
}

func (s *fakeStore) Create(rec Record) (Row, error) {
	if err := s.createErr[rec.PK]; err != nil {
		return nil, err
	}
	fields := make(map[string]interface{}, len(rec.Fields))
	for name, value := range rec.Fields {
		fields[name] = value
	}
	row := &fakeRow{pk: rec.PK, display: rec.PK, authorized: true, fields: fields}
	s.rows[rec.PK] = row
	return row, nil
}

func (s *fakeStore) All() ([]Row, error) {
	var rows []Row
	for _, row := range s.rows {
		rows = append(rows, row)
	}
	return rows, nil
}

type fakeSource struct {
	label    string
	recs     []Record
	fetchErr error
}

func (s *fakeSource) Label() string { return s.label }

func (s *fakeSource) Fetch(ctx context.Context) ([]Record, error) {
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	return s.recs, nil
}

func (s *fakeSource) FetchPKs(ctx context.Context) ([]string, error) {
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	pks := make([]string, len(s.recs))
	for i, rec := range s.recs {
		pks[i] = rec.PK
	}
	return pks, nil
}

func testEngine() *Engine {
	return NewEngine(logger.New("error"))
}

func TestImportNewCreatesOnlyMissing(t *testing.T) {
	store := newFakeStore()
	_, err := store.Create(Record{PK: "1", Fields: map[string]interface{}{"name": "old"}})
	require.NoError(t, err)

	src := &fakeSource{label: "SEMA Brand", recs: []Record{
		{PK: "1", Fields: map[string]interface{}{"name": "new"}},
		{PK: "2", Fields: map[string]interface{}{"name": "fresh"}},
	}}

	msgs := testEngine().ImportNew(context.Background(), src, store)

	require.Len(t, msgs, 1)
	assert.Equal(t, "Success: SEMA Brand 2 created", msgs[0])
	// Existing rows are left untouched.
	assert.Equal(t, "old", store.rows["1"].fields["name"])
}

func TestImportNewAllUpToDate(t *testing.T) {
	store := newFakeStore()
	_, err := store.Create(Record{PK: "1", Fields: map[string]interface{}{}})
	require.NoError(t, err)

	src := &fakeSource{label: "SEMA Brand", recs: []Record{{PK: "1"}}}
	msgs := testEngine().ImportNew(context.Background(), src, store)

	require.Len(t, msgs, 1)
	assert.Equal(t, "Info: SEMA Brand, everything up-to-date", msgs[0])
}

func TestImportAndUpdateWritesOnlyChangedFields(t *testing.T) {
	store := newFakeStore()
	_, err := store.Create(Record{PK: "1", Fields: map[string]interface{}{"name": "old", "kept": "same"}})
	require.NoError(t, err)

	src := &fakeSource{label: "SEMA Make", recs: []Record{
		{PK: "1", Fields: map[string]interface{}{"name": "new", "kept": "same"}},
	}}

	msgs := testEngine().ImportAndUpdate(context.Background(), src, store)

	require.Len(t, msgs, 1)
	assert.Equal(t, "Success: SEMA Make 1 updated, name: old -> new", msgs[0])
}

func TestImportAndUpdateUpToDateMessage(t *testing.T) {
	store := newFakeStore()
	_, err := store.Create(Record{PK: "1", Fields: map[string]interface{}{"name": "same"}})
	require.NoError(t, err)

	src := &fakeSource{label: "SEMA Make", recs: []Record{
		{PK: "1", Fields: map[string]interface{}{"name": "same"}},
	}}

	msgs := testEngine().ImportAndUpdate(context.Background(), src, store)

	require.Len(t, msgs, 1)
	assert.Equal(t, "Info: SEMA Make 1, already up-to-date", msgs[0])
}

func TestPerRecordFailureDoesNotAbortBatch(t *testing.T) {
	store := newFakeStore()
	store.createErr["2"] = errors.New("constraint violated")

	src := &fakeSource{label: "SEMA Year", recs: []Record{
		{PK: "1"}, {PK: "2"}, {PK: "3"},
	}}

	msgs := testEngine().ImportNew(context.Background(), src, store)

	require.Len(t, msgs, 3)
	assert.Equal(t, "Success: SEMA Year 1 created", msgs[0])
	assert.Equal(t, "Error: SEMA Year 2, constraint violated", msgs[1])
	assert.Equal(t, "Success: SEMA Year 3 created", msgs[2])
}

func TestFetchFailureAbortsOnlyThisPass(t *testing.T) {
	store := newFakeStore()
	src := &fakeSource{label: "SEMA Year", fetchErr: errors.New("boom")}

	msgs := testEngine().ImportAndUpdate(context.Background(), src, store)

	require.Len(t, msgs, 1)
	assert.Equal(t, "Error: SEMA Year, boom", msgs[0])
	assert.True(t, IsErrorMsg(msgs[0]))
}

func TestUnauthorizeFlipsRowsAbsentFromUniverse(t *testing.T) {
	store := newFakeStore()
	_, err := store.Create(Record{PK: "1", Fields: map[string]interface{}{}})
	require.NoError(t, err)
	_, err = store.Create(Record{PK: "2", Fields: map[string]interface{}{}})
	require.NoError(t, err)

	src := &fakeSource{label: "SEMA Model", recs: []Record{{PK: "1"}}}
	msgs := testEngine().Unauthorize(context.Background(), src, store)

	require.Len(t, msgs, 1)
	assert.Equal(t, "Success: SEMA Model 2 updated, is_authorized: true -> false", msgs[0])
	assert.True(t, store.rows["1"].authorized)
	assert.False(t, store.rows["2"].authorized)
}

func TestUnauthorizeIsIdempotent(t *testing.T) {
	store := newFakeStore()
	_, err := store.Create(Record{PK: "2", Fields: map[string]interface{}{}})
	require.NoError(t, err)
	store.rows["2"].authorized = false

	src := &fakeSource{label: "SEMA Model", recs: []Record{{PK: "1"}}}
	// PK 1 does not exist locally so only row 2 is inspected.
	store.createErr["1"] = errors.New("unused")

	msgs := testEngine().Unauthorize(context.Background(), src, store)

	require.Len(t, msgs, 1)
	assert.Equal(t, "Info: SEMA Model 2, already up-to-date", msgs[0])
}

func TestSyncRunsUpdateThenUnauthorize(t *testing.T) {
	store := newFakeStore()
	_, err := store.Create(Record{PK: "stale", Fields: map[string]interface{}{}})
	require.NoError(t, err)

	src := &fakeSource{label: "SEMA Submodel", recs: []Record{
		{PK: "1", Fields: map[string]interface{}{"name": "x"}},
	}}

	msgs := testEngine().Sync(context.Background(), src, store)

	assert.Contains(t, msgs, "Success: SEMA Submodel 1 created")
	assert.Contains(t, msgs, "Success: SEMA Submodel stale updated, is_authorized: true -> false")
	assert.True(t, store.rows["1"].authorized)
	assert.False(t, store.rows["stale"].authorized)
}

func TestDedupeRecordsFullTupleEquality(t *testing.T) {
	recs := []Record{
		{PK: "1", Fields: map[string]interface{}{"name": "a"}},
		{PK: "1", Fields: map[string]interface{}{"name": "a"}},
		{PK: "1", Fields: map[string]interface{}{"name": "b"}},
		{PK: "2", Fields: map[string]interface{}{"name": "a"}, M2M: map[string][]string{"parents": {"9", "8"}}},
		{PK: "2", Fields: map[string]interface{}{"name": "a"}, M2M: map[string][]string{"parents": {"8", "9"}}},
	}

	out := dedupeRecords(recs)

	// Same PK with different fields is kept, link order is ignored.
	require.Len(t, out, 3)
	assert.Equal(t, "1", out[0].PK)
	assert.Equal(t, "1", out[1].PK)
	assert.Equal(t, "2", out[2].PK)
}

func TestIsErrorMsg(t *testing.T) {
	assert.False(t, IsErrorMsg("Success: SEMA Brand X created"))
	assert.False(t, IsErrorMsg("Info: SEMA Brand, everything up-to-date"))
	assert.True(t, IsErrorMsg("Error: SEMA Brand, boom"))
	assert.True(t, IsErrorMsg("Chunk Error: a,b,c, boom"))
}
