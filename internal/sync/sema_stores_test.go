package sync

import (
	"testing"

	"partsync/internal/models"
	"partsync/internal/services/apierr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrandStoreApplyReauthorizes(t *testing.T) {
	db := testDB(t)
	require.NoError(t, db.Create(&models.SemaBrand{
		BrandID: "B1", Name: "Old Name", IsAuthorized: false,
	}).Error)

	store := &BrandStore{DB: db}
	row, ok, err := store.Get(Record{PK: "B1"})
	require.NoError(t, err)
	require.True(t, ok)

	// Presence in a fetch re-authorizes alongside the field updates.
	deltas, err := row.Apply(Record{PK: "B1", Fields: map[string]interface{}{"name": "New Name"}})
	require.NoError(t, err)
	require.Len(t, deltas, 2)
	assert.Equal(t, "name: Old Name -> New Name", deltas[0].String())
	assert.Equal(t, "is_authorized: false -> true", deltas[1].String())

	var brand models.SemaBrand
	require.NoError(t, db.First(&brand, "brand_id = ?", "B1").Error)
	assert.Equal(t, "New Name", brand.Name)
	assert.True(t, brand.IsAuthorized)

	// Unchanged data yields no deltas.
	deltas, err = row.Apply(Record{PK: "B1", Fields: map[string]interface{}{"name": "New Name"}})
	require.NoError(t, err)
	assert.Empty(t, deltas)
}

func TestBrandStoreUnauthorizeIsIdempotent(t *testing.T) {
	db := testDB(t)
	require.NoError(t, db.Create(&models.SemaBrand{
		BrandID: "B1", Name: "ACME", IsAuthorized: true,
	}).Error)

	store := &BrandStore{DB: db}
	row, ok, err := store.Get(Record{PK: "B1"})
	require.NoError(t, err)
	require.True(t, ok)

	deltas, err := row.Unauthorize()
	require.NoError(t, err)
	require.Len(t, deltas, 1)
	assert.Equal(t, "is_authorized: true -> false", deltas[0].String())

	deltas, err = row.Unauthorize()
	require.NoError(t, err)
	assert.Empty(t, deltas)
}

func TestDatasetStoreCreateRequiresParentBrand(t *testing.T) {
	db := testDB(t)

	store := &DatasetStore{DB: db}
	_, err := store.Create(Record{PK: "100", Fields: map[string]interface{}{
		"name": "DS", "brand_id": "MISSING",
	}})
	require.Error(t, err)

	var parentErr *apierr.ParentMissingError
	assert.ErrorAs(t, err, &parentErr)
}
