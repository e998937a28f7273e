package sync

import (
	"context"
	"testing"

	"partsync/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeYearFetchRejectsEmptyYearUniverse(t *testing.T) {
	db := testDB(t)
	require.NoError(t, db.Create(&models.SemaMakeYear{
		YearID: 2020, MakeID: 1, IsAuthorized: true,
	}).Error)
	require.NoError(t, db.Create(&models.SemaMakeYear{
		YearID: 2021, MakeID: 2, IsAuthorized: true,
	}).Error)

	// Zero authorized years means the upstream universe was never fetched,
	// not that it is empty. An unauthorize pass must not treat it as
	// authoritative and flip every stored pair.
	msgs := testEngine().Unauthorize(context.Background(),
		&MakeYearSource{DB: db}, &MakeYearStore{DB: db})

	require.Len(t, msgs, 1)
	assert.Equal(t, "Error: SEMA Make Year, no authorized years", msgs[0])

	var authorized int64
	require.NoError(t, db.Model(&models.SemaMakeYear{}).
		Where("is_authorized = ?", true).Count(&authorized).Error)
	assert.EqualValues(t, 2, authorized)
}
