package household

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liyu1981.xyz/household-energy-service/pkg/common"
	"liyu1981.xyz/household-energy-service/pkg/models"
	_ "liyu1981.xyz/household-energy-service/pkg/testing"
)

func TestGetActive_NoneSet(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, core, _, _ := GetMockCoreWithMemorySqliteDialector(t, false, false)
	defer ctrl.Finish()

	active, err := core.Tracker.GetActive()
	assert.NoError(t, err)
	assert.Nil(t, active)
}

func TestSetActive_Idempotent(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, core, _, _ := GetMockCoreWithMemorySqliteDialector(t, false, false)
	defer ctrl.Finish()

	id, err := core.Registry.Register("Smith", 2)
	require.NoError(t, err)

	require.NoError(t, core.Tracker.SetActive(id, "SMITH"))
	require.NoError(t, core.Tracker.SetActive(id, "SMITH"))

	var count int64
	require.NoError(t, core.Db.Conn.Model(&models.ActiveHousehold{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	active, err := core.Tracker.GetActive()
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, id, active.HouseholdID)
	assert.Equal(t, "SMITH", active.Name)
}

func TestSetActive_Replaces(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, core, _, _ := GetMockCoreWithMemorySqliteDialector(t, false, false)
	defer ctrl.Finish()

	smithID, err := core.Registry.Register("Smith", 2)
	require.NoError(t, err)
	jonesID, err := core.Registry.Register("Jones", 1)
	require.NoError(t, err)

	require.NoError(t, core.Tracker.SetActive(smithID, "SMITH"))
	require.NoError(t, core.Tracker.SetActive(jonesID, "JONES"))

	var rows []models.ActiveHousehold
	require.NoError(t, core.Db.Conn.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, jonesID, rows[0].HouseholdID)
	assert.Equal(t, "JONES", rows[0].Name)
}

func TestSetActive_TrustsGivenName(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, core, _, _ := GetMockCoreWithMemorySqliteDialector(t, false, false)
	defer ctrl.Finish()

	id, err := core.Registry.Register("Smith", 2)
	require.NoError(t, err)

	require.NoError(t, core.Tracker.SetActive(id, "whatever"))

	active, err := core.Tracker.GetActive()
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, "whatever", active.Name)
}

func TestSetActive_StoresUnregisteredPairAsGiven(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, core, _, _ := GetMockCoreWithMemorySqliteDialector(t, false, false)
	defer ctrl.Finish()

	id, err := core.Registry.Register("Smith", 2)
	require.NoError(t, err)
	require.NoError(t, core.Tracker.SetActive(id, "SMITH"))

	require.NoError(t, core.Tracker.SetActive(4242, "GHOST"))

	active, err := core.Tracker.GetActive()
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, int64(4242), active.HouseholdID)
	assert.Equal(t, "GHOST", active.Name)

	require.NoError(t, core.Tracker.SetActive(0, "X"))

	var rows []models.ActiveHousehold
	require.NoError(t, core.Db.Conn.Find(&rows).Error)
	assert.Equal(t, []models.ActiveHousehold{{HouseholdID: 0, Name: "X"}}, rows)
}
