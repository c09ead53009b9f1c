package store

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestKVRoundtrip(t *testing.T) {
	s := setupTestStore(t)

	require.NoError(t, s.SetKV("greeting", []byte("hej")))

	val, err := s.GetKV("greeting")
	require.NoError(t, err)
	assert.Equal(t, []byte("hej"), val)

	ok, err := s.HasKV("greeting")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.DeleteKV("greeting"))
	ok, err = s.HasKV("greeting")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetKV_NotFound(t *testing.T) {
	s := setupTestStore(t)

	_, err := s.GetKV("missing")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestOnboardedFlag(t *testing.T) {
	s := setupTestStore(t)

	done, err := s.HasOnboarded()
	require.NoError(t, err)
	assert.False(t, done)

	require.NoError(t, s.SetOnboarded())

	done, err = s.HasOnboarded()
	require.NoError(t, err)
	assert.True(t, done)
}

func TestGetSettings_Defaults(t *testing.T) {
	s := setupTestStore(t)

	settings, err := s.GetSettings()
	require.NoError(t, err)

	assert.Equal(t, 26, settings.TotalDays)
	assert.Equal(t, []string{"08:00", "14:00", "22:00"}, settings.Times)
	assert.Equal(t, 15, settings.NagMinutes)
	assert.True(t, settings.SoundEnabled)
	assert.True(t, settings.HapticsEnabled)
	assert.Empty(t, settings.StartDate)
	assert.Empty(t, settings.TransferDate)
}

func TestSettingsRoundtrip(t *testing.T) {
	s := setupTestStore(t)

	settings := DefaultSettings()
	settings.StartDate = "2025-09-01"
	settings.TransferDate = "2025-09-16"
	settings.NagMinutes = 10
	require.NoError(t, s.SaveSettings(settings))

	loaded, err := s.GetSettings()
	require.NoError(t, err)
	assert.Equal(t, settings, loaded)
}

func TestSettingsMigration_V1(t *testing.T) {
	s := setupTestStore(t)

	// A legacy document predates the transferDate field.
	legacy := map[string]interface{}{
		"startDate":  "2025-08-20",
		"totalDays":  20,
		"times":      []string{"09:00", "21:00"},
		"nagMinutes": 5,
	}
	raw, err := json.Marshal(legacy)
	require.NoError(t, err)
	require.NoError(t, s.SetKV(KeySettingsV1, raw))

	settings, err := s.GetSettings()
	require.NoError(t, err)
	assert.Equal(t, "2025-08-20", settings.StartDate)
	assert.Equal(t, 20, settings.TotalDays)
	assert.Equal(t, []string{"09:00", "21:00"}, settings.Times)
	assert.Equal(t, 5, settings.NagMinutes)
	assert.Empty(t, settings.TransferDate, "migrated settings have no transfer date yet")

	// Migration persists under the v2 key.
	ok, err := s.HasKV(KeySettings)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSaveSettings_Invalid(t *testing.T) {
	s := setupTestStore(t)

	settings := DefaultSettings()
	settings.StartDate = "01/09/2025"
	assert.Error(t, s.SaveSettings(settings))

	settings = DefaultSettings()
	settings.Times = []string{"8:00"}
	assert.Error(t, s.SaveSettings(settings))

	settings = DefaultSettings()
	settings.TotalDays = 0
	assert.Error(t, s.SaveSettings(settings))
}

func TestGetMedicines_SeedsDefaults(t *testing.T) {
	s := setupTestStore(t)

	meds, err := s.GetMedicines()
	require.NoError(t, err)
	require.Len(t, meds, 3)
	assert.Equal(t, "est", meds[0].ID)
	assert.Equal(t, "Estrofem", meds[0].Name)
	assert.True(t, meds[0].Enabled)
	assert.Equal(t, []string{"22:00"}, meds[1].Times)
	assert.False(t, meds[2].Enabled)
}

func TestMedicinesRoundtrip(t *testing.T) {
	s := setupTestStore(t)

	meds := []Medicine{
		{ID: "lupride", Name: "Lupride", Dose: "1 ml", Icon: "💉", Color: "#FFDAC1", Enabled: true, Times: []string{"07:30"}},
	}
	require.NoError(t, s.SaveMedicines(meds))

	loaded, err := s.GetMedicines()
	require.NoError(t, err)
	assert.Equal(t, meds, loaded)

	med, err := s.GetMedicine("lupride")
	require.NoError(t, err)
	assert.Equal(t, "Lupride", med.Name)

	_, err = s.GetMedicine("missing")
	assert.Error(t, err)
}

func TestStatusLedger_Monotonic(t *testing.T) {
	s := setupTestStore(t)

	taken, err := s.IsTaken("2025-09-01", DoseKey("est", "08:00"))
	require.NoError(t, err)
	assert.False(t, taken)

	require.NoError(t, s.MarkStatusTaken("2025-09-01", DoseKey("est", "08:00")))

	taken, err = s.IsTaken("2025-09-01", DoseKey("est", "08:00"))
	require.NoError(t, err)
	assert.True(t, taken)

	// Marking again is a no-op, not an error.
	require.NoError(t, s.MarkStatusTaken("2025-09-01", DoseKey("est", "08:00")))

	// Other dates are untouched.
	taken, err = s.IsTaken("2025-09-02", DoseKey("est", "08:00"))
	require.NoError(t, err)
	assert.False(t, taken)
}

func TestSchedules(t *testing.T) {
	s := setupTestStore(t)

	key := ScheduleKey("2025-09-01", "est", "08:00")
	pair := ScheduledPair{MainID: "main-1", NagID: "nag-1"}
	require.NoError(t, s.PutSchedule(key, pair))

	other := ScheduleKey("2025-09-02", "est", "08:00")
	require.NoError(t, s.PutSchedule(other, ScheduledPair{MainID: "main-2"}))

	today, err := s.SchedulesForDate("2025-09-01")
	require.NoError(t, err)
	require.Len(t, today, 1)
	assert.Equal(t, pair, today[key])

	removed, ok, err := s.RemoveSchedule(key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, pair, removed)

	_, ok, err = s.RemoveSchedule(key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestKeyBuilders(t *testing.T) {
	assert.Equal(t, "est@08:00", DoseKey("est", "08:00"))
	assert.Equal(t, "2025-09-01@est@08:00", ScheduleKey("2025-09-01", "est", "08:00"))
}

func TestValidTime(t *testing.T) {
	assert.True(t, ValidTime("08:00"))
	assert.True(t, ValidTime("22:30"))
	assert.False(t, ValidTime("8:00"))
	assert.False(t, ValidTime("0800"))
	assert.False(t, ValidTime(""))
}
