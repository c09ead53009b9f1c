package cron

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kristoffersk85-png/ivf-medicinpaminnare/internal/config"
	"github.com/kristoffersk85-png/ivf-medicinpaminnare/internal/notify"
	"github.com/kristoffersk85-png/ivf-medicinpaminnare/internal/reminder"
	"github.com/kristoffersk85-png/ivf-medicinpaminnare/internal/store"
)

func setupRunner(t *testing.T) (*Runner, *notify.Notifier, *store.Store) {
	t.Helper()
	st, err := store.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	notifier := notify.New(zap.NewNop(), config.NotifyConfig{RatePerMinute: 6000, Burst: 100})
	engine := reminder.NewEngine(st, notifier, zap.NewNop())
	return NewRunner(engine, zap.NewNop()), notifier, st
}

func TestStartStop(t *testing.T) {
	r, _, _ := setupRunner(t)

	require.NoError(t, r.Start())
	assert.True(t, r.IsRunning())

	assert.Error(t, r.Start(), "double start is rejected")

	r.Stop()
	assert.False(t, r.IsRunning())

	// Stopping twice is harmless.
	r.Stop()
}

func TestStart_InvalidSpec(t *testing.T) {
	r, _, _ := setupRunner(t)
	r.WithSpec("not a cron spec")

	assert.Error(t, r.Start())
	assert.False(t, r.IsRunning())
}

func TestSpecFor(t *testing.T) {
	tests := []struct {
		dailyAt string
		want    string
		wantErr bool
	}{
		{"00:05", "5 0 * * *", false},
		{"23:30", "30 23 * * *", false},
		{"08:00", "0 8 * * *", false},
		{"7:00", "", true},
		{"25:00", "", true},
		{"not a time", "", true},
	}

	for _, tt := range tests {
		got, err := SpecFor(tt.dailyAt)
		if tt.wantErr {
			assert.Error(t, err, tt.dailyAt)
			continue
		}
		require.NoError(t, err, tt.dailyAt)
		assert.Equal(t, tt.want, got)
	}
}

func TestRunNow_ArmsTimers(t *testing.T) {
	r, notifier, st := setupRunner(t)

	require.NoError(t, st.SaveMedicines([]store.Medicine{
		{ID: "est", Name: "Estrofem", Dose: "2 mg", Enabled: true, Times: []string{"08:00"}},
	}))

	r.RunNow()

	// One dose arms a main and a nag timer.
	assert.Equal(t, 2, notifier.PendingCount())
}

func TestRunNow_PrunesStaleEntries(t *testing.T) {
	r, _, st := setupRunner(t)

	// A leftover entry from a long past day.
	require.NoError(t, st.PutSchedule("2000-01-01@est@08:00", store.ScheduledPair{
		MainID: notify.NewID(),
		NagID:  notify.NewID(),
	}))

	r.RunNow()

	schedules, err := st.GetSchedules()
	require.NoError(t, err)
	assert.NotContains(t, schedules, "2000-01-01@est@08:00")
}
