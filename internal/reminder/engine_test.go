package reminder

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kristoffersk85-png/ivf-medicinpaminnare/internal/config"
	"github.com/kristoffersk85-png/ivf-medicinpaminnare/internal/notify"
	"github.com/kristoffersk85-png/ivf-medicinpaminnare/internal/store"
)

func setupEngine(t *testing.T) (*Engine, *store.Store, *notify.Notifier) {
	t.Helper()
	st, err := store.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	notifier := notify.New(zap.NewNop(), config.NotifyConfig{RatePerMinute: 6000, Burst: 100})
	e := NewEngine(st, notifier, zap.NewNop())
	return e, st, notifier
}

func frozen(e *Engine, value string) {
	t, err := time.Parse("2006-01-02 15:04", value)
	if err != nil {
		panic(err)
	}
	e.now = func() time.Time { return t }
}

func seedMedicines(t *testing.T, st *store.Store) {
	t.Helper()
	require.NoError(t, st.SaveMedicines([]store.Medicine{
		{ID: "est", Name: "Estrofem", Dose: "2 mg", Icon: "💊", Color: "#FF9AA2", Enabled: true, Times: []string{"08:00", "14:00", "22:00"}},
		{ID: "prog", Name: "Progesteron", Dose: "200 mg", Icon: "🌙", Color: "#B5EAD7", Enabled: true, Times: []string{"22:00"}},
		{ID: "prol", Name: "Prolutex", Dose: "daglig", Icon: "💉", Color: "#C7CEEA", Enabled: false, Times: []string{"08:00"}},
	}))
}

func TestDeriveTodaysDoses(t *testing.T) {
	e, st, _ := setupEngine(t)
	frozen(e, "2025-09-01 07:00")
	seedMedicines(t, st)

	doses, err := e.DeriveTodaysDoses()
	require.NoError(t, err)

	// Disabled medicines are excluded, the rest is flattened and
	// ordered by time.
	require.Len(t, doses, 4)
	assert.Equal(t, "08:00", doses[0].Time)
	assert.Equal(t, "14:00", doses[1].Time)
	assert.Equal(t, "22:00", doses[2].Time)
	assert.Equal(t, "22:00", doses[3].Time)
	assert.Equal(t, "est", doses[2].MedicineID, "stable order for shared times")
	assert.Equal(t, "prog", doses[3].MedicineID)

	for _, d := range doses {
		assert.False(t, d.Taken)
		assert.NotEqual(t, "prol", d.MedicineID)
	}
}

func TestDeriveTodaysDoses_ReflectsLedger(t *testing.T) {
	e, st, _ := setupEngine(t)
	frozen(e, "2025-09-01 09:00")
	seedMedicines(t, st)

	require.NoError(t, st.MarkStatusTaken("2025-09-01", store.DoseKey("est", "08:00")))

	doses, err := e.DeriveTodaysDoses()
	require.NoError(t, err)
	assert.True(t, doses[0].Taken)
	assert.False(t, doses[1].Taken)
}

func TestScheduleToday_RollsPastTimesForward(t *testing.T) {
	e, st, notifier := setupEngine(t)
	frozen(e, "2025-09-01 12:00")
	seedMedicines(t, st)

	count, err := e.ScheduleToday(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	// Each dose arms a main and a nag timer.
	assert.Equal(t, 8, notifier.PendingCount())

	schedules, err := st.GetSchedules()
	require.NoError(t, err)

	// 08:00 is already past at noon, so it lands on tomorrow's key.
	assert.Contains(t, schedules, store.ScheduleKey("2025-09-02", "est", "08:00"))
	assert.Contains(t, schedules, store.ScheduleKey("2025-09-01", "est", "14:00"))
	assert.Contains(t, schedules, store.ScheduleKey("2025-09-01", "est", "22:00"))
	assert.Contains(t, schedules, store.ScheduleKey("2025-09-01", "prog", "22:00"))

	for _, pair := range schedules {
		assert.NotEmpty(t, pair.MainID)
		assert.NotEmpty(t, pair.NagID)
		assert.NotEqual(t, pair.MainID, pair.NagID)
	}
}

func TestScheduleToday_RescheduleReplacesPairs(t *testing.T) {
	e, st, notifier := setupEngine(t)
	frozen(e, "2025-09-01 06:00")
	seedMedicines(t, st)

	_, err := e.ScheduleToday(context.Background())
	require.NoError(t, err)
	first, err := st.GetSchedules()
	require.NoError(t, err)

	_, err = e.ScheduleToday(context.Background())
	require.NoError(t, err)
	second, err := st.GetSchedules()
	require.NoError(t, err)

	require.Len(t, second, len(first))
	// Old timers are cancelled, not leaked.
	assert.Equal(t, 8, notifier.PendingCount())

	key := store.ScheduleKey("2025-09-01", "est", "08:00")
	assert.NotEqual(t, first[key].MainID, second[key].MainID)
}

func TestMarkTaken_SilencesNag(t *testing.T) {
	e, st, notifier := setupEngine(t)
	frozen(e, "2025-09-01 06:00")
	seedMedicines(t, st)

	_, err := e.ScheduleToday(context.Background())
	require.NoError(t, err)

	key := store.ScheduleKey("2025-09-01", "est", "08:00")
	before, err := st.GetSchedules()
	require.NoError(t, err)
	nagID := before[key].NagID
	require.NotEmpty(t, nagID)
	require.True(t, notifier.Pending(nagID))

	_, completed, err := e.MarkTaken("est", "08:00")
	require.NoError(t, err)
	assert.False(t, completed)

	assert.False(t, notifier.Pending(nagID))

	after, err := st.GetSchedules()
	require.NoError(t, err)
	assert.Empty(t, after[key].NagID, "nag id cleared")
	assert.Equal(t, before[key].MainID, after[key].MainID, "main id untouched")

	taken, err := st.IsTaken("2025-09-01", store.DoseKey("est", "08:00"))
	require.NoError(t, err)
	assert.True(t, taken)
}

func TestMarkTaken_CompletionMessage(t *testing.T) {
	e, st, _ := setupEngine(t)
	frozen(e, "2025-09-01 06:00")
	require.NoError(t, st.SaveMedicines([]store.Medicine{
		{ID: "est", Name: "Estrofem", Dose: "2 mg", Enabled: true, Times: []string{"08:00", "22:00"}},
	}))

	msg, completed, err := e.MarkTaken("est", "08:00")
	require.NoError(t, err)
	assert.False(t, completed)
	assert.Empty(t, msg)

	msg, completed, err = e.MarkTaken("est", "22:00")
	require.NoError(t, err)
	assert.True(t, completed)
	assert.Contains(t, Messages, msg)
}

func TestMarkTaken_Monotonic(t *testing.T) {
	e, st, _ := setupEngine(t)
	frozen(e, "2025-09-01 06:00")
	seedMedicines(t, st)

	var events []TakenEvent
	e.AddObserver(func(ev TakenEvent) {
		events = append(events, ev)
	})

	_, _, err := e.MarkTaken("est", "08:00")
	require.NoError(t, err)
	_, _, err = e.MarkTaken("est", "08:00")
	require.NoError(t, err)

	// A repeated confirmation stays taken and fires no second event.
	require.Len(t, events, 1)
	assert.Equal(t, "est", events[0].MedicineID)
	assert.Equal(t, "2025-09-01", events[0].Date)

	taken, err := st.IsTaken("2025-09-01", store.DoseKey("est", "08:00"))
	require.NoError(t, err)
	assert.True(t, taken)
}

func TestMarkTaken_Validation(t *testing.T) {
	e, st, _ := setupEngine(t)
	frozen(e, "2025-09-01 06:00")
	seedMedicines(t, st)

	_, _, err := e.MarkTaken("est", "8:00")
	assert.Error(t, err)

	_, _, err = e.MarkTaken("missing", "08:00")
	assert.Error(t, err)
}

func TestCancelAllToday(t *testing.T) {
	e, st, notifier := setupEngine(t)
	frozen(e, "2025-09-01 06:00")
	seedMedicines(t, st)

	_, err := e.ScheduleToday(context.Background())
	require.NoError(t, err)
	require.NotZero(t, notifier.PendingCount())

	count, err := e.CancelAllToday()
	require.NoError(t, err)
	assert.Equal(t, 8, count)
	assert.Equal(t, 0, notifier.PendingCount())

	schedules, err := st.GetSchedules()
	require.NoError(t, err)
	assert.Empty(t, schedules)
}

func TestPruneStale_DropsPastEntries(t *testing.T) {
	e, st, notifier := setupEngine(t)
	frozen(e, "2025-09-01 06:00")
	seedMedicines(t, st)

	_, err := e.ScheduleToday(context.Background())
	require.NoError(t, err)
	require.Equal(t, 8, notifier.PendingCount())

	// Two days later every entry from the first pass is stale.
	frozen(e, "2025-09-03 06:00")
	pruned, err := e.PruneStale()
	require.NoError(t, err)
	assert.Equal(t, 4, pruned)
	assert.Equal(t, 0, notifier.PendingCount(), "leftover timers cancelled")

	schedules, err := st.GetSchedules()
	require.NoError(t, err)
	assert.Empty(t, schedules)

	// A fresh pass leaves only today's keys in the map.
	_, err = e.ScheduleToday(context.Background())
	require.NoError(t, err)
	schedules, err = st.GetSchedules()
	require.NoError(t, err)
	require.Len(t, schedules, 4)
	for key := range schedules {
		assert.True(t, strings.HasPrefix(key, "2025-09-03@"), key)
	}
}

func TestPruneStale_KeepsTodayAndFuture(t *testing.T) {
	e, st, notifier := setupEngine(t)
	frozen(e, "2025-09-01 12:00")
	seedMedicines(t, st)

	// At noon the 08:00 dose rolls to tomorrow's key.
	_, err := e.ScheduleToday(context.Background())
	require.NoError(t, err)

	pruned, err := e.PruneStale()
	require.NoError(t, err)
	assert.Zero(t, pruned)
	assert.Equal(t, 8, notifier.PendingCount())

	schedules, err := st.GetSchedules()
	require.NoError(t, err)
	assert.Len(t, schedules, 4)
}

func TestScheduleToday_FiresScheduleObserver(t *testing.T) {
	e, st, _ := setupEngine(t)
	frozen(e, "2025-09-01 06:00")
	seedMedicines(t, st)

	var gotDate string
	var gotCount int
	e.AddScheduleObserver(func(date string, count int) {
		gotDate = date
		gotCount = count
	})

	_, err := e.ScheduleToday(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "2025-09-01", gotDate)
	assert.Equal(t, 4, gotCount)
}

func TestMarkTaken_FiresCompletionObserver(t *testing.T) {
	e, st, _ := setupEngine(t)
	frozen(e, "2025-09-01 06:00")
	require.NoError(t, st.SaveMedicines([]store.Medicine{
		{ID: "est", Name: "Estrofem", Dose: "2 mg", Enabled: true, Times: []string{"08:00", "22:00"}},
	}))

	var messages []string
	e.AddCompletionObserver(func(date, message string) {
		assert.Equal(t, "2025-09-01", date)
		messages = append(messages, message)
	})

	_, _, err := e.MarkTaken("est", "08:00")
	require.NoError(t, err)
	assert.Empty(t, messages, "day not complete yet")

	_, completed, err := e.MarkTaken("est", "22:00")
	require.NoError(t, err)
	require.True(t, completed)
	require.Len(t, messages, 1)
	assert.Contains(t, Messages, messages[0])

	// Re-confirming a dose on a finished day does not celebrate again.
	_, completed, err = e.MarkTaken("est", "22:00")
	require.NoError(t, err)
	assert.True(t, completed)
	assert.Len(t, messages, 1)
}

func TestToday(t *testing.T) {
	e, st, _ := setupEngine(t)
	frozen(e, "2025-09-09 10:00")
	seedMedicines(t, st)

	settings := store.DefaultSettings()
	settings.StartDate = "2025-09-01"
	settings.TransferDate = "2025-09-16"
	require.NoError(t, st.SaveSettings(settings))

	view, err := e.Today()
	require.NoError(t, err)

	assert.Equal(t, "2025-09-09", view.Date)
	assert.Equal(t, 9, view.Day)
	assert.Equal(t, 26, view.TotalDays)
	assert.Len(t, view.Doses, 4)
	assert.False(t, view.AllTaken)
	require.NotNil(t, view.Progress)
	assert.Equal(t, 53, view.Progress.Percent)
	assert.Equal(t, 7, view.Progress.DaysLeft)
}

func TestToday_NoStartDate(t *testing.T) {
	e, st, _ := setupEngine(t)
	frozen(e, "2025-09-09 10:00")
	seedMedicines(t, st)

	view, err := e.Today()
	require.NoError(t, err)
	assert.Zero(t, view.Day)
	assert.Nil(t, view.Progress)
}

func TestAllTaken_EmptyListIsNeverComplete(t *testing.T) {
	assert.False(t, allTaken(nil))
}

func TestRandomMessage_FromPool(t *testing.T) {
	for i := 0; i < 20; i++ {
		assert.Contains(t, Messages, RandomMessage())
	}
}
