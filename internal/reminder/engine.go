// Package reminder derives the daily dose list and drives the
// notification lifecycle around it.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/kristoffersk85-png/ivf-medicinpaminnare/internal/errors"
	"github.com/kristoffersk85-png/ivf-medicinpaminnare/internal/metrics"
	"github.com/kristoffersk85-png/ivf-medicinpaminnare/internal/notify"
	"github.com/kristoffersk85-png/ivf-medicinpaminnare/internal/progress"
	"github.com/kristoffersk85-png/ivf-medicinpaminnare/internal/store"
)

const defaultNagMinutes = 15

// Dose is one occurrence of one medicine on the daily list.
type Dose struct {
	MedicineID string `json:"medicineId"`
	Name       string `json:"name"`
	Dose       string `json:"dose"`
	Icon       string `json:"icon"`
	Color      string `json:"color"`
	Time       string `json:"time"`
	Taken      bool   `json:"taken"`
}

// Key returns the ledger key for this dose.
func (d Dose) Key() string {
	return store.DoseKey(d.MedicineID, d.Time)
}

// TakenEvent describes one confirmed dose, for observers.
type TakenEvent struct {
	Date       string
	MedicineID string
	Name       string
	DoseText   string
	Time       string
	TakenAt    time.Time
}

// TakenObserver is notified after a dose is recorded. Observers must
// not block; failures are their own problem.
type TakenObserver func(ev TakenEvent)

// CompletionObserver is notified once when the last dose of a day is
// confirmed, with the celebration message for that day.
type CompletionObserver func(date, message string)

// ScheduleObserver is notified after a scheduling pass finishes.
type ScheduleObserver func(date string, count int)

// TodayView is the state of the current treatment day.
type TodayView struct {
	Date      string            `json:"date"`
	Day       int               `json:"day"`
	TotalDays int               `json:"totalDays"`
	Doses     []Dose            `json:"doses"`
	AllTaken  bool              `json:"allTaken"`
	Progress  *progress.Summary `json:"progress,omitempty"`
}

// Engine wires the store and notifier into the daily reminder flow.
type Engine struct {
	store         *store.Store
	notifier      *notify.Notifier
	logger        *zap.Logger
	observers     []TakenObserver
	completionObs []CompletionObserver
	scheduleObs   []ScheduleObserver

	now func() time.Time
}

// NewEngine creates the reminder engine.
func NewEngine(st *store.Store, notifier *notify.Notifier, logger *zap.Logger) *Engine {
	return &Engine{
		store:    st,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// AddObserver registers an observer for confirmed doses.
func (e *Engine) AddObserver(obs TakenObserver) {
	e.observers = append(e.observers, obs)
}

// AddCompletionObserver registers an observer for completed days.
func (e *Engine) AddCompletionObserver(obs CompletionObserver) {
	e.completionObs = append(e.completionObs, obs)
}

// AddScheduleObserver registers an observer for scheduling passes.
func (e *Engine) AddScheduleObserver(obs ScheduleObserver) {
	e.scheduleObs = append(e.scheduleObs, obs)
}

// DeriveTodaysDoses expands the enabled medicines into the flat dose
// list for today, sorted by wall clock time.
func (e *Engine) DeriveTodaysDoses() ([]Dose, error) {
	meds, err := e.store.GetMedicines()
	if err != nil {
		return nil, err
	}

	date := e.dateKey()
	ledger, err := e.store.GetStatus()
	if err != nil {
		return nil, err
	}

	var doses []Dose
	for _, m := range meds {
		if !m.Enabled {
			continue
		}
		for _, tm := range m.Times {
			doses = append(doses, Dose{
				MedicineID: m.ID,
				Name:       m.Name,
				Dose:       m.Dose,
				Icon:       m.Icon,
				Color:      m.Color,
				Time:       tm,
				Taken:      ledger[date][store.DoseKey(m.ID, tm)] == store.StatusTaken,
			})
		}
	}

	// Zero-padded HH:MM sorts correctly as a plain string. The sort
	// is stable so medicines sharing a time keep their list order.
	sort.SliceStable(doses, func(i, j int) bool {
		return doses[i].Time < doses[j].Time
	})

	return doses, nil
}

// Today returns the current day's dose list with timeline context.
func (e *Engine) Today() (*TodayView, error) {
	settings, err := e.store.GetSettings()
	if err != nil {
		return nil, err
	}
	doses, err := e.DeriveTodaysDoses()
	if err != nil {
		return nil, err
	}

	view := &TodayView{
		Date:      e.dateKey(),
		TotalDays: settings.TotalDays,
		Doses:     doses,
		AllTaken:  allTaken(doses),
	}

	if settings.StartDate != "" {
		if day, err := progress.DayNumber(settings.StartDate, e.now()); err == nil {
			view.Day = day
		}
		if settings.TransferDate != "" {
			if sum, err := progress.Compute(settings.StartDate, settings.TransferDate, e.now()); err == nil {
				view.Progress = &sum
			}
		}
	}

	return view, nil
}

// ScheduleToday arms the main and nag notifications for every dose on
// today's list. A dose time already in the past rolls forward to the
// same time tomorrow. Scheduling is best-effort per dose: one failure
// does not stop the rest, and everything scheduled is persisted.
func (e *Engine) ScheduleToday(ctx context.Context) (int, error) {
	settings, err := e.store.GetSettings()
	if err != nil {
		return 0, err
	}
	doses, err := e.DeriveTodaysDoses()
	if err != nil {
		return 0, err
	}
	schedules, err := e.store.GetSchedules()
	if err != nil {
		return 0, err
	}

	nagMinutes := settings.NagMinutes
	if nagMinutes <= 0 {
		nagMinutes = defaultNagMinutes
	}

	now := e.now()
	scheduled := 0
	var errs []error

	for _, dose := range doses {
		mainAt, err := timeOnDate(dose.Time, now)
		if err != nil {
			errs = append(errs, fmt.Errorf("dose %s: %w", dose.Key(), err))
			continue
		}
		if !mainAt.After(now) {
			mainAt = mainAt.AddDate(0, 0, 1)
		}

		key := store.ScheduleKey(progress.FormatDate(mainAt), dose.MedicineID, dose.Time)

		// Re-scheduling replaces the previous pair for this slot.
		if old, ok := schedules[key]; ok {
			e.notifier.Cancel(old.MainID)
			if old.NagID != "" {
				e.notifier.Cancel(old.NagID)
			}
		}

		pair := store.ScheduledPair{
			MainID: notify.NewID(),
			NagID:  notify.NewID(),
		}

		e.notifier.ScheduleAt(mainAt, notify.Notification{
			ID:    pair.MainID,
			Title: "Dags för mediciner 💊",
			Body:  fmt.Sprintf("%s %s kl %s", dose.Name, dose.Dose, dose.Time),
			Sound: settings.SoundEnabled,
		})
		e.notifier.ScheduleAt(mainAt.Add(time.Duration(nagMinutes)*time.Minute), notify.Notification{
			ID:    pair.NagID,
			Title: "Påminnelse (nag)",
			Body:  fmt.Sprintf("Har du tagit %s (%s)?", dose.Name, dose.Time),
			Sound: settings.SoundEnabled,
		})

		schedules[key] = pair
		scheduled++

		e.logger.Info("dose scheduled",
			zap.String("key", key),
			zap.Time("main_at", mainAt),
			zap.Int("nag_minutes", nagMinutes),
		)
	}

	if err := e.store.SaveSchedules(schedules); err != nil {
		errs = append(errs, err)
	}

	date := e.dateKey()
	for _, obs := range e.scheduleObs {
		obs(date, scheduled)
	}

	return scheduled, errors.Join(errs...)
}

// MarkTaken records a dose as taken, silences its pending nag, and
// reports the celebration message when the day is complete. Taking a
// dose twice is a no-op.
func (e *Engine) MarkTaken(medicineID, timeHHMM string) (message string, completed bool, err error) {
	if !store.ValidTime(timeHHMM) {
		return "", false, apperrors.ErrTimeInvalid
	}
	med, err := e.store.GetMedicine(medicineID)
	if err != nil {
		return "", false, err
	}

	date := e.dateKey()
	doseKey := store.DoseKey(medicineID, timeHHMM)

	already, err := e.store.IsTaken(date, doseKey)
	if err != nil {
		return "", false, err
	}

	if err := e.store.MarkStatusTaken(date, doseKey); err != nil {
		return "", false, err
	}

	// Silence the nag for this dose if one is still pending. The main
	// notification id stays recorded.
	schedKey := store.ScheduleKey(date, medicineID, timeHHMM)
	schedules, err := e.store.GetSchedules()
	if err == nil {
		if pair, ok := schedules[schedKey]; ok && pair.NagID != "" {
			e.notifier.Cancel(pair.NagID)
			pair.NagID = ""
			schedules[schedKey] = pair
			if err := e.store.SaveSchedules(schedules); err != nil {
				e.logger.Warn("failed to persist nag removal", zap.String("key", schedKey), zap.Error(err))
			}
		}
	} else {
		e.logger.Warn("failed to load schedules", zap.Error(err))
	}

	if !already {
		metrics.RecordDoseTaken()
		ev := TakenEvent{
			Date:       date,
			MedicineID: med.ID,
			Name:       med.Name,
			DoseText:   med.Dose,
			Time:       timeHHMM,
			TakenAt:    e.now(),
		}
		for _, obs := range e.observers {
			obs(ev)
		}
	}

	e.logger.Info("dose taken",
		zap.String("date", date),
		zap.String("dose", doseKey),
	)

	doses, err := e.DeriveTodaysDoses()
	if err != nil {
		return "", false, err
	}
	if allTaken(doses) {
		msg := RandomMessage()
		// Only the confirmation that completed the day celebrates;
		// re-marking an already taken dose stays quiet.
		if !already {
			for _, obs := range e.completionObs {
				obs(date, msg)
			}
		}
		return msg, true, nil
	}
	return "", false, nil
}

// CancelAllToday drops every armed notification and clears the
// schedule map.
func (e *Engine) CancelAllToday() (int, error) {
	count := e.notifier.CancelAll()
	if err := e.store.SaveSchedules(store.ScheduleMap{}); err != nil {
		return count, err
	}
	e.logger.Info("all scheduled notifications cancelled", zap.Int("count", count))
	return count, nil
}

// PruneStale drops schedule entries for dates before today and cancels
// any notification ids still recorded on them. Without the prune the
// map would keep one entry per dose per day forever.
func (e *Engine) PruneStale() (int, error) {
	schedules, err := e.store.GetSchedules()
	if err != nil {
		return 0, err
	}

	today := e.dateKey()
	pruned := 0
	for key := range schedules {
		// Keys are date@medicineId@HH:MM; ISO dates compare as strings.
		date, _, ok := strings.Cut(key, "@")
		if !ok || date >= today {
			continue
		}

		pair, removed, err := e.store.RemoveSchedule(key)
		if err != nil {
			return pruned, err
		}
		if !removed {
			continue
		}

		if pair.MainID != "" {
			e.notifier.Cancel(pair.MainID)
		}
		if pair.NagID != "" {
			e.notifier.Cancel(pair.NagID)
		}
		pruned++
	}

	if pruned > 0 {
		e.logger.Info("stale schedule entries pruned", zap.Int("count", pruned))
	}
	return pruned, nil
}

func (e *Engine) dateKey() string {
	return progress.FormatDate(e.now())
}

func allTaken(doses []Dose) bool {
	if len(doses) == 0 {
		return false
	}
	for _, d := range doses {
		if !d.Taken {
			return false
		}
	}
	return true
}

// timeOnDate resolves HH:MM to a concrete time on the given day.
func timeOnDate(timeHHMM string, day time.Time) (time.Time, error) {
	if !store.ValidTime(timeHHMM) {
		return time.Time{}, apperrors.ErrTimeInvalid
	}
	parsed, err := time.Parse("15:04", timeHHMM)
	if err != nil {
		return time.Time{}, apperrors.Wrap(err, apperrors.ErrTimeInvalid.Code, apperrors.ErrTimeInvalid.Message)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), parsed.Hour(), parsed.Minute(), 0, 0, day.Location()), nil
}
