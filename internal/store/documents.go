package store

import (
	"encoding/json"
	"errors"
	"strings"

	apperrors "github.com/kristoffersk85-png/ivf-medicinpaminnare/internal/errors"
)

// Storage keys. The v2 settings key exists because transferDate was
// added after the first release; v1 documents are migrated on read.
const (
	KeyHasOnboarded = "ivf_has_onboarded"
	KeySettings     = "ivf_settings_v2"
	KeySettingsV1   = "ivf_settings_v1"
	KeyMedicines    = "ivf_medicines_v1"
	KeyStatusDaily  = "ivf_status_daily_v1"
	KeySchedules    = "ivf_schedules_v1"
)

func (s *Store) getJSON(key string, out interface{}) (bool, error) {
	raw, err := s.GetKV(key)
	if errors.Is(err, ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, apperrors.Wrap(err, apperrors.ErrStoreUnavailable.Code, apperrors.ErrStoreUnavailable.Message)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, apperrors.Wrap(err, apperrors.ErrDocumentCorrupt.Code, apperrors.ErrDocumentCorrupt.Message)
	}
	return true, nil
}

func (s *Store) setJSON(key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrInternal.Code, "failed to encode document")
	}
	if err := s.SetKV(key, raw); err != nil {
		return apperrors.Wrap(err, apperrors.ErrStoreUnavailable.Code, apperrors.ErrStoreUnavailable.Message)
	}
	return nil
}

// HasOnboarded reports whether initial setup has been completed.
func (s *Store) HasOnboarded() (bool, error) {
	raw, err := s.GetKV(KeyHasOnboarded)
	if errors.Is(err, ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return string(raw) == "1", nil
}

// SetOnboarded marks initial setup as completed.
func (s *Store) SetOnboarded() error {
	return s.SetKV(KeyHasOnboarded, []byte("1"))
}

// GetSettings loads the settings document. Missing fields fall back
// to defaults; a v1 document is migrated to v2 and persisted.
func (s *Store) GetSettings() (Settings, error) {
	settings := DefaultSettings()

	found, err := s.getJSON(KeySettings, &settings)
	if err != nil {
		return Settings{}, err
	}
	if found {
		return settings, nil
	}

	// No v2 document yet, try the legacy key.
	settings = DefaultSettings()
	foundV1, err := s.getJSON(KeySettingsV1, &settings)
	if err != nil {
		return Settings{}, err
	}
	if foundV1 {
		if err := s.setJSON(KeySettings, settings); err != nil {
			return Settings{}, err
		}
	}
	return settings, nil
}

// SaveSettings validates and persists the settings document.
func (s *Store) SaveSettings(settings Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	return s.setJSON(KeySettings, settings)
}

// GetMedicines loads the medicine list, seeding defaults on first use.
func (s *Store) GetMedicines() ([]Medicine, error) {
	var meds []Medicine
	found, err := s.getJSON(KeyMedicines, &meds)
	if err != nil {
		return nil, err
	}
	if !found {
		return DefaultMedicines(), nil
	}
	return meds, nil
}

// SaveMedicines validates and persists the medicine list.
func (s *Store) SaveMedicines(meds []Medicine) error {
	for i := range meds {
		if err := meds[i].Validate(); err != nil {
			return err
		}
	}
	return s.setJSON(KeyMedicines, meds)
}

// GetMedicine returns one medicine by id.
func (s *Store) GetMedicine(id string) (Medicine, error) {
	meds, err := s.GetMedicines()
	if err != nil {
		return Medicine{}, err
	}
	for _, m := range meds {
		if m.ID == id {
			return m, nil
		}
	}
	return Medicine{}, apperrors.ErrMedicineNotFound
}

// GetStatus loads the full status ledger.
func (s *Store) GetStatus() (StatusLedger, error) {
	ledger := StatusLedger{}
	if _, err := s.getJSON(KeyStatusDaily, &ledger); err != nil {
		return nil, err
	}
	return ledger, nil
}

// SaveStatus persists the full status ledger.
func (s *Store) SaveStatus(ledger StatusLedger) error {
	return s.setJSON(KeyStatusDaily, ledger)
}

// MarkStatusTaken records a dose as taken. Recording is monotonic, a
// taken dose stays taken.
func (s *Store) MarkStatusTaken(date, doseKey string) error {
	ledger, err := s.GetStatus()
	if err != nil {
		return err
	}
	if ledger[date] == nil {
		ledger[date] = map[string]string{}
	}
	ledger[date][doseKey] = StatusTaken
	return s.SaveStatus(ledger)
}

// IsTaken reports whether a dose was recorded as taken on a date.
func (s *Store) IsTaken(date, doseKey string) (bool, error) {
	ledger, err := s.GetStatus()
	if err != nil {
		return false, err
	}
	return ledger[date][doseKey] == StatusTaken, nil
}

// GetSchedules loads the schedule map.
func (s *Store) GetSchedules() (ScheduleMap, error) {
	schedules := ScheduleMap{}
	if _, err := s.getJSON(KeySchedules, &schedules); err != nil {
		return nil, err
	}
	return schedules, nil
}

// SaveSchedules persists the schedule map.
func (s *Store) SaveSchedules(schedules ScheduleMap) error {
	return s.setJSON(KeySchedules, schedules)
}

// PutSchedule records the notification pair for one schedule key.
func (s *Store) PutSchedule(key string, pair ScheduledPair) error {
	schedules, err := s.GetSchedules()
	if err != nil {
		return err
	}
	schedules[key] = pair
	return s.SaveSchedules(schedules)
}

// RemoveSchedule deletes one schedule entry and returns it.
func (s *Store) RemoveSchedule(key string) (ScheduledPair, bool, error) {
	schedules, err := s.GetSchedules()
	if err != nil {
		return ScheduledPair{}, false, err
	}
	pair, ok := schedules[key]
	if !ok {
		return ScheduledPair{}, false, nil
	}
	delete(schedules, key)
	if err := s.SaveSchedules(schedules); err != nil {
		return ScheduledPair{}, false, err
	}
	return pair, true, nil
}

// SchedulesForDate returns the schedule entries whose key starts with
// the given date.
func (s *Store) SchedulesForDate(date string) (ScheduleMap, error) {
	schedules, err := s.GetSchedules()
	if err != nil {
		return nil, err
	}
	out := ScheduleMap{}
	for key, pair := range schedules {
		if strings.HasPrefix(key, date+"@") {
			out[key] = pair
		}
	}
	return out, nil
}
