package store

import (
	"regexp"
	"sort"

	apperrors "github.com/kristoffersk85-png/ivf-medicinpaminnare/internal/errors"
)

// timePattern matches zero-padded wall clock times like "08:00".
var timePattern = regexp.MustCompile(`^\d{2}:\d{2}$`)

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// StatusTaken is the only value recorded in the status ledger. The
// ledger is append-only per dose, a dose never goes back to pending.
const StatusTaken = "taken"

// Medicine is one medication with its own dosing times.
type Medicine struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Dose    string   `json:"dose"`
	Icon    string   `json:"icon"`
	Color   string   `json:"color"`
	Enabled bool     `json:"enabled"`
	Times   []string `json:"times"`
}

// Settings holds the treatment period and reminder behavior.
type Settings struct {
	AppName        string   `json:"appName"`
	StartDate      string   `json:"startDate"`
	TransferDate   string   `json:"transferDate"`
	TotalDays      int      `json:"totalDays"`
	Times          []string `json:"times"`
	NagMinutes     int      `json:"nagMinutes"`
	SoundEnabled   bool     `json:"soundEnabled"`
	HapticsEnabled bool     `json:"hapticsEnabled"`
}

// ScheduledPair holds the notification ids of one scheduled dose, the
// main reminder and its follow-up nag.
type ScheduledPair struct {
	MainID string `json:"mainId"`
	NagID  string `json:"nagId"`
}

// StatusLedger maps date -> dose key -> status.
type StatusLedger map[string]map[string]string

// ScheduleMap maps schedule key -> scheduled notification pair.
type ScheduleMap map[string]ScheduledPair

// DoseKey builds the ledger key for one dose of one medicine.
func DoseKey(medicineID, timeHHMM string) string {
	return medicineID + "@" + timeHHMM
}

// ScheduleKey builds the schedule map key for one dose on one date.
func ScheduleKey(date, medicineID, timeHHMM string) string {
	return date + "@" + medicineID + "@" + timeHHMM
}

// ValidTime reports whether s is a zero-padded HH:MM string.
func ValidTime(s string) bool {
	return timePattern.MatchString(s)
}

// ValidDate reports whether s is a YYYY-MM-DD string.
func ValidDate(s string) bool {
	return datePattern.MatchString(s)
}

// DefaultSettings returns the initial settings for a new installation.
func DefaultSettings() Settings {
	return Settings{
		AppName:        "IVF Påminnare",
		StartDate:      "",
		TransferDate:   "",
		TotalDays:      26,
		Times:          []string{"08:00", "14:00", "22:00"},
		NagMinutes:     15,
		SoundEnabled:   true,
		HapticsEnabled: true,
	}
}

// DefaultMedicines returns the initial medicine list for a new
// installation.
func DefaultMedicines() []Medicine {
	return []Medicine{
		{ID: "est", Name: "Estrofem", Dose: "2 mg", Icon: "💊", Color: "#FF9AA2", Enabled: true, Times: []string{"08:00", "14:00", "22:00"}},
		{ID: "prog", Name: "Progesteron", Dose: "200 mg", Icon: "🌙", Color: "#B5EAD7", Enabled: true, Times: []string{"22:00"}},
		{ID: "prol", Name: "Prolutex", Dose: "daglig", Icon: "💉", Color: "#C7CEEA", Enabled: false, Times: []string{"08:00"}},
	}
}

// Validate checks the settings for consistency.
func (s *Settings) Validate() error {
	if s.StartDate != "" && !ValidDate(s.StartDate) {
		return apperrors.ErrDateInvalid
	}
	if s.TransferDate != "" && !ValidDate(s.TransferDate) {
		return apperrors.ErrDateInvalid
	}
	if s.TotalDays < 1 {
		return apperrors.New(apperrors.ErrSettingsInvalid.Code, "totalDays must be at least 1")
	}
	if s.NagMinutes < 0 {
		return apperrors.New(apperrors.ErrSettingsInvalid.Code, "nagMinutes must not be negative")
	}
	for _, tm := range s.Times {
		if !ValidTime(tm) {
			return apperrors.ErrTimeInvalid
		}
	}
	return nil
}

// Validate checks one medicine for consistency.
func (m *Medicine) Validate() error {
	if m.ID == "" {
		return apperrors.New(apperrors.ErrMedicineInvalid.Code, "medicine id is required")
	}
	if m.Name == "" {
		return apperrors.New(apperrors.ErrMedicineInvalid.Code, "medicine name is required")
	}
	for _, tm := range m.Times {
		if !ValidTime(tm) {
			return apperrors.ErrTimeInvalid
		}
	}
	return nil
}

// SortedTimes returns the medicine times in ascending wall clock
// order. Zero-padded HH:MM sorts correctly as plain strings.
func (m *Medicine) SortedTimes() []string {
	out := append([]string{}, m.Times...)
	sort.Strings(out)
	return out
}
