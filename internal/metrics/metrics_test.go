package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNew(t *testing.T) {
	m := New()
	if m == nil {
		t.Fatal("New returned nil")
	}
	if m.Registry() == nil {
		t.Error("registry should be initialized")
	}
}

func TestRecordScheduledAndCancelled(t *testing.T) {
	m := New()

	m.RecordScheduled()
	m.RecordScheduled()
	m.RecordCancelled()

	s := m.Snapshot()
	if s.NotificationsScheduled != 2 {
		t.Errorf("expected 2 scheduled, got %d", s.NotificationsScheduled)
	}
	if s.NotificationsCancelled != 1 {
		t.Errorf("expected 1 cancelled, got %d", s.NotificationsCancelled)
	}

	if v := testutil.ToFloat64(m.scheduled); v != 2 {
		t.Errorf("prometheus counter mismatch: %v", v)
	}
}

func TestRecordSentAndFailed(t *testing.T) {
	m := New()

	m.RecordSent("telegram")
	m.RecordSent("telegram")
	m.RecordSent("discord")
	m.RecordFailed("discord")

	s := m.Snapshot()
	if s.NotificationsSent != 3 {
		t.Errorf("expected 3 sent, got %d", s.NotificationsSent)
	}
	if s.NotificationsFailed != 1 {
		t.Errorf("expected 1 failed, got %d", s.NotificationsFailed)
	}
	if s.DeliveryRate != 75 {
		t.Errorf("expected 75%% delivery rate, got %v", s.DeliveryRate)
	}

	if v := testutil.ToFloat64(m.sent.WithLabelValues("telegram")); v != 2 {
		t.Errorf("telegram sent counter mismatch: %v", v)
	}
}

func TestRecordDoseTaken(t *testing.T) {
	m := New()

	m.RecordDoseTaken()
	m.RecordDoseTaken()

	if s := m.Snapshot(); s.DosesTaken != 2 {
		t.Errorf("expected 2 doses taken, got %d", s.DosesTaken)
	}
}

func TestWSConnections(t *testing.T) {
	m := New()

	m.IncrementWSConnections()
	m.IncrementWSConnections()
	m.DecrementWSConnections()

	if s := m.Snapshot(); s.WSConnections != 1 {
		t.Errorf("expected 1 ws connection, got %d", s.WSConnections)
	}
}

func TestSnapshot_EmptyDeliveryRate(t *testing.T) {
	m := New()

	if s := m.Snapshot(); s.DeliveryRate != 0 {
		t.Errorf("expected zero delivery rate with no attempts, got %v", s.DeliveryRate)
	}
}

func TestRegistryExposition(t *testing.T) {
	m := New()
	m.RecordScheduled()

	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}

	found := false
	for _, f := range families {
		if strings.HasPrefix(f.GetName(), "ivfmed_notifications_scheduled") {
			found = true
		}
	}
	if !found {
		t.Error("scheduled counter not registered")
	}
}

func TestDefaultSingleton(t *testing.T) {
	a := Default()
	b := Default()
	if a != b {
		t.Error("Default should return the same instance")
	}
}
