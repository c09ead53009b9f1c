// Package notify schedules reminder notifications on in-process
// timers and fans them out to the configured delivery channels.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kristoffersk85-png/ivf-medicinpaminnare/internal/config"
	"github.com/kristoffersk85-png/ivf-medicinpaminnare/internal/metrics"
)

// Notification is one message to deliver at a point in time.
type Notification struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Body  string `json:"body"`
	Sound bool   `json:"sound"`
}

// Sender delivers notifications over one channel.
type Sender interface {
	Name() string
	Send(ctx context.Context, n Notification) error
}

// Delivered is invoked after every delivery attempt has finished.
type Delivered func(n Notification, firedAt time.Time)

// NewID returns a fresh notification id.
func NewID() string {
	return uuid.NewString()
}

// Notifier keeps one timer per pending notification. Cancelling stops
// the timer before it fires; a fired timer removes itself.
type Notifier struct {
	logger  *zap.Logger
	limiter *rate.Limiter

	mu       sync.RWMutex
	timers   map[string]*time.Timer
	senders  []Sender
	breakers map[string]*gobreaker.CircuitBreaker[struct{}]
	onDone   Delivered

	breakerTrips uint32
}

// New creates a Notifier with delivery pacing from config.
func New(logger *zap.Logger, cfg config.NotifyConfig) *Notifier {
	perMinute := cfg.RatePerMinute
	if perMinute <= 0 {
		perMinute = 20
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 5
	}
	trips := cfg.BreakerTrips
	if trips <= 0 {
		trips = 5
	}

	return &Notifier{
		logger:       logger,
		limiter:      rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), burst),
		timers:       make(map[string]*time.Timer),
		breakers:     make(map[string]*gobreaker.CircuitBreaker[struct{}]),
		breakerTrips: uint32(trips),
	}
}

// AddSender registers a delivery channel behind its own circuit
// breaker, so one flaky channel cannot block the others.
func (n *Notifier) AddSender(s Sender) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.senders = append(n.senders, s)
	trips := n.breakerTrips
	n.breakers[s.Name()] = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:    s.Name(),
		Timeout: 2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= trips
		},
	})
}

// OnDelivered sets a callback fired after each delivery attempt.
func (n *Notifier) OnDelivered(fn Delivered) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.onDone = fn
}

// ScheduleAt arms a timer that delivers the notification when it
// fires. An existing timer with the same id is replaced.
func (n *Notifier) ScheduleAt(at time.Time, notif Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if timer, exists := n.timers[notif.ID]; exists {
		timer.Stop()
		delete(n.timers, notif.ID)
	}

	duration := time.Until(at)
	if duration < 0 {
		duration = 0
	}

	n.timers[notif.ID] = time.AfterFunc(duration, func() {
		n.fire(notif)
	})

	metrics.RecordScheduled()
	n.logger.Debug("notification scheduled",
		zap.String("id", notif.ID),
		zap.Time("at", at),
	)
}

// Cancel stops a pending notification. It reports whether a timer was
// still armed.
func (n *Notifier) Cancel(id string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	timer, exists := n.timers[id]
	if !exists {
		return false
	}
	timer.Stop()
	delete(n.timers, id)
	metrics.RecordCancelled()
	return true
}

// CancelAll stops every pending notification and returns how many
// timers were still armed.
func (n *Notifier) CancelAll() int {
	n.mu.Lock()
	defer n.mu.Unlock()

	count := 0
	for id, timer := range n.timers {
		timer.Stop()
		delete(n.timers, id)
		count++
		metrics.RecordCancelled()
	}
	return count
}

// PendingCount returns the number of armed timers.
func (n *Notifier) PendingCount() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.timers)
}

// Pending reports whether the notification id has an armed timer.
func (n *Notifier) Pending(id string) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	_, ok := n.timers[id]
	return ok
}

// Deliver sends a notification immediately, bypassing the timers.
func (n *Notifier) Deliver(ctx context.Context, notif Notification) {
	n.deliver(ctx, notif, time.Now())
}

func (n *Notifier) fire(notif Notification) {
	n.mu.Lock()
	delete(n.timers, notif.ID)
	n.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	n.deliver(ctx, notif, time.Now())
}

func (n *Notifier) deliver(ctx context.Context, notif Notification, firedAt time.Time) {
	if err := n.limiter.Wait(ctx); err != nil {
		n.logger.Warn("delivery pacing aborted", zap.String("id", notif.ID), zap.Error(err))
		return
	}

	n.mu.RLock()
	senders := append([]Sender{}, n.senders...)
	onDone := n.onDone
	n.mu.RUnlock()

	for _, s := range senders {
		n.mu.RLock()
		breaker := n.breakers[s.Name()]
		n.mu.RUnlock()

		_, err := breaker.Execute(func() (struct{}, error) {
			return struct{}{}, s.Send(ctx, notif)
		})
		if err != nil {
			metrics.RecordFailed(s.Name())
			n.logger.Warn("notification delivery failed",
				zap.String("id", notif.ID),
				zap.String("channel", s.Name()),
				zap.Error(err),
			)
			continue
		}
		metrics.RecordSent(s.Name())
	}

	if onDone != nil {
		onDone(notif, firedAt)
	}
}
