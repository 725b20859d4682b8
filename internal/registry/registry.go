package registry

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/gmsas95/medtrack-cli/internal/errors"
	"github.com/gmsas95/medtrack-cli/internal/events"
	"github.com/gmsas95/medtrack-cli/internal/medication"
	"github.com/gmsas95/medtrack-cli/internal/metrics"
)

// Persister is the storage backend the registry writes through to.
type Persister interface {
	SaveEntry(ctx context.Context, doc medication.Document) error
	DeleteEntry(ctx context.Context, id string) error
	LoadAll(ctx context.Context) ([]medication.Document, error)
}

// Options carries the engine timing knobs from configuration.
type Options struct {
	GracePeriod     time.Duration
	RecentLogWindow time.Duration
	AdherenceWindow time.Duration
}

// Registry owns all medication entries. Every mutation goes through its
// mutex, so entry state never needs its own locking. It is also the single
// producer of medication events.
type Registry struct {
	logger  *zap.Logger
	store   Persister
	bus     *events.Bus
	metrics *metrics.Metrics
	opts    Options

	// Overridable in tests.
	now func() time.Time

	mu      sync.Mutex
	entries map[string]*medication.Entry
}

// New creates an empty registry.
func New(store Persister, bus *events.Bus, m *metrics.Metrics, opts Options, logger *zap.Logger) *Registry {
	if opts.GracePeriod <= 0 {
		opts.GracePeriod = medication.DefaultGracePeriod
	}
	if opts.RecentLogWindow <= 0 {
		opts.RecentLogWindow = medication.DefaultRecentLogWindow
	}
	if opts.AdherenceWindow <= 0 {
		opts.AdherenceWindow = 30 * 24 * time.Hour
	}
	return &Registry{
		logger:  logger,
		store:   store,
		bus:     bus,
		metrics: m,
		opts:    opts,
		now:     time.Now,
		entries: make(map[string]*medication.Entry),
	}
}

// Load restores all persisted entries and recomputes their status.
func (r *Registry) Load(ctx context.Context) error {
	docs, err := r.store.LoadAll(ctx)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodePersistence, "failed to load medications")
	}

	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, doc := range docs {
		e := medication.FromDocument(doc)
		e.GracePeriod = r.opts.GracePeriod
		e.RecentLogWindow = r.opts.RecentLogWindow
		e.UpdateStatus(now)
		r.entries[e.ID] = e
	}
	r.metrics.Medications.Set(float64(len(r.entries)))

	r.logger.Info("Loaded medications", zap.Int("count", len(r.entries)))
	return nil
}

// Add validates and registers a new medication. When no start date is given
// it defaults to the start of the current day, so the first scheduled dose is
// today's.
func (r *Registry) Add(ctx context.Context, data medication.Data) (medication.Snapshot, error) {
	now := r.now()
	if data.StartDate == nil {
		start := medication.StartOfDay(now)
		data.StartDate = &start
	}
	data.Normalize()
	if err := data.Validate(); err != nil {
		return medication.Snapshot{}, err
	}

	e := medication.NewEntry(uuid.NewString(), data)
	e.GracePeriod = r.opts.GracePeriod
	e.RecentLogWindow = r.opts.RecentLogWindow
	e.UpdateStatus(now)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[e.ID] = e
	r.persist(ctx, e)
	r.metrics.Medications.Set(float64(len(r.entries)))

	r.logger.Info("Added medication",
		zap.String("id", e.ID),
		zap.String("name", e.Data.Name),
		zap.String("frequency", string(e.Data.Frequency)))
	return e.Snapshot(now, r.opts.AdherenceWindow), nil
}

// Remove deletes a medication and its history.
func (r *Registry) Remove(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return apperrors.ErrMedicationNotFound
	}
	delete(r.entries, id)
	if err := r.store.DeleteEntry(ctx, id); err != nil {
		r.metrics.PersistFailures.Inc()
		r.logger.Error("Failed to delete medication from store",
			zap.String("id", id), zap.Error(err))
	}
	r.metrics.Medications.Set(float64(len(r.entries)))

	r.bus.Publish(events.Event{
		Type:         events.TypeRemoved,
		MedicationID: id,
		Data:         map[string]string{"name": e.Data.Name},
	})
	r.logger.Info("Removed medication", zap.String("id", id), zap.String("name", e.Data.Name))
	return nil
}

// Update applies a partial patch to a medication. Only fields present in the
// patch change; the schedule cache is reset when schedule fields did.
func (r *Registry) Update(ctx context.Context, id string, patch Patch) (medication.Snapshot, error) {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return medication.Snapshot{}, apperrors.ErrMedicationNotFound
	}

	updated := e.Data
	scheduleChanged := patch.apply(&updated)
	updated.Normalize()
	if err := updated.Validate(); err != nil {
		return medication.Snapshot{}, err
	}

	e.Data = updated
	if scheduleChanged {
		e.ResetSchedule()
	}
	before := e.Status
	wasLow := e.LowSupply
	e.UpdateStatus(now)
	r.persist(ctx, e)
	r.publishChanges(e, before, wasLow, now)
	r.publishUpdated(e, now)

	r.logger.Info("Updated medication", zap.String("id", id), zap.Bool("schedule_changed", scheduleChanged))
	return e.Snapshot(now, r.opts.AdherenceWindow), nil
}

// Replace swaps the medication data wholesale and resets the schedule cache.
func (r *Registry) Replace(ctx context.Context, id string, data medication.Data) (medication.Snapshot, error) {
	now := r.now()
	data.Normalize()
	if err := data.Validate(); err != nil {
		return medication.Snapshot{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return medication.Snapshot{}, apperrors.ErrMedicationNotFound
	}

	before := e.Status
	wasLow := e.LowSupply
	e.Data = data
	e.ResetSchedule()
	e.UpdateStatus(now)
	r.persist(ctx, e)
	r.publishChanges(e, before, wasLow, now)
	r.publishUpdated(e, now)

	r.logger.Info("Replaced medication", zap.String("id", id))
	return e.Snapshot(now, r.opts.AdherenceWindow), nil
}

// Take records a taken dose. Supply is decremented automatically when
// tracking is enabled. A nil at means now; past timestamps backfill missed
// logging.
func (r *Registry) Take(ctx context.Context, id string, at *time.Time, notes string) (medication.Snapshot, error) {
	now := r.now()
	when := now
	if at != nil {
		when = *at
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return medication.Snapshot{}, apperrors.ErrMedicationNotFound
	}

	before := e.Status
	wasLow := e.LowSupply
	medication.DecrementSupply(&e.Data)
	e.RecordDoseTaken(when, notes)
	e.UpdateStatus(now)
	r.persist(ctx, e)
	r.metrics.RecordDose(true)
	r.publishChanges(e, before, wasLow, now)

	r.logger.Info("Dose taken",
		zap.String("id", id),
		zap.String("name", e.Data.Name),
		zap.Time("at", when))
	return e.Snapshot(now, r.opts.AdherenceWindow), nil
}

// Skip records an intentionally skipped dose. Supply is not decremented.
func (r *Registry) Skip(ctx context.Context, id string, at *time.Time, notes string) (medication.Snapshot, error) {
	now := r.now()
	when := now
	if at != nil {
		when = *at
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return medication.Snapshot{}, apperrors.ErrMedicationNotFound
	}

	before := e.Status
	wasLow := e.LowSupply
	e.RecordDoseSkipped(when, notes)
	e.UpdateStatus(now)
	r.persist(ctx, e)
	r.metrics.RecordDose(false)
	r.publishChanges(e, before, wasLow, now)

	r.logger.Info("Dose skipped", zap.String("id", id), zap.String("name", e.Data.Name))
	return e.Snapshot(now, r.opts.AdherenceWindow), nil
}

// Refill adds pills to the supply.
func (r *Registry) Refill(ctx context.Context, id string, amount int) (medication.Snapshot, error) {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return medication.Snapshot{}, apperrors.ErrMedicationNotFound
	}
	if err := medication.Refill(&e.Data, amount, now); err != nil {
		return medication.Snapshot{}, err
	}

	before := e.Status
	wasLow := e.LowSupply
	e.UpdateStatus(now)
	r.persist(ctx, e)
	r.publishChanges(e, before, wasLow, now)

	r.logger.Info("Refilled medication",
		zap.String("id", id),
		zap.Int("amount", amount),
		zap.Intp("current_supply", e.Data.CurrentSupply))
	return e.Snapshot(now, r.opts.AdherenceWindow), nil
}

// SetSupply overrides the pill count absolutely, for corrections.
func (r *Registry) SetSupply(ctx context.Context, id string, value int) (medication.Snapshot, error) {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return medication.Snapshot{}, apperrors.ErrMedicationNotFound
	}
	if err := medication.SetSupply(&e.Data, value); err != nil {
		return medication.Snapshot{}, err
	}

	before := e.Status
	wasLow := e.LowSupply
	e.UpdateStatus(now)
	r.persist(ctx, e)
	r.publishChanges(e, before, wasLow, now)

	r.logger.Info("Set medication supply", zap.String("id", id), zap.Int("value", value))
	return e.Snapshot(now, r.opts.AdherenceWindow), nil
}

// Get returns the current snapshot of one medication.
func (r *Registry) Get(id string) (medication.Snapshot, error) {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return medication.Snapshot{}, apperrors.ErrMedicationNotFound
	}
	return e.Snapshot(now, r.opts.AdherenceWindow), nil
}

// ListAll returns snapshots of every medication, sorted by name.
func (r *Registry) ListAll() []medication.Snapshot {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]medication.Snapshot, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Snapshot(now, r.opts.AdherenceWindow))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Documents returns the persisted shape of every entry, for calendar
// rendering and exports.
func (r *Registry) Documents() []medication.Document {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]medication.Document, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Document())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SweepResult summarizes the changes one sweep produced.
type SweepResult struct {
	Evaluated   int                           `json:"evaluated"`
	Transitions []medication.StatusTransition `json:"transitions,omitempty"`
	LowSupply   []medication.SupplyAlert      `json:"low_supply,omitempty"`
}

// Sweep re-evaluates every medication against now, persists entries whose
// derived state changed, and emits transition and low-supply events.
func (r *Registry) Sweep(ctx context.Context, now time.Time) SweepResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := SweepResult{Evaluated: len(r.entries)}
	for _, e := range r.entries {
		beforeStatus := e.Status
		beforeLow := e.LowSupply
		e.UpdateStatus(now)

		changed := false
		if medication.StatusChanged(beforeStatus, e.Status) {
			changed = true
			result.Transitions = append(result.Transitions, medication.StatusTransition{
				MedicationID: e.ID,
				Name:         e.Data.Name,
				From:         beforeStatus,
				To:           e.Status,
			})
		}
		if medication.LowSupplyEdge(beforeLow, e.LowSupply) {
			changed = true
			result.LowSupply = append(result.LowSupply, r.supplyAlert(e, now))
		}
		if changed {
			r.persist(ctx, e)
			r.publishChanges(e, beforeStatus, beforeLow, now)
		}
	}
	r.metrics.Medications.Set(float64(len(r.entries)))
	return result
}

// persist writes an entry through to storage. Failures are logged and
// counted, not fatal; in-memory state stays authoritative.
func (r *Registry) persist(ctx context.Context, e *medication.Entry) {
	if err := r.store.SaveEntry(ctx, e.Document()); err != nil {
		r.metrics.PersistFailures.Inc()
		r.logger.Error("Failed to persist medication",
			zap.String("id", e.ID), zap.Error(err))
	}
}

// publishChanges emits state-changed and low-supply events for one entry,
// comparing against the pre-mutation status and low-supply flag.
func (r *Registry) publishChanges(e *medication.Entry, beforeStatus medication.Status, beforeLow bool, now time.Time) {
	if medication.StatusChanged(beforeStatus, e.Status) {
		r.metrics.StatusTransitions.WithLabelValues(string(e.Status)).Inc()
		r.bus.Publish(events.Event{
			Type:         events.TypeStateChanged,
			MedicationID: e.ID,
			Data: medication.StatusTransition{
				MedicationID: e.ID,
				Name:         e.Data.Name,
				From:         beforeStatus,
				To:           e.Status,
			},
			Time: now,
		})
	}
	if medication.LowSupplyEdge(beforeLow, e.LowSupply) {
		r.metrics.LowSupplyEvents.Inc()
		r.bus.Publish(events.Event{
			Type:         events.TypeLowSupply,
			MedicationID: e.ID,
			Data:         r.supplyAlert(e, now),
			Time:         now,
		})
	}
}

// publishUpdated announces an edit to a medication's data, independent of any
// status or supply transition.
func (r *Registry) publishUpdated(e *medication.Entry, now time.Time) {
	r.bus.Publish(events.Event{
		Type:         events.TypeUpdated,
		MedicationID: e.ID,
		Data:         map[string]string{"name": e.Data.Name},
		Time:         now,
	})
}

func (r *Registry) supplyAlert(e *medication.Entry, now time.Time) medication.SupplyAlert {
	alert := medication.SupplyAlert{
		MedicationID:  e.ID,
		Name:          e.Data.Name,
		CurrentSupply: e.Data.CurrentSupply,
		PillsPerDose:  e.Data.PillsPerDose,
		ThresholdDays: e.Data.RefillReminderThreshold,
	}
	if days, ok := medication.DaysOfSupplyRemaining(e.Data, e.History, now); ok {
		alert.DaysRemaining = &days
	}
	if refill, ok := medication.EstimatedRefillDate(e.Data, e.History, now); ok {
		s := refill.Format("2006-01-02")
		alert.EstimatedRefillDate = &s
	}
	return alert
}
