package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/manash/cyberedit/internal/batch"
	"github.com/manash/cyberedit/internal/provider"
	"github.com/manash/cyberedit/internal/store"
	"github.com/manash/cyberedit/pkg/models"
)

const DefaultLicenseDelay = 1500 * time.Millisecond

type Options struct {
	Editor provider.Editor
	// Model is passed on every edit request. Empty uses the editor's
	// default model.
	Model      string
	TrialLimit int
	// LicenseDelay is how long a valid key waits before the license is
	// applied. Zero means DefaultLicenseDelay; negative applies at once.
	LicenseDelay time.Duration
	Logger       *zap.Logger
	Now          func() time.Time
	NewID        func() string
}

// Manager runs the session transitions against a store and an editor.
// The lock is never held across an external call.
type Manager struct {
	mu         sync.Mutex
	state      State
	submitting bool
	pending    []*pendingLicense

	kv           store.KV
	editor       provider.Editor
	model        string
	licenseDelay time.Duration
	logger       *zap.Logger
	now          func() time.Time
	newID        func() string
}

type pendingLicense struct {
	timer *time.Timer
	apply func()
}

// Load builds a Manager from the state persisted in kv.
func Load(ctx context.Context, kv store.KV, opts Options) (*Manager, error) {
	m := &Manager{
		kv:           kv,
		editor:       opts.Editor,
		model:        opts.Model,
		licenseDelay: opts.LicenseDelay,
		logger:       opts.Logger,
		now:          opts.Now,
		newID:        opts.NewID,
	}
	if m.logger == nil {
		m.logger = zap.NewNop()
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.newID == nil {
		m.newID = newRecordID
	}
	if m.licenseDelay == 0 {
		m.licenseDelay = DefaultLicenseDelay
	}

	trialLimit := opts.TrialLimit
	if trialLimit == 0 {
		trialLimit = DefaultTrialLimit
	}

	state, err := LoadState(ctx, kv, trialLimit, m.logger)
	if err != nil {
		return nil, err
	}
	m.state = state

	m.logger.Debug("session loaded",
		zap.Int("remaining_trial_uses", state.RemainingTrialUses),
		zap.Bool("licensed", state.Licensed),
		zap.Int("history", len(state.History)),
		zap.String("locale", string(state.Locale)))

	return m, nil
}

func newRecordID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func (m *Manager) SetEditor(editor provider.Editor, model string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.editor = editor
	m.model = model
}

func (m *Manager) CanGenerate() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return CanGenerate(m.state)
}

// Submit runs one submission: every prompt is sent to the editor in order
// and each success is recorded in history as soon as it arrives. The
// returned pairs are the whole batch or nothing.
func (m *Manager) Submit(ctx context.Context, in SubmitInput) ([]models.ResultPair, error) {
	m.mu.Lock()
	if m.submitting {
		m.mu.Unlock()
		return nil, ErrSubmissionInProgress
	}
	if m.editor == nil {
		m.mu.Unlock()
		return nil, ErrNoEditor
	}

	next, effects, err := BeginSubmit(m.state, in)
	if err != nil {
		m.mu.Unlock()
		m.logger.Info("submission rejected", zap.Error(err))
		return nil, err
	}
	m.state = next
	m.submitting = true
	licensedAtStart := next.Licensed
	quality := next.Quality
	editor, model := m.editor, m.model
	m.mu.Unlock()

	calls := make([]CallService, 0, len(effects))
	prompts := make([]string, 0, len(effects))
	for _, e := range effects {
		if call, ok := e.(CallService); ok {
			calls = append(calls, call)
			prompts = append(prompts, call.Prompt)
		}
	}

	m.logger.Info("submission started",
		zap.Int("prompts", len(prompts)),
		zap.String("mode", string(in.Mode)),
		zap.String("quality", string(quality)),
		zap.Bool("licensed", licensedAtStart))

	outcome := batch.Run(ctx, prompts, func(ctx context.Context, i int, prompt string) (models.ResultPair, error) {
		req := *calls[i].Request
		if model != "" {
			req.Model = model
		}

		start := m.now()
		resp, err := editor.Edit(ctx, &req)
		if err == nil && (resp == nil || resp.Image.IsEmpty()) {
			err = provider.NoImage("")
		}
		if err != nil {
			m.logger.Warn("edit failed",
				zap.Int("index", i),
				zap.String("prompt", prompt),
				zap.Error(err))
			return models.ResultPair{}, err
		}

		rec := HistoryRecord{
			ID:             m.newID(),
			Prompt:         prompt,
			CreatedAt:      m.now(),
			OriginalImage:  in.Image,
			GeneratedImage: resp.Image,
			Quality:        quality,
		}

		m.mu.Lock()
		var eff []Effect
		m.state, eff = RecordSuccess(m.state, rec)
		m.runEffectsLocked(ctx, eff)
		m.mu.Unlock()

		m.logger.Debug("edit succeeded",
			zap.Int("index", i),
			zap.String("record_id", rec.ID),
			zap.Duration("elapsed", m.now().Sub(start)))

		return models.ResultPair{Original: in.Image, Generated: resp.Image}, nil
	})

	m.mu.Lock()
	var eff []Effect
	m.state, eff = FinishSubmit(m.state, outcome, licensedAtStart)
	m.runEffectsLocked(ctx, eff)
	m.submitting = false
	results := m.state.Results
	settled := m.state.Err
	remaining := m.state.RemainingTrialUses
	m.mu.Unlock()

	if settled != nil {
		m.logger.Warn("submission failed",
			zap.Int("recorded", outcome.Processed()),
			zap.Error(settled))
		return nil, settled
	}

	m.logger.Info("submission finished",
		zap.Int("results", len(results)),
		zap.Int("remaining_trial_uses", remaining))
	return results, nil
}

// runEffectsLocked persists the requested keys. Failures are logged, not
// returned: a failed write must not turn a finished generation into an
// error.
func (m *Manager) runEffectsLocked(ctx context.Context, effects []Effect) {
	if err := m.persistLocked(ctx, effects); err != nil {
		m.logger.Error("failed to persist session state", zap.Error(err))
	}
}

func (m *Manager) persistLocked(ctx context.Context, effects []Effect) error {
	var errs []error
	for _, e := range effects {
		p, ok := e.(Persist)
		if !ok {
			continue
		}
		if err := persistKey(ctx, m.kv, m.state, p.Key); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ActivateLicense checks key and, on a match, applies the license after
// the activation delay. The returned channel is closed once the license
// has been applied.
func (m *Manager) ActivateLicense(key string) (<-chan struct{}, error) {
	if err := CheckLicense(key); err != nil {
		m.logger.Info("license activation rejected")
		return nil, err
	}

	done := make(chan struct{})
	apply := func() {
		m.mu.Lock()
		var eff []Effect
		m.state, eff = ApplyLicense(m.state)
		err := m.persistLocked(context.Background(), eff)
		m.mu.Unlock()
		if err != nil {
			m.logger.Error("failed to persist license", zap.Error(err))
		}
		m.logger.Info("license activated")
		close(done)
	}

	if m.licenseDelay < 0 {
		apply()
		return done, nil
	}

	m.mu.Lock()
	p := &pendingLicense{apply: apply}
	p.timer = time.AfterFunc(m.licenseDelay, func() {
		m.removePending(p)
		apply()
	})
	m.pending = append(m.pending, p)
	m.mu.Unlock()

	return done, nil
}

func (m *Manager) removePending(p *pendingLicense) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, q := range m.pending {
		if q == p {
			m.pending = append(m.pending[:i], m.pending[i+1:]...)
			return
		}
	}
}

// Close applies any license activation still waiting on its delay so a
// process exiting early does not lose it.
func (m *Manager) Close() {
	m.mu.Lock()
	pending := m.pending
	m.pending = nil
	m.mu.Unlock()

	for _, p := range pending {
		if p.timer.Stop() {
			p.apply()
		}
	}
}

func (m *Manager) DeleteHistoryRecord(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var eff []Effect
	m.state, eff = DeleteRecord(m.state, id)
	return m.persistLocked(ctx, eff)
}

// ClearHistory empties the history. Callers confirm with the user first.
func (m *Manager) ClearHistory(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var eff []Effect
	m.state, eff = ClearHistory(m.state)
	return m.persistLocked(ctx, eff)
}

func (m *Manager) SetLocale(ctx context.Context, locale models.Locale) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next, eff, err := SetLocale(m.state, locale)
	if err != nil {
		return err
	}
	m.state = next
	return m.persistLocked(ctx, eff)
}

func (m *Manager) SetQuality(quality models.QualityTier) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next, err := SetQuality(m.state, quality)
	if err != nil {
		return err
	}
	m.state = next
	return nil
}

func (m *Manager) Dismiss() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = Dismiss(m.state)
}

// Snapshot returns a copy of the current state.
func (m *Manager) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.clone()
}

func (m *Manager) History() []HistoryRecord {
	return m.Snapshot().History
}

func (m *Manager) Record(id string) (HistoryRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.state.History {
		if rec.ID == id {
			return rec, true
		}
	}
	return HistoryRecord{}, false
}

func (m *Manager) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Phase
}
