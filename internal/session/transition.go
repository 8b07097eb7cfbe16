package session

import (
	"strings"

	"github.com/manash/cyberedit/internal/batch"
	"github.com/manash/cyberedit/pkg/models"
)

// The functions in this file are pure: they take a State and return the
// next State plus the effects the caller must run. None of them mutate
// their input.

func CanGenerate(s State) bool {
	return s.Licensed || s.RemainingTrialUses > 0
}

// BeginSubmit validates a submission, checks quota and moves to
// Submitting with one CallService effect per prompt, in order. On error
// the state is returned unchanged. Input errors are reported before quota
// errors, so a blank prompt never opens the license flow.
func BeginSubmit(s State, in SubmitInput) (State, []Effect, error) {
	if in.Image.IsEmpty() {
		return s, nil, &ValidationError{Field: "image", Message: "please upload an image"}
	}
	if strings.TrimSpace(in.PromptText) == "" {
		return s, nil, &ValidationError{Field: "prompt", Message: "please enter a prompt"}
	}

	quality := in.Quality
	if quality == "" {
		quality = s.Quality
	}
	if !quality.IsValid() {
		return s, nil, &ValidationError{Field: "quality", Message: "unknown quality tier " + string(quality)}
	}

	if !CanGenerate(s) {
		return s, nil, ErrQuotaExceeded
	}

	prompts := batch.SplitPrompts(in.PromptText, in.Mode)

	next := s.clone()
	next.Phase = PhaseSubmitting
	next.Quality = quality
	next.Results = nil
	next.Err = nil

	effects := make([]Effect, 0, len(prompts))
	for i, p := range prompts {
		effects = append(effects, CallService{
			Index:   i,
			Prompt:  p,
			Request: models.NewEditRequest(in.Image, BuildInstruction(p, quality)),
		})
	}
	return next, effects, nil
}

// RecordSuccess puts a freshly generated record at the head of history.
func RecordSuccess(s State, rec HistoryRecord) (State, []Effect) {
	next := s.clone()
	next.History = append([]HistoryRecord{rec}, next.History...)
	return next, []Effect{Persist{Key: KeyHistory}}
}

// FinishSubmit settles a submission. Only a completed batch consumes
// trial uses, one per prompt, floored at zero. Whether uses are consumed
// depends on the license flag captured when the batch started. A
// partially failed batch keeps the history it already recorded but
// returns no results.
func FinishSubmit(s State, outcome batch.Outcome, licensedAtStart bool) (State, []Effect) {
	next := s.clone()

	switch o := outcome.(type) {
	case batch.Completed:
		next.Phase = PhaseSucceeded
		next.Results = o.Pairs
		next.Err = nil
		if licensedAtStart {
			return next, nil
		}
		next.RemainingTrialUses = max(0, next.RemainingTrialUses-o.Processed())
		return next, []Effect{Persist{Key: KeyTrialCount}}

	case batch.PartiallyFailed:
		next.Phase = PhaseFailed
		next.Results = nil
		next.Err = &GenerationError{Index: o.FailedAt, Prompt: o.Prompt, Err: o.Err}
		return next, nil
	}

	next.Phase = PhaseIdle
	return next, nil
}

// CheckLicense compares a candidate key with the license key. The match
// is exact and case-sensitive.
func CheckLicense(candidate string) error {
	if candidate != LicenseKey {
		return ErrInvalidLicense
	}
	return nil
}

// ApplyLicense is one-way; there is no transition back to unlicensed.
func ApplyLicense(s State) (State, []Effect) {
	if s.Licensed {
		return s, nil
	}
	next := s.clone()
	next.Licensed = true
	return next, []Effect{Persist{Key: KeyLicensed}}
}

// DeleteRecord removes the record with the given id. An unknown id leaves
// the state untouched and produces no effects.
func DeleteRecord(s State, id string) (State, []Effect) {
	idx := -1
	for i, rec := range s.History {
		if rec.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return s, nil
	}

	next := s.clone()
	next.History = append(next.History[:idx], next.History[idx+1:]...)
	return next, []Effect{Persist{Key: KeyHistory}}
}

func ClearHistory(s State) (State, []Effect) {
	next := s.clone()
	next.History = []HistoryRecord{}
	return next, []Effect{Persist{Key: KeyHistory}}
}

func SetLocale(s State, locale models.Locale) (State, []Effect, error) {
	l, err := models.ParseLocale(string(locale))
	if err != nil {
		return s, nil, err
	}
	if l == s.Locale {
		return s, nil, nil
	}
	next := s.clone()
	next.Locale = l
	return next, []Effect{Persist{Key: KeyLocale}}, nil
}

// SetQuality changes the tier used by later submissions. The tier is not
// persisted.
func SetQuality(s State, quality models.QualityTier) (State, error) {
	if !quality.IsValid() {
		return s, models.ErrInvalidQuality
	}
	next := s.clone()
	next.Quality = quality
	return next, nil
}

// Dismiss returns a settled submission to Idle, dropping its results and
// error.
func Dismiss(s State) State {
	if s.Phase == PhaseSubmitting {
		return s
	}
	next := s.clone()
	next.Phase = PhaseIdle
	next.Results = nil
	next.Err = nil
	return next
}
