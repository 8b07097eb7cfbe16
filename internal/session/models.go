package session

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/manash/cyberedit/pkg/models"
)

// Persistence keys. Each is serialized independently.
const (
	KeyTrialCount = "trialCount"
	KeyLicensed   = "isLicensed"
	KeyHistory    = "history"
	KeyLocale     = "language"
)

const DefaultTrialLimit = 5

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSubmitting
	PhaseSucceeded
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSubmitting:
		return "submitting"
	case PhaseSucceeded:
		return "succeeded"
	case PhaseFailed:
		return "failed"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// HistoryRecord is one completed generation. Records are never mutated;
// the history list only gains and loses whole records.
type HistoryRecord struct {
	ID             string
	Prompt         string
	CreatedAt      time.Time
	OriginalImage  models.Image
	GeneratedImage models.Image
	Quality        models.QualityTier
}

type recordJSON struct {
	ID             string             `json:"id"`
	Prompt         string             `json:"prompt"`
	Timestamp      int64              `json:"timestamp"`
	OriginalImage  models.Image       `json:"originalImage"`
	GeneratedImage models.Image       `json:"generatedImage"`
	Resolution     models.QualityTier `json:"resolution"`
}

func (r HistoryRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(recordJSON{
		ID:             r.ID,
		Prompt:         r.Prompt,
		Timestamp:      r.CreatedAt.UnixMilli(),
		OriginalImage:  r.OriginalImage,
		GeneratedImage: r.GeneratedImage,
		Resolution:     r.Quality,
	})
}

func (r *HistoryRecord) UnmarshalJSON(data []byte) error {
	var raw recordJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = HistoryRecord{
		ID:             raw.ID,
		Prompt:         raw.Prompt,
		CreatedAt:      time.UnixMilli(raw.Timestamp),
		OriginalImage:  raw.OriginalImage,
		GeneratedImage: raw.GeneratedImage,
		Quality:        raw.Resolution,
	}
	return nil
}

type State struct {
	RemainingTrialUses int
	Licensed           bool
	Quality            models.QualityTier
	Locale             models.Locale
	// History is ordered most-recent-first.
	History []HistoryRecord

	Phase   Phase
	Results []models.ResultPair
	Err     error
}

func DefaultState(trialLimit int) State {
	if trialLimit < 0 {
		trialLimit = 0
	}
	return State{
		RemainingTrialUses: trialLimit,
		Quality:            models.DefaultQuality,
		Locale:             models.DefaultLocale,
		History:            []HistoryRecord{},
		Phase:              PhaseIdle,
	}
}

// clone copies the slices so transitions never alias the caller's state.
func (s State) clone() State {
	s.History = slices.Clone(s.History)
	if s.History == nil {
		s.History = []HistoryRecord{}
	}
	s.Results = slices.Clone(s.Results)
	return s
}

// SubmitInput is everything one submission needs from the view.
type SubmitInput struct {
	Image      models.Image
	PromptText string
	Mode       models.PromptMode
	// Quality overrides the session's selected tier when set.
	Quality models.QualityTier
}

// Effect is a side-effect request produced by a transition.
type Effect interface {
	effect()
}

// Persist asks for one state slice to be written back to the store.
type Persist struct {
	Key string
}

// CallService asks for one external edit call. Index is the prompt's
// position in the batch.
type CallService struct {
	Index   int
	Prompt  string
	Request *models.EditRequest
}

func (Persist) effect()     {}
func (CallService) effect() {}
