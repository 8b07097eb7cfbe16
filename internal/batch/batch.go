package batch

import (
	"context"
	"fmt"

	"github.com/manash/cyberedit/pkg/models"
)

// Step runs one prompt of a batch. index is zero-based.
type Step func(ctx context.Context, index int, prompt string) (models.ResultPair, error)

// Outcome is either Completed or PartiallyFailed.
type Outcome interface {
	outcome()
	// Processed is the number of prompts that produced an image.
	Processed() int
}

type Completed struct {
	Pairs []models.ResultPair
}

type PartiallyFailed struct {
	Succeeded []models.ResultPair
	FailedAt  int
	Prompt    string
	Err       error
}

func (Completed) outcome()       {}
func (PartiallyFailed) outcome() {}

func (c Completed) Processed() int       { return len(c.Pairs) }
func (p PartiallyFailed) Processed() int { return len(p.Succeeded) }

func (p PartiallyFailed) Error() string {
	return fmt.Sprintf("prompt %d of batch failed: %v", p.FailedAt+1, p.Err)
}

func (p PartiallyFailed) Unwrap() error {
	return p.Err
}

// Run folds step over prompts strictly in order, one call at a time. The
// first failure stops the fold; pairs collected before it are reported in
// the PartiallyFailed outcome.
func Run(ctx context.Context, prompts []string, step Step) Outcome {
	pairs := make([]models.ResultPair, 0, len(prompts))

	for i, prompt := range prompts {
		pair, err := step(ctx, i, prompt)
		if err != nil {
			return PartiallyFailed{
				Succeeded: pairs,
				FailedAt:  i,
				Prompt:    prompt,
				Err:       err,
			}
		}
		pairs = append(pairs, pair)
	}

	return Completed{Pairs: pairs}
}
