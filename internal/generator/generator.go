// Package generator draws unique trait selections from a set of categories.
//
// Every selection picks one candidate index per category uniformly at random.
// A selection whose index tuple was already emitted is discarded and the whole
// draw is repeated, so a run never yields two equal selections. A run stops
// after count selections or once every possible combination was emitted,
// whichever comes first.
package generator

import (
	"errors"
	"fmt"
	"iter"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/starford/brewmint/internal/models"
)

// EmptyCategoryError reports a category without eligible candidates. Such a
// category collapses the combination space to zero.
type EmptyCategoryError struct {
	Category string
}

func (e *EmptyCategoryError) Error() string {
	return fmt.Sprintf("generator: trait category %q has no eligible candidates", e.Category)
}

// Option configures a generation run.
type Option func(*options)

type options struct {
	rng *rand.Rand
}

// WithRand uses r for every draw.
func WithRand(r *rand.Rand) Option {
	return func(o *options) {
		o.rng = r
	}
}

// WithSeed makes the draws reproducible for a given seed.
func WithSeed(seed uint64) Option {
	return WithRand(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)))
}

// MaxCombinations returns the number of distinct selections, saturating at
// math.MaxInt. No categories means nothing to combine.
func MaxCombinations(categories []models.TraitCategory) int {
	if len(categories) == 0 {
		return 0
	}
	total := 1
	for _, c := range categories {
		n := len(c.Candidates)
		if n == 0 {
			return 0
		}
		if total > math.MaxInt/n {
			return math.MaxInt
		}
		total *= n
	}
	return total
}

// CheckCategories returns an EmptyCategoryError for each empty category,
// joined. It is informational: Generate handles empty spaces on its own.
func CheckCategories(categories []models.TraitCategory) error {
	var errs []error
	for _, c := range categories {
		if len(c.Candidates) == 0 {
			errs = append(errs, &EmptyCategoryError{Category: c.Name})
		}
	}
	return errors.Join(errs...)
}

// Generate returns a sequence of at most count pairwise distinct selections.
// Each iteration of the sequence starts from an empty emitted set and draws
// fresh random choices.
func Generate(categories []models.TraitCategory, count int, opts ...Option) iter.Seq[models.Selection] {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	return func(yield func(models.Selection) bool) {
		rng := o.rng
		if rng == nil {
			rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		}

		limit := min(count, MaxCombinations(categories))
		seen := make(map[string]struct{}, max(min(limit, 1024), 0))

		for len(seen) < limit {
			sel := make(models.Selection, len(categories))
			for i, c := range categories {
				sel[i] = rng.IntN(len(c.Candidates))
			}

			key := sel.Key()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}

			if !yield(sel) {
				return
			}
		}
	}
}

// Collect drains Generate into a slice.
func Collect(categories []models.TraitCategory, count int, opts ...Option) []models.Selection {
	return slices.Collect(Generate(categories, count, opts...))
}
