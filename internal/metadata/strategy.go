package metadata

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/starford/brewmint/internal/models"
)

// Strategy names accepted in configuration.
const (
	StrategyMock   = "mock"
	StrategyThemed = "themed"
)

// Words draws flavor text from the built-in word lists.
type Words struct {
	rng *rand.Rand
}

// NewWords returns a word source. A nil rng uses the global generator.
func NewWords(rng *rand.Rand) *Words {
	return &Words{rng: rng}
}

func (w *Words) pick(list []string) string {
	if w.rng == nil {
		return list[rand.IntN(len(list))]
	}
	return list[w.rng.IntN(len(list))]
}

// BeerName returns a random "<adjective> <noun> <style>" name.
func (w *Words) BeerName() string {
	return w.pick(beerAdjectives) + " " + w.pick(beerNouns) + " " + w.pick(beerStyles)
}

// Superb returns a random praising adjective.
func (w *Words) Superb() string {
	return w.pick(superbWords)
}

// MockStrategy names items after random beers and describes them with a
// praising adjective followed by a beer style.
func MockStrategy(w *Words) (NameFunc, DescriptionFunc) {
	name := func(_ []models.Attribute, _ int) (string, error) {
		return w.BeerName(), nil
	}
	description := func(_ []models.Attribute, _ int) (string, error) {
		return w.Superb() + " " + w.pick(beerStyles), nil
	}
	return name, description
}

// ThemedStrategy puts the value of the label trait into every name and
// description. Items without that trait fail with MissingAttributeError.
func ThemedStrategy(w *Words, labelTrait string) (NameFunc, DescriptionFunc) {
	name := func(attrs []models.Attribute, _ int) (string, error) {
		label, err := lookup(attrs, labelTrait)
		if err != nil {
			return "", err
		}
		return replaceLastWord(w.BeerName(), label), nil
	}
	description := func(attrs []models.Attribute, _ int) (string, error) {
		label, err := lookup(attrs, labelTrait)
		if err != nil {
			return "", err
		}
		return w.Superb() + " " + label, nil
	}
	return name, description
}

func lookup(attrs []models.Attribute, traitType string) (string, error) {
	for _, a := range attrs {
		if a.TraitType == traitType {
			return a.Value, nil
		}
	}
	return "", &MissingAttributeError{TraitType: traitType}
}

func replaceLastWord(s, word string) string {
	i := strings.LastIndexByte(s, ' ')
	if i < 0 {
		return word
	}
	return s[:i+1] + word
}

// NewStrategy returns the name and description functions for a configured
// strategy name.
func NewStrategy(strategy, labelTrait string, w *Words) (NameFunc, DescriptionFunc, error) {
	switch strategy {
	case StrategyMock, "":
		name, desc := MockStrategy(w)
		return name, desc, nil
	case StrategyThemed:
		name, desc := ThemedStrategy(w, labelTrait)
		return name, desc, nil
	default:
		return nil, nil, fmt.Errorf("metadata: unknown strategy %q", strategy)
	}
}
