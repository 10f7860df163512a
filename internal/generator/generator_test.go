package generator

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/starford/brewmint/internal/models"
)

func categories(sizes ...int) []models.TraitCategory {
	out := make([]models.TraitCategory, len(sizes))
	for i, n := range sizes {
		c := models.TraitCategory{Name: string(rune('a' + i))}
		for j := 0; j < n; j++ {
			c.Candidates = append(c.Candidates, string(rune('a'+j))+".png")
		}
		out[i] = c
	}
	return out
}

func assertDistinct(t *testing.T, sels []models.Selection) {
	t.Helper()
	seen := make(map[string]bool)
	for _, s := range sels {
		if seen[s.Key()] {
			t.Fatalf("duplicate selection %v", s)
		}
		seen[s.Key()] = true
	}
}

func TestMaxCombinations(t *testing.T) {
	cases := []struct {
		sizes []int
		want  int
	}{
		{[]int{2, 2}, 4},
		{[]int{3, 1, 5}, 15},
		{[]int{1}, 1},
		{[]int{4, 0, 2}, 0},
		{nil, 0},
	}
	for _, tc := range cases {
		if got := MaxCombinations(categories(tc.sizes...)); got != tc.want {
			t.Errorf("MaxCombinations(%v) = %d, want %d", tc.sizes, got, tc.want)
		}
	}
}

func TestGenerateWithoutCategories(t *testing.T) {
	if sels := Collect(nil, 3, WithSeed(1)); len(sels) != 0 {
		t.Errorf("no categories yielded %v, want nothing", sels)
	}
}

func TestGenerateAllCombinationsOfTwoByTwo(t *testing.T) {
	cats := []models.TraitCategory{
		{Name: "00-type", Candidates: []string{"ale.png", "lager.png"}},
		{Name: "01-color", Candidates: []string{"red.png", "blue.png"}},
	}

	sels := Collect(cats, 4, WithSeed(1))
	if len(sels) != 4 {
		t.Fatalf("len = %d, want 4", len(sels))
	}
	assertDistinct(t, sels)
	for _, want := range []string{"0,0", "0,1", "1,0", "1,1"} {
		found := false
		for _, s := range sels {
			if s.Key() == want {
				found = true
			}
		}
		if !found {
			t.Errorf("combination %s missing from %v", want, sels)
		}
	}

	if got := len(Collect(cats, 5, WithSeed(2))); got != 4 {
		t.Errorf("requesting 5 yielded %d, want 4", got)
	}
}

func TestGenerateSingleCandidate(t *testing.T) {
	cats := []models.TraitCategory{{Name: "00-type", Candidates: []string{"ale.png"}}}
	sels := Collect(cats, 3)
	if len(sels) != 1 {
		t.Fatalf("len = %d, want 1", len(sels))
	}
	if !sels[0].Equal(models.Selection{0}) {
		t.Errorf("selection = %v", sels[0])
	}
}

func TestGenerateEmptyCategory(t *testing.T) {
	cats := categories(3, 0, 2)
	if got := Collect(cats, 10); len(got) != 0 {
		t.Errorf("len = %d, want 0", len(got))
	}

	err := CheckCategories(cats)
	var empty *EmptyCategoryError
	if !errors.As(err, &empty) {
		t.Fatalf("expected EmptyCategoryError, got %v", err)
	}
	if empty.Category != "b" {
		t.Errorf("category = %q, want b", empty.Category)
	}
	if CheckCategories(categories(1, 2)) != nil {
		t.Error("non-empty categories should pass")
	}
}

func TestGenerateYieldsMinOfCountAndSpace(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	for trial := 0; trial < 50; trial++ {
		n := 1 + rng.IntN(4)
		sizes := make([]int, n)
		for i := range sizes {
			sizes[i] = 1 + rng.IntN(4)
		}
		cats := categories(sizes...)
		count := rng.IntN(80)

		sels := Collect(cats, count, WithRand(rng))
		want := min(count, MaxCombinations(cats))
		if len(sels) != want {
			t.Fatalf("sizes %v count %d: got %d selections, want %d", sizes, count, len(sels), want)
		}
		assertDistinct(t, sels)
		for _, s := range sels {
			for i, idx := range s {
				if idx < 0 || idx >= sizes[i] {
					t.Fatalf("index %d out of range for category %d", idx, i)
				}
			}
		}
	}
}

func TestGenerateSeedIsReproducible(t *testing.T) {
	cats := categories(5, 4, 3)
	a := Collect(cats, 20, WithSeed(42))
	b := Collect(cats, 20, WithSeed(42))
	for i := range a {
		if !a[i].Equal(b[i]) {
			t.Fatalf("selection %d differs: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestGenerateStopsWhenConsumerBreaks(t *testing.T) {
	cats := categories(10, 10)
	n := 0
	for range Generate(cats, 50) {
		n++
		if n == 3 {
			break
		}
	}
	if n != 3 {
		t.Errorf("n = %d", n)
	}
}

func TestGenerateNonPositiveCount(t *testing.T) {
	cats := categories(2, 2)
	if got := Collect(cats, 0); len(got) != 0 {
		t.Errorf("count 0 yielded %d", len(got))
	}
	if got := Collect(cats, -3); len(got) != 0 {
		t.Errorf("negative count yielded %d", len(got))
	}
}
