package metadata

import (
	"encoding/json"
	"errors"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/brewmint/internal/models"
)

func fixedStrategy() (NameFunc, DescriptionFunc) {
	name := func(attrs []models.Attribute, id int) (string, error) {
		return attrs[0].Value + " #" + string(rune('0'+id)), nil
	}
	description := func(attrs []models.Attribute, _ int) (string, error) {
		return "a " + attrs[len(attrs)-1].Value + " one", nil
	}
	return name, description
}

var beerCategories = []models.TraitCategory{
	{Name: "00-type", Candidates: []string{"ale.png", "lager.png"}},
	{Name: "01-color", Candidates: []string{"red.png", "blue.png"}},
}

func TestAttributesStripPrefixAndExtension(t *testing.T) {
	attrs, err := Attributes(beerCategories, models.Selection{1, 0})
	if err != nil {
		t.Fatalf("Attributes: %v", err)
	}
	want := []models.Attribute{
		{TraitType: "type", Value: "lager"},
		{TraitType: "color", Value: "red"},
	}
	if diff := cmp.Diff(want, attrs); diff != "" {
		t.Errorf("attributes mismatch (-want +got):\n%s", diff)
	}
}

func TestAttributesRejectsBadSelection(t *testing.T) {
	if _, err := Attributes(beerCategories, models.Selection{0}); err == nil {
		t.Error("expected error for short selection")
	}
	if _, err := Attributes(beerCategories, models.Selection{0, 2}); err == nil {
		t.Error("expected error for out of range index")
	}
}

func TestAssemble(t *testing.T) {
	a := NewAssembler(fixedStrategy())
	rec, err := a.Assemble(beerCategories, models.Selection{0, 1}, 3)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	want := models.Record{
		Attributes: []models.Attribute{
			{TraitType: "type", Value: "ale"},
			{TraitType: "color", Value: "blue"},
		},
		Description: "a blue one",
		Image:       "",
		Name:        "ale #3",
		ItemID:      3,
	}
	if diff := cmp.Diff(want, rec); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}
}

func TestRecordRoundTrip(t *testing.T) {
	a := NewAssembler(MockStrategy(NewWords(rand.New(rand.NewPCG(1, 2)))))
	rec, err := a.Assemble(beerCategories, models.Selection{1, 1}, 0)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	rec.Image = "bafkreihdwdcefgh4dqkjv67uzcmw7ojee6xedzdetojuzjevtenxquvyku"

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		t.Fatal(err)
	}
	var back models.Record
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if diff := cmp.Diff(rec, back); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
	for _, key := range []string{`"attributes"`, `"trait_type"`, `"description"`, `"image"`, `"name"`, `"itemId"`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("encoded record lacks %s: %s", key, data)
		}
	}
}

func TestThemedStrategyUsesLabel(t *testing.T) {
	cats := []models.TraitCategory{
		{Name: "00-label", Candidates: []string{"polkastout.png"}},
		{Name: "01-color", Candidates: []string{"red.png"}},
	}
	a := NewAssembler(ThemedStrategy(NewWords(rand.New(rand.NewPCG(3, 4))), "label"))
	rec, err := a.Assemble(cats, models.Selection{0, 0}, 1)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if !strings.HasSuffix(rec.Name, " polkastout") {
		t.Errorf("name = %q, want label as last word", rec.Name)
	}
	if !strings.HasSuffix(rec.Description, " polkastout") {
		t.Errorf("description = %q", rec.Description)
	}
}

func TestThemedStrategyMissingLabel(t *testing.T) {
	a := NewAssembler(ThemedStrategy(NewWords(nil), "label"))
	_, err := a.Assemble(beerCategories, models.Selection{0, 0}, 1)
	var missing *MissingAttributeError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingAttributeError, got %v", err)
	}
	if missing.TraitType != "label" {
		t.Errorf("trait type = %q", missing.TraitType)
	}
}

func TestMockStrategyShape(t *testing.T) {
	name, description := MockStrategy(NewWords(rand.New(rand.NewPCG(5, 6))))
	n, err := name(nil, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(strings.Fields(n)) != 3 {
		t.Errorf("name = %q, want three words", n)
	}
	d, err := description(nil, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(strings.Fields(d)) != 2 {
		t.Errorf("description = %q, want two words", d)
	}
}

func TestReplaceLastWord(t *testing.T) {
	cases := map[string]string{
		"Hoppy Monk Ale": "Hoppy Monk kusamale",
		"Ale":            "kusamale",
	}
	for in, want := range cases {
		if got := replaceLastWord(in, "kusamale"); got != want {
			t.Errorf("replaceLastWord(%q) = %q, want %q", in, got, want)
		}
	}
}
