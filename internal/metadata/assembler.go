// Package metadata turns trait selections into metadata records.
package metadata

import (
	"fmt"

	"github.com/starford/brewmint/internal/models"
	"github.com/starford/brewmint/internal/traits"
)

// NameFunc produces the display name of an item from its attributes.
type NameFunc func(attrs []models.Attribute, itemID int) (string, error)

// DescriptionFunc produces the description of an item from its attributes.
type DescriptionFunc func(attrs []models.Attribute, itemID int) (string, error)

// MissingAttributeError is returned by a strategy that needs a trait the
// selection does not carry.
type MissingAttributeError struct {
	TraitType string
}

func (e *MissingAttributeError) Error() string {
	return fmt.Sprintf("metadata: attribute %q is missing", e.TraitType)
}

// Assembler builds records with injected naming strategies.
type Assembler struct {
	name        NameFunc
	description DescriptionFunc
}

// NewAssembler returns an Assembler using the given strategies.
func NewAssembler(name NameFunc, description DescriptionFunc) *Assembler {
	return &Assembler{name: name, description: description}
}

// Attributes maps a selection onto the trait attributes it stands for.
func Attributes(categories []models.TraitCategory, sel models.Selection) ([]models.Attribute, error) {
	if len(sel) != len(categories) {
		return nil, fmt.Errorf("metadata: selection has %d indices for %d categories", len(sel), len(categories))
	}
	attrs := make([]models.Attribute, len(sel))
	for i, idx := range sel {
		c := categories[i]
		if idx < 0 || idx >= len(c.Candidates) {
			return nil, fmt.Errorf("metadata: index %d out of range for %s", idx, c.Name)
		}
		attrs[i] = models.Attribute{
			TraitType: traits.TraitType(c.Name),
			Value:     traits.StripExtension(c.Candidates[idx]),
		}
	}
	return attrs, nil
}

// Assemble builds the record for one selection. The image reference is left
// empty until the rendered image has an identifier.
func (a *Assembler) Assemble(categories []models.TraitCategory, sel models.Selection, itemID int) (models.Record, error) {
	attrs, err := Attributes(categories, sel)
	if err != nil {
		return models.Record{}, err
	}

	description, err := a.description(attrs, itemID)
	if err != nil {
		return models.Record{}, fmt.Errorf("metadata: item %d description: %w", itemID, err)
	}
	name, err := a.name(attrs, itemID)
	if err != nil {
		return models.Record{}, fmt.Errorf("metadata: item %d name: %w", itemID, err)
	}

	return models.Record{
		Attributes:  attrs,
		Description: description,
		Image:       "",
		Name:        name,
		ItemID:      itemID,
	}, nil
}
