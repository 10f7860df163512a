// Package models defines the domain types for brewmint.
package models

import (
	"strconv"
	"strings"
	"time"
)

// TraitCategory is one axis of visual variation backed by a directory of
// candidate images. Name is the raw directory name (ordinal prefix included).
type TraitCategory struct {
	Name       string   `json:"name"`
	Dir        string   `json:"dir"`
	Candidates []string `json:"candidates"`
}

// Selection holds one candidate index per trait category.
type Selection []int

// Key returns the positional identity of the selection.
func (s Selection) Key() string {
	parts := make([]string, len(s))
	for i, idx := range s {
		parts[i] = strconv.Itoa(idx)
	}
	return strings.Join(parts, ",")
}

// Equal reports whether both selections choose the same index in every category.
func (s Selection) Equal(other Selection) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Attribute is a single trait of a generated item.
type Attribute struct {
	TraitType string `json:"trait_type"`
	Value     string `json:"value"`
}

// Record is the metadata document written for each generated item.
type Record struct {
	Attributes  []Attribute `json:"attributes"`
	Description string      `json:"description"`
	Image       string      `json:"image"`
	Name        string      `json:"name"`
	ItemID      int         `json:"itemId"`
}

// Attribute returns the value of the named trait, if present.
func (r Record) Attribute(traitType string) (string, bool) {
	for _, a := range r.Attributes {
		if a.TraitType == traitType {
			return a.Value, true
		}
	}
	return "", false
}

// Item is the ledger view of a generated record.
type Item struct {
	ItemID              int         `json:"item_id"`
	Name                string      `json:"name"`
	File                string      `json:"file"`
	Checksum            string      `json:"checksum"`
	MetadataCID         string      `json:"metadata_cid,omitempty"`
	ImageCID            string      `json:"image_cid,omitempty"`
	RunID               string      `json:"run_id,omitempty"`
	Attributes          []Attribute `json:"attributes"`
	Description         string      `json:"description"`
	TxHandle            string      `json:"tx_handle,omitempty"`
	// SubmittedChecksum is the file checksum at the time of submission.
	SubmittedChecksum   string      `json:"submitted_checksum,omitempty"`
	SubmittedTarget     string      `json:"submitted_target,omitempty"`
	SubmittedCollection uint32      `json:"submitted_collection,omitempty"`
	SubmittedAt         *time.Time  `json:"submitted_at,omitempty"`
	UpdatedAt           time.Time   `json:"updated_at"`
}

// Submitted reports whether the item has been pushed to the chain.
func (i Item) Submitted() bool {
	return i.SubmittedAt != nil
}

// Stale reports whether the item must be (re)submitted: it was never
// submitted, or its file changed since.
func (i Item) Stale() bool {
	return !i.Submitted() || i.SubmittedChecksum != i.Checksum
}

// SubmittedAs reports whether the item was last submitted with content
// checksum to collection on target.
func (i Item) SubmittedAs(target string, collection uint32, checksum string) bool {
	return i.Submitted() &&
		i.SubmittedChecksum == checksum &&
		i.SubmittedTarget == target &&
		i.SubmittedCollection == collection
}

// FileMeta is a lightweight listing entry for an output file.
type FileMeta struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
