// Package chain submits collection and item mutations to a ledger.
//
// Every mutation is expressed as a Call. Clients differ only in how a call
// reaches durable, ordered storage: Journal signs it locally with a
// secp256k1 key and appends it to the ledger database, Hedera publishes it
// as a consensus topic message.
package chain

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/starford/brewmint/internal/models"
)

// Client modes.
const (
	ModeJournal = "journal"
	ModeHedera  = "hedera"
)

// Call operations.
const (
	OpCreateCollection = "create_collection"
	OpSetMetadata      = "set_metadata"
	OpSetAttribute     = "set_attribute"
	OpSetAttributes    = "set_attributes"
)

// TxHandle identifies a submitted call.
type TxHandle struct {
	ID       string `json:"id"`
	Sequence int64  `json:"sequence,omitempty"`
}

func (h TxHandle) String() string {
	if h.Sequence > 0 {
		return fmt.Sprintf("%s#%d", h.ID, h.Sequence)
	}
	return h.ID
}

// Client is the submission capability of a ledger. Every mutation of one
// item must carry the item id written in that item's metadata file.
type Client interface {
	// CreateCollection registers a new collection owned by the signer.
	CreateCollection(ctx context.Context, collection uint32) (TxHandle, error)
	// SetMetadata points an item at its metadata document.
	SetMetadata(ctx context.Context, collection uint32, itemID int, data string, frozen bool) (TxHandle, error)
	// SetAttribute sets a single item attribute.
	SetAttribute(ctx context.Context, collection uint32, itemID int, attr models.Attribute) (TxHandle, error)
	// SetAttributes sets all attributes of an item in one atomic submission.
	SetAttributes(ctx context.Context, collection uint32, itemID int, attrs []models.Attribute) (TxHandle, error)
}

// Binder is implemented by clients that address a collection through a
// reference assigned at creation, so a later process can reattach to it.
type Binder interface {
	// CollectionRef returns the reference bound to collection.
	CollectionRef(collection uint32) (string, bool)
	// BindCollection points collection at a reference returned earlier by
	// CollectionRef.
	BindCollection(collection uint32, ref string) error
}

// Call is the wire form of one mutation.
type Call struct {
	Op         string             `json:"op"`
	Collection uint32             `json:"collection"`
	Item       *int               `json:"item,omitempty"`
	Data       string             `json:"data,omitempty"`
	Frozen     bool               `json:"frozen,omitempty"`
	Attributes []models.Attribute `json:"attributes,omitempty"`
}

// Encode returns the compact JSON encoding of c.
func (c Call) Encode() ([]byte, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("chain: encode call: %w", err)
	}
	return data, nil
}

// ItemID returns the item the call mutates, or -1 for collection calls.
func (c Call) ItemID() int {
	if c.Item == nil {
		return -1
	}
	return *c.Item
}

func itemCall(op string, collection uint32, itemID int) Call {
	id := itemID
	return Call{Op: op, Collection: collection, Item: &id}
}

func setMetadataCall(collection uint32, itemID int, data string, frozen bool) Call {
	c := itemCall(OpSetMetadata, collection, itemID)
	c.Data = data
	c.Frozen = frozen
	return c
}

func setAttributesCall(op string, collection uint32, itemID int, attrs []models.Attribute) Call {
	c := itemCall(op, collection, itemID)
	c.Attributes = attrs
	return c
}
