package chain

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"

	"github.com/starford/brewmint/internal/apperr"
	"github.com/starford/brewmint/internal/models"
)

// JournalEntry is one signed call as stored by a Recorder.
type JournalEntry struct {
	Seq        int64     `json:"seq"`
	Hash       string    `json:"hash"`
	Op         string    `json:"op"`
	Collection uint32    `json:"collection"`
	ItemID     int       `json:"item_id"`
	Payload    []byte    `json:"payload"`
	Signature  string    `json:"signature"`
	PublicKey  string    `json:"public_key"`
	CreatedAt  time.Time `json:"created_at"`
}

// Recorder persists journal entries in submission order and returns the
// assigned sequence number.
type Recorder interface {
	AppendJournal(ctx context.Context, entry JournalEntry) (int64, error)
}

// Journal is an offline Client. Each call is signed with a secp256k1 key and
// appended to a Recorder.
type Journal struct {
	key *btcec.PrivateKey
	rec Recorder
}

// NewJournal creates a journal client. An empty hexKey generates a fresh
// signing key.
func NewJournal(rec Recorder, hexKey string) (*Journal, error) {
	key, err := parseSigningKey(hexKey)
	if err != nil {
		return nil, err
	}
	return &Journal{key: key, rec: rec}, nil
}

// PublicKey returns the compressed public key of the signer, hex encoded.
func (j *Journal) PublicKey() string {
	return hex.EncodeToString(j.key.PubKey().SerializeCompressed())
}

// CreateCollection implements Client.
func (j *Journal) CreateCollection(ctx context.Context, collection uint32) (TxHandle, error) {
	return j.submit(ctx, Call{Op: OpCreateCollection, Collection: collection})
}

// SetMetadata implements Client.
func (j *Journal) SetMetadata(ctx context.Context, collection uint32, itemID int, data string, frozen bool) (TxHandle, error) {
	return j.submit(ctx, setMetadataCall(collection, itemID, data, frozen))
}

// SetAttribute implements Client.
func (j *Journal) SetAttribute(ctx context.Context, collection uint32, itemID int, attr models.Attribute) (TxHandle, error) {
	return j.submit(ctx, setAttributesCall(OpSetAttribute, collection, itemID, []models.Attribute{attr}))
}

// SetAttributes implements Client.
func (j *Journal) SetAttributes(ctx context.Context, collection uint32, itemID int, attrs []models.Attribute) (TxHandle, error) {
	return j.submit(ctx, setAttributesCall(OpSetAttributes, collection, itemID, attrs))
}

func (j *Journal) submit(ctx context.Context, call Call) (TxHandle, error) {
	payload, err := call.Encode()
	if err != nil {
		return TxHandle{}, fmt.Errorf("%w: %w", apperr.ErrSubmission, err)
	}
	digest := sha256.Sum256(payload)
	sig := ecdsa.Sign(j.key, digest[:])

	entry := JournalEntry{
		Hash:       hex.EncodeToString(digest[:]),
		Op:         call.Op,
		Collection: call.Collection,
		ItemID:     call.ItemID(),
		Payload:    payload,
		Signature:  hex.EncodeToString(sig.Serialize()),
		PublicKey:  j.PublicKey(),
		CreatedAt:  time.Now().UTC(),
	}
	seq, err := j.rec.AppendJournal(ctx, entry)
	if err != nil {
		return TxHandle{}, fmt.Errorf("chain: journal %s: %w: %w", call.Op, apperr.ErrSubmission, err)
	}
	return TxHandle{ID: entry.Hash, Sequence: seq}, nil
}

// VerifyEntry checks the signature of a journal entry against its payload.
func VerifyEntry(e JournalEntry) error {
	pubBytes, err := hex.DecodeString(e.PublicKey)
	if err != nil {
		return fmt.Errorf("chain: decode public key: %w", err)
	}
	pub, err := btcec.ParsePubKey(pubBytes)
	if err != nil {
		return fmt.Errorf("chain: parse public key: %w", err)
	}
	sigBytes, err := hex.DecodeString(e.Signature)
	if err != nil {
		return fmt.Errorf("chain: decode signature: %w", err)
	}
	sig, err := ecdsa.ParseDERSignature(sigBytes)
	if err != nil {
		return fmt.Errorf("chain: parse signature: %w", err)
	}
	digest := sha256.Sum256(e.Payload)
	if hex.EncodeToString(digest[:]) != e.Hash {
		return fmt.Errorf("chain: entry %d hash mismatch", e.Seq)
	}
	if !sig.Verify(digest[:], pub) {
		return fmt.Errorf("chain: entry %d signature invalid", e.Seq)
	}
	return nil
}

func parseSigningKey(raw string) (*btcec.PrivateKey, error) {
	candidate := strings.TrimPrefix(strings.TrimSpace(raw), "0x")
	if candidate == "" {
		key, err := btcec.NewPrivateKey()
		if err != nil {
			return nil, fmt.Errorf("chain: generate signing key: %w", err)
		}
		return key, nil
	}
	keyBytes, err := hex.DecodeString(candidate)
	if err != nil {
		return nil, fmt.Errorf("chain: decode signing key: %w", err)
	}
	if len(keyBytes) != btcec.PrivKeyBytesLen {
		return nil, fmt.Errorf("chain: signing key must be %d bytes, got %d", btcec.PrivKeyBytesLen, len(keyBytes))
	}
	key, _ := btcec.PrivKeyFromBytes(keyBytes)
	return key, nil
}
