// Package cid computes deterministic content identifiers (CIDv1, sha2-256)
// for metadata documents and raw files.
package cid

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	gocid "github.com/ipfs/go-cid"
	mh "github.com/multiformats/go-multihash"
)

// Multicodec codes used when building identifiers.
const (
	CodecRaw  uint64 = 0x55
	CodecJSON uint64 = 0x0200
)

// ID is a CIDv1 rendered in its default base32 form.
type ID string

func (id ID) String() string { return string(id) }

// Codec returns the multicodec the identifier was built with.
func (id ID) Codec() (uint64, error) {
	c, err := gocid.Decode(string(id))
	if err != nil {
		return 0, fmt.Errorf("cid: decode %q: %w", id, err)
	}
	return c.Type(), nil
}

// Parse validates s and returns it in canonical string form.
func Parse(s string) (ID, error) {
	c, err := gocid.Decode(s)
	if err != nil {
		return "", fmt.Errorf("cid: decode %q: %w", s, err)
	}
	return ID(c.String()), nil
}

// Canonicalize re-encodes a JSON document compactly with sorted object keys.
// Number literals are preserved as written.
func Canonicalize(raw []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("cid: decode json: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("cid: trailing data after json document")
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("cid: encode json: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// FromJSON computes the identifier of v's canonical JSON encoding.
func FromJSON(v any) (ID, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("cid: marshal: %w", err)
	}
	canonical, err := Canonicalize(raw)
	if err != nil {
		return "", err
	}
	return sum(CodecJSON, canonical)
}

// FromBytes computes the identifier of data exactly as given.
func FromBytes(data []byte) (ID, error) {
	return sum(CodecRaw, data)
}

// Compute returns the canonical JSON identifier when data is a UTF-8 JSON
// document and the raw identifier otherwise, so that reformatting a metadata
// file does not change its identity. Canonicalizing replaces invalid UTF-8
// with U+FFFD, so such documents are hashed as given.
func Compute(data []byte) (ID, error) {
	if utf8.Valid(data) && json.Valid(data) {
		canonical, err := Canonicalize(data)
		if err != nil {
			return "", err
		}
		return sum(CodecJSON, canonical)
	}
	return FromBytes(data)
}

// Checksum returns the hex-encoded SHA-256 digest of data.
func Checksum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

func sum(codec uint64, data []byte) (ID, error) {
	hash, err := mh.Sum(data, mh.SHA2_256, -1)
	if err != nil {
		return "", fmt.Errorf("cid: hash: %w", err)
	}
	return ID(gocid.NewCidV1(codec, hash).String()), nil
}
