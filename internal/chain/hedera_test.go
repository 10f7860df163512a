package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/starford/brewmint/internal/models"
)

const testOperatorKey = "302e020100300506032b65700422042091132178e72057a1d7528025956fe39b0b847f200ab59b2fdd367017f3087137"

func TestNormalizeNetwork(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", NetworkTestnet, false},
		{" MainNet ", NetworkMainnet, false},
		{"previewnet", NetworkPreviewnet, false},
		{"devnet", "", true},
	}
	for _, tt := range tests {
		got, err := NormalizeNetwork(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("NormalizeNetwork(%q) err = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("NormalizeNetwork(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewHederaValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  HederaConfig
	}{
		{"missing account", HederaConfig{OperatorKey: testOperatorKey}},
		{"bad account", HederaConfig{OperatorAccountID: "not-an-id", OperatorKey: testOperatorKey}},
		{"missing key", HederaConfig{OperatorAccountID: "0.0.1234"}},
		{"bad network", HederaConfig{Network: "moon", OperatorAccountID: "0.0.1234", OperatorKey: testOperatorKey}},
		{"bad topic", HederaConfig{OperatorAccountID: "0.0.1234", OperatorKey: testOperatorKey, TopicID: "topic"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewHedera(tt.cfg); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestNewHederaFixedTopic(t *testing.T) {
	h, err := NewHedera(HederaConfig{
		OperatorAccountID: "0.0.1234",
		OperatorKey:       testOperatorKey,
		TopicID:           "0.0.5678",
	})
	if err != nil {
		t.Fatalf("NewHedera: %v", err)
	}
	topic, ok := h.TopicFor(42)
	if !ok {
		t.Fatal("expected fixed topic for any collection")
	}
	if topic.String() != "0.0.5678" {
		t.Errorf("topic = %s", topic.String())
	}
}

func TestHederaBindCollection(t *testing.T) {
	h, err := NewHedera(HederaConfig{
		OperatorAccountID: "0.0.1234",
		OperatorKey:       testOperatorKey,
	})
	if err != nil {
		t.Fatalf("NewHedera: %v", err)
	}
	var _ Binder = h

	if _, ok := h.CollectionRef(3); ok {
		t.Fatal("no topic is bound before create or bind")
	}
	if _, err := h.SetMetadata(context.Background(), 3, 1, "bagaaiera", false); err == nil {
		t.Fatal("submission to an unbound collection must fail")
	}
	if err := h.BindCollection(3, "topic"); err == nil {
		t.Fatal("expected error for malformed topic id")
	}
	if err := h.BindCollection(3, "0.0.4321"); err != nil {
		t.Fatal(err)
	}
	ref, ok := h.CollectionRef(3)
	if !ok || ref != "0.0.4321" {
		t.Errorf("CollectionRef(3) = %q, %v", ref, ok)
	}
	if _, ok := h.CollectionRef(4); ok {
		t.Error("binding is per collection")
	}
}

func TestParseOperatorKey(t *testing.T) {
	if _, err := ParseOperatorKey(testOperatorKey); err != nil {
		t.Fatalf("ParseOperatorKey: %v", err)
	}
	if _, err := ParseOperatorKey("  "); err == nil {
		t.Error("expected error for empty key")
	}
}

func TestMessageRoundTripSmall(t *testing.T) {
	call := setMetadataCall(3, 9, "bagaaiera", false)
	msg, err := EncodeMessage(call)
	if err != nil {
		t.Fatalf("EncodeMessage: %v", err)
	}
	if !bytes.Contains(msg, []byte(`"op":"set_metadata"`)) {
		t.Errorf("small message should be plain JSON: %s", msg)
	}
	got, err := DecodeMessage(msg)
	if err != nil {
		t.Fatalf("DecodeMessage: %v", err)
	}
	if got.Op != OpSetMetadata || got.ItemID() != 9 || got.Data != "bagaaiera" {
		t.Errorf("decoded = %+v", got)
	}
}

func TestMessageRoundTripCompressed(t *testing.T) {
	attrs := make([]models.Attribute, 0, 64)
	for i := 0; i < 64; i++ {
		attrs = append(attrs, models.Attribute{TraitType: "layer", Value: strings.Repeat("x", 32)})
	}
	call := setAttributesCall(OpSetAttributes, 1, 0, attrs)
	msg, err := EncodeMessage(call)
	if err != nil {
		t.Fatalf("EncodeMessage: %v", err)
	}

	var env envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		t.Fatalf("envelope: %v", err)
	}
	if env.P != envelopeProtocol || !strings.HasPrefix(env.C, "data:application/json;base64,") {
		t.Fatalf("unexpected envelope %+v", env)
	}
	if len(msg) >= messageChunkSize*2 {
		t.Errorf("compressed message too large: %d", len(msg))
	}

	got, err := DecodeMessage(msg)
	if err != nil {
		t.Fatalf("DecodeMessage: %v", err)
	}
	if len(got.Attributes) != 64 || got.ItemID() != 0 {
		t.Errorf("decoded %d attributes, item %d", len(got.Attributes), got.ItemID())
	}
}

func TestDecodeMessageErrors(t *testing.T) {
	if _, err := DecodeMessage([]byte("not json")); err == nil {
		t.Error("expected decode error")
	}
	if _, err := DecodeMessage([]byte(`{"p":"brewmint","c":"plain"}`)); err == nil {
		t.Error("expected envelope error")
	}
}
