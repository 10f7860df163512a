package chain

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/andybalholm/brotli"
	hedera "github.com/hashgraph/hedera-sdk-go/v2"

	"github.com/starford/brewmint/internal/apperr"
	"github.com/starford/brewmint/internal/models"
)

// Hedera networks.
const (
	NetworkMainnet    = "mainnet"
	NetworkTestnet    = "testnet"
	NetworkPreviewnet = "previewnet"
)

// messageChunkSize is the payload size above which messages are compressed.
const messageChunkSize = 1024

const envelopeProtocol = "brewmint"

// HederaConfig configures the Hedera client.
type HederaConfig struct {
	Network           string
	TopicID           string
	OperatorAccountID string
	OperatorKey       string
}

// Hedera publishes calls to a consensus topic per collection. A configured
// TopicID is used for every collection; otherwise CreateCollection creates a
// topic with the operator as submit key.
type Hedera struct {
	client      *hedera.Client
	operatorKey hedera.PrivateKey
	fixedTopic  *hedera.TopicID

	mu     sync.RWMutex
	topics map[uint32]hedera.TopicID
}

// envelope wraps compressed payloads.
type envelope struct {
	P string `json:"p"`
	C string `json:"c"`
}

// NormalizeNetwork lower-cases network and defaults it to testnet.
func NormalizeNetwork(network string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(network))
	if normalized == "" {
		return NetworkTestnet, nil
	}
	switch normalized {
	case NetworkMainnet, NetworkTestnet, NetworkPreviewnet:
		return normalized, nil
	default:
		return "", fmt.Errorf("chain: unsupported network %q", network)
	}
}

// NewHedera creates a Hedera client with the operator as payer and signer.
func NewHedera(cfg HederaConfig) (*Hedera, error) {
	network, err := NormalizeNetwork(cfg.Network)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.OperatorAccountID) == "" {
		return nil, fmt.Errorf("chain: operator account ID is required")
	}
	operatorID, err := hedera.AccountIDFromString(strings.TrimSpace(cfg.OperatorAccountID))
	if err != nil {
		return nil, fmt.Errorf("chain: invalid operator account ID: %w", err)
	}
	operatorKey, err := ParseOperatorKey(cfg.OperatorKey)
	if err != nil {
		return nil, err
	}

	h := &Hedera{
		operatorKey: operatorKey,
		topics:      map[uint32]hedera.TopicID{},
	}
	if topic := strings.TrimSpace(cfg.TopicID); topic != "" {
		topicID, err := hedera.TopicIDFromString(topic)
		if err != nil {
			return nil, fmt.Errorf("chain: invalid topic ID: %w", err)
		}
		h.fixedTopic = &topicID
	}

	switch network {
	case NetworkMainnet:
		h.client = hedera.ClientForMainnet()
	case NetworkPreviewnet:
		h.client = hedera.ClientForPreviewnet()
	default:
		h.client = hedera.ClientForTestnet()
	}
	h.client.SetOperator(operatorID, operatorKey)
	return h, nil
}

// ParseOperatorKey accepts ED25519, ECDSA or DER encoded private keys.
func ParseOperatorKey(raw string) (hedera.PrivateKey, error) {
	candidate := strings.TrimSpace(raw)
	if candidate == "" {
		return hedera.PrivateKey{}, fmt.Errorf("chain: operator key cannot be empty")
	}
	if key, err := hedera.PrivateKeyFromStringEd25519(candidate); err == nil {
		return key, nil
	}
	if key, err := hedera.PrivateKeyFromStringECDSA(candidate); err == nil {
		return key, nil
	}
	key, err := hedera.PrivateKeyFromString(candidate)
	if err != nil {
		return hedera.PrivateKey{}, fmt.Errorf("chain: parse operator key: %w", err)
	}
	return key, nil
}

// CreateCollection implements Client.
func (h *Hedera) CreateCollection(ctx context.Context, collection uint32) (TxHandle, error) {
	if h.fixedTopic != nil {
		h.setTopic(collection, *h.fixedTopic)
		return h.submit(ctx, Call{Op: OpCreateCollection, Collection: collection})
	}

	response, err := hedera.NewTopicCreateTransaction().
		SetTopicMemo(fmt.Sprintf("%s:collection:%d", envelopeProtocol, collection)).
		SetAdminKey(h.operatorKey.PublicKey()).
		SetSubmitKey(h.operatorKey.PublicKey()).
		Execute(h.client)
	if err != nil {
		return TxHandle{}, fmt.Errorf("chain: create topic: %w: %w", apperr.ErrSubmission, err)
	}
	receipt, err := response.GetReceipt(h.client)
	if err != nil {
		return TxHandle{}, fmt.Errorf("chain: create topic receipt: %w: %w", apperr.ErrSubmission, err)
	}
	if receipt.TopicID == nil {
		return TxHandle{}, fmt.Errorf("chain: topic ID missing in receipt: %w", apperr.ErrSubmission)
	}
	h.setTopic(collection, *receipt.TopicID)

	return TxHandle{ID: response.TransactionID.String()}, nil
}

// SetMetadata implements Client.
func (h *Hedera) SetMetadata(ctx context.Context, collection uint32, itemID int, data string, frozen bool) (TxHandle, error) {
	return h.submit(ctx, setMetadataCall(collection, itemID, data, frozen))
}

// SetAttribute implements Client.
func (h *Hedera) SetAttribute(ctx context.Context, collection uint32, itemID int, attr models.Attribute) (TxHandle, error) {
	return h.submit(ctx, setAttributesCall(OpSetAttribute, collection, itemID, []models.Attribute{attr}))
}

// SetAttributes implements Client. A single topic message carries the
// whole batch, so consumers observe all attributes at once.
func (h *Hedera) SetAttributes(ctx context.Context, collection uint32, itemID int, attrs []models.Attribute) (TxHandle, error) {
	return h.submit(ctx, setAttributesCall(OpSetAttributes, collection, itemID, attrs))
}

// Close releases the network connections of the client.
func (h *Hedera) Close() error {
	return h.client.Close()
}

// TopicFor returns the topic bound to collection.
func (h *Hedera) TopicFor(collection uint32) (hedera.TopicID, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	topic, ok := h.topics[collection]
	if !ok && h.fixedTopic != nil {
		return *h.fixedTopic, true
	}
	return topic, ok
}

// CollectionRef returns the topic id bound to collection.
func (h *Hedera) CollectionRef(collection uint32) (string, bool) {
	topic, ok := h.TopicFor(collection)
	if !ok {
		return "", false
	}
	return topic.String(), true
}

// BindCollection routes the messages of collection to the topic ref.
func (h *Hedera) BindCollection(collection uint32, ref string) error {
	topic, err := hedera.TopicIDFromString(ref)
	if err != nil {
		return fmt.Errorf("chain: collection %d topic %q: %w", collection, ref, err)
	}
	h.setTopic(collection, topic)
	return nil
}

func (h *Hedera) setTopic(collection uint32, topic hedera.TopicID) {
	h.mu.Lock()
	h.topics[collection] = topic
	h.mu.Unlock()
}

func (h *Hedera) submit(_ context.Context, call Call) (TxHandle, error) {
	topic, ok := h.TopicFor(call.Collection)
	if !ok {
		return TxHandle{}, fmt.Errorf("chain: collection %d has no topic, create it first: %w", call.Collection, apperr.ErrSubmission)
	}
	payload, err := EncodeMessage(call)
	if err != nil {
		return TxHandle{}, fmt.Errorf("%w: %w", apperr.ErrSubmission, err)
	}

	response, err := hedera.NewTopicMessageSubmitTransaction().
		SetTopicID(topic).
		SetMessage(payload).
		SetTransactionMemo(fmt.Sprintf("%s:%s", envelopeProtocol, call.Op)).
		Execute(h.client)
	if err != nil {
		return TxHandle{}, fmt.Errorf("chain: submit %s: %w: %w", call.Op, apperr.ErrSubmission, err)
	}
	receipt, err := response.GetReceipt(h.client)
	if err != nil {
		return TxHandle{}, fmt.Errorf("chain: %s receipt: %w: %w", call.Op, apperr.ErrSubmission, err)
	}

	return TxHandle{
		ID:       response.TransactionID.String(),
		Sequence: int64(receipt.TopicSequenceNumber),
	}, nil
}

// EncodeMessage returns the topic message for call. Payloads larger than
// one chunk are brotli compressed and wrapped in a data URL envelope.
func EncodeMessage(call Call) ([]byte, error) {
	payload, err := call.Encode()
	if err != nil {
		return nil, err
	}
	if len(payload) <= messageChunkSize {
		return payload, nil
	}

	var buf bytes.Buffer
	w := brotli.NewWriterLevel(&buf, brotli.BestCompression)
	if _, err := w.Write(payload); err != nil {
		return nil, fmt.Errorf("chain: compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("chain: compress: %w", err)
	}

	wrapped, err := json.Marshal(envelope{
		P: envelopeProtocol,
		C: "data:application/json;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()),
	})
	if err != nil {
		return nil, fmt.Errorf("chain: encode envelope: %w", err)
	}
	return wrapped, nil
}

// DecodeMessage reverses EncodeMessage.
func DecodeMessage(message []byte) (Call, error) {
	var env envelope
	if err := json.Unmarshal(message, &env); err == nil && env.P == envelopeProtocol && env.C != "" {
		_, encoded, found := strings.Cut(env.C, ";base64,")
		if !found {
			return Call{}, fmt.Errorf("chain: envelope is not a base64 data url")
		}
		compressed, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return Call{}, fmt.Errorf("chain: decode envelope: %w", err)
		}
		message, err = io.ReadAll(brotli.NewReader(bytes.NewReader(compressed)))
		if err != nil {
			return Call{}, fmt.Errorf("chain: decompress: %w", err)
		}
	}

	var call Call
	if err := json.Unmarshal(message, &call); err != nil {
		return Call{}, fmt.Errorf("chain: decode call: %w", err)
	}
	return call, nil
}
