// Package oracleevents defines the randomness coordinator topics and payloads.
package oracleevents

import (
	"strconv"
	"strings"
	"time"
)

const (
	// RandomWordsRequestedV1 is emitted when the coordinator accepted a request.
	RandomWordsRequestedV1 = "oracle.randomness.requested.v1"
	// RandomWordsFulfilledV1 is the base topic of signed fulfillments. Deliveries
	// are scoped to the consumer address: RandomWordsFulfilledV1 + "." + consumer.
	RandomWordsFulfilledV1 = "oracle.randomness.fulfilled.v1"
)

// StreamName is the JetStream stream holding every oracle subject.
const StreamName = "oracle"

// StreamSubjects lists the subjects captured by StreamName.
var StreamSubjects = []string{"oracle.>"}

// RandomWordsRequestedPayloadV1 describes an accepted randomness request.
type RandomWordsRequestedPayloadV1 struct {
	RequestID            int64     `json:"request_id"`
	SubscriptionID       int64     `json:"subscription_id"`
	Consumer             string    `json:"consumer"`
	KeyHash              string    `json:"key_hash"`
	RequestConfirmations uint16    `json:"request_confirmations"`
	CallbackGasLimit     uint32    `json:"callback_gas_limit"`
	NumWords             uint32    `json:"num_words"`
	FulfillAfter         time.Time `json:"fulfill_after"`
}

// RandomWordsFulfilledPayloadV1 is a signed fulfillment. RandomWords are
// base-10 encoded uint256 values. Signature is the base64url nkey signature of
// SigningBytes() made by Oracle.
type RandomWordsFulfilledPayloadV1 struct {
	RequestID   int64    `json:"request_id"`
	Consumer    string   `json:"consumer"`
	RandomWords []string `json:"random_words"`
	Oracle      string   `json:"oracle"`
	Signature   string   `json:"signature"`
}

// SigningBytes is the canonical byte form covered by the signature.
func (p *RandomWordsFulfilledPayloadV1) SigningBytes() []byte {
	var b strings.Builder
	b.WriteString(strconv.FormatInt(p.RequestID, 10))
	b.WriteByte('|')
	b.WriteString(p.Consumer)
	b.WriteByte('|')
	b.WriteString(strings.Join(p.RandomWords, ","))
	return []byte(b.String())
}
