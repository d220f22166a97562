package tss

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// Broadcast is the recipient index of a message addressed to every peer.
const Broadcast = 0

// Message is the envelope a transport uses to carry one share between parties.
// The protocol core never sees it; orchestrators wrap and unwrap shares.
type Message struct {
	SessionID string          `json:"session_id"`
	Phase     string          `json:"phase"`
	From      int             `json:"from"`
	To        int             `json:"to"`
	Payload   json.RawMessage `json:"payload"`
}

// IsBroadcast returns true if the message is intended for all parties.
func (m *Message) IsBroadcast() bool {
	return m.To == Broadcast
}

// NewMessage serializes payload into an envelope.
func NewMessage(session, phase string, from, to int, payload interface{}) (*Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrapf(err, "marshal %s payload", phase)
	}
	return &Message{
		SessionID: session,
		Phase:     phase,
		From:      from,
		To:        to,
		Payload:   raw,
	}, nil
}

// Decode unmarshals the payload into v.
func (m *Message) Decode(v interface{}) error {
	if err := json.Unmarshal(m.Payload, v); err != nil {
		return errors.Wrapf(ErrDecode, "%s payload from party %d: %v", m.Phase, m.From, err)
	}
	return nil
}
