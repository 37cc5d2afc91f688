package wire

import (
	"encoding/json"
	"fmt"
)

// Envelope is the self-describing wrapper every message travels in: a tag
// naming the concrete Go type, plus its JSON-encoded payload. Unknown tags
// are logged and dropped by the caller without touching any role state.
type Envelope struct {
	Tag     string          `json:"tag"`
	Payload json.RawMessage `json:"payload"`
}

var constructors = map[string]func() Message{
	"Request":  func() Message { return &Request{} },
	"Response": func() Message { return &Response{} },
	"Propose":  func() Message { return &Propose{} },
	"Decision": func() Message { return &Decision{} },
	"Phase1a":  func() Message { return &Phase1a{} },
	"Phase1b":  func() Message { return &Phase1b{} },
	"Phase2a":  func() Message { return &Phase2a{} },
	"Phase2b":  func() Message { return &Phase2b{} },
	"Identify": func() Message { return &Identify{} },
}

func tagOf(m Message) (string, error) {
	switch m.(type) {
	case Request, *Request:
		return "Request", nil
	case Response, *Response:
		return "Response", nil
	case Propose, *Propose:
		return "Propose", nil
	case Decision, *Decision:
		return "Decision", nil
	case Phase1a, *Phase1a:
		return "Phase1a", nil
	case Phase1b, *Phase1b:
		return "Phase1b", nil
	case Phase2a, *Phase2a:
		return "Phase2a", nil
	case Phase2b, *Phase2b:
		return "Phase2b", nil
	case Identify, *Identify:
		return "Identify", nil
	default:
		return "", fmt.Errorf("wire: unregistered message type %T", m)
	}
}

// Encode wraps m in a tagged envelope ready for marshaling onto the
// datagram transport.
func Encode(m Message) (Envelope, error) {
	tag, err := tagOf(m)
	if err != nil {
		return Envelope{}, err
	}
	payload, err := json.Marshal(m)
	if err != nil {
		return Envelope{}, fmt.Errorf("wire: marshal %s: %w", tag, err)
	}
	return Envelope{Tag: tag, Payload: payload}, nil
}

// ErrUnknownTag is returned by Decode when an envelope's tag has no
// registered constructor. Callers must log and drop the datagram rather
// than treat this as fatal, per the transport-level-loss error class.
var ErrUnknownTag = fmt.Errorf("wire: unknown message tag")

// Decode unwraps an envelope back into its concrete Message. A malformed
// payload or unregistered tag returns an error; it never panics, since
// datagrams may be truncated or corrupted in transit.
func Decode(env Envelope) (Message, error) {
	ctor, ok := constructors[env.Tag]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTag, env.Tag)
	}
	m := ctor()
	if err := json.Unmarshal(env.Payload, m); err != nil {
		return nil, fmt.Errorf("wire: unmarshal %s: %w", env.Tag, err)
	}
	switch v := m.(type) {
	case *Request:
		return *v, nil
	case *Response:
		return *v, nil
	case *Propose:
		return *v, nil
	case *Decision:
		return *v, nil
	case *Phase1a:
		return *v, nil
	case *Phase1b:
		return *v, nil
	case *Phase2a:
		return *v, nil
	case *Phase2b:
		return *v, nil
	case *Identify:
		return *v, nil
	default:
		return m, nil
	}
}

// Marshal serializes an Envelope to bytes for one datagram.
func Marshal(env Envelope) ([]byte, error) {
	return json.Marshal(env)
}

// Unmarshal parses one datagram's bytes into an Envelope.
func Unmarshal(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("wire: malformed envelope: %w", err)
	}
	return env, nil
}
