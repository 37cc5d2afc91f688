package statemachine

import (
	"encoding/json"
	"fmt"

	"github.com/senutpal/quorum/internal/command"
)

// KV is the example deterministic state machine the cmd/ binaries wire in
// by default: a plain string-to-string register. Command.Op is the JSON
// encoding of a KVOp; the reply carries the key's prior value, if any.
type KV map[string]string

// KVOp is the payload a client's Command.Op carries for the KV state
// machine. Op is "set" or "get"; Value is ignored for "get".
type KVOp struct {
	Op    string `json:"op"`
	Key   string `json:"key"`
	Value string `json:"value"`
}

// NewKV returns an empty register.
func NewKV() KV {
	return KV{}
}

// ApplyKV implements Applier[KV]. It is a plain function rather than a
// method so it can be passed directly wherever an Applier[KV] is expected.
func ApplyKV(state KV, cmd command.Command) (KV, Reply) {
	var op KVOp
	if err := json.Unmarshal(cmd.Op, &op); err != nil {
		return state, Reply{Text: "error", Result: []byte(fmt.Sprintf("bad op: %v", err))}
	}
	switch op.Op {
	case "set":
		prior, had := state[op.Key]
		next := cloneKV(state)
		next[op.Key] = op.Value
		if !had {
			return next, Reply{Text: "ok", Result: nil}
		}
		return next, Reply{Text: "ok", Result: []byte(prior)}
	case "get":
		v, ok := state[op.Key]
		if !ok {
			return state, Reply{Text: "not found", Result: nil}
		}
		return state, Reply{Text: "ok", Result: []byte(v)}
	default:
		return state, Reply{Text: "error", Result: []byte("unknown op " + op.Op)}
	}
}

func cloneKV(state KV) KV {
	next := make(KV, len(state)+1)
	for k, v := range state {
		next[k] = v
	}
	return next
}
