package paxosid

import "encoding/json"

// MarshalJSON renders a NodeID as its canonical UUID string, so wire
// envelopes and registry rows stay human-readable.
func (id NodeID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.String())
}

// UnmarshalJSON parses the canonical UUID string form produced by
// MarshalJSON.
func (id *NodeID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseNodeID(s)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
