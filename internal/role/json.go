package role

import (
	"encoding/json"
	"fmt"
)

// MarshalJSON renders a Role as its lowercase name.
func (r Role) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// UnmarshalJSON parses the lowercase name produced by MarshalJSON.
func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, ok := Parse(s)
	if !ok {
		return fmt.Errorf("role: unknown role %q", s)
	}
	*r = parsed
	return nil
}
