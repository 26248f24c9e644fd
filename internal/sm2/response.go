package sm2

import (
	"encoding"
	"encoding/json"
	"errors"
	"fmt"
)

// Response is the learner's grade for a single review.
type Response int

const (
	Again Response = iota + 1 // failed recall
	Good                      // correct with effort
	Easy                      // correct, trivial
)

// ErrInvalidResponse is returned when decoding a response name or number
// that is not one of Again, Good, Easy.
var ErrInvalidResponse = errors.New("sm2: invalid response")

var (
	responseNames  = [...]string{Again: "Again", Good: "Good", Easy: "Easy"}
	responseByName = map[string]Response{
		"Again": Again,
		"Good":  Good,
		"Easy":  Easy,
	}
)

var (
	_ fmt.Stringer             = Response(0)
	_ json.Marshaler           = Response(0)
	_ json.Unmarshaler         = (*Response)(nil)
	_ encoding.TextMarshaler   = Response(0)
	_ encoding.TextUnmarshaler = (*Response)(nil)
)

// String returns the response name ("Again", "Good", "Easy").
// For invalid values it returns "Response(n)".
func (r Response) String() string {
	if r.IsValid() {
		return responseNames[r]
	}
	return fmt.Sprintf("Response(%d)", int(r))
}

// IsValid reports whether r is one of the three defined responses.
func (r Response) IsValid() bool {
	return r >= Again && r <= Easy
}

// MarshalText implements encoding.TextMarshaler.
func (r Response) MarshalText() ([]byte, error) {
	if !r.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidResponse, int(r))
	}
	return []byte(responseNames[r]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Response) UnmarshalText(text []byte) error {
	v, ok := responseByName[string(text)]
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidResponse, text)
	}
	*r = v
	return nil
}

// MarshalJSON implements json.Marshaler. Response serializes as a JSON string.
func (r Response) MarshalJSON() ([]byte, error) {
	text, err := r.MarshalText()
	if err != nil {
		return nil, err
	}
	return json.Marshal(string(text))
}

// UnmarshalJSON implements json.Unmarshaler. Expects a JSON string.
func (r *Response) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidResponse, data)
	}
	return r.UnmarshalText([]byte(s))
}
