package saveport

import "encoding/json"

// JSONSaveable adapts a typed state snapshot to the Saveable contract,
// marshaling through encoding/json at the boundary so the core never sees
// the concrete state type.
type JSONSaveable[T any] struct {
	key      string
	filename string
	capture  func() T
	restore  func(T)
}

// NewJSONSaveable builds a Saveable from a pair of typed accessors.
// capture is read on save; restore receives the decoded snapshot on load,
// or the zero value of T when no prior data exists.
func NewJSONSaveable[T any](key, filename string, capture func() T, restore func(T)) *JSONSaveable[T] {
	return &JSONSaveable[T]{
		key:      key,
		filename: filename,
		capture:  capture,
		restore:  restore,
	}
}

func (s *JSONSaveable[T]) Key() string      { return s.key }
func (s *JSONSaveable[T]) Filename() string { return s.filename }

func (s *JSONSaveable[T]) CaptureState() ([]byte, error) {
	return json.Marshal(s.capture())
}

func (s *JSONSaveable[T]) RestoreState(data []byte) error {
	var state T
	if len(data) > 0 {
		if err := json.Unmarshal(data, &state); err != nil {
			return err
		}
	}
	s.restore(state)
	return nil
}
