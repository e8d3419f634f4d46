package domain

import (
	"encoding/json"
	"fmt"
)

// OptionCount is the fixed number of answer choices per question.
const OptionCount = 4

// EncodeOptions serializes the option list for storage in a single text
// column. The list must hold exactly OptionCount entries.
func EncodeOptions(options []string) (string, error) {
	if len(options) != OptionCount {
		return "", fmt.Errorf("%w: expected %d options, got %d", ErrValidation, OptionCount, len(options))
	}
	raw, err := json.Marshal(options)
	if err != nil {
		return "", fmt.Errorf("encode options: %w", err)
	}
	return string(raw), nil
}

// DecodeOptions parses a stored options column back into the ordered option
// list. Any failure means the row is corrupt; callers must not degrade this
// to an empty list.
func DecodeOptions(raw string) ([]string, error) {
	var options []string
	if err := json.Unmarshal([]byte(raw), &options); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptOptions, err)
	}
	if len(options) != OptionCount {
		return nil, fmt.Errorf("%w: expected %d options, got %d", ErrCorruptOptions, OptionCount, len(options))
	}
	return options, nil
}
