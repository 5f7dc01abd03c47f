package suggestions

import (
	"encoding/json"
	"fmt"
)

// EncodePaths serializes suggested paths for the suggested_paths column.
func EncodePaths(paths []string) (string, error) {
	if len(paths) == 0 {
		return "", ErrNoSuggestedPaths
	}
	data, err := json.Marshal(paths)
	if err != nil {
		return "", fmt.Errorf("encode suggested paths: %w", err)
	}
	return string(data), nil
}

// DecodePaths restores the ordered path list written by EncodePaths.
func DecodePaths(raw string) ([]string, error) {
	var paths []string
	if err := json.Unmarshal([]byte(raw), &paths); err != nil {
		return nil, fmt.Errorf("decode suggested paths: %w", err)
	}
	if len(paths) == 0 {
		return nil, ErrNoSuggestedPaths
	}
	return paths, nil
}
