package consumer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"filepilot/internal/suggestions"
)

// ErrMalformed marks payloads that can never be stored.
var ErrMalformed = errors.New("malformed suggestion message")

// Message is the wire shape published by the producer.
type Message struct {
	FileName     string   `json:"fileName"`
	Size         int64    `json:"size"`
	DownloadDate string   `json:"downloadDate"`
	SrcPath      string   `json:"srcPath"`
	Summary      string   `json:"summary"`
	Suggestions  []string `json:"suggestions"`
}

// ParseResult is either Parsed or Malformed.
type ParseResult interface {
	parseResult()
}

// Parsed carries a candidate ready for the store.
type Parsed struct {
	Candidate suggestions.Candidate
}

// Malformed explains why a payload was refused.
type Malformed struct {
	Reason string
}

func (Parsed) parseResult()    {}
func (Malformed) parseResult() {}

// Err wraps the reason in ErrMalformed.
func (m Malformed) Err() error {
	return fmt.Errorf("%w: %s", ErrMalformed, m.Reason)
}

// Parse validates a delivery body against the message schema. Unknown fields
// are ignored; every required field must be present with the right type.
func Parse(body []byte) ParseResult {
	if !utf8.Valid(body) {
		return Malformed{Reason: "body is not valid UTF-8"}
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return Malformed{Reason: "invalid JSON: " + err.Error()}
	}
	if dec.More() {
		return Malformed{Reason: "trailing data after JSON object"}
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return Malformed{Reason: "payload is not a JSON object"}
	}

	var (
		cand suggestions.Candidate
		err  error
	)
	if cand.FileName, err = requireString(obj, "fileName"); err != nil {
		return Malformed{Reason: err.Error()}
	}
	if strings.TrimSpace(cand.FileName) == "" {
		return Malformed{Reason: "fileName is blank"}
	}
	if cand.FileSize, err = requireSize(obj, "size"); err != nil {
		return Malformed{Reason: err.Error()}
	}
	if cand.DownloadDate, err = requireString(obj, "downloadDate"); err != nil {
		return Malformed{Reason: err.Error()}
	}
	if cand.CurrentPath, err = requireString(obj, "srcPath"); err != nil {
		return Malformed{Reason: err.Error()}
	}
	if cand.Summary, err = requireString(obj, "summary"); err != nil {
		return Malformed{Reason: err.Error()}
	}
	if cand.SuggestedPaths, err = requirePaths(obj, "suggestions"); err != nil {
		return Malformed{Reason: err.Error()}
	}
	return Parsed{Candidate: cand}
}

func requireString(obj map[string]any, key string) (string, error) {
	v, ok := obj[key]
	if !ok {
		return "", fmt.Errorf("missing field %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("field %q must be a string", key)
	}
	return s, nil
}

func requireSize(obj map[string]any, key string) (int64, error) {
	v, ok := obj[key]
	if !ok {
		return 0, fmt.Errorf("missing field %q", key)
	}
	num, ok := v.(json.Number)
	if !ok {
		return 0, fmt.Errorf("field %q must be a number", key)
	}
	if n, err := num.Int64(); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("field %q must not be negative", key)
		}
		return n, nil
	}
	f, err := num.Float64()
	// float64(math.MaxInt64) rounds up to 2^63, which int64 cannot hold.
	if err != nil || f != math.Trunc(f) || f >= math.MaxInt64 {
		return 0, fmt.Errorf("field %q must be a whole number of bytes", key)
	}
	if f < 0 {
		return 0, fmt.Errorf("field %q must not be negative", key)
	}
	return int64(f), nil
}

func requirePaths(obj map[string]any, key string) ([]string, error) {
	v, ok := obj[key]
	if !ok {
		return nil, fmt.Errorf("missing field %q", key)
	}
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("field %q must be an array", key)
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("field %q must not be empty", key)
	}
	paths := make([]string, 0, len(list))
	for i, item := range list {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("%s[%d] must be a string", key, i)
		}
		if strings.TrimSpace(s) == "" {
			return nil, fmt.Errorf("%s[%d] is blank", key, i)
		}
		paths = append(paths, s)
	}
	return paths, nil
}
