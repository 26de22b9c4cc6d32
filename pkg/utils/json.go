package utils

import (
	"encoding/json"
	"net/http"
)

// MarshalHeader encodes response headers for a text column.
func MarshalHeader(h http.Header) (string, error) {
	if h == nil {
		h = http.Header{}
	}
	b, err := json.Marshal(h)
	return string(b), err
}

func UnmarshalHeader(value string) (http.Header, error) {
	h := http.Header{}
	if value == "" {
		return h, nil
	}
	err := json.Unmarshal([]byte(value), &h)
	return h, err
}

func MarshalMetadata(m map[string]string) (string, error) {
	if m == nil {
		m = map[string]string{}
	}
	b, err := json.Marshal(m)
	return string(b), err
}

func UnmarshalMetadata(value string) (map[string]string, error) {
	m := map[string]string{}
	if value == "" {
		return m, nil
	}
	err := json.Unmarshal([]byte(value), &m)
	return m, err
}
