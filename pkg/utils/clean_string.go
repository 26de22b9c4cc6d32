package utils

import "strings"

// SplitClean splits value on sep, dropping blank items and surrounding spaces.
func SplitClean(value, sep string) []string {
	if value == "" {
		return []string{}
	}
	return CleanStringSlice(strings.Split(value, sep))
}

func CleanStringSlice(parts []string) []string {
	result := make([]string, 0, len(parts))
	for _, item := range parts {
		if cleaned := strings.TrimSpace(item); cleaned != "" {
			result = append(result, cleaned)
		}
	}
	return result
}

// ContainsFold reports whether any item equals value, ignoring case.
func ContainsFold(items []string, value string) bool {
	for _, item := range items {
		if strings.EqualFold(item, value) {
			return true
		}
	}
	return false
}

// FirstNonEmpty returns the first value that is not blank.
func FirstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
