package dashboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/terrycain/offline-cache-gateway/pkg/e"
)

const DateLayout = "2006-01-02"

// ValidateReportRange checks both dates are present, well formed, ordered and not in the future
// relative to now.
func ValidateReportRange(start, end string, now time.Time) error {
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)
	if start == "" || end == "" {
		return fmt.Errorf("%w: start and end dates are required", e.ErrInvalidReportRange)
	}

	startDate, err := time.Parse(DateLayout, start)
	if err != nil {
		return fmt.Errorf("%w: start date must be YYYY-MM-DD", e.ErrInvalidReportRange)
	}
	endDate, err := time.Parse(DateLayout, end)
	if err != nil {
		return fmt.Errorf("%w: end date must be YYYY-MM-DD", e.ErrInvalidReportRange)
	}

	if startDate.After(endDate) {
		return fmt.Errorf("%w: start date must be before end date", e.ErrInvalidReportRange)
	}
	today, _ := time.Parse(DateLayout, now.Format(DateLayout))
	if endDate.After(today) {
		return fmt.Errorf("%w: end date cannot be in the future", e.ErrInvalidReportRange)
	}
	return nil
}
