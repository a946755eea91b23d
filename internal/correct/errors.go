package correct

import "fmt"

// ServiceError is a failed or non-success call to the correction service.
// It is never retried here; the caller chooses between failing the export
// and keeping uncorrected text.
type ServiceError struct {
	StatusCode int // 0 when no response was received
	Message    string
	Err        error
}

func (e *ServiceError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("correction service status %d: %s", e.StatusCode, truncate(e.Message, 200))
	case e.Err != nil:
		return fmt.Sprintf("correction service: %v", e.Err)
	default:
		return "correction service: " + e.Message
	}
}

func (e *ServiceError) Unwrap() error { return e.Err }

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
