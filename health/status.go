package health

import (
	"regexp"
	"strings"
	"time"
)

var (
	urlRegex        = regexp.MustCompile(`(https?|nats|wss?)://[^\s]+`)
	unixPathRegex   = regexp.MustCompile(`/[a-zA-Z0-9/_.-]+`)
	ipAddrRegex     = regexp.MustCompile(`\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`)
	portRegex       = regexp.MustCompile(`:\d{2,5}\b`)
	credentialRegex = regexp.MustCompile(`(?i)(password|token|secret|credential)[^a-zA-Z]*[:=][^,\s}]+`)
)

const (
	stateHealthy   = "healthy"
	stateDegraded  = "degraded"
	stateUnhealthy = "unhealthy"
)

// Status is the health of the controller or one of its parts
type Status struct {
	Component   string    `json:"component"`
	Healthy     bool      `json:"healthy"`
	Status      string    `json:"status"` // healthy, degraded or unhealthy
	Message     string    `json:"message"`
	Timestamp   time.Time `json:"timestamp"`
	SubStatuses []Status  `json:"sub_statuses,omitempty"`
}

// IsHealthy reports whether the status is healthy
func (s Status) IsHealthy() bool {
	return s.Status == stateHealthy
}

// IsDegraded reports whether the status is degraded
func (s Status) IsDegraded() bool {
	return s.Status == stateDegraded
}

// IsUnhealthy reports whether the status is unhealthy
func (s Status) IsUnhealthy() bool {
	return s.Status == stateUnhealthy
}

// WithSubStatus returns a copy of s with sub appended
func (s Status) WithSubStatus(sub Status) Status {
	subs := make([]Status, len(s.SubStatuses), len(s.SubStatuses)+1)
	copy(subs, s.SubStatuses)
	s.SubStatuses = append(subs, sub)
	return s
}

// FromError returns a healthy status for a nil error and an unhealthy one
// carrying the sanitized error text otherwise.
func FromError(component string, err error) Status {
	if err == nil {
		return NewHealthy(component, "OK")
	}
	return NewUnhealthy(component, sanitizeErrorMessage(err.Error()))
}

// sanitizeErrorMessage strips URLs, paths, addresses and credentials from an
// error message before it is exposed in a status.
func sanitizeErrorMessage(msg string) string {
	if msg == "" {
		return ""
	}

	sanitized := urlRegex.ReplaceAllString(msg, "[URL]")
	sanitized = unixPathRegex.ReplaceAllString(sanitized, "[PATH]")
	sanitized = ipAddrRegex.ReplaceAllString(sanitized, "[IP]")
	sanitized = portRegex.ReplaceAllString(sanitized, "[PORT]")

	lower := strings.ToLower(sanitized)
	for _, word := range []string{"password", "token", "secret", "credential"} {
		if strings.Contains(lower, word) {
			return credentialRegex.ReplaceAllString(sanitized, "[REDACTED]")
		}
	}
	return sanitized
}
