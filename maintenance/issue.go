package maintenance

import "github.com/goccy/go-json"

type Severity int

const (
	Low Severity = iota
	Medium
	High
	Critical
)

var severityNames = [...]string{"low", "medium", "high", "critical"}

func (s Severity) String() string {
	if s < 0 || int(s) >= len(severityNames) {
		return "unknown"
	}
	return severityNames[s]
}

func ParseSeverity(v string) (Severity, error) {
	for i, name := range severityNames {
		if name == v {
			return Severity(i), nil
		}
	}
	return 0, ErrInvalidSeverity
}

func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Severity) UnmarshalJSON(b []byte) error {
	return unmarshalEnum(b, ParseSeverity, s)
}

type IssueStatus int

const (
	Reported IssueStatus = iota
	Verified
	InRepair
	Resolved
	Invalid
)

var issueStatusNames = [...]string{"reported", "verified", "in-repair", "resolved", "invalid"}

func (s IssueStatus) String() string {
	if s < 0 || int(s) >= len(issueStatusNames) {
		return "unknown"
	}
	return issueStatusNames[s]
}

func ParseIssueStatus(v string) (IssueStatus, error) {
	for i, name := range issueStatusNames {
		if name == v {
			return IssueStatus(i), nil
		}
	}
	return 0, ErrInvalidStatus
}

func (s IssueStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *IssueStatus) UnmarshalJSON(b []byte) error {
	return unmarshalEnum(b, ParseIssueStatus, s)
}

// Issue is a problem reported against a bicycle by any caller.
type Issue struct {
	ID          string      `json:"id"`
	BicycleID   string      `json:"bicycleId"`
	ReportedBy  string      `json:"reportedBy"`
	ReportedAt  uint64      `json:"reportedAt"`
	Type        string      `json:"type"`
	Description string      `json:"description"`
	Severity    Severity    `json:"severity"`
	Status      IssueStatus `json:"status"`
	// Resolution fields stay empty until the issue is resolved.
	ResolutionNotes string `json:"resolutionNotes"`
	ResolvedAt      uint64 `json:"resolvedAt"`
	ResolvedBy      string `json:"resolvedBy"`
}

// Open is true until the issue is resolved or dismissed as invalid.
func (i Issue) Open() bool {
	return i.Status != Resolved && i.Status != Invalid
}

// Record is an immutable service entry.
type Record struct {
	BicycleID       string   `json:"bicycleId"`
	RecordID        string   `json:"recordId"`
	Type            string   `json:"type"`
	PerformedBy     string   `json:"performedBy"`
	PerformedAt     uint64   `json:"performedAt"`
	PartsReplaced   []string `json:"partsReplaced"`
	Notes           string   `json:"notes"`
	Cost            uint64   `json:"cost"`
	DurationMinutes uint64   `json:"durationMinutes"`
	NextDue         uint64   `json:"nextMaintenanceDue"`
}

// RecordKey addresses a record within its bicycle's namespace.
type RecordKey struct {
	BicycleID string `json:"bicycleId"`
	RecordID  string `json:"recordId"`
}

// RecordInput is what a mechanic reports when recording a service.
type RecordInput struct {
	BicycleID       string
	RecordID        string
	Type            string
	PartsReplaced   []string
	Notes           string
	Cost            uint64
	DurationMinutes uint64
}
