// Package maintenance tracks service schedules, service records, reported
// issues and the per-bicycle history that links them.
package maintenance

import (
	"math"
	"math/bits"

	"github.com/goccy/go-json"

	"github.com/semanticallynull/bikeledger/internal/blockclock"
)

// Status is the urgency tier of a schedule. It is recomputed from events
// rather than stepped through in order.
type Status int

const (
	UpToDate Status = iota
	DueSoon
	Overdue
	InMaintenance
)

var statusNames = [...]string{"up-to-date", "due-soon", "overdue", "in-maintenance"}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return "unknown"
	}
	return statusNames[s]
}

func ParseStatus(v string) (Status, error) {
	for i, name := range statusNames {
		if name == v {
			return Status(i), nil
		}
	}
	return 0, ErrInvalidStatus
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Status) UnmarshalJSON(b []byte) error {
	return unmarshalEnum(b, ParseStatus, s)
}

// Intervals are the usage and calendar limits between two services.
type Intervals struct {
	Rides    uint64 `json:"intervalRides"`
	Distance uint64 `json:"intervalDistance"`
	Days     uint64 `json:"intervalDays"`
}

type Schedule struct {
	BicycleID            string    `json:"bicycleId"`
	LastMaintenanceBlock uint64    `json:"lastMaintenanceBlock"`
	NextMaintenanceDue   uint64    `json:"nextMaintenanceDue"`
	Intervals            Intervals `json:"intervals"`
	LifetimeCount        uint64    `json:"lifetimeMaintenanceCount"`
	Status               Status    `json:"status"`
}

// Due reports whether the schedule asks for service.
func (s Schedule) Due() bool {
	return s.Status == Overdue || s.Status == DueSoon
}

// nextDue is now plus the day interval in blocks, saturating.
func nextDue(now uint64, days uint64) uint64 {
	hi, blocks := bits.Mul64(days, blockclock.BlocksPerDay)
	if hi != 0 {
		return math.MaxUint64
	}
	sum, carry := bits.Add64(now, blocks, 0)
	if carry != 0 {
		return math.MaxUint64
	}
	return sum
}

// usageStatus derives the tier from usage since the last service. Reaching an
// interval is overdue, reaching 80% of one is due soon. ok is false below
// both thresholds, in which case the status stays as it is.
func (s Schedule) usageStatus(rides, distance uint64) (Status, bool) {
	iv := s.Intervals
	switch {
	case rides >= iv.Rides || distance >= iv.Distance:
		return Overdue, true
	case rides >= fourFifths(iv.Rides) || distance >= fourFifths(iv.Distance):
		return DueSoon, true
	}
	return s.Status, false
}

// fourFifths is the smallest integer that is at least 0.8*n.
func fourFifths(n uint64) uint64 {
	return n - n/5
}

func unmarshalEnum[T any](b []byte, parse func(string) (T, error), dst *T) error {
	var v string
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	parsed, err := parse(v)
	if err != nil {
		return err
	}
	*dst = parsed
	return nil
}
