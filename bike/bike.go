// Package bike is the bicycle and station registry.
package bike

import (
	"github.com/goccy/go-json"

	"github.com/semanticallynull/bikeledger/station"
)

type Status int

const (
	Available Status = iota
	InUse
	Maintenance
	Retired
)

var statusNames = [...]string{"available", "in-use", "maintenance", "retired"}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return "unknown"
	}
	return statusNames[s]
}

// ParseStatus accepts exactly the four status names.
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
	var v string
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	parsed, err := ParseStatus(v)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Totals accumulate over the life of a bicycle.
type Totals struct {
	Rides    uint64 `json:"rides"`
	Distance uint64 `json:"distance"`
	Earnings uint64 `json:"earnings"`
}

// Bicycle is a registered bicycle. It exists only while docked at exactly
// one station, recorded in StationID.
type Bicycle struct {
	ID string `json:"id"`
	// Owner is the identity that registered the bicycle.
	Owner     string           `json:"owner"`
	StationID string           `json:"stationId"`
	Status    Status           `json:"status"`
	Type      string           `json:"type"`
	Model     string           `json:"model"`
	Location  station.Location `json:"location"`
	// HourlyRate is in the smallest currency unit.
	HourlyRate          uint64 `json:"hourlyRate"`
	Totals              Totals `json:"totals"`
	RegistrationDate    uint64 `json:"registrationDate"`
	LastMaintenanceDate uint64 `json:"lastMaintenanceDate"`
}

// Attributes are the caller-supplied fields of a new bicycle.
type Attributes struct {
	Owner      string
	Type       string
	Model      string
	Location   station.Location
	HourlyRate uint64
}
