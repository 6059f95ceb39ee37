package bike

import (
	"context"
	"math"
	"math/bits"

	"github.com/semanticallynull/bikeledger/internal/guard"
	"github.com/semanticallynull/bikeledger/station"
	"github.com/semanticallynull/bikeledger/store"
)

const (
	OpRegisterStation          = "registerStation"
	OpRegisterBicycle          = "registerBicycle"
	OpUpdateBicycleStatus      = "updateBicycleStatus"
	OpUpdateBicycleLocation    = "updateBicycleLocation"
	OpUpdateBicycleMaintenance = "updateBicycleMaintenance"
	OpRemoveBicycle            = "removeBicycle"
	OpUpdateBicycleStatistics  = "updateBicycleStatistics"
)

var policies = map[string]guard.Policy{
	OpRegisterStation:          guard.Owner,
	OpRegisterBicycle:          guard.Owner,
	OpUpdateBicycleStatus:      guard.Owner | guard.ResourceOwner,
	OpUpdateBicycleLocation:    guard.Owner | guard.ResourceOwner,
	OpUpdateBicycleMaintenance: guard.Owner | guard.ResourceOwner,
	OpRemoveBicycle:            guard.Owner,
	OpUpdateBicycleStatistics:  guard.Owner,
}

type Registry struct {
	s        *store.Store
	guard    *guard.Guard
	bicycles *store.Table[string, Bicycle]
	stations *store.Table[string, station.Station]
}

func NewRegistry(s *store.Store, g *guard.Guard) *Registry {
	return &Registry{
		s:        s,
		guard:    g,
		bicycles: store.NewTable[string, Bicycle](s, "bicycles"),
		stations: store.NewTable[string, station.Station](s, "stations"),
	}
}

func (r *Registry) authorize(op string, call guard.Call, resourceOwner string) error {
	if !r.guard.Allow(policies[op], call.Caller, resourceOwner) {
		return ErrNotAuthorized
	}
	return nil
}

func (r *Registry) RegisterStation(ctx context.Context, call guard.Call, id, name string, loc station.Location, capacity uint32) (station.Station, error) {
	var st station.Station
	err := r.s.Update(ctx, OpRegisterStation, func() error {
		if err := r.authorize(OpRegisterStation, call, ""); err != nil {
			return err
		}
		if r.stations.Has(id) {
			return ErrStationExists
		}

		st = station.New(id, name, loc, capacity)
		r.stations.Put(id, st)
		return nil
	})
	return st, err
}

// RegisterBicycle docks a new bicycle at stationID. The bicycle is owned by
// attrs.Owner when given, otherwise by the caller.
func (r *Registry) RegisterBicycle(ctx context.Context, call guard.Call, id string, attrs Attributes, stationID string) (Bicycle, error) {
	var b Bicycle
	err := r.s.Update(ctx, OpRegisterBicycle, func() error {
		if err := r.authorize(OpRegisterBicycle, call, ""); err != nil {
			return err
		}
		if r.bicycles.Has(id) {
			return ErrBicycleExists
		}
		st, ok := r.stations.Get(stationID)
		if !ok {
			return ErrStationNotFound
		}
		st, ok = st.Dock()
		if !ok {
			return ErrStationFull
		}

		owner := attrs.Owner
		if owner == "" {
			owner = call.Caller
		}
		b = Bicycle{
			ID:                  id,
			Owner:               owner,
			StationID:           stationID,
			Status:              Available,
			Type:                attrs.Type,
			Model:               attrs.Model,
			Location:            attrs.Location,
			HourlyRate:          attrs.HourlyRate,
			RegistrationDate:    call.Now,
			LastMaintenanceDate: call.Now,
		}
		r.stations.Put(stationID, st)
		r.bicycles.Put(id, b)
		return nil
	})
	return b, err
}

func (r *Registry) UpdateBicycleStatus(ctx context.Context, call guard.Call, id, status string) (Status, error) {
	var s Status
	err := r.s.Update(ctx, OpUpdateBicycleStatus, func() error {
		var err error
		s, err = ParseStatus(status)
		if err != nil {
			return err
		}
		b, ok := r.bicycles.Get(id)
		if !ok {
			return ErrBicycleNotFound
		}
		if err := r.authorize(OpUpdateBicycleStatus, call, b.Owner); err != nil {
			return err
		}

		b.Status = s
		r.bicycles.Put(id, b)
		return nil
	})
	return s, err
}

func (r *Registry) UpdateBicycleLocation(ctx context.Context, call guard.Call, id string, loc station.Location) error {
	return r.s.Update(ctx, OpUpdateBicycleLocation, func() error {
		b, ok := r.bicycles.Get(id)
		if !ok {
			return ErrBicycleNotFound
		}
		if err := r.authorize(OpUpdateBicycleLocation, call, b.Owner); err != nil {
			return err
		}

		b.Location = loc
		r.bicycles.Put(id, b)
		return nil
	})
}

// UpdateBicycleMaintenance marks a bicycle as serviced now and puts it back
// into circulation. It returns the service block.
func (r *Registry) UpdateBicycleMaintenance(ctx context.Context, call guard.Call, id string) (uint64, error) {
	err := r.s.Update(ctx, OpUpdateBicycleMaintenance, func() error {
		b, ok := r.bicycles.Get(id)
		if !ok {
			return ErrBicycleNotFound
		}
		if err := r.authorize(OpUpdateBicycleMaintenance, call, b.Owner); err != nil {
			return err
		}

		b.LastMaintenanceDate = call.Now
		b.Status = Available
		r.bicycles.Put(id, b)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return call.Now, nil
}

// RemoveBicycle undocks a bicycle and deletes its record. Maintenance and
// issue history kept by other ledgers is left in place.
func (r *Registry) RemoveBicycle(ctx context.Context, call guard.Call, id, stationID string) error {
	return r.s.Update(ctx, OpRemoveBicycle, func() error {
		if err := r.authorize(OpRemoveBicycle, call, ""); err != nil {
			return err
		}
		b, ok := r.bicycles.Get(id)
		if !ok {
			return ErrBicycleNotFound
		}
		st, ok := r.stations.Get(stationID)
		if !ok {
			return ErrStationNotFound
		}
		if b.StationID != stationID {
			return ErrNotDocked
		}
		st, ok = st.Undock()
		if !ok {
			return ErrNotDocked
		}

		r.stations.Put(stationID, st)
		r.bicycles.Delete(id)
		return nil
	})
}

// UpdateBicycleStatistics adds to the running totals. Totals saturate
// instead of wrapping.
func (r *Registry) UpdateBicycleStatistics(ctx context.Context, call guard.Call, id string, rides, distance, earnings uint64) (Totals, error) {
	var t Totals
	err := r.s.Update(ctx, OpUpdateBicycleStatistics, func() error {
		if err := r.authorize(OpUpdateBicycleStatistics, call, ""); err != nil {
			return err
		}
		b, ok := r.bicycles.Get(id)
		if !ok {
			return ErrBicycleNotFound
		}

		b.Totals.Rides = addSat(b.Totals.Rides, rides)
		b.Totals.Distance = addSat(b.Totals.Distance, distance)
		b.Totals.Earnings = addSat(b.Totals.Earnings, earnings)
		t = b.Totals
		r.bicycles.Put(id, b)
		return nil
	})
	return t, err
}

func (r *Registry) GetBicycle(id string) (Bicycle, error) {
	var (
		b  Bicycle
		ok bool
	)
	r.s.View(func() {
		b, ok = r.bicycles.Get(id)
	})
	if !ok {
		return Bicycle{}, ErrBicycleNotFound
	}
	return b, nil
}

func (r *Registry) GetStation(id string) (station.Station, error) {
	var (
		st station.Station
		ok bool
	)
	r.s.View(func() {
		st, ok = r.stations.Get(id)
	})
	if !ok {
		return station.Station{}, ErrStationNotFound
	}
	return st, nil
}

// IsBicycleAvailable is false for unknown bicycles.
func (r *Registry) IsBicycleAvailable(id string) bool {
	b, err := r.GetBicycle(id)
	return err == nil && b.Status == Available
}

func (r *Registry) BicycleHourlyRate(id string) (uint64, error) {
	b, err := r.GetBicycle(id)
	if err != nil {
		return 0, err
	}
	return b.HourlyRate, nil
}

// Registered reports whether id is a registered bicycle. It takes no lock
// and is meant for ledgers validating ids inside their own store operation.
func (r *Registry) Registered(id string) bool {
	return r.bicycles.Has(id)
}

func addSat(a, b uint64) uint64 {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return math.MaxUint64
	}
	return sum
}
