package bike

import (
	"context"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semanticallynull/bikeledger/internal/guard"
	"github.com/semanticallynull/bikeledger/station"
	"github.com/semanticallynull/bikeledger/store"
)

const owner = "registry-owner"

var (
	ownerCall = guard.Call{Caller: owner, Now: 1000}
	ctx       = context.Background()
)

func newRegistry(t *testing.T) *Registry {
	t.Helper()
	s := store.New(nil, nil)
	g := guard.New(s)
	require.NoError(t, g.Bootstrap(ctx, owner))
	return NewRegistry(s, g)
}

func seed(t *testing.T, r *Registry, capacity uint32) {
	t.Helper()
	_, err := r.RegisterStation(ctx, ownerCall, "S1", "Central", station.Location{Lat: 53.3, Lng: -6.2}, capacity)
	require.NoError(t, err)
	_, err = r.RegisterBicycle(ctx, ownerCall, "B1", Attributes{Type: "city", Model: "Cargoville", HourlyRate: 300}, "S1")
	require.NoError(t, err)
}

func TestStationLifecycleScenario(t *testing.T) {
	r := newRegistry(t)

	st, err := r.RegisterStation(ctx, ownerCall, "S1", "Central", station.Location{}, 5)
	require.NoError(t, err)
	assert.Equal(t, uint32(5), st.AvailableSpots)
	assert.Equal(t, uint32(0), st.BicyclesCount)

	b, err := r.RegisterBicycle(ctx, ownerCall, "B1", Attributes{HourlyRate: 250}, "S1")
	require.NoError(t, err)
	assert.Equal(t, Available, b.Status)
	assert.Equal(t, owner, b.Owner)
	assert.Equal(t, uint64(1000), b.RegistrationDate)
	assert.Equal(t, Totals{}, b.Totals)

	st, err = r.GetStation("S1")
	require.NoError(t, err)
	assert.Equal(t, uint32(4), st.AvailableSpots)
	assert.Equal(t, uint32(1), st.BicyclesCount)

	require.NoError(t, r.RemoveBicycle(ctx, ownerCall, "B1", "S1"))

	st, err = r.GetStation("S1")
	require.NoError(t, err)
	assert.Equal(t, uint32(5), st.AvailableSpots)
	assert.Equal(t, uint32(0), st.BicyclesCount)

	_, err = r.GetBicycle("B1")
	assert.ErrorIs(t, err, ErrBicycleNotFound)
}

func TestCapacityConservation(t *testing.T) {
	r := newRegistry(t)
	_, err := r.RegisterStation(ctx, ownerCall, "S1", "Central", station.Location{}, 3)
	require.NoError(t, err)
	_, err = r.RegisterStation(ctx, ownerCall, "S2", "Harbour", station.Location{}, 1)
	require.NoError(t, err)

	steps := []func() error{
		func() error { _, err := r.RegisterBicycle(ctx, ownerCall, "B1", Attributes{}, "S1"); return err },
		func() error { _, err := r.RegisterBicycle(ctx, ownerCall, "B2", Attributes{}, "S1"); return err },
		func() error { _, err := r.RegisterBicycle(ctx, ownerCall, "B3", Attributes{}, "S2"); return err },
		func() error { _, err := r.RegisterBicycle(ctx, ownerCall, "B4", Attributes{}, "S2"); return err },
		func() error { return r.RemoveBicycle(ctx, ownerCall, "B1", "S2") },
		func() error { return r.RemoveBicycle(ctx, ownerCall, "B1", "S1") },
		func() error { _, err := r.RegisterBicycle(ctx, ownerCall, "B5", Attributes{}, "S1"); return err },
		func() error { _, err := r.RegisterBicycle(ctx, ownerCall, "B6", Attributes{}, "S1"); return err },
		func() error { _, err := r.RegisterBicycle(ctx, ownerCall, "B7", Attributes{}, "S1"); return err },
		func() error { return r.RemoveBicycle(ctx, ownerCall, "B3", "S2") },
	}

	for i, step := range steps {
		_ = step()
		for _, id := range []string{"S1", "S2"} {
			st, err := r.GetStation(id)
			require.NoError(t, err)
			require.Truef(t, st.Balanced(), "step %d left %s unbalanced: %s", i, id, spew.Sdump(st))
		}
	}
}

func TestRegisterBicycle_Errors(t *testing.T) {
	r := newRegistry(t)
	seed(t, r, 1)

	_, err := r.RegisterBicycle(ctx, guard.Call{Caller: "alice"}, "B9", Attributes{}, "S1")
	assert.ErrorIs(t, err, ErrNotAuthorized)

	_, err = r.RegisterBicycle(ctx, ownerCall, "B1", Attributes{}, "S1")
	assert.ErrorIs(t, err, ErrBicycleExists)

	_, err = r.RegisterBicycle(ctx, ownerCall, "B2", Attributes{}, "nowhere")
	assert.ErrorIs(t, err, ErrStationNotFound)

	_, err = r.RegisterBicycle(ctx, ownerCall, "B2", Attributes{}, "S1")
	assert.ErrorIs(t, err, ErrStationFull)

	_, err = r.GetBicycle("B2")
	assert.ErrorIs(t, err, ErrBicycleNotFound, "rejected registration must not leave a record")
}

func TestRegisterStation_Errors(t *testing.T) {
	r := newRegistry(t)
	seed(t, r, 2)

	_, err := r.RegisterStation(ctx, guard.Call{Caller: "alice"}, "S2", "x", station.Location{}, 1)
	assert.ErrorIs(t, err, ErrNotAuthorized)

	_, err = r.RegisterStation(ctx, ownerCall, "S1", "dup", station.Location{}, 9)
	assert.ErrorIs(t, err, ErrStationExists)

	st, err := r.GetStation("S1")
	require.NoError(t, err)
	assert.Equal(t, "Central", st.Name)
}

func TestUpdateBicycleStatus(t *testing.T) {
	r := newRegistry(t)
	seed(t, r, 2)
	_, err := r.RegisterBicycle(ctx, ownerCall, "B2", Attributes{Owner: "alice"}, "S1")
	require.NoError(t, err)

	got, err := r.UpdateBicycleStatus(ctx, guard.Call{Caller: "alice"}, "B2", "in-use")
	require.NoError(t, err)
	assert.Equal(t, InUse, got)
	assert.False(t, r.IsBicycleAvailable("B2"))

	_, err = r.UpdateBicycleStatus(ctx, guard.Call{Caller: "bob"}, "B2", "available")
	assert.ErrorIs(t, err, ErrNotAuthorized)

	_, err = r.UpdateBicycleStatus(ctx, ownerCall, "B2", "stolen")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = r.UpdateBicycleStatus(ctx, ownerCall, "B404", "retired")
	assert.ErrorIs(t, err, ErrBicycleNotFound)

	got, err = r.UpdateBicycleStatus(ctx, ownerCall, "B2", "retired")
	require.NoError(t, err)
	assert.Equal(t, Retired, got)
}

func TestUpdateBicycleLocation(t *testing.T) {
	r := newRegistry(t)
	seed(t, r, 2)

	loc := station.Location{Lat: 1.5, Lng: 2.5}
	require.NoError(t, r.UpdateBicycleLocation(ctx, ownerCall, "B1", loc))
	b, err := r.GetBicycle("B1")
	require.NoError(t, err)
	assert.Equal(t, loc, b.Location)

	assert.ErrorIs(t, r.UpdateBicycleLocation(ctx, guard.Call{Caller: "eve"}, "B1", station.Location{}), ErrNotAuthorized)
	assert.ErrorIs(t, r.UpdateBicycleLocation(ctx, ownerCall, "nope", loc), ErrBicycleNotFound)
}

func TestUpdateBicycleMaintenance(t *testing.T) {
	r := newRegistry(t)
	seed(t, r, 2)

	_, err := r.UpdateBicycleStatus(ctx, ownerCall, "B1", "maintenance")
	require.NoError(t, err)

	at, err := r.UpdateBicycleMaintenance(ctx, guard.Call{Caller: owner, Now: 2000}, "B1")
	require.NoError(t, err)
	assert.Equal(t, uint64(2000), at)

	b, err := r.GetBicycle("B1")
	require.NoError(t, err)
	assert.Equal(t, Available, b.Status)
	assert.Equal(t, uint64(2000), b.LastMaintenanceDate)
}

func TestRemoveBicycle_Errors(t *testing.T) {
	r := newRegistry(t)
	seed(t, r, 2)
	_, err := r.RegisterStation(ctx, ownerCall, "S2", "Harbour", station.Location{}, 2)
	require.NoError(t, err)

	assert.ErrorIs(t, r.RemoveBicycle(ctx, guard.Call{Caller: "alice"}, "B1", "S1"), ErrNotAuthorized)
	assert.ErrorIs(t, r.RemoveBicycle(ctx, ownerCall, "B404", "S1"), ErrBicycleNotFound)
	assert.ErrorIs(t, r.RemoveBicycle(ctx, ownerCall, "B1", "S404"), ErrStationNotFound)
	assert.ErrorIs(t, r.RemoveBicycle(ctx, ownerCall, "B1", "S2"), ErrNotDocked)

	st, err := r.GetStation("S2")
	require.NoError(t, err)
	assert.Equal(t, uint32(2), st.AvailableSpots)
}

func TestUpdateBicycleStatistics(t *testing.T) {
	r := newRegistry(t)
	seed(t, r, 2)

	_, err := r.UpdateBicycleStatistics(ctx, ownerCall, "B1", 2, 15, 600)
	require.NoError(t, err)
	totals, err := r.UpdateBicycleStatistics(ctx, ownerCall, "B1", 1, 5, 300)
	require.NoError(t, err)
	assert.Equal(t, Totals{Rides: 3, Distance: 20, Earnings: 900}, totals)

	totals, err = r.UpdateBicycleStatistics(ctx, ownerCall, "B1", ^uint64(0), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, ^uint64(0), totals.Rides, "totals saturate")

	_, err = r.UpdateBicycleStatistics(ctx, guard.Call{Caller: "alice"}, "B1", 1, 1, 1)
	assert.ErrorIs(t, err, ErrNotAuthorized)
	_, err = r.UpdateBicycleStatistics(ctx, ownerCall, "nope", 1, 1, 1)
	assert.ErrorIs(t, err, ErrBicycleNotFound)
}

func TestReads(t *testing.T) {
	r := newRegistry(t)
	seed(t, r, 2)

	assert.True(t, r.IsBicycleAvailable("B1"))
	assert.False(t, r.IsBicycleAvailable("unknown"))

	rate, err := r.BicycleHourlyRate("B1")
	require.NoError(t, err)
	assert.Equal(t, uint64(300), rate)

	_, err = r.BicycleHourlyRate("unknown")
	assert.ErrorIs(t, err, ErrBicycleNotFound)

	code, ok := CodeOf(err)
	assert.True(t, ok)
	assert.Equal(t, 102, code)
}

func TestParseStatus(t *testing.T) {
	for _, name := range []string{"available", "in-use", "maintenance", "retired"} {
		s, err := ParseStatus(name)
		require.NoError(t, err)
		assert.Equal(t, name, s.String())
	}
	_, err := ParseStatus("Available")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}
