package zone_test

import (
	"testing"

	"github.com/bmizerany/assert"
	"github.com/xiaonanln/gozone/engine/common"
	"github.com/xiaonanln/gozone/engine/sim"
	"github.com/xiaonanln/gozone/engine/zone"
)

func TestRegistryOneZonePerVolume(t *testing.T) {
	w := sim.NewWorld()
	w.AddVolume("v1")
	w.AddEntity("E", "S")
	r := zone.NewRegistry()

	z1, err := r.Create(w, "v1", nil)
	assert.Equal(t, err, nil)
	w.BeginContact("v1", "S")

	// duplicate creation fails and must not disturb the existing zone
	z2, err := r.Create(w, "v1", nil)
	assert.T(t, err != nil, "duplicate zone should fail")
	assert.T(t, z2 == nil, "no zone on failure")
	assert.Equal(t, z1.GetState(), zone.StateActive)
	assert.Equal(t, z1.GetMembers(), []common.EntityID{"E"})
	assert.T(t, r.Get("v1") == z1, "registry should keep the first zone")
}

func TestRegistryGetAbsent(t *testing.T) {
	r := zone.NewRegistry()
	assert.T(t, r.Get("nowhere") == nil, "absent volume has no zone")
}

func TestRegistryRecreateAfterDestroy(t *testing.T) {
	w := sim.NewWorld()
	w.AddVolume("v1")
	r := zone.NewRegistry()

	z1, err := r.Create(w, "v1", nil)
	assert.Equal(t, err, nil)
	z1.Destroy()
	assert.T(t, r.Get("v1") == nil, "destroyed zone should be removed")

	z2, err := r.Create(w, "v1", nil)
	assert.Equal(t, err, nil)
	assert.T(t, z2 != z1, "recreated zone is a new zone")
	assert.Equal(t, z2.GetState(), zone.StateActive)
}

func TestRegistriesAreIsolated(t *testing.T) {
	w := sim.NewWorld()
	w.AddVolume("v1")
	r1 := zone.NewRegistry()
	r2 := zone.NewRegistry()

	_, err := r1.Create(w, "v1", nil)
	assert.Equal(t, err, nil)
	_, err = r2.Create(w, "v1", nil)
	assert.Equal(t, err, nil) // different registry, same volume is fine
}

func TestDefaultRegistry(t *testing.T) {
	w := sim.NewWorld()
	w.AddVolume("default-v")

	z, err := zone.Create(w, "default-v", nil)
	assert.Equal(t, err, nil)
	assert.T(t, zone.Get("default-v") == z, "default registry should find the zone")
	z.Destroy()
	assert.T(t, zone.Get("default-v") == nil, "default registry entry removed")
}
