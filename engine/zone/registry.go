package zone

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/xiaonanln/gozone/engine/common"
)

// Registry maps volumes to their zones, enforcing one zone per volume.
// Tests can construct isolated registries with NewRegistry; ordinary callers
// use the package-level Create/Get operating on the default registry.
type Registry struct {
	mu    sync.Mutex
	zones map[common.VolumeID]*Zone
}

var defaultRegistry = NewRegistry()

// NewRegistry creates an empty Registry
func NewRegistry() *Registry {
	return &Registry{
		zones: map[common.VolumeID]*Zone{},
	}
}

// Create constructs the zone for the volume and enables it immediately.
// filter may be nil, in which case every resolved live entity passes.
//
// Create fails without side effects when world is nil, the volume handle is
// invalid, or the volume already has a zone.
func (r *Registry) Create(world World, volume common.VolumeID, filter Filter) (*Zone, error) {
	if world == nil {
		return nil, errors.New("zone.Create: world is nil")
	}
	if volume.IsNil() {
		return nil, errors.New("zone.Create: volume is nil")
	}
	if !world.IsValidVolume(volume) {
		return nil, errors.Errorf("zone.Create: invalid volume %q", volume)
	}

	z := newZone(r, world, volume, filter)

	// claim the volume before enabling, so no two zones ever share it
	r.mu.Lock()
	if exist := r.zones[volume]; exist != nil {
		r.mu.Unlock()
		return nil, errors.Errorf("zone.Create: volume %q already has a zone", volume)
	}
	r.zones[volume] = z
	r.mu.Unlock()

	z.Enable()
	return z, nil
}

// Get returns the zone of the volume, or nil if the volume has none
func (r *Registry) Get(volume common.VolumeID) *Zone {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.zones[volume]
}

// remove deletes the registry entry, but only if it still maps to z
func (r *Registry) remove(volume common.VolumeID, z *Zone) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.zones[volume] == z {
		delete(r.zones, volume)
	}
}

// Create constructs a zone in the default registry
func Create(world World, volume common.VolumeID, filter Filter) (*Zone, error) {
	return defaultRegistry.Create(world, volume, filter)
}

// Get returns the zone of the volume in the default registry
func Get(volume common.VolumeID) *Zone {
	return defaultRegistry.Get(volume)
}
