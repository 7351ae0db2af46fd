package zone

import (
	"fmt"
	"sync"

	"github.com/xiaonanln/gozone/engine/common"
	"github.com/xiaonanln/gozone/engine/gzlog"
	"github.com/xiaonanln/gozone/engine/gzutils"
	"github.com/xiaonanln/gozone/engine/signal"
)

// State is the lifecycle state of a Zone
type State int

const (
	// StateSleep means the zone is constructed or disabled and tracks no members
	StateSleep State = iota
	// StateActive means the zone is tracking membership
	StateActive
	// StateDead means the zone is destroyed; terminal
	StateDead
)

func (s State) String() string {
	switch s {
	case StateSleep:
		return "Sleep"
	case StateActive:
		return "Active"
	case StateDead:
		return "Dead"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Zone tracks which entities currently occupy one volume of the host world.
//
// The host reports contacts per surface; the zone aggregates them per entity,
// so an entity touching the volume through several surfaces enters once and
// leaves once, when its last surface ends or when it dies. Enter order is
// preserved in the member list.
type Zone struct {
	mu       sync.Mutex
	state    State
	volume   common.VolumeID
	filter   Filter
	world    World
	registry *Registry

	hostConns []signal.Conn
	contacts  map[common.EntityID]*contactEntry
	members   common.EntityList

	onEnter *signal.Signal[common.EntityID]
	onLeave *signal.Signal[common.EntityID]
}

type contactEntry struct {
	surfaces  common.SurfaceSet
	order     int // position in members, kept dense across removals
	deathConn signal.Conn
}

func newZone(registry *Registry, world World, volume common.VolumeID, filter Filter) *Zone {
	z := &Zone{
		volume:   volume,
		filter:   filter,
		world:    world,
		registry: registry,
		contacts: map[common.EntityID]*contactEntry{},
		onEnter:  signal.New[common.EntityID](),
		onLeave:  signal.New[common.EntityID](),
	}
	return z
}

func (z *Zone) String() string {
	return fmt.Sprintf("Zone<%s>", z.volume)
}

// Volume returns the volume handle this zone monitors
func (z *Zone) Volume() common.VolumeID {
	return z.volume
}

// GetState returns the current lifecycle state
func (z *Zone) GetState() State {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.state
}

// OnEnter returns the signal fired with the entity ID whenever an entity
// becomes a member. Entities already overlapping when the zone is enabled are
// registered silently.
func (z *Zone) OnEnter() *signal.Signal[common.EntityID] {
	return z.onEnter
}

// OnLeave returns the signal fired with the entity ID whenever a member's
// last contacting surface ends or the member dies. Disable and Destroy clear
// members without firing it.
func (z *Zone) OnLeave() *signal.Signal[common.EntityID] {
	return z.onLeave
}

// GetMembers returns the current members in enter order.
// Members are only tracked while the zone is active; otherwise GetMembers
// reports a diagnostic and returns nil.
func (z *Zone) GetMembers() []common.EntityID {
	z.mu.Lock()
	defer z.mu.Unlock()

	if z.state != StateActive {
		gzlog.Warnf("%s.GetMembers: members unavailable in state %s", z, z.state)
		return nil
	}
	return z.members.Copy()
}

// Enable activates the zone: it subscribes to the volume's contact events and
// silently registers all entities already overlapping the volume. No-op with
// a diagnostic if the zone is already active or dead.
func (z *Zone) Enable() {
	z.mu.Lock()
	defer z.mu.Unlock()

	switch z.state {
	case StateDead:
		gzlog.Warnf("%s.Enable: zone is dead", z)
		return
	case StateActive:
		gzlog.Warnf("%s.Enable: zone is already active", z)
		return
	}

	z.state = StateActive
	z.hostConns = append(z.hostConns,
		z.world.SubscribeContactBegin(z.volume, z.onContactBegin),
		z.world.SubscribeContactEnd(z.volume, z.onContactEnd),
	)

	// entities already inside are registered without announcement
	for _, surface := range z.world.QueryOverlapping(z.volume) {
		z.addContact(surface, true)
	}
}

// Disable puts the zone to sleep: all host subscriptions are dropped and the
// membership table is cleared without firing OnLeave (disabling is not a
// graceful per-entity exit). No-op with a diagnostic unless the zone is
// active.
func (z *Zone) Disable() {
	z.mu.Lock()
	defer z.mu.Unlock()

	switch z.state {
	case StateDead:
		gzlog.Warnf("%s.Disable: zone is dead", z)
		return
	case StateSleep:
		gzlog.Warnf("%s.Disable: zone is not active", z)
		return
	}

	z.state = StateSleep
	z.clearContacts()
}

// Destroy kills the zone: all subscriptions are dropped, membership is
// cleared silently, the enter/leave signals are destroyed (resuming any
// pending waiters with the null result) and the zone is removed from its
// registry. No-op with a diagnostic if already destroyed.
func (z *Zone) Destroy() {
	z.mu.Lock()
	if z.state == StateDead {
		z.mu.Unlock()
		gzlog.Warnf("%s.Destroy: zone is already destroyed", z)
		return
	}
	z.state = StateDead
	z.clearContacts()
	z.mu.Unlock()

	z.onEnter.Destroy()
	z.onLeave.Destroy()
	z.registry.remove(z.volume, z)
}

// clearContacts drops all host and death subscriptions and empties the
// membership table without firing OnLeave. Caller must hold z.mu.
func (z *Zone) clearContacts() {
	for _, conn := range z.hostConns {
		if conn != nil {
			conn.Disconnect()
		}
	}
	z.hostConns = nil

	for _, entry := range z.contacts {
		if entry.deathConn != nil {
			entry.deathConn.Disconnect()
		}
	}
	z.contacts = map[common.EntityID]*contactEntry{}
	z.members = nil
}

func (z *Zone) onContactBegin(surface common.SurfaceID) {
	z.mu.Lock()
	defer z.mu.Unlock()
	z.addContact(surface, false)
}

// addContact aggregates one contact-begin of surface into the membership
// table. Caller must hold z.mu.
func (z *Zone) addContact(surface common.SurfaceID, silent bool) {
	if z.state != StateActive {
		return
	}

	entity := z.world.ResolveEntity(surface)
	if entity.IsNil() {
		return // surface belongs to no trackable entity
	}
	if !z.world.IsAlive(entity) {
		return
	}
	if z.filter != nil && !z.runFilter(entity, surface) {
		return // this surface contributes no membership for this entity
	}

	entry := z.contacts[entity]
	if entry == nil {
		// first passing surface: the entity enters
		entry = &contactEntry{
			surfaces: common.SurfaceSet{},
			order:    len(z.members),
		}
		z.contacts[entity] = entry
		z.members.Append(entity)
		entry.deathConn = z.world.DeathSignal(entity).Connect(z.onEntityDeath)
		if !silent {
			z.onEnter.Fire(entity)
		}
	}
	entry.surfaces.Add(surface)
}

// runFilter evaluates the user predicate panic-freely; a panicking filter
// rejects the surface
func (z *Zone) runFilter(entity common.EntityID, surface common.SurfaceID) bool {
	pass := false
	gzutils.RunPanicless(func() {
		pass = z.filter(entity, surface)
	})
	return pass
}

func (z *Zone) onContactEnd(surface common.SurfaceID) {
	z.mu.Lock()
	defer z.mu.Unlock()

	// a surface belongs to exactly one entity, so at most one entry matches
	for entity, entry := range z.contacts {
		if !entry.surfaces.Contains(surface) {
			continue
		}
		entry.surfaces.Del(surface)
		if len(entry.surfaces) == 0 && z.state == StateActive {
			z.removeMember(entity, entry)
		}
		return
	}
}

// onEntityDeath removes the member unconditionally, regardless of remaining
// surfaces. Fired by the host's death signal.
func (z *Zone) onEntityDeath(entity common.EntityID) {
	z.mu.Lock()
	defer z.mu.Unlock()

	entry := z.contacts[entity]
	if entry == nil {
		return
	}
	z.removeMember(entity, entry)
}

// removeMember removes the entity from the membership table and fires
// OnLeave. The stored orders of all later members are re-sequenced so that
// order always equals the member's position. Caller must hold z.mu.
func (z *Zone) removeMember(entity common.EntityID, entry *contactEntry) {
	delete(z.contacts, entity)

	idx := entry.order
	z.members.RemoveAt(idx)
	for _, eid := range z.members[idx:] {
		z.contacts[eid].order--
	}

	if entry.deathConn != nil {
		entry.deathConn.Disconnect()
	}
	z.onLeave.Fire(entity)
}
