package sim

import (
	"sync"

	"github.com/xiaonanln/gozone/engine/common"
	"github.com/xiaonanln/gozone/engine/gzlog"
	"github.com/xiaonanln/gozone/engine/signal"
	"github.com/xiaonanln/gozone/engine/zone"
)

// World is an in-memory host simulation for tests and demos. It tracks
// volumes, entities and their surfaces, and lets callers script the contact
// stream a physics engine would produce.
//
// Contact events of one volume are delivered synchronously and in
// subscription order, satisfying the zone.World contract as long as the
// caller does not interleave BeginContact/EndContact calls of a single
// volume across goroutines. Death notifications are ordinary signals.
type World struct {
	mu       sync.Mutex
	volumes  map[common.VolumeID]*volumeInfo
	entities map[common.EntityID]*entityInfo
	owners   map[common.SurfaceID]common.EntityID
}

type volumeInfo struct {
	overlapping common.SurfaceSet
	beginSubs   []*contactSub
	endSubs     []*contactSub
}

type entityInfo struct {
	alive bool
	death *signal.Signal[common.EntityID]
}

var _ zone.World = (*World)(nil)

// NewWorld creates an empty world
func NewWorld() *World {
	return &World{
		volumes:  map[common.VolumeID]*volumeInfo{},
		entities: map[common.EntityID]*entityInfo{},
		owners:   map[common.SurfaceID]common.EntityID{},
	}
}

// AddVolume registers a volume
func (w *World) AddVolume(volume common.VolumeID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.volumes[volume] == nil {
		w.volumes[volume] = &volumeInfo{overlapping: common.SurfaceSet{}}
	}
}

// AddEntity registers a live entity owning the surfaces
func (w *World) AddEntity(entity common.EntityID, surfaces ...common.SurfaceID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	info := w.ensureEntity(entity)
	info.alive = true
	for _, surface := range surfaces {
		w.owners[surface] = entity
	}
}

// AddSurfaces attaches more surfaces to an existing entity
func (w *World) AddSurfaces(entity common.EntityID, surfaces ...common.SurfaceID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, surface := range surfaces {
		w.owners[surface] = entity
	}
}

// KillEntity marks the entity dead and fires its death signal
func (w *World) KillEntity(entity common.EntityID) {
	w.mu.Lock()
	info := w.entities[entity]
	if info == nil || !info.alive {
		w.mu.Unlock()
		gzlog.Warnf("sim: KillEntity(%s): no such live entity", entity)
		return
	}
	info.alive = false
	death := info.death
	w.mu.Unlock()

	death.Fire(entity)
}

// BeginContact reports that the surface started overlapping the volume
func (w *World) BeginContact(volume common.VolumeID, surface common.SurfaceID) {
	w.mu.Lock()
	info := w.volumes[volume]
	if info == nil {
		w.mu.Unlock()
		gzlog.Warnf("sim: BeginContact(%s, %s): no such volume", volume, surface)
		return
	}
	info.overlapping.Add(surface)
	subs := append([]*contactSub(nil), info.beginSubs...)
	w.mu.Unlock()

	w.deliver(subs, surface)
}

// EndContact reports that the surface stopped overlapping the volume
func (w *World) EndContact(volume common.VolumeID, surface common.SurfaceID) {
	w.mu.Lock()
	info := w.volumes[volume]
	if info == nil {
		w.mu.Unlock()
		gzlog.Warnf("sim: EndContact(%s, %s): no such volume", volume, surface)
		return
	}
	info.overlapping.Del(surface)
	subs := append([]*contactSub(nil), info.endSubs...)
	w.mu.Unlock()

	w.deliver(subs, surface)
}

// deliver invokes subscribers serially in subscription order, skipping any
// that disconnected since the snapshot
func (w *World) deliver(subs []*contactSub, surface common.SurfaceID) {
	for _, sub := range subs {
		w.mu.Lock()
		connected := sub.connected
		w.mu.Unlock()
		if connected {
			sub.callback(surface)
		}
	}
}

func (w *World) ensureEntity(entity common.EntityID) *entityInfo {
	info := w.entities[entity]
	if info == nil {
		info = &entityInfo{death: signal.New[common.EntityID]()}
		w.entities[entity] = info
	}
	return info
}

// IsValidVolume implements zone.World
func (w *World) IsValidVolume(volume common.VolumeID) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.volumes[volume] != nil
}

// SubscribeContactBegin implements zone.World
func (w *World) SubscribeContactBegin(volume common.VolumeID, callback func(common.SurfaceID)) signal.Conn {
	return w.subscribe(volume, callback, true)
}

// SubscribeContactEnd implements zone.World
func (w *World) SubscribeContactEnd(volume common.VolumeID, callback func(common.SurfaceID)) signal.Conn {
	return w.subscribe(volume, callback, false)
}

func (w *World) subscribe(volume common.VolumeID, callback func(common.SurfaceID), begin bool) signal.Conn {
	w.mu.Lock()
	defer w.mu.Unlock()

	info := w.volumes[volume]
	if info == nil {
		gzlog.Warnf("sim: subscribe(%s): no such volume", volume)
		return nil
	}

	sub := &contactSub{world: w, volume: volume, begin: begin, callback: callback, connected: true}
	if begin {
		info.beginSubs = append(info.beginSubs, sub)
	} else {
		info.endSubs = append(info.endSubs, sub)
	}
	return sub
}

// QueryOverlapping implements zone.World
func (w *World) QueryOverlapping(volume common.VolumeID) []common.SurfaceID {
	w.mu.Lock()
	defer w.mu.Unlock()
	info := w.volumes[volume]
	if info == nil {
		return nil
	}
	return info.overlapping.ToList()
}

// ResolveEntity implements zone.World
func (w *World) ResolveEntity(surface common.SurfaceID) common.EntityID {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.owners[surface]
}

// IsAlive implements zone.World
func (w *World) IsAlive(entity common.EntityID) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	info := w.entities[entity]
	return info != nil && info.alive
}

// DeathSignal implements zone.World
func (w *World) DeathSignal(entity common.EntityID) *signal.Signal[common.EntityID] {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ensureEntity(entity).death
}

// contactSub is the subscription handle of one contact callback
type contactSub struct {
	world     *World
	volume    common.VolumeID
	begin     bool
	callback  func(common.SurfaceID)
	connected bool
}

// Disconnect implements signal.Conn; idempotent
func (sub *contactSub) Disconnect() {
	if sub == nil {
		return
	}
	w := sub.world
	w.mu.Lock()
	defer w.mu.Unlock()

	if !sub.connected {
		return
	}
	sub.connected = false

	info := w.volumes[sub.volume]
	if info == nil {
		return
	}
	if sub.begin {
		info.beginSubs = removeSub(info.beginSubs, sub)
	} else {
		info.endSubs = removeSub(info.endSubs, sub)
	}
}

func removeSub(subs []*contactSub, sub *contactSub) []*contactSub {
	for idx, s := range subs {
		if s == sub {
			return append(subs[:idx], subs[idx+1:]...)
		}
	}
	return subs
}
