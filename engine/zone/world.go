package zone

import (
	"github.com/xiaonanln/gozone/engine/common"
	"github.com/xiaonanln/gozone/engine/signal"
)

// World is the host simulation a zone observes. The host owns all spatial
// logic: it detects overlaps and reports them per physical surface, not per
// logical entity.
//
// Contact callbacks for one volume must be delivered serially and in
// subscription order; there is no ordering guarantee across volumes.
type World interface {
	// IsValidVolume reports whether the volume handle refers to a live volume
	IsValidVolume(volume common.VolumeID) bool

	// SubscribeContactBegin subscribes to contact-begin events of the volume
	SubscribeContactBegin(volume common.VolumeID, callback func(common.SurfaceID)) signal.Conn

	// SubscribeContactEnd subscribes to contact-end events of the volume
	SubscribeContactEnd(volume common.VolumeID, callback func(common.SurfaceID)) signal.Conn

	// QueryOverlapping returns all surfaces currently overlapping the volume
	QueryOverlapping(volume common.VolumeID) []common.SurfaceID

	// ResolveEntity returns the entity owning the surface, or the nil
	// EntityID when the surface belongs to no trackable entity
	ResolveEntity(surface common.SurfaceID) common.EntityID

	// IsAlive reports whether the entity is alive
	IsAlive(entity common.EntityID) bool

	// DeathSignal returns the signal fired (at most once) when the entity dies
	DeathSignal(entity common.EntityID) *signal.Signal[common.EntityID]
}

// Filter decides whether a surface contributes membership for its entity.
// Each surface is evaluated independently; an entity is a member while at
// least one of its contacting surfaces passes.
type Filter func(entity common.EntityID, surface common.SurfaceID) bool
