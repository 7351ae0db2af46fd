package common

// EntityID is the identity of a logical game actor. Entities own one or more
// surfaces and have a liveness state reported by the host world.
type EntityID string

// IsNil returns if EntityID is nil
func (id EntityID) IsNil() bool {
	return id == ""
}

// SurfaceID is the identity of a single physical contact surface reported by
// the host world. Each surface belongs to at most one entity.
type SurfaceID string

// IsNil returns if SurfaceID is nil
func (id SurfaceID) IsNil() bool {
	return id == ""
}

// VolumeID is the identity of a spatial region monitored by a zone. Volume
// handles are opaque to gozone and supplied by the host world.
type VolumeID string

// IsNil returns if VolumeID is nil
func (id VolumeID) IsNil() bool {
	return id == ""
}
