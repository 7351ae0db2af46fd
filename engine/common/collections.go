package common

// SurfaceSet is the data structure for a set of surface IDs
type SurfaceSet map[SurfaceID]struct{}

// Add adds a surface ID to SurfaceSet
func (ss SurfaceSet) Add(id SurfaceID) {
	ss[id] = struct{}{}
}

// Del removes a surface ID from SurfaceSet
func (ss SurfaceSet) Del(id SurfaceID) {
	delete(ss, id)
}

// Contains checks if surface ID is in SurfaceSet
func (ss SurfaceSet) Contains(id SurfaceID) bool {
	_, ok := ss[id]
	return ok
}

// ToList convert SurfaceSet to a slice of surface IDs
func (ss SurfaceSet) ToList() []SurfaceID {
	list := make([]SurfaceID, 0, len(ss))
	for sid := range ss {
		list = append(list, sid)
	}
	return list
}

// EntityList is an ordered list of entity IDs (slice)
type EntityList []EntityID

// Append add the entity ID to the end of EntityList
func (el *EntityList) Append(id EntityID) {
	*el = append(*el, id)
}

// Find get the index of entity ID in EntityList, returns -1 if not found
func (el *EntityList) Find(id EntityID) int {
	for idx, eid := range *el {
		if eid == id {
			return idx
		}
	}
	return -1
}

// RemoveAt removes the entity ID at the specified index, keeping the order of
// all other entity IDs
func (el *EntityList) RemoveAt(idx int) {
	cpel := *el
	copy(cpel[idx:], cpel[idx+1:])
	*el = cpel[:len(cpel)-1]
}

// Copy returns a copy of EntityList
func (el EntityList) Copy() EntityList {
	if el == nil {
		return nil
	}
	cp := make(EntityList, len(el))
	copy(cp, el)
	return cp
}
