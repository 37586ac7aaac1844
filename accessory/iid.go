package accessory

// iidManager assigns dense, monotonically increasing, never-reused
// instance ids to the services and characteristics of a single accessory
// (§3, §8: "IIDs are stable for the lifetime of the accessory and never
// reused after removal"). Mirrors pyhap's IIDManager, which is similarly
// scoped one-per-accessory and keyed by object identity; each Accessory
// keeps its own.
type iidManager struct {
	next    uint64
	assigned map[interface{}]uint64
}

func newIIDManager() *iidManager {
	return &iidManager{next: 1, assigned: map[interface{}]uint64{}}
}

// assign returns obj's iid, minting a new one on first use. obj is either
// a *Service or a *Characteristic and is used only as a map key.
func (m *iidManager) assign(obj interface{}) uint64 {
	if iid, ok := m.assigned[obj]; ok {
		return iid
	}
	iid := m.next
	m.next++
	m.assigned[obj] = iid
	return iid
}

// assignIIDs walks acc's services and characteristics in order,
// assigning iids depth-first the way pyhap's Accessory._set_services /
// add_service does, so that a freshly-built accessory gets the same iid
// layout run after run. It reuses acc's manager across calls, so objects
// that already have an iid keep it.
func assignIIDs(acc *Accessory) {
	if acc.iids == nil {
		acc.iids = newIIDManager()
	}
	m := acc.iids
	for _, svc := range acc.services {
		svc.iid = m.assign(svc)
		for _, c := range svc.characteristics {
			c.iid = m.assign(c)
		}
	}
}
