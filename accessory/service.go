package accessory

import "fmt"

// Service groups characteristics under a single type, e.g. Lightbulb or
// AccessoryInformation (§3). Characteristic order is preserved on the wire
// (pyhap's Service keeps an ordered list, not just a dict by UUID).
type Service struct {
	iid  uint64
	Type TypeID

	Primary bool
	Hidden  bool

	characteristics []*Characteristic
	// linked references sibling services exposed alongside this one on the
	// wire via the "linked" field (§3), e.g. a Fan linked to a FanV2.
	linked []*Service
}

// NewService constructs an empty service of the given type.
func NewService(t TypeID) *Service {
	return &Service{Type: t}
}

// IID returns the service's instance id.
func (s *Service) IID() uint64 { return s.iid }

// AddCharacteristic appends c, unless a characteristic of the same type is
// already present, in which case it replaces it in place (pyhap's
// Service.add_characteristic dedups by type_id).
func (s *Service) AddCharacteristic(c *Characteristic) *Service {
	for i, existing := range s.characteristics {
		if existing.Type == c.Type {
			s.characteristics[i] = c
			return s
		}
	}
	s.characteristics = append(s.characteristics, c)
	return s
}

// Characteristics returns the service's characteristics in wire order.
func (s *Service) Characteristics() []*Characteristic {
	return s.characteristics
}

// Characteristic returns the characteristic of the given type, if present.
func (s *Service) Characteristic(t TypeID) (*Characteristic, bool) {
	for _, c := range s.characteristics {
		if c.Type == t {
			return c, true
		}
	}
	return nil, false
}

// LinkService records svc as linked from s (§3 "linked_services").
func (s *Service) LinkService(svc *Service) *Service {
	s.linked = append(s.linked, svc)
	return s
}

// LinkedServices returns the services linked from s.
func (s *Service) LinkedServices() []*Service {
	return s.linked
}

// mustCharacteristic fetches a characteristic that the caller knows the
// service carries; a missing characteristic there is a programming error.
func (s *Service) mustCharacteristic(t TypeID) *Characteristic {
	c, ok := s.Characteristic(t)
	if !ok {
		panic(fmt.Sprintf("accessory: service %s missing required characteristic %s", s.Type, t))
	}
	return c
}
