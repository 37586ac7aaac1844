package accessory

import (
	"context"
	"fmt"
)

// Runnable is implemented by accessories that run background work for as
// long as they are published, e.g. polling a sensor (§3, SPEC_FULL item 7).
// Run receives a stop channel. Package server does not call Run; a Runnable
// attached with SetRunnable is only stored on the accessory.
type Runnable interface {
	Run(stop <-chan struct{})
}

// Identifier is implemented by accessories that react to an identify
// request. Nothing in this core calls Identify: there is no /identify
// endpoint, and a write to the Identify characteristic only stores the
// written value.
type Identifier interface {
	Identify()
}

// Snapshotter is implemented by accessories that can produce a still image
// for POST /resource (§4.6, SPEC_FULL item 7). Camera/RTP stream negotiation
// itself is out of scope; this is the only camera-adjacent surface kept.
type Snapshotter interface {
	Snapshot(ctx context.Context, width, height int) ([]byte, error)
}

// Accessory is one addressable HAP accessory: an aid, an ordered list of
// services, and (for the root/bridge accessory) the mandatory
// AccessoryInformation service (§3).
type Accessory struct {
	aid      uint64
	Category Category

	services    []*Service
	iids        *iidManager
	snapshotter Snapshotter
	identifier  Identifier
	runnable    Runnable
}

// NewAccessory constructs a standalone accessory (aid=1) with the mandatory
// AccessoryInformation service populated from info.
func NewAccessory(info Info, category Category) *Accessory {
	a := &Accessory{aid: StandaloneAID, Category: category}
	a.services = append(a.services, newAccessoryInformationService(info))
	assignIIDs(a)
	return a
}

// Info is the set of fields every AccessoryInformation service carries.
type Info struct {
	Name             string
	Manufacturer     string
	Model            string
	SerialNumber     string
	FirmwareRevision string
}

// AID returns the accessory's instance id.
func (a *Accessory) AID() uint64 { return a.aid }

// AddService appends svc, mints iids for it and its characteristics, and
// returns a for chaining.
func (a *Accessory) AddService(svc *Service) *Accessory {
	a.services = append(a.services, svc)
	assignIIDs(a)
	return a
}

// Services returns the accessory's services in wire order.
func (a *Accessory) Services() []*Service {
	return a.services
}

// AllAccessories returns just a, satisfying Graph for a standalone
// accessory.
func (a *Accessory) AllAccessories() []*Accessory { return []*Accessory{a} }

// SetSnapshotter, SetIdentifier and SetRunnable attach the capability
// traits from SPEC_FULL item 7 to this accessory. A driver implementing
// one of them for a concrete accessory type registers it here instead of
// requiring every accessory type to embed *Accessory in a way that would
// satisfy the interface by promotion.
func (a *Accessory) SetSnapshotter(s Snapshotter) { a.snapshotter = s }
func (a *Accessory) SetIdentifier(i Identifier)   { a.identifier = i }
func (a *Accessory) SetRunnable(r Runnable)       { a.runnable = r }

// Snapshotter, AccessoryIdentifier and AccessoryRunnable return the
// attached trait, if any.
func (a *Accessory) Snapshotter() (Snapshotter, bool) { return a.snapshotter, a.snapshotter != nil }
func (a *Accessory) AccessoryIdentifier() (Identifier, bool) { return a.identifier, a.identifier != nil }
func (a *Accessory) AccessoryRunnable() (Runnable, bool)     { return a.runnable, a.runnable != nil }

// Characteristic looks up a characteristic anywhere within the accessory by
// iid, as used to resolve GET/PUT /characteristics requests (§4.6).
func (a *Accessory) Characteristic(iid uint64) (*Characteristic, bool) {
	for _, svc := range a.services {
		for _, c := range svc.characteristics {
			if c.iid == iid {
				return c, true
			}
		}
	}
	return nil, false
}

func newAccessoryInformationService(info Info) *Service {
	svc := NewService(NewBaseTypeID("3E"))
	svc.AddCharacteristic(stringChar(NewBaseTypeID("23"), info.Name))
	svc.AddCharacteristic(stringChar(NewBaseTypeID("20"), info.Manufacturer))
	svc.AddCharacteristic(stringChar(NewBaseTypeID("21"), info.Model))
	svc.AddCharacteristic(stringChar(NewBaseTypeID("30"), info.SerialNumber))
	svc.AddCharacteristic(stringChar(NewBaseTypeID("52"), info.FirmwareRevision))
	svc.AddCharacteristic(NewCharacteristic(NewBaseTypeID("14"), FormatBool, PermWrite))
	return svc
}

func stringChar(t TypeID, v string) *Characteristic {
	c := NewCharacteristic(t, FormatString, PermRead)
	_ = c.SetValue(v)
	return c
}

// Bridge is an accessory of category CategoryBridge that aggregates other
// accessories under aids 2, 3, ... (§3). A bridge cannot itself be bridged
// and an accessory cannot be added twice.
type Bridge struct {
	*Accessory
	accessories map[uint64]*Accessory
	nextAID     uint64
}

// NewBridge constructs a bridge accessory with its own AccessoryInformation
// service at aid=1.
func NewBridge(info Info) *Bridge {
	return &Bridge{
		Accessory:   NewAccessory(info, CategoryBridge),
		accessories: map[uint64]*Accessory{},
		nextAID:     2,
	}
}

// AddAccessory assigns the next available aid (starting at 2) to acc and
// adds it to the bridge. Returns an error if acc is itself a bridge, or if
// acc already has an aid assigned by this bridge (§3 invariant: no nested
// bridges, no duplicate aid).
func (b *Bridge) AddAccessory(acc *Accessory) error {
	if acc.Category == CategoryBridge {
		return fmt.Errorf("accessory: cannot bridge another bridge accessory")
	}
	if acc.aid != 0 && acc.aid != StandaloneAID {
		if _, exists := b.accessories[acc.aid]; exists {
			return fmt.Errorf("accessory: aid %d already present on bridge", acc.aid)
		}
	}
	acc.aid = b.nextAID
	b.nextAID++
	b.accessories[acc.aid] = acc
	return nil
}

// Accessories returns the bridged accessories, not including the bridge
// itself, keyed by aid.
func (b *Bridge) Accessories() map[uint64]*Accessory {
	out := make(map[uint64]*Accessory, len(b.accessories))
	for k, v := range b.accessories {
		out[k] = v
	}
	return out
}

// All returns the bridge accessory itself followed by every bridged
// accessory, the order GET /accessories renders the graph in (§4.6).
func (b *Bridge) All() []*Accessory {
	all := make([]*Accessory, 0, len(b.accessories)+1)
	all = append(all, b.Accessory)
	for _, acc := range b.accessories {
		all = append(all, acc)
	}
	return all
}

// AllAccessories is an alias for All, satisfying Graph.
func (b *Bridge) AllAccessories() []*Accessory { return b.All() }

// Graph is anything that can render GET /accessories and resolve a
// characteristic by aid/iid: either a standalone *Accessory or a *Bridge
// (§4.6).
type Graph interface {
	AllAccessories() []*Accessory
	AccessoriesDocument() map[string]interface{}
}

// FindCharacteristic resolves an (aid, iid) pair against every accessory in
// the graph, as GET/PUT /characteristics must (§4.6).
func FindCharacteristic(g Graph, aid, iid uint64) (*Characteristic, bool) {
	for _, acc := range g.AllAccessories() {
		if acc.AID() != aid {
			continue
		}
		return acc.Characteristic(iid)
	}
	return nil, false
}

// FindAccessory resolves aid against every accessory in the graph, as POST
// /resource must (§4.6).
func FindAccessory(g Graph, aid uint64) (*Accessory, bool) {
	for _, acc := range g.AllAccessories() {
		if acc.AID() == aid {
			return acc, true
		}
	}
	return nil, false
}
