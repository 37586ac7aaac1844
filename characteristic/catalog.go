// Package characteristic is the data-driven replacement for the teacher's
// one-generated-file-per-type pattern (its characteristic/current_ambient_light_level.go
// hard-coded a single HAP-defined characteristic's format/perms/range). Here
// every HAP-defined characteristic and service is described once in an
// embedded metadata table and built through a shared constructor, matching
// pyhap's loader.py "module-level global loaders" design (SPEC_FULL item 6).
package characteristic

import (
	"encoding/json"
	"fmt"

	"github.com/ivucica/go-hap/accessory"
)

type charSpec struct {
	Name     string  `json:"name"`
	Type     string  `json:"type"`
	Format   string  `json:"format"`
	Perms    []string `json:"perms"`
	Unit     string  `json:"unit,omitempty"`
	MinValue *float64 `json:"minValue,omitempty"`
	MaxValue *float64 `json:"maxValue,omitempty"`
	MinStep  *float64 `json:"minStep,omitempty"`
	MaxLen   *int     `json:"maxLen,omitempty"`
}

type serviceSpec struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
}

// Catalog maps a HAP-defined characteristic's short name (e.g.
// "CurrentTemperature") to a constructor producing a fresh characteristic
// with that type's format/perms/range metadata already applied.
var Catalog = map[string]func() *accessory.Characteristic{}

// ServiceCatalog maps a HAP-defined service's short name (e.g. "Lightbulb")
// to its type UUID.
var ServiceCatalog = map[string]accessory.TypeID{}

func init() {
	var specs []charSpec
	if err := json.Unmarshal([]byte(characteristicCatalogJSON), &specs); err != nil {
		panic(fmt.Sprintf("characteristic: parsing embedded catalog: %v", err))
	}
	for _, spec := range specs {
		spec := spec
		Catalog[spec.Name] = func() *accessory.Characteristic { return buildFromSpec(spec) }
	}

	var svcs []serviceSpec
	if err := json.Unmarshal([]byte(serviceCatalogJSON), &svcs); err != nil {
		panic(fmt.Sprintf("characteristic: parsing embedded service catalog: %v", err))
	}
	for _, svc := range svcs {
		ServiceCatalog[svc.Name] = accessory.NewBaseTypeID(svc.Type)
	}
}

func buildFromSpec(spec charSpec) *accessory.Characteristic {
	perms := make([]accessory.Perm, len(spec.Perms))
	for i, p := range spec.Perms {
		perms[i] = accessory.Perm(p)
	}
	c := accessory.NewCharacteristic(accessory.NewBaseTypeID(spec.Type), accessory.Format(spec.Format), perms...)
	c.Description = spec.Name
	c.Unit = accessory.Unit(spec.Unit)
	c.MinValue = spec.MinValue
	c.MaxValue = spec.MaxValue
	c.MinStep = spec.MinStep
	c.MaxLen = spec.MaxLen
	if c.MinValue != nil || c.MaxValue != nil {
		// Clamp the format's zero value into the declared range, so e.g.
		// CurrentAmbientLightLevel starts at its minimum of 0.0001.
		_ = c.SetValue(c.Value())
	}
	return c
}

// New builds the named characteristic from the catalog, or an error if no
// such characteristic is defined.
func New(name string) (*accessory.Characteristic, error) {
	build, ok := Catalog[name]
	if !ok {
		return nil, fmt.Errorf("characteristic: unknown characteristic %q", name)
	}
	return build(), nil
}

// NewService builds an empty service of the named HAP-defined type, or an
// error if no such service is defined.
func NewService(name string) (*accessory.Service, error) {
	t, ok := ServiceCatalog[name]
	if !ok {
		return nil, fmt.Errorf("characteristic: unknown service %q", name)
	}
	return accessory.NewService(t), nil
}
