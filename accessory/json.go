package accessory

// CharOptions controls which optional fields GET /characteristics includes,
// matching the meta/perms/type/ev query parameters of §4.6. GET
// /accessories always behaves as if every option were true.
type CharOptions struct {
	Meta   bool
	Perms  bool
	Type   bool
	Events bool
}

// AllCharOptions is the option set GET /accessories uses to render every
// characteristic in full.
var AllCharOptions = CharOptions{Meta: true, Perms: true, Type: true, Events: true}

// HAPValue renders c as the JSON object HAP expects, under the given aid,
// honoring opts the way §4.6 describes for GET /characteristics. The
// "value" field is only included when the characteristic is readable,
// matching pyhap's _value_to_HAP gating on HAP_PERMISSIONS.READ.
func (c *Characteristic) HAPValue(aid uint64, opts CharOptions) map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := map[string]interface{}{
		"aid": aid,
		"iid": c.iid,
	}
	if c.Readable() {
		out["value"] = c.value
	}
	if opts.Type {
		out["type"] = string(c.Type.WireString())
	}
	if opts.Perms {
		perms := make([]string, len(c.Perms))
		for i, p := range c.Perms {
			perms[i] = string(p)
		}
		out["perms"] = perms
	}
	if opts.Meta {
		out["format"] = string(c.Format)
		if c.Description != "" {
			out["description"] = c.Description
		}
		if c.Unit != "" {
			out["unit"] = string(c.Unit)
		}
		if c.MinValue != nil {
			out["minValue"] = *c.MinValue
		}
		if c.MaxValue != nil {
			out["maxValue"] = *c.MaxValue
		}
		if c.MinStep != nil {
			out["minStep"] = *c.MinStep
		}
		if c.Format == FormatString && c.MaxLen != nil {
			out["maxLen"] = *c.MaxLen
		}
		if len(c.ValidValues) > 0 {
			vv := make([]int, 0, len(c.ValidValues))
			for k := range c.ValidValues {
				vv = append(vv, k)
			}
			out["valid-values"] = vv
		}
	}
	if opts.Events && c.Notifiable() {
		out["ev"] = c.subscribed
	}
	return out
}

// HAPValue renders s as the JSON object GET /accessories nests under its
// owning accessory (§4.6).
func (s *Service) HAPValue(aid uint64) map[string]interface{} {
	chars := make([]map[string]interface{}, len(s.characteristics))
	for i, c := range s.characteristics {
		chars[i] = c.HAPValue(aid, AllCharOptions)
	}
	out := map[string]interface{}{
		"iid":             s.iid,
		"type":            string(s.Type.WireString()),
		"characteristics": chars,
	}
	if s.Primary {
		out["primary"] = true
	}
	if s.Hidden {
		out["hidden"] = true
	}
	if len(s.linked) > 0 {
		linked := make([]uint64, len(s.linked))
		for i, l := range s.linked {
			linked[i] = l.iid
		}
		out["linked"] = linked
	}
	return out
}

// HAPValue renders a as the JSON object embedded in the top-level
// "accessories" array of GET /accessories (§4.6).
func (a *Accessory) HAPValue() map[string]interface{} {
	services := make([]map[string]interface{}, len(a.services))
	for i, svc := range a.services {
		services[i] = svc.HAPValue(a.aid)
	}
	return map[string]interface{}{
		"aid":      a.aid,
		"services": services,
	}
}

// AccessoriesDocument renders the full { "accessories": [...] } body for
// GET /accessories (§4.6) for a single standalone accessory.
func (a *Accessory) AccessoriesDocument() map[string]interface{} {
	return map[string]interface{}{
		"accessories": []map[string]interface{}{a.HAPValue()},
	}
}

// AccessoriesDocument renders the full { "accessories": [...] } body for a
// bridge, including the bridge accessory itself and every bridged one
// (§4.6, §3 "Bridge").
func (b *Bridge) AccessoriesDocument() map[string]interface{} {
	all := b.All()
	docs := make([]map[string]interface{}, len(all))
	for i, acc := range all {
		docs[i] = acc.HAPValue()
	}
	return map[string]interface{}{"accessories": docs}
}
