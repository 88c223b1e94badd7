package metadata

import (
	"github.com/wippyai/scale-codec/registry"
)

// Idents that generated code depends on regardless of which pallets
// survive a retain.
var alwaysRetainedIdents = map[string]bool{
	"DispatchError": true,
	"RuntimeEvent":  true,
}

// Retain shrinks the metadata to the pallets accepted by keep, pruning
// the type registry down to what those pallets, the extrinsic and the
// outer enums reach. All stored type ids are rewritten to the new
// registry. The outer call, event and error enums are stripped to the
// variants of the surviving pallets, so their shape hashes match a
// restricted hash of the original snapshot.
func (m *Metadata) Retain(keep func(pallet string) bool) {
	keepIds := map[registry.TypeId]bool{}
	markPallet := func(p *Pallet) {
		if p.Storage != nil {
			for i := range p.Storage.Entries {
				e := &p.Storage.Entries[i]
				if e.Key != nil {
					keepIds[*e.Key] = true
				}
				keepIds[e.Value] = true
			}
		}
		for _, opt := range []*registry.TypeId{p.Calls, p.Events, p.Errors} {
			if opt != nil {
				keepIds[*opt] = true
			}
		}
		for i := range p.Constants {
			keepIds[p.Constants[i].Type] = true
		}
	}

	var pallets []Pallet
	keptNames := map[string]bool{}
	for i := range m.Pallets {
		if !keep(m.Pallets[i].Name) {
			continue
		}
		markPallet(&m.Pallets[i])
		keptNames[m.Pallets[i].Name] = true
		pallets = append(pallets, m.Pallets[i])
	}
	m.Pallets = pallets

	keepIds[m.Extrinsic.Address] = true
	keepIds[m.Extrinsic.Call] = true
	keepIds[m.Extrinsic.Signature] = true
	keepIds[m.Extrinsic.Extra] = true
	for _, ext := range m.Extrinsic.SignedExtensions {
		keepIds[ext.Type] = true
		keepIds[ext.Additional] = true
	}
	keepIds[m.Runtime] = true

	for i := range m.APIs {
		for j := range m.APIs[i].Methods {
			method := &m.APIs[i].Methods[j]
			for _, in := range method.Inputs {
				keepIds[in.Type] = true
			}
			keepIds[method.Output] = true
		}
	}

	// The outer enums lose the variants of dropped pallets before the
	// reachability walk, so types referenced only by dropped variants
	// are pruned too.
	for _, id := range []registry.TypeId{m.OuterEnums.Call, m.OuterEnums.Event, m.OuterEnums.Error} {
		stripVariants(m.Types, id, keptNames)
		keepIds[id] = true
	}

	for id := registry.TypeId(0); int(id) < m.Types.Len(); id++ {
		ty, _ := m.Types.Resolve(id)
		if len(ty.Path) > 0 && alwaysRetainedIdents[ty.Path[len(ty.Path)-1]] {
			keepIds[id] = true
		}
	}

	types, remap := m.Types.Retain(func(id registry.TypeId) bool { return keepIds[id] })
	m.Types = types

	rewrite := func(id *registry.TypeId) {
		*id = remap[*id]
	}
	for i := range m.Pallets {
		p := &m.Pallets[i]
		if p.Storage != nil {
			for j := range p.Storage.Entries {
				e := &p.Storage.Entries[j]
				if e.Key != nil {
					rewrite(e.Key)
				}
				rewrite(&e.Value)
			}
		}
		for _, opt := range []*registry.TypeId{p.Calls, p.Events, p.Errors} {
			if opt != nil {
				rewrite(opt)
			}
		}
		for j := range p.Constants {
			rewrite(&p.Constants[j].Type)
		}
	}
	rewrite(&m.Extrinsic.Address)
	rewrite(&m.Extrinsic.Call)
	rewrite(&m.Extrinsic.Signature)
	rewrite(&m.Extrinsic.Extra)
	for i := range m.Extrinsic.SignedExtensions {
		rewrite(&m.Extrinsic.SignedExtensions[i].Type)
		rewrite(&m.Extrinsic.SignedExtensions[i].Additional)
	}
	rewrite(&m.Runtime)
	for i := range m.APIs {
		for j := range m.APIs[i].Methods {
			method := &m.APIs[i].Methods[j]
			for k := range method.Inputs {
				rewrite(&method.Inputs[k].Type)
			}
			rewrite(&method.Output)
		}
	}
	rewrite(&m.OuterEnums.Call)
	rewrite(&m.OuterEnums.Event)
	rewrite(&m.OuterEnums.Error)

	var custom []CustomValue
	for _, c := range m.Custom {
		if newId, ok := remap[c.Type]; ok {
			c.Type = newId
			custom = append(custom, c)
		}
	}
	m.Custom = custom
}

// stripVariants drops the variants of an outer enum whose names are not
// in kept. Non-variant types are left alone.
func stripVariants(reg *registry.Registry, id registry.TypeId, kept map[string]bool) {
	ty, ok := reg.Resolve(id)
	if !ok || ty.Kind != registry.KindVariant {
		return
	}
	var variants []registry.VariantDef
	for _, v := range ty.Variants {
		if kept[v.Name] {
			variants = append(variants, v)
		}
	}
	stripped := *ty
	stripped.Variants = variants
	reg.Set(id, stripped)
}
