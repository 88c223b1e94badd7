package registry

import "fmt"

// Retain produces a pruned registry containing only the descriptors
// reachable from ids satisfying keep, transitively following every
// field, element, tuple and variant reference. Retained descriptors are
// renumbered densely in their original relative order; the returned map
// translates old ids to new ones.
//
// Retain panics if a retained descriptor references an id missing from
// the closure. The closure is computed before pruning, so that can only
// happen through a registry with dangling references, which is a bug in
// whoever built it, not a recoverable condition.
func (r *Registry) Retain(keep func(TypeId) bool) (*Registry, map[TypeId]TypeId) {
	reachable := map[TypeId]bool{}
	var visit func(id TypeId)
	visit = func(id TypeId) {
		if reachable[id] {
			return
		}
		t, ok := r.Resolve(id)
		if !ok {
			panic(fmt.Sprintf("registry: retain reached dangling type id %d", id))
		}
		reachable[id] = true
		t.References(visit)
	}
	for id := TypeId(0); int(id) < len(r.types); id++ {
		if keep(id) {
			visit(id)
		}
	}

	mapping := make(map[TypeId]TypeId, len(reachable))
	out := &Registry{types: make([]Type, 0, len(reachable))}
	for id := TypeId(0); int(id) < len(r.types); id++ {
		if reachable[id] {
			mapping[id] = TypeId(len(out.types))
			out.types = append(out.types, cloneType(r.types[id]))
		}
	}

	remap := func(id TypeId) TypeId {
		newId, ok := mapping[id]
		if !ok {
			panic(fmt.Sprintf("registry: retained type references id %d outside the closure", id))
		}
		return newId
	}
	for i := range out.types {
		remapType(&out.types[i], remap)
	}
	return out, mapping
}

func cloneType(t Type) Type {
	out := t
	out.Path = append([]string(nil), t.Path...)
	out.Fields = append([]Field(nil), t.Fields...)
	out.Tuple = append([]TypeId(nil), t.Tuple...)
	out.Variants = make([]VariantDef, len(t.Variants))
	for i, v := range t.Variants {
		out.Variants[i] = VariantDef{
			Name:   v.Name,
			Index:  v.Index,
			Fields: append([]Field(nil), v.Fields...),
		}
	}
	return out
}

func remapType(t *Type, remap func(TypeId) TypeId) {
	switch t.Kind {
	case KindComposite:
		for i := range t.Fields {
			t.Fields[i].Type = remap(t.Fields[i].Type)
		}
	case KindVariant:
		for i := range t.Variants {
			for j := range t.Variants[i].Fields {
				t.Variants[i].Fields[j].Type = remap(t.Variants[i].Fields[j].Type)
			}
		}
	case KindSequence, KindArray, KindCompact:
		t.Elem = remap(t.Elem)
	case KindTuple:
		for i := range t.Tuple {
			t.Tuple[i] = remap(t.Tuple[i])
		}
	}
}
