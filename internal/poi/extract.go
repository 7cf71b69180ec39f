package poi

// Extract maps a classified entity onto a canonical record. Tags missing
// from the entity leave their fields absent; values that fail numeric
// coercion are dropped and listed in Record.Dropped.
func Extract(e *Entity, subtype Subtype) *Record {
	rec := NewRecord(e.Ref, subtype)

	if e.Ref.Kind == KindNode && e.Location != nil {
		rec.SetLocation(*e.Location)
	}

	for _, f := range Fields {
		if !f.AppliesTo(subtype) {
			continue
		}
		switch f.Origin {
		case OriginTag:
			raw, ok := e.Tags.Lookup(f.Key)
			if !ok {
				continue
			}
			v, ok := f.Coerce.Apply(raw)
			if !ok {
				rec.Dropped = append(rec.Dropped, f.Key)
				continue
			}
			rec.Set(f.Name, v)
		case OriginDerived:
			if v, ok := derive(f.Name, e, subtype); ok {
				rec.Set(f.Name, v)
			}
		}
	}

	return rec
}

func derive(field string, e *Entity, subtype Subtype) (Value, bool) {
	switch field {
	case FieldTransitType:
		switch subtype {
		case SubtypeRailStation:
			return Text(TransitType(e.Tags)), true
		case SubtypeBusStop:
			return Text(TransitBus), true
		}
	}
	return Value{}, false
}
