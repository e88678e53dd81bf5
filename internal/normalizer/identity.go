package normalizer

// identityShape tags the two address-object layouts the mailbox API uses.
type identityShape int

const (
	// shapeNone is anything that is not a recognizable address object.
	shapeNone identityShape = iota
	// shapeWrapped is {"emailAddress": {"name": ..., "address": ...}}, used by
	// message senders/recipients and event attendees/organizers.
	shapeWrapped
	// shapeFlat is {"name": ..., "address": ...}.
	shapeFlat
)

// identity is a display name and address pair. Either part may be empty.
type identity struct {
	Name    string
	Address string
}

// classifyIdentity returns the shape of v and the object holding name/address.
// A present "emailAddress" key selects the wrapped form even when its value
// is not an object; that case resolves to shapeNone.
func classifyIdentity(v any) (identityShape, map[string]any) {
	entity, ok := v.(map[string]any)
	if !ok || len(entity) == 0 {
		return shapeNone, nil
	}

	inner, wrapped := entity["emailAddress"]
	if !wrapped {
		return shapeFlat, entity
	}

	fields, ok := inner.(map[string]any)
	if !ok {
		return shapeNone, nil
	}

	return shapeWrapped, fields
}

// unwrapIdentity extracts the name and address from either address layout.
func unwrapIdentity(v any) identity {
	shape, fields := classifyIdentity(v)

	switch shape {
	case shapeWrapped, shapeFlat:
		return identity{
			Name:    getString(fields, "name").or(""),
			Address: getString(fields, "address").or(""),
		}
	default:
		return identity{}
	}
}
