package schema

// IsCompatible reports whether a value described by candidate may be bound
// where target is expected.
//
//   - string, number and boolean match the same tag; file only matches file.
//   - A primitive target also accepts an object candidate when any of the
//     candidate's fields has that primitive type, so that "object.field" can be
//     offered as a source.
//   - Arrays match when both sides are arrays with compatible items.
//   - An object target accepts an object candidate that has a compatible field
//     for every target field; extra candidate fields are ignored.
//
// Cyclic schemas never match: a (target, candidate) pair seen again on the
// current path is treated as incompatible.
func IsCompatible(target, candidate *Schema) bool {
	return compatible(target, candidate, make(map[schemaPair]bool))
}

type schemaPair struct {
	target, candidate *Schema
}

func compatible(target, candidate *Schema, onPath map[schemaPair]bool) bool {
	if target == nil || candidate == nil {
		return false
	}
	p := schemaPair{target, candidate}
	if onPath[p] {
		return false
	}
	onPath[p] = true
	defer delete(onPath, p)

	switch target.Type {
	case TypeString, TypeNumber, TypeBoolean:
		if candidate.Type == target.Type {
			return true
		}
		if candidate.Type == TypeObject {
			for _, f := range candidate.Fields {
				if f.Schema != nil && f.Schema.Type == target.Type {
					return true
				}
			}
		}
		return false

	case TypeFile:
		return candidate.Type == TypeFile

	case TypeArray:
		return candidate.Type == TypeArray && compatible(target.Items, candidate.Items, onPath)

	case TypeObject:
		if candidate.Type != TypeObject {
			return false
		}
		for _, tf := range target.Fields {
			cf, ok := candidate.Field(tf.Name)
			if !ok || !compatible(tf.Schema, cf, onPath) {
				return false
			}
		}
		return true
	}
	return false
}

// CompatibleFields lists the fields of an object candidate that can supply a
// primitive target directly. It returns nil for non-object candidates.
func CompatibleFields(target, candidate *Schema) []string {
	if target == nil || candidate == nil || candidate.Type != TypeObject || !target.IsPrimitive() {
		return nil
	}
	var names []string
	for _, f := range candidate.Fields {
		if f.Schema != nil && f.Schema.Type == target.Type {
			names = append(names, f.Name)
		}
	}
	return names
}
