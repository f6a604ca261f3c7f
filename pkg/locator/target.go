package locator

import "strings"

// TargetRef models the authoring-time "dynamic:<text>" convention as an
// explicit sum type instead of a string-prefix sentinel threaded through the
// pipeline. ByReference names an asset-store entry to match visually;
// ByDescription carries free text for the remote-model stage only.
type TargetRef struct {
	kind        targetKind
	name        string
	description string
}

type targetKind int

const (
	kindReference targetKind = iota
	kindDescription
)

func ByReference(name string) TargetRef {
	return TargetRef{kind: kindReference, name: name}
}

func ByDescription(text string) TargetRef {
	return TargetRef{kind: kindDescription, description: text}
}

func (t TargetRef) IsDynamic() bool {
	return t.kind == kindDescription
}

func (t TargetRef) ReferenceName() string {
	return t.name
}

func (t TargetRef) Description() string {
	return t.description
}

// ParseTargetRef interprets on-disk authoring syntax: a literal "dynamic:"
// prefix becomes ByDescription, everything else is a reference name.
func ParseTargetRef(raw string) TargetRef {
	trimmed := strings.TrimSpace(raw)
	const prefix = "dynamic:"
	if len(trimmed) >= len(prefix) && strings.EqualFold(trimmed[:len(prefix)], prefix) {
		return ByDescription(strings.TrimSpace(trimmed[len(prefix):]))
	}
	return ByReference(trimmed)
}

func (t TargetRef) String() string {
	if t.IsDynamic() {
		return "dynamic:" + t.description
	}
	return t.name
}
