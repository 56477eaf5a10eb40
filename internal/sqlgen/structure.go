package sqlgen

import "github.com/mvp-joe/typedsql/internal/schema"

// Element is one named slot of a parameter document.
type Element struct {
	Name     string
	Kind     schema.Kind
	List     bool
	Optional bool
	// Label carries the filter key an input slot was generated for.
	Label string
}

// Structure is an immutable, ordered parameter document.
type Structure struct {
	name     string
	elements []Element
}

// Name returns the document name.
func (s Structure) Name() string {
	return s.name
}

// Len returns the number of elements.
func (s Structure) Len() int {
	return len(s.elements)
}

// Elements returns a copy of the elements in declaration order.
func (s Structure) Elements() []Element {
	out := make([]Element, len(s.elements))
	copy(out, s.elements)
	return out
}

// Names returns the element names in declaration order.
func (s Structure) Names() []string {
	names := make([]string, len(s.elements))
	for i, e := range s.elements {
		names[i] = e.Name
	}
	return names
}

// Get returns the element with the given name.
func (s Structure) Get(name string) (Element, bool) {
	for _, e := range s.elements {
		if e.Name == name {
			return e, true
		}
	}
	return Element{}, false
}

// Labelled returns the names of the elements labelled with label.
func (s Structure) Labelled(label string) []string {
	var names []string
	for _, e := range s.elements {
		if e.Label == label {
			names = append(names, e.Name)
		}
	}
	return names
}

// StructureBuilder accumulates elements for a Structure.
type StructureBuilder struct {
	name     string
	elements []Element
	seen     map[string]bool
}

// NewStructure starts a parameter document with the given name.
func NewStructure(name string) *StructureBuilder {
	return &StructureBuilder{name: name, seen: map[string]bool{}}
}

// Add appends an element. A name that was already added is ignored.
func (b *StructureBuilder) Add(e Element) *StructureBuilder {
	if b.seen[e.Name] {
		return b
	}
	b.seen[e.Name] = true
	b.elements = append(b.elements, e)
	return b
}

// AddField appends an element shaped after a field.
func (b *StructureBuilder) AddField(f *schema.Field) *StructureBuilder {
	return b.Add(Element{Name: f.Name, Kind: f.Kind, List: f.IsList(), Optional: f.IsOptional()})
}

// Build returns the finished document. The builder may keep being used;
// earlier documents are unaffected.
func (b *StructureBuilder) Build() Structure {
	elements := make([]Element, len(b.elements))
	copy(elements, b.elements)
	return Structure{name: b.name, elements: elements}
}
