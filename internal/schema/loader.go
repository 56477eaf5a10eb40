package schema

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// definitionFile is the on-disk layout of a type definition file.
type definitionFile struct {
	Types []typeDefinition `yaml:"types"`
}

type typeDefinition struct {
	ID         string            `yaml:"id"`
	Name       string            `yaml:"name"`
	Collection string            `yaml:"collection"`
	Extends    string            `yaml:"extends"`
	Hidden     bool              `yaml:"hidden"`
	Restricted []string          `yaml:"restricted"`
	Fields     []fieldDefinition `yaml:"fields"`
}

type fieldDefinition struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	MinOccurs   *int   `yaml:"min_occurs"`
	MaxOccurs   *int   `yaml:"max_occurs"`
	PrimaryKey  bool   `yaml:"primary_key"`
	Generated   bool   `yaml:"generated"`
	ForeignName string `yaml:"foreign_name"`
	ForeignKey  string `yaml:"foreign_key"`
	Default     string `yaml:"default"`
}

// ParseDefinitions decodes a YAML type definition document. Supertypes are not
// linked; register the result to resolve them.
func ParseDefinitions(data []byte) ([]*Type, error) {
	var file definitionFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDefinition, err)
	}

	types := make([]*Type, 0, len(file.Types))
	for _, def := range file.Types {
		t, err := def.build()
		if err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, nil
}

func (def typeDefinition) build() (*Type, error) {
	if def.ID == "" {
		return nil, fmt.Errorf("%w: type without id", ErrInvalidDefinition)
	}
	name := def.Name
	if name == "" {
		name = def.ID
	}
	t := &Type{
		ID:             def.ID,
		Name:           name,
		CollectionName: def.Collection,
		SuperID:        def.Extends,
		Hidden:         def.Hidden,
		Restricted:     def.Restricted,
	}
	for _, fd := range def.Fields {
		if fd.Name == "" {
			return nil, fmt.Errorf("%w: %s has a field without name", ErrInvalidDefinition, def.ID)
		}
		kind := KindString
		if fd.Type != "" {
			kind = Kind(fd.Type)
		}
		if !kind.Valid() {
			return nil, fmt.Errorf("%w: %s.%s has unknown type %q", ErrInvalidDefinition, def.ID, fd.Name, fd.Type)
		}
		f := &Field{
			Name:         fd.Name,
			Kind:         kind,
			MinOccurs:    1,
			MaxOccurs:    1,
			PrimaryKey:   fd.PrimaryKey,
			Generated:    fd.Generated,
			ForeignName:  fd.ForeignName,
			ForeignKey:   fd.ForeignKey,
			DefaultValue: fd.Default,
		}
		if fd.MinOccurs != nil {
			f.MinOccurs = *fd.MinOccurs
		}
		if fd.MaxOccurs != nil {
			f.MaxOccurs = *fd.MaxOccurs
		}
		t.Fields = append(t.Fields, f)
	}
	return t, nil
}

// LoadFiles reads type definition files into a new registry.
func LoadFiles(paths ...string) (*Registry, error) {
	var all []*Type
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read type definitions %s: %w", path, err)
		}
		types, err := ParseDefinitions(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		all = append(all, types...)
	}

	registry := NewRegistry()
	if err := registry.Register(all...); err != nil {
		return nil, err
	}
	return registry, nil
}
