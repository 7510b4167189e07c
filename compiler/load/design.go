// Package load reads design files: YAML descriptions of modules, classes and
// associations that are applied to a model graph in one transaction.
//
// A design is an input only. It is never written back; the graph and its
// journal stay the source of truth once a design was applied.
package load

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Design is the root of a design file.
type Design struct {
	// Project names the graph built from the design. Apply renames the
	// root when it is set.
	Project string    `yaml:"project,omitempty"`
	Modules []*Module `yaml:"modules"`
}

// Module is a module and its contents. A module that already exists in the
// graph is extended.
type Module struct {
	Name         string         `yaml:"name"`
	Comment      string         `yaml:"comment,omitempty"`
	Modules      []*Module      `yaml:"modules,omitempty"`
	Classes      []*Class       `yaml:"classes,omitempty"`
	Associations []*Association `yaml:"associations,omitempty"`
}

// Class is a classifier. Kind is one of class, struct, union, enum or
// typedef and defaults to class.
type Class struct {
	Name       string       `yaml:"name"`
	Kind       string       `yaml:"kind,omitempty"`
	Comment    string       `yaml:"comment,omitempty"`
	Abstract   bool         `yaml:"abstract,omitempty"`
	External   bool         `yaml:"external,omitempty"`
	Bases      []*Base      `yaml:"bases,omitempty"`
	Alias      string       `yaml:"alias,omitempty"`
	Values     []*Value     `yaml:"values,omitempty"`
	Attributes []*Attribute `yaml:"attributes,omitempty"`
	Operations []*Operation `yaml:"operations,omitempty"`
	Classes    []*Class     `yaml:"classes,omitempty"`
}

// Base is an inheritance edge. A scalar is accepted as the class name.
type Base struct {
	Class   string `yaml:"class"`
	Virtual bool   `yaml:"virtual,omitempty"`
	Access  string `yaml:"access,omitempty"`
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (b *Base) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		b.Class = n.Value
		return nil
	}
	type plain Base
	return n.Decode((*plain)(b))
}

// Value is an enumerator. A scalar is accepted as the enumerator name.
type Value struct {
	Name    string `yaml:"name"`
	Value   string `yaml:"value,omitempty"`
	Comment string `yaml:"comment,omitempty"`
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (v *Value) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		v.Name = n.Value
		return nil
	}
	type plain Value
	return n.Decode((*plain)(v))
}

// Attribute is a data member. An attribute without a default must be
// initialised by the constructors of its class.
type Attribute struct {
	Name    string  `yaml:"name"`
	Type    string  `yaml:"type"`
	Comment string  `yaml:"comment,omitempty"`
	Static  bool    `yaml:"static,omitempty"`
	Const   bool    `yaml:"const,omitempty"`
	Default *string `yaml:"default,omitempty"`
	Access  string  `yaml:"access,omitempty"`
}

// Operation is a method, constructor or destructor.
type Operation struct {
	Name        string   `yaml:"name"`
	Comment     string   `yaml:"comment,omitempty"`
	Return      string   `yaml:"return,omitempty"`
	Params      []*Param `yaml:"params,omitempty"`
	Static      bool     `yaml:"static,omitempty"`
	Const       bool     `yaml:"const,omitempty"`
	Virtual     bool     `yaml:"virtual,omitempty"`
	Abstract    bool     `yaml:"abstract,omitempty"`
	Constructor bool     `yaml:"constructor,omitempty"`
	Destructor  bool     `yaml:"destructor,omitempty"`
	Preferred   bool     `yaml:"preferred,omitempty"`
	Access      string   `yaml:"access,omitempty"`
	Body        string   `yaml:"body,omitempty"`
	Inits       []*Init  `yaml:"inits,omitempty"`
}

// Param is an operation parameter.
type Param struct {
	Name    string `yaml:"name"`
	Type    string `yaml:"type"`
	Default string `yaml:"default,omitempty"`
}

// Init is a constructor initialiser: a base constructor call when Base is
// set, a member initialisation otherwise.
type Init struct {
	Base   string   `yaml:"base,omitempty"`
	Member string   `yaml:"member,omitempty"`
	Args   []string `yaml:"args,omitempty"`
}

// Association connects two classes. The name defaults to "From_To".
type Association struct {
	Name          string `yaml:"name,omitempty"`
	Comment       string `yaml:"comment,omitempty"`
	From          End    `yaml:"from"`
	To            End    `yaml:"to"`
	Global        bool   `yaml:"global,omitempty"`
	Bidirectional bool   `yaml:"bidirectional,omitempty"`
	Storage       string `yaml:"storage,omitempty"`
}

// End is one end of an association. A scalar is accepted as the class name
// of an end with multiplicity "0..1".
type End struct {
	Class        string `yaml:"class"`
	Role         string `yaml:"role,omitempty"`
	Multiplicity string `yaml:"multiplicity,omitempty"`
	Access       string `yaml:"access,omitempty"`
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (e *End) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		e.Class = n.Value
		return nil
	}
	type plain End
	return n.Decode((*plain)(e))
}

// Parse decodes a design. Unknown keys are rejected.
func Parse(data []byte) (*Design, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	d := &Design{}
	if err := dec.Decode(d); err != nil {
		if errors.Is(err, io.EOF) {
			return d, nil
		}
		return nil, &DesignError{Message: "decode", Cause: err}
	}
	return d, nil
}

// ReadFile reads and decodes the design at path.
func ReadFile(fs afero.Fs, path string) (*Design, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("casegen: read design: %w", err)
	}
	d, err := Parse(data)
	if err != nil {
		var de *DesignError
		if errors.As(err, &de) {
			de.File = path
		}
		return nil, err
	}
	return d, nil
}
