// Package procedure models stored procedures: their parameters, call syntax,
// typed input/output documents, invocation and discovery from the catalog.
package procedure

import (
	"errors"
	"strings"

	"github.com/mvp-joe/typedsql/internal/schema"
	"github.com/mvp-joe/typedsql/internal/sqlgen"
)

var (
	// ErrUnknownDirection indicates a parameter direction outside the known set
	ErrUnknownDirection = errors.New("unknown parameter direction")

	// ErrNotConvertible indicates a read-back value that does not fit its parameter
	ErrNotConvertible = schema.ErrNotConvertible
)

// Parameter is one declared parameter of a stored procedure.
type Parameter struct {
	Name        string
	Description string
	// Procedure is the unique name of the procedure the parameter belongs to.
	Procedure string
	Direction Direction
	SQLType   SQLType
	Precision int
	Length    int
	Scale     int
	Radix     int
	Nullable  bool
}

// Field returns the cleaned name values of the parameter are bound under.
func (p Parameter) Field() string {
	return schema.CleanupName(p.Name)
}

func (p Parameter) element() sqlgen.Element {
	return sqlgen.Element{Name: p.Field(), Kind: p.SQLType.Kind(), Optional: p.Nullable}
}

// Procedure is a stored procedure as described by the catalog.
type Procedure struct {
	Catalogue  string
	Schema     string
	Name       string
	UniqueName string
	Remarks    string
	// Function is set for routines called as functions rather than procedures.
	Function   bool
	Parameters []Parameter
}

// QualifiedName returns schema.name, or name without a schema.
func (p *Procedure) QualifiedName() string {
	if p.Schema == "" {
		return p.Name
	}
	return p.Schema + "." + p.Name
}

// ReturnParameter returns the first RETURN parameter, or nil.
func (p *Procedure) ReturnParameter() *Parameter {
	for i := range p.Parameters {
		if _, ok := p.Parameters[i].Direction.(Return); ok {
			return &p.Parameters[i]
		}
	}
	return nil
}

// HasResult reports whether the procedure produces a result set.
func (p *Procedure) HasResult() bool {
	for _, param := range p.Parameters {
		if _, ok := param.Direction.(Result); ok {
			return true
		}
	}
	return false
}

// arguments returns the parameters that occupy an argument slot, in order.
func (p *Procedure) arguments() []Parameter {
	var args []Parameter
	for _, param := range p.Parameters {
		if positional(param.Direction) {
			args = append(args, param)
		}
	}
	return args
}

// CallSyntax renders the call escape {[? =] call [schema.]name(?,...)}.
func (p *Procedure) CallSyntax() string {
	var sb strings.Builder
	sb.WriteString("{")
	if p.ReturnParameter() != nil {
		sb.WriteString("? = ")
	}
	sb.WriteString("call ")
	sb.WriteString(p.QualifiedName())
	sb.WriteString("(")
	for i := range p.arguments() {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("?")
	}
	sb.WriteString(")}")
	return sb.String()
}

// Interface is the typed shape of a procedure call.
type Interface struct {
	// Input holds IN and IN_OUT parameters.
	Input sqlgen.Structure
	// Output holds RETURN, OUT and IN_OUT parameters.
	Output sqlgen.Structure
	// Results describes one row of the produced result set.
	Results sqlgen.Structure
}

// Interface derives the input, output and result documents. Parameter names
// are cleaned to lowerCamel; UNKNOWN parameters are ignored.
func (p *Procedure) Interface() Interface {
	input := sqlgen.NewStructure("parameters")
	output := sqlgen.NewStructure("return")
	results := sqlgen.NewStructure("results")
	for _, param := range p.Parameters {
		switch param.Direction.(type) {
		case In:
			input.Add(param.element())
		case Out, Return:
			output.Add(param.element())
		case InOut:
			input.Add(param.element())
			output.Add(param.element())
		case Result:
			results.Add(param.element())
		case Unknown, nil:
		}
	}
	return Interface{Input: input.Build(), Output: output.Build(), Results: results.Build()}
}
