package procedure

import (
	"fmt"
	"strings"
)

// Direction is the role of a stored procedure parameter. The set of
// directions is closed: In, Out, InOut, Return, Result and Unknown.
type Direction interface {
	// Code is the catalog metadata value of the direction.
	Code() int
	String() string
	sealed()
}

// In is an input parameter.
type In struct{}

// Out is an output parameter read back after the call.
type Out struct{}

// InOut is bound before and read back after the call.
type InOut struct{}

// Return is the procedure's return value.
type Return struct{}

// Result is a column of a result set the procedure produces.
type Result struct{}

// Unknown is a parameter the catalog could not classify. It is ignored.
type Unknown struct{}

func (In) Code() int      { return 1 }
func (Out) Code() int     { return 4 }
func (InOut) Code() int   { return 2 }
func (Return) Code() int  { return 5 }
func (Result) Code() int  { return 3 }
func (Unknown) Code() int { return 0 }

func (In) String() string      { return "IN" }
func (Out) String() string     { return "OUT" }
func (InOut) String() string   { return "IN_OUT" }
func (Return) String() string  { return "RETURN" }
func (Result) String() string  { return "RESULT" }
func (Unknown) String() string { return "UNKNOWN" }

func (In) sealed()      {}
func (Out) sealed()     {}
func (InOut) sealed()   {}
func (Return) sealed()  {}
func (Result) sealed()  {}
func (Unknown) sealed() {}

// DirectionOf maps a catalog metadata code to its direction.
func DirectionOf(code int) (Direction, error) {
	for _, d := range []Direction{Unknown{}, In{}, InOut{}, Result{}, Out{}, Return{}} {
		if d.Code() == code {
			return d, nil
		}
	}
	return nil, fmt.Errorf("%w: code %d", ErrUnknownDirection, code)
}

// ParseDirection reads a direction name, as spelled by String or by the
// information schema's parameter_mode column.
func ParseDirection(name string) (Direction, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "IN":
		return In{}, nil
	case "OUT":
		return Out{}, nil
	case "IN_OUT", "INOUT", "IN OUT":
		return InOut{}, nil
	case "RETURN":
		return Return{}, nil
	case "RESULT":
		return Result{}, nil
	case "UNKNOWN", "":
		return Unknown{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDirection, name)
}

// positional reports whether the parameter occupies an argument slot of the call.
func positional(d Direction) bool {
	switch d.(type) {
	case In, Out, InOut:
		return true
	case Return, Result, Unknown, nil:
		return false
	}
	panic(fmt.Sprintf("unhandled direction %T", d))
}

// bound reports whether a value is sent for the parameter.
func bound(d Direction) bool {
	switch d.(type) {
	case In, InOut:
		return true
	case Out, Return, Result, Unknown, nil:
		return false
	}
	panic(fmt.Sprintf("unhandled direction %T", d))
}

// readBack reports whether the parameter's value is read after the call.
func readBack(d Direction) bool {
	switch d.(type) {
	case Out, InOut, Return:
		return true
	case In, Result, Unknown, nil:
		return false
	}
	panic(fmt.Sprintf("unhandled direction %T", d))
}
