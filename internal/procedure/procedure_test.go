package procedure

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/mvp-joe/typedsql/internal/schema"
	"github.com/mvp-joe/typedsql/internal/sqlgen"
)

// Test Plan for the procedure model:
// - Call syntax carries a return marker only with a RETURN parameter
// - RESULT, RETURN and UNKNOWN parameters take no argument slot
// - The interface splits parameters into input, output and result documents
// - Parameter names are cleaned to lowerCamel with an arg prefix when needed
// - Type codes map to semantic kinds, unknown data types to OTHER

func transfer() *Procedure {
	return &Procedure{
		Schema: "bank",
		Name:   "transfer",
		Parameters: []Parameter{
			{Name: "RETURN_VALUE", Direction: Return{}, SQLType: TypeInteger},
			{Name: "P_SOURCE", Direction: In{}, SQLType: TypeBigInt},
			{Name: "p_amount", Direction: InOut{}, SQLType: TypeDecimal, Nullable: true},
			{Name: "status", Direction: Out{}, SQLType: TypeVarChar},
			{Name: "ignored", Direction: Unknown{}, SQLType: TypeOther},
			{Name: "row_id", Direction: Result{}, SQLType: TypeInteger},
		},
	}
}

func TestCallSyntax(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		proc     *Procedure
		expected string
	}{
		{"with return", transfer(), "{? = call bank.transfer(?,?,?)}"},
		{
			"without schema",
			&Procedure{Name: "cleanup", Parameters: []Parameter{{Name: "days", Direction: In{}}}},
			"{call cleanup(?)}",
		},
		{"no parameters", &Procedure{Schema: "ops", Name: "vacuum"}, "{call ops.vacuum()}"},
		{
			"results only",
			&Procedure{Name: "report", Parameters: []Parameter{{Name: "total", Direction: Result{}}}},
			"{call report()}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, tt.proc.CallSyntax())
		})
	}
}

func TestProcedure_Interface(t *testing.T) {
	t.Parallel()

	iface := transfer().Interface()

	assert.Equal(t, "parameters", iface.Input.Name())
	assert.Equal(t, "return", iface.Output.Name())
	assert.Equal(t, "results", iface.Results.Name())

	input := []sqlgen.Element{
		{Name: "pSource", Kind: schema.KindLong},
		{Name: "pAmount", Kind: schema.KindDecimal, Optional: true},
	}
	if diff := cmp.Diff(input, iface.Input.Elements()); diff != "" {
		t.Errorf("input mismatch (-want +got):\n%s", diff)
	}

	output := []sqlgen.Element{
		{Name: "returnValue", Kind: schema.KindInteger},
		{Name: "pAmount", Kind: schema.KindDecimal, Optional: true},
		{Name: "status", Kind: schema.KindString},
	}
	if diff := cmp.Diff(output, iface.Output.Elements()); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}

	results := []sqlgen.Element{{Name: "rowId", Kind: schema.KindInteger}}
	if diff := cmp.Diff(results, iface.Results.Elements()); diff != "" {
		t.Errorf("results mismatch (-want +got):\n%s", diff)
	}
}

func TestProcedure_Lookups(t *testing.T) {
	t.Parallel()

	p := transfer()
	assert.Equal(t, "bank.transfer", p.QualifiedName())
	assert.True(t, p.HasResult())
	if assert.NotNil(t, p.ReturnParameter()) {
		assert.Equal(t, "RETURN_VALUE", p.ReturnParameter().Name)
	}

	plain := &Procedure{Name: "cleanup"}
	assert.Nil(t, plain.ReturnParameter())
	assert.False(t, plain.HasResult())
}

func TestParameter_Field(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		expected string
	}{
		{"customer_id", "customerId"},
		{"CUSTOMER_ID", "customerId"},
		{"1", "arg1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Parameter{Name: tt.name}.Field())
		})
	}
}

func TestSQLType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		dataType string
		code     SQLType
		kind     schema.Kind
	}{
		{"integer", TypeInteger, schema.KindInteger},
		{"bigint", TypeBigInt, schema.KindLong},
		{"numeric", TypeNumeric, schema.KindDecimal},
		{"double precision", TypeDouble, schema.KindDouble},
		{"real", TypeReal, schema.KindFloat},
		{"boolean", TypeBoolean, schema.KindBoolean},
		{"bytea", TypeBlob, schema.KindBytes},
		{"timestamp with time zone", TypeTimestampWithTimezone, schema.KindDate},
		{"timestamp without time zone", TypeTimestamp, schema.KindDate},
		{"time without time zone", TypeTime, schema.KindDate},
		{"character varying", TypeVarChar, schema.KindString},
		{"USER-DEFINED", TypeOther, schema.KindString},
	}

	for _, tt := range tests {
		t.Run(tt.dataType, func(t *testing.T) {
			assert.Equal(t, tt.code, SQLTypeOf(tt.dataType))
			assert.Equal(t, tt.kind, tt.code.Kind())
		})
	}
}
