package dialect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for affixes:
// - Without affixes the ~ marker is stripped
// - The first affix whose pattern matches wins
// - An affix without patterns matches every table
// - Invalid patterns are rejected at compile time

func TestAffixes_Apply(t *testing.T) {
	t.Parallel()

	affixes, err := CompileAffixes([]Affix{
		{Prefix: "audit.", Tables: []string{"audit_*"}},
		{Prefix: "tenant_a.", Suffix: "_v2", Tables: []string{"customer", "order*"}},
		{Prefix: "public."},
	})
	require.NoError(t, err)

	sql := "SELECT * FROM ~customer c JOIN ~orders o ON o.customer_id = c.id JOIN ~audit_log a ON a.id = c.id JOIN ~party p ON p.id = c.id"
	assert.Equal(t,
		"SELECT * FROM tenant_a.customer_v2 c JOIN tenant_a.orders_v2 o ON o.customer_id = c.id JOIN audit.audit_log a ON a.id = c.id JOIN public.party p ON p.id = c.id",
		affixes.Apply(sql))

	var none *Affixes
	assert.Equal(t, "DELETE FROM customer WHERE id = :id", none.Apply("DELETE FROM ~customer WHERE id = :id"))
}

func TestCompileAffixes_InvalidPattern(t *testing.T) {
	t.Parallel()

	_, err := CompileAffixes([]Affix{{Prefix: "x.", Tables: []string{"[unclosed"}}})
	assert.Error(t, err)
}
