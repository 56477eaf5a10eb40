package sqlgen

import (
	"github.com/mvp-joe/typedsql/internal/schema"
)

func required(name string, kind schema.Kind) *schema.Field {
	return &schema.Field{Name: name, Kind: kind, MinOccurs: 1, MaxOccurs: 1}
}

func optional(name string, kind schema.Kind) *schema.Field {
	return &schema.Field{Name: name, Kind: kind, MinOccurs: 0, MaxOccurs: 1}
}

func key(name string, generated bool) *schema.Field {
	f := required(name, schema.KindLong)
	f.PrimaryKey = true
	f.Generated = generated
	return f
}

func generated(name string, kind schema.Kind) *schema.Field {
	f := required(name, kind)
	f.Generated = true
	return f
}

// partyHierarchy returns party <- (hidden) audited <- customer, customer in
// its own table.
func partyHierarchy() (party, audited, customer *schema.Type) {
	party = &schema.Type{ID: "crm.Party", Name: "Party", CollectionName: "party", Fields: []*schema.Field{
		key("id", true),
		required("name", schema.KindString),
		generated("createdAt", schema.KindDate),
	}}
	audited = &schema.Type{ID: "crm.Audited", Name: "Audited", Hidden: true, Super: party, Fields: []*schema.Field{
		optional("modifiedBy", schema.KindString),
	}}
	customer = &schema.Type{ID: "crm.Customer", Name: "Customer", CollectionName: "customer", Super: audited, Fields: []*schema.Field{
		key("id", false),
		optional("loyaltyLevel", schema.KindInteger),
	}}
	customer.Fields[1].DefaultValue = "0"
	return party, audited, customer
}
