package model

// Doctype describes one mirrored ERP document table that the analytical
// tools and the alert engine are allowed to query.
type Doctype struct {
	Name   string
	Table  string
	Fields map[string]bool // queryable columns
}

// Business document types whose submit/cancel events invalidate the
// query cache. The mirror tables are populated by the ERP-side sync.
var Doctypes = map[string]Doctype{
	"Sales Invoice": {
		Name:  "Sales Invoice",
		Table: "sales_invoices",
		Fields: map[string]bool{
			"grand_total": true, "outstanding_amount": true, "posting_date": true,
			"customer": true, "docstatus": true, "workflow_state": true,
		},
	},
	"Sales Order": {
		Name:  "Sales Order",
		Table: "sales_orders",
		Fields: map[string]bool{
			"grand_total": true, "posting_date": true, "customer": true,
			"docstatus": true, "workflow_state": true,
		},
	},
	"Purchase Invoice": {
		Name:  "Purchase Invoice",
		Table: "purchase_invoices",
		Fields: map[string]bool{
			"grand_total": true, "outstanding_amount": true, "posting_date": true,
			"supplier": true, "docstatus": true,
		},
	},
	"Payment Entry": {
		Name:  "Payment Entry",
		Table: "payment_entries",
		Fields: map[string]bool{
			"paid_amount": true, "posting_date": true, "payment_type": true,
			"party": true, "docstatus": true,
		},
	},
	"Stock Entry": {
		Name:  "Stock Entry",
		Table: "stock_entries",
		Fields: map[string]bool{
			"total_amount": true, "posting_date": true, "purpose": true,
			"docstatus": true,
		},
	},
}

// LookupDoctype resolves a doctype name, reporting whether it is known.
func LookupDoctype(name string) (Doctype, bool) {
	dt, ok := Doctypes[name]
	return dt, ok
}
