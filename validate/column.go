package validate

import (
	"strings"

	"github.com/xwb1989/sqlparser"

	"github.com/marketconnect/sqlwarden/schema"
	"github.com/marketconnect/sqlwarden/violation"
)

// ColumnValidator enforces per-column access rules. It first derives the
// access each referenced column needs from the statement shape (INSERT
// targets and UPDATE assignments write, DELETE writes the whole target row,
// everything else reads), then resolves each column's owning table and
// effective policy. A column appearing in both read and write roles needs
// write: the requirement only ever upgrades.
type ColumnValidator struct {
	policy *schema.SecurityPolicy
}

// NewColumnValidator builds the validator for the given policy.
func NewColumnValidator(policy *schema.SecurityPolicy) *ColumnValidator {
	return &ColumnValidator{policy: policy}
}

func (v *ColumnValidator) Validate(stmt sqlparser.Statement) error {
	res := newResolver(stmt)
	required := requiredAccess(stmt, res)

	for _, col := range columnsIn(stmt) {
		table := res.tableOf(col)
		if table == "" {
			// Ambiguous unqualified reference in a multi-table statement;
			// skipping beats rejecting legitimate queries.
			continue
		}
		name := strings.ToLower(col.Name.String())
		rule := v.policy.ColumnFor(table, name)

		if rule.Access == schema.AccessDenied {
			return violation.ColumnAccessf(
				"access denied to column '%s' in table '%s'", name, table)
		}
		if required[table+"."+name] == schema.AccessWrite && rule.Access == schema.AccessRead {
			return violation.ColumnAccessf(
				"write access denied for column '%s' in table '%s': column is read-only",
				name, table)
		}
	}

	// INSERT target columns never appear as ColName nodes; check them here.
	if ins, ok := stmt.(*sqlparser.Insert); ok {
		table := strings.ToLower(ins.Table.Name.String())
		for _, col := range ins.Columns {
			name := strings.ToLower(col.String())
			rule := v.policy.ColumnFor(table, name)
			if rule.Access == schema.AccessDenied {
				return violation.ColumnAccessf(
					"access denied to column '%s' in table '%s'", name, table)
			}
			if rule.Access == schema.AccessRead {
				return violation.ColumnAccessf(
					"write access denied for column '%s' in table '%s': column is read-only",
					name, table)
			}
		}
	}
	return nil
}

// requiredAccess maps "table.column" (resolved, case-folded) to the access
// level the statement demands of it. Columns that cannot be resolved to a
// table are absent.
func requiredAccess(stmt sqlparser.Statement, res *resolver) map[string]schema.AccessLevel {
	required := make(map[string]schema.AccessLevel)

	mark := func(col *sqlparser.ColName, level schema.AccessLevel) {
		table := res.tableOf(col)
		if table == "" {
			return
		}
		key := table + "." + strings.ToLower(col.Name.String())
		// Write wins over read; a column already marked write never
		// downgrades.
		if current, ok := required[key]; !ok || (level == schema.AccessWrite && current != schema.AccessWrite) {
			required[key] = level
		}
	}
	markRead := func(node sqlparser.SQLNode) {
		if node == nil {
			return
		}
		for _, col := range columnsIn(node) {
			mark(col, schema.AccessRead)
		}
	}

	switch s := stmt.(type) {
	case *sqlparser.Select, *sqlparser.Union, *sqlparser.ParenSelect:
		markRead(stmt)

	case *sqlparser.Insert:
		if s.Rows != nil {
			markRead(s.Rows)
		}
		for _, upd := range s.OnDup {
			mark(upd.Name, schema.AccessWrite)
			markRead(upd.Expr)
		}

	case *sqlparser.Update:
		for _, upd := range s.Exprs {
			mark(upd.Name, schema.AccessWrite)
			markRead(upd.Expr)
		}
		if s.Where != nil {
			markRead(s.Where)
		}
		markRead(s.OrderBy)

	case *sqlparser.Delete:
		// Deleting a row writes every column of the target table.
		targets := make(map[string]bool)
		for _, ref := range tableRefs(stmt) {
			targets[ref.name] = true
		}
		for _, col := range columnsIn(stmt) {
			if targets[res.tableOf(col)] {
				mark(col, schema.AccessWrite)
			} else {
				mark(col, schema.AccessRead)
			}
		}
	}
	return required
}
