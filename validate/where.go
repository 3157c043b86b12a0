package validate

import (
	"strings"

	"github.com/xwb1989/sqlparser"

	"github.com/marketconnect/sqlwarden/schema"
	"github.com/marketconnect/sqlwarden/violation"
)

// WhereValidator enforces the WHERE-clause rules: a table may demand that
// any SELECT touching it carries a WHERE clause, and may restrict which of
// its columns the clause can reference.
type WhereValidator struct {
	policy *schema.SecurityPolicy
}

// NewWhereValidator builds the validator for the given policy.
func NewWhereValidator(policy *schema.SecurityPolicy) *WhereValidator {
	return &WhereValidator{policy: policy}
}

func (v *WhereValidator) Validate(stmt sqlparser.Statement) error {
	res := newResolver(stmt)
	for _, sel := range selectsIn(stmt) {
		if sel.Where == nil {
			for _, table := range fromTables(sel) {
				if v.policy.TableFor(table).RequireWhereClause {
					return violation.Complexityf("table '%s' requires a WHERE clause", table)
				}
			}
			continue
		}
		for _, col := range columnsIn(sel.Where) {
			table := res.tableOf(col)
			if table == "" {
				continue
			}
			allowed := v.policy.TableFor(table).AllowedWhereColumns
			if len(allowed) == 0 {
				continue
			}
			name := strings.ToLower(col.Name.String())
			if !allowed.Contains(name) {
				return violation.Complexityf(
					"column '%s' not allowed in WHERE clause", name)
			}
		}
	}
	return nil
}
