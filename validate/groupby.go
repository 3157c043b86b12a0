package validate

import (
	"strings"

	"github.com/xwb1989/sqlparser"

	"github.com/marketconnect/sqlwarden/schema"
	"github.com/marketconnect/sqlwarden/violation"
)

// GroupByValidator enforces the group-by rules: a table may forbid GROUP BY
// outright, or restrict which of its columns can be grouped on. Each SELECT
// in the statement is checked against the tables of its own FROM clause.
type GroupByValidator struct {
	policy *schema.SecurityPolicy
}

// NewGroupByValidator builds the validator for the given policy.
func NewGroupByValidator(policy *schema.SecurityPolicy) *GroupByValidator {
	return &GroupByValidator{policy: policy}
}

func (v *GroupByValidator) Validate(stmt sqlparser.Statement) error {
	res := newResolver(stmt)
	for _, sel := range selectsIn(stmt) {
		if len(sel.GroupBy) == 0 {
			continue
		}
		for _, table := range fromTables(sel) {
			if !v.policy.TableFor(table).AllowGroupBy {
				return violation.Complexityf("GROUP BY not allowed for table '%s'", table)
			}
		}
		for _, col := range columnsIn(sel.GroupBy) {
			table := res.tableOf(col)
			if table == "" {
				continue
			}
			allowed := v.policy.TableFor(table).AllowedGroupByColumns
			if len(allowed) == 0 {
				continue
			}
			name := strings.ToLower(col.Name.String())
			if !allowed.Contains(name) {
				return violation.Complexityf(
					"column '%s' not allowed in GROUP BY for table '%s'", name, table)
			}
		}
	}
	return nil
}
