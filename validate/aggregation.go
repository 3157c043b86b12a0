package validate

import (
	"strings"

	"github.com/xwb1989/sqlparser"

	"github.com/marketconnect/sqlwarden/schema"
	"github.com/marketconnect/sqlwarden/violation"
)

// AggregationValidator checks every COUNT/SUM/AVG/MIN/MAX call against the
// allowed aggregations of the columns it operates over. An empty allowed set
// on the effective column policy means no aggregation at all; COUNT(*)
// touches no column and is unaffected.
type AggregationValidator struct {
	policy *schema.SecurityPolicy
}

// NewAggregationValidator builds the validator for the given policy.
func NewAggregationValidator(policy *schema.SecurityPolicy) *AggregationValidator {
	return &AggregationValidator{policy: policy}
}

func (v *AggregationValidator) Validate(stmt sqlparser.Statement) error {
	res := newResolver(stmt)
	var failure error

	_ = sqlparser.Walk(func(node sqlparser.SQLNode) (bool, error) {
		fn, ok := node.(*sqlparser.FuncExpr)
		if !ok {
			return true, nil
		}
		kind, ok := aggregationKinds[strings.ToLower(fn.Name.String())]
		if !ok {
			return true, nil
		}
		for _, col := range columnsIn(fn.Exprs) {
			table := res.tableOf(col)
			if table == "" {
				continue
			}
			name := strings.ToLower(col.Name.String())
			rule := v.policy.ColumnFor(table, name)
			if !rule.AllowedAggregations.Contains(kind) {
				failure = violation.Complexityf(
					"aggregation %s not allowed for column '%s' in table '%s'",
					kind, name, table)
				return false, nil
			}
		}
		return true, nil
	}, stmt)

	return failure
}
