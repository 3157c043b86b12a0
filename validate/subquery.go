package validate

import (
	"github.com/xwb1989/sqlparser"

	"github.com/marketconnect/sqlwarden/schema"
	"github.com/marketconnect/sqlwarden/violation"
)

// SubqueryValidator rejects any nested query when the policy forbids
// subqueries. EXISTS, IN (SELECT ...) and derived tables all count.
type SubqueryValidator struct {
	policy *schema.SecurityPolicy
}

// NewSubqueryValidator builds the validator for the given policy.
func NewSubqueryValidator(policy *schema.SecurityPolicy) *SubqueryValidator {
	return &SubqueryValidator{policy: policy}
}

func (v *SubqueryValidator) Validate(stmt sqlparser.Statement) error {
	if v.policy.AllowSubqueries {
		return nil
	}
	var found bool
	_ = sqlparser.Walk(func(node sqlparser.SQLNode) (bool, error) {
		if _, ok := node.(*sqlparser.Subquery); ok {
			found = true
			return false, nil
		}
		return true, nil
	}, stmt)
	if found {
		return violation.Complexityf("subqueries are not allowed")
	}
	return nil
}
