package validate

import (
	"strings"

	"github.com/xwb1989/sqlparser"

	"github.com/marketconnect/sqlwarden/schema"
	"github.com/marketconnect/sqlwarden/violation"
)

// JoinValidator enforces the join count limit and the per-pair join rules.
// INNER and LEFT joins consult the preceding table's rule for the joined
// table; a RIGHT join is checked as the mirrored LEFT join (the joined
// table's rule must allow LEFT with the preceding table); FULL requires both
// directions; CROSS must be granted explicitly.
type JoinValidator struct {
	policy *schema.SecurityPolicy
}

// NewJoinValidator builds the validator for the given policy.
func NewJoinValidator(policy *schema.SecurityPolicy) *JoinValidator {
	return &JoinValidator{policy: policy}
}

func (v *JoinValidator) Validate(stmt sqlparser.Statement) error {
	joins := joinsIn(stmt)

	if limit := v.policy.MaxJoins; limit >= 0 && len(joins) > limit {
		return violation.Joinf(
			"number of joins (%d) exceeds maximum allowed (%d)", len(joins), limit)
	}

	res := newResolver(stmt)
	for _, join := range joins {
		if err := v.validateJoin(join, res); err != nil {
			return err
		}
	}
	return nil
}

func (v *JoinValidator) validateJoin(join *sqlparser.JoinTableExpr, res *resolver) error {
	left := res.resolve(precedingTable(join.LeftExpr))
	right := res.resolve(joinedTable(join.RightExpr))
	if left == "" || right == "" {
		return nil
	}
	return v.checkJoinKind(joinKindOf(join), left, right)
}

// checkJoinKind applies the pair rules for one join clause between resolved
// base table names.
func (v *JoinValidator) checkJoinKind(kind schema.JoinKind, left, right string) error {
	switch kind {
	case schema.JoinRight:
		// A RIGHT JOIN B is permitted exactly when B allows a LEFT JOIN
		// with A; this avoids duplicating symmetric configuration.
		rule := v.policy.TableFor(right).JoinRuleFor(left)
		if rule == nil || !rule.AllowedTypes.Contains(schema.JoinLeft) {
			return violation.Joinf(
				"RIGHT JOIN from %s to %s is not allowed: %s does not allow LEFT JOIN with %s",
				left, right, right, left)
		}
		return nil

	case schema.JoinFull:
		leftRule := v.policy.TableFor(left).JoinRuleFor(right)
		rightRule := v.policy.TableFor(right).JoinRuleFor(left)
		if leftRule == nil || rightRule == nil {
			return violation.Joinf(
				"FULL JOIN between %s and %s is not allowed: no join rule defined for both directions",
				left, right)
		}
		if !leftRule.AllowedTypes.Contains(schema.JoinFull) || !rightRule.AllowedTypes.Contains(schema.JoinFull) {
			return violation.Joinf("FULL JOIN not allowed between %s and %s", left, right)
		}
		return nil

	default:
		rule := v.policy.TableFor(left).JoinRuleFor(right)
		if rule == nil {
			return violation.Joinf(
				"no join rule defined between tables %s and %s", left, right)
		}
		if !rule.AllowedTypes.Contains(kind) {
			return violation.Joinf(
				"join type %s not allowed between %s and %s (allowed: %s)",
				kind, left, right, rule.AllowedTypes)
		}
		return nil
	}
}

// joinsIn collects every join clause in the statement, subqueries included.
func joinsIn(stmt sqlparser.Statement) []*sqlparser.JoinTableExpr {
	var joins []*sqlparser.JoinTableExpr
	_ = sqlparser.Walk(func(node sqlparser.SQLNode) (bool, error) {
		if join, ok := node.(*sqlparser.JoinTableExpr); ok {
			joins = append(joins, join)
		}
		return true, nil
	}, stmt)
	return joins
}

// joinKindOf maps a join clause to a policy join kind. The parser rewrites
// CROSS JOIN to a plain join with no condition, so a join carrying neither
// ON nor USING is classified as cross: that is the cartesian product the
// grammar leaves behind. NATURAL joins carry an implicit condition and stay
// on their keyword's side.
func joinKindOf(join *sqlparser.JoinTableExpr) schema.JoinKind {
	switch join.Join {
	case sqlparser.LeftJoinStr, sqlparser.NaturalLeftJoinStr:
		return schema.JoinLeft
	case sqlparser.RightJoinStr, sqlparser.NaturalRightJoinStr:
		return schema.JoinRight
	}
	keyword := strings.ToLower(join.Join)
	if strings.Contains(keyword, "full") {
		return schema.JoinFull
	}
	if strings.Contains(keyword, "cross") {
		return schema.JoinCross
	}
	if strings.Contains(keyword, "natural") {
		return schema.JoinInner
	}
	if join.Condition.On == nil && len(join.Condition.Using) == 0 {
		return schema.JoinCross
	}
	return schema.JoinInner
}

// precedingTable is the table immediately left of the JOIN keyword: for a
// chained join that is the rightmost table of the left operand.
func precedingTable(expr sqlparser.TableExpr) string {
	switch t := expr.(type) {
	case *sqlparser.AliasedTableExpr:
		return aliasOrName(t)
	case *sqlparser.JoinTableExpr:
		return precedingTable(t.RightExpr)
	case *sqlparser.ParenTableExpr:
		if n := len(t.Exprs); n > 0 {
			return precedingTable(t.Exprs[n-1])
		}
	}
	return ""
}

// joinedTable is the table on the right side of the JOIN keyword.
func joinedTable(expr sqlparser.TableExpr) string {
	switch t := expr.(type) {
	case *sqlparser.AliasedTableExpr:
		return aliasOrName(t)
	case *sqlparser.JoinTableExpr:
		return joinedTable(t.LeftExpr)
	case *sqlparser.ParenTableExpr:
		if len(t.Exprs) > 0 {
			return joinedTable(t.Exprs[0])
		}
	}
	return ""
}

// aliasOrName returns the base table name for a direct table reference, or
// "" for derived tables.
func aliasOrName(t *sqlparser.AliasedTableExpr) string {
	if tn, ok := t.Expr.(sqlparser.TableName); ok {
		return strings.ToLower(tn.Name.String())
	}
	return ""
}
