package validate

import (
	"github.com/xwb1989/sqlparser"

	"github.com/marketconnect/sqlwarden/schema"
	"github.com/marketconnect/sqlwarden/violation"
)

// QueryTypeValidator restricts which statement kinds the policy admits.
// It only runs when the policy configures an allowed set.
type QueryTypeValidator struct {
	policy *schema.SecurityPolicy
}

// NewQueryTypeValidator builds the validator for the given policy.
func NewQueryTypeValidator(policy *schema.SecurityPolicy) *QueryTypeValidator {
	return &QueryTypeValidator{policy: policy}
}

func (v *QueryTypeValidator) Validate(stmt sqlparser.Statement) error {
	if len(v.policy.AllowedQueryTypes) == 0 {
		return nil
	}
	queryType, err := classify(stmt)
	if err != nil {
		return err
	}
	if !v.policy.AllowedQueryTypes.Contains(queryType) {
		return violation.Complexityf(
			"query type %s is not allowed (allowed: %s)",
			queryType, v.policy.AllowedQueryTypes)
	}
	return nil
}

// classify maps a parsed statement to its QueryType.
func classify(stmt sqlparser.Statement) (schema.QueryType, error) {
	switch s := stmt.(type) {
	case *sqlparser.Select, *sqlparser.Union, *sqlparser.ParenSelect:
		return schema.QuerySelect, nil
	case *sqlparser.Insert:
		return schema.QueryInsert, nil
	case *sqlparser.Update:
		return schema.QueryUpdate, nil
	case *sqlparser.Delete:
		return schema.QueryDelete, nil
	case *sqlparser.DDL:
		switch s.Action {
		case sqlparser.CreateStr:
			return schema.QueryCreate, nil
		case sqlparser.DropStr:
			return schema.QueryDrop, nil
		case sqlparser.AlterStr, sqlparser.RenameStr:
			return schema.QueryAlter, nil
		case "truncate":
			return schema.QueryTruncate, nil
		}
	}
	return schema.QuerySelect, violation.Complexityf("unsupported query type %T", stmt)
}
