package validate

import (
	"strings"

	"github.com/xwb1989/sqlparser"

	"github.com/marketconnect/sqlwarden/schema"
	"github.com/marketconnect/sqlwarden/violation"
)

// TableValidator checks every table reference, joins and subqueries
// included, against the policy's declared table set. With a non-empty table
// map the allowed set is exactly its keys; aliases are ignored in favor of
// base names.
type TableValidator struct {
	policy *schema.SecurityPolicy
}

// NewTableValidator builds the validator for the given policy.
func NewTableValidator(policy *schema.SecurityPolicy) *TableValidator {
	return &TableValidator{policy: policy}
}

func (v *TableValidator) Validate(stmt sqlparser.Statement) error {
	for _, ref := range tableRefs(stmt) {
		if !v.policy.AllowTempTables && isTempTableName(ref.name) {
			return violation.TableAccessf("temporary table '%s' is not allowed", ref.name)
		}
		if len(v.policy.Tables) == 0 {
			continue
		}
		if !v.policy.HasTable(ref.name) {
			return violation.TableAccessf("access to table '%s' is not allowed", ref.name)
		}
	}
	return nil
}

// isTempTableName applies the naming conventions for temporary tables:
// a leading '#' (T-SQL) or a tmp_/temp_ prefix.
func isTempTableName(name string) bool {
	return strings.HasPrefix(name, "#") ||
		strings.HasPrefix(name, "tmp_") ||
		strings.HasPrefix(name, "temp_")
}
