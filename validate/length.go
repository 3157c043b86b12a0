package validate

import (
	"github.com/marketconnect/sqlwarden/schema"
	"github.com/marketconnect/sqlwarden/violation"
)

// LengthValidator caps the raw query string length. It runs before parsing:
// an oversized query never earns a parse.
type LengthValidator struct {
	policy *schema.SecurityPolicy
}

// NewLengthValidator builds the validator for the given policy.
func NewLengthValidator(policy *schema.SecurityPolicy) *LengthValidator {
	return &LengthValidator{policy: policy}
}

// Screen rejects when the query exceeds the configured maximum length.
// A limit of zero means unlimited.
func (v *LengthValidator) Screen(query string) error {
	limit := v.policy.MaxQueryLength
	if limit > 0 && len(query) > limit {
		return violation.Complexityf(
			"query length exceeds maximum allowed (%d > %d)", len(query), limit)
	}
	return nil
}
