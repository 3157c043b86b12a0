package validate

import (
	"regexp"
	"strings"

	"github.com/marketconnect/sqlwarden/schema"
	"github.com/marketconnect/sqlwarden/violation"
)

// injectionSignature is one known attack shape. The name identifies the
// matched signature in the violation message; the list is checked in order
// and the first match wins.
type injectionSignature struct {
	name    string
	pattern *regexp.Regexp
}

var injectionSignatures = []injectionSignature{
	{"statement chaining", regexp.MustCompile(`(?i);\s*(drop|delete|insert|update|alter|truncate|create|grant|revoke)\b`)},
	{"inline comment", regexp.MustCompile(`--`)},
	{"block comment", regexp.MustCompile(`(?s)/\*.*?\*/`)},
	{"union select", regexp.MustCompile(`(?i)\bunion\s+(all\s+)?select\b`)},
	{"exec call", regexp.MustCompile(`(?i)\bexec(ute)?\s*\(`)},
	{"xp_cmdshell", regexp.MustCompile(`(?i)xp_cmdshell`)},
	{"sp_executesql", regexp.MustCompile(`(?i)sp_executesql`)},
	{"boolean tautology", regexp.MustCompile(`(?i)\bor\s+'[^']*'\s*=\s*'[^']*'`)},
	{"numeric tautology", regexp.MustCompile(`(?i)\bor\s+\d+\s*=\s*\d+`)},
	{"string concatenation", regexp.MustCompile(`\|\|`)},
	{"time-based probe", regexp.MustCompile(`(?i)(\b(sleep|benchmark|pg_sleep)\s*\(|\bwaitfor\s+delay\b)`)},
	{"system catalog access", regexp.MustCompile(`(?i)\b(information_schema|pg_catalog|sysobjects|syscolumns|mysql\.user)\b`)},
	{"file access", regexp.MustCompile(`(?i)\b(load_file\s*\(|into\s+(out|dump)file\b|load\s+data\b)`)},
}

// suspiciousTokens are short fragments that almost never appear in
// legitimate generated SQL. Checked case-insensitively as substrings.
var suspiciousTokens = []string{
	"1=1",
	"1 = 1",
	"or 1",
	"' or",
	"';",
	"%27",
	"0x27",
	"char(",
	"chr(",
	"@@version",
	"@@global",
}

// InjectionValidator is the pre-parse lexical screen: forbidden keywords,
// injection signatures, suspicious tokens and quote balance. It runs on the
// raw string because adversarial input may not parse at all, and these
// signatures are lexical rather than structural.
type InjectionValidator struct {
	policy *schema.SecurityPolicy
}

// NewInjectionValidator builds the screen for the given policy.
func NewInjectionValidator(policy *schema.SecurityPolicy) *InjectionValidator {
	return &InjectionValidator{policy: policy}
}

// Screen runs every configured lexical check against the raw query.
func (v *InjectionValidator) Screen(query string) error {
	if len(v.policy.ForbiddenKeywords) > 0 {
		if err := v.screenKeywords(query); err != nil {
			return err
		}
	}
	if v.policy.SQLInjectionProtection {
		if err := v.screenSignatures(query); err != nil {
			return err
		}
		if err := v.screenTokens(query); err != nil {
			return err
		}
		if err := screenQuoteBalance(query); err != nil {
			return err
		}
	}
	return nil
}

// screenKeywords rejects on any case-insensitive substring match of a
// forbidden keyword. The check is a hard reject, so match order is
// irrelevant.
func (v *InjectionValidator) screenKeywords(query string) error {
	lower := strings.ToLower(query)
	for keyword := range v.policy.ForbiddenKeywords {
		if strings.Contains(lower, keyword) {
			return violation.Injectionf("forbidden keyword found: %s", strings.ToUpper(keyword))
		}
	}
	return nil
}

func (v *InjectionValidator) screenSignatures(query string) error {
	for _, sig := range injectionSignatures {
		if sig.pattern.MatchString(query) {
			return violation.Injectionf("potential SQL injection detected: %s", sig.name)
		}
	}
	return nil
}

func (v *InjectionValidator) screenTokens(query string) error {
	lower := strings.ToLower(query)
	for _, token := range suspiciousTokens {
		if strings.Contains(lower, token) {
			return violation.Injectionf("suspicious token found: %q", token)
		}
	}
	return nil
}

// screenQuoteBalance rejects queries with an odd number of single or double
// quotes; a dangling quote is the classic sign of a broken-out string
// literal.
func screenQuoteBalance(query string) error {
	singles := strings.Count(query, "'")
	doubles := strings.Count(query, `"`)
	if singles%2 != 0 || doubles%2 != 0 {
		return violation.Injectionf("unbalanced quotes in query")
	}
	return nil
}
