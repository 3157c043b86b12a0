package validate

import (
	"strings"
	"unicode"

	libinjection "github.com/corazawaf/libinjection-go"
	"github.com/xwb1989/sqlparser"

	"github.com/marketconnect/sqlwarden/violation"
)

// literalSequences are fragments that have no business inside a string
// literal of a generated query: comment markers, catalog probes, nested
// statements smuggled in through a value.
var literalSequences = []string{
	"--", "/*", "*/", ";", "@@",
	"information_schema", "load_file(", "sleep(", "benchmark(",
	"xp_", "sp_executesql", "waitfor",
	"union select", "drop table", "delete from", "insert into",
}

// LiteralValidator is the strict-mode screen over string literals in the
// parsed statement. Whole statements would always look like injection to
// libinjection, so it inspects only the embedded values, the place where
// tainted input actually lands.
type LiteralValidator struct{}

// NewLiteralValidator builds the literal screen.
func NewLiteralValidator() *LiteralValidator {
	return &LiteralValidator{}
}

func (v *LiteralValidator) Validate(stmt sqlparser.Statement) error {
	var failure error
	_ = sqlparser.Walk(func(node sqlparser.SQLNode) (bool, error) {
		val, ok := node.(*sqlparser.SQLVal)
		if !ok || val.Type != sqlparser.StrVal {
			return true, nil
		}
		if err := screenLiteral(string(val.Val)); err != nil {
			failure = err
			return false, nil
		}
		return true, nil
	}, stmt)
	return failure
}

func screenLiteral(value string) error {
	lower := strings.ToLower(value)
	for _, seq := range literalSequences {
		if strings.Contains(lower, seq) {
			return violation.Injectionf("forbidden sequence %q in string literal", seq)
		}
	}
	for _, r := range value {
		if !unicode.IsPrint(r) || r == '\\' {
			return violation.Injectionf("forbidden characters in string literal")
		}
	}
	if isSQLi, fingerprint := libinjection.IsSQLi(value); isSQLi {
		return violation.Injectionf(
			"string literal matches injection fingerprint %s", string(fingerprint))
	}
	return nil
}
