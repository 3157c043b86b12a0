// Package schema defines the declarative permission model a Guard enforces:
// which tables, columns, joins, aggregations and clause shapes a SQL
// statement may use. Policies are built once, normalized, and read-only
// afterwards; a single policy value may back any number of concurrent
// validations.
package schema

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ColumnPolicy is the permission rule for one column.
type ColumnPolicy struct {
	// Access defaults to AccessDenied: an undeclared column is denied unless
	// the policy's default column rule says otherwise.
	Access AccessLevel `yaml:"access"`

	// AllowedAggregations lists the aggregate functions permitted over this
	// column. Empty means no aggregation at all.
	AllowedAggregations AggregationSet `yaml:"allowed_aggregations"`

	// AllowedOperations is reserved for statement-type scoping per column.
	// It is parsed and carried but not yet enforced.
	AllowedOperations StringSet `yaml:"allowed_operations"`
}

// JoinPolicy lists the join flavors permitted between a pair of tables.
type JoinPolicy struct {
	AllowedTypes JoinKindSet `yaml:"allowed_types"`
}

// TablePolicy is the permission rule for one table.
type TablePolicy struct {
	Columns map[string]*ColumnPolicy `yaml:"columns"`

	// AllowedJoins maps counterpart table name to the join rule for that
	// pair. DefaultAllowedJoin applies to counterparts not listed; when both
	// are absent, joining this table is not permitted.
	AllowedJoins       map[string]*JoinPolicy `yaml:"allowed_joins"`
	DefaultAllowedJoin *JoinPolicy            `yaml:"default_allowed_join"`

	RequireWhereClause bool `yaml:"require_where_clause"`

	// AllowedWhereColumns restricts which columns may appear in a WHERE
	// clause. Empty means unrestricted.
	AllowedWhereColumns StringSet `yaml:"allowed_where_columns"`

	AllowGroupBy bool `yaml:"allow_group_by"`

	// AllowedGroupByColumns restricts GROUP BY columns when non-empty.
	AllowedGroupByColumns StringSet `yaml:"allowed_group_by_columns"`
}

// NewTablePolicy returns a table policy with defaults applied
// (group-by permitted, nothing else granted).
func NewTablePolicy() TablePolicy {
	return TablePolicy{AllowGroupBy: true}
}

func (t *TablePolicy) UnmarshalYAML(value *yaml.Node) error {
	type plain TablePolicy
	p := plain(NewTablePolicy())
	if err := value.Decode(&p); err != nil {
		return err
	}
	*t = TablePolicy(p)
	return nil
}

// JoinRuleFor resolves the join rule toward counterpart: the explicit pair
// entry if present, else the table's default join rule, else nil.
func (t *TablePolicy) JoinRuleFor(counterpart string) *JoinPolicy {
	if rule, ok := t.AllowedJoins[strings.ToLower(counterpart)]; ok {
		return rule
	}
	return t.DefaultAllowedJoin
}

// SecurityPolicy is the root permission document.
type SecurityPolicy struct {
	// Tables is the set of permitted tables. When empty the guard runs in
	// schema-less mode and structural validation is skipped entirely.
	Tables map[string]*TablePolicy `yaml:"tables"`

	MaxJoins        int  `yaml:"max_joins"`
	AllowSubqueries bool `yaml:"allow_subqueries"`
	AllowTempTables bool `yaml:"allow_temp_tables"`

	// MaxQueryLength caps the raw query string length; 0 means unlimited.
	MaxQueryLength int `yaml:"max_query_length"`

	// SQLInjectionProtection gates the lexical injection screens
	// (signature regexps, suspicious tokens, quote balance).
	SQLInjectionProtection bool `yaml:"sql_injection_protection"`

	ForbiddenKeywords StringSet `yaml:"forbidden_keywords"`

	// AllowedQueryTypes restricts statement kinds when non-empty.
	AllowedQueryTypes QueryTypeSet `yaml:"allowed_query_types"`

	// DefaultTablePolicy applies to tables referenced but absent from
	// Tables; DefaultColumnPolicy to columns absent from the resolved
	// table's Columns. Both make policy resolution total.
	DefaultTablePolicy  *TablePolicy  `yaml:"default_table_policy"`
	DefaultColumnPolicy *ColumnPolicy `yaml:"default_column_policy"`
}

// DefaultForbiddenKeywords is the keyword screen applied when a policy does
// not configure its own.
func DefaultForbiddenKeywords() StringSet {
	return NewStringSet(
		"TRUNCATE", "DROP", "ALTER", "GRANT", "REVOKE",
		"EXECUTE", "EXEC", "SYSADMIN", "DBADMIN",
	)
}

// NewSecurityPolicy returns a policy with defaults applied: three joins,
// subqueries permitted, injection protection on, the stock forbidden-keyword
// set, and deny-by-default table and column fallbacks.
func NewSecurityPolicy() SecurityPolicy {
	defTable := NewTablePolicy()
	return SecurityPolicy{
		MaxJoins:               3,
		AllowSubqueries:        true,
		SQLInjectionProtection: true,
		ForbiddenKeywords:      DefaultForbiddenKeywords(),
		DefaultTablePolicy:     &defTable,
		DefaultColumnPolicy:    &ColumnPolicy{},
	}
}

func (p *SecurityPolicy) UnmarshalYAML(value *yaml.Node) error {
	type plain SecurityPolicy
	raw := plain(NewSecurityPolicy())
	if err := value.Decode(&raw); err != nil {
		return err
	}
	*p = SecurityPolicy(raw)
	return nil
}

// Normalize case-folds every table, column and join key and verifies the
// folded keys stay unique. It must run once before the policy is used for
// validation; Guard construction calls it.
func (p *SecurityPolicy) Normalize() error {
	if p.DefaultTablePolicy == nil {
		defTable := NewTablePolicy()
		p.DefaultTablePolicy = &defTable
	}
	if p.DefaultColumnPolicy == nil {
		p.DefaultColumnPolicy = &ColumnPolicy{}
	}
	p.DefaultColumnPolicy.AllowedOperations = p.DefaultColumnPolicy.AllowedOperations.fold()
	p.ForbiddenKeywords = p.ForbiddenKeywords.fold()
	tables, err := foldKeys(p.Tables, "table")
	if err != nil {
		return err
	}
	p.Tables = tables
	for name, table := range p.Tables {
		if table == nil {
			def := NewTablePolicy()
			p.Tables[name] = &def
			continue
		}
		if err := normalizeTable(name, table); err != nil {
			return err
		}
	}
	return normalizeTable("default", p.DefaultTablePolicy)
}

func normalizeTable(name string, table *TablePolicy) error {
	columns, err := foldKeys(table.Columns, "column")
	if err != nil {
		return fmt.Errorf("table %q: %w", name, err)
	}
	table.Columns = columns
	for col, rule := range table.Columns {
		if rule == nil {
			table.Columns[col] = &ColumnPolicy{}
			continue
		}
		rule.AllowedOperations = rule.AllowedOperations.fold()
	}
	joins, err := foldKeys(table.AllowedJoins, "join counterpart")
	if err != nil {
		return fmt.Errorf("table %q: %w", name, err)
	}
	table.AllowedJoins = joins
	table.AllowedWhereColumns = table.AllowedWhereColumns.fold()
	table.AllowedGroupByColumns = table.AllowedGroupByColumns.fold()
	return nil
}

func foldKeys[V any](m map[string]V, what string) (map[string]V, error) {
	if m == nil {
		return nil, nil
	}
	out := make(map[string]V, len(m))
	for k, v := range m {
		folded := strings.ToLower(k)
		if _, dup := out[folded]; dup {
			return nil, fmt.Errorf("duplicate %s key %q after case folding", what, folded)
		}
		out[folded] = v
	}
	return out, nil
}

// TableFor resolves the effective policy for a table name. Resolution is
// total: an explicit entry if present, else the default table policy.
func (p *SecurityPolicy) TableFor(name string) *TablePolicy {
	if table, ok := p.Tables[strings.ToLower(name)]; ok && table != nil {
		return table
	}
	if p.DefaultTablePolicy != nil {
		return p.DefaultTablePolicy
	}
	def := NewTablePolicy()
	return &def
}

// ColumnFor resolves the effective policy for a (table, column) pair, falling
// back to the resolved table's declared columns and then the default column
// policy. Like TableFor, it never fails.
func (p *SecurityPolicy) ColumnFor(table, column string) *ColumnPolicy {
	t := p.TableFor(table)
	if rule, ok := t.Columns[strings.ToLower(column)]; ok && rule != nil {
		return rule
	}
	if p.DefaultColumnPolicy != nil {
		return p.DefaultColumnPolicy
	}
	return &ColumnPolicy{}
}

// HasTable reports whether the table is explicitly declared.
func (p *SecurityPolicy) HasTable(name string) bool {
	_, ok := p.Tables[strings.ToLower(name)]
	return ok
}

// Prompt renders the policy's global constraints as instructions for a
// query-generating model.
func (p *SecurityPolicy) Prompt() string {
	var b strings.Builder
	b.WriteString("Generate an SQL query adhering to the following constraints:\n")
	fmt.Fprintf(&b, "- Maximum joins allowed: %d\n", p.MaxJoins)
	fmt.Fprintf(&b, "- Subqueries allowed: %s\n", yesNo(p.AllowSubqueries))
	fmt.Fprintf(&b, "- Temporary tables allowed: %s\n", yesNo(p.AllowTempTables))
	if p.MaxQueryLength > 0 {
		fmt.Fprintf(&b, "- Maximum query length: %d\n", p.MaxQueryLength)
	} else {
		b.WriteString("- Maximum query length: Unlimited\n")
	}
	fmt.Fprintf(&b, "- SQL injection protection: %s\n", enabledDisabled(p.SQLInjectionProtection))
	fmt.Fprintf(&b, "- Forbidden keywords: %s\n", strings.Join(p.ForbiddenKeywords.Values(), ", "))
	return b.String()
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}

func enabledDisabled(v bool) string {
	if v {
		return "Enabled"
	}
	return "Disabled"
}
