// Package validate implements the structural and lexical validators a guard
// runs over an incoming query: keyword/injection screening on the raw string,
// then per-dimension checks (tables, subqueries, joins, columns, WHERE,
// aggregations, GROUP BY, statement type) over the parsed AST.
package validate

import (
	"strings"

	"github.com/xwb1989/sqlparser"

	"github.com/marketconnect/sqlwarden/schema"
)

// Validator is a single structural check over a parsed statement. A nil
// return means the statement passed this dimension; otherwise the error is a
// *violation.Error describing the first offense found.
type Validator interface {
	Validate(stmt sqlparser.Statement) error
}

// tableRef is one table reference in a statement, base name plus the alias it
// was given (empty when unaliased). Names are case-folded.
type tableRef struct {
	name  string
	alias string
}

// tableRefs collects every table reference in the statement, including those
// inside joins and subqueries. Column qualifiers are not table references and
// are deliberately not collected.
func tableRefs(stmt sqlparser.Statement) []tableRef {
	var refs []tableRef
	addName := func(tn sqlparser.TableName, alias string) {
		if tn.Name.String() == "" {
			return
		}
		refs = append(refs, tableRef{
			name:  strings.ToLower(tn.Name.String()),
			alias: strings.ToLower(alias),
		})
	}

	_ = sqlparser.Walk(func(node sqlparser.SQLNode) (bool, error) {
		if aliased, ok := node.(*sqlparser.AliasedTableExpr); ok {
			if tn, ok := aliased.Expr.(sqlparser.TableName); ok {
				alias := ""
				if !aliased.As.IsEmpty() {
					alias = aliased.As.String()
				}
				addName(tn, alias)
			}
		}
		return true, nil
	}, stmt)

	// INSERT and DELETE targets are bare table names outside any FROM.
	switch s := stmt.(type) {
	case *sqlparser.Insert:
		addName(s.Table, "")
	case *sqlparser.Delete:
		for _, tn := range s.Targets {
			addName(tn, "")
		}
	}
	return refs
}

// resolver answers "which table does this column belong to" for one
// statement, using the resolution chain: explicit qualifier via alias map,
// qualifier as a literal table name, then single-table inference. A column it
// cannot place resolves to "" and is skipped by the callers.
type resolver struct {
	aliases     map[string]string
	singleTable string
}

func newResolver(stmt sqlparser.Statement) *resolver {
	r := &resolver{aliases: make(map[string]string)}
	distinct := make(map[string]bool)
	for _, ref := range tableRefs(stmt) {
		if ref.alias != "" {
			r.aliases[ref.alias] = ref.name
		}
		distinct[ref.name] = true
	}
	if len(distinct) == 1 {
		for name := range distinct {
			r.singleTable = name
		}
	}
	return r
}

// tableOf resolves the owning table of a column reference, or "" when it
// cannot be determined.
func (r *resolver) tableOf(col *sqlparser.ColName) string {
	if !col.Qualifier.IsEmpty() {
		qualifier := strings.ToLower(col.Qualifier.Name.String())
		if table, ok := r.aliases[qualifier]; ok {
			return table
		}
		return qualifier
	}
	return r.singleTable
}

// resolve maps an already-lowercased alias or table name to its base table.
func (r *resolver) resolve(name string) string {
	if table, ok := r.aliases[name]; ok {
		return table
	}
	return name
}

// columnsIn collects every column reference under node.
func columnsIn(node sqlparser.SQLNode) []*sqlparser.ColName {
	var cols []*sqlparser.ColName
	_ = sqlparser.Walk(func(n sqlparser.SQLNode) (bool, error) {
		if col, ok := n.(*sqlparser.ColName); ok {
			cols = append(cols, col)
		}
		return true, nil
	}, node)
	return cols
}

// selectsIn collects every SELECT node under the statement, outer query and
// subqueries alike.
func selectsIn(stmt sqlparser.Statement) []*sqlparser.Select {
	var selects []*sqlparser.Select
	_ = sqlparser.Walk(func(n sqlparser.SQLNode) (bool, error) {
		if sel, ok := n.(*sqlparser.Select); ok {
			selects = append(selects, sel)
		}
		return true, nil
	}, stmt)
	return selects
}

// fromTables returns the base tables of a SELECT's own FROM clause, not
// descending into subqueries. These are the tables "in scope" for WHERE and
// GROUP BY requirements.
func fromTables(sel *sqlparser.Select) []string {
	var names []string
	seen := make(map[string]bool)
	var visit func(expr sqlparser.TableExpr)
	visit = func(expr sqlparser.TableExpr) {
		switch t := expr.(type) {
		case *sqlparser.AliasedTableExpr:
			if tn, ok := t.Expr.(sqlparser.TableName); ok {
				name := strings.ToLower(tn.Name.String())
				if name != "" && !seen[name] {
					seen[name] = true
					names = append(names, name)
				}
			}
		case *sqlparser.JoinTableExpr:
			visit(t.LeftExpr)
			visit(t.RightExpr)
		case *sqlparser.ParenTableExpr:
			for _, e := range t.Exprs {
				visit(e)
			}
		}
	}
	for _, expr := range sel.From {
		visit(expr)
	}
	return names
}

// aggregationKinds maps the aggregate function names the policy model knows
// about to their kinds. Other functions are not aggregation-restricted.
var aggregationKinds = map[string]schema.AggregationKind{
	"count": schema.AggCount,
	"sum":   schema.AggSum,
	"avg":   schema.AggAvg,
	"min":   schema.AggMin,
	"max":   schema.AggMax,
}
