package schema

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// AccessLevel controls what a query may do with a column. The zero value is
// AccessDenied: a column nobody declared is a column nobody may touch.
type AccessLevel int

const (
	AccessDenied AccessLevel = iota
	AccessRead
	AccessWrite
)

func (a AccessLevel) String() string {
	switch a {
	case AccessRead:
		return "read"
	case AccessWrite:
		return "write"
	default:
		return "denied"
	}
}

// ParseAccessLevel converts a config string to an AccessLevel.
func ParseAccessLevel(s string) (AccessLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "denied":
		return AccessDenied, nil
	case "read":
		return AccessRead, nil
	case "write":
		return AccessWrite, nil
	}
	return AccessDenied, fmt.Errorf("unknown access level %q (want denied, read or write)", s)
}

func (a *AccessLevel) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	level, err := ParseAccessLevel(s)
	if err != nil {
		return err
	}
	*a = level
	return nil
}

func (a AccessLevel) MarshalYAML() (interface{}, error) {
	return a.String(), nil
}

// AggregationKind is one of the SQL aggregate functions the policy can permit
// per column.
type AggregationKind int

const (
	AggCount AggregationKind = iota
	AggSum
	AggAvg
	AggMin
	AggMax
)

func (k AggregationKind) String() string {
	switch k {
	case AggCount:
		return "count"
	case AggSum:
		return "sum"
	case AggAvg:
		return "avg"
	case AggMin:
		return "min"
	case AggMax:
		return "max"
	}
	return fmt.Sprintf("aggregation(%d)", int(k))
}

// ParseAggregationKind converts a function name to an AggregationKind.
func ParseAggregationKind(s string) (AggregationKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "count":
		return AggCount, nil
	case "sum":
		return AggSum, nil
	case "avg":
		return AggAvg, nil
	case "min":
		return AggMin, nil
	case "max":
		return AggMax, nil
	}
	return AggCount, fmt.Errorf("unknown aggregation %q", s)
}

// JoinKind is the join flavor of a single join clause.
type JoinKind int

const (
	JoinInner JoinKind = iota
	JoinLeft
	JoinRight
	JoinFull
	JoinCross
)

func (k JoinKind) String() string {
	switch k {
	case JoinInner:
		return "inner"
	case JoinLeft:
		return "left"
	case JoinRight:
		return "right"
	case JoinFull:
		return "full"
	case JoinCross:
		return "cross"
	}
	return fmt.Sprintf("join(%d)", int(k))
}

// ParseJoinKind converts a config string to a JoinKind.
func ParseJoinKind(s string) (JoinKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "inner":
		return JoinInner, nil
	case "left":
		return JoinLeft, nil
	case "right":
		return JoinRight, nil
	case "full":
		return JoinFull, nil
	case "cross":
		return JoinCross, nil
	}
	return JoinInner, fmt.Errorf("unknown join type %q", s)
}

// QueryType classifies a statement for the optional query-type restriction.
type QueryType int

const (
	QuerySelect QueryType = iota
	QueryInsert
	QueryUpdate
	QueryDelete
	QueryCreate
	QueryDrop
	QueryAlter
	QueryTruncate
)

func (t QueryType) String() string {
	switch t {
	case QuerySelect:
		return "SELECT"
	case QueryInsert:
		return "INSERT"
	case QueryUpdate:
		return "UPDATE"
	case QueryDelete:
		return "DELETE"
	case QueryCreate:
		return "CREATE"
	case QueryDrop:
		return "DROP"
	case QueryAlter:
		return "ALTER"
	case QueryTruncate:
		return "TRUNCATE"
	}
	return fmt.Sprintf("query(%d)", int(t))
}

// ParseQueryType converts a config string to a QueryType.
func ParseQueryType(s string) (QueryType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "SELECT":
		return QuerySelect, nil
	case "INSERT":
		return QueryInsert, nil
	case "UPDATE":
		return QueryUpdate, nil
	case "DELETE":
		return QueryDelete, nil
	case "CREATE":
		return QueryCreate, nil
	case "DROP":
		return QueryDrop, nil
	case "ALTER":
		return QueryAlter, nil
	case "TRUNCATE":
		return QueryTruncate, nil
	}
	return QuerySelect, fmt.Errorf("unknown query type %q", s)
}
