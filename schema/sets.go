package schema

import (
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// The set types decode from YAML sequences and answer membership questions.
// String-valued sets are case-folded at construction so lookups never have to
// worry about the case the policy author happened to use.

// StringSet is a case-insensitive set of identifiers (columns, keywords).
type StringSet map[string]bool

// NewStringSet builds a set from the given values, lowercasing each.
func NewStringSet(values ...string) StringSet {
	s := make(StringSet, len(values))
	for _, v := range values {
		s[strings.ToLower(v)] = true
	}
	return s
}

// Contains reports membership, ignoring case.
func (s StringSet) Contains(v string) bool {
	return s[strings.ToLower(v)]
}

// fold lowercases every member. Sets built with NewStringSet or decoded from
// YAML are already folded; raw map literals need this at normalization.
func (s StringSet) fold() StringSet {
	if s == nil {
		return nil
	}
	out := make(StringSet, len(s))
	for v := range s {
		out[strings.ToLower(v)] = true
	}
	return out
}

// Values returns the members in sorted order.
func (s StringSet) Values() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func (s *StringSet) UnmarshalYAML(value *yaml.Node) error {
	var items []string
	if err := value.Decode(&items); err != nil {
		return err
	}
	*s = NewStringSet(items...)
	return nil
}

func (s StringSet) MarshalYAML() (interface{}, error) {
	return s.Values(), nil
}

// AggregationSet is a set of permitted aggregate functions.
type AggregationSet map[AggregationKind]bool

// NewAggregationSet builds a set from the given kinds.
func NewAggregationSet(kinds ...AggregationKind) AggregationSet {
	s := make(AggregationSet, len(kinds))
	for _, k := range kinds {
		s[k] = true
	}
	return s
}

// Contains reports membership.
func (s AggregationSet) Contains(k AggregationKind) bool {
	return s[k]
}

func (s *AggregationSet) UnmarshalYAML(value *yaml.Node) error {
	var items []string
	if err := value.Decode(&items); err != nil {
		return err
	}
	set := make(AggregationSet, len(items))
	for _, item := range items {
		k, err := ParseAggregationKind(item)
		if err != nil {
			return err
		}
		set[k] = true
	}
	*s = set
	return nil
}

func (s AggregationSet) MarshalYAML() (interface{}, error) {
	return s.strings(), nil
}

func (s AggregationSet) strings() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k.String())
	}
	sort.Strings(out)
	return out
}

// JoinKindSet is a set of permitted join flavors.
type JoinKindSet map[JoinKind]bool

// NewJoinKindSet builds a set from the given kinds.
func NewJoinKindSet(kinds ...JoinKind) JoinKindSet {
	s := make(JoinKindSet, len(kinds))
	for _, k := range kinds {
		s[k] = true
	}
	return s
}

// Contains reports membership.
func (s JoinKindSet) Contains(k JoinKind) bool {
	return s[k]
}

// String renders the set for violation messages.
func (s JoinKindSet) String() string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k.String())
	}
	sort.Strings(out)
	return strings.Join(out, ", ")
}

func (s *JoinKindSet) UnmarshalYAML(value *yaml.Node) error {
	var items []string
	if err := value.Decode(&items); err != nil {
		return err
	}
	set := make(JoinKindSet, len(items))
	for _, item := range items {
		k, err := ParseJoinKind(item)
		if err != nil {
			return err
		}
		set[k] = true
	}
	*s = set
	return nil
}

func (s JoinKindSet) MarshalYAML() (interface{}, error) {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k.String())
	}
	sort.Strings(out)
	return out, nil
}

// QueryTypeSet is a set of permitted statement kinds.
type QueryTypeSet map[QueryType]bool

// NewQueryTypeSet builds a set from the given types.
func NewQueryTypeSet(types ...QueryType) QueryTypeSet {
	s := make(QueryTypeSet, len(types))
	for _, t := range types {
		s[t] = true
	}
	return s
}

// Contains reports membership.
func (s QueryTypeSet) Contains(t QueryType) bool {
	return s[t]
}

// String renders the set for violation messages.
func (s QueryTypeSet) String() string {
	out := make([]string, 0, len(s))
	for t := range s {
		out = append(out, t.String())
	}
	sort.Strings(out)
	return strings.Join(out, ", ")
}

func (s *QueryTypeSet) UnmarshalYAML(value *yaml.Node) error {
	var items []string
	if err := value.Decode(&items); err != nil {
		return err
	}
	set := make(QueryTypeSet, len(items))
	for _, item := range items {
		t, err := ParseQueryType(item)
		if err != nil {
			return err
		}
		set[t] = true
	}
	*s = set
	return nil
}

func (s QueryTypeSet) MarshalYAML() (interface{}, error) {
	out := make([]string, 0, len(s))
	for t := range s {
		out = append(out, t.String())
	}
	sort.Strings(out)
	return out, nil
}
