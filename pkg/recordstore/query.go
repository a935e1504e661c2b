package recordstore

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// Operator compares a column against condition values.
type Operator string

const (
	OpEqualTo  Operator = "EqualTo"
	OpContains Operator = "Contains"
)

// GroupOperator joins sub-groups or conditions. The empty value means AND.
type GroupOperator string

const (
	GroupAnd GroupOperator = "AND"
	GroupOr  GroupOperator = "OR"
)

// SortType is the direction of an ordering.
type SortType string

const (
	SortAsc  SortType = "ASC"
	SortDesc SortType = "DESC"
)

// Query selects, filters, orders and pages records.
type Query struct {
	Fields      []Field      `json:"fields,omitempty"`
	Where       []Condition  `json:"where,omitempty"`
	WhereGroups []WhereGroup `json:"whereGroups,omitempty"`
	OrderBy     []OrderBy    `json:"orderBy,omitempty"`
	PagingInfo  *PagingInfo  `json:"pagingInfo,omitempty"`
}

// Field is one projected column.
type Field struct {
	Field FieldName `json:"field"`
}

// FieldName names a projected column.
type FieldName struct {
	Name string `json:"Name"`
}

// Condition tests one column. A record matches when the column matches any of Values.
type Condition struct {
	FieldName string   `json:"FieldName"`
	Operator  Operator `json:"Operator"`
	Values    []any    `json:"Values"`
}

// GroupCondition is the condition shape used inside where groups.
type GroupCondition struct {
	FieldName string   `json:"fieldName"`
	Operator  Operator `json:"operator"`
	Values    []any    `json:"values"`
}

// Condition converts a group condition into a plain condition.
func (c GroupCondition) Condition() Condition {
	return Condition{FieldName: c.FieldName, Operator: c.Operator, Values: c.Values}
}

// SubGroup joins its conditions with Operator.
type SubGroup struct {
	Conditions []GroupCondition `json:"conditions"`
	Operator   GroupOperator    `json:"operator"`
}

// WhereGroup joins its sub-groups with Operator.
type WhereGroup struct {
	Operator  GroupOperator `json:"operator"`
	SubGroups []SubGroup    `json:"subGroups"`
}

// OrderBy sorts by one column.
type OrderBy struct {
	FieldName string   `json:"fieldName"`
	SortType  SortType `json:"sorttype"`
}

// PagingInfo limits the result window. A non-positive limit means no limit.
type PagingInfo struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// Select builds the projection for the given column names.
func Select(names ...string) []Field {
	fields := make([]Field, len(names))
	for i, name := range names {
		fields[i] = Field{Field: FieldName{Name: name}}
	}

	return fields
}

// Equal builds an EqualTo condition.
func Equal(field string, values ...any) Condition {
	return Condition{FieldName: field, Operator: OpEqualTo, Values: values}
}

// AnyContains builds a where group that matches when any of the fields contains value.
func AnyContains(value string, fields ...string) WhereGroup {
	group := WhereGroup{Operator: GroupOr}

	for _, field := range fields {
		group.SubGroups = append(group.SubGroups, SubGroup{
			Conditions: []GroupCondition{{FieldName: field, Operator: OpContains, Values: []any{value}}},
		})
	}

	return group
}

// Conditions returns every condition referenced by the query, in order.
func (q Query) Conditions() []Condition {
	conditions := slices.Clone(q.Where)

	for _, group := range q.WhereGroups {
		for _, sub := range group.SubGroups {
			for _, c := range sub.Conditions {
				conditions = append(conditions, c.Condition())
			}
		}
	}

	return conditions
}

// Validate checks that the query only references columns of the table and known operators.
func (q Query) Validate(table Table) error {
	for _, field := range q.Fields {
		if _, ok := table.Column(field.Field.Name); !ok {
			return fmt.Errorf("%w: %s.%s", ErrUnknownColumn, table.Name, field.Field.Name)
		}
	}

	for _, c := range q.Conditions() {
		err := ValidateCondition(table, c)
		if err != nil {
			return err
		}
	}

	for _, group := range q.WhereGroups {
		err := validateGroupOperator(group.Operator)
		if err != nil {
			return err
		}

		for _, sub := range group.SubGroups {
			err := validateGroupOperator(sub.Operator)
			if err != nil {
				return err
			}
		}
	}

	for _, order := range q.OrderBy {
		if _, ok := table.Column(order.FieldName); !ok {
			return fmt.Errorf("%w: %s.%s", ErrUnknownColumn, table.Name, order.FieldName)
		}

		switch strings.ToUpper(string(order.SortType)) {
		case "", string(SortAsc), string(SortDesc):
		default:
			return fmt.Errorf("%w: sort type %q", ErrInvalidQuery, order.SortType)
		}
	}

	return nil
}

// ValidateCondition checks a single condition against the table.
func ValidateCondition(table Table, c Condition) error {
	if _, ok := table.Column(c.FieldName); !ok {
		return fmt.Errorf("%w: %s.%s", ErrUnknownColumn, table.Name, c.FieldName)
	}

	switch c.Operator {
	case OpEqualTo, OpContains:
	default:
		return fmt.Errorf("%w: operator %q", ErrInvalidQuery, c.Operator)
	}

	if len(c.Values) == 0 {
		return fmt.Errorf("%w: condition on %s has no values", ErrInvalidQuery, c.FieldName)
	}

	return nil
}

func validateGroupOperator(op GroupOperator) error {
	switch GroupOperator(strings.ToUpper(string(op))) {
	case "", GroupAnd, GroupOr:
		return nil
	default:
		return fmt.Errorf("%w: group operator %q", ErrInvalidQuery, op)
	}
}

// Apply evaluates the query over records held in process. Input order is kept
// for records that compare equal under OrderBy.
func Apply(records []Record, query Query) []Record {
	matched := make([]Record, 0, len(records))

	for _, record := range records {
		if Matches(record, query) {
			matched = append(matched, record)
		}
	}

	if len(query.OrderBy) > 0 {
		slices.SortStableFunc(matched, func(a, b Record) int {
			for _, order := range query.OrderBy {
				c := CompareValues(a[order.FieldName], b[order.FieldName])
				if strings.EqualFold(string(order.SortType), string(SortDesc)) {
					c = -c
				}

				if c != 0 {
					return c
				}
			}

			return 0
		})
	}

	matched = Page(matched, query.PagingInfo)

	projected := make([]Record, len(matched))
	for i, record := range matched {
		projected[i] = Project(record, query.Fields)
	}

	return projected
}

// Matches reports whether the record satisfies the where clause and every where group.
func Matches(record Record, query Query) bool {
	for _, c := range query.Where {
		if !MatchCondition(record, c) {
			return false
		}
	}

	for _, group := range query.WhereGroups {
		if !matchGroup(record, group) {
			return false
		}
	}

	return true
}

func matchGroup(record Record, group WhereGroup) bool {
	if len(group.SubGroups) == 0 {
		return true
	}

	results := make([]bool, len(group.SubGroups))

	for i, sub := range group.SubGroups {
		conditions := make([]bool, len(sub.Conditions))
		for j, c := range sub.Conditions {
			conditions[j] = MatchCondition(record, c.Condition())
		}

		results[i] = combine(sub.Operator, conditions)
	}

	return combine(group.Operator, results)
}

func combine(op GroupOperator, values []bool) bool {
	if len(values) == 0 {
		return true
	}

	if strings.EqualFold(string(op), string(GroupOr)) {
		return slices.Contains(values, true)
	}

	return !slices.Contains(values, false)
}

// MatchCondition evaluates one condition. EqualTo compares numbers by value;
// Contains is a case-insensitive substring test on the text form.
func MatchCondition(record Record, c Condition) bool {
	value := record[c.FieldName]

	for _, expected := range c.Values {
		switch c.Operator {
		case OpEqualTo:
			if EqualValues(value, expected) {
				return true
			}
		case OpContains:
			if value == nil || expected == nil {
				continue
			}

			if strings.Contains(strings.ToLower(fmt.Sprint(value)), strings.ToLower(fmt.Sprint(expected))) {
				return true
			}
		}
	}

	return false
}

// EqualValues compares two column values, treating numeric types as interchangeable.
func EqualValues(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	an, aNum := asFloat(a)
	bn, bNum := asFloat(b)

	if aNum && bNum {
		return an == bn
	}

	return fmt.Sprint(a) == fmt.Sprint(b)
}

// CompareValues orders column values. Nil sorts first, numbers compare by value,
// false sorts before true and everything else compares by text.
func CompareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}

	an, aNum := asFloat(a)
	bn, bNum := asFloat(b)

	if aNum && bNum {
		return cmp.Compare(an, bn)
	}

	ab, aBool := a.(bool)
	bb, bBool := b.(bool)

	if aBool && bBool {
		switch {
		case ab == bb:
			return 0
		case !ab:
			return -1
		default:
			return 1
		}
	}

	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func asFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	default:
		if n, ok := AsInt64(v); ok {
			if _, isString := v.(string); !isString {
				return float64(n), true
			}
		}

		return 0, false
	}
}

// Page cuts the window described by paging out of records.
func Page(records []Record, paging *PagingInfo) []Record {
	if paging == nil {
		return records
	}

	offset := max(paging.Offset, 0)
	if offset >= len(records) {
		return []Record{}
	}

	records = records[offset:]

	if paging.Limit > 0 && paging.Limit < len(records) {
		records = records[:paging.Limit]
	}

	return records
}

// Project keeps the Id and the requested fields. An empty projection keeps everything.
func Project(record Record, fields []Field) Record {
	if len(fields) == 0 {
		return record.Clone()
	}

	out := make(Record, len(fields)+1)

	if id, ok := record[IDField]; ok {
		out[IDField] = id
	}

	for _, field := range fields {
		if value, ok := record[field.Field.Name]; ok {
			out[field.Field.Name] = value
		}
	}

	return out
}

// NextID returns one more than the highest Id in records, or 1 when empty.
func NextID(records []Record) int64 {
	var highest int64

	for _, record := range records {
		if id, ok := record.ID(); ok && id > highest {
			highest = id
		}
	}

	return highest + 1
}
