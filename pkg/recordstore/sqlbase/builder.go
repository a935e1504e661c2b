package sqlbase

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dukex/flowdeck/pkg/recordstore"
)

// builder accumulates bind arguments while rendering SQL fragments.
type builder struct {
	dialect Dialect
	table   recordstore.Table
	args    []any
}

func newBuilder(dialect Dialect, table recordstore.Table) *builder {
	return &builder{dialect: dialect, table: table}
}

func (b *builder) bind(value any) string {
	b.args = append(b.args, value)

	return b.dialect.Placeholder(len(b.args))
}

// columnList renders the Id and every schema column in declaration order.
func (b *builder) columnList() string {
	names := make([]string, 0, len(b.table.Columns)+1)
	names = append(names, Quote(recordstore.IDField))

	for _, column := range b.table.Columns {
		names = append(names, Quote(column.Name))
	}

	return strings.Join(names, ", ")
}

// selectQuery renders a SELECT honoring where clauses, groups, ordering and paging.
func (b *builder) selectQuery(query recordstore.Query) (string, error) {
	var sb strings.Builder

	sb.WriteString("SELECT ")
	sb.WriteString(b.columnList())
	sb.WriteString(" FROM ")
	sb.WriteString(Quote(b.table.Name))

	where, err := b.whereClause(query.Where, query.WhereGroups)
	if err != nil {
		return "", err
	}

	if where != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(where)
	}

	sb.WriteString(" ORDER BY ")

	for _, order := range query.OrderBy {
		sb.WriteString(Quote(order.FieldName))

		if strings.EqualFold(string(order.SortType), string(recordstore.SortDesc)) {
			sb.WriteString(" DESC NULLS LAST, ")
		} else {
			sb.WriteString(" ASC NULLS FIRST, ")
		}
	}

	sb.WriteString(Quote(recordstore.IDField))
	sb.WriteString(" ASC")

	if paging := query.PagingInfo; paging != nil {
		if paging.Limit > 0 {
			sb.WriteString(" LIMIT " + strconv.Itoa(paging.Limit))
		} else if paging.Offset > 0 {
			sb.WriteString(" LIMIT " + b.dialect.NoLimit)
		}

		if paging.Offset > 0 {
			sb.WriteString(" OFFSET " + strconv.Itoa(paging.Offset))
		}
	}

	return sb.String(), nil
}

// whereClause joins the plain conditions and every group with AND.
func (b *builder) whereClause(conditions []recordstore.Condition, groups []recordstore.WhereGroup) (string, error) {
	parts := make([]string, 0, len(conditions)+len(groups))

	for _, c := range conditions {
		part, err := b.condition(c)
		if err != nil {
			return "", err
		}

		parts = append(parts, part)
	}

	for _, group := range groups {
		subParts := make([]string, 0, len(group.SubGroups))

		for _, sub := range group.SubGroups {
			conditionParts := make([]string, 0, len(sub.Conditions))

			for _, c := range sub.Conditions {
				part, err := b.condition(c.Condition())
				if err != nil {
					return "", err
				}

				conditionParts = append(conditionParts, part)
			}

			if len(conditionParts) > 0 {
				subParts = append(subParts, "("+strings.Join(conditionParts, joiner(sub.Operator))+")")
			}
		}

		if len(subParts) > 0 {
			parts = append(parts, "("+strings.Join(subParts, joiner(group.Operator))+")")
		}
	}

	return strings.Join(parts, " AND "), nil
}

func joiner(op recordstore.GroupOperator) string {
	if strings.EqualFold(string(op), string(recordstore.GroupOr)) {
		return " OR "
	}

	return " AND "
}

func (b *builder) condition(c recordstore.Condition) (string, error) {
	column, ok := b.table.Column(c.FieldName)
	if !ok {
		return "", fmt.Errorf("%w: %s.%s", recordstore.ErrUnknownColumn, b.table.Name, c.FieldName)
	}

	if len(c.Values) == 0 {
		return "", fmt.Errorf("%w: condition on %s has no values", recordstore.ErrInvalidQuery, c.FieldName)
	}

	name := Quote(column.Name)

	switch c.Operator {
	case recordstore.OpEqualTo:
		return b.equalTo(column, name, c.Values)
	case recordstore.OpContains:
		alternatives := make([]string, 0, len(c.Values))

		for _, value := range c.Values {
			if value == nil {
				continue
			}

			pattern := "%" + escapeLike(strings.ToLower(fmt.Sprint(value))) + "%"
			alternatives = append(alternatives, fmt.Sprintf(`LOWER(CAST(%s AS TEXT)) LIKE %s ESCAPE '\'`, name, b.bind(pattern)))
		}

		if len(alternatives) == 0 {
			return "1 = 0", nil
		}

		return "(" + strings.Join(alternatives, " OR ") + ")", nil
	default:
		return "", fmt.Errorf("%w: operator %q", recordstore.ErrInvalidQuery, c.Operator)
	}
}

func (b *builder) equalTo(column recordstore.Column, name string, values []any) (string, error) {
	var (
		placeholders []string
		matchNull    bool
	)

	for _, value := range values {
		if value == nil {
			matchNull = true

			continue
		}

		converted, err := column.Convert(value)
		if err != nil {
			return "", fmt.Errorf("%w: %w", recordstore.ErrInvalidQuery, err)
		}

		placeholders = append(placeholders, b.bind(converted))
	}

	alternatives := make([]string, 0, 2)

	switch len(placeholders) {
	case 0:
	case 1:
		alternatives = append(alternatives, name+" = "+placeholders[0])
	default:
		alternatives = append(alternatives, name+" IN ("+strings.Join(placeholders, ", ")+")")
	}

	if matchNull {
		alternatives = append(alternatives, name+" IS NULL")
	}

	if len(alternatives) == 1 {
		return alternatives[0], nil
	}

	return "(" + strings.Join(alternatives, " OR ") + ")", nil
}

// assignments renders the SET list of an update. An empty patch touches nothing.
func (b *builder) assignments(patch recordstore.Record) string {
	names := sortedColumns(b.table, patch)
	if len(names) == 0 {
		return Quote(recordstore.IDField) + " = " + Quote(recordstore.IDField)
	}

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = Quote(name) + " = " + b.bind(patch[name])
	}

	return strings.Join(parts, ", ")
}

// sortedColumns returns the columns present in record, in schema order.
func sortedColumns(table recordstore.Table, record recordstore.Record) []string {
	names := make([]string, 0, len(record))

	for _, column := range table.Columns {
		if _, ok := record[column.Name]; ok {
			names = append(names, column.Name)
		}
	}

	return names
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

	return replacer.Replace(value)
}
