package sqlsource

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/andy9775/grouploader"
)

// Aliases carrying the grouping value and the per-group rank through the
// statement. Prefixed to stay clear of real column names.
const (
	groupColumn = "__group_key"
	rankColumn  = "__group_rank"
)

// validateOptions checks every column the options name against the relations
// the association declares. All problems are reported together; a descriptor
// with a bad order-by and a bad filter fails with both.
func validateOptions(assoc Assoc, opts grouploader.Options) error {
	var result *multierror.Error

	for _, order := range opts.OrderBy {
		if _, ok := assoc.qualify(order.Column); !ok {
			result = multierror.Append(result,
				fmt.Errorf("order-by column %q does not exist on %q", order.Column, assoc.Table))
		}
	}
	for column := range opts.Filters {
		if _, ok := assoc.qualify(column); !ok {
			result = multierror.Append(result,
				fmt.Errorf("filter column %q does not exist on %q", column, assoc.Table))
		}
	}

	return result.ErrorOrNil()
}

// buildGroupedQuery is the default query builder. Without a limit it builds a
// plain filtered and ordered IN-query across all grouping keys. With a limit
// it ranks rows inside each grouping-column partition with ROW_NUMBER and
// keeps rows ranked at or under the limit, which a bare ORDER BY/LIMIT cannot
// express: a global LIMIT silently starves every group but the first ones.
//
// Placeholders are in "?" style as understood by SQLite and MySQL; backends
// with positional placeholders need a per-kind QueryBuilder override.
func buildGroupedQuery(assoc Assoc, opts grouploader.Options, groupKeys []interface{}) (string, []interface{}, error) {
	if len(groupKeys) == 0 {
		return "", nil, fmt.Errorf("no grouping keys provided")
	}
	if assoc.Table == "" || assoc.GroupColumn == "" {
		return "", nil, fmt.Errorf("association is missing a table or grouping column")
	}

	var args []interface{}

	selects := make([]string, 0, len(assoc.Columns)+2)
	for _, column := range assoc.Columns {
		selects = append(selects, "t."+column)
	}
	selects = append(selects, assoc.groupExpr()+" AS "+groupColumn)

	from := assoc.Table + " AS t"
	if assoc.Join != nil {
		from += fmt.Sprintf(" JOIN %s AS j ON j.%s = t.%s",
			assoc.Join.Table, assoc.Join.TargetColumn, assoc.primaryKey())
	}

	where := []string{
		fmt.Sprintf("%s IN (%s)", assoc.groupExpr(), placeholders(len(groupKeys))),
	}
	args = append(args, groupKeys...)

	// filters apply in column order so equal descriptors build equal SQL
	filterColumns := make([]string, 0, len(opts.Filters))
	for column := range opts.Filters {
		filterColumns = append(filterColumns, column)
	}
	sort.Strings(filterColumns)
	for _, column := range filterColumns {
		qualified, ok := assoc.qualify(column)
		if !ok {
			return "", nil, fmt.Errorf("filter column %q does not exist on %q", column, assoc.Table)
		}
		where = append(where, qualified+" = ?")
		args = append(args, opts.Filters[column])
	}

	orderTerms, err := orderBy(assoc, opts.OrderBy)
	if err != nil {
		return "", nil, err
	}

	limit, limited := 0, false
	if opts.Limit != nil {
		limit, limited = *opts.Limit, true
	}

	if !limited {
		query := fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY %s, %s",
			strings.Join(selects, ", "),
			from,
			strings.Join(where, " AND "),
			groupColumn,
			strings.Join(orderTerms, ", "),
		)
		return query, args, nil
	}

	ranked := fmt.Sprintf("ROW_NUMBER() OVER (PARTITION BY %s ORDER BY %s) AS %s",
		assoc.groupExpr(), strings.Join(orderTerms, ", "), rankColumn)

	query := fmt.Sprintf(
		"SELECT * FROM (SELECT %s, %s FROM %s WHERE %s) AS ranked WHERE %s <= ? ORDER BY %s, %s",
		strings.Join(selects, ", "),
		ranked,
		from,
		strings.Join(where, " AND "),
		rankColumn,
		groupColumn,
		rankColumn,
	)
	args = append(args, limit)
	return query, args, nil
}

// orderBy renders the descriptor's order terms and appends the primary key as
// the stable tie break unless the caller already ordered by it.
func orderBy(assoc Assoc, orders []grouploader.Order) ([]string, error) {
	terms := make([]string, 0, len(orders)+1)
	tieBroken := false

	for _, order := range orders {
		qualified, ok := assoc.qualify(order.Column)
		if !ok {
			return nil, fmt.Errorf("order-by column %q does not exist on %q", order.Column, assoc.Table)
		}
		direction := " ASC"
		if order.Desc {
			direction = " DESC"
		}
		terms = append(terms, qualified+direction)

		if order.Column == assoc.primaryKey() {
			tieBroken = true
		}
	}

	if !tieBroken {
		terms = append(terms, "t."+assoc.primaryKey()+" ASC")
	}
	return terms, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
