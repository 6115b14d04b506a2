/*
Package sqlsource contains the relational source implementation.

The source resolves every descriptor with exactly one SQL statement regardless
of how many keys were batched. Descriptors carrying a per-key limit are
executed with a window-function ranking (ROW_NUMBER over the grouping-column
partition) so the limit applies per key, never globally across the batch. The
flat row set comes back tagged with its grouping value and is partitioned back
onto the originating keys, preserving the descriptor's order within each key.

Associations are registered per descriptor kind. A plain association groups by
a column on the target relation (has-many, belongs-to). An association with a
Join groups by a column on an intermediate relation (has-many-through,
many-to-many), with the target relation's columns still available for ordering
and filtering.
*/
package sqlsource

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-log/log"

	"github.com/andy9775/grouploader"
)

// Join describes the intermediate relation between the grouping keys and the
// target relation for through and many-to-many associations.
type Join struct {
	// Table is the intermediate relation
	Table string
	// TargetColumn is the intermediate column referencing the target
	// relation's primary key
	TargetColumn string
	// Columns lists intermediate columns usable in order-by and filters
	Columns []string
}

// Assoc describes one association a descriptor kind resolves against.
type Assoc struct {
	// Table is the target relation rows are fetched from
	Table string
	// PrimaryKey defaults to "id". It anchors the join and breaks ordering
	// ties so ranking stays deterministic when the order-by does not fully
	// order the rows.
	PrimaryKey string
	// Columns are the selectable target columns, also the set usable in
	// order-by and filters
	Columns []string
	// GroupColumn links each row back to its owning key. It lives on the
	// target relation, or on the Join table when Join is set.
	GroupColumn string
	// Join is set for through and many-to-many associations
	Join *Join
}

func (a Assoc) primaryKey() string {
	if a.PrimaryKey == "" {
		return "id"
	}
	return a.PrimaryKey
}

// groupExpr is the qualified grouping column the batch partitions on.
func (a Assoc) groupExpr() string {
	if a.Join != nil {
		return "j." + a.GroupColumn
	}
	return "t." + a.GroupColumn
}

// qualify resolves a column named in order-by or filters against the target
// relation first, then the join relation. Reports false for columns neither
// relation declares.
func (a Assoc) qualify(column string) (string, bool) {
	for _, c := range a.Columns {
		if c == column {
			return "t." + column, true
		}
	}
	if column == a.primaryKey() {
		return "t." + column, true
	}
	if a.Join != nil {
		for _, c := range a.Join.Columns {
			if c == column {
				return "j." + column, true
			}
		}
		if column == a.GroupColumn {
			return "j." + column, true
		}
	} else if column == a.GroupColumn {
		return "t." + column, true
	}
	return "", false
}

// QueryBuilder turns an association, the descriptor options and the
// deduplicated grouping-key values into one SQL statement with bind args.
// It is the extension point for backends whose ranking syntax differs from
// the default builder.
type QueryBuilder func(assoc Assoc, opts grouploader.Options, groupKeys []interface{}) (string, []interface{}, error)

// Options contains the source configuration
type options struct {
	assocs   map[string]Assoc
	builders map[string]QueryBuilder
	logger   log.Logger
}

// Option accepts the source configuration and sets an option on it.
type Option func(*options)

// WithAssoc registers an association under the provided descriptor kind.
func WithAssoc(kind string, assoc Assoc) Option {
	return func(o *options) {
		o.assocs[kind] = assoc
	}
}

// WithQueryBuilder overrides the query builder for one descriptor kind.
// Kinds without an override use the default window-function builder.
func WithQueryBuilder(kind string, builder QueryBuilder) Option {
	return func(o *options) {
		o.builders[kind] = builder
	}
}

// WithLogger adds a logger to the source. Default is a no op logger.
func WithLogger(l log.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// New returns a relational source executing against the provided database
// handle. The handle's pool is the shared resource each batch fetch borrows a
// connection from for the duration of the round trip.
func New(db *sql.DB, opts ...Option) grouploader.Source {
	o := options{
		assocs:   make(map[string]Assoc),
		builders: make(map[string]QueryBuilder),
		logger:   log.DefaultLogger,
	}
	for _, apply := range opts {
		apply(&o)
	}

	return &sqlSource{
		db:      db,
		options: o,
	}
}

type sqlSource struct {
	db *sql.DB

	options options
}

// BatchFetch resolves all keys for the descriptor with one SQL round trip.
// Validation problems fail the whole batch with InvalidQueryError before any
// SQL is issued; backend failures surface raw and are wrapped by the engine.
func (s *sqlSource) BatchFetch(
	ctx context.Context,
	descriptor grouploader.Descriptor,
	keys grouploader.Keys,
) (grouploader.ResultMap, error) {
	assoc, ok := s.options.assocs[descriptor.Kind]
	if !ok {
		return nil, &grouploader.InvalidQueryError{
			Kind:   descriptor.Kind,
			Reason: fmt.Errorf("no association registered for kind"),
		}
	}

	if err := validateOptions(assoc, descriptor.Options); err != nil {
		return nil, &grouploader.InvalidQueryError{Kind: descriptor.Kind, Reason: err}
	}

	unique := keys.Keys()

	// a zero limit is legal and resolves to empty results without a round trip
	if limit, ok := descriptor.Limit(); ok && limit == 0 {
		results := grouploader.NewResultMap(len(unique))
		for _, key := range unique {
			results.Set(key.String(), grouploader.Result{Rows: []grouploader.Row{}})
		}
		return results, nil
	}

	builder := s.options.builders[descriptor.Kind]
	if builder == nil {
		builder = buildGroupedQuery
	}

	query, args, err := builder(assoc, descriptor.Options, keys.Raws())
	if err != nil {
		return nil, &grouploader.InvalidQueryError{Kind: descriptor.Kind, Reason: err}
	}

	s.options.logger.Logf("fetching kind %q for %d keys: %s", descriptor.Kind, len(unique), query)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	grouped, err := partitionRows(rows)
	if err != nil {
		return nil, err
	}

	results := grouploader.NewResultMap(len(unique))
	for _, key := range unique {
		matched := grouped[key.String()]
		if matched == nil {
			matched = []grouploader.Row{}
		}
		results.Set(key.String(), grouploader.Result{Rows: matched})
	}
	return results, nil
}

// partitionRows splits the flat ordered row set onto the grouping values,
// preserving the statement's row order within each group. The grouping value
// travels in the groupColumn alias and is matched against Key.String() by its
// default string form.
func partitionRows(rows *sql.Rows) (map[string][]grouploader.Row, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	grouped := make(map[string][]grouploader.Row)
	for rows.Next() {
		values := make([]interface{}, len(columns))
		pointers := make([]interface{}, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, err
		}

		var group string
		row := make(grouploader.Row, len(columns))
		for i, column := range columns {
			value := values[i]
			if b, ok := value.([]byte); ok {
				value = string(b)
			}
			switch column {
			case groupColumn:
				group = fmt.Sprint(value)
			case rankColumn:
				// ranking artifact, not part of the record
			default:
				row[column] = value
			}
		}

		grouped[group] = append(grouped[group], row)
	}
	return grouped, rows.Err()
}
