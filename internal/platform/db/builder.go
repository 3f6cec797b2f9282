package db

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

// psql builds PostgreSQL statements with $n placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

func Select(columns ...string) sq.SelectBuilder { return psql.Select(columns...) }

func Insert(table string) sq.InsertBuilder { return psql.Insert(table) }

func Update(table string) sq.UpdateBuilder { return psql.Update(table) }

func Delete(table string) sq.DeleteBuilder { return psql.Delete(table) }

// Count runs SELECT COUNT(*) over the FROM and WHERE parts of b. Ordering
// and paging must be applied to b after calling Count.
func Count(ctx context.Context, q Querier, b sq.SelectBuilder) (int, error) {
	query, args, err := b.RemoveColumns().Columns("COUNT(*)").ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count query: %w", err)
	}
	var total int
	if err := q.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}
