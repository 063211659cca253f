package query

import (
	"fmt"
)

// PaginateQuery appends id based paging to a query of the form
// "SELECT ... WHERE (...)", numbering the new placeholders after args.
//
//	PaginateQuery("SELECT * FROM t WHERE (owner = $1)", []interface{}{"x"}, ToCursor(3), 10, Ascending)
//	> "SELECT * FROM t WHERE (owner = $1) AND id > $2 ORDER BY id ASC LIMIT $3"
func PaginateQuery(query string, args []interface{}, cursor Cursor, limit uint64, direction Ordering) (string, []interface{}) {
	comparison, order := ">", "ASC"
	if direction == Descending {
		comparison, order = "<", "DESC"
	}

	if len(cursor) > 0 {
		args = append(args, cursor.ToUint64())
		query += fmt.Sprintf(" AND id %s $%d", comparison, len(args))
	}

	query += " ORDER BY id " + order

	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	return query, args
}
