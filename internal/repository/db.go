package repository

// scanner is satisfied by both *sql.Row and *sql.Rows so the shared
// scan helpers work for single- and multi-row queries.
type scanner interface {
	Scan(dest ...any) error
}
