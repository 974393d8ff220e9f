package store

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// TableStat describes one table. Scan counters are only reported by
// Postgres.
type TableStat struct {
	Table      string `bun:"table_name" json:"table"`
	Rows       int64  `bun:"row_count" json:"rows"`
	SeqScans   *int64 `bun:"seq_scan" json:"seqScans,omitempty"`
	IndexScans *int64 `bun:"idx_scan" json:"indexScans,omitempty"`
}

// TableStats reports row counts and, on Postgres, scan counters from
// pg_stat_user_tables.
type TableStats struct {
	db     bun.IDB
	tables []string
}

// NewTableStats returns a reporter for the named tables.
func NewTableStats(db bun.IDB, tables ...string) *TableStats {
	return &TableStats{db: db, tables: tables}
}

// Collect returns one TableStat per table.
func (s *TableStats) Collect(ctx context.Context) ([]TableStat, error) {
	if s.db.Dialect().Name() == dialect.PG {
		return s.collectPostgres(ctx)
	}

	stats := make([]TableStat, 0, len(s.tables))
	for _, table := range s.tables {
		n, err := s.db.NewSelect().TableExpr("?", bun.Ident(table)).Count(ctx)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to count "+table).
				WithTextCode("DB_STATS")
		}
		stats = append(stats, TableStat{Table: table, Rows: int64(n)})
	}
	return stats, nil
}

func (s *TableStats) collectPostgres(ctx context.Context) ([]TableStat, error) {
	var stats []TableStat
	err := s.db.NewRaw(
		"SELECT relname AS table_name, n_live_tup AS row_count, seq_scan, idx_scan FROM pg_stat_user_tables WHERE relname IN (?) ORDER BY relname",
		bun.In(s.tables),
	).Scan(ctx, &stats)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read pg_stat_user_tables").
			WithTextCode("DB_STATS")
	}
	return stats, nil
}
