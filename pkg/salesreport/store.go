package salesreport

import (
	"context"
	"database/sql"

	pkgerrors "github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

// Store persists aggregated summaries to a SQLite database so downstream
// reporting can query them without re-reading the CSV.
type Store struct {
	db   *sql.DB
	path string
}

// OpenStore creates (or reuses) the report database at path.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "salesreport: open sqlite database failed")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=10000;",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, pkgerrors.Wrapf(err, "salesreport: execute %s failed", pragma)
		}
	}
	schema := []string{
		`CREATE TABLE IF NOT EXISTS product_revenue (
			region TEXT NOT NULL,
			product_id TEXT NOT NULL,
			revenue REAL NOT NULL,
			PRIMARY KEY (region, product_id)
		);`,
		`CREATE TABLE IF NOT EXISTS monthly_revenue (
			region TEXT NOT NULL,
			month TEXT NOT NULL,
			revenue REAL NOT NULL,
			PRIMARY KEY (region, month)
		);`,
		`CREATE TABLE IF NOT EXISTS anomalies (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			date TEXT NOT NULL,
			region TEXT NOT NULL,
			product_id TEXT NOT NULL,
			quantity REAL NOT NULL,
			unit_price REAL NOT NULL
		);`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, pkgerrors.Wrap(err, "salesreport: init schema failed")
		}
	}
	return &Store{db: db, path: path}, nil
}

// Save writes the summary in one transaction, replacing totals for any
// region/product or region/month pair already present.
func (s *Store) Save(ctx context.Context, summary *Summary) error {
	if s == nil || s.db == nil {
		return pkgerrors.New("salesreport: store not initialized")
	}
	if summary == nil {
		return pkgerrors.New("salesreport: nil summary")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return pkgerrors.Wrap(err, "salesreport: begin transaction failed")
	}
	defer tx.Rollback()

	for region, byProduct := range summary.ProductRevenue {
		for productID, revenue := range byProduct {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO product_revenue (region, product_id, revenue) VALUES (?, ?, ?)
				 ON CONFLICT(region, product_id) DO UPDATE SET revenue=excluded.revenue`,
				region, productID, revenue); err != nil {
				return pkgerrors.Wrap(err, "salesreport: insert product revenue failed")
			}
		}
	}
	for region, byMonth := range summary.MonthlyRevenue {
		for month, revenue := range byMonth {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO monthly_revenue (region, month, revenue) VALUES (?, ?, ?)
				 ON CONFLICT(region, month) DO UPDATE SET revenue=excluded.revenue`,
				region, month, revenue); err != nil {
				return pkgerrors.Wrap(err, "salesreport: insert monthly revenue failed")
			}
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM anomalies`); err != nil {
		return pkgerrors.Wrap(err, "salesreport: clear anomalies failed")
	}
	for _, row := range summary.Anomalies {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO anomalies (date, region, product_id, quantity, unit_price) VALUES (?, ?, ?, ?, ?)`,
			row.Date, row.Region, row.ProductID, row.Quantity, row.UnitPrice); err != nil {
			return pkgerrors.Wrap(err, "salesreport: insert anomaly failed")
		}
	}
	if err := tx.Commit(); err != nil {
		return pkgerrors.Wrap(err, "salesreport: commit failed")
	}
	return nil
}

// ProductRevenue returns the stored total for one region/product pair.
func (s *Store) ProductRevenue(ctx context.Context, region, productID string) (float64, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	var revenue float64
	err := s.db.QueryRowContext(ctx,
		`SELECT revenue FROM product_revenue WHERE region = ? AND product_id = ?`,
		region, productID).Scan(&revenue)
	if err != nil {
		return 0, pkgerrors.Wrap(err, "salesreport: query product revenue failed")
	}
	return revenue, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
