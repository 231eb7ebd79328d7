// Package salesreport aggregates transaction CSV exports into per-region
// revenue summaries, processing the input in bounded chunks so arbitrarily
// large files stream through a fixed memory budget.
package salesreport

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const defaultChunkSize = 50000

var requiredColumns = []string{"date", "region", "product_id", "quantity", "unit_price"}

// Row is one parsed transaction.
type Row struct {
	Date      string
	Region    string
	ProductID string
	Quantity  float64
	UnitPrice float64
}

// Revenue returns the row's revenue contribution.
func (r Row) Revenue() float64 {
	return r.Quantity * r.UnitPrice
}

// Month returns the row's YYYY-MM bucket.
func (r Row) Month() string {
	return r.Date[:7]
}

// Summary holds the aggregated output of one pipeline run.
type Summary struct {
	// ProductRevenue maps region -> product id -> total revenue.
	ProductRevenue map[string]map[string]float64
	// MonthlyRevenue maps region -> YYYY-MM -> total revenue.
	MonthlyRevenue map[string]map[string]float64
	// Anomalies are rows with a negative quantity or unit price; they are
	// excluded from the revenue totals.
	Anomalies []Row
	RowCount  int
}

// Aggregator streams a transactions CSV and builds a Summary.
type Aggregator struct {
	chunkSize int
}

// NewAggregator builds an aggregator; a non-positive chunkSize falls back to
// the default.
func NewAggregator(chunkSize int) *Aggregator {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	return &Aggregator{chunkSize: chunkSize}
}

// Process reads the CSV from r (header row required) and aggregates it.
func (a *Aggregator) Process(ctx context.Context, r io.Reader) (*Summary, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	reader := csv.NewReader(r)
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		return nil, errors.Wrap(err, "salesreport: read csv header failed")
	}
	cols, err := resolveColumns(header)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		ProductRevenue: make(map[string]map[string]float64),
		MonthlyRevenue: make(map[string]map[string]float64),
	}
	inChunk := 0
	chunk := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "salesreport: aggregation cancelled")
		}
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "salesreport: read csv row %d failed", summary.RowCount+2)
		}
		row, err := parseRow(record, cols)
		if err != nil {
			return nil, errors.Wrapf(err, "salesreport: row %d", summary.RowCount+2)
		}
		summary.ingest(row)
		inChunk++
		if inChunk >= a.chunkSize {
			chunk++
			log.Info().
				Int("chunk", chunk).
				Int("rows", summary.RowCount).
				Msg("salesreport: chunk processed")
			inChunk = 0
		}
	}
	log.Info().
		Int("rows", summary.RowCount).
		Int("anomalies", len(summary.Anomalies)).
		Msg("salesreport: aggregation finished")
	return summary, nil
}

func (s *Summary) ingest(row Row) {
	s.RowCount++
	if row.Quantity < 0 || row.UnitPrice < 0 {
		s.Anomalies = append(s.Anomalies, row)
		return
	}
	byProduct := s.ProductRevenue[row.Region]
	if byProduct == nil {
		byProduct = make(map[string]float64)
		s.ProductRevenue[row.Region] = byProduct
	}
	byProduct[row.ProductID] += row.Revenue()

	byMonth := s.MonthlyRevenue[row.Region]
	if byMonth == nil {
		byMonth = make(map[string]float64)
		s.MonthlyRevenue[row.Region] = byMonth
	}
	byMonth[row.Month()] += row.Revenue()
}

type columnIndexes struct {
	date, region, productID, quantity, unitPrice int
}

func resolveColumns(header []string) (columnIndexes, error) {
	pos := make(map[string]int, len(header))
	for i, name := range header {
		pos[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range requiredColumns {
		if _, ok := pos[required]; !ok {
			return columnIndexes{}, errors.Errorf("salesreport: missing csv column %q", required)
		}
	}
	return columnIndexes{
		date:      pos["date"],
		region:    pos["region"],
		productID: pos["product_id"],
		quantity:  pos["quantity"],
		unitPrice: pos["unit_price"],
	}, nil
}

func parseRow(record []string, cols columnIndexes) (Row, error) {
	date := strings.TrimSpace(record[cols.date])
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return Row{}, errors.Wrapf(err, "parse date %q", date)
	}
	quantity, err := strconv.ParseFloat(strings.TrimSpace(record[cols.quantity]), 64)
	if err != nil {
		return Row{}, errors.Wrapf(err, "parse quantity %q", record[cols.quantity])
	}
	unitPrice, err := strconv.ParseFloat(strings.TrimSpace(record[cols.unitPrice]), 64)
	if err != nil {
		return Row{}, errors.Wrapf(err, "parse unit_price %q", record[cols.unitPrice])
	}
	return Row{
		Date:      date,
		Region:    strings.TrimSpace(record[cols.region]),
		ProductID: strings.TrimSpace(record[cols.productID]),
		Quantity:  quantity,
		UnitPrice: unitPrice,
	}, nil
}
