package salesreport

import (
	"context"
	"math"
	"path/filepath"
	"strings"
	"testing"
)

const sampleCSV = `date,region,product_id,quantity,unit_price
2024-01-05,north,widget,2,10.0
2024-01-20,north,widget,1,10.0
2024-02-03,north,gizmo,3,5.0
2024-01-11,south,widget,4,10.0
2024-01-15,south,gizmo,-1,5.0
2024-02-28,south,widget,1,-2.5
`

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestAggregatorBuildsSummary(t *testing.T) {
	agg := NewAggregator(2)
	summary, err := agg.Process(context.Background(), strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}

	if summary.RowCount != 6 {
		t.Fatalf("expected 6 rows processed, got %d", summary.RowCount)
	}
	if got := summary.ProductRevenue["north"]["widget"]; !almostEqual(got, 30.0) {
		t.Fatalf("north/widget revenue: expected 30, got %v", got)
	}
	if got := summary.ProductRevenue["north"]["gizmo"]; !almostEqual(got, 15.0) {
		t.Fatalf("north/gizmo revenue: expected 15, got %v", got)
	}
	if got := summary.MonthlyRevenue["north"]["2024-01"]; !almostEqual(got, 30.0) {
		t.Fatalf("north 2024-01 revenue: expected 30, got %v", got)
	}
	if got := summary.MonthlyRevenue["north"]["2024-02"]; !almostEqual(got, 15.0) {
		t.Fatalf("north 2024-02 revenue: expected 15, got %v", got)
	}
}

func TestAggregatorSeparatesAnomalies(t *testing.T) {
	agg := NewAggregator(0)
	summary, err := agg.Process(context.Background(), strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if len(summary.Anomalies) != 2 {
		t.Fatalf("expected 2 anomalies, got %d", len(summary.Anomalies))
	}
	// Anomalous rows must not leak into revenue totals.
	if got := summary.ProductRevenue["south"]["gizmo"]; !almostEqual(got, 0) {
		t.Fatalf("south/gizmo should have no clean revenue, got %v", got)
	}
	if got := summary.ProductRevenue["south"]["widget"]; !almostEqual(got, 40.0) {
		t.Fatalf("south/widget revenue: expected 40, got %v", got)
	}
}

func TestAggregatorRejectsMissingColumns(t *testing.T) {
	csv := "date,region,quantity,unit_price\n2024-01-01,north,1,2\n"
	if _, err := NewAggregator(0).Process(context.Background(), strings.NewReader(csv)); err == nil {
		t.Fatalf("expected missing product_id column to fail")
	}
}

func TestAggregatorRejectsMalformedRow(t *testing.T) {
	csv := "date,region,product_id,quantity,unit_price\nnot-a-date,north,widget,1,2\n"
	if _, err := NewAggregator(0).Process(context.Background(), strings.NewReader(csv)); err == nil {
		t.Fatalf("expected malformed date to fail")
	}
}

func TestStoreRoundTrip(t *testing.T) {
	summary, err := NewAggregator(0).Process(context.Background(), strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}

	store, err := OpenStore(filepath.Join(t.TempDir(), "sales.sqlite"))
	if err != nil {
		t.Fatalf("OpenStore failed: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.Save(ctx, summary); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	// Saving again replaces totals instead of duplicating rows.
	if err := store.Save(ctx, summary); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}

	got, err := store.ProductRevenue(ctx, "north", "widget")
	if err != nil {
		t.Fatalf("ProductRevenue failed: %v", err)
	}
	if !almostEqual(got, 30.0) {
		t.Fatalf("stored north/widget revenue: expected 30, got %v", got)
	}
}
