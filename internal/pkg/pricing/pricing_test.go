package pricing

import (
	"testing"
	"time"

	"github.com/arminrahbar/price-tracker-webapp/internal/model"
)

func mustTime(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		t.Fatalf("parse time %q: %v", value, err)
	}
	return parsed
}

func TestCurrentMonthPriceAt(t *testing.T) {
	vendor := model.VendorPriceSeries{
		Site: "Amazon",
		Prices: []model.PricePoint{
			{Month: "2024-05", Price: 12},
			{Month: "2024-06", Price: 10},
		},
	}

	june := mustTime(t, "2024-06-15")
	p := CurrentMonthPriceAt(vendor, june)
	if p == nil || *p != 10 {
		t.Fatalf("expected 10 for June, got %v", p)
	}

	// 没有 7 月数据：必须返回 nil，不允许回退到最近月份
	july := mustTime(t, "2024-07-01")
	if p := CurrentMonthPriceAt(vendor, july); p != nil {
		t.Fatalf("expected nil for July, got %v", *p)
	}
}

func TestLowestCurrentMonthPriceAt(t *testing.T) {
	sites := []model.VendorPriceSeries{
		{Site: "A", Prices: []model.PricePoint{{Month: "2024-06", Price: 10}}},
		{Site: "B", Prices: []model.PricePoint{{Month: "2024-06", Price: 8}}},
		{Site: "C", Prices: []model.PricePoint{{Month: "2024-05", Price: 1}}},
	}

	june := mustTime(t, "2024-06-15")
	p := LowestCurrentMonthPriceAt(sites, june)
	if p == nil || *p != 8 {
		t.Fatalf("expected lowest 8 in June, got %v", p)
	}

	// 7 月任何站点都没有数据
	july := mustTime(t, "2024-07-15")
	if p := LowestCurrentMonthPriceAt(sites, july); p != nil {
		t.Fatalf("expected nil in July, got %v", *p)
	}
}

func TestLowestCurrentMonthPriceEmptySites(t *testing.T) {
	if p := LowestCurrentMonthPriceAt(nil, time.Now()); p != nil {
		t.Fatalf("expected nil for empty sites, got %v", *p)
	}
}

func TestVendorSeriesForChartUnionAxis(t *testing.T) {
	sites := []model.VendorPriceSeries{
		{Site: "A", Prices: []model.PricePoint{
			{Month: "2024-05", Price: 12},
			{Month: "2024-06", Price: 10},
		}},
		{Site: "B", Prices: []model.PricePoint{
			{Month: "2024-04", Price: 9},
			{Month: "2024-06", Price: 8},
			{Month: "2024-07", Price: 7},
		}},
	}

	chart := VendorSeriesForChart(sites)

	// 轴必须是所有站点月份的并集（升序），而不是只取第一个站点
	want := []string{"2024-04", "2024-05", "2024-06", "2024-07"}
	if len(chart.Labels) != len(want) {
		t.Fatalf("expected %d labels, got %d", len(want), len(chart.Labels))
	}
	for i, m := range want {
		if chart.Labels[i] != m {
			t.Errorf("label[%d]: expected %s, got %s", i, m, chart.Labels[i])
		}
	}

	if len(chart.Series) != 2 {
		t.Fatalf("expected 2 series, got %d", len(chart.Series))
	}
	if chart.Series[0].Vendor != "A" || chart.Series[1].Vendor != "B" {
		t.Errorf("series order mismatch: %v", chart.Series)
	}
	// reshape 不允许改动原始价格点
	if len(chart.Series[1].Prices) != 3 || chart.Series[1].Prices[2].Price != 7 {
		t.Errorf("series B prices changed: %v", chart.Series[1].Prices)
	}
}
