package pricing

import (
	"sort"
	"time"

	"github.com/arminrahbar/price-tracker-webapp/internal/model"
)

// monthLayout 月份标签格式，与目录数据中的 "YYYY-MM" 对应。
const monthLayout = "2006-01"

// CurrentMonthPrice 返回站点在当前自然月的价格。
//
// 只做精确的月份匹配，不插值、不回退到最近月份；
// 没有当月数据时返回 nil（这不是错误，由调用方决定展示回退）。
func CurrentMonthPrice(v model.VendorPriceSeries) *float64 {
	return CurrentMonthPriceAt(v, time.Now())
}

// CurrentMonthPriceAt 与 CurrentMonthPrice 相同，但使用给定时间确定月份。
func CurrentMonthPriceAt(v model.VendorPriceSeries, at time.Time) *float64 {
	month := at.Format(monthLayout)
	for _, p := range v.Prices {
		if p.Month == month {
			price := p.Price
			return &price
		}
	}
	return nil
}

// LowestCurrentMonthPrice 返回所有站点当月价格中的最低值。
//
// 逐站点取当月价格，忽略无当月数据的站点；
// 所有站点都没有当月数据（包括 sites 为空）时返回 nil。
func LowestCurrentMonthPrice(sites []model.VendorPriceSeries) *float64 {
	return LowestCurrentMonthPriceAt(sites, time.Now())
}

// LowestCurrentMonthPriceAt 与 LowestCurrentMonthPrice 相同，但使用给定时间确定月份。
func LowestCurrentMonthPriceAt(sites []model.VendorPriceSeries, at time.Time) *float64 {
	var lowest *float64
	for _, site := range sites {
		p := CurrentMonthPriceAt(site, at)
		if p == nil {
			continue
		}
		if lowest == nil || *p < *lowest {
			lowest = p
		}
	}
	return lowest
}

// VendorSeries 图表用的单站点序列，价格点原样保留。
type VendorSeries struct {
	Vendor string             `json:"vendor"`
	Prices []model.PricePoint `json:"prices"`
}

// ChartData 图表数据：共享月份轴 + 各站点原始序列。
type ChartData struct {
	Labels []string       `json:"labels"`
	Series []VendorSeries `json:"series"`
}

// VendorSeriesForChart 将各站点的原始价格序列重排为图表结构。
//
// 这是一个 reshape 而不是 reducer：不做任何聚合或插值。
// 月份轴取所有站点月份的并集（升序），站点没有数据的月份在轴上留空，
// 各站点覆盖不一致时曲线不会错位。
func VendorSeriesForChart(sites []model.VendorPriceSeries) ChartData {
	seen := make(map[string]bool)
	labels := make([]string, 0)
	series := make([]VendorSeries, 0, len(sites))

	for _, site := range sites {
		for _, p := range site.Prices {
			if !seen[p.Month] {
				seen[p.Month] = true
				labels = append(labels, p.Month)
			}
		}
		series = append(series, VendorSeries{
			Vendor: site.Site,
			Prices: site.Prices,
		})
	}

	// "YYYY-MM" 的字典序即时间序
	sort.Strings(labels)

	return ChartData{Labels: labels, Series: series}
}
