package analytics

import (
	"sort"
	"strings"

	"github.com/nmarkovic/fieldops-api/internal/models"
)

// service price list in RSD, keyed by lowercased service type
var servicePrices = map[string]float64{
	"hfc":          2500,
	"gpon":         3000,
	"stb":          1500,
	"komercijalna": 5000,
	"servis":       1000,
}

const defaultServicePrice = 2000

// cost model constants: estimated cost is 40% of revenue plus material and
// labor estimates drawn from fixed ranges
const (
	costRevenueShare = 0.4
	materialMid      = 500
	materialSpread   = 300
	laborMid         = 600
	laborSpread      = 300
)

// RevenueFor resolves the revenue of a record, preferring the recorded value
// over the price-list estimate.
func RevenueFor(rec models.ActivityRecord) float64 {
	if rec.HasRevenue {
		return rec.Revenue
	}
	service := strings.ToLower(strings.TrimSpace(rec.ServiceType))
	for key, price := range servicePrices {
		if strings.Contains(service, key) {
			return price
		}
	}
	return defaultServicePrice
}

// CostFor resolves the cost of a record. Without a recorded cost it estimates
// 40% of revenue plus material and labor, optionally jittered by noise within
// the fixed ranges.
func CostFor(rec models.ActivityRecord, revenue float64, noise Noise) float64 {
	if rec.HasCost {
		return rec.Cost
	}
	material := clampRange(materialMid+noise.Jitter(materialSpread), materialMid-materialSpread, materialMid+materialSpread)
	labor := clampRange(laborMid+noise.Jitter(laborSpread), laborMid-laborSpread, laborMid+laborSpread)
	return costRevenueShare*revenue + material + labor
}

// AnalyzeFinancials aggregates revenue, cost and profit over completed work
// orders, broken down by technician, municipality and service type. Only
// completed orders generate money.
func AnalyzeFinancials(records []models.ActivityRecord, cfg FinancialConfig) models.FinancialReport {
	cfg = cfg.withDefaults()

	report := models.FinancialReport{
		ByTechnician:   []models.TechnicianFinance{},
		ByMunicipality: []models.FinancialRollup{},
		ByServiceType:  []models.ServiceTypeFinance{},
	}

	type techAccum struct {
		rollup    models.FinancialRollup
		workHours float64
	}
	technicians := make(map[string]*techAccum)
	municipalities := make(map[string]*models.FinancialRollup)
	services := make(map[string]*models.FinancialRollup)

	for _, rec := range records {
		if rec.Status != models.StatusCompleted {
			continue
		}
		revenue := RevenueFor(rec)
		cost := CostFor(rec, revenue, cfg.Noise)

		report.Overall.TotalOrders++
		report.Overall.TotalRevenue += revenue
		report.Overall.TotalCost += cost

		if tech := strings.TrimSpace(rec.Technician); tech != "" {
			accum := technicians[tech]
			if accum == nil {
				accum = &techAccum{rollup: models.FinancialRollup{Key: tech}}
				technicians[tech] = accum
			}
			addMoney(&accum.rollup, revenue, cost)
			if rec.HasWorkTime {
				accum.workHours += rec.WorkTimeMin / 60
			}
		}
		if muni := strings.TrimSpace(rec.Municipality); muni != "" {
			addMoney(ensureRollup(municipalities, muni), revenue, cost)
		}
		if service := strings.TrimSpace(rec.ServiceType); service != "" {
			addMoney(ensureRollup(services, service), revenue, cost)
		}
	}

	finishRollup(&report.Overall)

	for _, accum := range technicians {
		finishRollup(&accum.rollup)
		finance := models.TechnicianFinance{
			FinancialRollup: accum.rollup,
			WorkHours:       round1(accum.workHours),
		}
		if accum.workHours > 0 {
			finance.Efficiency = round1(accum.rollup.TotalProfit / accum.workHours)
		}
		report.ByTechnician = append(report.ByTechnician, finance)
	}
	sort.SliceStable(report.ByTechnician, func(i, j int) bool {
		if report.ByTechnician[i].TotalProfit != report.ByTechnician[j].TotalProfit {
			return report.ByTechnician[i].TotalProfit > report.ByTechnician[j].TotalProfit
		}
		return report.ByTechnician[i].Key < report.ByTechnician[j].Key
	})

	for _, rollup := range municipalities {
		finishRollup(rollup)
		report.ByMunicipality = append(report.ByMunicipality, *rollup)
	}
	sort.SliceStable(report.ByMunicipality, func(i, j int) bool {
		if report.ByMunicipality[i].TotalProfit != report.ByMunicipality[j].TotalProfit {
			return report.ByMunicipality[i].TotalProfit > report.ByMunicipality[j].TotalProfit
		}
		return report.ByMunicipality[i].Key < report.ByMunicipality[j].Key
	})

	// Market share is relative to revenue attributed to a known service type,
	// so records with a blank service type do not dilute the shares.
	var serviceRevenue float64
	for _, rollup := range services {
		finishRollup(rollup)
		serviceRevenue += rollup.TotalRevenue
	}
	for _, rollup := range services {
		finance := models.ServiceTypeFinance{FinancialRollup: *rollup}
		if serviceRevenue > 0 {
			finance.MarketShare = round1(rollup.TotalRevenue / serviceRevenue * 100)
		}
		report.ByServiceType = append(report.ByServiceType, finance)
	}
	sort.SliceStable(report.ByServiceType, func(i, j int) bool {
		if report.ByServiceType[i].TotalRevenue != report.ByServiceType[j].TotalRevenue {
			return report.ByServiceType[i].TotalRevenue > report.ByServiceType[j].TotalRevenue
		}
		return report.ByServiceType[i].Key < report.ByServiceType[j].Key
	})

	return report
}

func ensureRollup(m map[string]*models.FinancialRollup, key string) *models.FinancialRollup {
	rollup := m[key]
	if rollup == nil {
		rollup = &models.FinancialRollup{Key: key}
		m[key] = rollup
	}
	return rollup
}

func addMoney(rollup *models.FinancialRollup, revenue, cost float64) {
	rollup.TotalOrders++
	rollup.TotalRevenue += revenue
	rollup.TotalCost += cost
}

func finishRollup(rollup *models.FinancialRollup) {
	rollup.TotalRevenue = round1(rollup.TotalRevenue)
	rollup.TotalCost = round1(rollup.TotalCost)
	rollup.TotalProfit = round1(rollup.TotalRevenue - rollup.TotalCost)
	if rollup.TotalRevenue > 0 {
		rollup.ProfitMargin = round1(rollup.TotalProfit / rollup.TotalRevenue * 100)
	}
}

func clampRange(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
