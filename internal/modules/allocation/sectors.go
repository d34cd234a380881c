package allocation

import (
	"math"
	"sort"
)

// OtherGroup collects holdings with no known sector.
const OtherGroup = "OTHER"

// Holding is one position's current value and classification.
type Holding struct {
	Ticker string  `json:"ticker"`
	Sector string  `json:"sector"`
	Value  float64 `json:"value"`
}

// GroupAllocation represents allocation for a single group
type GroupAllocation struct {
	Name         string   `json:"name"`
	CurrentPct   float64  `json:"current_pct"`
	CurrentValue float64  `json:"current_value"`
	Tickers      []string `json:"tickers"`
}

// BySector aggregates holding values by sector. Holdings without a sector
// are grouped under OtherGroup.
func BySector(holdings []Holding) []GroupAllocation {
	groupValues := make(map[string]float64)
	groupTickers := make(map[string][]string)
	total := 0.0

	for _, h := range holdings {
		name := h.Sector
		if name == "" {
			name = OtherGroup
		}
		groupValues[name] += h.Value
		groupTickers[name] = append(groupTickers[name], h.Ticker)
		total += h.Value
	}

	return buildGroupAllocations(groupValues, groupTickers, total)
}

// buildGroupAllocations creates GroupAllocation structs from group values
func buildGroupAllocations(
	groupValues map[string]float64,
	groupTickers map[string][]string,
	totalValue float64,
) []GroupAllocation {
	allocations := make([]GroupAllocation, 0, len(groupValues))
	for groupName, currentValue := range groupValues {
		var currentPct float64
		if totalValue > 0 {
			currentPct = currentValue / totalValue
		}

		tickers := groupTickers[groupName]
		sort.Strings(tickers)
		allocations = append(allocations, GroupAllocation{
			Name:         groupName,
			CurrentPct:   round(currentPct, 4),
			CurrentValue: round(currentValue, 2),
			Tickers:      tickers,
		})
	}

	// Largest first, then by name for consistent output
	sort.Slice(allocations, func(i, j int) bool {
		if allocations[i].CurrentValue != allocations[j].CurrentValue {
			return allocations[i].CurrentValue > allocations[j].CurrentValue
		}
		return allocations[i].Name < allocations[j].Name
	})

	return allocations
}

// round rounds a float64 to n decimal places
func round(val float64, decimals int) float64 {
	multiplier := math.Pow(10, float64(decimals))
	return math.Round(val*multiplier) / multiplier
}
