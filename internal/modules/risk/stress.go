package risk

// Scenario is a named, fixed shock to total portfolio value.
//
// Stress results are an illustrative sensitivity table: each multiplier is
// a chosen assumption, not an estimate, and carries no probability. They
// are not a substitute for VaR.
type Scenario struct {
	Name       string  `json:"name"`
	Multiplier float64 `json:"multiplier"`
}

// DefaultScenarios is the built-in stress table.
var DefaultScenarios = []Scenario{
	{Name: "Mild Recession (-15%)", Multiplier: 0.85},
	{Name: "Global Crisis (-30%)", Multiplier: 0.70},
	{Name: "Economic Recovery (+20%)", Multiplier: 1.20},
}

// StressResult is one row of the stress table.
type StressResult struct {
	Scenario
	Value  float64 `json:"value"`
	Change float64 `json:"change"`
}

// StressTest applies every scenario to value.
func StressTest(value float64, scenarios []Scenario) []StressResult {
	out := make([]StressResult, len(scenarios))
	for i, s := range scenarios {
		v := value * s.Multiplier
		out[i] = StressResult{Scenario: s, Value: v, Change: v - value}
	}
	return out
}
