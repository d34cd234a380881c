// Package valuation derives fundamental valuation signals and forecast based
// recommendations from a fundamentals snapshot.
//
// Missing inputs are never read as zero. Each signal is an Optional that is
// Undefined when the snapshot lacks what it needs, and FeatureUnavailable
// when an optional capability (an external price forecast) was not supplied.
package valuation

import (
	"github.com/aristath/folio/internal/domain"
)

const (
	// DiscountRate is the required return used by the dividend discount model.
	DiscountRate = 0.10
	// DefaultGrowth replaces an unknown earnings growth rate.
	DefaultGrowth = 0.05
	// SafePayoutRatio is the exclusive upper bound of a sustainable payout.
	SafePayoutRatio = 0.7
	// RecommendationBand is the price change separating Buy/Hold/Sell.
	RecommendationBand = 0.05
)

// PEVerdict compares a trailing PE with its industry.
type PEVerdict string

const (
	PEBelowIndustry PEVerdict = "below_industry"
	PEAboveIndustry PEVerdict = "above_industry"
	PEUnknown       PEVerdict = "unknown"
	// PEUnavailable means no industry PE was supplied. Neither bundled
	// provider reports one, so this is the usual outcome.
	PEUnavailable PEVerdict = "unavailable"
)

// PEComparison is the trailing PE against the industry average.
type PEComparison struct {
	Verdict PEVerdict `json:"verdict"`
	// Difference is (trailing - industry) / industry.
	Difference domain.Optional[float64] `json:"difference"`
}

// ComparePE compares trailing with industry. A missing industry PE yields
// PEUnavailable; a missing trailing PE or a non-positive industry PE has no
// meaningful ratio and yields PEUnknown.
func ComparePE(trailing, industry *float64) PEComparison {
	if industry == nil {
		return PEComparison{Verdict: PEUnavailable, Difference: domain.Unavailable[float64]("provider does not supply an industry PE")}
	}
	if trailing == nil {
		return PEComparison{Verdict: PEUnknown, Difference: domain.None[float64]("trailing PE unknown")}
	}
	if *industry <= 0 {
		return PEComparison{Verdict: PEUnknown, Difference: domain.None[float64]("industry PE is not positive")}
	}

	diff := (*trailing - *industry) / *industry
	verdict := PEAboveIndustry
	if diff < 0 {
		verdict = PEBelowIndustry
	}
	return PEComparison{Verdict: verdict, Difference: domain.Some(diff)}
}

// FairValue is the dividend discount estimate dividendRate / (r - g).
// growth defaults to DefaultGrowth when unknown; the model is undefined when
// growth reaches the discount rate or the dividend is unknown or zero.
func FairValue(dividendRate, growth *float64) domain.Optional[float64] {
	if dividendRate == nil || *dividendRate <= 0 {
		return domain.None[float64]("dividend rate unknown")
	}
	g := DefaultGrowth
	if growth != nil {
		g = *growth
	}
	if g >= DiscountRate {
		return domain.None[float64]("growth rate is not below the discount rate")
	}
	return domain.Some(*dividendRate / (DiscountRate - g))
}

// MarginOfSafety is (fair - price) / price: the upside to fair value.
func MarginOfSafety(fair domain.Optional[float64], price *float64) domain.Optional[float64] {
	f, ok := fair.Get()
	if !ok {
		return domain.None[float64]("fair value undefined")
	}
	if price == nil || *price <= 0 {
		return domain.None[float64]("price unknown")
	}
	return domain.Some((f - *price) / *price)
}

// PayoutSafety classifies a dividend payout ratio.
type PayoutSafety string

const (
	PayoutSafe    PayoutSafety = "safe"
	PayoutRisky   PayoutSafety = "risky"
	PayoutUnknown PayoutSafety = "unknown"
)

// ClassifyPayout marks ratio below SafePayoutRatio as safe.
func ClassifyPayout(ratio *float64) PayoutSafety {
	if ratio == nil {
		return PayoutUnknown
	}
	if *ratio < SafePayoutRatio {
		return PayoutSafe
	}
	return PayoutRisky
}

// Action is a forecast driven recommendation.
type Action string

const (
	ActionBuy  Action = "buy"
	ActionHold Action = "hold"
	ActionSell Action = "sell"
)

// Recommendation compares an external forecast with the last close.
type Recommendation struct {
	Action   Action  `json:"action"`
	Forecast float64 `json:"forecast"`
	Change   float64 `json:"change"`
}

// Recommend maps the forecast change to Buy (> +5%), Hold (> -5%) or Sell.
// Without a forecast the result is FeatureUnavailable.
func Recommend(forecast, lastClose *float64) domain.Optional[Recommendation] {
	if forecast == nil {
		return domain.Unavailable[Recommendation]("no price forecast supplied")
	}
	if lastClose == nil || *lastClose <= 0 {
		return domain.None[Recommendation]("last close unknown")
	}

	change := (*forecast - *lastClose) / *lastClose
	action := ActionSell
	switch {
	case change > RecommendationBand:
		action = ActionBuy
	case change > -RecommendationBand:
		action = ActionHold
	}
	return domain.Some(Recommendation{Action: action, Forecast: *forecast, Change: change})
}

// Valuation gathers every signal for one ticker.
type Valuation struct {
	Ticker         string                          `json:"ticker"`
	Price          *float64                        `json:"price"`
	PE             PEComparison                    `json:"pe"`
	FairValue      domain.Optional[float64]        `json:"fair_value"`
	MarginOfSafety domain.Optional[float64]        `json:"margin_of_safety"`
	Payout         PayoutSafety                    `json:"payout"`
	PayoutRatio    *float64                        `json:"payout_ratio"`
	Recommendation domain.Optional[Recommendation] `json:"recommendation"`
	Fundamentals   domain.Fundamentals             `json:"fundamentals"`
}

// Assess computes every signal. lastClose is preferred over the snapshot's
// current price when both exist.
func Assess(ticker string, f domain.Fundamentals, lastClose, forecast *float64) Valuation {
	price := lastClose
	if price == nil {
		price = f.CurrentPrice
	}

	fair := FairValue(f.DividendRate, f.EarningsGrowth)
	return Valuation{
		Ticker:         ticker,
		Price:          price,
		PE:             ComparePE(f.TrailingPE, f.IndustryPE),
		FairValue:      fair,
		MarginOfSafety: MarginOfSafety(fair, price),
		Payout:         ClassifyPayout(f.PayoutRatio),
		PayoutRatio:    f.PayoutRatio,
		Recommendation: Recommend(forecast, price),
		Fundamentals:   f,
	}
}
