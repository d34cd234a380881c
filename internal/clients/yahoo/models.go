package yahoo

// chartResponse is the v8 chart payload. Closes are nullable: Yahoo emits
// null for sessions without trades.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Currency           string  `json:"currency"`
				Symbol             string  `json:"symbol"`
				GMTOffset          int64   `json:"gmtoffset"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *apiError `json:"error"`
	} `json:"chart"`
}

type apiError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// rawValue is Yahoo's {"raw": 1.23, "fmt": "1.23"} wrapper.
type rawValue struct {
	Raw *float64 `json:"raw"`
}

type quoteSummaryResponse struct {
	QuoteSummary struct {
		Result []struct {
			SummaryDetail struct {
				TrailingPE    rawValue `json:"trailingPE"`
				ForwardPE     rawValue `json:"forwardPE"`
				DividendYield rawValue `json:"dividendYield"`
				DividendRate  rawValue `json:"dividendRate"`
				PayoutRatio   rawValue `json:"payoutRatio"`
				MarketCap     rawValue `json:"marketCap"`
			} `json:"summaryDetail"`
			DefaultKeyStatistics struct {
				PriceToBook rawValue `json:"priceToBook"`
			} `json:"defaultKeyStatistics"`
			FinancialData struct {
				EarningsGrowth rawValue `json:"earningsGrowth"`
				CurrentPrice   rawValue `json:"currentPrice"`
			} `json:"financialData"`
			AssetProfile struct {
				Sector   string `json:"sector"`
				Industry string `json:"industry"`
			} `json:"assetProfile"`
			Price struct {
				LongName  string `json:"longName"`
				ShortName string `json:"shortName"`
				Currency  string `json:"currency"`
			} `json:"price"`
		} `json:"result"`
		Error *apiError `json:"error"`
	} `json:"quoteSummary"`
}
