package events

// EventData is the interface that all event data types must implement
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
}

// LedgerChangedData contains data for LedgerChanged events
type LedgerChangedData struct {
	PortfolioID string `json:"portfolio_id"`
	Ticker      string `json:"ticker,omitempty"`
	Action      string `json:"action"`
	Positions   int    `json:"positions"`
}

// EventType returns the event type for LedgerChangedData
func (d *LedgerChangedData) EventType() EventType {
	return LedgerChanged
}

// MarketDataRefreshedData contains data for MarketDataRefreshed events
type MarketDataRefreshedData struct {
	Ticker string `json:"ticker"`
	Bars   int    `json:"bars"`
}

// EventType returns the event type for MarketDataRefreshedData
func (d *MarketDataRefreshedData) EventType() EventType {
	return MarketDataRefreshed
}

// StaleDataUsedData contains data for StaleDataUsed events
type StaleDataUsedData struct {
	Ticker    string `json:"ticker"`
	Reason    string `json:"reason"`
	FetchedAt string `json:"fetched_at"`
}

// EventType returns the event type for StaleDataUsedData
func (d *StaleDataUsedData) EventType() EventType {
	return StaleDataUsed
}

// AnalysisCompletedData contains data for AnalysisCompleted events
type AnalysisCompletedData struct {
	RunID       string `json:"run_id"`
	PortfolioID string `json:"portfolio_id"`
	Tickers     int    `json:"tickers"`
	Warnings    int    `json:"warnings"`
}

// EventType returns the event type for AnalysisCompletedData
func (d *AnalysisCompletedData) EventType() EventType {
	return AnalysisCompleted
}
