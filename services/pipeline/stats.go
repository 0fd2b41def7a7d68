package pipeline

import "time"

// CycleStats summarizes one ingestion cycle for a subscription
type CycleStats struct {
	CycleID        string
	SubscriptionID int64
	// Fetched is false when the page could not be retrieved
	Fetched bool
	// FetchErr holds the fetch failure when Fetched is false
	FetchErr     error
	Candidates   int
	Rejected     int
	Duplicates   int
	New          int
	StoreErrors  int
	Delivered    int
	NotifyErrors int
	Duration     time.Duration
}
