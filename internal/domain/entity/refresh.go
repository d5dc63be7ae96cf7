package entity

// RefreshState is the lifecycle state of the price refresh controller.
type RefreshState string

const (
	RefreshIdle       RefreshState = "idle"
	RefreshInProgress RefreshState = "refreshing"
	RefreshFailed     RefreshState = "failed"
)
