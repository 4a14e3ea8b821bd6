package entity

// ImageStatus is the last known state of an image in the ledger.
type ImageStatus string

const (
	StatusScanned ImageStatus = "scanned"
	StatusApplied ImageStatus = "applied"
	StatusFailed  ImageStatus = "failed"
)

// Valid reports whether s is one of the known statuses.
func (s ImageStatus) Valid() bool {
	switch s {
	case StatusScanned, StatusApplied, StatusFailed:
		return true
	}
	return false
}
