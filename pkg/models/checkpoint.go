package models

import "time"

// Checkpoint is the single mutable row Stage 1 maintains to allow resuming
// an interrupted CSV ingest. At most one row exists at any time; it is
// deleted on a clean end-of-file (spec §8 property 6).
type Checkpoint struct {
	LastProcessedCount int64
	TotalProcessed     int64
	CSVLineNumber      int64
	BatchNumber        int64
	UpdatedAt          time.Time
}
