package models

// Match is a single nearest-neighbour hit. Query results are ordered by descending Score.
type Match struct {
	Record VectorRecord `json:"record"`
	Score  float64      `json:"score"`
}

// IngestReport summarises one ingestion run for the operator.
type IngestReport struct {
	Documents     int `json:"documents"`
	Chunks        int `json:"chunks"`
	Embedded      int `json:"embedded"`
	Skipped       int `json:"skipped"`
	Batches       int `json:"batches"`
	FailedBatches int `json:"failed_batches"`
}
