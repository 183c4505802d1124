package model

// RecordEvent announces a row inserted into one of the pipeline tables outside the API.
type RecordEvent struct {
	Table    string `json:"table"`
	RecordID string `json:"record_id"`
}

type Tick struct {
	Mode string `json:"mode"`
	Now  string `json:"now"`
}
