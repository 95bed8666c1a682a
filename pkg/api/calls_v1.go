// pkg/api/calls_v1.go
package api

// CallV1 is the stable JSONL schema for one grouped methylation call.
// Keep fields, names, and types stable. Add new fields only with ",omitempty".
type CallV1 struct {
	ReadName           string  `json:"read_name"`
	Start              int     `json:"start"`
	End                int     `json:"end"`
	LogLikRatio        float64 `json:"log_lik_ratio"`
	LogLikMethylated   float64 `json:"log_lik_methylated"`
	LogLikUnmethylated float64 `json:"log_lik_unmethylated"`
	NumMotifs          int     `json:"num_motifs"`
	Sequence           string  `json:"sequence,omitempty"`
}
