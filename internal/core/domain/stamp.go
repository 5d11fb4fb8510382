package domain

import "time"

// ExportStamp records the last build file written for a workspace.
type ExportStamp struct {
	BuildFile string    `json:"build_file,omitzero"`
	Hash      string    `json:"hash,omitzero"`
	Units     []string  `json:"units,omitzero"`
	Timestamp time.Time `json:"timestamp,omitzero"`
}
