package storage

import (
	"encoding/json"
	"io"

	"github.com/san-kum/vescwheel/internal/dynamo"
)

type ExportData struct {
	Run     RunMetadata     `json:"run"`
	Samples []dynamo.Sample `json:"samples"`
}

// ExportJSON writes a run's metadata and samples as one JSON document.
func ExportJSON(w io.Writer, meta *RunMetadata, samples []dynamo.Sample) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(ExportData{Run: *meta, Samples: samples})
}
