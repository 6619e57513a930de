package ingest

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rawblock/recon-engine/pkg/models"
)

// ReadJSON parses one side's records from a JSON array of RawTrade
// objects, the same shape the reconciliation API accepts.
func ReadJSON(r io.Reader) ([]models.RawTrade, error) {
	var out []models.RawTrade
	dec := json.NewDecoder(r)
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("parse json records: %w", err)
	}
	for i := range out {
		if out[i].ID == "" {
			out[i].ID = fmt.Sprintf("rec-%04d", i+1)
		}
	}
	return out, nil
}

// ReadJSONFile is ReadJSON over a file path.
func ReadJSONFile(path string) ([]models.RawTrade, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadJSON(f)
}
