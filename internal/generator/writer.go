package generator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DatasetFileName is the file WriteDataset produces inside the output
// directory and the name the send CLI looks for by default.
const DatasetFileName = "people.json"

// WriteDataset serializes the generated people into people.json under the
// provided directory.
func WriteDataset(dataset Dataset, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	return writeJSON(filepath.Join(dir, DatasetFileName), dataset.People)
}

func writeJSON(path string, data any) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("encode json for %s: %w", path, err)
	}
	return nil
}
