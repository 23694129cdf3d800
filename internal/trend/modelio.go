package trend

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"foodtrend/internal/model"
)

// Save writes the model atomically: marshal to a temp file in the target
// directory, then rename into place. A failed save leaves no partial file
// visible to subsequent loads.
func (m *Model) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".trend-*.json")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Load reads a trained model from path. A missing file is ErrMissingModel.
func Load(path string) (*Model, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("load %s: %w", path, model.ErrMissingModel)
		}
		return nil, err
	}
	var m Model
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("load %s: corrupt model file: %v", path, err)
	}
	if m.Ensemble == nil {
		return nil, fmt.Errorf("load %s: empty model file: %w", path, model.ErrMissingModel)
	}
	return &m, nil
}
