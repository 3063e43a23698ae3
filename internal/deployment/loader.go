package deployment

import (
	"fmt"

	"github.com/supp-dex/instance-api/internal/adapter"
	"github.com/supp-dex/instance-api/internal/domain"
)

// Loader reads the deployment descriptor written by the deploy step
type Loader struct {
	fs   adapter.FileSystem
	json adapter.JSON
}

// NewLoader creates a new deployment descriptor loader
func NewLoader(fs adapter.FileSystem, json adapter.JSON) *Loader {
	return &Loader{fs: fs, json: json}
}

// Load reads and validates the descriptor at path. The returned record is
// immutable for the life of the process.
func (l *Loader) Load(path string) (domain.Deployment, error) {
	var d domain.Deployment

	if _, err := l.fs.Stat(path); err != nil {
		return d, fmt.Errorf("deployment descriptor not found at %s (did the deploy step run?): %w", path, err)
	}

	data, err := l.fs.ReadFile(path)
	if err != nil {
		return d, fmt.Errorf("failed to read deployment descriptor: %w", err)
	}

	if err := l.json.Unmarshal(data, &d); err != nil {
		return d, fmt.Errorf("failed to parse deployment descriptor: %w", err)
	}

	if !d.Valid() {
		return domain.Deployment{}, fmt.Errorf("deployment descriptor %s is missing required addresses", path)
	}

	return d, nil
}
