package file

import (
	"fmt"
	"os"

	"github.com/aretw0/callflow/pkg/pathway"
)

// DefaultPathwayFile is the document name used inside a data directory.
const DefaultPathwayFile = "pathways.json"

// Loader implements ports.PathwaySource on a JSON or YAML file.
type Loader struct {
	path string
}

// OpenPathway returns a loader for path, writing the default pathway if absent.
func OpenPathway(path string) (*Loader, error) {
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to stat pathway: %w", err)
		}
		data, err := pathway.Encode(pathway.Default(), pathway.FormatFromPath(path))
		if err != nil {
			return nil, fmt.Errorf("failed to encode default pathway: %w", err)
		}
		if err := writeAtomic(path, data); err != nil {
			return nil, fmt.Errorf("failed to write default pathway: %w", err)
		}
	}
	return &Loader{path: path}, nil
}

// ReadPathway reads the document and reports its format from the file extension.
func (l *Loader) ReadPathway() ([]byte, string, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read pathway: %w", err)
	}
	return data, string(pathway.FormatFromPath(l.path)), nil
}
