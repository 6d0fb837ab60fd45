// Package archive serves the static catalog of downloadable legacy
// releases. The catalog is read-only data; it takes no part in the
// protection state machine.
package archive

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/eliteGoblin/ccguard/internal/domain"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Catalog implements domain.ArchiveCatalog over the embedded entry list.
type Catalog struct {
	entries []domain.ArchiveEntry
}

// Load parses and validates the embedded catalog.
func Load() (*Catalog, error) {
	return parse(catalogYAML)
}

func parse(data []byte) (*Catalog, error) {
	var doc struct {
		Entries []domain.ArchiveEntry `yaml:"entries"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse archive catalog: %w", err)
	}

	for i, e := range doc.Entries {
		if e.Version == "" || e.DownloadURL == "" {
			return nil, fmt.Errorf("catalog entry %d missing version or download_url", i)
		}
		if !e.Risk.Valid() {
			return nil, fmt.Errorf("catalog entry %d has unknown risk level %q", i, e.Risk)
		}
	}

	return &Catalog{entries: doc.Entries}, nil
}

// Entries returns all catalog entries in catalog order.
func (c *Catalog) Entries() []domain.ArchiveEntry {
	out := make([]domain.ArchiveEntry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Ensure Catalog implements domain.ArchiveCatalog.
var _ domain.ArchiveCatalog = (*Catalog)(nil)
