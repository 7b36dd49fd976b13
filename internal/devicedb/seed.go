package devicedb

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"io"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/maxlab/magnetpanel/internal/tango"
)

//go:embed seed/demo.yaml
var demoSeed string

type SeedFile struct {
	Devices []SeedDevice `yaml:"devices"`
}

type SeedDevice struct {
	Name       string              `yaml:"name"`
	Class      string              `yaml:"class"`
	Properties map[string][]string `yaml:"properties,omitempty"`
}

// Import loads a YAML seed file in one transaction and returns the number
// of devices written. Devices already present are updated.
func (d *DB) Import(ctx context.Context, r io.Reader) (int, error) {
	var seed SeedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&seed); err != nil && err != io.EOF {
		return 0, fmt.Errorf("decode seed: %w", err)
	}
	for i, dev := range seed.Devices {
		if err := tango.ModelID(dev.Name).Validate(); err != nil {
			return 0, fmt.Errorf("device %d: %w", i, err)
		}
		if strings.TrimSpace(dev.Class) == "" {
			return 0, fmt.Errorf("device %s: class is required", dev.Name)
		}
	}

	err := d.WithTx(ctx, func(tx *sql.Tx) error {
		for _, dev := range seed.Devices {
			if _, err := tx.ExecContext(ctx, `
			INSERT INTO devices(name, class) VALUES (?, ?)
			ON CONFLICT(name) DO UPDATE SET class=excluded.class;
			`, dev.Name, dev.Class); err != nil {
				return err
			}
		}
		// properties may point at devices declared later in the file
		for _, dev := range seed.Devices {
			names := make([]string, 0, len(dev.Properties))
			for name := range dev.Properties {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				if err := setProperty(ctx, tx, tango.ModelID(dev.Name), name, dev.Properties[name]); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(seed.Devices), nil
}

// SeedDemo loads the bundled demo facility when the database is empty.
func (d *DB) SeedDemo(ctx context.Context) (bool, error) {
	n, err := d.Count(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	if _, err := d.Import(ctx, strings.NewReader(demoSeed)); err != nil {
		return false, err
	}
	return true, nil
}
