package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// CategorySeed is the layout of the categories file:
//
//	categories:
//	  - Housing
//	  - Utilities
type CategorySeed struct {
	Categories []string `yaml:"categories"`
}

func LoadCategorySeed(path string) (CategorySeed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return CategorySeed{}, fmt.Errorf("read categories file: %w", err)
	}
	var seed CategorySeed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return CategorySeed{}, fmt.Errorf("parse categories file: %w", err)
	}
	return seed, nil
}

// SeedCategories inserts every category named in the file at path. Existing
// names are left as they are, so running it twice is harmless.
func (r *SQLiteRepository) SeedCategories(ctx context.Context, path string) (int, error) {
	seed, err := LoadCategorySeed(path)
	if err != nil {
		return 0, err
	}

	seen := make(map[string]bool)
	err = r.WithTx(ctx, func(q *Queries) error {
		for _, name := range seed.Categories {
			name = strings.TrimSpace(name)
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			if _, err := q.UpsertCategory(ctx, name); err != nil {
				return fmt.Errorf("seed category %q: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	slog.InfoContext(ctx, "Categories seeded", "file", path, "count", len(seen))
	return len(seen), nil
}
