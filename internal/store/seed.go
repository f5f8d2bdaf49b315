package store

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"stopdesk/internal/domain"
)

// SeedDocument is one entry of a YAML seed file.
type SeedDocument struct {
	ID  string         `yaml:"id"`
	Doc domain.RawStop `yaml:"doc"`
}

type seedFile struct {
	Stops []SeedDocument `yaml:"stops"`
}

// Loader is implemented by stores that accept seeded documents.
type Loader interface {
	Upsert(ctx context.Context, key string, doc *domain.RawStop) error
}

// ParseSeed decodes a YAML seed document list.
func ParseSeed(data []byte) ([]SeedDocument, error) {
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decoding seed: %w", err)
	}
	for i, d := range f.Stops {
		if d.ID == "" {
			return nil, fmt.Errorf("seed entry %d: missing id", i)
		}
	}
	return f.Stops, nil
}

// LoadSeedFile reads path and upserts every document into dst.
func LoadSeedFile(ctx context.Context, path string, dst Loader) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading seed file: %w", err)
	}
	docs, err := ParseSeed(data)
	if err != nil {
		return 0, err
	}
	for _, d := range docs {
		doc := d.Doc
		if err := dst.Upsert(ctx, d.ID, &doc); err != nil {
			return 0, fmt.Errorf("seeding %s: %w", d.ID, err)
		}
	}
	return len(docs), nil
}

func (s *MemoryStore) Upsert(ctx context.Context, key string, doc *domain.RawStop) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.Put(key, doc)
	return nil
}
