// Package seed holds the demo catalogue written into an empty businesses collection.
package seed

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"strings"

	"queueaway/internal/models"

	"gopkg.in/yaml.v3"
)

//go:embed businesses.yaml
var defaultCatalogue []byte

type catalogue struct {
	Businesses []*models.Business `yaml:"businesses"`
}

// Businesses returns a fresh copy of the built-in catalogue.
func Businesses() ([]*models.Business, error) {
	return parse(defaultCatalogue)
}

// Load reads a catalogue file. An empty path falls back to the built-in one.
func Load(path string) ([]*models.Business, error) {
	if path == "" {
		return Businesses()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return parse(data)
}

func parse(data []byte) ([]*models.Business, error) {
	var c catalogue
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode seed catalogue: %w", err)
	}
	for i, b := range c.Businesses {
		if b.Name == "" {
			return nil, fmt.Errorf("seed business #%d has no name", i+1)
		}
		if !models.IsValidCategory(b.Category) {
			return nil, fmt.Errorf("seed business %q: unknown type %q", b.Name, b.Category)
		}
	}
	return c.Businesses, nil
}

// Store is the part of the business repository Sync writes through.
type Store interface {
	ListBusinesses(ctx context.Context) ([]*models.Business, error)
	CreateBusiness(ctx context.Context, business *models.Business) error
	UpdateBusiness(ctx context.Context, id string, update models.BusinessUpdate) error
}

// Sync upserts the catalogue by business name. Existing businesses keep their id and
// live queue count.
func Sync(ctx context.Context, store Store, catalogue []*models.Business) (created, updated int, err error) {
	existing, err := store.ListBusinesses(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("list businesses: %w", err)
	}
	byName := make(map[string]string, len(existing))
	for _, b := range existing {
		byName[strings.ToLower(b.Name)] = b.ID
	}

	for _, b := range catalogue {
		if id, ok := byName[strings.ToLower(b.Name)]; ok {
			if err := store.UpdateBusiness(ctx, id, updateFrom(b)); err != nil {
				return created, updated, fmt.Errorf("update %s: %w", b.Name, err)
			}
			updated++
			continue
		}
		b.ID = ""
		if err := store.CreateBusiness(ctx, b); err != nil {
			return created, updated, fmt.Errorf("create %s: %w", b.Name, err)
		}
		byName[strings.ToLower(b.Name)] = b.ID
		created++
	}
	return created, updated, nil
}

func updateFrom(b *models.Business) models.BusinessUpdate {
	return models.BusinessUpdate{
		Category:           &b.Category,
		Services:           b.Services,
		Address:            &b.Address,
		Phone:              &b.Phone,
		Email:              &b.Email,
		Latitude:           b.Latitude,
		Longitude:          b.Longitude,
		OpeningHours:       b.OpeningHours,
		AverageServiceTime: &b.AverageServiceTime,
		Rating:             &b.Rating,
		Image:              &b.Image,
	}
}
