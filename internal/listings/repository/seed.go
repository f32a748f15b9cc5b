package repository

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"wanderlust/pkg/model"
	"wanderlust/pkg/sanitizer"
)

// LoadSeed decodes a JSON array of listings and normalizes their text fields.
func LoadSeed(r io.Reader) ([]*model.Listing, error) {
	var listings []*model.Listing
	if err := json.NewDecoder(r).Decode(&listings); err != nil {
		return nil, fmt.Errorf("failed to decode listings seed: %w", err)
	}
	for i, l := range listings {
		l.Title = sanitizer.TrimAndNormalize(l.Title)
		l.Location = sanitizer.TrimAndNormalize(l.Location)
		l.Country = sanitizer.TrimAndNormalize(l.Country)
		if l.Image != nil {
			l.Image.URL = sanitizer.NormalizeImageURL(l.Image.URL)
		}
		if l.Title == "" {
			return nil, fmt.Errorf("listing %d: title is required", i)
		}
		if l.Price < 0 {
			return nil, fmt.Errorf("listing %d: price cannot be negative", i)
		}
	}
	return listings, nil
}

func LoadSeedFile(path string) ([]*model.Listing, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open listings seed: %w", err)
	}
	defer f.Close()
	return LoadSeed(f)
}
