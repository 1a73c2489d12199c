package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"driveindex/internal/domain/models"
)

// LoadIndexingParams loads the knowledge base indexing configuration from an
// optional YAML file. An empty path or a missing file yields the compiled-in
// defaults; a present but malformed file is an error.
func LoadIndexingParams(path string) (models.IndexingParams, error) {
	params := models.DefaultIndexingParams()
	if path == "" {
		return params, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return params, nil
		}
		return params, fmt.Errorf("read indexing params: %w", err)
	}

	if err := yaml.Unmarshal(data, &params); err != nil {
		return params, fmt.Errorf("parse indexing params: %w", err)
	}

	if err := params.Validate(); err != nil {
		return params, fmt.Errorf("invalid indexing params: %w", err)
	}

	return params, nil
}
