package models

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// KnowledgeBase is a remote, named index built from a fixed set of resource
// ids. Its identity is coupled to its exact membership at creation time: the
// remote service has no operation to add or remove a single member, so any
// membership change means creating a brand-new knowledge base with the full
// next membership set.
type KnowledgeBase struct {
	KnowledgeBaseID     string         `json:"knowledge_base_id"`
	ConnectionID        string         `json:"connection_id"`
	ConnectionSourceIDs []string       `json:"connection_source_ids"`
	IndexingParams      IndexingParams `json:"indexing_params"`
	OrgLevelRole        string         `json:"org_level_role,omitempty"`
	CronJobID           string         `json:"cron_job_id,omitempty"`
}

// EmbeddingParams configures the embedding model used during indexing.
type EmbeddingParams struct {
	EmbeddingModel string `json:"embedding_model" yaml:"embedding_model"`
	APIKey         string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
}

// ChunkerParams configures document chunking during indexing.
type ChunkerParams struct {
	ChunkSize    int    `json:"chunk_size" yaml:"chunk_size"`
	ChunkOverlap int    `json:"chunk_overlap" yaml:"chunk_overlap"`
	Chunker      string `json:"chunker" yaml:"chunker"`
}

// IndexingParams is the fixed indexing configuration every knowledge base
// is created with.
type IndexingParams struct {
	OCR             bool            `json:"ocr" yaml:"ocr"`
	Unstructured    bool            `json:"unstructured" yaml:"unstructured"`
	EmbeddingParams EmbeddingParams `json:"embedding_params" yaml:"embedding"`
	ChunkerParams   ChunkerParams   `json:"chunker_params" yaml:"chunker"`
}

// DefaultIndexingParams returns the compiled-in indexing configuration.
func DefaultIndexingParams() IndexingParams {
	return IndexingParams{
		OCR:          false,
		Unstructured: true,
		EmbeddingParams: EmbeddingParams{
			EmbeddingModel: "text-embedding-ada-002",
		},
		ChunkerParams: ChunkerParams{
			ChunkSize:    1500,
			ChunkOverlap: 500,
			Chunker:      "sentence",
		},
	}
}

// Validate checks the indexing configuration for internal consistency.
func (p IndexingParams) Validate() error {
	if err := validation.ValidateStruct(&p.EmbeddingParams,
		validation.Field(&p.EmbeddingParams.EmbeddingModel, validation.Required),
	); err != nil {
		return err
	}
	return validation.ValidateStruct(&p.ChunkerParams,
		validation.Field(&p.ChunkerParams.Chunker, validation.Required),
		validation.Field(&p.ChunkerParams.ChunkSize, validation.Required, validation.Min(1)),
		validation.Field(&p.ChunkerParams.ChunkOverlap, validation.Min(0), validation.Max(p.ChunkerParams.ChunkSize-1)),
	)
}
