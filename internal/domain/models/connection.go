package models

// Connection is a configured link to an external drive-like provider.
// It scopes which resources are listable.
type Connection struct {
	ConnectionID string `json:"connection_id"`
	Name         string `json:"name"`
	Provider     string `json:"connection_provider"`
	CreatedAt    string `json:"created_at,omitempty"`
	UpdatedAt    string `json:"updated_at,omitempty"`
}
