package content

import "time"

type Source string

const (
	SourceUnknown Source = "unknown"
	SourceSeed    Source = "seed"
	SourceDisk    Source = "disk"
	SourceS3      Source = "s3"
)

// Meta describes where a snapshot came from.
type Meta struct {
	Version    string    `json:"version,omitempty"`
	Hash       string    `json:"sha256,omitempty"`
	Source     Source    `json:"source,omitempty"`
	VerifiedAt time.Time `json:"verified_at,omitempty"`

	// KeyID is set when the bundle signature was checked.
	KeyID string `json:"key_id,omitempty"`
}

// Signed reports whether a bundle signature was verified.
func (m Meta) Signed() bool { return m.KeyID != "" }
