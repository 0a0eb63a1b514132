package pdf

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Metadata identifies the will a document is rendered for. GeneratedAt is
// supplied by the caller and stamped as both creation and modification date,
// so identical input and metadata render byte-identical documents.
type Metadata struct {
	WillID      string
	Version     int
	ClientName  string
	TenantName  string
	GeneratedAt time.Time
}

// Signature is one attestation line on a signed will.
type Signature struct {
	Name     string    `json:"name"`
	Role     string    `json:"role"`
	SignedAt time.Time `json:"signed_at"`
}

type Renderer interface {
	RenderDraft(markdown string, meta Metadata) ([]byte, error)
	RenderSigned(markdown string, meta Metadata, signatures []Signature) ([]byte, error)
}

// Checksum returns the lowercase hex SHA-256 of b.
func Checksum(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
