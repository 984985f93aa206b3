// internal/model/asset.go
package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type AssetType string

const (
	AssetImage    AssetType = "image"
	AssetVideo    AssetType = "video"
	AssetAudio    AssetType = "audio"
	AssetDocument AssetType = "document"
)

func (t AssetType) Valid() bool {
	switch t {
	case AssetImage, AssetVideo, AssetAudio, AssetDocument:
		return true
	}
	return false
}

// AssetTypeFromMIME infers the asset type from a MIME prefix.
func AssetTypeFromMIME(mimeType string) AssetType {
	m := strings.ToLower(mimeType)
	switch {
	case strings.HasPrefix(m, "image/"):
		return AssetImage
	case strings.HasPrefix(m, "video/"):
		return AssetVideo
	case strings.HasPrefix(m, "audio/"):
		return AssetAudio
	}
	return AssetDocument
}

type AssetMetadata struct {
	Filename   string    `json:"filename"`
	Size       int64     `json:"size"`
	MimeType   string    `json:"mimeType"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// Value stores metadata as JSONB.
func (m AssetMetadata) Value() (driver.Value, error) {
	return json.Marshal(m)
}

func (m *AssetMetadata) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*m = AssetMetadata{}
		return nil
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	}
	return fmt.Errorf("cannot scan %T into AssetMetadata", src)
}

type Asset struct {
	ID        string        `db:"id" json:"id"`
	TeamID    string        `db:"team_id" json:"team_id"`
	Type      AssetType     `db:"type" json:"type"`
	URL       string        `db:"url" json:"url"`
	Metadata  AssetMetadata `db:"metadata" json:"metadata"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
}

// DisplayName is the filename, falling back to the last URL segment.
func (a Asset) DisplayName() string {
	if a.Metadata.Filename != "" {
		return a.Metadata.Filename
	}
	if i := strings.LastIndex(a.URL, "/"); i >= 0 {
		return a.URL[i+1:]
	}
	return a.URL
}
