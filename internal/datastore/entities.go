package datastore

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Species is a catalog entry. Rows are created once per case-folded common
// name and never updated by the identification pipeline.
type Species struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	CommonName     string     `gorm:"size:200;not null" json:"common_name"`
	CommonNameKey  string     `gorm:"size:200;not null;uniqueIndex:idx_species_common_name_key" json:"-"`
	ScientificName string     `gorm:"size:200;not null;index" json:"scientific_name"`
	Description    *string    `gorm:"type:text" json:"description"`
	Sources        SourceList `gorm:"type:text" json:"sources"`
	Habitat        *string    `gorm:"type:text" json:"habitat,omitempty"`
	Diet           *string    `gorm:"type:text" json:"diet,omitempty"`
	Behavior       *string    `gorm:"type:text" json:"behavior,omitempty"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the table name for GORM.
func (Species) TableName() string {
	return "species"
}

// Sighting records one observation of a species.
type Sighting struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	SpeciesID uint      `gorm:"not null;index" json:"species_id"`
	Username  *string   `gorm:"size:100" json:"username"`
	Lat       float64   `gorm:"not null;index:idx_sightings_position" json:"lat"`
	Lon       float64   `gorm:"not null;index:idx_sightings_position" json:"lon"`
	TakenAt   time.Time `gorm:"not null;index" json:"taken_at"`
	IsPrivate bool      `gorm:"not null;default:false" json:"is_private"`
	MediaURL  *string   `gorm:"size:1024" json:"media_url"`
	AudioURL  *string   `gorm:"size:1024" json:"audio_url"`
	Caption   *string   `gorm:"type:text" json:"caption"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	Species *Species `gorm:"foreignKey:SpeciesID;constraint:OnDelete:RESTRICT" json:"species,omitempty"`
}

// TableName returns the table name for GORM.
func (Sighting) TableName() string {
	return "sightings"
}

// SourceList is an ordered list of citation URLs stored as a JSON array.
// A nil list is stored as NULL.
type SourceList []string

// Value implements driver.Valuer.
func (s SourceList) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	data, err := json.Marshal([]string(s))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner.
func (s *SourceList) Scan(value any) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*s = nil
		return nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("cannot scan %T into SourceList", value)
	}
	if len(data) == 0 {
		*s = nil
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("invalid sources column: %w", err)
	}
	*s = list
	return nil
}
