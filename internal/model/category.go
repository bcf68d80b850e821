package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Palette lists the colors a category may be labeled with.
var Palette = []string{"teal", "lavender", "blue", "green", "rose", "amber", "slate", "purple"}

// ValidColor reports whether c is part of the palette.
func ValidColor(c string) bool {
	for _, p := range Palette {
		if p == c {
			return true
		}
	}
	return false
}

// Category groups tasks by area (work, academics, personal, well-being, ...).
type Category struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID      string    `gorm:"type:varchar(36);not null;index;uniqueIndex:idx_user_category_name" json:"userId"`
	Name        string    `gorm:"not null;uniqueIndex:idx_user_category_name" json:"name"`
	Description *string   `json:"description"`
	Color       string    `gorm:"not null" json:"color"`
	IsDefault   bool      `gorm:"not null;default:false" json:"isDefault"`
	SortOrder   int       `gorm:"not null;default:0" json:"sortOrder"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Tasks       []Task    `gorm:"foreignKey:CategoryID;constraint:OnDelete:CASCADE" json:"-"`
}

func (c *Category) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
