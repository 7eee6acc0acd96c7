package models

import "time"

// Category is a node in the catalog tree. The parent reference is RESTRICT on
// delete: a category with subcategories cannot be removed.
type Category struct {
	ID          uint       `gorm:"column:id;primaryKey"`
	Name        string     `gorm:"column:name;not null"`
	Description *string    `gorm:"column:description"`
	ImageURL    *string    `gorm:"column:image_url"`
	ParentID    *uint      `gorm:"column:parent_id;index:categories_parent_id_idx"`
	Parent      *Category  `gorm:"foreignKey:ParentID;constraint:OnDelete:RESTRICT"`
	Children    []Category `gorm:"foreignKey:ParentID"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
