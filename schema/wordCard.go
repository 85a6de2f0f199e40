package schema

import "gorm.io/gorm"

type WordCard struct {
	gorm.Model
	Word     string `gorm:"notnull;uniqueIndex"`
	Category string
}
