package schema

import "gorm.io/gorm"

type CardSet struct {
	gorm.Model
	WordCards []WordCard `gorm:"many2many:card_set_word_cards;"`
	Games     []Game
}

func (c *CardSet) CardIDs() []uint {
	ids := make([]uint, 0, len(c.WordCards))
	for _, w := range c.WordCards {
		ids = append(ids, w.ID)
	}
	return ids
}

func (c *CardSet) Contains(cardID uint) bool {
	for _, w := range c.WordCards {
		if w.ID == cardID {
			return true
		}
	}
	return false
}
