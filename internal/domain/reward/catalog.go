// Package reward содержит каталог наград, которые можно купить за кредиты.
package reward

import (
	"sort"

	"github.com/synthia-live/synthia-bot/internal/domain/shared"
)

// Key - идентификатор награды в каталоге.
type Key string

const (
	// KeyRoleSpecial - роль "Special" на сервере.
	KeyRoleSpecial Key = "role_special"
	// KeyBadgeExclusif - эксклюзивный значок в профиле.
	KeyBadgeExclusif Key = "badge_exclusif"
)

// Kind - что именно выдаёт награда.
type Kind string

const (
	// KindRole - выдача роли Discord.
	KindRole Kind = "role"
	// KindBadge - добавление значка в запись.
	KindBadge Kind = "badge"
)

// Reward - позиция каталога.
type Reward struct {
	Key  Key
	Cost shared.Credits
	Kind Kind
	// Grant - имя роли для KindRole или текст значка для KindBadge.
	Grant       string
	Description string
}

// Catalog - неизменяемый набор наград.
type Catalog struct {
	items map[Key]Reward
}

// NewCatalog создаёт каталог из списка наград.
func NewCatalog(items ...Reward) *Catalog {
	c := &Catalog{items: make(map[Key]Reward, len(items))}
	for _, it := range items {
		c.items[it.Key] = it
	}
	return c
}

// DefaultCatalog возвращает стандартный каталог сервера.
func DefaultCatalog() *Catalog {
	return NewCatalog(
		Reward{
			Key:         KeyRoleSpecial,
			Cost:        100,
			Kind:        KindRole,
			Grant:       "Special",
			Description: "Rôle Special",
		},
		Reward{
			Key:         KeyBadgeExclusif,
			Cost:        150,
			Kind:        KindBadge,
			Grant:       "Badge Exclusif",
			Description: "Badge Exclusif",
		},
	)
}

// Lookup возвращает награду по ключу или shared.ErrUnknownReward.
func (c *Catalog) Lookup(key string) (Reward, error) {
	r, ok := c.items[Key(key)]
	if !ok {
		return Reward{}, shared.ErrUnknownReward
	}
	return r, nil
}

// All возвращает награды, отсортированные по стоимости.
func (c *Catalog) All() []Reward {
	out := make([]Reward, 0, len(c.items))
	for _, r := range c.items {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Cost == out[j].Cost {
			return out[i].Key < out[j].Key
		}
		return out[i].Cost < out[j].Cost
	})
	return out
}
