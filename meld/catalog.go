package meld

import (
	"github.com/domino14/rummikub/cache"
	"github.com/domino14/rummikub/rules"
)

// Catalog memoizes the meld list per ruleset. Rulesets are compared by
// value, so two equal rulesets share one list.
type Catalog struct {
	melds *cache.Cache[rules.Ruleset, []*Meld]
}

func NewCatalog() *Catalog {
	return &Catalog{melds: cache.New[rules.Ruleset, []*Meld]("melds")}
}

// Sets returns the melds of rs, generating them on first use. The returned
// slice is shared and must not be modified.
func (c *Catalog) Sets(rs *rules.Ruleset) []*Meld {
	melds, _ := c.melds.Get(*rs, func(key rules.Ruleset) ([]*Meld, error) {
		return Generate(&key), nil
	})
	return melds
}

// Invalidate forgets the melds of rs.
func (c *Catalog) Invalidate(rs *rules.Ruleset) {
	c.melds.Invalidate(*rs)
}

// Len is the number of rulesets with cached melds.
func (c *Catalog) Len() int {
	return c.melds.Len()
}
