package mutate

import (
	"strconv"
	"sync"

	"catalog-cli/internal/clock"
	"catalog-cli/internal/model"
)

// IDGenerator issues timestamp-derived ids (prefix-<unix millis>).
// Within one generator the millisecond part is strictly increasing, so rapid
// calls in the same millisecond never collide. Ids already present in the
// target scope (for example created by another client) are skipped.
type IDGenerator struct {
	clock clock.Clock

	mu   sync.Mutex
	last int64
}

func NewIDGenerator(c clock.Clock) *IDGenerator {
	if c == nil {
		c = clock.Real()
	}
	return &IDGenerator{clock: c}
}

func (g *IDGenerator) next(prefix string, taken func(string) bool) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := g.clock.Now().UnixMilli()
	if ms <= g.last {
		ms = g.last + 1
	}
	id := prefix + "-" + strconv.FormatInt(ms, 10)
	for taken(id) {
		ms++
		id = prefix + "-" + strconv.FormatInt(ms, 10)
	}
	g.last = ms
	return id
}

// CategoryID returns category-<timestamp>, unique within c.
func (g *IDGenerator) CategoryID(c model.Catalog) string {
	return g.next("category", func(id string) bool {
		_, _, ok := c.Category(id)
		return ok
	})
}

// TemplateID returns <categoryId>-<timestamp>, unique within cat.
func (g *IDGenerator) TemplateID(cat model.Category) string {
	return g.next(cat.ID, func(id string) bool {
		_, _, ok := cat.Template(id)
		return ok
	})
}
