package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"golang.org/x/text/language"
)

// names is one category's tables. It is never modified after it is stored.
type names struct {
	primary   map[int]string
	secondary map[int]string
	combined  map[int]string
}

// Catalog resolves resource ids to display names. Reads are lock-free: each
// category's tables are replaced as a whole by Refresh.
type Catalog struct {
	source Source
	logger *log.Logger

	refreshMu sync.Mutex
	tables    map[Category]*atomic.Pointer[names]
}

// New creates an empty catalog. Until the first successful Refresh every
// lookup returns a placeholder.
func New(source Source, logger *log.Logger) *Catalog {
	if logger == nil {
		logger = log.Default()
	}
	c := &Catalog{
		source: source,
		logger: logger,
		tables: make(map[Category]*atomic.Pointer[names], len(Categories)),
	}
	for _, cat := range Categories {
		p := new(atomic.Pointer[names])
		p.Store(&names{
			primary:   map[int]string{},
			secondary: map[int]string{},
			combined:  map[int]string{},
		})
		c.tables[cat] = p
	}
	return c
}

// Refresh fetches every (category, locale) pair. A failed pair keeps its
// previous table; the returned error joins all failures.
func (c *Catalog) Refresh(ctx context.Context) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	var errs []error
	for _, cat := range Categories {
		current := c.tables[cat].Load()
		next := &names{primary: current.primary, secondary: current.secondary}

		if table, err := c.fetch(ctx, cat, PrimaryLocale); err != nil {
			errs = append(errs, err)
		} else {
			next.primary = table
		}
		if table, err := c.fetch(ctx, cat, SecondaryLocale); err != nil {
			errs = append(errs, err)
		} else {
			next.secondary = table
		}

		next.combined = combine(next.primary, next.secondary)
		c.tables[cat].Store(next)
		c.logger.Debug("catalog category refreshed", "category", cat, "names", len(next.combined))
	}
	return errors.Join(errs...)
}

func (c *Catalog) fetch(ctx context.Context, cat Category, locale language.Tag) (map[int]string, error) {
	table, err := c.source.Fetch(ctx, cat, locale)
	if err != nil {
		c.logger.Warn("catalog fetch failed", "category", cat, "locale", locale, "err", err)
		return nil, fmt.Errorf("%s/%s: %w", cat, locale, err)
	}
	return table, nil
}

func combine(primary, secondary map[int]string) map[int]string {
	out := make(map[int]string, len(primary))
	for id, name := range primary {
		if other, ok := secondary[id]; ok {
			out[id] = fmt.Sprintf("%s(%s)", name, other)
		} else {
			out[id] = name
		}
	}
	return out
}

// Resolve returns the combined name for id, or "{Label} {id}".
func (c *Catalog) Resolve(cat Category, id int) string {
	p, ok := c.tables[cat]
	if !ok {
		return placeholder(cat.Label(), id)
	}
	if name, ok := p.Load().combined[id]; ok {
		return name
	}
	return placeholder(cat.Label(), id)
}

// Resource resolves a drop's raw resource type string. Unknown types are
// logged and get a placeholder built from the raw string.
func (c *Catalog) Resource(resourceType string, id int) string {
	cat, ok := ParseCategory(resourceType)
	if !ok {
		c.logger.Warn("unrecognized resource type", "type", resourceType, "id", id)
		return placeholder(resourceType, id)
	}
	return c.Resolve(cat, id)
}

func (c *Catalog) Place(id int) string   { return PlaceName(id) }
func (c *Catalog) Fixture(id int) string { return FixtureName(id) }

// All returns a copy of the combined table for cat.
func (c *Catalog) All(cat Category) map[int]string {
	p, ok := c.tables[cat]
	if !ok {
		return nil
	}
	combined := p.Load().combined
	out := make(map[int]string, len(combined))
	for id, name := range combined {
		out[id] = name
	}
	return out
}

// Missing returns, per category, the ids in seen that have no combined name.
// Categories with nothing missing are omitted.
func (c *Catalog) Missing(seen map[Category][]int) map[Category][]int {
	out := make(map[Category][]int)
	for cat, ids := range seen {
		p, ok := c.tables[cat]
		if !ok {
			continue
		}
		combined := p.Load().combined
		for _, id := range ids {
			if _, ok := combined[id]; !ok {
				out[cat] = append(out[cat], id)
			}
		}
		sort.Ints(out[cat])
	}
	return out
}
