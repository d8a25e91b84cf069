package gamemap

import (
	"math"

	"github.com/gravitas-games/sekaiscout/pkg/models"
)

// decodeSite reads one harvest site. A site without an id is unusable and is
// skipped; missing drop or fixture lists are treated as empty. Drop entries
// without a resource id are skipped.
func decodeSite(fields map[string]any) (models.Site, bool) {
	siteID, ok := asInt(fields[keySiteID])
	if !ok {
		return models.Site{}, false
	}
	drops := asList(fields[keyDrops])
	site := models.Site{SiteID: siteID, DropEntries: len(drops)}

	for _, entry := range drops {
		raw, ok := asMap(entry)
		if !ok {
			continue
		}
		if drop, ok := decodeDrop(raw); ok {
			site.Drops = append(site.Drops, drop)
		}
	}
	for _, entry := range asList(fields[keyFixtures]) {
		raw, ok := asMap(entry)
		if !ok {
			continue
		}
		if fixture, ok := decodeFixture(raw); ok {
			site.Fixtures = append(site.Fixtures, fixture)
		}
	}
	return site, true
}

// decodeDrop needs a resource id; a record missing any other field is
// kept as Partial.
func decodeDrop(raw map[string]any) (models.Drop, bool) {
	id, ok := asInt(raw[keyResourceID])
	if !ok {
		return models.Drop{}, false
	}
	d := models.Drop{ResourceID: id, Raw: raw}

	var complete bool
	d.ResourceType, complete = raw[keyResourceType].(string)
	if d.PositionX, ok = asInt(raw[keyPositionX]); !ok {
		complete = false
	}
	if d.PositionZ, ok = asInt(raw[keyPositionZ]); !ok {
		complete = false
	}
	if d.Quantity, ok = asInt(raw[keyQuantity]); !ok {
		complete = false
	}
	d.Partial = !complete

	d.Status, _ = raw[keyDropStatus].(string)
	if group, ok := asInt(raw[keySpawnLimit]); ok {
		d.SpawnLimitGroup = &group
	}
	return d, true
}

func decodeFixture(raw map[string]any) (models.Fixture, bool) {
	var f models.Fixture
	var ok bool
	if f.FixtureID, ok = asInt(raw[keyFixtureID]); !ok {
		return models.Fixture{}, false
	}
	if f.PositionX, ok = asInt(raw[keyPositionX]); !ok {
		return models.Fixture{}, false
	}
	if f.PositionZ, ok = asInt(raw[keyPositionZ]); !ok {
		return models.Fixture{}, false
	}
	return f, true
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Snapshot:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			key, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[key] = val
		}
		return out, true
	default:
		return nil, false
	}
}

func asList(v any) []any {
	list, _ := v.([]any)
	return list
}

// asInt accepts every integer width msgpack and JSON decoders produce, plus
// floats that hold a whole number.
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint:
		return int(n), true
	case uint8:
		return int(n), true
	case uint16:
		return int(n), true
	case uint32:
		return int(n), true
	case uint64:
		if n > math.MaxInt {
			return 0, false
		}
		return int(n), true
	case float32:
		return floatToInt(float64(n))
	case float64:
		return floatToInt(n)
	default:
		return 0, false
	}
}

func floatToInt(f float64) (int, bool) {
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int(f), true
}
