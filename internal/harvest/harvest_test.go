package harvest

import (
	"io"
	"reflect"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/gravitas-games/sekaiscout/internal/catalog"
	"github.com/gravitas-games/sekaiscout/internal/gamemap"
)

func newTestExtractor() *Extractor {
	return NewExtractor(catalog.New(nil, log.New(io.Discard)))
}

func drop(resourceType string, id, x, z, qty int) map[string]any {
	return map[string]any{
		"resourceType": resourceType,
		"resourceId":   id,
		"positionX":    x,
		"positionZ":    z,
		"quantity":     qty,
		"mysekaiSiteHarvestResourceDropStatus": "before_drop",
	}
}

func limited(d map[string]any, group int) map[string]any {
	d["mysekaiSiteHarvestSpawnLimitedRelationGroupId"] = group
	return d
}

func fixture(id, x, z int) map[string]any {
	return map[string]any{"mysekaiSiteHarvestFixtureId": id, "positionX": x, "positionZ": z}
}

func site(id int, drops []any, fixtures []any) map[string]any {
	return map[string]any{
		"mysekaiSiteId":                       id,
		"userMysekaiSiteHarvestResourceDrops": drops,
		"userMysekaiSiteHarvestFixtures":      fixtures,
	}
}

func snapshot(sites ...any) gamemap.Snapshot {
	return gamemap.Snapshot{
		gamemap.KeyUpdatedResources: map[string]any{
			gamemap.KeyHarvestMaps: sites,
		},
	}
}

func TestExtractAggregatesSameIdentity(t *testing.T) {
	snap := snapshot(site(5, []any{
		drop("mysekai_material", 1, -1, 18, 1),
		drop("mysekai_material", 1, -1, 18, 2),
	}, nil))

	places := newTestExtractor().Extract(snap, catalog.MysekaiMaterial, 1)
	if len(places) != 1 {
		t.Fatalf("expected 1 place, got %d", len(places))
	}
	p := places[0]
	if p.Quantity != 3 {
		t.Fatalf("expected quantity 3, got %d", p.Quantity)
	}
	if p.PositionX != -1 || p.PositionZ != 18 {
		t.Fatalf("expected position (-1,18), got (%d,%d)", p.PositionX, p.PositionZ)
	}
	if len(p.RawData) != 2 {
		t.Fatalf("expected 2 raw records, got %d", len(p.RawData))
	}
	if p.PlaceName != "さいしょの原っぱ" {
		t.Fatalf("unexpected place name %q", p.PlaceName)
	}
	if p.ResourceName != "MysekaiMaterial 1" {
		t.Fatalf("unexpected resource name %q", p.ResourceName)
	}
	if p.FixtureName != FixtureNotFound {
		t.Fatalf("expected fixture %q, got %q", FixtureNotFound, p.FixtureName)
	}
}

func TestExtractCoLocatedItems(t *testing.T) {
	snap := snapshot(site(6, []any{
		drop("mysekai_material", 12, 3, 3, 1),
		drop("mysekai_material", 7, 3, 3, 5),
		drop("mysekai_material", 7, 4, 3, 9),
	}, []any{
		fixture(2001, 1, 1),
		fixture(2002, 3, 3),
		fixture(2003, 3, 3),
	}))

	places := newTestExtractor().Extract(snap, catalog.MysekaiMaterial, 12)
	if len(places) != 1 {
		t.Fatalf("expected 1 place, got %d", len(places))
	}
	p := places[0]
	if len(p.FixtureAllItems) != 1 {
		t.Fatalf("expected 1 co-located item, got %+v", p.FixtureAllItems)
	}
	other := p.FixtureAllItems[0]
	if other.ResourceID != 7 || other.Quantity != 5 {
		t.Fatalf("unexpected co-located item %+v", other)
	}
	if p.FixtureName != "銅礦" {
		t.Fatalf("expected first matching fixture name, got %q", p.FixtureName)
	}
}

func TestExtractCoLocatedItemsSummedPerResource(t *testing.T) {
	snap := snapshot(site(7, []any{
		drop("mysekai_material", 12, 0, 0, 1),
		drop("mysekai_material", 7, 0, 0, 2),
		drop("material", 7, 0, 0, 4),
		drop("mysekai_material", 7, 0, 0, 3),
	}, nil))

	p := newTestExtractor().Extract(snap, catalog.MysekaiMaterial, 12)[0]
	if len(p.FixtureAllItems) != 2 {
		t.Fatalf("expected 2 co-located items, got %+v", p.FixtureAllItems)
	}
	if got := p.FixtureAllItems[0]; got.ResourceType != "mysekai_material" || got.Quantity != 5 {
		t.Fatalf("unexpected first item %+v", got)
	}
	if got := p.FixtureAllItems[1]; got.ResourceType != "material" || got.Quantity != 4 || got.Name != "Material 7" {
		t.Fatalf("unexpected second item %+v", got)
	}
}

func TestExtractSpawnLimitGroupIsPartOfIdentity(t *testing.T) {
	snap := snapshot(site(5, []any{
		drop("mysekai_material", 12, 2, 2, 1),
		limited(drop("mysekai_material", 12, 2, 2, 1), 0),
		limited(drop("mysekai_material", 12, 2, 2, 2), 0),
		limited(drop("mysekai_material", 12, 2, 2, 4), 3),
	}, nil))

	places := newTestExtractor().Extract(snap, catalog.MysekaiMaterial, 12)
	if len(places) != 3 {
		t.Fatalf("expected 3 places, got %d", len(places))
	}
	if places[0].SpawnLimitGroup != nil || places[0].Quantity != 1 {
		t.Fatalf("unexpected unlimited place %+v", places[0])
	}
	if places[1].SpawnLimitGroup == nil || *places[1].SpawnLimitGroup != 0 || places[1].Quantity != 3 {
		t.Fatalf("unexpected group 0 place %+v", places[1])
	}
	if *places[2].SpawnLimitGroup != 3 || places[2].Quantity != 4 {
		t.Fatalf("unexpected group 3 place %+v", places[2])
	}
}

func TestExtractFiltersByTypeAndSeparatesSites(t *testing.T) {
	snap := snapshot(
		site(5, []any{
			drop("mysekai_material", 12, 1, 1, 1),
			drop("material", 12, 1, 1, 1),
		}, nil),
		site(6, []any{
			drop("mysekai_material", 12, 1, 1, 2),
		}, nil),
	)

	places := newTestExtractor().Extract(snap, catalog.MysekaiMaterial, 12)
	if len(places) != 2 {
		t.Fatalf("expected 2 places, got %d", len(places))
	}
	if places[0].SiteID != 5 || places[1].SiteID != 6 {
		t.Fatalf("expected site order 5,6, got %d,%d", places[0].SiteID, places[1].SiteID)
	}
	if places[0].Quantity != 1 || places[1].Quantity != 2 {
		t.Fatalf("unexpected quantities %d,%d", places[0].Quantity, places[1].Quantity)
	}
	if len(places[0].FixtureAllItems) != 1 || places[0].FixtureAllItems[0].ResourceType != "material" {
		t.Fatalf("expected the material drop as co-located item, got %+v", places[0].FixtureAllItems)
	}
}

func TestExtractWithoutHarvestMap(t *testing.T) {
	e := newTestExtractor()
	for _, snap := range []gamemap.Snapshot{
		{},
		{gamemap.KeyUpdatedResources: map[string]any{"userItems": []any{}}},
	} {
		places := e.Extract(snap, catalog.MysekaiMaterial, 12)
		if places == nil || len(places) != 0 {
			t.Fatalf("expected empty non-nil result, got %v", places)
		}
	}
}

func TestExtractIsIdempotent(t *testing.T) {
	snap := snapshot(site(5, []any{
		drop("mysekai_material", 12, 1, 1, 1),
		drop("mysekai_material", 7, 1, 1, 2),
		limited(drop("mysekai_material", 12, 1, 1, 3), 9),
		drop("mysekai_material", 12, 2, 1, 1),
		drop("mysekai_material", 12, 1, 1, 4),
	}, []any{fixture(1001, 1, 1)}))

	e := newTestExtractor()
	first := e.Extract(snap, catalog.MysekaiMaterial, 12)
	second := e.Extract(snap, catalog.MysekaiMaterial, 12)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("extract is not idempotent:\n%+v\n%+v", first, second)
	}
	if len(first) != 3 || first[0].Quantity != 5 {
		t.Fatalf("unexpected result %+v", first)
	}
}

func TestFindMatches(t *testing.T) {
	if m, ok := FindMatches(gamemap.Snapshot{}, 12); ok || m != nil {
		t.Fatalf("expected nil/false for irrelevant snapshot, got %v %v", m, ok)
	}

	m, ok := FindMatches(snapshot(site(5, []any{drop("mysekai_material", 1, 0, 0, 1)}, nil)), 12)
	if !ok || m == nil || len(m) != 0 {
		t.Fatalf("expected empty non-nil matches, got %v %v", m, ok)
	}

	m, ok = FindMatches(snapshot(
		site(5, []any{drop("mysekai_material", 12, 0, 0, 1), drop("material", 12, 1, 0, 1)}, nil),
		site(8, []any{drop("mysekai_material", 12, 4, 4, 2)}, nil),
	), 12)
	if !ok || len(m) != 3 {
		t.Fatalf("expected 3 matches, got %v", m)
	}
	if m[2].SiteID != 8 || m[2].Drop.Quantity != 2 {
		t.Fatalf("unexpected last match %+v", m[2])
	}
	nested := gamemap.Snapshot{gamemap.KeyUpdatedResources: map[string]any{"userItems": []any{}}}
	if m, ok := FindMatches(nested, 12); ok || m != nil {
		t.Fatalf("expected nil/false for nested snapshot without harvest maps, got %v %v", m, ok)
	}

	noQuantity := drop("mysekai_material", 12, 2, 2, 1)
	delete(noQuantity, "quantity")
	m, ok = FindMatches(snapshot(site(5, []any{drop("mysekai_material", 1, 0, 0, 1), noQuantity}, nil)), 12)
	if !ok || len(m) != 1 || !m[0].Drop.Partial || m[0].Drop.PositionX != 2 {
		t.Fatalf("expected the drop without quantity to match, got %+v", m)
	}
}

func TestExtractSkipsPartialDrops(t *testing.T) {
	noQuantity := drop("mysekai_material", 12, 1, 1, 1)
	delete(noQuantity, "quantity")
	noPosition := drop("mysekai_material", 7, 1, 1, 1)
	delete(noPosition, "positionX")
	snap := snapshot(site(5, []any{
		drop("mysekai_material", 12, 1, 1, 2),
		noQuantity,
		noPosition,
	}, nil))

	places := newTestExtractor().Extract(snap, catalog.MysekaiMaterial, 12)
	if len(places) != 1 || places[0].Quantity != 2 || len(places[0].RawData) != 1 {
		t.Fatalf("expected one place of quantity 2, got %+v", places)
	}
	if len(places[0].FixtureAllItems) != 0 {
		t.Fatalf("partial drops must not be co-located items, got %+v", places[0].FixtureAllItems)
	}
}

func TestSummary(t *testing.T) {
	if s, ok := Summary(gamemap.Snapshot{"foo": 1}); ok || s != nil {
		t.Fatalf("expected nil/false, got %v %v", s, ok)
	}
	s, ok := Summary(snapshot(
		site(5, []any{drop("mysekai_material", 1, 0, 0, 1), drop("mysekai_material", 2, 0, 0, 1)}, nil),
		site(6, nil, nil),
	))
	if !ok || len(s) != 2 {
		t.Fatalf("unexpected summary %v %v", s, ok)
	}
	if s[0].SiteID != 5 || s[0].DropCount != 2 || s[1].DropCount != 0 {
		t.Fatalf("unexpected summary %+v", s)
	}
	nested := gamemap.Snapshot{gamemap.KeyUpdatedResources: map[string]any{"userItems": []any{}}}
	if s, ok := Summary(nested); ok || s != nil {
		t.Fatalf("expected nil/false for nested snapshot without harvest maps, got %v %v", s, ok)
	}

	noQuantity := drop("mysekai_material", 12, 0, 0, 1)
	delete(noQuantity, "quantity")
	s, ok = Summary(snapshot(site(5, []any{drop("mysekai_material", 1, 0, 0, 1), noQuantity, "garbage"}, nil)))
	if !ok || len(s) != 1 || s[0].DropCount != 3 {
		t.Fatalf("expected every received entry counted, got %+v", s)
	}
}

func TestDistinctIDs(t *testing.T) {
	got := DistinctIDs(snapshot(site(5, []any{
		drop("mysekai_material", 12, 0, 0, 1),
		drop("mysekai_material", 1, 0, 0, 1),
		drop("mysekai_material", 12, 1, 0, 1),
		drop("mysekai_item", 3, 0, 0, 1),
		drop("unknown_kind", 99, 0, 0, 1),
	}, nil)))

	want := map[catalog.Category][]int{
		catalog.MysekaiMaterial: {1, 12},
		catalog.MysekaiItem:     {3},
		catalog.Material:        {},
		catalog.MysekaiFixture:  {},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("DistinctIDs = %v, want %v", got, want)
	}
}

func TestExtractAccountID(t *testing.T) {
	id, ok := ExtractAccountID("https://x.colorfulpalette.org/api/user/987654321/mysekai?isForceAllReloadOnlyMysekai=True")
	if !ok || id != "987654321" {
		t.Fatalf("expected 987654321, got %q %v", id, ok)
	}

	for _, url := range []string{
		"https://x.colorfulpalette.org/api/user/abc/mysekai",
		"https://x.colorfulpalette.org/api/suite/user/123",
		"http://x.colorfulpalette.org/api/user/123/mysekai",
		"https://example.com/api/user/123/mysekai",
		"",
		"%%%not a url",
	} {
		if id, ok := ExtractAccountID(url); ok {
			t.Fatalf("expected no account id for %q, got %q", url, id)
		}
	}
}
