package compose

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-formcards/internal/testsupport"
	"github.com/goliatone/go-formcards/pkg/enums"
	"github.com/goliatone/go-formcards/pkg/render"
	"github.com/goliatone/go-formcards/pkg/schema"
	"github.com/goliatone/go-formcards/pkg/visibility/rules"
)

func twoSectionCard() schema.CardSchema {
	return schema.CardSchema{
		CardID: "profile",
		Title:  "Profile",
		Sections: []schema.CardSection{
			{
				SectionID: "a",
				Fields: []schema.FieldDefinition{
					{FieldKey: "kind", Type: schema.FieldTypeText},
					{FieldKey: "company", Type: schema.FieldTypeText, VisibleWhenField: "kind", VisibleWhenValue: "business"},
					{FieldKey: "email", Type: schema.FieldTypeEmail},
				},
			},
			{
				SectionID:        "b",
				Collapsible:      true,
				DefaultCollapsed: true,
				Fields: []schema.FieldDefinition{
					{FieldKey: "revenue", Type: schema.FieldTypeCurrency},
					{FieldKey: "active", Type: schema.FieldTypeBoolean},
				},
			},
		},
	}
}

func fieldKeys(section SectionNode) []string {
	keys := make([]string, 0, len(section.Fields))
	for _, node := range section.Fields {
		keys = append(keys, node.Key)
	}
	return keys
}

func TestComposeCardAppliesVisibilityBeforeDispatch(t *testing.T) {
	c := New(nil)
	root := map[string]any{"kind": "person", "email": "a@b.c", "revenue": 10.0, "active": true}

	card := c.ComposeCard(context.Background(), twoSectionCard(), root, render.ModeReadOnly, nil)

	require.Len(t, card.Sections, 2)
	assert.Equal(t, 4, card.FieldCount())
	assert.Equal(t, []string{"kind", "email"}, fieldKeys(card.Sections[0]))
	assert.Equal(t, []string{"revenue", "active"}, fieldKeys(card.Sections[1]))

	root["kind"] = "business"
	card = c.ComposeCard(context.Background(), twoSectionCard(), root, render.ModeReadOnly, nil)
	assert.Equal(t, 5, card.FieldCount())
	assert.Equal(t, []string{"kind", "company", "email"}, fieldKeys(card.Sections[0]))
}

func TestComposeCardKeepsEmptyCards(t *testing.T) {
	card := schema.CardSchema{
		CardID: "hidden",
		Sections: []schema.CardSection{{
			SectionID: "only",
			Fields: []schema.FieldDefinition{
				{FieldKey: "x", Type: schema.FieldTypeText, VisibleWhenField: "flag", VisibleWhenValue: "true"},
			},
		}},
	}

	out := New(nil).ComposeCard(context.Background(), card, map[string]any{}, render.ModeReadOnly, nil)

	assert.Equal(t, "hidden", out.CardID)
	assert.True(t, out.Empty())
	require.Len(t, out.Sections, 1)
	assert.NotNil(t, out.Sections[0].Fields)
}

func TestSectionOpenStateDefaultsAndOverrides(t *testing.T) {
	c := New(nil)
	card := twoSectionCard()

	out := c.ComposeCard(context.Background(), card, nil, render.ModeReadOnly, nil)
	assert.True(t, out.Open)
	assert.True(t, out.Sections[0].Open, "non-collapsible sections are always open")
	assert.False(t, out.Sections[1].Open)

	out = c.Compose(context.Background(), Request{
		Card:     card,
		Mode:     render.ModeReadOnly,
		Collapse: CollapseMap{"profile/b": true, "profile/a": false, "profile": false},
	})
	assert.False(t, out.Open)
	assert.True(t, out.Sections[0].Open)
	assert.True(t, out.Sections[1].Open)
}

func TestComposeResolvesGroupAndArrayValues(t *testing.T) {
	catalog := testsupport.ContactsCatalog(t)
	details, ok := catalog.FindCard("details")
	require.True(t, ok)

	root := testsupport.ContactValues()
	out := New(nil).ComposeCard(context.Background(), details, root, render.ModeReadOnly, nil)
	tree := out.Node()

	city, ok := tree.Find("address.city")
	require.True(t, ok)
	assert.Equal(t, "London", city.Text)

	phones, ok := tree.Find("phones")
	require.True(t, ok)
	assert.Equal(t, 2, phones.Count(render.KindItem))
	assert.Equal(t, 0, phones.Count(render.KindEmpty))

	number, ok := tree.Find("phones.1.number")
	require.True(t, ok)
	assert.Equal(t, "+44 20 5678", number.Text)

	root["phones"] = []any{}
	out = New(nil).ComposeCard(context.Background(), details, root, render.ModeReadOnly, nil)
	phones, ok = out.Node().Find("phones")
	require.True(t, ok)
	assert.Equal(t, 0, phones.Count(render.KindItem))
	assert.Equal(t, 1, phones.Count(render.KindEmpty))
}

func TestComposeEditProposesFromRoot(t *testing.T) {
	catalog := testsupport.ContactsCatalog(t)
	details, _ := catalog.FindCard("details")

	var gotKey string
	var gotValue any
	out := New(nil).ComposeCard(context.Background(), details, testsupport.ContactValues(), render.ModeEdit, func(key string, value any) {
		gotKey, gotValue = key, value
	})

	city, ok := out.Node().Find("address.city")
	require.True(t, ok)
	require.NotNil(t, city.Change)
	city.Change("Paris")

	assert.Equal(t, "address", gotKey)
	assert.Equal(t, map[string]any{"street": "1 Analytical Way", "city": "Paris"}, gotValue)
}

func TestComposeRuleVisibility(t *testing.T) {
	d := render.New(render.WithEvaluator(rules.New()))
	card := schema.CardSchema{
		CardID: "rules",
		Sections: []schema.CardSection{{
			SectionID: "main",
			Fields: []schema.FieldDefinition{
				{FieldKey: "employees", Type: schema.FieldTypeNumber},
				{FieldKey: "enterprise", Type: schema.FieldTypeChip, VisibleWhen: "employees > 100"},
				{FieldKey: "broken", Type: schema.FieldTypeChip, VisibleWhen: "employees +"},
			},
		}},
	}

	small := New(d).ComposeCard(context.Background(), card, map[string]any{"employees": 5}, render.ModeReadOnly, nil)
	large := New(d).ComposeCard(context.Background(), card, map[string]any{"employees": 500}, render.ModeReadOnly, nil)

	assert.Equal(t, 1, small.FieldCount())
	assert.Equal(t, 2, large.FieldCount())
}

func TestComposeCatalogOrdersCards(t *testing.T) {
	cards := New(nil).ComposeCatalog(context.Background(), testsupport.ContactsCatalog(t), testsupport.ContactValues(), render.ModeReadOnly, nil)

	require.Len(t, cards, 2)
	assert.Equal(t, "commercial", cards[0].CardID)
	assert.Equal(t, "details", cards[1].CardID)
}

type countingFetcher struct {
	mu    sync.Mutex
	calls map[string]int
}

func (f *countingFetcher) FetchOptions(_ context.Context, source string) ([]schema.EnumOption, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[source]++
	return []schema.EnumOption{{Value: "active", Label: "Active"}}, nil
}

func TestPrefetchPrimesVisibleEnumSources(t *testing.T) {
	card := schema.CardSchema{
		CardID: "enums",
		Sections: []schema.CardSection{{
			SectionID: "main",
			Fields: []schema.FieldDefinition{
				{FieldKey: "status", Type: schema.FieldTypeEnum, EnumSource: "/enums/status"},
				{FieldKey: "again", Type: schema.FieldTypeEnum, EnumSource: "/enums/status"},
				{FieldKey: "static", Type: schema.FieldTypeEnum, EnumSource: "/enums/static", Options: []schema.EnumOption{{Value: "x", Label: "X"}}},
				{FieldKey: "hidden", Type: schema.FieldTypeEnum, EnumSource: "/enums/hidden", VisibleWhenField: "flag", VisibleWhenValue: "true"},
				{FieldKey: "lines", Type: schema.FieldTypeArray, ItemSchema: &schema.FieldDefinition{
					FieldKey: "line", Type: schema.FieldTypeGroup, Fields: []schema.FieldDefinition{
						{FieldKey: "unit", Type: schema.FieldTypeEnum, EnumSource: "/enums/units"},
					},
				}},
			},
		}},
	}

	fetcher := &countingFetcher{}
	provider := enums.NewProvider(fetcher)
	c := New(nil, WithEnumPrimer(provider))

	sources := c.Prefetch(context.Background(), card, map[string]any{"status": "active"})
	assert.Equal(t, []string{"/enums/status", "/enums/units"}, sources)

	require.NoError(t, c.Settle(context.Background(), sources))
	state := provider.Peek("/enums/status")
	assert.Equal(t, enums.StatusReady, state.Status)

	fetcher.mu.Lock()
	defer fetcher.mu.Unlock()
	assert.Equal(t, map[string]int{"/enums/status": 1, "/enums/units": 1}, fetcher.calls)
}

func TestPrefetchWalksTypedSliceItems(t *testing.T) {
	card := schema.CardSchema{
		CardID: "typed",
		Sections: []schema.CardSection{{
			SectionID: "main",
			Fields: []schema.FieldDefinition{
				{FieldKey: "lines", Type: schema.FieldTypeArray, ItemSchema: &schema.FieldDefinition{
					FieldKey: "line", Type: schema.FieldTypeGroup, Fields: []schema.FieldDefinition{
						{FieldKey: "unit", Type: schema.FieldTypeEnum, EnumSource: "/enums/units", VisibleWhenField: "kind", VisibleWhenValue: "metered"},
					},
				}},
			},
		}},
	}

	c := New(nil, WithEnumPrimer(enums.NewProvider(&countingFetcher{})))
	root := map[string]any{"lines": []map[string]any{{"kind": "flat"}, {"kind": "metered"}}}

	sources := c.Prefetch(context.Background(), card, root)
	assert.Equal(t, []string{"/enums/units"}, sources)

	sources = c.Prefetch(context.Background(), card, map[string]any{"lines": []map[string]any{{"kind": "flat"}}})
	assert.Empty(t, sources)
}
