package tui

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/goliatone/go-formcards/pkg/compose"
	"github.com/goliatone/go-formcards/pkg/render"
	"github.com/goliatone/go-formcards/pkg/schema"
)

type stubDriver struct {
	inputs       []string
	selectIdx    []int
	multiIdx     [][]int
	confirm      []bool
	textAreas    []string
	infoMessages []string
	prompts      []string
	questions    []Question

	inputPos   int
	selectPos  int
	multiPos   int
	confirmPos int
	textPos    int
}

func (s *stubDriver) Ask(_ context.Context, q Question) (Answer, error) {
	s.prompts = append(s.prompts, q.Message)
	s.questions = append(s.questions, q)
	switch q.Kind {
	case AskConfirm:
		if s.confirmPos >= len(s.confirm) {
			return Answer{}, errors.New("no confirm scripted")
		}
		s.confirmPos++
		return Answer{Yes: s.confirm[s.confirmPos-1]}, nil
	case AskChoice:
		if s.selectPos >= len(s.selectIdx) {
			return Answer{}, errors.New("no select scripted")
		}
		s.selectPos++
		return Answer{Picked: []int{s.selectIdx[s.selectPos-1]}}, nil
	case AskChoices:
		if s.multiPos >= len(s.multiIdx) {
			return Answer{}, errors.New("no multiselect scripted")
		}
		s.multiPos++
		return Answer{Picked: s.multiIdx[s.multiPos-1]}, nil
	case AskMultiline:
		if s.textPos >= len(s.textAreas) {
			return Answer{}, errors.New("no textarea scripted")
		}
		s.textPos++
		return Answer{Text: s.textAreas[s.textPos-1]}, nil
	}
	if s.inputPos >= len(s.inputs) {
		return Answer{}, errors.New("no input scripted")
	}
	val := s.inputs[s.inputPos]
	s.inputPos++
	if q.Validate != nil {
		if err := q.Validate(val); err != nil {
			return Answer{}, err
		}
	}
	return Answer{Text: val}, nil
}

func (s *stubDriver) Info(_ context.Context, msg string) error {
	s.infoMessages = append(s.infoMessages, msg)
	return nil
}

func sessionCard() schema.CardSchema {
	return schema.CardSchema{
		CardID: "profile",
		Title:  "Profile",
		Sections: []schema.CardSection{{
			SectionID: "main",
			Title:     "Main",
			Fields: []schema.FieldDefinition{
				{FieldKey: "name", Label: "Name", Type: schema.FieldTypeText, Required: true},
				{FieldKey: "vip", Label: "VIP", Type: schema.FieldTypeBoolean},
				{FieldKey: "vipNote", Label: "VIP Note", Type: schema.FieldTypeTextarea, VisibleWhenField: "vip", VisibleWhenValue: "true"},
				{FieldKey: "tier", Label: "Tier", Type: schema.FieldTypeEnum, Options: []schema.EnumOption{{Value: "gold", Label: "Gold"}, {Value: "silver", Label: "Silver"}}},
				{FieldKey: "tags", Label: "Tags", Type: schema.FieldTypeMultiselect, Options: []schema.EnumOption{{Value: "a", Label: "Alpha"}, {Value: "b", Label: "Beta"}}},
				{FieldKey: "address", Label: "Address", Type: schema.FieldTypeGroup, Fields: []schema.FieldDefinition{
					{FieldKey: "city", Label: "City", Type: schema.FieldTypeText},
				}},
				{FieldKey: "phones", Label: "Phones", Type: schema.FieldTypeArray, ItemSchema: &schema.FieldDefinition{FieldKey: "phone", Label: "Phone", Type: schema.FieldTypePhone}},
				{FieldKey: "revenue", Label: "Revenue", Type: schema.FieldTypeCurrency},
				{FieldKey: "since", Label: "Since", Type: schema.FieldTypeDate},
				{FieldKey: "kind", Label: "Kind", Type: schema.FieldTypeChip},
			},
		}},
	}
}

func TestEditAppliesAnswersThroughProposals(t *testing.T) {
	driver := &stubDriver{
		inputs:    []string{"Grace", "Paris", "+2", "+3", "1.234,50", "2024-05-06"},
		confirm:   []bool{true, true, false},
		textAreas: []string{"Top"},
		selectIdx: []int{1},
		multiIdx:  [][]int{{0, 1}},
	}
	root := map[string]any{"name": "Ada", "vip": false, "phones": []any{"+1"}, "kind": "lead"}

	session := New(nil, WithPromptDriver(driver))
	got, err := session.Edit(context.Background(), sessionCard(), root)
	if err != nil {
		t.Fatalf("edit: %v", err)
	}

	want := map[string]any{
		"name":    "Grace",
		"vip":     true,
		"vipNote": "Top",
		"tier":    "silver",
		"tags":    []any{"a", "b"},
		"address": map[string]any{"city": "Paris"},
		"phones":  []any{"+2", "+3"},
		"revenue": 1234.5,
		"since":   "2024-05-06",
		"kind":    "lead",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected values (-want +got):\n%s", diff)
	}

	if root["name"] != "Ada" || root["vip"] != false {
		t.Fatalf("expected caller map untouched, got %#v", root)
	}

	wantPrompts := []string{
		"Name *", "VIP", "VIP Note", "Tier", "Tags", "City", "Phone",
		"Add another Phones?", "Phone", "Add another Phones?", "Revenue", "Since",
	}
	if diff := cmp.Diff(wantPrompts, driver.prompts); diff != "" {
		t.Fatalf("unexpected prompts (-want +got):\n%s", diff)
	}
}

func TestEditSeedsQuestionsFromCurrentValues(t *testing.T) {
	card := schema.CardSchema{
		CardID: "q",
		Sections: []schema.CardSection{{
			SectionID: "main",
			Fields: []schema.FieldDefinition{
				{FieldKey: "tier", Label: "Tier", Type: schema.FieldTypeEnum, Options: []schema.EnumOption{
					{Value: "gold", Label: "Gold"}, {Value: "gold-plus", Label: "Gold"}, {Value: "silver", Label: "Silver"},
				}},
				{FieldKey: "tags", Label: "Tags", Type: schema.FieldTypeMultiselect, Options: []schema.EnumOption{
					{Value: "a", Label: "Alpha"}, {Value: "b", Label: "Beta"}, {Value: "c"},
				}},
				{FieldKey: "vip", Label: "VIP", Type: schema.FieldTypeBoolean},
			},
		}},
	}
	driver := &stubDriver{selectIdx: []int{1}, multiIdx: [][]int{{2}}, confirm: []bool{true}}
	root := map[string]any{"tier": "silver", "tags": []any{"a", "c"}, "vip": false}

	got, err := New(nil, WithPromptDriver(driver)).Edit(context.Background(), card, root)
	if err != nil {
		t.Fatalf("edit: %v", err)
	}

	want := []Question{
		{Kind: AskChoice, Message: "Tier", Options: []string{"Gold", "Gold (gold-plus)", "Silver"}, Selected: []int{2}},
		{Kind: AskChoices, Message: "Tags", Options: []string{"Alpha", "Beta", "c"}, Selected: []int{0, 2}},
		{Kind: AskConfirm, Message: "VIP"},
	}
	if diff := cmp.Diff(want, driver.questions, cmpopts.IgnoreFields(Question{}, "Validate")); diff != "" {
		t.Fatalf("unexpected questions (-want +got):\n%s", diff)
	}
	if got["tier"] != "gold-plus" || got["vip"] != true {
		t.Fatalf("unexpected values %#v", got)
	}
	if diff := cmp.Diff([]any{"c"}, got["tags"]); diff != "" {
		t.Fatalf("unexpected tags (-want +got):\n%s", diff)
	}
}

func TestEditRejectsUnparseableNumbers(t *testing.T) {
	card := schema.CardSchema{
		CardID: "n",
		Sections: []schema.CardSection{{
			SectionID: "main",
			Fields:    []schema.FieldDefinition{{FieldKey: "amount", Label: "Amount", Type: schema.FieldTypeNumber}},
		}},
	}
	driver := &stubDriver{inputs: []string{"twelve"}}

	_, err := New(nil, WithPromptDriver(driver)).Edit(context.Background(), card, nil)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestEditStopsOnAbort(t *testing.T) {
	driver := &stubDriver{}
	root := map[string]any{"name": "Ada"}

	got, err := New(nil, WithPromptDriver(driver)).Edit(context.Background(), sessionCard(), root)
	if err == nil {
		t.Fatalf("expected driver error")
	}
	if got["name"] != "Ada" {
		t.Fatalf("expected values so far to be returned, got %#v", got)
	}
}

func TestShowPrintsReadOnlyLines(t *testing.T) {
	driver := &stubDriver{}
	session := New(compose.New(render.New()), WithPromptDriver(driver), WithTheme(Theme{InfoPrefix: "> "}))

	root := map[string]any{
		"name":    "Ada",
		"vip":     true,
		"tier":    "gold",
		"address": map[string]any{"city": "London"},
		"phones":  []any{},
	}
	if err := session.Show(context.Background(), sessionCard(), root); err != nil {
		t.Fatalf("show: %v", err)
	}

	want := []string{
		"> # Profile",
		"> ## Main",
		"> Name: Ada",
		"> VIP: Yes",
		"> VIP Note: —",
		"> Tier: Gold",
		"> Tags: —",
		"> Address:",
		">   City: London",
		"> Phones:",
		">   —",
		"> Revenue: —",
		"> Since: —",
		"> Kind: —",
	}
	if diff := cmp.Diff(want, driver.infoMessages); diff != "" {
		t.Fatalf("unexpected lines (-want +got):\n%s", diff)
	}
}
