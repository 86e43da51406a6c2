package vector

import (
	"strings"
	"testing"

	"github.com/swstevens/agentic-cag-system/internal/types"
)

func bolt() *types.Card {
	return &types.Card{
		ID:            "bolt",
		Name:          "Lightning Bolt",
		ManaCost:      "{R}",
		CMC:           1,
		Colors:        []string{"R"},
		ColorIdentity: []string{"R"},
		TypeLine:      "Instant",
		Types:         []string{"Instant"},
		OracleText:    "Lightning Bolt deals 3 damage to any target.",
		Keywords:      []string{},
	}
}

func TestBuildDocumentDeterministic(t *testing.T) {
	card := bolt()
	a := BuildDocument(card)
	b := BuildDocument(card)
	if a != b {
		t.Error("document assembly is not deterministic")
	}
}

func TestBuildDocumentContent(t *testing.T) {
	doc := BuildDocument(bolt())

	for _, want := range []string{
		"Lightning Bolt - Instant",
		"Costs {R}",
		"red card",
		"deals 3 damage",
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("document missing %q:\n%s", want, doc)
		}
	}
}

func TestBuildDocumentCreatureStats(t *testing.T) {
	card := &types.Card{
		ID:       "tarmo",
		Name:     "Tarmogoyf",
		CMC:      2,
		Colors:   []string{"G"},
		TypeLine: "Creature — Lhurgoyf",
		Types:    []string{"Creature"},
		Subtypes: []string{"Lhurgoyf"},
		Power:    "2",
		Toughness: "3",
	}
	doc := BuildDocument(card)
	if !strings.Contains(doc, "2/3 creature") {
		t.Errorf("document missing power/toughness:\n%s", doc)
	}
	if !strings.Contains(doc, "2 mana") {
		t.Errorf("document missing mana fallback for empty cost:\n%s", doc)
	}
}

func TestStrategicTagsRemoval(t *testing.T) {
	tags := GenerateStrategicTags(bolt())
	if !hasTagContaining(tags, "Flexible removal") {
		t.Errorf("burn spell missing removal role tag: %v", tags)
	}
	if !hasTagContaining(tags, "Efficient interaction") {
		t.Errorf("one-mana instant missing interaction tag: %v", tags)
	}
}

func TestStrategicTagsGraveyardAndExile(t *testing.T) {
	reanimate := &types.Card{
		Name:       "Reanimate",
		CMC:        1,
		TypeLine:   "Sorcery",
		Types:      []string{"Sorcery"},
		OracleText: "Put target creature card from a graveyard onto the battlefield under your control.",
	}
	tags := GenerateStrategicTags(reanimate)
	if !hasTagContaining(tags, "Graveyard strategies") {
		t.Errorf("reanimation spell missing graveyard synergy tag: %v", tags)
	}

	path := &types.Card{
		Name:       "Path to Exile",
		CMC:        1,
		TypeLine:   "Instant",
		Types:      []string{"Instant"},
		OracleText: "Exile target creature. Its controller may search their library for a basic land card.",
	}
	tags = GenerateStrategicTags(path)
	if !hasTagContaining(tags, "Anti-synergy") {
		t.Errorf("exile removal missing anti-synergy warning: %v", tags)
	}
}

func TestStrategicTagsTribalAndAggro(t *testing.T) {
	goblin := &types.Card{
		Name:       "Goblin Guide",
		CMC:        1,
		TypeLine:   "Creature — Goblin Scout",
		Types:      []string{"Creature"},
		Subtypes:   []string{"Goblin", "Scout"},
		OracleText: "Haste",
		Power:      "2",
		Toughness:  "2",
		Keywords:   []string{"Haste"},
	}
	tags := GenerateStrategicTags(goblin)
	if !hasTagContaining(tags, "Goblin tribal") {
		t.Errorf("goblin missing tribal tag: %v", tags)
	}
	if !hasTagContaining(tags, "Aggressive one-drop") {
		t.Errorf("one-drop missing aggro tag: %v", tags)
	}
	if !hasTagContaining(tags, "immediate impact") {
		t.Errorf("haste creature missing haste role tag: %v", tags)
	}
}

func TestStrategicTagsBoardWipe(t *testing.T) {
	wrath := &types.Card{
		Name:       "Wrath of God",
		CMC:        4,
		TypeLine:   "Sorcery",
		Types:      []string{"Sorcery"},
		OracleText: "Destroy all creatures. They can't be regenerated.",
	}
	tags := GenerateStrategicTags(wrath)
	if !hasTagContaining(tags, "Board wipe") {
		t.Errorf("sweeper missing board wipe tag: %v", tags)
	}
	if !hasTagContaining(tags, "Punishes your own board") {
		t.Errorf("sweeper missing creature-deck warning: %v", tags)
	}
}

func TestStrategicTagsCounterspell(t *testing.T) {
	counter := &types.Card{
		Name:       "Counterspell",
		CMC:        2,
		TypeLine:   "Instant",
		Types:      []string{"Instant"},
		OracleText: "Counter target spell.",
	}
	tags := GenerateStrategicTags(counter)
	if !hasTagContaining(tags, "Counterspell") {
		t.Errorf("counterspell missing disruption tag: %v", tags)
	}
}

func hasTagContaining(tags []string, sub string) bool {
	for _, tag := range tags {
		if strings.Contains(tag, sub) {
			return true
		}
	}
	return false
}
