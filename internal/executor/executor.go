// Package executor turns agent plans into concrete decks. It is the only
// component that mutates decks, and it enforces every construction
// invariant: copy/legendary/singleton caps, land distribution, and exact
// target size on exit.
package executor

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/swstevens/agentic-cag-system/internal/format"
	"github.com/swstevens/agentic-cag-system/internal/logging"
	"github.com/swstevens/agentic-cag-system/internal/types"
)

// ErrSizeMismatch is the terminal executor failure: the deck could not be
// brought to the exact target size even after filler and trim.
var ErrSizeMismatch = errors.New("executor could not reach target deck size")

// fillerCMCMax bounds the creatures considered by filler selection.
const fillerCMCMax = 3.0

// fillerSearchLimit is how many filler candidates are requested.
const fillerSearchLimit = 30

// Repository is the retrieval surface the executor needs.
type Repository interface {
	GetByName(name string) (*types.Card, error)
	Search(filters types.SearchFilters) ([]*types.Card, error)
}

// Executor applies construction and edit plans deterministically.
type Executor struct {
	repo Repository
}

// New creates an executor.
func New(repo Repository) *Executor {
	return &Executor{repo: repo}
}

// Build materializes a construction plan into a deck. A nil plan triggers
// the deterministic fallback: basic lands distributed across the chosen
// colors up to the full target size.
func (e *Executor) Build(plan *types.ConstructionPlan, req *types.BuildRequest) (*types.Deck, []string, error) {
	timer := logging.StartTimer(logging.CategoryExecutor, "Build")
	defer timer.StopWithInfo()

	rules, err := format.Lookup(req.Format)
	if err != nil {
		return nil, nil, err
	}
	targetSize := rules.DeckSize
	if req.DeckSize > 0 {
		targetSize = req.DeckSize
	}

	deck := &types.Deck{
		Format:    req.Format,
		Archetype: req.Archetype,
		Colors:    append([]string(nil), req.Colors...),
	}
	var notes []string

	if plan == nil {
		// Agent failure fallback: a minimal all-basic-lands deck.
		logging.Executor("nil construction plan, building basic-land fallback deck")
		notes = append(notes, "agent failure: built deterministic basic-land fallback")
		distributeBasicLands(deck, req.Colors, targetSize)
		deck.CalculateTotals()
		if deck.TotalCards != targetSize {
			return nil, notes, fmt.Errorf("%w: got %d, want %d", ErrSizeMismatch, deck.TotalCards, targetSize)
		}
		return deck, notes, nil
	}

	landCount, err := format.LandCount(req.Format, req.Archetype)
	if err != nil {
		return nil, nil, err
	}
	if landCount > targetSize {
		landCount = targetSize
	}
	spellSlots := targetSize - landCount

	logging.Executor("build: target=%d lands=%d spell_slots=%d selections=%d",
		targetSize, landCount, spellSlots, len(plan.CardSelections))

	// Step 1: executor-owned basic lands.
	distributeBasicLands(deck, req.Colors, landCount)

	// Step 2: the agent's spell selections, in plan order.
	added := 0
	for _, sel := range plan.CardSelections {
		if added >= spellSlots {
			break
		}
		if strings.TrimSpace(sel.CardName) == "" {
			continue
		}
		card, err := e.repo.GetByName(sel.CardName)
		if err != nil {
			return nil, notes, err
		}
		if card == nil {
			notes = append(notes, fmt.Sprintf("card not found: %q (skipped)", sel.CardName))
			logging.ExecutorDebug("selection %q not in repository, skipping", sel.CardName)
			continue
		}
		if card.IsLand() {
			// Lands are executor-owned; agent-selected lands are dropped.
			notes = append(notes, fmt.Sprintf("skipped land selection %q", card.Name))
			continue
		}
		qty := sel.Quantity
		if qty < 1 {
			qty = 1
		}
		if remaining := spellSlots - added; qty > remaining {
			qty = remaining
		}
		addCard(deck, card, qty)
		added += qty
	}

	// Step 3: fill remaining spell slots.
	if added < spellSlots {
		needed := spellSlots - added
		logging.Executor("filler: %d/%d spell slots filled, topping up %d", added, spellSlots, needed)
		e.addFiller(deck, needed, req, rules)
	}

	// Step 4: clamp quantities, then converge on the exact target.
	validateQuantities(deck, rules)
	deck.CalculateTotals()
	e.correctSize(deck, targetSize, req, rules)

	deck.CalculateTotals()
	if deck.TotalCards != targetSize {
		logging.Get(logging.CategoryExecutor).Error("build size mismatch: got %d, want %d", deck.TotalCards, targetSize)
		return nil, notes, fmt.Errorf("%w: got %d, want %d", ErrSizeMismatch, deck.TotalCards, targetSize)
	}
	return deck, notes, nil
}

// Refine applies an edit plan to a copy of the deck, then runs size
// correction and quantity validation. The input deck is never mutated.
func (e *Executor) Refine(deck *types.Deck, plan *types.EditPlan, req *types.BuildRequest) (*types.Deck, []string, error) {
	timer := logging.StartTimer(logging.CategoryExecutor, "Refine")
	defer timer.StopWithInfo()

	rules, err := format.Lookup(req.Format)
	if err != nil {
		return nil, nil, err
	}
	targetSize := rules.DeckSize
	if req.DeckSize > 0 {
		targetSize = req.DeckSize
	}

	out := deck.Clone()
	var notes []string

	if plan != nil {
		for _, action := range plan.Actions {
			qty := action.Quantity
			if qty < 1 {
				qty = 1
			}
			switch action.Type {
			case types.EditRemove:
				removed := removeCard(out, action.CardName, qty)
				if removed > 0 {
					notes = append(notes, fmt.Sprintf("removed %dx %s", removed, action.CardName))
				} else {
					notes = append(notes, fmt.Sprintf("remove target not in deck: %q", action.CardName))
				}
			case types.EditAdd:
				card, err := e.repo.GetByName(action.CardName)
				if err != nil {
					return nil, notes, err
				}
				if card == nil {
					notes = append(notes, fmt.Sprintf("card not found: %q (skipped)", action.CardName))
					continue
				}
				addCard(out, card, qty)
				notes = append(notes, fmt.Sprintf("added %dx %s", qty, card.Name))
			default:
				notes = append(notes, fmt.Sprintf("unknown action type %q (skipped)", action.Type))
			}
		}
	}

	out.CalculateTotals()
	e.correctSize(out, targetSize, req, rules)

	out.CalculateTotals()
	if out.TotalCards != targetSize {
		logging.Get(logging.CategoryExecutor).Error("refine size mismatch: got %d, want %d", out.TotalCards, targetSize)
		return nil, notes, fmt.Errorf("%w: got %d, want %d", ErrSizeMismatch, out.TotalCards, targetSize)
	}
	return out, notes, nil
}

// correctSize converges the deck onto the target: filler when short, trim
// when long, re-validating quantities after each mutation. Basic lands are
// the last-resort filler because they are exempt from every cap.
func (e *Executor) correctSize(deck *types.Deck, targetSize int, req *types.BuildRequest, rules format.Rules) {
	deck.CalculateTotals()
	delta := targetSize - deck.TotalCards
	if delta > 0 {
		logging.Executor("size correction: %d cards short", delta)
		e.addFiller(deck, delta, req, rules)
	} else if delta < 0 {
		logging.Executor("size correction: %d cards over", -delta)
		trimExcess(deck, -delta)
	}

	validateQuantities(deck, rules)
	deck.CalculateTotals()

	// Validation clamps can reopen a shortfall; basic lands close it
	// without violating any cap.
	if shortfall := targetSize - deck.TotalCards; shortfall > 0 {
		addBasicLandFiller(deck, req.Colors, shortfall)
	} else if shortfall < 0 {
		trimExcess(deck, -shortfall)
	}
}

// addFiller tops the deck up with low-CMC creatures in the deck's colors,
// respecting copy limits, falling back to basic lands when the catalog
// runs dry.
func (e *Executor) addFiller(deck *types.Deck, needed int, req *types.BuildRequest, rules format.Rules) {
	if needed <= 0 {
		return
	}

	cmcMax := fillerCMCMax
	filters := types.SearchFilters{
		Colors:      req.Colors,
		Types:       []string{"Creature"},
		CMCMax:      &cmcMax,
		FormatLegal: req.Format,
		Limit:       fillerSearchLimit,
	}
	candidates, err := e.repo.Search(filters)
	if err != nil {
		logging.ExecutorDebug("filler search failed: %v", err)
		candidates = nil
	}

	for _, card := range candidates {
		if needed <= 0 {
			break
		}
		if card.IsLand() {
			continue
		}
		limit := copyCapFor(card, rules)
		existing := findStack(deck, card.Name)
		if existing != nil {
			qty := min(limit-existing.Quantity, needed)
			if qty > 0 {
				existing.Quantity += qty
				needed -= qty
				logging.ExecutorDebug("filler: increased %s by %d", card.Name, qty)
			}
			continue
		}
		qty := min(limit, needed)
		if qty > 0 {
			addCard(deck, card, qty)
			needed -= qty
			logging.ExecutorDebug("filler: added %dx %s", qty, card.Name)
		}
	}

	if needed > 0 {
		logging.Executor("filler exhausted, adding %d basic lands", needed)
		addBasicLandFiller(deck, req.Colors, needed)
	}
}

// addBasicLandFiller adds the shortfall as basic lands: increment an
// existing land stack if one exists, otherwise start one in the first
// color.
func addBasicLandFiller(deck *types.Deck, colors []string, needed int) {
	if needed <= 0 {
		return
	}
	for i := range deck.Cards {
		if deck.Cards[i].Card.IsBasicLand() {
			deck.Cards[i].Quantity += needed
			return
		}
	}
	color := ""
	if len(colors) > 0 {
		color = colors[0]
	}
	deck.Cards = append(deck.Cards, types.DeckCard{Card: types.BasicLandCard(color), Quantity: needed})
}

// trimExcess removes cards from non-land stacks, smallest stacks first,
// never touching lands. Zero-quantity stacks are dropped.
func trimExcess(deck *types.Deck, excess int) {
	if excess <= 0 {
		return
	}

	// Order candidate stack indexes by ascending quantity, stable.
	idx := make([]int, 0, len(deck.Cards))
	for i := range deck.Cards {
		if !deck.Cards[i].Card.IsLand() {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return deck.Cards[idx[a]].Quantity < deck.Cards[idx[b]].Quantity
	})

	for _, i := range idx {
		if excess <= 0 {
			break
		}
		take := min(deck.Cards[i].Quantity, excess)
		deck.Cards[i].Quantity -= take
		excess -= take
		logging.ExecutorDebug("trim: removed %dx %s", take, deck.Cards[i].Card.Name)
	}
	dropEmptyStacks(deck)
}

// validateQuantities clamps every stack against the format's caps.
// Singleton formats force non-basic-lands to 1; otherwise legendaries are
// clamped to the legendary max and everything else to the copy limit.
// Basic lands are always exempt. Idempotent.
func validateQuantities(deck *types.Deck, rules format.Rules) {
	for i := range deck.Cards {
		dc := &deck.Cards[i]
		if dc.Card.IsBasicLand() {
			continue
		}
		limit := copyCapFor(dc.Card, rules)
		if dc.Quantity > limit {
			logging.Executor("quantity clamp: %s had %d copies, capping at %d", dc.Card.Name, dc.Quantity, limit)
			dc.Quantity = limit
		}
	}
}

// copyCapFor returns the maximum allowed copies of a non-basic-land card.
func copyCapFor(card *types.Card, rules format.Rules) int {
	if rules.Singleton {
		return 1
	}
	if card.IsLegendary() {
		return rules.LegendaryMax
	}
	return rules.CopyLimit
}

// distributeBasicLands spreads count basic lands across the colors:
// floor-divide, with the first remainder colors getting one extra.
// No colors means a single Wastes stack.
func distributeBasicLands(deck *types.Deck, colors []string, count int) {
	if count <= 0 {
		return
	}
	if len(colors) == 0 {
		deck.Cards = append(deck.Cards, types.DeckCard{Card: types.BasicLandCard(""), Quantity: count})
		return
	}
	per := count / len(colors)
	rem := count % len(colors)
	for i, color := range colors {
		qty := per
		if i < rem {
			qty++
		}
		if qty == 0 {
			continue
		}
		deck.Cards = append(deck.Cards, types.DeckCard{Card: types.BasicLandCard(color), Quantity: qty})
	}
}

// addCard increments an existing stack (case-insensitive match) or appends
// a new one.
func addCard(deck *types.Deck, card *types.Card, qty int) {
	if stack := findStack(deck, card.Name); stack != nil {
		stack.Quantity += qty
		return
	}
	deck.Cards = append(deck.Cards, types.DeckCard{Card: card, Quantity: qty})
}

// removeCard decrements stacks matching the name, splitting across stacks
// when one is insufficient, and reports how many copies were removed.
func removeCard(deck *types.Deck, name string, qty int) int {
	removed := 0
	for i := range deck.Cards {
		if removed >= qty {
			break
		}
		if !strings.EqualFold(deck.Cards[i].Card.Name, name) {
			continue
		}
		take := min(deck.Cards[i].Quantity, qty-removed)
		deck.Cards[i].Quantity -= take
		removed += take
	}
	if removed > 0 {
		dropEmptyStacks(deck)
	}
	return removed
}

func findStack(deck *types.Deck, name string) *types.DeckCard {
	for i := range deck.Cards {
		if strings.EqualFold(deck.Cards[i].Card.Name, name) {
			return &deck.Cards[i]
		}
	}
	return nil
}

func dropEmptyStacks(deck *types.Deck) {
	kept := deck.Cards[:0]
	for _, dc := range deck.Cards {
		if dc.Quantity > 0 {
			kept = append(kept, dc)
		}
	}
	deck.Cards = kept
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
