// Package store implements the persistent card catalog over SQLite.
// List and map card fields are stored as JSON text columns; CMC, rarity,
// legality, and text filters run in SQL, while exact color/type matching is
// applied in code after a coarse SQL prefilter. To compensate for the
// post-filter, the SQL stage over-fetches by a factor of two.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/swstevens/agentic-cag-system/internal/logging"
	"github.com/swstevens/agentic-cag-system/internal/types"
)

// overFetchFactor compensates for the in-code color/type post-filter.
// This is a design constant, not a performance knob.
const overFetchFactor = 2

const defaultSearchLimit = 100

// CardStore is the SQLite-backed card catalog. Reads vastly outnumber
// writes; writes happen only during offline ingestion and are serialized
// through the write lock.
type CardStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// Open initializes the card database at the given path, creating the
// directory and applying migrations as needed. Use ":memory:" for tests.
func Open(path string) (*CardStore, error) {
	timer := logging.StartTimer(logging.CategoryStore, "Open")
	defer timer.Stop()

	logging.Store("Opening card store at %s", path)

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.StoreDebug("Failed to set sqlite busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.StoreDebug("Failed to set sqlite journal_mode=WAL: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		logging.StoreDebug("Failed to set sqlite synchronous=NORMAL: %v", err)
	}

	s := &CardStore{db: db, dbPath: path}
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *CardStore) Close() error {
	return s.db.Close()
}

// GetByName returns the card with the given name, case-insensitively.
// Returns (nil, nil) when no card matches.
func (s *CardStore) GetByName(name string) (*types.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(selectColumns+" FROM cards WHERE LOWER(name) = LOWER(?)", name)
	card, err := scanCard(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get by name %q: %w", name, err)
	}
	return card, nil
}

// GetByID returns the card with the given id, or (nil, nil) when absent.
func (s *CardStore) GetByID(id string) (*types.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(selectColumns+" FROM cards WHERE id = ?", id)
	card, err := scanCard(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get by id %q: %w", id, err)
	}
	return card, nil
}

// Search returns cards matching the filter cross-product. CMC, rarity,
// legality, and text substring are filtered in SQL; colors get a coarse
// LIKE prefilter and, together with types, an exact in-code pass.
func (s *CardStore) Search(filters types.SearchFilters) ([]*types.Card, error) {
	timer := logging.StartTimer(logging.CategoryStore, "Search")
	defer timer.Stop()

	limit := filters.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	query := selectColumns + " FROM cards WHERE 1=1"
	args := make([]interface{}, 0, 8)

	if filters.CMCMin != nil {
		query += " AND cmc >= ?"
		args = append(args, *filters.CMCMin)
	}
	if filters.CMCMax != nil {
		query += " AND cmc <= ?"
		args = append(args, *filters.CMCMax)
	}
	if filters.Rarity != "" {
		query += " AND LOWER(rarity) = LOWER(?)"
		args = append(args, filters.Rarity)
	}
	if filters.FormatLegal != "" {
		// Legalities are stored as JSON: {"standard":"legal",...}
		query += " AND LOWER(legalities) LIKE ?"
		args = append(args, fmt.Sprintf(`%%"%s":"legal"%%`, strings.ToLower(filters.FormatLegal)))
	}
	if len(filters.Colors) > 0 {
		// Coarse prefilter; the exact match (any requested color) happens below.
		clauses := make([]string, 0, len(filters.Colors))
		for _, c := range filters.Colors {
			clauses = append(clauses, "colors LIKE ?")
			args = append(args, fmt.Sprintf(`%%"%s"%%`, c))
		}
		query += " AND (" + strings.Join(clauses, " OR ") + ")"
	}
	if filters.TextQuery != "" {
		query += " AND (LOWER(oracle_text) LIKE LOWER(?) OR LOWER(name) LIKE LOWER(?))"
		pattern := "%" + filters.TextQuery + "%"
		args = append(args, pattern, pattern)
	}

	query += " LIMIT ?"
	args = append(args, limit*overFetchFactor)

	s.mu.RLock()
	rows, err := s.db.Query(query, args...)
	s.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("search cards: %w", err)
	}
	defer rows.Close()

	seen := make(map[string]struct{})
	results := make([]*types.Card, 0, limit)
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			logging.StoreDebug("skipping unscannable row: %v", err)
			continue
		}
		if _, dup := seen[card.ID]; dup {
			continue
		}
		if !matchesColors(card, filters.Colors) || !matchesTypes(card, filters.Types) {
			continue
		}
		seen[card.ID] = struct{}{}
		results = append(results, card)
		if len(results) >= limit {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("search cards: %w", err)
	}

	logging.StoreDebug("search returned %d cards (limit %d)", len(results), limit)
	return results, nil
}

// InsertCard inserts or replaces a single card.
func (s *CardStore) InsertCard(card *types.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertCardExec(s.db, card)
}

// BulkInsert inserts cards in a single transaction and returns the count
// of rows written. Unmarshalable cards are skipped, not fatal.
func (s *CardStore) BulkInsert(cards []*types.Card) (int, error) {
	timer := logging.StartTimer(logging.CategoryStore, "BulkInsert")
	defer timer.StopWithInfo()

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	stmt, err := tx.Prepare(insertStatement)
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	defer stmt.Close()

	count := 0
	for _, card := range cards {
		args, err := insertArgs(card)
		if err != nil {
			logging.StoreDebug("skipping card %q: %v", card.Name, err)
			continue
		}
		if _, err := stmt.Exec(args...); err != nil {
			logging.StoreDebug("failed to insert card %q: %v", card.Name, err)
			continue
		}
		count++
	}
	if err := tx.Commit(); err != nil {
		return count, err
	}
	logging.Store("bulk insert wrote %d/%d cards", count, len(cards))
	return count, nil
}

// Count returns the number of cards in the catalog.
func (s *CardStore) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM cards").Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// AllCards streams every card in the catalog; used by the embedding sync.
func (s *CardStore) AllCards() ([]*types.Card, error) {
	s.mu.RLock()
	rows, err := s.db.Query(selectColumns + " FROM cards")
	s.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*types.Card
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			continue
		}
		out = append(out, card)
	}
	return out, rows.Err()
}

// matchesColors requires at least one requested color on the card when a
// color filter is present.
func matchesColors(card *types.Card, colors []string) bool {
	if len(colors) == 0 {
		return true
	}
	for _, want := range colors {
		for _, have := range card.Colors {
			if want == have {
				return true
			}
		}
	}
	return false
}

// matchesTypes requires at least one requested type when a type filter is
// present.
func matchesTypes(card *types.Card, cardTypes []string) bool {
	if len(cardTypes) == 0 {
		return true
	}
	for _, want := range cardTypes {
		for _, have := range card.Types {
			if want == have {
				return true
			}
		}
	}
	return false
}

const selectColumns = `SELECT id, name, mana_cost, cmc, colors, color_identity,
	type_line, types, subtypes, oracle_text, power, toughness, loyalty,
	set_code, rarity, legalities, keywords`

const insertStatement = `INSERT OR REPLACE INTO cards (
	id, name, mana_cost, cmc, colors, color_identity, type_line, types,
	subtypes, oracle_text, power, toughness, loyalty, set_code, rarity,
	legalities, keywords
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func insertArgs(card *types.Card) ([]interface{}, error) {
	colors, err := json.Marshal(orEmpty(card.Colors))
	if err != nil {
		return nil, err
	}
	identity, err := json.Marshal(orEmpty(card.ColorIdentity))
	if err != nil {
		return nil, err
	}
	cardTypes, err := json.Marshal(orEmpty(card.Types))
	if err != nil {
		return nil, err
	}
	subtypes, err := json.Marshal(orEmpty(card.Subtypes))
	if err != nil {
		return nil, err
	}
	legalities, err := json.Marshal(lowercaseKeys(card.Legalities))
	if err != nil {
		return nil, err
	}
	keywords, err := json.Marshal(orEmpty(card.Keywords))
	if err != nil {
		return nil, err
	}
	return []interface{}{
		card.ID, card.Name, card.ManaCost, card.CMC, string(colors),
		string(identity), card.TypeLine, string(cardTypes), string(subtypes),
		card.OracleText, card.Power, card.Toughness, card.Loyalty,
		card.SetCode, card.Rarity, string(legalities), string(keywords),
	}, nil
}

func insertCardExec(db *sql.DB, card *types.Card) error {
	args, err := insertArgs(card)
	if err != nil {
		return fmt.Errorf("marshal card %q: %w", card.Name, err)
	}
	if _, err := db.Exec(insertStatement, args...); err != nil {
		return fmt.Errorf("insert card %q: %w", card.Name, err)
	}
	return nil
}

// lowercaseKeys normalizes legality keys so LIKE-based SQL filters and
// Card.LegalIn agree on casing.
func lowercaseKeys(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[strings.ToLower(k)] = strings.ToLower(v)
	}
	return out
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanCard decodes a row into a Card, parsing the JSON columns. Missing
// list/map fields come back as empty values, never nil where a list is
// expected.
func scanCard(row rowScanner) (*types.Card, error) {
	var card types.Card
	var manaCost, colors, identity, typeLine, cardTypes, subtypes sql.NullString
	var oracleText, power, toughness, loyalty, setCode, rarity, legalities, keywords sql.NullString

	err := row.Scan(&card.ID, &card.Name, &manaCost, &card.CMC, &colors,
		&identity, &typeLine, &cardTypes, &subtypes, &oracleText, &power,
		&toughness, &loyalty, &setCode, &rarity, &legalities, &keywords)
	if err != nil {
		return nil, err
	}

	card.ManaCost = manaCost.String
	card.TypeLine = typeLine.String
	card.OracleText = oracleText.String
	card.Power = power.String
	card.Toughness = toughness.String
	card.Loyalty = loyalty.String
	card.SetCode = setCode.String
	card.Rarity = rarity.String

	card.Colors = parseJSONList(colors.String)
	card.ColorIdentity = parseJSONList(identity.String)
	card.Types = parseJSONList(cardTypes.String)
	card.Subtypes = parseJSONList(subtypes.String)
	card.Keywords = parseJSONList(keywords.String)
	card.Legalities = parseJSONMap(legalities.String)

	return &card, nil
}

func parseJSONList(raw string) []string {
	if raw == "" {
		return []string{}
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil || out == nil {
		return []string{}
	}
	return out
}

func parseJSONMap(raw string) map[string]string {
	if raw == "" {
		return map[string]string{}
	}
	var out map[string]string
	if err := json.Unmarshal([]byte(raw), &out); err != nil || out == nil {
		return map[string]string{}
	}
	return out
}
