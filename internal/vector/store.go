package vector

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/swstevens/agentic-cag-system/internal/embedding"
	"github.com/swstevens/agentic-cag-system/internal/logging"
	"github.com/swstevens/agentic-cag-system/internal/types"
)

// ErrDisabled is returned when no embedding engine is configured; the
// repository reacts by falling back to text-substring search.
var ErrDisabled = errors.New("vector store disabled: no embedding engine")

// upsertBatchSize bounds both the embedding batches and the insert
// transactions during indexing.
const upsertBatchSize = 100

// memoCapacity bounds the query-result memo.
const memoCapacity = 128

// Store indexes card documents by dense embedding and answers top-k
// similarity queries. ANN search runs through the sqlite-vec vec0 table
// when the extension is available; otherwise a brute-force cosine scan
// over the JSON-stored embeddings is used.
type Store struct {
	db        *sql.DB
	mu        sync.RWMutex
	dbPath    string
	engine    embedding.Engine
	vectorExt bool
	memo      *searchMemo
}

// Open initializes the vector database at the given path. A nil engine
// yields a disabled store: upserts and searches return ErrDisabled.
func Open(path string, engine embedding.Engine) (*Store, error) {
	timer := logging.StartTimer(logging.CategoryVector, "Open")
	defer timer.Stop()

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create vector store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.VectorDebug("Failed to set sqlite busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.VectorDebug("Failed to set sqlite journal_mode=WAL: %v", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS vectors (
		card_id TEXT PRIMARY KEY,
		document TEXT NOT NULL,
		metadata TEXT,
		embedding TEXT
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create vectors table: %w", err)
	}

	s := &Store{
		db:     db,
		dbPath: path,
		engine: engine,
		memo:   newSearchMemo(memoCapacity),
	}
	if engine != nil {
		s.initVecIndex(engine.Dimensions())
		logging.Vector("vector store ready: engine=%s dims=%d ann=%v", engine.Name(), engine.Dimensions(), s.vectorExt)
	} else {
		logging.Vector("vector store opened in disabled state (no embedding engine)")
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Enabled reports whether semantic search is available.
func (s *Store) Enabled() bool {
	return s.engine != nil
}

// initVecIndex attempts to create a sqlite-vec table; on success ANN search
// is enabled. Failure is not fatal: brute-force cosine remains available.
func (s *Store) initVecIndex(dim int) {
	if dim <= 0 {
		return
	}
	stmt := fmt.Sprintf("CREATE VIRTUAL TABLE IF NOT EXISTS vec_index USING vec0(embedding float[%d], card_id TEXT, metadata TEXT)", dim)
	if _, err := s.db.Exec(stmt); err == nil {
		s.vectorExt = true
		logging.Vector("sqlite-vec index initialized (dimensions=%d)", dim)
	} else {
		logging.VectorDebug("sqlite-vec unavailable, using brute-force search: %v", err)
	}
}

// UpsertCards embeds and indexes the given cards. Batched at the embedding
// API limit; idempotent via INSERT OR REPLACE. Returns the number of cards
// indexed.
func (s *Store) UpsertCards(ctx context.Context, cards []*types.Card) (int, error) {
	timer := logging.StartTimer(logging.CategoryVector, "UpsertCards")
	defer timer.StopWithInfo()

	if s.engine == nil {
		return 0, ErrDisabled
	}
	if len(cards) == 0 {
		return 0, nil
	}

	total := 0
	for start := 0; start < len(cards); start += upsertBatchSize {
		select {
		case <-ctx.Done():
			return total, ctx.Err()
		default:
		}
		end := start + upsertBatchSize
		if end > len(cards) {
			end = len(cards)
		}
		n, err := s.upsertBatch(ctx, cards[start:end])
		total += n
		if err != nil {
			return total, err
		}
	}

	s.memo.clear()
	logging.Vector("indexed %d cards", total)
	return total, nil
}

func (s *Store) upsertBatch(ctx context.Context, cards []*types.Card) (int, error) {
	docs := make([]string, len(cards))
	for i, card := range cards {
		docs[i] = BuildDocument(card)
	}

	vecs, err := s.engine.EmbedBatch(ctx, docs)
	if err != nil {
		return 0, fmt.Errorf("batch embedding failed: %w", err)
	}
	if len(vecs) != len(cards) {
		return 0, fmt.Errorf("embedding batch size mismatch: %d != %d", len(vecs), len(cards))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	stmt, err := tx.Prepare("INSERT OR REPLACE INTO vectors (card_id, document, metadata, embedding) VALUES (?, ?, ?, ?)")
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	defer stmt.Close()

	var vecStmt *sql.Stmt
	if s.vectorExt {
		vecStmt, err = tx.Prepare("INSERT OR REPLACE INTO vec_index (embedding, card_id, metadata) VALUES (?, ?, ?)")
		if err != nil {
			_ = tx.Rollback()
			return 0, err
		}
		defer vecStmt.Close()
	}

	stored := 0
	for i, card := range cards {
		if len(vecs[i]) == 0 {
			logging.VectorDebug("empty embedding for %q, skipping", card.Name)
			continue
		}
		embJSON, err := json.Marshal(vecs[i])
		if err != nil {
			continue
		}
		metaJSON, _ := json.Marshal(cardMetadata(card))
		if _, err := stmt.Exec(card.ID, docs[i], string(metaJSON), string(embJSON)); err != nil {
			logging.VectorDebug("failed to index %q: %v", card.Name, err)
			continue
		}
		if s.vectorExt {
			_, _ = vecStmt.Exec(encodeFloat32Slice(vecs[i]), card.ID, string(metaJSON))
		}
		stored++
	}

	if err := tx.Commit(); err != nil {
		return stored, err
	}
	return stored, nil
}

func cardMetadata(card *types.Card) map[string]interface{} {
	return map[string]interface{}{
		"name":   card.Name,
		"cmc":    card.CMC,
		"colors": strings.Join(card.Colors, ","),
		"type":   card.TypeLine,
	}
}

// Search returns the ids of the top-k most similar cards for a query.
// The optional metadata filter matches a single key/value pair. Recent
// results are memoized.
func (s *Store) Search(ctx context.Context, query string, k int, filter map[string]string) ([]string, error) {
	timer := logging.StartTimer(logging.CategoryVector, "Search")
	defer timer.Stop()

	if s.engine == nil {
		return nil, ErrDisabled
	}
	if k <= 0 {
		k = 20
	}

	key := memoKey(query, k, filter)
	if ids, ok := s.memo.get(key); ok {
		logging.VectorDebug("memo hit for %q (k=%d)", query, k)
		return ids, nil
	}

	queryVec, err := s.engine.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	var ids []string
	if s.vectorExt {
		ids, err = s.searchVec(queryVec, k, filter)
	} else {
		ids, err = s.searchBruteForce(queryVec, k, filter)
	}
	if err != nil {
		return nil, err
	}

	s.memo.put(key, ids)
	logging.VectorDebug("search %q returned %d ids (ann=%v)", query, len(ids), s.vectorExt)
	return ids, nil
}

// searchVec performs ANN search via the vec0 index.
func (s *Store) searchVec(queryVec []float32, k int, filter map[string]string) ([]string, error) {
	where := make([]string, 0, len(filter))
	args := []interface{}{encodeFloat32Slice(queryVec)}
	for key, value := range filter {
		where = append(where, "metadata LIKE ?")
		args = append(args, fmt.Sprintf(`%%"%s":"%s"%%`, key, value))
	}

	sqlStr := "SELECT card_id, vec_distance_cosine(embedding, ?) AS dist FROM vec_index"
	if len(where) > 0 {
		sqlStr += " WHERE " + strings.Join(where, " AND ")
	}
	sqlStr += " ORDER BY dist ASC LIMIT ?"
	args = append(args, k)

	s.mu.RLock()
	rows, err := s.db.Query(sqlStr, args...)
	s.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("vec search: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0, k)
	for rows.Next() {
		var id string
		var dist float64
		if err := rows.Scan(&id, &dist); err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// searchBruteForce scans all stored embeddings and ranks by cosine
// similarity. Acceptable for catalog-sized stores; the vec0 path replaces
// it when the extension is loaded.
func (s *Store) searchBruteForce(queryVec []float32, k int, filter map[string]string) ([]string, error) {
	queryStr := "SELECT card_id, embedding, metadata FROM vectors WHERE embedding IS NOT NULL"
	args := make([]interface{}, 0, len(filter))
	for key, value := range filter {
		queryStr += " AND metadata LIKE ?"
		args = append(args, fmt.Sprintf(`%%"%s":"%s"%%`, key, value))
	}

	s.mu.RLock()
	rows, err := s.db.Query(queryStr, args...)
	s.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("brute-force search: %w", err)
	}
	defer rows.Close()

	type candidate struct {
		id         string
		similarity float64
	}
	var candidates []candidate

	for rows.Next() {
		var id, embJSON, metaJSON string
		if err := rows.Scan(&id, &embJSON, &metaJSON); err != nil {
			continue
		}
		var vec []float32
		if err := json.Unmarshal([]byte(embJSON), &vec); err != nil {
			continue
		}
		similarity, err := embedding.CosineSimilarity(queryVec, vec)
		if err != nil {
			continue
		}
		candidates = append(candidates, candidate{id: id, similarity: similarity})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].similarity > candidates[j].similarity
	})
	if len(candidates) > k {
		candidates = candidates[:k]
	}

	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.id
	}
	return ids, nil
}

// Count returns the number of indexed cards.
func (s *Store) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM vectors").Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func encodeFloat32Slice(vec []float32) []byte {
	buf := &bytes.Buffer{}
	_ = binary.Write(buf, binary.LittleEndian, vec)
	return buf.Bytes()
}

// =============================================================================
// SEARCH MEMO - small LRU over recent (query, k, filters) results
// =============================================================================

func memoKey(query string, k int, filter map[string]string) string {
	keys := make([]string, 0, len(filter))
	for key := range filter {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(query)
	fmt.Fprintf(&sb, "|%d", k)
	for _, key := range keys {
		fmt.Fprintf(&sb, "|%s=%s", key, filter[key])
	}
	return sb.String()
}

type memoEntry struct {
	key string
	ids []string
}

type searchMemo struct {
	mu       sync.Mutex
	capacity int
	order    []*memoEntry
	index    map[string]*memoEntry
}

func newSearchMemo(capacity int) *searchMemo {
	return &searchMemo{
		capacity: capacity,
		index:    make(map[string]*memoEntry),
	}
}

func (m *searchMemo) get(key string) ([]string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ent, ok := m.index[key]
	if !ok {
		return nil, false
	}
	// Move to MRU position.
	for i, e := range m.order {
		if e == ent {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	m.order = append(m.order, ent)
	return ent.ids, true
}

func (m *searchMemo) put(key string, ids []string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ent, ok := m.index[key]; ok {
		ent.ids = ids
		return
	}
	if len(m.order) >= m.capacity {
		oldest := m.order[0]
		m.order = m.order[1:]
		delete(m.index, oldest.key)
	}
	ent := &memoEntry{key: key, ids: ids}
	m.order = append(m.order, ent)
	m.index[key] = ent
}

func (m *searchMemo) clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.order = nil
	m.index = make(map[string]*memoEntry)
}
