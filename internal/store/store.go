// Package store implements the persistent term-indexed document store:
// a state machine with exactly one of {writer, searcher} open at a
// time against a given storage directory, backed by Bleve.
package store

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	chemerrors "github.com/chemidx/chemidx/internal/errors"
)

// State is one of the store's four lifecycle states.
type State int

const (
	StateClosed State = iota
	StateWriting
	StateSearching
	StateShutdown
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateWriting:
		return "writing"
	case StateSearching:
		return "searching"
	case StateShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// Hit is one scored result from Search.
type Hit struct {
	DocID  string
	Score  float64
	Fields map[string]string
}

// Store is a directory-backed inverted index with the writer/searcher
// state machine described by the store's lifecycle contract.
type Store struct {
	mu     sync.Mutex
	dir    string
	state  State
	index  bleve.Index
	lock   *writerLock
	logger *slog.Logger
}

// Option configures a Store at construction.
type Option func(*Store)

// WithLogger attaches a logger used for warnings during lock/index
// lifecycle transitions.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// New creates a Store bound to dir, initially closed. No index files
// are touched until OpenWriter or OpenSearcher is called.
func New(dir string, opts ...Option) *Store {
	s := &Store{dir: dir, state: StateClosed, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State reports the store's current lifecycle state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// OpenWriter transitions the store into the writing state, closing any
// open searcher first. Acquires the cross-process writer lock so a
// second process cannot open a writer against the same directory
// concurrently.
func (s *Store) OpenWriter() (*Writer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateShutdown {
		return nil, chemerrors.New(chemerrors.ErrCodeShutDown, "store has been shut down", nil)
	}

	if s.state == StateWriting {
		return &Writer{store: s}, nil
	}

	if err := s.closeIndexLocked(); err != nil {
		return nil, err
	}

	if s.lock == nil {
		s.lock = newWriterLock(s.dir)
	}
	acquired, err := s.lock.TryLock()
	if err != nil {
		return nil, chemerrors.IndexIOError("failed to acquire writer lock", err)
	}
	if !acquired {
		return nil, chemerrors.IndexIOError("another process holds the writer lock for this index", nil)
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		_ = s.lock.Unlock()
		return nil, chemerrors.IndexIOError("failed to create index directory", err)
	}

	idx, err := openOrCreateIndex(s.dir)
	if err != nil {
		_ = s.lock.Unlock()
		return nil, chemerrors.IndexIOError("failed to open index for writing", err)
	}

	s.index = idx
	s.state = StateWriting
	return &Writer{store: s}, nil
}

// OpenSearcher transitions the store into the searching state, closing
// any open writer first. Returns a distinct "no index yet" error if
// the directory has never held a written index.
func (s *Store) OpenSearcher() (*Searcher, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateShutdown {
		return nil, chemerrors.New(chemerrors.ErrCodeShutDown, "store has been shut down", nil)
	}

	if s.state == StateSearching {
		return &Searcher{store: s}, nil
	}

	if err := s.closeIndexLocked(); err != nil {
		return nil, err
	}

	if _, err := os.Stat(s.dir); os.IsNotExist(err) {
		return nil, chemerrors.New(chemerrors.ErrCodeNoIndexYet, "no index has been built at this directory yet", nil)
	}

	idx, err := bleve.Open(s.dir)
	if err == bleve.ErrorIndexPathDoesNotExist {
		return nil, chemerrors.New(chemerrors.ErrCodeNoIndexYet, "no index has been built at this directory yet", nil)
	}
	if err != nil {
		return nil, chemerrors.IndexIOError("failed to open index for searching", err)
	}

	s.index = idx
	s.state = StateSearching
	return &Searcher{store: s}, nil
}

// Close releases whichever handle (writer or searcher) is currently
// open and returns the store to closed. A no-op from closed or
// shutdown.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateShutdown {
		return nil
	}

	if err := s.closeIndexLocked(); err != nil {
		return err
	}
	s.state = StateClosed
	return nil
}

// Shutdown is terminal: it releases all resources and makes all
// subsequent Open calls fail.
func (s *Store) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateShutdown {
		return nil
	}

	err := s.closeIndexLocked()
	s.state = StateShutdown
	return err
}

func (s *Store) closeIndexLocked() error {
	if s.index != nil {
		if err := s.index.Close(); err != nil {
			return chemerrors.IndexIOError("failed to close index", err)
		}
		s.index = nil
	}
	if s.state == StateWriting && s.lock != nil {
		if err := s.lock.Unlock(); err != nil {
			if s.logger != nil {
				s.logger.Warn("failed to release writer lock", "error", err)
			}
		}
	}
	return nil
}

func openOrCreateIndex(path string) (bleve.Index, error) {
	idx, err := bleve.Open(path)
	if err == bleve.ErrorIndexPathDoesNotExist {
		return bleve.New(path, buildIndexMapping())
	}
	return idx, err
}

// Writer is the write-side handle obtained from OpenWriter.
type Writer struct {
	store *Store
}

// AddDocument indexes doc under its primary key.
func (w *Writer) AddDocument(doc Document) error {
	if doc.PK == "" {
		return chemerrors.InternalError("cannot index a document with an empty primary key", nil)
	}
	if err := w.store.index.Index(doc.PK, doc.toIndexable()); err != nil {
		return chemerrors.IndexIOError(fmt.Sprintf("failed to index document %q", doc.PK), err)
	}
	return nil
}

// DeleteByTerm removes every document whose field matches value
// exactly, used to enforce pk uniqueness via delete-before-add.
func (w *Writer) DeleteByTerm(field, value string) error {
	ids, err := searchIDs(w.store.index, NewTermQuery(field, value))
	if err != nil {
		return chemerrors.IndexIOError("failed to resolve delete-by-term candidates", err)
	}
	if len(ids) == 0 {
		return nil
	}
	batch := w.store.index.NewBatch()
	for _, id := range ids {
		batch.Delete(id)
	}
	if err := w.store.index.Batch(batch); err != nil {
		return chemerrors.IndexIOError("failed to delete documents", err)
	}
	return nil
}

// Commit is a no-op: Bleve persists batches as they are applied. It
// exists so callers can express the write-then-commit shape the
// lifecycle contract describes.
func (w *Writer) Commit() error {
	return nil
}

// Searcher is the read-side handle obtained from OpenSearcher.
type Searcher struct {
	store *Store
}

// Search runs q and returns up to maxHits scored hits, highest score
// first.
func (s *Searcher) Search(q query.Query, maxHits int) ([]Hit, error) {
	req := bleve.NewSearchRequest(q)
	req.Size = maxHits
	req.Fields = []string{"*"}

	result, err := s.store.index.Search(req)
	if err != nil {
		return nil, chemerrors.IndexIOError("search failed", err)
	}

	hits := make([]Hit, 0, len(result.Hits))
	for _, dm := range result.Hits {
		hits = append(hits, Hit{DocID: dm.ID, Score: dm.Score, Fields: flattenFields(dm.Fields)})
	}
	return hits, nil
}

// GetDocument returns the stored field map for docID, or a not-found
// error.
func (s *Searcher) GetDocument(docID string) (map[string]string, error) {
	req := bleve.NewSearchRequest(NewTermQuery(FieldPK, docID))
	req.Size = 1
	req.Fields = []string{"*"}

	result, err := s.store.index.Search(req)
	if err != nil {
		return nil, chemerrors.IndexIOError("failed to fetch document", err)
	}
	if len(result.Hits) == 0 {
		return nil, chemerrors.IndexIOError(fmt.Sprintf("document %q not found", docID), nil)
	}

	return flattenFields(result.Hits[0].Fields), nil
}

// NumDocs reports the number of live documents in the index.
func (s *Searcher) NumDocs() (uint64, error) {
	n, err := s.store.index.DocCount()
	if err != nil {
		return 0, chemerrors.IndexIOError("failed to count documents", err)
	}
	return n, nil
}

// DiscoverFields returns every field name present in the index
// mapping, the set search_free unions its multi-field query over.
func (s *Searcher) DiscoverFields() ([]string, error) {
	fields, err := s.store.index.Fields()
	if err != nil {
		return nil, chemerrors.IndexIOError("failed to discover fields", err)
	}
	return fields, nil
}

func searchIDs(idx bleve.Index, q query.Query) ([]string, error) {
	docCount, _ := idx.DocCount()
	req := bleve.NewSearchRequest(q)
	req.Size = int(docCount)
	if req.Size == 0 {
		req.Size = 1
	}
	req.Fields = nil

	result, err := idx.Search(req)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(result.Hits))
	for i, hit := range result.Hits {
		ids[i] = hit.ID
	}
	return ids, nil
}

func flattenFields(fields map[string]interface{}) map[string]string {
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		switch val := v.(type) {
		case string:
			out[k] = val
		case []interface{}:
			// Multi-valued fields (name, fp) collapse to their first value;
			// Search hits and GetDocument both return this flattened form.
			if len(val) > 0 {
				if s, ok := val[0].(string); ok {
					out[k] = s
				}
			}
		default:
			out[k] = fmt.Sprintf("%v", v)
		}
	}
	return out
}
