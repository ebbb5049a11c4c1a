// Package chemindex implements the single entry point tying the
// chemistry binding, resource tracker, record parser, fingerprint
// engine, and inverted index store together: ingestion and every
// search mode.
package chemindex

import (
	"log/slog"
	"sync"

	"github.com/chemidx/chemidx/internal/chem"
	chemerrors "github.com/chemidx/chemidx/internal/errors"
	"github.com/chemidx/chemidx/internal/fingerprint"
	"github.com/chemidx/chemidx/internal/resource"
	"github.com/chemidx/chemidx/internal/store"
)

const defaultSubstructureCandidateCap = 100000

// Listener receives (pk, canonical_smiles) synchronously on the ingest
// thread after every successful document write.
type Listener func(pk, canonicalSMILES string)

// Facade is the boundary chemidx exposes to callers: construction
// fails only if the native toolkit could not be initialized.
type Facade struct {
	store   *store.Store
	toolkit *chem.Toolkit
	tracker *resource.Tracker
	engine  *fingerprint.Engine
	logger  *slog.Logger

	consecutiveErrorLimit    int
	substructureCandidateCap int

	writerMu   sync.Mutex
	searcherMu sync.Mutex

	listenersMu    sync.Mutex
	listeners      map[int]Listener
	nextListenerID int
}

// Option configures a Facade at construction time.
type Option func(*Facade)

// WithLogger attaches a logger for ingest warnings and listener panics.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Facade) { f.logger = logger }
}

// WithConsecutiveErrorLimit overrides the default 100-record abort
// threshold.
func WithConsecutiveErrorLimit(n int) Option {
	return func(f *Facade) { f.consecutiveErrorLimit = n }
}

// WithSubstructureCandidateCap overrides the default 100000 ceiling on
// the fingerprint-screen candidate stage of search_substructure.
func WithSubstructureCandidateCap(n int) Option {
	return func(f *Facade) { f.substructureCandidateCap = n }
}

// New constructs a Facade. toolkit must be a live, initialized native
// chemistry binding; a nil toolkit is treated as toolkit activation
// having failed.
func New(st *store.Store, toolkit *chem.Toolkit, tracker *resource.Tracker, engine *fingerprint.Engine, opts ...Option) (*Facade, error) {
	if toolkit == nil {
		return nil, chemerrors.New(chemerrors.ErrCodeToolkitInit, "native chemistry toolkit failed to initialize", nil)
	}

	f := &Facade{
		store:                    st,
		toolkit:                  toolkit,
		tracker:                  tracker,
		engine:                   engine,
		logger:                   slog.Default(),
		consecutiveErrorLimit:    100,
		substructureCandidateCap: defaultSubstructureCandidateCap,
		listeners:                map[int]Listener{},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// AddListener registers l and returns an id usable with RemoveListener.
func (f *Facade) AddListener(l Listener) int {
	f.listenersMu.Lock()
	defer f.listenersMu.Unlock()
	id := f.nextListenerID
	f.nextListenerID++
	f.listeners[id] = l
	return id
}

// RemoveListener unregisters the listener with the given id. A no-op
// if id is unknown.
func (f *Facade) RemoveListener(id int) {
	f.listenersMu.Lock()
	defer f.listenersMu.Unlock()
	delete(f.listeners, id)
}

func (f *Facade) notifyListeners(pk, canonicalSMILES string) {
	f.listenersMu.Lock()
	snapshot := make([]Listener, 0, len(f.listeners))
	for _, l := range f.listeners {
		snapshot = append(snapshot, l)
	}
	f.listenersMu.Unlock()

	for _, l := range snapshot {
		f.callListener(l, pk, canonicalSMILES)
	}
}

func (f *Facade) callListener(l Listener, pk, canonicalSMILES string) {
	defer func() {
		if r := recover(); r != nil {
			f.logger.Warn("ingest listener panicked", "pk", pk, "recovered", r)
		}
	}()
	l(pk, canonicalSMILES)
}

// Shutdown is terminal: every subsequent ingest or search call returns
// the shut-down error, and the underlying store's file handles are
// released.
func (f *Facade) Shutdown() error {
	return f.store.Shutdown()
}

// NumDocs reports the number of live documents, or the shut-down error.
func (f *Facade) NumDocs() (uint64, error) {
	f.searcherMu.Lock()
	defer f.searcherMu.Unlock()

	if f.store.State() == store.StateShutdown {
		return 0, chemerrors.New(chemerrors.ErrCodeShutDown, "facade has been shut down", nil)
	}

	searcher, err := f.store.OpenSearcher()
	if err != nil {
		return 0, err
	}
	defer func() { _ = f.store.Close() }()

	return searcher.NumDocs()
}
