package chemindex

import (
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/chemidx/chemidx/internal/chem"
	"github.com/chemidx/chemidx/internal/collector"
	chemerrors "github.com/chemidx/chemidx/internal/errors"
	"github.com/chemidx/chemidx/internal/resultadapter"
	"github.com/chemidx/chemidx/internal/store"
)

// withSearcher opens a searcher, runs fn against it, and always closes
// it afterward. Returns the shut-down error without calling fn if the
// facade has been shut down.
func (f *Facade) withSearcher(fn func(*store.Searcher) ([]string, error)) ([]string, error) {
	f.searcherMu.Lock()
	defer f.searcherMu.Unlock()

	if f.store.State() == store.StateShutdown {
		return nil, chemerrors.New(chemerrors.ErrCodeShutDown, "facade has been shut down", nil)
	}

	searcher, err := f.store.OpenSearcher()
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.store.Close() }()

	return fn(searcher)
}

func entriesFromHits(hits []store.Hit) []collector.Entry {
	entries := make([]collector.Entry, len(hits))
	for i, h := range hits {
		entries[i] = collector.Entry{DocID: h.DocID, Score: h.Score}
	}
	return entries
}

// SearchFree parses text as a multi-field query over every field
// discovered in the index, using the store's configured analyzer.
func (f *Facade) SearchFree(text string, maxHits int) ([]string, error) {
	return f.withSearcher(func(searcher *store.Searcher) ([]string, error) {
		fields, err := searcher.DiscoverFields()
		if err != nil {
			return nil, err
		}
		hits, err := searcher.Search(store.NewMultiFieldQuery(text, fields), maxHits)
		if err != nil {
			return nil, err
		}
		return resultadapter.Adapt(searcher, entriesFromHits(hits)), nil
	})
}

// SearchByName runs a boolean OR of name:name and pk:name term queries.
func (f *Facade) SearchByName(name string, maxHits int) ([]string, error) {
	return f.withSearcher(func(searcher *store.Searcher) ([]string, error) {
		should := []query.Query{
			store.NewTermQuery(store.FieldName, name),
			store.NewTermQuery(store.FieldPK, name),
		}
		hits, err := searcher.Search(store.NewBooleanQuery(nil, should), maxHits)
		if err != nil {
			return nil, err
		}
		return resultadapter.Adapt(searcher, entriesFromHits(hits)), nil
	})
}

// SearchExact canonicalizes smiles and runs a term query against the
// stored smiles field.
func (f *Facade) SearchExact(smiles string, maxHits int) ([]string, error) {
	canonical, err := f.canonicalize(smiles)
	if err != nil {
		return nil, err
	}

	return f.withSearcher(func(searcher *store.Searcher) ([]string, error) {
		hits, err := searcher.Search(store.NewTermQuery(store.FieldSMILES, canonical), maxHits)
		if err != nil {
			return nil, err
		}
		return resultadapter.Adapt(searcher, entriesFromHits(hits)), nil
	})
}

// SearchByFP computes the query fingerprint of smiles and runs a
// boolean AND of fp:<bit> term queries for each set bit. Hits are
// molecules whose stored fingerprint bit-superset-covers the query
// fingerprint.
func (f *Facade) SearchByFP(smiles string, maxHits int) ([]string, error) {
	return f.withSearcher(func(searcher *store.Searcher) ([]string, error) {
		hits, err := f.searchByFPHits(searcher, smiles, maxHits)
		if err != nil {
			return nil, err
		}
		return resultadapter.Adapt(searcher, entriesFromHits(hits)), nil
	})
}

func (f *Facade) searchByFPHits(searcher *store.Searcher, smiles string, maxHits int) ([]store.Hit, error) {
	queryFP, err := f.engine.QueryFP(smiles, false)
	if err != nil {
		return nil, err
	}

	bits := queryFP.SetBits()
	if len(bits) == 0 {
		return nil, nil
	}

	must := make([]query.Query, len(bits))
	for i, b := range bits {
		must[i] = store.NewTermQuery(store.FieldFP, strconv.Itoa(b))
	}

	return searcher.Search(store.NewBooleanQuery(must, nil), maxHits)
}

// SearchSubstructure runs the two-stage substructure search: a
// fingerprint screen over an inflated candidate cap, followed by
// atom-level verification of each candidate in relevance order,
// stopping once maxHits survivors are found.
func (f *Facade) SearchSubstructure(smiles string, maxHits int) ([]string, error) {
	return f.withSearcher(func(searcher *store.Searcher) ([]string, error) {
		candidateCap := maxHits * 10
		if candidateCap <= 0 || candidateCap > f.substructureCandidateCap {
			candidateCap = f.substructureCandidateCap
		}

		candidates, err := f.searchByFPHits(searcher, smiles, candidateCap)
		if err != nil {
			return nil, err
		}

		outerWave := f.tracker.FreshWaveID()
		defer f.tracker.Cleanup(outerWave)

		queryMol, err := f.toolkit.ParseSMILES(smiles, true)
		if err != nil {
			return nil, err
		}
		f.tracker.Mark(queryMol, outerWave, false)

		capacity := maxHits
		if capacity <= 0 {
			// No finite limit requested: size the collector to the
			// candidate set itself so every verified survivor is kept
			// rather than silently dropped by a zero-capacity collector.
			capacity = len(candidates)
		}
		c := collector.New(capacity)
		survivors := 0
		for _, hit := range candidates {
			if maxHits > 0 && survivors >= maxHits {
				break
			}
			if f.verifyCandidate(queryMol, hit) {
				c.Collect(hit.DocID, hit.Score)
				survivors++
			}
		}

		return resultadapter.Adapt(searcher, realCollected(c)), nil
	})
}

func (f *Facade) verifyCandidate(queryMol *chem.Molecule, hit store.Hit) bool {
	candidateSMILES := hit.Fields[store.FieldSMILES]
	if candidateSMILES == "" {
		return false
	}

	innerWave := f.tracker.FreshWaveID()
	defer f.tracker.Cleanup(innerWave)

	candidateMol, err := f.toolkit.ParseSMILES(candidateSMILES, false)
	if err != nil {
		f.logger.Warn("substructure verification failed to reparse candidate", "pk", hit.DocID, "error", err)
		return false
	}
	f.tracker.Mark(candidateMol, innerWave, false)
	candidateMol.UpdatePropertyCache()

	return candidateMol.HasSubstructureMatch(queryMol)
}

func realCollected(c *collector.Collector) []collector.Entry {
	all := c.Output()
	out := make([]collector.Entry, 0, len(all))
	for _, e := range all {
		if !collector.IsSentinel(e) {
			out = append(out, e)
		}
	}
	return out
}

func (f *Facade) canonicalize(smiles string) (string, error) {
	wave := f.tracker.FreshWaveID()
	defer f.tracker.Cleanup(wave)

	mol, err := f.toolkit.ParseSMILES(smiles, true)
	if err != nil {
		return "", err
	}
	f.tracker.Mark(mol, wave, false)

	canonical, err := mol.ToCanonicalSMILES()
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(canonical) == "" {
		return "", chemerrors.InputError(chemerrors.ErrCodeEmptyCanonical, "canonicalization yielded an empty SMILES", nil)
	}
	return canonical, nil
}
