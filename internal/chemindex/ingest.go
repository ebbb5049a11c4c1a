package chemindex

import (
	"context"
	"io"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	chemerrors "github.com/chemidx/chemidx/internal/errors"
	"github.com/chemidx/chemidx/internal/sdfparse"
	"github.com/chemidx/chemidx/internal/store"
)

// ingestBatchSize bounds how many records are parsed and fingerprinted
// concurrently before being committed to the store in order. It is the
// funnel's reorder window: small enough to bound memory, large enough
// to keep the worker pool busy.
const ingestBatchSize = 64

// Summary reports the outcome of one ingest_stream call.
type Summary struct {
	Total      int
	Written    int
	Skipped    int
	FatalCause error
	Duration   time.Duration
}

// jobOutcome is one record's result after the concurrent parse/
// canonicalize/fingerprint stage, before it is committed in order.
type jobOutcome struct {
	skip        bool
	skipCounted bool
	pk          string
	canonical   string
	bits        []int
	properties  map[string]string
	names       []string
	err         error
}

// IngestStream drives a structure-data stream into the store: for
// every record, resolves the primary key, applies skip_until_pk/
// skip_pks, parses and canonicalizes the molecule, computes its
// structure fingerprint, and writes (delete-then-add) the resulting
// document, notifying listeners on success. Every other property on
// the record (including the synthetic dataset_name/line_number/
// record_number properties) is carried onto the document's stored
// property map. nameFields, if given, names SD-file properties whose
// value (one synonym per line) is folded into the document's synonym
// name list.
//
// Parsing and fingerprinting for a batch of records run concurrently
// across a bounded worker pool; documents are committed to the store
// strictly in record order regardless of which worker finished first.
func (f *Facade) IngestStream(ctx context.Context, r io.Reader, datasetName, pkField string, skipUntilPK string, skipPKs map[string]struct{}, nameFields ...string) (*Summary, error) {
	if f.store.State() == store.StateShutdown {
		return nil, chemerrors.New(chemerrors.ErrCodeShutDown, "facade has been shut down", nil)
	}

	f.writerMu.Lock()
	defer f.writerMu.Unlock()

	start := time.Now()
	summary := &Summary{}

	writer, err := f.store.OpenWriter()
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.store.Close() }()

	parser := sdfparse.New(r, datasetName, 1)
	armed := skipUntilPK == ""
	consecutiveErrors := 0

	batch := make([]*sdfparse.Record, 0, ingestBatchSize)
	var fatalErr error

runLoop:
	for {
		rec, nextErr := parser.Next()
		if nextErr == io.EOF {
			break
		}
		if nextErr != nil {
			fatalErr = chemerrors.IndexIOError("ingest stream IO error", nextErr)
			break
		}

		batch = append(batch, rec)
		if len(batch) < ingestBatchSize {
			continue
		}

		outcomes := f.ingestBatch(ctx, batch, pkField, skipUntilPK, skipPKs, &armed, nameFields)
		if commitErr := f.commitBatch(writer, outcomes, summary, &consecutiveErrors); commitErr != nil {
			fatalErr = commitErr
			break runLoop
		}
		batch = batch[:0]
	}

	if fatalErr == nil && len(batch) > 0 {
		outcomes := f.ingestBatch(ctx, batch, pkField, skipUntilPK, skipPKs, &armed, nameFields)
		if commitErr := f.commitBatch(writer, outcomes, summary, &consecutiveErrors); commitErr != nil {
			fatalErr = commitErr
		}
	}

	summary.Duration = time.Since(start)
	summary.FatalCause = fatalErr
	return summary, fatalErr
}

// ingestBatch resolves each record's skip/arm decision sequentially
// (this must preserve stream order, since skip_until_pk's arming is a
// running condition over the sequence), then fans the remaining,
// expensive parse/canonicalize/fingerprint work out across a bounded
// worker pool. Results land in outcomes at their original index.
func (f *Facade) ingestBatch(ctx context.Context, records []*sdfparse.Record, pkField, skipUntilPK string, skipPKs map[string]struct{}, armed *bool, nameFields []string) []jobOutcome {
	outcomes := make([]jobOutcome, len(records))

	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, runtime.GOMAXPROCS(0))

	for i, rec := range records {
		i, rec := i, rec

		pk, hasPK := rec.Properties[pkField]
		pk = strings.TrimSpace(pk)

		if !hasPK || pk == "" {
			outcomes[i] = jobOutcome{
				skip:        true,
				skipCounted: true,
				err: chemerrors.InputError(chemerrors.ErrCodeMissingPK, "record has no value for the primary key field", nil).
					WithDetail("line_number", rec.Properties["line_number"]),
			}
			continue
		}

		if skipUntilPK != "" && !*armed {
			if pk == skipUntilPK {
				*armed = true
			} else {
				outcomes[i] = jobOutcome{skip: true, pk: pk}
				continue
			}
		}

		if _, skipped := skipPKs[pk]; skipped {
			outcomes[i] = jobOutcome{skip: true, pk: pk}
			continue
		}

		g.Go(func() error {
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-gctx.Done():
				return gctx.Err()
			}

			canonical, bits, properties, names, err := f.processRecord(rec, pkField, nameFields)
			outcomes[i] = jobOutcome{pk: pk, canonical: canonical, bits: bits, properties: properties, names: names, err: err}
			return nil
		})
	}

	_ = g.Wait()
	return outcomes
}

// processRecord parses a record's molblock, canonicalizes it, and
// computes its structure fingerprint directly from the parsed handle
// (rather than reparsing from the canonical SMILES), which produces
// an identical bit vector for the same logical molecule at lower cost.
// It also carries the record's properties (minus pkField) onto the
// returned property map, and folds any configured name fields into
// the returned synonym list.
func (f *Facade) processRecord(rec *sdfparse.Record, pkField string, nameFields []string) (canonical string, bits []int, properties map[string]string, names []string, err error) {
	wave := f.tracker.FreshWaveID()
	defer f.tracker.Cleanup(wave)

	mol, err := f.toolkit.ParseMolblock(rec.Molblock)
	if err != nil {
		return "", nil, nil, nil, chemerrors.InputError(chemerrors.ErrCodeParseFailed, "failed to parse molblock", err)
	}
	f.tracker.Mark(mol, wave, false)

	canonical, err = mol.ToCanonicalSMILES()
	if err != nil {
		return "", nil, nil, nil, chemerrors.InputError(chemerrors.ErrCodeParseFailed, "failed to canonicalize molecule", err)
	}
	if strings.TrimSpace(canonical) == "" {
		return "", nil, nil, nil, chemerrors.InputError(chemerrors.ErrCodeEmptyCanonical, "canonicalization yielded an empty SMILES", nil)
	}

	fp, err := f.engine.StructureFP(mol)
	if err != nil {
		return "", nil, nil, nil, chemerrors.ToolkitError("failed to compute structure fingerprint", err)
	}

	properties = recordProperties(rec, pkField)
	names = recordNames(rec, nameFields)

	return canonical, fp.SetBits(), properties, names, nil
}

// recordProperties copies rec's property map minus pkField, which is
// already carried on the document as PK and need not be duplicated.
func recordProperties(rec *sdfparse.Record, pkField string) map[string]string {
	if len(rec.Properties) == 0 {
		return nil
	}
	properties := make(map[string]string, len(rec.Properties))
	for k, v := range rec.Properties {
		if k == pkField {
			continue
		}
		properties[k] = v
	}
	return properties
}

// recordNames extracts synonym names from each configured name field's
// value, one synonym per line, per the SD-file convention of storing
// multiple synonyms as successive lines within a single property.
func recordNames(rec *sdfparse.Record, nameFields []string) []string {
	var names []string
	for _, field := range nameFields {
		value, ok := rec.Properties[field]
		if !ok {
			continue
		}
		for _, line := range strings.Split(value, "\n") {
			line = strings.TrimSpace(line)
			if line != "" {
				names = append(names, line)
			}
		}
	}
	return names
}

// commitBatch writes outcomes to the store strictly in order,
// maintaining the consecutive-error budget: the counter resets on
// every successful write and aborts the ingest once it exceeds the
// configured limit. Deliberate skips (skip_until_pk, skip_pks) do not
// count against the budget; a missing primary key does.
func (f *Facade) commitBatch(writer *store.Writer, outcomes []jobOutcome, summary *Summary, consecutiveErrors *int) error {
	for _, o := range outcomes {
		summary.Total++

		if o.skip {
			summary.Skipped++
			if o.skipCounted {
				f.logger.Warn("ingest record skipped", "error", o.err)
				*consecutiveErrors++
				if *consecutiveErrors > f.consecutiveErrorLimit {
					return chemerrors.FatalError(chemerrors.ErrCodeTooManyErrors,
						"more than the configured number of consecutive ingest records failed", o.err)
				}
			}
			continue
		}

		if o.err != nil {
			summary.Skipped++
			f.logger.Warn("ingest record failed", "pk", o.pk, "error", o.err)
			*consecutiveErrors++
			if *consecutiveErrors > f.consecutiveErrorLimit {
				return chemerrors.FatalError(chemerrors.ErrCodeTooManyErrors,
					"more than the configured number of consecutive ingest records failed", o.err)
			}
			continue
		}

		if err := writer.DeleteByTerm(store.FieldPK, o.pk); err != nil {
			return err
		}
		doc := store.Document{PK: o.pk, SMILES: o.canonical, FPBits: o.bits, Names: o.names, Properties: o.properties}
		if err := writer.AddDocument(doc); err != nil {
			return err
		}

		*consecutiveErrors = 0
		summary.Written++
		f.notifyListeners(o.pk, o.canonical)
	}
	return nil
}
