package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chemidx/chemidx/internal/output"
	"github.com/chemidx/chemidx/internal/sdfparse"
	"github.com/chemidx/chemidx/internal/ui"
)

type ingestOptions struct {
	pkField     string
	skipUntilPK string
	skipPKs     []string
	nameFields  []string
	datasetName string
	noTUI       bool
}

func newIngestCmd() *cobra.Command {
	var opts ingestOptions

	cmd := &cobra.Command{
		Use:   "ingest <file.sdf[.gz]>",
		Short: "Ingest an SD file into the index",
		Long: `Ingest reads a structure-data file (plain or gzip-compressed),
parses each record, canonicalizes and fingerprints its molecule, and
writes the resulting document into the index directory, replacing any
existing document with the same primary key.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.pkField, "pk", "", "SD-file property holding each record's primary key (required)")
	cmd.Flags().StringVar(&opts.skipUntilPK, "skip-until-pk", "", "Skip every record until one with this primary key is seen (inclusive)")
	cmd.Flags().StringSliceVar(&opts.skipPKs, "skip-pks", nil, "Comma-separated list of primary keys to skip")
	cmd.Flags().StringSliceVar(&opts.nameFields, "name-fields", nil, "Comma-separated list of SD-file properties whose value (one synonym per line) becomes a stored synonym name")
	cmd.Flags().StringVar(&opts.datasetName, "dataset-name", "", "Dataset name recorded on each record's dataset_name property (default: file base name)")
	cmd.Flags().BoolVar(&opts.noTUI, "no-tui", false, "Disable the interactive progress display")
	_ = cmd.MarkFlagRequired("pk")

	return cmd
}

func runIngest(cmd *cobra.Command, path string, opts ingestOptions) error {
	out := output.New(cmd.OutOrStdout())

	facade, _, err := openFacade(indexDir)
	if err != nil {
		return err
	}
	defer func() { _ = facade.Shutdown() }()

	r, closeFile, err := sdfparse.OpenFile(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer func() { _ = closeFile() }()

	datasetName := opts.datasetName
	if datasetName == "" {
		datasetName = filepath.Base(path)
	}

	skipPKs := make(map[string]struct{}, len(opts.skipPKs))
	for _, pk := range opts.skipPKs {
		pk = strings.TrimSpace(pk)
		if pk != "" {
			skipPKs[pk] = struct{}{}
		}
	}

	uiCfg := ui.NewConfig(cmd.OutOrStdout(), ui.WithForcePlain(opts.noTUI), ui.WithIndexDir(indexDir))
	renderer := ui.NewRenderer(uiCfg)
	if err := renderer.Start(cmd.Context()); err != nil {
		return fmt.Errorf("starting progress display: %w", err)
	}
	defer func() { _ = renderer.Stop() }()

	written := 0
	listenerID := facade.AddListener(func(pk, _ string) {
		written++
		renderer.UpdateProgress(ui.ProgressEvent{
			Stage:         ui.StageWriting,
			Current:       written,
			CurrentRecord: pk,
		})
	})
	defer facade.RemoveListener(listenerID)

	out.Statusf("", "Ingesting %s into %s", path, indexDir)

	summary, err := facade.IngestStream(cmd.Context(), r, datasetName, opts.pkField, opts.skipUntilPK, skipPKs, opts.nameFields...)
	if summary != nil {
		renderer.Complete(ui.CompletionStats{
			Total:    summary.Total,
			Written:  summary.Written,
			Skipped:  summary.Skipped,
			Duration: summary.Duration,
		})

		out.Newline()
		out.Statusf("", "Total:   %d", summary.Total)
		out.Statusf("", "Written: %d", summary.Written)
		out.Statusf("", "Skipped: %d", summary.Skipped)
		out.Statusf("", "Elapsed: %s", summary.Duration)
	}
	if err != nil {
		renderer.AddError(ui.ErrorEvent{Err: err})
		out.Errorf("ingest aborted: %v", err)
		return err
	}

	out.Success("ingest complete")
	return nil
}
