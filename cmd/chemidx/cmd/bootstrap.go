package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/chemidx/chemidx/internal/chem"
	"github.com/chemidx/chemidx/internal/chemindex"
	"github.com/chemidx/chemidx/internal/config"
	"github.com/chemidx/chemidx/internal/fingerprint"
	"github.com/chemidx/chemidx/internal/resource"
	"github.com/chemidx/chemidx/internal/store"
)

// sidecarName is the chemidx.yaml file recording the fingerprint
// settings an index directory was built with.
const sidecarName = "chemidx.yaml"

// openFacade loads configuration for dir, checks it against any
// recorded fingerprint signature, loads the native toolkit, and wires
// together the tracker, fingerprint engine, store, and facade. It
// records (or creates) the sidecar file on first use of a directory.
func openFacade(dir string) (*chemindex.Facade, *config.Config, error) {
	cfg, err := config.Load(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("loading configuration: %w", err)
	}

	sidecarPath := filepath.Join(dir, sidecarName)
	if stored, statErr := readStoredSignature(sidecarPath); statErr == nil {
		if driftErr := config.CheckDrift(cfg.Signature(), stored); driftErr != nil {
			return nil, nil, driftErr
		}
	} else if !os.IsNotExist(statErr) {
		return nil, nil, fmt.Errorf("reading existing %s: %w", sidecarName, statErr)
	} else {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("creating index directory: %w", err)
		}
		if err := cfg.WriteYAML(sidecarPath); err != nil {
			return nil, nil, fmt.Errorf("writing %s: %w", sidecarName, err)
		}
	}

	resolvedLib := libPath
	if resolvedLib == "" {
		resolvedLib = os.Getenv("CHEMIDX_LIBRARY_PATH")
	}
	if resolvedLib == "" {
		return nil, nil, fmt.Errorf("no native chemistry toolkit library path given; pass --lib or set CHEMIDX_LIBRARY_PATH")
	}

	toolkit, err := chem.Open(resolvedLib)
	if err != nil {
		return nil, nil, err
	}

	tracker := resource.New(resource.WithQuarantineDelay(
		time.Duration(cfg.Cleanup.QuarantineDelayMS) * time.Millisecond))

	engine := fingerprint.New(toolkit, tracker,
		fingerprint.StructureSettings(cfg.Fingerprint.Width, cfg.Fingerprint.AvalonBitFlags),
		fingerprint.QuerySettings(cfg.Fingerprint.Width, cfg.Fingerprint.AvalonBitFlags))

	st := store.New(dir)

	facade, err := chemindex.New(st, toolkit, tracker, engine,
		chemindex.WithConsecutiveErrorLimit(cfg.Ingest.ConsecutiveErrorLimit),
		chemindex.WithSubstructureCandidateCap(cfg.Substructure.CandidateCap))
	if err != nil {
		return nil, nil, err
	}

	return facade, cfg, nil
}

// readStoredSignature reads just the fingerprint section of an existing
// chemidx.yaml sidecar, without merging it against defaults or
// environment overrides, so it reflects exactly what the index on disk
// was built with.
func readStoredSignature(path string) (config.FingerprintSignature, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return config.FingerprintSignature{}, err
	}

	var doc struct {
		Fingerprint config.FingerprintSignature `yaml:"fingerprint"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return config.FingerprintSignature{}, err
	}
	return doc.Fingerprint, nil
}
