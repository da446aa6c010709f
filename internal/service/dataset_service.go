package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"dsjson/internal/compare"
	"dsjson/internal/docstore"
	"dsjson/internal/domain"
	"dsjson/internal/jsondoc"
	"dsjson/internal/secret"
	"dsjson/internal/storage"
)

// ErrOutputBusy is returned when another run is already writing the same
// output target.
var ErrOutputBusy = errors.New("output is busy")

// ─────────────────────────────────────────────────────────────
// Dataset Service: export, import and compare runs
// ─────────────────────────────────────────────────────────────

// DatasetService moves datasets between libraries and JSON documents.
// Each run opens its own stores and closes them before returning.
type DatasetService struct {
	secrets    secret.SecretStore
	emitter    EventEmitter
	comparator domain.Comparator
	running    busyGuard

	// OpenLibrary and OpenDocuments resolve location strings; replaced in tests.
	OpenLibrary   func(ctx context.Context, location string) (storage.Library, error)
	OpenDocuments func(location string) (docstore.Store, error)
}

// NewDatasetService creates a DatasetService. A nil emitter logs events.
func NewDatasetService(secrets secret.SecretStore, emitter EventEmitter) *DatasetService {
	if emitter == nil {
		emitter = LogEmitter{}
	}
	s := &DatasetService{
		secrets:       secrets,
		emitter:       emitter,
		comparator:    compare.New(),
		OpenDocuments: docstore.Open,
	}
	s.OpenLibrary = func(ctx context.Context, location string) (storage.Library, error) {
		return storage.Open(ctx, location, s.secrets)
	}
	return s
}

// SetEmitter replaces the event sink. Front ends built after the service
// (the MCP server) attach themselves here.
func (s *DatasetService) SetEmitter(e EventEmitter) {
	if e == nil {
		e = LogEmitter{}
	}
	s.emitter = e
}

// ── Export ─────────────────────────────────────────────────

// ExportInput names a dataset in a library and the document to write.
type ExportInput struct {
	Library  string `json:"library"`
	Dataset  string `json:"dataset"`
	Output   string `json:"output"`
	Document string `json:"document"` // defaults to <dataset>.json
}

// ExportResult summarizes a completed export.
type ExportResult struct {
	Dataset  string `json:"dataset"`
	Location string `json:"location"`
	Columns  int    `json:"columns"`
	Rows     int    `json:"rows"`
	Bytes    int    `json:"bytes"`
}

// Export reads one dataset and writes it as a JSON document. A missing
// dataset fails before the output is touched.
func (s *DatasetService) Export(ctx context.Context, in ExportInput) (*ExportResult, error) {
	logger := zerolog.Ctx(ctx)
	if err := domain.ValidateName(in.Dataset); err != nil {
		return nil, err
	}
	docName := in.Document
	if docName == "" {
		docName = in.Dataset + ".json"
	}

	docs, err := s.OpenDocuments(in.Output)
	if err != nil {
		return nil, fmt.Errorf("open output: %w", err)
	}
	target := docs.Location(docName)
	if !s.running.TryLock(target) {
		return nil, fmt.Errorf("%s: %w", target, ErrOutputBusy)
	}
	defer s.running.Unlock(target)

	lib, err := s.OpenLibrary(ctx, in.Library)
	if err != nil {
		return nil, fmt.Errorf("open input library: %w", err)
	}
	defer lib.Close()

	start := time.Now()
	logger.Debug().Str("dataset", in.Dataset).Msg("reading dataset")
	ds, err := lib.ReadDataset(ctx, in.Dataset)
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", in.Dataset, err)
	}

	logger.Debug().Msg("reading dataset label")
	label, err := lib.DatasetLabel(ctx, in.Dataset)
	if err != nil {
		return nil, fmt.Errorf("read dataset label: %w", err)
	}
	ds.Label = label

	logger.Debug().Int("columns", len(ds.Columns)).Int("rows", len(ds.Rows)).Msg("encoding document")
	data, err := jsondoc.Marshal(ds)
	if err != nil {
		return nil, err
	}

	logger.Debug().Str("location", target).Msg("writing document")
	if err := docs.Write(ctx, docName, data); err != nil {
		return nil, fmt.Errorf("write document: %w", err)
	}

	result := &ExportResult{
		Dataset:  ds.Name,
		Location: target,
		Columns:  len(ds.Columns),
		Rows:     len(ds.Rows),
		Bytes:    len(data),
	}
	logger.Info().Str("dataset", ds.Name).Str("location", target).Int("rows", result.Rows).
		Dur("took", time.Since(start)).Msg("dataset exported")
	s.emitter.Emit(ctx, EventExported, result)
	return result, nil
}

// ── Import ─────────────────────────────────────────────────

// ImportInput names a document and the library dataset to create from it.
type ImportInput struct {
	Input    string `json:"input"`
	Document string `json:"document"` // defaults to <dataset>.json
	Library  string `json:"library"`
	Dataset  string `json:"dataset"`

	// Reference, when set, is a library holding a dataset of the same
	// name to compare the imported dataset against.
	Reference string `json:"reference,omitempty"`
}

// ImportResult summarizes a completed import.
type ImportResult struct {
	Dataset  string                `json:"dataset"`
	Columns  int                   `json:"columns"`
	Rows     int                   `json:"rows"`
	Warnings []jsondoc.Warning     `json:"warnings,omitempty"`
	Report   *domain.CompareReport `json:"report,omitempty"`
}

// Import decodes a JSON document and writes it as a dataset, replacing
// any dataset of the same name. An empty schema fails before anything is
// written. Data warnings are logged and returned, not raised.
func (s *DatasetService) Import(ctx context.Context, in ImportInput) (*ImportResult, error) {
	logger := zerolog.Ctx(ctx)
	if err := domain.ValidateName(in.Dataset); err != nil {
		return nil, err
	}
	docName := in.Document
	if docName == "" {
		docName = in.Dataset + ".json"
	}

	target := in.Library + "#" + in.Dataset
	if !s.running.TryLock(target) {
		return nil, fmt.Errorf("%s: %w", target, ErrOutputBusy)
	}
	defer s.running.Unlock(target)

	docs, err := s.OpenDocuments(in.Input)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}

	start := time.Now()
	logger.Debug().Str("location", docs.Location(docName)).Msg("reading document")
	data, err := docs.Read(ctx, docName)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}

	logger.Debug().Int("bytes", len(data)).Msg("decoding document")
	decoded, err := jsondoc.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", docs.Location(docName), err)
	}
	for _, w := range decoded.Warnings {
		logger.Warn().Str("kind", string(w.Kind)).Str("section", w.Section).Int("index", w.Index).
			Str("field", w.Field).Str("value", w.Value).Msg(w.Message)
	}

	ds := decoded.Dataset
	ds.Name = in.Dataset

	lib, err := s.OpenLibrary(ctx, in.Library)
	if err != nil {
		return nil, fmt.Errorf("open output library: %w", err)
	}
	defer lib.Close()

	logger.Debug().Int("columns", len(ds.Columns)).Int("rows", len(ds.Rows)).Msg("writing dataset")
	if err := lib.WriteDataset(ctx, ds); err != nil {
		return nil, fmt.Errorf("write dataset %s: %w", ds.Name, err)
	}

	result := &ImportResult{
		Dataset:  ds.Name,
		Columns:  len(ds.Columns),
		Rows:     len(ds.Rows),
		Warnings: decoded.Warnings,
	}
	logger.Info().Str("dataset", ds.Name).Int("rows", result.Rows).Int("warnings", len(result.Warnings)).
		Dur("took", time.Since(start)).Msg("dataset imported")
	s.emitter.Emit(ctx, EventImported, result)

	if in.Reference == "" {
		return result, nil
	}

	// compare against what the library actually stored
	stored, err := lib.ReadDataset(ctx, ds.Name)
	if err != nil {
		return result, fmt.Errorf("reread dataset %s: %w", ds.Name, err)
	}
	report, err := s.compareWith(ctx, in.Reference, ds.Name, stored)
	if err != nil {
		return result, err
	}
	result.Report = report
	return result, nil
}

// ── Compare ────────────────────────────────────────────────

// CompareInput names two datasets to compare.
type CompareInput struct {
	Base           string `json:"base"`
	BaseDataset    string `json:"baseDataset"`
	Compare        string `json:"compare"`
	CompareDataset string `json:"compareDataset"` // defaults to BaseDataset
}

// Compare reads two datasets and reports every difference between them.
// Differences are findings, not errors.
func (s *DatasetService) Compare(ctx context.Context, in CompareInput) (*domain.CompareReport, error) {
	name := in.CompareDataset
	if name == "" {
		name = in.BaseDataset
	}
	lib, err := s.OpenLibrary(ctx, in.Compare)
	if err != nil {
		return nil, fmt.Errorf("open compare library: %w", err)
	}
	defer lib.Close()

	ds, err := lib.ReadDataset(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("read compare dataset %s: %w", name, err)
	}
	return s.compareWith(ctx, in.Base, in.BaseDataset, ds)
}

func (s *DatasetService) compareWith(ctx context.Context, baseLocation, baseName string, other *domain.Dataset) (*domain.CompareReport, error) {
	logger := zerolog.Ctx(ctx)
	base, err := s.OpenLibrary(ctx, baseLocation)
	if err != nil {
		return nil, fmt.Errorf("open reference library: %w", err)
	}
	defer base.Close()

	logger.Debug().Str("dataset", baseName).Msg("reading reference dataset")
	ref, err := base.ReadDataset(ctx, baseName)
	if err != nil {
		return nil, fmt.Errorf("read reference dataset %s: %w", baseName, err)
	}

	report, err := s.comparator.Compare(ref, other)
	if err != nil {
		return nil, fmt.Errorf("compare: %w", err)
	}
	ev := logger.Info()
	if !report.Equal() {
		ev = logger.Warn()
	}
	ev.Str("base", report.Base).Str("compare", report.Compare).
		Int("attributeDiffs", len(report.Attributes)).Int("valueDiffs", len(report.Cells)).Msg("datasets compared")
	s.emitter.Emit(ctx, EventCompared, report)
	return report, nil
}

// ── Describe ───────────────────────────────────────────────

// Describe summarizes a document without writing anything.
func (s *DatasetService) Describe(ctx context.Context, location, document string) (*jsondoc.Summary, error) {
	docs, err := s.OpenDocuments(location)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	data, err := docs.Read(ctx, document)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return jsondoc.Describe(data)
}

// ── Lifecycle ──────────────────────────────────────────────

// WaitRunning blocks until all running exports and imports finish or ctx
// is cancelled. Used for graceful shutdown.
func (s *DatasetService) WaitRunning(ctx context.Context) {
	s.running.WaitAll(ctx)
}
