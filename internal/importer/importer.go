// Package importer runs the statement import: it normalizes every input,
// resolves ledger accounts and hands the result to the selected output,
// either local CSV files, the FiDI auto-upload or the Firefly III API.
package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"fjacquet/firefly-preimporter/internal/common"
	"fjacquet/firefly-preimporter/internal/config"
	"fjacquet/firefly-preimporter/internal/fidi"
	"fjacquet/firefly-preimporter/internal/firefly"
	"fjacquet/firefly-preimporter/internal/logging"
	"fjacquet/firefly-preimporter/internal/models"
	"fjacquet/firefly-preimporter/internal/parser"
	"fjacquet/firefly-preimporter/internal/parsererror"
)

const fidiBodySnippetLength = 500

// Options are the operator's choices for one run.
type Options struct {
	// AccountID is the fallback ledger account (id or account number).
	AccountID string
	// Output is a CSV file, a directory or, with the Firefly API, the
	// payload JSON file.
	Output string
	// UploadMode is models.UploadNone, UploadFirefly or UploadFiDI.
	UploadMode       string
	DryRun           bool
	UploadDuplicates bool
	Stdout           bool
	Verbose          bool
}

// UploadRequested reports whether any upload target is selected.
func (o Options) UploadRequested() bool {
	return o.UploadMode != models.UploadNone
}

// JobSource expands targets into processing jobs.
type JobSource interface {
	Gather(targets []string) ([]models.ProcessingJob, error)
}

// ProcessorRegistry returns the processor of a source format.
type ProcessorRegistry interface {
	GetProcessor(format models.SourceFormat) (parser.Processor, error)
}

// FireflyAPI is the Firefly III surface used by a run.
type FireflyAPI interface {
	AccountLister
	firefly.API
}

// FidiUploader submits one normalized file to FiDI.
type FidiUploader interface {
	Upload(ctx context.Context, csvPayload string, jsonConfig map[string]interface{}) (*fidi.Response, error)
}

// Dependencies are the collaborators of an Importer. Settings, Firefly and
// Fidi may be nil when no upload is requested.
type Dependencies struct {
	Settings   *config.Settings
	Jobs       JobSource
	Processors ProcessorRegistry
	Firefly    FireflyAPI
	Fidi       FidiUploader
	Prompter   *Prompter
	Emitter    logging.Emitter
	Logger     logging.Logger
	// Stdout receives the CSV printed by --stdout.
	Stdout io.Writer
	// Stderr receives the FiDI config preview of a --stdout dry run.
	Stderr io.Writer
	Now    func() time.Time
}

// Importer processes jobs one at a time in discovery order.
type Importer struct {
	opts Options
	deps Dependencies
}

// New returns an Importer.
func New(opts Options, deps Dependencies) *Importer {
	if deps.Logger == nil {
		deps.Logger = logging.NewLogrusAdapter("info", "text")
	}
	if deps.Emitter == nil {
		deps.Emitter = logging.EmitFunc(func(logging.Message) {})
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Stdout == nil {
		deps.Stdout = io.Discard
	}
	if deps.Stderr == nil {
		deps.Stderr = io.Discard
	}
	return &Importer{opts: opts, deps: deps}
}

// run is the state of one Run call.
type run struct {
	targets  outputTargets
	resolver *AccountResolver
	builder  *firefly.PayloadBuilder
	combined []models.Transaction
	stdout   *string
	exitCode int
}

// Run imports every target and returns the process exit code. Only hard
// upload failures yield a non-zero code; a failing or skipped file is
// reported and the run moves on. An error means the run could not start.
func (i *Importer) Run(ctx context.Context, targets []string) (int, error) {
	opts := i.opts
	if opts.UploadRequested() && i.deps.Settings == nil {
		return 1, &parsererror.ConfigurationMissingError{Path: config.DisplayPath(config.ResolvePath(""))}
	}

	jobs, err := i.deps.Jobs.Gather(targets)
	if err != nil {
		return 1, err
	}

	fireflyMode := opts.UploadMode == models.UploadFirefly
	outputs, err := resolveOutputTargets(opts.Output, len(jobs), fireflyMode)
	if err != nil {
		return 1, err
	}
	if opts.Stdout && len(jobs) != 1 {
		return 1, errors.New("--stdout can only be used when a single job is specified")
	}
	if opts.Stdout && outputs.hasCSVTarget() {
		return 1, errors.New("--stdout is incompatible with --output")
	}

	state := &run{targets: outputs, resolver: i.newResolver()}
	if fireflyMode {
		state.builder = firefly.NewPayloadBuilder(
			firefly.BatchTag(i.deps.Now()),
			i.deps.Settings.FireflyErrorOnDuplicate && !opts.UploadDuplicates,
		)
	}

	for _, job := range jobs {
		i.runJob(ctx, job, state)
	}

	if opts.Stdout {
		payload := ""
		if state.stdout != nil {
			payload = *state.stdout
		} else if payload, err = common.MarshalTransactions(state.combined); err != nil {
			return 1, err
		}
		_, _ = io.WriteString(i.deps.Stdout, payload)
	}

	if fireflyMode {
		i.finishFirefly(ctx, state)
	}
	return state.exitCode, nil
}

// newResolver keeps the resolver offline for dry runs and when no ledger
// client is configured.
func (i *Importer) newResolver() *AccountResolver {
	var lister AccountLister
	if i.deps.Firefly != nil && !i.opts.DryRun {
		lister = i.deps.Firefly
	}
	return NewAccountResolver(lister, i.opts.AccountID, i.deps.Prompter, i.deps.Logger)
}

func (i *Importer) runJob(ctx context.Context, job models.ProcessingJob, state *run) {
	emitter := i.deps.Emitter
	logger := i.deps.Logger.WithFields(
		logging.F(logging.FieldFile, job.SourcePath),
		logging.F(logging.FieldFormat, job.SourceFormat.String()))

	result, err := i.process(job)
	if err != nil {
		logger.WithError(err).Warn("Failed to process file")
		logging.Errorf(emitter, "Error processing %s: %v", job.SourcePath, err)
		return
	}

	err = i.handleResult(ctx, result, state, logger)
	switch {
	case err == nil:
	case errors.Is(err, parsererror.ErrUserSkip):
		logger.Info("File skipped at user request")
		logging.Infof(emitter, "Skipping %s at user request.", job.SourcePath)
	default:
		if isUploadFailure(err) {
			state.exitCode = 1
		}
		logger.WithError(err).Warn("Failed to import file")
		logging.Errorf(emitter, "Error processing %s: %v", job.SourcePath, err)
	}
}

func (i *Importer) process(job models.ProcessingJob) (*models.ProcessingResult, error) {
	processor, err := i.deps.Processors.GetProcessor(job.SourceFormat)
	if err != nil {
		return nil, err
	}
	return processor.Process(job)
}

func (i *Importer) handleResult(ctx context.Context, result *models.ProcessingResult, state *run, logger logging.Logger) error {
	opts := i.opts
	emitter := i.deps.Emitter

	state.combined = append(state.combined, result.Transactions...)
	logging.Infof(emitter, "%s", result.Summary())
	logger.Info("Processed file", logging.F(logging.FieldCount, len(result.Transactions)))

	if opts.Verbose && opts.UploadRequested() {
		for _, txn := range result.Transactions {
			logging.Infof(emitter, "Uploading transaction %s (%s, %s) from %s",
				txn.TransactionID, txn.Date, txn.Amount, result.Job.Name())
		}
	}
	for _, warning := range result.Warnings {
		logging.Errorf(emitter, "Warning: %s", warning)
	}

	accountID, err := state.resolver.Resolve(ctx, result, opts.UploadRequested())
	if err != nil {
		return err
	}

	if state.builder != nil && accountID != "" {
		currency, err := state.resolver.Currency(ctx, accountID)
		if err != nil {
			return err
		}
		if err := state.builder.AddResult(result, accountID, currency); err != nil {
			return err
		}
	}

	csvPayload, err := i.writeAndUpload(ctx, result, accountID, state.targets, logger)
	if opts.Stdout && csvPayload != "" {
		state.stdout = &csvPayload
	}
	return err
}

// writeAndUpload writes the normalized CSV when no upload is requested, or
// submits it to FiDI. It returns the CSV payload.
func (i *Importer) writeAndUpload(ctx context.Context, result *models.ProcessingResult, accountID string, targets outputTargets, logger logging.Logger) (string, error) {
	opts := i.opts
	emitter := i.deps.Emitter

	csvPayload, err := fidi.BuildCSVPayload(result.Transactions)
	if err != nil {
		return "", err
	}

	if !opts.UploadRequested() && !opts.Stdout {
		destination := targets.csvDestination(result.Job)
		if err := common.WriteTransactionsToCSV(result.Transactions, destination, logger); err != nil {
			return csvPayload, err
		}
		logging.Verbosef(emitter, "Wrote %s", destination)
	}

	if opts.UploadMode != models.UploadFiDI {
		return csvPayload, nil
	}
	name := result.Job.Name()
	if !result.HasTransactions() {
		logging.Verbosef(emitter, "Skipping upload for %s: no transactions found.", name)
		return csvPayload, nil
	}

	jsonConfig, err := fidi.BuildJSONConfig(i.deps.Settings, accountID, opts.UploadDuplicates)
	if err != nil {
		return csvPayload, err
	}
	configPreview, err := json.MarshalIndent(jsonConfig, "", "  ")
	if err != nil {
		return csvPayload, fmt.Errorf("failed to encode import configuration: %w", err)
	}

	if opts.DryRun {
		if opts.Stdout {
			_, _ = fmt.Fprintln(i.deps.Stderr, "config.json (dry-run preview):")
			_, _ = fmt.Fprintln(i.deps.Stderr, string(configPreview))
		}
		logging.Infof(emitter, "Dry-run: skipped uploading %s.", name)
		return csvPayload, nil
	}
	if i.deps.Fidi == nil {
		return csvPayload, errors.New("FiDI upload requested but no uploader is configured")
	}

	logging.Verbosef(emitter, "FiDI config payload: %s", configPreview)
	resp, err := i.deps.Fidi.Upload(ctx, csvPayload, jsonConfig)
	if err != nil {
		return csvPayload, err
	}
	logger.Info("Uploaded file to FiDI", logging.F(logging.FieldStatus, resp.StatusCode))
	logging.Infof(emitter, "Uploaded %s: %d", name, resp.StatusCode)
	logging.Verbosef(emitter, "FiDI response body: %s", bodySnippet(resp.Body))
	return csvPayload, nil
}

// finishFirefly writes and submits the accumulated payloads.
func (i *Importer) finishFirefly(ctx context.Context, state *run) {
	emitter := i.deps.Emitter
	if !state.builder.HasPayloads() {
		logging.Errorf(emitter, "No transactions available for Firefly upload.")
		return
	}
	payloads := state.builder.ToPayloads()

	if state.targets.payloadFile != "" {
		if err := firefly.WritePayloads(payloads, state.targets.payloadFile, i.deps.Logger); err != nil {
			logging.Errorf(emitter, "Failed to write Firefly payloads: %v", err)
		} else {
			logging.Infof(emitter, "Wrote %d Firefly payloads to %s", len(payloads), state.targets.payloadFile)
		}
	}

	if i.opts.DryRun {
		if preview, err := json.MarshalIndent(payloads, "", "  "); err == nil {
			logging.Verbosef(emitter, "Firefly payloads: %s", preview)
		}
		logging.Infof(emitter, "Dry-run: skipped Firefly API upload.")
		return
	}
	if i.deps.Firefly == nil {
		logging.Errorf(emitter, "Firefly upload requested but no API client is configured.")
		state.exitCode = 1
		return
	}

	if _, err := firefly.UploadPayloads(ctx, i.deps.Firefly, payloads, emitter, state.builder.Tag); err != nil {
		i.deps.Logger.WithError(err).Error("Firefly upload failed")
		state.exitCode = 1
	}
}

// isUploadFailure reports whether err came back from a remote service.
func isUploadFailure(err error) bool {
	var upErr *parsererror.UploadError
	return errors.As(err, &upErr)
}

func bodySnippet(body string) string {
	snippet := []rune(strings.TrimSpace(body))
	if len(snippet) == 0 {
		return "<empty response body>"
	}
	if len(snippet) > fidiBodySnippetLength {
		return string(snippet[:fidiBodySnippetLength]) + "…"
	}
	return string(snippet)
}
