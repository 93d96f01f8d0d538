package importer

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fjacquet/firefly-preimporter/internal/common"
	"fjacquet/firefly-preimporter/internal/firefly"
	"fjacquet/firefly-preimporter/internal/models"
	"fjacquet/firefly-preimporter/internal/parsererror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_WritesSiblingCSV(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, "bank.csv", sampleCSV)
	h := newHarness(t, nil)

	code := h.run(t, Options{}, input)
	assert.Equal(t, 0, code)

	data, err := os.ReadFile(filepath.Join(dir, "bank.firefly.csv"))
	require.NoError(t, err)
	txns, err := common.UnmarshalTransactions(string(data))
	require.NoError(t, err)
	require.Len(t, txns, 2)
	assert.Equal(t, "2024-01-01", txns[0].Date)
	assert.Equal(t, "-3.50", txns[0].Amount)
	assert.Equal(t, "1000.00", txns[1].Amount)
	assert.Contains(t, h.recorder.Texts(), "bank.csv: 2 transactions, no account info")
}

func TestRun_OutputDirectoryForSeveralJobs(t *testing.T) {
	dir := t.TempDir()
	writeInput(t, dir, "a.csv", sampleCSV)
	writeInput(t, dir, "b.csv", sampleCSV)
	writeInput(t, dir, "notes.txt", "ignored")
	out := filepath.Join(t.TempDir(), "out")
	h := newHarness(t, nil)

	code := h.run(t, Options{Output: out}, dir)
	assert.Equal(t, 0, code)
	assert.FileExists(t, filepath.Join(out, "a.firefly.csv"))
	assert.FileExists(t, filepath.Join(out, "b.firefly.csv"))
}

func TestRun_OutputFileForSingleJob(t *testing.T) {
	input := writeInput(t, t.TempDir(), "bank.csv", sampleCSV)
	out := filepath.Join(t.TempDir(), "nested", "normalized.csv")
	h := newHarness(t, nil)

	assert.Equal(t, 0, h.run(t, Options{Output: out}, input))
	assert.FileExists(t, out)
}

func TestRun_ArgumentErrors(t *testing.T) {
	dir := t.TempDir()
	a := writeInput(t, dir, "a.csv", sampleCSV)
	b := writeInput(t, dir, "b.csv", sampleCSV)
	existing := writeInput(t, t.TempDir(), "existing.csv", "x")

	tests := []struct {
		name    string
		opts    Options
		targets []string
		wantErr string
	}{
		{name: "stdout with several jobs", opts: Options{Stdout: true}, targets: []string{a, b}, wantErr: "--stdout can only be used when a single job is specified"},
		{name: "stdout with output", opts: Options{Stdout: true, Output: filepath.Join(dir, "x.csv")}, targets: []string{a}, wantErr: "--stdout is incompatible with --output"},
		{name: "output file with several jobs", opts: Options{Output: existing}, targets: []string{a, b}, wantErr: ErrOutputNotDirectory.Error()},
		{name: "upload without settings", opts: Options{UploadMode: models.UploadFirefly}, targets: []string{a}, wantErr: "configuration file not found"},
		{name: "missing target", opts: Options{}, targets: []string{filepath.Join(dir, "missing.csv")}, wantErr: "path not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			code, err := New(tt.opts, h.deps).Run(context.Background(), tt.targets)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Equal(t, 1, code)
		})
	}
}

func TestRun_Stdout(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, "bank.csv", sampleCSV)
	h := newHarness(t, nil)

	assert.Equal(t, 0, h.run(t, Options{Stdout: true}, input))
	assert.True(t, strings.HasPrefix(h.stdout.String(), "transaction_id,date,description,amount\n"))
	assert.Contains(t, h.stdout.String(), ",2024-01-01,Coffee,-3.50\n")
	assert.NoFileExists(t, filepath.Join(dir, "bank.firefly.csv"))
}

func TestRun_BrokenFileDoesNotStopTheRun(t *testing.T) {
	dir := t.TempDir()
	bad := writeInput(t, dir, "a.csv", "no,header,here\n")
	writeInput(t, dir, "b.csv", sampleCSV)
	h := newHarness(t, nil)

	assert.Equal(t, 0, h.run(t, Options{}, dir))

	require.Len(t, h.recorder.Errors(), 1)
	assert.Contains(t, h.recorder.Errors()[0], "Error processing "+bad)
	assert.Contains(t, h.recorder.Errors()[0], "unable to find header row")
	assert.FileExists(t, filepath.Join(dir, "b.firefly.csv"))
}

func TestRun_FireflyUpload(t *testing.T) {
	input := writeInput(t, t.TempDir(), "bank.csv", sampleCSV)
	api := &fakeFirefly{t: t, accounts: []firefly.Account{
		{ID: "4", Attributes: firefly.AccountAttributes{Name: "Checking", AccountNumber: "CH93", CurrencyCode: "CHF"}},
	}}
	h := newHarness(t, testSettings())
	h.deps.Firefly = api

	code := h.run(t, Options{UploadMode: models.UploadFirefly, AccountID: "CH93"}, input)
	assert.Equal(t, 0, code)

	require.Len(t, api.submitted, 2)
	first := api.submitted[0].Transactions[0]
	assert.Equal(t, firefly.TypeWithdrawal, first.Type)
	assert.Equal(t, 4, *first.SourceID)
	assert.Equal(t, "CHF", first.CurrencyCode)
	assert.Equal(t, "ff-preimporter 2025-01-02 @ 03:04", first.Tags[0])
	assert.True(t, first.ErrorIfDuplicateHash)
	assert.Equal(t, 1, api.fetchCalls)
	assert.Equal(t, []string{"ff-preimporter 2025-01-02 @ 03:04"}, api.tags)
	assert.Equal(t, []string{"ff-preimporter 2025-01-02 @ 03:04"}, api.updates[1]["1"])
	assert.NoFileExists(t, strings.TrimSuffix(input, ".csv")+".firefly.csv")
}

func TestRun_FireflyDuplicateKeepsSuccessExitCode(t *testing.T) {
	input := writeInput(t, t.TempDir(), "bank.csv", sampleCSV)
	api := &fakeFirefly{
		t:        t,
		accounts: []firefly.Account{{ID: "4", Attributes: firefly.AccountAttributes{CurrencyCode: "CHF"}}},
		submitErr: func(n int) error {
			if n == 1 {
				return &parsererror.UploadError{StatusCode: http.StatusUnprocessableEntity, Body: `{"message":"Duplicate of transaction #5899."}`}
			}
			return nil
		},
	}
	h := newHarness(t, testSettings())
	h.deps.Firefly = api

	code := h.run(t, Options{UploadMode: models.UploadFirefly, AccountID: "4", UploadDuplicates: true}, input)
	assert.Equal(t, 0, code)
	assert.Len(t, api.submitted, 2)
	assert.False(t, api.submitted[0].ErrorIfDuplicateHash)
	assert.Empty(t, h.recorder.Errors())
	assert.Len(t, api.updates, 1)
}

func TestRun_FireflyFailureSetsExitCode(t *testing.T) {
	input := writeInput(t, t.TempDir(), "bank.csv", sampleCSV)
	api := &fakeFirefly{
		t:        t,
		accounts: []firefly.Account{{ID: "4", Attributes: firefly.AccountAttributes{CurrencyCode: "CHF"}}},
		submitErr: func(int) error {
			return &parsererror.UploadError{StatusCode: http.StatusUnauthorized, Body: "Unauthenticated."}
		},
	}
	h := newHarness(t, testSettings())
	h.deps.Firefly = api

	code := h.run(t, Options{UploadMode: models.UploadFirefly, AccountID: "4"}, input)
	assert.Equal(t, 1, code)
	assert.Len(t, api.submitted, 1)
	assert.Empty(t, api.tags)
}

func TestRun_FireflyDryRunIsOffline(t *testing.T) {
	input := writeInput(t, t.TempDir(), "bank.csv", sampleCSV)
	payloadFile := filepath.Join(t.TempDir(), "payloads.json")
	h := newHarness(t, testSettings())
	h.deps.Firefly = &fakeFirefly{t: t, offline: true}

	code := h.run(t, Options{UploadMode: models.UploadFirefly, DryRun: true, AccountID: "12", Output: payloadFile}, input)
	assert.Equal(t, 0, code)
	assert.Contains(t, h.recorder.Texts(), "Dry-run: skipped Firefly API upload.")

	data, err := os.ReadFile(payloadFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"source_id": 12`)
	assert.NotContains(t, string(data), "currency_code")
}

func TestRun_FireflyNothingToUpload(t *testing.T) {
	input := writeInput(t, t.TempDir(), "empty.csv", "date,description,amount\n01/01/2024,Zero,0\n")
	h := newHarness(t, testSettings())
	h.deps.Firefly = &fakeFirefly{t: t, accounts: []firefly.Account{{ID: "4", Attributes: firefly.AccountAttributes{CurrencyCode: "EUR"}}}}

	code := h.run(t, Options{UploadMode: models.UploadFirefly, AccountID: "4"}, input)
	assert.Equal(t, 0, code)
	assert.Contains(t, h.recorder.Errors(), "No transactions available for Firefly upload.")
}

func TestRun_PromptedAccountIsReused(t *testing.T) {
	dir := t.TempDir()
	writeInput(t, dir, "a.csv", sampleCSV)
	writeInput(t, dir, "b.csv", sampleCSV)
	api := &fakeFirefly{t: t, accounts: []firefly.Account{
		{ID: "8", Attributes: firefly.AccountAttributes{Name: "Checking", CurrencyCode: "CHF"}},
		{ID: "9", Attributes: firefly.AccountAttributes{Name: "Savings", CurrencyCode: "CHF"}},
	}}
	var prompts strings.Builder
	h := newHarness(t, testSettings())
	h.deps.Firefly = api
	h.deps.Prompter = NewPrompter(strings.NewReader("2\n"), &prompts, &prompts, func() int { return 80 })

	code := h.run(t, Options{UploadMode: models.UploadFirefly}, dir)
	assert.Equal(t, 0, code)

	assert.Equal(t, 1, strings.Count(prompts.String(), "Select account for"))
	assert.Contains(t, prompts.String(), "Selected: Savings")
	require.Len(t, api.submitted, 4)
	for _, payload := range api.submitted {
		split := payload.Transactions[0]
		if split.Type == firefly.TypeWithdrawal {
			assert.Equal(t, 9, *split.SourceID)
		} else {
			assert.Equal(t, 9, *split.DestinationID)
		}
	}
}

func TestRun_PromptSkip(t *testing.T) {
	input := writeInput(t, t.TempDir(), "bank.csv", sampleCSV)
	var prompts strings.Builder
	h := newHarness(t, testSettings())
	h.deps.Firefly = &fakeFirefly{t: t, accounts: []firefly.Account{{ID: "8"}}}
	h.deps.Prompter = NewPrompter(strings.NewReader("s\n"), &prompts, &prompts, nil)

	code := h.run(t, Options{UploadMode: models.UploadFirefly}, input)
	assert.Equal(t, 0, code)
	assert.Contains(t, h.recorder.Texts(), "Skipping "+input+" at user request.")
	assert.Equal(t, []string{"No transactions available for Firefly upload."}, h.recorder.Errors())
}

func TestRun_FidiUpload(t *testing.T) {
	input := writeInput(t, t.TempDir(), "bank.csv", sampleCSV)
	uploader := &fakeUploader{}
	h := newHarness(t, testSettings())
	h.deps.Fidi = uploader
	h.deps.Firefly = &fakeFirefly{t: t, offline: true}

	code := h.run(t, Options{UploadMode: models.UploadFiDI, AccountID: "7", Verbose: true}, input)
	assert.Equal(t, 0, code)

	require.Equal(t, 1, uploader.calls)
	assert.Equal(t, 7, uploader.configs[0]["default_account"])
	assert.Equal(t, true, uploader.configs[0]["ignore_duplicate_lines"])
	assert.True(t, strings.HasPrefix(uploader.csv[0], "transaction_id,date,description,amount\n"))
	assert.Contains(t, h.recorder.Texts(), "Uploaded bank.csv: 200")
	assert.Contains(t, h.recorder.Texts(), `FiDI response body: {"ok":true}`)
}

func TestRun_FidiDryRun(t *testing.T) {
	input := writeInput(t, t.TempDir(), "bank.csv", sampleCSV)
	uploader := &fakeUploader{}
	h := newHarness(t, testSettings())
	h.deps.Fidi = uploader

	code := h.run(t, Options{UploadMode: models.UploadFiDI, AccountID: "7", DryRun: true, Stdout: true}, input)
	assert.Equal(t, 0, code)
	assert.Zero(t, uploader.calls)
	assert.Contains(t, h.recorder.Texts(), "Dry-run: skipped uploading bank.csv.")
	assert.Contains(t, h.stderr.String(), "config.json (dry-run preview):")
	assert.Contains(t, h.stderr.String(), `"default_account": 7`)
}

func TestRun_FidiFailureSetsExitCode(t *testing.T) {
	dir := t.TempDir()
	writeInput(t, dir, "a.csv", sampleCSV)
	writeInput(t, dir, "b.csv", sampleCSV)
	uploader := &fakeUploader{err: &parsererror.UploadError{Target: "FiDI", StatusCode: 500, Body: "boom"}}
	h := newHarness(t, testSettings())
	h.deps.Fidi = uploader

	code := h.run(t, Options{UploadMode: models.UploadFiDI, AccountID: "7"}, dir)
	assert.Equal(t, 1, code)
	assert.Equal(t, 2, uploader.calls)
	assert.Len(t, h.recorder.Errors(), 2)
}

func TestRun_FidiInvalidAccount(t *testing.T) {
	input := writeInput(t, t.TempDir(), "bank.csv", sampleCSV)
	uploader := &fakeUploader{}
	h := newHarness(t, testSettings())
	h.deps.Fidi = uploader

	code := h.run(t, Options{UploadMode: models.UploadFiDI, AccountID: "CH93", DryRun: true}, input)
	assert.Equal(t, 0, code)
	require.Len(t, h.recorder.Errors(), 1)
	assert.Contains(t, h.recorder.Errors()[0], "account id must be numeric")
	assert.Zero(t, uploader.calls)
}

func TestIsUploadFailure(t *testing.T) {
	assert.True(t, isUploadFailure(&parsererror.UploadError{}))
	assert.False(t, isUploadFailure(errors.New("other")))
}

func TestBodySnippet(t *testing.T) {
	assert.Equal(t, "<empty response body>", bodySnippet("  \n"))
	assert.Equal(t, "ok", bodySnippet(" ok "))
	long := strings.Repeat("x", 600)
	assert.Equal(t, strings.Repeat("x", 500)+"…", bodySnippet(long))
}
