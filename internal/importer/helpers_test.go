package importer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"fjacquet/firefly-preimporter/internal/config"
	"fjacquet/firefly-preimporter/internal/container"
	"fjacquet/firefly-preimporter/internal/fidi"
	"fjacquet/firefly-preimporter/internal/firefly"
	"fjacquet/firefly-preimporter/internal/logging"

	"github.com/stretchr/testify/require"
)

const sampleCSV = "date,description,amount\n01/01/2024,Coffee,-3.50\n2024-01-02,Deposit,1000\n03/01/24, ,5\n"

func writeInput(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func testSettings() *config.Settings {
	return &config.Settings{
		FireflyErrorOnDuplicate: true,
		DefaultJSONConfig:       config.DefaultFidiJSONConfig(),
	}
}

// fakeFirefly is an in-memory ledger. With offline set every call fails the
// test.
type fakeFirefly struct {
	t          *testing.T
	offline    bool
	accounts   []firefly.Account
	fetchCalls int
	submitted  []firefly.Payload
	submitErr  func(n int) error
	tags       []string
	updates    map[int]map[string][]string
}

func (f *fakeFirefly) touch(call string) {
	if f.offline {
		f.t.Errorf("unexpected network call %s", call)
	}
}

func (f *fakeFirefly) FetchAssetAccounts(context.Context) ([]firefly.Account, error) {
	f.touch("FetchAssetAccounts")
	f.fetchCalls++
	return f.accounts, nil
}

func (f *fakeFirefly) SubmitTransaction(_ context.Context, payload firefly.Payload) (*firefly.UploadedGroup, error) {
	f.touch("SubmitTransaction")
	f.submitted = append(f.submitted, payload)
	n := len(f.submitted)
	if f.submitErr != nil {
		if err := f.submitErr(n); err != nil {
			return nil, err
		}
	}
	return &firefly.UploadedGroup{GroupID: n, Journals: map[string][]string{"1": {}}}, nil
}

func (f *fakeFirefly) EnsureTag(_ context.Context, tag string) error {
	f.touch("EnsureTag")
	f.tags = append(f.tags, tag)
	return nil
}

func (f *fakeFirefly) UpdateJournalTags(_ context.Context, groupID int, journals map[string][]string) error {
	f.touch("UpdateJournalTags")
	if f.updates == nil {
		f.updates = make(map[int]map[string][]string)
	}
	f.updates[groupID] = journals
	return nil
}

type fakeUploader struct {
	calls   int
	csv     []string
	configs []map[string]interface{}
	err     error
}

func (u *fakeUploader) Upload(_ context.Context, csvPayload string, jsonConfig map[string]interface{}) (*fidi.Response, error) {
	u.calls++
	u.csv = append(u.csv, csvPayload)
	u.configs = append(u.configs, jsonConfig)
	if u.err != nil {
		return nil, u.err
	}
	return &fidi.Response{StatusCode: 200, Body: `{"ok":true}`}, nil
}

type harness struct {
	recorder *logging.Recorder
	stdout   *strings.Builder
	stderr   *strings.Builder
	deps     Dependencies
}

func newHarness(t *testing.T, settings *config.Settings) *harness {
	t.Helper()
	logger := logging.NewMockLogger()
	c, err := container.NewContainer(nil, logger)
	require.NoError(t, err)

	h := &harness{recorder: &logging.Recorder{}, stdout: &strings.Builder{}, stderr: &strings.Builder{}}
	h.deps = Dependencies{
		Settings:   settings,
		Jobs:       c.GetScanner(),
		Processors: c,
		Emitter:    h.recorder,
		Logger:     logger,
		Stdout:     h.stdout,
		Stderr:     h.stderr,
		Now:        func() time.Time { return time.Date(2025, time.January, 2, 3, 4, 0, 0, time.Local) },
	}
	return h
}

func (h *harness) run(t *testing.T, opts Options, targets ...string) int {
	t.Helper()
	code, err := New(opts, h.deps).Run(context.Background(), targets)
	require.NoError(t, err)
	return code
}
