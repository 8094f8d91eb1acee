package crm

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sells-group/leadledger/internal/config"
	"github.com/sells-group/leadledger/internal/ledger"
	"github.com/sells-group/leadledger/internal/model"
	"github.com/sells-group/leadledger/internal/monitoring"
	"github.com/sells-group/leadledger/internal/normalize"
	"github.com/sells-group/leadledger/internal/store"
)

var fixedNow = time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

type fakeSources struct {
	mu   sync.Mutex
	rows map[string][]map[string]string
	errs map[string]error
}

func newFakeSources() *fakeSources {
	return &fakeSources{rows: map[string][]map[string]string{}, errs: map[string]error{}}
}

func (f *fakeSources) URL(name string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.rows[name]
	_, bad := f.errs[name]
	return "https://sheets.example/" + name, ok || bad
}

func (f *fakeSources) Rows(_ context.Context, name string) ([]map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[name]; err != nil {
		return nil, &model.SourceError{Source: name, Err: err}
	}
	return f.rows[name], nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	seen []*monitoring.Observation
}

func (r *recordingNotifier) Notify(_ context.Context, obs *monitoring.Observation) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, obs)
	return len(obs.Anomalies)
}

type stubSummarizer struct{}

func (stubSummarizer) Summarize(_ context.Context, company, _ string) string {
	return "Summary of " + company
}

type fixture struct {
	svc      *Service
	sources  *fakeSources
	notifier *recordingNotifier
	kv       *store.Memory
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	kv := store.NewMemory()
	led, err := ledger.Open(context.Background(), kv, ledger.Options{Now: func() time.Time { return fixedNow }})
	require.NoError(t, err)

	n := normalize.New("csv", "IN")
	n.Now = func() time.Time { return fixedNow }

	src := newFakeSources()
	notifier := &recordingNotifier{}
	svc := New(Deps{
		Ledger:     led,
		Sources:    src,
		Normalizer: n,
		Summarizer: stubSummarizer{},
		Notifier:   notifier,
		Accounts:   AccountsFromConfig(config.DefaultUsers()),
		Master:     "db",
		Now:        func() time.Time { return fixedNow },
	})
	return &fixture{svc: svc, sources: src, notifier: notifier, kv: kv}
}

var (
	kavin   = model.User{Username: "Kavin", Role: model.RoleEmployee}
	karthik = model.User{Username: "Karthik", Role: model.RoleAdmin}
)

func row(sno, company, phone string) map[string]string {
	return map[string]string{"sno": sno, "company": company, "number": phone}
}

func TestAuthenticate(t *testing.T) {
	f := newFixture(t)

	u, err := f.svc.Authenticate("Kavin", "Kavin@3")
	require.NoError(t, err)
	assert.Equal(t, kavin, u)

	u, err = f.svc.Authenticate("Karthik", "Karthik@17")
	require.NoError(t, err)
	assert.True(t, u.IsAdmin())

	_, err = f.svc.Authenticate("Kavin", "wrong")
	assert.True(t, errors.Is(err, model.ErrUnauthorized))

	_, err = f.svc.Authenticate("kavin", "Kavin@3")
	assert.True(t, errors.Is(err, model.ErrUnauthorized), "usernames match exactly")

	_, err = f.svc.Authenticate("Nobody", "x")
	assert.True(t, errors.Is(err, model.ErrUnauthorized))
}

func TestAuthenticate_BcryptHash(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)

	svc := New(Deps{Accounts: []Account{{Username: "Priya", Role: model.RoleEmployee, PasswordHash: string(hash)}}})

	_, err = svc.Authenticate("Priya", "s3cret")
	assert.NoError(t, err)
	_, err = svc.Authenticate("Priya", "nope")
	assert.Error(t, err)
}

func TestLookupAndSpecialists(t *testing.T) {
	f := newFixture(t)

	u, err := f.svc.Lookup("Karthik")
	require.NoError(t, err)
	assert.Equal(t, karthik, u)

	_, err = f.svc.Lookup("Ghost")
	assert.True(t, errors.Is(err, model.ErrUnauthorized))

	assert.Equal(t, []string{"Kavin", "Bhuvanesh", "Logesh"}, f.svc.Specialists())
}

func TestLogin_SyncsPool(t *testing.T) {
	f := newFixture(t)
	f.sources.rows["kavin"] = []map[string]string{row("1", "Acme", "9840012345"), row("2", "Beta", "9840099999")}

	res, err := f.svc.Login(context.Background(), "Kavin", "Kavin@3")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, model.RoleEmployee, res.Role)
	assert.Len(t, res.Snapshot.Pool, 2)
	assert.Empty(t, res.Snapshot.Alerts)
	require.NotNil(t, res.Snapshot.Sync)
	assert.NotEmpty(t, res.Snapshot.Sync.ID)
	assert.Equal(t, 2, res.Snapshot.Sync.PoolKept)
}

func TestLogin_Rejected(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Login(context.Background(), "Kavin", "bad")
	assert.True(t, errors.Is(err, model.ErrUnauthorized))
}

func TestLogin_SourceFailureStillSucceeds(t *testing.T) {
	f := newFixture(t)
	f.sources.errs["kavin"] = errors.New("timeout")

	res, err := f.svc.Login(context.Background(), "Kavin", "Kavin@3")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Contains(t, res.Snapshot.Sync.Errors, "kavin")
}

func TestSyncAll_SourceFailureLeavesPoolUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.sources.rows["kavin"] = []map[string]string{row("1", "Acme", "9840012345")}

	_, err := f.svc.SyncAll(ctx, kavin)
	require.NoError(t, err)

	f.sources.errs["kavin"] = errors.New("status 500")
	snap, err := f.svc.SyncAll(ctx, kavin)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrSourceUnavailable))
	assert.Len(t, snap.Pool, 1, "existing pool survives a failed fetch")
	assert.Contains(t, snap.Sync.Errors["kavin"], "status 500")

	require.NotEmpty(t, f.notifier.seen)
	last := f.notifier.seen[len(f.notifier.seen)-1]
	assert.Contains(t, last.SourceErrors, "kavin")
}

func TestSyncAll_AdminMasterAndAlerts(t *testing.T) {
	f := newFixture(t)
	f.sources.rows["db"] = []map[string]string{
		{"sno": "1", "company": "Acme", "status": "Booked", "username": "Kavin", "date&time": "2026-10-01 09:00:00"},
		{"sno": "2", "company": "Beta", "status": "declined", "username": "Kavin", "date&time": "2026-10-01 09:00:30"},
		{"sno": "3", "company": "Acme", "status": "declined", "username": "Logesh"},
	}

	snap, err := f.svc.SyncAll(context.Background(), karthik)
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Sync.MasterAdded)
	require.Len(t, snap.Analytics, 2)
	require.Len(t, snap.Alerts, 1)
	assert.Equal(t, "alert-1-2", snap.Alerts[0].ID)
	assert.Equal(t, 30, snap.Alerts[0].DeltaSeconds)

	// Specialists see their own archive but no alerts.
	emp := f.svc.Snapshot(context.Background(), kavin)
	assert.Len(t, emp.Analytics, 2)
	assert.Empty(t, emp.Alerts)
}

func TestSyncAll_EmployeeSkipsMaster(t *testing.T) {
	f := newFixture(t)
	f.sources.rows["db"] = []map[string]string{{"sno": "1", "company": "Acme", "status": "booked"}}

	snap, err := f.svc.SyncAll(context.Background(), kavin)
	require.NoError(t, err)
	assert.Zero(t, snap.Sync.MasterAdded)
	assert.Empty(t, snap.Analytics)
}

func TestCommit_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Commit(ctx, kavin, model.Lead{ID: "a", Company: "Acme", Status: model.StatusUnassigned, Summary: "fine summary"})
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "select a status", verr.Message)
	assert.Equal(t, "status", verr.Field)

	_, err = f.svc.Commit(ctx, kavin, model.Lead{ID: "a", Company: "Acme", Status: model.StatusBooked, Summary: " ab  "})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "summary too short", verr.Message)
	assert.True(t, errors.Is(err, model.ErrValidationRejected))

	_, err = f.svc.Commit(ctx, kavin, model.Lead{ID: "a", Status: model.Status("maybe"), Summary: ""})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "select a status", verr.Message, "status is reported before summary")

	assert.Empty(t, f.svc.Ledger().Archive(), "rejected commits never reach the ledger")
}

func TestValidateCommit_SummaryLengthBoundary(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name    string
		summary string
		ok      bool
	}{
		{"one short", strings.Repeat("x", MinSummaryLength-1), false},
		{"exact", strings.Repeat("x", MinSummaryLength), true},
		{"runes not bytes", strings.Repeat("é", MinSummaryLength-1), false},
		{"padding trimmed", "  " + strings.Repeat("x", MinSummaryLength-1) + "  ", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.svc.validateCommit(model.Lead{Status: model.StatusFollowUp, Summary: tt.summary})
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			var verr *model.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, "summary", verr.Field)
		})
	}
}

func TestCommit_Routes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.sources.rows["kavin"] = []map[string]string{row("1", "Acme", "9840012345"), row("2", "Beta", "9840099999")}

	snap, err := f.svc.SyncAll(ctx, kavin)
	require.NoError(t, err)
	require.Len(t, snap.Pool, 2)

	booked := snap.Pool[0]
	booked.Status = model.StatusBooked
	booked.Summary = strings.Repeat("x", MinSummaryLength)
	snap, err = f.svc.Commit(ctx, kavin, booked)
	require.NoError(t, err)
	assert.Len(t, snap.Pool, 1)
	require.Len(t, snap.Analytics, 1)
	assert.Equal(t, fixedNow, snap.Analytics[0].LastUpdatedAt)

	busy := snap.Pool[0]
	busy.Status = model.StatusBusy
	busy.Summary = "call back tomorrow"
	snap, err = f.svc.Commit(ctx, kavin, busy)
	require.NoError(t, err)
	assert.Empty(t, snap.Pool)
	assert.Len(t, snap.Tasks, 1)
}

func TestAcknowledgeAlert(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.sources.rows["db"] = []map[string]string{
		{"sno": "1", "company": "Acme", "status": "booked", "username": "Kavin", "date&time": "2026-10-01 09:00:00"},
		{"sno": "2", "company": "Beta", "status": "booked", "username": "Kavin", "date&time": "2026-10-01 09:00:10"},
	}
	_, err := f.svc.SyncAll(ctx, karthik)
	require.NoError(t, err)

	err = f.svc.AcknowledgeAlert(ctx, "alert-9-9")
	assert.True(t, errors.Is(err, model.ErrAlertNotFound))

	require.NoError(t, f.svc.AcknowledgeAlert(ctx, "alert-1-2"))
	alerts := f.svc.Alerts(ctx)
	require.Len(t, alerts, 1)
	assert.True(t, alerts[0].Acknowledged)
}

func TestThreshold(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.sources.rows["db"] = []map[string]string{
		{"sno": "1", "company": "Acme", "status": "booked", "username": "Kavin", "date&time": "2026-10-01 09:00:00"},
		{"sno": "2", "company": "Beta", "status": "booked", "username": "Kavin", "date&time": "2026-10-01 09:01:30"},
	}
	_, err := f.svc.SyncAll(ctx, karthik)
	require.NoError(t, err)

	assert.Equal(t, time.Minute, f.svc.Threshold())
	assert.Empty(t, f.svc.Alerts(ctx))

	require.NoError(t, f.svc.SetThreshold(2*time.Minute))
	assert.Len(t, f.svc.Alerts(ctx), 1)

	var verr *model.ValidationError
	assert.ErrorAs(t, f.svc.SetThreshold(0), &verr)
	assert.Equal(t, 2*time.Minute, f.svc.Threshold())
}

func TestExportArchive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Commit(ctx, kavin, model.Lead{ID: "a", SequenceNumber: "7", Company: "Acme", Phone: "9840012345", Status: model.StatusBooked, Summary: "good fit"})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, f.svc.ExportArchive(ctx, karthik, &buf))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[1], "7,Acme,9840012345,"))
	assert.Contains(t, lines[1], ",booked,good fit,Kavin,")
}

func TestSummarize(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, "Summary of Acme", f.svc.Summarize(context.Background(), "Acme", "Bakery"))

	bare := New(Deps{})
	assert.Equal(t, "", bare.Summarize(context.Background(), "Acme", "Bakery"))
}

func TestStats_ScopedToEmployee(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Commit(ctx, kavin, model.Lead{ID: "a", Company: "Acme", Phone: "9840012345", Status: model.StatusBooked, Summary: "good fit"})
	require.NoError(t, err)
	logesh := model.User{Username: "Logesh", Role: model.RoleEmployee}
	_, err = f.svc.Commit(ctx, logesh, model.Lead{ID: "b", Company: "Beta", Phone: "9840099999", Status: model.StatusDeclined, Summary: "no budget"})
	require.NoError(t, err)

	r := f.svc.Stats(ctx, kavin, "Logesh")
	assert.Equal(t, "Kavin", r.Owner)
	assert.Equal(t, 1, r.Global.Total)
	assert.Equal(t, 100, r.WinRate)

	admin := f.svc.Stats(ctx, karthik, "")
	assert.Equal(t, 2, admin.Global.Total)
	assert.Equal(t, 50, admin.WinRate)
	require.Len(t, admin.Specialists, 3)
}

func TestWipe(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Commit(ctx, kavin, model.Lead{ID: "a", Company: "Acme", Status: model.StatusBooked, Summary: "good fit"})
	require.NoError(t, err)

	assert.True(t, errors.Is(f.svc.Wipe(ctx, kavin), model.ErrUnauthorized))
	require.NoError(t, f.svc.Wipe(ctx, karthik))
	assert.Empty(t, f.svc.Ledger().Archive())

	raw, err := f.kv.Get(ctx, ledger.DefaultKey)
	require.NoError(t, err)
	assert.Nil(t, raw)
}
