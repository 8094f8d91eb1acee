// Package crm is the command surface the UI drives: login, sync, commit and
// the admin alert controls, composed over the ledger.
package crm

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/leadledger/internal/anomaly"
	"github.com/sells-group/leadledger/internal/export"
	"github.com/sells-group/leadledger/internal/ledger"
	"github.com/sells-group/leadledger/internal/model"
	"github.com/sells-group/leadledger/internal/monitoring"
	"github.com/sells-group/leadledger/internal/normalize"
	"github.com/sells-group/leadledger/internal/stats"
)

// RowSource resolves a named sheet source to parsed rows.
type RowSource interface {
	URL(name string) (string, bool)
	Rows(ctx context.Context, name string) ([]map[string]string, error)
}

// Summarizer produces a summary and never fails.
type Summarizer interface {
	Summarize(ctx context.Context, company, category string) string
}

// Notifier delivers alerts raised by an observation.
type Notifier interface {
	Notify(ctx context.Context, obs *monitoring.Observation) int
}

// Deps wires a Service.
type Deps struct {
	Ledger     *ledger.Ledger
	Sources    RowSource
	Normalizer *normalize.Normalizer
	Summarizer Summarizer
	Notifier   Notifier
	Accounts   []Account
	// Master names the consolidated feed synced into the archive for admins.
	Master    string
	Threshold time.Duration
	Now       func() time.Time
}

// LoginResult is returned by a successful Login.
type LoginResult struct {
	Success  bool           `json:"success"`
	User     model.User     `json:"user"`
	Role     model.Role     `json:"role"`
	Snapshot model.Snapshot `json:"initialData"`
}

// Service implements the command surface.
type Service struct {
	ledger     *ledger.Ledger
	sources    RowSource
	normalizer *normalize.Normalizer
	summarizer Summarizer
	notifier   Notifier
	validate   *validator.Validate
	master     string
	now        func() time.Time

	accounts map[string]Account
	order    []string

	mu        sync.RWMutex
	threshold time.Duration
}

// New creates a Service.
func New(d Deps) *Service {
	s := &Service{
		ledger:     d.Ledger,
		sources:    d.Sources,
		normalizer: d.Normalizer,
		summarizer: d.Summarizer,
		notifier:   d.Notifier,
		validate:   newValidator(),
		master:     d.Master,
		now:        d.Now,
		accounts:   make(map[string]Account, len(d.Accounts)),
		threshold:  d.Threshold,
	}
	if s.normalizer == nil {
		s.normalizer = normalize.New("", "")
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.threshold <= 0 {
		s.threshold = anomaly.DefaultThreshold
	}
	for _, a := range d.Accounts {
		if _, dup := s.accounts[a.Username]; !dup {
			s.order = append(s.order, a.Username)
		}
		s.accounts[a.Username] = a
	}
	return s
}

// Login checks the allow-list and runs the initial sync. Source failures
// during that sync do not fail the login; they are reported in the
// snapshot's sync report.
func (s *Service) Login(ctx context.Context, username, password string) (LoginResult, error) {
	user, err := s.Authenticate(username, password)
	if err != nil {
		zap.L().Info("crm: login rejected", zap.String("user", username))
		return LoginResult{}, err
	}

	snap, err := s.SyncAll(ctx, user)
	if err != nil && !eris.Is(err, model.ErrSourceUnavailable) {
		return LoginResult{}, err
	}
	zap.L().Info("crm: login", zap.String("user", user.Username), zap.String("role", string(user.Role)))
	return LoginResult{Success: true, User: user, Role: user.Role, Snapshot: snap}, nil
}

// SyncAll refreshes the user's pool and, for admins, the master feed. The
// sources are fetched concurrently; a failed source leaves its partition
// untouched and is listed in the report. The snapshot is returned even when
// a source failed, alongside an error wrapping model.ErrSourceUnavailable.
func (s *Service) SyncAll(ctx context.Context, user model.User) (model.Snapshot, error) {
	report := &model.SyncReport{
		ID:        uuid.NewString(),
		StartedAt: s.now().UTC(),
	}
	var (
		mu   sync.Mutex
		errs = map[string]string{}
	)
	fail := func(name string, err error) {
		mu.Lock()
		errs[name] = err.Error()
		mu.Unlock()
	}

	var g errgroup.Group

	if acct, ok := s.accounts[user.Username]; ok {
		if src := acct.source(); s.hasSource(src) {
			g.Go(func() error {
				rows, err := s.sources.Rows(ctx, src)
				if err != nil {
					fail(src, err)
					return nil
				}
				leads := s.normalizer.NormalizeAll(rows, user.Username)
				res, err := s.ledger.SyncPool(ctx, user.Username, leads)
				if err != nil {
					fail(src, err)
					return nil
				}
				mu.Lock()
				report.PoolFetched = len(leads)
				report.PoolKept = res.Kept
				mu.Unlock()
				return nil
			})
		}
	}

	if user.IsAdmin() && s.hasSource(s.master) {
		g.Go(func() error {
			rows, err := s.sources.Rows(ctx, s.master)
			if err != nil {
				fail(s.master, err)
				return nil
			}
			added, err := s.ledger.SyncMaster(ctx, s.normalizer.NormalizeMasterAll(rows))
			if err != nil {
				fail(s.master, err)
				return nil
			}
			mu.Lock()
			report.MasterAdded = added
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()

	if len(errs) > 0 {
		report.Errors = errs
	}
	s.observe(ctx, errs)

	snap := s.snapshot(user)
	snap.Sync = report

	if len(errs) > 0 {
		names := make([]string, 0, len(errs))
		for n := range errs {
			names = append(names, n)
		}
		sort.Strings(names)
		return snap, eris.Wrapf(model.ErrSourceUnavailable, "crm: sync %v", names)
	}
	return snap, nil
}

func (s *Service) hasSource(name string) bool {
	if s.sources == nil || name == "" {
		return false
	}
	_, ok := s.sources.URL(name)
	return ok
}

// observe hands the post-sync state to the notifier.
func (s *Service) observe(ctx context.Context, sourceErrors map[string]string) {
	if s.notifier == nil {
		return
	}
	obs := &monitoring.Observation{
		Anomalies:        anomaly.Pending(s.alerts()),
		StorageRecovered: s.ledger.Recovered(),
		ArchiveSize:      len(s.ledger.Archive()),
		CollectedAt:      s.now().UTC(),
	}
	if len(sourceErrors) > 0 {
		obs.SourceErrors = sourceErrors
	}
	s.notifier.Notify(ctx, obs)
}

// Commit validates the lead and files it according to its status.
func (s *Service) Commit(ctx context.Context, user model.User, lead model.Lead) (model.Snapshot, error) {
	if err := s.validateCommit(lead); err != nil {
		return model.Snapshot{}, err
	}
	if _, err := s.ledger.Commit(ctx, user.Username, lead); err != nil {
		return model.Snapshot{}, err
	}
	return s.snapshot(user), nil
}

// Snapshot returns the user's role-scoped view without syncing.
func (s *Service) Snapshot(_ context.Context, user model.User) model.Snapshot {
	return s.snapshot(user)
}

func (s *Service) snapshot(user model.User) model.Snapshot {
	snap := model.Snapshot{
		User:      user,
		Pool:      s.ledger.Pool(user.Username),
		Tasks:     s.ledger.Tasks(user),
		Analytics: s.ledger.Analytics(user),
		Alerts:    []model.SystemAlert{},
		LastSync:  s.ledger.LastSync(),
	}
	if user.IsAdmin() {
		snap.Alerts = s.alerts()
	}
	return snap
}

func (s *Service) alerts() []model.SystemAlert {
	return anomaly.Merge(anomaly.Detect(s.ledger.Archive(), s.Threshold()), s.ledger.Acknowledged())
}

// Alerts recomputes anomalies over the archive with acknowledgements applied.
func (s *Service) Alerts(_ context.Context) []model.SystemAlert {
	return s.alerts()
}

// AcknowledgeAlert marks a currently detected alert as seen.
func (s *Service) AcknowledgeAlert(ctx context.Context, id string) error {
	for _, a := range s.alerts() {
		if a.ID == id {
			return s.ledger.AcknowledgeAlert(ctx, id)
		}
	}
	return eris.Wrapf(model.ErrAlertNotFound, "crm: acknowledge %q", id)
}

// SetThreshold changes the anomaly sensitivity at runtime.
func (s *Service) SetThreshold(d time.Duration) error {
	if d <= 0 {
		return &model.ValidationError{Field: "threshold", Message: "threshold must be positive"}
	}
	s.mu.Lock()
	s.threshold = d
	s.mu.Unlock()
	zap.L().Info("crm: anomaly threshold changed", zap.Duration("threshold", d))
	return nil
}

// Threshold returns the current anomaly threshold.
func (s *Service) Threshold() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.threshold
}

// ExportArchive writes the archive visible to user as CSV.
func (s *Service) ExportArchive(_ context.Context, user model.User, w io.Writer) error {
	return export.WriteArchiveCSV(w, s.ledger.Analytics(user))
}

// Summarize returns a summary suggestion, or the placeholder on failure.
func (s *Service) Summarize(ctx context.Context, company, category string) string {
	if s.summarizer == nil {
		return ""
	}
	return s.summarizer.Summarize(ctx, company, category)
}

// Stats computes dashboard metrics over the leads visible to user.
func (s *Service) Stats(_ context.Context, user model.User, owner string) stats.Report {
	leads := append(s.ledger.Analytics(user), s.ledger.Tasks(user)...)
	if !user.IsAdmin() {
		owner = user.Username
	}
	return stats.Compute(leads, s.Specialists(), owner, s.now())
}

// Wipe discards all ledger state. Admin only.
func (s *Service) Wipe(ctx context.Context, user model.User) error {
	if !user.IsAdmin() {
		return eris.Wrap(model.ErrUnauthorized, "crm: wipe requires admin")
	}
	return s.ledger.Wipe(ctx)
}

// Ledger exposes the underlying ledger for read-only inspection.
func (s *Service) Ledger() *ledger.Ledger {
	return s.ledger
}
