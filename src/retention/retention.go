package retention

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"btrsnap/src/repo"
	"btrsnap/src/snapshot"
)

// ErrNoPolicies reports a retention run with an empty policy set. That is a
// configuration mistake, not a no-op: silently keeping everything would mask
// a broken config forever.
var ErrNoPolicies = errors.New("no retention policies configured")

const day = 24 * time.Hour

// Policy is one named retention rule. A snapshot is eligible for deletion
// when its age falls inside the policy window; of the eligible set the Keep
// most recent survive.
type Policy struct {
	Name       string
	MinDays    int
	MaxDays    int
	MinSeconds int
	MaxSeconds int
	Keep       int
}

// Matches reports whether an age falls inside the policy window. The age is
// bucketed into whole days plus a sub-day seconds remainder and each part is
// tested against its own inclusive range. The two tests are deliberately
// independent of each other; do not collapse them into a single elapsed
// duration comparison.
func (p Policy) Matches(age time.Duration) bool {
	days := int(age / day)
	secs := int((age % day) / time.Second)
	return days >= p.MinDays && days <= p.MaxDays &&
		secs >= p.MinSeconds && secs <= p.MaxSeconds
}

// Deleter removes one snapshot from the source repository.
type Deleter interface {
	Delete(ctx context.Context, name string) error
}

// Candidate is one planned deletion, attributed to the policy that selected
// it.
type Candidate struct {
	Policy   string
	Snapshot string
}

// Evaluator applies retention policies to the source snapshot repository.
type Evaluator struct {
	Repo     repo.Lister
	Deleter  Deleter
	Policies []Policy

	// Now is the clock used for age calculations; tests pin it.
	Now func() time.Time

	log *zap.Logger
}

func NewEvaluator(r repo.Lister, d Deleter, policies []Policy, log *zap.Logger) *Evaluator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Evaluator{Repo: r, Deleter: d, Policies: policies, Now: time.Now, log: log}
}

// Apply runs every policy in configured order. Each policy works on a fresh
// listing, so deletions from earlier policies are already gone. A failed
// listing or an unparseable snapshot name aborts the run; a failed deletion
// is logged and the loop moves on.
func (e *Evaluator) Apply(ctx context.Context) error {
	if len(e.Policies) == 0 {
		return ErrNoPolicies
	}
	var failed error
	for _, p := range e.Policies {
		names, err := e.Repo.List(ctx)
		if err != nil {
			return err
		}
		eligible, err := e.eligible(names, p)
		if err != nil {
			return err
		}
		for _, name := range excess(eligible, p.Keep) {
			if err := e.Deleter.Delete(ctx, name); err != nil {
				e.log.Error("snapshot deletion failed",
					zap.String("policy", p.Name),
					zap.String("snapshot", name),
					zap.Error(err))
				failed = multierr.Append(failed, err)
				continue
			}
			e.log.Info("snapshot deleted",
				zap.String("policy", p.Name),
				zap.String("snapshot", name))
		}
	}
	if failed != nil {
		e.log.Warn("retention finished with failed deletions",
			zap.Int("failed", len(multierr.Errors(failed))))
	}
	return nil
}

// Plan computes the deletions Apply would perform, without touching the
// repository. Later policies see the set as earlier ones would have left it.
func (e *Evaluator) Plan(ctx context.Context) ([]Candidate, error) {
	if len(e.Policies) == 0 {
		return nil, ErrNoPolicies
	}
	names, err := e.Repo.List(ctx)
	if err != nil {
		return nil, err
	}
	remaining := make(map[string]struct{}, len(names))
	for _, n := range names {
		remaining[n] = struct{}{}
	}
	var out []Candidate
	for _, p := range e.Policies {
		current := make([]string, 0, len(remaining))
		for n := range remaining {
			current = append(current, n)
		}
		eligible, err := e.eligible(current, p)
		if err != nil {
			return nil, err
		}
		for _, name := range excess(eligible, p.Keep) {
			out = append(out, Candidate{Policy: p.Name, Snapshot: name})
			delete(remaining, name)
		}
	}
	return out, nil
}

// eligible filters names by the policy window and returns them sorted
// ascending, oldest first.
func (e *Evaluator) eligible(names []string, p Policy) ([]string, error) {
	now := e.Now()
	var out []string
	for _, name := range names {
		created, err := snapshot.ParseTime(name)
		if err != nil {
			return nil, err
		}
		if p.Matches(now.Sub(created)) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out, nil
}

// excess returns the snapshots to delete: all but the keep most recent of an
// ascending-sorted eligible list.
func excess(eligible []string, keep int) []string {
	if keep >= len(eligible) {
		return nil
	}
	return eligible[:len(eligible)-keep]
}
