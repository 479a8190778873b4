package retention_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"btrsnap/src/retention"
	"btrsnap/src/snapshot"
)

type fakeRepo struct {
	names []string
	err   error
}

func (f *fakeRepo) List(context.Context) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return append([]string(nil), f.names...), nil
}

// remove mimics the repository shrinking as deletions land.
func (f *fakeRepo) remove(name string) {
	out := f.names[:0]
	for _, n := range f.names {
		if n != name {
			out = append(out, n)
		}
	}
	f.names = out
}

type fakeDeleter struct {
	repo    *fakeRepo
	deleted []string
	failOn  map[string]error
}

func (f *fakeDeleter) Delete(_ context.Context, name string) error {
	if err := f.failOn[name]; err != nil {
		return err
	}
	f.deleted = append(f.deleted, name)
	if f.repo != nil {
		f.repo.remove(name)
	}
	return nil
}

var now = time.Date(2024, 6, 15, 12, 0, 0, 0, time.Local)

func daysAgo(d int) string {
	return snapshot.Name(now.Add(-time.Duration(d)*24*time.Hour), "db")
}

func newEvaluator(r *fakeRepo, d *fakeDeleter, policies ...retention.Policy) *retention.Evaluator {
	e := retention.NewEvaluator(r, d, policies, nil)
	e.Now = func() time.Time { return now }
	return e
}

func TestApplyKeepsMostRecentEligible(t *testing.T) {
	// window 0-7 days, full seconds range, keep 2, snapshots 1-5
	// days old: the 3 oldest go, the 2 newest stay.
	names := []string{daysAgo(1), daysAgo(2), daysAgo(3), daysAgo(4), daysAgo(5)}
	repo := &fakeRepo{names: names}
	del := &fakeDeleter{repo: repo}
	e := newEvaluator(repo, del, retention.Policy{
		Name: "weekly", MinDays: 0, MaxDays: 7, MinSeconds: 0, MaxSeconds: 86399, Keep: 2,
	})

	require.NoError(t, e.Apply(context.Background()))
	assert.Equal(t, []string{daysAgo(5), daysAgo(4), daysAgo(3)}, del.deleted)
	assert.ElementsMatch(t, []string{daysAgo(1), daysAgo(2)}, repo.names)
}

func TestApplyKeepCountAtLeastEligibleDeletesNothing(t *testing.T) {
	repo := &fakeRepo{names: []string{daysAgo(1), daysAgo(2)}}
	del := &fakeDeleter{repo: repo}
	e := newEvaluator(repo, del, retention.Policy{MaxDays: 7, MaxSeconds: 86399, Keep: 5})

	require.NoError(t, e.Apply(context.Background()))
	assert.Empty(t, del.deleted)
}

func TestApplyWindowBoundsAreInclusive(t *testing.T) {
	inWindow := daysAgo(3)
	below := daysAgo(2)
	above := daysAgo(4)
	repo := &fakeRepo{names: []string{below, inWindow, above}}
	del := &fakeDeleter{repo: repo}
	e := newEvaluator(repo, del, retention.Policy{
		MinDays: 3, MaxDays: 3, MinSeconds: 0, MaxSeconds: 86399, Keep: 0,
	})

	require.NoError(t, e.Apply(context.Background()))
	assert.Equal(t, []string{inWindow}, del.deleted)
}

func TestPolicyDaySecondPartsAreIndependent(t *testing.T) {
	// 2 days and 1 hour old: day part 2, seconds part 3600. A window whose
	// seconds range excludes 3600 must not match even though the total
	// elapsed duration is inside [MinDays, MaxDays+1).
	p := retention.Policy{MinDays: 0, MaxDays: 7, MinSeconds: 0, MaxSeconds: 1800}
	assert.False(t, p.Matches(2*24*time.Hour+time.Hour))
	assert.True(t, p.Matches(2*24*time.Hour+30*time.Minute))
}

func TestApplyNoPoliciesIsFatal(t *testing.T) {
	e := newEvaluator(&fakeRepo{}, &fakeDeleter{})
	require.ErrorIs(t, e.Apply(context.Background()), retention.ErrNoPolicies)
}

func TestApplyMalformedNameIsFatal(t *testing.T) {
	repo := &fakeRepo{names: []string{daysAgo(1), "lost+found"}}
	del := &fakeDeleter{repo: repo}
	e := newEvaluator(repo, del, retention.Policy{MaxDays: 7, MaxSeconds: 86399, Keep: 0})

	err := e.Apply(context.Background())
	require.ErrorIs(t, err, snapshot.ErrMalformedName)
	assert.Empty(t, del.deleted)
}

func TestApplyDeletionFailureDoesNotAbort(t *testing.T) {
	names := []string{daysAgo(1), daysAgo(2), daysAgo(3)}
	repo := &fakeRepo{names: names}
	del := &fakeDeleter{repo: repo, failOn: map[string]error{
		daysAgo(3): errors.New("subvolume busy"),
	}}
	e := newEvaluator(repo, del, retention.Policy{MaxDays: 7, MaxSeconds: 86399, Keep: 0})

	require.NoError(t, e.Apply(context.Background()))
	// the failed one is skipped, the rest still go
	assert.Equal(t, []string{daysAgo(2), daysAgo(1)}, del.deleted)
}

func TestApplyPoliciesRunIndependentlyInOrder(t *testing.T) {
	repo := &fakeRepo{names: []string{daysAgo(1), daysAgo(2), daysAgo(3), daysAgo(4)}}
	del := &fakeDeleter{repo: repo}
	e := newEvaluator(repo, del,
		retention.Policy{Name: "old", MinDays: 3, MaxDays: 7, MaxSeconds: 86399, Keep: 0},
		retention.Policy{Name: "recent", MinDays: 0, MaxDays: 2, MaxSeconds: 86399, Keep: 1},
	)

	require.NoError(t, e.Apply(context.Background()))
	assert.Equal(t, []string{daysAgo(4), daysAgo(3), daysAgo(2)}, del.deleted)
	assert.Equal(t, []string{daysAgo(1)}, repo.names)
}

func TestPlanMatchesApplyWithoutDeleting(t *testing.T) {
	repo := &fakeRepo{names: []string{daysAgo(1), daysAgo(2), daysAgo(3)}}
	del := &fakeDeleter{repo: repo}
	e := newEvaluator(repo, del, retention.Policy{
		Name: "weekly", MaxDays: 7, MaxSeconds: 86399, Keep: 1,
	})

	plan, err := e.Plan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []retention.Candidate{
		{Policy: "weekly", Snapshot: daysAgo(3)},
		{Policy: "weekly", Snapshot: daysAgo(2)},
	}, plan)
	assert.Empty(t, del.deleted)
	assert.Len(t, repo.names, 3)
}
