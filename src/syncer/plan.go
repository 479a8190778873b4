package syncer

// Step is one transfer in a sync plan. A step with an empty Base is a full
// transfer; otherwise it is an incremental transfer of Snapshot against Base.
type Step struct {
	Base     string
	Snapshot string
}

// Incremental reports whether the step has an incremental base.
func (s Step) Incremental() bool {
	return s.Base != ""
}

// Plan is an ordered sequence of transfer steps that, executed in order,
// brings the target's snapshot set up to the source's. It lives for one sync
// pass and is never persisted.
type Plan []Step

// BuildPlan computes the minimal transfer plan from a source listing (sorted
// ascending, which is creation order) to a target listing (any order, treated
// as a set).
//
// The walk tracks the latest snapshot common to both sides; each missing
// snapshot becomes an incremental against that base and then serves as the
// base for the next one, so a run of missing snapshots chains deltas instead
// of repeatedly diffing against the original common point. When the two sides
// share nothing, the oldest source snapshot has no possible incremental base
// and is sent in full first; the walk is then re-run with it counted as
// common. The walk runs at most twice.
func BuildPlan(source, target []string) Plan {
	if len(source) == 0 {
		return nil
	}
	present := make(map[string]struct{}, len(target))
	for _, name := range target {
		present[name] = struct{}{}
	}

	steps, haveCommon := incrementalSteps(source, present)
	if haveCommon {
		return steps
	}

	oldest := source[0]
	present[oldest] = struct{}{}
	steps, _ = incrementalSteps(source, present)
	return append(Plan{{Snapshot: oldest}}, steps...)
}

// incrementalSteps walks the sorted source names and emits one incremental
// step per snapshot missing from the target. haveCommon reports whether any
// source snapshot was already present on the target; until one is seen,
// missing snapshots are skipped because no incremental base exists for them.
func incrementalSteps(source []string, target map[string]struct{}) (steps Plan, haveCommon bool) {
	var base string
	for _, name := range source {
		if _, ok := target[name]; ok {
			base = name
			haveCommon = true
			continue
		}
		if base != "" {
			steps = append(steps, Step{Base: base, Snapshot: name})
			base = name
		}
	}
	return steps, haveCommon
}
