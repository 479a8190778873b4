package btrfs

import (
	"context"
	"os"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"btrsnap/src/config"
	"btrsnap/src/repo"
	"btrsnap/src/retention"
	"btrsnap/src/snapshot"
	"btrsnap/src/syncer"
	"btrsnap/src/transport"
)

// Engine is the btrfs snapshot backend. It wires the repository listers,
// retention evaluator, and reconciler to the btrfs send/receive transport
// according to one loaded config.
type Engine struct {
	cfg *config.Config
	src *config.BtrfsSource
	log *zap.Logger

	// test seams; production values are set by New
	now            func() time.Time
	createSnapshot func(ctx context.Context, subvol, dest string) error
	checkSubvolume func(ctx context.Context, path string) error
}

func New(cfg *config.Config, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		cfg:            cfg,
		src:            cfg.Source.Btrfs,
		log:            log,
		now:            time.Now,
		createSnapshot: transport.CreateSnapshot,
		checkSubvolume: transport.CheckSubvolume,
	}
}

// endpoint returns the remote target endpoint, or nil for a local target or
// no target at all.
func (e *Engine) endpoint() *transport.SSHEndpoint {
	if e.cfg.Target == nil || e.cfg.Target.Remote == nil {
		return nil
	}
	r := e.cfg.Target.Remote
	return &transport.SSHEndpoint{User: r.User, Host: r.Address, Port: r.Port}
}

// Preflight checks the configured environment before any phase mutates it.
func (e *Engine) Preflight(ctx context.Context) error {
	if err := checkLocalDir(e.src.SnapshotPath); err != nil {
		return err
	}
	for _, subvol := range e.src.SubvolumePaths {
		if err := e.checkSubvolume(ctx, subvol); err != nil {
			return err
		}
	}
	if e.cfg.Target == nil {
		return nil
	}
	targetPath := e.cfg.Target.Btrfs.SnapshotPath
	if ep := e.endpoint(); ep != nil {
		if err := ep.CheckConnection(ctx); err != nil {
			return err
		}
		return ep.CheckDir(ctx, targetPath)
	}
	return checkLocalDir(targetPath)
}

// CreateSnapshots takes a read-only snapshot of every configured subvolume,
// all stamped with the same invocation time. Any failure is fatal; a half
// missing snapshot generation should be noticed, not papered over.
func (e *Engine) CreateSnapshots(ctx context.Context) error {
	if len(e.src.SubvolumePaths) == 0 {
		return errors.New("no 'source.btrfs.subvolume_paths' configured")
	}
	stamp := e.now()
	for _, subvol := range e.src.SubvolumePaths {
		name := snapshot.Name(stamp, snapshot.Subject(subvol))
		dest := e.src.SnapshotPath + "/" + name
		if err := e.createSnapshot(ctx, subvol, dest); err != nil {
			return err
		}
		e.log.Info("snapshot created",
			zap.String("subvolume", subvol),
			zap.String("snapshot", name))
	}
	return nil
}

// ListSource lists the source repository's snapshot names.
func (e *Engine) ListSource(ctx context.Context) ([]string, error) {
	return repo.Local{Dir: e.src.SnapshotPath}.List(ctx)
}

// ListTarget lists the target repository's snapshot names.
func (e *Engine) ListTarget(ctx context.Context) ([]string, error) {
	if e.cfg.Target == nil {
		return nil, syncer.ErrNoTarget
	}
	targetDir := e.cfg.Target.Btrfs.SnapshotPath
	if ep := e.endpoint(); ep != nil {
		return repo.Remote{Endpoint: *ep, Dir: targetDir}.List(ctx)
	}
	return repo.Local{Dir: targetDir}.List(ctx)
}

func (e *Engine) evaluator() *retention.Evaluator {
	ev := retention.NewEvaluator(
		repo.Local{Dir: e.src.SnapshotPath},
		transport.LocalDir{Dir: e.src.SnapshotPath},
		e.src.RetentionPolicies,
		e.log,
	)
	ev.Now = e.now
	return ev
}

func (e *Engine) PlanRetention(ctx context.Context) ([]retention.Candidate, error) {
	return e.evaluator().Plan(ctx)
}

func (e *Engine) ApplyRetention(ctx context.Context) error {
	return e.evaluator().Apply(ctx)
}

func (e *Engine) reconciler() (*syncer.Reconciler, error) {
	if e.cfg.Target == nil {
		return nil, syncer.ErrNoTarget
	}
	sourceDir := e.src.SnapshotPath
	targetDir := e.cfg.Target.Btrfs.SnapshotPath
	source := repo.Local{Dir: sourceDir}

	if ep := e.endpoint(); ep != nil {
		return syncer.NewReconciler(
			source,
			repo.Remote{Endpoint: *ep, Dir: targetDir},
			transport.NewRemoteReplicator(sourceDir, targetDir, *ep, e.log),
			transport.RemoteDir{Endpoint: *ep, Dir: targetDir},
			e.log,
		), nil
	}
	return syncer.NewReconciler(
		source,
		repo.Local{Dir: targetDir},
		transport.NewLocalReplicator(sourceDir, targetDir, e.log),
		transport.LocalDir{Dir: targetDir},
		e.log,
	), nil
}

func (e *Engine) PlanSync(ctx context.Context) (syncer.Plan, []string, error) {
	r, err := e.reconciler()
	if err != nil {
		return nil, nil, err
	}
	return r.Plan(ctx)
}

func (e *Engine) SyncToTarget(ctx context.Context) error {
	r, err := e.reconciler()
	if err != nil {
		return err
	}
	return r.Run(ctx)
}

func checkLocalDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return errors.Wrapf(err, "snapshot path %s", path)
	}
	if !info.IsDir() {
		return errors.Errorf("snapshot path %s is not a directory", path)
	}
	return nil
}
