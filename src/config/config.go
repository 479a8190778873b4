package config

import (
	"net"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"btrsnap/src/snapshot"
)

// DefaultLockPath is where the process-wide advisory lock lives unless the
// config overrides it.
const DefaultLockPath = "/run/lock/btrsnap.lock"

var (
	userPattern   = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)
	domainPattern = regexp.MustCompile(`^(?i)[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?(\.[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?)+$`)
)

// Config is the full tool configuration, loaded from one YAML file per
// invocation.
type Config struct {
	Source   Source  `yaml:"source"`
	Target   *Target `yaml:"target"`
	Schedule string  `yaml:"schedule"`
	LockPath string  `yaml:"lock_path"`
}

// Source selects and configures the snapshot backend. Exactly one backend
// section must be present; currently that is btrfs.
type Source struct {
	Btrfs *BtrfsSource `yaml:"btrfs"`
}

// BtrfsSource configures the source side: where snapshots live, which
// subvolumes get snapshotted, and how they are retained.
type BtrfsSource struct {
	SnapshotPath      string    `yaml:"snapshot_path"`
	SubvolumePaths    []string  `yaml:"subvolume_paths"`
	RetentionPolicies PolicySet `yaml:"retention_policies"`
}

// Target configures where snapshots are replicated to. The remote section is
// optional; without it the target directory is on the local host.
type Target struct {
	Btrfs  *BtrfsTarget  `yaml:"btrfs"`
	Remote *RemoteTarget `yaml:"remote"`
}

type BtrfsTarget struct {
	SnapshotPath string `yaml:"snapshot_path"`
}

// RemoteTarget describes the SSH endpoint of a remote target host.
type RemoteTarget struct {
	User    string `yaml:"user"`
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

// Validate checks everything that can be checked without touching the
// filesystem or the network. Environment checks (paths exist, subvolumes are
// real, SSH answers) belong to the engine preflight.
func (c *Config) Validate() error {
	src := c.Source.Btrfs
	if src == nil {
		return errors.New("config: no supported source type configured (expected 'source.btrfs')")
	}
	if src.SnapshotPath == "" {
		return errors.New("config: 'source.btrfs.snapshot_path' is required")
	}

	if err := validateSubjects(src.SubvolumePaths); err != nil {
		return err
	}
	for _, p := range src.RetentionPolicies {
		if err := validatePolicy(p); err != nil {
			return err
		}
	}

	if c.Target != nil {
		if c.Target.Btrfs == nil || c.Target.Btrfs.SnapshotPath == "" {
			return errors.New("config: 'target.btrfs.snapshot_path' is required when a target is configured")
		}
		if c.Target.Remote != nil {
			if err := c.Target.Remote.validate(); err != nil {
				return err
			}
		}
	}

	if c.Schedule != "" {
		if _, err := cron.ParseStandard(c.Schedule); err != nil {
			return errors.Wrapf(err, "config: invalid 'schedule' %q", c.Schedule)
		}
	}
	return nil
}

func (r *RemoteTarget) validate() error {
	if r.User == "" {
		return errors.New("config: 'target.remote.user' is required")
	}
	if !userPattern.MatchString(r.User) {
		return errors.Errorf("config: 'target.remote.user' %q is not a valid username", r.User)
	}
	if r.Address == "" {
		return errors.New("config: 'target.remote.address' is required")
	}
	if net.ParseIP(r.Address) == nil && !domainPattern.MatchString(r.Address) {
		return errors.Errorf("config: 'target.remote.address' %q is neither an IP nor a domain", r.Address)
	}
	if r.Port < 1 || r.Port > 65535 {
		return errors.Errorf("config: 'target.remote.port' %d is outside 1-65535", r.Port)
	}
	return nil
}

// validateSubjects rejects subvolume paths whose rightmost component
// collides: the subject is embedded in snapshot names, so it has to be
// unique across the configured set.
func validateSubjects(paths []string) error {
	seen := make(map[string]string, len(paths))
	for _, p := range paths {
		subject := snapshot.Subject(p)
		if prev, ok := seen[subject]; ok && prev != p {
			return errors.Errorf("config: subvolume paths %q and %q produce the same subject name %q", prev, p, subject)
		}
		seen[subject] = p
	}
	return nil
}

// normalize strips trailing slashes and fills defaults after unmarshalling.
func (c *Config) normalize() {
	if c.LockPath == "" {
		c.LockPath = DefaultLockPath
	}
	if src := c.Source.Btrfs; src != nil {
		src.SnapshotPath = trimSlash(src.SnapshotPath)
		for i, p := range src.SubvolumePaths {
			src.SubvolumePaths[i] = trimSlash(p)
		}
	}
	if c.Target != nil && c.Target.Btrfs != nil {
		c.Target.Btrfs.SnapshotPath = trimSlash(c.Target.Btrfs.SnapshotPath)
	}
}

func trimSlash(p string) string {
	if p == "/" {
		return p
	}
	return strings.TrimRight(p, "/")
}
