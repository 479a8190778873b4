package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"btrsnap/src/retention"
)

const fullConfig = `
source:
  btrfs:
    snapshot_path: /snaps/
    subvolume_paths:
      - /data/home/
      - /data/www
    retention_policies:
      recent: [0, 7, 0, 86399, 24]
      weekly: [8, 31, 0, 86399, 4]
target:
  btrfs:
    snapshot_path: /backup/snaps/
  remote:
    user: root
    address: 10.0.0.2
    port: 22
schedule: "30 3 * * *"
`

func parseString(t *testing.T, s string) (*Config, error) {
	t.Helper()
	return parse([]byte(s))
}

func TestParseFullConfig(t *testing.T) {
	cfg, err := parseString(t, fullConfig)
	require.NoError(t, err)

	assert.Equal(t, "/snaps", cfg.Source.Btrfs.SnapshotPath)
	assert.Equal(t, []string{"/data/home", "/data/www"}, cfg.Source.Btrfs.SubvolumePaths)
	assert.Equal(t, "/backup/snaps", cfg.Target.Btrfs.SnapshotPath)
	assert.Equal(t, "root", cfg.Target.Remote.User)
	assert.Equal(t, 22, cfg.Target.Remote.Port)
	assert.Equal(t, DefaultLockPath, cfg.LockPath)
}

func TestParsePreservesPolicyOrder(t *testing.T) {
	cfg, err := parseString(t, fullConfig)
	require.NoError(t, err)

	policies := []retention.Policy(cfg.Source.Btrfs.RetentionPolicies)
	require.Len(t, policies, 2)
	assert.Equal(t, "recent", policies[0].Name)
	assert.Equal(t, retention.Policy{
		Name: "recent", MinDays: 0, MaxDays: 7, MinSeconds: 0, MaxSeconds: 86399, Keep: 24,
	}, policies[0])
	assert.Equal(t, "weekly", policies[1].Name)
}

func TestParseMinimalSourceOnlyConfig(t *testing.T) {
	cfg, err := parseString(t, `
source:
  btrfs:
    snapshot_path: /snaps
`)
	require.NoError(t, err)
	assert.Nil(t, cfg.Target)
	assert.Empty(t, cfg.Schedule)
}

func TestParseRejectsUnknownSourceType(t *testing.T) {
	_, err := parseString(t, `
source:
  borg:
    repo_path: /borg
`)
	require.Error(t, err)
}

func TestParseRejectsMissingSnapshotPath(t *testing.T) {
	_, err := parseString(t, `
source:
  btrfs:
    subvolume_paths: [/data/home]
`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "snapshot_path")
}

func TestParseRejectsDuplicateSubjects(t *testing.T) {
	_, err := parseString(t, `
source:
  btrfs:
    snapshot_path: /snaps
    subvolume_paths:
      - /data/home
      - /mnt/other/home
`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "same subject name")
}

func TestParseRejectsBadPolicyShape(t *testing.T) {
	_, err := parseString(t, `
source:
  btrfs:
    snapshot_path: /snaps
    retention_policies:
      short: [0, 7, 0]
`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly 5 integers")
}

func TestParseRejectsInvertedPolicyBounds(t *testing.T) {
	_, err := parseString(t, `
source:
  btrfs:
    snapshot_path: /snaps
    retention_policies:
      flipped: [7, 0, 0, 86399, 2]
`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "minDays > maxDays")
}

func TestParseTargetValidation(t *testing.T) {
	base := `
source:
  btrfs:
    snapshot_path: /snaps
target:
  btrfs:
    snapshot_path: /backup
  remote:
    user: %s
    address: %s
    port: %d
`
	cases := []struct {
		name          string
		user, address string
		port          int
		wantErr       string
	}{
		{"valid ip", "backup-user", "192.168.1.10", 22, ""},
		{"valid domain", "backup.user", "nas.example.org", 2222, ""},
		{"bad user", "bad user!", "10.0.0.2", 22, "not a valid username"},
		{"bad address", "root", "not_a_host_", 22, "neither an IP nor a domain"},
		{"bad port", "root", "10.0.0.2", 70000, "outside 1-65535"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			yamlText := fmt.Sprintf(base, tc.user, tc.address, tc.port)
			_, err := parseString(t, yamlText)
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestParseRejectsBadSchedule(t *testing.T) {
	_, err := parseString(t, `
source:
  btrfs:
    snapshot_path: /snaps
schedule: "not a cron spec"
`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schedule")
}

func TestLoadExpandsEnvPlaceholders(t *testing.T) {
	t.Setenv("BTRSNAP_TEST_HOST", "nas.example.org")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
source:
  btrfs:
    snapshot_path: /snaps
target:
  btrfs:
    snapshot_path: /backup
  remote:
    user: root
    address: $(BTRSNAP_TEST_HOST)
    port: 22
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "nas.example.org", cfg.Target.Remote.Address)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
