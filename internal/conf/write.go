package conf

import (
	"os"
	"os/user"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
)

// WriteFile writes rendered configuration to its canonical location
// with the given ownership and mode. Sensitive files (slurmdbd.conf,
// key material) use 0600, the rest 0644.
func WriteFile(path, content, owner, group string, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "failed to create directory for %s", path)
	}
	if err := os.WriteFile(path, []byte(content), mode); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	if err := os.Chmod(path, mode); err != nil {
		return errors.Wrapf(err, "failed to chmod %s", path)
	}

	uid, gid, err := lookupIDs(owner, group)
	if err != nil {
		return err
	}
	if err := os.Chown(path, uid, gid); err != nil {
		return errors.Wrapf(err, "failed to chown %s to %s:%s", path, owner, group)
	}
	return nil
}

func lookupIDs(owner, group string) (int, int, error) {
	u, err := user.Lookup(owner)
	if err != nil {
		return 0, 0, errors.Wrapf(err, "unknown user %s", owner)
	}
	g, err := user.LookupGroup(group)
	if err != nil {
		return 0, 0, errors.Wrapf(err, "unknown group %s", group)
	}

	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return 0, 0, errors.Wrapf(err, "non-numeric uid for user %s", owner)
	}
	gid, err := strconv.Atoi(g.Gid)
	if err != nil {
		return 0, 0, errors.Wrapf(err, "non-numeric gid for group %s", group)
	}
	return uid, gid, nil
}
