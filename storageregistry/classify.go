package storageregistry

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/INLOpen/journalset/core"
)

// parseMagic parses the hex-encoded filesystem magic number that marks a
// directory as non-local storage (config.StorageConfig.NonLocalStatfsMagicHex,
// defaulting to NFS_SUPER_MAGIC).
func parseMagic(hex string) (int64, error) {
	hex = strings.TrimPrefix(strings.TrimSpace(hex), "0x")
	v, err := strconv.ParseInt(hex, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("storageregistry: invalid non-local statfs magic %q: %w", hex, err)
	}
	return v, nil
}

// classifyDirectory asks the kernel for the filesystem type backing dir and
// reports it as shared storage if its magic number matches nonLocalMagic,
// local otherwise. A Statfs failure (directory missing, permission denied)
// is reported up rather than guessed at.
func classifyDirectory(dir string, nonLocalMagic int64) (core.StorageLocationType, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(dir, &st); err != nil {
		return core.StorageLocal, fmt.Errorf("storageregistry: statfs %s: %w", dir, err)
	}
	if int64(st.Type) == nonLocalMagic {
		return core.StorageShared, nil
	}
	return core.StorageLocal, nil
}
