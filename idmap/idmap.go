// Package idmap writes the single-entry uid/gid maps that hand a sandboxed
// child the identity it runs as inside its own user namespace.
package idmap

import (
	"fmt"
	"os"

	specs "github.com/opencontainers/runtime-spec/specs-go"
	"github.com/pkg/errors"
)

// Mapping is a single uid or gid range. It is the OCI runtime-spec
// LinuxIDMapping type itself (ContainerID/HostID/Size), not merely shaped
// like it, so a Mapping can be dropped straight into spec.Linux.UIDMappings
// / GIDMappings if this package is ever asked to emit an OCI bundle.
type Mapping = specs.LinuxIDMapping

func singleEntry(m Mapping) []byte {
	return []byte(fmt.Sprintf("%d %d %d\n", m.ContainerID, m.HostID, m.Size))
}

func writeMap(pid int, file string, m Mapping) error {
	path := fmt.Sprintf("/proc/%d/%s", pid, file)
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	// The kernel requires uid_map/gid_map to be written in a single
	// write(2) call; os.File.Write on a freshly opened file satisfies
	// that as long as the buffer fits one syscall, which a one-line
	// mapping always does.
	if _, err := f.Write(singleEntry(m)); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	return nil
}

// WriteUID writes pid's uid_map, mapping innerUID (inside the new user
// namespace) to outerUID (the privileged parent's effective uid).
func WriteUID(pid int, innerUID, outerUID uint32) error {
	return writeMap(pid, "uid_map", Mapping{ContainerID: innerUID, HostID: outerUID, Size: 1})
}

// WriteGID writes pid's gid_map, mapping innerGID to outerGID.
func WriteGID(pid int, innerGID, outerGID uint32) error {
	return writeMap(pid, "gid_map", Mapping{ContainerID: innerGID, HostID: outerGID, Size: 1})
}

// WriteIdentity writes both maps for pid, mapping innerUID/innerGID to the
// calling process's own effective uid/gid. This must run from outside pid's
// user namespace, before pid performs any setuid/setgid-sensitive call.
func WriteIdentity(pid int, innerUID, innerGID uint32) error {
	if err := WriteUID(pid, innerUID, uint32(os.Geteuid())); err != nil {
		return err
	}
	if err := WriteGID(pid, innerGID, uint32(os.Getegid())); err != nil {
		return err
	}
	return nil
}
