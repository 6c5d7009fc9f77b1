package security

import (
	"github.com/pkg/errors"
	libseccomp "github.com/seccomp/libseccomp-golang"
)

// defaultDenyNames is spec.md §4.4's standard container-escape deny list.
var defaultDenyNames = []string{
	"add_key", "bpf", "get_kernel_syms", "keyctl", "lookup_dcookie",
	"mount", "move_pages", "nfsservctl", "open_by_handle_at",
	"perf_event_open", "personality", "pivot_root", "swapon", "swapoff",
	"query_module", "request_key", "sysfs", "unshare", "umount", "umount2",
	"_sysctl", "uselib", "userfaultfd", "vm86", "vm86old",
}

// SeccompPolicy installs up to two independent seccomp filters: a
// whitelist (default deny) built from Allow, and a blacklist (default
// allow) built from Deny. The kernel composes both when both are present.
// Unknown syscall names are silently skipped.
type SeccompPolicy struct {
	Allow []string `json:"allow,omitempty"`
	Deny  []string `json:"deny,omitempty"`
}

// DefaultSeccompPolicy returns spec.md §4.4's default: empty allow, the
// standard deny list.
func DefaultSeccompPolicy() *SeccompPolicy {
	return &SeccompPolicy{Deny: append([]string(nil), defaultDenyNames...)}
}

func commonApply(defaultAction libseccomp.ScmpAction, names []string, perName libseccomp.ScmpAction) error {
	filter, err := libseccomp.NewFilter(defaultAction)
	if err != nil {
		return errors.Wrap(err, "create seccomp filter")
	}
	defer filter.Release()

	for _, name := range names {
		id, err := libseccomp.GetSyscallFromName(name)
		if err != nil {
			// Unknown syscall name on this architecture/kernel: skip it,
			// per spec.md §4.4.
			continue
		}
		if err := filter.AddRule(id, perName); err != nil {
			return errors.Wrapf(err, "add seccomp rule for %s", name)
		}
	}

	if err := filter.Load(); err != nil {
		return errors.Wrap(err, "load seccomp filter")
	}
	return nil
}

// Apply runs the whitelist pass (if Allow is non-empty) then the blacklist
// pass (if Deny is non-empty). An empty list in either phase is a no-op.
func (p *SeccompPolicy) Apply() error {
	if len(p.Allow) > 0 {
		if err := commonApply(libseccomp.ActErrno.SetReturnCode(int16(libseccompEACCES)), p.Allow, libseccomp.ActAllow); err != nil {
			return errors.Wrap(err, "whitelist pass")
		}
	}
	if len(p.Deny) > 0 {
		if err := commonApply(libseccomp.ActAllow, p.Deny, libseccomp.ActErrno.SetReturnCode(int16(libseccompEACCES))); err != nil {
			return errors.Wrap(err, "blacklist pass")
		}
	}
	return nil
}

// libseccompEACCES is EACCES's numeric value, used as the errno returned
// by denied syscalls (spec.md §4.4: default action Errno(EACCES)).
const libseccompEACCES = 13
