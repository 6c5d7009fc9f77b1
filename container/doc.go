/*
Package container ties together the id-map writer, filesystem stage,
security policies, and cgroup policy into the sandbox's clone/sync/exec
choreography:

	Start()
	  │
	  ├─ create config/ready/report pipes
	  ├─ self-reexec clone (new UTS/IPC/PID/mount/user namespaces)
	  ├─ close parent-unused pipe ends
	  ├─ send Config to child over the config pipe
	  ├─ write uid/gid maps, attach child to its cgroup   (must finish first)
	  ├─ close ready.write                                 (releases the child)
	  └─ read report.read → nil, or *EntryError

Meanwhile the re-exec'd child (container.Init → runEntry) reads its Config,
sets its hostname, redirects stdio, mounts its filesystem, applies
capability and seccomp policy, and checks the target; it then blocks on
ready.read until the steps above finish, writes its success byte, and
execs the target.

See SPEC_FULL.md §2 for why this uses self re-exec instead of a raw
clone() with an in-process child callback.
*/
package container
