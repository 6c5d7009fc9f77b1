package main

import (
	"github.com/BurntSushi/toml"

	"github.com/szdytom/ssandbox/container"
	"github.com/szdytom/ssandbox/mount"
)

// fileConfig is the on-disk shape of a sandbox config file; it exists only
// in this example CLI driver (SPEC_FULL.md §8 — the core library's Config
// is a plain Go struct, not coupled to any file format).
type fileConfig struct {
	UID              uint64 `toml:"uid"`
	WorkingPath      string `toml:"working_path"`
	Hostname         string `toml:"hostname"`
	TargetExecutable string `toml:"target_executable"`
	InnerUID         uint32 `toml:"inner_uid"`
	InnerGID         uint32 `toml:"inner_gid"`
	Stdin            string `toml:"stdin"`
	Stdout           string `toml:"stdout"`
	Stderr           string `toml:"stderr"`

	CPULimit    uint64 `toml:"cpu_limit"`
	MemoryLimit uint64 `toml:"memory_limit"`
	ForkLimit   uint64 `toml:"fork_limit"`

	Mounts []fileMount `toml:"mount"`
}

type fileMount struct {
	Type   string `toml:"type"` // tmpfs|procfs|bind|robind|extra|sizedtmpfs
	Source string `toml:"source"`
	Inner  string `toml:"inner"`
	Target string `toml:"target"`
	Size   string `toml:"size"`
}

func (m fileMount) toAction() mount.Action {
	switch m.Type {
	case "procfs":
		return mount.ProcFs()
	case "bind":
		return mount.BindFs(m.Source)
	case "robind":
		return mount.ReadOnlyBindFs(m.Source)
	case "extra":
		return mount.ExtraFs(m.Source, m.Inner)
	case "sizedtmpfs":
		return mount.SizedTmpFs(m.Size, m.Target)
	default:
		return mount.TmpFs()
	}
}

// loadConfig reads a TOML sandbox config file, overlaying it onto
// container.DefaultConfig.
func loadConfig(path string) (*container.Config, error) {
	var fc fileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return nil, err
	}

	cfg := container.DefaultConfig()
	if fc.UID != 0 {
		cfg.UID = fc.UID
	}
	if fc.WorkingPath != "" {
		cfg.WorkingPath = fc.WorkingPath
	}
	if fc.Hostname != "" {
		cfg.Hostname = fc.Hostname
	}
	if fc.TargetExecutable != "" {
		cfg.TargetExecutable = fc.TargetExecutable
	}
	cfg.InnerUID = fc.InnerUID
	cfg.InnerGID = fc.InnerGID
	cfg.Stdin = fc.Stdin
	cfg.Stdout = fc.Stdout
	cfg.Stderr = fc.Stderr
	cfg.CGroupLimits = container.CGroupLimits{
		CPULimit:    fc.CPULimit,
		MemoryLimit: fc.MemoryLimit,
		ForkLimit:   fc.ForkLimit,
	}

	for _, m := range fc.Mounts {
		cfg.FS = append(cfg.FS, m.toAction())
	}

	return cfg, nil
}
