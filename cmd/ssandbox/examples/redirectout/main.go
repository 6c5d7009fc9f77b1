// Command redirectout runs /usr/bin/id with stdout captured to a host file
// under fork and memory limits, scenario 2.
package main

import (
	"fmt"
	"os"

	"github.com/szdytom/ssandbox/container"
	"github.com/szdytom/ssandbox/mount"
)

func main() {
	if container.Init() {
		return
	}

	cfg := container.DefaultConfig()
	cfg.TargetExecutable = "/usr/bin/id"
	cfg.Stdout = "/root/sandbox/io/output.txt"
	cfg.CGroupLimits.ForkLimit = 10
	cfg.CGroupLimits.MemoryLimit = 512 * 1024 * 1024
	cfg.FS = []mount.Action{
		mount.TmpFs(),
		mount.ProcFs(),
		mount.ReadOnlyBindFs("/root/sandbox/image"),
	}

	c := container.New(cfg)
	if err := c.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "start: %v\n", err)
		os.Exit(1)
	}
	defer c.Delete()

	if err := c.Wait(); err != nil {
		fmt.Fprintf(os.Stderr, "wait: %v\n", err)
		os.Exit(1)
	}

	out, err := os.ReadFile(cfg.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read output: %v\n", err)
		os.Exit(1)
	}
	fmt.Print(string(out))
}
