// Command cpudance runs a tight counter loop and alternately freezes and
// thaws it, scenario 3: wall progress should track roughly half of elapsed
// time across the dance.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/szdytom/ssandbox/container"
	"github.com/szdytom/ssandbox/mount"
)

const iterations = 15

func main() {
	if container.Init() {
		return
	}

	cfg := container.DefaultConfig()
	cfg.TargetExecutable = "/bin/loop"
	cfg.CGroupLimits.ForkLimit = 3
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

	for i := 0; i < iterations; i++ {
		time.Sleep(time.Second)
		if err := c.Freeze(); err != nil {
			fmt.Fprintf(os.Stderr, "freeze: %v\n", err)
			break
		}
		time.Sleep(time.Second)
		if err := c.Thaw(); err != nil {
			fmt.Fprintf(os.Stderr, "thaw: %v\n", err)
			break
		}
	}

	if err := c.Terminate(); err != nil {
		fmt.Fprintf(os.Stderr, "terminate: %v\n", err)
		os.Exit(1)
	}
}
