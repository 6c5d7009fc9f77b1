// Command runshell drives a default sandbox running /bin/sh against a
// read-only host image, scenario 1.
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
}
