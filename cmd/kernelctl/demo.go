package main

import (
	"io"

	"github.com/sirupsen/logrus"

	"github.com/corvid-os/kernel/internal/kernel"
	"github.com/corvid-os/kernel/internal/proc"
)

// buildDemoContext creates a fresh kernel.Context sized for interactive
// poking: a small physical memory arena, a kernel directory, and init
// (PID 1) as the sole running process. Subcommands grow the process tree
// from there.
func buildDemoContext() (*kernel.Context, error) {
	l := logrus.New()
	if log.GetLevel() < logrus.DebugLevel {
		l.SetOutput(io.Discard)
	} else {
		l.SetLevel(log.GetLevel())
	}

	return kernel.NewContext(kernel.Config{
		Frames:         4096,
		SharedBoundary: 768,
		KernelImageEnd: 0x100000,
		HeapCeiling:    0x40000000,
	}, l)
}

// buildDemoTree forks a shell off init and an editor off the shell, a
// small process tree representative enough to render and list.
func buildDemoTree(c *kernel.Context) (shell, editor *proc.Process, err error) {
	shell, err = c.Fork(c.Current)
	if err != nil {
		return nil, nil, err
	}
	shell.Name = "shell"

	editor, err = c.Fork(shell)
	if err != nil {
		return nil, nil, err
	}
	editor.Name = "editor"
	return shell, editor, nil
}
