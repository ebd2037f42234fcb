package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/corvid-os/kernel/internal/x86"
)

func newFramesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "frames",
		Short: "Summarize the physical frame bitmap's usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := buildDemoContext()
			if err != nil {
				return err
			}
			if _, _, err := buildDemoTree(c); err != nil {
				return err
			}

			total := c.Bitmap.NFrames()
			used := c.Bitmap.UsedCount()
			fmt.Printf("frames: %d total, %d used, %d free (%.2f%% used)\n",
				total, used, total-used, 100*float64(used)/float64(total))
			fmt.Printf("page size: %d bytes, kernel directory at 0x%x\n", x86.PageSize, c.KernelDir.PhysAddr())
			return nil
		},
	}
}
