package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newPSCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ps",
		Short: "List the demo process tree (pid, ppid, name, status, membership)",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := buildDemoContext()
			if err != nil {
				return err
			}
			_, editor, err := buildDemoTree(c)
			if err != nil {
				return err
			}
			if _, err := c.CloneThread(editor, 0x9000, 0x8050000, 0); err != nil {
				return err
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "PID\tPPID\tNAME\tSTATUS\tMEMBER")
			for _, p := range c.Table.All() {
				ppid := -1
				if parent := c.Table.Tree.Parent(p); parent != nil {
					ppid = int(parent.PID)
				}
				fmt.Fprintf(tw, "%d\t%d\t%s\t%d\t%s\n", p.PID, ppid, p.Name, p.Status, membershipName(p.Membership))
			}
			return tw.Flush()
		},
	}
}
