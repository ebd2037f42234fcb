package main

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/spf13/cobra"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/corvid-os/kernel/internal/kernel"
	"github.com/corvid-os/kernel/internal/proc"
)

func newSnapshotCommand() *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Render a PNG of the demo scheduler state (ready queue, sleepers, reap queue)",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := buildDemoContext()
			if err != nil {
				return err
			}
			if _, _, err := buildDemoTree(c); err != nil {
				return err
			}

			img, err := renderSnapshot(c)
			if err != nil {
				return err
			}

			f, err := os.Create(outPath)
			if err != nil {
				return err
			}
			defer f.Close()
			return png.Encode(f, img)
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "kernel-snapshot.png", "output PNG path")
	return cmd
}

const (
	snapshotWidth  = 640
	snapshotHeight = 360
	boxSize        = 48
	boxGap         = 10
	rowHeight      = boxSize + 28
)

type row struct {
	label string
	fill  color.Color
	procs []*proc.Process
}

// renderSnapshot draws one labeled row per queue (current, ready,
// sleeping, finished-awaiting-reap) with one box per process in it, using
// gg for the shapes and a freetype-rasterized label under each box — the
// same graphics stack the teacher kernel uses to draw its own
// framebuffer contents (gg_circle_qemu.go), repurposed here to visualize
// kernel.Context state rather than a real display.
func renderSnapshot(c *kernel.Context) (image.Image, error) {
	canvas := gg.NewContext(snapshotWidth, snapshotHeight)
	canvas.SetColor(color.White)
	canvas.Clear()

	face, err := loadLabelFace(13)
	if err != nil {
		return nil, err
	}
	canvas.SetFontFace(face)

	rows := classify(c)
	for i, r := range rows {
		drawRow(canvas, r, 20+float64(i)*rowHeight)
	}

	canvas.SetColor(color.Black)
	canvas.DrawStringAnchored(
		fmt.Sprintf("frames used: %d/%d    pid counter next: %d",
			c.Bitmap.UsedCount(), c.Bitmap.NFrames(), len(c.Table.All())+1),
		20, snapshotHeight-16, 0, 0.5)

	return canvas.Image(), nil
}

// classify buckets every live process in c by the same membership
// invariant internal/sched and internal/sleepwait enforce, plus a
// "finished, awaiting reap" bucket for processes TaskExit has marked but
// SwitchNext hasn't yet drained.
func classify(c *kernel.Context) []row {
	rows := []row{
		{label: "current", fill: color.RGBA{R: 0x2a, G: 0x7a, B: 0x2a, A: 0xff}},
		{label: "ready", fill: color.RGBA{R: 0x2a, G: 0x4a, B: 0x9a, A: 0xff}},
		{label: "sleeping", fill: color.RGBA{R: 0x9a, G: 0x6a, B: 0x1a, A: 0xff}},
		{label: "awaiting reap", fill: color.RGBA{R: 0x9a, G: 0x2a, B: 0x2a, A: 0xff}},
	}

	if c.Current != nil {
		rows[0].procs = append(rows[0].procs, c.Current)
	}
	for _, p := range c.Table.All() {
		switch {
		case p == c.Current:
			// already placed above
		case p.Finished && !p.Reaped:
			rows[3].procs = append(rows[3].procs, p)
		case p.Membership == proc.MemberReady:
			rows[1].procs = append(rows[1].procs, p)
		case p.Membership == proc.MemberSleeper:
			rows[2].procs = append(rows[2].procs, p)
		}
	}
	return rows
}

func drawRow(canvas *gg.Context, r row, y float64) {
	canvas.SetColor(color.Black)
	canvas.DrawStringAnchored(r.label, 20, y, 0, 0)

	x := 20.0
	for _, p := range r.procs {
		canvas.SetColor(r.fill)
		canvas.DrawRoundedRectangle(x, y+14, boxSize, boxSize, 6)
		canvas.Fill()

		canvas.SetColor(color.White)
		canvas.DrawStringAnchored(fmt.Sprintf("%d", p.PID), x+boxSize/2, y+14+boxSize/2, 0.5, 0.5)

		x += boxSize + boxGap
	}
}

// loadLabelFace parses the embedded Go Regular TTF via
// golang.org/x/image/font/gofont and golang/freetype/truetype — the same
// pairing gg.LoadFontFace uses for a file path — so this tool never needs
// a font file on disk.
func loadLabelFace(points float64) (font.Face, error) {
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("kernelctl: parse embedded font: %w", err)
	}
	return truetype.NewFace(f, &truetype.Options{Size: points, DPI: 72}), nil
}
