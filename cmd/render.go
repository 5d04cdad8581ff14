package main

import (
	"context"
	"fmt"
	"image/png"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cwbudde/mandelcore/internal/cache"
	"github.com/cwbudde/mandelcore/internal/numeric/hdr"
	"github.com/cwbudde/mandelcore/internal/policy"
	"github.com/cwbudde/mandelcore/internal/render"
	"github.com/cwbudde/mandelcore/internal/render/store"
	"github.com/spf13/cobra"
)

var (
	renderCenterRe string
	renderCenterIm string
	renderWidth    float64
	renderHeight   float64
	renderImgW     uint32
	renderImgH     uint32
	renderIterCap  uint32
	renderEscapeR2 float64
	renderTauSq    float64
	renderBLA      bool
	renderOutPath  string
	renderDataDir  string
	renderJobID    string
	renderCacheMB  int64
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Run a single-shot render and write a preview PNG",
	Long:  `Renders one viewport synchronously, writing a grayscale preview image, a JSON checkpoint, and a trace summary.`,
	RunE:  runRenderOnce,
}

func init() {
	renderCmd.Flags().StringVar(&renderCenterRe, "center-re", "-0.5", "Center real part (decimal string)")
	renderCmd.Flags().StringVar(&renderCenterIm, "center-im", "0", "Center imaginary part (decimal string)")
	renderCmd.Flags().Float64Var(&renderWidth, "width", 4, "Viewport width")
	renderCmd.Flags().Float64Var(&renderHeight, "height", 4, "Viewport height")
	renderCmd.Flags().Uint32Var(&renderImgW, "image-width", 512, "Output image width in pixels")
	renderCmd.Flags().Uint32Var(&renderImgH, "image-height", 512, "Output image height in pixels")
	renderCmd.Flags().Uint32Var(&renderIterCap, "iteration-cap", 1000, "Per-pixel iteration cap")
	renderCmd.Flags().Float64Var(&renderEscapeR2, "escape-radius-sq", 65536, "Escape radius squared")
	renderCmd.Flags().Float64Var(&renderTauSq, "tau-sq", 1e-6, "Pauldelbrot glitch threshold (tau squared)")
	renderCmd.Flags().BoolVar(&renderBLA, "bla", true, "Enable bivariate linear approximation (BLA) iteration skipping")
	renderCmd.Flags().StringVar(&renderOutPath, "out", "out.png", "Preview PNG output path")
	renderCmd.Flags().StringVar(&renderDataDir, "data-dir", "./data", "Base directory for checkpoint and trace storage")
	renderCmd.Flags().StringVar(&renderJobID, "job-id", "cli", "Job ID used for the checkpoint and trace file names")
	renderCmd.Flags().Int64Var(&renderCacheMB, "cache-mb", 256, "Orbit/BLA table cache budget in megabytes")

	rootCmd.AddCommand(renderCmd)
}

func runRenderOnce(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-interrupt
		slog.Info("render cancelled by signal")
		cancel()
	}()

	cacheBytes := renderCacheMB * 1024 * 1024
	orbits := cache.NewOrbitCache(cacheBytes)
	tables := cache.NewTableCache(cacheBytes)
	driver := render.NewDriver(orbits, tables, policy.Default())

	spec := render.JobSpec{
		CenterRe:       renderCenterRe,
		CenterIm:       renderCenterIm,
		Width:          hdr.FromFloat64(renderWidth),
		Height:         hdr.FromFloat64(renderHeight),
		ImageWidthPx:   renderImgW,
		ImageHeightPx:  renderImgH,
		IterationCap:   renderIterCap,
		EscapeRadiusSq: float32(renderEscapeR2),
		TauSq:          float32(renderTauSq),
		BLAEnabled:     renderBLA,
		Cancel:         ctx,
	}

	traceWriter, err := store.NewTraceWriter(renderDataDir, renderJobID)
	if err != nil {
		return fmt.Errorf("create trace writer: %w", err)
	}
	defer traceWriter.Close()

	start := time.Now()
	buf, err := driver.Render(spec, func(rs render.RowSet, b *render.Buffer) {
		entry := store.Summarize(rs.Index, rs.Rows, b)
		if werr := traceWriter.Write(entry); werr != nil {
			slog.Warn("trace write failed", "error", werr)
		}
		slog.Info("row-set complete", "index", rs.Index, "rows", len(rs.Rows), "glitch_rate", entry.GlitchRate)
	})
	elapsed := time.Since(start)

	if buf == nil {
		return fmt.Errorf("render: %w", err)
	}

	fsStore, serr := store.NewFSStore(renderDataDir)
	if serr != nil {
		return fmt.Errorf("create checkpoint store: %w", serr)
	}
	if serr := fsStore.SaveBuffer(renderJobID, buf); serr != nil {
		return fmt.Errorf("save checkpoint: %w", serr)
	}

	outFile, ferr := os.Create(renderOutPath)
	if ferr != nil {
		return fmt.Errorf("create output file: %w", ferr)
	}
	defer outFile.Close()

	img := render.PreviewImage(buf, spec.IterationCap)
	if perr := png.Encode(outFile, img); perr != nil {
		return fmt.Errorf("encode preview png: %w", perr)
	}

	status := "completed"
	if err != nil {
		status = fmt.Sprintf("cancelled (%v)", err)
	}

	slog.Info("render finished", "status", status, "elapsed", elapsed, "job_id", renderJobID)
	fmt.Printf("Wrote %s (%s in %s)\n", renderOutPath, status, elapsed.Round(time.Millisecond))

	return nil
}
