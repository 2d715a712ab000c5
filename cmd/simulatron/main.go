// Command simulatron boots a Simulatron machine from a ROM image and two
// disk directories, wiring the real terminal as the keyboard/display
// front end. It replaces the teacher's `os.Args[1:]` image-list loop
// with a proper `run` subcommand once there is more than one boot
// parameter to name.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/cjriches/simulatron/cpu"
	"github.com/cjriches/simulatron/host"
	"github.com/cjriches/simulatron/machine"
	"github.com/spf13/cobra"
)

func main() {
	var (
		romPath      string
		diskADir     string
		diskBDir     string
		denseRAM     bool
		displayFPS   int
		traceFetches bool
	)

	rootCmd := &cobra.Command{
		Use:     "simulatron",
		Short:   "Simulatron virtual machine",
		Version: cpu.Version,
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Boot a machine from a ROM image and two disk directories",
		Run: func(cmd *cobra.Command, args []string) {
			if err := run(romPath, diskADir, diskBDir, denseRAM, displayFPS, traceFetches); err != nil {
				log.Fatalf("simulatron: %v", err)
			}
		},
	}
	runCmd.Flags().StringVar(&romPath, "rom", "", "path to the ROM image (required)")
	runCmd.Flags().StringVar(&diskADir, "disk-a", "", "directory backing disk controller A (required)")
	runCmd.Flags().StringVar(&diskBDir, "disk-b", "", "directory backing disk controller B (required)")
	runCmd.Flags().BoolVar(&denseRAM, "dense-ram", false, "use a flat array RAM backing instead of the sparse, page-based default")
	runCmd.Flags().IntVar(&displayFPS, "display-fps", 30, "display redraw rate")
	runCmd.Flags().BoolVar(&traceFetches, "trace", false, "log every decoded instruction")
	for _, name := range []string{"rom", "disk-a", "disk-b"} {
		if err := runCmd.MarkFlagRequired(name); err != nil {
			log.Fatalf("simulatron: %v", err)
		}
	}

	rootCmd.AddCommand(runCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(romPath, diskADir, diskBDir string, dense bool, displayFPS int, trace bool) error {
	for _, dir := range []string{diskADir, diskBDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			return fmt.Errorf("disk directory %s does not exist", dir)
		}
	}
	if _, err := os.Stat(romPath); err != nil {
		return fmt.Errorf("ROM file %s does not exist", romPath)
	}

	m, err := machine.New(machine.Config{
		ROMPath:  romPath,
		DiskADir: diskADir,
		DiskBDir: diskBDir,
		Dense:    dense,
	})
	if err != nil {
		return fmt.Errorf("booting machine: %w", err)
	}
	m.CPU.Trace = trace

	kbd, err := host.NewKeyboard(m.Keyboard)
	if err != nil {
		return fmt.Errorf("enabling raw terminal mode: %w", err)
	}
	defer kbd.Stop()

	disp := host.NewDisplay(os.Stdout, m.Display, time.Second/time.Duration(displayFPS))
	defer disp.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	done := make(chan struct{})
	go func() {
		m.Run()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		log.Printf("simulatron: interrupted, shutting down")
	}
	m.Shutdown()
	return nil
}
