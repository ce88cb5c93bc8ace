// SPDX-License-Identifier: GPL-2.0-or-later

// Package main is the board's command-line entry point, grounded on
// waj334-sigo/cmd/sigoc/root.go's cobra.Command-with-package-level-flags
// shape. Command-line parsing lives entirely here, never in soc or
// config: per spec §6.1, the core accepts only a parsed config.Board.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/us-irs/qemu-iobc/config"
	"github.com/us-irs/qemu-iobc/debugconsole"
	"github.com/us-irs/qemu-iobc/logger"
	"github.com/us-irs/qemu-iobc/metrics"
	"github.com/us-irs/qemu-iobc/soc"
)

var opts = struct {
	configFile string
	machine    string
	bios       string
	drives     []string
	dbguSerial string
	debugHTTP  string
	console    bool
}{}

var rootCmd = &cobra.Command{
	Use:   "qemu-iobc",
	Short: "iOBC SoC peripheral emulator",
	Long: "qemu-iobc runs the AT91SAM9G20 iOBC board's peripheral model:\n" +
		"MMIO fabric, AIC, PDC, and the USART/SPI/TWI/MCI/PIT/RTT/TC/PMC/DBGU/PIO\n" +
		"register state machines, each reachable from an external process over\n" +
		"its own IOX socket.",
	RunE: run,
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&opts.configFile, "config", "", "YAML board configuration file (see config.Board)")
	flags.StringVar(&opts.machine, "machine", "isis-obc", `machine type; only "isis-obc" is supported`)
	flags.StringVar(&opts.bios, "bios", "", "NOR-flash image mapped at EBI_NCS0, duplicated into SDRAM at reset")
	flags.StringArrayVar(&opts.drives, "drive", nil, "SD card image: if=sd,index=0|1,format=raw,file=<path> (repeatable)")
	flags.StringVar(&opts.dbguSerial, "serial", "", "redirect DBGU to this character device instead of stdio")
	flags.StringVar(&opts.debugHTTP, "debug-http", "", "address for the /metrics and /debug/soc HTTP surface, e.g. localhost:9091")
	flags.BoolVar(&opts.console, "console", false, "launch the interactive terminal front panel instead of running headless")
}

// buildConfig starts from a loaded (or default) config.Board and layers
// the command-line flags on top, so a -config file supplies defaults a
// one-off flag can still override.
func buildConfig() (config.Board, error) {
	cfg := config.Default()
	if opts.configFile != "" {
		loaded, err := config.Load(opts.configFile)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	if opts.machine != "" {
		if opts.machine != "isis-obc" {
			return cfg, fmt.Errorf("unsupported machine type %q (only \"isis-obc\")", opts.machine)
		}
		cfg.MachineType = opts.machine
	}
	if opts.bios != "" {
		cfg.BIOS = opts.bios
	}
	if opts.dbguSerial != "" {
		cfg.DBGUSerial = opts.dbguSerial
	}

	for _, spec := range opts.drives {
		d, err := parseDrive(spec)
		if err != nil {
			return cfg, err
		}
		cfg.SD[d.index] = config.SDSlot{Index: d.index, Image: d.file}
	}

	return cfg, nil
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig()
	if err != nil {
		return err
	}

	s, err := soc.New(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s.Reset()

	errCh := make(chan error, 2)
	go func() { errCh <- s.Run(ctx) }()

	if opts.debugHTTP != "" {
		srv := metrics.NewServer(opts.debugHTTP, s)
		logger.Logf(logger.Allow, "main", "debug HTTP surface listening on %s", opts.debugHTTP)
		go func() { errCh <- srv.Run(ctx) }()
	}

	if opts.console {
		c, err := debugconsole.New(s)
		if err != nil {
			stop()
			<-errCh
			return err
		}
		consoleErr := c.Run()
		stop()
		if err := <-errCh; err != nil && consoleErr == nil {
			consoleErr = err
		}
		return consoleErr
	}

	select {
	case <-ctx.Done():
		return <-errCh
	case err := <-errCh:
		return err
	}
}
