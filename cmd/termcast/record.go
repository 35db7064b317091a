package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/artpar/termcast/internal/cast"
	"github.com/artpar/termcast/internal/clock"
	"github.com/artpar/termcast/internal/hub"
	"github.com/artpar/termcast/internal/logging"
	"github.com/artpar/termcast/internal/monitor"
	"github.com/artpar/termcast/internal/ptyhost"
	"github.com/artpar/termcast/internal/recorder"
	"github.com/artpar/termcast/internal/session"
	"github.com/artpar/termcast/internal/termctl"
)

var (
	recordShell             string
	recordOutput            string
	recordMonitor           bool
	recordMonitorHost       string
	recordMonitorPort       int
	recordMonitorBufferSize int
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record a shell session to a cast file",
	RunE:  runRecord,
}

func init() {
	recordCmd.Flags().StringVar(&recordShell, "shell", "", "shell to record (default: $SHELL or /bin/sh)")
	recordCmd.Flags().StringVar(&recordOutput, "output", "", "output cast file path (default: recording_<timestamp>.cast)")
	recordCmd.Flags().BoolVar(&recordMonitor, "monitor", false, "enable the live push front-end")
	recordCmd.Flags().StringVar(&recordMonitorHost, "monitor-host", "localhost", "host to bind the monitor listeners to")
	recordCmd.Flags().IntVar(&recordMonitorPort, "monitor-port", 8888, "monitor HTTP port (push endpoint is port+1)")
	recordCmd.Flags().IntVar(&recordMonitorBufferSize, "monitor-buffer-size", 1000, "replay buffer capacity")
}

func runRecord(cmd *cobra.Command, args []string) error {
	shell := recordShell
	if shell == "" {
		shell = os.Getenv("SHELL")
	}
	if shell == "" {
		shell = "/bin/sh"
	}
	if err := validateExecutable(shell); err != nil {
		return err
	}

	output := recordOutput
	if output == "" {
		output = defaultOutputName()
	}
	outputPath, err := filepath.Abs(output)
	if err != nil {
		return fmt.Errorf("record: resolve output path: %w", err)
	}

	stdinFd := int(os.Stdin.Fd())
	termSession, err := termctl.Acquire(stdinFd)
	if err != nil {
		return fmt.Errorf("record: acquire terminal: %w", err)
	}
	defer termSession.Release()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigterm := make(chan os.Signal, 1)
	signal.Notify(sigterm, syscall.SIGTERM)
	defer signal.Stop(sigterm)
	go func() {
		<-sigterm
		termSession.Release()
		cancel()
	}()

	cols, rows, err := termctl.Size(stdinFd)
	if err != nil {
		cols, rows = 80, 24
	}

	host, err := ptyhost.Spawn(shell)
	if err != nil {
		return fmt.Errorf("record: start shell: %w", err)
	}
	host.SetWindowSize(uint16(rows), uint16(cols))

	header := cast.DefaultHeader(cols, rows, shell)
	writer, err := cast.NewWriter(outputPath, header)
	if err != nil {
		host.Close()
		return fmt.Errorf("record: open cast file: %w", err)
	}

	clk := clock.New()
	log := logging.WithComponent("record")

	var h *hub.Hub
	var monitorSrv *monitor.Server
	if recordMonitor {
		h = hub.New(recordMonitorBufferSize)
		meta := session.New(shell, outputPath)
		monitorSrv = monitor.New(recordMonitorHost, recordMonitorPort, h, meta, monitor.Size{Width: cols, Height: rows})
		if err := monitorSrv.Start(); err != nil {
			log.Warn("monitor failed to start, recording without fan-out", logging.F("error", err.Error()))
			h = nil
			monitorSrv = nil
		} else {
			fmt.Fprintf(os.Stderr, "watch at http://%s:%d\n", recordMonitorHost, recordMonitorPort)
		}
	}

	fmt.Fprintf(os.Stderr, "recording to %s\nshell: %s\npress Ctrl-D or exit the shell to stop\n\n", outputPath, shell)

	rec := recorder.New(host, writer, clk, h)
	runErr := rec.Run(ctx)

	if h != nil {
		done := make(chan struct{})
		go func() { h.Close(); close(done) }()
		select {
		case <-done:
		case <-time.After(time.Second):
		}
	}
	if monitorSrv != nil {
		monitorSrv.Close()
	}

	host.Close()
	writer.Close()
	termSession.Release()

	fmt.Fprintf(os.Stderr, "\nrecording saved to %s\n", outputPath)
	return runErr
}

func validateExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() || info.Mode()&0111 == 0 {
		return fmt.Errorf("record: shell %q not found or not executable", path)
	}
	return nil
}

func defaultOutputName() string {
	return fmt.Sprintf("recording_%s.cast", time.Now().Format("20060102_150405"))
}
