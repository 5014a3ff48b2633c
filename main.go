package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/faiface/mainthread"
	"github.com/kapitanov/chip8emu/internal/hal"
	"github.com/kapitanov/chip8emu/internal/statsview"
	"github.com/kapitanov/chip8emu/internal/term"
	"github.com/kapitanov/chip8emu/internal/vm"
	"github.com/spf13/cobra"
)

func main() {
	cmd := &cobra.Command{
		Use:           fmt.Sprintf("%s PATH_TO_ROM_FILE", filepath.Base(os.Args[0])),
		Short:         "Run emulator",
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
	}

	defaults := vm.DefaultConfig()

	verbose := cmd.Flags().BoolP("verbose", "v", false, "enable verbose logging and instruction trace")
	step := cmd.Flags().BoolP("step", "s", false, "single-step: press W to run each instruction")
	frontend := cmd.Flags().StringP("frontend", "f", "sdl", "frontend to use: sdl or term")
	clock := cmd.Flags().Int("clock", defaults.ClockHz, "instruction cycles per second (0 for unthrottled)")
	timer := cmd.Flags().Int("timer", defaults.TimerHz, "timer ticks per second")
	dump := cmd.Flags().Bool("dump", false, "print memory and screen dumps when the program stops")
	stats := cmd.Flags().String("statsview", "", "serve runtime statistics on this address (needs -tags statsview)")
	cmd.Flags().Lookup("statsview").NoOptDefVal = statsview.DefaultAddr

	cmd.RunE = func(c *cobra.Command, args []string) error {
		loggerOpts := &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}
		if *verbose {
			loggerOpts.Level = slog.LevelDebug
		}

		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, loggerOpts)))

		path := args[0]
		bs, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("unable to load file %q: %w", path, err)
		}

		h, shutdown, err := newFrontend(*frontend)
		if err != nil {
			return fmt.Errorf("unable to initialize %s frontend: %w", *frontend, err)
		}
		defer shutdown()

		ctx, stop := signal.NotifyContext(c.Context(), os.Interrupt)
		defer stop()

		if *stats != "" {
			statsview.Launch(ctx, *stats)
		}

		cfg := vm.Config{
			ClockHz: *clock,
			TimerHz: *timer,
			Step:    *step,
		}

		for {
			machine := vm.NewMachine(bs, h, cfg)
			err = machine.Run(ctx)

			if *dump || vm.IsFatal(err) {
				printDiagnostics(os.Stderr, machine)
			}

			if errors.Is(err, vm.ErrCancelled) {
				return nil
			}

			if errors.Is(err, vm.ErrReboot) {
				slog.Info("reboot")
				continue
			}

			return err
		}
	}

	code := 0
	mainthread.Run(func() {
		cmd.SetArgs(os.Args[1:])
		if err := cmd.ExecuteContext(context.Background()); err != nil {
			slog.Error("fatal error", "err", err)
			code = 1
		}
	})
	os.Exit(code)
}

func newFrontend(name string) (vm.HAL, func(), error) {
	switch name {
	case "sdl":
		h, err := hal.New()
		if err != nil {
			return nil, nil, err
		}
		return h, h.Shutdown, nil

	case "term":
		t, err := term.New(os.Stdin, os.Stdout)
		if err != nil {
			return nil, nil, err
		}
		return t, t.Shutdown, nil

	default:
		return nil, nil, fmt.Errorf("unknown frontend %q", name)
	}
}

func printDiagnostics(w io.Writer, machine *vm.Machine) {
	addr, word := machine.CPU().LastFetch()
	fmt.Fprintf(w, "last fetch 0x%04x: 0x%04x %v\n", addr, word, vm.Decode(word))
	fmt.Fprintf(w, "%v\n\n", machine.CPU().State())
	fmt.Fprint(w, machine.Display().Dump())
	fmt.Fprintln(w)
	if err := machine.Memory().Dump(w); err != nil {
		slog.Error("memory dump failed", "err", err)
	}
}
