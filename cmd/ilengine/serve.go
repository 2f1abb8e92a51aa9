package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/clrfirmata/ilengine/internal/engine"
	"github.com/clrfirmata/ilengine/internal/nativehook"
)

func newServeCmd() *cobra.Command {
	var wirePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the engine's wire event loop until EOF or a signal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			log, err := newLogger()
			if err != nil {
				return fmt.Errorf("ilengine: build logger: %w", err)
			}
			defer log.Sync()

			e, err := engine.New(cfg, log, nativehook.NullBoard{})
			if err != nil {
				return err
			}
			if err := e.Boot(); err != nil {
				return err
			}

			rw, closeRW, err := openWire(wirePath)
			if err != nil {
				return err
			}
			defer closeRW()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := e.Serve(ctx, rw); err != nil && ctx.Err() == nil {
				return fmt.Errorf("ilengine: serve: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&wirePath, "wire", "-", "wire transport: '-' for stdin/stdout, or a path to a bidirectional file/fifo")
	return cmd
}

// stdioRW pairs os.Stdin/os.Stdout into a single io.ReadWriter for the
// default "-" transport.
type stdioRW struct {
	io.Reader
	io.Writer
}

func openWire(path string) (io.ReadWriter, func(), error) {
	if path == "-" {
		return stdioRW{os.Stdin, os.Stdout}, func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("ilengine: open wire transport %s: %w", path, err)
	}
	return f, func() { f.Close() }, nil
}
