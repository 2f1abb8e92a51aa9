package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/clrfirmata/ilengine/internal/engine"
	"github.com/clrfirmata/ilengine/internal/loader"
	"github.com/clrfirmata/ilengine/internal/nativehook"
	"github.com/clrfirmata/ilengine/internal/wire"
)

// newFreezeCmd issues the CopyToFlash/WriteFlashHeader pair spec.md §4.9
// names as separate requests, through the same Loader.Dispatch path a wire
// peer would use — freeze has no Go-level shortcut into flash.Manager
// because the header's root offsets only exist once CopyToFlash has run.
func newFreezeCmd() *cobra.Command {
	var dataVersion, dataHash, startupToken, startupFlags uint32
	cmd := &cobra.Command{
		Use:   "freeze <bundle.json>",
		Short: "Load a bundle, then copy its tables to flash and stamp the header",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			log, err := newLogger()
			if err != nil {
				return err
			}
			defer log.Sync()

			e, err := engine.New(cfg, log, nativehook.NullBoard{})
			if err != nil {
				return err
			}
			if err := e.Boot(); err != nil {
				return err
			}

			b, err := readBundle(args[0])
			if err != nil {
				return err
			}
			if err := applyBundle(e, b); err != nil {
				return err
			}
			if startupToken == 0 {
				startupToken = b.StartupToken
			}

			if resp := e.Loader.Dispatch(wire.Frame{SubCommand: byte(loader.SubCopyToFlash)}); resp.SubCommand == wire.Nack {
				return fmt.Errorf("ilengine: CopyToFlash nacked: errorCode=%d", resp.Payload[1])
			}

			var p []byte
			p = append(p, wire.EncodeUint32(dataVersion)...)
			p = append(p, wire.EncodeUint32(dataHash)...)
			p = append(p, wire.EncodeUint32(startupToken)...)
			p = append(p, wire.EncodeUint32(startupFlags)...)
			resp := e.Loader.Dispatch(wire.Frame{SubCommand: byte(loader.SubWriteFlashHeader), Payload: p})
			if resp.SubCommand == wire.Nack {
				return fmt.Errorf("ilengine: WriteFlashHeader nacked: errorCode=%d", resp.Payload[1])
			}

			fmt.Printf("froze %s to %s (dataVersion=%d startupToken=%#x)\n", args[0], cfg.FlashPath, dataVersion, startupToken)
			return nil
		},
	}
	cmd.Flags().Uint32Var(&dataVersion, "data-version", 1, "data version stamped into the flash header")
	cmd.Flags().Uint32Var(&dataHash, "data-hash", 0, "content hash stamped into the flash header")
	cmd.Flags().Uint32Var(&startupToken, "startup-token", 0, "method token auto-started on next boot (0 for none; defaults to the bundle's own startupToken)")
	cmd.Flags().Uint32Var(&startupFlags, "startup-flags", 0, "startup flags stamped into the flash header")
	return cmd
}
