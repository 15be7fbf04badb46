package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alnah/go-medbot/internal/capture"
)

// DevicesCmd creates the devices command.
// Lists available audio input devices for use with --device.
func DevicesCmd(env *Env) *cobra.Command {
	var strategy string

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List available audio input devices",
		Long: `List the audio input devices visible to the capture strategy.

Use the device name with --device in the record command.
With FFmpeg capture, real microphones are listed first and virtual devices last.`,
		Example: `  medbot devices
  medbot devices --capture compressed
  medbot record --device "MacBook Pro Microphone"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runListDevices(cmd.Context(), env, strategy)
		},
	}

	cmd.Flags().StringVar(&strategy, "capture", "", "Capture strategy: auto, direct or compressed (default: config capture)")

	return cmd
}

// runListDevices lists input devices for the selected strategy.
func runListDevices(ctx context.Context, env *Env, strategyFlag string) error {
	cfg, err := env.ConfigLoader.Load()
	if err != nil {
		fmt.Fprintf(env.Stderr, "Warning: failed to load config: %v\n", err)
	}

	strategy, err := capture.ParseStrategy(firstNonEmpty(strategyFlag, cfg.Capture))
	if err != nil {
		return fmt.Errorf("%v: %w", err, ErrInvalidCapture)
	}

	used, devices, err := env.CaptureDetector.ListDevices(ctx, capture.DetectOptions{
		Strategy: strategy,
		Logger:   env.Logger,
	})
	if err != nil {
		return err
	}

	if len(devices) == 0 {
		fmt.Fprintf(env.Stderr, "No audio input devices found (%s capture).\n", used)
		return nil
	}

	fmt.Fprintf(env.Stderr, "Audio input devices (%s capture):\n", used)
	for _, d := range devices {
		fmt.Fprintln(env.Stdout, d)
	}
	return nil
}
