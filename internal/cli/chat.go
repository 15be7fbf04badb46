package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alnah/go-medbot/internal/upload"
)

// SendCmd creates the send command.
// The env parameter provides injectable dependencies for testing.
func SendCmd(env *Env) *cobra.Command {
	var message string

	cmd := &cobra.Command{
		Use:   "send <file>",
		Short: "Send an audio file or medical image to medbot",
		Long: `Send an existing audio file (wav, mp3, flac or m4a) or medical image
(png, jpg, jpeg, gif or bmp), up to 16 MB, to the chat service. Audio is
the way in when recording is not available on this machine.`,
		Example: `  medbot send recording_20260125_143052.wav
  medbot send symptoms.m4a -m "This started after the new medication"
  medbot send rash.jpg -m "It itches at night"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSend(cmd.Context(), env, args[0], message)
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "Text sent along with the file")

	return cmd
}

// AskCmd creates the ask command.
func AskCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:     "ask <message>",
		Short:   "Ask medbot a text question",
		Example: `  medbot ask "Is it safe to take ibuprofen with paracetamol?"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd.Context(), env, strings.Join(args, " "))
		},
	}
}

// HealthCmd creates the health command.
func HealthCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the chat service is up",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHealth(cmd.Context(), env)
		},
	}
}

// runSend uploads an existing audio or image file.
func runSend(ctx context.Context, env *Env, path, message string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s: %w", path, ErrFileNotFound)
		}
		return fmt.Errorf("cannot read %s: %w", path, err)
	}

	client, err := newChatClient(env)
	if err != nil {
		return err
	}

	fmt.Fprintln(env.Stderr, "Sending...")
	reply, err := client.SendFile(ctx, path, message)
	if err != nil {
		return err
	}
	printReply(env.Stdout, env.Stderr, reply)
	return nil
}

// runAsk sends a text question.
func runAsk(ctx context.Context, env *Env, message string) error {
	if strings.TrimSpace(message) == "" {
		return upload.ErrEmptyMessage
	}

	client, err := newChatClient(env)
	if err != nil {
		return err
	}

	reply, err := client.SendText(ctx, message)
	if err != nil {
		return err
	}
	printReply(env.Stdout, env.Stderr, reply)
	return nil
}

// runHealth prints the service health report.
func runHealth(ctx context.Context, env *Env) error {
	client, err := newChatClient(env)
	if err != nil {
		return err
	}

	h, err := client.Health(ctx)
	if h != nil {
		fmt.Fprintf(env.Stdout, "%s: %s (text model: %s, vision model: %s)\n",
			firstNonEmpty(h.Service, "medbot"), h.Status, readiness(h.TextModelReady), readiness(h.VisionModelReady))
		if len(h.SupportedInputs) > 0 {
			fmt.Fprintf(env.Stdout, "Inputs: %s\n", strings.Join(h.SupportedInputs, ", "))
		}
	}
	return err
}

// newChatClient builds a chat client for the configured service URL.
func newChatClient(env *Env) (ChatClient, error) {
	cfg, err := env.ConfigLoader.Load()
	if err != nil {
		return nil, err
	}
	return env.ChatClientFactory.NewChatClient(serviceURL(cfg), env.Logger), nil
}

func readiness(ready bool) string {
	if ready {
		return "ready"
	}
	return "not ready"
}
