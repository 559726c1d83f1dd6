// Command replay runs stored bucket notifications through the upload
// validation pipeline, for backfills and for checking a policy change
// against real events.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"uploadguard/internal/config/di"
	logger "uploadguard/internal/shared/log"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "replay [file]",
		Short: "Validate the objects named in a bucket notification",
		Long: "Reads an S3-compatible bucket notification from a file, or from stdin when no\n" +
			"file is given, and validates every created object. Rejected objects are\n" +
			"removed unless --dry-run is set.",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := readPayload(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), payload, dryRun)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "log rejected objects instead of removing them")
	return cmd
}

func readPayload(stdin io.Reader, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(stdin)
	}
	payload, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read notification: %w", err)
	}
	return payload, nil
}

func run(ctx context.Context, stdout, stderr io.Writer, payload []byte, dryRun bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	container, err := di.InitContainer(ctx, di.Options{DryRun: dryRun, SkipConsumer: true})
	if err != nil {
		fmt.Fprintf(stderr, "Failed to initialize container: %v\n", err)
		return err
	}
	defer func() {
		if err := container.Shutdown(context.WithoutCancel(ctx)); err != nil {
			logger.Error(ctx, err, "Error during container shutdown")
		}
	}()

	report, err := container.ValidationService.HandleNotification(ctx, payload)
	if report != nil {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(report); encErr != nil {
			return encErr
		}
	}
	if err != nil {
		fmt.Fprintln(stderr, err)
		return err
	}
	return nil
}
