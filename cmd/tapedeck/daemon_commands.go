package main

import (
	"fmt"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"tapedeck/internal/api"
	"tapedeck/internal/daemon"
	"tapedeck/internal/detect"
	"tapedeck/internal/logging"
	"tapedeck/internal/pipeline"
	"tapedeck/internal/queue"
	"tapedeck/internal/services/editor"
	"tapedeck/internal/services/enhance"
	"tapedeck/internal/services/transcode"
	"tapedeck/internal/services/transfer"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	daemonCmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run and control the processing daemon",
	}

	daemonCmd.AddCommand(newDaemonRunCommand(ctx))
	daemonCmd.AddCommand(newDaemonStatusCommand(ctx))
	daemonCmd.AddCommand(newDaemonPauseCommand(ctx))
	daemonCmd.AddCommand(newDaemonResumeCommand(ctx))

	return daemonCmd
}

func newDaemonRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			store, err := queue.Open(cfg, logger)
			if err != nil {
				return fmt.Errorf("open queue store: %w", err)
			}

			editorClient := editor.New(cfg, logger)
			deps := pipeline.Deps{
				Store:      store,
				Transfer:   transfer.New(cfg, logger),
				Fallback:   transcode.New(cfg, logger),
				Enhancer:   enhance.New(cfg, logger),
				Classifier: detect.NewClassifier(cfg, logger),
			}
			if editorClient.Configured() {
				deps.Primary = editorClient
			}

			d, err := daemon.New(cfg, store, pipeline.NewManager(cfg, deps, logger), logger)
			if err != nil {
				store.Close()
				return fmt.Errorf("create daemon: %w", err)
			}
			defer d.Close()

			if err := d.Start(signalCtx); err != nil {
				return err
			}

			<-signalCtx.Done()
			logger.Info("tapedeck daemon shutting down")
			d.Stop()
			return nil
		},
	}
}

// newStatusCommand exposes daemon status at the top level as well.
func newStatusCommand(ctx *commandContext) *cobra.Command {
	return newDaemonStatusCommand(ctx)
}

func newDaemonStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			client := api.NewClient(cfg.Paths.APIBind)
			status, err := client.Status(cmd.Context())
			if err != nil {
				if jsonOut {
					return writeJSON(cmd, api.DaemonStatus{})
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderStatusLine("Daemon", statusError, "not running", shouldColorize(out)))
				return nil
			}
			if jsonOut {
				return writeJSON(cmd, status)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			fmt.Fprintln(out, renderStatusLine("Daemon", statusOK, fmt.Sprintf("pid %d", status.PID), colorize))
			processingKind := statusOK
			processingMsg := "running"
			if !status.Pipeline.Running {
				processingKind = statusWarn
				processingMsg = "paused"
			}
			fmt.Fprintln(out, renderStatusLine("Processing", processingKind, processingMsg, colorize))
			if status.Pipeline.LastJobID != "" {
				fmt.Fprintln(out, renderStatusLine("Last job", statusInfo, status.Pipeline.LastJobID, colorize))
			}
			if status.Pipeline.LastError != "" {
				fmt.Fprintln(out, renderStatusLine("Last error", statusError, status.Pipeline.LastError, colorize))
			}
			fmt.Fprintln(out, renderStatusLine("Queue file", statusInfo, status.QueueFilePath, colorize))
			queueMsg := fmt.Sprintf("%d pending, %d processing, %d completed, %d failed",
				status.Pipeline.Queue.Pending,
				status.Pipeline.Queue.Processing,
				status.Pipeline.Queue.Completed,
				status.Pipeline.Queue.Failed,
			)
			queueKind := statusInfo
			if status.Pipeline.Queue.Failed > 0 {
				queueKind = statusWarn
			}
			fmt.Fprintln(out, renderStatusLine("Queue", queueKind, queueMsg, colorize))

			if len(status.Tools) > 0 {
				rows := make([][]string, 0, len(status.Tools))
				for _, tool := range status.Tools {
					detail := tool.Detail
					if detail == "" {
						detail = tool.Command
					}
					rows = append(rows, []string{
						tool.Name,
						yesNo(tool.Available),
						strconv.FormatBool(tool.Optional),
						detail,
					})
				}
				table := renderTable(
					[]string{"Tool", "Available", "Optional", "Detail"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
				)
				fmt.Fprintln(out, table)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit status as JSON")
	return cmd
}

func newDaemonPauseCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "pause",
		Short: "Pause job processing without stopping the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client := api.NewClient(cfg.Paths.APIBind)
			if err := client.StopProcessing(cmd.Context()); err != nil {
				return fmt.Errorf("pause processing: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Processing paused")
			return nil
		},
	}
}

func newDaemonResumeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Resume job processing",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client := api.NewClient(cfg.Paths.APIBind)
			if err := client.StartProcessing(cmd.Context()); err != nil {
				return fmt.Errorf("resume processing: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Processing resumed")
			return nil
		},
	}
}
