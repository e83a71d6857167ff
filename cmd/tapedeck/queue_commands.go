package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tapedeck/internal/api"
	"tapedeck/internal/logging"
	"tapedeck/internal/queue"
	"tapedeck/internal/queueaccess"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	var format string
	var priority int
	var enhance bool
	var outputDest string
	var manual bool
	var sourceLink string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "add <source-ref>...",
		Short: "Queue captured tape files for processing",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := api.IntakeRequest{
				SourceRefs: args,
				SourceLink: strings.TrimSpace(sourceLink),
				Manual:     manual,
				Format:     format,
				Enhance:    enhance,
				OutputDest: outputDest,
			}
			if cmd.Flags().Changed("priority") {
				req.Priority = &priority
			}

			return ctx.withAccess(func(session queueaccess.Session) error {
				job, err := session.Access.Add(cmd.Context(), req)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, api.JobResponse{Job: *job})
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Queued job %s (%d source file(s), format %s)\n", job.ID, len(job.SourceRefs), job.Format)
				if !session.Daemon {
					fmt.Fprintln(out, "Daemon is not running; the job will start once it is.")
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", queue.FormatAuto, "Tape format hint (auto, VHS, MiniDV, Hi8, Betamax, Digital8, Super8)")
	cmd.Flags().IntVarP(&priority, "priority", "p", 0, "Job priority (higher runs first)")
	cmd.Flags().BoolVar(&enhance, "enhance", false, "Request AI enhancement for this job")
	cmd.Flags().StringVarP(&outputDest, "output", "o", "", "Destination folder on the remote, overrides the configured default")
	cmd.Flags().BoolVar(&manual, "manual", false, "Mark the job as manually submitted")
	cmd.Flags().StringVar(&sourceLink, "link", "", "Reference URL recorded with the job")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the created job as JSON")
	return cmd
}

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the job queue",
	}

	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueShowCommand(ctx))
	queueCmd.AddCommand(newQueueRemoveCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))
	queueCmd.AddCommand(newQueuePruneCommand(ctx))
	queueCmd.AddCommand(newQueueStatsCommand(ctx))

	return queueCmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queued jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withAccess(func(session queueaccess.Session) error {
				jobs, err := session.Access.List(cmd.Context(), listStatuses)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, api.QueueListResponse{Jobs: jobs})
				}
				if len(jobs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				rows := make([][]string, 0, len(jobs))
				for _, job := range jobs {
					rows = append(rows, []string{
						job.ID,
						displayTitle(job.SourceRefs),
						job.Format,
						job.Status,
						strconv.Itoa(job.Priority),
						job.CreatedAt,
					})
				}
				table := renderTable(
					[]string{"ID", "Title", "Format", "Status", "Priority", "Created"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&listStatuses, "status", "s", nil, "Filter by job status (repeatable)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit jobs as JSON")
	return cmd
}

func newQueueShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show <jobID>",
		Short: "Show one job in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withAccess(func(session queueaccess.Session) error {
				job, err := session.Access.Describe(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if job == nil {
					return fmt.Errorf("job %s not found", args[0])
				}
				if jsonOut {
					return writeJSON(cmd, api.JobResponse{Job: *job})
				}
				printJobDetail(cmd, job)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the job as JSON")
	return cmd
}

func printJobDetail(cmd *cobra.Command, job *api.JobView) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ID:         %s\n", job.ID)
	fmt.Fprintf(out, "Title:      %s\n", displayTitle(job.SourceRefs))
	fmt.Fprintf(out, "Status:     %s\n", job.Status)
	fmt.Fprintf(out, "Format:     %s\n", job.Format)
	fmt.Fprintf(out, "Priority:   %d\n", job.Priority)
	fmt.Fprintf(out, "Enhance:    %s\n", yesNo(job.Enhance))
	fmt.Fprintf(out, "Manual:     %s\n", yesNo(job.Manual))
	if job.OutputDest != "" {
		fmt.Fprintf(out, "Output:     %s\n", job.OutputDest)
	}
	if job.SourceLink != "" {
		fmt.Fprintf(out, "Link:       %s\n", job.SourceLink)
	}
	for i, ref := range job.SourceRefs {
		if i == 0 {
			fmt.Fprintf(out, "Sources:    %s\n", ref)
		} else {
			fmt.Fprintf(out, "            %s\n", ref)
		}
	}
	for i, output := range job.Outputs {
		if i == 0 {
			fmt.Fprintf(out, "Outputs:    %s\n", output)
		} else {
			fmt.Fprintf(out, "            %s\n", output)
		}
	}
	if job.CreatedAt != "" {
		fmt.Fprintf(out, "Created:    %s\n", job.CreatedAt)
	}
	if job.StartedAt != "" {
		fmt.Fprintf(out, "Started:    %s\n", job.StartedAt)
	}
	if job.CompletedAt != "" {
		fmt.Fprintf(out, "Completed:  %s\n", job.CompletedAt)
	}
	if job.FailedAt != "" {
		fmt.Fprintf(out, "Failed:     %s\n", job.FailedAt)
	}
	if job.ErrorMessage != "" {
		fmt.Fprintf(out, "Error:      %s\n", job.ErrorMessage)
	}
	if len(job.Metadata) > 0 {
		fmt.Fprintln(out, "Metadata:")
		for _, key := range sortedKeys(job.Metadata) {
			fmt.Fprintf(out, "  %s: %s\n", key, job.Metadata[key])
		}
	}
}

func newQueueRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <jobID>",
		Short: "Remove a job from the queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withAccess(func(session queueaccess.Session) error {
				removed, err := session.Access.Remove(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if !removed {
					return fmt.Errorf("job %s not found", args[0])
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed job %s\n", args[0])
				return nil
			})
		},
	}
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [jobID...]",
		Short: "Return failed jobs to pending",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withAccess(func(session queueaccess.Session) error {
				updated, err := session.Access.Retry(cmd.Context(), args)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Retried %d failed job(s)\n", updated)
				return nil
			})
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var clearCompleted bool
	var clearFailed bool
	var clearForce bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove jobs from the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			if clearCompleted && clearFailed {
				return errors.New("specify only one of --completed or --failed")
			}
			return ctx.withAccess(func(session queueaccess.Session) error {
				out := cmd.OutOrStdout()
				if clearForce {
					fmt.Fprintln(out, "Clearing queue without confirmation (--force)")
				}

				var statuses []string
				switch {
				case clearCompleted:
					statuses = []string{string(queue.StatusCompleted)}
				case clearFailed:
					statuses = []string{string(queue.StatusFailed)}
				}

				removed, err := session.Access.Clear(cmd.Context(), statuses)
				if err != nil {
					return err
				}
				switch {
				case clearCompleted:
					fmt.Fprintf(out, "Cleared %d completed job(s)\n", removed)
				case clearFailed:
					fmt.Fprintf(out, "Cleared %d failed job(s)\n", removed)
				default:
					fmt.Fprintf(out, "Cleared %d job(s)\n", removed)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&clearCompleted, "completed", false, "Remove only completed jobs")
	cmd.Flags().BoolVar(&clearFailed, "failed", false, "Remove only failed jobs")
	cmd.Flags().BoolVar(&clearForce, "force", false, "No-op flag for compatibility; removal always proceeds")
	return cmd
}

func newQueuePruneCommand(ctx *commandContext) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove completed and failed jobs older than a cutoff",
		RunE: func(cmd *cobra.Command, args []string) error {
			if days <= 0 {
				return errors.New("--days must be positive")
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			// Pruning rewrites the queue document wholesale, so it only runs
			// against the store directly.
			probeCtx, cancel := context.WithTimeout(cmd.Context(), 2*time.Second)
			defer cancel()
			if _, err := api.NewClient(cfg.Paths.APIBind).Status(probeCtx); err == nil {
				return errors.New("pruning requires direct store access; stop the daemon first")
			}

			store, err := queue.Open(cfg, logging.NewNop())
			if err != nil {
				return fmt.Errorf("open queue store: %w", err)
			}
			defer store.Close()

			cutoff := time.Now().UTC().AddDate(0, 0, -days)
			removed, err := store.RemoveOlderThan(cmd.Context(), cutoff)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d job(s) older than %d day(s)\n", removed, days)
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 30, "Remove terminal jobs last updated more than this many days ago")
	return cmd
}

func newQueueStatsCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show queue statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withAccess(func(session queueaccess.Session) error {
				stats, err := session.Access.Stats(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, api.StatsResponse{Stats: stats})
				}
				out := cmd.OutOrStdout()
				if stats.Total == 0 {
					fmt.Fprintln(out, "Queue is empty")
					return nil
				}
				table := renderTable(
					[]string{"Status", "Count"},
					[][]string{
						{"pending", strconv.Itoa(stats.Pending)},
						{"processing", strconv.Itoa(stats.Processing)},
						{"completed", strconv.Itoa(stats.Completed)},
						{"failed", strconv.Itoa(stats.Failed)},
						{"total", strconv.Itoa(stats.Total)},
					},
					[]columnAlignment{alignLeft, alignRight},
				)
				fmt.Fprintln(out, table)
				if stats.Completed > 0 {
					fmt.Fprintf(out, "Processing time: avg %.1fs, min %.1fs, max %.1fs\n",
						stats.AvgProcessingSeconds,
						stats.MinProcessingSeconds,
						stats.MaxProcessingSeconds,
					)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit statistics as JSON")
	return cmd
}
