package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"tapedeck/internal/detect"
	"tapedeck/internal/logging"
)

// formatOrder fixes the row order for score tables.
var formatOrder = []string{
	detect.FormatVHS,
	detect.FormatMiniDV,
	detect.FormatHi8,
	detect.FormatBetamax,
	detect.FormatDigital8,
	detect.FormatSuper8,
}

func newClassifyCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	var showSettings bool

	cmd := &cobra.Command{
		Use:   "classify <file>...",
		Short: "Detect the tape format of captured files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			classifier := detect.NewClassifier(cfg, logging.NewNop())
			result, err := classifier.Classify(cmd.Context(), args)
			if err != nil {
				return err
			}

			if jsonOut {
				return writeJSON(cmd, result)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Detected format: %s (confidence %.3f, %d file(s) analyzed)\n",
				result.Format, result.Confidence, result.FilesAnalyzed)

			if len(result.Scores) > 0 {
				rows := make([][]string, 0, len(formatOrder))
				for _, format := range formatOrder {
					score, ok := result.Scores[format]
					if !ok {
						continue
					}
					rows = append(rows, []string{
						format,
						strconv.FormatFloat(score, 'f', 3, 64),
						strconv.Itoa(result.FilenameVotes[format]),
					})
				}
				table := renderTable(
					[]string{"Format", "Score", "Filename votes"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignRight},
				)
				fmt.Fprintln(out, table)
			}

			if showSettings {
				settings := detect.RecommendedSettings(result.Format)
				fmt.Fprintf(out, "Recommended settings for %s:\n", result.Format)
				fmt.Fprintf(out, "  Deinterlace:       %s\n", yesNo(settings.Deinterlace))
				fmt.Fprintf(out, "  Noise reduction:   %s\n", orNone(settings.NoiseReduction))
				fmt.Fprintf(out, "  Color correction:  %s\n", yesNo(settings.ColorCorrection))
				fmt.Fprintf(out, "  Stabilization:     %s\n", yesNo(settings.Stabilization))
				fmt.Fprintf(out, "  Sharpening:        %s\n", orNone(settings.Sharpening))
				fmt.Fprintf(out, "  Audio enhancement: %s\n", yesNo(settings.AudioEnhancement))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the classification result as JSON")
	cmd.Flags().BoolVar(&showSettings, "settings", false, "Show the recommended processing settings for the detected format")
	return cmd
}

func orNone(value string) string {
	if value == "" {
		return "none"
	}
	return value
}
