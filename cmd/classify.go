package cmd

import (
	"github.com/spf13/cobra"
)

var classifyCmd = &cobra.Command{
	Use:   "classify <input.osm.pbf>",
	Short: "Print the statistics report without writing artifacts",
	Long: `Run the same pass as extract but skip the export. Useful to check
filter rules and scripts before a full extraction.`,
	Args: cobra.ExactArgs(1),
	Run:  runClassify,
}

func init() {
	rootCmd.AddCommand(classifyCmd)
	addSelectionFlags(classifyCmd)
}

func runClassify(cmd *cobra.Command, args []string) {
	if err := prepare(cmd, args); err != nil {
		exitWithError("invalid configuration", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	r, err := newRun()
	if err != nil {
		exitWithError("failed to set up run", err)
	}
	defer r.Close()

	r.opts.Report = cmd.OutOrStdout()

	if _, err := r.execute(ctx); err != nil {
		exitWithError("classification failed", err)
	}
}
