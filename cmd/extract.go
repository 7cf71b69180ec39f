package cmd

import (
	"go.uber.org/zap"

	"github.com/spf13/cobra"
	"github.com/wegman-software/osmpoi/internal/export"
	"github.com/wegman-software/osmpoi/internal/loader"
	"github.com/wegman-software/osmpoi/internal/logger"
)

var extractCmd = &cobra.Command{
	Use:   "extract <input.osm.pbf>",
	Short: "Extract POIs to CSV and JSON with a statistics report",
	Long: `Read an OSM file once, classify every entity and write the matching
records to <output>.csv and <output>.json (and <output>.parquet with
--parquet). With --split every subtype also gets its own pair, for example
<output>_rail_stations.csv. The statistics report is printed to stdout.

Records keep the order of the input file. Ways and relations carry no
coordinates. Either every artifact is written or none is.

With --load the records are also copied into a PostGIS table after the
artifacts are written.`,
	Args: cobra.ExactArgs(1),
	Run:  runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)
	addSelectionFlags(extractCmd)

	extractCmd.Flags().StringVarP(&cfg.OutputBase, "output", "o", "", "Artifact base path (default <input>_poi)")
	extractCmd.Flags().BoolVar(&cfg.Parquet, "parquet", false, "Also write a Parquet artifact")
	extractCmd.Flags().BoolVar(&cfg.Split, "split", false, "Also write one CSV/JSON pair per subtype")
	extractCmd.Flags().IntVar(&cfg.BatchSize, "batch-size", cfg.BatchSize, "Rows per Parquet row group")

	// Database flags
	extractCmd.Flags().BoolVar(&cfg.Load, "load", false, "Load records into PostgreSQL after writing the artifacts")
	extractCmd.Flags().StringVar(&cfg.DBHost, "db-host", cfg.DBHost, "PostgreSQL host")
	extractCmd.Flags().IntVar(&cfg.DBPort, "db-port", cfg.DBPort, "PostgreSQL port")
	extractCmd.Flags().StringVarP(&cfg.DBName, "db-name", "d", cfg.DBName, "PostgreSQL database name")
	extractCmd.Flags().StringVarP(&cfg.DBUser, "db-user", "U", cfg.DBUser, "PostgreSQL user")
	extractCmd.Flags().StringVarP(&cfg.DBPassword, "db-password", "W", cfg.DBPassword, "PostgreSQL password")
	extractCmd.Flags().StringVar(&cfg.DBSchema, "db-schema", cfg.DBSchema, "PostgreSQL schema")
	extractCmd.Flags().StringVar(&cfg.DBTable, "db-table", cfg.DBTable, "PostgreSQL table")
	extractCmd.Flags().BoolVar(&cfg.DropExisting, "drop-existing", false, "Drop the table before loading")
}

func runExtract(cmd *cobra.Command, args []string) {
	log := logger.Get()

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

	writer := export.NewWriter(export.Options{
		Subtypes:     r.subtypes,
		Parquet:      cfg.Parquet,
		Split:        cfg.Split,
		RowGroupSize: cfg.BatchSize,
	})
	r.opts.Exporter = writer
	r.opts.BasePath = cfg.OutputBase
	r.opts.Report = cmd.OutOrStdout()

	if cfg.Load {
		ld, err := loader.New(ctx, cfg, writer.Columns())
		if err != nil {
			exitWithError("failed to create loader", err)
		}
		defer ld.Close()
		r.opts.Sinks = append(r.opts.Sinks, ld)
	}

	res, err := r.execute(ctx)
	if err != nil {
		exitWithError("extraction failed", err)
	}

	log.Info("Extraction complete",
		zap.Strings("artifacts", res.Artifacts.Paths()),
		zap.Int64("loaded", res.Loaded),
	)
}
