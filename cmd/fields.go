package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/wegman-software/osmpoi/internal/poi"
)

var fieldsSubtypes []string

var fieldsCmd = &cobra.Command{
	Use:   "fields",
	Short: "List output columns with their source tags",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		set, err := poi.ParseSubtypeSet(fieldsSubtypes)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "COLUMN\tSOURCE\tTYPE\tSUBTYPES")
		for _, f := range poi.Columns(set) {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", f.Name, fieldSource(f), f.Coerce, strings.Join(subtypeNames(f.Subtypes), ","))
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(fieldsCmd)
	fieldsCmd.Flags().StringSliceVar(&fieldsSubtypes, "subtypes", nil, "Only list columns of these subtypes")
}

func fieldSource(f poi.Field) string {
	switch f.Origin {
	case poi.OriginIdentity:
		return "(entity)"
	case poi.OriginGeometry:
		return "(node location)"
	case poi.OriginDerived:
		return "(derived)"
	}
	return f.Key
}
