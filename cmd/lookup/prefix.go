package lookup

import (
	"github.com/endorses/lexfst/internal/pkg/output"
	"github.com/spf13/cobra"
)

// PrefixCmd lists every dictionary key that is a prefix of a query.
var PrefixCmd = &cobra.Command{
	Use:   "prefix [query...]",
	Short: "List dictionary keys that prefix a query",
	Long: `List every dictionary key that is a prefix of the query, shortest first.

Examples:
  lexfst prefix -d words.fst hotdogs
  lexfst prefix -d words.fst --json hotdogs`,
	RunE: runPrefix,
}

var (
	prefixDictionary string
	prefixJSON       bool
)

func init() {
	PrefixCmd.Flags().StringVarP(&prefixDictionary, "dictionary", "d", "", "fst file to query")
	PrefixCmd.Flags().BoolVar(&prefixJSON, "json", false, "write one JSON object per query")
}

func runPrefix(cmd *cobra.Command, args []string) error {
	f, err := openDictionary(prefixDictionary)
	if err != nil {
		return err
	}
	defer f.Close()

	out := cmd.OutOrStdout()
	return eachKey(cmd.InOrStdin(), args, func(query string) error {
		ms, err := f.FST.CommonPrefixes([]byte(query))
		if err != nil {
			return err
		}
		if prefixJSON {
			return output.WriteJSON(out, prefixMatches(query, ms))
		}
		for _, m := range ms {
			if err := writeOutputs(out, query[:m.Length], m.Outputs); err != nil {
				return err
			}
		}
		return nil
	})
}
