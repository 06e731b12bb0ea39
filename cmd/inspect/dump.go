package inspect

import (
	"github.com/endorses/lexfst/internal/pkg/dictsource"
	"github.com/endorses/lexfst/internal/pkg/fstfile"
	"github.com/spf13/cobra"
)

// DumpCmd writes every (key, output) pair of an fst file as TSV.
var DumpCmd = &cobra.Command{
	Use:   "dump [file]",
	Short: "Write every pair of an fst file as TSV",
	Long: `Write every (key, output) pair of a compiled dictionary in key order, one
"key<TAB>output" line per pair. The output can be fed back to build.

Examples:
  lexfst dump words.fst > words.tsv
  lexfst dump -d words.fst --escape`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDump,
}

var (
	dumpDictionary string
	escape         bool
)

func init() {
	DumpCmd.Flags().StringVarP(&dumpDictionary, "dictionary", "d", "", "fst file to dump")
	DumpCmd.Flags().BoolVar(&escape, "escape", false, `encode tabs, newlines and backslashes as \t, \n, \r and \\`)
}

func runDump(cmd *cobra.Command, args []string) error {
	path, err := dictionaryArg(dumpDictionary, args)
	if err != nil {
		return err
	}
	f, err := fstfile.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := dictsource.NewTSVWriter(cmd.OutOrStdout(), dictsource.Options{Unescape: escape})
	var werr error
	err = f.FST.Walk(func(key []byte, outputs [][]byte) bool {
		for _, o := range outputs {
			if werr = w.Write(key, o); werr != nil {
				return false
			}
		}
		return true
	})
	if err != nil {
		return err
	}
	if werr != nil {
		return werr
	}
	return w.Flush()
}
