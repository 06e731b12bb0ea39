package inspect

import (
	"fmt"
	"io"

	"github.com/endorses/lexfst/internal/pkg/cmdutil"
	"github.com/endorses/lexfst/internal/pkg/fst"
	"github.com/endorses/lexfst/internal/pkg/fstfile"
	"github.com/endorses/lexfst/internal/pkg/output"
	"github.com/spf13/cobra"
)

// InspectCmd prints the header and structure statistics of an fst file.
var InspectCmd = &cobra.Command{
	Use:   "inspect [file]",
	Short: "Show header and statistics of an fst file",
	Long: `Verify an fst file and print its header and structure statistics.

Examples:
  lexfst inspect words.fst
  lexfst inspect -d words.fst --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInspect,
}

var (
	dictionary string
	jsonOutput bool
)

func init() {
	InspectCmd.Flags().StringVarP(&dictionary, "dictionary", "d", "", "fst file to inspect")
	InspectCmd.Flags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
}

// Report is the JSON form of inspect.
type Report struct {
	Path   string         `json:"path"`
	Header fstfile.Header `json:"header"`
	Mapped bool           `json:"mapped"`
	Stats  fst.Stats      `json:"stats"`
}

func runInspect(cmd *cobra.Command, args []string) error {
	path, err := dictionaryArg(dictionary, args)
	if err != nil {
		return err
	}
	f, err := fstfile.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	st, err := f.FST.Stats()
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	r := Report{Path: path, Header: f.Header, Mapped: f.Mapped, Stats: st}

	if jsonOutput {
		return output.WriteJSON(cmd.OutOrStdout(), r)
	}
	return printReport(cmd.OutOrStdout(), r)
}

func printReport(w io.Writer, r Report) error {
	_, err := fmt.Fprintf(w, `File:           %s
Version:        %d
Build ID:       %s
Keys:           %d
States:         %d
Payload:        %d bytes
Checksum:       %016x
Memory mapped:  %t

Arcs:           %d (%d with output)
Final states:   %d (%d final outputs)
`,
		r.Path,
		r.Header.Version,
		r.Header.BuildID,
		r.Header.Keys,
		r.Stats.States,
		r.Header.PayloadLen,
		r.Header.Checksum,
		r.Mapped,
		r.Stats.Arcs, r.Stats.ArcsWithOutput,
		r.Stats.FinalStates, r.Stats.FinalOutputs,
	)
	return err
}

// dictionaryArg prefers a positional file over --dictionary and the config.
func dictionaryArg(flagValue string, args []string) (string, error) {
	if len(args) > 0 {
		return cmdutil.ExpandPath(args[0])
	}
	return cmdutil.DictionaryPath(flagValue)
}
