package lookup

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/endorses/lexfst/internal/pkg/cmdutil"
	"github.com/endorses/lexfst/internal/pkg/constants"
	"github.com/endorses/lexfst/internal/pkg/fst"
	"github.com/endorses/lexfst/internal/pkg/fstfile"
	"github.com/endorses/lexfst/internal/pkg/lookupd"
	"github.com/endorses/lexfst/internal/pkg/output"
	"github.com/spf13/cobra"
)

// ErrNotFound is returned when at least one queried key was rejected.
var ErrNotFound = errors.New("one or more keys not found")

// LookupCmd looks keys up in a compiled dictionary.
var LookupCmd = &cobra.Command{
	Use:   "lookup [key...]",
	Short: "Look keys up in an fst file",
	Long: `Look keys up in a compiled dictionary and print their outputs.

Keys are taken from the arguments, or from stdin one per line when none are
given. Each output is printed as "key<TAB>output". The command exits non-zero
if any key is not found.

With --match, a key is also accepted when the walk passes a shorter key on
the way and then falls off the automaton, and the shorter key's outputs are
returned.

Examples:
  lexfst lookup -d words.fst apple
  cat queries.txt | lexfst lookup -d words.fst --json`,
	RunE: runLookup,
}

var (
	dictionary string
	matchMode  bool
	jsonOutput bool
)

func init() {
	LookupCmd.Flags().StringVarP(&dictionary, "dictionary", "d", "", "fst file to query")
	LookupCmd.Flags().BoolVar(&matchMode, "match", false, "accept keys that pass a shorter dictionary key")
	LookupCmd.Flags().BoolVar(&jsonOutput, "json", false, "write one JSON object per key")
}

func runLookup(cmd *cobra.Command, args []string) error {
	f, err := openDictionary(dictionary)
	if err != nil {
		return err
	}
	defer f.Close()

	query := f.FST.Lookup
	if matchMode {
		query = f.FST.Match
	}

	out := cmd.OutOrStdout()
	missed := false
	err = eachKey(cmd.InOrStdin(), args, func(key string) error {
		res, err := query([]byte(key))
		if err != nil {
			return fmt.Errorf("lookup %q: %w", key, err)
		}
		if !res.Accepted {
			missed = true
		}
		if jsonOutput {
			return output.WriteJSON(out, lookupd.LookupResponse{
				Key:      key,
				Accepted: res.Accepted,
				Outputs:  res.Strings(),
			})
		}
		return writeOutputs(out, key, res.Outputs)
	})
	if err != nil {
		return err
	}
	if missed {
		return ErrNotFound
	}
	return nil
}

func openDictionary(flagValue string) (*fstfile.File, error) {
	path, err := cmdutil.DictionaryPath(flagValue)
	if err != nil {
		return nil, err
	}
	return fstfile.Open(path)
}

// eachKey calls fn for every argument, or for every stdin line when there are
// no arguments.
func eachKey(in io.Reader, args []string, fn func(string) error) error {
	if len(args) > 0 {
		for _, a := range args {
			if err := fn(a); err != nil {
				return err
			}
		}
		return nil
	}

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), constants.MaxQueryLength+1)
	for scanner.Scan() {
		if err := fn(scanner.Text()); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func writeOutputs(w io.Writer, key string, outputs [][]byte) error {
	for _, o := range outputs {
		if _, err := fmt.Fprintf(w, "%s\t%s\n", key, o); err != nil {
			return err
		}
	}
	return nil
}

func prefixMatches(query string, ms []fst.PrefixMatch) lookupd.PrefixesResponse {
	resp := lookupd.PrefixesResponse{Query: query, Matches: make([]lookupd.PrefixMatch, 0, len(ms))}
	for _, m := range ms {
		r := fst.Result{Accepted: true, Outputs: m.Outputs}
		resp.Matches = append(resp.Matches, lookupd.PrefixMatch{
			Key:     query[:m.Length],
			Length:  m.Length,
			Outputs: r.Strings(),
		})
	}
	return resp
}
