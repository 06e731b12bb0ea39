package build

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/endorses/lexfst/internal/pkg/cmdutil"
	"github.com/endorses/lexfst/internal/pkg/constants"
	"github.com/endorses/lexfst/internal/pkg/dictsource"
	"github.com/endorses/lexfst/internal/pkg/fst"
	"github.com/endorses/lexfst/internal/pkg/fstfile"
	"github.com/endorses/lexfst/internal/pkg/logger"
	"github.com/spf13/cobra"
)

// BuildCmd compiles a dictionary source file into an fst file.
var BuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Compile a dictionary into an fst file",
	Long: `Compile a TSV or YAML dictionary of (key, output) pairs into a minimal
finite-state transducer file.

TSV files hold one "key<TAB>output" pair per line; blank lines and lines
starting with '#' are skipped. A key may appear on several lines to attach
several outputs. YAML files hold either a list of {key, output(s)} entries or
a mapping from key to output(s).

Examples:
  lexfst build -i words.tsv -o words.fst
  lexfst build -i words.csv --format tsv --separator ,
  lexfst build -i words.yaml`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

var (
	inputFile   string
	outputFile  string
	format      string
	separator   string
	unescape    bool
	noSort      bool
	maxLineSize string
)

func init() {
	BuildCmd.Flags().StringVarP(&inputFile, "input", "i", "", "dictionary source file (required)")
	BuildCmd.Flags().StringVarP(&outputFile, "output", "o", "", "output fst file (default: input with .fst extension)")
	BuildCmd.Flags().StringVar(&format, "format", "", "source format: tsv or yaml (default: by extension)")
	BuildCmd.Flags().StringVar(&separator, "separator", "", "TSV key/output separator (default: tab)")
	BuildCmd.Flags().BoolVar(&unescape, "unescape", false, `decode \t, \n, \r and \\ in TSV fields`)
	BuildCmd.Flags().BoolVar(&noSort, "no-sort", false, "require the source to be sorted instead of sorting it")
	BuildCmd.Flags().StringVar(&maxLineSize, "max-line-size", "", "longest TSV line accepted, e.g. 64K or 16M (default: 16M)")
	_ = BuildCmd.MarkFlagRequired("input")
}

func runBuild(cmd *cobra.Command, args []string) error {
	opts, err := sourceOptions()
	if err != nil {
		return err
	}

	in, err := cmdutil.ExpandPath(inputFile)
	if err != nil {
		return err
	}
	out := outputFile
	if out == "" {
		out = strings.TrimSuffix(in, filepath.Ext(in)) + constants.FileExtension
	}
	if out, err = cmdutil.ExpandPath(out); err != nil {
		return err
	}

	start := time.Now()
	pairs, err := dictsource.Load(in, opts)
	if err != nil {
		return err
	}
	loaded := time.Since(start)

	a, err := fst.Build(pairs)
	if err != nil {
		return fmt.Errorf("failed to build %s: %w", in, err)
	}
	f := fst.Compile(a)
	h := fstfile.NewHeader(a)
	if err := fstfile.WriteFile(out, f, h); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}

	logger.Info("Dictionary built",
		"input", in,
		"output", out,
		"pairs", a.Pairs,
		"keys", a.Keys,
		"states", a.Dict.Len(),
		"bytes", f.Size(),
		"build_id", h.BuildID,
		"load_duration", loaded,
		"total_duration", time.Since(start))

	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d keys, %d pairs, %d states, %d bytes\n",
		out, a.Keys, a.Pairs, a.Dict.Len(), f.Size())
	return nil
}

func sourceOptions() (dictsource.Options, error) {
	f, err := dictsource.ParseFormat(cmdutil.GetStringConfig("build.format", format))
	if err != nil {
		return dictsource.Options{}, err
	}
	opts := dictsource.Options{
		Format:    f,
		Separator: cmdutil.GetStringConfig("build.separator", separator),
		Unescape:  cmdutil.GetBoolConfig("build.unescape", unescape),
		NoSort:    noSort,
	}
	if s := cmdutil.GetStringConfig("build.max_line_size", maxLineSize); s != "" {
		n, err := cmdutil.ParseSizeString(s)
		if err != nil {
			return dictsource.Options{}, fmt.Errorf("invalid --max-line-size: %w", err)
		}
		opts.MaxLineSize = int(n)
	}
	return opts, nil
}
