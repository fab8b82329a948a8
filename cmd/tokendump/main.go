// Command tokendump drives the incremental tokenizer over a single file and
// prints, row by row, the queries a syntax-aware editor pane would ask of it:
// fold points, indent level and the scope stack at column zero.
package main

import (
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/friedelschoen/tokenbuf/grammar"
	"github.com/friedelschoen/tokenbuf/textbuf"
	"github.com/friedelschoen/tokenbuf/textmate"
	"github.com/friedelschoen/tokenbuf/tokenize"
)

// fileConfig mirrors tokenize.Config for the optional --config YAML file.
type fileConfig struct {
	TabLength     int  `yaml:"tabLength"`
	LargeFileMode bool `yaml:"largeFileMode"`
	ChunkSize     int  `yaml:"chunkSize"`
}

var (
	grammarDir  string
	scopeName   string
	fileType    string
	configPath  string
	verbose     bool
	rootCmd     = &cobra.Command{
		Use:          "tokendump <file>",
		Short:        "Incrementally tokenize a file and print per-row query results",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE:         run,
	}
)

func init() {
	rootCmd.Flags().StringVar(&grammarDir, "grammar-dir", "", "directory of *.tmLanguage.json / *.plist grammars to search")
	rootCmd.Flags().StringVar(&scopeName, "scope", "", "load the grammar with this exact scopeName")
	rootCmd.Flags().StringVar(&fileType, "filetype", "", "load a grammar registered for this file type (defaults to the file's extension)")
	rootCmd.Flags().StringVar(&configPath, "config", "", "optional YAML file overriding tokenizer Config")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log invalidated ranges as they are retokenized")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (tokenize.Config, error) {
	if configPath == "" {
		return tokenize.Config{}, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		return tokenize.Config{}, fmt.Errorf("reading config: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return tokenize.Config{}, fmt.Errorf("parsing config: %w", err)
	}
	return tokenize.Config{
		TabLength:     fc.TabLength,
		LargeFileMode: fc.LargeFileMode,
		ChunkSize:     fc.ChunkSize,
	}, nil
}

func resolveGrammar(filename string) tokenize.Grammar {
	if grammarDir == "" {
		return grammar.NewNull("text.plain.null-grammar")
	}

	loader, ok := textmate.NewLoaderFromDir(grammarDir, false)
	if !ok {
		logrus.WithField("dir", grammarDir).Warn("tokendump: no grammars found; falling back to the null grammar")
		return grammar.NewNull("text.plain.null-grammar")
	}

	var tm *textmate.Grammar
	var err error
	switch {
	case scopeName != "":
		tm, err = loader.FromScope(scopeName)
	default:
		ft := fileType
		if ft == "" {
			ft = strings.TrimPrefix(path.Ext(filename), ".")
		}
		tm, err = loader.FromFileType(ft, 0)
	}
	if err != nil {
		logrus.WithError(err).WithField("file", filename).Warn("tokendump: no matching grammar; falling back to the null grammar")
		return grammar.NewNull("text.plain.null-grammar")
	}
	return grammar.NewFirstMate(tm)
}

func run(cmd *cobra.Command, args []string) error {
	if verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	filename := args[0]
	content, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("reading %s: %w", filename, err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	buf := textbuf.New(filename, string(content))
	g := resolveGrammar(filename)

	tb := tokenize.New(buf, g, cfg, tokenize.SyncScheduler{})
	if verbose {
		tb.OnDidInvalidateRange(func(r tokenize.Range) {
			logrus.WithFields(logrus.Fields{"start": r.Start.Row, "end": r.End.Row}).Debug("tokendump: invalidated rows")
		})
	}
	tb.SetVisible(true)
	tb.RunBackgroundToCompletion()

	for row := 0; row <= buf.LastRow(); row++ {
		desc := tb.ScopeDescriptorForPosition(tokenize.Position{Row: row, Column: 0})
		fmt.Printf("%4d | indent=%-4.1f fold=%-5v | %s\n",
			row,
			tb.IndentLevelForRow(row),
			tb.IsFoldableAtRow(row),
			strings.Join(desc, " "),
		)
	}
	return nil
}
