// Package main provides the docxtree command line tool for inspecting and
// editing the block structure of .docx files.
package main

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/benjaminschreck/go-docxtree/pkg/docxtree"
)

const (
	Version = "0.1.0"
	appName = "docxtree"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		configPath string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Inspect and edit the structure of .docx documents",
		Long: `docxtree opens a word-processing package and works on its block tree:
paragraphs, tables, headers, footers and comments.

It can list the parts of a package, print paragraph text with character
offsets, insert paragraphs at any offset, merge table cells and validate
paragraph ids, numbering references and table grids.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return configure(configPath, logLevel)
		},
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error, off)")

	cmd.AddCommand(partsCmd(), textCmd(), insertCmd(), mergeCellsCmd(), validateCmd())
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, Version)
		},
	})

	return cmd
}

func configure(configPath, logLevel string) error {
	config := docxtree.ConfigFromEnvironment()
	if configPath != "" {
		loaded, err := docxtree.LoadConfigFile(configPath)
		if err != nil {
			return err
		}
		config = loaded
	}
	if logLevel != "" {
		config.LogLevel = logLevel
	}
	if err := config.Validate(); err != nil {
		return err
	}
	docxtree.SetGlobalConfig(config)
	return nil
}

func partsCmd() *cobra.Command {
	var pattern string
	cmd := &cobra.Command{
		Use:   "parts <file.docx>",
		Short: "List the parts of a package",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := docxtree.OpenFile(args[0])
			if err != nil {
				return err
			}
			parts, err := doc.Store().Parts(pattern)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PART\tCONTENT TYPE\tBYTES")
			for _, p := range parts {
				fmt.Fprintf(w, "%s\t%s\t%d\n", p.Name, p.ContentType, len(p.Bytes()))
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&pattern, "glob", "**", "Only list parts matching this pattern")
	return cmd
}

func textCmd() *cobra.Command {
	var headers bool
	cmd := &cobra.Command{
		Use:   "text <file.docx>",
		Short: "Print body paragraphs with their start offsets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := docxtree.OpenFile(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			paragraphs, starts := doc.Body().ParagraphOffsets()
			for i, p := range paragraphs {
				fmt.Fprintf(out, "%6d  %s  %s\n", starts[i], p.ID(), p.Text())
			}
			if !headers {
				return nil
			}
			stories := []struct {
				name string
				get  func(docxtree.HeaderFooterType) (*docxtree.Container, error)
			}{
				{"header", doc.Header},
				{"footer", doc.Footer},
			}
			for _, story := range stories {
				for _, typ := range []docxtree.HeaderFooterType{docxtree.HeaderFooterDefault, docxtree.HeaderFooterFirst, docxtree.HeaderFooterEven} {
					c, err := story.get(typ)
					if errors.Is(err, docxtree.ErrNotFound) {
						continue
					}
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "--- %s (%s)\n%s\n", story.name, typ, c.Text())
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&headers, "headers", false, "Also print headers and footers")
	return cmd
}

func insertCmd() *cobra.Command {
	var (
		offset int
		text   string
		output string
	)
	cmd := &cobra.Command{
		Use:   "insert <file.docx>",
		Short: "Insert a paragraph at a character offset of the body",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := docxtree.OpenFile(args[0])
			if err != nil {
				return err
			}
			if err := doc.Body().InsertAt(offset, doc.NewParagraph(text)); err != nil {
				return err
			}
			return doc.SaveFile(outputPath(args[0], output))
		},
	}
	cmd.Flags().IntVar(&offset, "offset", 0, "Character offset in the body text")
	cmd.Flags().StringVar(&text, "text", "", "Text of the new paragraph")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: overwrite input)")
	return cmd
}

func mergeCellsCmd() *cobra.Command {
	var (
		table, row, start, count int
		output                   string
	)
	cmd := &cobra.Command{
		Use:   "merge-cells <file.docx>",
		Short: "Merge horizontally adjacent cells of a body table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := docxtree.OpenFile(args[0])
			if err != nil {
				return err
			}
			var target *docxtree.Table
			i := 0
			for t := range doc.Body().Tables() {
				if i == table {
					target = t
					break
				}
				i++
			}
			if target == nil {
				return fmt.Errorf("%w: table %d", docxtree.ErrIndexOutOfRange, table)
			}
			if err := target.MergeCells(row, start, count); err != nil {
				return err
			}
			return doc.SaveFile(outputPath(args[0], output))
		},
	}
	cmd.Flags().IntVar(&table, "table", 0, "Index of the table in the body")
	cmd.Flags().IntVar(&row, "row", 0, "Row index")
	cmd.Flags().IntVar(&start, "start", 0, "Index of the first cell to merge")
	cmd.Flags().IntVar(&count, "count", 2, "Number of cells to merge")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: overwrite input)")
	return cmd
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file.docx>",
		Short: "Check paragraph ids, numbering references and table grids",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config := docxtree.GetGlobalConfig()
			config.ValidateIDsOnOpen = false
			doc, err := docxtree.OpenFile(args[0], docxtree.WithConfig(config))
			if err != nil {
				return err
			}

			errs := docxtree.NewMultiError()
			errs.Add(doc.ValidateIDs())
			errs.Add(doc.ValidateNumbering())
			i := 0
			for t := range doc.Body().Tables() {
				if err := t.ValidateGrid(); err != nil {
					errs.Add(fmt.Errorf("table %d: %w", i, err))
				}
				i++
			}
			if err := errs.Err(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
}

func outputPath(input, output string) string {
	if output == "" {
		return input
	}
	return output
}
