package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/siherrmann/arkg"
	"github.com/siherrmann/arkg/core/graph"
	"github.com/siherrmann/arkg/core/store"
	"github.com/siherrmann/arkg/model"
	"github.com/siherrmann/arkg/vocabulary"
	"github.com/spf13/cobra"
)

func indexCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Embed the records of the data files into the similarity index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(true)
			if err != nil {
				return err
			}
			defer a.Close()

			records, err := a.ReadRecords()
			if err != nil {
				return err
			}
			indexed, err := a.IndexRecords(cmd.Context(), records)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d records\n", len(indexed))
			return nil
		},
	}
}

func retrieveCmd(opts *options) *cobra.Command {
	var k int

	cmd := &cobra.Command{
		Use:   "retrieve [record-key]",
		Short: "Retrieve anti-recommendations",
		Long: `Without a record key the anti-recommendations of every record in the
data files are retrieved and written to the output directory.
With a record key its anti-recommendations are printed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(true)
			if err != nil {
				return err
			}
			defer a.Close()

			if len(args) == 1 {
				if k < 1 {
					k = a.Config.AntiRecommendationsLimit
				}
				antiRecommendations, err := a.Retrieve(cmd.Context(), args[0], k)
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "KEY\tSCORE")
				for _, antiRecommendation := range antiRecommendations {
					fmt.Fprintf(w, "%s\t%.4f\n", antiRecommendation.Key, antiRecommendation.SimilarityScore)
				}
				return w.Flush()
			}

			if k > 0 {
				a.Config.AntiRecommendationsLimit = k
			}
			records, err := a.ReadRecords()
			if err != nil {
				return err
			}
			set, err := a.RetrieveGraphs(cmd.Context(), records)
			if err != nil {
				return err
			}
			path, err := a.WriteGraphSet(set)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d anti-recommendation graphs to %s\n", set.Len(), path)
			return nil
		},
	}

	cmd.Flags().IntVarP(&k, "limit", "k", 0, "Number of anti-recommendations (default ARKG_ANTI_RECOMMENDATIONS_LIMIT)")

	return cmd
}

func buildCmd(opts *options) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the knowledge graph from the retrieved anti-recommendations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(false)
			if err != nil {
				return err
			}

			set, err := a.ReadGraphSet()
			if err != nil {
				return err
			}
			s, err := a.BuildGraph(cmd.Context(), set)
			if err != nil {
				return err
			}
			return dump(cmd.OutOrStdout(), a, s, all)
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Dump one file per supported serialization")

	return cmd
}

func runCmd(opts *options) *cobra.Command {
	var skipIndex bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Index, retrieve and build in one go",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(true)
			if err != nil {
				return err
			}
			defer a.Close()

			if !skipIndex {
				records, err := a.ReadRecords()
				if err != nil {
					return err
				}
				_, err = a.IndexRecords(cmd.Context(), records)
				if err != nil {
					return err
				}
			}

			s, err := a.Run(cmd.Context())
			if err != nil {
				return err
			}

			path, err := a.GraphPath()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d quads to %s\n", s.Len(), path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipIndex, "skip-index", false, "Use the records already in the similarity index")

	return cmd
}

func queryCmd(opts *options) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "query [sparql]",
		Short: "Run a SPARQL SELECT or ASK query against the dumped knowledge graph",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := queryText(cmd.InOrStdin(), args, file)
			if err != nil {
				return err
			}

			a, err := opts.open(false)
			if err != nil {
				return err
			}
			s, err := a.LoadGraph()
			if err != nil {
				return err
			}

			result, err := s.Query(text)
			if err != nil {
				return err
			}
			defer result.Close()

			if result.Form == store.QueryFormAsk {
				fmt.Fprintln(cmd.OutOrStdout(), result.Boolean())
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, strings.Join(result.Variables, "\t"))
			for result.Next() {
				binding := result.Binding()
				row := make([]string, len(result.Variables))
				for i, variable := range result.Variables {
					if term, ok := binding[variable]; ok {
						row[i] = term.String()
					}
				}
				fmt.Fprintln(w, strings.Join(row, "\t"))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Read the query from a file, - for stdin")

	return cmd
}

// queryText takes the query from the argument, a file or stdin
func queryText(stdin io.Reader, args []string, file string) (string, error) {
	switch {
	case len(args) == 1 && file != "":
		return "", fmt.Errorf("pass the query either as argument or with --file")
	case len(args) == 1:
		return args[0], nil
	case file == "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read query: %w", err)
		}
		return string(data), nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read query: %w", err)
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("no query given")
	}
}

func traverseCmd(opts *options) *cobra.Command {
	var (
		maxHops int
		reverse bool
		dfs     bool
	)

	cmd := &cobra.Command{
		Use:   "traverse <record-key>",
		Short: "Follow anti-recommendations from an article through the dumped knowledge graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(false)
			if err != nil {
				return err
			}
			s, err := a.LoadGraph()
			if err != nil {
				return err
			}

			source := store.NewIRI(vocabulary.WikipediaBaseURL + model.RecordKeyFromPromptFriendly(args[0]))
			traverse := graph.BFS
			if dfs {
				traverse = graph.DFS
			}
			results, err := traverse(cmd.Context(), s, source, maxHops, reverse)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "HOPS\tARTICLE")
			for _, result := range results {
				fmt.Fprintf(w, "%d\t%s\n", result.Distance, strings.TrimPrefix(result.Article.Value, vocabulary.WikipediaBaseURL))
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&maxHops, "hops", 2, "Maximum number of anti-recommendations to follow")
	cmd.Flags().BoolVar(&reverse, "reverse", false, "Follow anti-recommendations backwards")
	cmd.Flags().BoolVar(&dfs, "dfs", false, "Depth-first instead of breadth-first")

	return cmd
}

func formatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List the supported RDF serializations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tCONTENT TYPE\tEXTENSION\tNAMED GRAPHS")
			for _, s := range store.Serializations {
				fmt.Fprintf(w, "%s\t%s\t%s\t%t\n", s.Name, s.ContentType, s.Extension, s.NamedGraphs)
			}
			return w.Flush()
		},
	}
}

func dump(w io.Writer, a *arkg.Arkg, s *store.GraphStore, all bool) error {
	if all {
		paths, err := a.DumpGraphAll(s)
		if err != nil {
			return err
		}
		for _, path := range paths {
			fmt.Fprintf(w, "Wrote %d quads to %s\n", s.Len(), path)
		}
		return nil
	}

	path, err := a.DumpGraph(s)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Wrote %d quads to %s\n", s.Len(), path)
	return nil
}
