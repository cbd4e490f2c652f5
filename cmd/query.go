package cmd

import (
	"fmt"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/streed/memo/internal/query"
)

var queryOutput string

var queryCmd = &cobra.Command{
	Use:   "query [query...]",
	Short: "Explain how a search query compiles",
	Long: heredoc.Doc(`
		Show every stage of compiling a search query: the tokens, the parsed
		expression tree and the SQL fragment with its bound parameters.

		The query is not run. Use 'memo search' to run it against your notes.

		Examples:
		  memo query '@title:"project plan" AND -@tags:done'
		  memo query --output json 'a OR (b c)'
	`),
	Args: cobra.MinimumNArgs(1),
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVarP(&queryOutput, "output", "o", outputText, "Output format: text, json or yaml")
}

func runQuery(cmd *cobra.Command, args []string) error {
	if err := validateOutput(queryOutput); err != nil {
		return err
	}

	raw := strings.Join(args, " ")
	exp, err := searcher.Explain(raw)
	if err != nil {
		return fmt.Errorf("invalid query syntax: %w", err)
	}

	out := cmd.OutOrStdout()
	if done, err := writeStructured(out, queryOutput, exp); done {
		return err
	}

	fmt.Fprintf(out, "Query: %s\n\n", exp.Query)
	fmt.Fprintln(out, "Tokens:")
	for i, tok := range exp.Tokens {
		fmt.Fprintf(out, "  %2d  %-7s %q\n", i, tok.Kind, tok.Text)
	}

	if exp.Predicate == nil {
		fmt.Fprintln(out, "\nThe query has no filter terms and matches every note.")
		return nil
	}

	node, err := query.Parse(exp.Tokens)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "\nTree:")
	for _, line := range strings.Split(strings.TrimRight(query.Format(node), "\n"), "\n") {
		fmt.Fprintf(out, "  %s\n", line)
	}

	fmt.Fprintf(out, "\nSQL:\n  %s\n", exp.Predicate.Fragment)
	fmt.Fprintln(out, "\nParams:")
	for i, p := range exp.Predicate.Params {
		fmt.Fprintf(out, "  %d  %#v\n", i+1, p)
	}
	return nil
}
