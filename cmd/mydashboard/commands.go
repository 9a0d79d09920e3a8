package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"mydashboard/internal/analysis"
	"mydashboard/internal/logging"
	"mydashboard/internal/sheet"
)

func newTablesCmd(a *app, flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List your tables, uploads first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.login(cmd.Context(), flags); err != nil {
				return err
			}
			listing := a.ctrl.Snapshot().Listing
			fmt.Fprintln(cmd.OutOrStdout(), renderListing(listing))
			return nil
		},
	}
}

func newShowCmd(a *app, flags *rootFlags) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "show <name>",
		Short: "Print a table. Uploads win over manual tables with the same name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.login(cmd.Context(), flags); err != nil {
				return err
			}
			rec, err := a.ctrl.SelectByName(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderRecord(rec, limit))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum rows to print, 0 for all")
	return cmd
}

func newUploadCmd(a *app, flags *rootFlags) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload an .xlsx or .csv file as a new table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.FromContext(ctx)
			t, err := sheet.Load(args[0])
			if err != nil {
				return err
			}
			log.Debug("parsed spreadsheet", "path", args[0], "rows", t.Len(), "columns", len(t.Columns))
			if err := a.login(ctx, flags); err != nil {
				return err
			}
			if name == "" {
				name = sheet.DefaultName(args[0])
			}
			if err := a.ctrl.Upload(ctx, name, t); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), a.ctrl.Snapshot().Notice)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "table name (defaults to the file name)")
	return cmd
}

func newToolsCmd(a *app, flags *rootFlags) *cobra.Command {
	var names []string
	cmd := &cobra.Command{
		Use:   "tools <name>",
		Short: "Run analysis tools over a table",
		Long:  "Run analysis tools over a table. Tools: " + toolSlugs() + ". All tools run when none is given.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tools, err := parseTools(names)
			if err != nil {
				return err
			}
			if err := a.login(cmd.Context(), flags); err != nil {
				return err
			}
			if _, err := a.ctrl.SelectByName(args[0]); err != nil {
				return err
			}
			results, err := a.ctrl.RunTools(tools)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderResults(results))
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&names, "tool", "t", nil, "tool to run (repeatable)")
	return cmd
}

func parseTools(names []string) ([]analysis.Tool, error) {
	if len(names) == 0 {
		return analysis.All(), nil
	}
	tools := make([]analysis.Tool, 0, len(names))
	for _, n := range names {
		t, err := analysis.Parse(n)
		if err != nil {
			return nil, err
		}
		tools = append(tools, t)
	}
	return tools, nil
}

func toolSlugs() string {
	var s string
	for i, t := range analysis.All() {
		if i > 0 {
			s += ", "
		}
		s += t.Slug()
	}
	return s
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return strconv.Itoa(n) + " " + word + "s"
}
