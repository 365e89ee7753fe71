package cmd

import (
	"strings"

	"github.com/cliff-rosen/orchestrator-sub003/internal/api"
	"github.com/cliff-rosen/orchestrator-sub003/internal/cli"
	pkgstrings "github.com/cliff-rosen/orchestrator-sub003/pkg/strings"

	"github.com/spf13/cobra"
)

// descriptionWidth is where descriptions are cut in listings.
const descriptionWidth = 60

var (
	listOutputFormat string
	listNoHeaders    bool
	listImport       bool
)

func addListFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&listOutputFormat, "output", "o", "table", "Output format (table, json, yaml)")
	cmd.Flags().BoolVar(&listNoHeaders, "no-headers", false, "Do not print the table header")
}

func newToolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tools",
		Aliases: []string{"tool"},
		Short:   "List the tools of the catalog",
		Long: `Lists the built-in tools and the tools defined below the catalog directory.
With --import, tools of MCP servers configured with importTools are
included as well.`,
		Args: cobra.NoArgs,
		RunE: runTools,
	}
	addListFlags(cmd)
	cmd.Flags().BoolVar(&listImport, "import", false, "Start MCP servers and include their tools")
	return cmd
}

func newTemplatesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "templates",
		Aliases: []string{"template"},
		Short:   "List the prompt templates of the catalog",
		Long:    `Lists the built-in prompt templates and the templates defined below the catalog directory.`,
		Args:    cobra.NoArgs,
		RunE:    runTemplates,
	}
	addListFlags(cmd)
	return cmd
}

func runTools(cmd *cobra.Command, args []string) error {
	if err := cli.ValidateOutputFormat(listOutputFormat); err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), configPath, appOptions{connect: listImport})
	if err != nil {
		return err
	}
	defer a.Close()

	toolList := a.catalog.ListTools()
	listing := cli.Listing{
		Headers: []string{"id", "type", "parameters", "outputs", "server", "description"},
		Data:    toolList,
	}
	for _, t := range toolList {
		listing.Rows = append(listing.Rows, []string{
			t.ID,
			string(t.Type),
			slotNames(t.Signature.Parameters),
			slotNames(t.Signature.Outputs),
			t.Server,
			pkgstrings.Cell(t.Description, descriptionWidth),
		})
	}
	return cli.Print(cmd.OutOrStdout(), cli.OutputFormat(listOutputFormat), listing, listNoHeaders)
}

func runTemplates(cmd *cobra.Command, args []string) error {
	if err := cli.ValidateOutputFormat(listOutputFormat); err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), configPath, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	templates := a.catalog.ListPromptTemplates()
	listing := cli.Listing{
		Headers: []string{"id", "name", "tokens", "output"},
		Data:    templates,
	}
	for _, t := range templates {
		output := ""
		if t.OutputSchema != nil {
			output = t.OutputSchema.String()
		}
		listing.Rows = append(listing.Rows, []string{t.ID, t.Name, strings.Join(t.Tokens, ","), output})
	}
	return cli.Print(cmd.OutOrStdout(), cli.OutputFormat(listOutputFormat), listing, listNoHeaders)
}

func slotNames(slots []api.Slot) string {
	names := make([]string, 0, len(slots))
	for _, s := range slots {
		name := s.Name
		if s.Required {
			name += "*"
		}
		names = append(names, name)
	}
	return strings.Join(names, ",")
}
