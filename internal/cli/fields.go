package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kritdbb/DobyHR/internal/fields"
)

// NewFieldsCommand creates the fields command.
func NewFieldsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "fields",
		Short: "List the fields condition queries can use",
		Long: `List every static field and one item_<id> field per active reward.

The JSON output is a map keyed by field name, ready for a query builder UI.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFields(rootOpts, cmd)
		},
	}
}

// Field kinds reported by the fields command.
const (
	FieldKindStatic = "static"
	FieldKindItem   = "item"
)

// FieldInfo is one entry of the catalog map.
type FieldInfo struct {
	Kind        string `json:"kind"`
	Label       string `json:"label"`
	Description string `json:"desc"`
	Example     string `json:"example"`
}

func runFields(opts *RootOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	a, err := opts.open(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	entries := a.registry.Catalog(commandContext(cmd.Context()))
	catalog := make(map[string]FieldInfo, len(entries))
	for _, e := range entries {
		catalog[e.Field] = FieldInfo{
			Kind:        fieldKind(a.registry, e.Field),
			Label:       e.Label,
			Description: e.Description,
			Example:     e.Example,
		}
	}

	return formatter.Render(catalog, func(w io.Writer) {
		printCatalog(w, a.registry, entries)
	})
}

func fieldKind(reg *fields.Registry, name string) string {
	if reg.IsStatic(name) {
		return FieldKindStatic
	}
	return FieldKindItem
}

func printCatalog(w io.Writer, reg *fields.Registry, entries []fields.Entry) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FIELD\tKIND\tLABEL\tEXAMPLE")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Field, fieldKind(reg, e.Field), e.Label, e.Example)
	}
	_ = tw.Flush()
}
