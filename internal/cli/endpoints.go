package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ryanuber/columnize"
	"github.com/spf13/cobra"

	"xplore/internal/model"
	"xplore/internal/session"
)

func newEndpointsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "endpoints",
		Short: "List the endpoints of the active service",
		Example: strings.TrimSpace(`  xplore endpoints --service Service2
  xplore endpoints --spec-file ./openapi.yaml --tag pets`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tag, err := cmd.Flags().GetString("tag")
			if err != nil {
				return err
			}
			rt, err := newRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			cat, err := rt.ctrl.LoadCatalogue(cmd.Context(), false)
			if err != nil {
				return errors.New(session.Describe(err))
			}
			if label := rt.ctrl.Spec().Info.Label(); label != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\n\n", label)
			}
			fmt.Fprintln(cmd.OutOrStdout(), endpointsTable(cat.Entries(), tag))
			return nil
		},
	}
	cmd.Flags().String("tag", "", "Only list endpoints under this tag")
	return cmd
}

// endpointsTable renders entries as aligned columns. A non-empty tag keeps
// only that group.
func endpointsTable(entries []model.Entry, tag string) string {
	rows := []string{"Tag|Method|Path|Summary"}
	for _, e := range entries {
		if tag != "" && !strings.EqualFold(e.Tag, tag) {
			continue
		}
		summary := e.Endpoint.Summary
		if summary == "" {
			summary = e.Endpoint.OperationID
		}
		rows = append(rows, strings.Join([]string{e.Tag, e.Endpoint.Method, e.Endpoint.Path, oneLine(summary)}, "|"))
	}
	if len(rows) == 1 {
		return "No endpoints."
	}
	return columnize.SimpleFormat(rows)
}

// oneLine keeps columns intact when a summary has newlines or pipes.
func oneLine(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return strings.ReplaceAll(s, "|", "/")
}
