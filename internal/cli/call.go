package cli

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"xplore/internal/prompt"
	"xplore/internal/session"
)

var driverFactory = func(cmd *cobra.Command, editor string) prompt.Driver {
	return prompt.NewSurveyDriver(cmd.OutOrStdout(), editor)
}

func newCallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "call [METHOD /path]",
		Short: "Fill in and send one request through terminal prompts",
		Long: "call asks for every parameter, header and body field of an endpoint, " +
			"shows the request and sends it. Without arguments it lets you pick the endpoint.",
		Example: strings.TrimSpace(`  xplore call
  xplore call GET /items/{id} --partition partition2`),
		Args: cobra.RangeArgs(0, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()
			out := cmd.OutOrStdout()
			return runCall(cmd.Context(), rt, driverFactory(cmd, rt.cfg.Editor), strings.Join(args, " "), isTerminal(out))
		},
	}
	return cmd
}

func runCall(ctx context.Context, rt *runtime, driver prompt.Driver, id string, colour bool) error {
	if _, err := rt.ctrl.LoadCatalogue(ctx, false); err != nil {
		return errors.New(session.Describe(err))
	}
	err := prompt.NewWalker(driver, rt.ctrl, colour).Run(ctx, id)
	if errors.Is(err, prompt.ErrAborted) {
		rt.logger.Debug("call aborted")
		return nil
	}
	return err
}

// isTerminal reports whether w is a terminal, so responses can be coloured.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}
