package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/artpar/modgate/config"
	"github.com/artpar/modgate/domain/route"
	"github.com/artpar/modgate/modules"
	"github.com/spf13/cobra"
)

var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "Show the compiled route table",
	Long: `Print every routable (version, module path) pair with the script
that serves it.

Paths are shown in their normalized form: lowercased, without surrounding
slashes. Requests match them case-insensitively.`,
	RunE: runRoutes,
}

func init() {
	rootCmd.AddCommand(routesCmd)
}

func runRoutes(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	reg, err := modules.NewRegistry()
	if err != nil {
		return err
	}

	table := route.Build(cfg.Service)
	out := cmd.OutOrStdout()

	if table.Len() == 0 {
		fmt.Fprintln(out, "No routes configured.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ROUTE\tSCRIPT\tAVAILABLE\tAUTH\tREGISTERED")
	fmt.Fprintln(w, "-----\t------\t---------\t----\t----------")

	for _, v := range table.Versions() {
		ver, _ := cfg.Service.Version(v)
		for _, e := range table.Entries(v) {
			m := ver.Modules[e.Index]
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				joinPath(cfg.Service.BasePath, e.Version, e.Path),
				e.Script,
				yesNo(ver.Available && m.Available),
				yesNo(m.AuthenticationRequired),
				yesNo(reg.Has(e.Version, e.Script)),
			)
		}
	}

	return w.Flush()
}

func joinPath(base, version, path string) string {
	if base == "/" {
		base = ""
	}
	return base + "/" + version + "/" + path
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
