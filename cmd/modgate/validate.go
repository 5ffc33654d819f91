package main

import (
	"context"
	"fmt"
	"os"

	"github.com/artpar/modgate/app"
	"github.com/artpar/modgate/config"
	"github.com/artpar/modgate/modules"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration before deployment",
	Long: `Validate the modgate configuration file.

Checks:
  - YAML syntax is valid
  - Required fields are present and version ids are routable
  - Module paths are unique within each version
  - Every configured script and library has a registered implementation

Examples:
  modgate validate
  modgate validate --config /etc/modgate/modgate.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Validating %s...\n\n", cfgFile)

	if _, err := os.Stat(cfgFile); os.IsNotExist(err) {
		fmt.Fprintf(out, "  %s Config file exists\n", crossMark)
		return fmt.Errorf("config file not found: %s", cfgFile)
	}
	fmt.Fprintf(out, "  %s Config file exists\n", checkMark)

	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(out, "  %s Config valid\n", crossMark)
		return fmt.Errorf("config error: %w", err)
	}
	fmt.Fprintf(out, "  %s Config valid\n", checkMark)

	fmt.Fprintf(out, "  %s Service: %s (base path %s)\n", checkMark, cfg.Service.Name, cfg.Service.BasePath)
	fmt.Fprintf(out, "  %s Versions: %d, modules: %d\n", checkMark, len(cfg.Service.Versions), cfg.Service.ModuleCount())
	fmt.Fprintf(out, "  %s Auth mode: %s\n", checkMark, cfg.Auth.Mode)
	fmt.Fprintf(out, "  %s Request log: %s\n", checkMark, cfg.RequestLog.Mode)

	reg, err := modules.NewRegistry()
	if err != nil {
		return err
	}

	if missing := reg.Missing(cfg.Service); len(missing) > 0 {
		fmt.Fprintf(out, "  %s Implementations registered\n", crossMark)
		for _, m := range missing {
			fmt.Fprintf(out, "      missing: %s\n", m)
		}
		return fmt.Errorf("%d configured implementation(s) not registered", len(missing))
	}
	fmt.Fprintf(out, "  %s Implementations registered\n", checkMark)

	gw, err := app.NewGateway(context.Background(), app.GatewayDeps{
		Registry: reg,
		Logger:   zerolog.Nop(),
	}, app.GatewayConfig{Service: cfg.Service})
	if err != nil {
		fmt.Fprintf(out, "  %s Libraries activated\n", crossMark)
		return err
	}
	fmt.Fprintf(out, "  %s Libraries activated, %d routes\n", checkMark, gw.Routes().Len())

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Configuration is valid.")
	return nil
}
