package main

import (
	"github.com/spf13/cobra"

	"github.com/keeweb/keeweb-native-messaging-host/internal/companion"
	"github.com/keeweb/keeweb-native-messaging-host/internal/config"
	"github.com/keeweb/keeweb-native-messaging-host/internal/doctor"
	"github.com/keeweb/keeweb-native-messaging-host/internal/output"
	"github.com/keeweb/keeweb-native-messaging-host/internal/pipe"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose the connection to KeeWeb",
		Long: `Run diagnostic checks to find out why a browser extension cannot reach KeeWeb.

Checks performed:
  - socket address derivation and length
  - presence of the KeeWeb socket
  - a test connection to KeeWeb
  - the KeeWeb executable used for auto-launch
  - installed browser manifests
  - accepted extension origins`,
		Example: `  ` + binaryName + ` doctor
  ` + binaryName + ` doctor --json`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())
			cfg := config.Load()

			env := doctor.Env{
				Resolver: pipe.NewResolver(pipe.Options{
					Override: cfg.SocketOverride(),
				}),
				DialTimeout: cfg.DialTimeout(),
				AllowList:   allowList(cfg),
			}

			if cfg.LaunchEnabled() {
				env.Executable = cfg.CompanionExecutable()
				if env.Executable == "" {
					env.Executable = companion.DefaultExecutable
				}
			}

			spin := out.Spinner("Checking KeeWeb")
			if !out.JSON {
				spin.Start()
			}

			results := doctor.New(env).Run(cmd.Context())

			if out.JSON {
				return out.PrintJSON(doctor.NewReport(results))
			}

			switch _, failed, warnings := doctor.Summary(results); {
			case failed > 0:
				spin.StopWithFailure("")
			case warnings > 0:
				spin.StopWithWarning("")
			default:
				spin.StopWithSuccess("")
			}

			printDoctorReport(out, results)

			return nil
		},
	}
}

func printDoctorReport(out *output.Writer, results []doctor.Result) {
	out.Println("KeeWeb Native Messaging Host Doctor")
	out.Println("===================================")
	out.Println()

	doctor.RenderResults(results, out)

	passed, failed, warnings := doctor.Summary(results)

	out.Println()
	out.Print("%d passed", passed)

	if failed > 0 {
		out.Print(", %d failed", failed)
	}

	if warnings > 0 {
		out.Print(", %d warning(s)", warnings)
	}

	out.Println()
}
