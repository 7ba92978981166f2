package cli

import (
	"context"
	"fmt"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/bufdev/internal/config"
)

// PrintConfigCmd returns the print-config command.
func PrintConfigCmd(cfg *config.Config) *Command {
	fs := flag.NewFlagSet("print-config", flag.ContinueOnError)
	asJSON := fs.Bool("json", false, "print the serialized config as JSON")

	return &Command{
		Flags: fs,
		Usage: "print-config [--json]",
		Short: "Show resolved configuration",
		Long:  "Display the effective configuration and which files it was loaded from.",
		Exec: func(_ context.Context, io *IO, _ []string) error {
			if *asJSON {
				out, err := config.Format(*cfg)
				if err != nil {
					return err
				}

				io.Println(out)

				return nil
			}

			return execPrintConfig(io, cfg)
		},
	}
}

func execPrintConfig(io *IO, cfg *config.Config) error {
	io.Println("effective_cwd=" + cfg.EffectiveCwd)
	io.Println(fmt.Sprintf("count=%d", cfg.Count))
	io.Println(fmt.Sprintf("capacity=%d", cfg.Capacity))
	io.Println(fmt.Sprintf("base=%d", cfg.Base))

	if cfg.MaxInstances != 0 {
		io.Println(fmt.Sprintf("max_instances=%d", cfg.MaxInstances))
	}

	io.Println(fmt.Sprintf("single_open=%t", cfg.SingleOpen))
	io.Println("log_level=" + cfg.LogLevel)

	for idx, inst := range cfg.Instances {
		io.Println(fmt.Sprintf("instances[%d]=capacity:%d perm:%s serial:%s", idx, inst.Capacity, inst.Perm, inst.Serial))
	}

	io.Println("")
	io.Println("# sources")

	src := cfg.Sources
	if src.Global == "" && src.Project == "" && !src.Env && !src.Override {
		io.Println("(defaults only)")

		return nil
	}

	if src.Global != "" {
		io.Println("global_config=" + src.Global)
	}

	if src.Project != "" {
		io.Println("project_config=" + src.Project)
	}

	if src.Env {
		io.Println("env=" + config.EnvPrefix + "_*")
	}

	if src.Override {
		io.Println("flags=yes")
	}

	return nil
}
