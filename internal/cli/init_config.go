package cli

import (
	"context"
	"errors"
	"path/filepath"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/bufdev/internal/config"
)

var errNoGlobalPath = errors.New("cannot locate global config: neither XDG_CONFIG_HOME nor HOME is set")

// InitConfigCmd returns the init-config command.
func InitConfigCmd(cfg *config.Config, env map[string]string) *Command {
	fs := flag.NewFlagSet("init-config", flag.ContinueOnError)
	global := fs.Bool("global", false, "write the global config instead of .bufdev.json")
	force := fs.BoolP("force", "f", false, "overwrite an existing file")

	return &Command{
		Flags: fs,
		Usage: "init-config [flags] [path]",
		Short: "Write a commented default config file",
		Long: `Write a commented default config file.

Without a path the file is .bufdev.json in the working directory, or the
global config with --global.`,
		Exec: func(_ context.Context, io *IO, args []string) error {
			path := filepath.Join(cfg.EffectiveCwd, config.FileName)

			switch {
			case len(args) > 0:
				path = args[0]
				if !filepath.IsAbs(path) {
					path = filepath.Join(cfg.EffectiveCwd, path)
				}
			case *global:
				path = config.GlobalPath(env)
				if path == "" {
					return errNoGlobalPath
				}
			}

			err := config.WriteDefault(path, *force)
			if err != nil {
				return err
			}

			io.Println("wrote " + path)

			return nil
		},
	}
}
