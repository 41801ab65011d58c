package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/anime-shed/allsky-modules-go/internal/config"
	"github.com/anime-shed/allsky-modules-go/internal/container"
	apperrors "github.com/anime-shed/allsky-modules-go/internal/errors"
	"github.com/anime-shed/allsky-modules-go/internal/plugin"
	"github.com/anime-shed/allsky-modules-go/pkg/models"
)

const usage = `usage:
  allsky-module run <module> [-event day|night|periodic] [-image LOCATOR] [-param key=value ...] [-json]
  allsky-module cleanup <module>
  allsky-module metadata <module>
  allsky-module list
`

func main() {
	if err := config.LoadEnvFile(os.Getenv("ALLSKY_ENV_FILE")); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(apperrors.ExitConfig)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], config.OSEnv{}, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// paramFlag collects repeated -param key=value pairs
type paramFlag plugin.Params

func (p paramFlag) String() string {
	pairs := make([]string, 0, len(p))
	for k, v := range p {
		pairs = append(pairs, k+"="+v)
	}
	return strings.Join(pairs, ",")
}

func (p paramFlag) Set(kv string) error {
	key, value, err := plugin.ParseParam(kv)
	if err != nil {
		return err
	}
	p[key] = value
	return nil
}

// run executes one command and returns the process exit code
func run(ctx context.Context, args []string, env config.Env, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return apperrors.ExitValidation
	}
	command, rest := args[0], args[1:]
	var module string
	if command != "list" {
		if len(rest) == 0 {
			fmt.Fprint(stderr, usage)
			return apperrors.ExitValidation
		}
		module, rest = rest[0], rest[1:]
	}

	cfg, err := config.Load(env)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load config: %v\n", err)
		return apperrors.ExitConfig
	}

	c, err := container.NewContainer(cfg, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to initialize container: %v\n", err)
		return apperrors.GetExitCode(err)
	}
	log := c.Logger()
	defer func() {
		log.WithFields(logrus.Fields(c.Metrics())).Debug("Run metrics")
		if err := c.Close(); err != nil {
			log.WithError(err).Warn("Failed to close state store")
		}
	}()

	svc := c.ModuleService()

	switch command {
	case "run":
		fs := flag.NewFlagSet("run", flag.ContinueOnError)
		fs.SetOutput(stderr)
		event := fs.String("event", "", "pipeline event the module runs for")
		locator := fs.String("image", "", "image to process, defaults to CURRENT_IMAGE")
		asJSON := fs.Bool("json", false, "print the result as JSON")
		params := paramFlag{}
		fs.Var(params, "param", "module argument as key=value, repeatable")
		if err := fs.Parse(rest); err != nil {
			return apperrors.ExitValidation
		}

		result, err := svc.Run(ctx, module, plugin.Invocation{
			Event:        plugin.Event(*event),
			Params:       plugin.Params(params),
			ImageLocator: *locator,
		})
		if err != nil {
			log.WithError(err).WithField("module", module).Error("Module run failed")
			if *asJSON {
				writeJSON(stdout, models.ErrorResponse{
					Error:    err.Error(),
					Message:  errorDetails(err),
					ExitCode: apperrors.GetExitCode(err),
				})
			} else {
				fmt.Fprintln(stdout, err.Error())
			}
			return apperrors.GetExitCode(err)
		}

		if *asJSON {
			writeJSON(stdout, result)
		} else {
			fmt.Fprintln(stdout, result.Message)
		}
		return apperrors.ExitOK

	case "cleanup":
		if err := svc.Cleanup(ctx, module); err != nil {
			log.WithError(err).WithField("module", module).Error("Module cleanup failed")
			fmt.Fprintln(stdout, err.Error())
			return apperrors.GetExitCode(err)
		}
		return apperrors.ExitOK

	case "metadata":
		meta, err := svc.Metadata(module)
		if err != nil {
			fmt.Fprintln(stdout, err.Error())
			return apperrors.GetExitCode(err)
		}
		writeJSON(stdout, meta)
		return apperrors.ExitOK

	case "list":
		for _, name := range svc.Modules() {
			fmt.Fprintln(stdout, name)
		}
		return apperrors.ExitOK

	default:
		fmt.Fprintf(stderr, "unknown command %q\n%s", command, usage)
		return apperrors.ExitValidation
	}
}

func errorDetails(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Details
	}
	return ""
}

func writeJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	_ = enc.Encode(v)
}
