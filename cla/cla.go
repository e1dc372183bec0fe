// Package cla declares and parses the command-line arguments shared by data
// engineering containers, so individual scripts do not repeat the flag
// boilerplate. Each preset argument group can be required, optional or left
// out entirely.
//
// Typical usage:
//
//	args, err := cla.Parse(os.Args[1:], cla.Options{
//		InputFiles:      cla.Required,
//		OutputFiles:     cla.Required,
//		SecretLocations: cla.Optional,
//		Registry:        reg,
//	})
//	inputURIs := args.InputURIs()
package cla

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"slices"
	"strings"

	"github.com/colpal/dataeng-container-tools/logger"
	"github.com/colpal/dataeng-container-tools/secrets"
	"github.com/urfave/cli"
)

// ArgType states whether a preset argument group is declared, and if so
// whether the caller may omit it.
type ArgType int

const (
	Unused ArgType = iota
	Optional
	Required
)

// FileTypes are the accepted values for --default_file_type, used when a file
// URI carries no recognisable extension.
var FileTypes = []string{"csv", "json", "yaml", "raw"}

// CustomArg declares an additional script-specific argument alongside the
// preset groups.
type CustomArg struct {
	Name     string
	Usage    string
	Required bool
	Multiple bool // accept the flag more than once
	Default  string
}

// Options selects which argument groups a script uses.
type Options struct {
	Description     string
	InputFiles      ArgType
	OutputFiles     ArgType
	SecretLocations ArgType
	DefaultFileType ArgType
	RunningLocal    ArgType
	IdentifyingTags ArgType
	CustomArgs      []CustomArg

	// Registry receives the content of every file mapped by
	// --secret_locations. Optional; without it the mapping is still parsed
	// and exposed, but no censorship happens here.
	Registry *secrets.Registry

	Logger logger.Logger
}

// Arguments holds the parsed command-line values.
type Arguments struct {
	opts Options
	log  logger.Logger

	inputBuckets, inputPaths, inputFilenames, inputDelimiters     []string
	outputBuckets, outputPaths, outputFilenames, outputDelimiters []string

	secretLocations secrets.Locations
	defaultFileType string
	runningLocal    bool
	tags            map[string]string
	custom          map[string][]string
}

// Parse builds the declared flags, parses args (not including the program
// name) and applies the side effects the presets define: secret files mapped
// by --secret_locations are registered, and identifying tags are exported as
// environment variables.
func Parse(args []string, opts Options) (*Arguments, error) {
	log := opts.Logger
	if log == nil {
		log = logger.Discard
	}
	parsed := &Arguments{
		opts:   opts,
		log:    log,
		tags:   make(map[string]string),
		custom: make(map[string][]string),
	}

	app := cli.NewApp()
	app.Name = "dataeng-container-tools"
	app.Usage = opts.Description
	app.HideVersion = true
	app.Flags = buildFlags(opts)
	app.Writer = os.Stderr

	var captureErr error
	app.Action = func(c *cli.Context) error {
		captureErr = parsed.capture(c)
		return captureErr
	}

	if err := app.Run(append([]string{app.Name}, args...)); err != nil {
		return nil, err
	}
	if captureErr != nil {
		return nil, captureErr
	}
	return parsed, nil
}

func buildFlags(opts Options) []cli.Flag {
	var flags []cli.Flag

	if opts.InputFiles != Unused {
		required := opts.InputFiles == Required
		flags = append(flags,
			cli.StringSliceFlag{Name: "input_bucket_names", Usage: "Buckets to read from", Required: required},
			cli.StringSliceFlag{Name: "input_paths", Usage: "Folders in bucket to read from", Required: required},
			cli.StringSliceFlag{Name: "input_filenames", Usage: "Filenames to read", Required: required},
			cli.StringSliceFlag{Name: "input_delimiters", Usage: "Delimiters for input files"},
		)
	}
	if opts.OutputFiles != Unused {
		required := opts.OutputFiles == Required
		flags = append(flags,
			cli.StringSliceFlag{Name: "output_bucket_names", Usage: "Buckets to write to", Required: required},
			cli.StringSliceFlag{Name: "output_paths", Usage: "Folders in bucket to write to", Required: required},
			cli.StringSliceFlag{Name: "output_filenames", Usage: "Filenames to write", Required: required},
			cli.StringSliceFlag{Name: "output_delimiters", Usage: "Delimiters for output files"},
		)
	}
	if opts.SecretLocations != Unused {
		flags = append(flags, cli.StringFlag{
			Name:     "secret_locations",
			Usage:    "JSON object mapping logical names to injected secret file paths",
			Required: opts.SecretLocations == Required,
		})
	}
	if opts.DefaultFileType != Unused {
		flags = append(flags, cli.StringFlag{
			Name:     "default_file_type",
			Usage:    fmt.Sprintf("Format for files without a recognised extension, one of %q", FileTypes),
			Value:    "json",
			Required: opts.DefaultFileType == Required,
		})
	}
	if opts.RunningLocal != Unused {
		flags = append(flags, cli.BoolFlag{
			Name:  "running_local",
			Usage: "The container is running locally, with no cloud access",
		})
	}
	if opts.IdentifyingTags != Unused {
		required := opts.IdentifyingTags == Required
		flags = append(flags,
			cli.StringFlag{Name: "dag_id", Usage: "The DAG ID", Required: required},
			cli.StringFlag{Name: "run_id", Usage: "The run ID", Required: required},
			cli.StringFlag{Name: "namespace", Usage: "The namespace", Required: required},
			cli.StringFlag{Name: "pod_name", Usage: "The pod name", Required: required},
		)
	}
	for _, custom := range opts.CustomArgs {
		if custom.Multiple {
			flags = append(flags, cli.StringSliceFlag{
				Name:     custom.Name,
				Usage:    custom.Usage,
				Required: custom.Required,
			})
			continue
		}
		flags = append(flags, cli.StringFlag{
			Name:     custom.Name,
			Usage:    custom.Usage,
			Value:    custom.Default,
			Required: custom.Required,
		})
	}
	return flags
}

func (a *Arguments) capture(c *cli.Context) error {
	opts := a.opts

	if opts.InputFiles != Unused {
		a.inputBuckets = c.StringSlice("input_bucket_names")
		a.inputPaths = c.StringSlice("input_paths")
		a.inputFilenames = c.StringSlice("input_filenames")
		a.inputDelimiters = c.StringSlice("input_delimiters")
		if err := checkFileGroup("input", a.inputBuckets, a.inputPaths, a.inputFilenames); err != nil {
			return err
		}
	}
	if opts.OutputFiles != Unused {
		a.outputBuckets = c.StringSlice("output_bucket_names")
		a.outputPaths = c.StringSlice("output_paths")
		a.outputFilenames = c.StringSlice("output_filenames")
		a.outputDelimiters = c.StringSlice("output_delimiters")
		if err := checkFileGroup("output", a.outputBuckets, a.outputPaths, a.outputFilenames); err != nil {
			return err
		}
	}

	if opts.SecretLocations != Unused {
		a.secretLocations = secrets.Locations{}
		if raw := c.String("secret_locations"); raw != "" {
			var locations map[string]string
			if err := json.Unmarshal([]byte(raw), &locations); err != nil {
				return fmt.Errorf("parsing --secret_locations: %w", err)
			}
			a.secretLocations = locations

			if opts.Registry != nil {
				for name, path := range locations {
					if _, err := opts.Registry.ParseSecret(path); err != nil {
						if errors.Is(err, secrets.ErrParse) {
							// Content is censored whole; usable as-is.
							a.log.Warn("secret %s: %v", name, err)
							continue
						}
						return fmt.Errorf("secret %s: %w", name, err)
					}
				}
			}
		}
	}

	if opts.DefaultFileType != Unused {
		a.defaultFileType = c.String("default_file_type")
		if !slices.Contains(FileTypes, a.defaultFileType) {
			return fmt.Errorf("invalid --default_file_type %q, must be one of %q", a.defaultFileType, FileTypes)
		}
	}
	if opts.RunningLocal != Unused {
		a.runningLocal = c.Bool("running_local")
	}

	if opts.IdentifyingTags != Unused {
		for flag, envVar := range map[string]string{
			"dag_id":    "DAG_ID",
			"run_id":    "RUN_ID",
			"namespace": "NAMESPACE",
			"pod_name":  "POD_NAME",
		} {
			value := c.String(flag)
			a.tags[flag] = value
			if value != "" {
				os.Setenv(envVar, value)
			}
		}
	}

	for _, custom := range opts.CustomArgs {
		if custom.Multiple {
			a.custom[custom.Name] = c.StringSlice(custom.Name)
			continue
		}
		a.custom[custom.Name] = []string{c.String(custom.Name)}
	}

	a.log.Info("command line input: %s", a)
	return nil
}

// checkFileGroup enforces the positional 1:1 rule between paths and
// filenames, with the single-bucket broadcast exception.
func checkFileGroup(kind string, buckets, paths, filenames []string) error {
	if len(filenames) == 0 {
		return nil
	}
	if len(paths) != len(filenames) {
		return fmt.Errorf("%s_paths and %s_filenames must pair up 1:1 (%d vs %d)", kind, kind, len(paths), len(filenames))
	}
	if len(buckets) != 1 && len(buckets) != len(filenames) {
		return fmt.Errorf("%s_bucket_names must be a single bucket or pair 1:1 with %s_filenames", kind, kind)
	}
	return nil
}

// InputURIs assembles gs:// URIs from the input file arguments. A single
// bucket is broadcast across every filename.
func (a *Arguments) InputURIs() []string {
	return assembleURIs(a.inputBuckets, a.inputPaths, a.inputFilenames)
}

// OutputURIs assembles gs:// URIs from the output file arguments.
func (a *Arguments) OutputURIs() []string {
	return assembleURIs(a.outputBuckets, a.outputPaths, a.outputFilenames)
}

func assembleURIs(buckets, dirs, filenames []string) []string {
	uris := make([]string, 0, len(filenames))
	for i, filename := range filenames {
		bucket := ""
		switch {
		case len(buckets) == 1:
			bucket = buckets[0]
		case i < len(buckets):
			bucket = buckets[i]
		}
		uris = append(uris, "gs://"+path.Join(bucket, dirs[i], filename))
	}
	return uris
}

// InputDelimiters returns the delimiters declared for input files, if any.
func (a *Arguments) InputDelimiters() []string { return a.inputDelimiters }

// OutputDelimiters returns the delimiters declared for output files, if any.
func (a *Arguments) OutputDelimiters() []string { return a.outputDelimiters }

// SecretLocations returns the logical-name to path mapping. Lookups through
// it fall back to collaborator defaults for unmapped names.
func (a *Arguments) SecretLocations() secrets.Locations { return a.secretLocations }

// DefaultFileType returns the fallback format for extensionless files.
func (a *Arguments) DefaultFileType() string { return a.defaultFileType }

// RunningLocal reports whether the container runs without cloud access.
func (a *Arguments) RunningLocal() bool { return a.runningLocal }

// Tag returns an identifying tag value ("dag_id", "run_id", "namespace",
// "pod_name").
func (a *Arguments) Tag(name string) string { return a.tags[name] }

// Custom returns the value of a custom argument. Multi-valued arguments
// return their first value; use CustomSlice for all of them.
func (a *Arguments) Custom(name string) string {
	if values := a.custom[name]; len(values) > 0 {
		return values[0]
	}
	return ""
}

// CustomSlice returns all values of a multi-valued custom argument.
func (a *Arguments) CustomSlice(name string) []string { return a.custom[name] }

func (a *Arguments) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "inputs=%v outputs=%v", a.InputURIs(), a.OutputURIs())
	if len(a.secretLocations) > 0 {
		names := make([]string, 0, len(a.secretLocations))
		for name := range a.secretLocations {
			names = append(names, name)
		}
		slices.Sort(names)
		// Names only; never the paths' content.
		fmt.Fprintf(&b, " secret_locations=%v", names)
	}
	if a.defaultFileType != "" {
		fmt.Fprintf(&b, " default_file_type=%s", a.defaultFileType)
	}
	return b.String()
}
