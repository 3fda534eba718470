package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/zachwill/ralph/internal/config"
	"github.com/zachwill/ralph/internal/specdir"
)

var (
	specsDirFlag  string
	specsRunFlags loopFlags
	specsNewBody  string
)

var specsCmd = &cobra.Command{
	Use:   "specs",
	Short: "Work through a directory of numbered specs",
	Long: `Specs are markdown files named NNN-slug.md in the spec directory
(default specs/). A research run writes one spec into an empty queue; an
implement run claims the lowest unclaimed spec, builds it and deletes it.`,
}

var specsRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Alternate research and implement runs over the spec directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLoop(cmd, &specsRunFlags, modeSpecs, specsDirFlag)
	},
}

var specsNewCmd = &cobra.Command{
	Use:   "new <slug>",
	Short: "Create the next numbered spec",
	Long: `Creates NNN-slug.md with the next free number. The body comes from
--body, or from stdin when --body is "-".`,
	Args: cobra.ExactArgs(1),
	RunE: runSpecsNew,
}

var specsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List specs in priority order",
	Args:  cobra.NoArgs,
	RunE:  runSpecsList,
}

var specsClaimCmd = &cobra.Command{
	Use:   "claim <number>",
	Short: "Mark a spec as claimed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSpec(cmd, args[0], func(d *specdir.Dir, it specdir.Item) error {
			_, err := d.Claim(it)
			return err
		}, "Claimed")
	},
}

var specsReleaseCmd = &cobra.Command{
	Use:   "release <number>",
	Short: "Remove the claim from a spec",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSpec(cmd, args[0], func(d *specdir.Dir, it specdir.Item) error {
			_, err := d.Release(it)
			return err
		}, "Released")
	},
}

var specsDoneCmd = &cobra.Command{
	Use:   "done <number>",
	Short: "Delete a finished spec",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSpec(cmd, args[0], func(d *specdir.Dir, it specdir.Item) error {
			return d.Complete(it)
		}, "Completed")
	},
}

func init() {
	specsCmd.PersistentFlags().StringVar(&specsDirFlag, "dir", "", "spec directory (default from config, specs)")
	specsRunFlags.register(specsRunCmd.Flags())
	specsRunFlags.registerPhases(specsRunCmd.Flags())
	specsNewCmd.Flags().StringVarP(&specsNewBody, "body", "b", "", `spec body; "-" reads stdin`)

	specsCmd.AddCommand(specsRunCmd, specsNewCmd, specsListCmd, specsClaimCmd, specsReleaseCmd, specsDoneCmd)
	rootCmd.AddCommand(specsCmd)
}

// openSpecDir locates the spec directory. Outside a git repository the
// current directory stands in for the project root.
func openSpecDir() (*specdir.Dir, error) {
	proj, err := openProject()
	if err != nil {
		cwd, cerr := os.Getwd()
		if cerr != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", cerr)
		}
		if config.IsValidationError(err) {
			return nil, err
		}
		cfg, lerr := config.LoadConfig(cwd)
		if lerr != nil {
			return nil, configError(lerr)
		}
		proj = &project{root: cwd, cfg: cfg}
	}

	dir := proj.cfg.Tasks.Dir
	if specsDirFlag != "" {
		dir = specsDirFlag
	}
	return specdir.New(proj.path(dir)), nil
}

func runSpecsNew(cmd *cobra.Command, args []string) error {
	d, err := openSpecDir()
	if err != nil {
		return err
	}

	body := specsNewBody
	if body == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read body: %w", err)
		}
		body = string(data)
	}
	if strings.TrimSpace(body) == "" {
		body = "# " + args[0] + "\n"
	}

	item, err := d.Create(args[0], body)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), item.Path)
	return nil
}

func runSpecsList(cmd *cobra.Command, args []string) error {
	d, err := openSpecDir()
	if err != nil {
		return err
	}
	snap, err := d.Snapshot()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if snap.Empty() {
		fmt.Fprintln(out, "No specs.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, it := range snap.All() {
		status := "open"
		if it.Claimed {
			status = "claimed"
		}
		if snap.Next != nil && it.Number == snap.Next.Number {
			status = "next"
		}
		fmt.Fprintf(w, "%03d\t%s\t%s\n", it.Number, it.Slug, status)
	}
	return w.Flush()
}

func withSpec(cmd *cobra.Command, arg string, op func(*specdir.Dir, specdir.Item) error, verb string) error {
	n, err := strconv.Atoi(arg)
	if err != nil || n <= 0 {
		return fmt.Errorf("invalid spec number %q", arg)
	}
	d, err := openSpecDir()
	if err != nil {
		return err
	}
	item, err := d.Get(n)
	if err != nil {
		return err
	}
	if err := op(d, item); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", verb, item.Name)
	return nil
}
