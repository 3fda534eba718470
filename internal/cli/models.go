package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/zachwill/ralph/internal/config"
	"github.com/zachwill/ralph/internal/models"
)

var modelsProvider string

// modelsCredentials decides which providers show as ready. Tests replace it.
var modelsCredentials func(*models.Registry) models.CredentialSource = func(r *models.Registry) models.CredentialSource {
	return models.NewEnvCredentials(r)
}

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List known models and which providers have credentials",
	Long: `Lists the built-in models plus any declared in .ralph/models.toml.
A provider is ready when one of its credential environment variables is set.`,
	Args: cobra.NoArgs,
	RunE: runModels,
}

func init() {
	modelsCmd.Flags().StringVar(&modelsProvider, "provider", "", "only list this provider")
	rootCmd.AddCommand(modelsCmd)
}

func runModels(cmd *cobra.Command, args []string) error {
	root, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}
	if proj, err := openProject(); err == nil {
		root = proj.root
	}

	registry, err := config.LoadRegistry(root)
	if err != nil {
		return configError(err)
	}
	if modelsProvider != "" {
		if _, ok := registry.Provider(modelsProvider); !ok {
			return configError(fmt.Errorf("unknown provider %q", modelsProvider))
		}
	}
	return printModels(cmd.OutOrStdout(), registry, modelsCredentials(registry), modelsProvider)
}

func printModels(out io.Writer, registry *models.Registry, creds models.CredentialSource, only string) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, p := range registry.Providers() {
		if only != "" && p.Name != strings.ToLower(only) {
			continue
		}
		status := "no credentials"
		if creds.HasCredentials(p.Name) {
			status = "ready"
		}
		fmt.Fprintf(w, "%s\t(%s)\t\n", p.Name, status)
		for _, m := range registry.Models(p.Name) {
			aliases := ""
			if len(m.Aliases) > 0 {
				aliases = "aliases: " + strings.Join(m.Aliases, ", ")
			}
			fmt.Fprintf(w, "  %s\t%s\t%s\n", m.Ref(), m.DisplayName, aliases)
		}
	}
	return w.Flush()
}
