// projects.go implements "tether projects", the project listing.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tether-dev/tether/internal/claudedir"
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List Claude Code projects",
	Long: `List project directories under the CLI state root that contain at
least one session log. Decoded paths are shown for display only.`,
	RunE: runProjects,
}

func runProjects(cmd *cobra.Command, args []string) error {
	dir, err := claudedir.Default()
	if err != nil {
		return err
	}

	projects, err := dir.FindProjects()
	if err != nil {
		return err
	}
	if len(projects) == 0 {
		fmt.Println("No projects found.")
		return nil
	}

	width := termWidth()
	fmt.Println(titleStyle.Render("Projects"))
	for _, proj := range projects {
		fmt.Println(truncate(fmt.Sprintf("  %s  (%d sessions)", proj.DisplayPath, len(proj.SessionPaths)), width))
		if Verbose() {
			fmt.Println(dimStyle.Render(truncate("    "+proj.Dir, width)))
		}
	}
	return nil
}
