package cmd

import (
	"runtime"
	"strings"

	"github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"

	"github.com/dbsmedya/litemigrate/internal/dialect"
)

var versionShort bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long: `Display the litemigrate version, the build commit, the SQLite library
linked for reading sources and the target databases this build can write to.`,
	Run: runVersion,
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "print the version number only")
}

func runVersion(cmd *cobra.Command, args []string) {
	if versionShort {
		cmd.Println(Version)
		return
	}

	sqliteVersion, _, _ := sqlite3.Version()
	cmd.Printf("litemigrate %s (commit %s)\n", Version, Commit)
	cmd.Printf("  Source:  sqlite %s\n", sqliteVersion)
	cmd.Printf("  Targets: %s\n", strings.Join(dialect.Drivers(), ", "))
	cmd.Printf("  Runtime: %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
