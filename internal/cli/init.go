package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ppiankov/vaultguard/internal/deploy"
)

var (
	initPath  string
	initForce bool
)

func init() {
	initCmd.Flags().StringVar(&initPath, "path", "", "Where to write the deployment (default ~/.vaultguard/deployment.yaml)")
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing deployment file")
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init-deployment",
	Short: "Write the sample deployment to disk",
	Long: `Creates the config directory and a commented deployment.yaml with the
sample vault, tokens, prices and one action of each kind.

Edit the file, then run:
  vaultguard inspect
  vaultguard serve`,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	path := initPath
	if path == "" {
		p, err := deploy.DefaultPath()
		if err != nil {
			return fmt.Errorf("cannot determine home directory: %w", err)
		}
		path = p
	}

	wrote, err := writeIfMissing(path, deploy.DefaultConfigYAML())
	if err != nil {
		return err
	}

	if wrote {
		fmt.Println("vaultguard init complete.")
		fmt.Println()
		fmt.Println("Created:")
		fmt.Printf("  %s\n", path)
	} else {
		fmt.Printf("%s already exists (use --force to overwrite).\n", path)
	}
	fmt.Println()
	fmt.Println("List the deployed actions:")
	fmt.Println("  vaultguard inspect")
	fmt.Println()
	fmt.Println("Start the daemon:")
	fmt.Println("  vaultguard serve")
	return nil
}

// writeIfMissing writes content to path if it doesn't exist or --force is set.
// Returns true if the file was written.
func writeIfMissing(path, content string) (bool, error) {
	if !initForce {
		if _, err := os.Stat(path); err == nil {
			return false, nil
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, fmt.Errorf("create directory %s: %w", dir, err)
	}

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	return true, nil
}
