package cli

import (
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/spf13/cobra"
)

var (
	deploymentPath string
	verbosity      int
)

var rootCmd = &cobra.Command{
	Use:   "vaultguard",
	Short: "Guarded automation actions for a smart vault",
	Long: "Runs permissioned actions against a smart vault. Every call passes through\n" +
		"its guards (thresholds, token lists, time locks, trusted signers, gas limits)\n" +
		"and relayed calls redeem their gas from the vault.",
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging(verbosity)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&deploymentPath, "deployment", "d", "", "Path to deployment YAML (default ~/.vaultguard/deployment.yaml)")
	rootCmd.PersistentFlags().IntVar(&verbosity, "verbosity", 2, "Log level (0=silent, 1=error, 2=warn, 3=info, 4=debug, 5=trace)")
}

func setupLogging(v int) {
	log.SetDefault(log.NewLogger(log.NewTerminalHandlerWithLevel(os.Stderr, log.FromLegacyLevel(v), false)))
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
