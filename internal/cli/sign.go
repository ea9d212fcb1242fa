package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"

	"github.com/ppiankov/vaultguard/internal/chain"
	"github.com/ppiankov/vaultguard/internal/deploy"
)

var signKey string

func init() {
	rootCmd.AddCommand(signCmd)
	signCmd.Flags().StringVar(&signKey, "key", "", "Signer private key (hex); defaults to $VAULTGUARD_SIGNER_KEY")
}

var signCmd = &cobra.Command{
	Use:   "sign <swapper> <token-in> <amount-in> <min-amount-out> <deadline> <nonce>",
	Short: "Sign a swap quote as a trusted signer",
	Long: "Hashes a swap quote against a swapper's configuration and signs it.\n" +
		"Pass the printed signature as the last argument of the swapper's call.\n\n" +
		"Example:\n" +
		"  vaultguard sign swapper WETH \"1 ether\" \"1990 ether\" 1767225600 7 --key $KEY",
	Args: cobra.ExactArgs(6),
	RunE: runSign,
}

func runSign(cmd *cobra.Command, args []string) error {
	key := signKey
	if key == "" {
		key = os.Getenv("VAULTGUARD_SIGNER_KEY")
	}
	if key == "" {
		return fmt.Errorf("--key or VAULTGUARD_SIGNER_KEY required")
	}
	return signQuote(os.Stdout, deploymentPath, key, args)
}

func signQuote(w io.Writer, path, hexKey string, args []string) error {
	priv, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return fmt.Errorf("invalid key: %w", err)
	}
	var nonce uint64
	if _, err := fmt.Sscan(args[5], &nonce); err != nil {
		return fmt.Errorf("invalid nonce %q: %w", args[5], err)
	}

	cfg, err := deploy.LoadConfig(path)
	if err != nil {
		return err
	}
	d, err := deploy.New(cfg, chain.Real())
	if err != nil {
		return err
	}
	signed, err := d.SignQuote(deploy.Quote{
		Swapper:      args[0],
		TokenIn:      args[1],
		AmountIn:     args[2],
		MinAmountOut: args[3],
		Deadline:     args[4],
		Nonce:        nonce,
	}, priv)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(signed, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(w, string(out))
	return nil
}
