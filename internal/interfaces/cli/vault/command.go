// Package vault exposes credential vault maintenance commands.
package vault

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/autotraderhub/autotrader/internal/infrastructure/config"
	infraVault "github.com/autotraderhub/autotrader/internal/infrastructure/vault"
	"github.com/autotraderhub/autotrader/internal/shared/logger"
)

var (
	env        string
	configPath string
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vault",
		Short: "Credential vault tools",
		Long:  `Check the configured encryption key and encrypt values with it.`,
	}

	cmd.PersistentFlags().StringVarP(&env, "env", "e", "development", "Environment (development, test, production)")
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (default: ./configs/config.yaml)")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "selftest",
			Short: "Round-trip a fixed value through the vault",
			RunE:  runSelfTest,
		},
		&cobra.Command{
			Use:   "encrypt",
			Short: "Encrypt a value read from stdin",
			Long:  `Encrypt a value with the configured key. The value is read without echo when stdin is a terminal.`,
			RunE:  runEncrypt,
		},
	)

	return cmd
}

func loadVault() (*infraVault.Vault, error) {
	cfg, err := config.Load(env, configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := logger.Init(&cfg.Logger, false); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return infraVault.New(cfg.Vault.EncryptionKey, logger.NewLogger())
}

func runSelfTest(cmd *cobra.Command, args []string) error {
	v, err := loadVault()
	if err != nil {
		return err
	}
	if err := v.SelfTest(); err != nil {
		return fmt.Errorf("vault self-test failed: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "✅ Vault self-test passed")
	return nil
}

func runEncrypt(cmd *cobra.Command, args []string) error {
	v, err := loadVault()
	if err != nil {
		return err
	}

	plain, err := readSecret(cmd.InOrStdin(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	if plain == "" {
		return fmt.Errorf("nothing to encrypt")
	}

	sealed, err := v.Encrypt(plain)
	if err != nil {
		return fmt.Errorf("failed to encrypt: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), sealed)
	return nil
}

func readSecret(in io.Reader, prompt io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(prompt, "Value: ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("failed to read value: %w", err)
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read value: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
