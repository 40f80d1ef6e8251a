package cmd

import (
	"github.com/pilab-dev/shadow-auth/internal/crypto"
	"github.com/spf13/cobra"
)

type keyPairOutput struct {
	PrivateKey string `yaml:"JWT_PRIVATE_KEY"`
	PublicKey  string `yaml:"JWT_PUBLIC_KEY"`
}

func newKeygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate an RSA key pair for token signing",
		Long:  "Prints a fresh 2048-bit RSA key pair as config.yaml entries (base64 PKCS#8 and PKIX DER).",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			key, err := crypto.GenerateRSAKey()
			if err != nil {
				return err
			}
			priv, pub, err := crypto.EncodeKeyPair(key)
			if err != nil {
				return err
			}
			return printYAML(cmd, keyPairOutput{PrivateKey: priv, PublicKey: pub})
		},
	}
}
