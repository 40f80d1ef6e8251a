package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pilab-dev/shadow-auth/domain"
	"github.com/pilab-dev/shadow-auth/internal/crypto"
	"github.com/pilab-dev/shadow-auth/services"
	"github.com/spf13/cobra"
)

type tokenReport struct {
	Algorithm    string   `yaml:"algorithm"`
	KeyID        string   `yaml:"key_id,omitempty"`
	Issuer       string   `yaml:"issuer"`
	Subject      string   `yaml:"subject"`
	IssuedAt     string   `yaml:"issued_at,omitempty"`
	ExpiresAt    string   `yaml:"expires_at,omitempty"`
	Expired      bool     `yaml:"expired"`
	Authorities  []string `yaml:"authorities"`
	UserID       string   `yaml:"user_id"`
	ProfileID    string   `yaml:"profile_id,omitempty"`
	AdvertiserID string   `yaml:"advertiser_id,omitempty"`
	Verified     bool     `yaml:"verified"`
}

func newInspectCmd() *cobra.Command {
	var publicKey, issuer string

	cmd := &cobra.Command{
		Use:   "inspect <token>",
		Short: "Decode a session token",
		Long: "Decodes the claims of a session token. With --public-key and --issuer the\n" +
			"signature, issuer and expiry are verified as the server would.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token := strings.TrimSpace(strings.TrimPrefix(args[0], "Bearer "))

			claims := &domain.TokenClaims{}
			parsed, _, err := jwt.NewParser().ParseUnverified(token, claims)
			if err != nil {
				return fmt.Errorf("failed to decode token: %w", err)
			}

			report := newTokenReport(parsed, claims, time.Now())

			if publicKey != "" {
				pub, err := crypto.ParsePublicKey(publicKey)
				if err != nil {
					return err
				}
				if _, err := services.NewTokenService(nil, pub, issuer, 0).Validate(token); err != nil {
					if perr := printYAML(cmd, report); perr != nil {
						return perr
					}
					return err
				}
				report.Verified = true
			}

			return printYAML(cmd, report)
		},
	}
	cmd.Flags().StringVar(&publicKey, "public-key", "", "base64 PKIX public key used to verify the signature")
	cmd.Flags().StringVar(&issuer, "issuer", "", "expected issuer when verifying")
	cmd.MarkFlagsRequiredTogether("public-key", "issuer")

	return cmd
}

func newTokenReport(token *jwt.Token, claims *domain.TokenClaims, now time.Time) tokenReport {
	report := tokenReport{
		Algorithm:    token.Method.Alg(),
		Issuer:       claims.Issuer,
		Subject:      claims.Subject,
		UserID:       claims.UserID,
		ProfileID:    claims.ProfileID,
		AdvertiserID: claims.AdvertiserID,
		Authorities:  []string{},
	}
	if kid, ok := token.Header["kid"].(string); ok {
		report.KeyID = kid
	}
	if claims.IssuedAt != nil {
		report.IssuedAt = claims.IssuedAt.UTC().Format(time.RFC3339)
	}
	if claims.ExpiresAt != nil {
		report.ExpiresAt = claims.ExpiresAt.UTC().Format(time.RFC3339)
		report.Expired = !claims.ExpiresAt.After(now)
	}
	for _, a := range strings.Split(claims.Authorities, ",") {
		if a = strings.TrimSpace(a); a != "" {
			report.Authorities = append(report.Authorities, a)
		}
	}

	return report
}
