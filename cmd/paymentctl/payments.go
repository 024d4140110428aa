package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"school_fees_echo/internal/config"
	"school_fees_echo/internal/services"
)

func verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <reference>",
		Short: "Verify one payment against the gateway",
		Long: `Runs the same verification as GET /api/v1/payments/verify/<reference>/ once.
Use it to settle a payment whose payer never came back from the checkout page.
A successful transition sends the receipt exactly like the HTTP path.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			db, err := openDB(cfg)
			if err != nil {
				return err
			}

			paymentService, err := services.NewPaymentServiceFromConfig(cfg, db, nil)
			if err != nil {
				return err
			}

			result, err := paymentService.VerifyPayment(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("verify %s: %w", args[0], err)
			}

			p := result.Payment
			fmt.Fprintf(cmd.OutOrStdout(), "Reference:    %s\n", p.Reference)
			fmt.Fprintf(cmd.OutOrStdout(), "Status:       %s\n", p.Status)
			fmt.Fprintf(cmd.OutOrStdout(), "Verified:     %t\n", p.Verified)
			fmt.Fprintf(cmd.OutOrStdout(), "Amount:       %s\n", p.AmountDisplay(cfg.Currency))
			fmt.Fprintf(cmd.OutOrStdout(), "Transitioned: %t\n", result.Transitioned)
			return nil
		},
	}
}

func historyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <reference>",
		Short: "Show every gateway answer recorded for a payment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			db, err := openDB(cfg)
			if err != nil {
				return err
			}

			paymentService, err := services.NewPaymentServiceFromConfig(cfg, db, nil)
			if err != nil {
				return err
			}

			entries, err := paymentService.History(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Never verified")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "AT\tGATEWAY\tSTATUS\tTRANSITIONED")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%t\n", e.CreatedAt.Format(time.RFC3339), e.PaymentGateway, e.GatewayStatus, e.Transitioned)
			}
			return w.Flush()
		},
	}
}

func pendingCmd() *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "pending",
		Short: "List payments still waiting for verification",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			db, err := openDB(cfg)
			if err != nil {
				return err
			}

			payments, err := services.NewGormPaymentStore(db).ListPending(cmd.Context(), olderThan)
			if err != nil {
				return err
			}

			if len(payments) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No pending payments")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "REFERENCE\tPAYER\tFEE\tAMOUNT\tCREATED")
			for _, p := range payments {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					p.Reference, p.Payer.Email, p.FeeType, p.AmountDisplay(cfg.Currency), p.CreatedAt.Format(time.RFC3339))
			}
			return w.Flush()
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "Only list payments created at least this long ago (e.g. 1h)")

	return cmd
}

func sendSMSCmd() *cobra.Command {
	var phone, message string

	cmd := &cobra.Command{
		Use:   "send-sms",
		Short: "Send a test message through the configured SMS provider",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sender, err := services.NewSMSSender(config.Load())
			if err != nil {
				return err
			}
			if err := sender.Send(cmd.Context(), message, []string{phone}); err != nil {
				return fmt.Errorf("send sms: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Message sent to %s\n", phone)
			return nil
		},
	}

	cmd.Flags().StringVar(&phone, "phone", "", "Recipient phone number (e.g. +233201234567)")
	cmd.Flags().StringVar(&message, "msg", "Test message from the payment service", "Message text")
	_ = cmd.MarkFlagRequired("phone")

	return cmd
}

func tokenCmd() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access token for local development",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(userID, 10, 64)
			if err != nil || id == 0 {
				return fmt.Errorf("invalid --user-id %q", userID)
			}

			cfg := config.Load()
			issuer, err := services.NewJWTAuthenticator(cfg.JWTSecret, cfg.JWTTTL)
			if err != nil {
				return err
			}
			token, err := issuer.IssueToken(uint(id))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user-id", "", "ID of the user the token is issued for")
	_ = cmd.MarkFlagRequired("user-id")

	return cmd
}
