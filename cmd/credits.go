package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/house-report/internal/model"
)

var (
	creditsUser       string
	creditsAmount     int
	creditsPaymentRef string
)

var creditsCmd = &cobra.Command{
	Use:   "credits",
	Short: "Manage profile credits",
}

var creditsGrantCmd = &cobra.Command{
	Use:   "grant",
	Short: "Record a payment and credit the user",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("migrate"); err != nil {
			return err
		}
		st, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		applied, err := st.GrantCredits(cmd.Context(), model.CreditGrant{
			UserID:     creditsUser,
			Credits:    creditsAmount,
			PaymentRef: creditsPaymentRef,
		})
		if err != nil {
			return eris.Wrap(err, "grant credits")
		}
		balance, err := st.Balance(cmd.Context(), creditsUser)
		if err != nil {
			return eris.Wrap(err, "read balance")
		}
		if !applied {
			fmt.Fprintf(cmd.OutOrStdout(), "payment %s already recorded; balance %d\n", creditsPaymentRef, balance)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "granted %d credits to %s; balance %d\n", creditsAmount, creditsUser, balance)
		return nil
	},
}

var creditsBalanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Print a user's credit balance",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("migrate"); err != nil {
			return err
		}
		st, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		balance, err := st.Balance(cmd.Context(), creditsUser)
		if err != nil {
			return eris.Wrap(err, "read balance")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d\n", creditsUser, balance)
		return nil
	},
}

func init() {
	creditsCmd.PersistentFlags().StringVar(&creditsUser, "user", "", "user id")
	_ = creditsCmd.MarkPersistentFlagRequired("user")

	creditsGrantCmd.Flags().IntVar(&creditsAmount, "credits", 1, "number of credits")
	creditsGrantCmd.Flags().StringVar(&creditsPaymentRef, "payment-ref", "", "payment reference (idempotency key)")
	_ = creditsGrantCmd.MarkFlagRequired("payment-ref")

	creditsCmd.AddCommand(creditsGrantCmd, creditsBalanceCmd)
	rootCmd.AddCommand(creditsCmd)
}
