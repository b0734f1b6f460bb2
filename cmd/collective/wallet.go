package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"snarkcollective/internal/wallet"
)

func addWalletFlag(cmd *cobra.Command) {
	cmd.Flags().String("wallet", string(wallet.Puzzle), "wallet to use (puzzle, leo, fox, soter)")
	cmd.Flags().String("puzzle-url", "", "Puzzle wallet JSON-RPC endpoint")
	cmd.Flags().String("leo-url", "", "Leo wallet adapter JSON-RPC endpoint")
	cmd.Flags().String("leo-extension-url", "", "Leo extension JSON-RPC endpoint")
	cmd.Flags().String("fox-url", "", "Fox wallet adapter JSON-RPC endpoint")
	cmd.Flags().String("soter-url", "", "Soter wallet adapter JSON-RPC endpoint")
}

// connectWallet opens a session with the wallet named by --wallet.
func (a *app) connectWallet(ctx context.Context, cmd *cobra.Command) error {
	raw, _ := cmd.Flags().GetString("wallet")
	name, err := wallet.ParseName(raw)
	if err != nil {
		return err
	}
	if err := a.bridge.Connect(ctx, name); err != nil {
		printLogs(cmd.ErrOrStderr(), a.bridge.Logs())
		return fmt.Errorf("%s", a.bridge.ErrorMessage())
	}
	session := a.bridge.Session()
	fmt.Fprintf(cmd.OutOrStdout(), "Connected to %s: %s\n", session.Wallet.DisplayName(), session.Address)
	return nil
}

// walletAction runs fn against a connected wallet and disconnects afterwards.
func walletAction(use, short string, args cobra.PositionalArgs, fn func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.logger.Sync()

			ctx, stop := signalContext()
			defer stop()
			if err := a.connectWallet(ctx, cmd); err != nil {
				return err
			}
			defer a.bridge.Disconnect(context.Background())
			return fn(ctx, a, cmd, args)
		},
	}
	addWalletFlag(cmd)
	return cmd
}

func newWalletCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "Wallet bridge operations",
	}

	probe := &cobra.Command{
		Use:   "probe",
		Short: "Look for an existing Puzzle session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.logger.Sync()

			ctx, stop := signalContext()
			defer stop()
			found := a.bridge.Probe(ctx)
			session := a.bridge.Session()
			if found {
				fmt.Fprintf(cmd.OutOrStdout(), "Session found: %s (%s)\n", session.Address, session.Wallet.DisplayName())
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "No existing session")
			}
			printLogs(cmd.OutOrStdout(), a.bridge.Logs())
			return nil
		},
	}
	addWalletFlag(probe)

	sign := walletAction("sign MESSAGE", "Sign a message", cobra.ExactArgs(1), func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		sig, err := a.bridge.SignMessage(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), sig)
		return nil
	})

	decrypt := walletAction("decrypt CIPHERTEXT...", "Decrypt record ciphertexts", cobra.MinimumNArgs(1), func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		plaintexts, err := a.bridge.Decrypt(ctx, args)
		if err != nil {
			return err
		}
		for _, p := range plaintexts {
			fmt.Fprintln(cmd.OutOrStdout(), p)
		}
		return nil
	})

	records := walletAction("records", "List records of a program", cobra.NoArgs, func(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
		filter, err := recordFilter(a, cmd)
		if err != nil {
			return err
		}
		out, err := a.bridge.ListRecords(ctx, filter)
		if err != nil {
			return err
		}
		printRecords(cmd.OutOrStdout(), out)
		return nil
	})
	addRecordFlags(records)

	plaintexts := walletAction("plaintexts", "List decrypted records of a program", cobra.NoArgs, func(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
		filter, err := recordFilter(a, cmd)
		if err != nil {
			return err
		}
		out, err := a.bridge.ListRecordPlaintexts(ctx, filter)
		if err != nil {
			return err
		}
		printRecords(cmd.OutOrStdout(), out)
		return nil
	})
	addRecordFlags(plaintexts)

	history := walletAction("history", "List transaction history", cobra.NoArgs, func(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
		program, _ := cmd.Flags().GetString("program")
		eventType, _ := cmd.Flags().GetString("event")
		function, _ := cmd.Flags().GetString("function")
		if program == "" {
			program = a.cfg.ProgramID
		}
		out, err := a.bridge.ListTransactionHistory(ctx, wallet.HistoryFilter{
			ProgramID:  program,
			EventType:  wallet.EventType(eventType),
			FunctionID: function,
		})
		if err != nil {
			return err
		}
		printEvents(cmd.OutOrStdout(), out)
		return nil
	})
	history.Flags().String("program", "", "program id (defaults to the crowdfunding program)")
	history.Flags().String("event", "", "event type filter (Execute, Send, Receive, Join, Split, Shield, Unshield)")
	history.Flags().String("function", "", "function name filter")

	cmd.AddCommand(probe, sign, decrypt, records, plaintexts, history)
	return cmd
}

func addRecordFlags(cmd *cobra.Command) {
	cmd.Flags().String("program", "", "program id (defaults to the crowdfunding program)")
	cmd.Flags().String("status", "", "record status filter (Unspent, Spent)")
}

func recordFilter(a *app, cmd *cobra.Command) (wallet.RecordFilter, error) {
	program, _ := cmd.Flags().GetString("program")
	status, _ := cmd.Flags().GetString("status")
	if program == "" {
		program = a.cfg.ProgramID
	}
	switch wallet.RecordStatus(status) {
	case wallet.RecordsAll, wallet.RecordsUnspent, wallet.RecordsSpent:
	default:
		return wallet.RecordFilter{}, fmt.Errorf("unknown record status %q", status)
	}
	return wallet.RecordFilter{ProgramID: program, Status: wallet.RecordStatus(status)}, nil
}
