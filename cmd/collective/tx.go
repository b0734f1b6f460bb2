package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"snarkcollective/internal/chain"
	"snarkcollective/internal/funding"
	"snarkcollective/internal/keys"
)

// requireAdmin restricts admin transactions to the configured admin address.
// The program enforces the same rule on chain.
func requireAdmin(a *app) error {
	session := a.bridge.Session()
	if a.cfg.AdminAddress == "" || !strings.EqualFold(session.Address, a.cfg.AdminAddress) {
		return fmt.Errorf("connected account %s is not the admin", session.Address)
	}
	return nil
}

func printTx(cmd *cobra.Command, function, id string) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s submitted: %s\n", function, id)
}

func newSubmitCmd() *cobra.Command {
	return walletAction("submit TITLE IMG DESCRIPTION", "Submit a project to the current round", cobra.ExactArgs(3), func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		round, err := a.service.FetchCurrentRound(ctx)
		if err != nil {
			return err
		}
		if next, ok := round.NextSubmissionIndex(); ok {
			fmt.Fprintf(cmd.OutOrStdout(), "Submitting as project %d of round %d\n", next, round.RoundID)
		}
		id, err := a.service.SubmitProject(ctx, args[0], args[1], args[2])
		if err != nil {
			return err
		}
		printTx(cmd, funding.FnSubmitProject, id)
		return nil
	})
}

func newDonateCmd() *cobra.Command {
	return walletAction("donate PROJECT_KEY AMOUNT", "Donate microcredits to a project", cobra.ExactArgs(2), func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		key, err := keys.ParseProjectKey(args[0])
		if err != nil {
			return err
		}
		amount, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil || amount == 0 {
			return fmt.Errorf("invalid amount %q", args[1])
		}
		id, err := a.service.Donate(ctx, key, amount)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Donated %s\n", formatCredits(amount))
		printTx(cmd, funding.FnDonate, id)
		return nil
	})
}

func newApproveCmd() *cobra.Command {
	return walletAction("approve ROUND INDEX", "Approve a submitted project", cobra.ExactArgs(2), func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		if err := requireAdmin(a); err != nil {
			return err
		}
		roundID, index, err := parseRoundIndex(args[0], args[1])
		if err != nil {
			return err
		}
		if err := a.keysReady(ctx); err != nil {
			return err
		}
		key, err := a.deriver.DeriveProjectKey(roundID, index)
		if err != nil {
			return err
		}
		info, err := a.chain.GetProjectDetails(ctx, chain.MappingSubmitted, key.String())
		if err != nil {
			return err
		}
		if info == nil {
			return fmt.Errorf("project %d of round %d not found in submitted projects", index, roundID)
		}
		id, err := a.service.ApproveProject(ctx, roundID, index, *info)
		if err != nil {
			return err
		}
		printTx(cmd, funding.FnApprove, id)
		return nil
	})
}

func newRoundAdminCmd(use, short string, op func(*funding.Service, context.Context) (string, error)) *cobra.Command {
	return walletAction(use, short, cobra.NoArgs, func(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
		if err := requireAdmin(a); err != nil {
			return err
		}
		id, err := op(a.service, ctx)
		if err != nil {
			return err
		}
		printTx(cmd, strings.ReplaceAll(use, "-", "_"), id)
		if round, ok := a.service.CurrentRound(); ok {
			printRound(cmd.OutOrStdout(), round)
		}
		return nil
	})
}
