package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"snarkcollective/internal/fieldcodec"
	"snarkcollective/internal/funding"
	"snarkcollective/internal/keys"
	"snarkcollective/internal/model"
)

func newRoundCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "round",
		Short: "Print the current round",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.logger.Sync()

			ctx, stop := signalContext()
			defer stop()
			round, err := a.service.FetchCurrentRound(ctx)
			if err != nil {
				return err
			}
			printRound(cmd.OutOrStdout(), round)
			return nil
		},
	}
}

func newProjectsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "List the projects of the current round",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			status, _ := cmd.Flags().GetString("status")
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.logger.Sync()

			ctx, stop := signalContext()
			defer stop()
			round, err := a.service.FetchCurrentRound(ctx)
			if err != nil {
				return err
			}
			if err := a.keysReady(ctx); err != nil {
				return err
			}

			var projects []model.Project
			switch status {
			case "all":
				projects, err = a.service.FetchAllProjects(ctx, round.RoundID)
			case "approved":
				projects, err = a.service.FetchApprovedProjects(ctx, round.RoundID)
			case "pending":
				projects, err = a.service.FetchSubmittedProjects(ctx, round.RoundID)
			default:
				return fmt.Errorf("unknown status %q (all, approved, pending)", status)
			}
			if errors.Is(err, funding.ErrPartialScan) {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
			} else if err != nil {
				return err
			}
			printRound(cmd.OutOrStdout(), round)
			fmt.Fprintln(cmd.OutOrStdout())
			printProjects(cmd.OutOrStdout(), projects)
			return nil
		},
	}
	cmd.Flags().String("status", "all", "which projects to list (all, approved, pending)")
	return cmd
}

func newKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "key ROUND INDEX",
		Short: "Derive the mapping key of a project",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			roundID, index, err := parseRoundIndex(args[0], args[1])
			if err != nil {
				return err
			}
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.logger.Sync()

			ctx, stop := signalContext()
			defer stop()
			if err := a.keysReady(ctx); err != nil {
				return err
			}
			key, err := a.deriver.DeriveProjectKey(roundID, index)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "literal: %s\n", keys.KeyLiteral(roundID, index))
			fmt.Fprintf(out, "key:     %s\n", key)
			fmt.Fprintf(out, "id:      %s\n", key.ID())
			return nil
		},
	}
}

func newDecodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode LITERAL...",
		Short: "Decode field literals into text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, literal := range args {
				text, ok := fieldcodec.Decoded(literal)
				if !ok {
					return fmt.Errorf("not a field literal: %s", literal)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%q\n", literal, text)
			}
			return nil
		},
	}
}

func parseRoundIndex(roundArg, indexArg string) (uint32, uint16, error) {
	roundID, err := strconv.ParseUint(roundArg, 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid round id %q: %w", roundArg, err)
	}
	index, err := strconv.ParseUint(indexArg, 10, 16)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid project index %q: %w", indexArg, err)
	}
	if index == 0 {
		return 0, 0, fmt.Errorf("project index is 1-based")
	}
	return uint32(roundID), uint16(index), nil
}
