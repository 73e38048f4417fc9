package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tbourn/go-bloodlink-backend/internal/domain"
	httpapi "github.com/tbourn/go-bloodlink-backend/internal/http"
	"github.com/tbourn/go-bloodlink-backend/internal/repo"
	"github.com/tbourn/go-bloodlink-backend/internal/services"
)

func matchCommand(g *globals) *cobra.Command {
	var opts services.MatchOptions

	cmd := &cobra.Command{
		Use:   "match <request-id>",
		Short: "Print the ranked candidate donors of a request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := repo.OpenSQLite(g.cfg.DBPath)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close()
			}

			matcher := httpapi.Services(db, nil, nil, g.cfg).Matcher
			cands, err := matcher.FindCandidates(cmd.Context(), args[0], opts)
			if err != nil {
				return err
			}
			return writeCandidates(cmd.OutOrStdout(), cands)
		},
	}
	cmd.Flags().BoolVar(&opts.IncludeIneligible, "all", false, "Include ineligible donors with their reasons")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "Maximum number of candidates")
	return cmd
}

// writeCandidates renders candidates as an aligned table, best first.
func writeCandidates(w io.Writer, cands []domain.MatchCandidate) error {
	if len(cands) == 0 {
		_, err := fmt.Fprintln(w, "no candidates")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tDONOR\tTYPE\tDISTANCE\tTRAVEL\tSCORE\tELIGIBLE")
	for i, c := range cands {
		dist, travel := "unknown", "-"
		if c.DistanceKm != nil {
			dist = fmt.Sprintf("%.1f km", *c.DistanceKm)
		}
		if c.TravelMinutes != nil {
			travel = fmt.Sprintf("%d min", *c.TravelMinutes)
		}
		elig := "yes"
		if !c.Eligibility.Eligible {
			elig = "no: " + strings.Join(c.Eligibility.Reasons, "; ")
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%.1f\t%s\n",
			i+1, c.Donor.ID, c.Donor.BloodType, dist, travel, c.PriorityScore, elig)
	}
	return tw.Flush()
}
