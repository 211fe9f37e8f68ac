package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/local/bookletpress/internal/statuscheck"
	"github.com/local/bookletpress/internal/store"
)

var errCheckFailed = errors.New("preflight check failed")

func (a *app) newCheckCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check directories and configured services before a run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runCheck(cmd.Context(), asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output results as JSON")
	return cmd
}

func (a *app) runCheck(ctx context.Context, asJSON bool) error {
	opts := statuscheck.Options{
		PushgatewayURL: a.cfg.Metrics.PushgatewayURL,
		InputDir:       a.cfg.Paths.Input,
		OutputDir:      a.cfg.Paths.Output,
	}
	if url := a.cfg.Status.RedisURL; url != "" {
		rs, err := store.NewRedisStatus(ctx, url, a.cfg.Status.TTL)
		if err != nil {
			opts.Redis = statuscheck.PingFunc(func(context.Context) error { return err })
		} else {
			defer rs.Close()
			opts.Redis = statuscheck.PingFunc(func(ctx context.Context) error { return rs.Client().Ping(ctx).Err() })
		}
	}
	if a.cfg.Storage.Bucket != "" {
		s3c, err := a.objectStore(ctx, "")
		if err != nil {
			return err
		}
		opts.Bucket = s3c
	}

	summary := statuscheck.New(opts).Summary(ctx)
	if asJSON {
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			return err
		}
	} else {
		tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
		for _, st := range summary.All() {
			state := "ok"
			switch {
			case !st.Enabled:
				state = "-"
			case !st.OK:
				state = "FAIL"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", st.Name, state, st.Message)
		}
		tw.Flush()
	}
	if !summary.OK() {
		return errCheckFailed
	}
	return nil
}
