package main

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"

	"github.com/local/bookletpress/internal/imposition"
	"github.com/local/bookletpress/internal/orchestrator"
	"github.com/local/bookletpress/internal/prompt"
	"github.com/local/bookletpress/internal/storage"
	"github.com/local/bookletpress/internal/store"
)

func (a *app) runBooklet(ctx context.Context, source string) error {
	console := prompt.NewConsole(a.stdin, a.stdout, a.cfg.Booklet.AssumeYes)
	deps := orchestrator.Dependencies{
		Decider:  console,
		Resolver: console,
	}
	if !a.flags.quiet {
		deps.Progress = a.stdout
	}

	if url := a.cfg.Status.RedisURL; url != "" {
		rs, err := store.NewRedisStatus(ctx, url, a.cfg.Status.TTL)
		if err != nil {
			log.Warn().Err(err).Msg("run status disabled")
		} else {
			defer rs.Close()
			deps.Status = orchestrator.NewStatusAdapter(rs)
		}
	}

	objects, err := a.objectStore(ctx, source)
	if err != nil {
		return err
	}
	bucket := ""
	if objects != nil {
		deps.Objects = objects
		bucket = objects.Bucket()
	}

	rep, err := orchestrator.New(a.cfg, deps).Run(ctx, source)
	if err != nil {
		return err
	}
	summarize(a.stdout, rep, bucket)
	return nil
}

// objectStore returns the S3 client for the run, or nil when S3 is not used.
// An s3:// source names the bucket when S3_BUCKET is unset.
func (a *app) objectStore(ctx context.Context, source string) (*storage.S3Client, error) {
	opts := storage.Options{
		Bucket:    a.cfg.Storage.Bucket,
		Region:    a.cfg.Storage.Region,
		Endpoint:  a.cfg.Storage.Endpoint,
		AccessKey: a.cfg.Storage.AccessKey,
		SecretKey: a.cfg.Storage.SecretKey,
	}
	if storage.IsURL(source) {
		bucket, _, err := storage.ParseURL(source)
		if err != nil {
			return nil, &imposition.ConfigError{Field: "input", Value: source, Reason: err.Error()}
		}
		if opts.Bucket != "" && opts.Bucket != bucket {
			return nil, &imposition.ConfigError{Field: "input", Value: source, Reason: "bucket differs from S3_BUCKET " + opts.Bucket}
		}
		opts.Bucket = bucket
	}
	if opts.Bucket == "" {
		return nil, nil
	}
	return storage.NewS3Client(ctx, opts)
}

func summarize(w io.Writer, rep *orchestrator.Report, bucket string) {
	st := rep.Result.Stats
	fmt.Fprintf(w, "\nBooklet: %s (%d pages on %d sheet faces)\n", rep.Booklet, len(rep.Result.Reading), rep.Faces)
	if rep.Cover != "" {
		fmt.Fprintf(w, "Cover:   %s\n", rep.Cover)
	}
	fmt.Fprintf(w, "Split %d double pages, added %d blank pages, removed %d, trimmed %d.\n",
		st.Spreads, st.HeadBlanks+st.TailBlanks, st.Removed, st.Trimmed)
	if st.Failed > 0 {
		fmt.Fprintf(w, "%d pages could not be processed, see the log.\n", st.Failed)
	}
	for _, k := range rep.Uploaded {
		fmt.Fprintf(w, "Uploaded s3://%s/%s\n", bucket, k)
	}
}
