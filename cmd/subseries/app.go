package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/lmittmann/tint"
	"github.com/programme-lv/subseries/internal"
	"github.com/programme-lv/subseries/internal/builder"
	"github.com/programme-lv/subseries/internal/config"
	"github.com/programme-lv/subseries/internal/dataset"
	"github.com/programme-lv/subseries/internal/filestore"
	"github.com/programme-lv/subseries/internal/reporter/natsrep"
	"github.com/programme-lv/subseries/internal/reporter/sqsrep"
	"github.com/programme-lv/subseries/internal/reporter/termrep"
	"github.com/programme-lv/subseries/internal/s3downl"
	"github.com/programme-lv/subseries/internal/solutions"
	"github.com/programme-lv/subseries/internal/xdg"
	"github.com/urfave/cli/v3"
)

const appName = "subseries"

// stdout and stderr are swapped out by tests.
var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

func newApp() *cli.Command {
	return &cli.Command{
		Name:  appName,
		Usage: "group submissions into per-user, per-step series and drop redundant attempts",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "TOML configuration file",
				Sources: cli.EnvVars("SUBSERIES_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "debug, info, warn or error",
				Sources: cli.EnvVars("SUBSERIES_LOG_LEVEL"),
			},
			&cli.BoolFlag{
				Name:    "no-color",
				Usage:   "disable colored output",
				Sources: cli.EnvVars("SUBSERIES_NO_COLOR"),
			},
			&cli.StringFlag{
				Name:    "cache-dir",
				Usage:   "where remote datasets are cached",
				Sources: cli.EnvVars("SUBSERIES_CACHE_DIR"),
			},
			&cli.StringFlag{
				Name:    "aws-region",
				Usage:   "region of the S3 bucket and SQS queue",
				Sources: cli.EnvVars("SUBSERIES_AWS_REGION"),
			},
		},
		Commands: []*cli.Command{
			buildCommand(),
			filterCommand(),
		},
	}
}

func buildCommand() *cli.Command {
	return &cli.Command{
		Name:      "build",
		Usage:     "build the series dataset from a submissions dataset",
		ArgsUsage: "<submissions> <output>",
		Flags: []cli.Flag{
			&cli.FloatFlag{
				Name:    "diff-ratio",
				Aliases: []string{"r"},
				Usage:   "drop an attempt whose code length changed by more than this factor",
				Sources: cli.EnvVars("SUBSERIES_DIFF_RATIO"),
			},
			&cli.IntFlag{
				Name:    "chunk-size",
				Usage:   "number of groups filtered and written at once",
				Sources: cli.EnvVars("SUBSERIES_CHUNK_SIZE"),
			},
			&cli.IntFlag{
				Name:    "workers",
				Aliases: []string{"w"},
				Usage:   "number of groups filtered concurrently",
				Sources: cli.EnvVars("SUBSERIES_WORKERS"),
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "print every dropped submission",
			},
			&cli.StringFlag{
				Name:    "nats-url",
				Usage:   "publish progress to this NATS server",
				Sources: cli.EnvVars("SUBSERIES_NATS_URL"),
			},
			&cli.StringFlag{
				Name:    "nats-subject",
				Usage:   "subject progress is published on",
				Sources: cli.EnvVars("SUBSERIES_NATS_SUBJECT"),
			},
			&cli.StringFlag{
				Name:    "sqs-queue-url",
				Usage:   "send progress to this SQS queue",
				Sources: cli.EnvVars("SUBSERIES_SQS_QUEUE_URL"),
			},
		},
		Action: runBuild,
	}
}

func filterCommand() *cli.Command {
	return &cli.Command{
		Name:      "filter",
		Usage:     "keep solutions in the given languages",
		ArgsUsage: "<solutions>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "languages",
				Aliases: []string{"l"},
				Usage:   "comma separated language versions, all known ones by default",
			},
			&cli.BoolFlag{
				Name:  "duplicates",
				Usage: "drop solutions repeating the code of a later one",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "output path, filtered_solutions next to the input by default",
			},
		},
		Action: runFilter,
	}
}

// loadConfig layers flags set on the command line or in the environment over
// the configuration file and the defaults.
func loadConfig(cmd *cli.Command) (config.Config, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return cfg, err
	}
	if cmd.IsSet("log-level") {
		cfg.LogLevel = cmd.String("log-level")
	}
	if cmd.IsSet("cache-dir") {
		cfg.CacheDir = cmd.String("cache-dir")
	}
	if cmd.IsSet("aws-region") {
		cfg.AwsRegion = cmd.String("aws-region")
	}
	if cmd.IsSet("diff-ratio") {
		cfg.DiffRatio = cmd.Float("diff-ratio")
	}
	if cmd.IsSet("chunk-size") {
		cfg.ChunkSize = cmd.Int("chunk-size")
	}
	if cmd.IsSet("workers") {
		cfg.Workers = cmd.Int("workers")
	}
	if cmd.IsSet("verbose") {
		cfg.Report.Verbose = cmd.Bool("verbose")
	}
	if cmd.IsSet("nats-url") {
		cfg.Report.NatsUrl = cmd.String("nats-url")
	}
	if cmd.IsSet("nats-subject") {
		cfg.Report.NatsSubject = cmd.String("nats-subject")
	}
	if cmd.IsSet("sqs-queue-url") {
		cfg.Report.SqsQueueUrl = cmd.String("sqs-queue-url")
	}
	return cfg, cfg.Validate()
}

func setup(cmd *cli.Command) (config.Config, *slog.Logger, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return cfg, nil, err
	}
	lvl, err := cfg.SlogLevel()
	if err != nil {
		return cfg, nil, err
	}

	noColor := cmd.Bool("no-color")
	if noColor {
		color.NoColor = true
	}
	log := slog.New(tint.NewHandler(stderr, &tint.Options{
		Level:      lvl,
		TimeFormat: time.Kitchen,
		NoColor:    noColor || color.NoColor,
	}))
	return cfg, log, nil
}

// fetchInput returns a local path for location, downloading remote datasets
// into the cache first.
func fetchInput(ctx context.Context, cfg config.Config, log *slog.Logger, location string) (string, error) {
	if !filestore.IsRemote(location) {
		return location, nil
	}
	dir := cfg.CacheDir
	if dir == "" {
		dir = xdg.AppCacheDir(appName)
	}
	download, err := s3downl.NewDownloadFunc(ctx, cfg.AwsRegion, log)
	if err != nil {
		return "", err
	}
	store, err := filestore.New(dir, download)
	if err != nil {
		return "", err
	}
	log.Info("fetching dataset", "location", location, "cache", dir)
	return store.Fetch(ctx, location)
}

func newReporter(ctx context.Context, cfg config.Config, runUuid string, log *slog.Logger) (internal.Reporter, func(), error) {
	reporters := []internal.Reporter{termrep.New(stdout, cfg.Report.Verbose)}
	closeFn := func() {}

	if cfg.Report.NatsUrl != "" {
		nc, err := natsrep.Connect(cfg.Report.NatsUrl)
		if err != nil {
			return nil, closeFn, err
		}
		closeFn = nc.Close
		reporters = append(reporters, natsrep.New(nc, cfg.Report.NatsSubject, runUuid, log))
	}
	if cfg.Report.SqsQueueUrl != "" {
		rep, err := sqsrep.NewFromRegion(ctx, cfg.AwsRegion, cfg.Report.SqsQueueUrl, runUuid, log)
		if err != nil {
			closeFn()
			return nil, func() {}, err
		}
		reporters = append(reporters, rep)
	}
	return internal.Tee(reporters...), closeFn, nil
}

func runBuild(ctx context.Context, cmd *cli.Command) error {
	if cmd.NArg() != 2 {
		return fmt.Errorf("expected <submissions> <output>, got %d arguments", cmd.NArg())
	}
	input, output := cmd.Args().Get(0), cmd.Args().Get(1)

	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	runUuid := uuid.NewString()
	log = log.With("run", runUuid)

	local, err := fetchInput(ctx, cfg, log, input)
	if err != nil {
		return err
	}
	header, err := dataset.ReadHeader(local)
	if err != nil {
		return err
	}

	reporter, closeReporter, err := newReporter(ctx, cfg, runUuid, log)
	if err != nil {
		return err
	}
	defer closeReporter()

	b := builder.New(builder.Options{
		DiffRatio: cfg.DiffRatio,
		ChunkSize: cfg.ChunkSize,
		Workers:   cfg.Workers,
	}, reporter, log)

	start := time.Now()
	stats, err := b.Build(ctx,
		dataset.FileSource{Path: local, Name: input},
		dataset.NewSink(output, dataset.OutputColumns(header)))
	if err != nil {
		return err
	}
	log.Info("series built",
		"rows", stats.Rows,
		"malformed", stats.Malformed,
		"groups", stats.Groups,
		"kept", stats.Kept,
		"same", stats.Same,
		"different", stats.Different,
		"took", time.Since(start).Round(time.Millisecond))
	return nil
}

func runFilter(ctx context.Context, cmd *cli.Command) error {
	if cmd.NArg() != 1 {
		return fmt.Errorf("expected <solutions>, got %d arguments", cmd.NArg())
	}
	input := cmd.Args().Get(0)

	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}

	langs := solutions.KnownLanguages
	if cmd.IsSet("languages") {
		langs, err = solutions.ParseLanguages(cmd.String("languages"))
		if err != nil {
			return err
		}
	}

	local, err := fetchInput(ctx, cfg, log, input)
	if err != nil {
		return err
	}
	table, err := solutions.ReadFile(local)
	if err != nil {
		return err
	}

	filtered := solutions.FilterByLanguage(table, langs)
	if cmd.Bool("duplicates") {
		filtered = solutions.DropDuplicates(filtered)
	}

	output := cmd.String("output")
	if output == "" {
		output = defaultFilterOutput(input)
	}
	if err := dataset.WriteTable(output, filtered); err != nil {
		return err
	}
	log.Info("solutions filtered", "read", len(table.Rows), "kept", len(filtered.Rows), "output", output)
	return nil
}

// defaultFilterOutput places filtered_solutions next to a local input, or in
// the working directory for a remote one, keeping the compression of the input.
func defaultFilterOutput(input string) string {
	ext := ".csv"
	if dataset.IsCompressed(input) {
		ext = ".csv.zst"
	}
	name := "filtered_solutions" + ext
	if filestore.IsRemote(input) {
		return name
	}
	return filepath.Join(filepath.Dir(input), name)
}
