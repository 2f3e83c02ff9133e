package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/oklog/run"

	"github.com/slok/cupload/internal/app/submit"
	"github.com/slok/cupload/internal/driver"
	"github.com/slok/cupload/internal/driver/simulated"
	"github.com/slok/cupload/internal/driver/transfer"
	"github.com/slok/cupload/internal/log"
	"github.com/slok/cupload/internal/notify"
	"github.com/slok/cupload/internal/printer"
	"github.com/slok/cupload/internal/storage/sqlite"
	"github.com/slok/cupload/internal/upload"
	"github.com/slok/cupload/internal/uploader"
	uploaderfake "github.com/slok/cupload/internal/uploader/fake"
	uploaderhttp "github.com/slok/cupload/internal/uploader/http"
)

const (
	uploaderSimulated = "simulated"
	uploaderFake      = "fake"
	uploaderHTTP      = "http"
)

// UploadCommand uploads a batch of documents and waits for every outcome.
type UploadCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	files           []string
	policyFile      string
	uploader        string
	apiURL          string
	token           string
	maxConcurrent   int64
	startsPerSecond float64
	successRatio    float64
	fakeLatency     time.Duration
	noHistory       bool
	noProgress      bool
	format          string
}

// NewUploadCommand returns the upload command.
func NewUploadCommand(rootCmd *RootCommand, app *kingpin.Application) *UploadCommand {
	c := &UploadCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("upload", "Upload a batch of documents and wait until every upload finishes.")
	c.Cmd.Arg("files", "Files to upload.").Required().StringsVar(&c.files)
	c.Cmd.Flag("policy-file", "Validation policy file (YAML or TOML).").StringVar(&c.policyFile)
	c.Cmd.Flag("uploader", "Upload backend (simulated, fake, http).").Default(uploaderHTTP).EnumVar(&c.uploader, uploaderSimulated, uploaderFake, uploaderHTTP)
	c.Cmd.Flag("api-url", "Document API base URL.").Default("http://localhost:8000").StringVar(&c.apiURL)
	c.Cmd.Flag("token", "Document API bearer token.").StringVar(&c.token)
	c.Cmd.Flag("max-concurrent", "Max simultaneous transfers.").Default("3").Int64Var(&c.maxConcurrent)
	c.Cmd.Flag("starts-per-second", "Max transfers started per second.").Default("5").Float64Var(&c.startsPerSecond)
	c.Cmd.Flag("success-ratio", "Success probability of the simulated uploader.").Default("0.9").Float64Var(&c.successRatio)
	c.Cmd.Flag("fake-latency", "Latency of the fake uploader.").Default("500ms").DurationVar(&c.fakeLatency)
	c.Cmd.Flag("no-history", "Don't record the outcomes in the upload history.").BoolVar(&c.noHistory)
	c.Cmd.Flag("no-progress", "Don't print the upload progress.").BoolVar(&c.noProgress)
	c.Cmd.Flag("format", "Output format (table, json).").Default(formatTable).EnumVar(&c.format, formatTable, formatJSON)

	return c
}

func (c UploadCommand) Name() string { return c.Cmd.FullCommand() }

func (c UploadCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	policy, err := loadPolicy(ctx, c.policyFile)
	if err != nil {
		return err
	}

	paths, err := fsPaths(c.files)
	if err != nil {
		return err
	}

	d, err := c.newDriver(logger)
	if err != nil {
		return fmt.Errorf("could not create driver: %w", err)
	}

	sinks := []notify.Sink{notify.NewLogSink(logger)}
	if !c.noHistory {
		repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
			DBPath: c.rootCmd.DBPath,
			Logger: logger,
		})
		if err != nil {
			return fmt.Errorf("could not create repository: %w", err)
		}
		defer repo.Close()

		hs, err := notify.NewHistorySink(repo)
		if err != nil {
			return fmt.Errorf("could not create history sink: %w", err)
		}
		sinks = append(sinks, hs)
	}

	orch, err := upload.NewOrchestrator(upload.OrchestratorConfig{
		Driver: d,
		Policy: &policy,
		Sink:   notify.NewMultiSink(sinks...),
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("could not create orchestrator: %w", err)
	}

	svc, err := submit.NewService(submit.ServiceConfig{
		Orchestrator: orch,
		FS:           os.DirFS("/"),
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	req := submit.Request{Paths: paths}
	if !c.noProgress {
		// Progress goes to stderr so the result output stays parseable.
		req.OnProgress = printer.NewProgressPrinter(c.rootCmd.Stderr, 10).PrintProgress
	}

	var (
		res *submit.Result
		g   run.Group
	)

	// Orchestrator loop. It outlives the command context so an interrupted
	// submission can still remove its tasks.
	{
		ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		defer cancel()

		g.Add(
			func() error {
				return orch.Run(ctx)
			},
			func(_ error) {
				cancel()
			},
		)
	}

	// Submission.
	{
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		g.Add(
			func() error {
				r, err := svc.Run(ctx, req)
				if err != nil {
					return err
				}
				res = r
				return nil
			},
			func(_ error) {
				cancel()
			},
		)
	}

	if err := g.Run(); err != nil {
		return fmt.Errorf("could not upload files: %w", err)
	}

	p := newPrinter(c.format, c.rootCmd.Stdout)
	// JSON output is a single document, rejections are already logged.
	if c.format == formatTable {
		if err := p.PrintRejections(res.Submission.Rejections); err != nil {
			return fmt.Errorf("could not print rejections: %w", err)
		}
	}
	if err := p.PrintBatch(res.Batch); err != nil {
		return fmt.Errorf("could not print batch: %w", err)
	}

	rejected, failed := len(res.Submission.Rejections), res.Batch.Counts.Failed
	if rejected > 0 || failed > 0 {
		return fmt.Errorf("%d files rejected, %d uploads failed", rejected, failed)
	}

	return nil
}

func (c UploadCommand) newDriver(logger log.Logger) (driver.Driver, error) {
	if c.uploader == uploaderSimulated {
		ratio := c.successRatio
		return simulated.NewDriver(simulated.DriverConfig{SuccessRatio: &ratio, Logger: logger})
	}

	var (
		u   uploader.Uploader
		err error
	)
	switch c.uploader {
	case uploaderFake:
		u, err = uploaderfake.NewUploader(uploaderfake.UploaderConfig{Latency: c.fakeLatency, Logger: logger})
	default:
		u, err = uploaderhttp.NewUploader(uploaderhttp.UploaderConfig{APIURL: c.apiURL, Token: c.token, Logger: logger})
	}
	if err != nil {
		return nil, fmt.Errorf("could not create uploader: %w", err)
	}

	return transfer.NewDriver(transfer.DriverConfig{
		Uploader:        u,
		MaxConcurrent:   c.maxConcurrent,
		StartsPerSecond: c.startsPerSecond,
		Logger:          logger,
	})
}
