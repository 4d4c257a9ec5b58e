package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/farmout/ulog"
	"github.com/farmout/ulog/archive"
	"github.com/farmout/ulog/config"
	"github.com/farmout/ulog/job"
	"github.com/farmout/ulog/parser"
	"github.com/farmout/ulog/pool"
	"github.com/farmout/ulog/reporting"
	"github.com/farmout/ulog/stats"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/level"
	"github.com/mongodb/grip/message"
	"github.com/mongodb/grip/send"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

const (
	configFlagName  = "config"
	levelFlagName   = "level"
	workersFlagName = "workers"
	formatFlagName  = "format"
	archiveFlagName = "archive"
	limitFlagName   = "limit"

	textFormat = "text"
)

func buildApp() *cli.App {
	app := cli.NewApp()
	app.Name = "ulog"
	app.Usage = "inspect and summarize scheduler user logs"
	app.Version = "0.1.0"
	app.Writer = os.Stdout
	app.ErrWriter = os.Stderr

	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  configFlagName,
			Usage: "path to a YAML configuration file",
		},
		cli.StringFlag{
			Name:  levelFlagName,
			Usage: "logging threshold (overrides the configuration file)",
		},
	}

	app.Before = func(c *cli.Context) error {
		conf, err := loadConfig(c)
		if err != nil {
			return err
		}
		return errors.Wrap(setLogLevel(conf.Level()), "configuring logging")
	}

	app.Commands = []cli.Command{
		pendingCommand(),
		failedCommand(),
		summaryCommand(),
		eventsCommand(),
		historyCommand(),
	}

	return app
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	conf, err := config.Load(c.GlobalString(configFlagName))
	if err != nil {
		return nil, errors.Wrap(err, "loading configuration")
	}
	if lvl := c.GlobalString(levelFlagName); lvl != "" {
		conf.LogLevel = lvl
		if err := conf.Validate(); err != nil {
			return nil, errors.Wrap(err, "invalid log level")
		}
	}
	return conf, nil
}

func setLogLevel(p level.Priority) error {
	sender := grip.GetSender()
	return sender.SetLevel(send.LevelInfo{Default: sender.Level().Default, Threshold: p})
}

func newParser(conf *config.Config) (*parser.Parser, error) {
	return parser.New(conf.ParserOptions())
}

func requireOneFile(c *cli.Context) (string, error) {
	if c.NArg() != 1 {
		return "", errors.Errorf("%s requires exactly one log file", c.Command.Name)
	}
	return c.Args().First(), nil
}

func readOne(c *cli.Context) (*ulog.EventLog, error) {
	path, err := requireOneFile(c)
	if err != nil {
		return nil, err
	}
	conf, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	p, err := newParser(conf)
	if err != nil {
		return nil, err
	}

	log, err := p.ParseFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "problem reading user log")
	}
	return log, nil
}

func pendingCommand() cli.Command {
	return cli.Command{
		Name:      "pending",
		Usage:     "exit with status 1 if the log has jobs that have not terminated",
		ArgsUsage: "FILE",
		Action: func(c *cli.Context) error {
			log, err := readOne(c)
			if err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, log.SourceName)

			summary := log.Summary()
			if log.HasPendingJobs() {
				grip.Warning(message.Fields{
					"message":   "pending jobs",
					"source":    log.SourceName,
					"pending":   summary.Pending,
					"submitted": summary.Submitted,
				})
				return cli.NewExitError("", 1)
			}
			grip.Debug(message.Fields{"message": "no pending jobs", "source": log.SourceName})
			return nil
		},
	}
}

func failedCommand() cli.Command {
	return cli.Command{
		Name:      "failed",
		Usage:     "exit with status 0 if the job of the log failed, and 1 otherwise",
		ArgsUsage: "FILE",
		Action: func(c *cli.Context) error {
			log, err := readOne(c)
			if err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, log.SourceName)

			if log.JobFailed() {
				grip.Warning(message.Fields{"message": "failed job", "source": log.SourceName})
				return nil
			}
			grip.Debug(message.Fields{"message": "job not failed", "source": log.SourceName})
			return cli.NewExitError("", 1)
		},
	}
}

func summaryCommand() cli.Command {
	return cli.Command{
		Name:      "summary",
		Usage:     "summarize run attempts by site and machine over many logs",
		ArgsUsage: "PATH...",
		Flags: []cli.Flag{
			cli.IntFlag{
				Name:  workersFlagName,
				Usage: "number of files parsed concurrently (defaults to the configuration)",
			},
			cli.StringFlag{
				Name:  formatFlagName,
				Value: textFormat,
				Usage: "output format: text, json, yaml or bson",
			},
			cli.BoolFlag{
				Name:  archiveFlagName,
				Usage: "store the result in the configured MongoDB archive",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return errors.New("summary requires at least one log file or directory")
			}

			conf, err := loadConfig(c)
			if err != nil {
				return err
			}
			if n := c.Int(workersFlagName); n > 0 {
				conf.Workers = n
			}
			if c.Bool(archiveFlagName) && !conf.ArchiveEnabled() {
				return errors.New("archiving requires archive.uri in the configuration file")
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			report, res, err := summarize(ctx, conf, c.Args())
			if err != nil {
				return err
			}

			if err := writeSummary(c.App.Writer, c.String(formatFlagName), report, conf.ReportOptions()); err != nil {
				return err
			}

			if c.Bool(archiveFlagName) {
				if err := archiveBatch(ctx, conf, res, report); err != nil {
					return err
				}
			}

			for _, f := range res.Failures {
				fmt.Fprintln(c.App.ErrWriter, f.Error())
			}
			if len(res.Failures) > 0 {
				return cli.NewExitError(fmt.Sprintf("%d of %d logs could not be read", len(res.Failures), res.Files), 1)
			}
			return nil
		},
	}
}

func summarize(ctx context.Context, conf *config.Config, paths []string) (*stats.Report, *pool.Result, error) {
	p, err := newParser(conf)
	if err != nil {
		return nil, nil, err
	}

	group := job.NewGroup("summary")
	grip.Warning(message.WrapError(group.AddPaths(paths...), "some paths could not be read"))
	if group.Len() == 0 {
		return nil, nil, errors.New("no log files found")
	}

	collector := stats.NewCollector(conf.StatsOptions())
	res, err := pool.NewLocalWorkers(conf.Workers).Run(ctx, group, p, collector)
	if err != nil {
		return nil, nil, errors.Wrap(err, "problem processing logs")
	}

	return collector.Report(), res, nil
}

func writeSummary(w io.Writer, format string, report *stats.Report, opts reporting.Options) error {
	summary := reporting.Summarize(report, opts)
	if format == textFormat || format == "" {
		return reporting.Write(w, summary)
	}

	return writeFormatted(w, format, summary)
}

func writeFormatted(w io.Writer, format string, v interface{}) error {
	f, err := ulog.ParseFormat(format)
	if err != nil {
		return err
	}
	out, err := ulog.ConvertTo(f, v)
	if err != nil {
		return errors.Wrapf(err, "problem rendering %s", f)
	}
	if f == ulog.JSON {
		out = append(out, '\n')
	}
	_, err = w.Write(out)
	return errors.WithStack(err)
}

func archiveBatch(ctx context.Context, conf *config.Config, res *pool.Result, report *stats.Report) error {
	store, err := archive.Open(ctx, conf.ArchiveOptions())
	if err != nil {
		return errors.Wrap(err, "opening archive")
	}
	defer func() { grip.Warning(store.Close(ctx)) }()

	batch := archive.NewBatch(res, report)
	if err := store.Save(ctx, batch); err != nil {
		return err
	}

	grip.Info(message.Fields{"message": "archived batch", "batch": batch.ID})
	return nil
}

func eventsCommand() cli.Command {
	return cli.Command{
		Name:      "events",
		Usage:     "print the normalized events of one log",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:  formatFlagName,
				Value: textFormat,
				Usage: "output format: text, json or yaml",
			},
		},
		Action: func(c *cli.Context) error {
			log, err := readOne(c)
			if err != nil {
				return err
			}

			format := c.String(formatFlagName)
			if format == textFormat {
				for _, e := range log.Events {
					fmt.Fprint(c.App.Writer, e.String())
				}
				for _, a := range log.Anomalies {
					fmt.Fprintf(c.App.ErrWriter, "%s: %s %s\n", a.Kind, a.JobID, a.Detail)
				}
				return nil
			}

			return writeFormatted(c.App.Writer, format, log)
		},
	}
}

func historyCommand() cli.Command {
	return cli.Command{
		Name:  "history",
		Usage: "list recently archived summary batches",
		Flags: []cli.Flag{
			cli.IntFlag{
				Name:  limitFlagName,
				Value: 10,
				Usage: "number of batches to list",
			},
		},
		Action: func(c *cli.Context) error {
			conf, err := loadConfig(c)
			if err != nil {
				return err
			}
			if !conf.ArchiveEnabled() {
				return errors.New("history requires archive.uri in the configuration file")
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			store, err := archive.Open(ctx, conf.ArchiveOptions())
			if err != nil {
				return errors.Wrap(err, "opening archive")
			}
			defer func() { grip.Warning(store.Close(ctx)) }()

			batches, err := store.Recent(ctx, c.Int(limitFlagName))
			if err != nil {
				return err
			}

			return writeHistory(c.App.Writer, batches)
		},
	}
}

func writeHistory(w io.Writer, batches []*archive.Batch) error {
	for _, b := range batches {
		good, bad := 0, 0
		if b.Report != nil {
			good, bad = b.Report.GoodJobs, b.Report.BadJobs
		}
		if _, err := fmt.Fprintf(w, "%s  %s  files=%d parsed=%d good=%d bad=%d\n",
			b.CreatedAt.Format("2006-01-02 15:04:05"), b.ID, b.Files, b.Parsed, good, bad); err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}
