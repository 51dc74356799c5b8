package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/colligo/internal/app"
	"github.com/ternarybob/colligo/internal/common"
	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/jobs"
	"github.com/ternarybob/colligo/internal/services/collect"
	"github.com/ternarybob/colligo/internal/services/export"
	"github.com/ternarybob/colligo/internal/telegram"
)

// configPaths is a custom flag type that allows multiple -config flags
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	configFiles  configPaths
	link         = flag.String("link", "", "Group/chat/post link or @handle to collect from")
	mode         = flag.String("mode", "members", "Collection mode: members, messages, comments, reactions")
	limit        = flag.Int("limit", -1, "Maximum items to collect (overrides config default)")
	clearSession = flag.Bool("clear-session", false, "Delete stored session files and exit")
	showVersion  = flag.Bool("version", false, "Print version information")
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("Colligo version %s\n", common.GetVersion())
		os.Exit(0)
	}

	// Auto-discover config file if not specified
	if len(configFiles) == 0 {
		if _, err := os.Stat("colligo.toml"); err == nil {
			configFiles = append(configFiles, "colligo.toml")
		}
	}

	config, err := common.LoadFromFiles(configFiles...)
	if err != nil {
		arbor.NewLogger().Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger := common.InitLogger(config)
	common.PrintBanner(common.GetVersion())

	if *clearSession {
		sessions := telegram.NewSessionStore(".", logger)
		removed, err := sessions.Clear(config.Telegram.SessionName)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to clear session")
		}
		logger.Info().Int("files", removed).Msg("Session cleared, re-authentication required on next run")
		return
	}

	if *link == "" {
		logger.Fatal().Msg("A -link is required (https://t.me/... or @handle)")
	}
	jobMode, err := collect.ParseMode(*mode)
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid collection mode")
	}
	if err := config.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("Configuration is incomplete")
	}

	jobLimit := config.Collect.DefaultLimit
	if *limit >= 0 {
		jobLimit = *limit
	}

	application, err := app.New(config)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer application.Close()

	job, err := application.Supervisor.Start(collect.JobConfig{
		Credentials: telegram.Credentials{
			APIID:       config.Telegram.APIID,
			APIHash:     config.Telegram.APIHash,
			SessionName: config.Telegram.SessionName,
		},
		Link:  *link,
		Mode:  jobMode,
		Limit: jobLimit,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to start job")
	}

	// Ctrl-C requests cooperative cancellation with the bounded stop wait
	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-interrupts
		logger.Info().Msg("Interrupt received, stopping job")
		application.Supervisor.Stop()
	}()

	outcome := present(application, job, logger)
	report(config, outcome, logger)
}

// present consumes the job's event stream, answering prompts from stdin,
// and returns the terminal outcome
func present(application *app.App, job *jobs.Job, logger arbor.ILogger) collect.Outcome {
	stdin := bufio.NewReader(os.Stdin)
	events := job.Events()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return <-job.Outcome()
			}
			switch event.Type {
			case interfaces.EventStatusMessage:
				logger.Info().Msg(event.Text)
			case interfaces.EventProgressValue:
				logger.Debug().Int("count", event.Count).Msg("Progress")
			case interfaces.EventAuthCodePrompt:
				fmt.Printf("%s: ", event.Text)
				answer, _ := stdin.ReadString('\n')
				application.Supervisor.Supply(strings.TrimSpace(answer))
			case interfaces.EventAuthPasswordPrompt:
				fmt.Print("Two-factor password: ")
				answer, _ := stdin.ReadString('\n')
				application.Supervisor.Supply(strings.TrimSpace(answer))
			}
		case outcome := <-job.Outcome():
			// A forcibly terminated job leaves the stream open
			return outcome
		}
	}
}

// report surfaces the outcome: completed jobs are exported to CSV, hard
// failures are errors, cancellations and soft failures are status lines
func report(config *common.Config, outcome collect.Outcome, logger arbor.ILogger) {
	switch outcome.Status {
	case collect.StatusCompleted:
		logger.Info().
			Str("title", outcome.Title).
			Int("records", len(outcome.Records)).
			Msg("Collection completed")
		if len(outcome.Records) > 0 {
			path, err := export.Save(config.Export.Dir, "colligo_export", outcome.Records)
			if err != nil {
				logger.Error().Err(err).Msg("Failed to save CSV export")
				os.Exit(1)
			}
			logger.Info().Str("path", path).Msg("CSV export saved")
		}
	case collect.StatusCancelled:
		logger.Info().Msg("Collection cancelled")
	case collect.StatusFailed:
		if outcome.Soft {
			logger.Info().Msg(outcome.Reason)
			return
		}
		logger.Error().Msg(outcome.Reason)
		os.Exit(1)
	}
}
