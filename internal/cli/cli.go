package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/pfrederiksen/connpass-attendees/internal/attendee"
	"github.com/pfrederiksen/connpass-attendees/internal/config"
	"github.com/pfrederiksen/connpass-attendees/internal/directory"
	"github.com/pfrederiksen/connpass-attendees/internal/logger"
	"github.com/pfrederiksen/connpass-attendees/internal/matcher"
	"github.com/pfrederiksen/connpass-attendees/internal/resolver"
	"github.com/pfrederiksen/connpass-attendees/internal/scraper"
	"github.com/spf13/cobra"
)

const (
	ExitSuccess  = 0
	ExitError    = 1
	ExitNotFound = 2
)

var (
	flagConfig   string
	flagBaseURL  string
	flagUsers    string
	flagDriver   string
	flagLogLevel string
	flagFormat   string
	flagVerbose  bool

	flagName     string
	flagTwitter  string
	flagFacebook string
	flagGitHub   string
)

// exitStatusError carries a process exit code out of a command
type exitStatusError struct {
	Code int
	Err  error
}

func (e *exitStatusError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *exitStatusError) Unwrap() error {
	return e.Err
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "connpass-attendees",
		Short: "Match connpass event attendees against local users",
		Long: `A CLI tool to find which local users attend a connpass event.
Scrapes the event's participant list, then matches each attendee's name and
Twitter/Facebook/GitHub handles against the user directory.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&flagConfig, "config", "", "Config file (default ./config.yaml or /etc/connpass-attendees/config.yaml)")
	flags.StringVar(&flagBaseURL, "base-url", "", "Override source.base_url")
	flags.StringVar(&flagUsers, "users", "", "Users JSON file (selects the memory directory)")
	flags.StringVar(&flagDriver, "directory", "", "Directory driver: memory or postgres")
	flags.StringVar(&flagLogLevel, "log-level", "", "Override logging.level")
	flags.StringVar(&flagFormat, "format", "text", "Output format: text or json")
	flags.BoolVar(&flagVerbose, "verbose", false, "Print metrics to stderr after the run")

	cmd.AddCommand(newResolveCmd(), newScrapeCmd(), newMatchCmd())

	return cmd
}

func newResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve EVENT_URL",
		Short: "Print the ids of local users attending an event",
		Args:  cobra.ExactArgs(1),
		RunE:  runResolve,
	}
}

func newScrapeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scrape EVENT_URL",
		Short: "Print the attendee profiles scraped from an event",
		Args:  cobra.ExactArgs(1),
		RunE:  runScrape,
	}
}

func newMatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Match a single profile against the user directory",
		Args:  cobra.NoArgs,
		RunE:  runMatch,
	}
	cmd.Flags().StringVar(&flagName, "name", "", "Display name (required)")
	cmd.Flags().StringVar(&flagTwitter, "twitter", "", "Twitter handle")
	cmd.Flags().StringVar(&flagFacebook, "facebook", "", "Facebook id")
	cmd.Flags().StringVar(&flagGitHub, "github", "", "GitHub handle")
	cmd.MarkFlagRequired("name")
	return cmd
}

// runtime holds the collaborators built from configuration for one command run
type runtime struct {
	cfg     *config.Config
	log     *logger.Logger
	metrics *logger.Metrics
	format  OutputFormat
}

func newRuntime(cmd *cobra.Command) (*runtime, error) {
	format, err := ParseFormat(flagFormat)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if flagBaseURL != "" {
		cfg.Source.BaseURL = flagBaseURL
	}
	if flagUsers != "" {
		cfg.Directory.Driver = config.DriverMemory
		cfg.Directory.Path = flagUsers
	}
	if flagDriver != "" {
		cfg.Directory.Driver = flagDriver
	}
	if flagLogLevel != "" {
		cfg.Logging.Level = flagLogLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	level, err := logger.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}

	return &runtime{
		cfg:     cfg,
		log:     logger.New(level, cmd.ErrOrStderr()),
		metrics: logger.NewMetrics(),
		format:  format,
	}, nil
}

func (rt *runtime) scraper() *scraper.Scraper {
	return scraper.New(rt.log,
		scraper.WithBaseURL(rt.cfg.Source.BaseURL),
		scraper.WithUserAgent(rt.cfg.Source.UserAgent),
		scraper.WithHTTPClient(&http.Client{Timeout: rt.cfg.Source.Timeout}),
	)
}

// openDirectory returns the configured directory and a function releasing it
func (rt *runtime) openDirectory(ctx context.Context) (matcher.Directory, func(), error) {
	switch rt.cfg.Directory.Driver {
	case config.DriverPostgres:
		dir, err := directory.NewPostgresDirectory(ctx, rt.cfg.Directory.Postgres.ConnString())
		if err != nil {
			return nil, nil, fmt.Errorf("opening postgres directory: %w", err)
		}
		return dir, dir.Close, nil
	default:
		dir, err := directory.LoadFile(rt.cfg.Directory.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("opening users file: %w", err)
		}
		rt.log.Debug("Loaded user directory", logger.Fields{"path": rt.cfg.Directory.Path, "users": dir.Len()})
		return dir, func() {}, nil
	}
}

func (rt *runtime) matcher(dir matcher.Directory) *matcher.Matcher {
	return matcher.New(dir, rt.log, matcher.WithMetrics(rt.metrics))
}

func (rt *runtime) dumpMetrics(w io.Writer) {
	if !flagVerbose {
		return
	}
	fmt.Fprintln(w, "Metrics:")
	writeJSON(w, rt.metrics.Snapshot())
}

// runResolve is the main command logic
func runResolve(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}

	dir, closeDir, err := rt.openDirectory(ctx)
	if err != nil {
		return err
	}
	defer closeDir()

	r := resolver.New(rt.scraper(), rt.matcher(dir), rt.log, rt.metrics)
	envelope := r.ResolveEvent(ctx, args[0])

	if err := WriteEnvelope(cmd.OutOrStdout(), envelope, rt.format); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	rt.dumpMetrics(cmd.ErrOrStderr())

	switch envelope.Status.Kind {
	case resolver.StatusNotFound:
		return &exitStatusError{Code: ExitNotFound}
	case resolver.StatusError:
		return &exitStatusError{Code: ExitError}
	}
	return nil
}

func runScrape(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}

	switch res := rt.scraper().Fetch(ctx, args[0]).(type) {
	case scraper.Success:
		result := &ScrapeResult{Title: res.Title, Profiles: res.Profiles}
		if err := WriteScrape(cmd.OutOrStdout(), result, rt.format); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
		return nil
	case scraper.NotFound:
		return &exitStatusError{Code: ExitNotFound, Err: fmt.Errorf("event page not found: %s", res.URL)}
	case scraper.Failure:
		return &exitStatusError{Code: ExitError, Err: res.Err}
	default:
		return fmt.Errorf("unexpected fetch result %T", res)
	}
}

func runMatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}

	dir, closeDir, err := rt.openDirectory(ctx)
	if err != nil {
		return err
	}
	defer closeDir()

	profile := attendee.NewProfile(flagName)
	if flagTwitter != "" {
		profile = profile.WithHandle(attendee.Twitter, flagTwitter)
	}
	if flagFacebook != "" {
		profile = profile.WithHandle(attendee.Facebook, flagFacebook)
	}
	if flagGitHub != "" {
		profile = profile.WithHandle(attendee.GitHub, flagGitHub)
	}

	id, ok, err := rt.matcher(dir).Resolve(ctx, profile)
	if err != nil {
		return fmt.Errorf("matching profile: %w", err)
	}

	result := &MatchResult{Profile: profile, Matched: ok}
	if ok {
		result.UserID = &id
	}
	if err := WriteMatch(cmd.OutOrStdout(), result, rt.format); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	rt.dumpMetrics(cmd.ErrOrStderr())
	return nil
}

// Execute runs the CLI
func Execute() {
	err := NewRootCmd().Execute()
	if err == nil {
		os.Exit(ExitSuccess)
	}

	var exitErr *exitStatusError
	if errors.As(err, &exitErr) {
		if exitErr.Err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", exitErr.Err)
		}
		os.Exit(exitErr.Code)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(ExitError)
}
