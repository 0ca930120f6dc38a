// Command discover runs channel discovery from the command line and writes the
// results as JSON or CSV.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/yt-discovery/internal/api"
	"github.com/yt-discovery/internal/app"
	"github.com/yt-discovery/internal/config"
	"github.com/yt-discovery/internal/discovery"
	"github.com/yt-discovery/internal/logging"
	"github.com/yt-discovery/internal/models"
	"github.com/yt-discovery/internal/youtube"
)

const (
	formatJSON = "json"
	formatCSV  = "csv"
)

type searchFlags struct {
	keyword    string
	maxResults int
	sort       string
	format     string
	output     string
	noExpand   bool

	minSubs, maxSubs     int64
	minVideos, maxVideos int64
	minUploadFreq        float64
	maxDaysSinceUpload   int
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := config.NewViper()
	var f searchFlags

	rootCmd := &cobra.Command{
		Use:          "discover [keyword]",
		Short:        "Discover YouTube channels for a keyword",
		Long:         "Searches YouTube for channels matching a keyword, enriches them with contact details and activity metrics, and prints the results.",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				f.keyword = args[0]
			}
			if strings.TrimSpace(f.keyword) == "" {
				return fmt.Errorf("please provide a keyword as an argument or with --keyword")
			}
			return withApp(cmd, v, f.noExpand, func(a *app.App, logger zerolog.Logger) error {
				return runSearch(cmd.Context(), a, f, cmd.Flags().Changed, cmd.OutOrStdout(), logger)
			})
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.String("log-level", "warn", "Log level (debug, info, warn, error)")
	pf.String("db-path", "", "SQLite Cloud connection string for history and enrichment cache")
	pf.Int("workers", discovery.DefaultWorkers, "Concurrent enrichment workers")
	cobra.CheckErr(v.BindPFlag("LOG_LEVEL", pf.Lookup("log-level")))
	cobra.CheckErr(v.BindPFlag("DB_PATH", pf.Lookup("db-path")))
	cobra.CheckErr(v.BindPFlag("ENRICH_WORKERS", pf.Lookup("workers")))

	fl := rootCmd.Flags()
	fl.StringVarP(&f.keyword, "keyword", "k", "", "Search keyword")
	fl.IntVarP(&f.maxResults, "max-results", "n", api.DefaultMaxResults, "Maximum channels to return")
	fl.StringVarP(&f.sort, "sort", "s", string(models.SortBySubscribers), "Sort order (subscribers, relevance, views, videos, engagement, upload_frequency)")
	fl.StringVarP(&f.format, "format", "f", formatJSON, "Output format (json, csv)")
	fl.StringVarP(&f.output, "output", "o", "", "Write results to this file instead of stdout")
	fl.BoolVar(&f.noExpand, "no-expand", false, "Disable related keyword expansion")
	fl.Int64Var(&f.minSubs, "min-subscribers", 0, "Minimum subscriber count")
	fl.Int64Var(&f.maxSubs, "max-subscribers", 0, "Maximum subscriber count")
	fl.Int64Var(&f.minVideos, "min-videos", 0, "Minimum video count")
	fl.Int64Var(&f.maxVideos, "max-videos", 0, "Maximum video count")
	fl.Float64Var(&f.minUploadFreq, "min-upload-frequency", 0, "Minimum uploads per week")
	fl.IntVar(&f.maxDaysSinceUpload, "max-days-since-upload", 0, "Maximum days since the latest upload")

	rootCmd.AddCommand(channelCmd(v), quotaCmd(v))
	return rootCmd
}

// channelCmd looks up and enriches a single channel by URL, handle or id.
func channelCmd(v *viper.Viper) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "channel <url|@handle|id>",
		Short: "Look up a single channel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := youtube.ParseChannelURL(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, v, false, func(a *app.App, _ zerolog.Logger) error {
				if a.YouTube == nil {
					return youtube.ErrUnauthenticated
				}
				id, err := a.YouTube.ResolveChannel(cmd.Context(), ref)
				if err != nil {
					return err
				}
				rec, err := a.Engine.Lookup(cmd.Context(), id)
				if err != nil {
					return err
				}
				out, err := render(format, "", []*models.ChannelRecord{rec}, time.Now())
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(out)
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatJSON, "Output format (json, csv)")
	return cmd
}

// quotaCmd prints today's quota usage as tracked by this process. Usage is
// not shared between processes, so a fresh run always starts at zero.
func quotaCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "quota",
		Short: "Show the configured daily quota",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, v, false, func(a *app.App, _ zerolog.Logger) error {
				st := a.Engine.QuotaStatus()
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "used %d of %d units (%s), resets %s\n",
					st.Used, st.Limit, st.Tier, st.ResetDate)
				return err
			})
		},
	}
}

func withApp(cmd *cobra.Command, v *viper.Viper, noExpand bool, fn func(*app.App, zerolog.Logger) error) error {
	cfg, err := config.LoadViper(v)
	if err != nil {
		return err
	}
	if noExpand {
		cfg.KeywordExpansion = false
	}
	logger := logging.New(cmd.ErrOrStderr(), cfg.LogLevel, "console")

	a, err := app.New(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn().Err(err).Msg("Close failed")
		}
	}()
	return fn(a, logger)
}

func runSearch(ctx context.Context, a *app.App, f searchFlags, changed func(string) bool, stdout io.Writer, logger zerolog.Logger) error {
	format := strings.ToLower(f.format)
	if format != formatJSON && format != formatCSV {
		return fmt.Errorf("unsupported format %q", f.format)
	}

	req := discovery.Request{
		Keyword:     strings.TrimSpace(f.keyword),
		TargetCount: f.maxResults,
		Filters:     filtersFrom(f, changed),
		Sort:        models.ParseSortOrder(f.sort),
	}
	res, err := a.Engine.Discover(ctx, req)
	if err != nil {
		return err
	}
	logger.Info().
		Int("channels", len(res.Channels)).
		Int("quota_used", res.QuotaStatus.Used).
		Msg("Discovery finished")

	out, err := render(format, req.Keyword, res.Channels, time.Now())
	if err != nil {
		return err
	}

	if f.output == "" {
		_, err = stdout.Write(out)
		return err
	}
	if err := os.WriteFile(f.output, out, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", f.output, err)
	}
	logger.Info().Str("file", f.output).Msg("Results written")
	return nil
}

// filtersFrom sets only the bounds the user passed explicitly.
func filtersFrom(f searchFlags, changed func(string) bool) models.SearchFilters {
	var sf models.SearchFilters
	if changed("min-subscribers") {
		sf.MinSubscribers = &f.minSubs
	}
	if changed("max-subscribers") {
		sf.MaxSubscribers = &f.maxSubs
	}
	if changed("min-videos") {
		sf.MinVideos = &f.minVideos
	}
	if changed("max-videos") {
		sf.MaxVideos = &f.maxVideos
	}
	if changed("min-upload-frequency") {
		sf.MinUploadFrequency = &f.minUploadFreq
	}
	if changed("max-days-since-upload") {
		sf.MaxDaysSinceUpload = &f.maxDaysSinceUpload
	}
	return sf
}

func render(format, keyword string, channels []*models.ChannelRecord, now time.Time) ([]byte, error) {
	switch strings.ToLower(format) {
	case formatCSV:
		return api.ChannelsCSV(channels, now)
	case formatJSON, "":
		return api.ChannelsJSON(keyword, channels, now)
	}
	return nil, errors.New("unsupported format " + format)
}
