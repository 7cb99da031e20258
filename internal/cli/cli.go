package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/Aryanchhabra/DeepResearchAI/internal/config"
	internal_http "github.com/Aryanchhabra/DeepResearchAI/internal/http"
	"github.com/Aryanchhabra/DeepResearchAI/internal/log"
	"github.com/Aryanchhabra/DeepResearchAI/pkg/models"
	"github.com/Aryanchhabra/DeepResearchAI/pkg/service"
	"github.com/Aryanchhabra/DeepResearchAI/pkg/storage"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

const rule = "=================================================="

// SetupCLI registers the serve, ask and history commands on rootCmd.
func SetupCLI(rootCmd *cobra.Command) {
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file (optional)")
	rootCmd.SilenceUsage = true

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the research web server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port, _ = cmd.Flags().GetInt("port")
			}
			return serve(cmd.Context(), cfg)
		},
	}
	serveCmd.Flags().Int("port", 5000, "Port to listen on (overrides config)")

	askCmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Research a question and print the answer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			noStream, _ := cmd.Flags().GetBool("no-stream")
			maxSources, _ := cmd.Flags().GetInt("max-sources")

			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			return ask(cmd.Context(), cmd.OutOrStdout(), a.coordinator, args[0], models.ResearchOptions{MaxSources: maxSources}, !noStream)
		},
	}
	askCmd.Flags().Bool("no-stream", false, "Do not print progress while researching")
	askCmd.Flags().Int("max-sources", 0, "Maximum pages to read (0 uses the configured default)")

	rootCmd.AddCommand(serveCmd, askCmd, historyCommand())
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		log.GetLogger().Errorf("Error retrieving config flag: %v", err)
		return nil, err
	}
	log.GetLogger().Debugf("Loading config from %q", path)
	return config.Load(path)
}

func serve(ctx context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := internal_http.NewServer(a.coordinator, a.history, cfg.Server.MaxWait)
	addr := cfg.Server.Host + ":" + strconv.Itoa(cfg.Server.Port)
	return srv.ListenAndServe(ctx, addr, cfg.Server.ShutdownTimeout)
}

// ask submits question, optionally streams its progress, and prints the outcome.
func ask(ctx context.Context, out io.Writer, coord *service.Coordinator, question string, opts models.ResearchOptions, stream bool) error {
	id, err := coord.Submit(question, opts)
	if err != nil {
		return errors.Wrap(err, "failed to start research")
	}

	if stream {
		events, err := coord.Subscribe(ctx, id)
		if err != nil {
			return errors.Wrap(err, "failed to follow research")
		}
		for ev := range events {
			if ev.Status == models.HeartbeatEventStatus {
				continue
			}
			fmt.Fprintf(out, "[%3d%%] %-13s %s\n", ev.Percentage, ev.Step, ev.Message)
		}
	}

	snap, err := coord.Wait(ctx, id)
	if err != nil {
		return errors.Wrap(err, "research did not finish")
	}
	printSnapshot(out, snap)
	if snap.Status == models.FailedTaskStatus {
		return errors.Errorf("research failed: %s", snap.Error)
	}
	return nil
}

func printSnapshot(out io.Writer, snap models.TaskSnapshot) {
	status := "success"
	answer := snap.Answer
	if snap.Status == models.FailedTaskStatus {
		status = "error"
		answer = "An error occurred during research: " + snap.Error
	}

	fmt.Fprintf(out, "\n%s\n", rule)
	fmt.Fprintf(out, "Research Question: %s\n", snap.Question)
	fmt.Fprintf(out, "%s\n", rule)
	fmt.Fprintf(out, "\nAnswer:\n%s\n", answer)
	fmt.Fprintf(out, "\nSources:\n")
	printSources(out, snap.Sources)
	fmt.Fprintf(out, "\nStatus: %s\n", status)
	if snap.Error != "" {
		fmt.Fprintf(out, "\nErrors encountered:\n- %s\n", snap.Error)
	}
	fmt.Fprintf(out, "%s\n", rule)
}

func printSources(out io.Writer, sources []models.Source) {
	for i, s := range sources {
		fmt.Fprintf(out, "%d. %s - %s\n", i+1, s.Title, s.URL)
	}
}

func historyCommand() *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect or clear research history",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List past research, newest first",
		Args:  cobra.NoArgs,
		RunE: withHistory(func(cmd *cobra.Command, args []string, hs *service.HistoryService) error {
			limit, _ := cmd.Flags().GetInt("limit")
			recs, err := hs.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(recs) == 0 {
				fmt.Fprintf(out, "No research history found.\n")
				return nil
			}
			fmt.Fprintf(out, "Research history:\n")
			for _, rec := range recs {
				fmt.Fprintf(out, "- ID: %s, Date: %s, Question: %s\n",
					rec.ID, rec.CreatedAt.Local().Format("2006-01-02 15:04:05"), rec.Question)
			}
			return nil
		}),
	}
	listCmd.Flags().Int("limit", 20, "Maximum records to show (0 for all)")

	showCmd := &cobra.Command{
		Use:   "show [id]",
		Short: "Print one research result",
		Args:  cobra.ExactArgs(1),
		RunE: withHistory(func(cmd *cobra.Command, args []string, hs *service.HistoryService) error {
			rec, err := hs.Get(cmd.Context(), args[0])
			if errors.Is(err, storage.ErrNotFound) {
				return errors.Errorf("research %s not found", args[0])
			}
			if err != nil {
				return err
			}
			printSnapshot(cmd.OutOrStdout(), models.TaskSnapshot{
				ID:       rec.ID,
				Status:   models.CompletedTaskStatus,
				Question: rec.Question,
				Answer:   rec.Answer,
				Sources:  rec.Sources,
			})
			return nil
		}),
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all research history",
		Args:  cobra.NoArgs,
		RunE: withHistory(func(cmd *cobra.Command, args []string, hs *service.HistoryService) error {
			if err := hs.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Research history cleared.\n")
			return nil
		}),
	}

	historyCmd.AddCommand(listCmd, showCmd, clearCmd)
	return historyCmd
}

// withHistory opens the configured store around fn. No API keys are needed.
func withHistory(fn func(cmd *cobra.Command, args []string, hs *service.HistoryService) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		store, err := initStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer store.Close()
		return fn(cmd, args, service.NewHistoryService(store, log.GetLogger()))
	}
}
