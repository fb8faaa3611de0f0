// Command blueprintctl drives the estimator API from a terminal.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/blueprintpro/estimator/internal/api/middleware"
	"github.com/blueprintpro/estimator/internal/client"
	"github.com/blueprintpro/estimator/internal/settings"
)

var settingsFile string

func main() {
	rootCmd := &cobra.Command{
		Use:           "blueprintctl",
		Short:         "Blueprint estimator client",
		Long:          "blueprintctl analyzes blueprints and manages estimate projects through the estimator API.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&settingsFile, "settings", "", "Settings file path (default: user config dir)")

	analyzeCmd := &cobra.Command{
		Use:   "analyze <blueprint-url>",
		Short: "Extract structured data from a blueprint image",
		Args:  cobra.ExactArgs(1),
		RunE:  runAnalyze,
	}

	settingsCmd := &cobra.Command{Use: "settings", Short: "Show or edit provider settings"}
	settingsCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the current settings with keys masked",
		Args:  cobra.NoArgs,
		RunE:  runSettingsShow,
	})
	settingsCmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set one setting (" + strings.Join(settings.Keys, ", ") + ")",
		Args:  cobra.ExactArgs(2),
		RunE:  runSettingsSet,
	})

	projectsCmd := &cobra.Command{Use: "projects", Short: "Work with stored projects"}
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List projects, newest first",
		Args:  cobra.NoArgs,
		RunE:  runProjectsList,
	}
	listCmd.Flags().String("status", "", "Filter by status")
	listCmd.Flags().Int("page", 1, "Page number")
	listCmd.Flags().Int("page-size", 20, "Projects per page")
	projectsCmd.AddCommand(listCmd)

	estimateCmd := &cobra.Command{
		Use:   "estimate <project-id>",
		Short: "Generate and store an estimate for a project",
		Args:  cobra.ExactArgs(1),
		RunE:  runEstimate,
	}
	estimateCmd.Flags().String("start", "", "Schedule start date (YYYY-MM-DD, default today)")

	tokenCmd := &cobra.Command{
		Use:   "token <subject>",
		Short: "Mint a bearer token for the protected project routes",
		Args:  cobra.ExactArgs(1),
		RunE:  runToken,
	}
	tokenCmd.Flags().String("secret", "", "HMAC secret (default: $AUTH_HMAC_SECRET)")
	tokenCmd.Flags().Duration("ttl", 24*time.Hour, "Token lifetime")

	rootCmd.AddCommand(analyzeCmd, settingsCmd, projectsCmd, estimateCmd, tokenCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		printError("Error: %v", err)
		stop()
		os.Exit(1)
	}
}

func store() (*settings.Store, error) {
	if settingsFile != "" {
		return settings.NewStore(settingsFile), nil
	}
	path, err := settings.DefaultPath()
	if err != nil {
		return nil, err
	}
	return settings.NewStore(path), nil
}

func loadClient() (*client.Client, error) {
	st, err := store()
	if err != nil {
		return nil, err
	}
	s, err := st.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	return client.New(s, client.WithStatus(func(line string) { printInfo("%s", line) })), nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	c, err := loadClient()
	if err != nil {
		return err
	}

	printTitle("Analyzing blueprint")
	res, err := c.Analyze(cmd.Context(), args[0])
	if err != nil {
		var failed *client.AnalysisFailedError
		if errors.As(err, &failed) {
			for _, d := range failed.Details {
				printWarning("  %s: %s", d.Provider, d.Message)
			}
		}
		return err
	}

	out, err := json.MarshalIndent(res.Result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	printSuccess("Analysis provided by %s", res.Provider)
	return nil
}

func runSettingsShow(cmd *cobra.Command, args []string) error {
	st, err := store()
	if err != nil {
		return err
	}
	s, err := st.Load()
	if err != nil {
		return err
	}
	r := s.Redacted()
	printTitle("Settings (%s)", st.Path())
	fmt.Printf("provider:         %s\n", r.Provider)
	fmt.Printf("server_url:       %s\n", r.ServerURL)
	fmt.Printf("google_key:       %s\n", r.GoogleKey)
	fmt.Printf("openrouter_key:   %s\n", r.OpenRouterKey)
	fmt.Printf("openrouter_model: %s\n", r.OpenRouterModel)
	fmt.Printf("token:            %s\n", r.Token)
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	st, err := store()
	if err != nil {
		return err
	}
	s, err := st.Load()
	if err != nil {
		return err
	}
	if err := s.Set(args[0], args[1]); err != nil {
		return err
	}
	if err := st.Save(s); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	printSuccess("Saved %s", args[0])
	return nil
}

func runProjectsList(cmd *cobra.Command, args []string) error {
	c, err := loadClient()
	if err != nil {
		return err
	}
	status, _ := cmd.Flags().GetString("status")
	page, _ := cmd.Flags().GetInt("page")
	size, _ := cmd.Flags().GetInt("page-size")

	projects, meta, err := c.ListProjects(cmd.Context(), status, page, size)
	if err != nil {
		return err
	}
	printTitle("Projects")
	if len(projects) == 0 {
		printInfo("No projects found")
		return nil
	}
	for _, p := range projects {
		fmt.Printf("%s  %-12s %-30s $%.2f\n", p.ID, p.Status, p.Name, p.TotalEstimate)
	}
	if meta != nil {
		printInfo("page %d, %d of %d projects", meta.Page, len(projects), meta.Total)
	}
	return nil
}

func runEstimate(cmd *cobra.Command, args []string) error {
	c, err := loadClient()
	if err != nil {
		return err
	}
	start, _ := cmd.Flags().GetString("start")

	printTitle("Estimating project %s", args[0])
	out, err := c.GenerateEstimate(cmd.Context(), args[0], start)
	if err != nil {
		return err
	}

	for _, ph := range out.Summary.Phases {
		fmt.Printf("  %-24s $%12.2f  %5.1f%%\n", ph.Name, ph.Total, ph.Percent)
	}
	fmt.Printf("  %-24s $%12.2f\n", "Materials", out.Summary.MaterialCost)
	fmt.Printf("  %-24s $%12.2f\n", "Labor", out.Summary.LaborCost)
	fmt.Printf("  %-24s $%12.2f\n", "Contingency", out.Summary.Contingency)
	fmt.Printf("  %-24s $%12.2f\n", "Grand total", out.Summary.GrandTotal)
	printSuccess("Estimate generated by %s", out.Provider)
	return nil
}

func runToken(cmd *cobra.Command, args []string) error {
	secret, _ := cmd.Flags().GetString("secret")
	if secret == "" {
		secret = os.Getenv("AUTH_HMAC_SECRET")
	}
	if secret == "" {
		return errors.New("no secret: pass --secret or set AUTH_HMAC_SECRET")
	}
	ttl, _ := cmd.Flags().GetDuration("ttl")

	tok, err := middleware.IssueToken([]byte(secret), args[0], ttl)
	if err != nil {
		return err
	}
	fmt.Println(tok)
	return nil
}
