package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgallion1/chartdocx/internal/api"
	"github.com/dgallion1/chartdocx/internal/config"
	"github.com/dgallion1/chartdocx/internal/correct"
	"github.com/dgallion1/chartdocx/internal/pipeline"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "chartdocx",
		Short: "Clinical note to Word document exporter",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(convertCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the export API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func convertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert a note file to .docx",
		RunE: func(cmd *cobra.Command, args []string) error {
			in, _ := cmd.Flags().GetString("input")
			out, _ := cmd.Flags().GetString("output")
			format, _ := cmd.Flags().GetString("format")
			template, _ := cmd.Flags().GetString("template")
			title, _ := cmd.Flags().GetString("title")
			doCorrect, _ := cmd.Flags().GetBool("correct")
			annotate, _ := cmd.Flags().GetBool("annotate")
			return runConvert(cmd.Context(), in, out, format, template, title, doCorrect, annotate)
		},
	}
	cmd.Flags().StringP("input", "i", "", "Input note (.html, .md, .txt, .csv)")
	cmd.Flags().StringP("output", "o", "", "Output .docx path (default: input name with .docx)")
	cmd.Flags().String("format", "", "Input format, overrides the file extension")
	cmd.Flags().String("template", "", "Template .docx to patch")
	cmd.Flags().String("title", "", "Document title")
	cmd.Flags().Bool("correct", false, "Run correction before export")
	cmd.Flags().Bool("annotate", false, "Record applied corrections as comments")
	cmd.MarkFlagRequired("input")
	return cmd
}

// correction bundles the correction service wiring shared by both commands.
type correction struct {
	client     *correct.Client
	reconciler *correct.Reconciler
}

func newCorrection(cfg config.Config) *correction {
	if !cfg.CorrectionEnabled {
		return &correction{}
	}
	client := correct.NewClient(cfg.CorrectionURL, cfg.CorrectionUsername, cfg.CorrectionAPIKey, cfg.CorrectionTimeout)
	allow := correct.DefaultAllowList()
	if len(cfg.CorrectionRules) > 0 {
		allow = correct.NewAllowList(cfg.CorrectionRules...)
	}
	return &correction{
		client: client,
		reconciler: correct.NewReconciler(client, correct.Options{
			Language: cfg.CorrectionLanguage,
			Allow:    allow,
			Cache:    correct.NewCache(cfg.CorrectionCacheTTL),
			Stats:    correct.NewStats(time.Hour),
		}),
	}
}

func (c *correction) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

func newExporter(cfg config.Config, c *correction, log *slog.Logger) *pipeline.Exporter {
	return pipeline.NewExporter(c.reconciler, log, pipeline.ExporterOptions{
		MaxConcurrentCorrect: cfg.MaxConcurrentCorrect,
		Placeholder:          cfg.TemplatePlaceholder,
		Author:               cfg.DocumentAuthor,
	})
}

func runServer() error {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateServer(); err != nil {
		log.Error("invalid configuration", "error", err)
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize clients.
	corr := newCorrection(cfg)
	defer corr.Close()

	// Initialize pipeline.
	orch := pipeline.NewOrchestrator(cfg, newExporter(cfg, corr, log), log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(orch, corr.reconciler, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		orch.Stop()
	}()

	log.Info("starting chartdocx",
		"port", cfg.Port,
		"correction", cfg.CorrectionEnabled,
		"workers", cfg.WorkerCount,
	)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		return err
	}
	<-done
	return nil
}

func runConvert(ctx context.Context, in, out, format, template, title string, doCorrect, annotate bool) error {
	log := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.CorrectionEnabled = cfg.CorrectionEnabled && doCorrect
	if err := cfg.Validate(); err != nil {
		return err
	}

	content, err := os.ReadFile(in)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	req := pipeline.Request{
		Content:  content,
		Format:   format,
		Filename: filepath.Base(in),
		Title:    title,
		Correct:  doCorrect,
		Fallback: cfg.CorrectionFallback,
		Annotate: annotate,
		Language: cfg.CorrectionLanguage,
	}
	if template != "" {
		if req.Template, err = os.ReadFile(template); err != nil {
			return fmt.Errorf("read template: %w", err)
		}
	}

	corr := newCorrection(cfg)
	defer corr.Close()

	res, err := newExporter(cfg, corr, log).Export(ctx, req)
	if err != nil {
		return err
	}

	if out == "" {
		out = strings.TrimSuffix(in, filepath.Ext(in)) + ".docx"
	}
	if err := os.WriteFile(out, res.Document, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	fmt.Fprintf(os.Stdout, "wrote %s (%d blocks, %d corrections)\n", out, res.Blocks, res.Corrections)
	return nil
}
