package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	appreports "github.com/bryanwahyu/dental-xray-ai/internal/application/reports"
	"github.com/bryanwahyu/dental-xray-ai/internal/bootstrap"
	"github.com/bryanwahyu/dental-xray-ai/internal/config"
	"github.com/bryanwahyu/dental-xray-ai/internal/platform/logger"
)

// ServiceFactory builds the report service from a config path. The returned
// func releases its resources.
type ServiceFactory func(ctx context.Context, configPath string) (*appreports.Service, func(), error)

// DefaultServiceFactory loads config.yaml and wires the real collaborators.
func DefaultServiceFactory(ctx context.Context, configPath string) (*appreports.Service, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger.Init("dentalctl", "development", cfg.AI.Debug)

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return app.Service, func() { _ = app.Close() }, nil
}

// errFailed signals a failed operation whose result was already printed.
var errFailed = errors.New("operation failed")

func newRootCmd(factory ServiceFactory) *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "dentalctl",
		Short:         "dentalctl - AI dental x-ray reports from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	defaultPath := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		defaultPath = v
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", defaultPath, "Path to config.yaml")

	// withService opens the service for one command and closes it afterwards.
	withService := func(run func(cmd *cobra.Command, svc *appreports.Service, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := factory(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			defer closeFn()
			return run(cmd, svc, args)
		}
	}

	testCmd := &cobra.Command{
		Use:   "test-connection",
		Short: "Send a probe message to the AI provider",
		Args:  cobra.NoArgs,
		RunE: withService(func(cmd *cobra.Command, svc *appreports.Service, _ []string) error {
			res := svc.TestConnection(cmd.Context())
			return printResult(cmd, res, res.Success)
		}),
	}

	var analyze appreports.AnalyzeCommand
	analyzeCmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze an x-ray image and store the AI report",
		Args:  cobra.NoArgs,
		RunE: withService(func(cmd *cobra.Command, svc *appreports.Service, _ []string) error {
			res := svc.Analyze(cmd.Context(), analyze)
			return printResult(cmd, res, res.Success)
		}),
	}
	analyzeCmd.Flags().StringVarP(&analyze.ImagePath, "image", "i", "", "Path to the x-ray image")
	analyzeCmd.Flags().Int64VarP(&analyze.PatientID, "patient", "p", 0, "Patient id")
	analyzeCmd.Flags().Int64VarP(&analyze.RequestDetailID, "detail", "d", 0, "Request detail (encounter) id")
	_ = analyzeCmd.MarkFlagRequired("image")
	_ = analyzeCmd.MarkFlagRequired("patient")
	_ = analyzeCmd.MarkFlagRequired("detail")

	var viewDetail int64
	viewCmd := &cobra.Command{
		Use:   "view DOCUMENT_ID",
		Short: "Show an AI report with its patient and original image",
		Args:  cobra.ExactArgs(1),
		RunE: withService(func(cmd *cobra.Command, svc *appreports.Service, args []string) error {
			docID, err := parseDocumentID(args[0])
			if err != nil {
				return err
			}
			res := svc.View(cmd.Context(), docID, viewDetail)
			return printResult(cmd, res, res.Error == "")
		}),
	}
	viewCmd.Flags().Int64VarP(&viewDetail, "detail", "d", 0, "Request detail id (default: newest match)")

	var exportDetail int64
	var outDir string
	exportCmd := &cobra.Command{
		Use:   "export DOCUMENT_ID",
		Short: "Render an AI report as an HTML file",
		Args:  cobra.ExactArgs(1),
		RunE: withService(func(cmd *cobra.Command, svc *appreports.Service, args []string) error {
			docID, err := parseDocumentID(args[0])
			if err != nil {
				return err
			}
			res := svc.Export(cmd.Context(), docID, exportDetail)
			if !res.Success {
				return printResult(cmd, res, false)
			}
			path := filepath.Join(outDir, res.Filename)
			if err := os.WriteFile(path, []byte(res.HTMLContent), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			if res.URL != "" {
				fmt.Fprintln(cmd.OutOrStdout(), res.URL)
			}
			return nil
		}),
	}
	exportCmd.Flags().Int64VarP(&exportDetail, "detail", "d", 0, "Request detail id (default: newest match)")
	exportCmd.Flags().StringVarP(&outDir, "out", "o", ".", "Directory to write the HTML file to")

	root.AddCommand(testCmd, analyzeCmd, viewCmd, exportCmd)
	return root
}

func parseDocumentID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid document id %q", raw)
	}
	return id, nil
}

func printResult(cmd *cobra.Command, v any, ok bool) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return err
	}
	if !ok {
		return errFailed
	}
	return nil
}

func main() {
	if err := newRootCmd(DefaultServiceFactory).ExecuteContext(context.Background()); err != nil {
		if !errors.Is(err, errFailed) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}
