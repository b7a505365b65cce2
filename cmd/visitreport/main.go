// Package main provides the CLI entry point for visitreport.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/ukaji3/visitreport-go/internal/config"
	"github.com/ukaji3/visitreport-go/internal/logging"
	"github.com/ukaji3/visitreport-go/pkg/visitreport"
	"github.com/ukaji3/visitreport-go/pkg/visitreport/docx"
	"github.com/ukaji3/visitreport-go/pkg/visitreport/preview"
	"github.com/ukaji3/visitreport-go/pkg/visitreport/server"
)

var (
	pageSize    int
	layout      string
	timeZone    string
	generatedAt bool
	logLevel    string

	outputDir     string
	outputPath    string
	previewFormat string
	rawRows       int
	addr          string

	cfg *config.Config
	log zerolog.Logger
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "visitreport",
		Short: "Build patient visit reports from spreadsheets",
		Long: `visitreport reads a spreadsheet of patient visits (xlsx or csv), lays the
rows out as a paginated report and exports it as a Word document.`,
	}
	rootCmd.SilenceUsage = true
	rootCmd.PersistentPreRunE = setup

	flags := rootCmd.PersistentFlags()
	flags.IntVar(&pageSize, "page-size", 0, "Records per page (default from VISITREPORT_PAGE_SIZE or 5)")
	flags.StringVar(&layout, "layout", "", "Report layout: records or table")
	flags.StringVar(&timeZone, "tz", "", "Time zone for spreadsheet dates (default Local)")
	flags.BoolVar(&generatedAt, "generated-at", false, "Add a \"Generated on\" line under the title")
	flags.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")

	exportCmd := &cobra.Command{
		Use:   "export [input]",
		Short: "Export a spreadsheet as a Word report",
		Args:  cobra.ExactArgs(1),
		RunE:  runExport,
	}
	exportCmd.Flags().StringVarP(&outputDir, "output", "o", "", "Output directory (default from VISITREPORT_OUTPUT_DIR)")

	previewCmd := &cobra.Command{
		Use:   "preview [input]",
		Short: "Render the report preview as Markdown or HTML",
		Args:  cobra.ExactArgs(1),
		RunE:  runPreview,
	}
	previewCmd.Flags().StringVar(&previewFormat, "format", "md", "Preview format: md or html")
	previewCmd.Flags().IntVar(&rawRows, "raw", 0, "Show the first N raw spreadsheet rows instead of the report")
	previewCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file path (default: stdout)")

	serveCmd := &cobra.Command{
		Use:   "serve [input]",
		Short: "Serve an interactive preview over HTTP",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runServe,
	}
	serveCmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from VISITREPORT_ADDR or :8080)")

	rootCmd.AddCommand(exportCmd, previewCmd, serveCmd)
	return rootCmd
}

// setup loads the configuration, applies flag overrides and builds the logger.
func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return err
	}
	if err := applyFlags(cmd.Flags(), cfg); err != nil {
		return err
	}

	log, err = logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	return err
}

// applyFlags overrides cfg with the flags set on the command line and
// validates the result. Unset flags keep the environment values.
func applyFlags(flags *pflag.FlagSet, cfg *config.Config) error {
	if flags.Changed("page-size") {
		cfg.Report.PageSize = pageSize
	}
	if flags.Changed("layout") {
		l, err := config.ParseLayout(layout)
		if err != nil {
			return err
		}
		cfg.Report.Layout = l
	}
	if flags.Changed("tz") {
		cfg.Report.TimeZone = timeZone
	}
	if flags.Changed("generated-at") {
		cfg.Report.GeneratedAt = generatedAt
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	return cfg.Validate()
}

func newSession() (*visitreport.Session, error) {
	opts, err := cfg.Options()
	if err != nil {
		return nil, err
	}
	return visitreport.NewSession(opts, docx.New(), log)
}

func runExport(cmd *cobra.Command, args []string) error {
	session, err := newSession()
	if err != nil {
		return err
	}
	if err := session.Import(args[0]); err != nil {
		return err
	}

	dir := outputDir
	if dir == "" {
		dir = cfg.Report.OutputDir
	}
	path, err := session.Export(cmd.Context(), dir)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}

func runPreview(cmd *cobra.Command, args []string) error {
	format, err := preview.ParseFormat(previewFormat)
	if err != nil {
		return err
	}

	session, err := newSession()
	if err != nil {
		return err
	}
	if err := session.Import(args[0]); err != nil {
		return err
	}

	var out []byte
	if rawRows > 0 {
		table, err := session.Table()
		if err != nil {
			return err
		}
		out = preview.RawRows(table, rawRows)
		if format == preview.FormatHTML {
			out = preview.MarkdownToHTML(out)
		}
	} else {
		out, err = session.Preview(format)
		if err != nil {
			return err
		}
	}

	if outputPath != "" {
		if err := os.WriteFile(outputPath, out, 0644); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}

func runServe(cmd *cobra.Command, args []string) error {
	gin.SetMode(cfg.Server.GinMode)

	session, err := newSession()
	if err != nil {
		return err
	}
	if len(args) == 1 {
		if err := session.Import(args[0]); err != nil {
			return err
		}
	}

	listen := addr
	if listen == "" {
		listen = cfg.Server.Addr
	}
	return server.New(session, log).Run(cmd.Context(), listen)
}
