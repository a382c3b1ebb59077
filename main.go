package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"stockroom/config"
	"stockroom/database"
	"stockroom/loader"
	"stockroom/logging"
	"stockroom/metrics"
	"stockroom/printing"
	"stockroom/render"
	"stockroom/report"
	"stockroom/units"
)

type globalFlags struct {
	configPath string
	logLevel   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:           "stockroom",
		Short:         "Inventory management for products and vendors",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup(flags)
		},
	}

	defaultConfig := os.Getenv("STOCKROOM_CONFIG")
	if defaultConfig == "" {
		defaultConfig = config.Path()
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", defaultConfig, "path to the JSON config file")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")

	root.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newReportCmd(),
		newImportCmd(),
		newPrintCmd(),
	)
	return root
}

// setup は設定の読み込み、ロガーの初期化、単位ファイルの読み込みを行います。
func setup(flags *globalFlags) error {
	config.SetPath(flags.configPath)
	cfg, cfgErr := config.LoadConfig()
	if cfgErr != nil {
		cfg = config.GetConfig()
	}
	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
	}

	logging.Setup(logging.Config{
		Level:  cfg.LogLevel,
		Pretty: isTerminal(os.Stderr.Fd()),
		File:   cfg.LogFile,
	})
	if cfgErr != nil {
		log.Warn().Err(cfgErr).Str("path", config.Path()).Msg("Failed to load config file. Using defaults.")
	}

	if cfg.UnitsFile != "" {
		enc, err := units.ParseEncoding(cfg.UnitsEncoding)
		if err != nil {
			return err
		}
		n, err := units.LoadFile(cfg.UnitsFile, enc)
		if err != nil {
			log.Warn().Err(err).Str("file", cfg.UnitsFile).Msg("Failed to load units file. Built-in units only.")
		} else {
			log.Info().Int("aliases", n).Str("file", cfg.UnitsFile).Msg("Units file loaded")
		}
	}
	return nil
}

func isTerminal(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// openDB はデータベースに接続し、スキーマを適用します。
func openDB() (*sqlx.DB, error) {
	cfg := config.GetConfig()
	db, err := database.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return nil, err
	}
	if err := database.ApplySchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func newServeCmd() *cobra.Command {
	var openInBrowser bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			rd, err := render.New()
			if err != nil {
				return err
			}

			addr := config.GetConfig().ListenAddr
			srv := &http.Server{
				Addr:              addr,
				Handler:           newServerHandler(db, rd),
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				log.Info().Str("addr", addr).Msg("Starting server")
				errCh <- srv.ListenAndServe()
			}()
			if openInBrowser {
				openBrowser(localURL(addr, "/products"))
			}

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("server error: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			log.Info().Msg("Shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().BoolVar(&openInBrowser, "open", false, "open the product list in the default browser")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()
			fmt.Fprintln(cmd.OutOrStdout(), "Schema applied.")
			return nil
		},
	}
}

func newReportCmd() *cobra.Command {
	var vendorID, out string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Write a vendor inventory report (xlsx)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			v, err := database.GetVendorByID(db, vendorID)
			if err != nil {
				return fmt.Errorf("vendor %s: %w", vendorID, err)
			}
			products, err := database.GetProductsByVendor(db, v.ID)
			if err != nil {
				return err
			}

			if out == "" {
				out = report.Filename(v.Name, "xlsx", time.Now())
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := report.WriteVendorWorkbook(f, *v, products); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			metrics.ReportsGenerated.WithLabelValues("xlsx").Inc()
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d products to %s\n", len(products), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&vendorID, "vendor", "", "vendor id")
	cmd.Flags().StringVar(&out, "out", "", "output file (default <vendor>_inventory_<date>.xlsx)")
	cmd.MarkFlagRequired("vendor")
	return cmd
}

func newImportCmd() *cobra.Command {
	var sjis bool
	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import products from CSV (vendor,name,barcode,quantity,unit)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			res, err := loader.ImportProducts(db, f, loader.Options{ShiftJIS: sjis})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Inserted: %d, Updated: %d, Skipped: %d\n", res.Inserted, res.Updated, len(res.Skipped))
			for _, s := range res.Skipped {
				fmt.Fprintf(out, "  line %d: %s\n", s.Line, s.Message)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&sjis, "sjis", false, "read the file as Shift-JIS")
	return cmd
}

func newPrintCmd() *cobra.Command {
	var (
		url, out  string
		landscape bool
		headless  bool
		timeout   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "print",
		Short: "Render a page of the running server to PDF",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.GetConfig()
			if url == "" {
				url = localURL(cfg.ListenAddr, "/products")
			}
			opts := printing.Options{
				Headless:    headless,
				BrowserPath: cfg.BrowserPath,
				Timeout:     timeout,
				Landscape:   landscape,
			}
			if err := printing.PrintPage(cmd.Context(), url, out, opts); err != nil {
				return err
			}
			metrics.ReportsGenerated.WithLabelValues("pdf").Inc()
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "page to print (default: product list of the local server)")
	cmd.Flags().StringVar(&out, "out", "products.pdf", "output PDF file")
	cmd.Flags().BoolVar(&landscape, "landscape", false, "landscape orientation")
	cmd.Flags().BoolVar(&headless, "headless", true, "run the browser without a window")
	cmd.Flags().DurationVar(&timeout, "timeout", printing.DefaultTimeout, "page load and print timeout")
	return cmd
}

// localURL はリッスンアドレスからブラウザで開く URL を作ります。
func localURL(addr, path string) string {
	if len(addr) > 0 && addr[0] == ':' {
		addr = "localhost" + addr
	}
	return "http://" + addr + path
}

func openBrowser(url string) {
	var err error
	switch runtime.GOOS {
	case "windows":
		err = exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	case "darwin":
		err = exec.Command("open", url).Start()
	default:
		err = exec.Command("xdg-open", url).Start()
	}
	if err != nil {
		log.Warn().Err(err).Msg("failed to open browser")
	}
}
