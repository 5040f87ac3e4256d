package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kenneth/homevault/internal/audit"
	"github.com/kenneth/homevault/internal/backup"
	"github.com/kenneth/homevault/internal/config"
	"github.com/kenneth/homevault/internal/crypto"
	"github.com/kenneth/homevault/internal/entity"
	"github.com/kenneth/homevault/internal/importer"
	"github.com/kenneth/homevault/internal/metrics"
	"github.com/kenneth/homevault/internal/store"
	"github.com/kenneth/homevault/internal/watch"
)

var (
	version = "dev"
	commit  = "unknown"
)

// app carries the pieces every subcommand needs, wired once in the root
// command's PersistentPreRunE.
type app struct {
	cfg     *config.Config
	logger  *logrus.Logger
	audit   audit.Logger
	metrics *metrics.Metrics
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{logger: logrus.New()}
	var configPath string

	root := &cobra.Command{
		Use:           "homevault",
		Short:         "Backup and restore for the home inventory database",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				configPath = os.Getenv("CONFIG_PATH")
			}
			if configPath == "" {
				configPath = "config.yaml"
			}
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg

			level, err := logrus.ParseLevel(cfg.LogLevel)
			if err != nil {
				level = logrus.InfoLevel
			}
			a.logger.SetLevel(level)
			if cfg.LogFormat == "json" {
				a.logger.SetFormatter(&logrus.JSONFormatter{})
			}

			if cfg.Audit.Enabled {
				a.audit = audit.NewLogger(cfg.Audit.MaxEvents, nil)
			}
			if cfg.Metrics.Enabled {
				a.metrics = metrics.NewMetrics()
			}
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")

	root.AddCommand(
		newExportCmd(a),
		newImportCmd(a),
		newInspectCmd(a),
		newWatchCmd(a),
		newVersionCmd(),
	)
	return root
}

func (a *app) openStore() (*store.BoltStore, error) {
	return store.OpenBolt(a.cfg.Store.Path)
}

// passphraseOr resolves the effective passphrase: the flag wins, then the
// configured default. Empty means plain output or interactive refusal on
// encrypted input.
func (a *app) passphraseOr(flag string) string {
	if flag != "" {
		return flag
	}
	return a.cfg.Backup.Passphrase
}

func newExportCmd(a *app) *cobra.Command {
	var (
		output     string
		passphrase string
		envVersion string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the full dataset to a backup file",
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			pass := a.passphraseOr(passphrase)
			selected := envVersion
			if selected == "" {
				selected = a.cfg.Backup.CipherVersion
			}
			cv, err := crypto.ParseVersion(selected)
			if err != nil {
				return err
			}

			opts := backup.ExportOptions{
				AppVersion:    version,
				Passphrase:    pass,
				CipherVersion: cv,
			}
			if a.metrics != nil {
				opts.Observer = a.metrics
			}
			raw, err := backup.Export(cmd.Context(), st, opts)
			if err != nil {
				if a.audit != nil {
					a.audit.LogExport(output, pass != "", 0, err, time.Since(start))
				}
				return err
			}

			encrypted := pass != ""
			if output == "" {
				name := "homevault-" + time.Now().UTC().Format("20060102-150405") + backup.Extension(encrypted)
				output = filepath.Join(a.cfg.Backup.Dir, name)
			}
			if err := os.MkdirAll(filepath.Dir(output), 0o700); err != nil {
				return err
			}
			if err := os.WriteFile(output, []byte(raw), 0o600); err != nil {
				return err
			}

			file, err := backup.Decode(raw, pass)
			records := 0
			if err == nil {
				records = file.Data.TotalRecords()
			}
			if a.audit != nil {
				a.audit.LogExport(output, encrypted, records, nil, time.Since(start))
			}
			if a.metrics != nil {
				a.metrics.ObserveExport(time.Since(start), encrypted)
			}

			a.logger.WithFields(logrus.Fields{
				"file":      output,
				"encrypted": encrypted,
				"records":   records,
			}).Info("export finished")
			fmt.Fprintln(cmd.OutOrStdout(), output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: timestamped file in the backup dir)")
	cmd.Flags().StringVarP(&passphrase, "passphrase", "p", "", "encrypt the backup with this passphrase")
	cmd.Flags().StringVar(&envVersion, "cipher-version", "", "envelope version for encrypted exports (2 or 3)")
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	var (
		passphrase string
		dryRun     bool
	)

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Merge a backup file into the local database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			var target store.Store = st
			if dryRun {
				// All writes go to a throwaway copy of the database.
				snap, err := store.Snapshot(cmd.Context(), st)
				if err != nil {
					return err
				}
				target = snap
			}

			pass := a.passphraseOr(passphrase)
			imp := importer.New(target, a.logger)
			if a.metrics != nil && !dryRun {
				imp.WithMetrics(a.metrics)
			}

			file, result, err := imp.Import(cmd.Context(), string(raw), pass)
			if err != nil {
				if a.audit != nil && !dryRun {
					a.audit.LogImport(audit.EventTypeImport, args[0],
						backup.SniffEncrypted(string(raw)), 0, 0, 0, err, time.Since(start))
				}
				return err
			}

			skipped := 0
			for _, n := range result.Skipped {
				skipped += n
			}
			if a.audit != nil && !dryRun {
				a.audit.LogImport(audit.EventTypeImport, args[0],
					backup.SniffEncrypted(string(raw)),
					result.TotalCreated(), skipped, len(result.Errors), nil, time.Since(start))
			}

			out := cmd.OutOrStdout()
			if dryRun {
				fmt.Fprintln(out, "dry run, no changes written")
			}
			fmt.Fprintf(out, "schema %d, exported by version %s\n",
				file.Manifest.SchemaVersion, file.Manifest.AppVersion)
			for _, kind := range entity.ImportOrder {
				created := result.Created[kind]
				skippedKind := result.Skipped[kind]
				if created == 0 && skippedKind == 0 {
					continue
				}
				fmt.Fprintf(out, "  %-20s created %d", kind, created)
				if skippedKind > 0 {
					fmt.Fprintf(out, ", skipped %d duplicates", skippedKind)
				}
				fmt.Fprintln(out)
			}
			fmt.Fprintf(out, "total: %d created, %d skipped, %d remapped\n",
				result.TotalCreated(), skipped, result.Remapped)
			for _, recErr := range result.Errors {
				fmt.Fprintf(out, "failed: %s\n", recErr.String())
			}
			if len(result.Errors) > 0 {
				return fmt.Errorf("%d records failed to import", len(result.Errors))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&passphrase, "passphrase", "p", "", "passphrase for encrypted backups")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "preview the merge without writing to the database")
	return cmd
}

func newInspectCmd(a *app) *cobra.Command {
	var passphrase string

	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Show the manifest of a backup file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			file, err := backup.Decode(string(raw), a.passphraseOr(passphrase))
			if err != nil {
				return err
			}

			encrypted := backup.SniffEncrypted(string(raw))
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "encrypted:      %v\n", encrypted)
			fmt.Fprintf(out, "content type:   %s\n", backup.MIMEType(encrypted))
			fmt.Fprintf(out, "schema version: %d\n", file.Manifest.SchemaVersion)
			fmt.Fprintf(out, "app version:    %s\n", file.Manifest.AppVersion)
			fmt.Fprintf(out, "created at:     %s\n", file.Manifest.CreatedAt.Format(time.RFC3339))
			fmt.Fprintf(out, "records:        %d\n", file.Data.TotalRecords())
			for _, kind := range entity.ImportOrder {
				if n := file.Manifest.Stats[kind]; n > 0 {
					fmt.Fprintf(out, "  %-20s %d\n", kind, n)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&passphrase, "passphrase", "p", "", "passphrase for encrypted backups")
	return cmd
}

func newWatchCmd(a *app) *cobra.Command {
	var (
		dir        string
		passphrase string
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Import backup files automatically as they appear in a directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir == "" {
				dir = a.cfg.Watch.Dir
			}
			if dir == "" {
				return fmt.Errorf("no watch directory given (set --dir or watch.dir)")
			}

			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			imp := importer.New(st, a.logger)
			if a.metrics != nil {
				imp.WithMetrics(a.metrics)
			}
			w := watch.New(imp, watch.Options{
				Dir:        dir,
				Passphrase: a.passphraseOr(passphrase),
				Debounce:   a.cfg.Watch.Debounce,
				Logger:     a.logger,
				Audit:      a.audit,
				Metrics:    a.metrics,
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			// The watcher is the only long-running mode, so the metrics
			// endpoint lives here.
			if a.metrics != nil {
				a.metrics.StartSystemMetricsCollector()
				mux := http.NewServeMux()
				mux.Handle("/metrics", a.metrics.Handler())
				go func() {
					if err := http.ListenAndServe(a.cfg.Metrics.ListenAddr, mux); err != nil {
						a.logger.WithError(err).Error("metrics endpoint failed")
					}
				}()
				a.logger.WithField("addr", a.cfg.Metrics.ListenAddr).Info("metrics endpoint listening")
			}

			if err := w.Run(ctx); err != nil && ctx.Err() == nil {
				return err
			}
			a.logger.Info("watcher stopped")
			return nil
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", "", "directory to watch")
	cmd.Flags().StringVarP(&passphrase, "passphrase", "p", "", "passphrase for encrypted backups")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		// No config needed to print a version string.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "homevault %s (%s)\n", version, commit)
		},
	}
}
