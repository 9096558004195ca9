package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pavelanni/memorylane/internal/content"
	appI18n "github.com/pavelanni/memorylane/internal/i18n"
	"github.com/pavelanni/memorylane/internal/model"
	"github.com/pavelanni/memorylane/internal/store"
	"github.com/pavelanni/memorylane/internal/tui"
)

func playCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play the quiz in the terminal",
		RunE:  runPlay,
	}
	f := cmd.Flags()
	f.String("db", "", "SQLite database to read content from (empty reads --content directly)")
	f.StringP("content", "c", "", "Content file (YAML or JSON); empty uses the built-in content")
	f.Duration("loading-fallback", 3*time.Second, "How long the loading screen stays up")
	f.Bool("no-color", false, "Disable colors")
	addEvasiveFlags(f, tui.TerminalParams())
	// Logs would draw over the UI.
	addCommonFlags(f, "error")
	return cmd
}

func runPlay(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	var c model.Content
	if dbPath := v.GetString("db"); dbPath != "" {
		db, stored, err := openContent(dbPath, v.GetString("content"))
		if err != nil {
			return err
		}
		db.Close()
		c = stored
	} else {
		loaded, err := content.Load(v.GetString("content"))
		if err != nil {
			return fmt.Errorf("load content: %w", err)
		}
		c = loaded
	}

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return tui.Run(ctx, c, tui.Options{
		Lang:        lang,
		NoColor:     v.GetBool("no-color"),
		LoadingTime: v.GetDuration("loading-fallback"),
		Evasive:     evasiveParams(v),
	})
}

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import a content file into the database",
		Args:  cobra.ExactArgs(1),
		RunE:  runImport,
	}
	f := cmd.Flags()
	f.String("db", "memorylane.db", "SQLite database path")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	changed, err := content.ImportFile(db, args[0])
	if err != nil {
		return fmt.Errorf("import content: %w", err)
	}
	if !changed {
		slog.Info("nothing to do", "path", args[0])
	}
	return nil
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the stored content as YAML or JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "memorylane.db", "SQLite database path")
	f.StringP("format", "f", "yaml", "Output format (yaml, json)")
	f.Bool("content-only", false, "Write only the content document, ready for re-import")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	export, err := db.ExportContent()
	if err != nil {
		return fmt.Errorf("export content: %w", err)
	}
	var doc any = export
	if v.GetBool("content-only") {
		doc = export.Content
	}

	var data []byte
	switch format := strings.ToLower(v.GetString("format")); format {
	case "yaml", "yml":
		data, err = content.Marshal(doc)
	case "json":
		data, err = json.MarshalIndent(doc, "", "  ")
		data = append(data, '\n')
	default:
		return fmt.Errorf("unknown format %q (want yaml or json)", format)
	}
	if err != nil {
		return fmt.Errorf("marshal %s: %w", v.GetString("format"), err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
