package main

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"taskzen/internal/service"
	"taskzen/internal/storage/sqlite"
)

type exportOptions struct {
	userID    string
	projectID string
	format    string
	output    string
}

func newExportCmd(root *rootOptions) *cobra.Command {
	opts := &exportOptions{}
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a project board from the database",
		Long: `Export writes a snapshot of one board (project, columns and tasks) as
YAML or JSON. It opens the database directly, so the server must not be
running against the same file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, root, opts)
		},
	}
	cmd.Flags().StringVar(&opts.userID, "user", "", "Owner user id (required)")
	cmd.Flags().StringVar(&opts.projectID, "project", "", "Project id (required)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "yaml", "Output format: yaml|json")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Output file (default stdout)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

func runExport(cmd *cobra.Command, root *rootOptions, opts *exportOptions) error {
	cfg, err := root.load(cmd, nil)
	if err != nil {
		return err
	}
	format, err := service.ExportFormat(opts.format)
	if err != nil {
		return err
	}

	logger := cfg.NewLogger(cmd.ErrOrStderr())
	store, err := sqlite.Open(cfg.DB.Driver, cfg.DB.Path, logger)
	if err != nil {
		return fmt.Errorf("unable to open database: %w", err)
	}
	defer store.Close()

	svc := service.New(service.Options{Store: store, Logger: logger})
	board, err := svc.Export(cmd.Context(), opts.userID, opts.projectID)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := service.WriteExport(&buf, board, format); err != nil {
		return err
	}
	if opts.output == "" {
		_, err := io.Copy(cmd.OutOrStdout(), &buf)
		return err
	}
	if err := os.WriteFile(opts.output, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", opts.output, err)
	}
	logger.Info("board exported",
		slog.String("project", board.Project.Name),
		slog.Int("tasks", len(board.Tasks)),
		slog.String("size", humanize.Bytes(uint64(buf.Len()))),
		slog.String("file", opts.output))
	return nil
}
