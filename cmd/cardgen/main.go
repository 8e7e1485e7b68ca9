package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/jo-hoe/takziah/internal/backend/card"
	"github.com/jo-hoe/takziah/internal/core"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "cardgen",
		Short:         "Render condolence cards and check the persistence backend",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newRenderCmd(), newCheckCmd())
	return root
}

type renderOptions struct {
	photo      string
	out        string
	arabicFont string
	svgSize    int
	form       card.RawForm
}

func newRenderCmd() *cobra.Command {
	opts := &renderOptions{}
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a card to a PNG file without storing it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd.OutOrStdout(), opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.photo, "photo", "", "path of the photo (JPEG, PNG, GIF, WebP or SVG)")
	flags.StringVar(&opts.form.FullName, "name", "", "full name of the deceased")
	flags.StringVar(&opts.form.DateOfBirth, "birth", "", "date of birth (YYYY-MM-DD)")
	flags.StringVar(&opts.form.DateOfDeath, "death", "", "date of death (YYYY-MM-DD)")
	flags.StringVar(&opts.form.Age, "age", "", "age at death")
	flags.StringVar(&opts.form.PlaceOfDeath, "place", "", "place of death")
	flags.StringVar(&opts.form.CustomMessage, "message", "", "message below the rule, defaults to the standard prayer")
	flags.StringVar(&opts.out, "out", "", "output file, defaults to condolence-{name}.png")
	flags.StringVar(&opts.arabicFont, "arabic-font", "", "font file for the Arabic invocation, replaces the embedded Amiri font")
	flags.IntVar(&opts.svgSize, "svg-size", 512, "raster size of SVG photos without explicit dimensions")
	_ = cmd.MarkFlagRequired("photo")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func runRender(w io.Writer, opts *renderOptions) error {
	photo, err := os.ReadFile(opts.photo)
	if err != nil {
		return fmt.Errorf("failed to read photo: %w", err)
	}
	form, err := card.ParseFormInput(opts.form)
	if err != nil {
		return err
	}
	fonts, err := card.LoadFontSet(opts.arabicFont)
	if err != nil {
		return err
	}

	out, err := card.NewRenderer(fonts, opts.svgSize, opts.svgSize).Render(photo, form)
	if err != nil {
		return err
	}

	path := opts.out
	if path == "" {
		path = card.DownloadName(form.FullName)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("failed to write card: %w", err)
	}
	_, err = fmt.Fprintf(w, "wrote %s (%d bytes)\n", path, len(out))
	return err
}

func newCheckCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Test the database connection, a read and the storage access",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.Context(), cmd.OutOrStdout(), configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "config.yaml", "path of the service configuration")
	return cmd
}

func runCheck(ctx context.Context, w io.Writer, configPath string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("cardgen: failed to load .env file", "error", err)
	}
	config, err := core.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	service, err := core.NewCoreService(ctx, config)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := service.Close(); cerr != nil {
			slog.Error("cardgen: failed to close core service", "error", cerr)
		}
	}()

	report := service.Health(ctx)
	for _, check := range report.Checks {
		line := fmt.Sprintf("%-20s %s", check.Name, check.Status)
		if check.Details != "" {
			line += ": " + check.Details
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	if !report.OK() {
		return errors.New("connection test failed")
	}
	return nil
}
