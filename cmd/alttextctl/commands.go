package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/user/alttext-service/internal/app"
	"github.com/user/alttext-service/internal/entity"
	"github.com/user/alttext-service/internal/usecase"
	"github.com/user/alttext-service/pkg/config"
	"github.com/user/alttext-service/pkg/logger"
)

const passwordEnv = "BSKY_APP_PASSWORD"

var errNoPassword = errors.New("app password required: pass --password or set " + passwordEnv)

type options struct {
	handle   string
	password string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:          "alttextctl",
		Short:        "Scan Bluesky image posts for missing alt-text and apply reviewed descriptions",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.handle, "handle", "", "account handle, e.g. alice.bsky.social")
	rootCmd.PersistentFlags().StringVar(&opts.password, "password", "", "app password (default $"+passwordEnv+")")

	rootCmd.AddCommand(
		newServeCmd(),
		newScanCmd(opts),
		newApplyCmd(opts),
		newImagesCmd(opts),
	)
	return rootCmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return withApp(ctx, func(a *app.App) error {
				return a.Serve(ctx)
			})
		},
	}
}

func newScanCmd(opts *options) *cobra.Command {
	var noGenerate bool
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan the feed and record which images need alt-text",
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := opts.credential()
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(a *app.App) error {
				result, err := a.Scanner.Scan(cmd.Context(), usecase.ScanRequest{
					Handle:     opts.handle,
					Credential: password,
					Generate:   !noGenerate,
				})
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), result)
			})
		},
	}
	cmd.Flags().BoolVar(&noGenerate, "no-generate", false, "skip alt-text generation")
	return cmd
}

func newApplyCmd(opts *options) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Write reviewed alt-text edits from a JSON file back to the posts",
		RunE: func(cmd *cobra.Command, args []string) error {
			edits, err := readEdits(file)
			if err != nil {
				return err
			}
			password, err := opts.credential()
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(a *app.App) error {
				results, err := a.Applier.Apply(cmd.Context(), usecase.ApplyRequest{
					Handle:     opts.handle,
					Credential: password,
					Edits:      edits,
				})
				if results != nil {
					if perr := printJSON(cmd.OutOrStdout(), results); perr != nil {
						return perr
					}
				}
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON array of {uri, image_index, new_alt} (\"-\" for stdin)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newImagesCmd(opts *options) *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "images",
		Short: "List tracked images from the ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app.App) error {
				images, err := a.Tracker.ListImages(cmd.Context(), opts.handle, entity.ImageStatus(status))
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), images)
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "only images with this status (scanned, applied, failed)")
	return cmd
}

func (o *options) credential() (string, error) {
	if o.password != "" {
		return o.password, nil
	}
	if p := os.Getenv(passwordEnv); p != "" {
		return p, nil
	}
	return "", errNoPassword
}

// withApp loads configuration, builds the service and closes it after fn returns.
func withApp(ctx context.Context, fn func(a *app.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	zlog, err := logger.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer zlog.Sync()

	a, err := app.New(ctx, cfg, zlog)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			zlog.Warn("close failed", zap.Error(cerr))
		}
	}()
	return fn(a)
}

func readEdits(path string) ([]entity.AltEdit, error) {
	var r io.Reader
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open edits file: %w", err)
		}
		defer f.Close()
		r = f
	}

	var edits []entity.AltEdit
	if err := json.NewDecoder(r).Decode(&edits); err != nil {
		return nil, fmt.Errorf("decode edits file: %w", err)
	}
	return edits, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
