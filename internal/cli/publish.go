package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"

	"github.com/apresai/shortsmith/internal/artifacts"
	"github.com/apresai/shortsmith/internal/plan"
)

var (
	flagPublishBucket  string
	flagPublishPrefix  string
	flagPublishBaseURL string
	flagPublishRegion  string
)

var publishCmd = &cobra.Command{
	Use:   "publish <result.json|dir>",
	Short: "Upload a generated plan and its assets to S3",
	Long: "Uploads a plan JSON together with its -assets directory, or every file in a directory. " +
		"Objects are keyed under <prefix>/<run id>/ so bundles never overwrite each other.",
	Args: cobra.ExactArgs(1),
	RunE: runPublish,
}

func init() {
	rootCmd.AddCommand(publishCmd)
	publishCmd.Flags().StringVar(&flagPublishBucket, "bucket", os.Getenv("S3_BUCKET"), "Destination bucket (default $S3_BUCKET)")
	publishCmd.Flags().StringVar(&flagPublishPrefix, "prefix", "bundles", "Key prefix")
	publishCmd.Flags().StringVar(&flagPublishBaseURL, "base-url", os.Getenv("CDN_BASE_URL"), "Public base URL for printed links (default $CDN_BASE_URL)")
	publishCmd.Flags().StringVar(&flagPublishRegion, "region", "", "AWS region (default from AWS config)")
}

func runPublish(cmd *cobra.Command, args []string) error {
	if flagPublishBucket == "" {
		return fmt.Errorf("--bucket is required (or set S3_BUCKET)")
	}

	var opts []func(*awsconfig.LoadOptions) error
	if flagPublishRegion != "" {
		opts = append(opts, awsconfig.WithRegion(flagPublishRegion))
	}
	cfg, err := awsconfig.LoadDefaultConfig(cmd.Context(), opts...)
	if err != nil {
		return fmt.Errorf("load aws config: %w", err)
	}

	store := artifacts.New(s3.NewFromConfig(cfg), flagPublishBucket, flagPublishBaseURL)
	objs, err := publishBundle(cmd.Context(), store, args[0], flagPublishPrefix)
	printPublished(cmd.OutOrStdout(), objs)
	return err
}

type bundleStore interface {
	PutFile(ctx context.Context, key, p string) (artifacts.Object, error)
	PublishDir(ctx context.Context, prefix, dir string) ([]artifacts.Object, error)
}

// publishBundle uploads target, which is either a plan JSON (plus its sibling
// assets directory when present) or a directory of files.
func publishBundle(ctx context.Context, store bundleStore, target, prefix string) ([]artifacts.Object, error) {
	info, err := os.Stat(target)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return store.PublishDir(ctx, path.Join(prefix, filepath.Base(filepath.Clean(target))), target)
	}

	res, err := plan.LoadResult(target)
	if err != nil {
		return nil, err
	}
	id := res.RunID
	if id == "" {
		id = strings.TrimSuffix(filepath.Base(target), filepath.Ext(target))
	}
	bundle := path.Join(prefix, id)

	obj, err := store.PutFile(ctx, path.Join(bundle, "plan.json"), target)
	if err != nil {
		return nil, err
	}
	objs := []artifacts.Object{obj}

	dir := assetsDir(target)
	if st, err := os.Stat(dir); err == nil && st.IsDir() {
		more, err := store.PublishDir(ctx, path.Join(bundle, "assets"), dir)
		objs = append(objs, more...)
		if err != nil {
			return objs, err
		}
	}
	return objs, nil
}

func printPublished(w io.Writer, objs []artifacts.Object) {
	for _, o := range objs {
		fmt.Fprintf(w, "  %-48s %8d  %s\n", o.Key, o.Size, o.URL)
	}
	if len(objs) > 0 {
		fmt.Fprintf(w, "\n  Published %d file(s)\n", len(objs))
	}
}
