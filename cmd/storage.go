package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/foomo/sitepress/pkg/compress"
	"github.com/foomo/sitepress/pkg/output"
	"github.com/foomo/sitepress/pkg/site"
	"github.com/foomo/sitepress/pkg/storage"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// supportedBlobSchemes lists the URL schemes supported by blob storage
var supportedBlobSchemes = []string{"gs://", "s3://", "azblob://", "file://"}

func addSiteFlags(flags *pflag.FlagSet, v *viper.Viper) {
	addEnvironmentFlag(flags, v)
	addOutputDirFlag(flags, v)
	addWorkersFlag(flags, v)
	addHistoryLimitFlag(flags, v)
	addGzipLevelFlag(flags, v)
	addBrotliLevelFlag(flags, v)
	addStorageTypeFlag(flags, v)
	addStorageBlobBucketFlag(flags, v)
	addStorageBlobPrefixFlag(flags, v)
}

// newSite wires a site building input into the configured storage
func newSite(ctx context.Context, v *viper.Viper, l *zap.Logger, input string, opts ...site.Option) (*site.Site, storage.Storage, error) {
	s, err := createStorage(ctx, v, l)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create storage: %w", err)
	}
	history := site.NewHistory(l.Named("inst.history"), s,
		site.HistoryWithHistoryLimit(historyLimitFlag(v)),
	)
	compressor := compress.New(l.Named("inst.compress"),
		compress.WithStorage(s),
		compress.WithGzipLevel(gzipLevelFlag(v)),
		compress.WithBrotliLevel(brotliLevelFlag(v)),
	)
	return site.New(l.Named("inst.site"), input, append([]site.Option{
		site.WithEnvironment(environmentFlag(v)),
		site.WithWorkers(workersFlag(v)),
		site.WithCompressor(compressor),
		site.WithHistory(history),
		site.WithOutput(output.New(l.Named("inst.output"), s)),
	}, opts...)...), s, nil
}

// createStorage creates a storage backend based on the configuration
func createStorage(ctx context.Context, v *viper.Viper, l *zap.Logger) (storage.Storage, error) {
	storageType := storageTypeFlag(v)
	blobBucket := storageBlobBucketFlag(v)
	blobPrefix := storageBlobPrefixFlag(v)

	// Warn about ignored blob config
	if storageType != "blob" && (blobBucket != "" || blobPrefix != "") {
		l.Warn("blob storage flags are set but storage-type is not 'blob'; blob config will be ignored",
			zap.String("storage-type", storageType),
			zap.String("blob-bucket", blobBucket),
			zap.String("blob-prefix", blobPrefix),
		)
	}

	l.Info("creating storage", zap.String("type", storageType))

	switch storageType {
	case "blob":
		if blobBucket == "" {
			return nil, fmt.Errorf("blob bucket URL is required when storage-type is 'blob' (supported schemes: %s)", strings.Join(supportedBlobSchemes, ", "))
		}
		if !isValidBlobScheme(blobBucket) {
			return nil, fmt.Errorf("unsupported blob storage URL scheme in %q; supported schemes: %s", blobBucket, strings.Join(supportedBlobSchemes, ", "))
		}
		l.Info("using blob storage",
			zap.String("bucket", blobBucket),
			zap.String("prefix", blobPrefix),
			zap.String("provider", detectBlobProvider(blobBucket)),
		)
		return storage.NewBlobStorage(ctx, blobBucket, blobPrefix)
	case "filesystem", "":
		dir := outputDirFlag(v)
		l.Info("using filesystem storage", zap.String("dir", dir))
		return storage.NewFilesystemStorage(dir)
	default:
		return nil, fmt.Errorf("unknown storage type: %s (supported: filesystem, blob)", storageType)
	}
}

// isValidBlobScheme checks if the bucket URL has a supported scheme
func isValidBlobScheme(bucketURL string) bool {
	for _, scheme := range supportedBlobSchemes {
		if strings.HasPrefix(bucketURL, scheme) {
			return true
		}
	}
	return false
}

// detectBlobProvider returns a human-readable provider name from the URL scheme
func detectBlobProvider(bucketURL string) string {
	switch {
	case strings.HasPrefix(bucketURL, "gs://"):
		return "Google Cloud Storage"
	case strings.HasPrefix(bucketURL, "s3://"):
		return "AWS S3"
	case strings.HasPrefix(bucketURL, "azblob://"):
		return "Azure Blob Storage"
	case strings.HasPrefix(bucketURL, "file://"):
		return "Local Filesystem"
	default:
		return "unknown"
	}
}
