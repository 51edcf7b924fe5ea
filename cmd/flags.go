package cmd

import (
	"runtime"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func logLevelFlag(v *viper.Viper) string {
	return v.GetString("log.level")
}

func addLogLevelFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.String("log-level", "info", "log level")
	_ = v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = v.BindEnv("log.level", "LOG_LEVEL")
}

func logFormatFlag(v *viper.Viper) string {
	return v.GetString("log.format")
}

func addLogFormatFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.String("log-format", "json", "log format")
	_ = v.BindPFlag("log.format", flags.Lookup("log-format"))
	_ = v.BindEnv("log.format", "LOG_FORMAT")
}

func environmentFlag(v *viper.Viper) string {
	return v.GetString("environment")
}

func addEnvironmentFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.String("environment", "", "Environment folder whose public and private overlays are merged into the configuration")
	_ = v.BindPFlag("environment", flags.Lookup("environment"))
	_ = v.BindEnv("environment", "SITEPRESS_ENVIRONMENT")
}

func outputDirFlag(v *viper.Viper) string {
	return v.GetString("output.dir")
}

func addOutputDirFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.String("output-dir", "/var/lib/sitepress", "Output root for the written site, the compression cache and build manifests")
	_ = v.BindPFlag("output.dir", flags.Lookup("output-dir"))
	_ = v.BindEnv("output.dir", "SITEPRESS_OUTPUT_DIR")
}

func workersFlag(v *viper.Viper) int {
	return v.GetInt("workers")
}

func addWorkersFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.Int("workers", runtime.NumCPU(), "Number of resources built concurrently")
	_ = v.BindPFlag("workers", flags.Lookup("workers"))
	_ = v.BindEnv("workers", "SITEPRESS_WORKERS")
}

func historyLimitFlag(v *viper.Viper) int {
	return v.GetInt("history.limit")
}

func addHistoryLimitFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.Int("history-limit", 2, "Number of build manifests to keep")
	_ = v.BindPFlag("history.limit", flags.Lookup("history-limit"))
	_ = v.BindEnv("history.limit", "SITEPRESS_HISTORY_LIMIT")
}

func gzipLevelFlag(v *viper.Viper) int {
	return v.GetInt("gzip.level")
}

func addGzipLevelFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.Int("gzip-level", gzip.BestCompression, "Gzip level of pre compressed bodies")
	_ = v.BindPFlag("gzip.level", flags.Lookup("gzip-level"))
	_ = v.BindEnv("gzip.level", "SITEPRESS_GZIP_LEVEL")
}

func brotliLevelFlag(v *viper.Viper) int {
	return v.GetInt("brotli.level")
}

func addBrotliLevelFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.Int("brotli-level", 11, "Brotli level of pre compressed bodies")
	_ = v.BindPFlag("brotli.level", flags.Lookup("brotli-level"))
	_ = v.BindEnv("brotli.level", "SITEPRESS_BROTLI_LEVEL")
}

func httpAddressFlag(v *viper.Viper) string {
	return v.GetString("http.address")
}

func addHTTPAddressFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.String("http-address", ":8080", "Plain http address to bind to (host:port)")
	_ = v.BindPFlag("http.address", flags.Lookup("http-address"))
	_ = v.BindEnv("http.address", "SITEPRESS_HTTP_ADDRESS")
}

func httpsAddressFlag(v *viper.Viper) string {
	return v.GetString("https.address")
}

func addHTTPSAddressFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.String("https-address", ":8443", "Https address to bind to (host:port), empty to disable")
	_ = v.BindPFlag("https.address", flags.Lookup("https-address"))
	_ = v.BindEnv("https.address", "SITEPRESS_HTTPS_ADDRESS")
}

func adminAddressFlag(v *viper.Viper) string {
	return v.GetString("admin.address")
}

func addAdminAddressFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.String("admin-address", "127.0.0.1:8081", "Admin api address to bind to (host:port), empty to disable")
	_ = v.BindPFlag("admin.address", flags.Lookup("admin-address"))
	_ = v.BindEnv("admin.address", "SITEPRESS_ADMIN_ADDRESS")
}

func adminBasePathFlag(v *viper.Viper) string {
	return v.GetString("admin.base_path")
}

func addAdminBasePathFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.String("admin-base-path", "/sitepress", "Base path of the admin api")
	_ = v.BindPFlag("admin.base_path", flags.Lookup("admin-base-path"))
	_ = v.BindEnv("admin.base_path", "SITEPRESS_ADMIN_BASE_PATH")
}

func errorPathFlag(v *viper.Viper) string {
	return v.GetString("error_path")
}

func addErrorPathFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.String("error-path", "/404.html", "Site relative path of the not found page of each language")
	_ = v.BindPFlag("error_path", flags.Lookup("error-path"))
	_ = v.BindEnv("error_path", "SITEPRESS_ERROR_PATH")
}

func watchFlag(v *viper.Viper) bool {
	return v.GetBool("watch.enabled")
}

func addWatchFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.Bool("watch", false, "Rebuild whenever the input changes")
	_ = v.BindPFlag("watch.enabled", flags.Lookup("watch"))
	_ = v.BindEnv("watch.enabled", "SITEPRESS_WATCH")
}

func watchDebounceFlag(v *viper.Viper) time.Duration {
	return v.GetDuration("watch.debounce")
}

func addWatchDebounceFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.Duration("watch-debounce", 300*time.Millisecond, "Quiet period before a change triggers a rebuild")
	_ = v.BindPFlag("watch.debounce", flags.Lookup("watch-debounce"))
	_ = v.BindEnv("watch.debounce", "SITEPRESS_WATCH_DEBOUNCE")
}

func storageTypeFlag(v *viper.Viper) string {
	return v.GetString("storage.type")
}

func addStorageTypeFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.String("storage-type", "filesystem", "Output storage backend: filesystem or blob")
	_ = v.BindPFlag("storage.type", flags.Lookup("storage-type"))
	_ = v.BindEnv("storage.type", "SITEPRESS_STORAGE_TYPE")
}

func storageBlobBucketFlag(v *viper.Viper) string {
	return v.GetString("storage.blob.bucket")
}

func addStorageBlobBucketFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.String("storage-blob-bucket", "", "Blob bucket url, e.g. gs://bucket, s3://bucket or azblob://container")
	_ = v.BindPFlag("storage.blob.bucket", flags.Lookup("storage-blob-bucket"))
	_ = v.BindEnv("storage.blob.bucket", "SITEPRESS_STORAGE_BLOB_BUCKET")
}

func storageBlobPrefixFlag(v *viper.Viper) string {
	return v.GetString("storage.blob.prefix")
}

func addStorageBlobPrefixFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.String("storage-blob-prefix", "", "Key prefix inside the blob bucket")
	_ = v.BindPFlag("storage.blob.prefix", flags.Lookup("storage-blob-prefix"))
	_ = v.BindEnv("storage.blob.prefix", "SITEPRESS_STORAGE_BLOB_PREFIX")
}

func gracefulPeriodFlag(v *viper.Viper) time.Duration {
	return v.GetDuration("graceful_period")
}

func addGracefulPeriodFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.Duration("graceful-period", 0, "Graceful period before shutdown")
	_ = v.BindPFlag("graceful_period", flags.Lookup("graceful-period"))
	_ = v.BindEnv("graceful_period", "SITEPRESS_GRACEFUL_PERIOD")
}

func serviceHealthzEnabledFlag(v *viper.Viper) bool {
	return v.GetBool("service.healthz.enabled")
}

func addServiceHealthzEnabledFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.Bool("service-healthz-enabled", false, "Enable healthz service")
	_ = v.BindPFlag("service.healthz.enabled", flags.Lookup("service-healthz-enabled"))
}

func servicePrometheusEnabledFlag(v *viper.Viper) bool {
	return v.GetBool("service.prometheus.enabled")
}

func addServicePrometheusEnabledFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.Bool("service-prometheus-enabled", false, "Enable prometheus service")
	_ = v.BindPFlag("service.prometheus.enabled", flags.Lookup("service-prometheus-enabled"))
}

func servicePProfEnabledFlag(v *viper.Viper) bool {
	return v.GetBool("service.pprof.enabled")
}

func addServicePProfEnabledFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.Bool("service-pprof-enabled", false, "Enable pprof service")
	_ = v.BindPFlag("service.pprof.enabled", flags.Lookup("service-pprof-enabled"))
}

func otelEnabledFlag(v *viper.Viper) bool {
	return v.GetBool("otel.enabled")
}

func addOtelEnabledFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.Bool("otel-enabled", false, "Enable otel service")
	_ = v.BindPFlag("otel.enabled", flags.Lookup("otel-enabled"))
	_ = v.BindEnv("otel.enabled", "OTEL_ENABLED")
}
