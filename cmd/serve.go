package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/foomo/keel"
	"github.com/foomo/keel/healthz"
	"github.com/foomo/keel/net/http/middleware"
	"github.com/foomo/keel/service"
	"github.com/foomo/sitepress/pkg/compress"
	"github.com/foomo/sitepress/pkg/handler"
	"github.com/foomo/sitepress/pkg/output"
	"github.com/foomo/sitepress/pkg/server"
	"github.com/foomo/sitepress/pkg/site"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func NewServeCommand() *cobra.Command {
	v := newViper()
	service.DefaultHTTPPProfAddr = ":6060"

	cmd := &cobra.Command{
		Use:   "serve <input>",
		Short: "Build the site and serve it, rebuilding on request or change",
		Args:  cobra.ExactArgs(1),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 0 {
				return nil, cobra.ShellCompDirectiveFilterDirs
			}
			return cobra.AppendActiveHelp(nil, "This command does not take any more arguments"), cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			svr := keel.NewServer(
				keel.WithHTTPPrometheusService(servicePrometheusEnabledFlag(v)),
				keel.WithHTTPHealthzService(serviceHealthzEnabledFlag(v)),
				keel.WithPrometheusMeter(servicePrometheusEnabledFlag(v)),
				keel.WithGracefulPeriod(gracefulPeriodFlag(v)),
				keel.WithOTLPGRPCTracer(otelEnabledFlag(v)),
				keel.WithHTTPPProfService(servicePProfEnabledFlag(v)),
			)

			l := svr.Logger()

			var opts []site.Option
			if watchFlag(v) {
				// the output root may be the input itself
				ignore := append([]string{compress.CacheDir, site.HistoryDir}, output.Folders()...)
				opts = append(opts, site.WithWatch(watchDebounceFlag(v), ignore...))
			}
			s, st, err := newSite(cmd.Context(), v, l, args[0], opts...)
			if err != nil {
				return err
			}

			front := server.NewFront(l.Named("inst.front"), server.FrontWithErrorPath(errorPathFlag(v)))
			s.OnPublished(front.Swap)

			isLoadedHealtherFn := healthz.NewHealthzerFn(func(ctx context.Context) error {
				if !s.Loaded() {
					return errors.New("site not published yet")
				}
				return nil
			})
			// start initial build and handle error
			svr.AddStartupHealthzers(isLoadedHealtherFn)
			svr.AddReadinessHealthzers(isLoadedHealtherFn)

			svr.AddClosers(func(ctx context.Context) error {
				return st.Close()
			})

			svr.AddServices(
				service.NewGoRoutine(l.Named("go.site"), "site", func(ctx context.Context, l *zap.Logger) error {
					return s.Start(ctx)
				}),
				service.NewHTTP(l.Named("svc.http"), "http", httpAddressFlag(v),
					front.HTTP(),
					middleware.Telemetry(),
					middleware.Logger(),
					middleware.Recover(),
				),
			)

			if addr := httpsAddressFlag(v); addr != "" {
				srv, err := front.NewHTTPSServer(addr, front.HTTPS())
				if err != nil {
					return fmt.Errorf("failed to create https server: %w", err)
				}
				svr.AddServices(
					service.NewGoRoutine(l.Named("go.https"), "https", func(ctx context.Context, l *zap.Logger) error {
						return front.ServeTLS(ctx, srv)
					}),
				)
			}

			if addr := adminAddressFlag(v); addr != "" {
				svr.AddServices(
					service.NewHTTP(l.Named("svc.admin"), "admin", addr,
						handler.NewHTTP(l.Named("inst.handler"), s, handler.WithBasePath(adminBasePathFlag(v))),
						middleware.Telemetry(),
						middleware.Logger(),
						middleware.GZip(middleware.GZipWithLevel(gzipLevelFlag(v))),
						middleware.Recover(),
					),
				)
			}

			svr.Run()
			return nil
		},
	}

	flags := cmd.Flags()
	addSiteFlags(flags, v)
	addHTTPAddressFlag(flags, v)
	addHTTPSAddressFlag(flags, v)
	addAdminAddressFlag(flags, v)
	addAdminBasePathFlag(flags, v)
	addErrorPathFlag(flags, v)
	addWatchFlag(flags, v)
	addWatchDebounceFlag(flags, v)
	addGracefulPeriodFlag(flags, v)
	addOtelEnabledFlag(flags, v)
	addServiceHealthzEnabledFlag(flags, v)
	addServicePrometheusEnabledFlag(flags, v)
	addServicePProfEnabledFlag(flags, v)

	return cmd
}
