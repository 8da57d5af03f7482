// SPDX-FileCopyrightText: containeredge contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package app assembles the cobra command that runs the controller,
// matching the teacher's cmd/dnsman2/app command style.
package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	apiextensionsclient "k8s.io/apiextensions-apiserver/pkg/client/clientset/clientset"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/dynamic/dynamicinformer"
	"k8s.io/client-go/informers"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	_ "go.uber.org/automaxprocs"

	"github.com/containeredge/ddns-controller/internal/bootstrap"
	"github.com/containeredge/ddns-controller/internal/clusterwatch"
	"github.com/containeredge/ddns-controller/internal/controller"
	"github.com/containeredge/ddns-controller/internal/dnsprovider/cloudflare"
	"github.com/containeredge/ddns-controller/internal/errorpolicy"
	"github.com/containeredge/ddns-controller/internal/logging"
	"github.com/containeredge/ddns-controller/internal/metrics"
	"github.com/containeredge/ddns-controller/internal/reconciler"
	"github.com/containeredge/ddns-controller/internal/retryqueue"
	"github.com/containeredge/ddns-controller/internal/serialiser"
	"github.com/containeredge/ddns-controller/internal/tracing"
	"github.com/containeredge/ddns-controller/internal/trigger"
)

// resyncPeriod is how often every informer replays its full local cache;
// replayed objects are delivered as update (Applied) events.
const resyncPeriod = 10 * time.Minute

// options holds the flags accepted by the run command.
type options struct {
	kubeconfig  string
	bindAddr    string
	logLevel    int
	otlpEndpoint string
	installCRD  bool
}

// NewCommand builds the root cobra command.
func NewCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "ddns-controller",
		Short: "Synchronise DNS records with Kubernetes Service load balancer IPs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts)
		},
	}

	var fs *pflag.FlagSet = cmd.Flags()
	fs.StringVar(&opts.kubeconfig, "kubeconfig", "", "path to a kubeconfig file; in-cluster config is used when unset")
	fs.StringVar(&opts.bindAddr, "bind-address", ":8080", "address the /metrics and /healthz server listens on")
	fs.IntVar(&opts.logLevel, "log-level", defaultLogLevel(), "klog verbosity level (DDNS_LOG_LEVEL)")
	fs.StringVar(&opts.otlpEndpoint, "otlp-endpoint", os.Getenv("DDNS_OTLP_ENDPOINT"), "OTLP gRPC collector endpoint; tracing is disabled when unset")
	fs.BoolVar(&opts.installCRD, "install-crd", false, "install the DDNS CustomResourceDefinition at startup")

	return cmd
}

func defaultLogLevel() int {
	if v := os.Getenv("DDNS_LOG_LEVEL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return 0
}

func run(ctx context.Context, opts *options) error {
	log, err := logging.New(opts.logLevel)
	if err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}

	shutdownTracing, err := tracing.Setup(ctx, opts.otlpEndpoint)
	if err != nil {
		return fmt.Errorf("configure tracing: %w", err)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	// Construction order: cluster clients, DNS client, watchers and the
	// other cluster collaborators, reconciler, serialiser, retry queue,
	// error policy, trigger, controller. The watchers come before the
	// reconciler because the trigger and service lister read their informers;
	// they only start running once the controller runs.
	restConfig, err := loadRESTConfig(opts.kubeconfig)
	if err != nil {
		return fmt.Errorf("load kubernetes client config: %w", err)
	}

	dynClient, err := dynamic.NewForConfig(restConfig)
	if err != nil {
		return fmt.Errorf("build dynamic client: %w", err)
	}
	typedClient, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return fmt.Errorf("build typed client: %w", err)
	}

	if opts.installCRD {
		extClient, err := apiextensionsclient.NewForConfig(restConfig)
		if err != nil {
			return fmt.Errorf("build apiextensions client: %w", err)
		}
		if err := bootstrap.InstallCRD(ctx, extClient); err != nil {
			return fmt.Errorf("install ddns crd: %w", err)
		}
	}

	provider, err := cloudflare.NewFromEnv()
	if err != nil {
		return fmt.Errorf("configure dns provider: %w", err)
	}

	dynFactory := dynamicinformer.NewDynamicSharedInformerFactory(dynClient, resyncPeriod)
	typedFactory := informers.NewSharedInformerFactory(typedClient, resyncPeriod)

	objectWatcher := clusterwatch.NewObjectWatcher(dynFactory, log)
	serviceWatcher := clusterwatch.NewServiceWatcher(typedFactory, log)
	serviceLister := clusterwatch.NewServiceLister(typedFactory)
	patchClient := clusterwatch.NewPatchClient(dynClient)

	rec := reconciler.New(patchClient, serviceLister, provider, clusterwatch.IsNotFound, log)
	ser := serialiser.New(rec, log)

	retryQueue := retryqueue.New(ctx)
	errPolicy := errorpolicy.New(retryQueue, log)

	trig := trigger.New(objectWatcher, log)

	ctrl := controller.New(objectWatcher, serviceWatcher, trig, retryQueue, ser, errPolicy, log)

	metrics.MustRegister(prometheus.DefaultRegisterer)
	srv := newMetricsServer(opts.bindAddr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(err, "metrics server exited")
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	dynFactory.Start(ctx.Done())
	typedFactory.Start(ctx.Done())

	return ctrl.Run(ctx)
}

func loadRESTConfig(kubeconfig string) (*rest.Config, error) {
	if kubeconfig == "" {
		if cfg, err := rest.InClusterConfig(); err == nil {
			return cfg, nil
		}
	}
	loadingRules := clientcmd.NewDefaultClientConfigLoadingRules()
	if kubeconfig != "" {
		loadingRules.ExplicitPath = kubeconfig
	}
	return clientcmd.NewNonInteractiveDeferredLoadingClientConfig(loadingRules, &clientcmd.ConfigOverrides{}).ClientConfig()
}

func newMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return &http.Server{Addr: addr, Handler: mux}
}
