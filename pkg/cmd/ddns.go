package ddns

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/seawhite/aws-r53-ip-updater/pkg/cloudprovider/route53"
	"github.com/seawhite/aws-r53-ip-updater/pkg/ipprovider"
	"github.com/seawhite/aws-r53-ip-updater/pkg/metrics"
	"github.com/seawhite/aws-r53-ip-updater/pkg/reconciler"
)

type options struct {
	zoneID        string
	recordName    string
	ttl           int64
	recordType    string
	profile       string
	provider      string
	verify        bool
	verifyTimeout time.Duration
	interval      time.Duration
	verbose       bool
}

func parseFlags() options {
	opts := options{}
	pflag.StringVar(&opts.zoneID, "zone-id", "", "route53 hosted zone id containing the record.")
	pflag.StringVar(&opts.recordName, "record-name", "", "dns record name to keep pointed at the current public ip.")
	pflag.Int64Var(&opts.ttl, "ttl", 300, "ttl in seconds applied on upsert.")
	pflag.StringVar(&opts.recordType, "record-type", "A", "dns record type. only A is supported.")
	pflag.StringVar(&opts.profile, "profile", "", "aws shared config profile name.")
	pflag.StringVar(&opts.provider, "provider", "all", "public ip provider to query: ipify, ifconfig, icanhazip, ipinfo or all.")
	pflag.BoolVar(&opts.verify, "verify", false, "wait for a submitted change to reach INSYNC.")
	pflag.DurationVar(&opts.verifyTimeout, "verify-timeout", 60*time.Second, "how long to wait for INSYNC before giving up.")
	pflag.DurationVar(&opts.interval, "interval", 0, "run continuously, reconciling at this interval. 0 runs once and exits.")
	pflag.BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose logging.")
	pflag.Parse()
	return opts
}

func Start() {
	opts := parseFlags()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(logrus.InfoLevel)
	if opts.verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	cfg := reconciler.Config{
		ZoneID:        opts.zoneID,
		RecordName:    opts.recordName,
		TTL:           opts.ttl,
		RecordType:    opts.recordType,
		Verify:        opts.verify,
		VerifyTimeout: opts.verifyTimeout,
	}
	if err := cfg.Validate(); err != nil {
		log.Error(err)
		pflag.Usage()
		os.Exit(2)
	}

	ctx := context.Background()
	provider, err := route53.New(ctx, opts.profile)
	if err != nil {
		log.Errorf("unable to create route53 client: %s", err)
		os.Exit(1)
	}

	rec := &reconciler.Reconciler{Provider: provider, Log: log}
	resolvers := createProviders(opts.provider)

	if opts.interval > 0 {
		runDaemon(ctx, log, rec, cfg, resolvers, opts.interval)
		return
	}

	if _, err := runOnce(ctx, log, rec, cfg, resolvers, nil); err != nil {
		os.Exit(1)
	}
}

func runOnce(ctx context.Context, log *logrus.Logger, rec *reconciler.Reconciler, cfg reconciler.Config, resolvers []ipprovider.Provider, increment ipprovider.IncrementFunc) (*reconciler.Result, error) {
	ip, err := ipprovider.Resolve(ctx, resolvers, increment, log)
	if err != nil {
		log.Errorf("unable to resolve public ip, skipping update: %s", err)
		return nil, err
	}

	res, err := rec.Reconcile(ctx, cfg, ip)
	if err != nil {
		log.Errorf("reconcile failed for %s: %s", cfg.RecordName, err)
		return nil, err
	}
	summarize(log, cfg, res)
	return res, nil
}

// summarize emits the single per-run outcome line: resolved IP, previous
// value when there was one, and the action taken.
func summarize(log *logrus.Logger, cfg reconciler.Config, res *reconciler.Result) {
	fields := logrus.Fields{"record": cfg.RecordName, "ip": res.ResolvedIP}
	if res.PreviousIP != "" {
		fields["previous"] = res.PreviousIP
	}
	if res.ChangeID != "" {
		fields["change_id"] = res.ChangeID
	}
	switch res.Outcome {
	case reconciler.OutcomeNoOp:
		log.WithFields(fields).Info("record already up to date, nothing to do")
	case reconciler.OutcomeApplied:
		log.WithFields(fields).Info("record updated")
	case reconciler.OutcomeVerified:
		log.WithFields(fields).Info("record updated and change propagated")
	case reconciler.OutcomeAppliedUnverified:
		log.WithFields(fields).Warn("record updated, propagation not confirmed before timeout")
	}
}

func runDaemon(ctx context.Context, log *logrus.Logger, rec *reconciler.Reconciler, cfg reconciler.Config, resolvers []ipprovider.Provider, interval time.Duration) {
	metrics.InitMetrics()

	router := http.NewServeMux()
	router.Handle("/metrics", promhttp.Handler())
	router.HandleFunc("/health/alive", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router.HandleFunc("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	server := &http.Server{Addr: ":8080", Handler: router}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	quit := make(chan bool)
	ticker := time.NewTicker(interval)
	go func() {
		for {
			select {
			case <-ticker.C:
				res, err := runOnce(ctx, log, rec, cfg, resolvers, metrics.IncrementProvider)
				if err != nil {
					metrics.IncrementRun("failed")
					continue
				}
				metrics.IncrementRun(string(res.Outcome))
			case <-quit:
				ticker.Stop()
				return
			}
		}
	}()

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen health server: %s", err)
		}
	}()

	log.Infof("daemon started, reconciling %s every %s", cfg.RecordName, interval)
	<-done
	close(quit)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("health server unable to shutdown: %s", err)
	}
	log.Info("stopped gracefully")
}

func createProviders(name string) []ipprovider.Provider {
	switch name {
	case "ipify":
		return []ipprovider.Provider{&ipprovider.Ipify{}}
	case "ifconfig":
		return []ipprovider.Provider{&ipprovider.Ifconfig{}}
	case "icanhazip", "icanhaz":
		return []ipprovider.Provider{&ipprovider.ICanHazIp{}}
	case "ipinfo":
		return []ipprovider.Provider{&ipprovider.Ipinfo{}}
	default:
		return []ipprovider.Provider{
			&ipprovider.Ipify{},
			&ipprovider.Ifconfig{},
			&ipprovider.ICanHazIp{},
			&ipprovider.Ipinfo{},
		}
	}
}
