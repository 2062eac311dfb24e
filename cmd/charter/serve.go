package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/firstpersontravel/charter-sub005/core"
	"github.com/firstpersontravel/charter-sub005/modules"
	"github.com/firstpersontravel/charter-sub005/scheduler"
	"github.com/firstpersontravel/charter-sub005/service"
	"github.com/firstpersontravel/charter-sub005/service/httpd"
	mq "github.com/firstpersontravel/charter-sub005/service/mqtt"
	"github.com/firstpersontravel/charter-sub005/store/bolt"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve trips over HTTP (and MQTT when a broker is configured)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context(), true)
	},
}

var mqCmd = &cobra.Command{
	Use:   "mq",
	Short: "Serve trips over MQTT only",
	RunE: func(cmd *cobra.Command, args []string) error {
		if conf.MQTTBroker == "" {
			return errors.New("no MQTT broker configured (CHARTER_MQTT_BROKER)")
		}
		return serve(cmd.Context(), false)
	},
}

func serve(ctx context.Context, withHTTP bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry, err := modules.Registry()
	if err != nil {
		return err
	}
	scripts, err := ReadScripts(conf.ScriptDir)
	if err != nil {
		return err
	}

	db := bolt.NewStorage(conf.DBPath)
	db.Logger = logger.Named("store")
	if err = db.Open(ctx); err != nil {
		return fmt.Errorf("open %s: %w", conf.DBPath, err)
	}
	defer db.Close()

	svc := service.New(db, registry)
	svc.Logger = logger
	svc.Env = &core.Env{Host: conf.Host}
	svc.Timezone = conf.Timezone
	svc.TickInterval = conf.TickInterval
	if svc.Metrics, err = service.NewMetrics(nil); err != nil {
		return err
	}
	for name, c := range scripts {
		if err = svc.AddScript(name, c); err != nil {
			return err
		}
	}

	sched := scheduler.New(conf.MaxTimers)
	sched.Logger = logger.Named("scheduler")
	svc.Scheduler = sched

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sched.Run(ctx) })
	g.Go(func() error { return svc.Run(ctx) })

	if withHTTP {
		if !verbose && !conf.Verbose {
			gin.SetMode(gin.ReleaseMode)
		}
		srv := &http.Server{Addr: conf.Listen, Handler: httpd.NewRouter(svc)}
		g.Go(func() error {
			logger.Info("listening", zap.String("addr", conf.Listen))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(sctx)
		})
	}

	if conf.MQTTBroker != "" {
		opts := mq.NewClientOptions(conf.MQTTBroker, conf.MQTTClientID, logger)
		couplings := mq.New(paho.NewClient(opts), svc, conf.MQTTPrefix)
		couplings.Logger = logger.Named("mqtt")
		if err = couplings.Start(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
		g.Go(func() error { return couplings.Run(ctx) })
	}

	return g.Wait()
}
