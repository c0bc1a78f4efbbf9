// heatingd - Gray Logic heating command service
//
// heatingd consumes heating commands from MQTT, applies them to the
// heating system state store, and publishes a reply to the requester and a
// telemetry event for observers. It also ingests sensor readings and serves
// an HTTP API with a WebSocket telemetry feed.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/nerrad567/gray-logic-heating/internal/api"
	"github.com/nerrad567/gray-logic-heating/internal/broker"
	"github.com/nerrad567/gray-logic-heating/internal/command"
	"github.com/nerrad567/gray-logic-heating/internal/heating"
	"github.com/nerrad567/gray-logic-heating/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-heating/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-heating/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-heating/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-heating/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-heating/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// options are the command-line flags.
type options struct {
	configPath  string
	showVersion bool
}

// parseFlags reads args. A nil options with a nil error means help was shown.
func parseFlags(args []string, out io.Writer) (*options, error) {
	opts := &options{}
	flags := pflag.NewFlagSet("heatingd", pflag.ContinueOnError)
	flags.SetOutput(out)
	flags.StringVarP(&opts.configPath, "config", "c", "", "path to the YAML config file (default $GRAYLOGIC_CONFIG or "+defaultConfigPath+")")
	flags.BoolVar(&opts.showVersion, "version", false, "print version information and exit")

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, nil
		}
		return nil, err
	}
	if flags.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", flags.Args())
	}
	return opts, nil
}

// run is the application logic, separated from main for testability.
func run(ctx context.Context, args []string, out io.Writer) error {
	opts, err := parseFlags(args, out)
	if err != nil {
		return err
	}
	if opts == nil {
		return nil
	}
	if opts.showVersion {
		fmt.Fprintf(out, "heatingd %s (commit %s, built %s)\n", version, commit, date)
		return nil
	}

	log := logging.Default()
	log.Info("starting Gray Logic heating core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath(opts.configPath)
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	store := heating.NewSQLiteStore(db.DB)
	service := heating.NewService(store, log.Component("heating"))

	codec, err := command.NewCodec(cfg.Heating.Codec)
	if err != nil {
		return fmt.Errorf("selecting codec: %w", err)
	}
	topics := mqtt.Topics{Prefix: cfg.Heating.TopicPrefix}

	mqttClient, err := mqtt.Connect(cfg.MQTT, topics)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log.Component("mqtt"))
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
		"topic_prefix", cfg.Heating.TopicPrefix,
	)

	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(ctx, cfg.InfluxDB, cfg.Site.ID)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	outbound := broker.NewOutbound(mqttClient, topics, mqttClient.QoS(), codec)

	dispatchOpts := []command.Option{command.WithLogger(log.Component("dispatcher"))}
	if influxClient != nil {
		dispatchOpts = append(dispatchOpts, command.WithRecorder(influxClient))
	}
	dispatcher := command.NewDispatcher(store, outbound, dispatchOpts...)

	inbound, err := broker.NewInbound(broker.InboundOptions{
		Client:        mqttClient,
		Topics:        topics,
		QoS:           mqttClient.QoS(),
		Codec:         codec,
		Dispatcher:    dispatcher,
		ConsumerGroup: cfg.Heating.ConsumerGroup,
		Logger:        log.Component("inbound"),
	})
	if err != nil {
		return fmt.Errorf("creating inbound gateway: %w", err)
	}
	if err := inbound.Start(ctx); err != nil {
		return fmt.Errorf("starting inbound gateway: %w", err)
	}
	defer func() {
		log.Info("stopping inbound gateway")
		inbound.Stop()
	}()

	if cfg.Heating.SensorIngest {
		sensorOpts := broker.SensorOptions{
			Client:   mqttClient,
			Topics:   topics,
			QoS:      mqttClient.QoS(),
			Codec:    codec,
			Recorder: service,
			Logger:   log.Component("sensor"),
		}
		if influxClient != nil {
			sensorOpts.Sink = influxClient
		}
		sensors, sensorErr := broker.NewSensorIngest(sensorOpts)
		if sensorErr != nil {
			return fmt.Errorf("creating sensor ingest: %w", sensorErr)
		}
		if startErr := sensors.Start(ctx); startErr != nil {
			return fmt.Errorf("starting sensor ingest: %w", startErr)
		}
		defer sensors.Stop()
	}

	checks := map[string]api.HealthChecker{
		"database": db,
		"mqtt":     mqttClient,
	}
	if influxClient != nil {
		checks["influxdb"] = influxClient
	}

	if cfg.API.Enabled {
		server, apiErr := api.New(api.Deps{
			Config:    cfg.API,
			WS:        cfg.WebSocket,
			Security:  cfg.Security,
			Logger:    log.Component("api"),
			Heating:   service,
			Commands:  outbound,
			Telemetry: mqttClient,
			Codec:     codec,
			Topics:    topics,
			QoS:       mqttClient.QoS(),
			Checks:    checks,
			Version:   version,
		})
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		if startErr := server.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			if closeErr := server.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	} else {
		log.Info("HTTP API disabled")
	}

	if err := healthCheck(ctx, checks); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	log.Info("Gray Logic heating core stopped")
	return nil
}

// getConfigPath prefers the flag, then GRAYLOGIC_CONFIG, then the default.
func getConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if path := os.Getenv("GRAYLOGIC_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck runs every component check once at startup.
func healthCheck(ctx context.Context, checks map[string]api.HealthChecker) error {
	for name, checker := range checks {
		if err := checker.HealthCheck(ctx); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}
