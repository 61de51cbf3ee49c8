package commands

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/ubuntu/battery-insights/internal/constants"
	"github.com/ubuntu/battery-insights/internal/exporter"
	"github.com/ubuntu/battery-insights/internal/publish"
)

type serveConfig struct {
	ListenHost   string        `mapstructure:"listen-host"`
	ListenPort   int           `mapstructure:"listen-port"`
	Interval     time.Duration `mapstructure:"interval"`
	ReadTimeout  time.Duration `mapstructure:"read-timeout"`
	WriteTimeout time.Duration `mapstructure:"write-timeout"`

	KafkaBrokers []string `mapstructure:"kafka-brokers"`
	KafkaTopic   string   `mapstructure:"kafka-topic"`
	MQTTBroker   string   `mapstructure:"mqtt-broker"`
	MQTTTopic    string   `mapstructure:"mqtt-topic"`
}

func installServeCmd(app *App) error {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve battery insights over HTTP",
		Long: `Serve the last good battery insights over HTTP, with Prometheus metrics.

A new report is generated every --interval, or on POST /generate.
Each new result can also be published to Kafka and MQTT brokers.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			slog.Info("Running serve command")
			return app.serveRun(cmd.Context())
		},
	}

	flags := serveCmd.Flags()
	flags.StringVar(&app.config.Serve.ListenHost, "listen-host", constants.DefaultListenHost, "host the HTTP server listens on")
	flags.IntVar(&app.config.Serve.ListenPort, "listen-port", constants.DefaultListenPort, "port the HTTP server listens on")
	flags.DurationVar(&app.config.Serve.Interval, "interval", constants.DefaultRefreshInterval, "delay between two generations, 0 to only generate on demand")
	flags.DurationVar(&app.config.Serve.ReadTimeout, "read-timeout", 5*time.Second, "read timeout of the HTTP server")
	flags.DurationVar(&app.config.Serve.WriteTimeout, "write-timeout", 2*constants.DefaultAcquireTimeout, "write timeout of the HTTP server")
	flags.StringSliceVar(&app.config.Serve.KafkaBrokers, "kafka-brokers", nil, "Kafka brokers to publish results to")
	flags.StringVar(&app.config.Serve.KafkaTopic, "kafka-topic", constants.DefaultKafkaTopic, "Kafka topic results are published to")
	flags.StringVar(&app.config.Serve.MQTTBroker, "mqtt-broker", "", "MQTT broker to publish results to, such as tcp://localhost:1883")
	flags.StringVar(&app.config.Serve.MQTTTopic, "mqtt-topic", constants.DefaultMQTTTopic, "MQTT topic results are published to")

	if err := app.bindFlags(serveCmd, "serve", "listen-host", "listen-port", "interval", "read-timeout", "write-timeout",
		"kafka-brokers", "kafka-topic", "mqtt-broker", "mqtt-topic"); err != nil {
		return err
	}

	app.cmd.AddCommand(serveCmd)
	return nil
}

// serveRun runs the serve command until Quit is called.
func (a *App) serveRun(ctx context.Context) error {
	c := a.config.Serve

	var pubs publish.Multi
	if len(c.KafkaBrokers) > 0 {
		k, err := publish.NewKafka(c.KafkaBrokers, c.KafkaTopic)
		if err != nil {
			return err
		}
		pubs = append(pubs, k)
	}
	if c.MQTTBroker != "" {
		m, err := publish.NewMQTT(c.MQTTBroker, c.MQTTTopic)
		if err != nil {
			return errors.Join(err, pubs.Close())
		}
		pubs = append(pubs, m)
	}

	var opts []exporter.Options
	if len(pubs) > 0 {
		opts = append(opts, exporter.WithPublisher(pubs))
	}

	s, err := exporter.New(ctx, a.newPipeline(slog.Default()), exporter.Config{
		ListenHost:   c.ListenHost,
		ListenPort:   c.ListenPort,
		Interval:     c.Interval,
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
	}, opts...)
	if err != nil {
		return errors.Join(err, pubs.Close())
	}

	a.serverMu.Lock()
	a.server = s
	a.serverMu.Unlock()
	close(a.ready)

	if err := s.Run(); err != nil {
		// Quit was requested before the server was started.
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	return nil
}
