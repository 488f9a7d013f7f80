package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/oicur0t/hal/internal/config"
	"github.com/oicur0t/hal/internal/dashboard"
	"github.com/oicur0t/hal/internal/param"
	"github.com/oicur0t/hal/internal/reader"
	"github.com/oicur0t/hal/pkg/mtls"
	"go.uber.org/zap"
)

// openDashboard connects the configured backend
func openDashboard(ctx context.Context, cfg *config.Config, reg *param.Registry, logger *zap.Logger) (dashboard.Backend, error) {
	d := cfg.Dashboard
	switch d.Backend {
	case config.BackendNotion:
		token, err := dashboard.LoadToken(d.Notion.TokenFile)
		if err != nil {
			return nil, err
		}
		n, err := dashboard.NewNotion(ctx, dashboard.NotionConfig{
			Token:        token,
			Database:     d.Notion.Database,
			Timeout:      d.Notion.Timeout,
			RequestDelay: cfg.RequestDelay,
		}, reg.All(), logger)
		if err != nil {
			return nil, err
		}
		return n, nil

	case config.BackendWebhook:
		tlsConfig, err := mtls.LoadClientTLSConfig(d.Webhook.MTLS.Files())
		if err != nil {
			return nil, fmt.Errorf("failed to load webhook TLS config: %w", err)
		}
		return dashboard.NewWebhook(d.Webhook.URL, tlsConfig, d.Webhook.Timeout, logger), nil

	case config.BackendMongo:
		m, err := dashboard.NewMongo(ctx, dashboard.MongoConfig{
			URI:                d.Mongo.URI,
			Database:           d.Mongo.Database,
			Collection:         d.Mongo.Collection,
			CertificateKeyFile: d.Mongo.CertificateKeyFile,
			Timeout:            d.Mongo.Timeout,
		}, logger)
		if err != nil {
			return nil, err
		}
		return m, nil

	case config.BackendMQTT:
		tlsConfig, err := mtls.LoadClientTLSConfig(d.MQTT.MTLS.Files())
		if err != nil {
			return nil, fmt.Errorf("failed to load MQTT TLS config: %w", err)
		}
		if d.MQTT.MTLS.Files().Empty() {
			tlsConfig = nil
		}
		q, err := dashboard.NewMQTT(dashboard.MQTTConfig{
			Broker:      d.MQTT.Broker,
			ClientID:    d.MQTT.ClientID,
			Username:    d.MQTT.Username,
			Password:    d.MQTT.Password,
			TopicPrefix: d.MQTT.TopicPrefix,
			Timeout:     d.MQTT.Timeout,
		}, reg.All(), tlsConfig, logger)
		if err != nil {
			return nil, err
		}
		return q, nil
	}
	return nil, fmt.Errorf("unknown dashboard backend %q", d.Backend)
}

// printCatalog lists every parameter and the file it is read from today
func printCatalog(w io.Writer, root string, reg *param.Registry, now time.Time) {
	date := reader.DateString(now)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tCATEGORY\tLOCATOR\tDEPTH\tFILE")
	for _, p := range reg.All() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", p.Name, p.Category, p.Locator, p.Depth, reader.Locate(root, p, date))
	}
	tw.Flush()
}
