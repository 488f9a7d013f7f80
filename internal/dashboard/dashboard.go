// Package dashboard implements the places HAL publishes parameter values to:
// a Notion database, a JSON webhook, a MongoDB collection or an MQTT broker.
package dashboard

import (
	"context"

	"github.com/oicur0t/hal/pkg/models"
)

// Backend is a dashboard that accepts updates and holds a connection
type Backend interface {
	Publish(ctx context.Context, u models.Update) error
	Close(ctx context.Context) error
}

var (
	_ Backend = (*Notion)(nil)
	_ Backend = (*Webhook)(nil)
	_ Backend = (*Mongo)(nil)
	_ Backend = (*MQTT)(nil)
)
