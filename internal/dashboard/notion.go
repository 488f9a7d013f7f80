package dashboard

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jomei/notionapi"
	"github.com/oicur0t/hal/internal/param"
	"github.com/oicur0t/hal/pkg/models"
	"github.com/oicur0t/hal/pkg/retry"
	"go.uber.org/zap"
)

// LoadToken reads the Notion integration token from path
func LoadToken(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read notion token file: %w", err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", fmt.Errorf("notion token file %s is empty", path)
	}
	return token, nil
}

// NotionConfig holds Notion connection settings
type NotionConfig struct {
	Token    string
	Database string
	Timeout  time.Duration
	// RequestDelay is the pause between page setup requests.
	RequestDelay time.Duration
	// HTTPClient replaces the client built from Timeout.
	HTTPClient *http.Client
}

// Notion writes each parameter's value to its own page of a database
type Notion struct {
	client     *notionapi.Client
	httpClient *http.Client
	logger     *zap.Logger

	// pages maps parameter name to page id
	pages map[string]notionapi.PageID
}

// NewNotion finds the database, pairs its pages with params in order and
// writes each page's title and category.
func NewNotion(ctx context.Context, cfg NotionConfig, params []param.Parameter, logger *zap.Logger) (*Notion, error) {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	n := &Notion{
		client:     notionapi.NewClient(notionapi.Token(cfg.Token), notionapi.WithHTTPClient(httpClient)),
		httpClient: httpClient,
		logger:     logger,
		pages:      make(map[string]notionapi.PageID, len(params)),
	}

	databaseID, err := n.findDatabase(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	logger.Info("Notion client connected", zap.String("database_id", string(databaseID)))

	pageIDs, err := n.queryPages(ctx, databaseID)
	if err != nil {
		return nil, err
	}
	if len(pageIDs) < len(params) {
		return nil, fmt.Errorf("notion database %q has %d pages, need one per parameter (%d)",
			cfg.Database, len(pageIDs), len(params))
	}

	for i, p := range params {
		n.pages[p.Name] = pageIDs[i]
	}

	for i, p := range params {
		if err := n.setupPage(ctx, pageIDs[i], p); err != nil {
			logger.Warn("Failed to set up page", zap.String("parameter", p.Name), zap.Error(err))
		} else {
			logger.Info("Set up page",
				zap.String("parameter", p.Name),
				zap.String("category", p.Category),
				zap.String("page_id", string(pageIDs[i])))
		}
		if cfg.RequestDelay > 0 {
			if err := retry.Sleep(ctx, cfg.RequestDelay); err != nil {
				return nil, err
			}
		}
	}

	return n, nil
}

// findDatabase returns the first database the search for name turns up
func (n *Notion) findDatabase(ctx context.Context, name string) (notionapi.DatabaseID, error) {
	res, err := n.client.Search.Do(ctx, &notionapi.SearchRequest{Query: name})
	if err != nil {
		return "", fmt.Errorf("failed to search notion database: %w", err)
	}
	for _, obj := range res.Results {
		if db, ok := obj.(*notionapi.Database); ok {
			return notionapi.DatabaseID(db.ID), nil
		}
	}
	return "", fmt.Errorf("no notion database matches %q", name)
}

// queryPages lists every page of the database in the order Notion returns them
func (n *Notion) queryPages(ctx context.Context, databaseID notionapi.DatabaseID) ([]notionapi.PageID, error) {
	var ids []notionapi.PageID
	req := &notionapi.DatabaseQueryRequest{}
	for {
		res, err := n.client.Database.Query(ctx, databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("failed to query notion database: %w", err)
		}
		for _, page := range res.Results {
			ids = append(ids, notionapi.PageID(page.ID))
		}
		if !res.HasMore || res.NextCursor == "" {
			return ids, nil
		}
		req.StartCursor = res.NextCursor
	}
}

func (n *Notion) setupPage(ctx context.Context, pageID notionapi.PageID, p param.Parameter) error {
	_, err := n.client.Page.Update(ctx, pageID, &notionapi.PageUpdateRequest{
		Properties: notionapi.Properties{
			"Parameter": notionapi.TitleProperty{
				Type:  notionapi.PropertyTypeTitle,
				Title: []notionapi.RichText{{Text: &notionapi.Text{Content: p.Name}}},
			},
			"Category": notionapi.MultiSelectProperty{
				Type:        notionapi.PropertyTypeMultiSelect,
				MultiSelect: []notionapi.Option{{Name: p.Category}},
			},
		},
	})
	return err
}

// Publish writes u's value to the parameter's page. Every API or transport
// error is retryable; only an unknown parameter is permanent.
func (n *Notion) Publish(ctx context.Context, u models.Update) error {
	pageID, ok := n.pages[u.Parameter]
	if !ok {
		return retry.Permanent(fmt.Errorf("no notion page for parameter %q", u.Parameter))
	}

	_, err := n.client.Page.Update(ctx, pageID, &notionapi.PageUpdateRequest{
		Properties: notionapi.Properties{
			"Value": notionapi.RichTextProperty{
				Type:     notionapi.PropertyTypeRichText,
				RichText: []notionapi.RichText{{Text: &notionapi.Text{Content: u.Value}}},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to update page for %s: %w", u.Parameter, err)
	}
	return nil
}

// Close drops idle connections
func (n *Notion) Close(ctx context.Context) error {
	n.httpClient.CloseIdleConnections()
	return nil
}
