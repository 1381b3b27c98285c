// Package cli implements the gini command line tool, a small demo client
// that uploads documents through the anonymous flow and prints the
// extractions.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"sort"

	"github.com/gini/gini-sdk-go/pkg/credstore"
	"github.com/gini/gini-sdk-go/pkg/document"
	"github.com/gini/gini-sdk-go/pkg/gini"
	"github.com/gini/gini-sdk-go/pkg/slogx"
)

// App wires the SDK for command line use.
type App struct {
	cfg   Config
	log   *slog.Logger
	sdk   *gini.SDK
	store *credstore.SQLite
}

// New builds the application from its configuration.
func New(cfg Config) (*App, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, errors.New("GINI_CLIENT_ID and GINI_CLIENT_SECRET must be set")
	}

	log := slogx.New(slogx.Config{
		Service: "gini",
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})

	store, err := credstore.OpenSQLite(cfg.CredentialsFile, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open credential store: %w", err)
	}

	builder := gini.AnonymousUser(cfg.ClientID, cfg.ClientSecret, cfg.EmailDomain).
		WithCredentialsStore(store).
		WithLogger(log)
	if cfg.Sandbox {
		builder.Sandbox()
	}
	if cfg.APIBaseURL != "" {
		builder.WithAPIBaseURL(cfg.APIBaseURL)
	}
	if cfg.UserCenterURL != "" {
		builder.WithUserCenterURL(cfg.UserCenterURL)
	}

	sdk, err := builder.Build()
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return &App{cfg: cfg, log: log, sdk: sdk, store: store}, nil
}

// Close releases the credential store.
func (a *App) Close() error { return a.store.Close() }

// Run dispatches a CLI invocation.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: gini <upload|get|extractions|delete> ...")
	}

	switch args[0] {
	case "upload":
		if len(args) != 2 {
			return errors.New("usage: gini upload <file>")
		}
		return a.upload(ctx, args[1])
	case "get":
		if len(args) != 2 {
			return errors.New("usage: gini get <document-id>")
		}
		return a.get(ctx, args[1])
	case "extractions":
		if len(args) != 2 {
			return errors.New("usage: gini extractions <document-id>")
		}
		return a.extractions(ctx, args[1])
	case "delete":
		if len(args) != 2 {
			return errors.New("usage: gini delete <document-id>")
		}
		return a.sdk.Documents.DeleteDocument(ctx, args[1])
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

// upload sends a file for processing, waits for it to finish and prints the
// extractions.
func (a *App) upload(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	doc, err := a.sdk.Documents.CreateDocument(ctx, data, contentType, filepath.Base(path), a.cfg.DocType, nil)
	if err != nil {
		return err
	}
	a.log.Info("uploaded document", "document_id", doc.ID, "state", doc.State)

	pollCtx, cancel := context.WithTimeout(ctx, a.cfg.PollTimeout)
	defer cancel()

	doc, err = a.sdk.Documents.PollDocument(pollCtx, doc)
	if err != nil {
		return fmt.Errorf("failed waiting for processing: %w", err)
	}
	if doc.State == document.StateError {
		return fmt.Errorf("processing of document %s failed", doc.ID)
	}

	return a.printExtractions(ctx, doc)
}

func (a *App) get(ctx context.Context, documentID string) error {
	doc, err := a.sdk.Documents.GetDocument(ctx, documentID)
	if err != nil {
		return err
	}

	fmt.Printf("%s  %s  %d page(s)  %s  %s\n",
		doc.ID, doc.State, doc.PageCount, doc.SourceClassification, doc.Name)
	return nil
}

func (a *App) extractions(ctx context.Context, documentID string) error {
	doc, err := a.sdk.Documents.GetDocument(ctx, documentID)
	if err != nil {
		return err
	}
	return a.printExtractions(ctx, doc)
}

func (a *App) printExtractions(ctx context.Context, doc *document.Document) error {
	set, err := a.sdk.Documents.GetExtractions(ctx, doc)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		fmt.Printf("%-28s %s\n", name, set[name].Value())
	}
	return nil
}
