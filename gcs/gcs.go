// Package gcs moves files between container scripts and Google Cloud
// Storage, hiding the client plumbing and the encode/decode step for the
// formats the pipelines use.
package gcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/buildkite/roko"
	"github.com/colpal/dataeng-container-tools/logger"
	"github.com/colpal/dataeng-container-tools/secrets"
	"github.com/dustin/go-humanize"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	storage "google.golang.org/api/storage/v1"
)

// ModuleName is the logical name this collaborator registers its default
// secret path under.
const ModuleName = "GCS"

// DefaultSecretPath is where the platform mounts the storage service account
// key by default.
const DefaultSecretPath = "/vault/secrets/gcp-sa-storage.json"

func init() {
	secrets.RegisterDefaultPaths(map[string]string{ModuleName: DefaultSecretPath})
}

// Config controls client construction.
type Config struct {
	// SecretLocation is the path of the service account JSON key. When
	// empty, Locations resolves the path for ModuleName.
	SecretLocation string

	// Locations is the logical-name to path mapping, usually from the
	// command line. May be nil.
	Locations secrets.Locations

	// Registry, when set, receives the credential file's values so they are
	// censored from output.
	Registry *secrets.Registry

	// Local skips client construction entirely; any transfer attempt fails.
	Local bool

	// DefaultFormat applies when a URI has no recognised extension.
	// Defaults to FormatJSON.
	DefaultFormat Format

	// Retries is the number of attempts per transfer. Defaults to 3.
	Retries int
}

// Client uploads and downloads objects addressed by gs:// URIs.
type Client struct {
	log     logger.Logger
	conf    Config
	service *storage.Service
}

// New builds a storage client from the service account key resolved through
// conf. The key file's content is registered with conf.Registry when one is
// given, so credential values can never leak through wrapped output.
func New(ctx context.Context, l logger.Logger, conf Config) (*Client, error) {
	if l == nil {
		l = logger.Discard
	}
	if conf.Retries <= 0 {
		conf.Retries = 3
	}
	if conf.DefaultFormat == FormatAuto {
		conf.DefaultFormat = FormatJSON
	}

	c := &Client{log: l, conf: conf}
	if conf.Local {
		l.Info("running locally; storage transfers are disabled")
		return c, nil
	}

	path := conf.SecretLocation
	if path == "" {
		path = conf.Locations.Lookup(ModuleName)
	}
	if conf.Registry != nil {
		// A malformed key file is censored whole by ParseSecret; let the JWT
		// parse below produce the real failure in that case.
		if _, err := conf.Registry.ParseSecret(path); err != nil && !errors.Is(err, secrets.ErrParse) {
			return nil, fmt.Errorf("storage credentials: %w", err)
		}
	}
	key, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("storage credentials: %w: %s", secrets.ErrNotFound, path)
		}
		return nil, err
	}

	httpClient, err := clientFromJSON(ctx, key, storage.DevstorageFullControlScope)
	if err != nil {
		return nil, fmt.Errorf("creating Google Cloud Storage client: %w", err)
	}
	service, err := storage.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, err
	}
	c.service = service
	return c, nil
}

func clientFromJSON(ctx context.Context, data []byte, scope string) (*http.Client, error) {
	conf, err := google.JWTConfigFromJSON(data, scope)
	if err != nil {
		return nil, err
	}
	return conf.Client(ctx), nil
}

// Upload encodes content per format and writes it to the object uri names.
// FormatAuto infers the format from the URI's extension, falling back to the
// client's default.
func (c *Client) Upload(ctx context.Context, uri string, content any, format Format) error {
	bucket, object, err := ParseURI(uri)
	if err != nil {
		return err
	}
	if c.service == nil {
		return fmt.Errorf("uploading %s: client is local-only", uri)
	}
	if format == FormatAuto {
		format = FormatFromURI(uri, c.conf.DefaultFormat)
	}

	data, contentType, err := encode(content, format)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", uri, err)
	}

	c.log.Info("uploading %s (%s) to %s", humanize.Bytes(uint64(len(data))), format, uri)
	return roko.NewRetrier(
		roko.WithMaxAttempts(c.conf.Retries),
		roko.WithStrategy(roko.Constant(5*time.Second)),
	).DoWithContext(ctx, func(rt *roko.Retrier) error {
		obj := &storage.Object{Name: object, ContentType: contentType}
		_, err := c.service.Objects.Insert(bucket, obj).
			Media(bytes.NewReader(data)).
			Context(ctx).
			Do()
		if err != nil {
			c.log.Warn("upload of %s failed: %v (%s)", uri, err, rt)
		}
		return err
	})
}

// Download fetches the object uri names and decodes it per format.
// FormatAuto infers the format from the URI's extension, falling back to the
// client's default.
func (c *Client) Download(ctx context.Context, uri string, format Format) (any, error) {
	bucket, object, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}
	if c.service == nil {
		return nil, fmt.Errorf("downloading %s: client is local-only", uri)
	}
	if format == FormatAuto {
		format = FormatFromURI(uri, c.conf.DefaultFormat)
	}

	var data []byte
	err = roko.NewRetrier(
		roko.WithMaxAttempts(c.conf.Retries),
		roko.WithStrategy(roko.Constant(5*time.Second)),
	).DoWithContext(ctx, func(rt *roko.Retrier) error {
		resp, err := c.service.Objects.Get(bucket, object).Context(ctx).Download()
		if err != nil {
			c.log.Warn("download of %s failed: %v (%s)", uri, err, rt)
			return err
		}
		defer resp.Body.Close()
		data, err = io.ReadAll(resp.Body)
		return err
	})
	if err != nil {
		return nil, err
	}

	c.log.Info("downloaded %s (%s) from %s", humanize.Bytes(uint64(len(data))), format, uri)
	return decode(data, format)
}

// UploadBatch uploads contents to uris positionally. The two lists must pair
// up 1:1. The first failure aborts the batch.
func (c *Client) UploadBatch(ctx context.Context, uris []string, contents []any, format Format) error {
	if len(uris) != len(contents) {
		return fmt.Errorf("got %d URIs for %d contents; batch lists must pair up 1:1", len(uris), len(contents))
	}
	for i, uri := range uris {
		if err := c.Upload(ctx, uri, contents[i], format); err != nil {
			return err
		}
	}
	return nil
}

// DownloadBatch downloads every URI and returns the decoded contents in the
// same order.
func (c *Client) DownloadBatch(ctx context.Context, uris []string, format Format) ([]any, error) {
	contents := make([]any, 0, len(uris))
	for _, uri := range uris {
		content, err := c.Download(ctx, uri, format)
		if err != nil {
			return nil, err
		}
		contents = append(contents, content)
	}
	return contents, nil
}
