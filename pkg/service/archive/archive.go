package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/briareus/pkg/domain/interfaces"
	"github.com/secmon-lab/briareus/pkg/domain/model"
	"github.com/secmon-lab/briareus/pkg/domain/types"
	"github.com/secmon-lab/briareus/pkg/utils/logging"
	"github.com/secmon-lab/briareus/pkg/utils/safe"
)

const (
	// maxDownloadSize bounds how much of a file is fetched
	maxDownloadSize = 16 << 20

	// maxInlineContent bounds how much extracted text is stored inline
	maxInlineContent = 64 << 10
)

// Archiver is the default attachment extraction collaborator. It downloads
// file content from the upstream's authenticated URL, optionally archives
// the raw bytes to a GCS bucket, and returns text content for text-like
// mimetypes.
type Archiver struct {
	token      string
	bucketName string
	httpClient *http.Client

	client *storage.Client
	bucket *storage.BucketHandle
}

var _ interfaces.FileExtractor = &Archiver{}

// Option is a functional option for Archiver configuration
type Option func(*Archiver)

// WithBucket enables raw-byte archival to the named GCS bucket
func WithBucket(name string) Option {
	return func(a *Archiver) {
		a.bucketName = name
	}
}

// WithHTTPClient overrides the HTTP client used for downloads
func WithHTTPClient(httpClient *http.Client) Option {
	return func(a *Archiver) {
		a.httpClient = httpClient
	}
}

// New creates an Archiver. The token is the workspace credential used to
// authenticate url_private downloads.
func New(token string, opts ...Option) *Archiver {
	a := &Archiver{
		token:      token,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Initialize opens the GCS client when a bucket is configured
func (a *Archiver) Initialize(ctx context.Context) error {
	if a.bucketName == "" {
		return nil
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return goerr.Wrap(err, "failed to create storage client",
			goerr.V("bucket", a.bucketName))
	}
	a.client = client
	a.bucket = client.Bucket(a.bucketName)
	return nil
}

// ProcessFile downloads one attachment, archives the raw bytes when a bucket
// is configured, and returns the extracted text content
func (a *Archiver) ProcessFile(ctx context.Context, channelID types.ChannelID, ref *model.FileRef) (*model.Attachment, error) {
	if ref == nil {
		return nil, goerr.New("file ref is nil")
	}
	if ref.URLPrivate == "" {
		// No downloadable content (e.g. external files); record metadata only
		return &model.Attachment{
			FileID:      ref.ID,
			ChannelID:   channelID,
			Name:        ref.Name,
			MimeType:    ref.MimeType,
			ExtractedAt: time.Now(),
		}, nil
	}

	data, err := a.download(ctx, ref.URLPrivate)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to download attachment",
			goerr.V("file_id", ref.ID), goerr.V("channel_id", channelID))
	}

	if a.bucket != nil {
		if err := a.archive(ctx, channelID, ref, data); err != nil {
			// Archival failure does not block extraction
			logging.From(ctx).Warn("attachment archival failed",
				"file_id", ref.ID, "error", err.Error())
		}
	}

	att := &model.Attachment{
		FileID:      ref.ID,
		ChannelID:   channelID,
		Name:        ref.Name,
		MimeType:    ref.MimeType,
		ContentSize: int64(len(data)),
		ExtractedAt: time.Now(),
	}
	if isTextLike(ref.MimeType) {
		content := data
		if len(content) > maxInlineContent {
			content = content[:maxInlineContent]
		}
		att.Content = string(content)
	}

	return att, nil
}

// Close releases the GCS client
func (a *Archiver) Close() error {
	if a.client != nil {
		return a.client.Close()
	}
	return nil
}

func (a *Archiver) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build download request")
	}
	req.Header.Set("Authorization", "Bearer "+a.token)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, goerr.Wrap(err, "download request failed", goerr.T(model.TagTransient))
	}
	defer safe.Close(ctx, resp.Body)

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, goerr.New("download rate limited", goerr.T(model.TagRateLimit))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, goerr.New("unexpected download status", goerr.V("status", resp.StatusCode))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadSize))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read download body", goerr.T(model.TagTransient))
	}
	return data, nil
}

func (a *Archiver) archive(ctx context.Context, channelID types.ChannelID, ref *model.FileRef, data []byte) error {
	object := fmt.Sprintf("attachments/%s/%s/%s", channelID, ref.ID, ref.Name)
	w := a.bucket.Object(object).NewWriter(ctx)
	w.ContentType = ref.MimeType

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return goerr.Wrap(err, "failed to write object", goerr.V("object", object))
	}
	if err := w.Close(); err != nil {
		return goerr.Wrap(err, "failed to finalize object", goerr.V("object", object))
	}
	return nil
}

// isTextLike reports whether the mimetype's content can be stored inline as
// searchable text
func isTextLike(mimeType string) bool {
	if strings.HasPrefix(mimeType, "text/") {
		return true
	}
	switch mimeType {
	case "application/json", "application/xml", "application/javascript",
		"application/x-yaml", "application/csv":
		return true
	}
	return false
}
