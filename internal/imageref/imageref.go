// Package imageref turns the ways a caller can point at an image (data URI,
// http(s) URL, file path, raw bytes) into bytes plus a sniffed MIME type.
package imageref

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/renalscope/renalscope/internal/llm"
)

// DefaultMaxBytes bounds a resolved image.
const DefaultMaxBytes = 20 << 20

// SupportedTypes are the image formats every configured provider accepts.
var SupportedTypes = []string{"image/png", "image/jpeg", "image/webp", "image/gif"}

var (
	ErrEmpty       = errors.New("image is empty")
	ErrTooLarge    = errors.New("image exceeds the size limit")
	ErrNotImage    = errors.New("content is not an image")
	ErrUnsupported = errors.New("image format is not supported")
	ErrBadDataURI  = errors.New("malformed data URI")
	ErrUnreachable = errors.New("image could not be fetched")
)

// Image is resolved image content.
type Image struct {
	Data     []byte
	MIMEType string
}

// Fingerprint is the hex SHA-256 of the image bytes.
func (i Image) Fingerprint() string {
	sum := sha256.Sum256(i.Data)
	return hex.EncodeToString(sum[:])
}

// LLM converts the image into a model message attachment.
func (i Image) LLM() llm.Image {
	return llm.Image{MIMEType: i.MIMEType, Data: i.Data}
}

// Reference points at an image. Exactly one of Value or Data is used; Data
// wins when both are set.
type Reference struct {
	// Value is a data URI, an http(s) URL, or a local file path.
	Value string

	Data []byte
	// MIMEType is what the caller claims Data is. Sniffing overrides it.
	MIMEType string
}

// Parse wraps a string reference.
func Parse(s string) Reference {
	return Reference{Value: strings.TrimSpace(s)}
}

// FromBytes wraps raw bytes with an optional declared MIME type.
func FromBytes(data []byte, mimeType string) Reference {
	return Reference{Data: data, MIMEType: mimeType}
}

// Kind names the reference form, for logs.
func (r Reference) Kind() string {
	switch {
	case r.Data != nil:
		return "bytes"
	case strings.HasPrefix(r.Value, "data:"):
		return "data-uri"
	case strings.HasPrefix(r.Value, "http://"), strings.HasPrefix(r.Value, "https://"):
		return "url"
	case r.Value == "":
		return "empty"
	default:
		return "file"
	}
}

// Resolve resolves the reference with a default Resolver.
func (r Reference) Resolve(ctx context.Context) (Image, error) {
	return NewResolver().Resolve(ctx, r)
}

// Resolver fetches and checks image content.
type Resolver struct {
	client   *http.Client
	maxBytes int64
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithHTTPClient sets the client used for URL references.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Resolver) { r.client = c }
}

// WithMaxBytes sets the size limit. Non-positive values keep the default.
func WithMaxBytes(n int64) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.maxBytes = n
		}
	}
}

// NewResolver creates a Resolver.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		client:   &http.Client{Timeout: 15 * time.Second},
		maxBytes: DefaultMaxBytes,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve loads the referenced bytes and sniffs their MIME type. The result
// is always one of SupportedTypes within the size limit.
func (r *Resolver) Resolve(ctx context.Context, ref Reference) (Image, error) {
	var data []byte
	var err error

	switch ref.Kind() {
	case "bytes":
		data = ref.Data
	case "data-uri":
		data, err = decodeDataURI(ref.Value)
	case "url":
		data, err = r.fetch(ctx, ref.Value)
	case "file":
		data, err = r.readFile(ref.Value)
	default:
		err = ErrEmpty
	}
	if err != nil {
		return Image{}, err
	}

	return r.check(data)
}

// check enforces the size limit and the supported content types.
func (r *Resolver) check(data []byte) (Image, error) {
	if len(data) == 0 {
		return Image{}, ErrEmpty
	}
	if int64(len(data)) > r.maxBytes {
		return Image{}, fmt.Errorf("%w: %d bytes, limit %d", ErrTooLarge, len(data), r.maxBytes)
	}

	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return Image{}, fmt.Errorf("%w: detected %s", ErrNotImage, mt.String())
	}
	if !mimetype.EqualsAny(baseType(mt.String()), SupportedTypes...) {
		return Image{}, fmt.Errorf("%w: %s", ErrUnsupported, baseType(mt.String()))
	}
	return Image{Data: data, MIMEType: baseType(mt.String())}, nil
}

func (r *Resolver) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUnreachable, resp.StatusCode)
	}
	return readLimited(resp.Body, r.maxBytes)
}

func (r *Resolver) readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()
	return readLimited(f, r.maxBytes)
}

func readLimited(rd io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(rd, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: limit %d", ErrTooLarge, limit)
	}
	return data, nil
}

// decodeDataURI accepts data:<mime>;base64,<payload>. The declared MIME type
// is ignored; content is sniffed later.
func decodeDataURI(uri string) ([]byte, error) {
	header, payload, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return nil, fmt.Errorf("%w: missing comma", ErrBadDataURI)
	}
	if !strings.HasSuffix(header, ";base64") {
		return nil, fmt.Errorf("%w: only base64 payloads are supported", ErrBadDataURI)
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		// Some encoders drop padding.
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(strings.TrimSpace(payload), "="))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadDataURI, err)
		}
	}
	return data, nil
}

func baseType(mt string) string {
	base, _, _ := strings.Cut(mt, ";")
	return strings.TrimSpace(base)
}
