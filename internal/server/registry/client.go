package registry

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/modelmirror/internal/common"
	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/name"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/remote"
	"github.com/google/go-containerregistry/pkg/v1/remote/transport"
	"github.com/google/go-containerregistry/pkg/v1/types"
)

// Client implements Registry with go-containerregistry's remote package.
type Client struct {
	host     string
	insecure bool
	timeout  time.Duration
	keychain authn.Keychain
}

// NewClient talks to the registry at host ("registry:5000"). insecure
// selects plain HTTP; a zero timeout means no per-call deadline.
func NewClient(host string, insecure bool, timeout time.Duration) *Client {
	return &Client{
		host:     strings.TrimSuffix(host, "/"),
		insecure: insecure,
		timeout:  timeout,
		keychain: authn.DefaultKeychain,
	}
}

func (c *Client) repository(repo string) (name.Repository, error) {
	var opts []name.Option
	if c.insecure {
		opts = append(opts, name.Insecure)
	}
	r, err := name.NewRepository(c.host+"/"+repo, opts...)
	if err != nil {
		return name.Repository{}, fmt.Errorf("repository %s: %w", repo, err)
	}
	return r, nil
}

func (c *Client) reference(repo, reference string) (name.Reference, error) {
	r, err := c.repository(repo)
	if err != nil {
		return nil, err
	}
	if strings.Contains(reference, ":") {
		return r.Digest(reference), nil
	}
	return r.Tag(reference), nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func (c *Client) options(ctx context.Context) []remote.Option {
	return []remote.Option{
		remote.WithContext(ctx),
		remote.WithAuthFromKeychain(c.keychain),
	}
}

func (c *Client) PushBlob(ctx context.Context, repo, digest string, size int64, r io.Reader) error {
	ref, err := c.repository(repo)
	if err != nil {
		return err
	}
	h, err := v1.NewHash(digest)
	if err != nil {
		return fmt.Errorf("blob digest %q: %w", digest, err)
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	layer := &streamedBlob{digest: h, size: size, r: r}
	if err := remote.WriteLayer(ref, layer, c.options(ctx)...); err != nil {
		return fmt.Errorf("push blob %s to %s: %w", digest, repo, err)
	}
	return nil
}

func (c *Client) HasBlob(ctx context.Context, repo, digest string) (bool, error) {
	ref, err := c.reference(repo, digest)
	if err != nil {
		return false, err
	}
	dref, ok := ref.(name.Digest)
	if !ok {
		return false, fmt.Errorf("blob digest %q: not a digest", digest)
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	l, err := remote.Layer(dref, c.options(ctx)...)
	if err != nil {
		return false, fmt.Errorf("blob %s in %s: %w", digest, repo, err)
	}
	if _, err := l.Size(); err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("head blob %s in %s: %w", digest, repo, err)
	}
	return true, nil
}

func (c *Client) PushManifest(ctx context.Context, repo string, raw []byte, mediaType string) (string, error) {
	r, err := c.repository(repo)
	if err != nil {
		return "", err
	}
	h, _, err := v1.SHA256(bytes.NewReader(raw))
	if err != nil {
		return "", err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	m := &rawManifest{raw: raw, mediaType: types.MediaType(mediaType)}
	if err := remote.Put(r.Digest(h.String()), m, c.options(ctx)...); err != nil {
		return "", fmt.Errorf("push manifest %s to %s: %w", h, repo, err)
	}
	return h.String(), nil
}

func (c *Client) UpdateTag(ctx context.Context, repo, tag, digest string) error {
	r, err := c.repository(repo)
	if err != nil {
		return err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	desc, err := remote.Get(r.Digest(digest), c.options(ctx)...)
	if err != nil {
		return fmt.Errorf("manifest %s in %s: %w", digest, repo, err)
	}
	if err := remote.Tag(r.Tag(tag), desc, c.options(ctx)...); err != nil {
		return fmt.Errorf("tag %s:%s: %w", repo, tag, err)
	}
	return nil
}

func (c *Client) ManifestDigest(ctx context.Context, repo, reference string) (string, error) {
	ref, err := c.reference(repo, reference)
	if err != nil {
		return "", err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	desc, err := remote.Head(ref, c.options(ctx)...)
	if err != nil {
		if isNotFound(err) {
			return "", fmt.Errorf("%s: %w", ref, common.ErrorNotFound)
		}
		return "", fmt.Errorf("head manifest %s: %w", ref, err)
	}
	return desc.Digest.String(), nil
}

func (c *Client) GetManifest(ctx context.Context, repo, reference string) ([]byte, string, error) {
	ref, err := c.reference(repo, reference)
	if err != nil {
		return nil, "", err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	desc, err := remote.Get(ref, c.options(ctx)...)
	if err != nil {
		if isNotFound(err) {
			return nil, "", fmt.Errorf("%s: %w", ref, common.ErrorNotFound)
		}
		return nil, "", fmt.Errorf("get manifest %s: %w", ref, err)
	}
	return desc.Manifest, string(desc.MediaType), nil
}

func (c *Client) ReadBlob(ctx context.Context, repo, digest string) (io.ReadCloser, int64, error) {
	r, err := c.repository(repo)
	if err != nil {
		return nil, 0, err
	}
	ctx, cancel := c.withTimeout(ctx)

	l, err := remote.Layer(r.Digest(digest), c.options(ctx)...)
	if err != nil {
		cancel()
		return nil, 0, fmt.Errorf("blob %s in %s: %w", digest, repo, err)
	}
	size, err := l.Size()
	if err != nil {
		cancel()
		if isNotFound(err) {
			return nil, 0, fmt.Errorf("blob %s in %s: %w", digest, repo, common.ErrorNotFound)
		}
		return nil, 0, fmt.Errorf("head blob %s in %s: %w", digest, repo, err)
	}
	rc, err := l.Compressed()
	if err != nil {
		cancel()
		return nil, 0, fmt.Errorf("read blob %s in %s: %w", digest, repo, err)
	}
	return &cancelOnClose{ReadCloser: rc, cancel: cancel}, size, nil
}

func isNotFound(err error) bool {
	var terr *transport.Error
	return errors.As(err, &terr) && terr.StatusCode == http.StatusNotFound
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	defer c.cancel()
	return c.ReadCloser.Close()
}
