package catalog

import (
	"context"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// Provider serves the current catalog bundle. The bundle is immutable; a
// reload swaps in a new one and keeps the old one if the new source is invalid.
type Provider struct {
	path    string
	current atomic.Pointer[Bundle]
	sf      singleflight.Group
	logger  *slog.Logger
}

// NewProvider loads the catalog at path (embedded default when empty).
func NewProvider(path string, logger *slog.Logger) (*Provider, error) {
	b, err := Load(path)
	if err != nil {
		return nil, err
	}
	p := &Provider{path: path, logger: logger}
	p.current.Store(b)
	return p, nil
}

// NewStaticProvider wraps an already loaded bundle. Reload re-reads the
// embedded default.
func NewStaticProvider(b *Bundle, logger *slog.Logger) *Provider {
	p := &Provider{logger: logger}
	p.current.Store(b)
	return p
}

func (p *Provider) Current() *Bundle { return p.current.Load() }

// Reload re-reads the catalog source. Concurrent callers share one load.
func (p *Provider) Reload(ctx context.Context) (*Bundle, error) {
	ch := p.sf.DoChan("reload", func() (any, error) {
		b, err := Load(p.path)
		if err != nil {
			p.logger.Error("catalog reload rejected", "path", p.path, "error", err)
			return nil, err
		}
		p.current.Store(b)
		p.logger.Info("catalog reloaded", "version", b.Version, "questions", b.Questions.Len(), "profiles", b.Profiles.Len())
		return b, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Bundle), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
