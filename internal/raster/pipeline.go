package raster

import (
	"fmt"
	"image/color"

	"github.com/dshills/inlay/internal/content"
	"github.com/dshills/inlay/internal/node"
)

// Generator produces artifact files. *toolchain.Toolchain implements it.
type Generator interface {
	Generate(kind content.Kind, body string) (string, error)
	Persisted(kind content.Kind, body string) (string, bool)
}

// Pipeline renders node sources through a generator and an encoder.
type Pipeline struct {
	gen        Generator
	enc        Encoder
	background color.Color
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithBackground fills transparent pixels with c before encoding.
func WithBackground(c color.Color) PipelineOption {
	return func(p *Pipeline) {
		p.background = c
	}
}

// NewPipeline creates a pipeline.
func NewPipeline(gen Generator, enc Encoder, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{gen: gen, enc: enc}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Pipeline) Generate(src node.Source) (node.Artifact, error) {
	path, err := p.gen.Generate(src.Kind, src.Body)
	if err != nil {
		return nil, err
	}
	a := NewArtifact(path)
	if err := a.load(); err != nil {
		return nil, err
	}
	return a, nil
}

func (p *Pipeline) Persisted(src node.Source) (node.Artifact, bool) {
	path, ok := p.gen.Persisted(src.Kind, src.Body)
	if !ok {
		return nil, false
	}
	return NewArtifact(path), true
}

func (p *Pipeline) Render(a node.Artifact, key node.GeometryKey) ([]byte, error) {
	art, ok := a.(*Artifact)
	if !ok {
		art = NewArtifact(a.Path())
	}
	img, err := art.Render(key, p.background)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", a.Path(), err)
	}
	return p.enc.Encode(img)
}
