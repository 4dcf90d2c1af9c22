// Package html renders composed cards to server-side HTML using embedded
// pongo2 templates. All bound values are escaped; card icons are the only
// markup passed through, after SVG sanitising.
package html

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	json "github.com/goccy/go-json"
	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-formcards/pkg/compose"
	"github.com/goliatone/go-formcards/pkg/render"
)

const (
	nodeTemplate = "node"
	pageTemplate = "page"
)

// Option configures the Renderer.
type Option func(*config)

type config struct {
	templateFS fs.FS
	templates  TemplateRenderer
	theme      *theme.RendererConfig
}

// WithTemplatesFS supplies an alternate template bundle via fs.FS.
func WithTemplatesFS(files fs.FS) Option {
	return func(cfg *config) {
		cfg.templateFS = files
	}
}

// WithTemplatesDir loads templates from a directory on disk.
func WithTemplatesDir(path string) Option {
	return func(cfg *config) {
		if path == "" {
			return
		}
		cfg.templateFS = os.DirFS(path)
	}
}

// WithTemplateRenderer injects a custom template renderer implementation.
func WithTemplateRenderer(renderer TemplateRenderer) Option {
	return func(cfg *config) {
		if renderer != nil {
			cfg.templates = renderer
		}
	}
}

// WithTheme applies a go-theme renderer config: Tokens prefixed "class."
// override CSS classes, CSSVars are emitted on the page and Partials may
// replace the "node" or "page" templates.
func WithTheme(cfg *theme.RendererConfig) Option {
	return func(c *config) {
		c.theme = cfg
	}
}

// Renderer turns composed cards into HTML.
type Renderer struct {
	templates TemplateRenderer
	theme     rendererTheme
	classes   map[string]string
}

// New constructs the HTML renderer.
func New(options ...Option) (*Renderer, error) {
	cfg := config{}
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.templateFS == nil {
		cfg.templateFS = TemplatesFS()
	}

	templates := cfg.templates
	if templates == nil {
		engine, err := NewEngine(cfg.templateFS, ".tpl")
		if err != nil {
			return nil, fmt.Errorf("html renderer: configure template renderer: %w", err)
		}
		templates = engine
	}

	themeCtx := buildThemeContext(cfg.theme)
	return &Renderer{
		templates: templates,
		theme:     themeCtx,
		classes:   classList(themeCtx.Tokens),
	}, nil
}

func (r *Renderer) Name() string {
	return "html"
}

func (r *Renderer) ContentType() string {
	return "text/html; charset=utf-8"
}

// RenderCard renders one composed card as an HTML fragment.
func (r *Renderer) RenderCard(ctx context.Context, card compose.CardNode) ([]byte, error) {
	out, err := r.RenderNode(ctx, card.Node())
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}

// RenderNode renders any node tree. Children are rendered first and handed
// to the parent template as already-escaped markup.
func (r *Renderer) RenderNode(ctx context.Context, node render.Node) (string, error) {
	if r.templates == nil {
		return "", fmt.Errorf("html renderer: template renderer is nil")
	}
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return "", err
		}
	}

	var children strings.Builder
	for _, child := range node.Children {
		markup, err := r.RenderNode(ctx, child)
		if err != nil {
			return "", err
		}
		children.WriteString(markup)
	}

	out, err := r.templates.RenderTemplate(r.templateName(nodeTemplate), map[string]any{
		"node":     nodeView(node),
		"children": children.String(),
		"classes":  r.classes,
	})
	if err != nil {
		return "", fmt.Errorf("html renderer: render %s node %q: %w", node.Kind, node.Key, err)
	}
	return out, nil
}

// RenderPage renders a full document holding every card in order.
func (r *Renderer) RenderPage(ctx context.Context, title string, cards []compose.CardNode) ([]byte, error) {
	return r.renderPage(ctx, title, "", cards)
}

// RenderForm is RenderPage with the cards wrapped in a POST form targeting
// action. Edit controls are named by field key; array buttons submit
// `_action=add:<key>` or `_action=remove:<key>`.
func (r *Renderer) RenderForm(ctx context.Context, title, action string, cards []compose.CardNode) ([]byte, error) {
	if action == "" {
		action = "."
	}
	return r.renderPage(ctx, title, action, cards)
}

func (r *Renderer) renderPage(ctx context.Context, title, action string, cards []compose.CardNode) ([]byte, error) {
	var body strings.Builder
	for _, card := range cards {
		markup, err := r.RenderCard(ctx, card)
		if err != nil {
			return nil, err
		}
		body.Write(markup)
	}

	out, err := r.templates.RenderTemplate(r.templateName(pageTemplate), map[string]any{
		"title":   title,
		"cards":   body.String(),
		"action":  action,
		"classes": r.classes,
		"theme": map[string]any{
			"name":           r.theme.Name,
			"variant":        r.theme.Variant,
			"css_vars_style": r.theme.CSSVarsStyle,
			"json":           r.theme.JSON,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("html renderer: render page: %w", err)
	}
	return []byte(out), nil
}

func (r *Renderer) templateName(name string) string {
	if partial := strings.TrimSpace(r.theme.Partials[name]); partial != "" {
		return partial
	}
	return name
}

var defaultClasses = map[string]string{
	"page":       "fc-page",
	"card":       "fc-card",
	"header":     "fc-card-header",
	"icon":       "fc-card-icon",
	"section":    "fc-section",
	"grid":       "fc-grid",
	"field":      "fc-field",
	"label":      "fc-label",
	"control":    "fc-control",
	"help":       "fc-help",
	"required":   "fc-required",
	"empty":      "fc-empty",
	"diagnostic": "fc-diagnostic",
	"chip":       "fc-chip",
	"group":      "fc-group",
	"array":      "fc-array",
	"item":       "fc-item",
	"action":     "fc-action",
}

func classList(tokens map[string]string) map[string]string {
	out := make(map[string]string, len(defaultClasses))
	for name, class := range defaultClasses {
		out[name] = class
		if override := strings.TrimSpace(tokens["class."+name]); override != "" {
			out[name] = class + " " + override
		}
	}
	return out
}

type rendererTheme struct {
	Name         string
	Variant      string
	Partials     map[string]string
	Tokens       map[string]string
	CSSVars      map[string]string
	CSSVarsStyle string
	JSON         string
}

func buildThemeContext(cfg *theme.RendererConfig) rendererTheme {
	if cfg == nil {
		return rendererTheme{}
	}
	ctx := rendererTheme{
		Name:     cfg.Theme,
		Variant:  cfg.Variant,
		Partials: copyStringMap(cfg.Partials),
		Tokens:   copyStringMap(cfg.Tokens),
		CSSVars:  copyStringMap(cfg.CSSVars),
	}
	ctx.CSSVarsStyle = cssVarsStyle(ctx.CSSVars)
	ctx.JSON = themeJSON(ctx)
	return ctx
}

func copyStringMap(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}

func cssVarsStyle(vars map[string]string) string {
	if len(vars) == 0 {
		return ""
	}
	keys := make([]string, 0, len(vars))
	for key := range vars {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(":root {\n")
	for _, key := range keys {
		// Values end up inside a <style> element.
		value := strings.NewReplacer("<", "", ">", "", ";", "").Replace(vars[key])
		b.WriteString(key)
		b.WriteString(": ")
		b.WriteString(value)
		b.WriteString(";\n")
	}
	b.WriteString("}")
	return b.String()
}

func themeJSON(cfg rendererTheme) string {
	payload := struct {
		Name    string            `json:"name,omitempty"`
		Variant string            `json:"variant,omitempty"`
		Tokens  map[string]string `json:"tokens,omitempty"`
		CSSVars map[string]string `json:"cssVars,omitempty"`
	}{
		Name:    cfg.Name,
		Variant: cfg.Variant,
		Tokens:  cfg.Tokens,
		CSSVars: cfg.CSSVars,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return ""
	}
	return string(data)
}
