// Package pipeline wires the asset build pipeline into the registry: one
// task per asset type, the clean task, production minification, and the
// long-running serve and watch tasks.
package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/euphroshub/minimalist-stack/internal/config"
	"github.com/euphroshub/minimalist-stack/internal/devserver"
	"github.com/euphroshub/minimalist-stack/internal/fsutil"
	"github.com/euphroshub/minimalist-stack/internal/registry"
	"github.com/euphroshub/minimalist-stack/internal/task"
	"github.com/euphroshub/minimalist-stack/internal/transform"
	"github.com/euphroshub/minimalist-stack/internal/watch"
	"github.com/evanw/esbuild/pkg/api"
)

// Task names registered by this module.
const (
	TaskClean      = "clean"
	TaskStyles     = "styles"
	TaskApp        = "app"
	TaskComponents = "components"
	TaskHTML       = "html"
	TaskImages     = "images"
	TaskWebP       = "webp"
	TaskSVG        = "svg"
	TaskMinifyCSS  = "minify-css"
	TaskMinifyJS   = "minify-js"
	TaskServeStart = "serve-start"
	TaskWatchStart = "watch-start"
)

// Module implements the registry.Module interface for this package.
type Module struct {
	cfg       *config.Model
	selectors selectors
	target    api.Target
	sass      *transform.Sass

	// concurrency bounds per-file work inside each invoker; zero means one
	// worker per CPU.
	concurrency int

	mu       sync.Mutex
	tasks    map[string]*task.Task
	server   *devserver.Server
	loop     *watch.Loop
	stopLoop context.CancelFunc
}

// selectors holds the compiled file sets of the pipeline configuration.
type selectors struct {
	styles, app, components, templates, images, webp, svg *fsutil.Selector

	watchTemplates, watchStyles, watchApp, watchComponents *fsutil.Selector
}

// New compiles the selectors and settings of cfg. Invalid patterns or an
// unknown esbuild target are reported here, before any task runs.
func New(cfg *config.Model) (*Module, error) {
	target, err := transform.ParseTarget(cfg.ESBuild.Target)
	if err != nil {
		return nil, err
	}

	m := &Module{
		cfg:    cfg,
		target: target,
		sass:   transform.NewSass(cfg.Sass.Binary, resolveAll(cfg, cfg.Sass.IncludePaths)),
		tasks:  make(map[string]*task.Task),
	}

	compile := []struct {
		name     string
		patterns []string
		dst      **fsutil.Selector
	}{
		{"sources.styles", cfg.Sources.Styles, &m.selectors.styles},
		{"sources.app", cfg.Sources.App, &m.selectors.app},
		{"sources.components", cfg.Sources.Components, &m.selectors.components},
		{"sources.templates", cfg.Sources.Templates, &m.selectors.templates},
		{"sources.images", cfg.Sources.Images, &m.selectors.images},
		{"sources.webp", cfg.Sources.WebP, &m.selectors.webp},
		{"sources.svg", cfg.Sources.SVG, &m.selectors.svg},
		{"watch.templates", cfg.Watch.Templates, &m.selectors.watchTemplates},
		{"watch.styles", cfg.Watch.Styles, &m.selectors.watchStyles},
		{"watch.app", cfg.Watch.App, &m.selectors.watchApp},
		{"watch.components", cfg.Watch.Components, &m.selectors.watchComponents},
	}
	for _, c := range compile {
		if len(c.patterns) == 0 {
			continue
		}
		sel, err := fsutil.NewSelector(c.patterns...)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", c.name, err)
		}
		*c.dst = sel
	}
	return m, nil
}

// Register registers the pipeline tasks and commands with the registry.
func (m *Module) Register(r *registry.Registry) {
	leaves := []*task.Task{
		task.New(TaskClean, m.clean),
		task.New(TaskStyles, m.invoke(m.selectors.styles, m.assetsDir(), m.sass)),
		task.New(TaskApp, m.invoke(m.selectors.app, m.assetsDir(), &transform.ESBuild{
			OutDir: m.assetsDir(), Outfile: "app.js", Target: m.target,
		})),
		task.New(TaskComponents, m.invoke(m.selectors.components, m.assetsDir(), &transform.ESBuild{
			OutDir: m.assetsDir(), Target: m.target,
		})),
		task.New(TaskHTML, m.invoke(m.selectors.templates, m.outputDir(), transform.Copy{})),
		task.New(TaskImages, m.invoke(m.selectors.images, m.assetsSub("images"), transform.NewImageOptimize())),
		task.New(TaskWebP, m.invoke(m.selectors.webp, m.assetsSub("webp"), transform.WebP{})),
		task.New(TaskSVG, m.invoke(m.selectors.svg, m.assetsSub("svg"), transform.Copy{})),
		task.New(TaskMinifyCSS, m.minify(".css")),
		task.New(TaskMinifyJS, m.minify(".js")),
		task.New(TaskServeStart, m.serveStart),
		task.New(TaskWatchStart, m.watchStart),
	}

	m.mu.Lock()
	for _, t := range leaves {
		r.Register(t.Name, t)
		m.tasks[t.Name] = t
	}
	m.mu.Unlock()

	m.registerCommands(r)
}

func resolveAll(cfg *config.Model, paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		out = append(out, cfg.Path(p))
	}
	return out
}

var _ registry.Module = (*Module)(nil)
