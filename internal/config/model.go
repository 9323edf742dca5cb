package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Model is the unified representation of a pipeline configuration.
type Model struct {
	// Root is the directory every relative path and pattern resolves against.
	Root string
	// OutputDir receives templates and is emptied by the clean task.
	OutputDir string
	// AssetsDir receives styles, scripts and the image sub-directories.
	AssetsDir string

	Sources Sources
	Watch   Watch
	Server  Server
	Sass    Sass
	ESBuild ESBuild
}

// Sources holds the file-set selectors read by each build task.
type Sources struct {
	Styles     []string
	App        []string
	Components []string
	Templates  []string
	Images     []string
	WebP       []string
	SVG        []string
}

// Watch holds the patterns observed by the watch loop, one set per binding.
type Watch struct {
	Debounce   time.Duration
	Templates  []string
	Styles     []string
	App        []string
	Components []string
}

// Server configures the dev server and its reload channel.
type Server struct {
	Host       string
	Port       int
	Index      string
	ReloadPort int
}

// Sass configures the dart-sass transpiler.
type Sass struct {
	Binary       string
	IncludePaths []string
}

// ESBuild configures script bundling.
type ESBuild struct {
	Target string
}

// Default returns the conventional layout: sources under app/ (vector
// graphics under src/svg), outputs under dist/ with assets in dist/assets.
func Default() *Model {
	return &Model{
		Root:      ".",
		OutputDir: "dist",
		AssetsDir: "dist/assets",
		Sources: Sources{
			Styles:     []string{"./app/scss/style.scss", "./app/scss/components/**/*.scss"},
			App:        []string{"./app/js/app.js"},
			Components: []string{"./app/js/components/*.js"},
			Templates:  []string{"./app/templates/*.html"},
			Images:     []string{"./app/images/**/*"},
			WebP:       []string{"./app/images/**/*", "!./app/images/favicon/**/*"},
			SVG:        []string{"./src/svg/**/*"},
		},
		Watch: Watch{
			Debounce:   150 * time.Millisecond,
			Templates:  []string{"./app/templates/**/*.html"},
			Styles:     []string{"./app/scss/**/*.scss"},
			App:        []string{"./app/js/**/*.js", "!./src/js/{components,components/**}"},
			Components: []string{"./app/js/components/**/*.js"},
		},
		Server: Server{
			Host:       "localhost",
			Port:       8080,
			Index:      "index.html",
			ReloadPort: 3000,
		},
		Sass: Sass{
			Binary:       "sass",
			IncludePaths: []string{"./app/scss"},
		},
		ESBuild: ESBuild{
			Target: "es2015",
		},
	}
}

// Path resolves a model path against Root.
func (m *Model) Path(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Root, filepath.FromSlash(p))
}

// insideRoot fails unless dir resolves to a directory strictly below Root.
// The clean task empties the output directory, so it must never resolve to
// the root itself or anything outside it.
func (m *Model) insideRoot(dir string) error {
	root, err := filepath.Abs(m.Root)
	if err != nil {
		return fmt.Errorf("cannot be resolved: %w", err)
	}
	target, err := filepath.Abs(m.Path(dir))
	if err != nil {
		return fmt.Errorf("cannot be resolved: %w", err)
	}
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return fmt.Errorf("is not inside the project root: %w", err)
	}
	if rel == "." {
		return errors.New("would clean the project root")
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return errors.New("is outside the project root")
	}
	return nil
}

// Validate reports every structural problem of the model at once.
func (m *Model) Validate() error {
	var errs []error
	if strings.TrimSpace(m.OutputDir) == "" {
		errs = append(errs, errors.New("output_dir must not be empty"))
	}
	if strings.TrimSpace(m.AssetsDir) == "" {
		errs = append(errs, errors.New("assets_dir must not be empty"))
	}
	for _, d := range []struct {
		name string
		dir  string
	}{{"output_dir", m.OutputDir}, {"assets_dir", m.AssetsDir}} {
		if strings.TrimSpace(d.dir) == "" {
			continue
		}
		if err := m.insideRoot(d.dir); err != nil {
			errs = append(errs, fmt.Errorf("%s %q %w", d.name, d.dir, err))
		}
	}
	for _, p := range []struct {
		name string
		port int
	}{{"port", m.Server.Port}, {"reload_port", m.Server.ReloadPort}} {
		if p.port < 0 || p.port > 65535 {
			errs = append(errs, fmt.Errorf("server %s %d is out of range", p.name, p.port))
		}
	}
	if m.Server.Port != 0 && m.Server.Port == m.Server.ReloadPort {
		errs = append(errs, fmt.Errorf("server port and reload_port must differ (both %d)", m.Server.Port))
	}
	if m.Server.Index == "" {
		errs = append(errs, errors.New("server index must not be empty"))
	}
	if m.Watch.Debounce < 0 {
		errs = append(errs, errors.New("watch debounce must not be negative"))
	}
	return errors.Join(errs...)
}
