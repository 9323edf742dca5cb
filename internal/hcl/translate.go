// This file contains the logic for translating the HCL schema structs into
// the format-agnostic model defined in the config package.

package hcl

import (
	"fmt"
	"time"

	"github.com/euphroshub/minimalist-stack/internal/config"
	"github.com/euphroshub/minimalist-stack/internal/schema"
)

// translate overlays every value present in the parsed file onto model.
func translate(f *schema.PipelineFile, model *config.Model) error {
	setString(&model.OutputDir, f.OutputDir)
	setString(&model.AssetsDir, f.AssetsDir)

	if s := f.Sources; s != nil {
		setList(&model.Sources.Styles, s.Styles)
		setList(&model.Sources.App, s.App)
		setList(&model.Sources.Components, s.Components)
		setList(&model.Sources.Templates, s.Templates)
		setList(&model.Sources.Images, s.Images)
		setList(&model.Sources.WebP, s.WebP)
		setList(&model.Sources.SVG, s.SVG)
	}

	if w := f.Watch; w != nil {
		if w.Debounce != nil {
			d, err := time.ParseDuration(*w.Debounce)
			if err != nil {
				return fmt.Errorf("watch debounce: %w", err)
			}
			model.Watch.Debounce = d
		}
		setList(&model.Watch.Templates, w.Templates)
		setList(&model.Watch.Styles, w.Styles)
		setList(&model.Watch.App, w.App)
		setList(&model.Watch.Components, w.Components)
	}

	if s := f.Server; s != nil {
		setString(&model.Server.Host, s.Host)
		setInt(&model.Server.Port, s.Port)
		setString(&model.Server.Index, s.Index)
		setInt(&model.Server.ReloadPort, s.ReloadPort)
	}

	if s := f.Sass; s != nil {
		setString(&model.Sass.Binary, s.Binary)
		setList(&model.Sass.IncludePaths, s.IncludePaths)
	}

	if e := f.ESBuild; e != nil {
		setString(&model.ESBuild.Target, e.Target)
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

// setList replaces dst when the attribute was present. An explicitly empty
// list clears the default.
func setList(dst *[]string, v []string) {
	if v != nil {
		*dst = v
	}
}
