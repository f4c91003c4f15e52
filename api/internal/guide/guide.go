// Package guide turns the instruction service's markdown into a BuildResult and
// renders the downloadable guide document.
package guide

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"truckbrick/api/internal/brick"
	"truckbrick/api/internal/util"
)

type section int

const (
	secNone section = iota
	secOverview
	secParts
	secSteps
	secTips
)

var headingRe = regexp.MustCompile(`^\s{0,3}(#{1,4})\s+(.+?)\s*#*\s*$`)

func classify(heading string) section {
	h := strings.ToLower(heading)
	h = strings.Trim(h, "*_ ")
	switch {
	case strings.Contains(h, "overview"):
		return secOverview
	case strings.Contains(h, "parts"):
		return secParts
	case strings.Contains(h, "step") || strings.Contains(h, "instruction"):
		return secSteps
	case strings.Contains(h, "tip"):
		return secTips
	}
	return secNone
}

// Split segments the generated markdown into the four requested sections. The
// generator is only asked to use those headings, so when any is missing or out of
// order the result is left unsegmented and only Markdown is set.
func Split(markdown string) brick.BuildResult {
	md := util.StripCodeFences(markdown)
	res := brick.BuildResult{Markdown: md}

	bodies := map[section]*strings.Builder{}
	order := make([]section, 0, 4)
	cur := secNone
	level := 0 // heading depth of the section headings, fixed by the first one
	for _, line := range strings.Split(md, "\n") {
		if m := headingRe.FindStringSubmatch(line); m != nil && (level == 0 || len(m[1]) <= level) {
			if s := classify(m[2]); s != secNone {
				if _, seen := bodies[s]; seen {
					return res
				}
				bodies[s] = &strings.Builder{}
				order = append(order, s)
				cur = s
				level = len(m[1])
				continue
			}
		}
		if cur != secNone {
			bodies[cur].WriteString(line)
			bodies[cur].WriteByte('\n')
		}
	}

	want := []section{secOverview, secParts, secSteps, secTips}
	if len(order) != len(want) {
		return res
	}
	for i := range want {
		if order[i] != want[i] {
			return res
		}
	}

	res.Overview = strings.TrimSpace(bodies[secOverview].String())
	res.PartsList = strings.TrimSpace(bodies[secParts].String())
	res.Steps = strings.TrimSpace(bodies[secSteps].String())
	res.Tips = strings.TrimSpace(bodies[secTips].String())
	res.Segmented = true
	return res
}

var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

// FileName names the exported guide, e.g. truckbrick_2026-10-18_medium-shelf-display.md.
func FileName(date time.Time, scaleLabel string) string {
	slug := strings.Trim(slugRe.ReplaceAllString(strings.ToLower(scaleLabel), "-"), "-")
	if slug == "" {
		slug = "custom"
	}
	return fmt.Sprintf("truckbrick_%s_%s.md", date.Format("2006-01-02"), slug)
}

// Meta is the header information of an exported guide.
type Meta struct {
	Date        time.Time
	Style       brick.Style
	ScaleLabel  string
	ScaleText   string
	Pieces      int
	Description brick.TruckDescription
	Render      brick.RenderOutcome
}

// Document renders the downloadable markdown file.
func Document(meta Meta, res brick.BuildResult) string {
	var b strings.Builder
	b.WriteString("# TruckBrick build guide\n\n")
	fmt.Fprintf(&b, "- Date: %s\n", meta.Date.Format("2006-01-02"))
	fmt.Fprintf(&b, "- Style: %s\n", meta.Style)
	fmt.Fprintf(&b, "- Scale: %s, %s\n", meta.ScaleLabel, meta.ScaleText)
	fmt.Fprintf(&b, "- Target pieces: about %d\n", meta.Pieces)
	if d := strings.TrimSpace(meta.Description.String()); d != "" {
		b.WriteString("\n## Source truck\n\n")
		b.WriteString(d)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(strings.TrimSpace(res.Markdown))
	b.WriteString("\n")
	if meta.Render.Available() && meta.Render.Ref.URL != "" {
		fmt.Fprintf(&b, "\n## Render\n\n![AI render](%s)\n", meta.Render.Ref.URL)
	}
	return b.String()
}
