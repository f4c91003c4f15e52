// Package prompt holds every text sent to the generation services: the fixed
// description request, the build prompt template and the render prompt.
//
// Templates are linear substitution. Any wording that depends on the inputs is
// computed here in Go and passed in as a finished string.
package prompt

import (
	"fmt"
	"strings"
	"text/template"

	"truckbrick/api/internal/brick"
)

const (
	DescribeSystem = "You are an expert in trucks and in brick-model design (Lego Technic and Mould King). " +
		"Describe vehicles precisely enough that a designer can scale them into a brick model."

	DescribeUser = "Describe this truck precisely: vehicle type, year/model if recognisable, body style, colors, " +
		"key features (cab, bed, wheels, exhaust, lights, etc.) and overall proportions " +
		"(length to width to height, wheelbase) for scaling a brick model."

	// Tolerance is the piece-count slack communicated to the generator.
	Tolerance = "±20%"
)

var buildTemplate = template.Must(template.New("build").Parse(`Master {{.Style}} truck designer.
Create a full build guide for a {{.Style}} model inspired by this truck:
{{.Description}}

{{.Target}}

Output in markdown, using exactly these section headings in this order:

## Model Overview
- Name: ...
- Approx total pieces: ...
- Scale: ...
- Approx dimensions: ...
- Key features: ...

## Parts List
The 15-20 most used part types, most used first.
Format: NUMBERx Part Name - Color (e.g. {{.PartExample}})

## Step-by-Step Instructions
15-30 clear, numbered, imperative steps.

## Build Tips
Color substitution, optional motorization, common pitfalls.
`))

type buildData struct {
	Style       string
	Description string
	Target      string
	PartExample string
}

// Build renders the build prompt. It is a pure function of params.
func Build(params brick.BuildRequestParams) (string, error) {
	if !params.Style.Valid() {
		return "", brick.NewPromptError(fmt.Errorf("unknown style %q", params.Style))
	}
	desc := strings.TrimSpace(params.TruckDescription.String())
	if desc == "" {
		return "", brick.NewPromptError(fmt.Errorf("empty truck description"))
	}

	var b strings.Builder
	err := buildTemplate.Execute(&b, buildData{
		Style:       params.Style.String(),
		Description: desc,
		Target:      TargetLine(params),
		PartExample: params.Style.PartExample(),
	})
	if err != nil {
		return "", brick.NewPromptError(err)
	}
	return b.String(), nil
}

// TargetLine is the size instruction. A fixed preset states its ratio and its own
// piece count; a custom target states the count and leaves the scale open.
func TargetLine(params brick.BuildRequestParams) string {
	if params.Custom {
		return fmt.Sprintf("Target: %d pieces (%s is fine). Choose whatever scale fits that piece budget.",
			params.TargetPieces, Tolerance)
	}
	return fmt.Sprintf("Target: %s preset at %s scale, about %d pieces (%s is fine).",
		params.ScaleLabel, params.ScaleRatio, params.TargetPieces, Tolerance)
}

// ScaleText is the human-readable size statement shared by the render prompt and
// the exported guide.
func ScaleText(custom bool, label, ratio string, pieces int) string {
	if custom {
		return fmt.Sprintf("built from about %d pieces", pieces)
	}
	return fmt.Sprintf("at %s scale (%s)", ratio, label)
}

// Render builds the image-generation prompt.
func Render(desc brick.TruckDescription, style brick.Style, scaleText string) string {
	d := strings.TrimSpace(desc.String())
	return fmt.Sprintf("Photorealistic studio photo of a %s brick model of this truck, %s. %s "+
		"Visible plastic bricks, beams and pins, neutral background, soft lighting.",
		style, scaleText, d)
}
