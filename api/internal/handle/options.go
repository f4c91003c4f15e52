package handle

import (
	"net/http"

	"truckbrick/api/internal/brick"
	"truckbrick/api/internal/scale"
)

type scalesResponse struct {
	Scales    []scale.Preset `json:"scales"`
	Default   string         `json:"default"`
	CustomMin int            `json:"custom_min"`
	CustomMax int            `json:"custom_max"`
}

func (h *Handle) Scales(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "GET only"})
		return
	}
	cat := h.pipe.Catalog()
	writeJSON(w, http.StatusOK, scalesResponse{
		Scales:    cat.Presets(),
		Default:   cat.Default().Key,
		CustomMin: scale.MinCustomPieces,
		CustomMax: scale.MaxCustomPieces,
	})
}

type styleOption struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

type stylesResponse struct {
	Styles  []styleOption `json:"styles"`
	Engines []string      `json:"engines"`
	Render  bool          `json:"render"`
}

func (h *Handle) Styles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "GET only"})
		return
	}
	out := stylesResponse{Engines: h.engs.Available(), Render: h.pipe.CanRender()}
	for _, s := range brick.Styles() {
		out.Styles = append(out.Styles, styleOption{Key: s.Key(), Label: s.String()})
	}
	writeJSON(w, http.StatusOK, out)
}
