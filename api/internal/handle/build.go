package handle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"truckbrick/api/internal/brick"
	"truckbrick/api/internal/imagecodec"
	"truckbrick/api/internal/pipeline"
)

// BuildRequest is the POST /v1/build body. Image is base64 or a data URL.
type BuildRequest struct {
	LLMName      string `json:"llm_name"`
	Image        string `json:"image"`
	Style        string `json:"style"`
	Scale        string `json:"scale"`
	CustomPieces int    `json:"custom_pieces"`
	Render       bool   `json:"render"`
}

// maxBodyBytes caps the JSON body; a base64 photo grows by a third.
var maxBodyBytes int64 = 32 << 20

type BuildResponse struct {
	*pipeline.Result
	RenderError string `json:"render_error,omitempty"`
	FileName    string `json:"file_name"`
}

// Build runs the pipeline for one uploaded photo. With ?format=markdown the
// response is the downloadable guide instead of JSON.
func (h *Handle) Build(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "POST only"})
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req BuildRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{
				Error: "request body too large",
				Code:  string(brick.ErrCodeInvalidImage),
				Stage: string(brick.StageEncode),
			})
			return
		}
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad json: " + err.Error()})
		return
	}

	photo, declared, err := imagecodec.DecodeBase64MaybeDataURL(req.Image)
	if err != nil || len(photo) == 0 {
		if err == nil {
			err = fmt.Errorf("image is empty")
		}
		writeError(w, brick.NewInvalidImageError(err))
		return
	}
	// orientation is fixed here, before the pipeline sees the photo
	img, err := imagecodec.DecodeUpright(photo)
	if err != nil {
		writeError(w, withDeclaredType(err, declared, photo))
		return
	}

	engine, err := h.engs.GetEngine(req.LLMName)
	if err != nil {
		writeError(w, brick.NewConfigurationError(err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestDeadline(r))
	defer cancel()

	res, err := h.pipe.WithEngine(engine).Run(ctx, pipeline.Request{
		Image:        img,
		Style:        req.Style,
		Scale:        req.Scale,
		CustomPieces: req.CustomPieces,
		Render:       req.Render,
	})
	if err != nil {
		h.log.WithError(err).Warn("build failed", map[string]interface{}{"engine": engine.Name()})
		writeError(w, err)
		return
	}

	if strings.EqualFold(r.URL.Query().Get("format"), "markdown") {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", res.FileName()))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(res.Document()))
		return
	}

	out := BuildResponse{Result: res, FileName: res.FileName()}
	if res.Render.Err != nil {
		out.RenderError = brick.UserMessage(res.Render.Err)
	}
	writeJSON(w, http.StatusOK, out)
}

// withDeclaredType notes the data URL's MIME type next to the sniffed one.
func withDeclaredType(err error, declared string, photo []byte) error {
	var se *brick.StandardError
	if declared == "" || !errors.As(err, &se) {
		return err
	}
	se.Details = fmt.Sprintf("declared %s, got %s: %s", declared, imagecodec.SniffMIME(photo), se.Details)
	return se
}
