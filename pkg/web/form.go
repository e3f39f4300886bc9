// Package web serves the browser form in front of the prediction service.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/disease-prediction/platform/pkg/common/logger"
	"github.com/disease-prediction/platform/pkg/common/models"
	"github.com/disease-prediction/platform/pkg/serving"
	"github.com/gorilla/mux"
)

//go:embed templates/*.html
var templateFS embed.FS

var ageGroups = []string{"0-10", "11-20", "21-30", "31-40", "41-50", "51-60", "61+"}

type indexView struct {
	Error     string
	AgeGroups []string
	Slots     []int
	Symptoms  []string
}

type resultView struct {
	Disease  string
	Symptoms []string
}

type FormHandler struct {
	service *serving.Service
	slots   int
	index   *template.Template
	result  *template.Template
}

func NewFormHandler(service *serving.Service, slots int) (*FormHandler, error) {
	if slots <= 0 {
		slots = 5
	}
	funcs := template.FuncMap{"humanize": humanize}
	index, err := template.New("index.html").Funcs(funcs).ParseFS(templateFS, "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("parse index template: %w", err)
	}
	result, err := template.New("result.html").Funcs(funcs).ParseFS(templateFS, "templates/result.html")
	if err != nil {
		return nil, fmt.Errorf("parse result template: %w", err)
	}
	return &FormHandler{service: service, slots: slots, index: index, result: result}, nil
}

func (h *FormHandler) Register(router *mux.Router) {
	router.HandleFunc("/", h.handleIndex).Methods(http.MethodGet)
	router.HandleFunc("/predict", h.handlePredict).Methods(http.MethodPost)
}

func (h *FormHandler) handleIndex(w http.ResponseWriter, r *http.Request) {
	h.renderIndex(w, http.StatusOK, "")
}

func (h *FormHandler) handlePredict(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderIndex(w, http.StatusBadRequest, "The form could not be read.")
		return
	}

	req := models.PredictionRequest{
		Name:     r.FormValue("name"),
		Gender:   r.FormValue("gender"),
		AgeGroup: r.FormValue("age"),
		Symptoms: h.symptoms(r),
	}

	resp, err := h.service.Predict(r.Context(), req)
	if err != nil {
		if serving.IsValidationError(err) {
			h.renderIndex(w, http.StatusBadRequest, err.Error())
			return
		}
		logger.Log.WithError(err).Error("form prediction failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	h.render(w, h.result, http.StatusOK, resultView{Disease: resp.Disease, Symptoms: resp.Symptoms})
}

// symptoms reads symptom1..symptomN, skipping empty slots.
func (h *FormHandler) symptoms(r *http.Request) []string {
	var out []string
	for i := 1; i <= h.slots; i++ {
		if s := r.FormValue(fmt.Sprintf("symptom%d", i)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (h *FormHandler) renderIndex(w http.ResponseWriter, status int, msg string) {
	slots := make([]int, h.slots)
	for i := range slots {
		slots[i] = i + 1
	}
	h.render(w, h.index, status, indexView{
		Error:     msg,
		AgeGroups: ageGroups,
		Slots:     slots,
		Symptoms:  h.service.Vocabulary().Names(),
	})
}

func (h *FormHandler) render(w http.ResponseWriter, tmpl *template.Template, status int, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.Execute(w, data); err != nil {
		logger.Log.WithError(err).Error("template render failed")
	}
}

func humanize(id string) string {
	return strings.ReplaceAll(strings.TrimSpace(id), "_", " ")
}
