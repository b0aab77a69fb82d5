package http

import (
	"net/http"
	"strconv"
	"time"

	commonhttp "github.com/AlibekovAA/recordkeeper/internal/common/http"
	"github.com/AlibekovAA/recordkeeper/internal/common/jwtverify"
	"github.com/AlibekovAA/recordkeeper/internal/common/logger"
	"github.com/AlibekovAA/recordkeeper/internal/recording/report"
	"github.com/AlibekovAA/recordkeeper/internal/recording/service"
)

type Handler struct {
	recordings *service.RecordingService
	reports    report.Renderer
	log        *logger.Logger
	errs       *commonhttp.ErrorHandler
}

type Options struct {
	Recordings     *service.RecordingService
	Reports        report.Renderer
	Live           http.Handler
	Verifier       *jwtverify.Verifier
	Log            *logger.Logger
	RequestTimeout time.Duration
}

// NewHandler serves /recordings, /recordings/live and /reports, all behind
// the auth gate.
func NewHandler(opts Options) http.Handler {
	h := &Handler{
		recordings: opts.Recordings,
		reports:    opts.Reports,
		log:        opts.Log,
		errs:       commonhttp.NewErrorHandler(opts.Log),
	}
	gate := jwtverify.Middleware(opts.Verifier, opts.Log)
	timeout := commonhttp.WithTimeout(opts.RequestTimeout)

	mux := http.NewServeMux()
	mux.Handle("/recordings", gate(timeout(h.recordingsRoot)))
	mux.Handle("/reports", gate(commonhttp.RequireMethod(http.MethodGet)(timeout(h.report))))
	if opts.Live != nil {
		mux.Handle("/recordings/live", gate(opts.Live))
	}
	return mux
}

func (h *Handler) recordingsRoot(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.create(w, r)
	case http.MethodGet:
		h.list(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		commonhttp.WriteErrorEnvelope(w, http.StatusMethodNotAllowed, commonhttp.CodeMethodNotAllowed, "method not allowed", nil, commonhttp.TraceIDFromContext(r.Context()))
	}
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	claims, _ := jwtverify.FromContext(r.Context())

	var body map[string]any
	if err := commonhttp.DecodeJSON(r, &body); err != nil || body == nil {
		h.log.WithFields(r.Context(), logger.Fields{
			"user_id": claims.UserID,
			"action":  "recording_invalid_json",
		}).Warnf("create recording failed: invalid json: %v", err)
		commonhttp.WriteErrorEnvelope(w, http.StatusBadRequest, commonhttp.CodeInvalidJSON, "body must be a JSON object", nil, commonhttp.TraceIDFromContext(r.Context()))
		return
	}

	rec, err := h.recordings.Create(r.Context(), claims.UserID, body)
	if err != nil {
		h.errs.HandleError(w, r, err)
		return
	}

	commonhttp.WriteJSON(w, http.StatusOK, rec)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	q := service.DefaultListQuery()
	q.StartDate = values.Get("startDate")
	q.EndDate = values.Get("endDate")

	var err error
	if q.Page, err = intParam(values.Get("page"), q.Page); err != nil {
		h.errs.HandleError(w, r, service.ErrInvalidPagination.WithCause(err))
		return
	}
	if q.Limit, err = intParam(values.Get("limit"), q.Limit); err != nil {
		h.errs.HandleError(w, r, service.ErrInvalidPagination.WithCause(err))
		return
	}

	result, err := h.recordings.List(r.Context(), q)
	if err != nil {
		h.errs.HandleError(w, r, err)
		return
	}

	commonhttp.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) report(w http.ResponseWriter, r *http.Request) {
	period, err := report.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		h.errs.HandleError(w, r, err)
		return
	}

	data, err := h.reports.Render(r.Context(), period)
	if err != nil {
		h.errs.HandleError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func intParam(value string, fallback int) (int, error) {
	if value == "" {
		return fallback, nil
	}
	return strconv.Atoi(value)
}
