package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/campusqa/moderation/internal/messaging"
	"github.com/campusqa/moderation/internal/report"
)

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, userFromContext(r.Context()))
}

func (h *Handler) fileReport(w http.ResponseWriter, r *http.Request) {
	var req report.FileReport
	if err := decodeBody(r, &req); err != nil {
		writeMappedError(w, r, "file report", fmt.Errorf("%w: %v", errInvalidBody, err))
		return
	}
	req.ReporterID = userFromContext(r.Context()).ID

	rep, err := h.Reports.File(r.Context(), req)
	if err != nil {
		writeMappedError(w, r, "file report", err)
		return
	}

	ev := messaging.NewEvent(messaging.EventReportFiled)
	ev.ActorID = rep.ReporterID
	ev.UserID = rep.ReportedUserID
	ev.ReportID = rep.ID
	ev.ContentID = rep.ContentID
	ev.ContentType = string(rep.ContentType)
	ev.Category = rep.Category
	h.emit(ev)

	writeSuccess(w, http.StatusCreated, rep)
}

// listReports serves ?status=pending|resolved|all; pending is the default.
func (h *Handler) listReports(w http.ResponseWriter, r *http.Request) {
	status := report.Status(r.URL.Query().Get("status"))
	switch status {
	case "":
		status = report.StatusPending
	case "all":
		status = ""
	}

	list, err := h.Reports.List(r.Context(), status)
	if err != nil {
		writeMappedError(w, r, "list reports", err)
		return
	}
	if list == nil {
		list = []report.Report{}
	}
	writeSuccess(w, http.StatusOK, list)
}

func (h *Handler) getReport(w http.ResponseWriter, r *http.Request) {
	rep, err := h.Reports.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeMappedError(w, r, "get report", err)
		return
	}
	writeSuccess(w, http.StatusOK, rep)
}

func (h *Handler) resolveReport(w http.ResponseWriter, r *http.Request) {
	var req report.ResolveReport
	if err := decodeBody(r, &req); err != nil {
		writeMappedError(w, r, "resolve report", fmt.Errorf("%w: %v", errInvalidBody, err))
		return
	}
	req.ReportID = chi.URLParam(r, "id")
	req.ResolvedBy = userFromContext(r.Context()).ID

	rep, err := h.Moderator.Resolve(r.Context(), req)
	if err != nil {
		writeMappedError(w, r, "resolve report", err)
		return
	}
	writeSuccess(w, http.StatusOK, rep)
}
