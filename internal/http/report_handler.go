package http

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/example/roombooking/internal/application"
	"github.com/example/roombooking/internal/report"
	"github.com/example/roombooking/internal/timegrid"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type weekScheduleService interface {
	WeekSchedule(ctx context.Context, day timegrid.Date) (application.WeekSchedule, error)
}

type ReportHandler struct {
	service   weekScheduleService
	responder responder
	logger    *slog.Logger
}

func NewReportHandler(service weekScheduleService, logger *slog.Logger) *ReportHandler {
	base := defaultLogger(logger)
	return &ReportHandler{service: service, responder: newResponder(base), logger: base}
}

// Week serves GET /reports/week?week=YYYY-MM-DD as an XLSX download. Any day
// of the wanted week works; no date means the current week.
func (h *ReportHandler) Week(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var day timegrid.Date
	if raw := strings.TrimSpace(r.URL.Query().Get("week")); raw != "" {
		parsed, err := timegrid.ParseDate(raw)
		if err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
			return
		}
		day = parsed
	}

	logger := handlerLogger(r.Context(), h.logger, "ReportHandler", "Week", "week", day.String())
	week, err := h.service.WeekSchedule(r.Context(), day)
	if err != nil {
		logger.ErrorContext(r.Context(), "week schedule failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	var buf bytes.Buffer
	if err := report.WriteWeekXLSX(&buf, week); err != nil {
		logger.ErrorContext(r.Context(), "week report rendering failed", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusInternalServerError, nil)
		return
	}

	filename := "bookings-week.xlsx"
	if len(week.Days) > 0 {
		filename = fmt.Sprintf("bookings-week-%s.xlsx", week.Days[0])
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		logger.WarnContext(r.Context(), "failed to stream week report", "error", err)
		return
	}
	logger.With("entry_count", len(week.Entries)).InfoContext(r.Context(), "week report served")
}
