package web

import (
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/skip2/go-qrcode"

	"github.com/fernwey/atlas-travel-agent/internal/buildinfo"
	"github.com/fernwey/atlas-travel-agent/internal/mailer"
	"github.com/fernwey/atlas-travel-agent/internal/planner"
	"github.com/fernwey/atlas-travel-agent/internal/render"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	deps := map[string]any{}
	if s.watch != nil {
		for name, svc := range s.watch.Status() {
			deps[name] = svc
			if !svc.Ready {
				status = "degraded"
			}
		}
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]any{
		"status":       status,
		"version":      buildinfo.Version,
		"uptime":       buildinfo.Uptime().String(),
		"dependencies": deps,
	}, s.logger)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := map[string]any{
		"uptime_seconds": int64(time.Since(s.started).Seconds()),
		"session": map[string]int64{
			"active_connections": s.conns.Load(),
			"messages":           s.messages.Load(),
			"plans_built":        s.plansBuilt.Load(),
			"failures":           s.failures.Load(),
		},
		"router": s.pipeline.router.GetStats(),
	}
	if s.usage != nil {
		sum, err := s.usage.Summary(time.Time{}, time.Now())
		if err != nil {
			s.logger.Warn("usage summary failed", "error", err)
		} else {
			stats["advisor"] = map[string]any{
				"calls":         sum.TotalRecords,
				"input_tokens":  sum.TotalInputTokens,
				"output_tokens": sum.TotalOutputTokens,
				"cost_usd":      sum.TotalCostUSD,
			}
		}
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, stats, s.logger)
}

// planRequest is the REST body for building a plan. Dates are
// "2006-01-02"; everything except destination is optional.
type planRequest struct {
	Destination string  `json:"destination"`
	Origin      string  `json:"origin"`
	StartDate   string  `json:"start_date"`
	EndDate     string  `json:"end_date"`
	Days        int     `json:"days"`
	Budget      float64 `json:"budget"`
	People      int     `json:"people"`
}

func (pr planRequest) toPlannerRequest() (planner.Request, error) {
	req := planner.Request{
		Destination: pr.Destination,
		Origin:      pr.Origin,
		Days:        pr.Days,
		Budget:      pr.Budget,
		People:      pr.People,
	}
	var err error
	if pr.StartDate != "" {
		if req.StartDate, err = time.Parse("2006-01-02", pr.StartDate); err != nil {
			return req, fmt.Errorf("bad start_date %q: want 2006-01-02", pr.StartDate)
		}
	}
	if pr.EndDate != "" {
		if req.EndDate, err = time.Parse("2006-01-02", pr.EndDate); err != nil {
			return req, fmt.Errorf("bad end_date %q: want 2006-01-02", pr.EndDate)
		}
	}
	return req, nil
}

func (s *Server) handlePlanCreate(w http.ResponseWriter, r *http.Request) {
	var body planRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		errorResponse(w, http.StatusBadRequest, "invalid request body", "bad_request", s.logger)
		return
	}
	req, err := body.toPlannerRequest()
	if err != nil {
		errorResponse(w, http.StatusBadRequest, err.Error(), "bad_request", s.logger)
		return
	}

	plan, err := s.pipeline.planner.Build(req)
	if err != nil {
		errorResponse(w, http.StatusBadRequest, err.Error(), "bad_request", s.logger)
		return
	}
	if s.pipeline.plans != nil {
		s.pipeline.plans.Put(plan)
	}
	s.plansBuilt.Add(1)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, plan, s.logger)
}

// lookupPlan resolves {id} or writes the error response itself.
func (s *Server) lookupPlan(w http.ResponseWriter, r *http.Request) (*planner.Plan, bool) {
	if s.pipeline.plans == nil {
		errorResponse(w, http.StatusServiceUnavailable, "plan store not configured", "unavailable", s.logger)
		return nil, false
	}
	plan, ok := s.pipeline.plans.Get(r.PathValue("id"))
	if !ok {
		errorResponse(w, http.StatusNotFound, "plan not found", "not_found", s.logger)
		return nil, false
	}
	return plan, true
}

func (s *Server) handlePlanGet(w http.ResponseWriter, r *http.Request) {
	plan, ok := s.lookupPlan(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, plan, s.logger)
}

func (s *Server) handlePlanICS(w http.ResponseWriter, r *http.Request) {
	plan, ok := s.lookupPlan(w, r)
	if !ok {
		return
	}
	cal := planCalendar(plan, s.planURL(r, plan.ID))
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=trip-%s.ics", plan.ID))
	if _, err := io.WriteString(w, cal); err != nil {
		s.logger.Debug("failed to write calendar", "error", err)
	}
}

func (s *Server) handlePlanQR(w http.ResponseWriter, r *http.Request) {
	plan, ok := s.lookupPlan(w, r)
	if !ok {
		return
	}
	png, err := qrcode.Encode(s.planURL(r, plan.ID), qrcode.Medium, 256)
	if err != nil {
		errorResponse(w, http.StatusInternalServerError, "qr encoding failed", "internal", s.logger)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if _, err := w.Write(png); err != nil {
		s.logger.Debug("failed to write QR image", "error", err)
	}
}

// emailRequest is the REST body for mailing an itinerary.
type emailRequest struct {
	To      []string `json:"to"`
	Cc      []string `json:"cc"`
	Subject string   `json:"subject"`
}

func (s *Server) handlePlanEmail(w http.ResponseWriter, r *http.Request) {
	if !s.mailer.Enabled() {
		errorResponse(w, http.StatusServiceUnavailable, "mail not configured", "unavailable", s.logger)
		return
	}
	plan, ok := s.lookupPlan(w, r)
	if !ok {
		return
	}

	var body emailRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		errorResponse(w, http.StatusBadRequest, "invalid request body", "bad_request", s.logger)
		return
	}
	if len(body.To) == 0 {
		errorResponse(w, http.StatusBadRequest, "no recipients", "bad_request", s.logger)
		return
	}
	subject := body.Subject
	if subject == "" {
		subject = fmt.Sprintf("您的%s行程计划", plan.Destination)
	}

	rc := plan.RenderContext()
	err := s.mailer.Send(r.Context(), mailer.Message{
		To:      body.To,
		Cc:      body.Cc,
		Subject: subject,
		Body:    s.pipeline.renderer.Plan(&rc, render.LevelFull),
	})
	if err != nil {
		errorResponse(w, http.StatusBadGateway, "mail delivery failed: "+err.Error(), "delivery_failed", s.logger)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]any{
		"status":     "sent",
		"recipients": len(body.To) + len(body.Cc),
	}, s.logger)
}

func (s *Server) handleTemplateList(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		errorResponse(w, http.StatusServiceUnavailable, "templates not configured", "unavailable", s.logger)
		return
	}
	names := s.templates.List()
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]any{
		"count":     len(names),
		"templates": names,
	}, s.logger)
}

func (s *Server) handleTemplateReload(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		errorResponse(w, http.StatusServiceUnavailable, "templates not configured", "unavailable", s.logger)
		return
	}
	if err := s.templates.ReloadAll(); err != nil {
		errorResponse(w, http.StatusInternalServerError, err.Error(), "reload_failed", s.logger)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]any{
		"status":   "ok",
		"reloaded": len(s.templates.List()),
	}, s.logger)
}

func (s *Server) handleConversationList(w http.ResponseWriter, r *http.Request) {
	if s.pipeline.transcripts == nil {
		errorResponse(w, http.StatusServiceUnavailable, "transcript store not configured", "unavailable", s.logger)
		return
	}
	convs, err := s.pipeline.transcripts.Conversations(r.Context(), parseLimit(r, 20))
	if err != nil {
		errorResponse(w, http.StatusInternalServerError, err.Error(), "internal", s.logger)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]any{
		"count":         len(convs),
		"conversations": convs,
	}, s.logger)
}

func (s *Server) handleConversationGet(w http.ResponseWriter, r *http.Request) {
	if s.pipeline.transcripts == nil {
		errorResponse(w, http.StatusServiceUnavailable, "transcript store not configured", "unavailable", s.logger)
		return
	}
	id := r.PathValue("id")
	msgs, err := s.pipeline.transcripts.Messages(r.Context(), id, parseLimit(r, 100))
	if err != nil {
		errorResponse(w, http.StatusInternalServerError, err.Error(), "internal", s.logger)
		return
	}
	if len(msgs) == 0 {
		errorResponse(w, http.StatusNotFound, "conversation not found", "not_found", s.logger)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]any{
		"id":       id,
		"count":    len(msgs),
		"messages": msgs,
	}, s.logger)
}

func parseLimit(r *http.Request, def int) int {
	limit := def
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	return limit
}

const planPageTmpl = `<!DOCTYPE html>
<html lang="zh-CN">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>%s</title>
<style>
body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; margin: 0; background: linear-gradient(135deg, #667eea 0px, #764ba2 600px); min-height: 100vh; }
main { max-width: 720px; margin: 40px auto; background: white; border-radius: 15px; padding: 30px; box-shadow: 0 10px 30px rgba(0,0,0,0.2); }
pre { white-space: pre-wrap; word-break: break-word; font-family: inherit; font-size: 15px; line-height: 1.7; margin: 0; }
</style>
</head>
<body>
<main><pre>%s</pre></main>
</body>
</html>
`

// handlePlanPage is the shareable read-only view a plan QR code points
// at. Plain HTML, no scripts.
func (s *Server) handlePlanPage(w http.ResponseWriter, r *http.Request) {
	var plan *planner.Plan
	if s.pipeline.plans != nil {
		plan, _ = s.pipeline.plans.Get(r.PathValue("id"))
	}
	if plan == nil {
		http.NotFound(w, r)
		return
	}

	rc := plan.RenderContext()
	text := s.pipeline.renderer.Plan(&rc, render.LevelFull)
	title := fmt.Sprintf("%s行程 · Atlas", plan.Destination)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := fmt.Fprintf(w, planPageTmpl, html.EscapeString(title), html.EscapeString(text)); err != nil {
		s.logger.Debug("failed to write plan page", "error", err)
	}
}
