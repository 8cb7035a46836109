package webui

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/BrandonDHaskell/visitrack/internal/visitrack/service"
	"github.com/BrandonDHaskell/visitrack/internal/visitrack/types"
)

const recentEntries = 5

type hourlyBar struct {
	service.HourlyPoint
	Height int // percent of the busiest hour
}

type categoryShare struct {
	service.CategoryPoint
	Share int // percent of all categories
}

func (s *Server) render(c *gin.Context, status int, page string, data gin.H) {
	data["Page"] = page
	data["Inference"] = s.inference
	c.HTML(status, page, data)
}

func (s *Server) internalError(c *gin.Context, what string, err error) {
	s.logger.Printf("webui %s error: %v", what, err)
	s.render(c, http.StatusInternalServerError, "error", gin.H{
		"Title":   "Error",
		"Message": "unexpected server error",
	})
}

func (s *Server) handleDashboard(c *gin.Context) {
	entries, err := s.logs.Query(c.Request.Context(), types.LogFilter{})
	if err != nil {
		s.internalError(c, "dashboard", err)
		return
	}
	stats := service.ComputeStats(entries)

	recent := entries
	if len(recent) > recentEntries {
		recent = recent[:recentEntries]
	}

	s.render(c, http.StatusOK, "dashboard", gin.H{
		"Title":      "Dashboard",
		"Stats":      stats,
		"Hourly":     hourlyBars(stats.Hourly),
		"Categories": categoryShares(stats.Categories),
		"Recent":     recent,
	})
}

func hourlyBars(points []service.HourlyPoint) []hourlyBar {
	peak := 0
	for _, p := range points {
		peak = max(peak, p.Visitors)
	}
	out := make([]hourlyBar, 0, len(points))
	for _, p := range points {
		h := 0
		if peak > 0 {
			h = p.Visitors * 100 / peak
		}
		out = append(out, hourlyBar{HourlyPoint: p, Height: h})
	}
	return out
}

func categoryShares(points []service.CategoryPoint) []categoryShare {
	total := 0
	for _, p := range points {
		total += p.Value
	}
	out := make([]categoryShare, 0, len(points))
	for _, p := range points {
		sh := 0
		if total > 0 {
			sh = p.Value * 100 / total
		}
		out = append(out, categoryShare{CategoryPoint: p, Share: sh})
	}
	return out
}

func (s *Server) handleScanner(c *gin.Context) {
	s.render(c, http.StatusOK, "scanner", gin.H{
		"Title": "Live Scanner",
	})
}

func (s *Server) handleLogs(c *gin.Context) {
	search := c.Query("q")
	rawType := c.Query("type")

	data := gin.H{
		"Title":   "Visitor Logs",
		"Search":  search,
		"Type":    rawType,
		"Types":   []types.EntryType{types.CheckIn, types.CheckOut, types.Denied},
		"Entries": []types.LogEntry{},
	}

	et, err := types.ParseEntryFilter(rawType)
	if err != nil {
		if errors.Is(err, types.ErrInvalidEntryType) {
			data["Error"] = err.Error()
			s.render(c, http.StatusBadRequest, "logs", data)
			return
		}
		s.internalError(c, "logs", err)
		return
	}

	entries, err := s.logs.Query(c.Request.Context(), types.LogFilter{Search: search, EntryType: et})
	if err != nil {
		s.internalError(c, "logs", err)
		return
	}
	data["Type"] = string(et)
	data["Entries"] = entries
	data["ExportURL"] = exportURL(search, et)
	s.render(c, http.StatusOK, "logs", data)
}

// exportURL links the CSV export with the table's current filter.
func exportURL(search string, et types.EntryType) string {
	q := url.Values{}
	if search != "" {
		q.Set("q", search)
	}
	if et != "" {
		q.Set("type", string(et))
	}
	if len(q) == 0 {
		return "/v1/logs/export.csv"
	}
	return "/v1/logs/export.csv?" + q.Encode()
}

func (s *Server) handleDatabase(c *gin.Context) {
	profiles, err := s.profiles.Profiles(c.Request.Context())
	if err != nil {
		s.internalError(c, "database", err)
		return
	}
	s.render(c, http.StatusOK, "database", gin.H{
		"Title":    "Face Database",
		"Profiles": profiles,
	})
}

func (s *Server) handleNotFound(c *gin.Context) {
	s.render(c, http.StatusNotFound, "error", gin.H{
		"Title":   "Not Found",
		"Message": "no page at " + c.Request.URL.Path,
	})
}
