package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"blofin-trading-bot/config"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}

// handleStartBot starts the trading worker
func (s *Server) handleStartBot(c *gin.Context) {
	if !s.controller.Start(s.bot.Run) {
		c.JSON(http.StatusConflict, gin.H{"error": "bot is already running"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "started"})
}

// handleStopBot stops the trading worker
func (s *Server) handleStopBot(c *gin.Context) {
	if !s.controller.Stop() {
		c.JSON(http.StatusConflict, gin.H{"error": "bot is not running"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "stopped"})
}

// handleBotStatus reports the worker state and cached cycle information
func (s *Server) handleBotStatus(c *gin.Context) {
	status := gin.H{
		"running":        s.controller.IsRunning(),
		"open_positions": len(s.bot.HeldPositions()),
	}
	if last := s.bot.LastCycleTime(); !last.IsZero() {
		status["last_cycle"] = last.UTC()
	}
	c.JSON(http.StatusOK, status)
}

// handlePositions serves the positions observed at the last cycle
func (s *Server) handlePositions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"positions": s.bot.HeldPositions()})
}

// handleOpportunities serves the most recent scan result
func (s *Server) handleOpportunities(c *gin.Context) {
	result := s.scanner.LastResult()
	if result == nil {
		c.JSON(http.StatusOK, gin.H{"scan": nil, "message": "no scan completed yet"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"scan": result})
}

// handleGetSettings returns the current trading parameters
func (s *Server) handleGetSettings(c *gin.Context) {
	snap, err := s.settings.Snapshot(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, snap)
}

// handleUpdateSettings replaces the trading parameters. The running worker
// picks the change up at its next cycle boundary.
func (s *Server) handleUpdateSettings(c *gin.Context) {
	var snap config.Snapshot
	if err := c.ShouldBindJSON(&snap); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid settings payload: " + err.Error()})
		return
	}

	if err := s.settings.Update(c.Request.Context(), snap); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.logger.Info().
		Str("timeframe", snap.Timeframe).
		Float64("position_size", snap.PositionSize).
		Int("leverage", snap.Leverage).
		Int("max_positions", snap.MaxPositions).
		Msg("trading settings updated")

	c.JSON(http.StatusOK, snap)
}
