package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/burrow-dns/burrow/pkg/types"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleSummary(c *gin.Context) {
	stats := s.arena.Snapshot()

	percent := 0.0
	if stats.Queries > 0 {
		percent = 100 * float64(stats.Blocked) / float64(stats.Queries)
	}

	statuses := make(map[string]int, types.StatusMax)
	for st := types.QueryStatus(0); st < types.StatusMax; st++ {
		if n := stats.Status[st]; n > 0 {
			statuses[st.String()] = n
		}
	}
	queryTypes := make(map[string]int, types.TypeMax)
	for qt := types.QueryType(0); qt < types.TypeMax; qt++ {
		if n := stats.Type[qt]; n > 0 {
			queryTypes[qt.String()] = n
		}
	}
	replies := make(map[string]int, types.ReplyMax)
	for r := types.ReplyType(0); r < types.ReplyMax; r++ {
		if n := stats.Reply[r]; n > 0 {
			replies[r.String()] = n
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"queries":         stats.Queries,
		"blocked":         stats.Blocked,
		"percent_blocked": percent,
		"clients":         stats.Clients,
		"domains":         stats.Domains,
		"status":          statuses,
		"types":           queryTypes,
		"replies":         replies,
	})
}

func (s *Server) handleHistory(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"history": s.engine.History()})
}

func (s *Server) handleTopClients(c *gin.Context) {
	n, blocked := listParams(c)
	c.JSON(http.StatusOK, gin.H{"clients": s.arena.TopClients(n, blocked)})
}

func (s *Server) handleTopDomains(c *gin.Context) {
	n, blocked := listParams(c)
	c.JSON(http.StatusOK, gin.H{"domains": s.arena.TopDomains(n, blocked)})
}

func listParams(c *gin.Context) (int, bool) {
	n := 10
	if v, err := strconv.Atoi(c.DefaultQuery("count", "10")); err == nil && v > 0 {
		n = v
	}
	blocked := c.Query("blocked") == "true"
	return n, blocked
}

func (s *Server) handleMessages(c *gin.Context) {
	if s.messages == nil {
		c.JSON(http.StatusOK, gin.H{"messages": []types.Message{}})
		return
	}
	messages, err := s.messages.Messages()
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list messages")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list messages"})
		return
	}
	if messages == nil {
		messages = []types.Message{}
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// handleGC schedules a retention pass on the housekeeper's next wake
// instead of running one inline, keeping all passes on one goroutine.
func (s *Server) handleGC(c *gin.Context) {
	s.engine.ForceGC()
	c.JSON(http.StatusOK, gin.H{"status": "scheduled"})
}

// handleFlush evicts the entire in-memory window immediately.
func (s *Server) handleFlush(c *gin.Context) {
	s.arena.Lock()
	removed := s.engine.Flush(time.Now().Unix())
	s.arena.Unlock()

	s.logger.Info().Int("removed", removed).Msg("history flushed")
	c.JSON(http.StatusOK, gin.H{"status": "flushed", "removed": removed})
}
