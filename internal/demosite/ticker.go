package demosite

import (
	"math"
	"net/http"
	"time"

	"katari/internal/interfaces"
)

// tick is one websocket ticker sample.
type tick struct {
	Seq   int     `json:"seq"`
	At    string  `json:"at"`
	Value float64 `json:"value"`
}

const tickerInterval = 500 * time.Millisecond

// handleTicker streams an endless sequence of samples, keeping the live
// dashboard busy with in-flight activity.
func (s *Server) handleTicker(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrading to websocket", interfaces.Field{Key: "error", Value: err.Error()})
		return
	}
	defer conn.Close()

	ctx := r.Context()
	ticker := time.NewTicker(tickerInterval)
	defer ticker.Stop()

	for seq := 1; ; seq++ {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			sample := tick{
				Seq:   seq,
				At:    t.Format("15:04:05"),
				Value: 100 + 12*math.Sin(float64(seq)/5),
			}
			if err := conn.WriteJSON(sample); err != nil {
				return
			}
		}
	}
}
