package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/projecthayat/hayat/pkg/detection"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = streamPongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	HandshakeTimeout: 10 * time.Second,
	CheckOrigin:      func(r *http.Request) bool { return true },
}

// streamDetections pushes every new detection to a websocket client as a
// JSON text message. With ?backlog=N the N most recent detections are sent
// first, oldest first.
func (s *Server) streamDetections(c *gin.Context) {
	if s.opts.Detections == nil {
		s.unavailable(c, "detection log")
		return
	}
	backlog := 0
	if v := c.Query("backlog"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, errorBody{Error: "invalid backlog", Detail: v, RequestID: requestIDOf(c)})
			return
		}
		backlog = min(n, maxDetectionLimit)
	}

	// Subscribe before reading the backlog so nothing recorded in between
	// is missed; duplicates are filtered below.
	ch, cancel := s.opts.Detections.Subscribe()
	defer cancel()

	var past []detection.Detection
	if backlog > 0 {
		var err error
		if past, err = s.opts.Detections.Recent(c.Request.Context(), backlog); err != nil {
			c.JSON(http.StatusInternalServerError, errorBody{Error: "read detections", Detail: err.Error(), RequestID: requestIDOf(c)})
			return
		}
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error.
		s.logger.Warn("api: websocket upgrade failed", "request_id", requestIDOf(c), "error", err)
		return
	}
	defer conn.Close()
	s.logger.Info("api: detection stream opened", "request_id", requestIDOf(c), "remote", c.ClientIP())

	// The reader only processes control frames and notices the client
	// going away.
	gone := make(chan struct{})
	conn.SetReadDeadline(time.Now().Add(streamPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	sent := make(map[string]bool, len(past))
	for i := len(past) - 1; i >= 0; i-- {
		if err := writeDetection(conn, past[i]); err != nil {
			return
		}
		sent[past[i].ID] = true
	}

	ping := time.NewTicker(streamPingPeriod)
	defer ping.Stop()
	for {
		select {
		case d, ok := <-ch:
			if !ok {
				return
			}
			if sent[d.ID] {
				continue
			}
			if err := writeDetection(conn, d); err != nil {
				s.logger.Debug("api: detection stream write failed", "request_id", requestIDOf(c), "error", err)
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.closing:
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(streamWriteWait))
			return
		case <-gone:
			s.logger.Info("api: detection stream closed", "request_id", requestIDOf(c))
			return
		}
	}
}

func writeDetection(conn *websocket.Conn, d detection.Detection) error {
	conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
	return conn.WriteJSON(d)
}
