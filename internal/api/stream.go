// Server-push endpoints. Each open stream holds one subscription on the
// notifier hub; on every qualifying insert the handler recomputes the current
// snapshot and writes it as an SSE frame. Delivery is at-most-once: there is
// no buffering of missed events, a reconnecting client just gets a fresh
// snapshot.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hazyhaar/playtrack/internal/db"
	"github.com/hazyhaar/playtrack/internal/notify"
)

// snapshotFunc recomputes the view pushed to stream subscribers. For the
// score feed the view depends on which game the triggering insert belongs to.
type snapshotFunc func(gameID string) (any, error)

func (a *API) handleStreamScores(w http.ResponseWriter, r *http.Request) {
	// Optional gameId filter: when set, only inserts for that game trigger a
	// push and the connect-time snapshot is that game's top-N.
	filterGame := r.URL.Query().Get("gameId")

	a.serveStream(w, r, notify.TopicScores, filterGame, func(gameID string) (any, error) {
		scores, err := a.db.TopScores(gameID, a.stream.SnapshotLimit)
		if err != nil {
			return nil, err
		}
		if scores == nil {
			scores = []*db.Score{}
		}
		return map[string]any{"game_id": gameID, "top_scores": scores}, nil
	})
}

func (a *API) handleStreamEMG(w http.ResponseWriter, r *http.Request) {
	a.serveStream(w, r, notify.TopicEMG, "", func(string) (any, error) {
		records, err := a.db.RecentEMG(a.stream.SnapshotLimit)
		if err != nil {
			return nil, err
		}
		if records == nil {
			records = []*db.EMGRecord{}
		}
		return map[string]any{"emg_records": records}, nil
	})
}

func (a *API) serveStream(w http.ResponseWriter, r *http.Request, topic, filterGame string, snapshot snapshotFunc) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		jsonError(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	sub := a.hub.Subscribe(topic)
	if sub == nil {
		jsonError(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}
	defer sub.Cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	start := time.Now()
	eventsSent := 0
	defer func() {
		if a.metricsDB != nil {
			a.metricsDB.RecordStreamSession(topic, int(time.Since(start).Milliseconds()), eventsSent)
		}
	}()

	// Connect-time snapshot so a (re)connecting client starts from the
	// current view. The score feed needs a game to snapshot; without a
	// filter it starts pushing on the first insert instead.
	if topic != notify.TopicScores || filterGame != "" {
		if !a.writeSnapshot(w, flusher, topic, filterGame, snapshot) {
			return
		}
		eventsSent++
	}

	heartbeat := time.Duration(a.stream.HeartbeatSec) * time.Second
	if heartbeat <= 0 {
		heartbeat = 30 * time.Second
	}
	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Comment frame keeps proxies from closing an idle stream.
			if _, err := fmt.Fprint(w, ": heartbeat\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case ev, open := <-sub.C:
			if !open {
				return
			}
			gameID := filterGame
			if topic == notify.TopicScores {
				score, ok := ev.Payload.(*db.Score)
				if !ok {
					continue
				}
				if filterGame != "" && score.GameID != filterGame {
					continue
				}
				gameID = score.GameID
			}
			if !a.writeSnapshot(w, flusher, topic, gameID, snapshot) {
				return
			}
			eventsSent++
		}
	}
}

// writeSnapshot recomputes and writes one SSE data frame. Returns false when
// the stream should be torn down (snapshot failure or dead client).
func (a *API) writeSnapshot(w http.ResponseWriter, flusher http.Flusher, topic, gameID string, snapshot snapshotFunc) bool {
	view, err := snapshot(gameID)
	if err != nil {
		slog.Error("computing stream snapshot", "error", err, "topic", topic)
		return false
	}
	data, err := json.Marshal(view)
	if err != nil {
		slog.Error("encoding stream snapshot", "error", err, "topic", topic)
		return false
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", topic, data); err != nil {
		return false
	}
	flusher.Flush()
	return true
}
