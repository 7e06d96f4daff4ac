package onion

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	Ot "github.com/GMPavanLab/timeseries-analysis/types"
)

// How many of the latest run summaries a progress snapshot carries.
const progressTail = 10

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebsocketHandler pushes sweep progress snapshots to the client until
// the connection goes away.
func (v *View) WebsocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for range ticker.C {
		progress := v.GetSweepProgress()
		if err := conn.WriteJSON(progress); err != nil {
			return // Connection closed
		}
	}
}

// GetSweepProgress snapshots the running sweep for clients.
func (v *View) GetSweepProgress() Ot.SweepProgress {
	v.MU.RLock()
	defer v.MU.RUnlock()

	latest := v.Sweep
	if len(latest) > progressTail {
		latest = latest[len(latest)-progressTail:]
	}
	// Copy so the caller never holds a slice into guarded state.
	tail := make([]Ot.RunSummary, len(latest))
	copy(tail, latest)

	return Ot.SweepProgress{
		Completed: len(v.Sweep),
		Total:     v.Total,
		Latest:    tail,
	}
}
