package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/kgyan/makola/pkg/feed"
	"github.com/kgyan/makola/pkg/sse"
)

// FeedController exposes the change feed over websocket and SSE. Clients
// pick tables with ?tables=orders,payments; no filter means everything.
type FeedController struct{}

func NewFeedController() *FeedController {
	return &FeedController{}
}

func requestedTables(r *http.Request) []string {
	raw := strings.TrimSpace(r.URL.Query().Get("tables"))
	if raw == "" {
		return nil
	}
	var tables []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tables = append(tables, t)
		}
	}
	return tables
}

func (c *FeedController) WS(w http.ResponseWriter, r *http.Request) {
	feed.ServeWS(w, r, requestedTables(r))
}

func (c *FeedController) SSE(w http.ResponseWriter, r *http.Request) {
	stream := sse.New(w, r)
	if stream == nil {
		return
	}

	sub := feed.Subscribe(requestedTables(r)...)
	defer sub.Close()

	heartbeat := time.NewTicker(25 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			stream.Send(ev.Table+"."+string(ev.Kind), ev) //nolint:errcheck
		case <-heartbeat.C:
			stream.Comment("keepalive")
		case <-r.Context().Done():
			return
		}
		if stream.IsClosed() {
			return
		}
	}
}
