package portal

import (
	"encoding/json"
	"fmt"
	"net/http"

	"tailscale.com/tsweb"
)

// AttachAdminRoutes attaches debugging endpoints to the given mux served at
// /debug/. These routes are reachable only from localhost or over the
// tailnet, not from the open configuration portal.
func (s *Server) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)

	// Live tail of sensor frames as Server-Sent Events; pairs with the
	// desktop visualizer script.
	debug.HandleSilentFunc("ir-tail", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if s.FrameTail == nil {
			http.Error(w, "Frame tail unavailable", http.StatusServiceUnavailable)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")

		id, c := s.FrameTail.Subscribe()
		defer s.FrameTail.Unsubscribe(id)

		w.Write([]byte(": ping\n\n"))
		w.(http.Flusher).Flush()

		for {
			select {
			case payload, ok := <-c:
				if !ok {
					return
				}
				if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
					return
				}
				w.(http.Flusher).Flush()
			case <-r.Context().Done():
				return
			}
		}
	})

	// Preference dump, including values still at their defaults.
	debug.HandleSilentFunc("prefs", func(w http.ResponseWriter, r *http.Request) {
		s.showConfig(w, r)
	})

	// Catalogue summary.
	debug.HandleSilentFunc("spells", func(w http.ResponseWriter, r *http.Request) {
		cat := s.catalog()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"count":  len(cat.Names()),
			"names":  cat.Names(),
			"custom": cat.CustomNames(),
		})
	})
}
