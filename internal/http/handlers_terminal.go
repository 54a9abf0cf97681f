package http

import "net/http"

type terminalRequest struct {
	Command string `json:"command"`
}

// handleTerminal evaluates one terminal command. There is deliberately no 401
// here: the interpreter answers unauthenticated callers in-band so the
// terminal page can print the failure like any other output line.
func (s *Server) handleTerminal(w http.ResponseWriter, r *http.Request) {
	var req terminalRequest
	if !readJSON(w, r, &req) {
		return
	}

	owner := s.currentUser(r)
	result := s.terminal.Execute(r.Context(), owner, req.Command)
	writeJSON(w, http.StatusOK, result)
}
