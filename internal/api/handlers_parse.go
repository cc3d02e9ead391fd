package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

type parseRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	conv := s.parser.Parse(req.Text)
	writeJSON(w, http.StatusOK, conv)
}

func (s *Server) handleParseUpload(w http.ResponseWriter, r *http.Request) {
	up, ok := s.readUpload(w, r)
	if !ok {
		return
	}
	conv := s.parser.Parse(up.doc.Text)
	writeJSON(w, http.StatusOK, map[string]any{
		"filename":     up.filename,
		"title":        up.doc.Title,
		"conversation": conv,
	})
}

// decodeJSON reads a body of at most MaxInputBytes into v, writing the
// error response itself when it fails.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxInputBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if isTooLarge(err) {
			jsonError(w, fmt.Sprintf("request exceeds max size (%d bytes)", s.cfg.MaxInputBytes), http.StatusRequestEntityTooLarge)
			return false
		}
		jsonError(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func isTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}
