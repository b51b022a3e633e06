package web

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/samskrta/review-image/internal/apperr"
)

// unsafeFilenameChars matches runs of anything but alphanumerics, dash,
// underscore, and dot. safeFilename keeps only the base name of an uploaded
// technician photo's requested name and replaces each such run with "-",
// so it can't escape technicianDir via path traversal.
var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

func safeFilename(name string) string {
	name = filepath.Base(name)
	name = unsafeFilenameChars.ReplaceAllString(name, "-")
	if name == "" || name == "." || name == ".." {
		name = "technician"
	}
	return name
}

// handleTechniciansList implements GET /api/technicians: the static
// technician-photo directory is an opaque external collaborator (spec.md
// §1's Non-goals), so this only lists what's already on disk.
func (s *Server) handleTechniciansList(w http.ResponseWriter, r *http.Request) {
	entries, err := os.ReadDir(s.technicianDir)
	if err != nil {
		if os.IsNotExist(err) {
			writeJSON(w, http.StatusOK, map[string]any{"technicians": []string{}})
			return
		}
		writeAPIError(w, apperr.Wrap(apperr.Internal, "list technician photos", err))
		return
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	writeJSON(w, http.StatusOK, map[string]any{"technicians": names})
}

// handleTechnicianUpload implements POST /api/technicians/upload?name=<safe>:
// the body is stored verbatim under a sanitized filename.
func (s *Server) handleTechnicianUpload(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		writeAPIError(w, apperr.Bad("name query parameter is required"))
		return
	}
	name = safeFilename(name)

	if err := os.MkdirAll(s.technicianDir, 0o755); err != nil {
		writeAPIError(w, apperr.Wrap(apperr.Internal, "prepare technician photo directory", err))
		return
	}

	body := http.MaxBytesReader(w, r.Body, maxImageBody)
	defer r.Body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		writeAPIError(w, apperr.Wrap(apperr.BadRequest, "read upload body", err))
		return
	}

	dest := filepath.Join(s.technicianDir, name)
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		writeAPIError(w, apperr.Wrap(apperr.Internal, "store technician photo", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"name": name})
}
