package server

import (
	"context"
	"errors"
	"html/template"
	"io"
	"net/http"
	"os"
	"strconv"

	"github.com/jfmyers9/playlistlog/internal/auth"
	"github.com/jfmyers9/playlistlog/internal/importer"
	"github.com/jfmyers9/playlistlog/internal/store"
	"github.com/rs/zerolog"
)

type contextKey int

const adminKey contextKey = iota

// adminFromContext returns the admin user stored by adminAuth
func adminFromContext(ctx context.Context) (*store.User, bool) {
	u, ok := ctx.Value(adminKey).(*store.User)
	return u, ok
}

// adminAuth requires HTTP basic credentials of an admin user
func adminAuth(users UserStore, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			login, password, ok := r.BasicAuth()
			if !ok {
				unauthorized(w)
				return
			}

			user, err := users.UserByLogin(r.Context(), login)
			if err != nil {
				if !errors.Is(err, store.ErrNotFound) {
					logger.Error().Err(err).Msg("Failed to look up admin user")
				}
				unauthorized(w)
				return
			}

			if !user.Admin || !auth.CheckPassword(user.PasswordHash, password) {
				logger.Info().Str("user", login).Msg("Admin authentication failed")
				unauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), adminKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="playlistlog", charset="UTF-8"`)
	http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
}

var wizardTemplate = template.Must(template.New("wizard").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Import Last.fm</title></head>
<body>
<div class="wrap">
<h2>Import Last.fm</h2>
{{- if .Error}}
<p class="error">{{.Error}}</p>
{{- else if .Summary}}
<p>Imported {{.Summary.Imported}} scrobbles from {{.Summary.Files}} files.
Skipped {{.Summary.Skipped}} incomplete entries, {{.Summary.Duplicates}} duplicates and {{.Summary.SkippedFiles}} unreadable files.</p>
<h3>All done. Have fun!</h3>
{{- else}}
<div class="narrow">
<p>Upload your Last.fm zip export file and import your scrobbles to the playlist log.</p>
<form enctype="multipart/form-data" method="post" action="?step=1">
<input type="file" name="import" accept=".zip">
<input type="submit" value="Upload file and import">
</form>
</div>
{{- end}}
</div>
</body>
</html>
`))

type wizardPage struct {
	Error   string
	Summary *importer.Summary
}

// importWizard is the two-step upload and import flow
type importWizard struct {
	importer       ArchiveImporter
	tempDir        string
	maxUploadBytes int64
	logger         zerolog.Logger
}

func (wz *importWizard) dispatch(w http.ResponseWriter, r *http.Request) {
	step, _ := strconv.Atoi(r.URL.Query().Get("step"))

	switch {
	case step == 1 && r.Method == http.MethodPost:
		wz.upload(w, r)
	default:
		wz.render(w, http.StatusOK, wizardPage{})
	}
}

func (wz *importWizard) upload(w http.ResponseWriter, r *http.Request) {
	admin, ok := adminFromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}

	if wz.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, wz.maxUploadBytes)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		wz.render(w, http.StatusBadRequest, wizardPage{Error: "Upload failed: " + err.Error()})
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, _, err := r.FormFile("import")
	if err != nil {
		wz.render(w, http.StatusBadRequest, wizardPage{Error: "No file was uploaded."})
		return
	}
	defer file.Close()

	path, err := wz.saveUpload(file)
	if err != nil {
		wz.logger.Error().Err(err).Msg("Failed to store upload")
		wz.render(w, http.StatusInternalServerError, wizardPage{Error: "Upload failed: could not store the file."})
		return
	}
	defer func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			wz.logger.Warn().Err(err).Str("path", path).Msg("Failed to remove upload")
		}
	}()

	sum, err := wz.importer.Run(r.Context(), path, admin.ID)
	if err != nil {
		wz.logger.Error().Err(err).Str("user", admin.Login).Msg("Import failed")
		wz.render(w, http.StatusInternalServerError, wizardPage{Error: "Import failed: " + err.Error()})
		return
	}

	wz.render(w, http.StatusOK, wizardPage{Summary: &sum})
}

func (wz *importWizard) saveUpload(src io.Reader) (string, error) {
	dst, err := os.CreateTemp(wz.tempDir, "playlistlog-upload-*.zip")
	if err != nil {
		return "", err
	}

	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(dst.Name())
		return "", err
	}

	if err := dst.Close(); err != nil {
		_ = os.Remove(dst.Name())
		return "", err
	}

	return dst.Name(), nil
}

func (wz *importWizard) render(w http.ResponseWriter, status int, page wizardPage) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := wizardTemplate.Execute(w, page); err != nil {
		wz.logger.Error().Err(err).Msg("Failed to render import wizard")
	}
}
