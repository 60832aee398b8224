package server

import (
	"archive/zip"
	"compress/flate"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"path"

	"go.uber.org/zap"

	"github.com/vertextoedge/secure-file-share/internal/domain"
	"github.com/vertextoedge/secure-file-share/internal/port"
	"github.com/vertextoedge/secure-file-share/internal/service/share"
)

// DownloadHandler streams shared content: single files directly, directories
// as zip archives when the share allows it
type DownloadHandler struct {
	service *share.Service
	fs      port.FileSystem
	logger  *zap.Logger
}

// NewDownloadHandler creates a new DownloadHandler
func NewDownloadHandler(service *share.Service, filesystem port.FileSystem, logger *zap.Logger) *DownloadHandler {
	return &DownloadHandler{
		service: service,
		fs:      filesystem,
		logger:  logger,
	}
}

// HandleDownload handles GET /shares/{id}/download?password=
// The directory rule is checked before the access gates so a rejected
// directory download never consumes an access.
func (h *DownloadHandler) HandleDownload(w http.ResponseWriter, r *http.Request, shareID string) {
	info, err := h.service.GetShare(shareID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	isDir, err := h.fs.IsDirectory(info.Path)
	if err != nil {
		h.logger.Error("failed to resolve share target",
			zap.String("share_id", shareID),
			zap.String("path", info.Path),
			zap.Error(err))
		writeError(w, h.logger, domain.ErrInternal)
		return
	}
	if isDir && !info.AllowZipDownload {
		writeError(w, h.logger, domain.ErrDirectoryDownloadNotAllowed)
		return
	}

	// Full gate sequence, consuming one access
	info, err = h.service.AccessShare(accessRequest(r, shareID, r.URL.Query().Get("password")))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if isDir {
		h.streamZip(w, r, info)
		return
	}
	h.streamFile(w, r, info)
}

// streamFile serves a single file with size, type, and disposition headers
func (h *DownloadHandler) streamFile(w http.ResponseWriter, r *http.Request, info *domain.ShareInfo) {
	stat, err := h.fs.Stat(info.Path)
	if err != nil {
		h.logger.Error("failed to stat shared file",
			zap.String("share_id", info.ID),
			zap.String("path", info.Path),
			zap.Error(err))
		writeError(w, h.logger, domain.ErrInternal)
		return
	}

	f, err := h.fs.Open(info.Path)
	if err != nil {
		h.logger.Error("failed to open shared file",
			zap.String("share_id", info.ID),
			zap.String("path", info.Path),
			zap.Error(err))
		writeError(w, h.logger, domain.ErrInternal)
		return
	}
	defer f.Close()

	filename := path.Base(info.Path)
	contentType := mime.TypeByExtension(path.Ext(filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", fmt.Sprintf("%d", stat.Size()))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if _, err := io.Copy(w, f); err != nil {
		// Client disconnects land here; the deferred close releases the handle
		h.logger.Warn("file stream interrupted",
			zap.String("share_id", info.ID),
			zap.String("path", info.Path),
			zap.Error(err))
		return
	}

	h.logger.Info("file download served",
		zap.String("share_id", info.ID),
		zap.String("path", info.Path),
		zap.Int64("size", stat.Size()))
}

// streamZip archives a directory on the fly. Entries are deflated at the
// maximal compression level. The walk aborts when the client disconnects.
func (h *DownloadHandler) streamZip(w http.ResponseWriter, r *http.Request, info *domain.ShareInfo) {
	basename := path.Base(info.Path)
	if basename == "/" || basename == "." {
		basename = "share"
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", basename+".zip"))

	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestCompression)
	})

	ctx := r.Context()
	files := 0
	err := h.fs.Walk(info.Path, func(relPath string, stat fs.FileInfo, open func() (io.ReadCloser, error)) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		header, err := zip.FileInfoHeader(stat)
		if err != nil {
			return err
		}
		header.Name = relPath
		header.Method = zip.Deflate

		entry, err := zw.CreateHeader(header)
		if err != nil {
			return err
		}

		f, err := open()
		if err != nil {
			return err
		}
		_, err = io.Copy(entry, f)
		f.Close()
		if err != nil {
			return err
		}

		files++
		return nil
	})
	if err != nil {
		// Headers are already out; all we can do is stop and release
		zw.Close()
		h.logger.Warn("zip stream interrupted",
			zap.String("share_id", info.ID),
			zap.String("path", info.Path),
			zap.Error(err))
		return
	}

	if err := zw.Close(); err != nil {
		h.logger.Warn("failed to finalize zip stream",
			zap.String("share_id", info.ID),
			zap.Error(err))
		return
	}

	h.logger.Info("zip download served",
		zap.String("share_id", info.ID),
		zap.String("path", info.Path),
		zap.Int("files", files))
}
